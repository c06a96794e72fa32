package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	appintegration "github.com/hull-connectors/planhat/internal/application/integration"
	"github.com/hull-connectors/planhat/internal/domain/integration"
	"github.com/hull-connectors/planhat/internal/infrastructure/hull"
	"github.com/hull-connectors/planhat/internal/infrastructure/logger"
	"github.com/hull-connectors/planhat/internal/infrastructure/planhat"
	"github.com/hull-connectors/planhat/internal/interfaces/http/dto"
)

type replayOptions struct {
	settingsPath string
	payloadPath  string
	dryRun       bool
	batch        bool
	baseURL      string
}

// recorderFactory hands the same Recorder to every connector
type recorderFactory struct {
	recorder *hull.Recorder
}

func (f recorderFactory) NewPlatformClient(*integration.Connector) (integration.PlatformClient, error) {
	return f.recorder, nil
}

type replayReport struct {
	Result *appintegration.NotificationResult `json:"result"`
	Traits []hull.TraitsCall                  `json:"traits,omitempty"`
	Logs   []hull.LogCall                     `json:"logs,omitempty"`
}

func newReplayCmd(logLevel *string) *cobra.Command {
	opts := replayOptions{}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Run the outbound sync on a saved notification",
		Long: "replay sends the messages of a saved notification to Planhat with the connector settings from a YAML file. " +
			"With --dry-run, write-backs and connector logs are printed instead of being sent to the platform.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := logger.New(&logger.Config{
				Level:      *logLevel,
				Format:     "console",
				Output:     "stderr",
				TimeFormat: time.RFC3339,
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer func() {
				_ = log.Sync()
			}()
			return runReplay(cmd.Context(), cmd.OutOrStdout(), opts, log)
		},
	}

	cmd.Flags().StringVar(&opts.settingsPath, "settings", "", "Path to the connector settings YAML file")
	cmd.Flags().StringVar(&opts.payloadPath, "payload", "", "Path to the saved notification JSON")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Record platform write-backs instead of sending them")
	cmd.Flags().BoolVar(&opts.batch, "batch", false, "Treat the notification as a manual batch")
	cmd.Flags().StringVar(&opts.baseURL, "base-url", planhat.DefaultBaseURLTemplate, "Planhat API root, may contain {api_prefix}")
	_ = cmd.MarkFlagRequired("settings")
	_ = cmd.MarkFlagRequired("payload")
	return cmd
}

func runReplay(ctx context.Context, out io.Writer, opts replayOptions, log *zap.Logger) error {
	file, err := loadConnectorFile(opts.settingsPath)
	if err != nil {
		return err
	}
	body, err := os.ReadFile(opts.payloadPath)
	if err != nil {
		return fmt.Errorf("read payload: %w", err)
	}

	schemas, err := dto.NewSchemaValidator()
	if err != nil {
		return err
	}
	if err := schemas.Validate(dto.SchemaNotification, body); err != nil {
		var schemaErr *dto.SchemaError
		if errors.As(err, &schemaErr) {
			for _, d := range schemaErr.Details {
				fmt.Fprintf(out, "invalid: %s %s\n", d.Field, d.Message)
			}
		}
		return fmt.Errorf("payload rejected: %w", err)
	}

	var req dto.NotificationRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	// The settings file wins over whatever the saved payload carried.
	connector := req.ToConnector(file.Organization, file.Secret)
	connector.Settings = file.Settings
	if file.ID != "" {
		connector.ID = file.ID
	}
	if err := connector.Validate(); err != nil {
		return fmt.Errorf("invalid connector: %w", err)
	}

	clientCfg := planhat.DefaultClientConfig()
	clientCfg.BaseURLTemplate = opts.baseURL
	services, err := planhat.NewFactory(clientCfg, log)
	if err != nil {
		return err
	}

	var platforms integration.PlatformClientFactory
	var recorder *hull.Recorder
	if opts.dryRun {
		recorder = hull.NewRecorder(log)
		platforms = recorderFactory{recorder: recorder}
	} else {
		platforms = hull.NewFactory(hull.FactoryConfig{
			Organization: connector.Organization,
			Secret:       connector.Secret,
			Timeout:      30 * time.Second,
		}, log)
	}

	service := appintegration.NewNotificationService(services, platforms, log)

	var result *appintegration.NotificationResult
	switch req.Channel {
	case appintegration.ChannelUserUpdate:
		messages, err := req.UserMessages()
		if err != nil {
			return err
		}
		result, err = service.HandleUserUpdate(ctx, &appintegration.UserNotification{
			Connector: connector,
			Messages:  messages,
			IsBatch:   opts.batch,
		})
		if err != nil {
			return err
		}
	case appintegration.ChannelAccountUpdate:
		messages, err := req.AccountMessages()
		if err != nil {
			return err
		}
		result, err = service.HandleAccountUpdate(ctx, &appintegration.AccountNotification{
			Connector: connector,
			Messages:  messages,
			IsBatch:   opts.batch,
		})
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported channel %q", req.Channel)
	}

	report := replayReport{Result: result}
	if recorder != nil {
		report.Traits = recorder.Traits()
		report.Logs = recorder.Logs()
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
