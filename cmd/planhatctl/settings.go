package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hull-connectors/planhat/internal/domain/integration"
)

// connectorFile is the YAML form of a connector instance
type connectorFile struct {
	ID           string                        `yaml:"id"`
	Organization string                        `yaml:"organization"`
	Secret       string                        `yaml:"secret"`
	Settings     integration.ConnectorSettings `yaml:"private_settings"`
}

func loadConnectorFile(path string) (*connectorFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	var file connectorFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	return &file, nil
}

func (f *connectorFile) connector() *integration.Connector {
	return &integration.Connector{
		ID:           f.ID,
		Organization: f.Organization,
		Secret:       f.Secret,
		Settings:     f.Settings,
	}
}

func newSettingsCmd() *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect connector settings files",
	}
	settingsCmd.AddCommand(newSettingsValidateCmd())
	return settingsCmd
}

func newSettingsValidateCmd() *cobra.Command {
	var settingsPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a settings file and report the connector status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			file, err := loadConnectorFile(settingsPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if err := file.Settings.Validate(); err != nil {
				var verrs validator.ValidationErrors
				if errors.As(err, &verrs) {
					for _, fe := range verrs {
						fmt.Fprintf(out, "invalid: %s (%s)\n", fe.Namespace(), fe.Tag())
					}
				}
				return fmt.Errorf("settings are invalid: %w", err)
			}

			status, messages := file.Settings.CheckSettings()
			fmt.Fprintf(out, "status: %s\n", status)
			for _, msg := range messages {
				fmt.Fprintf(out, "  - %s\n", msg)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&settingsPath, "settings", "", "Path to the connector settings YAML file")
	_ = cmd.MarkFlagRequired("settings")
	return cmd
}
