package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds journal database tracing configuration.
type DBTracingConfig struct {
	Enabled         bool
	DBName          string
	LogFullSQL      bool // include query variables; never in production
	SlowQueryThresh time.Duration
}

// DefaultDBTracingConfig returns tracing disabled with a 200ms slow threshold.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		DBName:          "planhat_journal",
		SlowQueryThresh: 200 * time.Millisecond,
	}
}

type dbContextKey string

const queryStartKey dbContextKey = "journal_query_start"

// InstrumentGorm registers the otelgorm plugin on db plus callbacks that mark
// slow and failed statements on the active span.
func InstrumentGorm(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBName)}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	before := func(tx *gorm.DB) {
		if tx.Statement.Context != nil {
			tx.Statement.Context = context.WithValue(tx.Statement.Context, queryStartKey, time.Now())
		}
	}
	after := func(tx *gorm.DB) {
		annotateStatement(tx, cfg.SlowQueryThresh)
	}

	cb := db.Callback()
	registrations := []error{
		cb.Create().Before("gorm:create").Register("journal_timing:before_create", before),
		cb.Query().Before("gorm:query").Register("journal_timing:before_query", before),
		cb.Update().Before("gorm:update").Register("journal_timing:before_update", before),
		cb.Raw().Before("gorm:raw").Register("journal_timing:before_raw", before),
		cb.Create().After("gorm:create").Register("journal_timing:after_create", after),
		cb.Query().After("gorm:query").Register("journal_timing:after_query", after),
		cb.Update().After("gorm:update").Register("journal_timing:after_update", after),
		cb.Raw().After("gorm:raw").Register("journal_timing:after_raw", after),
	}
	if err := errors.Join(registrations...); err != nil {
		return err
	}

	logger.Info("Journal database tracing enabled",
		zap.String("db_name", cfg.DBName),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh),
	)
	return nil
}

func annotateStatement(tx *gorm.DB, slowThreshold time.Duration) {
	ctx := tx.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	if tx.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", tx.Statement.Table))
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", tx.Statement.RowsAffected))

	if tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		span.RecordError(tx.Error)
		span.SetStatus(codes.Error, tx.Error.Error())
	}

	start, ok := ctx.Value(queryStartKey).(time.Time)
	if !ok || slowThreshold <= 0 {
		return
	}
	if elapsed := time.Since(start); elapsed > slowThreshold {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
	}
}
