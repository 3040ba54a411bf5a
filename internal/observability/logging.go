// Package observability builds the process logger and the field sets used to
// tag NPC log lines.
package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/npcmod/internal/config"
)

// NewLogger creates a structured logger from the given logging configuration.
//
// Precondition: cfg.Level must be one of "debug", "info", "warn", "error".
// Precondition: cfg.Format must be "json" or "console".
// Postcondition: Returns a configured zap.Logger or a non-nil error.
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}

	var zapCfg zap.Config
	switch cfg.Format {
	case "json":
		zapCfg = zap.NewProductionConfig()
		// NPC ticks emit bursts of identical messages; keep every line.
		zapCfg.Sampling = nil
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger.Named("npchost"), nil
}

// NPCFields returns the fields that identify one spawned NPC.
func NPCFields(npcID, instanceID string) []zap.Field {
	fields := []zap.Field{zap.String("npc", npcID)}
	if instanceID != "" {
		fields = append(fields, zap.String("instance", instanceID))
	}
	return fields
}

// ForNPC returns a child of logger tagged with NPCFields.
//
// Precondition: logger must be non-nil.
func ForNPC(logger *zap.Logger, npcID, instanceID string) *zap.Logger {
	return logger.With(NPCFields(npcID, instanceID)...)
}
