package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/vault-md/versioned/internal/cache"
	"github.com/vault-md/versioned/internal/config"
	"github.com/vault-md/versioned/internal/database"
	"github.com/vault-md/versioned/internal/logging"
	"github.com/vault-md/versioned/internal/readingmode"
	"github.com/vault-md/versioned/internal/services"
)

// app is the database, cache and service one command works with.
type app struct {
	db         *database.Context
	svc        *services.VersionedService
	closeCache func() error
}

// open connects to the configured database and cache. reg may be nil; when
// set, cache metrics are registered with it.
func (o *rootOptions) open(reg prometheus.Registerer) (*app, error) {
	dbCtx, err := database.CreateDatabase(o.settings.DBPath)
	if err != nil {
		return nil, err
	}

	backend, closeCache, err := cache.Open(o.settings.Cache, logging.For("cache"))
	if err != nil {
		_ = database.CloseDatabase(dbCtx)
		return nil, err
	}

	var metrics *cache.Metrics
	if reg != nil {
		metrics = cache.NewMetrics(reg)
	}

	svc := services.NewVersionedService(dbCtx, services.Options{
		Cache:    backend,
		CacheTTL: o.settings.Cache.TTL,
		Metrics:  metrics,
		Logger:   logging.For("services"),
	})
	return &app{db: dbCtx, svc: svc, closeCache: closeCache}, nil
}

func (a *app) Close() error {
	return errors.Join(a.closeCache(), database.CloseDatabase(a.db))
}

// readingState resolves the persistent flags into a reading mode, falling
// back to the mode saved by "mode --persist" and then the configured one.
func (o *rootOptions) readingState() (*readingmode.State, *fileSession, error) {
	session := newFileSession(config.GetSessionFile())
	state, err := readingmode.ResolveWithSession(
		session,
		o.settings.ReadingMode,
		readingmode.Stage(o.stage),
		o.archiveDate,
		readingmode.Stage(o.archiveStage),
	)
	if err != nil {
		return nil, nil, err
	}
	return state, session, nil
}

// readingContext returns ctx carrying the reading mode of readingState.
func (o *rootOptions) readingContext(ctx context.Context) (context.Context, error) {
	state, _, err := o.readingState()
	if err != nil {
		return nil, err
	}
	return readingmode.NewContext(ctx, state), nil
}

func parseID(value string) (int64, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid id: %s", value)
	}
	return id, nil
}

// parseFieldFlags turns repeated Name=value flags into a field map.
func parseFieldFlags(values []string) (map[string]string, error) {
	fields := make(map[string]string, len(values))
	for _, v := range values {
		name, value, ok := strings.Cut(v, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid field %q (expected Name=value)", v)
		}
		fields[name] = value
	}
	return fields, nil
}

func checkFormat(format string) error {
	switch format {
	case "table", "json":
		return nil
	default:
		return fmt.Errorf("invalid format: %s (valid values: table, json)", format)
	}
}

type recordOutput struct {
	ID         int64             `json:"id"`
	Version    int64             `json:"version"`
	Fields     map[string]string `json:"fields"`
	LastEdited string            `json:"last_edited"`
}

type versionOutput struct {
	recordOutput
	WasDraft     bool `json:"was_draft"`
	WasPublished bool `json:"was_published"`
	WasDeleted   bool `json:"was_deleted"`
}

func toRecordOutput(r database.Record) recordOutput {
	return recordOutput{
		ID:         r.ID,
		Version:    r.Version,
		Fields:     r.Fields,
		LastEdited: r.LastEdited.Format(database.TimestampLayout),
	}
}

func writeJSON(cmd *cobra.Command, v any) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
