package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/iziplay/isbn-api/pkg/database"
	"github.com/iziplay/isbn-api/pkg/isbn"
	"github.com/iziplay/isbn-api/pkg/lookup"
	"github.com/iziplay/isbn-api/pkg/metrics"
	"github.com/iziplay/isbn-api/pkg/rangemsg"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/multierr"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("github.com/iziplay/isbn-api/pkg/sync")

// ErrNoTable is returned by Bootstrap when neither the database nor a local
// file provides a range table.
var ErrNoTable = errors.New("no range table available")

// Store persists range tables and synchronization history.
type Store interface {
	LastSync(ctx context.Context) (*database.Synchronization, error)
	Load(ctx context.Context) (*isbn.RangeTable, error)
	Save(ctx context.Context, table *isbn.RangeTable, warnings []string) (*database.Synchronization, error)
}

// DatabaseStore is the postgres backed Store.
type DatabaseStore struct{}

// LastSync returns the last sync from database
func (DatabaseStore) LastSync(ctx context.Context) (*database.Synchronization, error) {
	var sync *database.Synchronization
	err := database.DB.WithContext(ctx).Where("complete = ?", true).Order("date DESC").First(&sync).Error
	if err != nil {
		return nil, err
	}

	return sync, nil
}

func (DatabaseStore) Load(ctx context.Context) (*isbn.RangeTable, error) {
	return database.LoadRangeTable(ctx)
}

func (DatabaseStore) Save(ctx context.Context, table *isbn.RangeTable, warnings []string) (*database.Synchronization, error) {
	sync, err := database.SaveRangeTable(ctx, table, warnings)
	if err != nil {
		return nil, err
	}
	database.ComputeAndCacheStats(true)
	return sync, nil
}

// Syncer keeps the lookup service supplied with the current range table.
type Syncer struct {
	URL     string
	Store   Store
	Lookup  *lookup.Service
	Metrics *metrics.Metrics

	g singleflight.Group
}

// Bootstrap installs a table before the first synchronization: the stored
// one when present, else the range message at file (if not empty).
func (s *Syncer) Bootstrap(ctx context.Context, file string) error {
	table, err := s.Store.Load(ctx)
	if err == nil {
		slog.Info("Loaded range table from database", "serial", table.Metadata().Serial, "groups", table.Len())
		s.install(table)
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("cannot load range table: %w", err)
	}

	if file == "" {
		return ErrNoTable
	}
	msg, err := rangemsg.ParseFile(file)
	if err != nil {
		return err
	}
	table, err = msg.Table()
	if err != nil {
		return fmt.Errorf("invalid range message %s: %w", file, err)
	}
	logWarnings(msg.Warnings)
	slog.Info("Loaded range table from file", "file", file, "serial", table.Metadata().Serial, "groups", table.Len())
	s.install(table)
	return nil
}

// Sync fetches the range message and, when its serial differs from the last
// stored one, persists it and makes it the active table. Concurrent calls
// share a single run.
func (s *Syncer) Sync(ctx context.Context) error {
	_, err, _ := s.g.Do("sync", func() (interface{}, error) {
		return nil, s.sync(ctx)
	})
	return err
}

func (s *Syncer) sync(ctx context.Context) (err error) {
	ctx, span := tracer.Start(ctx, "sync")
	defer span.End()

	start := time.Now()
	result := "updated"
	var table *isbn.RangeTable

	startSync(s.URL)
	defer func() {
		if err != nil {
			result = "failed"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			endSync("", 0, 0, err)
		} else {
			t := s.Lookup.Table()
			endSync(t.Metadata().Serial, t.Len(), t.RuleCount(), nil)
		}
		s.Metrics.ObserveSync(start, result)
	}()

	lastSync, err := s.Store.LastSync(ctx)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("cannot sync: %w", err)
	}

	msg, err := rangemsg.Fetch(ctx, s.URL)
	if err != nil {
		return err
	}
	meta := msg.Metadata
	span.SetAttributes(attribute.String("isbn.range.serial", meta.Serial), attribute.Int("isbn.range.groups", len(msg.Groups)))
	slog.Info("Fetched range message", "serial", meta.Serial, "date", meta.Date, "groups", len(msg.Groups))

	table, err = msg.Table()
	if err != nil {
		return fmt.Errorf("invalid range message: %w", err)
	}

	if lastSync != nil && meta.Serial != "" && lastSync.Serial == meta.Serial && s.Lookup.Table() != nil {
		slog.Info("Sync already performed with this range message", "serial", meta.Serial)
		result = "unchanged"
		return nil
	}

	setStage(StageStoring)
	warnings := logWarnings(msg.Warnings)
	if _, err := s.Store.Save(ctx, table, warnings); err != nil {
		return fmt.Errorf("cannot store range table: %w", err)
	}

	s.install(table)
	slog.Info("Sync completed successfully", "serial", meta.Serial, "groups", table.Len(), "rules", table.RuleCount())
	return nil
}

func (s *Syncer) install(table *isbn.RangeTable) {
	s.Lookup.SetTable(table)
	s.Metrics.SetTableGroups(table.Len())
}

// Run synchronizes every interval until ctx is done. The first run is
// scheduled from the last stored sync; later ones follow the previous
// attempt, whether or not the range message changed.
func (s *Syncer) Run(ctx context.Context, interval time.Duration) {
	sleepDuration := s.firstDelay(ctx, interval)
	for {
		slog.Info("Next sync scheduled", "in", sleepDuration)
		select {
		case <-ctx.Done():
			return
		case <-time.After(sleepDuration):
		}

		sleepDuration = interval
		if err := s.Sync(ctx); err != nil {
			slog.Error("Sync failed", "error", err)
			// do not hammer the agency when it keeps failing
			sleepDuration = min(interval, time.Hour)
		}
	}
}

func (s *Syncer) firstDelay(ctx context.Context, interval time.Duration) time.Duration {
	lastSync, err := s.Store.LastSync(ctx)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			slog.Error("Failed to get last sync", "error", err)
			return interval
		}
		return 0
	}
	return max(time.Until(lastSync.Date.Add(interval)), 0)
}

func logWarnings(warnings error) []string {
	var out []string
	for _, w := range multierr.Errors(warnings) {
		slog.Warn("Range message warning", "warning", w)
		out = append(out, w.Error())
	}
	return out
}

// IntervalFromEnv reads ISBN_SYNC_INTERVAL, defaulting to a day.
func IntervalFromEnv() time.Duration {
	if v, ok := os.LookupEnv("ISBN_SYNC_INTERVAL"); ok {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
		slog.Warn("Invalid ISBN_SYNC_INTERVAL, using default", "value", v)
	}
	return 24 * time.Hour
}
