// Package cloudsync reconciles the local store with the cloud record database.
package cloudsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"tribeboard/internal/apperr"
	"tribeboard/internal/cloud"
	"tribeboard/internal/database"
	"tribeboard/internal/repository"
)

// ErrSyncDisabled is returned when the store runs without a cloud database
var ErrSyncDisabled = errors.New("cloud sync is disabled")

// Report summarises one sync run, keyed by record type
type Report struct {
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Pushed     map[string]int `json:"pushed"`
	Pulled     map[string]int `json:"pulled"`
	Conflicts  map[string]int `json:"conflicts"`
	Skipped    map[string]int `json:"skipped"`
}

func newReport() *Report {
	return &Report{
		StartedAt: time.Now().UTC(),
		Pushed:    map[string]int{},
		Pulled:    map[string]int{},
		Conflicts: map[string]int{},
		Skipped:   map[string]int{},
	}
}

// Status describes the engine for health and status endpoints
type Status struct {
	Enabled    bool       `json:"enabled"`
	Running    bool       `json:"running"`
	LastRunAt  *time.Time `json:"last_run_at,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
	LastReport *Report    `json:"last_report,omitempty"`
}

// Engine pushes dirty local entities and pulls remote changes
type Engine struct {
	db      *database.DB
	remote  cloud.Database
	logger  *zap.Logger
	syncers []recordSyncer

	runMu sync.Mutex

	statusMu sync.RWMutex
	status   Status
}

// NewEngine creates a sync engine. A nil remote disables syncing.
func NewEngine(db *database.DB, remote cloud.Database, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		db:      db,
		remote:  remote,
		logger:  logger.Named("sync"),
		syncers: syncers(),
		status:  Status{Enabled: remote != nil},
	}
}

// Enabled reports whether a cloud database is attached
func (e *Engine) Enabled() bool {
	return e.remote != nil
}

// Push saves every dirty local entity to the cloud database
func (e *Engine) Push(ctx context.Context) (map[string]int, error) {
	if !e.Enabled() {
		return nil, syncError(ErrSyncDisabled)
	}

	pushed := map[string]int{}
	for _, s := range e.syncers {
		n, err := s.push(ctx, e)
		pushed[s.RecordType()] = n
		if err != nil {
			return pushed, syncError(fmt.Errorf("push %s: %w", s.RecordType(), err))
		}
		if n > 0 {
			e.logger.Debug("pushed records", zap.String("record_type", s.RecordType()), zap.Int("count", n))
		}
	}
	return pushed, nil
}

// Pull applies remote changes made since the last pull of each record type
func (e *Engine) Pull(ctx context.Context) (*Report, error) {
	if !e.Enabled() {
		return nil, syncError(ErrSyncDisabled)
	}

	report := newReport()
	for _, s := range e.syncers {
		if err := e.pullType(ctx, s, report); err != nil {
			return report, syncError(fmt.Errorf("pull %s: %w", s.RecordType(), err))
		}
	}
	report.FinishedAt = time.Now().UTC()
	return report, nil
}

func (e *Engine) pullType(ctx context.Context, s recordSyncer, report *Report) error {
	recordType := s.RecordType()
	state := repository.NewSyncStateRepository(e.db)

	since, err := state.Checkpoint(ctx, recordType)
	if err != nil {
		return err
	}
	changes, err := e.remote.ChangesSince(ctx, recordType, since)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		return nil
	}

	checkpoint := since
	for _, rec := range changes {
		var result outcome
		err := e.db.WithTx(ctx, func(tx *database.Tx) error {
			var err error
			result, err = s.apply(ctx, tx, rec)
			return err
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// A record that cannot be applied is skipped so it does not block the rest
			e.logger.Warn("skipping remote record",
				zap.String("record_type", recordType),
				zap.String("record_name", rec.RecordName),
				zap.Error(err))
			report.Skipped[recordType]++
		} else {
			switch result {
			case outcomeCreated, outcomeUpdated:
				report.Pulled[recordType]++
			case outcomeOverwritten:
				report.Pulled[recordType]++
				report.Conflicts[recordType]++
			case outcomeKeptLocal:
				report.Conflicts[recordType]++
			case outcomeCorrected:
				e.logger.Warn("remote record corrected before apply",
					zap.String("record_type", recordType),
					zap.String("record_name", rec.RecordName))
				report.Pulled[recordType]++
				report.Conflicts[recordType]++
			}
		}
		if rec.Sequence > checkpoint {
			checkpoint = rec.Sequence
		}
	}

	return state.SetCheckpoint(ctx, recordType, checkpoint)
}

// SyncNow pushes then pulls. Concurrent calls run one after another.
func (e *Engine) SyncNow(ctx context.Context) (*Report, error) {
	if !e.Enabled() {
		return nil, syncError(ErrSyncDisabled)
	}

	e.runMu.Lock()
	defer e.runMu.Unlock()
	e.setRunning(true)

	report := newReport()
	pushed, err := e.Push(ctx)
	if err == nil {
		report.Pushed = pushed
		var pulled *Report
		pulled, err = e.Pull(ctx)
		if pulled != nil {
			report.Pulled = pulled.Pulled
			report.Conflicts = pulled.Conflicts
			report.Skipped = pulled.Skipped
		}
	} else if pushed != nil {
		report.Pushed = pushed
	}
	report.FinishedAt = time.Now().UTC()

	e.finish(report, err)
	if err != nil {
		return report, err
	}

	e.logger.Info("sync complete",
		zap.Any("pushed", report.Pushed),
		zap.Any("pulled", report.Pulled),
		zap.Any("conflicts", report.Conflicts),
		zap.Duration("took", report.FinishedAt.Sub(report.StartedAt)))
	return report, nil
}

// Run syncs immediately and then on every tick until ctx is cancelled.
// Failed runs are logged and retried on the next tick.
func (e *Engine) Run(ctx context.Context, interval time.Duration) error {
	if !e.Enabled() {
		e.logger.Info("cloud sync disabled, background sync not started")
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.logger.Info("background sync started", zap.Duration("interval", interval))
	for {
		if _, err := e.SyncNow(ctx); err != nil && ctx.Err() == nil {
			e.logger.Warn("background sync failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			e.logger.Info("background sync stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Status returns a snapshot of the engine state
func (e *Engine) Status() Status {
	e.statusMu.RLock()
	defer e.statusMu.RUnlock()
	return e.status
}

func (e *Engine) setRunning(running bool) {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	e.status.Running = running
}

func (e *Engine) finish(report *Report, err error) {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()

	finished := report.FinishedAt
	e.status.Running = false
	e.status.LastRunAt = &finished
	e.status.LastReport = report
	e.status.LastError = ""
	if err != nil {
		e.status.LastError = err.Error()
	}
}

// syncError maps failures onto the sync error taxonomy
func syncError(err error) error {
	var existing *apperr.SyncError
	if errors.As(err, &existing) {
		return err
	}

	kind := apperr.SyncInternal
	switch {
	case errors.Is(err, ErrSyncDisabled):
		kind = apperr.SyncDisabled
	case errors.Is(err, cloud.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		kind = apperr.NetworkUnavailable
	case errors.Is(err, cloud.ErrRecordNotFound):
		kind = apperr.RecordNotFound
	}
	return apperr.NewSyncError(kind, err)
}
