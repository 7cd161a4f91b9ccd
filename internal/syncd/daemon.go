package syncd

import (
	"context"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"

	"github.com/example/braid/internal/index"
	"github.com/example/braid/internal/journal"
)

// Daemon serves live sync for one data directory without taking the
// writer lock: it replays the journal into a replica, then tails the
// file for appends made by writer processes and broadcasts each one.
type Daemon struct {
	logger *slog.Logger
	hub    *Hub
	server *Server
	tailer *Tailer

	mu      sync.Mutex
	replica *index.Snapshot
}

// NewDaemon builds a daemon for the journal in dir.
func NewDaemon(dir string, retention int, logger *slog.Logger) (*Daemon, error) {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Daemon{logger: logger, replica: index.New()}

	path := filepath.Join(dir, journal.LogFileName)
	recs, offset, err := journal.ReadFrom(path, 0)
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		d.replica.Apply(rec)
	}

	d.hub = NewHub(logger, retention, d.snapshot)
	d.server = NewServer(d.hub, logger)
	tailer, err := NewTailer(path, offset, d.applyRecord, logger)
	if err != nil {
		return nil, err
	}
	d.tailer = tailer
	return d, nil
}

// Handler returns the websocket sync endpoint.
func (d *Daemon) Handler() http.Handler {
	return d.server.Handler()
}

// Hub exposes the coordinator, mainly for embedding and tests.
func (d *Daemon) Hub() *Hub { return d.hub }

// Version returns the replica's current version.
func (d *Daemon) Version() int64 {
	return d.snapshot().Version
}

// Run tails the journal until the context is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	d.logger.Info("sync daemon running", "version", d.Version())
	return d.tailer.Run(ctx)
}

func (d *Daemon) snapshot() *index.Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.replica
}

// applyRecord folds one tailed record into the replica via
// copy-then-swap, then broadcasts its delta.
func (d *Daemon) applyRecord(rec *journal.Record) {
	d.mu.Lock()
	if rec.Version != 0 && rec.Version <= d.replica.Version {
		d.mu.Unlock()
		return
	}
	next := d.replica.Clone()
	next.Apply(rec)
	d.replica = next
	d.mu.Unlock()

	d.hub.Publish(DeltaFor(rec))
}
