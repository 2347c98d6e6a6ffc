package engine

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/nikbrunner/bmtools/internal/config"
	"github.com/nikbrunner/bmtools/internal/journal"
	"github.com/nikbrunner/bmtools/internal/model"
	"github.com/nikbrunner/bmtools/internal/storage"
)

// Journal records guarded writes and lists them back.
type Journal interface {
	storage.Recorder
	List(ctx context.Context, opts journal.ListOptions) ([]journal.Entry, error)
}

// Params holds the dependencies of an Engine.
type Params struct {
	Config *config.Config
	Logger *zap.Logger
	// Journal is optional.
	Journal Journal
	// HTTPClient is used by ScanLinks. Nil uses culler.NewClient.
	HTTPClient *http.Client
	// Now defaults to time.Now.
	Now func() time.Time
}

// Engine runs bookmark operations. Every call loads the bookmark file,
// applies one operation and, when the tree changed, persists it through the
// backup-then-write guard. No tree is kept between calls.
type Engine struct {
	cfg     *config.Config
	log     *zap.Logger
	journal Journal
	client  *http.Client
	now     func() time.Time
}

// New creates an Engine.
func New(params Params) *Engine {
	cfg := params.Config
	if cfg == nil {
		def := config.DefaultConfig()
		cfg = &def
	}
	log := params.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		cfg:     cfg,
		log:     log,
		journal: params.Journal,
		client:  params.HTTPClient,
		now:     now,
	}
}

// open resolves the profile path for this call and loads it.
func (e *Engine) open(profilePath string) (*storage.ProfileStorage, *storage.Snapshot, error) {
	path, err := storage.ResolveProfilePath(profilePath, e.cfg.ProfilePath)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve profile path: %w", err)
	}

	var recorder storage.Recorder
	if e.journal != nil {
		recorder = e.journal
	}
	ps := storage.NewProfileStorage(path, storage.Options{
		UpdateChecksum: e.cfg.UpdateChecksum,
		Journal:        recorder,
		Logger:         e.log,
		Now:            e.now,
	})

	snap, err := ps.Load()
	if err != nil {
		return nil, nil, err
	}
	snap.Store.Labels = e.cfg.Labels()
	return ps, snap, nil
}

// load is open for read-only operations.
func (e *Engine) load(profilePath string) (*storage.Snapshot, error) {
	_, snap, err := e.open(profilePath)
	return snap, err
}

// change is what a mutation reports back to mutate.
type change struct {
	// changed is false when the operation turned out to be a no-op.
	changed bool
	summary string
}

// mutate loads the profile, applies fn and persists the result when fn
// reports a change. On any error nothing is written. It returns the
// profile path and the backup path (empty when nothing was written).
func (e *Engine) mutate(ctx context.Context, profilePath, op string, fn func(store *model.Store) (change, error)) (profile, backup string, err error) {
	ps, snap, err := e.open(profilePath)
	if err != nil {
		return "", "", err
	}
	log := e.log.With(zap.String("op", op), zap.String("profile", ps.Path()))

	c, err := fn(snap.Store)
	if err != nil {
		log.Debug("operation refused", zap.Error(err))
		return ps.Path(), "", err
	}
	if !c.changed {
		log.Info("nothing to write", zap.String("summary", c.summary))
		return ps.Path(), "", nil
	}

	backup, err = ps.Persist(ctx, snap, op, c.summary)
	if err != nil {
		log.Error("persist failed", zap.Error(err))
		return ps.Path(), "", err
	}
	log.Info(c.summary, zap.String("backup", backup))
	return ps.Path(), backup, nil
}
