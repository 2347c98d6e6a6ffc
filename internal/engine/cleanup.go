package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nikbrunner/bmtools/internal/culler"
	"github.com/nikbrunner/bmtools/internal/model"
)

type RemoveDuplicatesRequest struct {
	ProfilePath string
}

type RemoveResult struct {
	Profile    string        `json:"profile"`
	Removed    int           `json:"removed"`
	Items      []NodeSummary `json:"items"`
	Changed    bool          `json:"changed"`
	BackupPath string        `json:"backup_path,omitempty"`
}

// RemoveDuplicates keeps the first bookmark of every url, in tree order,
// and removes the rest.
func (e *Engine) RemoveDuplicates(ctx context.Context, req RemoveDuplicatesRequest) (*RemoveResult, error) {
	var res RemoveResult
	profile, backup, err := e.mutate(ctx, req.ProfilePath, "dedupe", func(store *model.Store) (change, error) {
		removed := store.RemoveDuplicates()
		res.Removed = len(removed)
		res.Items = summarize(removed)
		res.Changed = len(removed) > 0
		return change{changed: res.Changed, summary: fmt.Sprintf("removed %d duplicate bookmarks", len(removed))}, nil
	})
	if err != nil {
		return nil, err
	}
	res.Profile, res.BackupPath = profile, backup
	return &res, nil
}

type RemoveURLsRequest struct {
	ProfilePath string
	URLs        []string
}

// RemoveURLs removes every bookmark whose url is one of URLs.
func (e *Engine) RemoveURLs(ctx context.Context, req RemoveURLsRequest) (*RemoveResult, error) {
	if len(req.URLs) == 0 {
		return nil, fmt.Errorf("%w: no urls given", model.ErrInvalidArgument)
	}
	var res RemoveResult
	profile, backup, err := e.mutate(ctx, req.ProfilePath, "remove", func(store *model.Store) (change, error) {
		removed := store.RemoveURLs(req.URLs)
		res.Removed = len(removed)
		res.Items = summarize(removed)
		res.Changed = len(removed) > 0
		return change{changed: res.Changed, summary: fmt.Sprintf("removed %d bookmarks by url", len(removed))}, nil
	})
	if err != nil {
		return nil, err
	}
	res.Profile, res.BackupPath = profile, backup
	return &res, nil
}

type ScanLinksRequest struct {
	ProfilePath string
	// Limit defaults to the configured scan limit.
	Limit int
	// AutoRemove deletes the dead bookmarks after the scan.
	AutoRemove bool
}

// DeadLink is one bookmark whose url failed the probe.
type DeadLink struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	URL    string `json:"url"`
	Folder string `json:"folder"`
	// Status is 0 for network failures.
	Status int    `json:"status"`
	Reason string `json:"reason"`
}

type ScanLinksResult struct {
	Profile string     `json:"profile"`
	Checked int        `json:"checked"`
	Skipped int        `json:"skipped"`
	Dead    []DeadLink `json:"dead"`
	Log     []string   `json:"log"`
	// Removed is set when AutoRemove deleted bookmarks.
	Removed    int    `json:"removed"`
	BackupPath string `json:"backup_path,omitempty"`
}

// ScanLinks checks the web bookmarks for dead links. With AutoRemove the
// dead bookmarks are removed from the tree that was scanned and the file
// is written through the guard.
func (e *Engine) ScanLinks(ctx context.Context, req ScanLinksRequest) (*ScanLinksResult, error) {
	ps, snap, err := e.open(req.ProfilePath)
	if err != nil {
		return nil, err
	}
	log := e.log.With(zap.String("op", "scan"), zap.String("profile", ps.Path()))

	limit := req.Limit
	if limit <= 0 {
		limit = e.cfg.Scan.Limit
	}
	report, err := culler.Scan(ctx, snap.Store, culler.Options{
		Limit:       limit,
		BatchSize:   e.cfg.Scan.BatchSize,
		Timeout:     e.cfg.Scan.Timeout,
		SkipDomains: e.cfg.Scan.SkipDomains,
		Client:      e.client,
		Logger:      log,
	})
	if err != nil {
		return nil, err
	}

	res := &ScanLinksResult{
		Profile: ps.Path(),
		Checked: report.Checked,
		Skipped: report.Skipped,
		Dead:    make([]DeadLink, 0, len(report.Dead)),
		Log:     append([]string{}, report.Log...),
	}
	for _, d := range report.Dead {
		res.Dead = append(res.Dead, DeadLink{
			ID:     d.ID,
			Name:   d.Name,
			URL:    d.URL,
			Folder: d.Folder,
			Status: d.StatusCode,
			Reason: d.Reason,
		})
	}
	log.Info("links scanned",
		zap.Int("checked", res.Checked),
		zap.Int("skipped", res.Skipped),
		zap.Int("dead", len(res.Dead)))

	if !req.AutoRemove || len(res.Dead) == 0 {
		return res, nil
	}

	removed := snap.Store.RemoveURLs(report.DeadURLs())
	if len(removed) == 0 {
		return res, nil
	}
	summary := fmt.Sprintf("removed %d dead bookmarks", len(removed))
	backup, err := ps.Persist(ctx, snap, "scan", summary)
	if err != nil {
		log.Error("persist failed", zap.Error(err))
		return nil, err
	}
	log.Info(summary, zap.String("backup", backup))
	res.Removed = len(removed)
	res.BackupPath = backup
	return res, nil
}
