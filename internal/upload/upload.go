// Package upload sends Alpha Progression exports from a local directory to a
// remote server, remembering what was already sent.
package upload

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/claude/movementmemory/internal/ingest/alpha"
)

// Stats tracks upload progress.
type Stats struct {
	FilesTotal    int
	FilesUploaded int
	FilesSkipped  int
	FilesErrored  int

	SessionsSent int
	SetsInserted int64
}

// Uploader walks a directory of .csv exports and uploads new or changed ones.
type Uploader struct {
	client *Client
	state  *StateDB
	dir    string
	dryRun bool
	log    *slog.Logger
	stats  Stats
}

// New creates a new Uploader. In dry-run mode files are parsed and counted
// but never sent or marked.
func New(client *Client, state *StateDB, dir string, dryRun bool, log *slog.Logger) *Uploader {
	return &Uploader{
		client: client,
		state:  state,
		dir:    dir,
		dryRun: dryRun,
		log:    log,
	}
}

// Run uploads every pending export, oldest path first. A file that fails is
// logged and counted; the rest still upload.
func (u *Uploader) Run(ctx context.Context) (*Stats, error) {
	files, err := findExports(u.dir)
	if err != nil {
		return &u.stats, err
	}
	u.stats.FilesTotal = len(files)

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return &u.stats, err
		}
		if err := u.uploadFile(ctx, path); err != nil {
			u.stats.FilesErrored++
			u.log.Error("upload failed", "file", path, "error", err)
		}
	}
	return &u.stats, nil
}

func (u *Uploader) uploadFile(ctx context.Context, path string) error {
	rel, err := filepath.Rel(u.dir, path)
	if err != nil {
		rel = path
	}
	hash, err := HashFile(path)
	if err != nil {
		return fmt.Errorf("hashing: %w", err)
	}
	done, err := u.state.IsUploaded(ctx, rel, hash)
	if err != nil {
		return fmt.Errorf("checking state: %w", err)
	}
	if done {
		u.stats.FilesSkipped++
		u.log.Debug("already uploaded", "file", rel)
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	sessions, err := alpha.Parse(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parsing: %w", err)
	}
	if u.dryRun {
		u.stats.SessionsSent += len(sessions)
		u.log.Info("dry run", "file", rel, "sessions", len(sessions))
		return nil
	}

	result, err := u.client.SendAlphaExport(ctx, data)
	if err != nil {
		return err
	}
	u.stats.FilesUploaded++
	u.stats.SessionsSent += result.SessionsReceived
	u.stats.SetsInserted += result.SetsInserted
	u.log.Info("uploaded", "file", rel, "sessions", result.SessionsReceived, "sets", result.SetsInserted)

	return u.state.MarkUploaded(ctx, rel, hash, result.SetsInserted)
}

// findExports lists .csv files under dir in path order.
func findExports(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".csv") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}
