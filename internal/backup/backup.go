// Package backup saves and restores item scores as a JSON snapshot.
//
// A snapshot records every item's name, source list, tags and score. Restore
// matches items by exact name and writes the restored scores back to the
// list files, so a backup taken before an experiment can undo its feedback.
package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/nvandessel/stuckpick/internal/models"
	"github.com/nvandessel/stuckpick/internal/pathutil"
)

// FormatVersion is the current snapshot version.
const FormatVersion = 1

// MaxRestoreFileSize bounds how much of a backup file Restore reads.
const MaxRestoreFileSize = 10 * 1024 * 1024

// filePrefix starts every generated backup file name.
const filePrefix = "stuckpick-backup-"

// Snapshot is the JSON structure of a backup file.
type Snapshot struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	DataDir   string    `json:"data_dir,omitempty"`
	Items     []Entry   `json:"items"`
}

// Entry is one item in a snapshot.
type Entry struct {
	Name  string   `json:"name"`
	File  string   `json:"file,omitempty"`
	Tags  []string `json:"tags"`
	Score float64  `json:"score"`
}

// Scorer is what Backup reads from and Restore writes to.
type Scorer interface {
	Snapshot() []models.Item
	SetScores(ctx context.Context, scores map[string]float64) (applied int, missing []string, err error)
}

// DefaultBackupDir returns ~/.stuckpick/backups.
func DefaultBackupDir() (string, error) {
	state, err := pathutil.UserStateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(state, "backups"), nil
}

// GenerateBackupPath creates a timestamped backup filename in the given directory.
func GenerateBackupPath(dir string) string {
	ts := time.Now().Format("20060102-150405")
	return filepath.Join(dir, filePrefix+ts+".json")
}

// checkPath rejects paths outside allowedDirs. No dirs means no check.
func checkPath(path string, allowedDirs []string) error {
	if len(allowedDirs) == 0 {
		return nil
	}
	if err := pathutil.ValidatePath(path, allowedDirs); err != nil {
		return fmt.Errorf("backup path rejected: %w", err)
	}
	return nil
}

// Backup writes every item's score from src to outputPath with mode 0600.
func Backup(ctx context.Context, src Scorer, dataDir, outputPath string, allowedDirs ...string) (*Snapshot, error) {
	if err := checkPath(outputPath, allowedDirs); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items := src.Snapshot()
	snap := &Snapshot{
		Version:   FormatVersion,
		CreatedAt: time.Now().UTC(),
		DataDir:   dataDir,
		Items:     make([]Entry, len(items)),
	}
	for i, it := range items {
		snap.Items[i] = Entry{Name: it.Name, File: it.Source.FileID, Tags: it.Tags, Score: it.Score}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}
	f, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create backup file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}
	return snap, nil
}

// RestoreResult contains statistics about the restore operation.
type RestoreResult struct {
	Restored int      `json:"restored"`
	Missing  []string `json:"missing,omitempty"`
}

// Read decodes a snapshot file without applying it.
func Read(inputPath string, allowedDirs ...string) (*Snapshot, error) {
	if err := checkPath(inputPath, allowedDirs); err != nil {
		return nil, err
	}

	f, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open backup file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxRestoreFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read backup file: %w", err)
	}
	if len(data) > MaxRestoreFileSize {
		return nil, fmt.Errorf("backup file exceeds %d bytes", MaxRestoreFileSize)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}
	if snap.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported backup version: %d", snap.Version)
	}
	return &snap, nil
}

// Restore sets the score of every item in the backup that dst still has,
// matched by exact name. When a name appears more than once the last entry
// wins. Items missing from dst are listed in the result.
func Restore(ctx context.Context, dst Scorer, inputPath string, allowedDirs ...string) (*RestoreResult, error) {
	snap, err := Read(inputPath, allowedDirs...)
	if err != nil {
		return nil, err
	}

	scores := make(map[string]float64, len(snap.Items))
	for _, e := range snap.Items {
		scores[e.Name] = e.Score
	}

	applied, missing, err := dst.SetScores(ctx, scores)
	res := &RestoreResult{Restored: applied, Missing: missing}
	if err != nil {
		return res, fmt.Errorf("failed to save restored scores: %w", err)
	}
	return res, nil
}
