package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"spendlens/domain/core"
	"spendlens/internal"
)

// BackupManager copies output files aside before the pipeline mutates them.
// Backup names carry a sortable timestamp prefix: 20060102_150405_<name>.
type BackupManager struct {
	dir    string
	logger *internal.Logger
	now    func() time.Time
}

// BackupInfo describes one file in the backup directory
type BackupInfo struct {
	Name      string    `json:"name"`
	Original  string    `json:"original"`
	CreatedAt time.Time `json:"created_at"`
	SizeBytes int64     `json:"size_bytes"`
}

// NewBackupManager creates a manager writing into dir
func NewBackupManager(dir string) *BackupManager {
	return &BackupManager{
		dir:    dir,
		logger: internal.NewDefaultLogger().Component("Backup"),
		now:    time.Now,
	}
}

// Backup copies every existing source file into the backup directory.
// Missing sources are skipped silently; copy failures become warnings so
// a half-finished backup never blocks the run.
func (m *BackupManager) Backup(paths []string) (created []string, warnings []string) {
	stamp := core.NewTimestamp(m.now()).FileStamp()
	for _, src := range paths {
		if _, err := os.Stat(src); err != nil {
			continue
		}
		if err := os.MkdirAll(m.dir, 0o755); err != nil {
			warnings = append(warnings, fmt.Sprintf("backup directory %s: %v", m.dir, err))
			return created, warnings
		}
		dest := filepath.Join(m.dir, stamp+"_"+filepath.Base(src))
		if err := copyFile(src, dest); err != nil {
			warnings = append(warnings, fmt.Sprintf("backup %s: %v", src, err))
			continue
		}
		created = append(created, dest)
	}
	if len(created) > 0 {
		m.logger.Info("backed up %d file(s) to %s", len(created), m.dir)
	}
	return created, warnings
}

// List returns backups newest first
func (m *BackupManager) List() ([]BackupInfo, error) {
	entries, err := os.ReadDir(m.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backup directory %s: %w", m.dir, err)
	}

	var infos []BackupInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info := BackupInfo{Name: e.Name(), Original: originalName(e.Name())}
		if fi, err := e.Info(); err == nil {
			info.SizeBytes = fi.Size()
			info.CreatedAt = fi.ModTime()
		}
		if ts, ok := stampOf(e.Name()); ok {
			info.CreatedAt = ts
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool {
		if !infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].CreatedAt.After(infos[j].CreatedAt)
		}
		return infos[i].Name > infos[j].Name
	})
	return infos, nil
}

// Restore copies a backup into destDir under its original name and
// returns the restored path.
func (m *BackupManager) Restore(name string, destDir string) (string, error) {
	src := filepath.Join(m.dir, filepath.Base(name))
	if _, err := os.Stat(src); err != nil {
		return "", fmt.Errorf("backup %s not found: %w", name, err)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("restore directory %s: %w", destDir, err)
	}
	dest := filepath.Join(destDir, originalName(filepath.Base(name)))
	if err := copyFile(src, dest); err != nil {
		return "", fmt.Errorf("restore %s: %w", name, err)
	}
	m.logger.Info("restored %s to %s", name, dest)
	return dest, nil
}

// originalName strips the timestamp prefix when present
func originalName(name string) string {
	if _, ok := stampOf(name); ok {
		return name[len(core.FileStampLayout)+1:]
	}
	return name
}

func stampOf(name string) (time.Time, bool) {
	if len(name) <= len(core.FileStampLayout)+1 {
		return time.Time{}, false
	}
	if name[len(core.FileStampLayout)] != '_' {
		return time.Time{}, false
	}
	ts, err := time.Parse(core.FileStampLayout, name[:len(core.FileStampLayout)])
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// removeOlderThan deletes regular files in dir modified before cutoff.
// Subdirectories are left alone.
func removeOlderThan(dir string, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	removed := 0
	var firstErr error
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		if !fi.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		removed++
	}
	return removed, firstErr
}

// uniqueDirs drops duplicates and blanks while preserving order
func uniqueDirs(dirs []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, d := range dirs {
		d = strings.TrimSpace(d)
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}
