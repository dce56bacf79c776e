package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Picker asks the user for a file when an export or import is started
// without a path. Implementations return ErrCancelled when the user backs
// out.
type Picker interface {
	SavePath(ctx context.Context, suggested string) (string, error)
	OpenPath(ctx context.Context) (string, error)
}

// DirPicker is the non-interactive picker: exports go into Dir under the
// suggested name and imports read the newest backup in Dir.
type DirPicker struct {
	Dir string
}

func (p DirPicker) SavePath(ctx context.Context, suggested string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", ErrCancelled
	}
	if p.Dir == "" {
		return "", ErrCancelled
	}
	return filepath.Join(p.Dir, suggested), nil
}

func (p DirPicker) OpenPath(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", ErrCancelled
	}
	entries, err := os.ReadDir(p.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrCancelled
	}
	if err != nil {
		return "", err
	}
	var newest string
	var newestMod int64
	for _, e := range entries {
		if e.IsDir() || !isBackupName(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		mod := info.ModTime().UnixNano()
		if newest == "" || mod > newestMod || (mod == newestMod && e.Name() > filepath.Base(newest)) {
			newest = filepath.Join(p.Dir, e.Name())
			newestMod = mod
		}
	}
	if newest == "" {
		return "", ErrCancelled
	}
	return newest, nil
}

func isBackupName(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}
