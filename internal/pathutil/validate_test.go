package pathutil

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestValidatePath(t *testing.T) {
	allowed := t.TempDir()
	other := t.TempDir()
	if err := os.MkdirAll(filepath.Join(allowed, "backups"), 0700); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		dirs    []string
		wantErr error
	}{
		{"file in dir", filepath.Join(allowed, "food.csv"), []string{allowed}, nil},
		{"dir itself", allowed, []string{allowed}, nil},
		{"missing subdirs", filepath.Join(allowed, "a", "b", "c.json"), []string{allowed}, nil},
		{"second dir matches", filepath.Join(other, "x.json"), []string{allowed, other}, nil},
		{"other dir", filepath.Join(other, "x.json"), []string{allowed}, ErrOutside},
		{"dot dot escape", filepath.Join(allowed, "backups", "..", "..", "x.json"), []string{filepath.Join(allowed, "backups")}, ErrOutside},
		{"prefix sibling", allowed + "-evil/x.json", []string{allowed}, ErrOutside},
		{"empty path", "", []string{allowed}, ErrBadPath},
		{"nul byte", filepath.Join(allowed, "a\x00b"), []string{allowed}, ErrBadPath},
		{"no dirs", filepath.Join(allowed, "x"), nil, ErrOutside},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.path, tt.dirs)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidatePath(%q) error = %v", tt.path, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidatePath(%q) error = %v, want %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePath_Symlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on Windows")
	}
	allowed := t.TempDir()
	outside := t.TempDir()

	escape := filepath.Join(allowed, "escape")
	if err := os.Symlink(outside, escape); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	if err := ValidatePath(filepath.Join(escape, "films.csv"), []string{allowed}); !errors.Is(err, ErrOutside) {
		t.Errorf("link leaving the dir: error = %v, want ErrOutside", err)
	}

	real := filepath.Join(allowed, "real")
	if err := os.Mkdir(real, 0700); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(allowed, "link")
	if err := os.Symlink(real, link); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	if err := ValidatePath(filepath.Join(link, "films.csv"), []string{allowed}); err != nil {
		t.Errorf("link staying inside: error = %v", err)
	}
}

func TestRedactPath(t *testing.T) {
	tests := map[string]string{
		"":                                  "",
		"/home/user/.stuckpick/config.yaml": ".../.stuckpick/config.yaml",
		"/a/b/c/d/e.txt":                    ".../d/e.txt",
		"/file.txt":                         "file.txt",
		"file.txt":                          "file.txt",
		"data/food.csv":                     ".../data/food.csv",
		"/home/user/data/":                  ".../user/data",
	}
	for in, want := range tests {
		if got := RedactPath(in); got != want {
			t.Errorf("RedactPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDefaultAllowedBackupDirs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dataDir := t.TempDir()

	dirs, err := DefaultAllowedBackupDirs(dataDir)
	if err != nil {
		t.Fatalf("DefaultAllowedBackupDirs() error = %v", err)
	}
	want := []string{
		filepath.Join(home, ".stuckpick", "backups"),
		filepath.Join(dataDir, "backups"),
	}
	if len(dirs) != len(want) || dirs[0] != want[0] || dirs[1] != want[1] {
		t.Errorf("DefaultAllowedBackupDirs() = %v, want %v", dirs, want)
	}

	dirs, err = DefaultAllowedBackupDirs("")
	if err != nil {
		t.Fatalf("DefaultAllowedBackupDirs(\"\") error = %v", err)
	}
	if len(dirs) != 1 {
		t.Errorf("DefaultAllowedBackupDirs(\"\") = %v, want only the per-user dir", dirs)
	}
}
