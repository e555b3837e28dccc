package fileutil

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestSearchPathsOptional(t *testing.T) {
	tmpDir := t.TempDir()

	// Create test file
	file1 := filepath.Join(tmpDir, "file1.txt")
	if err := os.WriteFile(file1, []byte("test"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	// A directory with the config name must not be picked
	dir := filepath.Join(tmpDir, "deplog.yaml")
	if err := os.Mkdir(dir, 0755); err != nil {
		t.Fatalf("Failed to create test directory: %v", err)
	}

	tests := []struct {
		name  string
		paths []string
		want  string
	}{
		{
			"finds existing file",
			[]string{file1},
			file1,
		},
		{
			"skips missing and directories",
			[]string{filepath.Join(tmpDir, "nonexistent.txt"), dir, file1},
			file1,
		},
		{
			"returns empty string when not found",
			[]string{filepath.Join(tmpDir, "nonexistent.txt")},
			"",
		},
		{
			"handles empty path list",
			[]string{},
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SearchPathsOptional(tt.paths)
			if got != tt.want {
				t.Errorf("SearchPathsOptional() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultConfigPaths(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))

	paths := DefaultConfigPaths("deplog.yaml")

	want := []string{
		"deplog.yaml",
		filepath.Join("config", "deplog.yaml"),
		filepath.Join(home, ".config", "deplog", "deplog.yaml"),
		"/etc/deplog/deplog.yaml",
	}
	if runtime.GOOS == "darwin" {
		want[2] = filepath.Join(home, "Library", "Application Support", "deplog", "deplog.yaml")
	}
	if len(paths) != len(want) {
		t.Fatalf("DefaultConfigPaths() = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("DefaultConfigPaths()[%d] = %v, want %v", i, paths[i], want[i])
		}
	}
}

func TestDefaultConfigPaths_NoUserConfigDir(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "plan9" {
		t.Skip("user config dir does not come from HOME")
	}
	t.Setenv("HOME", "")
	t.Setenv("XDG_CONFIG_HOME", "")

	paths := DefaultConfigPaths("deplog.yaml")
	if len(paths) != 3 {
		t.Fatalf("Expected the user path to be left out, got %v", paths)
	}
	if !strings.HasPrefix(paths[2], "/etc/deplog") {
		t.Errorf("Expected system path last, got %v", paths[2])
	}
}

func TestFileExists(t *testing.T) {
	tmpDir := t.TempDir()

	testFile := filepath.Join(tmpDir, "test.txt")
	if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"existing file", testFile, true},
		{"directory", tmpDir, false},
		{"nonexistent", filepath.Join(tmpDir, "nonexistent.txt"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FileExists(tt.path); got != tt.want {
				t.Errorf("FileExists(%v) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}
