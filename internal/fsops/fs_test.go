package fsops

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestAferoFS_IsDir(t *testing.T) {
	fs := NewMemFS()
	if err := fs.MkdirAll("/srv/app", 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := fs.WriteFile("/srv/file.txt", []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	tests := []struct {
		name string
		path string
		want bool
	}{
		{name: "directory", path: "/srv/app", want: true},
		{name: "regular file", path: "/srv/file.txt", want: false},
		{name: "missing", path: "/srv/missing", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fs.IsDir(tt.path)
			if err != nil {
				t.Fatalf("IsDir(%q) error = %v", tt.path, err)
			}
			if got != tt.want {
				t.Errorf("IsDir(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestAferoFS_CheckReadable(t *testing.T) {
	fs := NewMemFS()
	if err := fs.WriteFile("/keys/deploy", []byte("key"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := fs.MkdirAll("/keys/dir", 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	if err := fs.CheckReadable("/keys/deploy"); err != nil {
		t.Errorf("CheckReadable(file) error = %v, want nil", err)
	}
	if err := fs.CheckReadable("/keys/missing"); !os.IsNotExist(err) {
		t.Errorf("CheckReadable(missing) error = %v, want not-exist", err)
	}
	if err := fs.CheckReadable("/keys/dir"); err == nil {
		t.Error("CheckReadable(dir) expected error, got nil")
	}
}

func TestRealFS_CheckReadable_Unreadable(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("file permissions are not enforced")
	}

	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, []byte("key"), 0000); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if err := NewRealFS().CheckReadable(path); err == nil {
		t.Error("CheckReadable() expected permission error, got nil")
	}
}

func TestAferoFS_IsEmptyDir(t *testing.T) {
	fs := NewMemFS()
	_ = fs.MkdirAll("/empty", 0755)
	_ = fs.WriteFile("/full/README.md", []byte("hi"), 0644)

	empty, err := fs.IsEmptyDir("/empty")
	if err != nil || !empty {
		t.Errorf("IsEmptyDir(/empty) = %v, %v; want true, nil", empty, err)
	}
	empty, err = fs.IsEmptyDir("/full")
	if err != nil || empty {
		t.Errorf("IsEmptyDir(/full) = %v, %v; want false, nil", empty, err)
	}
}

func TestAferoFS_WriteFileCreatesParents(t *testing.T) {
	fs := NewMemFS()
	if err := fs.WriteFile("/a/b/c.txt", []byte("data"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	data, err := fs.ReadFile("/a/b/c.txt")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "data" {
		t.Errorf("ReadFile() = %q, want %q", data, "data")
	}

	exists, err := fs.Exists("/a/b")
	if err != nil || !exists {
		t.Errorf("Exists(/a/b) = %v, %v; want true, nil", exists, err)
	}
}

func TestExpandHome(t *testing.T) {
	home := filepath.FromSlash("/home/deploy")

	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "tilde only", path: "~", want: home},
		{name: "tilde prefix", path: "~/.ssh/key", want: filepath.Join(home, ".ssh/key")},
		{name: "absolute", path: "/etc/key", want: "/etc/key"},
		{name: "tilde user not expanded", path: "~other/key", want: "~other/key"},
		{name: "relative", path: "repo", want: "repo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpandHome(tt.path, home); got != tt.want {
				t.Errorf("ExpandHome(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	if _, err := Normalize(""); err == nil {
		t.Error("Normalize(\"\") expected error, got nil")
	}

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd() error = %v", err)
	}

	got, err := Normalize("a/../b/./c")
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if want := filepath.Join(cwd, "b", "c"); got != want {
		t.Errorf("Normalize() = %q, want %q", got, want)
	}
}
