package storage

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/starford/quikpix/internal/apperr"
)

func tempLibrary(t *testing.T) (string, *FS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return dir, fs
}

func writeFile(t *testing.T, root, rel string, data []byte) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestList_FiltersImages(t *testing.T) {
	root, s := tempLibrary(t)
	writeFile(t, root, "DCIM/Camera/a.jpg", []byte("a"))
	writeFile(t, root, "DCIM/Camera/b.JPEG", []byte("b"))
	writeFile(t, root, "Pictures/Screenshots/c.png", []byte("c"))
	writeFile(t, root, "Pictures/notes.txt", []byte("not an image"))
	writeFile(t, root, "Movies/clip.mp4", []byte("video"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var paths []string
	for _, it := range items {
		paths = append(paths, it.Path)
	}
	sort.Strings(paths)
	want := []string{"DCIM/Camera/a.jpg", "DCIM/Camera/b.JPEG", "Pictures/Screenshots/c.png"}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestList_SkipsHiddenDirs(t *testing.T) {
	root, s := tempLibrary(t)
	writeFile(t, root, ".thumbnails/x.jpg", []byte("x"))
	writeFile(t, root, "visible/y.jpg", []byte("y"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 || items[0].Path != "visible/y.jpg" {
		t.Errorf("items = %+v, want only visible/y.jpg", items)
	}
}

func TestList_Subdir(t *testing.T) {
	root, s := tempLibrary(t)
	writeFile(t, root, "a/one.png", []byte("1"))
	writeFile(t, root, "b/two.png", []byte("2"))

	items, err := s.List("b")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 || items[0].Path != "b/two.png" {
		t.Errorf("items = %+v", items)
	}
}

func TestStat_FingerprintTracksChanges(t *testing.T) {
	root, s := tempLibrary(t)
	writeFile(t, root, "p.png", []byte("first"))
	before, err := s.Stat("p.png")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}

	later := time.Now().Add(time.Hour)
	writeFile(t, root, "p.png", []byte("second revision"))
	if err := os.Chtimes(filepath.Join(root, "p.png"), later, later); err != nil {
		t.Fatal(err)
	}
	after, err := s.Stat("p.png")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if before.Fingerprint == after.Fingerprint {
		t.Error("fingerprint should change after rewrite")
	}
	if after.Size != int64(len("second revision")) {
		t.Errorf("size = %d", after.Size)
	}
}

func TestOpen(t *testing.T) {
	root, s := tempLibrary(t)
	writeFile(t, root, "img.jpg", []byte("pixels"))
	f, err := s.Open("img.jpg")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	buf := make([]byte, 6)
	if _, err := f.Read(buf); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(buf) != "pixels" {
		t.Errorf("content = %q", buf)
	}
}

func TestOpen_Missing(t *testing.T) {
	_, s := tempLibrary(t)
	_, err := s.Open("nope.jpg")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want ErrNotExist", err)
	}
}

func TestTraversalBlocked(t *testing.T) {
	_, s := tempLibrary(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.jpg",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Open(p); err == nil {
			t.Errorf("expected error opening %q", p)
		}
		if _, err := s.Stat(p); err == nil {
			t.Errorf("expected error stating %q", p)
		}
	}
}

func TestIsImage(t *testing.T) {
	for name, want := range map[string]bool{
		"a.jpg": true, "b.JPG": true, "c.jpeg": true, "d.png": true,
		"e.gif": false, "f.webp": false, "noext": false,
	} {
		if got := IsImage(name); got != want {
			t.Errorf("IsImage(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS("/tmp/quikpix-does-not-exist-" + t.Name())
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "quikpix-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}

func TestWrite_CreatesFile(t *testing.T) {
	root, s := tempLibrary(t)
	if err := s.Write("Imports/new.png", []byte("png")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(root, "Imports", "new.png"))
	if err != nil || string(data) != "png" {
		t.Fatalf("content = %q, %v", data, err)
	}
	entries, _ := os.ReadDir(filepath.Join(root, "Imports"))
	if len(entries) != 1 {
		t.Errorf("temp file left behind: %v", entries)
	}
}

func TestWrite_RefusesOverwrite(t *testing.T) {
	root, s := tempLibrary(t)
	writeFile(t, root, "a/keep.jpg", []byte("original"))
	err := s.Write("a/keep.jpg", []byte("replacement"))
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
	data, _ := os.ReadFile(filepath.Join(root, "a", "keep.jpg"))
	if string(data) != "original" {
		t.Errorf("file overwritten: %q", data)
	}
}

func TestWrite_TraversalBlocked(t *testing.T) {
	_, s := tempLibrary(t)
	if err := s.Write("../escape.jpg", []byte("x")); err == nil {
		t.Error("expected traversal error")
	}
	if err := s.Write("", []byte("x")); err == nil {
		t.Error("expected error for empty path")
	}
}
