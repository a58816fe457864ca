package local

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pdfchat-backend/internal/shared/storage/object"
)

func TestSaveOpenDelete(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)
	ctx := context.Background()

	n, err := store.Save(ctx, "report.pdf", "application/pdf", strings.NewReader("%PDF-1.4 body"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if n != int64(len("%PDF-1.4 body")) {
		t.Fatalf("unexpected size %d", n)
	}
	if _, err := os.Stat(filepath.Join(dir, "report.pdf")); err != nil {
		t.Fatalf("expected file on disk: %v", err)
	}

	rc, err := store.Open(ctx, "report.pdf")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "%PDF-1.4 body" {
		t.Fatalf("unexpected content %q", data)
	}

	if err := store.Delete(ctx, "report.pdf"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Open(ctx, "report.pdf"); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, "report.pdf"); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestSaveNeverOverwrites(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	if _, err := store.Save(ctx, "report.pdf", "application/pdf", strings.NewReader("first")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := store.Save(ctx, "report.pdf", "application/pdf", strings.NewReader("second")); !errors.Is(err, object.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	rc, err := store.Open(ctx, "report.pdf")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "first" {
		t.Fatalf("expected original content to survive, got %q", data)
	}
}

func TestRejectsEscapingKeys(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	for _, key := range []string{"../etc/passwd", "/abs/path.pdf", "", "."} {
		if _, err := store.Save(ctx, key, "", strings.NewReader("x")); !errors.Is(err, object.ErrInvalidKey) {
			t.Fatalf("Save(%q): expected ErrInvalidKey, got %v", key, err)
		}
		if _, err := store.Open(ctx, key); !errors.Is(err, object.ErrInvalidKey) {
			t.Fatalf("Open(%q): expected ErrInvalidKey, got %v", key, err)
		}
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk full") }

func TestSaveRemovesPartialFile(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)

	if _, err := store.Save(context.Background(), "broken.pdf", "", failingReader{}); err == nil {
		t.Fatalf("expected write error")
	}
	if _, err := os.Stat(filepath.Join(dir, "broken.pdf")); !os.IsNotExist(err) {
		t.Fatalf("expected partial file removed, stat err=%v", err)
	}
}
