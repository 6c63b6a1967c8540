package storage

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveAndRead(t *testing.T) {
	store, err := NewLocal(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewLocal returned error: %v", err)
	}

	data := []byte("%PDF-1.7 fake")
	location, err := store.Save(data, "TUANA_INVOICE_1.pdf")
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if filepath.Dir(location) != store.Dir() {
		t.Fatalf("artifact saved outside managed dir: %s", location)
	}

	got, err := store.Read(location)
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("read bytes differ: got %q", got)
	}
}

func TestSaveRefusesOverwrite(t *testing.T) {
	store, err := NewLocal(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewLocal returned error: %v", err)
	}

	if _, err := store.Save([]byte("one"), "same.pdf"); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}
	if _, err := store.Save([]byte("two"), "same.pdf"); err == nil {
		t.Fatal("expected error when saving over an existing file")
	}
}

func TestSaveSanitizesFilename(t *testing.T) {
	store, err := NewLocal(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewLocal returned error: %v", err)
	}

	location, err := store.Save([]byte("x"), "../escape:attempt?.pdf")
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if filepath.Dir(location) != store.Dir() {
		t.Fatalf("sanitized path escaped managed dir: %s", location)
	}
	if strings.ContainsAny(filepath.Base(location), ":?") {
		t.Fatalf("unsafe characters survived: %s", location)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	store, err := NewLocal(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewLocal returned error: %v", err)
	}

	location, err := store.Save([]byte("x"), "gone.pdf")
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if err := store.Delete(location); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if err := store.Delete(location); err != nil {
		t.Fatalf("second Delete returned error: %v", err)
	}

	if _, err := store.Read(location); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist after delete, got %v", err)
	}
}

func TestNewLocalFallsBackToTempDir(t *testing.T) {
	// 通常ファイルを親に指定すると MkdirAll が失敗する
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o640); err != nil {
		t.Fatalf("failed to create blocker file: %v", err)
	}

	store, err := NewLocal(filepath.Join(blocker, "out"), nil)
	if err != nil {
		t.Fatalf("NewLocal returned error: %v", err)
	}
	if store.Dir() == filepath.Join(blocker, "out") {
		t.Fatal("expected fallback directory, got the unusable one")
	}
	if _, err := os.Stat(store.Dir()); err != nil {
		t.Fatalf("fallback directory not usable: %v", err)
	}
}
