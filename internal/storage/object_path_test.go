package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Pikachu", "pikachu"},
		{"  Mr. Mime ", "mrmime"},
		{"fusion_42-final", "fusion_42-final"},
		{"../../etc/passwd", "etcpasswd"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := SanitizeToken(tt.input); got != tt.want {
			t.Fatalf("%q: expected %q, got %q", tt.input, tt.want, got)
		}
	}
}

func TestBuildObjectPath(t *testing.T) {
	got := buildObjectPath("Fusions", "pikachu charizard", "PNG")
	if !strings.HasPrefix(got, "fusions/") {
		t.Fatalf("expected category prefix, got %q", got)
	}
	if !strings.HasSuffix(got, "/pikachu-charizard.png") {
		t.Fatalf("expected sanitized file name, got %q", got)
	}
}

func TestLocalStorageSave(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}

	rel, err := store.Save(context.Background(), []byte("fake-png"), SaveOptions{
		Category:  CategoryFusions,
		Extension: "png",
		BaseName:  "test-fusion",
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	if string(data) != "fake-png" {
		t.Fatalf("unexpected file content %q", data)
	}
}

func TestLocalStorageRejectsEmptyPayload(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	if _, err := store.Save(context.Background(), nil, SaveOptions{Category: CategoryFusions}); err == nil {
		t.Fatal("expected error for empty payload")
	}
}
