package library

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"zone/internal/pkg/errs"
)

const sample = `
items:
  - id: intro
    title: Opening Titles
    duration: 1m30s
    src: https://media.example/intro.mp4
  - id: anthem
    title: Anthem
    duration: 3m
    src: https://media.example/anthem.mp4
    tags: [banger]
`

func TestParse(t *testing.T) {
	lib, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if lib.Len() != 2 {
		t.Fatalf("got %d items want 2", lib.Len())
	}

	e, err := lib.Get("intro")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	m := e.Media()
	if m.Duration != (90*time.Second).Milliseconds() || m.Title != "Opening Titles" {
		t.Fatalf("unexpected media: %+v", m)
	}

	if _, err := lib.Get("missing"); !errs.Is(err, errs.ErrItemNotFound) {
		t.Fatalf("got %v want ErrItemNotFound", err)
	}

	for range 10 {
		b, err := lib.Banger()
		if err != nil {
			t.Fatalf("Banger() error = %v", err)
		}
		if b.ID != "anthem" {
			t.Fatalf("drew %q outside the banger pool", b.ID)
		}
	}
}

func TestParseRejects(t *testing.T) {
	tests := map[string]string{
		"missing id":   "items:\n  - title: x\n    duration: 1s\n    src: a\n",
		"duplicate id": "items:\n  - {id: a, title: x, duration: 1s, src: a}\n  - {id: a, title: y, duration: 1s, src: b}\n",
		"no duration":  "items:\n  - {id: a, title: x, src: a}\n",
		"not yaml":     "items: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(doc)); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestNoBangers(t *testing.T) {
	lib, err := Parse([]byte("items:\n  - {id: a, title: x, duration: 1s, src: a}\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if _, err := lib.Banger(); !errs.Is(err, errs.ErrLibraryUnavailable) {
		t.Fatalf("got %v want ErrLibraryUnavailable", err)
	}

	var missing *Library
	if _, err := missing.Get("a"); !errs.Is(err, errs.ErrLibraryUnavailable) {
		t.Fatalf("nil library: got %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatal(err)
	}
	lib, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if lib.Len() != 2 {
		t.Fatalf("got %d items want 2", lib.Len())
	}

	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
