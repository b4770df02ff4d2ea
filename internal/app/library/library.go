/*
Package library loads the curated media catalog from YAML.

Items tagged "banger" form the pool that random draws come from. The catalog
is read-only after Load and safe for concurrent use.
*/
package library

import (
	"fmt"
	"math/rand/v2"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"zone/internal/app/playback"
	"zone/internal/pkg/errs"
)

// BangerTag marks items eligible for random draws.
const BangerTag = "banger"

// Entry is one catalog item as written in the YAML file.
type Entry struct {
	ID       string        `yaml:"id"`
	Title    string        `yaml:"title"`
	Duration time.Duration `yaml:"duration"`
	Src      string        `yaml:"src"`
	Tags     []string      `yaml:"tags"`
}

// Media converts the entry into a queueable media record.
func (e Entry) Media() playback.Media {
	return playback.Media{
		Title:    e.Title,
		Duration: e.Duration.Milliseconds(),
		Src:      e.Src,
	}
}

type catalog struct {
	Items []Entry `yaml:"items"`
}

// Library is an indexed, immutable catalog.
type Library struct {
	byID    map[string]Entry
	bangers []Entry
}

// Load reads the catalog at path.
func Load(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read library file: %w", err)
	}
	return Parse(data)
}

// Parse builds a Library from YAML. Every entry must carry a unique id and
// playable media.
func Parse(data []byte) (*Library, error) {
	var c catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse library file: %w", err)
	}

	lib := &Library{byID: make(map[string]Entry, len(c.Items))}
	for i, e := range c.Items {
		if e.ID == "" {
			return nil, fmt.Errorf("library item %d: id is required", i)
		}
		if _, dup := lib.byID[e.ID]; dup {
			return nil, fmt.Errorf("library item %q: duplicate id", e.ID)
		}
		if err := e.Media().Validate(); err != nil {
			return nil, fmt.Errorf("library item %q: %w", e.ID, err)
		}
		lib.byID[e.ID] = e
		if slices.Contains(e.Tags, BangerTag) {
			lib.bangers = append(lib.bangers, e)
		}
	}
	return lib, nil
}

// Len returns the number of catalog items.
func (l *Library) Len() int {
	if l == nil {
		return 0
	}
	return len(l.byID)
}

// Get looks up an item by id.
func (l *Library) Get(id string) (Entry, error) {
	if l == nil {
		return Entry{}, errs.NewError(errs.ErrLibraryUnavailable, "no catalog is loaded")
	}
	e, ok := l.byID[id]
	if !ok {
		return Entry{}, errs.NewError(errs.ErrItemNotFound)
	}
	return e, nil
}

// Banger draws a random item from the banger pool.
func (l *Library) Banger() (Entry, error) {
	if l == nil || len(l.bangers) == 0 {
		return Entry{}, errs.NewError(errs.ErrLibraryUnavailable, "no bangers in the catalog")
	}
	return l.bangers[rand.IntN(len(l.bangers))], nil
}
