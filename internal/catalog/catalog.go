// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package catalog serves the price list, modifiers and branches from a YAML
// file. A parsed file is an immutable Snapshot; the Provider swaps snapshots
// atomically when the file changes.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ManuGH/ordwiz/internal/domain/pricing"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/model"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/ports"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/validation"
)

//go:embed default.yaml
var defaultCatalog []byte

// Default returns the built-in catalog.
func Default() (*Snapshot, error) {
	return Parse(defaultCatalog)
}

// File is the on-disk layout.
type File struct {
	Version    int                 `yaml:"version"`
	Categories []ports.Category    `yaml:"categories"`
	Items      []ports.CatalogItem `yaml:"items"`
	Modifiers  []ModifierEntry     `yaml:"modifiers"`
	Branches   []ports.Branch      `yaml:"branches"`
}

// ModifierEntry is a modifier definition plus the category ids it applies to.
// An empty Categories list applies the modifier to every category.
type ModifierEntry struct {
	ports.ModifierDefinition `yaml:",inline"`
	Categories               []string `yaml:"categories,omitempty"`
}

// Snapshot is an indexed, validated catalog.
type Snapshot struct {
	version    int
	categories []ports.Category
	categoryBy map[string]ports.Category
	items      map[string]ports.CatalogItem
	byCategory map[string][]ports.CatalogItem
	modifiers  map[string][]ports.ModifierDefinition
	branches   map[string]ports.Branch
}

// Parse decodes and validates a catalog document. Unknown fields are rejected.
func Parse(data []byte) (*Snapshot, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("catalog: empty document")
		}
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	var extra any
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, errors.New("catalog: multiple YAML documents are not supported")
	}
	return build(f)
}

func build(f File) (*Snapshot, error) {
	var problems []string
	add := func(format string, args ...any) { problems = append(problems, fmt.Sprintf(format, args...)) }

	s := &Snapshot{
		version:    f.Version,
		categoryBy: make(map[string]ports.Category, len(f.Categories)),
		items:      make(map[string]ports.CatalogItem, len(f.Items)),
		byCategory: make(map[string][]ports.CatalogItem),
		modifiers:  make(map[string][]ports.ModifierDefinition),
		branches:   make(map[string]ports.Branch, len(f.Branches)),
	}

	for _, c := range f.Categories {
		if c.ID == "" {
			add("category with empty id")
			continue
		}
		if _, dup := s.categoryBy[c.ID]; dup {
			add("duplicate category %q", c.ID)
			continue
		}
		s.categoryBy[c.ID] = c
		s.categories = append(s.categories, c)
	}

	for _, it := range f.Items {
		switch {
		case it.ID == "":
			add("item with empty id")
			continue
		case s.items[it.ID].ID != "":
			add("duplicate item %q", it.ID)
			continue
		}
		if _, ok := s.categoryBy[it.CategoryID]; !ok {
			add("item %q references unknown category %q", it.ID, it.CategoryID)
		}
		if it.Unit != model.UnitPiece && it.Unit != model.UnitKilogram {
			add("item %q has unknown unit %q", it.ID, it.Unit)
		}
		if it.BasePrice < 0 {
			add("item %q has a negative base price", it.ID)
		}
		s.items[it.ID] = it
		s.byCategory[it.CategoryID] = append(s.byCategory[it.CategoryID], it)
	}

	seen := make(map[string]bool, len(f.Modifiers))
	for _, m := range f.Modifiers {
		if m.ID == "" {
			add("modifier with empty id")
			continue
		}
		if seen[m.ID] {
			add("duplicate modifier %q", m.ID)
			continue
		}
		seen[m.ID] = true
		for _, msg := range checkModifier(m.ModifierDefinition) {
			add("modifier %q: %s", m.ID, msg)
		}
		targets := m.Categories
		if len(targets) == 0 {
			for _, c := range s.categories {
				targets = append(targets, c.ID)
			}
		}
		for _, cid := range targets {
			if _, ok := s.categoryBy[cid]; !ok {
				add("modifier %q references unknown category %q", m.ID, cid)
				continue
			}
			s.modifiers[cid] = append(s.modifiers[cid], m.ModifierDefinition)
		}
	}
	for cid := range s.modifiers {
		sort.SliceStable(s.modifiers[cid], func(i, j int) bool {
			return s.modifiers[cid][i].Sequence < s.modifiers[cid][j].Sequence
		})
	}

	for _, b := range f.Branches {
		if b.ID == "" {
			add("branch with empty id")
			continue
		}
		if _, dup := s.branches[b.ID]; dup {
			add("duplicate branch %q", b.ID)
			continue
		}
		for _, msg := range validation.WorkingHours(b.Opens, b.Closes) {
			add("branch %q: %s", b.ID, msg)
		}
		s.branches[b.ID] = b
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("catalog: %s", strings.Join(problems, "; "))
	}
	return s, nil
}

func checkModifier(m ports.ModifierDefinition) []string {
	var out []string
	if !m.Kind.Valid() {
		out = append(out, fmt.Sprintf("unknown kind %q", m.Kind))
	}
	switch m.Category {
	case pricing.CategoryGeneral, pricing.CategoryTextile, pricing.CategoryLeather:
	default:
		out = append(out, fmt.Sprintf("unknown category %q", m.Category))
	}
	if m.Value.IsNegative() {
		out = append(out, "value must not be negative")
	}
	if m.Kind == pricing.KindRangePercentage {
		switch {
		case m.Min == nil || m.Max == nil:
			out = append(out, "range modifier needs min and max")
		case m.Min.GreaterThan(*m.Max):
			out = append(out, "min must not exceed max")
		case m.Value.LessThan(*m.Min) || m.Value.GreaterThan(*m.Max):
			out = append(out, "default value must lie within min and max")
		}
	}
	return out
}

// Version is the document version declared in the file.
func (s *Snapshot) Version() int { return s.version }

// Stats returns entity counts for logging.
func (s *Snapshot) Stats() (categories, items, branches int) {
	return len(s.categories), len(s.items), len(s.branches)
}
