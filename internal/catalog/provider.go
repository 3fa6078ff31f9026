// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/ManuGH/ordwiz/internal/domain/wizard/ports"
	"github.com/ManuGH/ordwiz/internal/log"
)

// DefaultDebounce delays a reload until editors have finished writing.
const DefaultDebounce = 500 * time.Millisecond

var (
	_ ports.CatalogProvider  = (*Provider)(nil)
	_ ports.ModifierProvider = (*Provider)(nil)
	_ ports.BranchDirectory  = (*Provider)(nil)
)

// Provider serves the current Snapshot. Reads never block a reload.
type Provider struct {
	path     string
	current  atomic.Pointer[Snapshot]
	debounce time.Duration
	logger   zerolog.Logger

	mu        sync.Mutex
	listeners []chan<- *Snapshot
}

// NewProvider loads path, or the built-in catalog when path is empty.
func NewProvider(path string) (*Provider, error) {
	p := &Provider{
		path:     path,
		debounce: DefaultDebounce,
		logger:   log.WithComponent("catalog"),
	}
	var (
		snap *Snapshot
		err  error
	)
	if path == "" {
		snap, err = Default()
	} else {
		snap, err = loadFile(path)
	}
	if err != nil {
		return nil, err
	}
	p.current.Store(snap)
	cats, items, branches := snap.Stats()
	p.logger.Info().
		Str(log.FieldPath, path).
		Int("categories", cats).
		Int("items", items).
		Int("branches", branches).
		Msg("catalog loaded")
	return p, nil
}

// NewStatic wraps an already parsed snapshot. It cannot be reloaded.
func NewStatic(s *Snapshot) *Provider {
	p := &Provider{debounce: DefaultDebounce, logger: log.WithComponent("catalog")}
	p.current.Store(s)
	return p
}

func loadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- operator supplied catalog path
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(data)
}

// Snapshot returns the catalog currently served.
func (p *Provider) Snapshot() *Snapshot { return p.current.Load() }

// Reload re-reads the file. On any error the previous snapshot stays in place.
func (p *Provider) Reload() error {
	if p.path == "" {
		return errors.New("catalog: no file to reload")
	}
	snap, err := loadFile(p.path)
	if err != nil {
		p.logger.Error().Err(err).Str("event", "catalog.reload_failed").Msg("catalog reload failed, keeping previous version")
		return err
	}
	p.current.Store(snap)
	cats, items, _ := snap.Stats()
	p.logger.Info().
		Str("event", "catalog.reload_success").
		Int("version", snap.Version()).
		Int("categories", cats).
		Int("items", items).
		Msg("catalog reloaded")
	p.notify(snap)
	return nil
}

// Subscribe registers ch for successful reloads. Sends never block.
func (p *Provider) Subscribe(ch chan<- *Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, ch)
}

func (p *Provider) notify(s *Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ch := range p.listeners {
		select {
		case ch <- s:
		default:
		}
	}
}

// Watch reloads the catalog whenever its file changes, until ctx is done.
// The directory is watched rather than the file so atomic renames are seen.
func (p *Provider) Watch(ctx context.Context) error {
	if p.path == "" {
		p.logger.Info().Msg("catalog watcher disabled (built-in catalog)")
		<-ctx.Done()
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("catalog: create watcher: %w", err)
	}
	defer func() { _ = w.Close() }()

	if err := w.Add(filepath.Dir(p.path)); err != nil {
		return fmt.Errorf("catalog: watch %s: %w", p.path, err)
	}
	p.logger.Info().Str(log.FieldPath, p.path).Msg("watching catalog for changes")

	target := filepath.Clean(p.path)
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			p.logger.Debug().Str("op", ev.Op.String()).Msg("catalog file changed")
			if timer == nil {
				timer = time.NewTimer(p.debounce)
			} else {
				timer.Reset(p.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			_ = p.Reload()

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			p.logger.Error().Err(err).Msg("catalog watcher error")
		}
	}
}

func (p *Provider) ListServiceCategories(context.Context) ([]ports.Category, error) {
	s := p.current.Load()
	return append([]ports.Category(nil), s.categories...), nil
}

func (p *Provider) ListItemsForCategory(_ context.Context, categoryID string) ([]ports.CatalogItem, error) {
	s := p.current.Load()
	if _, ok := s.categoryBy[categoryID]; !ok {
		return nil, fmt.Errorf("category %s: %w", categoryID, ports.ErrNotFound)
	}
	return append([]ports.CatalogItem(nil), s.byCategory[categoryID]...), nil
}

func (p *Provider) GetItem(_ context.Context, itemID string) (ports.CatalogItem, error) {
	it, ok := p.current.Load().items[itemID]
	if !ok {
		return ports.CatalogItem{}, fmt.Errorf("item %s: %w", itemID, ports.ErrNotFound)
	}
	return it, nil
}

// ListApplicableModifiers returns the category's modifiers in application order.
func (p *Provider) ListApplicableModifiers(_ context.Context, categoryID string) ([]ports.ModifierDefinition, error) {
	s := p.current.Load()
	if _, ok := s.categoryBy[categoryID]; !ok {
		return nil, fmt.Errorf("category %s: %w", categoryID, ports.ErrNotFound)
	}
	return append([]ports.ModifierDefinition(nil), s.modifiers[categoryID]...), nil
}

func (p *Provider) GetBranch(_ context.Context, id string) (ports.Branch, error) {
	b, ok := p.current.Load().branches[id]
	if !ok {
		return ports.Branch{}, fmt.Errorf("branch %s: %w", id, ports.ErrNotFound)
	}
	return b, nil
}
