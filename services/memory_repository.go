package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"tournament-engine/models"
)

// MemoryRepository backs the store when no database is configured. Records
// are cloned on the way in and out.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]*models.Tournament
	slugs map[string]string
	keys  map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		items: make(map[string]*models.Tournament),
		slugs: make(map[string]string),
		keys:  make(map[string]string),
	}
}

func (r *MemoryRepository) Create(_ context.Context, t *models.Tournament) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[t.ID]; ok {
		return models.ErrDuplicateTournament
	}
	if _, ok := r.slugs[t.Slug]; ok {
		return models.ErrDuplicateTournament
	}
	if t.DedupKey != nil {
		if _, ok := r.keys[*t.DedupKey]; ok {
			return models.ErrDuplicateTournament
		}
		r.keys[*t.DedupKey] = t.ID
	}
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	r.slugs[t.Slug] = t.ID
	r.items[t.ID] = t.Clone()
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*models.Tournament, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.items[id]
	if !ok {
		return nil, models.ErrTournamentNotFound
	}
	return t.Clone(), nil
}

func (r *MemoryRepository) List(_ context.Context, f ListFilter) ([]*models.Tournament, int64, error) {
	f = f.normalized()
	statuses := make(map[models.TournamentStatus]bool, len(f.Statuses))
	for _, s := range f.Statuses {
		statuses[s] = true
	}

	r.mu.RLock()
	var matched []*models.Tournament
	for _, t := range r.items {
		if len(statuses) > 0 && !statuses[t.Status] {
			continue
		}
		if f.GameType != "" && t.GameType != f.GameType {
			continue
		}
		if f.Type != "" && t.Type != f.Type {
			continue
		}
		if f.StartTime != nil && !t.StartTime.Equal(*f.StartTime) {
			continue
		}
		matched = append(matched, t.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].StartTime.Equal(matched[j].StartTime) {
			return matched[i].StartTime.Before(matched[j].StartTime)
		}
		return matched[i].ID < matched[j].ID
	})

	total := int64(len(matched))
	start := f.offset()
	if start >= len(matched) {
		return []*models.Tournament{}, total, nil
	}
	end := start + f.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *MemoryRepository) Update(_ context.Context, t *models.Tournament, expected int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[t.ID]
	if !ok {
		return models.ErrTournamentNotFound
	}
	if stored.Version != expected {
		return errStaleVersion
	}
	t.UpdatedAt = time.Now().UTC()
	r.items[t.ID] = t.Clone()
	return nil
}

func (r *MemoryRepository) Ping(context.Context) error { return nil }
