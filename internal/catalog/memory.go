package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps the catalog in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	poems   map[string]Poem
	authors map[string]Author
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		poems:   make(map[string]Poem),
		authors: make(map[string]Author),
		now:     time.Now,
	}
}

func (s *MemoryStore) ListPoems(_ context.Context, q Query) ([]Poem, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []Poem
	for _, p := range s.poems {
		if matches(p, q) {
			matched = append(matched, p)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := q.Offset()
	if start >= len(matched) {
		return []Poem{}, total, nil
	}
	end := start + q.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	out := make([]Poem, end-start)
	copy(out, matched[start:end])
	return out, total, nil
}

func matches(p Poem, q Query) bool {
	if q.Title != "" && !strings.Contains(strings.ToLower(p.Title), strings.ToLower(q.Title)) {
		return false
	}
	if q.Type != "" && p.Type != q.Type {
		return false
	}
	if q.Source != "" && p.Source != q.Source {
		return false
	}
	if q.Dynasty != "" && p.Dynasty != q.Dynasty {
		return false
	}
	if q.SubmitterID != "" && p.SubmitterID != q.SubmitterID {
		return false
	}
	if q.AuthorID != "" && p.AuthorID != q.AuthorID {
		return false
	}
	if q.Status != "" && p.Status != q.Status {
		return false
	}
	for _, want := range q.Tags {
		found := false
		for _, have := range p.Tags {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (s *MemoryStore) GetPoem(_ context.Context, id string) (Poem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.poems[id]
	if !ok {
		return Poem{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) CreatePoem(_ context.Context, p *Poem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	s.poems[p.ID] = *p
	return nil
}

func (s *MemoryStore) UpdatePoem(_ context.Context, id string, upd PoemUpdate) (Poem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.poems[id]
	if !ok {
		return Poem{}, ErrNotFound
	}
	upd.apply(&p)
	p.UpdatedAt = s.now().UTC()
	s.poems[id] = p
	return p, nil
}

func (s *MemoryStore) DeletePoem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.poems[id]; !ok {
		return ErrNotFound
	}
	delete(s.poems, id)
	return nil
}

func (s *MemoryStore) ListAuthors(_ context.Context) ([]Author, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Author, 0, len(s.authors))
	for _, a := range s.authors {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) GetAuthor(_ context.Context, id string) (Author, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.authors[id]
	if !ok {
		return Author{}, ErrNotFound
	}
	return a, nil
}

func (s *MemoryStore) CreateAuthor(_ context.Context, a *Author) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	s.authors[a.ID] = *a
	return nil
}
