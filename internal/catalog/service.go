package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/JasonKing5/ifs/internal/ids"
)

const (
	maxTitleLen      = 200
	maxAuthorNameLen = 100
)

// Service applies validation and defaults on top of a Store.
type Service struct {
	store Store
}

func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("catalog: store is required")
	}
	return &Service{store: store}, nil
}

// Page is one slice of a poem listing.
type Page struct {
	Items    []Poem `json:"items"`
	Total    int64  `json:"total"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
}

// NewPoem is the input accepted by CreatePoem.
type NewPoem struct {
	Title    string     `json:"title"`
	Content  string     `json:"content"`
	AuthorID string     `json:"authorId"`
	Type     PoetryType `json:"type"`
	Tags     []string   `json:"tags"`
	Dynasty  string     `json:"dynasty"`
}

func (s *Service) ListPoems(ctx context.Context, q Query) (Page, error) {
	q = q.normalized()
	if q.Type != "" && !q.Type.Valid() {
		return Page{}, fmt.Errorf("%w: unknown poetry type %q", ErrInvalidInput, q.Type)
	}
	if q.Status != "" && !q.Status.Valid() {
		return Page{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, q.Status)
	}
	items, total, err := s.store.ListPoems(ctx, q)
	if err != nil {
		return Page{}, err
	}
	if items == nil {
		items = []Poem{}
	}
	return Page{Items: items, Total: total, Page: q.Page, PageSize: q.PageSize}, nil
}

func (s *Service) GetPoem(ctx context.Context, id string) (Poem, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Poem{}, fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	return s.store.GetPoem(ctx, id)
}

// CreatePoem stores a user submission. Submissions always start as
// system_user/pending regardless of input.
func (s *Service) CreatePoem(ctx context.Context, submitterID string, in NewPoem) (Poem, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	in.AuthorID = strings.TrimSpace(in.AuthorID)
	if in.Type == "" {
		in.Type = TypeShi
	}
	if err := validatePoemFields(in.Title, in.Content, in.Type); err != nil {
		return Poem{}, err
	}
	if in.AuthorID != "" {
		if err := s.requireAuthor(ctx, in.AuthorID); err != nil {
			return Poem{}, err
		}
	}
	p := Poem{
		ID:          ids.New(),
		Title:       in.Title,
		Content:     in.Content,
		AuthorID:    in.AuthorID,
		Type:        in.Type,
		Tags:        cleanTags(in.Tags),
		Dynasty:     strings.TrimSpace(in.Dynasty),
		Source:      SourceSystemUser,
		Status:      StatusPending,
		SubmitterID: submitterID,
	}
	if err := s.store.CreatePoem(ctx, &p); err != nil {
		return Poem{}, err
	}
	return p, nil
}

func (s *Service) UpdatePoem(ctx context.Context, id string, upd PoemUpdate) (Poem, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Poem{}, fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	if upd.empty() {
		return Poem{}, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}
	current, err := s.store.GetPoem(ctx, id)
	if err != nil {
		return Poem{}, err
	}
	if upd.Tags != nil {
		tags := cleanTags(*upd.Tags)
		upd.Tags = &tags
	}
	next := current
	upd.apply(&next)
	next.Title = strings.TrimSpace(next.Title)
	if err := validatePoemFields(next.Title, next.Content, next.Type); err != nil {
		return Poem{}, err
	}
	if upd.Status != nil && !upd.Status.Valid() {
		return Poem{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *upd.Status)
	}
	if upd.AuthorID != nil && *upd.AuthorID != "" {
		if err := s.requireAuthor(ctx, *upd.AuthorID); err != nil {
			return Poem{}, err
		}
	}
	return s.store.UpdatePoem(ctx, id, upd)
}

func (s *Service) DeletePoem(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	return s.store.DeletePoem(ctx, id)
}

func (s *Service) ListAuthors(ctx context.Context) ([]Author, error) {
	out, err := s.store.ListAuthors(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Author{}
	}
	return out, nil
}

func (s *Service) CreateAuthor(ctx context.Context, name, dynasty string) (Author, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Author{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(name) > maxAuthorNameLen {
		return Author{}, fmt.Errorf("%w: name must be at most %d characters", ErrInvalidInput, maxAuthorNameLen)
	}
	a := Author{ID: ids.New(), Name: name, Dynasty: strings.TrimSpace(dynasty)}
	if err := s.store.CreateAuthor(ctx, &a); err != nil {
		return Author{}, err
	}
	return a, nil
}

func (s *Service) requireAuthor(ctx context.Context, id string) error {
	if _, err := s.store.GetAuthor(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: author %s does not exist", ErrInvalidInput, id)
		}
		return err
	}
	return nil
}

func validatePoemFields(title, content string, typ PoetryType) error {
	if title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return fmt.Errorf("%w: title must be at most %d characters", ErrInvalidInput, maxTitleLen)
	}
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	if !typ.Valid() {
		return fmt.Errorf("%w: unknown poetry type %q", ErrInvalidInput, typ)
	}
	return nil
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
