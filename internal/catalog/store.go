package catalog

import "context"

// Store persists poems and authors. Lookups by id return ErrNotFound when
// nothing matches.
type Store interface {
	ListPoems(ctx context.Context, q Query) ([]Poem, int64, error)
	GetPoem(ctx context.Context, id string) (Poem, error)
	CreatePoem(ctx context.Context, p *Poem) error
	UpdatePoem(ctx context.Context, id string, upd PoemUpdate) (Poem, error)
	DeletePoem(ctx context.Context, id string) error

	ListAuthors(ctx context.Context) ([]Author, error)
	GetAuthor(ctx context.Context, id string) (Author, error)
	CreateAuthor(ctx context.Context, a *Author) error
}

// PoemUpdate carries the fields to change; nil fields stay untouched.
type PoemUpdate struct {
	Title    *string     `json:"title,omitempty"`
	Content  *string     `json:"content,omitempty"`
	AuthorID *string     `json:"authorId,omitempty"`
	Type     *PoetryType `json:"type,omitempty"`
	Tags     *[]string   `json:"tags,omitempty"`
	Dynasty  *string     `json:"dynasty,omitempty"`
	Status   *Status     `json:"status,omitempty"`
}

func (u PoemUpdate) empty() bool {
	return u.Title == nil && u.Content == nil && u.AuthorID == nil && u.Type == nil &&
		u.Tags == nil && u.Dynasty == nil && u.Status == nil
}

func (u PoemUpdate) apply(p *Poem) {
	if u.Title != nil {
		p.Title = *u.Title
	}
	if u.Content != nil {
		p.Content = *u.Content
	}
	if u.AuthorID != nil {
		p.AuthorID = *u.AuthorID
	}
	if u.Type != nil {
		p.Type = *u.Type
	}
	if u.Tags != nil {
		p.Tags = append([]string(nil), (*u.Tags)...)
	}
	if u.Dynasty != nil {
		p.Dynasty = *u.Dynasty
	}
	if u.Status != nil {
		p.Status = *u.Status
	}
}
