package catalog

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/gorm"
)

var _ Store = (*GormStore)(nil)

// GormStore persists the catalog through gorm, on PostgreSQL or MySQL.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// AutoMigrate creates or updates the poems and authors tables.
func (s *GormStore) AutoMigrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&Author{}, &Poem{})
}

func (s *GormStore) filtered(ctx context.Context, q Query) *gorm.DB {
	tx := s.db.WithContext(ctx).Model(&Poem{})
	if q.Title != "" {
		tx = tx.Where("title LIKE ?", "%"+q.Title+"%")
	}
	if q.Type != "" {
		tx = tx.Where("type = ?", q.Type)
	}
	if q.Source != "" {
		tx = tx.Where("source = ?", q.Source)
	}
	if q.Dynasty != "" {
		tx = tx.Where("dynasty = ?", q.Dynasty)
	}
	if q.SubmitterID != "" {
		tx = tx.Where("submitter_id = ?", q.SubmitterID)
	}
	if q.AuthorID != "" {
		tx = tx.Where("author_id = ?", q.AuthorID)
	}
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	for _, tag := range q.Tags {
		// tags are stored as a JSON array; match the quoted element.
		quoted, _ := json.Marshal(tag)
		tx = tx.Where("tags LIKE ?", "%"+string(quoted)+"%")
	}
	return tx
}

func (s *GormStore) ListPoems(ctx context.Context, q Query) ([]Poem, int64, error) {
	var total int64
	if err := s.filtered(ctx, q).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var items []Poem
	err := s.filtered(ctx, q).
		Order("created_at DESC").
		Offset(q.Offset()).
		Limit(q.PageSize).
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *GormStore) GetPoem(ctx context.Context, id string) (Poem, error) {
	var p Poem
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Poem{}, ErrNotFound
		}
		return Poem{}, err
	}
	return p, nil
}

func (s *GormStore) CreatePoem(ctx context.Context, p *Poem) error {
	return s.db.WithContext(ctx).Create(p).Error
}

func (s *GormStore) UpdatePoem(ctx context.Context, id string, upd PoemUpdate) (Poem, error) {
	var updated Poem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&updated, "id = ?", id).Error; err != nil {
			return err
		}
		upd.apply(&updated)
		return tx.Save(&updated).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Poem{}, ErrNotFound
	}
	if err != nil {
		return Poem{}, err
	}
	return updated, nil
}

func (s *GormStore) DeletePoem(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&Poem{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ListAuthors(ctx context.Context) ([]Author, error) {
	var out []Author
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *GormStore) GetAuthor(ctx context.Context, id string) (Author, error) {
	var a Author
	if err := s.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Author{}, ErrNotFound
		}
		return Author{}, err
	}
	return a, nil
}

func (s *GormStore) CreateAuthor(ctx context.Context, a *Author) error {
	return s.db.WithContext(ctx).Create(a).Error
}
