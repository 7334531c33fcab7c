package catalog

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("catalog: not found")
	ErrInvalidInput = errors.New("catalog: invalid input")
)

// PoetryType is the literary form of a poem.
type PoetryType string

const (
	TypeShi   PoetryType = "shi"
	TypeCi    PoetryType = "ci"
	TypeQu    PoetryType = "qu"
	TypeFu    PoetryType = "fu"
	TypeOther PoetryType = "other"
)

// Source records who contributed a poem.
type Source string

const (
	SourceSystem     Source = "system"
	SourceSystemUser Source = "system_user"
)

// Status is the review state of a poem.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (t PoetryType) Valid() bool {
	switch t {
	case TypeShi, TypeCi, TypeQu, TypeFu, TypeOther:
		return true
	}
	return false
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Poem is a catalog entry.
type Poem struct {
	ID          string     `json:"id" gorm:"primaryKey;size:26"`
	Title       string     `json:"title" gorm:"size:200;not null;index"`
	Content     string     `json:"content" gorm:"type:text;not null"`
	AuthorID    string     `json:"authorId" gorm:"size:26;index"`
	Type        PoetryType `json:"type" gorm:"size:16;index"`
	Tags        []string   `json:"tags" gorm:"serializer:json"`
	Dynasty     string     `json:"dynasty,omitempty" gorm:"size:32;index"`
	Source      Source     `json:"source" gorm:"size:16"`
	Status      Status     `json:"status" gorm:"size:16;index"`
	SubmitterID string     `json:"submitterId,omitempty" gorm:"size:26;index"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Author is a poet.
type Author struct {
	ID        string    `json:"id" gorm:"primaryKey;size:26"`
	Name      string    `json:"name" gorm:"size:100;not null;index"`
	Dynasty   string    `json:"dynasty,omitempty" gorm:"size:32"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
