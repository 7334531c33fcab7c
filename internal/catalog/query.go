package catalog

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Query filters the poem listing. Zero-valued fields do not filter.
type Query struct {
	Title       string
	Type        PoetryType
	Tags        []string
	Source      Source
	Dynasty     string
	SubmitterID string
	AuthorID    string
	Status      Status
	Page        int
	PageSize    int
}

// ParseQuery reads filters from URL parameters. Tags may be repeated
// (tags=a&tags=b) or comma separated.
func ParseQuery(v url.Values) Query {
	q := Query{
		Title:       strings.TrimSpace(v.Get("title")),
		Type:        PoetryType(strings.TrimSpace(v.Get("type"))),
		Source:      Source(strings.TrimSpace(v.Get("source"))),
		Dynasty:     strings.TrimSpace(v.Get("dynasty")),
		SubmitterID: strings.TrimSpace(v.Get("submitter")),
		AuthorID:    strings.TrimSpace(v.Get("author")),
		Status:      Status(strings.TrimSpace(v.Get("status"))),
		Page:        atoiDefault(v.Get("page"), DefaultPage),
		PageSize:    atoiDefault(v.Get("pageSize"), DefaultPageSize),
	}
	for _, raw := range v["tags"] {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				q.Tags = append(q.Tags, tag)
			}
		}
	}
	return q.normalized()
}

func (q Query) normalized() Query {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	// Offset plus one page must fit in an int.
	if maxPage := (math.MaxInt-q.PageSize)/q.PageSize + 1; q.Page > maxPage {
		q.Page = maxPage
	}
	return q
}

// Offset is the number of rows skipped before the current page.
func (q Query) Offset() int {
	return (q.Page - 1) * q.PageSize
}

// Values encodes q back into URL parameters, omitting defaults.
func (q Query) Values() url.Values {
	v := url.Values{}
	set := func(k, val string) {
		if val != "" {
			v.Set(k, val)
		}
	}
	set("title", q.Title)
	set("type", string(q.Type))
	set("source", string(q.Source))
	set("dynasty", q.Dynasty)
	set("submitter", q.SubmitterID)
	set("author", q.AuthorID)
	set("status", string(q.Status))
	for _, t := range q.Tags {
		v.Add("tags", t)
	}
	if q.Page > 0 && q.Page != DefaultPage {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 && q.PageSize != DefaultPageSize {
		v.Set("pageSize", strconv.Itoa(q.PageSize))
	}
	return v
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}
