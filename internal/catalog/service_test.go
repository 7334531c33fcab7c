package catalog

import (
	"context"
	"math"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	svc, err := NewService(store)
	require.NoError(t, err)
	return svc, store
}

func TestParseQueryDefaults(t *testing.T) {
	q := ParseQuery(url.Values{})
	require.Equal(t, DefaultPage, q.Page)
	require.Equal(t, DefaultPageSize, q.PageSize)

	q = ParseQuery(url.Values{
		"page":     {"3"},
		"pageSize": {"500"},
		"tags":     {"moon", "autumn,river", " "},
		"title":    {" 静夜思 "},
	})
	require.Equal(t, 3, q.Page)
	require.Equal(t, MaxPageSize, q.PageSize)
	require.Equal(t, []string{"moon", "autumn", "river"}, q.Tags)
	require.Equal(t, "静夜思", q.Title)
	require.Equal(t, 200, q.Offset())

	q = ParseQuery(url.Values{"page": {"-1"}, "pageSize": {"abc"}})
	require.Equal(t, DefaultPage, q.Page)
	require.Equal(t, DefaultPageSize, q.PageSize)
}

func TestParseQueryClampsHugePage(t *testing.T) {
	q := ParseQuery(url.Values{"page": {"500000000000000000"}})
	require.GreaterOrEqual(t, q.Offset(), 0)
	require.LessOrEqual(t, q.Offset(), math.MaxInt-q.PageSize)

	svc, _ := newTestService(t)
	page, err := svc.ListPoems(context.Background(), q)
	require.NoError(t, err)
	require.Empty(t, page.Items)
}

func TestQueryValuesRoundTrip(t *testing.T) {
	in := Query{Title: "moon", Tags: []string{"a", "b"}, Page: 2, PageSize: 5, Status: StatusApproved}
	out := ParseQuery(in.Values())
	require.Equal(t, in.Title, out.Title)
	require.Equal(t, in.Tags, out.Tags)
	require.Equal(t, in.Page, out.Page)
	require.Equal(t, in.PageSize, out.PageSize)
	require.Equal(t, in.Status, out.Status)
}

func TestCreatePoemForcesReviewDefaults(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	author, err := svc.CreateAuthor(ctx, "李白", "tang")
	require.NoError(t, err)

	p, err := svc.CreatePoem(ctx, "user-1", NewPoem{
		Title:    "静夜思",
		Content:  "床前明月光",
		AuthorID: author.ID,
		Tags:     []string{"moon", "moon", ""},
	})
	require.NoError(t, err)
	require.Equal(t, SourceSystemUser, p.Source)
	require.Equal(t, StatusPending, p.Status)
	require.Equal(t, TypeShi, p.Type)
	require.Equal(t, "user-1", p.SubmitterID)
	require.Equal(t, []string{"moon"}, p.Tags)

	got, err := svc.GetPoem(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, p.Title, got.Title)
}

func TestCreatePoemValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreatePoem(ctx, "u", NewPoem{Content: "x"})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.CreatePoem(ctx, "u", NewPoem{Title: "t"})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.CreatePoem(ctx, "u", NewPoem{Title: "t", Content: "c", Type: "haiku"})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.CreatePoem(ctx, "u", NewPoem{Title: "t", Content: "c", AuthorID: "missing"})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetPoemBlankAndUnknownIDs(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.GetPoem(context.Background(), "  ")
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.GetPoem(context.Background(), "01HZX3K5T6B0S4M7Q9V2C8N1DE")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListPoemsFiltersAndPages(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	for _, in := range []NewPoem{
		{Title: "Moon Night", Content: "c", Tags: []string{"moon", "night"}, Dynasty: "tang"},
		{Title: "River Snow", Content: "c", Tags: []string{"snow"}, Dynasty: "tang", Type: TypeCi},
		{Title: "Moon River", Content: "c", Tags: []string{"moon"}, Dynasty: "song"},
	} {
		_, err := svc.CreatePoem(ctx, "u1", in)
		require.NoError(t, err)
	}

	page, err := svc.ListPoems(ctx, Query{Title: "moon"})
	require.NoError(t, err)
	require.EqualValues(t, 2, page.Total)
	require.Equal(t, "Moon River", page.Items[0].Title, "newest first")

	page, err = svc.ListPoems(ctx, Query{Tags: []string{"moon", "night"}})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)

	page, err = svc.ListPoems(ctx, Query{Dynasty: "tang", Type: TypeCi})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)

	page, err = svc.ListPoems(ctx, Query{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.EqualValues(t, 3, page.Total)
	require.Len(t, page.Items, 1)

	page, err = svc.ListPoems(ctx, Query{Page: 9})
	require.NoError(t, err)
	require.NotNil(t, page.Items)
	require.Empty(t, page.Items)

	_, err = svc.ListPoems(ctx, Query{Status: "lost"})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateAndDeletePoem(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	p, err := svc.CreatePoem(ctx, "u1", NewPoem{Title: "Draft", Content: "c"})
	require.NoError(t, err)

	title := "Final"
	approved := StatusApproved
	updated, err := svc.UpdatePoem(ctx, p.ID, PoemUpdate{Title: &title, Status: &approved})
	require.NoError(t, err)
	require.Equal(t, "Final", updated.Title)
	require.Equal(t, StatusApproved, updated.Status)

	blank := " "
	_, err = svc.UpdatePoem(ctx, p.ID, PoemUpdate{Title: &blank})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.UpdatePoem(ctx, p.ID, PoemUpdate{})
	require.ErrorIs(t, err, ErrInvalidInput)

	require.NoError(t, svc.DeletePoem(ctx, p.ID))
	require.ErrorIs(t, svc.DeletePoem(ctx, p.ID), ErrNotFound)
	_, err = svc.UpdatePoem(ctx, p.ID, PoemUpdate{Title: &title})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAuthors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.CreateAuthor(ctx, " ", "")
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.CreateAuthor(ctx, "Su Shi", "song")
	require.NoError(t, err)
	_, err = svc.CreateAuthor(ctx, "Du Fu", "tang")
	require.NoError(t, err)

	list, err := svc.ListAuthors(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "Du Fu", list[0].Name)
}
