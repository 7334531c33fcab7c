package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var poemColumns = []string{"id", "title", "content", "author_id", "type", "tags", "dynasty", "source", "status", "submitter_id", "created_at", "updated_at"}

func newGormMock(t *testing.T) (*GormStore, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return NewGormStore(db), mock
}

func TestGormGetPoem(t *testing.T) {
	store, mock := newGormMock(t)
	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT \* FROM "poems" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows(poemColumns).
			AddRow("p1", "静夜思", "床前明月光", "a1", "shi", `["moon"]`, "tang", "system", "approved", "", now, now))

	p, err := store.GetPoem(context.Background(), "p1")
	require.NoError(t, err)
	require.Equal(t, "静夜思", p.Title)
	require.Equal(t, []string{"moon"}, p.Tags)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormGetPoemNotFound(t *testing.T) {
	store, mock := newGormMock(t)
	mock.ExpectQuery(`SELECT \* FROM "poems"`).WillReturnRows(sqlmock.NewRows(poemColumns))

	_, err := store.GetPoem(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGormListPoemsAppliesFilters(t *testing.T) {
	store, mock := newGormMock(t)
	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "poems" WHERE title LIKE \$1 AND status = \$2 AND tags LIKE \$3`).
		WithArgs("%moon%", "approved", `%"月"%`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT \* FROM "poems" WHERE title LIKE \$1 AND status = \$2 AND tags LIKE \$3 ORDER BY created_at DESC LIMIT`).
		WillReturnRows(sqlmock.NewRows(poemColumns).
			AddRow("p1", "moon", "c", "", "shi", `["月"]`, "", "system", "approved", "", now, now))

	items, total, err := store.ListPoems(context.Background(), Query{Title: "moon", Status: StatusApproved, Tags: []string{"月"}, Page: 1, PageSize: 20})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Len(t, items, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormDeletePoemMissing(t *testing.T) {
	store, mock := newGormMock(t)
	mock.ExpectExec(`DELETE FROM "poems" WHERE id = \$1`).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.ErrorIs(t, store.DeletePoem(context.Background(), "missing"), ErrNotFound)
}

func TestGormListAuthors(t *testing.T) {
	store, mock := newGormMock(t)
	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT \* FROM "authors" ORDER BY name ASC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "dynasty", "created_at", "updated_at"}).
			AddRow("a1", "Du Fu", "tang", now, now).
			AddRow("a2", "Li Bai", "tang", now, now))

	out, err := store.ListAuthors(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)
}
