package translation

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Discard,
	})
	require.NoError(t, err)
	return db, mock
}

func TestConstructSplitsAttributes(t *testing.T) {
	book := &Book{}
	err := Construct(context.Background(), book, map[string]any{
		"ISBN":          "978-0",
		"PublishedYear": 1937,
		"Title":         "The Hobbit",
		"Slug":          "the-hobbit",
		"language_code": "en",
	})
	require.NoError(t, err)

	assert.Equal(t, "978-0", book.ISBN)
	assert.Equal(t, 1937, book.PublishedYear)

	code, err := LanguageCode(book)
	require.NoError(t, err)
	assert.Equal(t, "en", code)

	title, err := Get(book, "Title")
	require.NoError(t, err)
	assert.Equal(t, "The Hobbit", title)
}

func TestConstructColumnNames(t *testing.T) {
	book := &Book{}
	err := Construct(context.Background(), book, map[string]any{
		"isbn":  "978-1",
		"title": "Dune",
	})
	require.NoError(t, err)
	assert.Equal(t, "978-1", book.ISBN)

	title, err := Get(book, "title")
	require.NoError(t, err)
	assert.Equal(t, "Dune", title)
}

func TestConstructAmbientLanguage(t *testing.T) {
	ctx := WithLanguage(context.Background(), "tr")
	book := &Book{}
	require.NoError(t, Construct(ctx, book, map[string]any{"Title": "Kum"}))

	code, err := LanguageCode(book)
	require.NoError(t, err)
	assert.Equal(t, "tr", code)
}

func TestConstructNoTranslationSentinel(t *testing.T) {
	book := &Book{}
	err := Construct(context.Background(), book, map[string]any{
		"ISBN":          "978-2",
		"Title":         "discarded",
		"language_code": NoTranslation,
	})
	require.NoError(t, err)
	assert.Equal(t, "978-2", book.ISBN)
	assert.Nil(t, ActiveTranslation(book))
}

func TestConstructUnknownField(t *testing.T) {
	book := &Book{}
	err := Construct(context.Background(), book, map[string]any{"Bogus": 1})
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestHydrate(t *testing.T) {
	t.Run("all columns", func(t *testing.T) {
		book := &Book{}
		err := Hydrate(book, nil, []any{uint(5), "978-0", 1937})
		require.NoError(t, err)
		assert.Equal(t, uint(5), book.ID)
		assert.Equal(t, "978-0", book.ISBN)
		assert.Equal(t, 1937, book.PublishedYear)
		assert.Empty(t, Deferred(book))
		assert.Nil(t, ActiveTranslation(book))
	})

	t.Run("subset defers the rest", func(t *testing.T) {
		book := &Book{}
		err := Hydrate(book, []string{"id", "isbn"}, []any{uint(5), "978-0"})
		require.NoError(t, err)
		assert.Equal(t, uint(5), book.ID)
		assert.Equal(t, []string{"published_year"}, Deferred(book))
	})

	t.Run("value count mismatch", func(t *testing.T) {
		book := &Book{}
		assert.Error(t, Hydrate(book, nil, []any{uint(5)}))
		assert.Error(t, Hydrate(book, []string{"id"}, []any{uint(5), "x"}))
	})

	t.Run("unknown field", func(t *testing.T) {
		book := &Book{}
		err := Hydrate(book, []string{"bogus"}, []any{1})
		assert.ErrorIs(t, err, ErrUnknownField)
	})
}

func TestSaveInsertsBothRecords(t *testing.T) {
	db, mock := newMockDB(t)
	book := &Book{}
	require.NoError(t, Construct(context.Background(), book, map[string]any{
		"ISBN":          "978-0",
		"PublishedYear": 1937,
		"Title":         "The Hobbit",
		"Slug":          "the-hobbit",
		"language_code": "en",
	}))

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "books" \("isbn","published_year"\)`).
		WithArgs("978-0", 1937).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(`INSERT INTO "books_translation"`).
		WithArgs(7, "en", "The Hobbit", "the-hobbit", "").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectCommit()

	require.NoError(t, Save(context.Background(), db, book))

	assert.Equal(t, uint(7), book.ID)
	rec := ActiveTranslation(book)
	require.NotNil(t, rec)
	assert.Equal(t, uint(3), rec.RecordID())
	require.NotNil(t, rec.Master())
	assert.Equal(t, uint(7), *rec.Master())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveWithoutTranslation(t *testing.T) {
	db, mock := newMockDB(t)
	book := &Book{ISBN: "978-1", PublishedYear: 1965}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "books"`).
		WithArgs("978-1", 1965).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(8))
	mock.ExpectCommit()

	require.NoError(t, Save(context.Background(), db, book))
	assert.Equal(t, uint(8), book.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveSharedFieldsOnly(t *testing.T) {
	db, mock := newMockDB(t)
	book := &Book{ID: 7, ISBN: "978-2"}
	rec := bookSchema.NewRecord("en").(*BookTranslation)
	rec.ID = 3
	SetActiveTranslation(book, rec)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "books" SET "isbn"=\$1 WHERE`).
		WithArgs("978-2", 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, Save(context.Background(), db, book, WithUpdateFields("ISBN")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveNewTranslationDropsRestriction(t *testing.T) {
	db, mock := newMockDB(t)
	book := &Book{ID: 7}
	require.NoError(t, Translate(book, "de"))
	require.NoError(t, Set(book, "Title", "Der Hobbit"))

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "books_translation"`).
		WithArgs(7, "de", "Der Hobbit", "", "").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))
	mock.ExpectCommit()

	require.NoError(t, Save(context.Background(), db, book, WithUpdateFields("Title")))

	rec := ActiveTranslation(book)
	assert.Equal(t, uint(4), rec.RecordID())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveUpdatesExistingRecords(t *testing.T) {
	db, mock := newMockDB(t)
	book := &Book{ID: 7, ISBN: "978-0", PublishedYear: 1937}
	rec := bookSchema.NewRecord("en").(*BookTranslation)
	rec.ID = 3
	rec.Title = "The Hobbit"
	SetActiveTranslation(book, rec)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "books" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "books_translation" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, Save(context.Background(), db, book))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveJoinsAmbientTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	book := &Book{ISBN: "978-3"}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "books"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
	mock.ExpectCommit()

	err := db.Transaction(func(tx *gorm.DB) error {
		return Save(context.Background(), tx, book)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateUnique(t *testing.T) {
	t.Run("passes when no rows match", func(t *testing.T) {
		db, mock := newMockDB(t)
		book := &Book{ISBN: "978-0"}
		require.NoError(t, Set(book, "Slug", "the-hobbit"))

		mock.ExpectQuery(`SELECT count\(\*\) FROM "books" WHERE isbn = \$1`).
			WithArgs("978-0").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(`SELECT count\(\*\) FROM "books_translation" WHERE slug = \$1 AND language_code = \$2`).
			WithArgs("the-hobbit", "en").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		require.NoError(t, ValidateUnique(context.Background(), db, book))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports shared duplicate", func(t *testing.T) {
		db, mock := newMockDB(t)
		book := &Book{ISBN: "978-0"}

		mock.ExpectQuery(`SELECT count\(\*\) FROM "books" WHERE isbn = \$1`).
			WithArgs("978-0").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		err := ValidateUnique(context.Background(), db, book)
		assert.ErrorIs(t, err, ErrDuplicate)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports translated duplicate excluding self", func(t *testing.T) {
		db, mock := newMockDB(t)
		book := &Book{ID: 7, ISBN: "978-0"}
		rec := bookSchema.NewRecord("en").(*BookTranslation)
		rec.ID = 3
		rec.Slug = "the-hobbit"
		SetActiveTranslation(book, rec)

		mock.ExpectQuery(`SELECT count\(\*\) FROM "books" WHERE isbn = \$1 AND id <> \$2`).
			WithArgs("978-0", 7).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(`SELECT count\(\*\) FROM "books_translation" WHERE slug = \$1 AND language_code = \$2 AND id <> \$3`).
			WithArgs("the-hobbit", "en", 3).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		err := ValidateUnique(context.Background(), db, book)
		assert.ErrorIs(t, err, ErrDuplicate)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
