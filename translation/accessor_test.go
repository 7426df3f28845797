package translation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetWithoutTranslation(t *testing.T) {
	book := &Book{ISBN: "978-0"}

	_, err := Get(book, "Title")
	assert.ErrorIs(t, err, ErrNoTranslation)

	_, err = LanguageCode(book)
	assert.ErrorIs(t, err, ErrNoTranslation)
}

func TestSetCreatesTranslationLazily(t *testing.T) {
	book := &Book{}
	require.Nil(t, ActiveTranslation(book))

	require.NoError(t, Set(book, "Title", "The Hobbit"))

	rec := ActiveTranslation(book)
	require.NotNil(t, rec)
	assert.Equal(t, DefaultLanguage, rec.Language())

	v, err := Get(book, "Title")
	require.NoError(t, err)
	assert.Equal(t, "The Hobbit", v)

	// Column name resolves to the same accessor.
	v, err = Get(book, "title")
	require.NoError(t, err)
	assert.Equal(t, "The Hobbit", v)
}

func TestGetSetUnknownField(t *testing.T) {
	book := &Book{}

	_, err := Get(book, "ISBN")
	assert.ErrorIs(t, err, ErrUnknownField)

	err = Set(book, "Nope", 1)
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestTranslate(t *testing.T) {
	book := &Book{}
	require.NoError(t, Set(book, "Title", "The Hobbit"))

	require.NoError(t, Translate(book, "tr"))

	code, err := LanguageCode(book)
	require.NoError(t, err)
	assert.Equal(t, "tr", code)

	// A fresh record: the previous language's values are not carried over.
	v, err := Get(book, "Title")
	require.NoError(t, err)
	assert.Equal(t, "", v)
}

func TestTranslateNormalizesCode(t *testing.T) {
	book := &Book{}
	require.NoError(t, Translate(book, "en-us"))

	code, err := LanguageCode(book)
	require.NoError(t, err)
	assert.Equal(t, "en-US", code)

	assert.Error(t, Translate(book, "not a code"))
}

func TestSetActiveTranslation(t *testing.T) {
	book := &Book{}
	rec := bookSchema.NewRecord("de")
	SetActiveTranslation(book, rec)
	assert.Same(t, rec, ActiveTranslation(book))

	SetActiveTranslation(book, nil)
	assert.Nil(t, ActiveTranslation(book))
}
