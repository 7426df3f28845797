package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndexSQL(t *testing.T) {
	assert.Equal(t,
		`CREATE UNIQUE INDEX IF NOT EXISTS pages_translation_uniq_0 ON pages_translation (slug, language_code)`,
		uniqueIndexSQL("pages_translation", 0, []string{"slug", "language_code"}))
	assert.Equal(t,
		`CREATE INDEX IF NOT EXISTS pages_idx_1 ON pages (created_at)`,
		indexSQL("pages", 1, []string{"created_at"}))
}
