package services

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"polyglot.link/translation"
)

type Product struct {
	ID uint `gorm:"primarykey"`
	translation.Model
	Price int
}

func (p *Product) TranslatedFields() translation.TranslatedFields {
	return translation.TranslatedFields{Prototype: &ProductTranslation{}}
}

type ProductTranslation struct {
	translation.TranslationModel
	Name string `gorm:"size:255"`
}

var _ = translation.MustRegister(&Product{})

func newProductService(t *testing.T) (*TranslatableService[Product, *Product], sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Discard,
	})
	require.NoError(t, err)

	svc, err := NewTranslatableService[Product, *Product](db)
	require.NoError(t, err)
	return svc, mock
}

func TestServiceCreate(t *testing.T) {
	svc, mock := newProductService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "products"`).
		WithArgs(100).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	mock.ExpectQuery(`INSERT INTO "products_translation"`).
		WithArgs(5, "en", "Lamp").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
	mock.ExpectCommit()

	product, err := svc.Create(context.Background(), map[string]any{
		"Price":         100,
		"Name":          "Lamp",
		"language_code": "en",
	})
	require.NoError(t, err)
	assert.Equal(t, uint(5), product.ID)

	name, err := translation.Get(product, "Name")
	require.NoError(t, err)
	assert.Equal(t, "Lamp", name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceCreateInvalidInput(t *testing.T) {
	svc, _ := newProductService(t)

	_, err := svc.Create(context.Background(), map[string]any{"Bogus": 1})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestServiceGetNotFound(t *testing.T) {
	svc, mock := newProductService(t)

	mock.ExpectQuery(`SELECT \* FROM "products" WHERE`).
		WillReturnError(gorm.ErrRecordNotFound)

	_, err := svc.Get(context.Background(), 404, "en")
	assert.ErrorIs(t, err, ErrEntityNotFound)
}

func TestServiceUpdateSharedField(t *testing.T) {
	svc, mock := newProductService(t)
	product := &Product{ID: 5, Price: 120}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "products" SET "price"=\$1 WHERE`).
		WithArgs(120, 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, svc.Update(context.Background(), product, "Price"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceAddTranslation(t *testing.T) {
	svc, mock := newProductService(t)
	product := &Product{ID: 5}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "products_translation"`).
		WithArgs(5, "de", "Lampe").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
	mock.ExpectCommit()

	err := svc.AddTranslation(context.Background(), product, "de", map[string]any{"Name": "Lampe"})
	require.NoError(t, err)

	code, err := translation.LanguageCode(product)
	require.NoError(t, err)
	assert.Equal(t, "de", code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceAddTranslationInvalidLanguage(t *testing.T) {
	svc, _ := newProductService(t)

	err := svc.AddTranslation(context.Background(), &Product{ID: 5}, "not a code", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestServiceDelete(t *testing.T) {
	svc, mock := newProductService(t)
	product := &Product{ID: 5}

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "products_translation" WHERE master_id = \$1`).
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM "products" WHERE`).
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, svc.Delete(context.Background(), product))
	assert.NoError(t, mock.ExpectationsWereMet())
}
