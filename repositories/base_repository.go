package repositories

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"polyglot.link/configs/configslog"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("repositories: record not found")

type txKey struct{}

// ContextWithTx returns a context carrying an open transaction. Repository
// methods called with it join the transaction instead of using their own
// connection; services use this to span one transaction across several
// repositories.
func ContextWithTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext extracts the transaction carried by ctx, if any.
func TxFromContext(ctx context.Context) (*gorm.DB, bool) {
	tx, ok := ctx.Value(txKey{}).(*gorm.DB)
	return tx, ok && tx != nil
}

// IBaseRepository is the generic CRUD surface shared by all repositories.
type IBaseRepository[T any] interface {
	FindByID(ctx context.Context, id uint) (*T, error)
	Create(ctx context.Context, entity *T) error
	Update(ctx context.Context, entity *T) error
	Delete(ctx context.Context, entity *T) error
	Count(ctx context.Context) (int64, error)
}

// BaseRepository implements IBaseRepository for any model type.
type BaseRepository[T any] struct {
	db                 *gorm.DB
	allowedSortColumns map[string]bool
}

// NewBaseRepository creates a BaseRepository bound to db.
func NewBaseRepository[T any](db *gorm.DB) *BaseRepository[T] {
	return &BaseRepository[T]{db: db, allowedSortColumns: map[string]bool{}}
}

// SetAllowedSortColumns whitelists the columns List-style queries may order
// by. Anything else falls back to the caller's default.
func (r *BaseRepository[T]) SetAllowedSortColumns(columns []string) {
	r.allowedSortColumns = make(map[string]bool, len(columns))
	for _, col := range columns {
		r.allowedSortColumns[col] = true
	}
}

// OrderColumn returns requested when it is whitelisted, fallback otherwise.
func (r *BaseRepository[T]) OrderColumn(requested, fallback string) string {
	if r.allowedSortColumns[requested] {
		return requested
	}
	if requested != "" {
		configslog.SLog.Warnf("Rejected sort column %q, falling back to %q", requested, fallback)
	}
	return fallback
}

// getDB returns the transaction carried by ctx when there is one, the
// repository's own connection otherwise.
func (r *BaseRepository[T]) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return r.db.WithContext(ctx)
}

// FindByID loads one record by primary key.
func (r *BaseRepository[T]) FindByID(ctx context.Context, id uint) (*T, error) {
	var entity T
	err := r.getDB(ctx).First(&entity, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		configslog.Log.Error("BaseRepository.FindByID: DB error", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}
	return &entity, nil
}

// Create inserts a record.
func (r *BaseRepository[T]) Create(ctx context.Context, entity *T) error {
	return r.getDB(ctx).Create(entity).Error
}

// Update persists every field of an existing record.
func (r *BaseRepository[T]) Update(ctx context.Context, entity *T) error {
	return r.getDB(ctx).Save(entity).Error
}

// Delete removes a record (soft delete when the model supports it).
func (r *BaseRepository[T]) Delete(ctx context.Context, entity *T) error {
	result := r.getDB(ctx).Delete(entity)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of records of the model type.
func (r *BaseRepository[T]) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.getDB(ctx).Model(new(T)).Count(&count).Error
	return count, err
}

var _ IBaseRepository[struct{}] = (*BaseRepository[struct{}])(nil)
