package repositories

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"polyglot.link/configs/configslog"
	"polyglot.link/translation"
)

// translatableEntity constrains PT to "pointer to T that is translatable".
type translatableEntity[T any] interface {
	*T
	translation.Translatable
}

// ITranslatableRepository is the query surface of a translatable entity:
// the place where loaded shared entities get their active translation
// attached.
type ITranslatableRepository[T any, PT translatableEntity[T]] interface {
	FindByID(ctx context.Context, id uint) (PT, error)
	FindByIDInLanguage(ctx context.Context, id uint, language string) (PT, error)
	List(ctx context.Context, language string, limit, offset int) ([]PT, error)
	Save(ctx context.Context, entity PT, updateFields ...string) error
	Delete(ctx context.Context, entity PT) error
	DeleteTranslation(ctx context.Context, entity PT, language string) error
	AttachTranslation(ctx context.Context, entity translation.Translatable, language string) error
	Count(ctx context.Context) (int64, error)
}

// TranslatableRepository implements ITranslatableRepository on top of the
// translation schema registered for T. Constructing one installs it as the
// entity's default manager, which is what Schema.Check expects to find.
type TranslatableRepository[T any, PT translatableEntity[T]] struct {
	db     *gorm.DB
	schema *translation.Schema
	base   *BaseRepository[T]
}

// NewTranslatableRepository creates the repository for T. T must have been
// registered with translation.Register first.
func NewTranslatableRepository[T any, PT translatableEntity[T]](db *gorm.DB) (*TranslatableRepository[T, PT], error) {
	var zero T
	s, err := translation.SchemaOf(PT(&zero))
	if err != nil {
		return nil, err
	}
	r := &TranslatableRepository[T, PT]{db: db, schema: s, base: NewBaseRepository[T](db)}
	s.UseManager(r)
	return r, nil
}

// Schema returns the translation schema the repository serves.
func (r *TranslatableRepository[T, PT]) Schema() *translation.Schema { return r.schema }

func (r *TranslatableRepository[T, PT]) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return r.db.WithContext(ctx)
}

// FindByID loads the shared record only. No translation is attached; the
// entity behaves exactly like one rehydrated with the no-translation
// sentinel until AttachTranslation runs.
func (r *TranslatableRepository[T, PT]) FindByID(ctx context.Context, id uint) (PT, error) {
	var entity T
	err := r.getDB(ctx).First(&entity, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, r.schema.NotFound()
		}
		configslog.Log.Error("TranslatableRepository.FindByID: DB error",
			zap.String("entity", r.schema.Name), zap.Uint("id", id), zap.Error(err))
		return nil, err
	}
	return PT(&entity), nil
}

// FindByIDInLanguage loads the shared record and attaches its translation
// for the given language, falling back to any existing language when the
// requested one is missing. The composite not-found error is returned when
// the shared row is missing or the entity has no translations at all.
func (r *TranslatableRepository[T, PT]) FindByIDInLanguage(ctx context.Context, id uint, language string) (PT, error) {
	entity, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.AttachTranslation(ctx, entity, language); err != nil {
		if !errors.Is(err, translation.ErrNotFound) {
			return nil, err
		}
		if err := r.attachAnyTranslation(ctx, entity); err != nil {
			return nil, err
		}
		if code, cerr := translation.LanguageCode(entity); cerr == nil {
			configslog.SLog.Debugf("%s %d has no %q translation, using %q",
				r.schema.Name, id, language, code)
		}
	}
	return entity, nil
}

// AttachTranslation resolves the translation row for (entity, language) and
// makes it the entity's active translation. Implements translation.Manager.
func (r *TranslatableRepository[T, PT]) AttachTranslation(ctx context.Context, entity translation.Translatable, language string) error {
	pk, err := r.schema.PrimaryKey(entity)
	if err != nil {
		return err
	}
	if pk == 0 {
		return fmt.Errorf("translation: cannot attach a translation to an unsaved %s", r.schema.Name)
	}
	rec := r.schema.NewRecord("")
	err = r.getDB(ctx).Table(r.schema.Table).
		Where("master_id = ? AND language_code = ?", pk, language).
		First(rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return r.schema.NotFound()
		}
		return err
	}
	translation.SetActiveTranslation(entity, rec)
	return nil
}

// attachAnyTranslation attaches the first translation of the entity in
// language-code order, or fails with the composite not-found error.
func (r *TranslatableRepository[T, PT]) attachAnyTranslation(ctx context.Context, entity translation.Translatable) error {
	pk, err := r.schema.PrimaryKey(entity)
	if err != nil {
		return err
	}
	rec := r.schema.NewRecord("")
	err = r.getDB(ctx).Table(r.schema.Table).
		Where("master_id = ?", pk).
		Order("language_code").
		First(rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return r.schema.NotFound()
		}
		return err
	}
	translation.SetActiveTranslation(entity, rec)
	return nil
}

// List loads entities that have a translation in the given language, with
// that translation attached, ordered by the schema's default ordering.
func (r *TranslatableRepository[T, PT]) List(ctx context.Context, language string, limit, offset int) ([]PT, error) {
	db := r.getDB(ctx)
	join := fmt.Sprintf("JOIN %s ON %s.master_id = %s.id AND %s.language_code = ?",
		r.schema.Table, r.schema.Table, r.schema.SharedTable, r.schema.Table)

	var rows []T
	query := db.Model(new(T)).
		Joins(join, language).
		Select(r.schema.SharedTable + ".*")
	if clause := r.orderClause(); clause != "" {
		query = query.Order(clause)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&rows).Error; err != nil {
		configslog.Log.Error("TranslatableRepository.List: DB error",
			zap.String("entity", r.schema.Name), zap.String("language", language), zap.Error(err))
		return nil, err
	}

	entities := make([]PT, len(rows))
	ids := make([]uint, 0, len(rows))
	for i := range rows {
		entities[i] = PT(&rows[i])
		if pk, err := r.schema.PrimaryKey(entities[i]); err == nil && pk != 0 {
			ids = append(ids, pk)
		}
	}
	if len(ids) == 0 {
		return entities, nil
	}

	// Second query instead of scanning the join twice; records land in a
	// slice of the synthesized record type.
	recSlice := reflect.New(reflect.SliceOf(r.schema.RecordType()))
	err := db.Table(r.schema.Table).
		Where("master_id IN ? AND language_code = ?", ids, language).
		Find(recSlice.Interface()).Error
	if err != nil {
		return nil, err
	}
	byMaster := map[uint]translation.Record{}
	slice := recSlice.Elem()
	for i := 0; i < slice.Len(); i++ {
		rec := slice.Index(i).Addr().Interface().(translation.Record)
		if master := rec.Master(); master != nil {
			byMaster[*master] = rec
		}
	}
	for _, entity := range entities {
		if pk, err := r.schema.PrimaryKey(entity); err == nil {
			if rec, ok := byMaster[pk]; ok {
				translation.SetActiveTranslation(entity, rec)
			}
		}
	}
	return entities, nil
}

// orderClause renders the schema's default ordering, qualifying each column
// with the table it lives in.
func (r *TranslatableRepository[T, PT]) orderClause() string {
	var parts []string
	for _, entry := range r.schema.Ordering {
		desc := strings.HasPrefix(entry, "-")
		name := strings.TrimPrefix(entry, "-")
		if name == "?" || strings.Contains(name, "__") {
			continue
		}
		var column string
		switch {
		case name == "language_code" || name == "LanguageCode":
			column = r.schema.Table + ".language_code"
		case r.schema.HasField(name):
			cols, err := r.schema.TranslationColumns([]string{name})
			if err != nil {
				continue
			}
			column = r.schema.Table + "." + cols[0]
		default:
			cols, err := r.schema.SharedColumns([]string{name})
			if err != nil {
				continue
			}
			column = r.schema.SharedTable + "." + cols[0]
		}
		if desc {
			column += " DESC"
		}
		parts = append(parts, column)
	}
	return strings.Join(parts, ", ")
}

// Save persists the entity and its active translation atomically. An
// explicit update-field list restricts the write on both sides, partitioned
// by field membership.
func (r *TranslatableRepository[T, PT]) Save(ctx context.Context, entity PT, updateFields ...string) error {
	var opts []translation.SaveOption
	if len(updateFields) > 0 {
		opts = append(opts, translation.WithUpdateFields(updateFields...))
	}
	return translation.Save(ctx, r.getDB(ctx), entity, opts...)
}

// Delete removes the shared record and its translations in one transaction.
// The foreign key cascades on engines that enforce it; the explicit
// translation delete keeps the pair consistent on ones that do not.
func (r *TranslatableRepository[T, PT]) Delete(ctx context.Context, entity PT) error {
	pk, err := r.schema.PrimaryKey(entity)
	if err != nil {
		return err
	}
	if pk == 0 {
		return fmt.Errorf("translation: cannot delete an unsaved %s", r.schema.Name)
	}
	db := r.getDB(ctx)
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Table(r.schema.Table).
			Where("master_id = ?", pk).
			Delete(r.schema.NewRecord("")).Error; err != nil {
			return err
		}
		if err := tx.Delete(entity).Error; err != nil {
			return err
		}
		translation.SetActiveTranslation(entity, nil)
		return nil
	})
}

// DeleteTranslation removes one language's translation row. The active
// translation slot is cleared when it was serving that language.
func (r *TranslatableRepository[T, PT]) DeleteTranslation(ctx context.Context, entity PT, language string) error {
	pk, err := r.schema.PrimaryKey(entity)
	if err != nil {
		return err
	}
	result := r.getDB(ctx).Table(r.schema.Table).
		Where("master_id = ? AND language_code = ?", pk, language).
		Delete(r.schema.NewRecord(""))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.schema.NotFound()
	}
	if code, err := translation.LanguageCode(entity); err == nil && code == language {
		translation.SetActiveTranslation(entity, nil)
	}
	return nil
}

// Count returns the number of shared records.
func (r *TranslatableRepository[T, PT]) Count(ctx context.Context) (int64, error) {
	return r.base.Count(ctx)
}
