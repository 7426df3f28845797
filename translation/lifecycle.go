package translation

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"gorm.io/gorm"
)

// Construct initializes a translatable entity from an attribute map,
// splitting the attributes between the shared and translated namespaces.
// Identity and linkage names, plus any name the translation schema does not
// recognize, go to the shared record; everything else goes to a newly
// attached, unsaved translation record.
//
// The initial language is the "language_code" attribute when present, the
// ambient language of ctx otherwise. Passing NoTranslation as the
// "language_code" value suppresses translation attachment entirely, in
// which case translated attributes are discarded.
func Construct(ctx context.Context, entity Translatable, attrs map[string]any) error {
	s, err := SchemaOf(entity)
	if err != nil {
		return err
	}
	shared := map[string]any{}
	translated := map[string]any{}
	suppress := false
	lang := ""
	for key, value := range attrs {
		if key == "language_code" || key == "LanguageCode" {
			if _, ok := value.(noTranslation); ok {
				suppress = true
				continue
			}
			code, ok := value.(string)
			if !ok {
				return fmt.Errorf("translation: language_code must be a string, got %T", value)
			}
			lang = code
			continue
		}
		if !s.isVeto(key) && s.HasField(key) {
			translated[key] = value
		} else {
			shared[key] = value
		}
	}

	rv := reflect.ValueOf(entity).Elem()
	for key, value := range shared {
		f := s.sharedField(key)
		if f == nil {
			return fmt.Errorf("%w: %s.%s", ErrUnknownField, s.Name, key)
		}
		if err := f.Set(ctx, rv, value); err != nil {
			return fmt.Errorf("translation: setting %s.%s: %w", s.Name, key, err)
		}
	}

	m := entity.modelState()
	if suppress {
		m.active = nil
		return nil
	}
	if lang == "" {
		lang = CurrentLanguage(ctx)
	}
	rec := s.NewRecord(lang)
	recv := reflect.ValueOf(rec).Elem()
	for key, value := range translated {
		if err := s.accessors[key].field.Set(ctx, recv, value); err != nil {
			return fmt.Errorf("translation: setting %s.%s: %w", s.TranslationName, key, err)
		}
	}
	m.active = rec
	return nil
}

// Hydrate rehydrates a shared entity from raw column values, positionally
// against the shared schema's column order. When fields lists a subset of
// the columns, values carries exactly those and the rest are recorded as
// deferred; a nil fields means every column is present. No translation is
// attached: attachment after a load is the query layer's job.
func Hydrate(entity Translatable, fields []string, values []any) error {
	s, err := SchemaOf(entity)
	if err != nil {
		return err
	}
	columns := s.shared.DBNames
	present := map[string]bool{}
	if fields == nil {
		if len(values) != len(columns) {
			return fmt.Errorf("translation: %s has %d columns, got %d values", s.Name, len(columns), len(values))
		}
		for _, col := range columns {
			present[col] = true
		}
	} else {
		if len(values) != len(fields) {
			return fmt.Errorf("translation: %d fields but %d values", len(fields), len(values))
		}
		for _, name := range fields {
			f := s.sharedField(name)
			if f == nil {
				return fmt.Errorf("%w: %s.%s", ErrUnknownField, s.Name, name)
			}
			present[f.DBName] = true
		}
	}

	rv := reflect.ValueOf(entity).Elem()
	i := 0
	var deferred []string
	for _, col := range columns {
		if !present[col] {
			deferred = append(deferred, col)
			continue
		}
		f := s.shared.FieldsByDBName[col]
		if err := f.Set(context.Background(), rv, values[i]); err != nil {
			return fmt.Errorf("translation: hydrating %s.%s: %w", s.Name, col, err)
		}
		i++
	}

	m := entity.modelState()
	m.deferred = deferred
	m.active = nil
	return nil
}

type saveConfig struct {
	updateFields []string
	hasUpdate    bool
}

// SaveOption configures Save.
type SaveOption func(*saveConfig)

// WithUpdateFields restricts Save to the named fields. The list is
// partitioned between the shared and translation schemas the same way
// construction attributes are.
func WithUpdateFields(fields ...string) SaveOption {
	return func(cfg *saveConfig) {
		cfg.updateFields = fields
		cfg.hasUpdate = true
	}
}

// Save persists the shared record and the active translation record
// atomically: both writes happen in one transaction, or neither is visible.
// Saving an entity with no active translation is legal and writes only the
// shared row. A brand-new translation record ignores any update-field
// restriction, since new rows cannot be partially inserted.
//
// db is the routed write handle for the entity. When db already carries an
// open transaction the writes join it instead of opening a nested one.
func Save(ctx context.Context, db *gorm.DB, entity Translatable, opts ...SaveOption) error {
	s, err := SchemaOf(entity)
	if err != nil {
		return err
	}
	var cfg saveConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	var supdate, tupdate []string
	if cfg.hasUpdate {
		supdate, tupdate = s.splitUpdateFields(cfg.updateFields)
	}
	rec := entity.modelState().active

	return runInTransaction(db.WithContext(ctx), func(tx *gorm.DB) error {
		if !cfg.hasUpdate || len(supdate) > 0 {
			if cfg.hasUpdate {
				if err := tx.Model(entity).Select(supdate).Updates(entity).Error; err != nil {
					return err
				}
			} else if err := tx.Save(entity).Error; err != nil {
				return err
			}
		}
		if (!cfg.hasUpdate || len(tupdate) > 0) && rec != nil {
			restricted := cfg.hasUpdate
			if rec.RecordID() == 0 {
				restricted = false
			}
			pk, err := s.PrimaryKey(entity)
			if err != nil {
				return err
			}
			rec.SetMaster(pk)
			switch {
			case restricted:
				if err := tx.Table(s.Table).Model(rec).Select(tupdate).Updates(rec).Error; err != nil {
					return err
				}
			case rec.RecordID() == 0:
				if err := tx.Table(s.Table).Create(rec).Error; err != nil {
					return err
				}
			default:
				if err := tx.Table(s.Table).Save(rec).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// splitUpdateFields partitions an explicit update-field list: veto names and
// names unknown to the translation schema go to the shared record, the rest
// to the translation record.
func (s *Schema) splitUpdateFields(fields []string) (shared, translated []string) {
	for _, name := range fields {
		if !s.isVeto(name) && s.HasField(name) {
			translated = append(translated, name)
		} else {
			shared = append(shared, name)
		}
	}
	return shared, translated
}

// runInTransaction opens a transaction unless db already carries one, in
// which case the work composes with the ambient transaction rather than
// opening a savepoint. Save is expected to be the outermost boundary.
func runInTransaction(db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if _, ok := db.Statement.ConnPool.(gorm.TxCommitter); ok {
		return fn(db)
	}
	return db.Transaction(fn)
}

// ValidateUnique runs pre-save uniqueness probes for the partitioned unique
// constraint sets, on both the shared values and the active translation's
// values. The internal (language_code, master_id) pair is skipped: the way
// translations are loaded makes checking it a useless query, and the store
// enforces it anyway.
func ValidateUnique(ctx context.Context, db *gorm.DB, entity Translatable) error {
	s, err := SchemaOf(entity)
	if err != nil {
		return err
	}
	rv := reflect.Indirect(reflect.ValueOf(entity))
	for _, set := range s.SharedUnique {
		query := db.WithContext(ctx).Table(s.SharedTable)
		for _, name := range set {
			f := s.sharedField(name)
			if f == nil {
				return fmt.Errorf("%w: %s.%s", ErrUnknownField, s.Name, name)
			}
			v, _ := f.ValueOf(ctx, rv)
			query = query.Where(fmt.Sprintf("%s = ?", f.DBName), v)
		}
		if pk, _ := s.PrimaryKey(entity); pk != 0 {
			query = query.Where("id <> ?", pk)
		}
		var count int64
		if err := query.Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: %s (%s)", ErrDuplicate, s.SharedTable, strings.Join(set, ", "))
		}
	}

	rec := entity.modelState().active
	if rec == nil {
		return nil
	}
	recv := reflect.Indirect(reflect.ValueOf(rec))
	for _, set := range s.TranslatedUnique {
		if isInternalPair(set) {
			continue
		}
		query := db.WithContext(ctx).Table(s.Table)
		for _, name := range set {
			switch {
			case name == "language_code" || name == "LanguageCode":
				query = query.Where("language_code = ?", rec.Language())
			case name == "master_id":
				query = query.Where("master_id = ?", rec.Master())
			default:
				acc := s.accessors[name]
				v, _ := acc.field.ValueOf(ctx, recv)
				query = query.Where(fmt.Sprintf("%s = ?", acc.column), v)
			}
		}
		if rec.RecordID() != 0 {
			query = query.Where("id <> ?", rec.RecordID())
		}
		var count int64
		if err := query.Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: %s (%s)", ErrDuplicate, s.Table, strings.Join(set, ", "))
		}
	}
	return nil
}

func isInternalPair(set []string) bool {
	if len(set) != len(internalUnique) {
		return false
	}
	for i := range set {
		if set[i] != internalUnique[i] {
			return false
		}
	}
	return true
}
