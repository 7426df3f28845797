package translation

import (
	"context"
	"fmt"
	"reflect"

	gormschema "gorm.io/gorm/schema"
)

// accessor forwards reads and writes of one translated field to the active
// translation record. The underlying gorm field carries typed getters and
// setters resolved at registration time.
type accessor struct {
	name   string
	column string
	field  *gormschema.Field
}

// Get returns the value of a translated field from the entity's active
// translation. It returns ErrNoTranslation when no translation is attached,
// the documented signal for "not loaded" (rehydrated entities stay
// translation-less until the query layer attaches one).
func Get(entity Translatable, name string) (any, error) {
	s, err := SchemaOf(entity)
	if err != nil {
		return nil, err
	}
	acc, ok := s.accessors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, s.Name, name)
	}
	rec := entity.modelState().active
	if rec == nil {
		return nil, fmt.Errorf("%w: %s.%s", ErrNoTranslation, s.Name, name)
	}
	v, _ := acc.field.ValueOf(context.Background(), reflect.Indirect(reflect.ValueOf(rec)))
	return v, nil
}

// Set writes a translated field on the entity's active translation. When no
// translation is attached, an unsaved one is created lazily for the ambient
// default language.
func Set(entity Translatable, name string, value any) error {
	s, err := SchemaOf(entity)
	if err != nil {
		return err
	}
	acc, ok := s.accessors[name]
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownField, s.Name, name)
	}
	m := entity.modelState()
	if m.active == nil {
		m.active = s.NewRecord(CurrentLanguage(context.Background()))
	}
	return acc.field.Set(context.Background(), reflect.ValueOf(m.active).Elem(), value)
}

// LanguageCode returns the language of the entity's active translation.
// There is deliberately no setter: which translation is active is governed
// by Translate and the query layer, not by assigning a code.
func LanguageCode(entity Translatable) (string, error) {
	rec := entity.modelState().active
	if rec == nil {
		return "", ErrNoTranslation
	}
	return rec.Language(), nil
}

// Translate attaches a brand-new, unsaved translation record for the given
// language, replacing whatever translation was active. It does not check
// whether a row for that language already exists; it is a construction
// helper, not an upsert.
func Translate(entity Translatable, code string) error {
	s, err := SchemaOf(entity)
	if err != nil {
		return err
	}
	normalized, err := NormalizeLanguage(code)
	if err != nil {
		return err
	}
	entity.modelState().active = s.NewRecord(normalized)
	return nil
}
