package translation

import (
	"context"
	"reflect"
	"strings"

	gormschema "gorm.io/gorm/schema"
)

// forbiddenTranslatedFields are reserved for schema metadata and linkage.
var forbiddenTranslatedFields = map[string]bool{
	"meta":      true,
	"objects":   true,
	"master":    true,
	"master_id": true,
}

// internalUnique is the bookkeeping uniqueness pair appended to every
// concrete translation schema. It is enforced by the store, not by pre-save
// validation queries.
var internalUnique = []string{"language_code", "master_id"}

var translatableType = reflect.TypeOf((*Translatable)(nil)).Elem()

// Schema is the synthesized translation schema of one shared entity type.
// It is created once, at registration time, and is structurally immutable
// afterwards (UseManager installs the default query entry point, which is
// data, not structure).
type Schema struct {
	// Name is the shared entity's type name, e.g. "Book".
	Name string

	// TranslationName is the synthesized type name, e.g. "BookTranslation".
	TranslationName string

	// SharedTable and Table are the storage names of the two record types.
	SharedTable string
	Table       string

	// Partitioned constraint sets. TranslatedUnique always ends with the
	// internal (language_code, master_id) pair.
	SharedUnique      [][]string
	TranslatedUnique  [][]string
	SharedIndexes     [][]string
	TranslatedIndexes [][]string

	// Ordering is the entity's declared default ordering, validated by Check.
	Ordering []string

	// InheritedFields names the translated fields contributed by embedded
	// fragments rather than declared directly on the prototype.
	InheritedFields []string

	sharedType reflect.Type
	recordType reflect.Type
	shared     *gormschema.Schema
	record     *gormschema.Schema
	accessors  map[string]*accessor
	fieldOrder []string
	manager    any
}

// Register synthesizes the translation schema for entity and records it in
// the registry. It fails with a *ConfigError on any invalid declaration:
// forbidden field names, a duplicate registration, mixed constraints, or
// concrete multi-table inheritance. Registration happens once per type,
// normally during package initialization; see MustRegister.
func Register(entity Translatable) (*Schema, error) {
	t := reflect.TypeOf(entity)
	if t == nil || t.Kind() != reflect.Ptr || t.Elem().Kind() != reflect.Struct {
		return nil, configErr("entity", "shared entity must be a non-nil struct pointer")
	}
	st := t.Elem()
	name := st.Name()

	registryMu.RLock()
	_, dup := schemas[st]
	registryMu.RUnlock()
	if dup {
		return nil, configErr(name, "a translatable entity can only define one set of translated fields, %s defines more than one", name)
	}

	tf := entity.TranslatedFields()
	if tf.Prototype == nil {
		return nil, configErr(name, "no translated fields found, translatable entities must declare a translation prototype")
	}
	rt := reflect.TypeOf(tf.Prototype)
	if rt.Kind() != reflect.Ptr || rt.Elem().Kind() != reflect.Struct {
		return nil, configErr(name, "translation prototype must be a struct pointer")
	}
	rte := rt.Elem()

	inherited, err := scanBases(name, st, rte)
	if err != nil {
		return nil, err
	}

	ss, err := gormschema.Parse(entity, parseCache, namer)
	if err != nil {
		return nil, configErr(name, "parsing shared schema: %v", err)
	}
	rs, err := gormschema.Parse(tf.Prototype, parseCache, namer)
	if err != nil {
		return nil, configErr(name, "parsing translation schema: %v", err)
	}
	if err := checkForbiddenFields(name, rs); err != nil {
		return nil, err
	}

	s := &Schema{
		Name:            name,
		TranslationName: name + "Translation",
		SharedTable:     ss.Table,
		Table:           tf.Table,
		Ordering:        append([]string(nil), tf.Ordering...),
		InheritedFields: inherited,
		sharedType:      st,
		recordType:      rte,
		shared:          ss,
		record:          rs,
		accessors:       map[string]*accessor{},
	}
	if s.Table == "" {
		s.Table = ss.Table + "_translation"
	}

	// One accessor per translated field, bound to the field name and, when
	// distinct, to its column name. The mapping is validated here, once, so
	// attribute access never falls back to name resolution by reflection.
	for _, f := range rs.Fields {
		if f == rs.PrioritizedPrimaryField || f.DBName == "" ||
			f.DBName == "master_id" || f.DBName == "language_code" {
			continue
		}
		acc := &accessor{name: f.Name, column: f.DBName, field: f}
		s.accessors[f.Name] = acc
		if f.DBName != f.Name {
			s.accessors[f.DBName] = acc
		}
		s.fieldOrder = append(s.fieldOrder, f.DBName)
	}

	translated := map[string]bool{"language_code": true, "LanguageCode": true}
	for key := range s.accessors {
		translated[key] = true
	}
	s.SharedUnique, s.TranslatedUnique, err = splitTogether(name, "UniqueTogether", tf.UniqueTogether, translated)
	if err != nil {
		return nil, err
	}
	s.SharedIndexes, s.TranslatedIndexes, err = splitTogether(name, "IndexTogether", tf.IndexTogether, translated)
	if err != nil {
		return nil, err
	}
	s.TranslatedUnique = append(s.TranslatedUnique, internalUnique)

	registryMu.Lock()
	if _, ok := schemas[st]; ok {
		registryMu.Unlock()
		return nil, configErr(name, "a translatable entity can only define one set of translated fields, %s defines more than one", name)
	}
	schemas[st] = s
	registryMu.Unlock()

	registerTranslationType(st.PkgPath(), s.TranslationName, rte)
	return s, nil
}

// MustRegister is like Register but panics on error. Configuration errors
// cannot be deferred: a type carrying one is invalid, so failing during
// package initialization is the point.
func MustRegister(entity Translatable) *Schema {
	s, err := Register(entity)
	if err != nil {
		panic(err)
	}
	return s
}

// scanBases walks the shared struct's embedded bases in declaration order,
// rejecting concrete translatable bases and collecting translated fields
// inherited through registered fragments.
func scanBases(entityName string, st, rte reflect.Type) ([]string, error) {
	var inherited []string
	seen := map[reflect.Type]bool{}
	var walk func(t reflect.Type) error
	walk = func(t reflect.Type) error {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.Anonymous || f.Type.Kind() != reflect.Struct || seen[f.Type] {
				continue
			}
			seen[f.Type] = true
			if f.Type == reflect.TypeOf(Model{}) {
				continue
			}
			if reflect.PtrTo(f.Type).Implements(translatableType) {
				return configErr(entityName,
					"multi-table inheritance of translatable entities is not supported, concrete entity %s is not a valid base for %s",
					f.Type.Name(), entityName)
			}
			registryMu.RLock()
			frag, ok := fragments[f.Type]
			registryMu.RUnlock()
			if ok {
				if !embedsType(rte, frag) {
					return configErr(entityName,
						"translation prototype must embed %s to inherit the translated fields of %s",
						frag.Name(), f.Type.Name())
				}
				names, err := fragmentFieldNames(frag)
				if err != nil {
					return err
				}
				inherited = append(inherited, names...)
			}
			if err := walk(f.Type); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(st); err != nil {
		return nil, err
	}
	return inherited, nil
}

func embedsType(t, target reflect.Type) bool {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.Anonymous || f.Type.Kind() != reflect.Struct {
			continue
		}
		if f.Type == target || embedsType(f.Type, target) {
			return true
		}
	}
	return false
}

func fragmentFieldNames(frag reflect.Type) ([]string, error) {
	fs, err := gormschema.Parse(reflect.New(frag).Interface(), parseCache, namer)
	if err != nil {
		return nil, configErr(frag.Name(), "parsing fragment: %v", err)
	}
	names := make([]string, 0, len(fs.Fields))
	for _, f := range fs.Fields {
		if f.DBName != "" {
			names = append(names, f.DBName)
		}
	}
	return names, nil
}

func checkForbiddenFields(entity string, rs *gormschema.Schema) error {
	counts := map[string]int{}
	for _, f := range rs.Fields {
		counts[f.DBName]++
		if f == rs.PrioritizedPrimaryField || f.DBName == "master_id" || f.DBName == "language_code" {
			continue
		}
		if forbiddenTranslatedFields[strings.ToLower(f.Name)] || forbiddenTranslatedFields[f.DBName] {
			return configErr(entity, "invalid translated field %q, the name is reserved", f.Name)
		}
	}
	if counts["master_id"] > 1 {
		return configErr(entity, "invalid translated field, master_id is reserved for the linkage key")
	}
	if counts["language_code"] > 1 {
		return configErr(entity, "invalid translated field, language_code is declared more than once")
	}
	return nil
}

// NewRecord returns a fresh, unsaved translation record for the given
// language code. An empty code leaves the language unset.
func (s *Schema) NewRecord(code string) Record {
	rec := reflect.New(s.recordType).Interface().(Record)
	if code != "" {
		rec.SetLanguage(code)
	}
	return rec
}

// NewShared returns a fresh instance of the shared entity type as a
// Translatable.
func (s *Schema) NewShared() Translatable {
	return reflect.New(s.sharedType).Interface().(Translatable)
}

// RecordType returns the translation record struct type.
func (s *Schema) RecordType() reflect.Type { return s.recordType }

// Fields returns the translated field columns in declaration order,
// excluding identity, linkage and language code.
func (s *Schema) Fields() []string {
	return append([]string(nil), s.fieldOrder...)
}

// HasField reports whether name (field or column) is a translated field.
func (s *Schema) HasField(name string) bool {
	_, ok := s.accessors[name]
	return ok
}

// NotFound returns the schema's composite not-found error. It matches both
// translation.ErrNotFound and gorm.ErrRecordNotFound, whichever of the two
// rows was the missing one.
func (s *Schema) NotFound() error {
	return &NotFoundError{Entity: s.Name}
}

// UseManager installs the entity's default query entry point. Check reports
// an error unless the manager implements Manager.
func (s *Schema) UseManager(m any) { s.manager = m }

// Manager returns the installed default query entry point, if any.
func (s *Schema) Manager() any { return s.manager }

// PrimaryKey returns the shared entity's primary key value.
func (s *Schema) PrimaryKey(entity Translatable) (uint, error) {
	pf := s.shared.PrioritizedPrimaryField
	if pf == nil {
		return 0, configErr(s.Name, "shared entity has no primary key field")
	}
	v, zero := pf.ValueOf(context.Background(), reflect.Indirect(reflect.ValueOf(entity)))
	if zero {
		return 0, nil
	}
	switch n := v.(type) {
	case uint:
		return n, nil
	case uint32:
		return uint(n), nil
	case uint64:
		return uint(n), nil
	case int:
		return uint(n), nil
	case int32:
		return uint(n), nil
	case int64:
		return uint(n), nil
	}
	return 0, configErr(s.Name, "unsupported primary key type %T", v)
}

func (s *Schema) sharedField(name string) *gormschema.Field {
	if f, ok := s.shared.FieldsByName[name]; ok {
		return f
	}
	if f, ok := s.shared.FieldsByDBName[name]; ok {
		return f
	}
	return nil
}

// isVeto reports whether name belongs to the shared namespace regardless of
// the translation schema: identity and linkage names.
func (s *Schema) isVeto(name string) bool {
	if name == "master" || name == "master_id" {
		return true
	}
	if pf := s.shared.PrioritizedPrimaryField; pf != nil && (name == pf.Name || name == pf.DBName) {
		return true
	}
	if pf := s.record.PrioritizedPrimaryField; pf != nil && (name == pf.Name || name == pf.DBName) {
		return true
	}
	return name == "pk"
}

// SharedLocalFields filters out every name the translation schema
// recognizes, linkage included, leaving only the names the shared schema
// must account for. Host-side local-field validation runs on the result;
// translated fields are validated against the translation schema instead.
func (s *Schema) SharedLocalFields(fields []string) []string {
	out := make([]string, 0, len(fields))
	for _, name := range fields {
		if s.HasField(name) || name == "language_code" || name == "LanguageCode" ||
			name == "master" || name == "master_id" {
			continue
		}
		out = append(out, name)
	}
	return out
}

// SharedColumns resolves logical field names of a shared-side constraint to
// column names.
func (s *Schema) SharedColumns(fields []string) ([]string, error) {
	out := make([]string, 0, len(fields))
	for _, name := range fields {
		f := s.sharedField(name)
		if f == nil {
			return nil, configErr(s.Name, "unknown shared field %q", name)
		}
		out = append(out, f.DBName)
	}
	return out, nil
}

// TranslationColumns resolves logical field names of a translation-side
// constraint to column names.
func (s *Schema) TranslationColumns(fields []string) ([]string, error) {
	out := make([]string, 0, len(fields))
	for _, name := range fields {
		switch {
		case name == "language_code" || name == "LanguageCode":
			out = append(out, "language_code")
		case name == "master_id":
			out = append(out, name)
		default:
			acc, ok := s.accessors[name]
			if !ok {
				return nil, configErr(s.Name, "unknown translated field %q", name)
			}
			out = append(out, acc.column)
		}
	}
	return out, nil
}
