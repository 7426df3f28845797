package translation

import (
	"encoding/gob"
	"reflect"
	"sort"
	"sync"

	gormschema "gorm.io/gorm/schema"
)

// The registry is written once per type at registration time and read-only
// afterwards, mirroring the structural immutability of the schemas it holds.
var (
	registryMu sync.RWMutex
	schemas    = map[reflect.Type]*Schema{}          // shared struct type -> schema
	byName     = map[string]reflect.Type{}           // "<Entity>Translation" -> record struct type
	fragments  = map[reflect.Type]reflect.Type{}     // shared fragment type -> translation fragment type
	parseCache = &sync.Map{}                         // gorm schema parse cache
	namer      = gormschema.NamingStrategy{IdentifierMaxLength: 64}
)

// SchemaOf returns the schema registered for the entity's type.
func SchemaOf(entity Translatable) (*Schema, error) {
	t := reflect.TypeOf(entity)
	if t == nil || t.Kind() != reflect.Ptr {
		return nil, ErrNotRegistered
	}
	registryMu.RLock()
	s, ok := schemas[t.Elem()]
	registryMu.RUnlock()
	if !ok {
		return nil, ErrNotRegistered
	}
	return s, nil
}

// Schemas returns every registered schema, ordered by entity name so that
// iteration (and anything derived from it, like migration order) is
// deterministic.
func Schemas() []*Schema {
	registryMu.RLock()
	out := make([]*Schema, 0, len(schemas))
	for _, s := range schemas {
		out = append(out, s)
	}
	registryMu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LookupTranslation resolves a synthesized translation type by its derived
// name, e.g. "BookTranslation". Serialization code that works from qualified
// names uses this; the same types are also registered with encoding/gob
// under their package-qualified names.
func LookupTranslation(name string) (reflect.Type, bool) {
	registryMu.RLock()
	t, ok := byName[name]
	registryMu.RUnlock()
	return t, ok
}

// RegisterFragment declares an abstract translatable base: a reusable pair
// of struct fragments, one for the shared side and one for the translated
// side. A concrete entity inherits the fragment's translated fields by
// embedding sharedFragment in its shared struct and translationFragment in
// its translation prototype; synthesis verifies both embeds are present.
// Fragments contribute fields only, never tables, linkage or language
// columns.
func RegisterFragment(sharedFragment, translationFragment any) error {
	st, err := structTypeOf(sharedFragment)
	if err != nil {
		return configErr("fragment", "shared fragment: %v", err)
	}
	tt, err := structTypeOf(translationFragment)
	if err != nil {
		return configErr(st.Name(), "translation fragment: %v", err)
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := fragments[st]; ok {
		return configErr(st.Name(), "fragment is already registered")
	}
	fragments[st] = tt
	return nil
}

// MustRegisterFragment is like RegisterFragment but panics on error, for use
// in package initialization.
func MustRegisterFragment(sharedFragment, translationFragment any) {
	if err := RegisterFragment(sharedFragment, translationFragment); err != nil {
		panic(err)
	}
}

func structTypeOf(v any) (reflect.Type, error) {
	t := reflect.TypeOf(v)
	if t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, ErrNotRegistered
	}
	return t, nil
}

// registerTranslationType records the synthesized type under its derived
// name and with encoding/gob under the package-qualified name, so instances
// survive qualified-name round-trips through gob-based session or cache
// layers.
func registerTranslationType(pkgPath, name string, recordType reflect.Type) {
	registryMu.Lock()
	byName[name] = recordType
	registryMu.Unlock()
	gob.RegisterName(pkgPath+"."+name, reflect.New(recordType).Elem().Interface())
}
