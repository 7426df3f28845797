package translation

// Model is embedded by every translatable shared entity. It owns the
// per-instance active translation slot: the translation record currently
// serving translated-attribute reads and writes. The slot is transient and
// process-local; it is replaced or cleared, never shared between instances,
// and never persisted with the shared row.
type Model struct {
	active   Record
	deferred []string
}

func (m *Model) modelState() *Model { return m }

// Record is implemented by translation record types, normally by embedding
// TranslationModel. A type may implement it directly instead, which is how a
// custom language-code field replaces the default one.
type Record interface {
	// RecordID returns the translation row's primary key, zero when unsaved.
	RecordID() uint

	// Master returns the linkage to the owning shared entity. It is nil only
	// transiently, before the first save.
	Master() *uint

	// SetMaster points the linkage at the owning shared entity.
	SetMaster(id uint)

	// Language returns the record's language code.
	Language() string

	// SetLanguage sets the record's language code.
	SetLanguage(code string)
}

// TranslationModel is the default base for translation record types. The
// (language_code, master_id) pair is unique per table; the uniqueness is
// internal bookkeeping and is excluded from pre-save validation queries.
type TranslationModel struct {
	ID           uint   `gorm:"primarykey"`
	MasterID     *uint  `gorm:"column:master_id;index"`
	LanguageCode string `gorm:"column:language_code;size:15;index"`
}

func (t *TranslationModel) RecordID() uint           { return t.ID }
func (t *TranslationModel) Master() *uint            { return t.MasterID }
func (t *TranslationModel) SetMaster(id uint)        { t.MasterID = &id }
func (t *TranslationModel) Language() string         { return t.LanguageCode }
func (t *TranslationModel) SetLanguage(code string)  { t.LanguageCode = code }

var _ Record = (*TranslationModel)(nil)

// Translatable is implemented by shared entity types: embed Model and
// declare the translated field set.
type Translatable interface {
	// TranslatedFields returns the entity's translation declaration.
	TranslatedFields() TranslatedFields

	modelState() *Model
}

// TranslatedFields declares the translated half of an entity. Exactly one
// declaration is allowed per shared entity type.
type TranslatedFields struct {
	// Prototype is a pointer to the translation record type, e.g.
	// &BookTranslation{}. Required.
	Prototype Record

	// Table overrides the synthesized translation table name. Defaults to
	// "<shared table>_translation".
	Table string

	// UniqueTogether lists composite uniqueness constraints over the logical
	// entity. Each constraint is assigned to the shared or the translation
	// schema by field membership; mixing both kinds in one constraint is a
	// configuration error.
	UniqueTogether [][]string

	// IndexTogether lists composite index constraints, partitioned the same
	// way as UniqueTogether.
	IndexTogether [][]string

	// Ordering is the entity's default ordering. Entries may reference
	// shared or translated fields and may carry a leading "-" for descending
	// order. Validated by Schema.Check.
	Ordering []string
}

type noTranslation struct{}

// NoTranslation, passed as the "language_code" value to Construct,
// suppresses translation attachment entirely. It is used when rehydrating an
// entity from storage, where translation attachment is the query layer's
// job.
var NoTranslation = noTranslation{}

// ActiveTranslation returns the translation record currently attached to
// entity, or nil when none is active.
func ActiveTranslation(entity Translatable) Record {
	return entity.modelState().active
}

// SetActiveTranslation replaces the entity's active translation. A nil rec
// clears the slot. Replacing an already attached record is safe and leaves
// no trace of the previous one.
func SetActiveTranslation(entity Translatable, rec Record) {
	entity.modelState().active = rec
}

// Deferred returns the columns that were absent when the entity was
// rehydrated via Hydrate and are therefore not loaded.
func Deferred(entity Translatable) []string {
	return entity.modelState().deferred
}
