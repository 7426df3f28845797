// Package translation splits a GORM-persisted business entity into one
// shared record holding its language-independent columns and any number of
// translation records, one per language, linked back to the shared record by
// a cascading foreign key. Consumers keep working with what looks like a
// single entity; the split is transparent.
//
// # Declaring a translatable entity
//
// A shared entity embeds [Model] and declares its translated fields through a
// prototype record embedding [TranslationModel]:
//
//	type Book struct {
//	    translation.Model
//	    ID     uint `gorm:"primarykey"`
//	    Author string
//	}
//
//	type BookTranslation struct {
//	    translation.TranslationModel
//	    Title    string `gorm:"size:255"`
//	    Abstract string `gorm:"type:text"`
//	}
//
//	func (b *Book) TranslatedFields() translation.TranslatedFields {
//	    return translation.TranslatedFields{Prototype: &BookTranslation{}}
//	}
//
//	var bookSchema = translation.MustRegister(&Book{})
//
// Registration synthesizes the translation schema: it derives the
// translation table name from the shared table, validates field names,
// partitions composite constraints between the two schemas, and builds the
// per-field accessor mapping used by [Get], [Set] and [LanguageCode].
//
// # Lifecycle
//
// [Construct] splits attribute maps between the two namespaces, [Translate]
// attaches a fresh unsaved translation for a language, and [Save] persists
// the shared and translation rows atomically inside one transaction.
// Entities loaded straight from storage carry no active translation; the
// query layer (see package repositories) attaches one.
//
// # Errors
//
//   - [ConfigError] - invalid declaration, raised at registration time
//   - [CheckError] - non-fatal findings collected by [Schema.Check]
//   - [ErrNoTranslation] - attribute access with no active translation
//   - [ErrNotFound] - shared or translation row missing; the schema's
//     [NotFoundError] matches both this and gorm.ErrRecordNotFound
package translation
