package translation

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Manager is the contract a default query entry point must satisfy for the
// entity to be translation-aware: given a loaded shared entity, it can
// resolve and attach the translation record for a language. Package
// repositories provides the standard implementation.
type Manager interface {
	AttachTranslation(ctx context.Context, entity Translatable, language string) error
}

// Check runs the static analysis over the finalized schema. Findings are
// collected and returned as a batch, never raised, so every problem on an
// entity is reported together. An empty result means the schema is sound.
func (s *Schema) Check() []CheckError {
	var errs []CheckError
	errs = append(errs, s.checkSharedTranslatedClash()...)
	errs = append(errs, s.checkManagerTranslationAware()...)
	errs = append(errs, s.checkLocalConstraints()...)
	errs = append(errs, s.checkOrdering()...)
	return errs
}

// checkSharedTranslatedClash reports every field name or column that
// appears on both sides of the split. Identity and linkage are exempt;
// everything else, language code included, makes attribute resolution
// ambiguous.
func (s *Schema) checkSharedTranslatedClash() []CheckError {
	shared := map[string]bool{}
	for _, f := range s.shared.Fields {
		shared[f.Name] = true
		if f.DBName != "" {
			shared[f.DBName] = true
		}
	}

	translated := map[string]bool{"language_code": true, "LanguageCode": true}
	for _, f := range s.record.Fields {
		if f == s.record.PrioritizedPrimaryField || f.DBName == "master_id" {
			continue
		}
		translated[f.Name] = true
		if f.DBName != "" {
			translated[f.DBName] = true
		}
	}

	clashes := map[string]bool{}
	for name := range translated {
		if shared[name] {
			// A field and its column both clash; report the column form once.
			clashes[strings.ToLower(name)] = true
		}
	}
	names := make([]string, 0, len(clashes))
	for name := range clashes {
		names = append(names, name)
	}
	sort.Strings(names)

	errs := make([]CheckError, 0, len(names))
	for _, name := range names {
		errs = append(errs, CheckError{
			ID:      "translation.E001",
			Object:  s.Name,
			Field:   name,
			Message: fmt.Sprintf("translated field %q clashes with untranslated field", name),
		})
	}
	return errs
}

// checkManagerTranslationAware guarantees query results are translation
// joined by default: the installed default manager must implement Manager.
func (s *Schema) checkManagerTranslationAware() []CheckError {
	if _, ok := s.manager.(Manager); ok {
		return nil
	}
	return []CheckError{{
		ID:     "translation.E002",
		Object: s.Name,
		Message: "the default manager of a translatable entity must be translation-aware; " +
			"install one with UseManager",
	}}
}

// checkLocalConstraints validates the shared-side constraint sets. Fields
// the translation schema recognizes are excluded first: they are validated
// against the translation schema, not the shared one.
func (s *Schema) checkLocalConstraints() []CheckError {
	var errs []CheckError
	check := func(option string, sets [][]string) {
		for _, set := range sets {
			for _, name := range s.SharedLocalFields(set) {
				if s.sharedField(name) != nil {
					continue
				}
				errs = append(errs, CheckError{
					ID:      "translation.E004",
					Object:  s.Name,
					Field:   name,
					Message: fmt.Sprintf("%q refers to the non-existent field %q", option, name),
				})
			}
		}
	}
	check("UniqueTogether", s.SharedUnique)
	check("IndexTogether", s.SharedIndexes)
	return errs
}

// checkOrdering resolves every default-ordering entry against the shared
// and translation schemas. Sort direction and the random marker are
// stripped first; path expressions are left to the query layer. Linkage and
// language code are bookkeeping, not declared fields, so neither is a valid
// ordering entry.
func (s *Schema) checkOrdering() []CheckError {
	var errs []CheckError
	for _, entry := range s.Ordering {
		name := strings.TrimPrefix(entry, "-")
		if name == "?" || name == "pk" || name == "_order" || strings.Contains(name, "__") {
			continue
		}
		if s.sharedField(name) != nil || s.HasField(name) {
			continue
		}
		errs = append(errs, CheckError{
			ID:      "translation.E003",
			Object:  s.Name,
			Field:   name,
			Message: fmt.Sprintf("'ordering' refers to the non-existent field %q", name),
		})
	}
	return errs
}
