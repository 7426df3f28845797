package translation

import (
	"context"
	"fmt"

	"golang.org/x/text/language"
)

// DefaultLanguage is the language code used when neither the context nor the
// caller provides one.
var DefaultLanguage = "en"

type languageKey struct{}

// WithLanguage returns a context carrying the active language code. Entity
// construction and lazy translation creation read it back through
// CurrentLanguage, keeping the active language an explicit value rather than
// process-global state.
func WithLanguage(ctx context.Context, code string) context.Context {
	return context.WithValue(ctx, languageKey{}, code)
}

// CurrentLanguage returns the active language carried by ctx, falling back
// to DefaultLanguage.
func CurrentLanguage(ctx context.Context) string {
	if ctx != nil {
		if code, ok := ctx.Value(languageKey{}).(string); ok && code != "" {
			return code
		}
	}
	return DefaultLanguage
}

// NormalizeLanguage validates code as a BCP 47 language tag and returns its
// canonical form, e.g. "en-us" becomes "en-US".
func NormalizeLanguage(code string) (string, error) {
	tag, err := language.Parse(code)
	if err != nil {
		return "", fmt.Errorf("translation: invalid language code %q: %w", code, err)
	}
	return tag.String(), nil
}
