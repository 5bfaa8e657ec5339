package localize

import (
	"embed"
	"fmt"
	"path"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var bundles embed.FS

// DefaultLanguage is used when negotiation finds no supported match.
const DefaultLanguage = "en"

// Localizer resolves user-visible strings (error titles and messages, UI
// fallbacks) in the user's language. All bundles are embedded; a Localizer
// is immutable after construction and safe for concurrent use.
type Localizer struct {
	translations map[string]map[string]string // lang -> flat dotted key -> text
	tags         []language.Tag
	matcher      language.Matcher
}

var (
	defaultLocalizer *Localizer
	defaultOnce      sync.Once
)

// Default returns the process-wide Localizer over the embedded bundles.
// Embedded bundles cannot fail to parse after the package itself builds,
// so construction errors are treated as programmer errors.
func Default() *Localizer {
	defaultOnce.Do(func() {
		l, err := New()
		if err != nil {
			panic(fmt.Sprintf("localize: embedded bundles invalid: %v", err))
		}
		defaultLocalizer = l
	})
	return defaultLocalizer
}

// New parses the embedded YAML bundles into a Localizer.
func New() (*Localizer, error) {
	entries, err := bundles.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("read embedded locales: %w", err)
	}

	l := &Localizer{translations: make(map[string]map[string]string)}

	for _, entry := range entries {
		lang := strings.TrimSuffix(entry.Name(), ".yaml")
		raw, err := bundles.ReadFile(path.Join("locales", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read bundle %s: %w", entry.Name(), err)
		}

		var nested map[string]any
		if err := yaml.Unmarshal(raw, &nested); err != nil {
			return nil, fmt.Errorf("parse bundle %s: %w", entry.Name(), err)
		}

		flat := make(map[string]string)
		flatten("", nested, flat)
		l.translations[lang] = flat

		tag, err := language.Parse(lang)
		if err != nil {
			return nil, fmt.Errorf("bundle language %q: %w", lang, err)
		}
		if lang == DefaultLanguage {
			// The matcher prefers earlier tags; the default goes first.
			l.tags = append([]language.Tag{tag}, l.tags...)
		} else {
			l.tags = append(l.tags, tag)
		}
	}

	if _, ok := l.translations[DefaultLanguage]; !ok {
		return nil, fmt.Errorf("missing default language bundle %q", DefaultLanguage)
	}

	l.matcher = language.NewMatcher(l.tags)
	return l, nil
}

// T resolves a dotted key in the given language, formatting args into the
// text when present. Falls back to the default language, then to the key
// itself so a missing translation is visible rather than silent.
func (l *Localizer) T(lang, key string, args ...any) string {
	text, ok := l.lookup(lang, key)
	if !ok {
		text, ok = l.lookup(DefaultLanguage, key)
	}
	if !ok {
		return key
	}
	if len(args) == 0 {
		return text
	}
	return fmt.Sprintf(text, args...)
}

// Match negotiates an Accept-Language style preference list against the
// embedded bundles and returns the best supported language code.
func (l *Localizer) Match(acceptLanguage string) string {
	if acceptLanguage == "" {
		return DefaultLanguage
	}
	tag, _ := language.MatchStrings(l.matcher, acceptLanguage)
	base, _ := tag.Base()
	if _, ok := l.translations[base.String()]; ok {
		return base.String()
	}
	return DefaultLanguage
}

// Languages lists the embedded bundle language codes.
func (l *Localizer) Languages() []string {
	out := make([]string, 0, len(l.translations))
	for lang := range l.translations {
		out = append(out, lang)
	}
	return out
}

func (l *Localizer) lookup(lang, key string) (string, bool) {
	flat, ok := l.translations[lang]
	if !ok {
		return "", false
	}
	text, ok := flat[key]
	return text, ok
}

// flatten turns nested YAML maps into dotted keys. Non-string leaves are
// ignored; bundles only carry text.
func flatten(prefix string, nested map[string]any, out map[string]string) {
	for k, v := range nested {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case string:
			out[key] = val
		case map[string]any:
			flatten(key, val, out)
		}
	}
}
