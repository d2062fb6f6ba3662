package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"golang.org/x/text/language"
)

//go:embed locales/*.json
var embedded embed.FS

// Embedded returns the locale files compiled into the binary.
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, "locales")
	if err != nil {
		panic(err)
	}
	return sub
}

// Bundle holds flat key/value dictionaries per language.
type Bundle struct {
	dict      map[string]map[string]string
	fallback  string
	supported []string
	matcher   language.Matcher
}

// Load reads <lang>.json for each supported language from fsys. The fallback
// language must be present; other missing files are skipped.
func Load(fsys fs.FS, fallback string, supported []string) (*Bundle, error) {
	fallback = strings.ToLower(strings.TrimSpace(fallback))
	if fallback == "" {
		fallback = "en"
	}
	if len(supported) == 0 {
		supported = []string{"en", "fr"}
	}

	b := &Bundle{
		dict:     map[string]map[string]string{},
		fallback: fallback,
	}
	// The fallback goes first so the matcher falls back to it.
	ordered := []string{fallback}
	for _, l := range supported {
		l = strings.ToLower(strings.TrimSpace(l))
		if l != "" && l != fallback {
			ordered = append(ordered, l)
		}
	}

	tags := make([]language.Tag, 0, len(ordered))
	for _, l := range ordered {
		raw, err := fs.ReadFile(fsys, l+".json")
		if err != nil {
			if l == fallback {
				return nil, fmt.Errorf("load locale %s: %w", l, err)
			}
			continue
		}
		var m map[string]string
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", l, err)
		}
		tag, err := language.Parse(l)
		if err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", l, err)
		}
		b.dict[l] = m
		b.supported = append(b.supported, l)
		tags = append(tags, tag)
	}
	b.matcher = language.NewMatcher(tags)
	return b, nil
}

// Supported returns the loaded languages in sorted order.
func (b *Bundle) Supported() []string {
	out := append([]string(nil), b.supported...)
	sort.Strings(out)
	return out
}

// Fallback returns the configured fallback language.
func (b *Bundle) Fallback() string { return b.fallback }

// IsSupported reports whether lang has a dictionary.
func (b *Bundle) IsSupported(lang string) bool {
	_, ok := b.dict[strings.ToLower(lang)]
	return ok
}

// T returns translation for key in lang, falling back to default and finally key.
func (b *Bundle) T(lang, key string) string {
	if lang != "" {
		if m, ok := b.dict[lang]; ok {
			if v, ok := m[key]; ok {
				return v
			}
		}
	}
	if m, ok := b.dict[b.fallback]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	return key
}

// Tf formats the translation for key with args.
func (b *Bundle) Tf(lang, key string, args ...any) string {
	return fmt.Sprintf(b.T(lang, key), args...)
}

// Resolve chooses the best supported language for an Accept-Language header.
func (b *Bundle) Resolve(acceptLang string) string {
	prefs, _, err := language.ParseAcceptLanguage(acceptLang)
	if err != nil || len(prefs) == 0 {
		return b.fallback
	}
	_, index, confidence := b.matcher.Match(prefs...)
	if confidence == language.No || index < 0 || index >= len(b.supported) {
		return b.fallback
	}
	return b.supported[index]
}
