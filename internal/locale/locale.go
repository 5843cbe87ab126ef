package locale

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/yndnr/ledgergate-go/internal/core/domain"
)

// Locale translates messages for one language.
type Locale interface {
	// Tag returns the resolved language.
	Tag() language.Tag

	// Text translates key and formats it with args. Unknown keys are
	// formatted as-is.
	Text(key string, args ...any) string
}

// Provider resolves a Locale from language preferences, most preferred first.
type Provider interface {
	Get(prefs ...string) (Locale, error)
}

// Catalog is a Provider backed by an in-memory message catalog.
type Catalog struct {
	builder  *catalog.Builder
	tags     []language.Tag
	matcher  language.Matcher
	fallback language.Tag
}

// NewCatalog creates a catalog for the supported languages with the
// built-in messages loaded. defaultLang must be one of supported; when
// supported is empty every built-in language is enabled.
func NewCatalog(defaultLang string, supported ...string) (*Catalog, error) {
	if len(supported) == 0 {
		supported = builtinLanguages()
	}

	fallback, err := language.Parse(defaultLang)
	if err != nil {
		return nil, domain.ErrLocaleNotFound.WithDetails("default " + defaultLang).WithCause(err)
	}

	// The default goes first so the matcher falls back to it.
	tags := []language.Tag{fallback}
	found := false
	for _, s := range supported {
		tag, err := language.Parse(s)
		if err != nil {
			return nil, domain.ErrLocaleNotFound.WithDetails("supported " + s).WithCause(err)
		}
		if tag == fallback {
			found = true
			continue
		}
		tags = append(tags, tag)
	}
	if !found {
		return nil, domain.ErrLocaleNotFound.WithDetails("default " + defaultLang + " is not supported")
	}

	b := catalog.NewBuilder(catalog.Fallback(fallback))
	for _, tag := range tags {
		base, _ := tag.Base()
		for key, text := range builtinMessages[base.String()] {
			if err := b.SetString(tag, key, text); err != nil {
				return nil, err
			}
		}
	}

	return &Catalog{
		builder:  b,
		tags:     tags,
		matcher:  language.NewMatcher(tags),
		fallback: fallback,
	}, nil
}

// Set adds or replaces a translation.
func (c *Catalog) Set(lang, key, text string) error {
	tag, err := language.Parse(lang)
	if err != nil {
		return err
	}
	return c.builder.SetString(tag, key, text)
}

// Get resolves the first preference the catalog supports. Each preference
// may be a single tag ("de", "de_DE.UTF-8") or an Accept-Language list.
// Without any match the default language is used.
func (c *Catalog) Get(prefs ...string) (Locale, error) {
	for _, pref := range prefs {
		if tag, ok := c.match(pref); ok {
			return c.locale(tag), nil
		}
	}
	return c.locale(c.fallback), nil
}

// Default returns the default locale.
func (c *Catalog) Default() Locale {
	return c.locale(c.fallback)
}

// Supported lists the supported languages, default first.
func (c *Catalog) Supported() []language.Tag {
	return append([]language.Tag(nil), c.tags...)
}

func (c *Catalog) match(pref string) (language.Tag, bool) {
	pref = normalizePOSIX(pref)
	if pref == "" {
		return language.Und, false
	}

	candidates, _, err := language.ParseAcceptLanguage(pref)
	if err != nil || len(candidates) == 0 {
		return language.Und, false
	}

	_, idx, conf := c.matcher.Match(candidates...)
	if conf == language.No {
		return language.Und, false
	}
	return c.tags[idx], true
}

func (c *Catalog) locale(tag language.Tag) Locale {
	return &catalogLocale{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(c.builder)),
	}
}

type catalogLocale struct {
	tag     language.Tag
	printer *message.Printer
}

func (l *catalogLocale) Tag() language.Tag {
	return l.tag
}

func (l *catalogLocale) Text(key string, args ...any) string {
	return l.printer.Sprintf(key, args...)
}

// normalizePOSIX turns LANG-style values (de_DE.UTF-8, C, POSIX) into BCP 47.
func normalizePOSIX(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, ".@"); i >= 0 && !strings.Contains(s, ",") {
		s = s[:i]
	}
	switch s {
	case "C", "POSIX":
		return ""
	}
	return strings.ReplaceAll(s, "_", "-")
}
