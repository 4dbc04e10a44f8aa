package conflict

import (
	"fmt"
	"strconv"

	"golang.org/x/text/language"
)

// Labeler turns conflicts into human-readable warnings.
type Labeler interface {
	BrandLabel(Value[int64]) string
	DiameterLabel(Value[string]) string
	ConflictMessage(Conflict) string
}

// Locale selects the phrasing of labels and messages.
type Locale string

const (
	LocaleEN Locale = "en"
	LocaleRU Locale = "ru"
)

type phrases struct {
	allBrands    string
	allDiameters string
	// brand, diameter, rule id, rule brand, rule diameter
	conflict string
}

var localePhrases = map[Locale]phrases{
	LocaleEN: {
		allBrands:    "all brands",
		allDiameters: "all diameters",
		conflict:     "%s, %s is already covered by exception #%d (%s, %s)",
	},
	LocaleRU: {
		allBrands:    "все бренды",
		allDiameters: "все диаметры",
		conflict:     "%s, %s уже покрывается исключением #%d (%s, %s)",
	},
}

// supportedTags and supportedLocales are parallel; the first entry is the
// matcher's default.
var (
	supportedTags    = []language.Tag{language.English, language.Russian}
	supportedLocales = []Locale{LocaleEN, LocaleRU}
)

var localeMatcher = language.NewMatcher(supportedTags)

// ParseLocale returns the supported locale for s, or false if s names none.
func ParseLocale(s string) (Locale, bool) {
	tag, err := language.Parse(s)
	if err != nil {
		return "", false
	}
	base, _ := tag.Base()
	switch base.String() {
	case "en":
		return LocaleEN, true
	case "ru":
		return LocaleRU, true
	}
	return "", false
}

// MatchLocale picks the best supported locale for an Accept-Language header.
// An empty or unparsable header yields fallback.
func MatchLocale(acceptLanguage string, fallback Locale) Locale {
	if acceptLanguage == "" {
		return fallback
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return fallback
	}
	_, idx, conf := localeMatcher.Match(tags...)
	if conf == language.No {
		return fallback
	}
	return supportedLocales[idx]
}

// Brand is a brand reference record.
type Brand struct {
	ID   int64
	Name string
}

// Diameter is a diameter reference record, e.g. {Value: "16", Label: "R16"}.
type Diameter struct {
	Value string
	Label string
}

// Catalog labels brands and diameters from reference data in one locale.
type Catalog struct {
	locale    Locale
	phrases   phrases
	brands    map[int64]string
	diameters map[string]string
}

// NewCatalog builds a Catalog. Unknown locales fall back to English.
func NewCatalog(locale Locale, brands []Brand, diameters []Diameter) *Catalog {
	p, ok := localePhrases[locale]
	if !ok {
		locale = LocaleEN
		p = localePhrases[LocaleEN]
	}
	c := &Catalog{
		locale:    locale,
		phrases:   p,
		brands:    make(map[int64]string, len(brands)),
		diameters: make(map[string]string, len(diameters)),
	}
	for _, b := range brands {
		c.brands[b.ID] = b.Name
	}
	for _, d := range diameters {
		v, ok := DiameterOf(d.Value).Get()
		if !ok || d.Label == "" {
			continue
		}
		c.diameters[v] = d.Label
	}
	return c
}

func (c *Catalog) Locale() Locale { return c.locale }

func (c *Catalog) BrandLabel(v Value[int64]) string {
	id, ok := v.Get()
	if !ok {
		return c.phrases.allBrands
	}
	if name, ok := c.brands[id]; ok {
		return name
	}
	return "#" + strconv.FormatInt(id, 10)
}

func (c *Catalog) DiameterLabel(v Value[string]) string {
	d, ok := v.Get()
	if !ok {
		return c.phrases.allDiameters
	}
	if label, ok := c.diameters[d]; ok {
		return label
	}
	return "R" + d
}

func (c *Catalog) ConflictMessage(cf Conflict) string {
	return fmt.Sprintf(c.phrases.conflict,
		c.BrandLabel(cf.Combination.Brand),
		c.DiameterLabel(cf.Combination.Diameter),
		cf.Rule.ID,
		c.BrandLabel(cf.Rule.Brand),
		c.DiameterLabel(cf.Rule.Diameter),
	)
}
