package utils

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
)

// Slugify lowercases text, strips accents and joins alphanumeric runs with "-".
func Slugify(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		folded = text
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case unicode.IsSpace(r) || r == '-' || r == '_':
			if b.Len() > 0 && !dash {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// UniqueSlug returns Slugify(text), suffixed with -1, -2 ... until no row of
// table other than exceptID holds it. Soft-deleted rows still count.
func UniqueSlug(db *gorm.DB, table, text, exceptID string) (string, error) {
	base := Slugify(text)
	if base == "" {
		base = "item"
	}

	slug := base
	for counter := 1; ; counter++ {
		q := db.Table(table).Where("slug = ?", slug)
		if exceptID != "" {
			q = q.Where("id <> ?", exceptID)
		}
		var count int64
		if err := q.Count(&count).Error; err != nil {
			return "", fmt.Errorf("check slug %q: %w", slug, err)
		}
		if count == 0 {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, counter)
	}
}
