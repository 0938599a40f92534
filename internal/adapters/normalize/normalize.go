// Package normalize holds the vocabulary and number-coercion helpers shared
// by the platform adapters.
package normalize

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/JakeFAU/performer-crawler/internal/crawler"
)

// Int accepts a JSON number, a numeric string, an empty string or null.
// Anything unparseable decodes as absent.
type Int struct {
	Value int64
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Int) UnmarshalJSON(data []byte) error {
	*n = Int{}
	s, ok := scalar(data)
	if !ok || s == "" {
		return nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		*n = Int{Value: v, Valid: true}
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		*n = Int{Value: int64(f), Valid: true}
	}
	return nil
}

// Ptr returns nil when the value was absent.
func (n Int) Ptr() *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}

// Float accepts a JSON number or numeric string.
type Float struct {
	Value float64
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Float) UnmarshalJSON(data []byte) error {
	*n = Float{}
	s, ok := scalar(data)
	if !ok || s == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		*n = Float{Value: f, Valid: true}
	}
	return nil
}

// Ptr returns nil when the value was absent.
func (n Float) Ptr() *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}

// Bool accepts true/false, 0/1 and their string spellings.
type Bool struct {
	Value bool
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *Bool) UnmarshalJSON(data []byte) error {
	*b = Bool{}
	s, ok := scalar(data)
	if !ok || s == "" {
		return nil
	}
	switch strings.ToLower(s) {
	case "true", "1", "yes", "y":
		*b = Bool{Value: true, Valid: true}
	case "false", "0", "no", "n":
		*b = Bool{Value: false, Valid: true}
	}
	return nil
}

// Ptr returns nil when the value was absent.
func (b Bool) Ptr() *bool {
	if !b.Valid {
		return nil
	}
	v := b.Value
	return &v
}

// scalar unquotes a JSON string or returns the literal text of a number or
// bool. The second result is false for null.
func scalar(data []byte) (string, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return "", false
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", false
		}
		return strings.TrimSpace(s), true
	}
	return string(data), true
}

// String trims s and returns nil when nothing is left.
func String(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Tags lowercases, trims and de-duplicates tags across every source,
// keeping first-seen order. A leading '#' is dropped. It returns nil when
// no source supplied a tag.
func Tags(sources ...[]string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, src := range sources {
		for _, tag := range src {
			tag = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tag), "#")))
			if tag == "" {
				continue
			}
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			out = append(out, tag)
		}
	}
	return out
}

// Split breaks a delimited list such as "English, Spanish" into its parts.
func Split(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == '/'
	})
}

// Languages de-duplicates language names, lowercased. It returns nil when
// none were supplied.
func Languages(values ...string) []string {
	var parts []string
	for _, v := range values {
		parts = append(parts, Split(v)...)
	}
	return Tags(parts)
}

// Gender maps a platform code through table. Unknown codes yield nil.
func Gender(code string, table map[string]crawler.Gender) *crawler.Gender {
	g, ok := table[strings.ToLower(strings.TrimSpace(code))]
	if !ok {
		return nil
	}
	return &g
}

// Age keeps plausible adult ages only.
func Age(n Int) *int {
	if !n.Valid || n.Value < 18 || n.Value > 99 {
		return nil
	}
	v := int(n.Value)
	return &v
}

// Country upper-cases an ISO country code.
func Country(code string) *string {
	return String(strings.ToUpper(strings.TrimSpace(code)))
}

// True returns a pointer to true.
func True() *bool {
	v := true
	return &v
}

// Required reports whether both identity fields are present.
func Required(externalID, username string) bool {
	return strings.TrimSpace(externalID) != "" && strings.TrimSpace(username) != ""
}
