package normalize

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/JakeFAU/performer-crawler/internal/crawler"
)

// Records converts decoded array elements into raw records.
func Records(items []json.RawMessage) []crawler.RawRecord {
	if len(items) == 0 {
		return nil
	}
	out := make([]crawler.RawRecord, 0, len(items))
	for _, item := range items {
		out = append(out, crawler.RawRecord(item))
	}
	return out
}

// Endpoint merges params into base (or fallback when base is blank),
// keeping any query string already on the base URL.
func Endpoint(base, fallback string, params url.Values) (string, error) {
	if strings.TrimSpace(base) == "" {
		base = fallback
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse endpoint %q: %w", base, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("endpoint %q must be absolute", base)
	}
	q := u.Query()
	for key, values := range params {
		for _, v := range values {
			if v != "" {
				q.Set(key, v)
			}
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Hashtags pulls "#tag" words out of free text such as a room subject.
func Hashtags(text string) []string {
	var out []string
	for _, word := range strings.Fields(text) {
		if len(word) > 1 && word[0] == '#' {
			out = append(out, strings.TrimRight(word[1:], ".,!?:;"))
		}
	}
	return out
}
