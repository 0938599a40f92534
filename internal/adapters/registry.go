// Package adapters resolves platform slugs to their normalization adapters.
package adapters

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/JakeFAU/performer-crawler/internal/adapters/bongacams"
	"github.com/JakeFAU/performer-crawler/internal/adapters/chaturbate"
	"github.com/JakeFAU/performer-crawler/internal/adapters/stripchat"
	"github.com/JakeFAU/performer-crawler/internal/crawler"
)

type constructor func(crawler.Fetcher, *zap.Logger) crawler.Adapter

var registry = map[string]constructor{
	chaturbate.Slug: func(f crawler.Fetcher, l *zap.Logger) crawler.Adapter { return chaturbate.New(f, l) },
	stripchat.Slug:  func(f crawler.Fetcher, l *zap.Logger) crawler.Adapter { return stripchat.New(f, l) },
	bongacams.Slug:  func(f crawler.Fetcher, l *zap.Logger) crawler.Adapter { return bongacams.New(f, l) },
}

// New returns the adapter serving slug.
func New(slug string, fetcher crawler.Fetcher, logger *zap.Logger) (crawler.Adapter, error) {
	build, ok := registry[slug]
	if !ok {
		return nil, fmt.Errorf("%w: %q", crawler.ErrUnknownPlatform, slug)
	}
	return build(fetcher, logger), nil
}

// Slugs lists every supported platform in a stable order.
func Slugs() []string {
	out := make([]string, 0, len(registry))
	for slug := range registry {
		out = append(out, slug)
	}
	sort.Strings(out)
	return out
}
