package adapters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/performer-crawler/internal/crawler"
)

func TestNewResolvesEverySlug(t *testing.T) {
	t.Parallel()

	for _, slug := range Slugs() {
		a, err := New(slug, nil, nil)
		require.NoError(t, err, slug)
		assert.Equal(t, slug, a.Slug())
	}
}

func TestNewRejectsUnknownSlug(t *testing.T) {
	t.Parallel()

	_, err := New("myfreecams", nil, nil)
	require.ErrorIs(t, err, crawler.ErrUnknownPlatform)
	assert.Contains(t, err.Error(), "myfreecams")
}

func TestSlugsAreSorted(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"bongacams", "chaturbate", "stripchat"}, Slugs())
}
