package spider

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JakeFAU/performer-crawler/internal/crawler"
)

func TestSanitize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "line one line two", sanitize("line one\nline two\r\n"))

	long := strings.Repeat("é", 700) // 1400 bytes
	got := sanitize(long)
	assert.LessOrEqual(t, len(got), maxLogEntry)
	assert.True(t, strings.HasPrefix(long, got))
	assert.Equal(t, 500, len([]rune(got)))
}

func TestProgressIsCappedAndMonotonic(t *testing.T) {
	t.Parallel()

	r := &run{bound: 200}
	r.job.Counters = crawler.JobCounters{Processed: 50}
	assert.Equal(t, 25, r.progress())

	r.total = 100
	r.job.Counters.Processed = 60
	assert.Equal(t, 60, r.progress(), "a reported total below the bound wins")

	r.job.Counters.Processed = 150
	assert.Equal(t, 99, r.progress())

	r.total = 1000
	r.job.Counters.Processed = 151
	assert.Equal(t, 99, r.progress(), "never moves backwards")
}

func TestRecordSanitizes(t *testing.T) {
	t.Parallel()

	r := &run{}
	r.record("boom\nstack")
	assert.Equal(t, []string{"boom stack"}, r.job.ErrorLog)
}
