package spider

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/JakeFAU/performer-crawler/internal/crawler"
)

// maxLogEntry caps one error log entry in bytes.
const maxLogEntry = 1000

// run is the mutable state of one job. Only the goroutine executing Run
// touches it.
type run struct {
	job      crawler.Job
	platform crawler.Platform
	account  crawler.Account
	opts     crawler.RunOptions

	bound int
	total int
	links int

	logger *zap.Logger
}

// record appends a sanitized entry to the job error log.
func (r *run) record(msg string) {
	r.job.ErrorLog = append(r.job.ErrorLog, sanitize(msg))
}

// progress estimates completion against the platform total when known and
// the safety bound otherwise. It never reaches 100 before the job closes and
// never moves backwards.
func (r *run) progress() int {
	denom := r.bound
	if r.total > 0 && r.total < denom {
		denom = r.total
	}
	pct := 0
	if denom > 0 {
		pct = r.job.Counters.Processed * 100 / denom
	}
	if pct > 99 {
		pct = 99
	}
	if pct < r.job.ProgressPercent {
		pct = r.job.ProgressPercent
	}
	r.job.ProgressPercent = pct
	return pct
}

func sanitize(msg string) string {
	msg = strings.Join(strings.Fields(strings.ReplaceAll(msg, "\r", " ")), " ")
	if len(msg) <= maxLogEntry {
		return msg
	}
	cut := maxLogEntry
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}
