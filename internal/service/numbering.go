package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Document number template placeholders.
const (
	PlaceholderAuto  = "{AUTO}"
	PlaceholderMonth = "{MM}"
	PlaceholderYear  = "{YYYY}"
)

var placeholderRe = regexp.MustCompile(`\{AUTO\}|\{MM\}|\{YYYY\}`)

// NextDocumentNumber derives the next document number for period from the numbers already
// issued. Only numbers shaped like template with period's year count; anything else is
// ignored. With no matching number the seed taken from prefix is issued as is, otherwise the
// larger of the highest sequence and the seed is incremented.
//
// There is no locking: two callers racing on the same period can get the same number.
func NextDocumentNumber(existing []string, period time.Time, template, prefix string) string {
	seed := parseSeed(prefix)
	pattern := periodPattern(template, period.Year())

	next := seed
	found := false
	highest := 0
	for _, num := range existing {
		m := pattern.FindStringSubmatch(strings.TrimSpace(num))
		if len(m) < 2 {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if !found || n > highest {
			highest = n
		}
		found = true
	}
	if found {
		next = max(highest, seed) + 1
	}
	return renderDocumentNumber(template, next, period)
}

// PreviewDocumentNumber renders the number the first request of a period would get.
func PreviewDocumentNumber(template, prefix string, now time.Time) string {
	return renderDocumentNumber(template, parseSeed(prefix), now)
}

func renderDocumentNumber(template string, seq int, period time.Time) string {
	r := strings.NewReplacer(
		PlaceholderAuto, fmt.Sprintf("%04d", seq),
		PlaceholderMonth, fmt.Sprintf("%02d", int(period.Month())),
		PlaceholderYear, strconv.Itoa(period.Year()),
	)
	return r.Replace(template)
}

func parseSeed(prefix string) int {
	n, err := strconv.Atoi(strings.TrimSpace(prefix))
	if err != nil || n < 0 {
		return 1
	}
	return n
}

// periodPattern turns a template into an anchored pattern for one year. {AUTO} captures the
// sequence, {MM} accepts any month.
func periodPattern(template string, year int) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("^")
	last := 0
	captured := false
	for _, loc := range placeholderRe.FindAllStringIndex(template, -1) {
		b.WriteString(regexp.QuoteMeta(template[last:loc[0]]))
		switch template[loc[0]:loc[1]] {
		case PlaceholderAuto:
			if captured {
				b.WriteString(`\d+`)
			} else {
				b.WriteString(`(\d+)`)
				captured = true
			}
		case PlaceholderMonth:
			b.WriteString(`(?:0[1-9]|1[0-2])`)
		case PlaceholderYear:
			b.WriteString(strconv.Itoa(year))
		}
		last = loc[1]
	}
	b.WriteString(regexp.QuoteMeta(template[last:]))
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}
