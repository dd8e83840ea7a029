package timeparse

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// ErrUnparsable means the text contained nothing that resolves to a future
// instant. It is an expected, user-facing condition.
var ErrUnparsable = errors.New("could not understand time expression")

var mentionRe = regexp.MustCompile(`@\w+`)

// durationRe matches the first explicit "<n> <unit>" span in the text. Full
// unit names come before their abbreviations so "3 months" binds to months
// and can never fall through to the bare "m" minute form.
var durationRe = regexp.MustCompile(`(\d+)\s*(seconds?|secs?|minutes?|mins?|hours?|hrs?|days?|weeks?|wks?|months?|mos?|years?|yrs?|[smhdwy])\b`)

// Parser resolves free-text duration expressions against a reference instant.
// It is safe for concurrent use and deterministic: the same text and base
// always produce the same target.
type Parser struct {
	w *when.Parser
}

func New() *Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &Parser{w: w}
}

// Parse returns the absolute target instant and the matched span (e.g.
// "3 months"). Explicit units win over natural-language phrasing, and only
// the leftmost unit in the text is considered.
func (p *Parser) Parse(text string, base time.Time) (time.Time, string, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	text = strings.TrimSpace(mentionRe.ReplaceAllString(text, ""))

	if target, label, ok := parseExplicit(text, base); ok {
		return target, label, nil
	}
	if target, ok := p.parseNatural(text, base); ok {
		return target, text, nil
	}
	return time.Time{}, "", ErrUnparsable
}

func parseExplicit(text string, base time.Time) (time.Time, string, bool) {
	m := durationRe.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, "", false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return time.Time{}, "", false
	}

	var target time.Time
	unit := m[2]
	switch {
	case strings.HasPrefix(unit, "mo"):
		target = addMonths(base, n)
	case strings.HasPrefix(unit, "y"):
		target = addMonths(base, n*12)
	case strings.HasPrefix(unit, "s"):
		target = base.Add(time.Duration(n) * time.Second)
	case strings.HasPrefix(unit, "h"):
		target = base.Add(time.Duration(n) * time.Hour)
	case strings.HasPrefix(unit, "d"):
		target = base.Add(time.Duration(n) * 24 * time.Hour)
	case strings.HasPrefix(unit, "w"):
		target = base.Add(time.Duration(n) * 7 * 24 * time.Hour)
	case strings.HasPrefix(unit, "m"):
		target = base.Add(time.Duration(n) * time.Minute)
	default:
		return time.Time{}, "", false
	}
	return target, m[0], true
}

// parseNatural hands the text to the natural-language resolver, trying the
// raw phrase and two prompted variants. Only a strictly-future resolution is
// accepted.
func (p *Parser) parseNatural(text string, base time.Time) (time.Time, bool) {
	for _, phrase := range []string{text, "in " + text, text + " from now"} {
		r, err := p.w.Parse(phrase, base)
		if err != nil || r == nil {
			continue
		}
		if r.Time.After(base) {
			return r.Time, true
		}
	}
	return time.Time{}, false
}

// addMonths advances by whole calendar months, clamping the day so that
// Jan 31 + 1 month lands on the last day of February instead of normalizing
// into March the way time.AddDate does.
func addMonths(t time.Time, months int) time.Time {
	anchor := time.Date(t.Year(), t.Month(), 1,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location()).
		AddDate(0, months, 0)
	day := t.Day()
	if last := daysIn(anchor.Year(), anchor.Month()); day > last {
		day = last
	}
	return time.Date(anchor.Year(), anchor.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// FormatDuration renders the gap between base and target in the coarsest unit
// whose value is at least one. Months and years use 30- and 365-day
// approximations; this is display text, never scheduling input.
func FormatDuration(target, base time.Time) string {
	secs := int64(target.Sub(base) / time.Second)
	switch {
	case secs < 60:
		return plural(secs, "second")
	case secs < 3600:
		return plural(secs/60, "minute")
	case secs < 86400:
		return plural(secs/3600, "hour")
	case secs < 604800:
		return plural(secs/86400, "day")
	case secs < 2592000:
		return plural(secs/604800, "week")
	case secs < 31536000:
		return plural(secs/2592000, "month")
	default:
		return plural(secs/31536000, "year")
	}
}

func plural(n int64, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
