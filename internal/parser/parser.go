// Package parser turns raw chat transcript exports into ordered message
// stubs. Parsing is deterministic: identical input always yields the
// identical stub sequence.
package parser

import (
	"regexp"
	"strings"
	"time"
	"unicode"
)

// startRE matches the start of a new message: a date, a time, a dash and a
// "sender: text" tail. Continuation lines do not match and attach to the
// previous message.
var startRE = regexp.MustCompile(`^(?P<date>\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4}|\d{4}-\d{1,2}-\d{1,2}),?\s*(?P<time>\d{1,2}:\d{2}(?::\d{2})?(?:\s*[APMapm]{2})?)\s*-\s*(?P<sender>[^:]+?):\s*(?P<message>.*)$`)

var (
	dateIdx    = startRE.SubexpIndex("date")
	timeIdx    = startRE.SubexpIndex("time")
	senderIdx  = startRE.SubexpIndex("sender")
	messageIdx = startRE.SubexpIndex("message")
)

var (
	isoDateRE = regexp.MustCompile(`^\d{4}-\d{1,2}-\d{1,2}$`)
	meridemRE = regexp.MustCompile(`^(\d{1,2}:\d{2}(?::\d{2})?)(AM|PM)$`)
)

// Config controls how a transcript is interpreted.
type Config struct {
	DateOrder        string   // "mdy" (default) or "dmy"
	SystemSenders    []string // senders always treated as system messages
	SystemMarkers    []string // text markers of membership/encryption notices
	FailedLineSample int      // max unparsable lines kept for diagnostics
}

// Stub is one parsed message before analysis.
type Stub struct {
	Timestamp    time.Time // zero when the raw timestamp matched no layout
	RawTimestamp string
	Sender       string
	Text         string
	System       bool
}

// Result is the outcome of parsing one transcript.
type Result struct {
	Messages        []Stub
	FailedLines     []string // first FailedLineSample unparsable lines
	FailedLineCount int      // total unparsable lines, sampled or not
}

// Parser parses transcripts under a fixed format configuration.
type Parser struct {
	layouts       []string
	systemSenders map[string]struct{}
	systemMarkers []string
	sampleLimit   int
}

// New builds a parser for the given configuration, filling defaults for
// any zero field.
func New(cfg Config) *Parser {
	if cfg.FailedLineSample <= 0 {
		cfg.FailedLineSample = 10
	}
	if len(cfg.SystemSenders) == 0 {
		cfg.SystemSenders = []string{"system", "you", "group notification"}
	}
	if len(cfg.SystemMarkers) == 0 {
		cfg.SystemMarkers = []string{"secured", "created group", "changed", "left group", "added"}
	}

	senders := make(map[string]struct{}, len(cfg.SystemSenders))
	for _, s := range cfg.SystemSenders {
		senders[strings.ToLower(s)] = struct{}{}
	}

	markers := make([]string, len(cfg.SystemMarkers))
	for i, m := range cfg.SystemMarkers {
		markers[i] = strings.ToLower(m)
	}

	return &Parser{
		layouts:       layoutsFor(cfg.DateOrder),
		systemSenders: senders,
		systemMarkers: markers,
		sampleLimit:   cfg.FailedLineSample,
	}
}

// Parse splits the transcript into message stubs. Lines that start a new
// message are recognized by startRE; other non-empty lines extend the
// previous message. Lines that match nothing and have no predecessor are
// skipped and sampled, never fatal.
func (p *Parser) Parse(content string) Result {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	lines := strings.Split(content, "\n")

	var res Result
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}

		m := startRE.FindStringSubmatch(line)
		if m == nil {
			if len(res.Messages) > 0 {
				last := &res.Messages[len(res.Messages)-1]
				last.Text += "\n" + sanitizeLine(line)
				continue
			}
			res.FailedLineCount++
			if len(res.FailedLines) < p.sampleLimit {
				res.FailedLines = append(res.FailedLines, line)
			}
			continue
		}

		dateStr := m[dateIdx]
		timeStr := m[timeIdx]
		sender := sanitizeLine(m[senderIdx])
		text := sanitizeLine(m[messageIdx])

		raw := dateStr + ", " + timeStr
		ts, _ := p.parseTimestamp(dateStr, timeStr)

		res.Messages = append(res.Messages, Stub{
			Timestamp:    ts,
			RawTimestamp: raw,
			Sender:       sender,
			Text:         text,
			System:       p.isSystem(sender, text),
		})
	}

	return res
}

// isSystem recognizes membership changes, encryption notices and other
// meta lines that must stay out of the sentiment stream.
func (p *Parser) isSystem(sender, text string) bool {
	if _, ok := p.systemSenders[strings.ToLower(sender)]; ok {
		return true
	}
	lower := strings.ToLower(text)
	for _, marker := range p.systemMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func (p *Parser) parseTimestamp(dateStr, timeStr string) (time.Time, bool) {
	if !isoDateRE.MatchString(dateStr) {
		dateStr = strings.ReplaceAll(dateStr, "-", "/")
	}
	candidate := dateStr + ", " + normalizeTime(timeStr)
	for _, layout := range p.layouts {
		if t, err := time.Parse(layout, candidate); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// normalizeTime upper-cases the meridiem and guarantees a space before it
// so a single layout list covers "10:30 pm", "10:30PM" and "10:30 PM".
func normalizeTime(timeStr string) string {
	upper := strings.ToUpper(strings.TrimSpace(timeStr))
	return meridemRE.ReplaceAllString(upper, "$1 $2")
}

// sanitizeLine trims the line and drops non-printable control characters
// that some export tools embed around names and text.
func sanitizeLine(s string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(cleaned)
}

func layoutsFor(order string) []string {
	if strings.EqualFold(order, "dmy") {
		return []string{
			"2/1/2006, 3:04 PM",
			"2/1/06, 3:04 PM",
			"2/1/2006, 3:04:05 PM",
			"2/1/2006, 15:04",
			"2/1/06, 15:04",
			"2/1/2006, 15:04:05",
			"2006-1-2, 15:04",
			"2006-1-2, 15:04:05",
		}
	}
	return []string{
		"1/2/2006, 3:04 PM",
		"1/2/06, 3:04 PM",
		"1/2/2006, 3:04:05 PM",
		"1/2/06, 3:04:05 PM",
		"1/2/2006, 15:04",
		"1/2/06, 15:04",
		"1/2/2006, 15:04:05",
		"2006-1-2, 15:04",
		"2006-1-2, 15:04:05",
	}
}
