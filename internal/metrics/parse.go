package metrics

import (
	"encoding/xml"
	"errors"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/blackwell-systems/btar/internal/runner"
)

// Output is the part of a tool run a parser looks at.
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Combined returns stdout followed by stderr.
func (o Output) Combined() string {
	return o.Stdout + o.Stderr
}

// Parser extracts a metric value from tool output. It returns Unavailable
// when the output cannot be interpreted.
type Parser func(Output) float64

// Constant returns a parser that yields v for any output the tool produced.
// It is used when the figure comes from a report file instead of stdout.
func Constant(v float64) Parser {
	return func(o Output) float64 {
		if o.ExitCode == runner.ExitNotFound {
			return Unavailable
		}
		return v
	}
}

// ---------------------------------------------------------------------------
// Structured count families
// ---------------------------------------------------------------------------

// decodeJSON validates stdout as JSON. When done is true the caller returns
// value without looking at the document.
func decodeJSON(o Output) (doc gjson.Result, value float64, done bool) {
	if o.ExitCode == runner.ExitNotFound {
		return doc, Unavailable, true
	}
	text := strings.TrimSpace(o.Stdout)
	if text == "" {
		if o.ExitCode == 0 {
			return doc, 0, true
		}
		return doc, Unavailable, true
	}
	if !gjson.Valid(text) {
		return doc, Unavailable, true
	}
	return gjson.Parse(text), 0, false
}

// JSONRecordSum sums a numeric field across a top-level array of records.
func JSONRecordSum(field string) Parser {
	return func(o Output) float64 {
		doc, v, done := decodeJSON(o)
		if done {
			return v
		}
		if !doc.IsArray() {
			return Unavailable
		}
		var sum float64
		doc.ForEach(func(_, rec gjson.Result) bool {
			sum += rec.Get(field).Float()
			return true
		})
		return sum
	}
}

// JSONArrayLength counts the entries of a top-level array.
func JSONArrayLength() Parser {
	return func(o Output) float64 {
		doc, v, done := decodeJSON(o)
		if done {
			return v
		}
		if !doc.IsArray() {
			return Unavailable
		}
		return float64(len(doc.Array()))
	}
}

// JSONNestedLength counts the entries of an array inside a top-level object.
// A missing or null array means no issues.
func JSONNestedLength(path string) Parser {
	return func(o Output) float64 {
		doc, v, done := decodeJSON(o)
		if done {
			return v
		}
		if !doc.IsObject() {
			return Unavailable
		}
		issues := doc.Get(path)
		switch {
		case !issues.Exists(), issues.Type == gjson.Null:
			return 0
		case issues.IsArray():
			return float64(len(issues.Array()))
		}
		return Unavailable
	}
}

// JSONSeverityCount counts top-level records whose field equals level,
// ignoring case.
func JSONSeverityCount(field, level string) Parser {
	return func(o Output) float64 {
		doc, v, done := decodeJSON(o)
		if done {
			return v
		}
		if !doc.IsArray() {
			return Unavailable
		}
		var n float64
		doc.ForEach(func(_, rec gjson.Result) bool {
			if strings.EqualFold(rec.Get(field).String(), level) {
				n++
			}
			return true
		})
		return n
	}
}

// JSONNestedSum sums the lengths of field arrays across a list of records.
// An empty arrayPath means the document itself is the list; otherwise the
// document must be an object holding the list at arrayPath.
func JSONNestedSum(arrayPath, field string) Parser {
	return func(o Output) float64 {
		doc, v, done := decodeJSON(o)
		if done {
			return v
		}
		list := doc
		if arrayPath != "" {
			if !doc.IsObject() {
				return Unavailable
			}
			list = doc.Get(arrayPath)
		}
		if !list.IsArray() {
			return Unavailable
		}
		var sum float64
		list.ForEach(func(_, rec gjson.Result) bool {
			sum += float64(len(rec.Get(field).Array()))
			return true
		})
		return sum
	}
}

// JSONField reads a numeric field directly. An absent or non-numeric field
// is unavailable.
func JSONField(path string) Parser {
	return func(o Output) float64 {
		doc, v, done := decodeJSON(o)
		if done {
			return v
		}
		f := doc.Get(path)
		if f.Type != gjson.Number {
			return Unavailable
		}
		return f.Float()
	}
}

// XMLElementCount counts occurrences of an element in an XML document.
// Leading non-XML chatter before the first tag is skipped.
func XMLElementCount(element string) Parser {
	return func(o Output) float64 {
		if o.ExitCode == runner.ExitNotFound {
			return Unavailable
		}
		text := strings.TrimSpace(o.Stdout)
		if text == "" {
			if o.ExitCode == 0 {
				return 0
			}
			return Unavailable
		}
		start := strings.Index(text, "<")
		if start < 0 {
			return Unavailable
		}

		dec := xml.NewDecoder(strings.NewReader(text[start:]))
		dec.CharsetReader = func(_ string, r io.Reader) (io.Reader, error) { return r, nil }

		var n float64
		for {
			tok, err := dec.Token()
			if errors.Is(err, io.EOF) {
				return n
			}
			if err != nil {
				return Unavailable
			}
			if se, ok := tok.(xml.StartElement); ok && se.Name.Local == element {
				n++
			}
		}
	}
}

// ---------------------------------------------------------------------------
// Text count families
// ---------------------------------------------------------------------------

// CompilerText reads compiler diagnostics from stdout and stderr. A zero
// exit is clean. Otherwise the summary pattern wins when present, else the
// number of lines matching the diagnostic pattern is returned. Either
// pattern may be nil.
func CompilerText(summary, line *regexp.Regexp) Parser {
	return func(o Output) float64 {
		if o.ExitCode == runner.ExitNotFound {
			return Unavailable
		}
		if o.ExitCode == 0 {
			return 0
		}
		return countText(o.Combined(), summary, line)
	}
}

// SummaryText is CompilerText without the clean-exit shortcut, for tools
// that exit zero while still reporting errors.
func SummaryText(summary, line *regexp.Regexp) Parser {
	return func(o Output) float64 {
		if o.ExitCode == runner.ExitNotFound {
			return Unavailable
		}
		return countText(o.Combined(), summary, line)
	}
}

func countText(text string, summary, line *regexp.Regexp) float64 {
	if summary != nil {
		if m := summary.FindStringSubmatch(text); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return float64(n)
			}
		}
	}
	if line == nil {
		return 0
	}
	var n float64
	for _, l := range strings.Split(text, "\n") {
		if line.MatchString(l) {
			n++
		}
	}
	return n
}

// ---------------------------------------------------------------------------
// Percentage families
// ---------------------------------------------------------------------------

// PercentSummary returns the first percentage captured by any of the
// patterns, tried in order against stdout. No match reads as 0%.
func PercentSummary(patterns ...*regexp.Regexp) Parser {
	return func(o Output) float64 {
		if o.ExitCode == runner.ExitNotFound {
			return Unavailable
		}
		for _, p := range patterns {
			if m := p.FindStringSubmatch(o.Stdout); m != nil {
				v, err := strconv.ParseFloat(m[1], 64)
				if err != nil {
					return 0
				}
				return ClampPercent(v)
			}
		}
		return 0
	}
}

// PercentPerUnit averages every per-unit percentage captured by unit. When
// unit never matches, the looser fallback pattern is averaged instead.
// Output with no figures at all, such as packages without tests, reads as 0%.
func PercentPerUnit(unit, fallback *regexp.Regexp) Parser {
	return func(o Output) float64 {
		if o.ExitCode == runner.ExitNotFound {
			return Unavailable
		}
		for _, p := range []*regexp.Regexp{unit, fallback} {
			if p == nil {
				continue
			}
			if avg, ok := average(p.FindAllStringSubmatch(o.Stdout, -1)); ok {
				return ClampPercent(avg)
			}
		}
		return 0
	}
}

func average(matches [][]string) (float64, bool) {
	var sum float64
	var n int
	for _, m := range matches {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// ClampPercent limits v to [0, 100].
func ClampPercent(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(100, math.Max(0, v))
}
