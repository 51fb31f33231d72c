package escpos

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"thermalsub/internal/failures"
)

// CharsetPolicy decides what happens to text outside 7-bit ASCII.
type CharsetPolicy string

const (
	// CharsetFail aborts the run with an encoding error.
	CharsetFail CharsetPolicy = "fail"
	// CharsetSkip drops the offending physical line.
	CharsetSkip CharsetPolicy = "skip"
	// CharsetTransliterate strips diacritics and fails on anything left over.
	CharsetTransliterate CharsetPolicy = "transliterate"
)

// ParseCharsetPolicy validates a configured policy name.
func ParseCharsetPolicy(value string) (CharsetPolicy, error) {
	switch p := CharsetPolicy(strings.ToLower(strings.TrimSpace(value))); p {
	case "":
		return CharsetFail, nil
	case CharsetFail, CharsetSkip, CharsetTransliterate:
		return p, nil
	default:
		return "", fmt.Errorf("unknown charset policy %q", value)
	}
}

// BlankLine is the physical line that encodes to an empty payload.
const BlankLine = "_"

var sizeDirective = regexp.MustCompile(`\[size=([1-8])\]`)

var fixedDirectives = strings.NewReplacer(
	"[pagefeed]", string(PageFeed()),
	"[center]", string(Center()),
	"[b]", string(BoldOn()),
	"[/b]", string(BoldOff()),
)

// Encoded is the result of encoding one physical line.
type Encoded struct {
	// Data is the byte fragment, including the entry prefix when requested and
	// the trailing line feed.
	Data []byte
	// Fillers is the number of blank lines the caller must append after Data
	// to account for an enlarged font.
	Fillers int
	// Skipped reports that the line was dropped under CharsetSkip.
	Skipped bool
}

// Encoder converts subtitle text lines into ESC/POS fragments.
type Encoder struct {
	policy CharsetPolicy
}

// NewEncoder returns an encoder applying the given charset policy. An empty
// policy behaves like CharsetFail.
func NewEncoder(policy CharsetPolicy) *Encoder {
	if policy == "" {
		policy = CharsetFail
	}
	return &Encoder{policy: policy}
}

// EncodeLine encodes a single physical line. When first is set the fragment
// starts with a device reset and 16-dot line spacing so each subtitle entry
// begins from a known printer state.
func (e *Encoder) EncodeLine(line string, first bool) (Encoded, error) {
	var body []byte
	var fillers int
	if line != BlankLine {
		text, err := e.toASCII(line)
		if err != nil {
			if e.policy == CharsetSkip {
				return Encoded{Skipped: true}, nil
			}
			return Encoded{}, err
		}
		body, fillers = expandDirectives(text)
	}

	out := make([]byte, 0, len(body)+6)
	if first {
		out = append(out, EntryPrefix()...)
	}
	out = append(out, body...)
	out = append(out, LF)
	return Encoded{Data: out, Fillers: fillers}, nil
}

// expandDirectives replaces the fixed tokens, then each [size=N] token. The
// filler count is the largest N-1 seen on the line, since the tallest glyph
// determines how far the line reaches.
func expandDirectives(text string) ([]byte, int) {
	text = fixedDirectives.Replace(text)
	matches := sizeDirective.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return []byte(text), 0
	}
	out := make([]byte, 0, len(text))
	fillers := 0
	last := 0
	for _, m := range matches {
		out = append(out, text[last:m[0]]...)
		level, _ := strconv.Atoi(text[m[2]:m[3]])
		cmd, _ := CharSize(level)
		out = append(out, cmd...)
		fillers = max(fillers, level-1)
		last = m[1]
	}
	out = append(out, text[last:]...)
	return out, fillers
}

func (e *Encoder) toASCII(line string) (string, error) {
	if isASCII(line) {
		return line, nil
	}
	if e.policy == CharsetTransliterate {
		t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
		folded, _, err := transform.String(t, line)
		if err == nil && isASCII(folded) {
			return folded, nil
		}
	}
	r, pos := firstNonASCII(line)
	return "", failures.Wrap(failures.ErrEncoding, "escpos", "encode line",
		fmt.Sprintf("character %q at byte %d is outside 7-bit ASCII", r, pos), nil)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func firstNonASCII(s string) (rune, int) {
	for i, r := range s {
		if r >= utf8.RuneSelf {
			return r, i
		}
	}
	return utf8.RuneError, -1
}
