package subtitles

import (
	"bufio"
	"cmp"
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"thermalsub/internal/failures"
)

// Record is one subtitle entry.
type Record struct {
	Index int
	Start time.Duration
	End   time.Duration
	Text  string
}

var timingLine = regexp.MustCompile(
	`^\s*(\d+):(\d{1,2}):(\d{1,2})[,.](\d{1,3})\s*-->\s*(\d+):(\d{1,2}):(\d{1,2})[,.](\d{1,3})`)

const maxLineBytes = 1 << 20

// ParseFile opens and parses the SRT file at path.
func ParseFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, failures.Wrap(failures.ErrParse, "subtitles", "open script", path, err)
	}
	defer f.Close()
	records, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// Parse reads an SRT stream. Records are returned sorted by start time; the
// sort is stable so entries sharing a start keep their file order.
func Parse(r io.Reader) ([]Record, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	scanner := bufio.NewScanner(decoded)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var (
		records []Record
		lineNo  int
	)
	next := func() (string, bool) {
		if !scanner.Scan() {
			return "", false
		}
		lineNo++
		return strings.TrimRight(scanner.Text(), "\r"), true
	}

	for {
		line, ok := next()
		if !ok {
			break
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		index, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil {
			return nil, parseError(lineNo, "invalid sequence line %q", line)
		}

		line, ok = next()
		if !ok {
			return nil, parseError(lineNo, "block %d has no timing line", index)
		}
		start, end, err := parseTiming(line)
		if err != nil {
			return nil, parseError(lineNo, "%v", err)
		}

		var text []string
		for {
			line, ok = next()
			if !ok || line == "" {
				break
			}
			text = append(text, line)
		}

		records = append(records, Record{
			Index: index,
			Start: start,
			End:   end,
			Text:  strings.Join(text, "\n"),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, failures.Wrap(failures.ErrParse, "subtitles", "read", fmt.Sprintf("line %d", lineNo+1), err)
	}

	slices.SortStableFunc(records, func(a, b Record) int {
		return cmp.Compare(a.Start, b.Start)
	})
	return records, nil
}

func parseTiming(line string) (time.Duration, time.Duration, error) {
	m := timingLine.FindStringSubmatch(line)
	if m == nil {
		return 0, 0, fmt.Errorf("invalid time line %q", line)
	}
	start, err := timestamp(m[1:5])
	if err != nil {
		return 0, 0, err
	}
	end, err := timestamp(m[5:9])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

func timestamp(parts []string) (time.Duration, error) {
	hours, _ := strconv.Atoi(parts[0])
	minutes, _ := strconv.Atoi(parts[1])
	seconds, _ := strconv.Atoi(parts[2])
	if minutes > 59 || seconds > 59 {
		return 0, fmt.Errorf("timestamp %s:%s:%s out of range", parts[0], parts[1], parts[2])
	}
	// A short fraction is a decimal fraction: ",5" is half a second.
	frac := parts[3] + strings.Repeat("0", 3-len(parts[3]))
	millis, _ := strconv.Atoi(frac)
	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(millis)*time.Millisecond, nil
}

func parseError(line int, format string, args ...any) error {
	return failures.Wrap(failures.ErrParse, "subtitles", fmt.Sprintf("line %d", line), fmt.Sprintf(format, args...), nil)
}

// FormatTimestamp renders d in SRT notation (HH:MM:SS,mmm). Negative values
// clamp to zero.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := d / time.Hour
	minutes := (d % time.Hour) / time.Minute
	seconds := (d % time.Minute) / time.Second
	millis := (d % time.Second) / time.Millisecond
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, millis)
}
