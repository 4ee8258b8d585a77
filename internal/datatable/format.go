package datatable

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultDatePattern is the display pattern of the widget's "Last check" row
const DefaultDatePattern = "MM/dd/yy h:mm:ss a"

type datePart struct {
	letter  byte
	count   int
	literal string
}

// DateFormat formats timestamps with an ICU-style pattern such as
// "MM/dd/yy h:mm:ss a". Month and day names and the AM/PM marker are always
// English.
type DateFormat struct {
	pattern string
	parts   []datePart
}

// NewDateFormat compiles a date pattern. Supported letters are y, M, d, E,
// H, h, m, s and a; text inside single quotes is copied literally.
func NewDateFormat(pattern string) (DateFormat, error) {
	if pattern == "" {
		return DateFormat{}, fmt.Errorf("empty date pattern")
	}

	var parts []datePart
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			parts = append(parts, datePart{literal: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(pattern); {
		c := pattern[i]
		switch {
		case c == '\'':
			if i+1 < len(pattern) && pattern[i+1] == '\'' {
				lit.WriteByte('\'')
				i += 2
				continue
			}
			end := strings.IndexByte(pattern[i+1:], '\'')
			if end < 0 {
				return DateFormat{}, fmt.Errorf("unterminated quote in date pattern %q", pattern)
			}
			lit.WriteString(pattern[i+1 : i+1+end])
			i += end + 2
		case (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
			if !strings.ContainsRune("yMdEHhmsa", rune(c)) {
				return DateFormat{}, fmt.Errorf("unsupported letter %q in date pattern %q", c, pattern)
			}
			n := 1
			for i+n < len(pattern) && pattern[i+n] == c {
				n++
			}
			flush()
			parts = append(parts, datePart{letter: c, count: n})
			i += n
		default:
			lit.WriteByte(c)
			i++
		}
	}
	flush()

	return DateFormat{pattern: pattern, parts: parts}, nil
}

// Pattern returns the source pattern
func (f DateFormat) Pattern() string {
	return f.pattern
}

// Format renders t in its own location
func (f DateFormat) Format(t time.Time) string {
	var b strings.Builder
	for _, p := range f.parts {
		if p.letter == 0 {
			b.WriteString(p.literal)
			continue
		}
		b.WriteString(formatField(t, p.letter, p.count))
	}
	return b.String()
}

func formatField(t time.Time, letter byte, count int) string {
	switch letter {
	case 'y':
		if count == 2 {
			return pad(t.Year()%100, 2)
		}
		return pad(t.Year(), count)
	case 'M':
		switch {
		case count >= 4:
			return t.Month().String()
		case count == 3:
			return t.Month().String()[:3]
		}
		return pad(int(t.Month()), count)
	case 'd':
		return pad(t.Day(), count)
	case 'E':
		if count >= 4 {
			return t.Weekday().String()
		}
		return t.Weekday().String()[:3]
	case 'H':
		return pad(t.Hour(), count)
	case 'h':
		h := t.Hour() % 12
		if h == 0 {
			h = 12
		}
		return pad(h, count)
	case 'm':
		return pad(t.Minute(), count)
	case 's':
		return pad(t.Second(), count)
	case 'a':
		if t.Hour() < 12 {
			return "AM"
		}
		return "PM"
	}
	return ""
}

func pad(n, width int) string {
	s := strconv.Itoa(n)
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
