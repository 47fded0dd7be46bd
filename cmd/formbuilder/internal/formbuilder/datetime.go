package formbuilder

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/thalib/formbuilder/cmd/formbuilder/internal/widget"
)

// DateParts is the structured value of date and time elements
type DateParts = widget.DateParts

var storageLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"15:04:05",
	"15:04",
}

// DateFromStorage splits a stored date, time or datetime into the parts
// named by format. An empty format yields every part. Values that cannot be
// read, including nil and zero dates, give empty parts.
func DateFromStorage(value any, format string) DateParts {
	keys := partKeys(format)
	parts := make(DateParts, len(keys))
	for _, key := range keys {
		parts[key] = ""
	}

	t, hasDate, hasTime, ok := parseStored(value)
	if !ok {
		return parts
	}

	for _, key := range keys {
		switch key {
		case "d":
			if hasDate {
				parts[key] = fmt.Sprintf("%02d", t.Day())
			}
		case "m", "M":
			if hasDate {
				parts[key] = fmt.Sprintf("%02d", int(t.Month()))
			}
		case "Y":
			if hasDate {
				parts[key] = fmt.Sprintf("%04d", t.Year())
			}
		case "H":
			if hasTime {
				parts[key] = fmt.Sprintf("%02d", t.Hour())
			}
		case "i":
			if hasTime {
				parts[key] = fmt.Sprintf("%02d", t.Minute())
			}
		case "s":
			if hasTime {
				parts[key] = fmt.Sprintf("%02d", t.Second())
			}
		}
	}
	return parts
}

// DateToStorage joins date parts into "Y-m-d", "H:i:s" or both separated
// by a space. The month comes from M, else m, as a number or an English
// month name or abbreviation. A half is left out unless all
// of its parts are present; nil is returned when both are.
func DateToStorage(parts DateParts) any {
	month := monthNumber(parts["M"])
	if month == "" {
		month = monthNumber(parts["m"])
	}

	var halves []string
	if parts["Y"] != "" && month != "" && parts["d"] != "" {
		halves = append(halves, fmt.Sprintf("%s-%s-%s", pad(parts["Y"], 4), pad(month, 2), pad(parts["d"], 2)))
	}
	if parts["H"] != "" && parts["i"] != "" && parts["s"] != "" {
		halves = append(halves, fmt.Sprintf("%s:%s:%s", pad(parts["H"], 2), pad(parts["i"], 2), pad(parts["s"], 2)))
	}

	if len(halves) == 0 {
		return nil
	}
	return strings.Join(halves, " ")
}

func partKeys(format string) []string {
	var keys []string
	for _, r := range format {
		switch key := string(r); key {
		case "d", "m", "M", "Y", "H", "i", "s":
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return []string{"d", "m", "Y", "H", "i", "s"}
	}
	return keys
}

func parseStored(value any) (t time.Time, hasDate, hasTime, ok bool) {
	switch v := value.(type) {
	case time.Time:
		if v.IsZero() {
			return t, false, false, false
		}
		return v, true, true, true
	case int64:
		return time.Unix(v, 0).UTC(), true, true, true
	case int:
		return time.Unix(int64(v), 0).UTC(), true, true, true
	case string:
		s := strings.TrimSpace(v)
		if s == "" || strings.HasPrefix(s, "0000-00-00") {
			return t, false, false, false
		}
		for _, layout := range storageLayouts {
			parsed, err := time.Parse(layout, s)
			if err != nil {
				continue
			}
			hasDate = strings.Contains(layout, "2006")
			hasTime = strings.Contains(layout, "15")
			return parsed, hasDate, hasTime, true
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.Unix(n, 0).UTC(), true, true, true
		}
	}
	return t, false, false, false
}

// monthNumber returns month as a number. Names that are not months are
// returned unchanged.
func monthNumber(month string) string {
	month = strings.TrimSpace(month)
	if month == "" {
		return ""
	}
	if _, err := strconv.Atoi(month); err == nil {
		return month
	}
	name := strings.ToLower(strings.TrimSuffix(month, "."))
	for m := time.January; m <= time.December; m++ {
		full := strings.ToLower(m.String())
		if name == full || (len(name) >= 3 && strings.HasPrefix(full, name)) {
			return strconv.Itoa(int(m))
		}
	}
	return month
}

func pad(s string, width int) string {
	s = strings.TrimSpace(s)
	for len(s) < width {
		s = "0" + s
	}
	return s
}
