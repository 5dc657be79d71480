package conf

import "strings"

const escapeChar = '\\'

// ListHandler splits string values into lists and joins lists back.
type ListHandler interface {
	Split(s string, trim bool) []string
	Join(values []string) string
}

// DisabledListHandler never splits values.
type DisabledListHandler struct{}

// Split method implements ListHandler interface.
func (DisabledListHandler) Split(s string, _ bool) []string {
	return []string{s}
}

// Join method implements ListHandler interface. Only the first value is kept,
// because the handler cannot represent lists.
func (DisabledListHandler) Join(values []string) string {
	if len(values) == 0 {
		return ""
	}

	return values[0]
}

// DelimiterListHandler splits values at a delimiter character. A delimiter
// preceded by a backslash is not a separator.
type DelimiterListHandler struct {
	Delimiter rune
}

// Split method implements ListHandler interface.
func (h DelimiterListHandler) Split(s string, trim bool) []string {
	var res []string
	var buf strings.Builder
	runes := []rune(s)

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if r == escapeChar && i+1 < len(runes) && runes[i+1] == h.Delimiter {
			buf.WriteRune(h.Delimiter)
			i++

			continue
		}

		if r == h.Delimiter {
			res = append(res, h.item(buf.String(), trim))
			buf.Reset()

			continue
		}

		buf.WriteRune(r)
	}

	return append(res, h.item(buf.String(), trim))
}

// Join method implements ListHandler interface.
func (h DelimiterListHandler) Join(values []string) string {
	escaped := make([]string, len(values))

	for i, value := range values {
		escaped[i] = h.Escape(value)
	}

	return strings.Join(escaped, string(h.Delimiter))
}

// Escape method escapes delimiters in the value.
func (h DelimiterListHandler) Escape(s string) string {
	return strings.ReplaceAll(s, string(h.Delimiter),
		string([]rune{escapeChar, h.Delimiter}))
}

func (h DelimiterListHandler) item(s string, trim bool) string {
	if trim {
		return strings.TrimSpace(s)
	}

	return s
}
