package transferconfig

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"github.com/gobwas/glob"
)

// Fields is a submitted form: field name to raw string value.
type Fields map[string]string

// FromValues flattens url.Values, keeping the first value of each key.
func FromValues(values url.Values) Fields {
	fields := make(Fields, len(values))
	for k, v := range values {
		if len(v) > 0 {
			fields[k] = v[0]
		}
	}
	return fields
}

func (f Fields) Get(key string) string {
	return strings.TrimSpace(f[key])
}

// Has reports whether key was submitted at all, even empty.
func (f Fields) Has(key string) bool {
	_, ok := f[key]
	return ok
}

// parseFlag reads a checkbox style value. Missing and empty mean false.
func parseFlag(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "0", "false", "off", "no":
		return false, nil
	case "1", "true", "on", "yes":
		return true, nil
	}
	return false, fmt.Errorf("%q is not a yes/no value", s)
}

// splitPatterns splits a filter on commas and whitespace.
func splitPatterns(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}

func checkGlobs(s string) error {
	for _, pattern := range splitPatterns(s) {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("invalid pattern %q", pattern)
		}
	}
	return nil
}

func parseIDList(s string) ([]int64, error) {
	var ids []int64
	for _, part := range splitPatterns(s) {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%q is not a record id", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func hasWhitespace(s string) bool {
	return strings.IndexFunc(s, unicode.IsSpace) >= 0
}
