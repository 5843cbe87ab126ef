package request

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Params holds request parameters. Values are string, []string or nested
// Params.
type Params map[string]any

// MergeOptions controls Params.Merge.
type MergeOptions struct {
	// Keys restricts the copied keys. Empty copies every key of the source.
	Keys []string

	// Index, when set, renames each copied key to <key>_<index>.
	Index *int
}

// WithIndex returns MergeOptions that suffix keys with _<index>.
func WithIndex(index int, keys ...string) MergeOptions {
	return MergeOptions{Keys: keys, Index: &index}
}

// FromValues converts url.Values: single values become string, repeated
// keys []string.
func FromValues(values url.Values) Params {
	p := make(Params, len(values))
	for k, vs := range values {
		switch len(vs) {
		case 0:
			p[k] = ""
		case 1:
			p[k] = vs[0]
		default:
			p[k] = append([]string(nil), vs...)
		}
	}
	return p
}

// ParseQuery parses a raw query string into Params.
func ParseQuery(query string) (Params, error) {
	values, err := url.ParseQuery(query)
	if err != nil {
		return nil, err
	}
	return FromValues(values), nil
}

// Merge copies src into p. Keys absent from src are skipped; existing
// destination keys are overwritten.
func (p Params) Merge(src map[string]any, opts MergeOptions) {
	keys := opts.Keys
	if len(keys) == 0 {
		keys = make([]string, 0, len(src))
		for k := range src {
			keys = append(keys, k)
		}
	}

	for _, k := range keys {
		v, ok := src[k]
		if !ok {
			continue
		}
		dst := k
		if opts.Index != nil {
			dst = k + "_" + strconv.Itoa(*opts.Index)
		}
		p[dst] = v
	}
}

// Get returns the raw value for key.
func (p Params) Get(key string) (any, bool) {
	v, ok := p[key]
	return v, ok
}

// GetString returns the first string value for key.
func (p Params) GetString(key string) string {
	switch v := p[key].(type) {
	case string:
		return v
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	case nil:
	default:
		return fmt.Sprint(v)
	}
	return ""
}

// GetStrings returns all string values for key.
func (p Params) GetStrings(key string) []string {
	switch v := p[key].(type) {
	case string:
		return []string{v}
	case []string:
		return v
	}
	return nil
}

// GetInt parses the value for key as an integer.
func (p Params) GetInt(key string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(p.GetString(key)))
}

// GetBool reports whether the value for key is a true-ish flag.
func (p Params) GetBool(key string) bool {
	switch strings.ToLower(strings.TrimSpace(p.GetString(key))) {
	case "1", "true", "yes", "on", "checked":
		return true
	}
	return false
}

// Nested returns the nested Params for key, or nil.
func (p Params) Nested(key string) Params {
	switch v := p[key].(type) {
	case Params:
		return v
	case map[string]any:
		return Params(v)
	}
	return nil
}

// IsBlank reports whether key is absent or holds only whitespace.
func (p Params) IsBlank(key string) bool {
	switch v := p[key].(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []string:
		for _, s := range v {
			if strings.TrimSpace(s) != "" {
				return false
			}
		}
		return true
	case Params:
		return len(v) == 0
	}
	return false
}

// Keys returns the parameter names in sorted order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
