package mdmx

import (
	"encoding/json"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ClassKey is the attribute that collects bare annotation tokens.
const ClassKey = "class"

// AttributeSet is an insertion-ordered set of markup attributes.
// Setting an existing key replaces its value but keeps its position.
type AttributeSet struct {
	m *orderedmap.OrderedMap[string, string]
}

// NewAttributeSet returns an empty attribute set.
func NewAttributeSet() *AttributeSet {
	return &AttributeSet{m: orderedmap.New[string, string]()}
}

// Set inserts or replaces key.
func (a *AttributeSet) Set(key, value string) {
	a.m.Set(key, value)
}

// Get returns the value stored for key.
func (a *AttributeSet) Get(key string) (string, bool) {
	return a.m.Get(key)
}

// Len returns the number of attributes.
func (a *AttributeSet) Len() int {
	if a == nil {
		return 0
	}
	return a.m.Len()
}

// Keys returns the attribute names in insertion order.
func (a *AttributeSet) Keys() []string {
	keys := make([]string, 0, a.Len())
	a.Each(func(k, _ string) {
		keys = append(keys, k)
	})
	return keys
}

// Each calls fn for every attribute in insertion order.
func (a *AttributeSet) Each(fn func(key, value string)) {
	if a == nil {
		return
	}
	for pair := a.m.Oldest(); pair != nil; pair = pair.Next() {
		fn(pair.Key, pair.Value)
	}
}

// Merge applies every entry of other on top of a. Later values win.
func (a *AttributeSet) Merge(other *AttributeSet) {
	other.Each(a.Set)
}

// addClass appends token to the class attribute.
func (a *AttributeSet) addClass(token string) {
	if existing, ok := a.m.Get(ClassKey); ok && existing != "" {
		a.m.Set(ClassKey, existing+" "+token)
		return
	}
	a.m.Set(ClassKey, token)
}

// MarshalJSON encodes the set as a JSON object in insertion order.
func (a *AttributeSet) MarshalJSON() ([]byte, error) {
	if a == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(a.m)
}

// String renders the set back into annotation form. Class entries are
// written as bare tokens.
func (a *AttributeSet) String() string {
	parts := make([]string, 0, a.Len())
	a.Each(func(k, v string) {
		if k == ClassKey && v != "" {
			parts = append(parts, strings.Fields(v)...)
			return
		}
		parts = append(parts, k+"="+v)
	})
	return strings.Join(parts, " ")
}

// ParseAttributes parses an annotation such as
// "hx-target=#result hx-swap=outerHTML primary" into an AttributeSet.
//
// Tokens are separated by runs of whitespace and split on the first '='.
// "key=" keeps an explicit empty value. A token without '=' is appended to
// the class attribute and a token with an empty name ("=x") is dropped.
// Duplicate keys resolve last-wins. There is no quoting,
// so a value can never contain whitespace.
func ParseAttributes(annotation string) *AttributeSet {
	attrs := NewAttributeSet()
	for _, token := range strings.Fields(annotation) {
		key, value, found := strings.Cut(token, "=")
		switch {
		case !found:
			attrs.addClass(token)
		case key == "":
			// "=value" has no name to bind to.
			continue
		default:
			attrs.Set(key, value)
		}
	}
	return attrs
}
