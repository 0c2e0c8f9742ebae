package page

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Form is the name -> value state of an HTML form. Names keep the order in
// which they were first set, and Encode reproduces that order, so hidden
// ASP.NET state fields go back to the server exactly as they arrived.
type Form struct {
	names  []string
	values map[string]string
}

func NewForm() *Form {
	return &Form{values: make(map[string]string)}
}

// Set replaces the value of an existing field in place or appends a new one.
func (f *Form) Set(name, value string) {
	if _, ok := f.values[name]; !ok {
		f.names = append(f.names, name)
	}
	f.values[name] = value
}

func (f *Form) Get(name string) (string, bool) {
	v, ok := f.values[name]
	return v, ok
}

func (f *Form) Len() int {
	return len(f.names)
}

// Names returns the field names in form order.
func (f *Form) Names() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

// Values converts the form to url.Values. Field order is lost.
func (f *Form) Values() url.Values {
	v := make(url.Values, len(f.names))
	for _, name := range f.names {
		v.Set(name, f.values[name])
	}
	return v
}

// Encode returns the form in application/x-www-form-urlencoded format,
// keeping field order.
func (f *Form) Encode() string {
	var b strings.Builder
	for i, name := range f.names {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(f.values[name]))
	}
	return b.String()
}

// String renders the form for debug logs with sorted keys.
func (f *Form) String() string {
	names := f.Names()
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%q", name, f.values[name]))
	}
	return "{" + strings.Join(parts, " ") + "}"
}
