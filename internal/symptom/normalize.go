package symptom

import (
	"sort"
	"strings"
)

// Set is a collection of canonical symptom names.
type Set map[string]struct{}

func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Overlap counts the names present in both sets.
func (s Set) Overlap(other Set) int {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	n := 0
	for name := range small {
		if large.Has(name) {
			n++
		}
	}
	return n
}

// Sorted returns the members in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for name := range s {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Canonical strips the decorative prefix of a picker label: everything up to
// and including the first space. Labels without a space are returned as is.
func Canonical(label string) string {
	if _, rest, ok := strings.Cut(label, " "); ok {
		return rest
	}
	return label
}

// CleanLabels canonicalises labels and keeps their order and duplicates.
func CleanLabels(labels []string) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = Canonical(l)
	}
	return out
}

// Normalize turns raw picker labels into the canonical set used for matching.
func Normalize(labels []string) Set {
	s := make(Set, len(labels))
	for _, l := range labels {
		s[Canonical(l)] = struct{}{}
	}
	return s
}

// Selection is the ordered list of labels a user picked for one request.
type Selection struct {
	Raw []string
}

func (s Selection) Empty() bool { return len(s.Raw) == 0 }

func (s Selection) Canonical() Set { return Normalize(s.Raw) }

// Phrase renders the selection for the description shown back to the user,
// e.g. "Patient reports symptoms: Fever, Chills. ". An empty selection yields "".
func (s Selection) Phrase() string {
	if s.Empty() {
		return ""
	}
	return "Patient reports symptoms: " + strings.Join(CleanLabels(s.Raw), ", ") + ". "
}
