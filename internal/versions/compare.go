package versions

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Ordering selects how cached version identifiers are compared
type Ordering string

const (
	// OrderingLexical compares version identifiers as plain strings.
	// Non-padded numeric components mis-order (v1.10.0 sorts before v1.9.0).
	OrderingLexical Ordering = "lexical"

	// OrderingSemver compares semantic versions numerically. Identifiers that do not parse
	// as semver sort before all parseable ones and are compared lexically among themselves.
	OrderingSemver Ordering = "semver"
)

// ParseOrdering maps a configuration value to an Ordering, defaulting to lexical
func ParseOrdering(s string) (Ordering, error) {
	switch Ordering(strings.ToLower(strings.TrimSpace(s))) {
	case "", OrderingLexical:
		return OrderingLexical, nil
	case OrderingSemver:
		return OrderingSemver, nil
	default:
		return "", fmt.Errorf("unsupported version ordering %q (expected %s or %s)", s, OrderingLexical, OrderingSemver)
	}
}

// Compare returns -1, 0 or 1 depending on whether a sorts before, equal to or after b
func (o Ordering) Compare(a, b string) int {
	if o != OrderingSemver {
		return strings.Compare(a, b)
	}

	av, errA := semver.NewVersion(a)
	bv, errB := semver.NewVersion(b)
	switch {
	case errA != nil && errB != nil:
		return strings.Compare(a, b)
	case errA != nil:
		return -1
	case errB != nil:
		return 1
	}

	if c := av.Compare(bv); c != 0 {
		return c
	}
	// "v1.0.0" and "1.0.0" are equal semver but distinct directories
	return strings.Compare(a, b)
}

// Sort orders versions in place, oldest first
func (o Ordering) Sort(versions []string) {
	slices.SortFunc(versions, o.Compare)
}

// Predecessor returns the version immediately before current in versions.
// found reports whether current is present at all; ok reports whether a predecessor exists.
func (o Ordering) Predecessor(versions []string, current string) (prev string, found bool, ok bool) {
	sorted := slices.Clone(versions)
	o.Sort(sorted)
	idx := slices.Index(sorted, current)
	if idx < 0 {
		return "", false, false
	}
	if idx == 0 {
		return "", true, false
	}
	return sorted[idx-1], true, true
}
