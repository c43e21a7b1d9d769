package domain

import "fmt"

// Archetype is a coach personality variant used to pick tonally matching clips.
type Archetype string

const (
	ArchetypeMentor       Archetype = "mentor"
	ArchetypeProfessional Archetype = "professional"
	ArchetypePeer         Archetype = "peer"
)

// AllArchetypes lists the archetypes in canonical order.
var AllArchetypes = []Archetype{ArchetypeMentor, ArchetypeProfessional, ArchetypePeer}

// DefaultArchetypeFallbackOrder is the static resolution order per archetype.
// Every entry starts with its key and covers all three archetypes.
var DefaultArchetypeFallbackOrder = map[Archetype][]Archetype{
	ArchetypeMentor:       {ArchetypeMentor, ArchetypeProfessional, ArchetypePeer},
	ArchetypeProfessional: {ArchetypeProfessional, ArchetypeMentor, ArchetypePeer},
	ArchetypePeer:         {ArchetypePeer, ArchetypeProfessional, ArchetypeMentor},
}

// ParseArchetype validates an archetype string.
func ParseArchetype(s string) (Archetype, error) {
	for _, a := range AllArchetypes {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown archetype %q", s)
}

// ValidateFallbackOrder checks that order starts with the archetype it
// belongs to and lists known archetypes at most once. Archetypes left out
// are never tried.
func ValidateFallbackOrder(a Archetype, order []Archetype) error {
	if len(order) == 0 {
		return fmt.Errorf("fallback order for %s is empty", a)
	}
	if order[0] != a {
		return fmt.Errorf("fallback order for %s must start with %s, got %s", a, a, order[0])
	}
	seen := make(map[Archetype]bool, len(order))
	for _, o := range order {
		if _, err := ParseArchetype(string(o)); err != nil {
			return fmt.Errorf("fallback order for %s: %w", a, err)
		}
		if seen[o] {
			return fmt.Errorf("fallback order for %s lists %s twice", a, o)
		}
		seen[o] = true
	}
	return nil
}

// CloneFallbackOrder returns a deep copy so callers can't mutate the shared table.
func CloneFallbackOrder(src map[Archetype][]Archetype) map[Archetype][]Archetype {
	out := make(map[Archetype][]Archetype, len(src))
	for k, v := range src {
		out[k] = append([]Archetype(nil), v...)
	}
	return out
}
