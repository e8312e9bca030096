package models

import "sort"

type StatusSet map[string]struct{}

func NewStatusSet(statuses ...string) StatusSet {
	s := make(StatusSet, len(statuses))
	for _, st := range statuses {
		s[st] = struct{}{}
	}
	return s
}

func (s StatusSet) Has(status string) bool {
	_, ok := s[status]
	return ok
}

func (s StatusSet) Values() []string {
	out := make([]string, 0, len(s))
	for st := range s {
		out = append(out, st)
	}
	sort.Strings(out)
	return out
}

// StatusPolicy holds the per-marketplace status allow-lists.
// Ready selects orders to mirror into the shipping platform,
// PreShip selects orders that may still be marked shipped.
type StatusPolicy struct {
	Ready   StatusSet
	PreShip StatusSet
}
