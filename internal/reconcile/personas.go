package reconcile

import (
	"cmp"
	"slices"

	"github.com/raphaelgruber/onyx-admin/internal/client"
	"github.com/samber/lo"
)

func comparePersonas(a, b client.Persona) int {
	switch {
	case a.DisplayPriority == nil && b.DisplayPriority != nil:
		return 1
	case a.DisplayPriority != nil && b.DisplayPriority == nil:
		return -1
	case a.DisplayPriority != nil && b.DisplayPriority != nil:
		if c := cmp.Compare(*a.DisplayPriority, *b.DisplayPriority); c != 0 {
			return c
		}
	}
	return cmp.Compare(a.ID, b.ID)
}

// SortPersonas orders personas by display priority, unprioritized last,
// then by id.
func SortPersonas(personas []client.Persona) []client.Persona {
	out := slices.Clone(personas)
	slices.SortStableFunc(out, comparePersonas)
	return out
}

// OrderPersonas returns the editable personas followed by every other
// persona in all, each group sorted with SortPersonas.
func OrderPersonas(all, editable []client.Persona) []client.Persona {
	byID := func(p client.Persona) int { return p.ID }
	editable = lo.UniqBy(editable, byID)
	editableIDs := lo.SliceToMap(editable, func(p client.Persona) (int, struct{}) {
		return p.ID, struct{}{}
	})
	rest := lo.UniqBy(lo.Reject(all, func(p client.Persona, _ int) bool {
		_, ok := editableIDs[p.ID]
		return ok
	}), byID)
	return append(SortPersonas(editable), SortPersonas(rest)...)
}

// PersonaIDs returns the ids of personas in order.
func PersonaIDs(personas []client.Persona) []int {
	return lo.Map(personas, func(p client.Persona, _ int) int { return p.ID })
}

// DisplayPriorityMap assigns each id its position in ids.
func DisplayPriorityMap(ids []int) map[int]int {
	m := make(map[int]int, len(ids))
	for i, id := range ids {
		m[id] = i
	}
	return m
}

// ApplyOrder rearranges personas to follow ids. Personas missing from ids
// keep their relative order after the listed ones; unknown ids are ignored.
func ApplyOrder(personas []client.Persona, ids []int) []client.Persona {
	byID := lo.KeyBy(personas, func(p client.Persona) int { return p.ID })
	out := make([]client.Persona, 0, len(personas))
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, p)
	}
	for _, p := range personas {
		if _, ok := seen[p.ID]; !ok {
			out = append(out, p)
		}
	}
	return out
}
