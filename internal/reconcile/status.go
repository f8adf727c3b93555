// Package reconcile turns raw backend resources into ordered, deduplicated
// views. Every function is pure: inputs are never modified.
package reconcile

import (
	"cmp"
	"slices"

	"github.com/raphaelgruber/onyx-admin/internal/client"
)

// StatusOrder ranks attempt statuses for display, failure-like states first.
// It is the only ordering table; every view sorts through Rank.
var StatusOrder = map[client.AttemptStatus]int{
	client.AttemptFailed:              0,
	client.AttemptCanceled:            1,
	client.AttemptCompletedWithErrors: 2,
	client.AttemptNotStarted:          3,
	client.AttemptInProgress:          4,
	client.AttemptSuccess:             5,
}

// Rank returns the StatusOrder position of s. Unknown statuses rank with
// not_started.
func Rank(s client.AttemptStatus) int {
	if r, ok := StatusOrder[s]; ok {
		return r
	}
	return StatusOrder[client.AttemptNotStarted]
}

// EffectiveStatus is the status of the latest attempt, or not_started when
// the pair has never been indexed.
func EffectiveStatus(c client.ConnectorIndexingStatus) client.AttemptStatus {
	if c.LatestIndexAttempt == nil {
		return client.AttemptNotStarted
	}
	return c.LatestIndexAttempt.Status
}

func attemptID(c client.ConnectorIndexingStatus) int {
	if c.LatestIndexAttempt == nil {
		return 0
	}
	return c.LatestIndexAttempt.ID
}

// SortReindexingProgress orders pairs by StatusOrder ascending, ties broken
// by ascending attempt id.
func SortReindexingProgress(list []client.ConnectorIndexingStatus) []client.ConnectorIndexingStatus {
	out := slices.Clone(list)
	slices.SortStableFunc(out, func(a, b client.ConnectorIndexingStatus) int {
		return cmp.Or(
			cmp.Compare(Rank(EffectiveStatus(a)), Rank(EffectiveStatus(b))),
			cmp.Compare(attemptID(a), attemptID(b)),
		)
	})
	return out
}

// SortBySource orders pairs alphabetically by connector source, then name.
func SortBySource(list []client.ConnectorIndexingStatus) []client.ConnectorIndexingStatus {
	out := slices.Clone(list)
	slices.SortStableFunc(out, func(a, b client.ConnectorIndexingStatus) int {
		return cmp.Or(
			cmp.Compare(a.Connector.Source, b.Connector.Source),
			cmp.Compare(a.Name, b.Name),
		)
	})
	return out
}

// CountByStatus tallies the effective status of every pair.
func CountByStatus(list []client.ConnectorIndexingStatus) map[client.AttemptStatus]int {
	counts := make(map[client.AttemptStatus]int, len(StatusOrder))
	for _, c := range list {
		counts[EffectiveStatus(c)]++
	}
	return counts
}

// IsTerminal reports whether an attempt in status s will not change again.
func IsTerminal(s client.AttemptStatus) bool {
	switch s {
	case client.AttemptSuccess, client.AttemptCompletedWithErrors,
		client.AttemptFailed, client.AttemptCanceled:
		return true
	}
	return false
}
