package reconcile

import (
	"github.com/raphaelgruber/onyx-admin/internal/client"
	"github.com/samber/lo"
)

// UniqueDocuments drops repeated document ids, keeping the first occurrence.
func UniqueDocuments(docs []client.SearchDocument) []client.SearchDocument {
	return lo.UniqBy(docs, func(d client.SearchDocument) string {
		return d.DocumentID
	})
}

// PartitionEditable splits all into the pairs present in editable and the
// rest. Each part is deduplicated by cc pair id and sorted by source; the
// editable part comes first in the returned slice.
func PartitionEditable(all, editable []client.ConnectorIndexingStatus) (mine, others []client.ConnectorIndexingStatus) {
	byID := func(c client.ConnectorIndexingStatus) int { return c.CCPairID }

	mine = lo.UniqBy(editable, byID)
	editableIDs := lo.SliceToMap(mine, func(c client.ConnectorIndexingStatus) (int, struct{}) {
		return c.CCPairID, struct{}{}
	})
	others = lo.UniqBy(lo.Reject(all, func(c client.ConnectorIndexingStatus, _ int) bool {
		_, ok := editableIDs[c.CCPairID]
		return ok
	}), byID)

	return SortBySource(mine), SortBySource(others)
}
