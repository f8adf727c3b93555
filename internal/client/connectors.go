package client

import "net/url"

// Connector admin endpoints.
const (
	IndexingStatusPath       = "/api/manage/admin/connector/indexing-status"
	FailedIndexingStatusPath = "/api/manage/admin/connector/failed-indexing-status"
	RunConnectorPath         = "/api/manage/admin/connector/run-once"
)

// IndexingStatusKey returns the resource key of an indexing-status listing.
// secondary selects the in-transition embedding index; editable limits the
// list to cc pairs the caller may edit.
func IndexingStatusKey(secondary, editable bool) string {
	q := url.Values{}
	if secondary {
		q.Set("secondary_index", "true")
	}
	if editable {
		q.Set("get_editable", "true")
	}
	return withQuery(IndexingStatusPath, q)
}

// FailedIndexingStatusKey returns the resource key of the failed-attempt listing.
func FailedIndexingStatusKey(secondary bool) string {
	q := url.Values{}
	if secondary {
		q.Set("secondary_index", "true")
	}
	return withQuery(FailedIndexingStatusPath, q)
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}
