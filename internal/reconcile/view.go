package reconcile

import (
	"errors"
	"fmt"

	"github.com/raphaelgruber/onyx-admin/internal/client"
	"github.com/raphaelgruber/onyx-admin/internal/fetcher"
)

// IndexingTable is the merged connector status table.
type IndexingTable struct {
	Editable []client.ConnectorIndexingStatus `yaml:"editable"`
	Others   []client.ConnectorIndexingStatus `yaml:"others"`
}

// Rows returns the editable rows followed by the others.
func (t IndexingTable) Rows() []client.ConnectorIndexingStatus {
	out := make([]client.ConnectorIndexingStatus, 0, len(t.Editable)+len(t.Others))
	out = append(out, t.Editable...)
	return append(out, t.Others...)
}

// decodeAll decodes each state into its target and joins every failure,
// so a view is either complete or not produced at all.
func decodeAll(parts ...func() error) error {
	var errs []error
	for _, p := range parts {
		if err := p(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func decodeInto[T any](s fetcher.State, out *T) func() error {
	return func() error {
		v, err := fetcher.Decode[T](s)
		if err != nil {
			return fmt.Errorf("%s: %w", s.Key, err)
		}
		*out = v
		return nil
	}
}

// IndexingView merges the all-visible and editable indexing status lists.
// If either list failed to load the table is not built and the joined
// error is returned.
func IndexingView(all, editable fetcher.State) (IndexingTable, error) {
	var allList, editableList []client.ConnectorIndexingStatus
	if err := decodeAll(
		decodeInto(all, &allList),
		decodeInto(editable, &editableList),
	); err != nil {
		return IndexingTable{}, err
	}
	mine, others := PartitionEditable(allList, editableList)
	return IndexingTable{Editable: mine, Others: others}, nil
}

// EmbeddingMode tells whether an embedding model switch is under way.
type EmbeddingMode string

const (
	ModeSteady    EmbeddingMode = "steady"
	ModeUpgrading EmbeddingMode = "upgrading"
)

// EmbeddingStatus is the embedding configuration page state.
type EmbeddingStatus struct {
	Mode      EmbeddingMode                          `yaml:"mode"`
	Current   *client.EmbeddingModel                 `yaml:"current,omitempty"`
	Future    *client.EmbeddingModel                 `yaml:"future,omitempty"`
	Progress  []client.ConnectorIndexingStatus       `yaml:"progress,omitempty"`
	Failed    []client.FailedConnectorIndexingStatus `yaml:"failed,omitempty"`
	Completed int                                    `yaml:"completed"`
	Total     int                                    `yaml:"total"`
}

// Fraction is the share of pairs already re-indexed, 1 when there are none.
func (s EmbeddingStatus) Fraction() float64 {
	if s.Total == 0 {
		return 1
	}
	return float64(s.Completed) / float64(s.Total)
}

// EmbeddingView builds the embedding status. Without a future model the
// view is steady and progress and failed are not consulted.
func EmbeddingView(current, future, progress, failed fetcher.State) (EmbeddingStatus, error) {
	var cur, fut *client.EmbeddingModel
	if err := decodeAll(
		decodeInto(current, &cur),
		decodeInto(future, &fut),
	); err != nil {
		return EmbeddingStatus{}, err
	}
	if fut == nil {
		return EmbeddingStatus{Mode: ModeSteady, Current: cur}, nil
	}

	var progressList []client.ConnectorIndexingStatus
	var failedList []client.FailedConnectorIndexingStatus
	if err := decodeAll(
		decodeInto(progress, &progressList),
		decodeInto(failed, &failedList),
	); err != nil {
		return EmbeddingStatus{}, err
	}

	sorted := SortReindexingProgress(progressList)
	completed := 0
	for _, c := range sorted {
		switch EffectiveStatus(c) {
		case client.AttemptSuccess, client.AttemptCompletedWithErrors:
			completed++
		}
	}
	return EmbeddingStatus{
		Mode:      ModeUpgrading,
		Current:   cur,
		Future:    fut,
		Progress:  sorted,
		Failed:    failedList,
		Completed: completed,
		Total:     len(sorted),
	}, nil
}
