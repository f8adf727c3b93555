package mutation

import (
	"context"
	"net/http"

	"github.com/raphaelgruber/onyx-admin/internal/client"
	"github.com/raphaelgruber/onyx-admin/internal/popup"
)

// indexingKeys are every resource key a connector run can change.
func indexingKeys() []string {
	return []string{
		client.IndexingStatusKey(false, false),
		client.IndexingStatusKey(false, true),
		client.IndexingStatusKey(true, false),
		client.IndexingStatusKey(true, true),
		client.FailedIndexingStatusKey(false),
		client.FailedIndexingStatusKey(true),
	}
}

// Reindex triggers an indexing run of one connector-credential pair. With
// fromBeginning every document is re-fetched instead of only new ones.
func (d *Dispatcher) Reindex(ctx context.Context, set popup.Setter, connectorID, credentialID int, fromBeginning bool) error {
	body := client.RunConnectorRequest{
		ConnectorID:   connectorID,
		CredentialIDs: []int{credentialID},
		FromBeginning: fromBeginning,
	}
	if res := d.Perform(ctx, http.MethodPost, client.RunConnectorPath, body); !res.OK {
		popup.Report(set, popup.Error(res.Detail))
		return &StepError{Step: StepPersist, Err: res.Err}
	}
	d.Invalidate(indexingKeys()...)
	popup.Report(set, popup.Success("Triggered connector run"))
	return nil
}
