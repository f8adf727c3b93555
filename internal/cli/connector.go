package cli

import (
	"fmt"

	"github.com/raphaelgruber/onyx-admin/internal/client"
	"github.com/raphaelgruber/onyx-admin/internal/fetcher"
	"github.com/spf13/cobra"
)

var (
	reindexConnector     int
	reindexCredential    int
	reindexFromBeginning bool
)

var connectorCmd = &cobra.Command{
	Use:   "connector",
	Short: "Operate on connectors",
}

var connectorReindexCmd = &cobra.Command{
	Use:   "reindex [cc-pair-id]",
	Short: "Trigger an indexing run",
	Long: `Trigger an indexing run of a connector-credential pair.

The pair is looked up by id, or given directly with --connector and
--credential. With --from-beginning every document is fetched again.

Examples:
  onyxadmin connector reindex 12
  onyxadmin connector reindex --connector 4 --credential 9 --from-beginning`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConnectorReindex,
}

func init() {
	connectorReindexCmd.Flags().IntVar(&reindexConnector, "connector", 0, "connector id")
	connectorReindexCmd.Flags().IntVar(&reindexCredential, "credential", 0, "credential id")
	connectorReindexCmd.Flags().BoolVar(&reindexFromBeginning, "from-beginning", false, "re-fetch every document")

	connectorCmd.AddCommand(connectorReindexCmd)
}

func runConnectorReindex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := sess.RequireAdmin(ctx); err != nil {
		return err
	}

	connectorID, credentialID := reindexConnector, reindexCredential
	if len(args) == 1 {
		pairID, err := parseID("cc pair", args[0])
		if err != nil {
			return err
		}
		statuses, err := fetcher.NewResource[[]client.ConnectorIndexingStatus](
			sess.Cache(), client.IndexingStatusKey(false, false)).Get(ctx)
		if err != nil {
			return fmt.Errorf("indexing status: %w", err)
		}
		found := false
		for _, s := range statuses {
			if s.CCPairID == pairID {
				connectorID, credentialID, found = s.Connector.ID, s.Credential.ID, true
				break
			}
		}
		if !found {
			return fmt.Errorf("cc pair not found: %d", pairID)
		}
	}
	if connectorID <= 0 || credentialID <= 0 {
		return fmt.Errorf("give a cc pair id or both --connector and --credential")
	}

	return reported(sess.Dispatcher().Reindex(ctx, newSurface().Setter(), connectorID, credentialID, reindexFromBeginning))
}
