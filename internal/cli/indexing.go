package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/raphaelgruber/onyx-admin/internal/client"
	"github.com/raphaelgruber/onyx-admin/internal/fetcher"
	"github.com/raphaelgruber/onyx-admin/internal/reconcile"
	"github.com/spf13/cobra"
)

var (
	indexingWatch     bool
	indexingSecondary bool
)

var indexingCmd = &cobra.Command{
	Use:   "indexing",
	Short: "Inspect connector indexing",
	Long: `Inspect the indexing status of every connector-credential pair.

Subcommands:
  status  Indexing status of all pairs, editable ones first
  failed  Pairs whose latest attempt failed

Examples:
  onyxadmin indexing status
  onyxadmin indexing status --watch
  onyxadmin indexing failed --secondary`,
}

var indexingStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show indexing status of all connectors",
	Args:  cobra.NoArgs,
	RunE:  runIndexingStatus,
}

var indexingFailedCmd = &cobra.Command{
	Use:   "failed",
	Short: "List connectors whose latest attempt failed",
	Args:  cobra.NoArgs,
	RunE:  runIndexingFailed,
}

func init() {
	indexingStatusCmd.Flags().BoolVarP(&indexingWatch, "watch", "w", false, "keep polling and redraw on change")
	indexingCmd.PersistentFlags().BoolVar(&indexingSecondary, "secondary", false, "use the index of the embedding model being switched to")

	indexingCmd.AddCommand(indexingStatusCmd)
	indexingCmd.AddCommand(indexingFailedCmd)
}

func runIndexingStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := sess.RequireAdmin(ctx); err != nil {
		return err
	}

	allKey := client.IndexingStatusKey(indexingSecondary, false)
	editableKey := client.IndexingStatusKey(indexingSecondary, true)
	keys := []string{allKey, editableKey}

	if wantYAML() {
		table, err := reconcile.IndexingView(sess.Cache().Get(ctx, allKey), sess.Cache().Get(ctx, editableKey))
		if err != nil {
			return fmt.Errorf("indexing status: %w", err)
		}
		return printYAML(table)
	}

	render := func(states map[string]fetcher.State) frame {
		table, err := reconcile.IndexingView(states[allKey], states[editableKey])
		if err != nil {
			return loadingFrame(err)
		}
		return frame{Body: formatIndexingTable(defaultTheme, table)}
	}

	if !indexingWatch {
		return renderOnce(ctx, keys, render)
	}
	return runWatch(ctx, "Indexing status", keys, render)
}

func formatIndexingTable(theme Theme, table reconcile.IndexingTable) string {
	rows := table.Rows()
	if len(rows) == 0 {
		return "No connectors found.\n"
	}

	var b strings.Builder
	if len(table.Editable) > 0 {
		fmt.Fprintf(&b, "Editable (%d):\n", len(table.Editable))
		b.WriteString(indexingRows(theme, table.Editable))
	}
	if len(table.Others) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Other (%d):\n", len(table.Others))
		b.WriteString(indexingRows(theme, table.Others))
	}

	b.WriteString("\n")
	b.WriteString(formatStatusCounts(reconcile.CountByStatus(rows)))
	return b.String()
}

// formatStatusCounts renders counts in status order, failures first.
func formatStatusCounts(counts map[client.AttemptStatus]int) string {
	statuses := make([]client.AttemptStatus, 0, len(counts))
	for s := range counts {
		statuses = append(statuses, s)
	}
	slices.SortFunc(statuses, func(a, b client.AttemptStatus) int {
		return reconcile.Rank(a) - reconcile.Rank(b)
	})

	parts := make([]string, 0, len(statuses))
	for _, s := range statuses {
		parts = append(parts, fmt.Sprintf("%s: %d", s, counts[s]))
	}
	return strings.Join(parts, "  ") + "\n"
}

func runIndexingFailed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := sess.RequireAdmin(ctx); err != nil {
		return err
	}

	failed, err := fetcher.NewResource[[]client.FailedConnectorIndexingStatus](
		sess.Cache(), client.FailedIndexingStatusKey(indexingSecondary)).Get(ctx)
	if err != nil {
		return fmt.Errorf("failed indexing status: %w", err)
	}

	if wantYAML() {
		return printYAML(failed)
	}
	if len(failed) == 0 {
		fmt.Println("No failed connectors.")
		return nil
	}

	fmt.Printf("Failed (%d):\n\n", len(failed))
	fmt.Printf("%-6s %-32s %-10s %-10s %s\n", "PAIR", "NAME", "CONNECTOR", "CREDENTIAL", "ERROR")
	for _, f := range failed {
		fmt.Printf("%-6d %-32s %-10d %-10d %s\n",
			f.CCPairID, truncate(f.Name, 32), f.ConnectorID, f.CredentialID, orDash(deref(f.ErrorMsg)))
	}
	if verbose {
		fmt.Println("\nRetry with: onyxadmin connector reindex <pair> --connector <id> --credential <id>")
	}
	return nil
}
