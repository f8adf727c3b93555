package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/raphaelgruber/onyx-admin/internal/client"
	"github.com/raphaelgruber/onyx-admin/internal/fetcher"
	"github.com/raphaelgruber/onyx-admin/internal/reconcile"
	"github.com/raphaelgruber/onyx-admin/internal/validation"
	"github.com/spf13/cobra"
)

var (
	embeddingWatch      bool
	embeddingAPIKey     string
	embeddingKeyFile    string
	embeddingAPIURL     string
	embeddingModel      string
	embeddingDeployment string
	embeddingAPIVersion string
	embeddingForce      bool
)

var embeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Manage embedding models and providers",
	Long: `Manage the embedding model and the cloud providers that serve it.

While the backend switches to a new embedding model every connector is
re-indexed into the new index; 'status' shows how far that got.

Examples:
  onyxadmin embedding status --watch
  onyxadmin embedding add-provider cohere
  onyxadmin embedding add-provider litellm --api-url http://litellm:4000 --model embed-v3
  onyxadmin embedding change-key openai
  onyxadmin embedding cancel-switch`,
}

var embeddingStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the embedding model and any switch in progress",
	Args:  cobra.NoArgs,
	RunE:  runEmbeddingStatus,
}

var embeddingProvidersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List configured embedding providers",
	Args:  cobra.NoArgs,
	RunE:  runEmbeddingProviders,
}

var embeddingAddProviderCmd = &cobra.Command{
	Use:   "add-provider <type>",
	Short: "Configure an embedding provider",
	Args:  cobra.ExactArgs(1),
	RunE:  runEmbeddingAddProvider,
}

var embeddingChangeKeyCmd = &cobra.Command{
	Use:   "change-key <type> [value]",
	Short: "Replace a provider's API key (API URL for litellm)",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runEmbeddingChangeKey,
}

var embeddingDeleteProviderCmd = &cobra.Command{
	Use:   "delete-provider <type>",
	Short: "Remove an embedding provider",
	Args:  cobra.ExactArgs(1),
	RunE:  runEmbeddingDeleteProvider,
}

var embeddingCancelSwitchCmd = &cobra.Command{
	Use:   "cancel-switch",
	Short: "Abort the embedding model switch in progress",
	Args:  cobra.NoArgs,
	RunE:  runEmbeddingCancelSwitch,
}

func init() {
	embeddingStatusCmd.Flags().BoolVarP(&embeddingWatch, "watch", "w", false, "keep polling and redraw on change")

	embeddingAddProviderCmd.Flags().StringVar(&embeddingAPIKey, "api-key", "", "API key (prompted when required and not given)")
	embeddingAddProviderCmd.Flags().StringVar(&embeddingKeyFile, "key-file", "", "read the credentials from a file (google)")
	embeddingAddProviderCmd.Flags().StringVar(&embeddingAPIURL, "api-url", "", "API URL (litellm, azure)")
	embeddingAddProviderCmd.Flags().StringVar(&embeddingModel, "model", "", "model name (litellm)")
	embeddingAddProviderCmd.Flags().StringVar(&embeddingDeployment, "deployment", "", "deployment name (azure)")
	embeddingAddProviderCmd.Flags().StringVar(&embeddingAPIVersion, "api-version", "", "API version (azure)")

	embeddingDeleteProviderCmd.Flags().BoolVarP(&embeddingForce, "force", "f", false, "skip confirmation")
	embeddingCancelSwitchCmd.Flags().BoolVarP(&embeddingForce, "force", "f", false, "skip confirmation")

	embeddingCmd.AddCommand(embeddingStatusCmd)
	embeddingCmd.AddCommand(embeddingProvidersCmd)
	embeddingCmd.AddCommand(embeddingAddProviderCmd)
	embeddingCmd.AddCommand(embeddingChangeKeyCmd)
	embeddingCmd.AddCommand(embeddingDeleteProviderCmd)
	embeddingCmd.AddCommand(embeddingCancelSwitchCmd)
}

// embeddingKeys are the resources the embedding status is built from, in
// the argument order of reconcile.EmbeddingView.
func embeddingKeys() []string {
	return []string{
		client.CurrentSearchSettingsPath,
		client.SecondarySearchSettingsPath,
		client.IndexingStatusKey(true, false),
		client.FailedIndexingStatusKey(true),
	}
}

func embeddingStatusFrom(states map[string]fetcher.State) (reconcile.EmbeddingStatus, error) {
	keys := embeddingKeys()
	return reconcile.EmbeddingView(states[keys[0]], states[keys[1]], states[keys[2]], states[keys[3]])
}

func runEmbeddingStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := sess.RequireAdmin(ctx); err != nil {
		return err
	}

	if wantYAML() {
		states := make(map[string]fetcher.State)
		for _, key := range embeddingKeys() {
			states[key] = sess.Cache().Get(ctx, key)
		}
		status, err := embeddingStatusFrom(states)
		if err != nil {
			return fmt.Errorf("embedding status: %w", err)
		}
		return printYAML(status)
	}

	render := func(states map[string]fetcher.State) frame {
		status, err := embeddingStatusFrom(states)
		if err != nil {
			return loadingFrame(err)
		}
		return frame{
			Body:     formatEmbeddingStatus(defaultTheme, status),
			Fraction: status.Fraction(),
			ShowBar:  status.Mode == reconcile.ModeUpgrading && embeddingWatch,
		}
	}

	if !embeddingWatch {
		return renderOnce(ctx, embeddingKeys(), render)
	}
	return runWatch(ctx, "Embedding model", embeddingKeys(), render)
}

func formatModel(m *client.EmbeddingModel) string {
	if m == nil {
		return "-"
	}
	s := fmt.Sprintf("%s (%d dims)", m.ModelName, m.ModelDim)
	if m.ProviderType != nil {
		s += " via " + *m.ProviderType
	}
	return s
}

func formatEmbeddingStatus(theme Theme, s reconcile.EmbeddingStatus) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Current model: %s\n", formatModel(s.Current))
	if s.Mode == reconcile.ModeSteady {
		return b.String()
	}

	fmt.Fprintf(&b, "Switching to:  %s\n", formatModel(s.Future))
	fmt.Fprintf(&b, "Re-indexed:    %d/%d connectors\n\n", s.Completed, s.Total)
	if len(s.Progress) > 0 {
		b.WriteString(indexingRows(theme, s.Progress))
	}
	if len(s.Failed) > 0 {
		b.WriteString(theme.errorStyle().Render(fmt.Sprintf("\nFailed (%d):", len(s.Failed))))
		b.WriteString("\n")
		for _, f := range s.Failed {
			fmt.Fprintf(&b, "  • %s: %s\n", f.Name, orDash(deref(f.ErrorMsg)))
		}
	}
	return b.String()
}

func embeddingProviders(ctx context.Context) ([]client.CloudEmbeddingProvider, error) {
	providers, err := fetcher.NewResource[[]client.CloudEmbeddingProvider](
		sess.Cache(), client.EmbeddingProvidersPath).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("list embedding providers: %w", err)
	}
	return providers, nil
}

func runEmbeddingProviders(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := sess.RequireAdmin(ctx); err != nil {
		return err
	}
	providers, err := embeddingProviders(ctx)
	if err != nil {
		return err
	}
	if wantYAML() {
		return printYAML(providers)
	}
	if len(providers) == 0 {
		fmt.Println("No embedding providers configured.")
		return nil
	}

	fmt.Printf("%-12s %-40s %-10s %s\n", "TYPE", "API URL", "CONFIGURED", "DEFAULT")
	for _, p := range providers {
		fmt.Printf("%-12s %-40s %-10t %t\n", p.ProviderType, orDash(deref(p.APIURL)), p.IsConfigured, p.IsDefaultProvider)
	}
	return nil
}

func runEmbeddingAddProvider(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := sess.RequireAdmin(ctx); err != nil {
		return err
	}

	form := validation.NewForm(validation.NewEmbeddingProviderForm(args[0]))
	form.Update(func(f *validation.EmbeddingProviderForm) {
		f.APIKey = embeddingAPIKey
		f.APIURL = embeddingAPIURL
		f.ModelName = embeddingModel
		f.DeploymentName = embeddingDeployment
		f.APIVersion = embeddingAPIVersion
	})

	values := form.Values()
	switch {
	case embeddingKeyFile != "":
		data, err := os.ReadFile(embeddingKeyFile)
		if err != nil {
			return fmt.Errorf("read key file: %w", err)
		}
		form.Update(func(f *validation.EmbeddingProviderForm) { f.APIKey = string(data) })
	case values.APIKey == "" && !values.IsProxy && !values.UseFileUpload:
		key, err := promptSecret("API key")
		if err != nil {
			return err
		}
		form.Update(func(f *validation.EmbeddingProviderForm) { f.APIKey = key })
	}

	return reported(form.Submit(func(v validation.EmbeddingProviderForm) error {
		return sess.Dispatcher().Embedding(newSurface().Setter()).Save(ctx, v)
	}))
}

func findEmbeddingProvider(ctx context.Context, providerType string) (client.CloudEmbeddingProvider, error) {
	providers, err := embeddingProviders(ctx)
	if err != nil {
		return client.CloudEmbeddingProvider{}, err
	}
	want := client.NormalizeProviderType(providerType)
	for _, p := range providers {
		if client.NormalizeProviderType(p.ProviderType) == want {
			return p, nil
		}
	}
	return client.CloudEmbeddingProvider{}, fmt.Errorf("embedding provider not configured: %s", want)
}

func runEmbeddingChangeKey(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := sess.RequireAdmin(ctx); err != nil {
		return err
	}
	provider, err := findEmbeddingProvider(ctx, args[0])
	if err != nil {
		return err
	}

	var value string
	switch {
	case len(args) == 2:
		value = args[1]
	case client.NormalizeProviderType(provider.ProviderType) == validation.ProviderLiteLLM:
		value, err = prompt("New API URL", deref(provider.APIURL))
	default:
		value, err = promptSecret("New API key")
	}
	if err != nil {
		return err
	}

	return reported(sess.Dispatcher().Embedding(newSurface().Setter()).ChangeCredentials(ctx, provider, value))
}

func runEmbeddingDeleteProvider(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := sess.RequireAdmin(ctx); err != nil {
		return err
	}
	provider, err := findEmbeddingProvider(ctx, args[0])
	if err != nil {
		return err
	}

	if !embeddingForce {
		fmt.Printf("About to delete the %s embedding provider.\n", provider.ProviderType)
		ok, err := confirm("\nContinue?")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Cancelled.")
			return nil
		}
	}
	return reported(sess.Dispatcher().Embedding(newSurface().Setter()).Delete(ctx, provider.ProviderType))
}

func runEmbeddingCancelSwitch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := sess.RequireAdmin(ctx); err != nil {
		return err
	}

	future, err := fetcher.NewResource[*client.EmbeddingModel](sess.Cache(), client.SecondarySearchSettingsPath).Get(ctx)
	if err != nil {
		return fmt.Errorf("embedding status: %w", err)
	}
	if future == nil {
		fmt.Println("No embedding model switch in progress.")
		return nil
	}

	if !embeddingForce {
		fmt.Printf("About to cancel the switch to %s. Re-indexing progress is lost.\n", future.ModelName)
		ok, err := confirm("\nContinue?")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	return reported(sess.Dispatcher().Embedding(newSurface().Setter()).CancelSwitch(ctx))
}
