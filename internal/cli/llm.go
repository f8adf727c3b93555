package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/raphaelgruber/onyx-admin/internal/client"
	"github.com/raphaelgruber/onyx-admin/internal/fetcher"
	"github.com/raphaelgruber/onyx-admin/internal/mutation"
	"github.com/raphaelgruber/onyx-admin/internal/validation"
	"github.com/spf13/cobra"
)

var (
	llmName        string
	llmProvider    string
	llmAPIKey      string
	llmAPIBase     string
	llmAPIVersion  string
	llmModel       string
	llmFastModel   string
	llmModels      []string
	llmDeployment  string
	llmConfig      map[string]string
	llmPrivate     bool
	llmMakeDefault bool
	llmForce       bool
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Manage LLM providers",
	Long: `Manage the LLM providers the assistant answers with.

The first provider added becomes the default. Deleting the default
provider makes the first remaining one the default.

Subcommands:
  list         Configured providers
  descriptors  Built-in provider templates
  add          Configure a built-in provider
  add-custom   Configure a provider without a template
  edit         Change a configured provider
  default      Make a provider the default
  delete       Remove a provider

Examples:
  onyxadmin llm add openai --model gpt-4o
  onyxadmin llm add-custom --provider ollama --models llama3,phi3 --model llama3 --api-base http://ollama:11434
  onyxadmin llm edit 3 --fast-model gpt-4o-mini
  onyxadmin llm delete 3`,
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured providers",
	Args:  cobra.NoArgs,
	RunE:  runLLMList,
}

var llmDescriptorsCmd = &cobra.Command{
	Use:   "descriptors",
	Short: "List built-in provider templates",
	Args:  cobra.NoArgs,
	RunE:  runLLMDescriptors,
}

var llmAddCmd = &cobra.Command{
	Use:   "add <provider>",
	Short: "Configure a built-in provider",
	Args:  cobra.ExactArgs(1),
	RunE:  runLLMAdd,
}

var llmAddCustomCmd = &cobra.Command{
	Use:   "add-custom",
	Short: "Configure a provider without a template",
	Args:  cobra.NoArgs,
	RunE:  runLLMAddCustom,
}

var llmEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change a configured provider",
	Long: `Change a configured provider. Only the given flags are changed.
When nothing differs from the stored configuration the provider is saved
without testing it again.`,
	Args: cobra.ExactArgs(1),
	RunE: runLLMEdit,
}

var llmDefaultCmd = &cobra.Command{
	Use:   "default <id>",
	Short: "Make a provider the default",
	Args:  cobra.ExactArgs(1),
	RunE:  runLLMDefault,
}

var llmDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a provider",
	Args:  cobra.ExactArgs(1),
	RunE:  runLLMDelete,
}

func init() {
	for _, c := range []*cobra.Command{llmAddCmd, llmAddCustomCmd, llmEditCmd} {
		c.Flags().StringVar(&llmName, "name", "", "display name")
		c.Flags().StringVar(&llmAPIKey, "api-key", "", "API key (prompted when required and not given)")
		c.Flags().StringVar(&llmAPIBase, "api-base", "", "API base URL")
		c.Flags().StringVar(&llmAPIVersion, "api-version", "", "API version")
		c.Flags().StringVar(&llmModel, "model", "", "default model")
		c.Flags().StringVar(&llmFastModel, "fast-model", "", "fast model (defaults to the default model)")
		c.Flags().StringVar(&llmDeployment, "deployment", "", "deployment name")
		c.Flags().StringToStringVar(&llmConfig, "config", nil, "provider specific settings (key=value)")
		c.Flags().BoolVar(&llmPrivate, "private", false, "hide from users outside the selected groups")
		c.Flags().BoolVar(&llmMakeDefault, "default", false, "make this the default provider")
	}
	llmAddCustomCmd.Flags().StringVar(&llmProvider, "provider", "", "provider name as understood by the backend")
	llmAddCustomCmd.Flags().StringSliceVar(&llmModels, "models", nil, "models to offer (comma separated)")
	llmDeleteCmd.Flags().BoolVarP(&llmForce, "force", "f", false, "skip confirmation")

	llmCmd.AddCommand(llmListCmd)
	llmCmd.AddCommand(llmDescriptorsCmd)
	llmCmd.AddCommand(llmAddCmd)
	llmCmd.AddCommand(llmAddCustomCmd)
	llmCmd.AddCommand(llmEditCmd)
	llmCmd.AddCommand(llmDefaultCmd)
	llmCmd.AddCommand(llmDeleteCmd)
}

func llmProviders() fetcher.Resource[[]client.FullLLMProvider] {
	return fetcher.NewResource[[]client.FullLLMProvider](sess.Cache(), client.LLMProvidersPath)
}

func runLLMList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := sess.RequireAdmin(ctx); err != nil {
		return err
	}

	providers, err := llmProviders().Get(ctx)
	if err != nil {
		return fmt.Errorf("list providers: %w", err)
	}
	if wantYAML() {
		return printYAML(providers)
	}
	if len(providers) == 0 {
		fmt.Println("No LLM providers configured. The assistant cannot answer until one is added.")
		return nil
	}

	fmt.Printf("%-5s %-24s %-14s %-24s %-24s %s\n", "ID", "NAME", "PROVIDER", "MODEL", "FAST MODEL", "DEFAULT")
	for _, p := range providers {
		mark := ""
		if p.IsDefault() {
			mark = "*"
		}
		fmt.Printf("%-5d %-24s %-14s %-24s %-24s %s\n",
			p.ID, truncate(p.Name, 24), p.Provider, p.DefaultModelName, orDash(deref(p.FastDefaultModelName)), mark)
	}
	if mutation.DefaultStateOf(providers) == mutation.NoDefault {
		fmt.Println("\nNo default provider set.")
	}
	return nil
}

func runLLMDescriptors(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	descriptors, err := fetcher.NewResource[[]client.WellKnownLLMProviderDescriptor](
		sess.Cache(), client.LLMDescriptorsPath).Get(ctx)
	if err != nil {
		return fmt.Errorf("list descriptors: %w", err)
	}
	if wantYAML() {
		return printYAML(descriptors)
	}

	for _, d := range descriptors {
		var needs []string
		if d.APIKeyRequired {
			needs = append(needs, "api-key")
		}
		if d.APIBaseRequired {
			needs = append(needs, "api-base")
		}
		if d.APIVersionRequired {
			needs = append(needs, "api-version")
		}
		for _, k := range d.CustomConfigKeys {
			if k.IsRequired {
				needs = append(needs, "config "+k.Name)
			}
		}
		fmt.Printf("- %s (%s)\n", d.Name, orDash(d.DisplayName))
		fmt.Printf("  default model: %s\n", orDash(deref(d.DefaultModel)))
		if len(needs) > 0 {
			fmt.Printf("  requires: %s\n", strings.Join(needs, ", "))
		}
		if verbose && len(d.LLMNames) > 0 {
			fmt.Printf("  models: %s\n", strings.Join(d.LLMNames, ", "))
		}
	}
	return nil
}

func findDescriptor(ctx context.Context, name string) (client.WellKnownLLMProviderDescriptor, error) {
	descriptors, err := fetcher.NewResource[[]client.WellKnownLLMProviderDescriptor](
		sess.Cache(), client.LLMDescriptorsPath).Get(ctx)
	if err != nil {
		return client.WellKnownLLMProviderDescriptor{}, fmt.Errorf("list descriptors: %w", err)
	}
	for _, d := range descriptors {
		if strings.EqualFold(d.Name, name) {
			return d, nil
		}
	}
	return client.WellKnownLLMProviderDescriptor{}, fmt.Errorf("unknown provider %q (see 'onyxadmin llm descriptors')", name)
}

func findProvider(ctx context.Context, arg string) (client.FullLLMProvider, error) {
	id, err := parseID("provider", arg)
	if err != nil {
		return client.FullLLMProvider{}, err
	}
	providers, err := llmProviders().Get(ctx)
	if err != nil {
		return client.FullLLMProvider{}, fmt.Errorf("list providers: %w", err)
	}
	for _, p := range providers {
		if p.ID == id {
			return p, nil
		}
	}
	return client.FullLLMProvider{}, fmt.Errorf("provider not found: %d", id)
}

// applyLLMFlags copies the flags the user set onto the form.
func applyLLMFlags(cmd *cobra.Command, f *validation.LLMProviderForm) {
	flags := cmd.Flags()
	if flags.Changed("name") {
		f.Name = llmName
	}
	if flags.Changed("api-key") {
		f.APIKey = llmAPIKey
	}
	if flags.Changed("api-base") {
		f.APIBase = llmAPIBase
	}
	if flags.Changed("api-version") {
		f.APIVersion = llmAPIVersion
	}
	if flags.Changed("model") {
		f.DefaultModelName = llmModel
	}
	if flags.Changed("fast-model") {
		f.FastDefaultModelName = llmFastModel
	}
	if flags.Changed("deployment") {
		f.DeploymentName = llmDeployment
	}
	if flags.Changed("private") {
		f.IsPublic = !llmPrivate
	}
	for k, v := range llmConfig {
		f.CustomConfig[k] = v
	}
}

func runLLMAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := sess.RequireAdmin(ctx); err != nil {
		return err
	}

	desc, err := findDescriptor(ctx, args[0])
	if err != nil {
		return err
	}
	existing, err := llmProviders().Get(ctx)
	if err != nil {
		return fmt.Errorf("list providers: %w", err)
	}

	form := validation.NewForm(validation.NewLLMProviderForm(desc, nil))
	form.Update(func(f *validation.LLMProviderForm) { applyLLMFlags(cmd, f) })
	if desc.APIKeyRequired && form.Values().APIKey == "" {
		key, err := promptSecret("API key")
		if err != nil {
			return err
		}
		form.Update(func(f *validation.LLMProviderForm) { f.APIKey = key })
	}

	markDefault := llmMakeDefault || mutation.ShouldMarkAsDefault(existing)
	var saved *client.FullLLMProvider
	err = form.Submit(func(values validation.LLMProviderForm) error {
		var err error
		saved, err = sess.Dispatcher().LLM(newSurface().Setter()).Save(ctx, mutation.LLMSave{
			Values:        values,
			MarkAsDefault: markDefault,
		})
		return err
	})
	if err != nil {
		return reported(err)
	}
	if verbose && saved != nil {
		fmt.Printf("Provider id: %d\n", saved.ID)
	}
	return nil
}

func runLLMEdit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := sess.RequireAdmin(ctx); err != nil {
		return err
	}

	provider, err := findProvider(ctx, args[0])
	if err != nil {
		return err
	}
	desc, err := findDescriptor(ctx, provider.Provider)
	if err != nil {
		return err
	}

	initial := validation.NewLLMProviderForm(desc, &provider)
	form := validation.NewForm(initial.Clone())
	form.Update(func(f *validation.LLMProviderForm) { applyLLMFlags(cmd, f) })

	return reported(form.Submit(func(values validation.LLMProviderForm) error {
		_, err := sess.Dispatcher().LLM(newSurface().Setter()).Save(ctx, mutation.LLMSave{
			Values:        values,
			Initial:       &initial,
			Existing:      &provider,
			MarkAsDefault: llmMakeDefault && !provider.IsDefault(),
		})
		return err
	}))
}

func runLLMAddCustom(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := sess.RequireAdmin(ctx); err != nil {
		return err
	}
	existing, err := llmProviders().Get(ctx)
	if err != nil {
		return fmt.Errorf("list providers: %w", err)
	}

	values := validation.CustomLLMProviderForm{
		Name:                 llmName,
		Provider:             llmProvider,
		APIKey:               llmAPIKey,
		APIBase:              llmAPIBase,
		APIVersion:           llmAPIVersion,
		CustomConfig:         llmConfig,
		ModelNames:           llmModels,
		DefaultModelName:     llmModel,
		FastDefaultModelName: llmFastModel,
		IsPublic:             !llmPrivate,
		Groups:               []int{},
		DeploymentName:       llmDeployment,
	}
	if values.Name == "" {
		values.Name = values.Provider
	}

	_, err = sess.Dispatcher().LLM(newSurface().Setter()).SaveCustom(ctx, mutation.CustomLLMSave{
		Values:        values,
		MarkAsDefault: llmMakeDefault || mutation.ShouldMarkAsDefault(existing),
	})
	return reported(err)
}

func runLLMDefault(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := sess.RequireAdmin(ctx); err != nil {
		return err
	}
	provider, err := findProvider(ctx, args[0])
	if err != nil {
		return err
	}
	if provider.IsDefault() {
		fmt.Printf("%s is already the default provider.\n", provider.Name)
		return nil
	}
	return reported(sess.Dispatcher().LLM(newSurface().Setter()).SetDefault(ctx, provider.ID))
}

func runLLMDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := sess.RequireAdmin(ctx); err != nil {
		return err
	}
	provider, err := findProvider(ctx, args[0])
	if err != nil {
		return err
	}

	if !llmForce {
		fmt.Printf("About to delete: %s (%d)\n", provider.Name, provider.ID)
		ok, err := confirm("\nContinue?")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	remaining, err := sess.Dispatcher().LLM(newSurface().Setter()).Delete(ctx, provider)
	if err != nil {
		return reported(err)
	}
	for _, p := range remaining {
		if p.IsDefault() {
			fmt.Printf("Default provider: %s (%d)\n", p.Name, p.ID)
		}
	}
	if len(remaining) == 0 {
		fmt.Println("No LLM providers left. The assistant cannot answer until one is added.")
	}
	return nil
}
