package cli

import (
	"fmt"

	"github.com/raphaelgruber/onyx-admin/internal/client"
	"github.com/raphaelgruber/onyx-admin/internal/fetcher"
	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Inspect assistant tools",
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tools assistants can call",
	Args:  cobra.NoArgs,
	RunE:  runToolsList,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user and provider status",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

func init() {
	toolsCmd.AddCommand(toolsListCmd)
}

func runToolsList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	tools, err := fetcher.NewResource[[]client.Tool](sess.Cache(), client.ToolsPath).Get(ctx)
	if err != nil {
		return fmt.Errorf("list tools: %w", err)
	}
	if wantYAML() {
		return printYAML(tools)
	}
	if len(tools) == 0 {
		fmt.Println("No tools found.")
		return nil
	}

	fmt.Printf("Tools (%d):\n\n", len(tools))
	for _, t := range tools {
		kind := ""
		if t.IsBuiltin() {
			kind = " [built-in]"
		}
		name := t.DisplayName
		if name == "" {
			name = t.Name
		}
		fmt.Printf("- %s (%d)%s\n", name, t.ID, kind)
		if verbose && t.Description != "" {
			fmt.Printf("  %s\n", t.Description)
		}
	}
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	user, err := sess.User(ctx)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	status, statusErr := sess.ProviderStatus(ctx)
	if wantYAML() {
		out := map[string]any{"user": user, "server": cfg.ServerURL}
		if statusErr == nil {
			out["llm"] = status
		}
		return printYAML(out)
	}

	fmt.Printf("User:   %s (%s)\n", user.Email, user.Role)
	fmt.Printf("Server: %s\n", cfg.ServerURL)
	switch {
	case statusErr != nil:
		// Non-admins cannot list providers.
		sess.Logger().Debug("provider status unavailable", "error", statusErr)
	case !status.Configured:
		fmt.Println("LLM:    no provider configured")
	default:
		fmt.Printf("LLM:    %d provider(s), %s\n", status.Count, status.Default)
	}
	return nil
}
