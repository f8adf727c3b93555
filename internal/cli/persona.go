package cli

import (
	"context"
	"fmt"

	"github.com/raphaelgruber/onyx-admin/internal/client"
	"github.com/raphaelgruber/onyx-admin/internal/fetcher"
	"github.com/raphaelgruber/onyx-admin/internal/reconcile"
	"github.com/spf13/cobra"
)

var personaForce bool

var personaCmd = &cobra.Command{
	Use:     "persona",
	Aliases: []string{"assistant"},
	Short:   "Manage assistants",
	Long: `Manage assistants (personas): their display order, visibility and
lifetime. Assistants you can edit are listed first.

Examples:
  onyxadmin persona list
  onyxadmin persona reorder 4 5 3
  onyxadmin persona hide 7
  onyxadmin persona delete 7`,
}

var personaListCmd = &cobra.Command{
	Use:   "list",
	Short: "List assistants in display order",
	Args:  cobra.NoArgs,
	RunE:  runPersonaList,
}

var personaReorderCmd = &cobra.Command{
	Use:   "reorder <id>...",
	Short: "Move assistants to the front in the given order",
	Long: `Move the given assistants to the front in the given order. Assistants
not named keep their relative order behind them.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPersonaReorder,
}

var personaHideCmd = &cobra.Command{
	Use:   "hide <id>",
	Short: "Hide an assistant from users",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setPersonaVisible(cmd.Context(), args[0], false)
	},
}

var personaShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a hidden assistant to users",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setPersonaVisible(cmd.Context(), args[0], true)
	},
}

var personaDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an assistant",
	Args:  cobra.ExactArgs(1),
	RunE:  runPersonaDelete,
}

func init() {
	personaDeleteCmd.Flags().BoolVarP(&personaForce, "force", "f", false, "skip confirmation")

	personaCmd.AddCommand(personaListCmd)
	personaCmd.AddCommand(personaReorderCmd)
	personaCmd.AddCommand(personaHideCmd)
	personaCmd.AddCommand(personaShowCmd)
	personaCmd.AddCommand(personaDeleteCmd)
}

// orderedPersonas returns every persona, editable ones first, each group in
// display order.
func orderedPersonas(ctx context.Context) ([]client.Persona, error) {
	all, err := fetcher.NewResource[[]client.Persona](sess.Cache(), client.PersonasKey(false)).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("list personas: %w", err)
	}
	editable, err := fetcher.NewResource[[]client.Persona](sess.Cache(), client.PersonasKey(true)).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("list editable personas: %w", err)
	}
	return reconcile.OrderPersonas(all, editable), nil
}

func runPersonaList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := sess.RequireAdmin(ctx); err != nil {
		return err
	}
	personas, err := orderedPersonas(ctx)
	if err != nil {
		return err
	}
	if wantYAML() {
		return printYAML(personas)
	}
	printPersonas(personas)
	return nil
}

func printPersonas(personas []client.Persona) {
	if len(personas) == 0 {
		fmt.Println("No assistants found.")
		return
	}
	fmt.Printf("%-5s %-32s %-8s %-8s %s\n", "ID", "NAME", "VISIBLE", "PUBLIC", "OWNER")
	for _, p := range personas {
		owner := "-"
		switch {
		case p.BuiltinPersona:
			owner = "built-in"
		case p.Owner != nil:
			owner = p.Owner.Email
		}
		fmt.Printf("%-5d %-32s %-8t %-8t %s\n", p.ID, truncate(p.Name, 32), p.IsVisible, p.IsPublic, owner)
		if verbose && p.Description != "" {
			fmt.Printf("      %s\n", p.Description)
		}
	}
}

func runPersonaReorder(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := sess.RequireAdmin(ctx); err != nil {
		return err
	}

	ids := make([]int, 0, len(args))
	for _, a := range args {
		id, err := parseID("persona", a)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}

	current, err := orderedPersonas(ctx)
	if err != nil {
		return err
	}
	next, err := sess.Dispatcher().Personas(newSurface().Setter()).Reorder(ctx, current, ids)
	if err != nil {
		return reported(err)
	}
	if wantYAML() {
		return printYAML(reconcile.PersonaIDs(next))
	}
	printPersonas(next)
	return nil
}

func setPersonaVisible(ctx context.Context, arg string, visible bool) error {
	if err := sess.RequireAdmin(ctx); err != nil {
		return err
	}
	id, err := parseID("persona", arg)
	if err != nil {
		return err
	}
	if err := sess.Dispatcher().Personas(newSurface().Setter()).SetVisible(ctx, id, visible); err != nil {
		return reported(err)
	}
	state := "hidden"
	if visible {
		state = "visible"
	}
	fmt.Printf("Assistant %d is now %s.\n", id, state)
	return nil
}

func runPersonaDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := sess.RequireAdmin(ctx); err != nil {
		return err
	}
	id, err := parseID("persona", args[0])
	if err != nil {
		return err
	}

	if !personaForce {
		fmt.Printf("About to delete assistant %d.\n", id)
		ok, err := confirm("\nContinue?")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Cancelled.")
			return nil
		}
	}
	return reported(sess.Dispatcher().Personas(newSurface().Setter()).Delete(ctx, id))
}
