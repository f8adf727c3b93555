package cli

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/raphaelgruber/onyx-admin/internal/client"
	"github.com/raphaelgruber/onyx-admin/internal/mutation"
	"github.com/spf13/cobra"
)

var settingsYes bool

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "View and change workspace settings",
	Long: `View and change workspace settings.

Changes are validated locally, shown for confirmation and only then sent.
The settings shown afterwards are the ones the server accepted.

Keys:
  chat_page_enabled            true|false
  search_page_enabled          true|false
  default_page                 chat|search
  maximum_chat_retention_days  number of days, or "none"
  auto_scroll                  true|false
  anonymous_user_enabled       true|false

Examples:
  onyxadmin settings get
  onyxadmin settings set default_page=search maximum_chat_retention_days=30
  onyxadmin settings page chat off`,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show workspace settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key=value>...",
	Short: "Change workspace settings",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSettingsSet,
}

var settingsPageCmd = &cobra.Command{
	Use:   "page <chat|search> <on|off>",
	Short: "Enable or disable the chat or search page",
	Long: `Enable or disable the chat or search page. Disabling the default page
makes the other page the default. At least one page stays enabled.`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsPage,
}

func init() {
	settingsSetCmd.Flags().BoolVarP(&settingsYes, "yes", "y", false, "apply without confirmation")

	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsPageCmd)
}

// settingKeys lists the editable keys in display order.
var settingKeys = []string{
	"chat_page_enabled",
	"search_page_enabled",
	"default_page",
	"maximum_chat_retention_days",
	"auto_scroll",
	"anonymous_user_enabled",
}

// settingValue formats one setting for display.
func settingValue(s client.Settings, key string) string {
	switch key {
	case "chat_page_enabled":
		return strconv.FormatBool(s.ChatPageEnabled)
	case "search_page_enabled":
		return strconv.FormatBool(s.SearchPageEnabled)
	case "default_page":
		return s.DefaultPage
	case "maximum_chat_retention_days":
		if s.MaximumChatRetentionDays == nil {
			return "none"
		}
		return strconv.Itoa(*s.MaximumChatRetentionDays)
	case "auto_scroll":
		return strconv.FormatBool(s.AutoScroll)
	case "anonymous_user_enabled":
		if s.AnonymousUserEnabled == nil {
			return "-"
		}
		return strconv.FormatBool(*s.AnonymousUserEnabled)
	}
	return ""
}

// applyAssignment sets one key=value pair on s and returns the key.
func applyAssignment(s *client.Settings, assignment string) (string, error) {
	key, value, ok := strings.Cut(assignment, "=")
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if !ok || key == "" {
		return "", fmt.Errorf("expected key=value, got %q", assignment)
	}

	parseBool := func() (bool, error) {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return false, fmt.Errorf("%s: expected true or false, got %q", key, value)
		}
		return b, nil
	}

	switch key {
	case "chat_page_enabled", "search_page_enabled", "auto_scroll", "anonymous_user_enabled":
		b, err := parseBool()
		if err != nil {
			return "", err
		}
		switch key {
		case "chat_page_enabled":
			s.ChatPageEnabled = b
		case "search_page_enabled":
			s.SearchPageEnabled = b
		case "auto_scroll":
			s.AutoScroll = b
		default:
			s.AnonymousUserEnabled = &b
		}
	case "default_page":
		s.DefaultPage = value
	case "maximum_chat_retention_days":
		if value == "" || value == "none" {
			s.MaximumChatRetentionDays = nil
			break
		}
		days, err := strconv.Atoi(value)
		if err != nil {
			return "", fmt.Errorf("%s: expected a number of days or none, got %q", key, value)
		}
		s.MaximumChatRetentionDays = &days
	default:
		return "", fmt.Errorf("unknown setting %q (known: %s)", key, strings.Join(settingKeys, ", "))
	}
	return key, nil
}

// applyAssignments applies every assignment to a copy of s and returns it
// with the keys touched, in order and without duplicates.
func applyAssignments(s client.Settings, assignments []string) (client.Settings, []string, error) {
	var keys []string
	for _, a := range assignments {
		key, err := applyAssignment(&s, a)
		if err != nil {
			return s, nil, err
		}
		if !slices.Contains(keys, key) {
			keys = append(keys, key)
		}
	}
	return s, keys, nil
}

func printSettings(s client.Settings) error {
	if wantYAML() {
		return printYAML(s)
	}
	for _, key := range settingKeys {
		fmt.Printf("%-29s %s\n", key, settingValue(s, key))
	}
	if s.NeedsReindexing {
		fmt.Println("\nA re-index is pending for the new settings.")
	}
	return nil
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := sess.RequireAdmin(ctx); err != nil {
		return err
	}
	s, err := sess.Settings(ctx)
	if err != nil {
		return fmt.Errorf("get settings: %w", err)
	}
	return printSettings(s)
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := sess.RequireAdmin(ctx); err != nil {
		return err
	}
	current, err := sess.Settings(ctx)
	if err != nil {
		return fmt.Errorf("get settings: %w", err)
	}

	next, keys, err := applyAssignments(current, args)
	if err != nil {
		return err
	}

	changed := 0
	for _, key := range keys {
		before, after := settingValue(current, key), settingValue(next, key)
		if before == after {
			continue
		}
		changed++
		fmt.Printf("  %s: %s -> %s\n", key, before, after)
	}
	if changed == 0 {
		fmt.Println("Nothing to change.")
		return nil
	}

	if !settingsYes {
		ok, err := confirm("\nApply?")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	editor := sess.Dispatcher().Settings(newSurface().Setter(), current)
	applied, err := editor.Apply(ctx, func(s *client.Settings) { *s = next })
	if err != nil {
		return reported(err)
	}
	if verbose {
		return printSettings(applied)
	}
	return nil
}

func runSettingsPage(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := sess.RequireAdmin(ctx); err != nil {
		return err
	}

	page := args[0]
	if page != mutation.PageChat && page != mutation.PageSearch {
		return fmt.Errorf("unknown page %q (want %s or %s)", page, mutation.PageChat, mutation.PageSearch)
	}
	var enabled bool
	switch strings.ToLower(args[1]) {
	case "on", "true", "enable":
		enabled = true
	case "off", "false", "disable":
	default:
		return fmt.Errorf("expected on or off, got %q", args[1])
	}

	current, err := sess.Settings(ctx)
	if err != nil {
		return fmt.Errorf("get settings: %w", err)
	}
	applied, err := sess.Dispatcher().Settings(newSurface().Setter(), current).SetPageEnabled(ctx, page, enabled)
	if err != nil {
		return reported(err)
	}
	fmt.Printf("default_page: %s\n", applied.DefaultPage)
	return nil
}
