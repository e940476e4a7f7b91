package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/agentx-labs/webbundle/internal/build"
	"github.com/agentx-labs/webbundle/internal/manifest"
	"github.com/agentx-labs/webbundle/internal/registry"
	"github.com/spf13/cobra"
)

var listJSON bool

func init() {
	listCmd.PersistentFlags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	listCmd.AddCommand(listAgentsCmd, listTeamsCmd, listPacksCmd)
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List agents, teams, and expansion packs",
}

// entryRow is one agent or team for display.
type entryRow struct {
	ID     string `json:"id"`
	Pack   string `json:"pack,omitempty"`
	Title  string `json:"title"`
	Path   string `json:"path"`
	Status string `json:"status"`
}

// packRow is one expansion pack for display.
type packRow struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Version      string `json:"version,omitempty"`
	RequiresCore string `json:"requiresCore,omitempty"`
	Priority     *int   `json:"priority,omitempty"`
	Shadows      int    `json:"shadows"`
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
}

var listAgentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List every agent, core and expansion packs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runListEntries(cmd, registry.CategoryAgent)
	},
}

var listTeamsCmd = &cobra.Command{
	Use:   "teams",
	Short: "List every team, core and expansion packs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runListEntries(cmd, registry.CategoryTeam)
	},
}

var listPacksCmd = &cobra.Command{
	Use:   "packs",
	Short: "List discovered expansion packs in priority order",
	Args:  cobra.NoArgs,
	RunE:  runListPacks,
}

func runListEntries(cmd *cobra.Command, cat registry.Category) error {
	a, err := appFrom(cmd)
	if err != nil {
		return err
	}
	scopes, err := build.New(a.fs, a.cfg).Scopes(cmd.Context(), false)
	if err != nil {
		return err
	}

	var rows []entryRow
	for _, scope := range scopes {
		if scope.Snapshot == nil {
			continue
		}
		for _, rec := range scope.Snapshot.Entries(cat, scope.Name()) {
			row := entryRow{ID: rec.ID.Name, Pack: scope.Name(), Path: rec.RelPath, Status: "ok"}
			entry, err := manifest.ParseEntry(rec)
			if err != nil {
				row.Status = "invalid"
			} else {
				row.Title = entry.Title
			}
			rows = append(rows, row)
		}
	}

	if listJSON {
		return printJSON(cmd, rows)
	}
	if len(rows) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No %ss found under %s\n", cat, a.cfg.Root)
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tPACK\tTITLE\tSTATUS")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.ID, dash(r.Pack), dash(r.Title), r.Status)
	}
	return w.Flush()
}

func runListPacks(cmd *cobra.Command, args []string) error {
	a, err := appFrom(cmd)
	if err != nil {
		return err
	}
	scopes, err := build.New(a.fs, a.cfg).Scopes(cmd.Context(), false)
	if err != nil {
		return err
	}

	var rows []packRow
	for _, scope := range scopes {
		if scope.Pack == nil {
			continue
		}
		p := scope.Pack
		row := packRow{
			ID:           p.ID,
			Title:        p.Title(),
			Version:      p.Config.Version,
			RequiresCore: p.Config.RequiresCore,
			Priority:     p.Config.Priority,
			Status:       "ok",
		}
		if scope.Snapshot != nil {
			row.Shadows = len(scope.Snapshot.Shadowed())
		}
		if err := scope.Err(); err != nil {
			row.Status = "error"
			row.Error = err.Error()
		}
		rows = append(rows, row)
	}

	if listJSON {
		return printJSON(cmd, rows)
	}
	if len(rows) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No expansion packs found under %s\n", a.cfg.PacksPath())
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tVERSION\tREQUIRES CORE\tPRIORITY\tSHADOWS\tSTATUS")
	for _, r := range rows {
		priority := "-"
		if r.Priority != nil {
			priority = fmt.Sprint(*r.Priority)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n", r.ID, r.Title, dash(r.Version), dash(r.RequiresCore), priority, r.Shadows, r.Status)
	}
	return w.Flush()
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
