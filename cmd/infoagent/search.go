package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jxitc/info-agent-sub000/internal/config"
	"github.com/jxitc/info-agent-sub000/pkg/memory/model"
	"github.com/jxitc/info-agent-sub000/pkg/memory/retrieve"
	"github.com/jxitc/info-agent-sub000/pkg/memory/store"
)

var (
	searchLimit        int
	searchJSON         bool
	searchRelationship bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Query memories across structured, semantic, and relationship sources",
	Example: `  infoagent search "meeting with Sarah on 2026-08-10"
  infoagent search "who did I meet about the API project" --limit 3`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(_ *config.Config, _ store.Backend, engine *retrieve.Engine) error {
			query := strings.Join(args, " ")
			var forced []model.SourceKind
			if searchRelationship {
				forced = append(forced, model.SourceRelationship)
			}
			results, err := engine.Retrieve(cmd.Context(), query, searchLimit, forced...)
			if err != nil {
				return err
			}

			if searchJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}
			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No memories matched.")
				return nil
			}
			for i, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "%2d. [%.2f] #%d %s\n", i+1, r.Confidence, r.MemoryID, titleOrSnippet(r))
				if r.Snippet != "" && r.Title != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "      %s\n", r.Snippet)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "      sources: %s | %s\n", joinKinds(r.Sources), r.Explanation)
			}
			return nil
		})
	},
}

func titleOrSnippet(r model.FusedResult) string {
	if r.Title != "" {
		return r.Title
	}
	return r.Snippet
}

func joinKinds(kinds []model.SourceKind) string {
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = string(k)
	}
	return strings.Join(parts, "+")
}

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "maximum results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "emit results as JSON")
	searchCmd.Flags().BoolVar(&searchRelationship, "relationship", false, "force the relationship source on")
	rootCmd.AddCommand(searchCmd)
}
