package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cloo-solutions/testcopilot/internal/domain"
	"github.com/spf13/cobra"
)

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var (
		projectID string
		k         int
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search project documents",
		Long:  "Runs a semantic search over the chunks of a project's ingested documents.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := resolveProject(projectID)
			if err != nil {
				return err
			}
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			q := url.Values{}
			q.Set("q", strings.Join(args, " "))
			if k > 0 {
				q.Set("k", strconv.Itoa(k))
			}

			resp, err := api.Get(ctx, projectPath(pid, "search")+"?"+q.Encode())
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			var result domain.RetrievalResult
			if err := decode(resp, &result); err != nil {
				return err
			}

			if outputJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), result)
			}

			out := cmd.OutOrStdout()
			if len(result.Results) == 0 {
				fmt.Fprintln(out, "No results found.")
				return nil
			}
			fmt.Fprintf(out, "Found %d results:\n\n", len(result.Results))
			for i, hit := range result.Results {
				fmt.Fprintf(out, "%d. document %s, chunk %d (distance %.4f)\n", i+1, hit.DocumentID, hit.Idx, hit.Distance)
				fmt.Fprintf(out, "   %s\n", preview(hit.Text, 160))
				if i < len(result.Results)-1 {
					fmt.Fprintln(out, strings.Repeat("-", 40))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project ID (defaults to the saved project)")
	cmd.Flags().IntVarP(&k, "top-k", "k", 0, "Number of chunks to return (server default when unset)")
	return cmd
}
