package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/cloo-solutions/testcopilot/internal/domain"
	"github.com/spf13/cobra"
)

type documentPage struct {
	Items   []domain.Document `json:"items"`
	Cursor  string            `json:"cursor,omitempty"`
	HasMore bool              `json:"has_more"`
}

// DocumentCmd groups document subcommands.
func DocumentCmd() *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:     "document",
		Aliases: []string{"doc"},
		Short:   "Manage project documents",
	}
	cmd.PersistentFlags().StringVarP(&projectID, "project", "p", "", "Project ID (defaults to the saved project)")

	cmd.AddCommand(documentListCmd(&projectID))
	cmd.AddCommand(documentDeleteCmd(&projectID))
	cmd.AddCommand(documentReingestCmd(&projectID))
	return cmd
}

func documentListCmd(projectID *string) *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List documents in a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := resolveProject(*projectID)
			if err != nil {
				return err
			}
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			q := url.Values{}
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			if cursor != "" {
				q.Set("cursor", cursor)
			}
			path := projectPath(pid, "documents")
			if len(q) > 0 {
				path += "?" + q.Encode()
			}

			resp, err := api.Get(ctx, path)
			if err != nil {
				return fmt.Errorf("failed to list documents: %w", err)
			}
			var page documentPage
			if err := decode(resp, &page); err != nil {
				return err
			}

			if outputJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), page)
			}
			if len(page.Items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No documents.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tFILENAME\tSTATUS\tGEN\tUPDATED")
			for _, d := range page.Items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", d.ID, d.Filename, d.Status, d.Generation, d.UpdatedAt.Format(time.RFC3339))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if page.HasMore && page.Cursor != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "\nMore documents available. Use --cursor %s\n", page.Cursor)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of documents")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")
	return cmd
}

func documentDeleteCmd(projectID *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <document-id>",
		Short: "Delete a document and its chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := resolveProject(*projectID)
			if err != nil {
				return err
			}
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			if _, err := api.Delete(ctx, projectPath(pid, "documents", url.PathEscape(args[0]))); err != nil {
				return fmt.Errorf("failed to delete document: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted document %s\n", args[0])
			return nil
		},
	}
}

func documentReingestCmd(projectID *string) *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "reingest <document-id>",
		Short: "Re-run ingestion for a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := resolveProject(*projectID)
			if err != nil {
				return err
			}
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Post(cmd.Context(), projectPath(pid, "documents", url.PathEscape(args[0]), "reingest"), nil)
			if err != nil {
				return fmt.Errorf("failed to reingest document: %w", err)
			}
			var ticket ingestTicket
			if err := decode(resp, &ticket); err != nil {
				return err
			}

			if wait > 0 {
				snap, err := waitForJob(cmd.Context(), api, ticket.JobID, wait, defaultPollInterval)
				if err != nil {
					return err
				}
				if outputJSON(cmd) {
					return printJSON(cmd.OutOrStdout(), snap)
				}
				printJob(cmd.OutOrStdout(), snap)
				return nil
			}

			if outputJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), ticket)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reingest queued for %s: job %s\n", ticket.DocumentID, ticket.JobID)
			return nil
		},
	}

	cmd.Flags().DurationVar(&wait, "wait", 0, "Wait for ingestion to finish, up to this long")
	return cmd
}
