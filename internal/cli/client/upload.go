package client

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloo-solutions/testcopilot/internal/domain"
	"github.com/spf13/cobra"
)

type ingestTicket struct {
	DocumentID string                `json:"document_id"`
	JobID      string                `json:"job_id"`
	Status     domain.DocumentStatus `json:"status"`
}

// UploadCmd uploads a requirements document into a project.
func UploadCmd() *cobra.Command {
	var (
		projectID   string
		contentType string
		wait        time.Duration
	)

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a document for ingestion",
		Long: `Uploads a PDF or text document into a project. Ingestion runs in the
background; use --wait to block until it finishes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := resolveProject(projectID)
			if err != nil {
				return err
			}
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			ct := contentType
			if ct == "" {
				ct = detectContentType(args[0])
			}

			resp, err := api.UploadFile(cmd.Context(), projectPath(pid, "documents"), args[0], ct)
			if err != nil {
				return fmt.Errorf("upload failed: %w", err)
			}
			var ticket ingestTicket
			if err := decode(resp, &ticket); err != nil {
				return err
			}

			if wait <= 0 {
				if outputJSON(cmd) {
					return printJSON(cmd.OutOrStdout(), ticket)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s as document %s\n", filepath.Base(args[0]), ticket.DocumentID)
				fmt.Fprintf(cmd.OutOrStdout(), "Ingestion job: %s (copilot job status %s)\n", ticket.JobID, ticket.JobID)
				return nil
			}

			snap, err := waitForJob(cmd.Context(), api, ticket.JobID, wait, defaultPollInterval)
			if err != nil {
				return err
			}
			if outputJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), snap)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Document: %s\n", ticket.DocumentID)
			printJob(cmd.OutOrStdout(), snap)
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project ID (defaults to the saved project)")
	cmd.Flags().StringVar(&contentType, "content-type", "", "Override the detected content type")
	cmd.Flags().DurationVar(&wait, "wait", 0, "Wait for ingestion to finish, up to this long")
	return cmd
}

func detectContentType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf":
		return "application/pdf"
	case ".md", ".markdown":
		return "text/markdown"
	case ".txt", "":
		return "text/plain"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
