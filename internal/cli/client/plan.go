package client

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cloo-solutions/testcopilot/internal/domain"
	"github.com/spf13/cobra"
)

// PlanCmd groups test plan subcommands.
func PlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Generate and fetch test plans",
	}
	cmd.AddCommand(planGenerateCmd())
	cmd.AddCommand(planLatestCmd())
	return cmd
}

func planGenerateCmd() *cobra.Command {
	var (
		projectID string
		wait      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Request a new test plan",
		Long: `Queues test plan generation from the project's ingested documents.
With --wait, blocks until the job finishes and prints the plan.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := resolveProject(projectID)
			if err != nil {
				return err
			}
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Post(cmd.Context(), projectPath(pid, "generate", "test-plan"), nil)
			if err != nil {
				return fmt.Errorf("failed to request test plan: %w", err)
			}
			var queued struct {
				JobID string `json:"job_id"`
			}
			if err := decode(resp, &queued); err != nil {
				return err
			}

			if wait <= 0 {
				if outputJSON(cmd) {
					return printJSON(cmd.OutOrStdout(), queued)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Test plan job queued: %s\n", queued.JobID)
				return nil
			}

			snap, err := waitForJob(cmd.Context(), api, queued.JobID, wait, defaultPollInterval)
			if err != nil {
				return err
			}
			if snap.State == domain.JobStateFailure {
				return fmt.Errorf("test plan generation failed: %s", snap.Error)
			}
			return showLatestPlan(cmd, api, pid)
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project ID (defaults to the saved project)")
	cmd.Flags().DurationVar(&wait, "wait", 0, "Wait for generation to finish, up to this long")
	return cmd
}

func planLatestCmd() *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "latest",
		Short: "Show the most recent test plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := resolveProject(projectID)
			if err != nil {
				return err
			}
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return showLatestPlan(cmd, api, pid)
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project ID (defaults to the saved project)")
	return cmd
}

func showLatestPlan(cmd *cobra.Command, api *APIClient, projectID string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	resp, err := api.Get(ctx, projectPath(projectID, "test-plans", "latest"))
	if err != nil {
		return fmt.Errorf("failed to get test plan: %w", err)
	}
	var plan domain.TestPlan
	if err := decode(resp, &plan); err != nil {
		return err
	}

	if outputJSON(cmd) {
		return printJSON(cmd.OutOrStdout(), plan)
	}
	printPlan(cmd.OutOrStdout(), &plan)
	return nil
}

// printPlan renders the typed view of a plan, falling back to the raw object
// when it does not parse.
func printPlan(w io.Writer, plan *domain.TestPlan) {
	fmt.Fprintf(w, "Test plan %s (%s)\n\n", plan.ID, plan.CreatedAt.Format(time.RFC3339))
	doc, err := domain.ParseTestPlanDocument(plan.Plan)
	if err != nil {
		fmt.Fprintf(w, "%s\n", plan.Plan)
		return
	}
	if doc.ProjectOverview != "" {
		fmt.Fprintf(w, "%s\n\n", doc.ProjectOverview)
	}
	for _, tc := range doc.Tests {
		fmt.Fprintf(w, "[%s] %s %s (%s)\n", tc.Priority, tc.ID, tc.Title, tc.Type)
		printList(w, "Preconditions", tc.Preconditions)
		printList(w, "Steps", tc.Steps)
		printList(w, "Expected", tc.Expected)
		if len(tc.Sources) > 0 {
			fmt.Fprintf(w, "  Sources: %s\n", strings.Join(tc.Sources, ", "))
		}
		fmt.Fprintln(w)
	}
}

func printList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "  %s:\n", title)
	for i, item := range items {
		fmt.Fprintf(w, "    %d. %s\n", i+1, item)
	}
}
