package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/cloo-solutions/testcopilot/internal/domain"
	"github.com/spf13/cobra"
)

const defaultPollInterval = time.Second

// ErrWaitTimeout is returned when a job is still running at the --wait deadline.
var ErrWaitTimeout = errors.New("timed out waiting for job")

type jobGetter interface {
	Get(ctx context.Context, path string) (*APIResponse, error)
}

// JobCmd groups job subcommands.
func JobCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Inspect background jobs",
	}
	cmd.AddCommand(jobStatusCmd())
	return cmd
}

func jobStatusCmd() *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show the state of a job",
		Long:  "Shows the state of a job. With --wait, polls until the job finishes or the deadline passes.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			var snap *domain.JobSnapshot
			if wait > 0 {
				snap, err = waitForJob(cmd.Context(), api, args[0], wait, defaultPollInterval)
			} else {
				snap, err = fetchJob(cmd.Context(), api, args[0])
			}
			if err != nil {
				return err
			}

			if outputJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), snap)
			}
			printJob(cmd.OutOrStdout(), snap)
			return nil
		},
	}

	cmd.Flags().DurationVar(&wait, "wait", 0, "Poll until the job finishes, up to this long (e.g. 2m)")
	return cmd
}

func fetchJob(ctx context.Context, api jobGetter, jobID string) (*domain.JobSnapshot, error) {
	resp, err := api.Get(ctx, "/jobs/"+url.PathEscape(jobID))
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	var snap domain.JobSnapshot
	if err := decode(resp, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// waitForJob polls the job until it reaches a terminal state. The deadline is
// enforced on the client; the server keeps running the job either way.
func waitForJob(ctx context.Context, api jobGetter, jobID string, timeout, interval time.Duration) (*domain.JobSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		snap, err := fetchJob(ctx, api, jobID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w %s after %s", ErrWaitTimeout, jobID, timeout)
			}
			return nil, err
		}
		if snap.State.IsTerminal() {
			return snap, nil
		}

		select {
		case <-ctx.Done():
			return snap, fmt.Errorf("%w %s after %s (state %s)", ErrWaitTimeout, jobID, timeout, snap.State)
		case <-ticker.C:
		}
	}
}

func printJob(w io.Writer, snap *domain.JobSnapshot) {
	fmt.Fprintf(w, "Job:   %s\n", snap.JobID)
	fmt.Fprintf(w, "Kind:  %s\n", snap.Kind)
	fmt.Fprintf(w, "State: %s\n", snap.State)
	if snap.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", snap.Error)
	}
	if len(snap.Result) > 0 {
		fmt.Fprintf(w, "Result: %s\n", string(snap.Result))
	}
}
