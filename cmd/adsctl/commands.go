package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
)

func statusCmd(client *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the pipeline's aggregate status",
		RunE: func(cmd *cobra.Command, args []string) error {
			var status domain.SystemStatus
			if err := client.get(cmd.Context(), "/api/v1/status", &status); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Phase:             %s\n", status.Phase)
			if status.Health != nil {
				fmt.Fprintf(out, "Account health:    %.0f (%s)\n", status.Health.Score, status.Health.Status)
			}
			fmt.Fprintf(out, "Experiments:       %d running\n", status.ActiveExperiments)
			fmt.Fprintf(out, "Approvals:         %d pending\n", status.PendingApprovals)
			fmt.Fprintf(out, "Optimizations:     %d pending\n", status.PendingOptimizations)
			fmt.Fprintf(out, "Open alerts:       %d\n", status.OpenAlerts)
			if status.LastLoop != nil {
				fmt.Fprintf(out, "Last loop:         %s", status.LastLoop.CompletedAt.Format(time.RFC3339))
				if failed := status.LastLoop.Failed(); len(failed) > 0 {
					fmt.Fprintf(out, " (failed: %s)", strings.Join(failed, ", "))
				}
				fmt.Fprintln(out)
				fmt.Fprintf(out, "Next loop:         %s\n", status.LastLoop.NextRun.Format(time.RFC3339))
			}
			return nil
		},
	}
}

func loopCmd(client *apiClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loop",
		Short: "Operate the decision loop",
	}
	cmd.AddCommand(loopRunCmd(client), loopHistoryCmd(client))
	return cmd
}

func loopRunCmd(client *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Trigger one loop iteration and wait for it",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result domain.LoopResult
			if err := client.post(cmd.Context(), "/api/v1/loop/run", nil, &result); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, step := range result.Steps {
				mark := "ok"
				detail := step.Detail
				if !step.Success {
					mark = "FAIL"
					detail = step.Error
				}
				fmt.Fprintf(out, "%-22s %-4s %s\n", step.Name, mark, detail)
			}
			fmt.Fprintf(out, "\nPending approvals: %d\n", result.PendingApprovals)
			fmt.Fprintf(out, "Next run:          %s\n", result.NextRun.Format(time.RFC3339))
			return nil
		},
	}
}

func loopHistoryCmd(client *apiClient) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent loop iterations",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/loop/history"
			if limit > 0 {
				path = fmt.Sprintf("%s?limit=%d", path, limit)
			}
			var resp struct {
				Results []domain.LoopResult `json:"results"`
			}
			if err := client.get(cmd.Context(), path, &resp); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, r := range resp.Results {
				outcome := "ok"
				if failed := r.Failed(); len(failed) > 0 {
					outcome = "failed: " + strings.Join(failed, ", ")
				}
				fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", r.ID, r.Phase, r.CompletedAt.Format(time.RFC3339), outcome)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Cap the number of results")
	return cmd
}

func approvalsCmd(client *apiClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approvals",
		Short: "Review and resolve pending approvals",
	}
	cmd.AddCommand(approvalsListCmd(client), approvalsApproveCmd(client), approvalsRejectCmd(client))
	return cmd
}

func approvalsListCmd(client *apiClient) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pending approvals",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/approvals"
			if all {
				path += "?all=true"
			}
			var resp struct {
				Approvals []domain.PendingApproval `json:"approvals"`
			}
			if err := client.get(cmd.Context(), path, &resp); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, a := range resp.Approvals {
				fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", a.ID, a.Status, a.Description, a.Impact)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include resolved approvals")
	return cmd
}

type approvalDecision struct {
	By     string `json:"by"`
	Notes  string `json:"notes,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func approvalsApproveCmd(client *apiClient) *cobra.Command {
	var by, notes string
	cmd := &cobra.Command{
		Use:   "approve <id>",
		Short: "Approve a pending action",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var approval domain.PendingApproval
			path := "/api/v1/approvals/" + args[0] + "/approve"
			if err := client.post(cmd.Context(), path, approvalDecision{By: by, Notes: notes}, &approval); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s approved, executes on the next loop\n", approval.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&by, "by", "", "Who is approving")
	cmd.Flags().StringVar(&notes, "notes", "", "Optional notes")
	cmd.MarkFlagRequired("by")
	return cmd
}

func approvalsRejectCmd(client *apiClient) *cobra.Command {
	var by, reason string
	cmd := &cobra.Command{
		Use:   "reject <id>",
		Short: "Reject a pending action",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var approval domain.PendingApproval
			path := "/api/v1/approvals/" + args[0] + "/reject"
			if err := client.post(cmd.Context(), path, approvalDecision{By: by, Reason: reason}, &approval); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s rejected\n", approval.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&by, "by", "", "Who is rejecting")
	cmd.Flags().StringVar(&reason, "reason", "", "Why the action is rejected")
	cmd.MarkFlagRequired("by")
	return cmd
}

func experimentsCmd(client *apiClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "experiments",
		Short: "Inspect experiments",
	}
	cmd.AddCommand(experimentsListCmd(client))
	return cmd
}

func experimentsListCmd(client *apiClient) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List experiments",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/experiments"
			if status != "" {
				path += "?status=" + status
			}
			var resp struct {
				Experiments []domain.ExperimentDesign `json:"experiments"`
			}
			if err := client.get(cmd.Context(), path, &resp); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, e := range resp.Experiments {
				fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", e.ID, e.Status, e.PrimaryMetric.Name, e.Hypothesis)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by status")
	return cmd
}
