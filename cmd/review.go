package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/bia-service/internal/workflow"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Move BIA documents through review and approval",
}

func reviewAction(action workflow.Action, short string) *cobra.Command {
	c := &cobra.Command{
		Use:   string(action) + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := initEnv(cmd.Context(), cfg, "store")
			if err != nil {
				return err
			}
			defer env.Close()

			actor, _ := cmd.Flags().GetString("actor")
			comment, _ := cmd.Flags().GetString("comment")

			res, err := env.Workflow.Transition(cmd.Context(), args[0], action, actor, comment)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s is now %s\n", res.Document.ID, res.Document.Status)
			if res.Push != nil {
				fmt.Fprintf(out, "risk record %s (%s), review due %s\n",
					res.Push.RecordID, res.Push.Status, res.Push.ReviewDate.Format("2006-01-02"))
			}
			if res.PushError != "" {
				fmt.Fprintf(out, "risk platform push failed, retry with `bia sync %s --push`: %s\n", res.Document.ID, res.PushError)
			}
			return nil
		},
	}
	c.Flags().String("actor", "", "who is performing the action")
	c.Flags().String("comment", "", "review comment")
	return c
}

var syncCmd = &cobra.Command{
	Use:   "sync <id>",
	Short: "Push or reconcile an approved document with the risk platform",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), cfg, "store")
		if err != nil {
			return err
		}
		defer env.Close()

		actor, _ := cmd.Flags().GetString("actor")
		if push, _ := cmd.Flags().GetBool("push"); push {
			res, err := env.Workflow.Push(cmd.Context(), args[0], actor, "")
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		}

		raw, _ := cmd.Flags().GetString("direction")
		dir, err := workflow.ParseDirection(raw)
		if err != nil {
			return err
		}
		res, err := env.Workflow.Sync(cmd.Context(), args[0], actor, dir)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	reviewCmd.AddCommand(
		reviewAction(workflow.ActionSubmit, "Submit a draft for approval"),
		reviewAction(workflow.ActionApprove, "Approve a pending document and push it to the risk platform"),
		reviewAction(workflow.ActionReject, "Reject a pending document"),
		reviewAction(workflow.ActionRedraft, "Return a rejected document to draft"),
		reviewAction(workflow.ActionArchive, "Archive an approved or rejected document"),
	)

	syncCmd.Flags().String("actor", "", "who is performing the sync")
	syncCmd.Flags().String("direction", "bidirectional", "push, pull or bidirectional")
	syncCmd.Flags().Bool("push", false, "register the document instead of reconciling")

	rootCmd.AddCommand(reviewCmd, syncCmd)
}
