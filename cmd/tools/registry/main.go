// cmd/tools/registry/main.go
package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"afh-workers/pkg/registry"

	qp "afh-workers/internal/workers/data-access/query-postgresql"
	sf "afh-workers/internal/workers/data-access/search-facilities"
	frf "afh-workers/internal/workers/forms/fill-regulatory-form"
	ccn "afh-workers/internal/workers/intake/collect-care-needs"
	cms "afh-workers/internal/workers/matching/calculate-match-score"
	rf "afh-workers/internal/workers/matching/rank-facilities"
	sn "afh-workers/internal/workers/notifications/send-notification"
	pr "afh-workers/internal/workers/results/present-results"

	"github.com/spf13/cobra"
)

// servedTaskTypes are the task types the worker manager registers.
var servedTaskTypes = []string{
	ccn.TaskType,
	cms.TaskType,
	rf.TaskType,
	sf.TaskType,
	qp.TaskType,
	pr.TaskType,
	frf.TaskType,
	sn.TaskType,
}

func main() {
	if err := newRootCmd(os.Stdout, time.Now).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer, now func() time.Time) *cobra.Command {
	var path string

	root := &cobra.Command{
		Use:          "registry",
		Short:        "Maintain the activity registry of BPMN service tasks",
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.SetErr(out)
	root.PersistentFlags().StringVar(&path, "path", "configs/activity-registry.json", "Path to registry file")

	root.AddCommand(
		newAddCmd(&path, now),
		newUpdateCmd(&path, now),
		newValidateCmd(&path),
		newListCmd(&path),
	)
	return root
}

func newAddCmd(path *string, now func() time.Time) *cobra.Command {
	var a registry.Activity
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a new activity",
		Example: `  registry add --id matching.facility.rank --displayName "Rank Facilities" \
    --description "Scores and orders candidate homes" --category matching --taskType rank-facilities`,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.LoadOrNew(*path)
			if err != nil {
				return fmt.Errorf("failed to load registry: %w", err)
			}
			if err := reg.Add(a); err != nil {
				return err
			}
			if err := registry.Save(reg, *path, now()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added activity: %s\n", a.ID)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&a.ID, "id", "", "Activity ID (domain.subdomain.action)")
	f.StringVar(&a.DisplayName, "displayName", "", "Display name")
	f.StringVar(&a.Description, "description", "", "Description")
	f.StringVar(&a.Category, "category", "", "Category (e.g. matching)")
	f.StringVar(&a.TaskType, "taskType", "", "Zeebe task type")
	f.StringVar(&a.Version, "version", "1.0.0", "Version")
	f.StringVar(&a.ImplementationStatus, "status", registry.StatusPlanned, "Implementation status (planned, in-progress, completed, verified)")
	f.StringVar(&a.Timeout, "timeout", "10s", "Job timeout")
	f.IntVar(&a.Retries, "retries", 3, "Job retries")
	f.StringSliceVar(&a.ErrorCodes, "errorCodes", nil, "Error codes the activity can raise")
	f.StringSliceVar(&a.Tags, "tags", nil, "Tags")
	for _, name := range []string{"id", "displayName", "description", "category", "taskType"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newUpdateCmd(path *string, now func() time.Time) *cobra.Command {
	var id, field, value string
	cmd := &cobra.Command{
		Use:     "update",
		Short:   "Update one field of an activity",
		Example: "  registry update --id matching.facility.rank --field status --value verified",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.Load(*path)
			if err != nil {
				return fmt.Errorf("failed to load registry: %w", err)
			}
			if err := reg.Update(id, field, value); err != nil {
				return err
			}
			if err := registry.Save(reg, *path, now()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated activity %s, field %s to %s\n", id, field, value)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Activity ID to update")
	cmd.Flags().StringVar(&field, "field", "", "Field to update (status, version, displayName, description, category, taskType, timeout, retries)")
	cmd.Flags().StringVar(&value, "value", "", "New value for the field")
	for _, name := range []string{"id", "field", "value"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newValidateCmd(path *string) *cobra.Command {
	var checkWorkers bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the registry file",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.Load(*path)
			if err != nil {
				return fmt.Errorf("failed to load registry: %w", err)
			}

			var known []string
			if checkWorkers {
				known = servedTaskTypes
			}
			problems := reg.Validate(known)
			for _, p := range problems {
				fmt.Fprintf(cmd.OutOrStdout(), "  - %v\n", p)
			}
			if len(problems) > 0 {
				return fmt.Errorf("registry validation failed with %d problem(s)", len(problems))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registry validation passed. Found %d activities.\n", len(reg.Activities))
			return nil
		},
	}
	cmd.Flags().BoolVar(&checkWorkers, "check-workers", true, "Require every task type to be served by a worker")
	return cmd
}

func newListCmd(path *string) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered activities",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.Load(*path)
			if err != nil {
				return fmt.Errorf("failed to load registry: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTASK TYPE\tCATEGORY\tSTATUS\tERROR CODES")
			for _, a := range reg.Sorted() {
				if category != "" && a.Category != category {
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", a.ID, a.TaskType, a.Category, a.ImplementationStatus, strings.Join(a.ErrorCodes, ","))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "Only show one category")
	return cmd
}
