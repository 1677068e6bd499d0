package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adlio/asanadw/internal/search"
)

var (
	searchAssignee string
	searchProject  string
	searchLimit    int
	searchTypes    []string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Full-text search across tasks, comments, projects, portfolios, and custom fields (spec.md §4.7)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		opts := search.Options{
			AssigneeGID: searchAssignee,
			ProjectGID:  searchProject,
			Limit:       searchLimit,
		}
		for _, t := range searchTypes {
			opts.EntityTypes = append(opts.EntityTypes, search.EntityType(t))
		}

		results, err := f.Search(ctx, args[0], opts)
		if err != nil {
			return err
		}
		for _, r := range results {
			fmt.Printf("%s\t%s\t%s\t%.3f\n", r.EntityType, r.GID, r.Title, r.Rank)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchAssignee, "assignee", "", "narrow to a task/comment/custom-field assignee gid")
	searchCmd.Flags().StringVar(&searchProject, "project", "", "narrow to a task/comment/custom-field project gid")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 50, "maximum rows returned")
	searchCmd.Flags().StringSliceVar(&searchTypes, "type", nil, "restrict to these entity types (task,comment,project,portfolio,custom_field)")
}
