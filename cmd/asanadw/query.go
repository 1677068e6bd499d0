package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adlio/asanadw/internal/calendar"
)

var (
	queryAssignee     string
	queryProject      string
	queryPortfolio    string
	queryTeam         string
	queryPeriod       string
	queryCompleted    bool
	queryIncomplete   bool
	queryOverdue      bool
	queryCustomField  string
	queryCustomValue  string
	queryLimit        int
	queryCountOnly    bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Filter tasks with composable predicates (spec.md §4.6)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		b := f.Query()
		if queryAssignee != "" {
			b = b.Assignee(ctx, queryAssignee)
		}
		if queryProject != "" {
			b = b.Project(ctx, queryProject)
		}
		if queryPortfolio != "" {
			b = b.Portfolio(ctx, queryPortfolio)
		}
		if queryTeam != "" {
			b = b.Team(ctx, queryTeam)
		}
		if queryCompleted {
			b = b.Completed()
		}
		if queryIncomplete {
			b = b.Incomplete()
		}
		if queryOverdue {
			b = b.Overdue()
		}
		if queryCustomField != "" {
			b = b.CustomField(queryCustomField, queryCustomValue)
		}
		if queryPeriod != "" {
			p, err := calendar.Parse(queryPeriod, timeNow())
			if err != nil {
				return err
			}
			b = b.Period(p)
		}
		b = b.Limit(queryLimit)

		if queryCountOnly {
			n, err := b.Count(ctx)
			if err != nil {
				return err
			}
			fmt.Println(n)
			return nil
		}

		tasks, err := b.Tasks(ctx)
		if err != nil {
			return err
		}
		for _, t := range tasks {
			fmt.Printf("%s\t%s\tcompleted=%t\n", t.GID, t.Name, t.IsCompleted)
		}
		return nil
	},
}

func init() {
	queryCmd.Flags().StringVar(&queryAssignee, "assignee", "", "filter by assignee gid or email")
	queryCmd.Flags().StringVar(&queryProject, "project", "", "filter by project gid, name, or URL")
	queryCmd.Flags().StringVar(&queryPortfolio, "portfolio", "", "filter by portfolio gid, name, or URL")
	queryCmd.Flags().StringVar(&queryTeam, "team", "", "filter by team gid or name")
	queryCmd.Flags().StringVar(&queryPeriod, "period", "", "restrict to a calendar period, e.g. 2026-q1")
	queryCmd.Flags().BoolVar(&queryCompleted, "completed", false, "only completed tasks")
	queryCmd.Flags().BoolVar(&queryIncomplete, "incomplete", false, "only open tasks")
	queryCmd.Flags().BoolVar(&queryOverdue, "overdue", false, "only overdue tasks")
	queryCmd.Flags().StringVar(&queryCustomField, "custom-field", "", "custom field name to filter on")
	queryCmd.Flags().StringVar(&queryCustomValue, "custom-value", "", "custom field display value to filter on")
	queryCmd.Flags().IntVar(&queryLimit, "limit", 100, "maximum rows returned")
	queryCmd.Flags().BoolVar(&queryCountOnly, "count", false, "print only the matching row count")
}
