package summary

import (
	"context"
	"strings"
	"time"

	"github.com/adlio/asanadw/internal/errs"
	"github.com/adlio/asanadw/internal/metrics"
	"github.com/adlio/asanadw/internal/storage"
)

// evidence is the rendered text handed to a prompt template: either a
// single task's notes and comment thread, or a period's worth of task
// activity and status updates for a project/portfolio/team/user (spec.md
// §4.10 "gather the evidence set from the store").
type evidence struct {
	Title   string
	Body    string
	Threads []string
}

func (c *Cache) gatherEvidence(ctx context.Context, target Target) (evidence, error) {
	if target.TaskGID != "" {
		return c.gatherTaskEvidence(ctx, target.TaskGID)
	}

	tasks, updates, err := c.periodActivity(ctx, target)
	if err != nil {
		return evidence{}, err
	}

	var b strings.Builder
	b.WriteString("Tasks touched in period:\n")
	for _, t := range tasks {
		state := "open"
		if t.IsCompleted {
			state = "completed"
		}
		b.WriteString("- [" + state + "] " + t.Name + "\n")
	}
	b.WriteString("\nStatus updates in period:\n")
	for _, u := range updates {
		b.WriteString("- (" + u.StatusType + ") " + u.Text + "\n")
	}

	return evidence{
		Title: periodTitle(target),
		Body:  b.String(),
	}, nil
}

// periodActivity gathers the tasks and status updates an entity touched
// within its target period. User targets already query by assignee
// directly (fact_tasks has no project-membership join needed); the other
// three scope through their project-gid set, mirroring
// metrics.ComputeHealth's scoping so the summary's evidence matches the
// metrics a caller would see alongside it.
func (c *Cache) periodActivity(ctx context.Context, target Target) ([]storage.Task, []storage.StatusUpdate, error) {
	startKey, endKey := dateKey(target.Period.Start), dateKey(target.Period.End)

	if target.UserGID != "" {
		tasks, err := c.store.TasksAssignedInPeriod(ctx, target.UserGID, startKey, endKey)
		return tasks, nil, err
	}

	projectGIDs, hasStatusUpdates, err := c.scopeFor(ctx, target)
	if err != nil {
		return nil, nil, err
	}
	tasks, err := c.store.TasksTouchedInPeriod(ctx, projectGIDs, startKey, endKey)
	if err != nil {
		return nil, nil, err
	}

	var updates []storage.StatusUpdate
	if hasStatusUpdates {
		updates, err = c.statusUpdatesFor(ctx, target)
		if err != nil {
			return nil, nil, err
		}
	}
	return tasks, updates, nil
}

func (c *Cache) gatherTaskEvidence(ctx context.Context, taskGID string) (evidence, error) {
	task, err := c.store.GetTaskByGID(ctx, taskGID)
	if err != nil {
		return evidence{}, err
	}
	comments, err := c.store.CommentsForTask(ctx, taskGID)
	if err != nil {
		return evidence{}, err
	}

	threads := make([]string, 0, len(comments))
	for _, cm := range comments {
		threads = append(threads, cm.Text)
	}
	return evidence{Title: task.Name, Body: task.Notes, Threads: threads}, nil
}

// scopeFor resolves the project-gid set for a project/portfolio/team
// target, and whether it owns status updates directly (only project and
// portfolio targets do; teams roll up through their projects instead).
func (c *Cache) scopeFor(ctx context.Context, target Target) ([]string, bool, error) {
	switch {
	case target.ProjectGID != "":
		return []string{target.ProjectGID}, true, nil
	case target.PortfolioGID != "":
		gids, err := metrics.ProjectGIDsForPortfolio(ctx, c.store, target.PortfolioGID)
		return gids, true, err
	case target.TeamGID != "":
		gids, err := metrics.ProjectGIDsForTeam(ctx, c.store, target.TeamGID)
		return gids, false, err
	default:
		return nil, false, errs.New(errs.KindConfig, "summary target has no entity set")
	}
}

func (c *Cache) statusUpdatesFor(ctx context.Context, target Target) ([]storage.StatusUpdate, error) {
	startStr := target.Period.Start.Format("2006-01-02")
	endStr := target.Period.End.Format("2006-01-02")
	return c.store.StatusUpdatesInPeriod(ctx, target.ProjectGID, target.PortfolioGID, startStr, endStr)
}

func periodTitle(t Target) string {
	switch {
	case t.ProjectGID != "":
		return "Project " + t.ProjectGID + " — " + t.Period.Raw
	case t.PortfolioGID != "":
		return "Portfolio " + t.PortfolioGID + " — " + t.Period.Raw
	case t.TeamGID != "":
		return "Team " + t.TeamGID + " — " + t.Period.Raw
	default:
		return "User " + t.UserGID + " — " + t.Period.Raw
	}
}

func dateKey(t time.Time) int { return t.Year()*10000 + int(t.Month())*100 + t.Day() }
