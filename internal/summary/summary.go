// Package summary implements spec.md §4.10's summary cache: gather a
// per-entity evidence set from storage, hand it to the LLM collaborator
// with the bundle's prompt for that kind, and upsert the structured reply
// into the matching *_summaries table tagged with prompt_version.
package summary

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/adlio/asanadw/internal/calendar"
	"github.com/adlio/asanadw/internal/errs"
	"github.com/adlio/asanadw/internal/storage"
)

// Target identifies what to summarize and over what period. TaskGID alone
// summarizes one task plus its comments (spec.md §4.10 "a task and its
// comments"); the other fields summarize all activity an entity touched
// within Period ("all tasks touched by the entity in the period, plus
// status updates").
type Target struct {
	TaskGID      string
	ProjectGID   string
	PortfolioGID string
	TeamGID      string
	UserGID      string
	Period       calendar.Period
}

// taskSummaryPeriodKey is the period_key stored for task-level summaries,
// which have no period of their own (spec.md §4.10 "or task_gid").
const taskSummaryPeriodKey = "task"

// Collaborator is the LLM collaborator abstraction spec.md §6 describes:
// one operation, a prompt in, structured text out. Implementations never
// see cache state; Cache is the only caller.
type Collaborator interface {
	Generate(ctx context.Context, prompt string, schema string) (string, error)
}

// Cache is the summary cache: it gathers evidence, calls the LLM
// collaborator, and persists/returns cached *_summaries rows.
type Cache struct {
	store         *storage.Store
	llm           Collaborator
	prompts       *PromptBundle
	promptVersion string
	logger        *slog.Logger
	group         singleflight.Group
}

// Option configures a Cache constructed by New.
type Option func(*Cache)

// WithLogger overrides the default slog.Default() logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// New builds a Cache. prompts supplies the template bundle, one template
// per summary kind; promptVersion does not select among templates. It is
// part of the cache key and is stored on every cached row (spec.md §4.10
// "prompt keyed by prompt_version").
func New(store *storage.Store, llm Collaborator, prompts *PromptBundle, promptVersion string, opts ...Option) *Cache {
	c := &Cache{store: store, llm: llm, prompts: prompts, promptVersion: promptVersion, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Summarize implements spec.md §4.10 end to end: check the cache unless
// force is set, and on a miss gather evidence, call the LLM collaborator, parse and
// upsert the reply, and return the text. Concurrent identical requests for
// the same target collapse onto a single in-flight call via singleflight.
func (c *Cache) Summarize(ctx context.Context, target Target, force bool) (string, error) {
	key := cacheKey(target, c.promptVersion)

	text, err, _ := c.group.Do(key, func() (any, error) {
		return c.summarizeOnce(ctx, target, force)
	})
	if err != nil {
		return "", err
	}
	return text.(string), nil
}

func (c *Cache) summarizeOnce(ctx context.Context, target Target, force bool) (string, error) {
	entityGID, periodKey := target.entityAndPeriodKey()

	if !force {
		if cached, ok, err := c.lookup(ctx, target, entityGID, periodKey); err != nil {
			return "", err
		} else if ok {
			c.logger.Debug("summary cache hit", "entity_gid", entityGID, "period_key", periodKey)
			return cached, nil
		}
	}

	evidence, err := c.gatherEvidence(ctx, target)
	if err != nil {
		return "", err
	}

	prompt, err := c.prompts.Render(target.promptKind(), evidence)
	if err != nil {
		return "", errs.Wrap(errs.KindLLM, "render summary prompt", err)
	}

	c.logger.Info("generating summary", "entity_gid", entityGID, "period_key", periodKey, "prompt_version", c.promptVersion)
	reply, err := c.llm.Generate(ctx, prompt, summarySchema)
	if err != nil {
		return "", errs.Wrap(errs.KindLLM, "generate summary", err)
	}
	text, err := parseSummaryReply(reply)
	if err != nil {
		return "", errs.Wrap(errs.KindLLM, "parse summary reply", err)
	}

	if err := c.persist(ctx, target, entityGID, periodKey, text); err != nil {
		return "", err
	}
	return text, nil
}

func (c *Cache) lookup(ctx context.Context, target Target, entityGID, periodKey string) (string, bool, error) {
	var (
		sum storage.Summary
		ok  bool
		err error
	)
	switch {
	case target.TaskGID != "":
		sum, ok, err = c.store.GetTaskSummary(ctx, entityGID, periodKey, c.promptVersion)
	case target.ProjectGID != "":
		sum, ok, err = c.store.GetProjectSummary(ctx, entityGID, periodKey, c.promptVersion)
	case target.PortfolioGID != "":
		sum, ok, err = c.store.GetPortfolioSummary(ctx, entityGID, periodKey, c.promptVersion)
	case target.TeamGID != "":
		sum, ok, err = c.store.GetTeamSummary(ctx, entityGID, periodKey, c.promptVersion)
	case target.UserGID != "":
		sum, ok, err = c.store.GetUserSummary(ctx, entityGID, periodKey, c.promptVersion)
	default:
		return "", false, errs.New(errs.KindConfig, "summary target has no entity set")
	}
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return sum.Text, true, nil
}

func (c *Cache) persist(ctx context.Context, target Target, entityGID, periodKey, text string) error {
	sum := storage.Summary{
		EntityGID:     entityGID,
		PeriodKey:     periodKey,
		PromptVersion: c.promptVersion,
		Text:          text,
		GeneratedAt:   time.Now(),
	}
	switch {
	case target.TaskGID != "":
		return c.store.UpsertTaskSummary(ctx, sum)
	case target.ProjectGID != "":
		return c.store.UpsertProjectSummary(ctx, sum)
	case target.PortfolioGID != "":
		return c.store.UpsertPortfolioSummary(ctx, sum)
	case target.TeamGID != "":
		return c.store.UpsertTeamSummary(ctx, sum)
	case target.UserGID != "":
		return c.store.UpsertUserSummary(ctx, sum)
	default:
		return errs.New(errs.KindConfig, "summary target has no entity set")
	}
}

func (t Target) entityAndPeriodKey() (string, string) {
	switch {
	case t.TaskGID != "":
		return t.TaskGID, taskSummaryPeriodKey
	case t.ProjectGID != "":
		return t.ProjectGID, t.Period.Raw
	case t.PortfolioGID != "":
		return t.PortfolioGID, t.Period.Raw
	case t.TeamGID != "":
		return t.TeamGID, t.Period.Raw
	default:
		return t.UserGID, t.Period.Raw
	}
}

func (t Target) promptKind() string {
	switch {
	case t.TaskGID != "":
		return "task"
	case t.ProjectGID != "":
		return "project"
	case t.PortfolioGID != "":
		return "portfolio"
	case t.TeamGID != "":
		return "team"
	default:
		return "user"
	}
}

func cacheKey(t Target, promptVersion string) string {
	entityGID, periodKey := t.entityAndPeriodKey()
	return entityGID + "|" + periodKey + "|" + promptVersion
}

// summarySchema describes the structured reply shape the LLM collaborator
// is asked to produce; passed through verbatim to Collaborator.Generate so
// provider implementations can embed it in whatever structured-output
// mechanism they support.
const summarySchema = `{"type":"object","required":["summary"],"properties":{"summary":{"type":"string"}}}`

type summaryReply struct {
	Summary string `json:"summary"`
}

// parseSummaryReply extracts the "summary" field from the LLM's structured
// JSON reply. Models occasionally wrap JSON in a fenced code block despite
// being asked for raw JSON, so a surrounding ```json fence is stripped
// before parsing.
func parseSummaryReply(reply string) (string, error) {
	trimmed := strings.TrimSpace(reply)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var parsed summaryReply
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		return "", err
	}
	if parsed.Summary == "" {
		return "", errs.New(errs.KindLLM, "empty summary field in reply")
	}
	return parsed.Summary, nil
}
