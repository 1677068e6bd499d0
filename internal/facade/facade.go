// Package facade wires storage, the upstream API collaborator, and the LLM
// collaborator into the single entry point spec.md §2 describes: "the CLI
// (external) dispatches to a facade which instantiates Storage, the HTTP
// client, and the LLM collaborator." Sync commands traverse
// Gap -> Rate-limit -> Sync -> Storage; query/search/metrics commands read
// only; Summarize reads, invokes the LLM collaborator, and writes back to
// summary tables.
package facade

import (
	"context"
	"log/slog"
	"time"

	"github.com/adlio/asanadw/internal/asana"
	"github.com/adlio/asanadw/internal/calendar"
	"github.com/adlio/asanadw/internal/config"
	"github.com/adlio/asanadw/internal/errs"
	"github.com/adlio/asanadw/internal/metrics"
	"github.com/adlio/asanadw/internal/query"
	"github.com/adlio/asanadw/internal/search"
	"github.com/adlio/asanadw/internal/storage"
	"github.com/adlio/asanadw/internal/summary"
	"github.com/adlio/asanadw/internal/sync"
)

// Facade is the single object cmd/asanadw's subcommands call into. Its
// zero value is never usable; build one with Open.
type Facade struct {
	Store    *storage.Store
	Client   asana.Client
	Settings config.Settings
	Engine   *sync.Engine
	Summary  *summary.Cache
	logger   *slog.Logger
}

// Open opens the store at dbPath, resolves app_config settings, and wires
// a sync engine around client. client may be nil for read-only commands
// (query/search/metrics) that never reach the network.
func Open(ctx context.Context, dbPath string, client asana.Client, logger *slog.Logger) (*Facade, error) {
	if logger == nil {
		logger = slog.Default()
	}
	store, err := storage.Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}
	store.SetLogger(logger)

	settings, err := config.Resolve(ctx, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	f := &Facade{Store: store, Client: client, Settings: settings, logger: logger}
	if client != nil {
		f.Engine = sync.NewEngine(store, client, nil)
		f.Engine.Logger = logger
		f.Engine.Governor.SetLogger(logger)
	}
	return f, nil
}

// Close releases the underlying store.
func (f *Facade) Close() error { return f.Store.Close() }

// WithSummary attaches a summary cache built from an already-constructed
// Collaborator (spec.md §6 "the provider ... is selected by the
// llm_provider config value" — provider selection happens one layer up, in
// cmd/asanadw, since it is the layer that knows about environment-supplied
// credentials).
func (f *Facade) WithSummary(llm summary.Collaborator, prompts *summary.PromptBundle, promptVersion string) *Facade {
	f.Summary = summary.New(f.Store, llm, prompts, promptVersion, summary.WithLogger(f.logger))
	return f
}

// requireEngine returns errs.KindConfig if no sync engine is wired (no
// client was supplied to Open), so sync-path callers fail fast with a
// clear, typed error rather than a nil-pointer panic.
func (f *Facade) requireEngine() error {
	if f.Engine == nil {
		return errs.New(errs.KindConfig, "no Asana API client configured; set ASANA_TOKEN and wire a client before syncing")
	}
	return nil
}

// SyncEntity runs one entity's sync by gid, dispatching on the
// caller-supplied entityType ("user", "team", "portfolio", or "project").
func (f *Facade) SyncEntity(ctx context.Context, gid, entityType string, opts sync.Options) (sync.Report, error) {
	if err := f.requireEngine(); err != nil {
		return sync.Report{}, err
	}
	switch entityType {
	case "user":
		return f.Engine.SyncUser(ctx, gid, opts)
	case "team":
		return f.Engine.SyncTeam(ctx, gid, opts)
	case "portfolio":
		return f.Engine.SyncPortfolio(ctx, gid, opts)
	case "project":
		return f.Engine.SyncProject(ctx, gid, opts)
	default:
		return sync.Report{}, errs.New(errs.KindConfig, "unknown entity type "+entityType)
	}
}

// SyncAll runs spec.md §4.5's sync_all: every monitored entity, sequentially.
func (f *Facade) SyncAll(ctx context.Context, opts sync.Options) ([]sync.Report, error) {
	if err := f.requireEngine(); err != nil {
		return nil, err
	}
	return f.Engine.SyncAll(ctx, opts)
}

// AddMonitoredEntity records gid as a sync target (spec.md §3 "monitored_entities").
func (f *Facade) AddMonitoredEntity(ctx context.Context, gid, entityType, label string) error {
	return f.Store.AddMonitoredEntity(ctx, storage.MonitoredEntity{
		GID: gid, EntityType: entityType, Label: label, AddedAt: time.Now(),
	})
}

// Query starts a new query.Builder bound to this facade's store (spec.md §4.6).
func (f *Facade) Query() *query.Builder { return query.New(f.Store) }

// Search runs spec.md §4.7's cross-surface full-text search.
func (f *Facade) Search(ctx context.Context, q string, opts search.Options) ([]search.Result, error) {
	return search.Search(ctx, f.Store, q, opts)
}

// ProjectMetrics computes spec.md §4.9's throughput/health/lead-time trio
// for one project and period.
func (f *Facade) ProjectMetrics(ctx context.Context, projectGID string, period calendar.Period) (metrics.Throughput, metrics.Health, metrics.LeadTime, error) {
	scope := metrics.ForProjects([]string{projectGID})
	th, err := metrics.ComputeThroughput(ctx, f.Store, scope, period)
	if err != nil {
		return metrics.Throughput{}, metrics.Health{}, metrics.LeadTime{}, err
	}
	h, err := metrics.ProjectHealth(ctx, f.Store, projectGID, period)
	if err != nil {
		return metrics.Throughput{}, metrics.Health{}, metrics.LeadTime{}, err
	}
	lt, err := metrics.ComputeLeadTime(ctx, f.Store, scope, period)
	if err != nil {
		return metrics.Throughput{}, metrics.Health{}, metrics.LeadTime{}, err
	}
	return th, h, lt, nil
}

// UserMetrics computes spec.md §4.9's throughput and collaboration pair
// for one user and period.
func (f *Facade) UserMetrics(ctx context.Context, userGID string, period calendar.Period) (metrics.Throughput, metrics.Collaboration, error) {
	th, err := metrics.ComputeThroughput(ctx, f.Store, metrics.ForUser(userGID), period)
	if err != nil {
		return metrics.Throughput{}, metrics.Collaboration{}, err
	}
	collab, err := metrics.ComputeCollaboration(ctx, f.Store, userGID, period)
	if err != nil {
		return metrics.Throughput{}, metrics.Collaboration{}, err
	}
	return th, collab, nil
}

// Summarize runs spec.md §4.10's summary cache for target, bypassing the
// cache when force is set. Requires WithSummary to have been called.
func (f *Facade) Summarize(ctx context.Context, target summary.Target, force bool) (string, error) {
	if f.Summary == nil {
		return "", errs.New(errs.KindConfig, "no LLM collaborator configured; set llm_provider and the matching credentials")
	}
	return f.Summary.Summarize(ctx, target, force)
}
