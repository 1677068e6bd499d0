// Package storage implements the star-schema local mirror: dimension,
// fact, and bridge tables, their FTS trigger contract, and the
// single-writer/reader-pool connection model (spec.md §3, §4.1).
package storage

import "time"

// User is a dim_users row.
type User struct {
	GID   string
	Name  string
	Email string
}

// Team is a dim_teams row.
type Team struct {
	GID  string
	Name string
}

// Project is a dim_projects row. ID is the explicit integer rowid used by
// projects_fts (spec.md §3 "Identity and stable keys").
type Project struct {
	ID        int64
	GID       string
	Name      string
	Notes     string
	TeamGID   string
	Archived  bool
	CreatedAt time.Time
}

// Portfolio is a dim_portfolios row.
type Portfolio struct {
	GID       string
	Name      string
	OwnerGID  string
	CreatedAt time.Time
}

// Section is a dim_sections row, owned by a project.
type Section struct {
	GID        string
	ProjectGID string
	Name       string
}

// CustomFieldDef is a dim_custom_fields row.
type CustomFieldDef struct {
	GID  string
	Name string
	Type string // enum, multi_enum, number, date, people, text
}

// EnumOption is a dim_enum_options row, owned by a custom field.
type EnumOption struct {
	GID            string
	CustomFieldGID string
	Name           string
	Color          string
}

// Tag is a dim_tags row.
type Tag struct {
	GID  string
	Name string
}

// Task is a fact_tasks row. ID is the explicit integer rowid used by
// tasks_fts.
type Task struct {
	ID               int64
	GID              string
	Name             string
	Notes            string
	AssigneeGID      string
	ParentGID        string // empty means top-level
	IsSubtask        bool
	NumSubtasks      int
	IsCompleted      bool
	CreatedAt        time.Time
	CompletedAt      *time.Time
	DueOn            *time.Time
	CreatedDateKey   int
	CompletedDateKey *int
	DaysToComplete   *int
	IsOverdue        bool
}

// Comment is a fact_comments row.
type Comment struct {
	ID         int64
	GID        string
	TaskGID    string
	AuthorGID  string
	Text       string
	CreatedAt  time.Time
}

// StatusUpdate is a fact_status_updates row, attached to a project or
// portfolio (exactly one of ProjectGID/PortfolioGID is set).
type StatusUpdate struct {
	GID          string
	ProjectGID   string
	PortfolioGID string
	Text         string
	StatusType   string // on_track, at_risk, off_track, on_hold, complete
	AuthorGID    string
	CreatedAt    time.Time
}

// TaskCustomFieldValue is a fact_task_custom_fields row.
type TaskCustomFieldValue struct {
	TaskGID        string
	CustomFieldGID string
	EnumValueGID   string
	NumberValue    *float64
	DateValue      *time.Time
	TextValue      string
	DisplayValue   string
}

// TaskProjectMembership is a bridge_task_projects row (task in project,
// optionally within a section).
type TaskProjectMembership struct {
	TaskGID    string
	ProjectGID string
	SectionGID string
}

// DependencyEdge is a bridge_task_dependencies row: TaskGID depends on
// DependsOnGID.
type DependencyEdge struct {
	TaskGID      string
	DependsOnGID string
}

// TeamMember is a bridge_team_members row.
type TeamMember struct {
	TeamGID string
	UserGID string
}

// MonitoredEntity is a monitored_entities row.
type MonitoredEntity struct {
	GID        string
	EntityType string
	Label      string
	AddedAt    time.Time
}

// SyncedRange is a synced_ranges row: a successfully-completed [Start, End]
// window for one entity.
type SyncedRange struct {
	EntityGID  string
	EntityType string
	Start      time.Time
	End        time.Time
}

// SyncJob is a sync_jobs row tracking one sync invocation end to end.
type SyncJob struct {
	ID              int64
	EntityGID       string
	EntityType      string
	Status          string // running, completed, partial, failed
	RequestedStart  time.Time
	RequestedEnd    time.Time
	StartedAt       time.Time
	CompletedAt     *time.Time
	BatchesTotal    int
	BatchesDone     int
	ItemsSynced     int
	ItemsSkipped    int
	ItemsFailed     int
}

// SyncToken is a sync_tokens row holding the events-delta cursor for one
// entity.
type SyncToken struct {
	EntityGID string
	Token     string
	FetchedAt time.Time
}
