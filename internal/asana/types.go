package asana

import "time"

// User mirrors the subset of Asana's user resource asanadw mirrors locally.
type User struct {
	GID   string
	Name  string
	Email string
}

// UserRef is the compact {gid, name} shape Asana embeds inline wherever a
// task or comment references a user (assignee, follower, comment/status
// author) — full profile fields like Email only come back from GetUser.
type UserRef struct {
	GID  string
	Name string
}

// Team mirrors Asana's team resource. ProjectGIDs/MemberGIDs are bare gid
// lists (Asana's team resource doesn't embed full project/user records),
// resolved by the sync engine via GetProject/GetUser before the
// corresponding bridge rows are written.
type Team struct {
	GID         string
	Name        string
	ProjectGIDs []string
	MemberGIDs  []string
}

// Project mirrors Asana's project resource.
type Project struct {
	GID       string
	Name      string
	Notes     string
	TeamGID   string
	Archived  bool
	CreatedAt time.Time
}

// Portfolio mirrors Asana's portfolio resource.
type Portfolio struct {
	GID         string
	Name        string
	OwnerGID    string
	CreatedAt   time.Time
	ProjectGIDs []string
	ChildGIDs   []string // nested portfolios
}

// Tag is the compact {gid, name} shape Asana embeds on a task's tag list.
type Tag struct {
	GID  string
	Name string
}

// Section is the compact {gid, name} shape Asana embeds on a task
// membership's section field.
type Section struct {
	GID  string
	Name string
}

// Task mirrors Asana's task resource, including the membership and
// dependency edges the sync engine flattens into bridge tables. Every
// compound field Asana embeds inline (assignee, followers, tags, a
// membership's project/section) carries at least a gid+name compact record,
// so the sync engine can upsert those dimensions without a round trip;
// AssigneeGID/ParentGID/DependsOnGIDs are bare since those only ever
// resolve against rows the sync is already writing.
type Task struct {
	GID           string
	Name          string
	Notes         string
	AssigneeGID   string
	AssigneeName  string
	ParentGID     string
	NumSubtasks   int
	Completed     bool
	CreatedAt     time.Time
	CompletedAt   *time.Time
	DueOn         *time.Time
	Memberships   []Membership
	Tags          []Tag
	DependsOnGIDs []string
	Followers     []UserRef
	CustomFields  []CustomFieldValue
}

// Membership is one project+section pairing a task belongs to, carrying the
// compact project/section records Asana embeds inline.
type Membership struct {
	ProjectGID  string
	ProjectName string
	SectionGID  string
	SectionName string
}

// Comment mirrors an Asana story of type "comment".
type Comment struct {
	GID        string
	TaskGID    string
	AuthorGID  string
	AuthorName string
	Text       string
	CreatedAt  time.Time
}

// StatusUpdate mirrors an Asana project/portfolio status update.
type StatusUpdate struct {
	GID          string
	ProjectGID   string
	PortfolioGID string
	Text         string
	StatusType   string
	AuthorGID    string
	AuthorName   string
	CreatedAt    time.Time
}

// EnumOption is the compact {gid, name, color} shape Asana embeds for a
// custom field's selected (or selectable) enum value.
type EnumOption struct {
	GID   string
	Name  string
	Color string
}

// CustomFieldValue is the tagged-variant decode target for one of Asana's
// five custom field shapes (enum, multi_enum, number, date, people/text).
// Exactly one of EnumValueGID, MultiEnumValues, Number, Date, or Text is
// populated, selected by Type — callers must switch on Type rather than
// infer the shape from which fields are non-zero, since a cleared field and
// an absent field are indistinguishable otherwise. CustomFieldName and the
// enum option name/color fields are Asana's compact embed for the field's
// own definition and selected choice(s), letting the sync engine upsert
// dim_custom_fields/dim_enum_options straight from a task payload.
type CustomFieldValue struct {
	CustomFieldGID  string
	CustomFieldName string
	Type            CustomFieldType
	EnumValueGID    string
	EnumValueName   string
	EnumValueColor  string
	MultiEnumValues []EnumOption
	Number          *float64
	Date            *time.Time
	Text            string
	DisplayValue    string
}

// CustomFieldType enumerates the custom field value shapes asanadw
// understands; an unrecognized shape is rejected at the API boundary
// rather than silently stored as text (spec.md §5 "reject unknown shapes").
type CustomFieldType string

const (
	CustomFieldEnum      CustomFieldType = "enum"
	CustomFieldMultiEnum CustomFieldType = "multi_enum"
	CustomFieldNumber    CustomFieldType = "number"
	CustomFieldDate      CustomFieldType = "date"
	CustomFieldText      CustomFieldType = "text"
)

var knownCustomFieldTypes = map[CustomFieldType]bool{
	CustomFieldEnum: true, CustomFieldMultiEnum: true, CustomFieldNumber: true,
	CustomFieldDate: true, CustomFieldText: true,
}

// ErrUnknownCustomFieldType is returned by ValidateCustomFieldType when the
// API reports a field shape this version of asanadw does not model.
type ErrUnknownCustomFieldType struct{ Type string }

func (e *ErrUnknownCustomFieldType) Error() string {
	return "unrecognized custom field type: " + e.Type
}

// ValidateCustomFieldType rejects custom field shapes outside the five this
// package models, rather than silently coercing them to text.
func ValidateCustomFieldType(t CustomFieldType) error {
	if !knownCustomFieldTypes[t] {
		return &ErrUnknownCustomFieldType{Type: string(t)}
	}
	return nil
}
