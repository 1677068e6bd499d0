package query

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"strconv"

	"github.com/adlio/asanadw/internal/errs"
	"github.com/adlio/asanadw/internal/storage"
)

// taskRecord is the flattened, serialization-friendly shape ToCSV/ToJSON
// emit — plain strings rather than storage.Task's nullable pointer fields,
// since a CSV/JSON consumer has no use for Go's sql.Null* conventions.
type taskRecord struct {
	GID            string `json:"gid"`
	Name           string `json:"name"`
	AssigneeGID    string `json:"assignee_gid"`
	IsCompleted    bool   `json:"is_completed"`
	IsOverdue      bool   `json:"is_overdue"`
	CreatedAt      string `json:"created_at"`
	DaysToComplete string `json:"days_to_complete"`
}

func toRecords(tasks []storage.Task) []taskRecord {
	out := make([]taskRecord, 0, len(tasks))
	for _, t := range tasks {
		rec := taskRecord{
			GID: t.GID, Name: t.Name, AssigneeGID: t.AssigneeGID,
			IsCompleted: t.IsCompleted, IsOverdue: t.IsOverdue,
			CreatedAt: t.CreatedAt.Format("2006-01-02"),
		}
		if t.DaysToComplete != nil {
			rec.DaysToComplete = strconv.Itoa(*t.DaysToComplete)
		}
		out = append(out, rec)
	}
	return out
}

// ToCSV runs the composed query and renders matching tasks as CSV with a
// header row.
func (b *Builder) ToCSV(ctx context.Context) (string, error) {
	tasks, err := b.Tasks(ctx)
	if err != nil {
		return "", err
	}
	records := toRecords(tasks)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"gid", "name", "assignee_gid", "is_completed", "is_overdue", "created_at", "days_to_complete"})
	for _, r := range records {
		_ = w.Write([]string{
			r.GID, r.Name, r.AssigneeGID, strconv.FormatBool(r.IsCompleted), strconv.FormatBool(r.IsOverdue),
			r.CreatedAt, r.DaysToComplete,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", errs.Wrap(errs.KindDatabase, "write csv", err)
	}
	return buf.String(), nil
}

// ToJSON runs the composed query and renders matching tasks as a JSON array.
func (b *Builder) ToJSON(ctx context.Context) (string, error) {
	tasks, err := b.Tasks(ctx)
	if err != nil {
		return "", err
	}
	out, err := json.Marshal(toRecords(tasks))
	if err != nil {
		return "", errs.Wrap(errs.KindDatabase, "marshal json", err)
	}
	return string(out), nil
}
