package summary

import (
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/BurntSushi/toml"

	"github.com/adlio/asanadw/internal/errs"
)

// promptFile is the on-disk shape of a prompts/*.toml bundle: one template
// string per summary kind (task/project/portfolio/team/user), grounded on
// the teacher's internal/formula/parser.go use of BurntSushi/toml for a
// declarative file format.
type promptFile struct {
	Task      string `toml:"task"`
	Project   string `toml:"project"`
	Portfolio string `toml:"portfolio"`
	Team      string `toml:"team"`
	User      string `toml:"user"`
}

// PromptBundle holds parsed text/template instances for each summary kind,
// keyed by the kind string Target.promptKind returns.
type PromptBundle struct {
	templates map[string]*template.Template
}

// LoadPromptBundle reads and parses a prompts/*.toml file.
func LoadPromptBundle(path string) (*PromptBundle, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.KindConfig, "read prompt bundle "+path, err)
	}
	var pf promptFile
	if _, err := toml.Decode(string(raw), &pf); err != nil {
		return nil, errs.Wrap(errs.KindConfig, "parse prompt bundle "+path, err)
	}
	return newPromptBundle(pf)
}

// DefaultPromptBundle returns the built-in bundle. cmd/asanadw always uses
// it; no caller chooses a bundle from the bootstrap file.
func DefaultPromptBundle() (*PromptBundle, error) {
	return newPromptBundle(defaultPromptFile)
}

func newPromptBundle(pf promptFile) (*PromptBundle, error) {
	kinds := map[string]string{
		"task":      pf.Task,
		"project":   pf.Project,
		"portfolio": pf.Portfolio,
		"team":      pf.Team,
		"user":      pf.User,
	}
	bundle := &PromptBundle{templates: make(map[string]*template.Template, len(kinds))}
	for kind, body := range kinds {
		if body == "" {
			continue
		}
		tmpl, err := template.New(kind).Parse(body)
		if err != nil {
			return nil, errs.Wrap(errs.KindConfig, fmt.Sprintf("parse %s prompt template", kind), err)
		}
		bundle.templates[kind] = tmpl
	}
	return bundle, nil
}

// Render executes the template for kind against ev, producing the final
// prompt text sent to the LLM collaborator.
func (b *PromptBundle) Render(kind string, ev evidence) (string, error) {
	tmpl, ok := b.templates[kind]
	if !ok {
		return "", errs.New(errs.KindConfig, "no prompt template for kind "+kind)
	}
	var buf strings.Builder
	if err := tmpl.Execute(&buf, ev); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var defaultPromptFile = promptFile{
	Task: `You are summarizing an Asana task for long-term storage. Compress the
content: the output must be noticeably shorter than the input while
preserving the key decisions and outcome.

Task: {{.Title}}
Notes: {{.Body}}
{{if .Threads}}
Comments:
{{range .Threads}}- {{.}}
{{end}}{{end}}
Reply with JSON: {"summary": "..."}`,

	Project: `You are summarizing a project's activity for one reporting period.

{{.Title}}

{{.Body}}

Reply with JSON: {"summary": "..."}`,

	Portfolio: `You are summarizing a portfolio's activity, rolled up across its nested
projects, for one reporting period.

{{.Title}}

{{.Body}}

Reply with JSON: {"summary": "..."}`,

	Team: `You are summarizing a team's activity across its owned projects for one
reporting period.

{{.Title}}

{{.Body}}

Reply with JSON: {"summary": "..."}`,

	User: `You are summarizing one person's work for one reporting period.

{{.Title}}

{{.Body}}

Reply with JSON: {"summary": "..."}`,
}
