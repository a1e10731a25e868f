package report

import (
	"bytes"
	"embed"
	"html/template"

	"powerctl/internal/fleet"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// OwnerNotification is the context for the per-owner stop warning.
type OwnerNotification struct {
	Owner     string
	Instances []fleet.Instance
	DryRun    bool
}

// RunReport is the context for the admin run summary.
type RunReport struct {
	RunTime string // "Wednesday (3) 14:01" in the default zone

	ToStop      []fleet.Instance
	Allowed     []fleet.Instance
	Malformed   []fleet.Instance
	InvalidZone []fleet.Instance
	NoOwner     []fleet.Instance
	NotRunning  []fleet.Instance
	Protected   []fleet.Instance

	NotifiedOwners []string
	ProblemOwners  []string

	DryRun bool
}

func RenderOwnerNotification(data OwnerNotification) (string, error) {
	return render("owner_notification.html.tmpl", data)
}

func RenderRunReport(data RunReport) (string, error) {
	return render("run_report.html.tmpl", data)
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
