package showrunner

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"github.com/yosssi/gohtml"

	"showrunner/domain"
)

const reportTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>showrunner runs</title>
<style>
body { font-family: monospace; margin: 2em; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #999; padding: 4px 8px; text-align: left; }
th { background: #eee; }
.completed { color: #2e7d32; }
.failed { color: #c62828; }
.canceled { color: #ef6c00; }
.running, .pending { color: #1565c0; }
</style>
</head>
<body>
<h1>Runs</h1>
<table>
<tr><th>Name</th><th>Mode</th><th>Recipe</th><th>Status</th><th>Exit</th><th>Started</th><th>Finished</th><th>Seed</th></tr>
{{range .Runs}}
<tr>
<td>{{.Name}}</td>
<td>{{.Mode}}</td>
<td>{{.Recipe}}</td>
<td class="{{.Status}}">{{.Status}}</td>
<td>{{if .ExitCode}}{{.ExitCode}}{{else}}-{{end}}</td>
<td>{{.StartedAt.Format "2006-01-02 15:04:05"}}</td>
<td>{{if .FinishedAt}}{{.FinishedAt.Format "2006-01-02 15:04:05"}}{{else}}-{{end}}</td>
<td>{{.Seed}}</td>
</tr>
{{end}}
</table>
</body>
</html>`

type reportData struct {
	Runs []*domain.Run
}

// WriteReport renders an HTML overview of every stored run, pretty-printed.
func (launcher *Launcher) WriteReport(writer io.Writer) error {
	if launcher.Repo == nil {
		return fmt.Errorf("launcher has no repository")
	}
	runs, err := launcher.Repo.GetRuns()
	if err != nil {
		return fmt.Errorf("getting runs : %w", err)
	}
	parsed, err := template.New("report").Parse(reportTemplate)
	if err != nil {
		return fmt.Errorf("parsing report template : %w", err)
	}
	var buffer bytes.Buffer
	if err := parsed.Execute(&buffer, reportData{Runs: runs}); err != nil {
		return fmt.Errorf("executing report template : %w", err)
	}
	if _, err := writer.Write(gohtml.FormatBytes(buffer.Bytes())); err != nil {
		return fmt.Errorf("writing report : %w", err)
	}
	return nil
}
