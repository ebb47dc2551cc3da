package report

import (
	"html/template"
	"io"
)

var summaryTemplate = template.Must(template.New("summary").Parse(
	`{{if not .}}<p>No entries yet.</p>{{else}}{{range .}}<div class="team-summary"><strong>{{.Team}}</strong> Team total: <strong class="team-total">{{.TotalPages}}</strong> pages</div>
{{end}}{{end}}`))

// WriteHTML はチーム集計をHTML断片として書き込む。
// チーム名はhtml/templateによりエスケープされる。
func WriteHTML(w io.Writer, totals []TeamTotal) error {
	return summaryTemplate.Execute(w, totals)
}
