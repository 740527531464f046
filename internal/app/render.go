package app

import (
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

// Rendering is pure: payload in, bodies out. A template fault here is a
// programming error, so execution errors panic via Must-parsed
// templates and a shared execute helper.

const plainTemplateText = `Scholar Alerts: Personal Notification Service Results
{{range .Entries}}
{{.Name}}
{{.QueryURL}}
{{- if .Results}}
{{- range .Results}}
  {{.Bibcode}}: {{.DisplayTitle}}{{if .DisplayAuthors}} ({{.DisplayAuthors}}{{if .Year}}, {{.Year}}{{end}}){{end}}
{{- end}}
{{- else}}
  No new results.
{{- end}}
{{end}}`

const htmlTemplateText = `<html>
<body>
<h2>Scholar Alerts: Personal Notification Service Results</h2>
{{range .Entries}}
<h3><a href="{{.QueryURL}}">{{.Name}}</a></h3>
{{- if .Results}}
<ul>
{{- range .Results}}
<li><strong>{{.Bibcode}}</strong>: {{.DisplayTitle}}{{if .DisplayAuthors}} &mdash; {{.DisplayAuthors}}{{if .Year}}, {{.Year}}{{end}}{{end}}</li>
{{- end}}
</ul>
{{- else}}
<p>No new results.</p>
{{- end}}
{{end}}
<p>This notification was sent to {{.Recipient}}.</p>
</body>
</html>
`

var (
	plainTemplate = texttemplate.Must(texttemplate.New("plain").Parse(plainTemplateText))
	htmlTemplate  = htmltemplate.Must(htmltemplate.New("html").Parse(htmlTemplateText))
)

type renderData struct {
	Entries   []PayloadEntry
	Recipient string
}

func renderPlain(payload []PayloadEntry) string {
	var b strings.Builder
	if err := plainTemplate.Execute(&b, renderData{Entries: payload}); err != nil {
		panic(err)
	}
	return b.String()
}

func renderHTML(payload []PayloadEntry, recipient string) string {
	var b strings.Builder
	if err := htmlTemplate.Execute(&b, renderData{Entries: payload, Recipient: recipient}); err != nil {
		panic(err)
	}
	return b.String()
}
