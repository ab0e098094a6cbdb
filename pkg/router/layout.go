package router

import (
	"html/template"
	"io"
)

// Page is the data handed to a Layout for the initial HTTP render.
type Page struct {
	Title string

	// Body is the component's first render.
	Body template.HTML

	// LivePath is where the client opens its WebSocket.
	LivePath string

	ScriptPath string
	StylePath  string

	// Nonce is the CSP nonce from SecureHeaders, if any.
	Nonce string
}

// Layout writes the HTML document around a component render.
type Layout func(w io.Writer, page Page) error

var defaultLayoutTemplate = template.Must(template.New("layout").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
{{- if .StylePath}}
<link rel="stylesheet" href="{{.StylePath}}">
{{- end}}
</head>
<body>
<main id="lv-root" data-live-view data-live-path="{{.LivePath}}">{{.Body}}</main>
{{- if .ScriptPath}}
<script src="{{.ScriptPath}}" defer{{if .Nonce}} nonce="{{.Nonce}}"{{end}}></script>
{{- end}}
</body>
</html>
`))

// DefaultLayout is a minimal HTML5 document that loads the client script.
func DefaultLayout(w io.Writer, page Page) error {
	return defaultLayoutTemplate.Execute(w, page)
}
