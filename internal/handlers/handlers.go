package handlers

import (
	"html/template"

	"github.com/felo/mhtml-inliner/internal/config"
	"github.com/felo/mhtml-inliner/internal/scanner"
)

// Handlers holds all HTTP handlers and their dependencies
type Handlers struct {
	cfg       *config.Config
	scanner   *scanner.Scanner
	templates *template.Template
}

// New creates a new Handlers instance
func New(cfg *config.Config) *Handlers {
	return &Handlers{
		cfg:       cfg,
		scanner:   scanner.NewScanner(cfg.SnapshotsPath),
		templates: template.Must(template.New("index").Parse(indexTemplate)),
	}
}

// indexTemplate renders the snapshot list. The converted documents
// themselves are served raw, so this is the only page of our own.
const indexTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Snapshots - MHTML Inliner</title>
<style>
body { font-family: sans-serif; margin: 2rem auto; max-width: 48rem; }
li { margin: 0.25rem 0; }
.count { color: #666; }
</style>
</head>
<body>
<h1>Snapshots</h1>
<p class="count">{{len .Snapshots}} snapshot(s) under {{.Root}}</p>
<ul>
{{range .Snapshots}}
<li><a href="/snapshot/{{.}}">{{.}}</a>
<small>(<a href="/snapshot/{{.}}?iframes=1">with iframes</a> &middot;
<a href="/snapshot/{{.}}?download=1">download</a>)</small></li>
{{end}}
</ul>
</body>
</html>
`
