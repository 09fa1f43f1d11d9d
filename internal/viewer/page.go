package viewer

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/url"
)

//go:embed static
var staticFiles embed.FS

// StaticFS holds the viewer's stylesheet and script, rooted at "static".
func StaticFS() fs.FS {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{.Title}} — Slide {{.State.Slide}}</title>
    <link rel="stylesheet" href="/static/viewer.css">
</head>
<body>
    <main class="viewer">
        <section class="windows" id="windows">{{.Sections}}</section>
        <section class="slide-side">
            <div id="slidePreview">{{.Slide}}</div>
            <nav class="controls">
                {{if .PrevURL}}<a class="btn" id="prevBtn" href="{{.PrevURL}}">‹ Prev</a>{{else}}<span class="btn disabled" id="prevBtn">‹ Prev</span>{{end}}
                {{if .NextURL}}<a class="btn" id="nextBtn" href="{{.NextURL}}">Next ›</a>{{else}}<span class="btn disabled" id="nextBtn">Next ›</span>{{end}}
                <button type="button" class="btn" id="emailBtn" data-endpoint="{{.EmailEndpoint}}" data-subject="{{.Subject}}">Email</button>
                <a class="btn" href="{{.DownloadURL}}">Download script</a>
            </nav>
        </section>
    </main>
    <script src="/static/viewer.js" nonce="{{.Nonce}}"></script>
</body>
</html>`))

// PageData is the input of RenderPage.
type PageData struct {
	Title     string
	SessionID string
	State     *State
	Nonce     string
	Subject   string
}

type pageView struct {
	PageData
	Slide         template.HTML
	Sections      template.HTML
	PrevURL       string
	NextURL       string
	EmailEndpoint string
	DownloadURL   string
}

// EmailEndpoint is where the viewer script posts email requests.
const EmailEndpoint = "/api/email"

// RenderPage writes the whole viewer page for the state's current slide.
// Prev/next links only appear when the neighbouring slide exists.
func RenderPage(w io.Writer, data PageData) error {
	s := data.State
	view := pageView{
		PageData:      data,
		Slide:         RenderSlidePane(s),
		Sections:      RenderSectionPane(s),
		EmailEndpoint: EmailEndpoint,
		DownloadURL:   "/download/" + url.PathEscape(data.SessionID),
	}
	if s.HasPrev() {
		view.PrevURL = SlideURL(data.SessionID, s.Slide()-1)
	}
	if s.HasNext() {
		view.NextURL = SlideURL(data.SessionID, s.Slide()+1)
	}
	if view.Title == "" {
		view.Title = "Session Viewer"
	}
	return pageTemplate.Execute(w, view)
}

// SlideURL is the viewer URL of a 1-based slide.
func SlideURL(sessionID string, slide int) string {
	return fmt.Sprintf("/session/%s?slide=%d", url.PathEscape(sessionID), slide)
}
