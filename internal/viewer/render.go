package viewer

import (
	"bytes"
	"html/template"
	"log/slog"

	"github.com/slidecue/slidecue/internal/script"
)

var slidePaneTemplate = template.Must(template.New("slide").Parse(
	`<div class="slide-frame">{{if .HasImage}}<img src="{{.Image}}" alt="Slide {{.Slide}}">{{else}}<div class="placeholder muted">No slide image</div>{{end}}</div>
<div class="counter" id="slideCounter">{{.Counter}}</div>`))

var detailTemplate = template.Must(template.New("detail").Parse(
	`<div class="overlay"><div class="detail"><h4>{{.Summary}}</h4><p>{{.Purpose}}</p></div></div>`))

var sectionPaneTemplate = template.Must(template.New("sections").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(
	`{{if .Empty}}<div class="placeholder muted">{{.Placeholder}}</div>{{else}}{{range .Sections}}<div class="card" data-key="{{.Key}}">
  <header>{{.Label}}</header>
  <div class="pill-row">{{range $i, $item := .Items}}<button type="button" class="pill" data-i="{{$i}}">{{inc $i}}</button>{{end}}</div>
  <div class="overlay">
    <button type="button" class="close" aria-label="Close">×</button>
    <div class="detail"></div>
  </div>
  <template class="items">{{range $i, $item := .Items}}<div class="detail-item" data-i="{{$i}}"><h4>{{$item.Summary}}</h4><p>{{$item.Purpose}}</p></div>{{end}}</template>
</div>
{{end}}{{end}}`))

type slidePaneData struct {
	HasImage bool
	Image    string
	Slide    int
	Counter  string
}

type sectionPaneData struct {
	Empty       bool
	Placeholder string
	Sections    []script.Section
}

// RenderSlidePane renders the image side of the viewer for the current slide.
func RenderSlidePane(s *State) template.HTML {
	image, ok := s.CurrentImage()
	return execute(slidePaneTemplate, slidePaneData{
		HasImage: ok,
		Image:    image,
		Slide:    s.Slide(),
		Counter:  s.Counter(),
	})
}

// RenderSectionPane renders one card per section of the current segment.
// Every call produces a fresh fragment.
func RenderSectionPane(s *State) template.HTML {
	if len(s.Segments) == 0 {
		return execute(sectionPaneTemplate, sectionPaneData{Empty: true, Placeholder: NoScriptPlaceholder})
	}
	return execute(sectionPaneTemplate, sectionPaneData{Sections: s.Sections().Sections()})
}

// RenderDetail renders the opened overlay of a single item.
func RenderDetail(item script.Item) template.HTML {
	return execute(detailTemplate, item)
}

// RenderEmailBody returns what the viewer mails for the current slide: the
// open item's overlay when key/index select one, else the whole section pane.
func RenderEmailBody(s *State, key string, index int) template.HTML {
	if key != "" {
		items := s.Sections().Items(key)
		if index >= 0 && index < len(items) {
			return RenderDetail(items[index])
		}
	}
	return RenderSectionPane(s)
}

func execute(t *template.Template, data any) template.HTML {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		slog.Error("viewer: render failed", "template", t.Name(), "error", err)
		return ""
	}
	return template.HTML(buf.String())
}
