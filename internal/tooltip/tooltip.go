// Package tooltip renders the mouse-following tooltip shown over diagram
// elements and relationships: where it goes, what it says, and how it is
// coloured.
package tooltip

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strings"
)

type Point struct {
	X, Y float64
}

type Extent struct {
	Width, Height float64
}

// Reposition places the tooltip at the pointer, flipping it to the other
// side of the pointer on any axis where it would run out of the viewport.
func Reposition(pointer Point, tip Extent, viewport Extent) Point {
	x, y := pointer.X, pointer.Y
	if x+tip.Width >= viewport.Width {
		x -= tip.Width
	}
	if y+tip.Height >= viewport.Height {
		y -= tip.Height
	}
	return Point{X: max(0, x), Y: max(0, y)}
}

type Perspective struct {
	Name        string
	Description string
	URL         string
	Value       string
}

// ElementTooltip is everything shown for a model element.
type ElementTooltip struct {
	Name        string
	Metadata    string
	Parent      string
	Description string
	Tags        []string
	Properties  map[string]string
	URL         string
	// Perspective replaces tags, properties and URL when set.
	Perspective *Perspective
	HideHeader  bool
}

type RelationshipTooltip struct {
	Order           string
	SourceName      string
	Description     string
	DestinationName string
	Metadata        string
	Tags            []string
	Properties      map[string]string
	URL             string
	Perspective     *Perspective
	HideHeader      bool
}

type property struct {
	Key   string
	Value string
	Link  bool
}

type view struct {
	Header      bool
	Title       string
	Metadata    string
	Parent      string
	Description template.HTML
	Tags        []string
	Properties  []property
	URL         string
	Perspective *perspectiveView
}

type perspectiveView struct {
	Name        string
	Description template.HTML
	URL         string
	Value       string
}

var bodyTemplate = template.Must(template.New("tooltip").Parse(`
{{- if .Header}}<div class="tooltipHeader"><div class="tooltipName">{{.Title}}</div><div class="tooltipMetadata">{{.Metadata}}</div>
{{- if .Parent}}<div class="tooltipParent">{{.Parent}}</div>{{end}}
{{- if .Description}}<hr /><div class="tooltipDescription">{{.Description}}</div>{{end}}</div>{{end}}
{{- if .Tags}}<div class="smaller">{{range .Tags}}<span class="tag">{{.}}</span>{{end}}</div>{{end}}
{{- if .Properties}}<div class="smaller"><div>Properties:</div><ul>{{range .Properties}}<li>{{.Key}} = {{if .Link}}<a href="{{.Value}}" target="_blank">{{.Value}}</a>{{else}}{{.Value}}{{end}}</li>{{end}}</ul></div>{{end}}
{{- if .URL}}<div class="smaller"><div>URL: <a href="{{.URL}}" target="_blank">{{.URL}}</a></div></div>{{end}}
{{- with .Perspective}}<div style="font-weight: bold; margin-bottom: 10px;">Perspective: {{.Name}}</div>
{{- if .Description}}<div style="margin-bottom: 10px;">{{.Description}}</div>{{end}}
{{- if .URL}}<div>URL: <a href="{{.URL}}" target="_blank">{{.URL}}</a></div>{{end}}
{{- if .Value}}<div>Value: {{.Value}}</div>{{end}}{{end}}`))

func RenderElement(e ElementTooltip) (string, error) {
	v := view{
		Header:      !e.HideHeader,
		Title:       e.Name,
		Metadata:    e.Metadata,
		Parent:      e.Parent,
		Description: multiline(e.Description),
	}
	fillDetails(&v, e.Tags, e.Properties, e.URL, e.Perspective)
	return render(v)
}

func RenderRelationship(r RelationshipTooltip) (string, error) {
	title := r.Description
	if r.Order != "" {
		title = r.Order + ": " + title
	}
	summary := template.HTML(`<p style="font-weight: bold">` +
		template.HTMLEscapeString(r.SourceName) +
		` <span style="color: gray;">--</span> ` +
		template.HTMLEscapeString(r.Description) +
		` <span style="color: gray;">-&gt;</span> ` +
		template.HTMLEscapeString(r.DestinationName) +
		`</p>`)
	v := view{
		Header:      !r.HideHeader,
		Title:       title,
		Metadata:    r.Metadata,
		Description: summary,
	}
	fillDetails(&v, r.Tags, r.Properties, r.URL, r.Perspective)
	return render(v)
}

func fillDetails(v *view, tags []string, props map[string]string, url string, p *Perspective) {
	if p != nil {
		v.Perspective = &perspectiveView{
			Name:        p.Name,
			Description: multiline(p.Description),
			URL:         p.URL,
			Value:       p.Value,
		}
		return
	}
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			v.Tags = append(v.Tags, t)
		}
	}
	v.Properties = visibleProperties(props)
	v.URL = strings.TrimSpace(url)
}

// visibleProperties hides the renderer's own "structurizr." settings and
// sorts the rest by key.
func visibleProperties(props map[string]string) []property {
	keys := make([]string, 0, len(props))
	for k := range props {
		if strings.HasPrefix(k, "structurizr.") {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]property, 0, len(keys))
	for _, k := range keys {
		out = append(out, property{Key: k, Value: props[k], Link: isURL(props[k])})
	}
	return out
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://")
}

func multiline(s string) template.HTML {
	return template.HTML(strings.ReplaceAll(template.HTMLEscapeString(s), "\n", "<br />"))
}

func render(v view) (string, error) {
	var buf bytes.Buffer
	if err := bodyTemplate.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("render tooltip: %w", err)
	}
	return buf.String(), nil
}
