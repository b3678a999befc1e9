package export

import (
	"bytes"
	"fmt"
	"html/template"
	"math"

	"github.com/miradorstack/mirador-aiops/internal/models"
)

const (
	svgWidth  = 1000
	svgHeight = 800
	nodeR     = 28
)

// SeverityColor maps a node's worst alert to the color used in the graph image.
func SeverityColor(alerts []models.Alert) string {
	max, ok := models.MaxSeverity(alerts)
	if !ok {
		return "lightgray"
	}
	return severityColor(max)
}

const anomalyColor = "#FF4B4B"

func severityColor(sev models.Severity) string {
	switch sev {
	case models.SeverityCritical:
		return "red"
	case models.SeverityError:
		return "orange"
	case models.SeverityWarning:
		return "yellow"
	default:
		return "green"
	}
}

type svgNode struct {
	ID    string
	X, Y  float64
	Color string
}

type svgEdge struct {
	X1, Y1, X2, Y2 float64
}

type svgDoc struct {
	Width, Height int
	TitleX        int
	Radius        int
	Title         string
	Nodes         []svgNode
	Edges         []svgEdge
}

var svgTemplate = template.Must(template.New("graph").Parse(`<svg xmlns="http://www.w3.org/2000/svg" width="{{.Width}}" height="{{.Height}}" viewBox="0 0 {{.Width}} {{.Height}}">
<defs><marker id="arrow" viewBox="0 0 10 10" refX="10" refY="5" markerWidth="8" markerHeight="8" orient="auto-start-reverse"><path d="M 0 0 L 10 5 L 0 10 z" fill="gray"/></marker></defs>
<rect width="100%" height="100%" fill="white"/>
<text x="{{.TitleX}}" y="30" text-anchor="middle" font-family="sans-serif" font-size="20">{{.Title}}</text>
{{range .Edges}}<line x1="{{printf "%.1f" .X1}}" y1="{{printf "%.1f" .Y1}}" x2="{{printf "%.1f" .X2}}" y2="{{printf "%.1f" .Y2}}" stroke="gray" stroke-width="1.5" marker-end="url(#arrow)"/>
{{end}}{{range .Nodes}}<g><circle cx="{{printf "%.1f" .X}}" cy="{{printf "%.1f" .Y}}" r="{{$.Radius}}" fill="{{.Color}}" stroke="black" stroke-width="0.5"/><text x="{{printf "%.1f" .X}}" y="{{printf "%.1f" .Y}}" text-anchor="middle" dominant-baseline="central" font-family="sans-serif" font-size="10">{{.ID}}</text></g>
{{end}}</svg>
`))

// GraphSVG renders nodes on a circle with arrows for dependencies. Nodes are
// colored by their worst attached alert.
func GraphSVG(order []string, edges []models.GraphEdge, alerts map[string][]models.Alert) ([]byte, error) {
	colors := make(map[string]string, len(order))
	for _, id := range order {
		colors[id] = SeverityColor(alerts[id])
	}
	return renderSVG(order, colors, edges)
}

// GraphDataSVG renders a previously captured graph snapshot. Anomalous nodes
// take the anomaly color regardless of their alerts.
func GraphDataSVG(data models.GraphData) ([]byte, error) {
	order := make([]string, 0, len(data.Nodes))
	colors := make(map[string]string, len(data.Nodes))
	for _, n := range data.Nodes {
		order = append(order, n.ID)
		if n.Anomalous {
			colors[n.ID] = anomalyColor
			continue
		}
		if n.AlertCount == 0 {
			colors[n.ID] = "lightgray"
			continue
		}
		colors[n.ID] = severityColor(n.Worst)
	}
	return renderSVG(order, colors, data.Edges)
}

func renderSVG(order []string, colors map[string]string, edges []models.GraphEdge) ([]byte, error) {
	doc := svgDoc{Width: svgWidth, Height: svgHeight, TitleX: svgWidth / 2, Radius: nodeR, Title: "Infrastructure Graph with Alerts"}

	cx, cy := float64(svgWidth)/2, float64(svgHeight)/2+20
	radius := math.Min(cx, cy) - 2*nodeR - 20
	pos := make(map[string][2]float64, len(order))
	for i, id := range order {
		angle := 2*math.Pi*float64(i)/float64(max(len(order), 1)) - math.Pi/2
		x, y := cx+radius*math.Cos(angle), cy+radius*math.Sin(angle)
		pos[id] = [2]float64{x, y}
		doc.Nodes = append(doc.Nodes, svgNode{ID: id, X: x, Y: y, Color: colors[id]})
	}
	for _, e := range edges {
		from, ok1 := pos[e.Source]
		to, ok2 := pos[e.Target]
		if !ok1 || !ok2 || e.Source == e.Target {
			continue
		}
		// stop the line at the circle border so the arrow head stays visible
		dx, dy := to[0]-from[0], to[1]-from[1]
		dist := math.Hypot(dx, dy)
		if dist == 0 {
			continue
		}
		ux, uy := dx/dist, dy/dist
		doc.Edges = append(doc.Edges, svgEdge{
			X1: from[0] + ux*nodeR, Y1: from[1] + uy*nodeR,
			X2: to[0] - ux*nodeR, Y2: to[1] - uy*nodeR,
		})
	}

	var buf bytes.Buffer
	if err := svgTemplate.Execute(&buf, doc); err != nil {
		return nil, fmt.Errorf("render graph svg: %w", err)
	}
	return buf.Bytes(), nil
}
