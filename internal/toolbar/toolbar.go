// Package toolbar builds the drawing toolkit's control configuration from
// an entry's color and the session's edit-mode decision.
//
// The output mirrors the Leaflet.draw control options and is passed to the
// browser untouched.
package toolbar

import (
	"encoding/json"

	"github.com/joeblew999/qgeomap/internal/editmode"
	"github.com/joeblew999/qgeomap/internal/entry"
)

// Default colors per tool when the entry has none.
const (
	DefaultCircleColor    = "#f357a1"
	DefaultPolylineColor  = "#f357a1"
	DefaultRectangleColor = "#ff0000"
	DefaultPolygonColor   = "#bada55"

	DrawErrorColor  = "#e1e100"
	EditShapeColor  = "#ff0000"
	DefaultPosition = "topleft"
	strokeWeight    = 4
)

// Tool names in the draw toolbar.
const (
	ToolCircle       = "circle"
	ToolCircleMarker = "circlemarker"
	ToolMarker       = "marker"
	ToolRectangle    = "rectangle"
	ToolPolyline     = "polyline"
	ToolPolygon      = "polygon"
)

var toolOrder = []string{ToolCircle, ToolCircleMarker, ToolMarker, ToolRectangle, ToolPolyline, ToolPolygon}

// toolsFor maps a shape kind to the draw tools that produce it.
var toolsFor = map[entry.Kind][]string{
	entry.KindPoint:      {ToolMarker, ToolCircleMarker},
	entry.KindCircle:     {ToolCircle},
	entry.KindLineString: {ToolPolyline},
	entry.KindPolygon:    {ToolPolygon},
	entry.KindRectangle:  {ToolRectangle},
}

// PathOptions style a drawn path.
type PathOptions struct {
	Color         string  `json:"color,omitempty"`
	Weight        int     `json:"weight,omitempty"`
	FillOpacity   float64 `json:"fillOpacity,omitempty"`
	MaintainColor bool    `json:"maintainColor,omitempty"`
}

// Tool configures one draw tool.
type Tool struct {
	ShapeOptions      *PathOptions `json:"shapeOptions,omitempty"`
	ShowArea          bool         `json:"showArea,omitempty"`
	RepeatMode        bool         `json:"repeatMode,omitempty"`
	AllowIntersection *bool        `json:"allowIntersection,omitempty"`
	DrawError         *PathOptions `json:"drawError,omitempty"`
}

// DrawTools holds the enabled tools by name. Missing tools serialize as
// false, which the toolkit reads as disabled.
type DrawTools map[string]*Tool

func (d DrawTools) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(toolOrder))
	for _, name := range toolOrder {
		if t, ok := d[name]; ok && t != nil {
			out[name] = t
		} else {
			out[name] = false
		}
	}
	return json.Marshal(out)
}

// Enabled reports whether the named tool is on.
func (d DrawTools) Enabled(name string) bool {
	return d[name] != nil
}

// EditHandler configures the edit-existing-shapes handler.
type EditHandler struct {
	SelectedPathOptions PathOptions `json:"selectedPathOptions"`
	MoveMarkers         bool        `json:"moveMarkers"`
	ShapeOptions        PathOptions `json:"shapeOptions"`
}

// PolyOptions constrain polygon editing.
type PolyOptions struct {
	AllowIntersection bool `json:"allowIntersection"`
	ShowArea          bool `json:"showArea"`
}

// Edit is the edit toolbar bound to the staging group.
type Edit struct {
	FeatureGroup string      `json:"featureGroup"`
	Edit         EditHandler `json:"edit"`
	Poly         PolyOptions `json:"poly"`
	Remove       bool        `json:"remove"`
}

// Labels override toolkit UI strings.
type Labels struct {
	SaveText  string `json:"saveText"`
	SaveTitle string `json:"saveTitle"`
}

// DefaultLabels replace the toolkit's "Save" wording.
var DefaultLabels = Labels{SaveText: "Apply", SaveTitle: "Apply the changes"}

// Config is the complete toolkit control configuration.
type Config struct {
	Position string            `json:"position"`
	Edit     *Edit             `json:"edit,omitempty"`
	Draw     DrawTools         `json:"draw"`
	Labels   Labels            `json:"labels"`
	Decision editmode.Decision `json:"decision"`
}

// Options tune Build.
type Options struct {
	// StagingGroup is the surface id of the staging group the edit
	// toolbar is bound to.
	StagingGroup string
	// StrictTools gates draw tools by decision: none while editing, only
	// the matching tool while drawing. Off, every draw tool is enabled.
	StrictTools bool
}

// Build returns the toolkit configuration for d styled with color.
func Build(d editmode.Decision, color string, opts Options) Config {
	cfg := Config{
		Position: DefaultPosition,
		Edit:     editConfig(opts.StagingGroup),
		Draw:     DrawTools{},
		Labels:   DefaultLabels,
		Decision: d,
	}

	all := allTools(color)
	switch {
	case !opts.StrictTools:
		cfg.Draw = all
	case d.Mode == editmode.ModeEdit:
		// editing only
	case d.Kind == entry.KindAny:
		cfg.Draw = all
	default:
		for _, name := range toolsFor[d.Kind] {
			cfg.Draw[name] = all[name]
		}
	}
	return cfg
}

func editConfig(group string) *Edit {
	return &Edit{
		FeatureGroup: group,
		Edit: EditHandler{
			SelectedPathOptions: PathOptions{MaintainColor: true, FillOpacity: 0.3},
			MoveMarkers:         true,
			ShapeOptions:        PathOptions{Color: EditShapeColor},
		},
		Poly:   PolyOptions{AllowIntersection: false, ShowArea: true},
		Remove: true,
	}
}

func allTools(color string) DrawTools {
	noIntersect := false
	return DrawTools{
		ToolCircle: {
			ShapeOptions: &PathOptions{Color: or(color, DefaultCircleColor), Weight: strokeWeight},
			ShowArea:     true,
		},
		ToolCircleMarker: {
			ShapeOptions: &PathOptions{Weight: strokeWeight},
			RepeatMode:   true,
		},
		ToolMarker: {
			RepeatMode: true,
		},
		ToolRectangle: {
			ShapeOptions: &PathOptions{Color: or(color, DefaultRectangleColor), Weight: strokeWeight},
			ShowArea:     true,
		},
		ToolPolyline: {
			ShapeOptions: &PathOptions{Color: or(color, DefaultPolylineColor), Weight: strokeWeight},
		},
		ToolPolygon: {
			AllowIntersection: &noIntersect,
			DrawError:         &PathOptions{Color: DrawErrorColor},
			ShapeOptions:      &PathOptions{Color: or(color, DefaultPolygonColor)},
			ShowArea:          true,
		},
	}
}

func or(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
