// Package basemap decorates a fresh map: the base-layer switcher, the
// coordinate readout and the default cursor class.
//
// Two satellite/hybrid layers depend on a third-party mapping API. They are
// only offered when that API is already loaded in the page or an access key
// is configured, in which case the loader script is injected at most once
// per process.
package basemap

import (
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/joeblew999/qgeomap/internal/surface"
)

// Base layer names as shown in the switcher.
const (
	NameOceans          = "ESRI Oceans/Labels"
	NameOpenStreetMap   = "OpenStreetMap"
	NameGoogleHybrid    = "Google hybrid"
	NameGoogleSatellite = "Google satellite"
)

const (
	OpenStreetMapURL = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	GoogleScriptURL  = "https://maps.googleapis.com/maps/api/js"
	CursorClass      = "my-default-cursor"

	SwitcherID      = "base-layers"
	MousePositionID = "mouse-position"
)

// Latch records that the mapping API loader has run. Once set it is never
// reset, and the script is injected at most once over the latch's lifetime.
type Latch struct {
	once   sync.Once
	loaded atomic.Bool
}

// GoogleAPI is the process-wide latch for the third-party mapping API.
var GoogleAPI = &Latch{}

// Loaded reports whether the API is available in the page.
func (l *Latch) Loaded() bool {
	return l.loaded.Load()
}

// MarkLoaded records that the page already has the API, without injecting.
func (l *Latch) MarkLoaded() {
	l.once.Do(func() {})
	l.loaded.Store(true)
}

// Inject loads the API with key unless it already ran; it reports whether
// this call injected the script.
func (l *Latch) Inject(inj surface.ScriptInjector, key string) bool {
	injected := false
	l.once.Do(func() {
		inj.InjectScript(GoogleScriptURL + "?" + url.Values{"key": {key}}.Encode())
		l.loaded.Store(true)
		injected = true
	})
	return injected
}

// Options configure Install.
type Options struct {
	// InitialBaseLayer selects the active base layer by name. Unknown
	// names fall back to the default.
	InitialBaseLayer string
	// MappingAPIKey enables the gated layers and triggers the loader.
	MappingAPIKey string
}

// MousePosition configures the coordinate readout.
type MousePosition struct {
	Separator   string `json:"separator"`
	EmptyString string `json:"emptyString"`
	Digits      int    `json:"digits"`
	LatPrefix   string `json:"latPrefix,omitempty"`
}

// DefaultMousePosition matches the readout shown on every map.
var DefaultMousePosition = MousePosition{Separator: ", ", EmptyString: "&nbsp;", Digits: 5}

// Format renders a coordinate pair the way the readout shows it.
func (m MousePosition) Format(lat, lng float64) string {
	return fmt.Sprintf("%s%.*f%s%.*f", m.LatPrefix, m.Digits, lat, m.Separator, m.Digits, lng)
}

// Setup describes what Install mounted.
type Setup struct {
	BaseLayers      []surface.Layer `json:"baseLayers"`
	Active          string          `json:"active"`
	GoogleAvailable bool            `json:"googleAvailable"`
	MousePosition   MousePosition   `json:"mousePosition"`
}

// Layer returns the registered base layer with name.
func (s Setup) Layer(name string) (surface.Layer, bool) {
	for _, l := range s.BaseLayers {
		if l.Name == name {
			return l, true
		}
	}
	return surface.Layer{}, false
}

// BaseLayers returns the layers offered for the given availability.
func BaseLayers(googleAvailable bool) []surface.Layer {
	layers := []surface.Layer{
		{
			ID:      "basemap:oceans",
			Type:    surface.LayerProvider,
			Name:    NameOceans,
			Options: map[string]any{"providers": []string{"Oceans", "OceansLabels"}},
		},
		{
			ID:   "basemap:osm",
			Type: surface.LayerTile,
			Name: NameOpenStreetMap,
			URL:  OpenStreetMapURL,
		},
	}
	if googleAvailable {
		layers = append(layers,
			surface.Layer{ID: "basemap:google-hybrid", Type: surface.LayerGoogle, Name: NameGoogleHybrid,
				Options: map[string]any{"type": "hybrid"}},
			surface.Layer{ID: "basemap:google-satellite", Type: surface.LayerGoogle, Name: NameGoogleSatellite,
				Options: map[string]any{"type": "satellite"}},
		)
	}
	return layers
}

// DefaultBaseLayer is the initial layer when none is requested.
func DefaultBaseLayer(googleAvailable bool) string {
	if googleAvailable {
		return NameGoogleSatellite
	}
	return NameOceans
}

// Install decorates surf once. latch gates the third-party layers; pass
// GoogleAPI outside tests.
func Install(surf surface.Surface, inj surface.ScriptInjector, opts Options, latch *Latch) Setup {
	surf.AddClass(CursorClass)
	surf.AddControl(surface.Control{
		ID:       MousePositionID,
		Kind:     "mousePosition",
		Position: "topright",
		Options:  DefaultMousePosition,
	})

	if opts.MappingAPIKey != "" && !latch.Loaded() && inj != nil {
		latch.Inject(inj, opts.MappingAPIKey)
	}
	google := latch.Loaded() || opts.MappingAPIKey != ""

	setup := Setup{
		BaseLayers:      BaseLayers(google),
		Active:          DefaultBaseLayer(google),
		GoogleAvailable: google,
		MousePosition:   DefaultMousePosition,
	}
	if _, ok := setup.Layer(opts.InitialBaseLayer); ok {
		setup.Active = opts.InitialBaseLayer
	}

	names := make([]string, len(setup.BaseLayers))
	for i, l := range setup.BaseLayers {
		names[i] = l.Name
	}
	surf.AddControl(surface.Control{
		ID:      SwitcherID,
		Kind:    "layers",
		Options: map[string]any{"baseLayers": names, "active": setup.Active},
	})

	active, _ := setup.Layer(setup.Active)
	surf.AddLayer(active)
	return setup
}
