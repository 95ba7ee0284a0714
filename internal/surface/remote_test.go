package surface

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/paulmach/orb"

	"github.com/joeblew999/qgeomap/internal/shape"
)

func TestRemoteTracksState(t *testing.T) {
	rec := NewRecorder()

	rec.AddClass("c")
	rec.AddClass("c")
	rec.AddControl(Control{ID: "ctl", Kind: "draw"})
	rec.AddLayer(Layer{ID: "a", Type: LayerTile})
	rec.AddLayer(Layer{ID: "b", Type: LayerTile})
	rec.AddLayer(Layer{ID: "a", Type: LayerTile, URL: "u2"})
	rec.RemoveLayer("b")
	rec.RemoveLayer("missing")
	rec.FitBounds(orb.Bound{Max: orb.Point{1, 1}}, FitOptions{MaxZoom: 11})

	if n := len(rec.Commands()); n != 9 {
		t.Fatalf("commands=%d, want 9", n)
	}
	layers := rec.Layers()
	if len(layers) != 1 || layers[0].URL != "u2" {
		t.Fatalf("layers=%+v", layers)
	}

	snap := rec.Snapshot()
	ops := make([]string, len(snap))
	for i, c := range snap {
		ops[i] = string(c.Op)
	}
	if got := strings.Join(ops, ","); got != "addClass,addControl,addLayer" {
		t.Fatalf("snapshot=%s", got)
	}

	rec.RemoveControl("ctl")
	if len(rec.Controls()) != 0 {
		t.Fatal("control not removed")
	}

	rec.Reset()
	if len(rec.Commands()) != 0 || len(rec.Layers()) != 1 {
		t.Fatal("reset must keep mounted state")
	}
}

func TestShapeLayer(t *testing.T) {
	l := ShapeLayer(shape.NewCircle("c", orb.Point{1, 2}, 40, nil))
	if l.ID != "c" || l.Type != LayerShape || l.Radius != 40 {
		t.Fatalf("layer=%+v", l)
	}

	data, err := json.Marshal(Command{Op: OpAddLayer, ID: l.ID, Layer: &l})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"op":"addLayer"`, `"kind":"Circle"`, `"coordinates":[1,2]`, `"radius":40`} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("missing %s in %s", want, data)
		}
	}
}

func TestNilSink(t *testing.T) {
	r := NewRemote(nil)
	r.InjectScript("s")
	if snap := r.Snapshot(); len(snap) != 1 || snap[0].Src != "s" {
		t.Fatalf("snapshot=%+v", snap)
	}
}
