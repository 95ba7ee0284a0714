package surface

import (
	"slices"
	"sync"

	"github.com/paulmach/orb"
)

// Op names a surface mutation.
type Op string

const (
	OpAddLayer      Op = "addLayer"
	OpRemoveLayer   Op = "removeLayer"
	OpAddControl    Op = "addControl"
	OpRemoveControl Op = "removeControl"
	OpFitBounds     Op = "fitBounds"
	OpAddClass      Op = "addClass"
	OpInjectScript  Op = "injectScript"
	// OpReset clears every layer and control; a snapshot follows it.
	OpReset Op = "reset"
)

// Command is one surface mutation, serialized to the browser as-is.
type Command struct {
	Op      Op          `json:"op"`
	ID      string      `json:"id,omitempty"`
	Layer   *Layer      `json:"layer,omitempty"`
	Control *Control    `json:"control,omitempty"`
	Bounds  *orb.Bound  `json:"bounds,omitempty"`
	Fit     *FitOptions `json:"fit,omitempty"`
	Class   string      `json:"class,omitempty"`
	Src     string      `json:"src,omitempty"`
}

// Remote is a Surface whose map is rendered elsewhere. It tracks what is
// mounted so a newly attached browser can be brought up to date.
type Remote struct {
	mu       sync.Mutex
	sink     func(Command)
	layers   []Layer
	controls []Control
	classes  []string
	scripts  []string
}

// NewRemote returns a Remote that forwards each command to sink.
// A nil sink only tracks state.
func NewRemote(sink func(Command)) *Remote {
	return &Remote{sink: sink}
}

func (r *Remote) emit(c Command) {
	if r.sink != nil {
		r.sink(c)
	}
}

func (r *Remote) AddLayer(l Layer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.layers = slices.DeleteFunc(r.layers, func(x Layer) bool { return x.ID == l.ID })
	r.layers = append(r.layers, l)
	r.emit(Command{Op: OpAddLayer, ID: l.ID, Layer: &l})
}

func (r *Remote) RemoveLayer(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.layers = slices.DeleteFunc(r.layers, func(x Layer) bool { return x.ID == id })
	r.emit(Command{Op: OpRemoveLayer, ID: id})
}

func (r *Remote) AddControl(c Control) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.controls = slices.DeleteFunc(r.controls, func(x Control) bool { return x.ID == c.ID })
	r.controls = append(r.controls, c)
	r.emit(Command{Op: OpAddControl, ID: c.ID, Control: &c})
}

func (r *Remote) RemoveControl(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.controls = slices.DeleteFunc(r.controls, func(x Control) bool { return x.ID == id })
	r.emit(Command{Op: OpRemoveControl, ID: id})
}

func (r *Remote) FitBounds(b orb.Bound, opts FitOptions) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emit(Command{Op: OpFitBounds, Bounds: &b, Fit: &opts})
}

func (r *Remote) AddClass(class string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !slices.Contains(r.classes, class) {
		r.classes = append(r.classes, class)
	}
	r.emit(Command{Op: OpAddClass, Class: class})
}

func (r *Remote) InjectScript(src string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scripts = append(r.scripts, src)
	r.emit(Command{Op: OpInjectScript, Src: src})
}

// Layers returns the mounted layers in mount order.
func (r *Remote) Layers() []Layer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.layers)
}

// Controls returns the mounted controls in mount order.
func (r *Remote) Controls() []Control {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.controls)
}

// Snapshot returns the commands that rebuild the current state on an
// empty map: classes, scripts, controls, then layers.
func (r *Remote) Snapshot() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()

	var cmds []Command
	for _, c := range r.classes {
		cmds = append(cmds, Command{Op: OpAddClass, Class: c})
	}
	for _, s := range r.scripts {
		cmds = append(cmds, Command{Op: OpInjectScript, Src: s})
	}
	for i := range r.controls {
		c := r.controls[i]
		cmds = append(cmds, Command{Op: OpAddControl, ID: c.ID, Control: &c})
	}
	for i := range r.layers {
		l := r.layers[i]
		cmds = append(cmds, Command{Op: OpAddLayer, ID: l.ID, Layer: &l})
	}
	return cmds
}
