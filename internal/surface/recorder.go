package surface

import "sync"

// Recorder is a Remote that keeps every command it emits. Tests use it to
// assert on surface interactions.
type Recorder struct {
	*Remote

	mu   sync.Mutex
	cmds []Command
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	rec := &Recorder{}
	rec.Remote = NewRemote(func(c Command) {
		rec.mu.Lock()
		rec.cmds = append(rec.cmds, c)
		rec.mu.Unlock()
	})
	return rec
}

// Commands returns every command emitted so far.
func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Command, len(r.cmds))
	copy(out, r.cmds)
	return out
}

// Count returns how many commands of op were emitted.
func (r *Recorder) Count(op Op) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.cmds {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Reset forgets the recorded history; mounted state is kept.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.cmds = nil
	r.mu.Unlock()
}
