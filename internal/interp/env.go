package interp

import (
	"runtime"
	"sync"

	"gard/internal/ast"
	"gard/internal/value"
)

// FrameID indexes the environment arena; 0 is "no frame".
type FrameID uint32

type slot struct {
	name string
	val  value.Value
	kind ast.DeclKind
	init bool
	// ledger slots read and write contract storage through the active
	// transaction instead of val
	ledger bool
}

type frame struct {
	parent FrameID
	names  map[string]int
	slots  []slot
	refs   int32
	fn     bool

	// method frames: receiver, declaring class, constructor flag
	this    value.Value
	hasThis bool
	home    *value.Class
	ctor    bool
	// contract frames: address whose storage the ledger slots map to
	contract string
}

// Env is the frame arena. Frames are refcounted: the code executing in a
// frame holds one reference, every child frame holds one on its parent and
// every closure holds one on the frame it captured. Parent links are plain
// indices, so closures never form pointer cycles with their frames.
type Env struct {
	frames []frame
	free   []FrameID

	mu      sync.Mutex
	pending []FrameID
}

func newEnv() *Env {
	return &Env{frames: make([]frame, 1)}
}

// Push allocates a frame under parent.
func (e *Env) Push(parent FrameID, fn bool) FrameID {
	e.drain()
	var id FrameID
	if n := len(e.free); n > 0 {
		id = e.free[n-1]
		e.free = e.free[:n-1]
	} else {
		e.frames = append(e.frames, frame{})
		id = FrameID(len(e.frames) - 1)
	}
	f := &e.frames[id]
	if f.names == nil {
		f.names = make(map[string]int)
	} else {
		clear(f.names)
	}
	f.slots = f.slots[:0]
	f.parent = parent
	f.refs = 1
	f.fn = fn
	f.this, f.hasThis, f.home, f.ctor, f.contract = value.Null, false, nil, false, ""
	if parent != 0 {
		e.frames[parent].refs++
	}
	return id
}

// Retain adds a reference to id.
func (e *Env) Retain(id FrameID) {
	if id != 0 {
		e.frames[id].refs++
	}
}

// Release drops a reference; frames reaching zero free their parent's
// reference in turn.
func (e *Env) Release(id FrameID) {
	for id != 0 {
		f := &e.frames[id]
		f.refs--
		if f.refs > 0 {
			return
		}
		parent := f.parent
		for i := range f.slots {
			f.slots[i].val = value.Null
		}
		f.slots = f.slots[:0]
		f.this, f.home = value.Null, nil
		e.free = append(e.free, id)
		id = parent
	}
}

// releaseLater is called from closure cleanups, which run on their own
// goroutine; the release itself happens on the next Push.
func (e *Env) releaseLater(id FrameID) {
	e.mu.Lock()
	e.pending = append(e.pending, id)
	e.mu.Unlock()
}

func (e *Env) drain() {
	e.mu.Lock()
	pending := e.pending
	e.pending = nil
	e.mu.Unlock()
	for _, id := range pending {
		e.Release(id)
	}
}

// capture retains id for the lifetime of owner.
func (e *Env) capture(owner *Closure, id FrameID) { retainFor(e, owner, id) }

// retainFor keeps frame id alive until owner becomes unreachable.
func retainFor[T any](e *Env, owner *T, id FrameID) {
	if id == 0 {
		return
	}
	e.Retain(id)
	runtime.AddCleanup(owner, e.releaseLater, id)
}

// renew swaps a frame captured by a closure for a fresh copy, so closures
// made in earlier loop iterations keep their own bindings.
func (e *Env) renew(id FrameID) FrameID {
	if e.frames[id].refs <= 1 {
		return id
	}
	parent, fn := e.frames[id].parent, e.frames[id].fn
	slots := append([]slot(nil), e.frames[id].slots...)
	n := e.Push(parent, fn)
	f := &e.frames[n]
	for i, s := range slots {
		f.names[s.name] = i
	}
	f.slots = append(f.slots, slots...)
	e.Release(id)
	return n
}

func (e *Env) frame(id FrameID) *frame { return &e.frames[id] }

// Declare adds a binding to frame id. ok is false when name is already
// declared there.
func (e *Env) Declare(id FrameID, name string, kind ast.DeclKind, v value.Value, init bool) bool {
	f := &e.frames[id]
	if i, exists := f.names[name]; exists {
		if kind == ast.DeclVar && f.slots[i].kind == ast.DeclVar {
			if init {
				f.slots[i].val, f.slots[i].init = v, true
			}
			return true
		}
		return false
	}
	f.names[name] = len(f.slots)
	f.slots = append(f.slots, slot{name: name, val: v, kind: kind, init: init})
	return true
}

// declareLedger binds name as a storage slot of the frame's contract.
func (e *Env) declareLedger(id FrameID, name string) {
	f := &e.frames[id]
	f.names[name] = len(f.slots)
	f.slots = append(f.slots, slot{name: name, kind: ast.DeclLet, init: true, ledger: true})
}

// Lookup finds the frame and slot index binding name, walking parents.
func (e *Env) Lookup(id FrameID, name string) (FrameID, int, bool) {
	for id != 0 {
		f := &e.frames[id]
		if i, ok := f.names[name]; ok {
			return id, i, true
		}
		id = f.parent
	}
	return 0, 0, false
}

func (e *Env) slot(id FrameID, i int) *slot { return &e.frames[id].slots[i] }

// FuncFrame returns the nearest function frame, where `var` lands.
func (e *Env) FuncFrame(id FrameID) FrameID {
	for cur := id; cur != 0; cur = e.frames[cur].parent {
		if e.frames[cur].fn {
			return cur
		}
	}
	return id
}

// thisFrame returns the nearest frame carrying a receiver.
func (e *Env) thisFrame(id FrameID) (*frame, bool) {
	for cur := id; cur != 0; cur = e.frames[cur].parent {
		if f := &e.frames[cur]; f.hasThis {
			return f, true
		}
	}
	return nil, false
}

// Live counts frames currently allocated.
func (e *Env) Live() int {
	e.drain()
	return len(e.frames) - 1 - len(e.free)
}
