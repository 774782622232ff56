package machine

// Frame is one activation record on an actor's frame stack, per §4.3: the
// function being executed, its argument count, and enough of the caller's
// state to resume it on return.
type Frame struct {
	FunID     uint32
	Closure   *Closure // nil when the callee was a plain Fun, not a Closure
	ArgC      int
	BP        int // index of the first local slot in the value stack
	RetPC     int
	PrevFrame int // index into the interpreter's frame stack, -1 for none
	Code      []byte
}
