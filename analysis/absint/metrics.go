package absint

import "fmt"

// Limits bound one engine run. Exceeding one of them degrades the fact to
// the lattice's Unknown value.
type Limits struct {
	// StepsLimit bounds the number of states processed.
	StepsLimit int
	// PendingLimit bounds the worklist.
	PendingLimit int
	// InterruptEvery is the number of steps between cancellation checks.
	InterruptEvery int
}

var DefaultLimits = Limits{
	StepsLimit:     30000,
	PendingLimit:   1 << 15,
	InterruptEvery: 1024,
}

func (l Limits) orDefaults() Limits {
	if l.StepsLimit <= 0 {
		l.StepsLimit = DefaultLimits.StepsLimit
	}
	if l.PendingLimit <= 0 {
		l.PendingLimit = DefaultLimits.PendingLimit
	}
	if l.InterruptEvery <= 0 {
		l.InterruptEvery = DefaultLimits.InterruptEvery
	}
	return l
}

// Degradation says why a run gave up.
type Degradation uint8

const (
	NotDegraded Degradation = iota
	StepsExceeded
	PendingExceeded
	Interrupted
)

func (d Degradation) String() string {
	switch d {
	case NotDegraded:
		return "none"
	case StepsExceeded:
		return "steps"
	case PendingExceeded:
		return "pending"
	case Interrupted:
		return "interrupted"
	}
	return fmt.Sprintf("Degradation(%d)", uint8(d))
}

// Stats describe one engine run.
type Stats struct {
	// States is the number of states popped from the worklist.
	States   int
	Degraded Degradation
	// Combined is set when the straight-line engine produced the result.
	Combined bool
}
