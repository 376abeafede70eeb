// Package worklist schedules the forward dataflow passes over method bodies
// and the graph traversals.
package worklist

// Worklist is a FIFO queue in which an element is pending at most once.
// Adding an element that is already queued is a no-op: the queued visit
// observes the latest state anyway.
type Worklist[T comparable] struct {
	queue   []T
	pending map[T]bool
}

func New[T comparable](start ...T) *Worklist[T] {
	w := &Worklist[T]{pending: make(map[T]bool, len(start))}
	for _, el := range start {
		w.Add(el)
	}
	return w
}

func (w *Worklist[T]) Add(el T) {
	if w.pending[el] {
		return
	}
	w.pending[el] = true
	w.queue = append(w.queue, el)
}

func (w *Worklist[T]) IsEmpty() bool {
	return len(w.queue) == 0
}

func (w *Worklist[T]) Len() int {
	return len(w.queue)
}

// Next dequeues the oldest element. It panics on an empty worklist.
func (w *Worklist[T]) Next() T {
	el := w.queue[0]
	w.queue = w.queue[1:]
	delete(w.pending, el)
	return el
}

// Process runs do until the worklist is exhausted. do may add elements,
// including the one it is processing.
func (w *Worklist[T]) Process(do func(next T, add func(el T))) {
	for !w.IsEmpty() {
		do(w.Next(), w.Add)
	}
}

// Start seeds a worklist with start and processes it to exhaustion.
func Start[T comparable](start T, do func(next T, add func(el T))) {
	New(start).Process(do)
}
