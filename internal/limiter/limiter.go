package limiter

// Semaphore bounds concurrent work with in-process slots. Used to cap the
// per-batch worker fan-out and to serialize OCR when the engine is not
// thread-safe.
type Semaphore struct {
    ch chan struct{}
}

// New creates a semaphore with max slots (min 1).
func New(max int) *Semaphore {
    if max <= 0 { max = 1 }
    return &Semaphore{ch: make(chan struct{}, max)}
}

// Acquire blocks until a slot is free and returns its release function.
func (s *Semaphore) Acquire() func() {
    s.ch <- struct{}{}
    return func() { <-s.ch }
}

// TryAcquire reserves a slot without blocking.
// Returns a release function and true if allowed; otherwise nil,false.
func (s *Semaphore) TryAcquire() (func(), bool) {
    select {
    case s.ch <- struct{}{}:
        return func() { <-s.ch }, true
    default:
        return func(){}, false
    }
}
