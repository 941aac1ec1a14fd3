package watch

// Signal is a single-slot rebuild flag. Setting an already pending Signal is a no-op,
// so any number of Set calls between two receives yields exactly one rebuild.
type Signal struct {
	ch chan struct{}
}

func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{}, 1)}
}

// Set marks a rebuild as pending. It never blocks and reports whether the call
// changed the Signal from empty to pending.
func (s *Signal) Set() bool {
	select {
	case s.ch <- struct{}{}:
		return true
	default:
		return false
	}
}

// C returns the channel a consumer receives from to take the pending rebuild.
func (s *Signal) C() <-chan struct{} { return s.ch }

// Pending reports whether a rebuild is waiting to be taken.
func (s *Signal) Pending() bool { return len(s.ch) > 0 }
