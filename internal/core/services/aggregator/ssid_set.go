package aggregator

// DefaultMaxSSIDs is the per-slot SSID cap used when none is configured.
const DefaultMaxSSIDs = 64

// SSIDSet keeps the distinct SSIDs seen on a channel in arrival order.
// It is bounded; SSIDs past the cap are counted but not stored.
// Not safe for concurrent use, the Aggregator lock guards it.
type SSIDSet struct {
	seen     map[string]struct{}
	order    []string
	max      int
	overflow uint64
}

// NewSSIDSet creates a set holding at most max SSIDs.
func NewSSIDSet(max int) *SSIDSet {
	if max <= 0 {
		max = DefaultMaxSSIDs
	}
	return &SSIDSet{seen: make(map[string]struct{}), max: max}
}

// Add registers ssid. It reports whether the SSID was new and stored.
func (s *SSIDSet) Add(ssid string) bool {
	if ssid == "" {
		return false
	}
	if _, ok := s.seen[ssid]; ok {
		return false
	}
	if len(s.order) >= s.max {
		s.overflow++
		return false
	}
	s.seen[ssid] = struct{}{}
	s.order = append(s.order, ssid)
	return true
}

// List returns a copy of the stored SSIDs.
func (s *SSIDSet) List() []string {
	if len(s.order) == 0 {
		return nil
	}
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of stored SSIDs.
func (s *SSIDSet) Len() int {
	return len(s.order)
}

// Overflow returns how many new SSIDs were turned away by the cap.
func (s *SSIDSet) Overflow() uint64 {
	return s.overflow
}
