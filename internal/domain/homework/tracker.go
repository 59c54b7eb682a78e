package homework

// Tracker remembers the last status delivered for each homework name.
// It lives in process memory only and is owned by a single poll loop.
type Tracker struct {
	last map[string]Status
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{last: make(map[string]Status)}
}

// Changed reports whether hw carries a status different from the last one recorded.
func (t *Tracker) Changed(hw Homework) bool {
	prev, ok := t.last[hw.Name]
	return !ok || prev != hw.Status
}

// Record stores hw's status as delivered.
func (t *Tracker) Record(hw Homework) {
	t.last[hw.Name] = hw.Status
}

// Len returns the number of tracked homeworks.
func (t *Tracker) Len() int {
	return len(t.last)
}
