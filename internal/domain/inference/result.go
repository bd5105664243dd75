package inference

// Status is the rendering shape of one label: output unit Index is on or off.
type Status struct {
	Index int  `json:"index"`
	On    bool `json:"on"`
}

// Result is the complete, ordered label sequence of one prediction.
// Index i corresponds to the i-th declared output unit.
type Result struct {
	labels []bool
}

// NewResult copies labels into a Result.
func NewResult(labels []bool) Result {
	cp := make([]bool, len(labels))
	copy(cp, labels)
	return Result{labels: cp}
}

// Len returns the number of labels.
func (r Result) Len() int { return len(r.labels) }

// On reports whether unit i is switched on.
func (r Result) On(i int) bool { return r.labels[i] }

// Labels returns a copy of the labels.
func (r Result) Labels() []bool {
	cp := make([]bool, len(r.labels))
	copy(cp, r.labels)
	return cp
}

// OnCount returns how many units are on.
func (r Result) OnCount() int {
	n := 0
	for _, on := range r.labels {
		if on {
			n++
		}
	}
	return n
}

// Statuses pairs each label with its display index.
func (r Result) Statuses() []Status {
	out := make([]Status, len(r.labels))
	for i, on := range r.labels {
		out[i] = Status{Index: i, On: on}
	}
	return out
}

// Equal reports whether both results hold the same labels in the same order.
func (r Result) Equal(other Result) bool {
	if len(r.labels) != len(other.labels) {
		return false
	}
	for i := range r.labels {
		if r.labels[i] != other.labels[i] {
			return false
		}
	}
	return true
}
