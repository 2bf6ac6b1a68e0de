package gesture

// EdgeDetector remembers the previously observed label so one-shot actions
// fire once per gesture hold instead of on every sample.
type EdgeDetector struct {
	prev Label
}

// NewEdgeDetector returns an EdgeDetector whose previous label is None.
func NewEdgeDetector() *EdgeDetector {
	return &EdgeDetector{prev: None}
}

// IsRisingEdge reports whether label equals target while the previously
// observed label did not. It does not record label; call Observe for that.
func (e *EdgeDetector) IsRisingEdge(label, target Label) bool {
	return label == target && e.prev != target
}

// Observe records label as the previous label and returns whether it was a
// rising edge for target.
func (e *EdgeDetector) Observe(label, target Label) bool {
	rising := e.IsRisingEdge(label, target)
	e.prev = label
	return rising
}

// Previous returns the last observed label.
func (e *EdgeDetector) Previous() Label {
	if e.prev == "" {
		return None
	}
	return e.prev
}

// Reset forgets the previous label.
func (e *EdgeDetector) Reset() {
	e.prev = None
}
