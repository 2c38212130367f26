package nn

// NormOrder selects where layer normalization sits relative to a residual
// sublayer.
type NormOrder int

const (
	// POST normalizes after the residual addition (original transformer).
	POST NormOrder = iota
	// PRE normalizes the sublayer input before it runs; the stack then
	// applies one final normalization after the last layer.
	PRE
)

// String returns the order name.
func (o NormOrder) String() string {
	switch o {
	case POST:
		return "POST"
	case PRE:
		return "PRE"
	default:
		return "Unknown"
	}
}
