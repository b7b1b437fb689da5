package soundnet

// Mode determines how layers with train-time behavior,
// such as batch normalization, process their inputs.
type Mode int

const (
	// Training mode uses statistics from the current batch
	// and may update internal running statistics.
	Training Mode = iota

	// Evaluation mode uses accumulated statistics and never
	// modifies layer state.
	Evaluation
)

// String returns a human-readable name for the mode.
func (m Mode) String() string {
	switch m {
	case Training:
		return "training"
	case Evaluation:
		return "evaluation"
	default:
		return "unknown"
	}
}

// A ModeSetter is a layer whose behavior depends on the
// current Mode.
type ModeSetter interface {
	SetMode(m Mode)
}
