package projection

// DetailState names the phase of a detail screen.
type DetailState string

const (
	DetailIdle    DetailState = "IDLE"
	DetailLoading DetailState = "LOADING"
	DetailLoaded  DetailState = "LOADED"
	DetailError   DetailState = "ERROR"
)

// Settled reports whether the state is no longer waiting on a load.
func (s DetailState) Settled() bool {
	return s != DetailLoading
}
