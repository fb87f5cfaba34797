// Package node is the sensing-node agent: it samples the rain and water
// level sensors on a fixed cycle, classifies each sample locally and posts
// the result to the backend. Classification always completes whether or not
// the backend is reachable; a failed transmission is logged and dropped, the
// next cycle sends fresh data anyway.
package node

// Sample is one cycle's raw measurements.
type Sample struct {
	RainAnalog int
	DistanceCM float64
	// NoEcho is set when the ultrasonic sensor timed out. DistanceCM is
	// meaningless in that case and is replaced with the far sentinel.
	NoEcho bool
}

// Sensors abstracts the rain sensor ADC and the ultrasonic rangefinder.
type Sensors interface {
	Read() (Sample, error)
}
