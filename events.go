package surface

import "time"

// EventClass tags a raw input event with its throttling category.
type EventClass int

const (
	// ClassOther covers discrete events (clicks, key chords) that are
	// never throttled.
	ClassOther EventClass = iota

	// ClassMotion covers continuous pointer motion.
	ClassMotion

	// ClassWheel covers scroll wheel and trackpad scroll deltas.
	ClassWheel

	// ClassButton covers pointer button presses and releases.
	ClassButton
)

// String returns the event class name for logging.
func (c EventClass) String() string {
	switch c {
	case ClassMotion:
		return "motion"
	case ClassWheel:
		return "wheel"
	case ClassButton:
		return "button"
	default:
		return "other"
	}
}

// PointerEvent is a raw pointer or wheel event as delivered by the host's
// input source. The core only reads the class and timestamp for
// throttling; position and deltas pass through to the host's update
// mapping untouched.
type PointerEvent struct {
	Class EventClass
	Time  time.Time

	// X, Y is the pointer position in device pixels.
	X, Y float64

	// ScrollX, ScrollY are wheel deltas, meaningful for ClassWheel.
	ScrollX, ScrollY float64
}
