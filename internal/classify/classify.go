// Package classify implements the per-reading classification ladders that run
// on each sensing node: a 5-level rain intensity scale over the raw YL-83
// analog value and a 4-level flood status combining the rain regime with the
// ultrasonic water distance.
package classify

import "strings"

// RainIntensity is the per-reading 5-level rain classification.
type RainIntensity string

const (
	RainNone       RainIntensity = "NO_RAIN"
	RainLight      RainIntensity = "LIGHT"
	RainModerate   RainIntensity = "MODERATE"
	RainHeavy      RainIntensity = "HEAVY"
	RainTorrential RainIntensity = "TORRENTIAL"
)

// FloodStatus is the per-reading 4-level flood classification.
type FloodStatus string

const (
	StatusNormal    FloodStatus = "NORMAL"
	StatusRainAlert FloodStatus = "RAIN_ALERT"
	StatusFloodRisk FloodStatus = "FLOOD_RISK"
	StatusCritical  FloodStatus = "CRITICAL_FLOOD"
)

// Calibrated YL-83 boundaries. The sensor reads drier as the value rises, so
// the ladder is evaluated high-to-low with strict comparisons: a value sitting
// exactly on a boundary resolves to the wetter category.
const (
	rainNoneAbove     = 3600
	rainLightAbove    = 3000
	rainModerateAbove = 2400
	rainHeavyAbove    = 1800
)

// Flood status only escalates when rain is in the elevated regime (HEAVY or
// worse). A close water level with light rain stays NORMAL: rain is the gating
// signal, distance refines severity. Deliberate policy, not an oversight.
const elevatedRainBelow = 2400

// Water distance thresholds within the elevated rain regime.
const (
	criticalDistanceCM = 10
	riskDistanceCM     = 20
)

// NoEchoDistanceCM is substituted when the ultrasonic sensor reports no echo
// within its timeout. A missing echo means nothing is near the sensor, so the
// safe reading is "far", never "critical".
const NoEchoDistanceCM = 400

// MaxRainAnalog is the top of the ADC dynamic range.
const MaxRainAnalog = 4095

// Rain maps a raw analog rain value onto the 5-level intensity ladder.
func Rain(rainAnalog int) RainIntensity {
	switch {
	case rainAnalog > rainNoneAbove:
		return RainNone
	case rainAnalog > rainLightAbove:
		return RainLight
	case rainAnalog > rainModerateAbove:
		return RainModerate
	case rainAnalog > rainHeavyAbove:
		return RainHeavy
	default:
		return RainTorrential
	}
}

// Flood derives the flood status from the raw rain value and water distance.
func Flood(rainAnalog int, distanceCM float64) FloodStatus {
	if rainAnalog >= elevatedRainBelow {
		return StatusNormal
	}
	switch {
	case distanceCM < criticalDistanceCM:
		return StatusCritical
	case distanceCM < riskDistanceCM:
		return StatusFloodRisk
	default:
		return StatusRainAlert
	}
}

// Classify is the full per-reading classification: total over its domain,
// never fails, no state.
func Classify(rainAnalog int, distanceCM float64) (RainIntensity, FloodStatus) {
	return Rain(rainAnalog), Flood(rainAnalog, distanceCM)
}

// Level returns the ordinal position of a flood status, 1 (NORMAL) through
// 4 (CRITICAL_FLOOD). Unknown statuses rank 0.
func (s FloodStatus) Level() int {
	switch s {
	case StatusNormal:
		return 1
	case StatusRainAlert:
		return 2
	case StatusFloodRisk:
		return 3
	case StatusCritical:
		return 4
	}
	return 0
}

// Level returns the ordinal position of a rain intensity, 1 (NO_RAIN) through
// 5 (TORRENTIAL). Unknown intensities rank 0.
func (r RainIntensity) Level() int {
	switch r {
	case RainNone:
		return 1
	case RainLight:
		return 2
	case RainModerate:
		return 3
	case RainHeavy:
		return 4
	case RainTorrential:
		return 5
	}
	return 0
}

// normalize folds the label variants the node firmware emits ("NO RAIN",
// "LIGHT RAIN", "FLOOD RISK") onto the canonical underscore form.
func normalize(s string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), " ", "_")
}

// ParseRainIntensity validates a rain intensity label, accepting both the
// canonical form and the firmware's spaced "<LEVEL> RAIN" form.
func ParseRainIntensity(s string) (RainIntensity, bool) {
	switch normalize(s) {
	case "NO_RAIN":
		return RainNone, true
	case "LIGHT", "LIGHT_RAIN":
		return RainLight, true
	case "MODERATE", "MODERATE_RAIN":
		return RainModerate, true
	case "HEAVY", "HEAVY_RAIN":
		return RainHeavy, true
	case "TORRENTIAL", "TORRENTIAL_RAIN":
		return RainTorrential, true
	}
	return "", false
}

// ParseFloodStatus validates a flood status label, accepting both the
// canonical form and the firmware's spaced form.
func ParseFloodStatus(s string) (FloodStatus, bool) {
	switch normalize(s) {
	case "NORMAL":
		return StatusNormal, true
	case "RAIN_ALERT":
		return StatusRainAlert, true
	case "FLOOD_RISK":
		return StatusFloodRisk, true
	case "CRITICAL_FLOOD":
		return StatusCritical, true
	}
	return "", false
}
