package camera

import "strings"

// Diagnose checks the available devices and returns the problems found.
// An empty result means both roles can be served.
func Diagnose(devices []DeviceInfo) []string {
	var issues []string

	if len(devices) == 0 {
		return append(issues, "no camera devices detected")
	}

	hasFront, hasRear := false, false
	for _, d := range devices {
		label := strings.ToLower(d.Label)
		if d.Facing == Front || strings.Contains(label, "front") || strings.Contains(label, "user") {
			hasFront = true
		}
		if d.Facing == Rear || strings.Contains(label, "back") || strings.Contains(label, "rear") || strings.Contains(label, "environment") {
			hasRear = true
		}
	}

	if !hasFront {
		issues = append(issues, "front camera not detected")
	}
	// Unlabelled second device is assumed to be the rear one.
	if !hasRear && len(devices) < 2 {
		issues = append(issues, "rear camera not detected")
	}
	return issues
}
