package distance

import "fmt"

// Category returns a human-readable distance band for a distance in cm.
func Category(cm float64) string {
	switch {
	case cm <= 0:
		return "unknown"
	case cm < 50:
		return "very close"
	case cm < 100:
		return "close"
	case cm < 200:
		return "nearby"
	case cm < 300:
		return "moderate"
	default:
		return "far"
	}
}

// FormatLabel renders a detection label such as "cup: 45.0cm". With unit
// "m", distances beyond one metre are shown in metres ("person: 1.25m").
func FormatLabel(class string, cm float64, unit string) string {
	if unit == "m" && cm > 100 {
		return fmt.Sprintf("%s: %.2fm", class, cm/100)
	}
	return fmt.Sprintf("%s: %.1fcm", class, cm)
}
