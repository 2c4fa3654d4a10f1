package proctoring

import "strings"

// Key combinations that always mark a suspicious-key-sequence event as high
// severity. Matching is case-insensitive substring, mirroring what the
// lockdown client is told to intercept (see DefaultPolicy).
var restrictedKeySequences = []string{
	"ctrl+c",
	"ctrl+v",
	"ctrl+a",
	"alt+tab",
	"cmd+tab",
	"f12",
	"ctrl+shift+i",
	"ctrl+u",
}

// Classify maps an event type plus its metadata to a severity tier. Pure and
// total: unknown types degrade to low rather than failing, so the engine
// never goes silent on unrecognized input.
func Classify(t EventType, md Metadata) Severity {
	switch t {
	case EventTabSwitch:
		if md.Int("frequency") > 5 {
			return SeverityHigh
		}
		return SeverityMedium
	case EventCopyPaste:
		if md.Int("length") > 100 {
			return SeverityCritical
		}
		return SeverityHigh
	case EventMultipleFaces:
		if md.Int("faceCount") > 2 {
			return SeverityCritical
		}
		return SeverityHigh
	case EventNoFace:
		if md.Int("duration") > 30 {
			return SeverityHigh
		}
		return SeverityMedium
	case EventSuspiciousKeys:
		keys := strings.ToLower(md.String("keys"))
		for _, seq := range restrictedKeySequences {
			if strings.Contains(keys, seq) {
				return SeverityHigh
			}
		}
		return SeverityLow
	}
	return SeverityLow
}
