package proctoring

// fallbackScore is charged for any (type, severity) pair missing from the
// table. Never zero: an unrecognized signal must still move the needle so it
// shows up in the audit trail.
const fallbackScore = 1

// riskScores is the fixed point table. Values are design constants; the
// thresholds they are measured against live in Thresholds and are
// configurable.
var riskScores = map[EventType]map[Severity]int{
	EventTabSwitch: {
		SeverityLow:      2,
		SeverityMedium:   5,
		SeverityHigh:     10,
		SeverityCritical: 15,
	},
	EventWindowBlur: {
		SeverityLow:      2,
		SeverityMedium:   4,
		SeverityHigh:     6,
		SeverityCritical: 10,
	},
	EventCopyPaste: {
		SeverityLow:      5,
		SeverityMedium:   10,
		SeverityHigh:     15,
		SeverityCritical: 30,
	},
	EventRightClick: {
		SeverityLow:      2,
		SeverityMedium:   3,
		SeverityHigh:     5,
		SeverityCritical: 8,
	},
	EventSuspiciousKeys: {
		SeverityLow:      2,
		SeverityMedium:   5,
		SeverityHigh:     12,
		SeverityCritical: 20,
	},
	EventFaceAnomaly: {
		SeverityLow:      3,
		SeverityMedium:   6,
		SeverityHigh:     12,
		SeverityCritical: 20,
	},
	EventMultipleFaces: {
		SeverityLow:      5,
		SeverityMedium:   10,
		SeverityHigh:     25,
		SeverityCritical: 50,
	},
	EventNoFace: {
		SeverityLow:      3,
		SeverityMedium:   8,
		SeverityHigh:     15,
		SeverityCritical: 25,
	},
	EventSuspiciousMotion: {
		SeverityLow:      2,
		SeverityMedium:   5,
		SeverityHigh:     10,
		SeverityCritical: 18,
	},
}

// ScoreFor returns the risk points an event of the given type and severity
// contributes. Pure lookup; unknown pairs cost fallbackScore.
func ScoreFor(t EventType, sev Severity) int {
	if bySev, ok := riskScores[t]; ok {
		if pts, ok := bySev[sev]; ok {
			return pts
		}
	}
	return fallbackScore
}
