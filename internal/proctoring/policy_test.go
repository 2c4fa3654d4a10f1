package proctoring

import "testing"

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy("3", "2.1.0")
	if p.Version != "3" {
		t.Errorf("expected version 3, got %s", p.Version)
	}
	if p.MinAppVersion != "2.1.0" {
		t.Errorf("expected min app version 2.1.0, got %s", p.MinAppVersion)
	}
	if !p.BlockContextMenu || !p.ForceFullscreen || !p.InterceptCopyPaste {
		t.Error("lockdown restrictions must all be enabled")
	}
	if !p.ReportWindowFocus || !p.ReportCameraAnomalies {
		t.Error("reporting obligations must all be enabled")
	}
	if p.HeartbeatSeconds <= 0 {
		t.Errorf("heartbeat interval must be positive, got %d", p.HeartbeatSeconds)
	}
}

func TestPolicyKeysMatchClassifierDenylist(t *testing.T) {
	p := DefaultPolicy("1", "1.0.0")
	if len(p.RestrictedKeys) != len(restrictedKeySequences) {
		t.Fatalf("policy lists %d key sequences, classifier knows %d", len(p.RestrictedKeys), len(restrictedKeySequences))
	}
	for _, keys := range p.RestrictedKeys {
		if got := Classify(EventSuspiciousKeys, Metadata{"keys": keys}); got != SeverityHigh {
			t.Errorf("policy key %q not scored high by the classifier, got %s", keys, got)
		}
	}
}

func TestPolicyKeysAreACopy(t *testing.T) {
	p := DefaultPolicy("1", "1.0.0")
	p.RestrictedKeys[0] = "mutated"
	if restrictedKeySequences[0] == "mutated" {
		t.Error("policy exposes the classifier's denylist by reference")
	}
}
