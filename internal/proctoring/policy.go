package proctoring

// LockdownPolicy is the declarative description of the restricted-action set
// the reporting client must enforce during a session. The engine only
// produces and versions the document; enforcement happens client-side.
type LockdownPolicy struct {
	Version               string   `json:"version"`
	MinAppVersion         string   `json:"min_app_version"`
	BlockContextMenu      bool     `json:"block_context_menu"`
	ForceFullscreen       bool     `json:"force_fullscreen"`
	RestrictedKeys        []string `json:"restricted_keys"`
	InterceptCopyPaste    bool     `json:"intercept_copy_paste"`
	ReportWindowFocus     bool     `json:"report_window_focus"`
	ReportCameraAnomalies bool     `json:"report_camera_anomalies"`
	HeartbeatSeconds      int      `json:"heartbeat_seconds"`
}

// DefaultPolicy builds the current lockdown descriptor. The restricted key
// list is the same denylist the classifier scores against, so client
// enforcement and server classification never drift apart.
func DefaultPolicy(version, minAppVersion string) LockdownPolicy {
	keys := make([]string, len(restrictedKeySequences))
	copy(keys, restrictedKeySequences)
	return LockdownPolicy{
		Version:               version,
		MinAppVersion:         minAppVersion,
		BlockContextMenu:      true,
		ForceFullscreen:       true,
		RestrictedKeys:        keys,
		InterceptCopyPaste:    true,
		ReportWindowFocus:     true,
		ReportCameraAnomalies: true,
		HeartbeatSeconds:      30,
	}
}
