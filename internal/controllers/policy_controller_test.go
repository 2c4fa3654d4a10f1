package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/edusentry/proctor_backend_v1/internal/config"
)

type mapSettings map[string]string

func (m mapSettings) Value(key string) (string, bool) {
	v, ok := m[key]
	return v, ok && v != ""
}

func getPolicy(t *testing.T, pc *PolicyController, target string) map[string]any {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/v1/proctoring/policy", pc.Get)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestPolicyServesConfigDefaults(t *testing.T) {
	pc := &PolicyController{Cfg: &config.Config{PolicyVersion: "1", MinAppVersion: "1.0.0"}}
	body := getPolicy(t, pc, "/api/v1/proctoring/policy")

	policy := body["policy"].(map[string]any)
	if policy["version"] != "1" {
		t.Errorf("expected version 1, got %v", policy["version"])
	}
	if policy["min_app_version"] != "1.0.0" {
		t.Errorf("expected min app version 1.0.0, got %v", policy["min_app_version"])
	}
	if _, present := body["update_required"]; present {
		t.Error("update_required must be absent without an app_version query")
	}
}

func TestPolicyAppliesEachOverrideIndependently(t *testing.T) {
	pc := &PolicyController{
		Cfg: &config.Config{PolicyVersion: "1", MinAppVersion: "1.0.0"},
		Overrides: mapSettings{
			"policy_version":  "9",
			"min_app_version": "5.0.0",
		},
	}
	body := getPolicy(t, pc, "/api/v1/proctoring/policy")

	policy := body["policy"].(map[string]any)
	if policy["version"] != "9" {
		t.Errorf("policy_version override not applied: got %v", policy["version"])
	}
	if policy["min_app_version"] != "5.0.0" {
		t.Errorf("min_app_version override not applied alongside policy_version: got %v", policy["min_app_version"])
	}
}

func TestPolicyUpdateRequired(t *testing.T) {
	pc := &PolicyController{
		Cfg:       &config.Config{PolicyVersion: "1", MinAppVersion: "1.0.0"},
		Overrides: mapSettings{"min_app_version": "2.0.0"},
	}

	body := getPolicy(t, pc, "/api/v1/proctoring/policy?app_version=1.5.0")
	if body["update_required"] != true {
		t.Errorf("expected update_required=true for outdated client, got %v", body["update_required"])
	}

	body = getPolicy(t, pc, "/api/v1/proctoring/policy?app_version=2.0.0")
	if body["update_required"] != false {
		t.Errorf("expected update_required=false for current client, got %v", body["update_required"])
	}
}
