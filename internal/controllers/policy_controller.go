package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edusentry/proctor_backend_v1/internal/config"
	"github.com/edusentry/proctor_backend_v1/internal/proctoring"
	"github.com/edusentry/proctor_backend_v1/internal/utils"
)

// SettingsStore looks up runtime override values by key.
type SettingsStore interface {
	Value(key string) (string, bool)
}

// PolicyController serves the versioned lockdown descriptor the exam client
// fetches at session start. Values come from the environment with optional
// overrides from the settings store.
type PolicyController struct {
	Cfg       *config.Config
	Overrides SettingsStore
}

func (pc *PolicyController) override(key, fallback string) string {
	if pc.Overrides == nil {
		return fallback
	}
	if v, ok := pc.Overrides.Value(key); ok {
		return v
	}
	return fallback
}

func (pc *PolicyController) Get(c *gin.Context) {
	version := pc.override("policy_version", pc.Cfg.PolicyVersion)
	minApp := pc.override("min_app_version", pc.Cfg.MinAppVersion)

	policy := proctoring.DefaultPolicy(version, minApp)

	resp := gin.H{
		"policy":         policy,
		"schema_version": 1,
	}
	if appVersion := c.Query("app_version"); appVersion != "" {
		resp["update_required"] = utils.CompareVersions(appVersion, minApp) < 0
	}
	c.JSON(http.StatusOK, resp)
}
