// Package config provides environment overrides for the agent.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Environment variable names recognized by ApplyEnv. DATABASE_URL keeps
// its conventional unprefixed name.
const (
	EnvSiteBaseURL = "ALGOTRACK_SITE_BASE_URL"
	EnvAPIBaseURL  = "ALGOTRACK_API_BASE_URL"
	EnvUserID      = "ALGOTRACK_USER_ID"
	EnvStoreDriver = "ALGOTRACK_STORE_DRIVER"
	EnvStorePath   = "ALGOTRACK_STORE_PATH"
	EnvHubAddr     = "ALGOTRACK_HUB_ADDR"
	EnvHubURL      = "ALGOTRACK_HUB_URL"
	EnvDatabaseURL = "DATABASE_URL"
	EnvBudgetMS    = "ALGOTRACK_BUDGET_MS"
)

// ApplyEnv overlays environment variables onto c. Set variables win over
// file values; unset variables leave c untouched.
func (c *Config) ApplyEnv() error {
	setString := func(env string, dst *string) {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
	setString(EnvSiteBaseURL, &c.SiteBaseURL)
	setString(EnvAPIBaseURL, &c.APIBaseURL)
	setString(EnvUserID, &c.UserID)
	setString(EnvStoreDriver, &c.StoreDriver)
	setString(EnvStorePath, &c.StorePath)
	setString(EnvHubAddr, &c.HubAddr)
	setString(EnvHubURL, &c.HubURL)
	setString(EnvDatabaseURL, &c.DatabaseURL)

	if v := os.Getenv(EnvBudgetMS); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %v", EnvBudgetMS, err)
		}
		c.BudgetMillis = ms
	}
	return nil
}
