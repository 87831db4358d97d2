// Package config sources all gateway configuration from the environment.
// A .env file is honored for local development; in Lambda the variables come
// from the function configuration.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	authorityVar     = "AUTHORITY"
	clientIDVar      = "CLIENT_ID"
	clientSecretVar  = "CLIENT_SECRET"
	scopeVar         = "SCOPE"
	sessionsTableVar = "SESSIONS_TABLE"
	sidIndexVar      = "SESSIONS_SID_INDEX"
	cookieNameVar    = "SESSION_COOKIE_NAME"
	loginPathVar     = "LOGIN_PATH"
	logoutPathVar    = "LOGOUT_PATH"
	staticPathVar    = "STATIC_PATH"
	compressionVar   = "COMPRESSION"
)

// Config holds every runtime setting of the gateway.
type Config struct {
	// Identity provider (OIDC authorization-code flow)
	Authority    string
	ClientID     string
	ClientSecret string
	Scopes       []string // the OIDC client adds openid/profile/offline_access itself

	// Session store
	SessionsTable string
	SidIndexName  string
	CookieName    string

	// Route prefixes. Callback paths are derived from the prefixes the same
	// way the IdP app registration expects them.
	LoginPath      string
	LoginCallback  string
	LogoutPath     string
	LogoutCallback string
	LogoutComplete string
	StaticPath     string

	// Response behavior
	Compression bool
}

// Load reads the configuration from the environment. The identity provider
// settings are required; everything else has a default.
func Load() (*Config, error) {
	godotenv.Load() // best effort; Lambda has no .env

	cfg := &Config{
		Authority:     os.Getenv(authorityVar),
		ClientID:      os.Getenv(clientIDVar),
		ClientSecret:  os.Getenv(clientSecretVar),
		Scopes:        splitScopes(GetEnv(scopeVar, "")),
		SessionsTable: GetEnv(sessionsTableVar, "lambda_sessions"),
		SidIndexName:  GetEnv(sidIndexVar, "sid-index"),
		CookieName:    GetEnv(cookieNameVar, "session"),
		LoginPath:     GetEnv(loginPathVar, "/auth/login"),
		LogoutPath:    GetEnv(logoutPathVar, "/auth/logout"),
		StaticPath:    GetEnv(staticPathVar, "/static/"),
		Compression:   GetEnv(compressionVar, "on") != "off",
	}
	cfg.LoginCallback = cfg.LoginPath + "/callback"
	cfg.LogoutCallback = cfg.LogoutPath + "/callback"
	cfg.LogoutComplete = cfg.LogoutPath + "/complete"

	if cfg.Authority == "" {
		return nil, fmt.Errorf("[config.Load] %s is required", authorityVar)
	}
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("[config.Load] %s is required", clientIDVar)
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("[config.Load] %s is required", clientSecretVar)
	}
	return cfg, nil
}

// GetEnv returns the value of envVar, or defaultValue when unset or empty.
func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func splitScopes(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}
