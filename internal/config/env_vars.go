package config

import (
	"fmt"
	"os"
	"time"
)

const (
	portEnvVar     = "PORT"
	appNameVar     = "APP_NAME"
	baseURLVar     = "BASE_URL"
	pollHoldVar    = "LOGIN_POLL_HOLD"
	signingKeyVar  = "STATE_SIGNING_KEY"
	seedUsersVar   = "SEED_USERS_FILE"
	defaultAppName = "Hal9 Login"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if port != "" || port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, defaultAppName)
}

// GetBaseURL returns the externally reachable base URL for the login
// service (e.g. "https://api.hal9.com"). It is used to build the federated
// login redirect URI.
func (EnvVars) GetBaseURL() string {
	return GetEnv(baseURLVar, "http://localhost:8080")
}

// GetPollHold returns how long GET /api/login holds a pending poll open
// before answering {done:false}.
func (EnvVars) GetPollHold() time.Duration {
	hold, err := time.ParseDuration(GetEnv(pollHoldVar, "25s"))
	if err != nil || hold <= 0 {
		return 25 * time.Second
	}
	return hold
}

// GetStateSigningKey returns the HMAC key used to sign the federated login
// state parameter. Empty disables federated login.
func (EnvVars) GetStateSigningKey() string {
	return GetEnv(signingKeyVar, "")
}

// GetSeedUsersFile returns the path of a JSON file of users loaded at boot.
func (EnvVars) GetSeedUsersFile() string {
	return GetEnv(seedUsersVar, "")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
