package config

import "time"

type Config interface {
	EnvConfig
	CorsConfig
	OidcConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetBaseURL() string
	GetPollHold() time.Duration
	GetStateSigningKey() string
	GetSeedUsersFile() string
	GetEnv() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Oidc
}

func New() Config {
	return mainConfig{}
}
