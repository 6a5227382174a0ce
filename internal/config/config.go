package config

type Config interface {
	EnvConfig
	StoreConfig
	OAuthConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetBaseURL() string
	GetSettingsURL() string
}

type mainConfig struct {
	EnvVars
	Store
	OAuth
}

func New() Config {
	return mainConfig{}
}
