package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/questx-lab/authserver/pkg/enum"
)

type Configs struct {
	Env      string `toml:"env" env:"ENV"`
	LogLevel string `toml:"log_level" env:"LOG_LEVEL"`

	Database  DatabaseConfigs `toml:"database"`
	Redis     RedisConfigs    `toml:"redis"`
	ApiServer ServerConfigs   `toml:"api_server"`
	Cors      CorsConfigs     `toml:"cors"`
	Auth      AuthConfigs     `toml:"auth"`
	Cron      CronConfigs     `toml:"cron"`
}

type DatabaseConfigs struct {
	Driver   string `toml:"driver" env:"DB_DRIVER"`
	Host     string `toml:"host" env:"DB_HOST"`
	Port     string `toml:"port" env:"DB_PORT"`
	Database string `toml:"database" env:"DB_NAME"`
	User     string `toml:"user" env:"DB_USER"`
	Password string `toml:"password" env:"DB_PASSWORD"`

	// File is the sqlite database file, used when Driver is sqlite.
	File string `toml:"file" env:"DB_FILE"`
}

func (d *DatabaseConfigs) ConnectionString() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.User,
		d.Password,
		d.Host,
		d.Port,
		d.Database,
	)
}

type RedisConfigs struct {
	Addr string `toml:"addr" env:"REDIS_ADDR"`
}

type ServerConfigs struct {
	Host string `toml:"host" env:"API_HOST"`
	Port string `toml:"port" env:"API_PORT"`
}

func (s ServerConfigs) Address() string {
	return fmt.Sprintf("%s:%s", s.Host, s.Port)
}

type CorsConfigs struct {
	Origins        []string `toml:"origins"`
	ExposedHeaders []string `toml:"exposed_headers"`
}

type AuthConfigs struct {
	TokenSecret string `toml:"token_secret" env:"AUTH_TOKEN_SECRET"`
	Issuer      string `toml:"issuer"`
	Audience    string `toml:"audience"`

	AccessToken  TokenConfigs `toml:"access_token"`
	RefreshToken TokenConfigs `toml:"refresh_token"`

	// StateTimeout bounds how long an authorization redirect may take before
	// its state is rejected.
	StateTimeout time.Duration `toml:"state_timeout"`
	StateBackend StateBackend  `toml:"state_backend"`

	Password PasswordConfigs `toml:"password"`

	Google  OAuth2Config `toml:"google" envPrefix:"GOOGLE_"`
	Spotify OAuth2Config `toml:"spotify" envPrefix:"SPOTIFY_"`
	Twitch  OAuth2Config `toml:"twitch" envPrefix:"TWITCH_"`
	Discord OAuth2Config `toml:"discord" envPrefix:"DISCORD_"`

	// Custom lists standard OAuth2/OIDC providers identified by their Name.
	Custom []OAuth2Config `toml:"custom"`
}

// StateBackend selects where authorization states are kept.
type StateBackend string

var (
	MemoryStateBackend = enum.New(StateBackend("memory"))
	RedisStateBackend  = enum.New(StateBackend("redis"))
)

type TokenConfigs struct {
	Expiration time.Duration `toml:"expiration"`
}

type PasswordConfigs struct {
	MinLength          int  `toml:"min_length"`
	RequireUppercase   bool `toml:"require_uppercase"`
	RequireDigit       bool `toml:"require_digit"`
	RequireNonAlphaNum bool `toml:"require_non_alphanumeric"`
}

type OAuth2Config struct {
	Enabled bool   `toml:"enabled"`
	Name    string `toml:"name"`

	ClientID     string `toml:"client_id" env:"CLIENT_ID"`
	ClientSecret string `toml:"client_secret" env:"CLIENT_SECRET"`

	// Issuer is used by providers validating OIDC id tokens.
	Issuer           string `toml:"issuer"`
	AuthorizationURL string `toml:"authorization_url"`
	TokenURL         string `toml:"token_url"`
	UserInfoURL      string `toml:"user_info_url"`
	ProfileURL       string `toml:"profile_url"`

	Scopes         []string      `toml:"scopes"`
	ExtendedScopes []string      `toml:"extended_scopes"`
	Timeout        time.Duration `toml:"timeout"`

	// ForceVerify asks the provider to always show the consent screen.
	ForceVerify bool `toml:"force_verify"`
}

type CronConfigs struct {
	ReconcileInterval     time.Duration `toml:"reconcile_interval"`
	ProviderTokenLeadTime time.Duration `toml:"provider_token_lead_time"`
	MaxConcurrency        int           `toml:"max_concurrency"`
}

// Default returns the configuration values used when the file omits them.
func Default() Configs {
	return Configs{
		Env:      "local",
		LogLevel: "info",
		Database: DatabaseConfigs{Driver: "mysql"},
		ApiServer: ServerConfigs{
			Host: "0.0.0.0",
			Port: "8080",
		},
		Auth: AuthConfigs{
			AccessToken:  TokenConfigs{Expiration: 15 * time.Minute},
			RefreshToken: TokenConfigs{Expiration: 7 * 24 * time.Hour},
			StateTimeout: 10 * time.Minute,
			StateBackend: MemoryStateBackend,
			Password: PasswordConfigs{
				MinLength:          8,
				RequireUppercase:   true,
				RequireDigit:       true,
				RequireNonAlphaNum: true,
			},
		},
		Cron: CronConfigs{
			ReconcileInterval: time.Minute,
			MaxConcurrency:    16,
		},
	}
}

// Load reads the toml file at path on top of Default, then applies the .env
// file (if any) and environment overrides.
func Load(path string) (Configs, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Configs{}, fmt.Errorf("cannot decode config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Configs{}, fmt.Errorf("cannot load .env file: %w", err)
	}

	if err := env.Parse(&cfg); err != nil {
		return Configs{}, fmt.Errorf("cannot parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Configs{}, err
	}

	return cfg, nil
}

// Validate rejects configurations the process must not start with.
func (c Configs) Validate() error {
	if c.Auth.TokenSecret == "" {
		return errors.New("auth.token_secret is required")
	}

	if c.Auth.AccessToken.Expiration <= 0 || c.Auth.RefreshToken.Expiration <= 0 {
		return errors.New("token expirations must be positive")
	}

	if _, err := enum.ToEnum[StateBackend](string(c.Auth.StateBackend)); err != nil {
		return fmt.Errorf("unsupported state backend %q", c.Auth.StateBackend)
	}

	for name, p := range map[string]OAuth2Config{
		"google":  c.Auth.Google,
		"spotify": c.Auth.Spotify,
		"twitch":  c.Auth.Twitch,
		"discord": c.Auth.Discord,
	} {
		if !p.Enabled {
			continue
		}

		if p.ClientID == "" || p.ClientSecret == "" {
			return fmt.Errorf("auth.%s requires client_id and client_secret", name)
		}
	}

	for i, p := range c.Auth.Custom {
		if !p.Enabled {
			continue
		}

		if p.Name == "" || p.TokenURL == "" || p.AuthorizationURL == "" || p.UserInfoURL == "" {
			return fmt.Errorf("auth.custom[%d] requires name, authorization_url, token_url and user_info_url", i)
		}

		if p.ClientID == "" || p.ClientSecret == "" {
			return fmt.Errorf("auth.custom[%d] requires client_id and client_secret", i)
		}
	}

	return nil
}
