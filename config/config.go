// config/config.go
package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	FinalizerModeLocal = "local" // finalize_submission runs against our own DB
	FinalizerModeRPC   = "rpc"   // finalize_submission is delegated to the hosted backend
)

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	CDNBaseURL      string
}

// Enabled reports whether enough R2 settings exist to build a client.
func (r R2Config) Enabled() bool {
	return r.AccountID != "" && r.Bucket != ""
}

type Config struct {
	Port           string
	DatabaseURL    string
	ServiceToken   string
	AllowedOrigins []string

	FinalizerMode string
	BackendRPCURL string
	BackendRPCKey string

	AuthServiceURL string
	ProfileSyncURL string

	CacheTTL           time.Duration
	RetroBadgeInterval time.Duration

	R2 R2Config
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("PORT", "5200")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("FINALIZER_MODE", FinalizerModeLocal)
	v.SetDefault("CACHE_TTL", "2m")
	v.SetDefault("RETRO_BADGE_INTERVAL", "6h")

	cfg := &Config{
		Port:               v.GetString("PORT"),
		DatabaseURL:        v.GetString("DATABASE_URL"),
		ServiceToken:       v.GetString("SERVICE_TOKEN"),
		AllowedOrigins:     splitOrigins(v.GetString("ALLOWED_ORIGINS")),
		FinalizerMode:      strings.ToLower(v.GetString("FINALIZER_MODE")),
		BackendRPCURL:      v.GetString("BACKEND_RPC_URL"),
		BackendRPCKey:      v.GetString("BACKEND_RPC_KEY"),
		AuthServiceURL:     v.GetString("AUTH_SERVICE_URL"),
		ProfileSyncURL:     v.GetString("PROFILE_SYNC_URL"),
		CacheTTL:           v.GetDuration("CACHE_TTL"),
		RetroBadgeInterval: v.GetDuration("RETRO_BADGE_INTERVAL"),
		R2: R2Config{
			AccountID:       v.GetString("CLOUDFLARE_ACCOUNT_ID"),
			AccessKeyID:     v.GetString("R2_ACCESS_KEY_ID"),
			AccessKeySecret: v.GetString("R2_ACCESS_KEY_SECRET"),
			Bucket:          v.GetString("R2_BUCKET_NAME"),
			CDNBaseURL:      v.GetString("CDN_BASE_URL"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable not set")
	}
	if c.ServiceToken == "" {
		return fmt.Errorf("SERVICE_TOKEN environment variable not set")
	}
	switch c.FinalizerMode {
	case FinalizerModeLocal:
	case FinalizerModeRPC:
		if c.BackendRPCURL == "" {
			return fmt.Errorf("BACKEND_RPC_URL is required when FINALIZER_MODE=rpc")
		}
	default:
		return fmt.Errorf("unknown FINALIZER_MODE %q (want %s or %s)", c.FinalizerMode, FinalizerModeLocal, FinalizerModeRPC)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive, got %s", c.CacheTTL)
	}
	if c.RetroBadgeInterval <= 0 {
		return fmt.Errorf("RETRO_BADGE_INTERVAL must be positive, got %s", c.RetroBadgeInterval)
	}
	return nil
}

func splitOrigins(raw string) []string {
	var out []string
	for _, origin := range strings.Split(raw, ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			out = append(out, origin)
		}
	}
	return out
}
