package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/example/court-booker/internal/domain/booking"
	"github.com/example/court-booker/internal/infrastructure/activenet"
)

type Config struct {
	BaseURL string
	GroupID int

	Headless    bool
	WaitTimeout time.Duration
	SettleDelay time.Duration

	PartialPolicy booking.PartialPolicy

	Production bool

	Web WebConfig
}

type WebConfig struct {
	Addr string

	SessionHashKey  []byte
	SessionBlockKey []byte

	// AccessHash is the bcrypt hash of the single access password that
	// protects the web form.
	AccessHash string
}

// Load reads courtbook.yaml from the working directory when present and
// lets COURTBOOK_* environment variables override everything.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName("courtbook")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("courtbook")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("site.base_url", activenet.DefaultBaseURL)
	v.SetDefault("site.group_id", activenet.DefaultGroupID)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.wait_timeout", "15s")
	v.SetDefault("browser.settle_delay", "2s")
	v.SetDefault("booking.partial_policy", string(booking.PartialKeep))
	v.SetDefault("production", false)
	v.SetDefault("web.addr", ":8080")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	policy, err := booking.ParsePartialPolicy(v.GetString("booking.partial_policy"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		BaseURL:       strings.TrimRight(v.GetString("site.base_url"), "/"),
		GroupID:       v.GetInt("site.group_id"),
		Headless:      v.GetBool("browser.headless"),
		WaitTimeout:   v.GetDuration("browser.wait_timeout"),
		SettleDelay:   v.GetDuration("browser.settle_delay"),
		PartialPolicy: policy,
		Production:    v.GetBool("production"),
		Web: WebConfig{
			Addr:       v.GetString("web.addr"),
			AccessHash: v.GetString("web.access_hash"),
		},
	}

	if s := v.GetString("web.session_hash_key"); s != "" {
		cfg.Web.SessionHashKey, err = decodeB64("web.session_hash_key", s)
		if err != nil {
			return Config{}, err
		}
	}
	if s := v.GetString("web.session_block_key"); s != "" {
		cfg.Web.SessionBlockKey, err = decodeB64("web.session_block_key", s)
		if err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

// ValidateWeb checks the extra settings the serve command needs.
func (c Config) ValidateWeb() error {
	if len(c.Web.SessionHashKey) == 0 {
		return fmt.Errorf("web.session_hash_key is required (base64)")
	}
	if c.Web.AccessHash == "" {
		return fmt.Errorf("web.access_hash is required (bcrypt hash of the access password)")
	}
	return nil
}

func decodeB64(key, s string) ([]byte, error) {
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	b, err := base64.RawStdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid base64: %w", key, err)
	}
	return b, nil
}
