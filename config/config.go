// Package config loads runtime settings for the aibom tools.
//
// Precedence, highest first:
//  1. AIBOM_* environment variables (dots become underscores, e.g.
//     AIBOM_POLICY_MODE, AIBOM_RPC_LISTEN)
//  2. the config file, when one is given or .ai-bom/config.yaml exists
//  3. built-in defaults
//
// Example:
//
//	keys_dir: .ai-bom/keys
//	log:
//	  level: debug
//	  file: /var/log/aibom/aibom.log
//	policy:
//	  mode: strict
//	  trusted_keys: [/etc/aibom/release.pub]
//	rpc:
//	  listen: 127.0.0.1:7443
//	  timeout: 5s
package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"aibom.dev/ledger/compliance"
	"aibom.dev/ledger/keys"
)

// DefaultFile is the project-level config file looked up when no path is
// given.
const DefaultFile = ".ai-bom/config.yaml"

// Config is the full settings tree.
type Config struct {
	KeysDir string       `mapstructure:"keys_dir"`
	Log     LogConfig    `mapstructure:"log"`
	Policy  PolicyConfig `mapstructure:"policy"`
	RPC     RPCConfig    `mapstructure:"rpc"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level string `mapstructure:"level"`
	// JSON selects JSON console output instead of the human console writer.
	JSON bool `mapstructure:"json"`
	// File enables a rotating log file in addition to the console.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// PolicyConfig configures the deployment gate.
type PolicyConfig struct {
	Mode        string   `mapstructure:"mode"`
	TrustedKeys []string `mapstructure:"trusted_keys"`
}

// RPCConfig configures the verification daemon and its clients.
type RPCConfig struct {
	Listen      string        `mapstructure:"listen"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxMsgBytes int           `mapstructure:"max_msg_bytes"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("keys_dir", keys.DefaultDirectory)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", true)

	v.SetDefault("policy.mode", "permissive")
	v.SetDefault("policy.trusted_keys", []string{})

	v.SetDefault("rpc.listen", "127.0.0.1:7443")
	v.SetDefault("rpc.timeout", "5s")
	v.SetDefault("rpc.max_msg_bytes", 0)
}

func newViperInstance() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("AIBOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration. An empty path falls back to DefaultFile when it
// exists; a missing explicit path is an error.
func Load(path string) (*Config, error) {
	v := newViperInstance()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{
		KeysDir: keys.DefaultDirectory,
		Log:     LogConfig{Level: "info", MaxSizeMB: 10, MaxBackups: 3, MaxAgeDays: 28, Compress: true},
		Policy:  PolicyConfig{Mode: "permissive"},
		RPC:     RPCConfig{Listen: "127.0.0.1:7443", Timeout: 5 * time.Second},
	}
	return cfg
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.KeysDir) == "" {
		return stderrors.New("config: keys_dir is required")
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		return fmt.Errorf("config: invalid log.level %q", c.Log.Level)
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		return stderrors.New("config: log rotation limits must not be negative")
	}
	if _, err := compliance.ParseMode(c.Policy.Mode); err != nil {
		return fmt.Errorf("config: policy.mode: %w", err)
	}
	for _, k := range c.Policy.TrustedKeys {
		if strings.TrimSpace(k) == "" {
			return stderrors.New("config: policy.trusted_keys contains an empty path")
		}
	}
	if c.RPC.Timeout < 0 {
		return stderrors.New("config: rpc.timeout must not be negative")
	}
	if c.RPC.MaxMsgBytes < 0 {
		return stderrors.New("config: rpc.max_msg_bytes must not be negative")
	}
	return nil
}

// ComplianceMode returns the parsed policy mode.
func (c Config) ComplianceMode() compliance.ComplianceMode {
	m, _ := compliance.ParseMode(c.Policy.Mode)
	return m
}

// ResolveKeysDir returns KeysDir joined onto base when it is relative.
func (c Config) ResolveKeysDir(base string) string {
	if filepath.IsAbs(c.KeysDir) || base == "" {
		return c.KeysDir
	}
	return filepath.Join(base, c.KeysDir)
}
