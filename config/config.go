package config

import (
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/atomic"

	"codeberg.org/mutker/telemetry/errors"
)

const (
	defaultEnvPrefix = "TELEMETRY"

	DefaultLogLevel = LogLevelInfo

	defaultDataDirectory  = "/var/lib/telemetry"
	defaultUserAgent      = "Telemetry/1.0 (Go)"
	defaultAppVersion     = "0.0.0"
	defaultBuildID        = "0"
	defaultUpdateChannel  = "unknown"
	defaultConnectTimeout = 10 * time.Second
	defaultReadTimeout    = 30 * time.Second
	defaultUploadInterval = time.Hour

	defaultMaxEventsPerPing       = 500
	defaultMinimumEventsForUpload = 3
	defaultMaximumPingsPerType    = 40
)

// Configuration is the shared settings object read by every telemetry
// operation. All fields are fixed once loaded; only the collection and
// upload switches may be toggled at runtime, through their accessors.
// Construct it with DefaultConfig or Load.
type Configuration struct {
	// Application identity, stamped into every ping upload path.
	AppName       string `mapstructure:"app_name"`
	AppVersion    string `mapstructure:"app_version"`
	BuildID       string `mapstructure:"build_id"`
	UpdateChannel string `mapstructure:"update_channel"`

	// Transport settings.
	ServerEndpoint string        `mapstructure:"server_endpoint"`
	UserAgent      string        `mapstructure:"user_agent"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`

	// Local state.
	DataDirectory string   `mapstructure:"data_directory"`
	LogLevel      LogLevel `mapstructure:"log_level"`

	// Batching and upload policy.
	MaxEventsPerPing       int           `mapstructure:"max_events_per_ping"`
	MinimumEventsForUpload int           `mapstructure:"minimum_events_for_upload"`
	MaximumPingsPerType    int           `mapstructure:"maximum_pings_per_type"`
	UploadInterval         time.Duration `mapstructure:"upload_interval"`

	// Runtime opt-outs; the zero values leave collection and upload enabled.
	collectionOptOut atomic.Bool
	uploadOptOut     atomic.Bool
}

// DefaultConfig returns a Configuration with default values
func DefaultConfig() *Configuration {
	return &Configuration{
		AppName:                defaultAppName(),
		AppVersion:             defaultAppVersion,
		BuildID:                defaultBuildID,
		UpdateChannel:          defaultUpdateChannel,
		UserAgent:              defaultUserAgent,
		ConnectTimeout:         defaultConnectTimeout,
		ReadTimeout:            defaultReadTimeout,
		DataDirectory:          defaultDataDirectory,
		LogLevel:               DefaultLogLevel,
		MaxEventsPerPing:       defaultMaxEventsPerPing,
		MinimumEventsForUpload: defaultMinimumEventsForUpload,
		MaximumPingsPerType:    defaultMaximumPingsPerType,
		UploadInterval:         defaultUploadInterval,
	}
}

func defaultAppName() string {
	return filepath.Base(os.Args[0])
}

// Load reads configuration from a TOML file, environment variables and
// programmatic overrides, in increasing order of precedence. The file is
// taken from WithConfigFile, then from the <prefix>_CONFIG environment
// variable, then searched for as telemetry.toml in /etc/telemetry and the
// working directory.
func Load(opts ...Option) (*Configuration, error) {
	errFactory := errors.New()

	o := &options{envPrefix: defaultEnvPrefix}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidArgument, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	configPath := o.configPath
	if configPath == "" {
		configPath = os.Getenv(o.envPrefix + "_CONFIG")
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errFactory.Wrap(ErrReadConfig, err)
		}
	} else {
		v.SetConfigName("telemetry")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc/telemetry")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, errFactory.Wrap(ErrReadConfig, err)
			}
		}
	}

	v.SetEnvPrefix(o.envPrefix)
	v.AutomaticEnv()

	for key, value := range o.overrides {
		v.Set(key, value)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}
	cfg.SetCollectionEnabled(v.GetBool("collection_enabled"))
	cfg.SetUploadEnabled(v.GetBool("upload_enabled"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", defaultAppName())
	v.SetDefault("app_version", defaultAppVersion)
	v.SetDefault("build_id", defaultBuildID)
	v.SetDefault("update_channel", defaultUpdateChannel)
	v.SetDefault("server_endpoint", "")
	v.SetDefault("user_agent", defaultUserAgent)
	v.SetDefault("connect_timeout", defaultConnectTimeout)
	v.SetDefault("read_timeout", defaultReadTimeout)
	v.SetDefault("data_directory", defaultDataDirectory)
	v.SetDefault("log_level", string(DefaultLogLevel))
	v.SetDefault("max_events_per_ping", defaultMaxEventsPerPing)
	v.SetDefault("minimum_events_for_upload", defaultMinimumEventsForUpload)
	v.SetDefault("maximum_pings_per_type", defaultMaximumPingsPerType)
	v.SetDefault("upload_interval", defaultUploadInterval)
	v.SetDefault("collection_enabled", true)
	v.SetDefault("upload_enabled", true)
}

// Validate checks if the configuration is valid
func (c *Configuration) Validate() error {
	errFactory := errors.New()

	if c.AppName == "" || c.AppVersion == "" {
		return errFactory.New(ErrMissingIdentity)
	}
	if c.DataDirectory == "" {
		return errFactory.New(ErrMissingDataDir)
	}
	if !c.LogLevel.IsValid() {
		return errFactory.WithData(ErrInvalidLogLevel, c.LogLevel)
	}
	if c.ServerEndpoint != "" {
		u, err := url.Parse(c.ServerEndpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return errFactory.WithData(ErrInvalidEndpoint, c.ServerEndpoint)
		}
	}
	if c.MaxEventsPerPing < 1 || c.MinimumEventsForUpload < 1 || c.MaximumPingsPerType < 1 {
		return errFactory.WithData(ErrInvalidThreshold, struct {
			MaxEventsPerPing       int
			MinimumEventsForUpload int
			MaximumPingsPerType    int
		}{c.MaxEventsPerPing, c.MinimumEventsForUpload, c.MaximumPingsPerType})
	}
	if c.ConnectTimeout <= 0 || c.ReadTimeout <= 0 || c.UploadInterval <= 0 {
		return errFactory.WithData(ErrInvalidTimeout, struct {
			ConnectTimeout time.Duration
			ReadTimeout    time.Duration
			UploadInterval time.Duration
		}{c.ConnectTimeout, c.ReadTimeout, c.UploadInterval})
	}

	return nil
}

// IsCollectionEnabled reports whether event and measurement collection is
// currently enabled.
func (c *Configuration) IsCollectionEnabled() bool {
	return !c.collectionOptOut.Load()
}

// SetCollectionEnabled toggles collection at runtime.
func (c *Configuration) SetCollectionEnabled(enabled bool) {
	c.collectionOptOut.Store(!enabled)
}

// IsUploadEnabled reports whether scheduling uploads is currently enabled.
func (c *Configuration) IsUploadEnabled() bool {
	return !c.uploadOptOut.Load()
}

// SetUploadEnabled toggles upload scheduling at runtime.
func (c *Configuration) SetUploadEnabled(enabled bool) {
	c.uploadOptOut.Store(!enabled)
}
