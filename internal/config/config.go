package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Text backends
	BackendFitz       = "fitz"
	BackendLedongthuc = "ledongthuc"

	// Log formats
	LogFormatConsole = "console"
	LogFormatJSON    = "json"

	// Default values
	DefaultImagesRoot    = "."
	DefaultDPI           = 150
	DefaultMaxDPI        = 1200
	DefaultPort          = 8080
	DefaultHost          = "127.0.0.1"
	DefaultLogLevel      = "info"
	DefaultMaxFileSize   = 100 * 1024 * 1024 // 100MB
	DefaultLibraryID     = "handball-training-library"
	DefaultMinAppVersion = "1.0.0"

	// Directory permissions
	DefaultDirPerm = 0o750

	// EnvPrefix is prepended to every environment variable, e.g. HBLIB_DPI
	EnvPrefix = "HBLIB"
	// ConfigName is the optional YAML config file looked up in the working directory
	ConfigName = "hblib"
)

// Config holds all configuration for the hblib toolchain
type Config struct {
	// Extraction
	ImagesRoot     string
	DPI            float64
	TextBackend    string
	EmbeddedImages bool
	MaxFileSize    int64 // Maximum PDF file size in bytes
	PhaseRulesPath string

	// Release metadata
	LibraryID     string
	MinAppVersion string

	// Preview server
	Host string
	Port int

	// Application
	Version    string
	ServerName string
	LogLevel   string
	LogFormat  string
	ConfigFile string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		ImagesRoot:    DefaultImagesRoot,
		DPI:           DefaultDPI,
		TextBackend:   BackendFitz,
		MaxFileSize:   DefaultMaxFileSize,
		LibraryID:     DefaultLibraryID,
		MinAppVersion: DefaultMinAppVersion,
		Host:          DefaultHost,
		Port:          DefaultPort,
		Version:       "1.0.0",
		ServerName:    "hblib",
		LogLevel:      DefaultLogLevel,
		LogFormat:     LogFormatConsole,
	}
}

// DefineFlags registers the shared flags on fs, usually a cobra command's
// persistent flag set
func DefineFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.String("config", cfg.ConfigFile, "Config file (default ./hblib.yaml if present)")
	fs.String("images-root", cfg.ImagesRoot, "Directory that contains drill_images/")
	fs.Float64("dpi", cfg.DPI, "Page render resolution")
	fs.String("text-backend", cfg.TextBackend, "Text extraction backend (fitz, ledongthuc)")
	fs.Bool("embedded-images", cfg.EmbeddedImages, "Also extract embedded images")
	fs.Int64("max-file-size", cfg.MaxFileSize, "Maximum PDF file size in bytes")
	fs.String("phase-rules", cfg.PhaseRulesPath, "YAML file overriding the phase keyword table")
	fs.String("library-id", cfg.LibraryID, "Library id written to release manifests")
	fs.String("min-app-version", cfg.MinAppVersion, "Minimum app version written to release manifests")
	fs.String("host", cfg.Host, "Preview server host address")
	fs.Int("port", cfg.Port, "Preview server port")
	fs.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.String("log-format", cfg.LogFormat, "Log format (console, json)")
}

var keys = []string{
	"config", "images-root", "dpi", "text-backend", "embedded-images", "max-file-size",
	"phase-rules", "library-id", "min-app-version", "host", "port", "log-level", "log-format",
}

// LoadDotEnv loads KEY=VALUE pairs from path into the environment. A missing
// file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load resolves the configuration from defaults, the optional config file,
// HBLIB_* environment variables and flags, in increasing precedence
func Load(flags *pflag.FlagSet) (*Config, error) {
	cfg := DefaultConfig()
	v := viper.New()

	setupViperEnvironment(v, cfg)
	if flags != nil {
		bindFlagsToViper(v, flags)
	}

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	populateConfigFromViper(v, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(v *viper.Viper, cfg *Config) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("config", cfg.ConfigFile)
	v.SetDefault("images-root", cfg.ImagesRoot)
	v.SetDefault("dpi", cfg.DPI)
	v.SetDefault("text-backend", cfg.TextBackend)
	v.SetDefault("embedded-images", cfg.EmbeddedImages)
	v.SetDefault("max-file-size", cfg.MaxFileSize)
	v.SetDefault("phase-rules", cfg.PhaseRulesPath)
	v.SetDefault("library-id", cfg.LibraryID)
	v.SetDefault("min-app-version", cfg.MinAppVersion)
	v.SetDefault("host", cfg.Host)
	v.SetDefault("port", cfg.Port)
	v.SetDefault("log-level", cfg.LogLevel)
	v.SetDefault("log-format", cfg.LogFormat)
}

// bindFlagsToViper binds the flags that exist in fs
func bindFlagsToViper(v *viper.Viper, fs *pflag.FlagSet) {
	for _, key := range keys {
		if f := fs.Lookup(key); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
}

// readConfigFile reads an explicit --config file, or hblib.yaml from the
// working directory when it exists
func readConfigFile(v *viper.Viper) error {
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName(ConfigName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(v *viper.Viper, cfg *Config) {
	cfg.ConfigFile = v.ConfigFileUsed()
	cfg.ImagesRoot = v.GetString("images-root")
	cfg.DPI = v.GetFloat64("dpi")
	cfg.TextBackend = strings.ToLower(v.GetString("text-backend"))
	cfg.EmbeddedImages = v.GetBool("embedded-images")
	cfg.MaxFileSize = v.GetInt64("max-file-size")
	cfg.PhaseRulesPath = v.GetString("phase-rules")
	cfg.LibraryID = v.GetString("library-id")
	cfg.MinAppVersion = v.GetString("min-app-version")
	cfg.Host = v.GetString("host")
	cfg.Port = v.GetInt("port")
	cfg.LogLevel = strings.ToLower(v.GetString("log-level"))
	cfg.LogFormat = strings.ToLower(v.GetString("log-format"))
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.ImagesRoot == "" {
		return errors.New("images root cannot be empty")
	}

	if info, err := os.Stat(c.ImagesRoot); err == nil && !info.IsDir() {
		return fmt.Errorf("images root is not a directory: %s", c.ImagesRoot)
	} else if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cannot access images root %s: %w", c.ImagesRoot, err)
	}

	if c.DPI <= 0 || c.DPI > DefaultMaxDPI {
		return fmt.Errorf("dpi must be between 1 and %d", DefaultMaxDPI)
	}

	if c.TextBackend != BackendFitz && c.TextBackend != BackendLedongthuc {
		return fmt.Errorf("invalid text backend: %s (must be one of: fitz, ledongthuc)", c.TextBackend)
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	if c.Port < 1 || c.Port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}

	if c.LibraryID == "" {
		return errors.New("library id cannot be empty")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	if c.LogFormat != LogFormatConsole && c.LogFormat != LogFormatJSON {
		return fmt.Errorf("invalid log format: %s (must be one of: console, json)", c.LogFormat)
	}

	return nil
}

// EnsureImagesRoot creates the images root if it does not exist yet
func (c *Config) EnsureImagesRoot() error {
	if err := os.MkdirAll(c.ImagesRoot, DefaultDirPerm); err != nil {
		return fmt.Errorf("cannot create images root %s: %w", c.ImagesRoot, err)
	}
	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{ImagesRoot: %s, DPI: %g, TextBackend: %s, EmbeddedImages: %t, MaxFileSize: %d, LogLevel: %s, LogFormat: %s}",
		c.ImagesRoot, c.DPI, c.TextBackend, c.EmbeddedImages, c.MaxFileSize, c.LogLevel, c.LogFormat)
}
