// Package config resolves devserve settings from flags, DEVSERVE_* environment
// variables and an optional config file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/igormichalak/devserve/internal/units"
)

const (
	DefaultPort     = "8080"
	DefaultDebounce = 100 * time.Millisecond
	EnvPrefix       = "DEVSERVE"
)

var (
	ErrMissingRoot  = errors.New("please specify the root directory")
	ErrNotDirectory = errors.New("not a directory")
	ErrInvalidPort  = errors.New("invalid port")
)

// Config holds the resolved settings.
type Config struct {
	Root      string
	Port      string
	Expose    bool
	Reload    bool
	Debounce  time.Duration
	Ignore    []string
	LogFormat string
	LogLevel  string
	// Unit is the default unit of the status endpoint. Empty picks the
	// largest unit that fits.
	Unit units.Unit
	// ConfigFile is the file the settings were read from, if any.
	ConfigFile string
}

// Addr returns the listen address. Unless Expose is set only the loopback
// interface is used.
func (c *Config) Addr() string {
	if c.Expose {
		return ":" + c.Port
	}
	return "localhost:" + c.Port
}

// FlagSet returns the command line flags understood by Load.
func FlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("devserve", pflag.ContinueOnError)
	flags.SortFlags = false
	flags.StringP("port", "p", DefaultPort, "HTTP server port")
	flags.Bool("expose", false, "expose the server to all interfaces")
	flags.Bool("reload", false, "inject auto reload into HTML files")
	flags.Duration("debounce", DefaultDebounce, "quiet period before a change triggers a reload")
	flags.StringSlice("ignore", []string{".git", "node_modules"}, "file or directory names the watcher skips")
	flags.String("log-format", "console", "log format: console or json")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.String("unit", "", "default unit of the status endpoint (year ... second)")
	flags.StringP("config", "c", "", "config file (yaml, json or toml)")
	return flags
}

// Load parses args and resolves the configuration. The first positional
// argument is the root directory; it may also come from the root key.
func Load(args []string) (*Config, error) {
	flags := FlagSet()
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}
	if err := v.BindEnv("root"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %q: %w", file, err)
		}
	}

	cfg := &Config{
		Root:       flags.Arg(0),
		Port:       v.GetString("port"),
		Expose:     v.GetBool("expose"),
		Reload:     v.GetBool("reload"),
		Debounce:   v.GetDuration("debounce"),
		Ignore:     splitList(v.GetStringSlice("ignore")),
		LogFormat:  v.GetString("log-format"),
		LogLevel:   v.GetString("log-level"),
		ConfigFile: v.ConfigFileUsed(),
	}
	if cfg.Root == "" {
		cfg.Root = v.GetString("root")
	}

	if s := v.GetString("unit"); s != "" {
		u, err := units.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("unit: %w", err)
		}
		cfg.Unit = u
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// splitList splits every entry on commas. Values from the environment reach
// viper as one string that it only splits on whitespace.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, entry := range in {
		for _, part := range strings.Split(entry, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate checks the port and that Root is an existing directory.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("%w: empty", ErrInvalidPort)
	}
	for _, ch := range c.Port {
		if ch < '0' || ch > '9' {
			return fmt.Errorf("%w: port contains a character that is not a digit: %q", ErrInvalidPort, string(ch))
		}
	}

	if c.Root == "" {
		return ErrMissingRoot
	}
	fi, err := os.Stat(c.Root)
	if err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return fmt.Errorf("can't open %q: %w", pathErr.Path, pathErr.Err)
		}
		return err
	}
	if !fi.IsDir() {
		return fmt.Errorf("%q: %w", c.Root, ErrNotDirectory)
	}
	return nil
}
