// Package config loads the ol-calendar config.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Azure holds the Graph application settings.
type Azure struct {
	// TenantID or "organizations"/"common".
	TenantID string `mapstructure:"tenant_id" yaml:"tenant_id"`
	// ClientID of the Azure AD application.
	ClientID string `mapstructure:"client_id" yaml:"client_id"`
	// Username is the login hint; the authenticated account is checked
	// against it after sign-in.
	Username string `mapstructure:"username" yaml:"username"`
	// Scopes requested on the device-code flow; short names are
	// qualified against the Graph resource.
	Scopes []string `mapstructure:"scopes" yaml:"scopes"`
	// AzureRef optionally points to a scy EncodedResource holding a
	// cred.Azure secret supplying client/tenant ID, e.g.
	// "~/.secret/azure.yaml|blowfish://default".
	AzureRef string `mapstructure:"azure_ref" yaml:"azure_ref"`
}

// Calendar selects what is fetched and how times are rendered.
type Calendar struct {
	// Name of the calendar to read; empty means the default calendar.
	Name string `mapstructure:"name" yaml:"name"`
	// DaysHistory/DaysFuture bound the calendar view around today.
	DaysHistory int `mapstructure:"days_history" yaml:"days_history"`
	DaysFuture  int `mapstructure:"days_future" yaml:"days_future"`
	// Timezone is the IANA zone org timestamps are rendered in;
	// empty means the process-local zone.
	Timezone string `mapstructure:"timezone" yaml:"timezone"`
	// SkipPatterns are case-insensitive regexes; events whose subject
	// or preview matches any of them are dropped.
	SkipPatterns []string `mapstructure:"skip_patterns" yaml:"skip_patterns"`
}

// Org controls the output document.
type Org struct {
	// File is the default org file path; the CLI argument overrides it.
	File string `mapstructure:"file" yaml:"file"`
	// Tags attached to every entry.
	Tags []string `mapstructure:"tags" yaml:"tags"`
}

// Storage locates cached auth records.
type Storage struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// Config is the full config.yaml shape.
type Config struct {
	Azure    Azure    `mapstructure:"azure" yaml:"azure"`
	Calendar Calendar `mapstructure:"calendar" yaml:"calendar"`
	Org      Org      `mapstructure:"org" yaml:"org"`
	Storage  Storage  `mapstructure:"storage" yaml:"storage"`

	location *time.Location
	skip     []*regexp.Regexp
}

var defaultSkipPatterns = []string{`^Canceled:`, `PTO`, `out of office`, `OOO`}

// Load reads config.yaml. With an explicit path the file must exist;
// otherwise the user config dir and the working directory are searched
// and a missing file just yields defaults (flags may still supply the
// client ID).
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "ol-calendar"))
		}
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix("OL_CALENDAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only covers keys viper already knows about; bind the
	// ones without defaults so OL_CALENDAR_AZURE_CLIENT_ID and friends
	// reach Unmarshal.
	for _, key := range []string{
		"azure.client_id", "azure.username", "azure.azure_ref",
		"calendar.name", "calendar.timezone", "org.file",
	} {
		_ = v.BindEnv(key)
	}

	v.SetDefault("azure.tenant_id", "organizations")
	v.SetDefault("calendar.days_history", 1)
	v.SetDefault("calendar.days_future", 7)
	v.SetDefault("calendar.skip_patterns", defaultSkipPatterns)
	v.SetDefault("org.tags", []string{"meeting", "work"})
	v.SetDefault("storage.dir", defaultStorageDir())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.init(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expandPath resolves env vars and a leading ~ in configured paths.
func expandPath(p string) string {
	if p == "" {
		return p
	}
	p = os.ExpandEnv(p)
	if strings.HasPrefix(p, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			if p == "~" {
				p = home
			} else if strings.HasPrefix(p, "~/") {
				p = filepath.Join(home, p[2:])
			}
		}
	}
	return p
}

func defaultStorageDir() string {
	dir, _ := os.UserConfigDir()
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, "ol-calendar")
}

// init validates the loaded values and compiles derived state.
func (c *Config) init() error {
	if c.Calendar.DaysHistory < 0 || c.Calendar.DaysFuture < 0 {
		return fmt.Errorf("calendar.days_history/days_future must not be negative")
	}
	c.Org.File = expandPath(c.Org.File)
	c.Storage.Dir = expandPath(c.Storage.Dir)
	c.location = time.Local
	if c.Calendar.Timezone != "" {
		loc, err := time.LoadLocation(c.Calendar.Timezone)
		if err != nil {
			return fmt.Errorf("calendar.timezone: %w", err)
		}
		c.location = loc
	}
	c.skip = c.skip[:0]
	for _, pattern := range c.Calendar.SkipPatterns {
		expr, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return fmt.Errorf("calendar.skip_patterns %q: %w", pattern, err)
		}
		c.skip = append(c.skip, expr)
	}
	return nil
}

// Location returns the zone org timestamps are rendered in.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// SkipExprs returns the compiled skip patterns.
func (c *Config) SkipExprs() []*regexp.Regexp {
	return c.skip
}

// Window returns the calendar view bounds around now: the start of the
// first history day to the end of the last future day, UTC.
func (c *Config) Window(now time.Time) (start, end time.Time) {
	day := now.UTC().Truncate(24 * time.Hour)
	start = day.AddDate(0, 0, -c.Calendar.DaysHistory)
	end = day.AddDate(0, 0, c.Calendar.DaysFuture+1).Add(-time.Millisecond)
	return start, end
}
