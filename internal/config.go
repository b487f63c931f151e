package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/quikpix/internal/catalog"
	"github.com/starford/quikpix/internal/gallery"
	"github.com/starford/quikpix/internal/viewer"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Library LibraryConfig     `yaml:"library"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Auth    AuthConfig        `yaml:"auth"`
	Viewer  ViewerConfig      `yaml:"viewer"`
	Events  EventsConfig      `yaml:"events"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Library.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Viewer.Validate(); err != nil {
		return err
	}
	return c.Events.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// LibraryConfig describes the image library and how it is aggregated.
type LibraryConfig struct {
	// Root is the directory tree scanned for JPEG and PNG images.
	Root string `yaml:"root"`
	// ThumbnailCap is the number of thumbnail refs kept per category.
	ThumbnailCap int `yaml:"thumbnail_cap"`
	// ResultLimit caps a category image listing; 0 means unlimited.
	ResultLimit int `yaml:"result_limit"`
	// RefBase prefixes image refs; refs resolve under the HTTP API.
	RefBase string `yaml:"ref_base"`
	// FriendlyNames maps folder keys to display names.
	FriendlyNames map[string]string `yaml:"friendly_names"`
}

// Validate validates the library configuration.
func (c *LibraryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.ThumbnailCap, validation.Min(0), validation.Max(200)),
		validation.Field(&c.ResultLimit, validation.Min(0)),
		validation.Field(&c.RefBase, validation.Required),
	)
}

// GalleryOptions converts the section into library options.
func (c *LibraryConfig) GalleryOptions() gallery.Options {
	return gallery.Options{
		ThumbnailCap:  c.ThumbnailCap,
		ResultLimit:   c.ResultLimit,
		FriendlyNames: c.FriendlyNames,
		RefBase:       c.RefBase,
	}
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// ViewerConfig holds the gesture tuning of image viewers.
type ViewerConfig struct {
	MinScale        float64       `yaml:"min_scale"`
	MaxScale        float64       `yaml:"max_scale"`
	DoubleTapScale  float64       `yaml:"double_tap_scale"`
	SwipeThreshold  float64       `yaml:"swipe_threshold"`
	ControlsTimeout time.Duration `yaml:"controls_timeout"`
	MaxSessions     int           `yaml:"max_sessions"`
}

// Validate validates the viewer configuration.
func (c *ViewerConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MinScale, validation.Required, validation.Min(0.1), validation.Max(1.0)),
		validation.Field(&c.MaxScale, validation.Required, validation.Min(1.0), validation.Max(20.0)),
		validation.Field(&c.DoubleTapScale, validation.Required, validation.Min(1.0), validation.Max(c.MaxScale)),
		validation.Field(&c.SwipeThreshold, validation.Required, validation.Min(1.0)),
		validation.Field(&c.ControlsTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.MaxSessions, validation.Min(1)),
	)
}

// Tuning converts the section into viewer tuning.
func (c *ViewerConfig) Tuning() viewer.Config {
	return viewer.Config{
		MinScale:        c.MinScale,
		MaxScale:        c.MaxScale,
		DoubleTapScale:  c.DoubleTapScale,
		SwipeThreshold:  c.SwipeThreshold,
		ControlsTimeout: c.ControlsTimeout,
	}
}

// EventsConfig holds SSE push settings.
type EventsConfig struct {
	// CategoriesThrottle is the minimum gap between categories.updated events.
	CategoriesThrottle time.Duration `yaml:"categories_throttle"`
	// Heartbeat is the SSE keep-alive interval; 0 disables it.
	Heartbeat time.Duration `yaml:"heartbeat"`
}

// Validate validates the events configuration.
func (c *EventsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.CategoriesThrottle, validation.Min(time.Duration(0))),
		validation.Field(&c.Heartbeat, validation.Min(time.Duration(0))),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Library: LibraryConfig{
			Root:         "./photos",
			ThumbnailCap: catalog.DefaultThumbnailCap,
			ResultLimit:  500,
			RefBase:      "/api/images",
		},
		SQLite: SQLiteConfig{
			Path: "./quikpix.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Viewer: ViewerConfig{
			MinScale:        1,
			MaxScale:        5,
			DoubleTapScale:  2.5,
			SwipeThreshold:  150,
			ControlsTimeout: 5 * time.Second,
			MaxSessions:     gallery.DefaultMaxSessions,
		},
		Events: EventsConfig{
			CategoriesThrottle: 2 * time.Second,
			Heartbeat:          30 * time.Second,
		},
	}
}
