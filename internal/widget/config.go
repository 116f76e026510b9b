// Package widget is the embeddable feedback widget: its configuration and a
// public view over one board, backed either by local storage or by a
// remote feedback endpoint.
package widget

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/felixgeelhaar/featureboard/internal/feedback/domain"
)

// ErrInvalidConfig wraps every configuration problem.
var ErrInvalidConfig = errors.New("invalid widget config")

// Position anchors the launcher button.
type Position string

const (
	PositionBottomRight Position = "bottom-right"
	PositionBottomLeft  Position = "bottom-left"
	PositionTopRight    Position = "top-right"
	PositionTopLeft     Position = "top-left"
)

// Theme is the color scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// DataSource selects where the widget reads feedback from.
type DataSource string

const (
	DataSourceLocal  DataSource = "local"
	DataSourceRemote DataSource = "remote"
)

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Config is the embed configuration.
type Config struct {
	Position     Position   `json:"position"`
	Theme        Theme      `json:"theme"`
	PrimaryColor string     `json:"primaryColor"`
	Title        string     `json:"title"`
	Placeholder  string     `json:"placeholder"`
	APIKey       string     `json:"apiKey,omitempty"`
	DataSource   DataSource `json:"dataSource"`
	Endpoint     string     `json:"endpoint,omitempty"`
}

// DefaultConfig returns the stock widget.
func DefaultConfig() Config {
	return Config{
		Position:     PositionBottomRight,
		Theme:        ThemeLight,
		PrimaryColor: "#3B82F6",
		Title:        "Feedback",
		Placeholder:  "Share your feedback...",
		DataSource:   DataSourceLocal,
	}
}

// Merge returns c with every non-empty field of override applied.
func (c Config) Merge(override Config) Config {
	if override.Position != "" {
		c.Position = override.Position
	}
	if override.Theme != "" {
		c.Theme = override.Theme
	}
	if override.PrimaryColor != "" {
		c.PrimaryColor = override.PrimaryColor
	}
	if override.Title != "" {
		c.Title = override.Title
	}
	if override.Placeholder != "" {
		c.Placeholder = override.Placeholder
	}
	if override.APIKey != "" {
		c.APIKey = override.APIKey
	}
	if override.DataSource != "" {
		c.DataSource = override.DataSource
	}
	if override.Endpoint != "" {
		c.Endpoint = override.Endpoint
	}
	return c
}

// Validate checks enums, the color and data source requirements.
func (c Config) Validate() error {
	var errs []error
	switch c.Position {
	case PositionBottomRight, PositionBottomLeft, PositionTopRight, PositionTopLeft:
	default:
		errs = append(errs, fmt.Errorf("unknown position %q", c.Position))
	}
	switch c.Theme {
	case ThemeLight, ThemeDark:
	default:
		errs = append(errs, fmt.Errorf("unknown theme %q", c.Theme))
	}
	if !hexColor.MatchString(c.PrimaryColor) {
		errs = append(errs, fmt.Errorf("primary color %q is not a hex color", c.PrimaryColor))
	}
	if c.APIKey != "" && !domain.IsAPIKey(c.APIKey) {
		errs = append(errs, fmt.Errorf("api key must start with %s", domain.APIKeyPrefix))
	}
	switch c.DataSource {
	case DataSourceLocal:
	case DataSourceRemote:
		if strings.TrimSpace(c.Endpoint) == "" {
			errs = append(errs, errors.New("remote data source needs an endpoint"))
		}
		if c.APIKey == "" {
			errs = append(errs, errors.New("remote data source needs an api key"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown data source %q", c.DataSource))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// Namespace is the data namespace the widget reads and writes.
func (c Config) Namespace() domain.Namespace {
	return domain.ForAPIKey(c.APIKey)
}
