// Package core provides shared constants, configuration, and the calendar
// date key used throughout spacepod.
package core

import (
	"os"
	"path/filepath"
	"time"
)

// API configuration
const (
	APODBaseURL   = "https://api.nasa.gov/planetary/apod"
	OEmbedBaseURL = "https://vimeo.com/api/oembed.json"
	APIKeyEnvVar  = "NASA_API_KEY"
	DefaultAPIKey = "DEMO_KEY"
	ReferenceTZ   = "America/Los_Angeles"
)

// Date formats
const (
	APIDateFmt = "2006-01-02"
)

// Cache policy defaults. The upstream publishes one entry per day, so the
// retention window and poll interval are deliberately coarse.
const (
	// DefaultRetentionDays is how many days an entry survives on disk
	// before the store prunes it.
	DefaultRetentionDays = 2

	// DefaultCheckInterval is the minimum time between upstream polls once
	// a new calendar day has begun in the reference time zone.
	DefaultCheckInterval = time.Hour
)

// Thumbnail request dimensions for the Vimeo oEmbed lookup.
const (
	OEmbedThumbWidth  = 600
	OEmbedThumbHeight = 400
)

// CacheRoot returns the default cache directory path.
func CacheRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".spacepod", "cache")
}

// Version is the current CLI version.
const Version = "0.3.0"
