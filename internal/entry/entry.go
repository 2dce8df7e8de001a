// Package entry models one day's astronomy picture: the parsed metadata, the
// classified media asset, and the filenames the cache stores it under.
package entry

import (
	"encoding/json"
	"image"
	"os"
	"path/filepath"

	// Decoders for the image formats the upstream serves.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/jbandes/spacepod-go/internal/core"
)

// MetadataExt is the extension of the persisted metadata file. The image
// file is the bare date key with no extension.
const MetadataExt = ".json"

// RawEntry mirrors one element of the upstream response array. It is also
// the persisted metadata format, so the store layout stays readable by
// older builds.
type RawEntry struct {
	Date        string `json:"date"`
	HDURL       string `json:"hdurl,omitempty"`
	URL         string `json:"url,omitempty"`
	MediaType   string `json:"media_type,omitempty"`
	Title       string `json:"title,omitempty"`
	Copyright   string `json:"copyright,omitempty"`
	Explanation string `json:"explanation,omitempty"`
}

// Entry is the parsed and enriched record for one day's content. It is a
// plain value; image bytes are loaded on demand via LoadImage, never
// memoized here.
type Entry struct {
	Date        core.YearMonthDay
	Title       string
	Copyright   string
	Explanation string
	Asset       Asset

	// DataFilename and ImageFilename are derived from Date alone, so the
	// store layout is reconstructible from the key.
	DataFilename  string
	ImageFilename string

	raw RawEntry
}

// FromRaw builds an Entry from a raw API object. The object must carry a
// parseable date and at least one of the two URL fields; the HD URL wins
// when both are present.
func FromRaw(raw RawEntry) (Entry, error) {
	date, err := core.ParseYearMonthDay(raw.Date)
	if err != nil {
		return Entry{}, err
	}

	remoteURL := raw.HDURL
	if remoteURL == "" {
		remoteURL = raw.URL
	}
	if remoteURL == "" {
		return Entry{}, ErrMissingAssetURL
	}

	key := date.String()
	return Entry{
		Date:          date,
		Title:         raw.Title,
		Copyright:     raw.Copyright,
		Explanation:   raw.Explanation,
		Asset:         ClassifyAsset(raw.MediaType, remoteURL),
		DataFilename:  key + MetadataExt,
		ImageFilename: key,
		raw:           raw,
	}, nil
}

// DecodeMetadata parses a persisted metadata file back into an Entry.
func DecodeMetadata(data []byte) (Entry, error) {
	var raw RawEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return Entry{}, err
	}
	return FromRaw(raw)
}

// EncodeMetadata renders the entry's persisted metadata form.
func (e Entry) EncodeMetadata() ([]byte, error) {
	return json.MarshalIndent(e.raw, "", "  ")
}

// RemoteURL returns the URL the entry's asset was classified from.
func (e Entry) RemoteURL() string {
	return e.Asset.SourceURL()
}

// LoadImage decodes the entry's stored image bytes from the given store
// directory. The result is not cached; callers that need a decoded bitmap
// repeatedly should keep their own reference.
func (e Entry) LoadImage(dir string) (image.Image, error) {
	f, err := os.Open(filepath.Join(dir, e.ImageFilename))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, &InvalidImageError{Err: err}
	}
	return img, nil
}

// ValidateImageFile checks that the file at path decodes as a supported
// image format. Used to reject corrupt downloads before they reach the
// store.
func ValidateImageFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, _, err := image.DecodeConfig(f); err != nil {
		return &InvalidImageError{Err: err}
	}
	return nil
}
