package entry

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
)

// Asset is the classified remote media reference for an entry. It is a
// closed union: ClassifyAsset maps every (mediaType, url) pair to exactly
// one of the four variants and never fails.
type Asset interface {
	// SourceURL returns the remote URL the asset was classified from.
	SourceURL() string

	sealed()
}

// ImageAsset is a direct link to image bytes.
type ImageAsset struct {
	URL string
}

// YouTubeAsset is a YouTube-hosted video identified by its embed id.
type YouTubeAsset struct {
	ID  string
	URL string
}

// VimeoAsset is a Vimeo-hosted video identified by its watch id. Resolving
// its thumbnail requires an oEmbed lookup against the original URL.
type VimeoAsset struct {
	ID  string
	URL string
}

// UnknownAsset is anything spacepod cannot display.
type UnknownAsset struct {
	URL string
}

func (a ImageAsset) SourceURL() string   { return a.URL }
func (a YouTubeAsset) SourceURL() string { return a.URL }
func (a VimeoAsset) SourceURL() string   { return a.URL }
func (a UnknownAsset) SourceURL() string { return a.URL }

func (ImageAsset) sealed()   {}
func (YouTubeAsset) sealed() {}
func (VimeoAsset) sealed()   {}
func (UnknownAsset) sealed() {}

// Video ids run from the marker to the next path, query, or fragment
// delimiter.
var (
	youtubeEmbedRe = regexp.MustCompile(`://[^/]*youtube\.com/embed/([^/?#]+)`)
	vimeoVideoRe   = regexp.MustCompile(`://[^/]*vimeo\.com/video/([^/?#]+)`)
)

// ClassifyAsset decides what kind of media a declared type plus URL refer
// to. "image" is taken at face value; "video" is probed for a YouTube embed
// id, then a Vimeo watch id; everything else is Unknown.
func ClassifyAsset(mediaType, rawURL string) Asset {
	switch mediaType {
	case "image":
		return ImageAsset{URL: rawURL}
	case "video":
		if m := youtubeEmbedRe.FindStringSubmatch(rawURL); m != nil {
			return YouTubeAsset{ID: m[1], URL: rawURL}
		}
		if m := vimeoVideoRe.FindStringSubmatch(rawURL); m != nil {
			return VimeoAsset{ID: m[1], URL: rawURL}
		}
		return UnknownAsset{URL: rawURL}
	default:
		return UnknownAsset{URL: rawURL}
	}
}

// OEmbedLookup resolves a video watch URL to a thumbnail image URL via the
// provider's oEmbed endpoint.
type OEmbedLookup interface {
	ThumbnailURL(ctx context.Context, watchURL string) (string, error)
}

// ResolveImageURL returns the downloadable image URL for an asset. Images
// resolve to themselves, YouTube videos to a deterministic thumbnail URL,
// and Vimeo videos through the given oEmbed lookup.
func ResolveImageURL(ctx context.Context, asset Asset, oembed OEmbedLookup) (string, error) {
	switch a := asset.(type) {
	case ImageAsset:
		return a.URL, nil
	case YouTubeAsset:
		if a.ID == "" {
			return "", &InvalidVideoReferenceError{ID: a.ID}
		}
		thumb := fmt.Sprintf("https://img.youtube.com/vi/%s/0.jpg", url.PathEscape(a.ID))
		if _, err := url.ParseRequestURI(thumb); err != nil {
			return "", &InvalidVideoReferenceError{ID: a.ID}
		}
		return thumb, nil
	case VimeoAsset:
		if a.ID == "" || oembed == nil {
			return "", &InvalidVideoReferenceError{ID: a.ID}
		}
		return oembed.ThumbnailURL(ctx, a.URL)
	default:
		return "", ErrUnsupportedAsset
	}
}
