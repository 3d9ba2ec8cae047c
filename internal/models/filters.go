package models

import "regexp"

// Metadata field names recognized by filters.
const (
	FieldArtist = "artist"
	FieldTrack  = "track"
	FieldAlbum  = "album"
)

// FilterFunc transforms a single metadata field value.
type FilterFunc func(string) string

// MetadataFilter applies an ordered set of text transforms per metadata
// field. Fields without registered transforms pass through unchanged.
type MetadataFilter struct {
	rules map[string][]FilterFunc
}

// FilterField runs all transforms registered for the named field over value.
func (f *MetadataFilter) FilterField(field, value string) string {
	for _, fn := range f.rules[field] {
		value = fn(value)
	}
	return value
}

var (
	remasteredSuffixRe = regexp.MustCompile(`(?i)\s[-–]\s*(\d{4}\s*[-–]?\s*)?remaster(ed)?(\s+version)?(\s+\d{4})?\s*$`)
	remasteredParenRe  = regexp.MustCompile(`(?i)\s*[([](\d{4}\s+)?remaster(ed)?(\s+version)?(\s+\d{4})?[)\]]\s*$`)
	liveSuffixRe       = regexp.MustCompile(`(?i)\s[-–]\s*live(\s+(at|from|in)\s+.+)?\s*$`)
	liveParenRe        = regexp.MustCompile(`(?i)\s*[([]live(\s+(at|from|in)\s+[^)\]]+)?[)\]]\s*$`)
	featureSuffixRe    = regexp.MustCompile(`(?i)\s*[([]feat\.?\s+[^)\]]+[)\]]\s*$`)
	trailingSpaceRe    = regexp.MustCompile(`\s+$`)
)

func removeRemastered(value string) string {
	value = remasteredSuffixRe.ReplaceAllString(value, "")
	return remasteredParenRe.ReplaceAllString(value, "")
}

func removeLive(value string) string {
	value = liveSuffixRe.ReplaceAllString(value, "")
	return liveParenRe.ReplaceAllString(value, "")
}

func removeFeature(value string) string {
	return featureSuffixRe.ReplaceAllString(value, "")
}

func trimWhitespace(value string) string {
	return trailingSpaceRe.ReplaceAllString(value, "")
}

// RemasteredFilter strips remaster tags from track and album titles.
func RemasteredFilter() *MetadataFilter {
	return &MetadataFilter{rules: map[string][]FilterFunc{
		FieldTrack: {removeRemastered, trimWhitespace},
		FieldAlbum: {removeRemastered, trimWhitespace},
	}}
}

// SpotifyFilter strips the decorations Spotify appends to track and album
// titles: remaster tags, live suffixes, and featured-artist credits.
func SpotifyFilter() *MetadataFilter {
	return &MetadataFilter{rules: map[string][]FilterFunc{
		FieldTrack: {removeRemastered, removeFeature, removeLive, trimWhitespace},
		FieldAlbum: {removeRemastered, removeLive, trimWhitespace},
	}}
}

// filtersByScheme maps a track URI scheme to its auto-correction filter.
// Each source scheme has at most one filter.
var filtersByScheme = map[string]func() *MetadataFilter{
	"spotify": SpotifyFilter,
	"local":   RemasteredFilter,
	"file":    RemasteredFilter,
}

// FilterForScheme returns the auto-correction filter registered for the
// given URI scheme, or nil when the scheme has none.
func FilterForScheme(scheme string) *MetadataFilter {
	factory, ok := filtersByScheme[scheme]
	if !ok {
		return nil
	}
	return factory()
}
