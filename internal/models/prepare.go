package models

import (
	"sort"
	"strings"
)

// PreparePlay derives an unsubmitted Play from raw track metadata.
//
// The orig fields always carry the source metadata as formatted by
// FormatTrackData. When a manual correction exists it wins outright;
// otherwise the auto-correction filter for the track's URI scheme, if any,
// is applied to each field independently.
func PreparePlay(track Track, correction *Correction, playedAt int64) Play {
	origArtist, origTitle, origAlbum := FormatTrackData(track)

	artist, title, album := origArtist, origTitle, origAlbum
	corrected := NotCorrected

	if correction != nil {
		artist = correction.Artist
		title = correction.Title
		album = correction.Album
		corrected = ManuallyCorrected
	} else if filter := FilterForScheme(track.Scheme()); filter != nil {
		artist, title, album, corrected = applyMetadataFilter(filter, origArtist, origTitle, origAlbum)
	}

	return Play{
		TrackURI:      track.URI,
		Artist:        artist,
		Title:         title,
		Album:         album,
		OrigArtist:    origArtist,
		OrigTitle:     origTitle,
		OrigAlbum:     origAlbum,
		Corrected:     corrected,
		MusicbrainzID: track.MusicbrainzID,
		Duration:      durationSeconds(track.LengthMs),
		PlayedAt:      playedAt,
		SubmittedAt:   nil,
	}
}

// FormatTrackData derives the canonical artist, title, and album strings
// from raw track metadata. Multiple artist names are sorted lexicographically
// and joined with ", ", with "and" before the final name. Title and album
// default to empty strings when absent.
func FormatTrackData(track Track) (artist, title, album string) {
	var names []string
	for _, name := range track.Artists {
		name = strings.TrimSpace(name)
		if name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	switch len(names) {
	case 0:
		artist = ""
	case 1:
		artist = names[0]
	default:
		artist = strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
	}

	return artist, track.Name, track.Album
}

// applyMetadataFilter runs the filter over each field independently and
// reports AutoCorrected when any field changed.
func applyMetadataFilter(filter *MetadataFilter, origArtist, origTitle, origAlbum string) (string, string, string, Corrected) {
	artist := filter.FilterField(FieldArtist, origArtist)
	title := filter.FilterField(FieldTrack, origTitle)
	album := filter.FilterField(FieldAlbum, origAlbum)

	corrected := NotCorrected
	if artist != origArtist || title != origTitle || album != origAlbum {
		corrected = AutoCorrected
	}

	return artist, title, album, corrected
}

// durationSeconds converts a source millisecond length to whole seconds,
// rounding up. Zero means the source reported no length.
func durationSeconds(lengthMs int) int {
	if lengthMs <= 0 {
		return 0
	}
	return (lengthMs + 999) / 1000
}
