// package models defines the data records shared across the scrobbler pipeline
package models

import "strings"

// Corrected describes how a play's final metadata relates to what the
// playback source reported.
type Corrected int

const (
	NotCorrected      Corrected = 0
	ManuallyCorrected Corrected = 1
	AutoCorrected     Corrected = 2
)

// String returns a human-readable label for the correction state.
func (c Corrected) String() string {
	switch c {
	case ManuallyCorrected:
		return "manually corrected"
	case AutoCorrected:
		return "auto corrected"
	default:
		return "not corrected"
	}
}

// Track carries raw playback metadata delivered by the playback source.
// LengthMs is zero when the source does not report a length.
type Track struct {
	URI           string   `json:"uri"`
	Artists       []string `json:"artists"`
	Name          string   `json:"name"`
	Album         string   `json:"album"`
	LengthMs      int      `json:"lengthMs"`
	MusicbrainzID string   `json:"musicbrainzId"`
}

// Scheme returns the URI scheme of the track, or an empty string when the
// URI carries none.
func (t Track) Scheme() string {
	scheme, _, found := strings.Cut(t.URI, ":")
	if !found {
		return ""
	}
	return scheme
}

// Play is a qualifying listen awaiting or past submission. The orig fields
// preserve the pre-correction metadata for audit and undo.
type Play struct {
	TrackURI      string    `json:"trackUri"`
	Artist        string    `json:"artist"`
	Title         string    `json:"title"`
	Album         string    `json:"album"`
	OrigArtist    string    `json:"origArtist"`
	OrigTitle     string    `json:"origTitle"`
	OrigAlbum     string    `json:"origAlbum"`
	Corrected     Corrected `json:"corrected"`
	MusicbrainzID string    `json:"musicbrainzId"`
	Duration      int       `json:"duration"` // seconds
	PlayedAt      int64     `json:"playedAt"` // UNIX timestamp
	SubmittedAt   *int64    `json:"submittedAt"`
}

// IsSubmitted reports whether the play has been delivered to the remote
// service. Submitted plays are immutable.
func (p Play) IsSubmitted() bool {
	return p.SubmittedAt != nil
}

// RecordedPlay is a Play that has been persisted and assigned an identifier.
// PlayID ordering is creation order and serves as the pagination cursor.
type RecordedPlay struct {
	Play
	PlayID int64 `json:"playId"`
}

// PlayEdit describes a manual metadata edit of a single unsubmitted play.
type PlayEdit struct {
	PlayID               int64  `json:"playId"`
	TrackURI             string `json:"trackUri"`
	Artist               string `json:"artist"`
	Title                string `json:"title"`
	Album                string `json:"album"`
	SaveCorrection       bool   `json:"saveCorrection"`
	UpdateAllUnsubmitted bool   `json:"updateAllUnsubmitted"`
}

// Correction is a stored metadata override keyed by track URI, applied to
// all future plays of that track. At most one exists per URI.
type Correction struct {
	TrackURI string `json:"trackUri"`
	Artist   string `json:"artist"`
	Title    string `json:"title"`
	Album    string `json:"album"`
}

// CorrectionEdit describes an update to an existing correction.
type CorrectionEdit struct {
	TrackURI             string `json:"trackUri"`
	Artist               string `json:"artist"`
	Title                string `json:"title"`
	Album                string `json:"album"`
	UpdateAllUnsubmitted bool   `json:"updateAllUnsubmitted"`
}
