package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/djmattyg007/advanced-scrobbler/internal/models"
	"github.com/djmattyg007/advanced-scrobbler/internal/shared"
)

// FindCorrection retrieves the correction for a track URI. Returns nil
// without error when the URI has no stored correction.
func (s *Store) FindCorrection(trackURI string) (*models.Correction, error) {
	query := "SELECT track_uri, artist, title, album FROM corrections WHERE track_uri = ?"

	var correction models.Correction
	err := s.db.QueryRow(query, trackURI).Scan(
		&correction.TrackURI,
		&correction.Artist,
		&correction.Title,
		&correction.Album,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan correction: %w", err)
	}

	return &correction, nil
}

// LoadCorrections returns one page of corrections ordered by track URI.
func (s *Store) LoadCorrections(pageNum, pageSize int) ([]models.Correction, error) {
	if pageNum < 1 {
		pageNum = 1
	}
	if pageSize < 1 {
		pageSize = MaxBatchSize
	}

	query := "SELECT track_uri, artist, title, album FROM corrections ORDER BY track_uri LIMIT ? OFFSET ?"

	rows, err := s.db.Query(query, pageSize, (pageNum-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to query corrections: %w", err)
	}
	defer rows.Close()

	var corrections []models.Correction
	for rows.Next() {
		var correction models.Correction
		if err := rows.Scan(&correction.TrackURI, &correction.Artist, &correction.Title, &correction.Album); err != nil {
			return nil, fmt.Errorf("failed to scan correction: %w", err)
		}
		corrections = append(corrections, correction)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return corrections, nil
}

// GetCorrectionsCount returns the total number of stored corrections.
func (s *Store) GetCorrectionsCount() (int, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM corrections").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count corrections: %w", err)
	}

	return count, nil
}

// RecordCorrection inserts or replaces the correction for a track URI.
// Used by external synchronisation as well as the CLI.
func (s *Store) RecordCorrection(correction models.Correction) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := upsertCorrection(tx, correction); err != nil {
		return err
	}

	return tx.Commit()
}

// EditCorrection updates an existing correction. With UpdateAllUnsubmitted
// the new values cascade to every unsubmitted play of the track URI,
// re-marking them manually corrected, in the same transaction.
func (s *Store) EditCorrection(edit models.CorrectionEdit) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		"UPDATE corrections SET artist = ?, title = ?, album = ? WHERE track_uri = ?",
		edit.Artist, edit.Title, edit.Album, edit.TrackURI,
	)
	if err != nil {
		return fmt.Errorf("failed to update correction: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: no correction found for track URI %q", shared.ErrClient, edit.TrackURI)
	}

	if edit.UpdateAllUnsubmitted {
		_, err := tx.Exec(
			"UPDATE plays SET artist = ?, title = ?, album = ?, corrected = ? WHERE track_uri = ? AND submitted_at IS NULL",
			edit.Artist, edit.Title, edit.Album, models.ManuallyCorrected, edit.TrackURI,
		)
		if err != nil {
			return fmt.Errorf("failed to cascade correction to plays: %w", err)
		}
	}

	return tx.Commit()
}

// DeleteCorrection removes the correction for a track URI, reporting
// whether one existed.
func (s *Store) DeleteCorrection(trackURI string) (bool, error) {
	result, err := s.db.Exec("DELETE FROM corrections WHERE track_uri = ?", trackURI)
	if err != nil {
		return false, fmt.Errorf("failed to delete correction: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows == 1, nil
}

// ApproveAutoCorrection promotes an auto-corrected play's filtered values
// into a durable correction and flips the play to manually corrected, both
// in one transaction. The play must be auto-corrected and its track URI must
// not already carry a correction.
func (s *Store) ApproveAutoCorrection(playID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	play, err := scanPlay(tx.QueryRow(fmt.Sprintf("SELECT %s FROM plays WHERE play_id = ?", playColumns), playID))
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: no play found with ID %d", shared.ErrClient, playID)
	}
	if err != nil {
		return err
	}

	if play.Corrected != models.AutoCorrected {
		return fmt.Errorf("%w: play %d is not auto-corrected (%s)", shared.ErrClient, playID, play.Corrected)
	}

	var exists bool
	err = tx.QueryRow("SELECT EXISTS(SELECT 1 FROM corrections WHERE track_uri = ?)", play.TrackURI).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check for existing correction: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: a correction already exists for track URI %q", shared.ErrClient, play.TrackURI)
	}

	_, err = tx.Exec(
		"INSERT INTO corrections (track_uri, artist, title, album) VALUES (?, ?, ?, ?)",
		play.TrackURI, play.Artist, play.Title, play.Album,
	)
	if err != nil {
		return fmt.Errorf("failed to insert correction: %w", err)
	}

	// Submitted plays stay untouched: the correction still covers future
	// plays, but a submitted row is immutable.
	_, err = tx.Exec(
		"UPDATE plays SET corrected = ? WHERE play_id = ? AND submitted_at IS NULL",
		models.ManuallyCorrected, playID,
	)
	if err != nil {
		return fmt.Errorf("failed to update play correction state: %w", err)
	}

	return tx.Commit()
}

// upsertCorrection inserts or replaces a correction within an open
// transaction.
func upsertCorrection(tx *sql.Tx, correction models.Correction) error {
	query := `
		INSERT INTO corrections (track_uri, artist, title, album) VALUES (?, ?, ?, ?)
		ON CONFLICT (track_uri) DO UPDATE SET artist = excluded.artist, title = excluded.title, album = excluded.album
	`

	_, err := tx.Exec(query, correction.TrackURI, correction.Artist, correction.Title, correction.Album)
	if err != nil {
		return fmt.Errorf("failed to upsert correction: %w", err)
	}

	return nil
}
