// package store implements the durable local database of plays and
// corrections.
//
// The store exclusively owns all persisted state and every submission-state
// transition. Multi-statement edits run inside a single immediate-mode
// transaction so a concurrent read never observes a half-applied edit.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-sqlite3"

	"github.com/djmattyg007/advanced-scrobbler/internal/models"
	"github.com/djmattyg007/advanced-scrobbler/internal/shared"
)

// SortDirection orders paginated play listings by play ID.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// MaxBatchSize caps batch lookups and the unsubmitted-backlog page size.
// Callers needing more must page.
const MaxBatchSize = 50

const playColumns = "play_id, track_uri, artist, title, album, orig_artist, orig_title, orig_album, corrected, musicbrainz_id, duration, played_at, submitted_at"

// Store provides all persistence operations over plays and corrections.
type Store struct {
	db     *sql.DB
	logger *log.Logger
	now    func() int64
}

// Open connects to the SQLite database at path and brings its schema up to
// date. A migration failure is fatal: no Store is returned.
func Open(path string, busyTimeout int, logger *log.Logger) (*Store, error) {
	logger.Info("connecting to scrobbler database", "path", path)

	db, err := shared.NewDatabase(path, busyTimeout)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return New(db, logger), nil
}

// New wraps an already-open database connection. The schema must be current.
func New(db *sql.DB, logger *log.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger,
		now:    func() int64 { return time.Now().Unix() },
	}
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database connection is alive.
func (s *Store) Ping() error {
	return s.db.Ping()
}

// RecordPlay inserts a play and returns it with its assigned play ID.
// A primary-key collision surfaces as a constraint error; it should not
// occur under normal ID assignment.
func (s *Store) RecordPlay(play models.Play) (*models.RecordedPlay, error) {
	query := `
		INSERT INTO plays (track_uri, artist, title, album, orig_artist, orig_title, orig_album, corrected, musicbrainz_id, duration, played_at, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.Exec(query,
		play.TrackURI,
		play.Artist,
		play.Title,
		play.Album,
		play.OrigArtist,
		play.OrigTitle,
		play.OrigAlbum,
		play.Corrected,
		nullString(play.MusicbrainzID),
		play.Duration,
		play.PlayedAt,
		nullInt64(play.SubmittedAt),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return nil, fmt.Errorf("%w: %v", shared.ErrConstraint, err)
		}
		return nil, fmt.Errorf("failed to insert play: %w", err)
	}

	playID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get inserted play ID: %w", err)
	}

	s.logger.Debug("recorded play", "play_id", playID, "track_uri", play.TrackURI)

	return &models.RecordedPlay{Play: play, PlayID: playID}, nil
}

// FindPlay retrieves a play by ID. Returns nil without error when no play
// exists with that ID.
func (s *Store) FindPlay(playID int64) (*models.RecordedPlay, error) {
	query := fmt.Sprintf("SELECT %s FROM plays WHERE play_id = ?", playColumns)

	play, err := scanPlay(s.db.QueryRow(query, playID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return play, nil
}

// FindPlays retrieves plays by ID, at most MaxBatchSize per call. Missing
// IDs are silently absent from the result. With onlyUnsubmitted set,
// already-submitted plays are excluded as well.
func (s *Store) FindPlays(playIDs []int64, onlyUnsubmitted bool) ([]models.RecordedPlay, error) {
	if len(playIDs) == 0 {
		return nil, nil
	}
	if len(playIDs) > MaxBatchSize {
		return nil, fmt.Errorf("%w: at most %d plays per batch lookup, got %d", shared.ErrClient, MaxBatchSize, len(playIDs))
	}

	query := fmt.Sprintf(
		"SELECT %s FROM plays WHERE play_id IN (%s)",
		playColumns, placeholders(len(playIDs)),
	)
	if onlyUnsubmitted {
		query += " AND submitted_at IS NULL"
	}
	query += " ORDER BY play_id ASC"

	return s.queryPlays(query, int64Args(playIDs)...)
}

// LoadPlays returns one page of plays ordered by play ID.
func (s *Store) LoadPlays(sort SortDirection, pageNum, pageSize int) ([]models.RecordedPlay, error) {
	order := "DESC"
	if sort == SortAsc {
		order = "ASC"
	}
	if pageNum < 1 {
		pageNum = 1
	}
	if pageSize < 1 {
		pageSize = MaxBatchSize
	}

	query := fmt.Sprintf(
		"SELECT %s FROM plays ORDER BY play_id %s LIMIT ? OFFSET ?",
		playColumns, order,
	)

	return s.queryPlays(query, pageSize, (pageNum-1)*pageSize)
}

// GetPlaysCount returns the total number of plays, optionally restricted
// to unsubmitted ones.
func (s *Store) GetPlaysCount(onlyUnsubmitted bool) (int, error) {
	query := "SELECT COUNT(*) FROM plays"
	if onlyUnsubmitted {
		query += " WHERE submitted_at IS NULL"
	}

	var count int
	if err := s.db.QueryRow(query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count plays: %w", err)
	}

	return count, nil
}

// LoadUnsubmittedPlaysBatch returns up to MaxBatchSize unsubmitted plays in
// ascending play ID order. A non-nil checkpoint is an inclusive upper bound
// on play ID, fixing the working set so plays recorded after a catch-up job
// started do not extend its rounds.
func (s *Store) LoadUnsubmittedPlaysBatch(checkpoint *int64) ([]models.RecordedPlay, error) {
	query := fmt.Sprintf("SELECT %s FROM plays WHERE submitted_at IS NULL", playColumns)
	args := []any{}

	if checkpoint != nil {
		query += " AND play_id <= ?"
		args = append(args, *checkpoint)
	}

	query += " ORDER BY play_id ASC LIMIT ?"
	args = append(args, MaxBatchSize)

	return s.queryPlays(query, args...)
}

// EditPlay applies a manual metadata edit to an unsubmitted play, marking it
// manually corrected. With UpdateAllUnsubmitted the edit covers every
// unsubmitted play of the same track URI atomically. With SaveCorrection a
// correction is upserted in the same transaction.
func (s *Store) EditPlay(edit models.PlayEdit) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	play, err := scanPlay(tx.QueryRow(fmt.Sprintf("SELECT %s FROM plays WHERE play_id = ?", playColumns), edit.PlayID))
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: no play found with ID %d", shared.ErrClient, edit.PlayID)
	}
	if err != nil {
		return err
	}

	if edit.TrackURI != play.TrackURI {
		return fmt.Errorf("%w: mismatched track URI for play with ID %d", shared.ErrClient, edit.PlayID)
	}
	if play.IsSubmitted() {
		return fmt.Errorf("%w: play %d was already submitted and can no longer be updated", shared.ErrClient, edit.PlayID)
	}

	updateArgs := []any{edit.Artist, edit.Title, edit.Album, models.ManuallyCorrected}
	var updateQuery string
	if edit.UpdateAllUnsubmitted {
		updateQuery = "UPDATE plays SET artist = ?, title = ?, album = ?, corrected = ? WHERE track_uri = ? AND submitted_at IS NULL"
		updateArgs = append(updateArgs, play.TrackURI)
	} else {
		updateQuery = "UPDATE plays SET artist = ?, title = ?, album = ?, corrected = ? WHERE play_id = ?"
		updateArgs = append(updateArgs, play.PlayID)
	}

	if _, err := tx.Exec(updateQuery, updateArgs...); err != nil {
		return fmt.Errorf("failed to update play: %w", err)
	}

	if edit.SaveCorrection {
		if err := upsertCorrection(tx, models.Correction{
			TrackURI: play.TrackURI,
			Artist:   edit.Artist,
			Title:    edit.Title,
			Album:    edit.Album,
		}); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// DeletePlay removes an unsubmitted play. Submitted and nonexistent plays
// are left untouched and reported as false rather than as errors.
func (s *Store) DeletePlay(playID int64) (bool, error) {
	result, err := s.db.Exec("DELETE FROM plays WHERE play_id = ? AND submitted_at IS NULL", playID)
	if err != nil {
		return false, fmt.Errorf("failed to delete play: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows == 1, nil
}

// DeletePlays removes unsubmitted plays by ID, at most MaxBatchSize per
// call, returning how many rows were actually removed.
func (s *Store) DeletePlays(playIDs []int64) (int, error) {
	if len(playIDs) == 0 {
		return 0, nil
	}
	if len(playIDs) > MaxBatchSize {
		return 0, fmt.Errorf("%w: at most %d plays per batch delete, got %d", shared.ErrClient, MaxBatchSize, len(playIDs))
	}

	query := fmt.Sprintf(
		"DELETE FROM plays WHERE play_id IN (%s) AND submitted_at IS NULL",
		placeholders(len(playIDs)),
	)

	result, err := s.db.Exec(query, int64Args(playIDs)...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete plays: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return int(rows), nil
}

// MarkPlaySubmitted stamps submitted_at on a play. The submitted_at IS NULL
// guard makes repeated or concurrent calls idempotent: the second call is a
// no-op reported as false, never an error.
func (s *Store) MarkPlaySubmitted(playID int64) (bool, error) {
	result, err := s.db.Exec(
		"UPDATE plays SET submitted_at = ? WHERE play_id = ? AND submitted_at IS NULL",
		s.now(), playID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark play submitted: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows == 1, nil
}

// MarkPlaysSubmitted stamps submitted_at on a batch of plays, at most
// MaxBatchSize per call, returning how many rows transitioned. Already
// submitted plays are skipped by the same guard as MarkPlaySubmitted.
func (s *Store) MarkPlaysSubmitted(playIDs []int64) (int, error) {
	if len(playIDs) == 0 {
		return 0, nil
	}
	if len(playIDs) > MaxBatchSize {
		return 0, fmt.Errorf("%w: at most %d plays per batch, got %d", shared.ErrClient, MaxBatchSize, len(playIDs))
	}

	query := fmt.Sprintf(
		"UPDATE plays SET submitted_at = ? WHERE play_id IN (%s) AND submitted_at IS NULL",
		placeholders(len(playIDs)),
	)

	args := append([]any{s.now()}, int64Args(playIDs)...)
	result, err := s.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to mark plays submitted: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return int(rows), nil
}

// queryPlays runs a multi-row play query and scans all results.
func (s *Store) queryPlays(query string, args ...any) ([]models.RecordedPlay, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query plays: %w", err)
	}
	defer rows.Close()

	var plays []models.RecordedPlay
	for rows.Next() {
		play, err := scanPlay(rows)
		if err != nil {
			return nil, err
		}
		plays = append(plays, *play)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return plays, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanPlay maps one plays row onto a RecordedPlay.
func scanPlay(row rowScanner) (*models.RecordedPlay, error) {
	var (
		play          models.RecordedPlay
		musicbrainzID sql.NullString
		submittedAt   sql.NullInt64
	)

	err := row.Scan(
		&play.PlayID,
		&play.TrackURI,
		&play.Artist,
		&play.Title,
		&play.Album,
		&play.OrigArtist,
		&play.OrigTitle,
		&play.OrigAlbum,
		&play.Corrected,
		&musicbrainzID,
		&play.Duration,
		&play.PlayedAt,
		&submittedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan play: %w", err)
	}

	play.MusicbrainzID = musicbrainzID.String
	if submittedAt.Valid {
		play.SubmittedAt = &submittedAt.Int64
	}

	return &play, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
