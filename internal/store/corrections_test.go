package store

import (
	"errors"
	"testing"

	"github.com/djmattyg007/advanced-scrobbler/internal/models"
	"github.com/djmattyg007/advanced-scrobbler/internal/shared"
)

func testCorrection(uri string) models.Correction {
	return models.Correction{
		TrackURI: uri,
		Artist:   "Boards of Canada",
		Title:    "Roygbiv",
		Album:    "Music Has the Right to Children",
	}
}

func TestRecordAndFindCorrection(t *testing.T) {
	t.Run("Round Trip", func(t *testing.T) {
		s := setupTestStore(t)

		correction := testCorrection("local:track:1")
		if err := s.RecordCorrection(correction); err != nil {
			t.Fatalf("failed to record correction: %v", err)
		}

		found, err := s.FindCorrection("local:track:1")
		if err != nil {
			t.Fatalf("failed to find correction: %v", err)
		}
		if found == nil {
			t.Fatal("expected correction to be found")
		}
		if *found != correction {
			t.Errorf("round trip mismatch:\n got %+v\nwant %+v", *found, correction)
		}
	})

	t.Run("Find Missing Correction Returns Nil", func(t *testing.T) {
		s := setupTestStore(t)

		found, err := s.FindCorrection("local:track:404")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if found != nil {
			t.Errorf("expected nil for missing correction, got %+v", found)
		}
	})

	t.Run("Record Replaces Existing", func(t *testing.T) {
		s := setupTestStore(t)

		if err := s.RecordCorrection(testCorrection("local:track:1")); err != nil {
			t.Fatalf("failed to record correction: %v", err)
		}

		updated := testCorrection("local:track:1")
		updated.Title = "Roygbiv (Remastered)"
		if err := s.RecordCorrection(updated); err != nil {
			t.Fatalf("failed to replace correction: %v", err)
		}

		found, _ := s.FindCorrection("local:track:1")
		if found.Title != "Roygbiv (Remastered)" {
			t.Errorf("expected replaced title, got %q", found.Title)
		}

		count, err := s.GetCorrectionsCount()
		if err != nil {
			t.Fatalf("failed to count corrections: %v", err)
		}
		if count != 1 {
			t.Errorf("expected a single correction per URI, got %d", count)
		}
	})
}

func TestLoadCorrections(t *testing.T) {
	s := setupTestStore(t)

	uris := []string{"local:track:b", "local:track:a", "local:track:c"}
	for _, uri := range uris {
		if err := s.RecordCorrection(testCorrection(uri)); err != nil {
			t.Fatalf("failed to record correction: %v", err)
		}
	}

	page, err := s.LoadCorrections(1, 2)
	if err != nil {
		t.Fatalf("failed to load corrections: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected 2 corrections, got %d", len(page))
	}
	if page[0].TrackURI != "local:track:a" || page[1].TrackURI != "local:track:b" {
		t.Errorf("expected URI ordering, got %q, %q", page[0].TrackURI, page[1].TrackURI)
	}

	page, err = s.LoadCorrections(2, 2)
	if err != nil {
		t.Fatalf("failed to load second page: %v", err)
	}
	if len(page) != 1 || page[0].TrackURI != "local:track:c" {
		t.Errorf("unexpected second page: %+v", page)
	}
}

func TestEditCorrection(t *testing.T) {
	t.Run("Updates Stored Values", func(t *testing.T) {
		s := setupTestStore(t)

		if err := s.RecordCorrection(testCorrection("local:track:1")); err != nil {
			t.Fatalf("failed to record correction: %v", err)
		}

		edit := models.CorrectionEdit{
			TrackURI: "local:track:1",
			Artist:   "BoC",
			Title:    "ROYGBIV",
			Album:    "MHTRTC",
		}
		if err := s.EditCorrection(edit); err != nil {
			t.Fatalf("failed to edit correction: %v", err)
		}

		found, _ := s.FindCorrection("local:track:1")
		if found.Artist != "BoC" || found.Title != "ROYGBIV" {
			t.Errorf("edit not applied: %+v", found)
		}
	})

	t.Run("Fails When Missing", func(t *testing.T) {
		s := setupTestStore(t)

		err := s.EditCorrection(models.CorrectionEdit{TrackURI: "local:track:404", Artist: "X", Title: "Y"})
		if !errors.Is(err, shared.ErrClient) {
			t.Errorf("expected ErrClient, got %v", err)
		}
	})

	t.Run("Cascades To Unsubmitted Plays Only", func(t *testing.T) {
		s := setupTestStore(t)

		if err := s.RecordCorrection(testCorrection("local:track:1")); err != nil {
			t.Fatalf("failed to record correction: %v", err)
		}
		ids := recordPlays(t, s, "local:track:1", 2)
		if _, err := s.MarkPlaySubmitted(ids[1]); err != nil {
			t.Fatalf("failed to mark play submitted: %v", err)
		}

		edit := models.CorrectionEdit{
			TrackURI:             "local:track:1",
			Artist:               "BoC",
			Title:                "ROYGBIV",
			Album:                "MHTRTC",
			UpdateAllUnsubmitted: true,
		}
		if err := s.EditCorrection(edit); err != nil {
			t.Fatalf("failed to edit correction: %v", err)
		}

		unsubmitted, _ := s.FindPlay(ids[0])
		if unsubmitted.Artist != "BoC" || unsubmitted.Corrected != models.ManuallyCorrected {
			t.Errorf("cascade not applied to unsubmitted play: %+v", unsubmitted)
		}

		submitted, _ := s.FindPlay(ids[1])
		if submitted.Artist != "Low" || submitted.Corrected != models.NotCorrected {
			t.Errorf("submitted play must stay unchanged: %+v", submitted)
		}
	})
}

func TestDeleteCorrection(t *testing.T) {
	s := setupTestStore(t)

	if err := s.RecordCorrection(testCorrection("local:track:1")); err != nil {
		t.Fatalf("failed to record correction: %v", err)
	}

	deleted, err := s.DeleteCorrection("local:track:1")
	if err != nil {
		t.Fatalf("failed to delete correction: %v", err)
	}
	if !deleted {
		t.Error("expected deletion to be reported")
	}

	deleted, err = s.DeleteCorrection("local:track:1")
	if err != nil {
		t.Fatalf("repeat delete must not error: %v", err)
	}
	if deleted {
		t.Error("repeat delete must report no deletion")
	}
}

func TestApproveAutoCorrection(t *testing.T) {
	recordAutoCorrected := func(t *testing.T, s *Store, uri string) int64 {
		t.Helper()

		play := testPlay(uri)
		play.OrigTitle = "Sunflower - 2014 Remaster"
		play.Corrected = models.AutoCorrected
		recorded, err := s.RecordPlay(play)
		if err != nil {
			t.Fatalf("failed to record play: %v", err)
		}
		return recorded.PlayID
	}

	t.Run("Promotes Filtered Values", func(t *testing.T) {
		s := setupTestStore(t)
		id := recordAutoCorrected(t, s, "local:track:1")

		if err := s.ApproveAutoCorrection(id); err != nil {
			t.Fatalf("failed to approve auto-correction: %v", err)
		}

		correction, err := s.FindCorrection("local:track:1")
		if err != nil {
			t.Fatalf("failed to find correction: %v", err)
		}
		if correction == nil || correction.Title != "Sunflower" {
			t.Errorf("expected correction from filtered values, got %+v", correction)
		}

		play, _ := s.FindPlay(id)
		if play.Corrected != models.ManuallyCorrected {
			t.Errorf("expected play to flip to manually corrected, got %s", play.Corrected)
		}
	})

	t.Run("Rejects Non Auto-Corrected Plays", func(t *testing.T) {
		s := setupTestStore(t)
		ids := recordPlays(t, s, "local:track:1", 1)

		err := s.ApproveAutoCorrection(ids[0])
		if !errors.Is(err, shared.ErrClient) {
			t.Errorf("expected ErrClient for uncorrected play, got %v", err)
		}
	})

	t.Run("Rejects Missing Play", func(t *testing.T) {
		s := setupTestStore(t)

		err := s.ApproveAutoCorrection(9999)
		if !errors.Is(err, shared.ErrClient) {
			t.Errorf("expected ErrClient, got %v", err)
		}
	})

	t.Run("Rejects Existing Correction", func(t *testing.T) {
		s := setupTestStore(t)
		id := recordAutoCorrected(t, s, "local:track:1")

		if err := s.RecordCorrection(testCorrection("local:track:1")); err != nil {
			t.Fatalf("failed to record correction: %v", err)
		}

		err := s.ApproveAutoCorrection(id)
		if !errors.Is(err, shared.ErrClient) {
			t.Errorf("expected ErrClient when correction exists, got %v", err)
		}
	})

	t.Run("Leaves Submitted Play Row Untouched", func(t *testing.T) {
		s := setupTestStore(t)
		id := recordAutoCorrected(t, s, "local:track:1")
		if _, err := s.MarkPlaySubmitted(id); err != nil {
			t.Fatalf("failed to mark play submitted: %v", err)
		}

		if err := s.ApproveAutoCorrection(id); err != nil {
			t.Fatalf("failed to approve auto-correction: %v", err)
		}

		correction, _ := s.FindCorrection("local:track:1")
		if correction == nil {
			t.Error("correction should still be recorded for future plays")
		}

		play, _ := s.FindPlay(id)
		if play.Corrected != models.AutoCorrected {
			t.Errorf("submitted play must keep its corrected state, got %s", play.Corrected)
		}
	})
}
