package notes_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"escucha/internal/notes"
	"escucha/internal/services"
	"escucha/internal/testsupport"
)

func newJournal(t *testing.T, observer notes.ConversionObserver) *notes.Journal {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	db := testsupport.MustOpenDB(t, cfg)
	return notes.NewJournal(db, nil, observer)
}

func TestAppendAndListNewestFirst(t *testing.T) {
	journal := newJournal(t, nil)
	ctx := context.Background()

	first, err := journal.Append(ctx, "parent-1", "  observa el menú  ")
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if first.Content != "observa el menú" {
		t.Fatalf("expected trimmed content, got %q", first.Content)
	}
	time.Sleep(5 * time.Millisecond)
	second, err := journal.Append(ctx, "parent-1", "duda sobre precios")
	if err != nil {
		t.Fatalf("Append second: %v", err)
	}
	if _, err := journal.Append(ctx, "parent-2", "otra sesión"); err != nil {
		t.Fatalf("Append other parent: %v", err)
	}

	listed, err := journal.ListByParent(ctx, "parent-1")
	if err != nil {
		t.Fatalf("ListByParent: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 notes, got %d", len(listed))
	}
	if listed[0].ID != second.ID || listed[1].ID != first.ID {
		t.Fatalf("expected newest first, got %s then %s", listed[0].ID, listed[1].ID)
	}
}

func TestAppendRejectsWhitespaceOnly(t *testing.T) {
	journal := newJournal(t, nil)
	for _, content := range []string{"", "   ", "\n\t "} {
		if _, err := journal.Append(context.Background(), "parent-1", content); !errors.Is(err, notes.ErrEmptyContent) {
			t.Fatalf("content %q: expected ErrEmptyContent, got %v", content, err)
		}
	}
}

func TestRemovalRequiresConfirmation(t *testing.T) {
	journal := newJournal(t, nil)
	ctx := context.Background()

	note, err := journal.Append(ctx, "parent-1", "borrar después")
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	// Confirming without a request does nothing.
	if err := journal.ConfirmRemove(ctx, note.ID); !errors.Is(err, notes.ErrNoPendingRemoval) {
		t.Fatalf("expected ErrNoPendingRemoval, got %v", err)
	}

	if err := journal.RequestRemove(ctx, note.ID); err != nil {
		t.Fatalf("RequestRemove: %v", err)
	}
	if !journal.RemovalPending(note.ID) {
		t.Fatal("expected pending removal")
	}

	// Cancelling keeps the note.
	journal.CancelRemove(note.ID)
	if journal.RemovalPending(note.ID) {
		t.Fatal("expected cancellation to clear the request")
	}
	if _, err := journal.GetByID(ctx, note.ID); err != nil {
		t.Fatalf("note should survive a cancelled removal: %v", err)
	}

	// Request again and confirm: now it is gone.
	if err := journal.RequestRemove(ctx, note.ID); err != nil {
		t.Fatalf("RequestRemove again: %v", err)
	}
	if err := journal.ConfirmRemove(ctx, note.ID); err != nil {
		t.Fatalf("ConfirmRemove: %v", err)
	}
	if _, err := journal.GetByID(ctx, note.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found after confirmed removal, got %v", err)
	}
}

func TestRequestRemoveUnknownNote(t *testing.T) {
	journal := newJournal(t, nil)
	if err := journal.RequestRemove(context.Background(), "missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMarkConvertedIsWriteOnce(t *testing.T) {
	var observed []notes.QuickNote
	journal := newJournal(t, func(note notes.QuickNote) {
		observed = append(observed, note)
	})
	ctx := context.Background()

	note, err := journal.Append(ctx, "parent-1", "el usuario no encontró el botón")
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	if err := journal.MarkConverted(ctx, note.ID, "pain_point", "pp-42"); err != nil {
		t.Fatalf("MarkConverted: %v", err)
	}
	// Repeating the identical conversion is a no-op.
	if err := journal.MarkConverted(ctx, note.ID, "pain_point", "pp-42"); err != nil {
		t.Fatalf("repeat MarkConverted: %v", err)
	}
	// A different artifact is rejected.
	if err := journal.MarkConverted(ctx, note.ID, "profiling", "prof-7"); !errors.Is(err, notes.ErrAlreadyConverted) {
		t.Fatalf("expected ErrAlreadyConverted, got %v", err)
	}

	loaded, err := journal.GetByID(ctx, note.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if loaded.ConvertedKind != "pain_point" || loaded.ConvertedArtifactID != "pp-42" {
		t.Fatalf("conversion record mangled: %+v", loaded)
	}
	if !loaded.Converted() {
		t.Fatal("expected Converted() to report true")
	}
	if len(observed) != 1 {
		t.Fatalf("expected observer to fire once, fired %d times", len(observed))
	}
	if observed[0].ID != note.ID || observed[0].ConvertedKind != "pain_point" {
		t.Fatalf("unexpected observed note: %+v", observed[0])
	}
}

func TestConvertibleGuardsConvertedNotes(t *testing.T) {
	journal := newJournal(t, nil)
	ctx := context.Background()

	note, err := journal.Append(ctx, "parent-1", "nota por convertir")
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := journal.Convertible(ctx, note.ID); err != nil {
		t.Fatalf("fresh note should be convertible: %v", err)
	}

	if err := journal.MarkConverted(ctx, note.ID, "pain_point", "pp-9"); err != nil {
		t.Fatalf("MarkConverted: %v", err)
	}
	if err := journal.Convertible(ctx, note.ID); !errors.Is(err, notes.ErrAlreadyConverted) {
		t.Fatalf("expected ErrAlreadyConverted, got %v", err)
	}
	if err := journal.Convertible(ctx, "missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found for unknown note, got %v", err)
	}
}

func TestMarkConvertedValidatesArgs(t *testing.T) {
	journal := newJournal(t, nil)
	ctx := context.Background()
	note, err := journal.Append(ctx, "parent-1", "nota")
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := journal.MarkConverted(ctx, note.ID, "", "pp-1"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty kind, got %v", err)
	}
	if err := journal.MarkConverted(ctx, note.ID, "pain_point", ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty artifact id, got %v", err)
	}
	if err := journal.MarkConverted(ctx, "missing", "pain_point", "pp-1"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for unknown note, got %v", err)
	}
}
