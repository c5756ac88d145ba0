package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"escucha/internal/logging"
	"escucha/internal/services"
	"escucha/internal/storage"
)

// ErrEmptyContent rejects notes that are empty or whitespace only.
var ErrEmptyContent = services.Wrap(
	services.ErrValidation, "notes", "append", "note content is empty", nil)

// ErrAlreadyConverted guards a note that has been converted into a different
// artifact. Repeating the same conversion is a no-op.
var ErrAlreadyConverted = services.Wrap(
	services.ErrConflict, "notes", "mark-converted", "note already converted", nil)

// ErrNoPendingRemoval rejects a confirmation with no matching request.
var ErrNoPendingRemoval = services.Wrap(
	services.ErrValidation, "notes", "confirm-remove", "no removal pending for note", nil)

// QuickNote is a short observation jotted down during a live session.
type QuickNote struct {
	ID                  string
	ParentSessionID     string
	Content             string
	ConvertedKind       string
	ConvertedArtifactID string
	CreatedAt           time.Time
}

// Converted reports whether the note has already become an artifact.
func (n *QuickNote) Converted() bool {
	return n.ConvertedKind != ""
}

// ConversionObserver is notified after a note is marked converted. The
// journal calls it outside its own lock.
type ConversionObserver func(note QuickNote)

// Journal stores quick notes and enforces the two-step removal flow: a
// removal must be requested, then confirmed, before the note is deleted.
type Journal struct {
	db       *storage.DB
	logger   *slog.Logger
	observer ConversionObserver

	mu      sync.Mutex
	pending map[string]struct{}
}

// NewJournal wraps an open database handle. The observer may be nil.
func NewJournal(db *storage.DB, logger *slog.Logger, observer ConversionObserver) *Journal {
	return &Journal{
		db:       db,
		logger:   logging.NewComponentLogger(logger, "notes"),
		observer: observer,
		pending:  make(map[string]struct{}),
	}
}

// Append stores a new note. Content is kept verbatim apart from trimming
// outer whitespace; a whitespace-only note is rejected.
func (j *Journal) Append(ctx context.Context, parentSessionID, content string) (*QuickNote, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, ErrEmptyContent
	}
	if strings.TrimSpace(parentSessionID) == "" {
		return nil, services.Wrap(services.ErrValidation, "notes", "append",
			"parent session id is required", nil)
	}

	note := &QuickNote{
		ID:              uuid.NewString(),
		ParentSessionID: parentSessionID,
		Content:         trimmed,
		CreatedAt:       time.Now().UTC(),
	}
	err := j.db.Exec(ctx, `INSERT INTO quick_notes
			(id, parent_session_id, content, converted_kind, converted_artifact_id, created_at)
		VALUES (?, ?, ?, '', '', ?)`,
		note.ID, note.ParentSessionID, note.Content,
		note.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "notes", "append", "insert note", err)
	}

	j.logger.Debug("note appended",
		logging.String(logging.FieldNoteID, note.ID),
		logging.String(logging.FieldSessionID, parentSessionID))
	return note, nil
}

// GetByID loads a single note.
func (j *Journal) GetByID(ctx context.Context, id string) (*QuickNote, error) {
	row := j.db.QueryRow(ctx, `SELECT id, parent_session_id, content,
			converted_kind, converted_artifact_id, created_at
		FROM quick_notes WHERE id = ?`, id)
	note, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "notes", "get",
			fmt.Sprintf("note %s not found", id), nil)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "notes", "get", "load note", err)
	}
	return note, nil
}

// ListByParent returns a session's notes, newest first.
func (j *Journal) ListByParent(ctx context.Context, parentSessionID string) ([]*QuickNote, error) {
	rows, err := j.db.Query(ctx, `SELECT id, parent_session_id, content,
			converted_kind, converted_artifact_id, created_at
		FROM quick_notes WHERE parent_session_id = ?
		ORDER BY created_at DESC, id DESC`, parentSessionID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "notes", "list", "list notes", err)
	}
	defer rows.Close()

	var notes []*QuickNote
	for rows.Next() {
		note, scanErr := scanNote(rows)
		if scanErr != nil {
			return nil, services.Wrap(services.ErrTransient, "notes", "list", "scan note", scanErr)
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrTransient, "notes", "list", "iterate notes", err)
	}
	return notes, nil
}

// RequestRemove records the intent to delete a note. Nothing is deleted
// until ConfirmRemove is called for the same note.
func (j *Journal) RequestRemove(ctx context.Context, id string) error {
	if _, err := j.GetByID(ctx, id); err != nil {
		return err
	}
	j.mu.Lock()
	j.pending[id] = struct{}{}
	j.mu.Unlock()
	return nil
}

// ConfirmRemove deletes a note whose removal was previously requested.
func (j *Journal) ConfirmRemove(ctx context.Context, id string) error {
	j.mu.Lock()
	_, requested := j.pending[id]
	delete(j.pending, id)
	j.mu.Unlock()
	if !requested {
		return ErrNoPendingRemoval
	}

	res, err := j.db.ExecWithRetry(ctx, `DELETE FROM quick_notes WHERE id = ?`, id)
	if err != nil {
		return services.Wrap(services.ErrTransient, "notes", "confirm-remove", "delete note", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return services.Wrap(services.ErrTransient, "notes", "confirm-remove", "rows affected", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "notes", "confirm-remove",
			fmt.Sprintf("note %s not found", id), nil)
	}
	j.logger.Info("note removed", logging.String(logging.FieldNoteID, id))
	return nil
}

// CancelRemove discards a pending removal request without touching the note.
func (j *Journal) CancelRemove(id string) {
	j.mu.Lock()
	delete(j.pending, id)
	j.mu.Unlock()
}

// RemovalPending reports whether a removal request is outstanding.
func (j *Journal) RemovalPending(id string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	_, ok := j.pending[id]
	return ok
}

// Convertible reports whether the note can still be converted. A note that
// already became an artifact fails with ErrAlreadyConverted.
func (j *Journal) Convertible(ctx context.Context, id string) error {
	note, err := j.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if note.Converted() {
		return ErrAlreadyConverted
	}
	return nil
}

// MarkConverted records that a note became an artifact. The write happens
// once: repeating the call with the same kind and artifact is a no-op, while
// a different target fails with ErrAlreadyConverted.
func (j *Journal) MarkConverted(ctx context.Context, id, kind, artifactID string) error {
	if strings.TrimSpace(kind) == "" || strings.TrimSpace(artifactID) == "" {
		return services.Wrap(services.ErrValidation, "notes", "mark-converted",
			"conversion kind and artifact id are required", nil)
	}

	note, err := j.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if note.Converted() {
		if note.ConvertedKind == kind && note.ConvertedArtifactID == artifactID {
			return nil
		}
		return ErrAlreadyConverted
	}

	// The WHERE clause re-checks the guard so concurrent conversions cannot
	// both win.
	res, err := j.db.ExecWithRetry(ctx, `UPDATE quick_notes
		SET converted_kind = ?, converted_artifact_id = ?
		WHERE id = ? AND converted_kind = ''`, kind, artifactID, id)
	if err != nil {
		return services.Wrap(services.ErrTransient, "notes", "mark-converted", "update note", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return services.Wrap(services.ErrTransient, "notes", "mark-converted", "rows affected", err)
	}
	if affected == 0 {
		return ErrAlreadyConverted
	}

	note.ConvertedKind = kind
	note.ConvertedArtifactID = artifactID
	j.logger.Info("note converted",
		logging.String(logging.FieldNoteID, id),
		logging.String("kind", kind),
		logging.String("artifact_id", artifactID))
	if j.observer != nil {
		j.observer(*note)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner) (*QuickNote, error) {
	var (
		note      QuickNote
		createdAt string
	)
	err := row.Scan(&note.ID, &note.ParentSessionID, &note.Content,
		&note.ConvertedKind, &note.ConvertedArtifactID, &createdAt)
	if err != nil {
		return nil, err
	}
	if t, parseErr := time.Parse(time.RFC3339Nano, createdAt); parseErr == nil {
		note.CreatedAt = t
	}
	return &note, nil
}
