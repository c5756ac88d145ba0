package transcripts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"escucha/internal/recognition"
	"escucha/internal/services"
	"escucha/internal/storage"
)

// Store persists transcript sessions in SQLite.
type Store struct {
	db *storage.DB
}

// NewStore wraps an open database handle.
func NewStore(db *storage.DB) *Store {
	return &Store{db: db}
}

const sessionColumns = `id, parent_session_id, full_text, segments_json,
	duration_seconds, detected_language, risk_level, status, word_count,
	speaker_count, started_at, ended_at, created_at, updated_at`

// Create inserts a new transcript session. A missing ID is generated, the
// risk level defaults to green, and timestamps are stamped in UTC.
func (s *Store) Create(ctx context.Context, session *TranscriptSession) error {
	if session == nil {
		return services.Wrap(services.ErrValidation, "transcripts", "create", "session is nil", nil)
	}
	if strings.TrimSpace(session.ParentSessionID) == "" {
		return services.Wrap(services.ErrValidation, "transcripts", "create",
			"parent session id is required", nil)
	}
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.RiskLevel == "" {
		session.RiskLevel = RiskGreen
	}
	if session.Status == "" {
		session.Status = StatusQueued
	}

	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now

	segmentsJSON, err := marshalSegments(session.Segments)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`INSERT INTO transcript_sessions (%s)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, sessionColumns)
	err = s.db.Exec(ctx, query,
		session.ID,
		session.ParentSessionID,
		session.FullText,
		segmentsJSON,
		session.Duration.Seconds(),
		session.DetectedLanguage,
		string(session.RiskLevel),
		string(session.Status),
		session.WordCount,
		session.SpeakerCount,
		formatTime(session.StartedAt),
		formatTime(session.EndedAt),
		formatTime(session.CreatedAt),
		formatTime(session.UpdatedAt),
	)
	if err != nil {
		return services.Wrap(services.ErrTransient, "transcripts", "create",
			"insert transcript session", err)
	}
	return nil
}

// GetByID loads a single session.
func (s *Store) GetByID(ctx context.Context, id string) (*TranscriptSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM transcript_sessions WHERE id = ?`, sessionColumns)
	row := s.db.QueryRow(ctx, query, id)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "transcripts", "get",
			fmt.Sprintf("transcript session %s not found", id), nil)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "transcripts", "get",
			"load transcript session", err)
	}
	return session, nil
}

// Update writes the session's mutable fields back. The full text can be
// edited freely; the stored risk level travels with the session and is left
// exactly as the caller set it.
func (s *Store) Update(ctx context.Context, session *TranscriptSession) error {
	if session == nil || session.ID == "" {
		return services.Wrap(services.ErrValidation, "transcripts", "update", "session id is required", nil)
	}
	session.UpdatedAt = time.Now().UTC()

	segmentsJSON, err := marshalSegments(session.Segments)
	if err != nil {
		return err
	}

	res, err := s.db.ExecWithRetry(ctx, `UPDATE transcript_sessions SET
			full_text = ?, segments_json = ?, duration_seconds = ?,
			detected_language = ?, risk_level = ?, status = ?,
			word_count = ?, speaker_count = ?, started_at = ?, ended_at = ?,
			updated_at = ?
		WHERE id = ?`,
		session.FullText,
		segmentsJSON,
		session.Duration.Seconds(),
		session.DetectedLanguage,
		string(session.RiskLevel),
		string(session.Status),
		session.WordCount,
		session.SpeakerCount,
		formatTime(session.StartedAt),
		formatTime(session.EndedAt),
		formatTime(session.UpdatedAt),
		session.ID,
	)
	if err != nil {
		return services.Wrap(services.ErrTransient, "transcripts", "update",
			"update transcript session", err)
	}
	return requireRow(res, "transcripts", "update", session.ID)
}

// UpdateRisk changes only the triage semaphore.
func (s *Store) UpdateRisk(ctx context.Context, id string, level RiskLevel) error {
	if _, err := ParseRiskLevel(string(level)); err != nil {
		return err
	}
	res, err := s.db.ExecWithRetry(ctx,
		`UPDATE transcript_sessions SET risk_level = ?, updated_at = ? WHERE id = ?`,
		string(level), formatTime(time.Now().UTC()), id)
	if err != nil {
		return services.Wrap(services.ErrTransient, "transcripts", "update-risk",
			"update risk level", err)
	}
	return requireRow(res, "transcripts", "update-risk", id)
}

// UpdateStatus changes only the lifecycle status.
func (s *Store) UpdateStatus(ctx context.Context, id string, status Status) error {
	res, err := s.db.ExecWithRetry(ctx,
		`UPDATE transcript_sessions SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), formatTime(time.Now().UTC()), id)
	if err != nil {
		return services.Wrap(services.ErrTransient, "transcripts", "update-status",
			"update status", err)
	}
	return requireRow(res, "transcripts", "update-status", id)
}

// Delete removes a session. Quick notes attached to the same parent session
// are left untouched.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecWithRetry(ctx, `DELETE FROM transcript_sessions WHERE id = ?`, id)
	if err != nil {
		return services.Wrap(services.ErrTransient, "transcripts", "delete",
			"delete transcript session", err)
	}
	return requireRow(res, "transcripts", "delete", id)
}

// ListByParent returns every session for a parent, newest first.
func (s *Store) ListByParent(ctx context.Context, parentSessionID string) ([]*TranscriptSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM transcript_sessions
		WHERE parent_session_id = ? ORDER BY created_at DESC, id DESC`, sessionColumns)
	rows, err := s.db.Query(ctx, query, parentSessionID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "transcripts", "list",
			"list transcript sessions", err)
	}
	defer rows.Close()
	return collectSessions(rows)
}

// ListAll returns every stored session, newest first.
func (s *Store) ListAll(ctx context.Context) ([]*TranscriptSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM transcript_sessions
		ORDER BY created_at DESC, id DESC`, sessionColumns)
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "transcripts", "list",
			"list transcript sessions", err)
	}
	defer rows.Close()
	return collectSessions(rows)
}

func requireRow(res sql.Result, component, op, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return services.Wrap(services.ErrTransient, component, op, "rows affected", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, component, op,
			fmt.Sprintf("transcript session %s not found", id), nil)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*TranscriptSession, error) {
	var (
		session         TranscriptSession
		fullText        sql.NullString
		segmentsJSON    sql.NullString
		durationSeconds float64
		language        sql.NullString
		risk            string
		status          string
		startedAt       sql.NullString
		endedAt         sql.NullString
		createdAt       string
		updatedAt       string
	)
	err := row.Scan(
		&session.ID,
		&session.ParentSessionID,
		&fullText,
		&segmentsJSON,
		&durationSeconds,
		&language,
		&risk,
		&status,
		&session.WordCount,
		&session.SpeakerCount,
		&startedAt,
		&endedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	session.FullText = fullText.String
	session.Duration = time.Duration(durationSeconds * float64(time.Second))
	session.DetectedLanguage = language.String
	session.RiskLevel = RiskLevel(risk)
	session.Status = Status(status)
	session.StartedAt = parseTime(startedAt.String)
	session.EndedAt = parseTime(endedAt.String)
	session.CreatedAt = parseTime(createdAt)
	session.UpdatedAt = parseTime(updatedAt)

	if segmentsJSON.Valid && segmentsJSON.String != "" {
		if err := json.Unmarshal([]byte(segmentsJSON.String), &session.Segments); err != nil {
			return nil, fmt.Errorf("decode segments: %w", err)
		}
	}
	return &session, nil
}

func collectSessions(rows *sql.Rows) ([]*TranscriptSession, error) {
	var sessions []*TranscriptSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, "transcripts", "list",
				"scan transcript session", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrTransient, "transcripts", "list",
			"iterate transcript sessions", err)
	}
	return sessions, nil
}

func marshalSegments(segments []recognition.Segment) (string, error) {
	if len(segments) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(segments)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "transcripts", "encode",
			"encode segments", err)
	}
	return string(data), nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
