package backend

import (
	"time"

	"escucha/internal/notes"
	"escucha/internal/recognition"
	"escucha/internal/transcripts"
)

// The dashboard persists its Spanish field names; the payload shapes here
// mirror that wire format exactly.

type transcriptSessionPayload struct {
	ID                        string                `json:"id"`
	SesionID                  string                `json:"sesion_id"`
	TranscripcionCompleta     string                `json:"transcripcion_completa"`
	TranscripcionPorSegmentos []recognition.Segment `json:"transcripcion_por_segmentos"`
	DuracionTotal             float64               `json:"duracion_total"`
	IdiomaDetectado           string                `json:"idioma_detectado,omitempty"`
	SemaforoRiesgo            string                `json:"semaforo_riesgo"`
	Estado                    string                `json:"estado"`
	FechaInicio               string                `json:"fecha_inicio,omitempty"`
	FechaFin                  string                `json:"fecha_fin,omitempty"`
}

type convertedToPayload struct {
	TipoArtefacto string `json:"tipo_artefacto"`
	ArtefactoID   string `json:"artefacto_id"`
}

type quickNotePayload struct {
	ID            string              `json:"id"`
	SesionID      string              `json:"sesion_id"`
	Contenido     string              `json:"contenido"`
	FechaCreacion string              `json:"fecha_creacion"`
	ConvertidoA   *convertedToPayload `json:"convertido_a,omitempty"`
}

type artifactResponse struct {
	ID string `json:"id"`
}

type painPointRequest struct {
	Contenido      string `json:"contenido"`
	ParticipanteID string `json:"participante_id,omitempty"`
}

type profilingRequest struct {
	Categoria      string `json:"categoria"`
	Contenido      string `json:"contenido"`
	ParticipanteID string `json:"participante_id,omitempty"`
}

func encodeTranscriptSession(session *transcripts.TranscriptSession) transcriptSessionPayload {
	return transcriptSessionPayload{
		ID:                        session.ID,
		SesionID:                  session.ParentSessionID,
		TranscripcionCompleta:     session.FullText,
		TranscripcionPorSegmentos: session.Segments,
		DuracionTotal:             session.Duration.Seconds(),
		IdiomaDetectado:           session.DetectedLanguage,
		SemaforoRiesgo:            string(session.RiskLevel),
		Estado:                    string(session.Status),
		FechaInicio:               formatWireTime(session.StartedAt),
		FechaFin:                  formatWireTime(session.EndedAt),
	}
}

func encodeQuickNote(note *notes.QuickNote) quickNotePayload {
	payload := quickNotePayload{
		ID:            note.ID,
		SesionID:      note.ParentSessionID,
		Contenido:     note.Content,
		FechaCreacion: formatWireTime(note.CreatedAt),
	}
	if note.Converted() {
		payload.ConvertidoA = &convertedToPayload{
			TipoArtefacto: note.ConvertedKind,
			ArtefactoID:   note.ConvertedArtifactID,
		}
	}
	return payload
}

func formatWireTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
