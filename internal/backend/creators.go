package backend

import (
	"context"
	"fmt"
	"net/http"

	"escucha/internal/conversion"
	"escucha/internal/services"
)

// CreatePainPoint creates a pain-point artifact on the dashboard and returns
// its id.
func (c *Client) CreatePainPoint(ctx context.Context, draft conversion.Draft) (string, error) {
	url := fmt.Sprintf("%s/api/puntos-dolor", c.baseURL)
	var created artifactResponse
	err := c.send(ctx, http.MethodPost, url, painPointRequest{
		Contenido:      draft.Content,
		ParticipanteID: draft.ParticipantID,
	}, &created)
	if err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", services.Wrap(services.ErrExternal, "backend", "create-pain-point",
			"response missing artifact id", nil)
	}
	return created.ID, nil
}

// CreateProfiling creates a profiling artifact on the dashboard and returns
// its id. The category is mandatory for profiling artifacts.
func (c *Client) CreateProfiling(ctx context.Context, draft conversion.Draft) (string, error) {
	if draft.Category == "" {
		return "", services.Wrap(services.ErrValidation, "backend", "create-profiling",
			"profiling category is required", nil)
	}
	url := fmt.Sprintf("%s/api/perfilamientos", c.baseURL)
	var created artifactResponse
	err := c.send(ctx, http.MethodPost, url, profilingRequest{
		Categoria:      draft.Category,
		Contenido:      draft.Content,
		ParticipanteID: draft.ParticipantID,
	}, &created)
	if err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", services.Wrap(services.ErrExternal, "backend", "create-profiling",
			"response missing artifact id", nil)
	}
	return created.ID, nil
}
