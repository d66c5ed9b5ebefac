package proxy

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"gatehouse/internal/apperror"
	"gatehouse/internal/auth"
)

// Handler exposes the analyzer routes. Each handler injects the caller's
// principal id and hands the request to the forwarder; it never looks at the
// downstream payload.
type Handler struct {
	fwd *Forwarder
}

// NewHandler creates a proxy handler over the given forwarder.
func NewHandler(fwd *Forwarder) *Handler {
	return &Handler{fwd: fwd}
}

// Upload relays a file submission (POST /api/analyzer/upload).
func (h *Handler) Upload(c echo.Context) error {
	principal := auth.GetPrincipal(c)
	if principal == nil {
		return apperror.NewMissingContext()
	}

	return h.fwd.ForwardUpload(c, principal.ID)
}

// GetTask relays a task status lookup (GET /api/analyzer/tasks/:taskId).
func (h *Handler) GetTask(c echo.Context) error {
	principal := auth.GetPrincipal(c)
	if principal == nil {
		return apperror.NewMissingContext()
	}

	query := url.Values{}
	query.Set("user_id", principal.ID)

	return h.fwd.Relay(c, http.MethodGet, "/tasks/"+url.PathEscape(c.Param("taskId")), query, nil, "")
}

// ListTasks relays a listing of the caller's tasks (GET /api/analyzer/tasks).
func (h *Handler) ListTasks(c echo.Context) error {
	principal := auth.GetPrincipal(c)
	if principal == nil {
		return apperror.NewMissingContext()
	}

	query := url.Values{}
	query.Set("user_id", principal.ID)

	return h.fwd.Relay(c, http.MethodGet, "/tasks", query, nil, "")
}

// SimilaritySearch relays a similar-document search
// (GET /api/analyzer/similarity/search/:taskId). top_k defaults to 5.
func (h *Handler) SimilaritySearch(c echo.Context) error {
	principal := auth.GetPrincipal(c)
	if principal == nil {
		return apperror.NewMissingContext()
	}

	topK := c.QueryParam("top_k")
	if topK == "" {
		topK = "5"
	}

	query := url.Values{}
	query.Set("user_id", principal.ID)
	query.Set("top_k", topK)

	return h.fwd.Relay(c, http.MethodGet, "/similarity/search/"+url.PathEscape(c.Param("taskId")), query, nil, "")
}

// SimilarityCompare relays a pairwise comparison
// (POST /api/analyzer/similarity/compare). The task ids travel as query
// parameters, mirroring the analyzer's contract.
func (h *Handler) SimilarityCompare(c echo.Context) error {
	principal := auth.GetPrincipal(c)
	if principal == nil {
		return apperror.NewMissingContext()
	}

	query := url.Values{}
	query.Set("task_id_1", c.QueryParam("task_id_1"))
	query.Set("task_id_2", c.QueryParam("task_id_2"))
	query.Set("user_id", principal.ID)

	return h.fwd.Relay(c, http.MethodPost, "/similarity/compare", query,
		strings.NewReader("{}"), echo.MIMEApplicationJSON)
}
