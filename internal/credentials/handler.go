package credentials

import (
	"log/slog"
	"net/http"

	"github.com/eleven-am/vision-bridge/internal/shared"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	store  *Store
	logger *slog.Logger
}

func NewHandler(store *Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		store:  store,
		logger: logger.With("component", "credentials_handler"),
	}
}

type UpdateRequest struct {
	VisionAPIKey string `json:"vision_api_key"`
	VoiceAgentID string `json:"voice_agent_id"`
	VoiceAPIKey  string `json:"voice_api_key"`
	Remember     *bool  `json:"remember,omitempty"`
}

type ListResponse struct {
	Credentials []Description `json:"credentials"`
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.List)
	g.PUT("", h.Update)
	g.DELETE("", h.Clear)
}

// List godoc
// @Summary      List credentials
// @Description  Describes each credential with its source and a masked value
// @Tags         credentials
// @Produce      json
// @Success      200  {object}  credentials.ListResponse
// @Router       /credentials [get]
func (h *Handler) List(c echo.Context) error {
	return c.JSON(http.StatusOK, ListResponse{Credentials: h.store.Describe(c.Request().Context())})
}

// Update godoc
// @Summary      Enter credentials
// @Description  Applies the non-empty values. They are remembered in the cache unless remember is false.
// @Tags         credentials
// @Accept       json
// @Produce      json
// @Param        request  body      credentials.UpdateRequest  true  "Credential values"
// @Success      200      {object}  credentials.ListResponse
// @Failure      400      {object}  shared.APIError
// @Failure      503      {object}  shared.APIError  "Cache unavailable, nothing applied"
// @Router       /credentials [put]
func (h *Handler) Update(c echo.Context) error {
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_request", "invalid request body")
	}

	remember := true
	if req.Remember != nil {
		remember = *req.Remember
	}

	ctx := c.Request().Context()
	values := map[Name]string{
		VisionAPIKey: req.VisionAPIKey,
		VoiceAgentID: req.VoiceAgentID,
		VoiceAPIKey:  req.VoiceAPIKey,
	}
	if err := h.store.Set(ctx, values, remember); err != nil {
		h.logger.Error("failed to cache credentials", "error", err)
		return shared.Unavailable("cache_unavailable", "credentials could not be remembered and were not applied")
	}

	return c.JSON(http.StatusOK, ListResponse{Credentials: h.store.Describe(ctx)})
}

// Clear godoc
// @Summary      Clear credentials
// @Description  Forgets entered values and removes cached ones. Environment values stay.
// @Tags         credentials
// @Success      204  "No Content"
// @Failure      503  {object}  shared.APIError
// @Router       /credentials [delete]
func (h *Handler) Clear(c echo.Context) error {
	if err := h.store.Clear(c.Request().Context()); err != nil {
		h.logger.Error("failed to clear cached credentials", "error", err)
		return shared.Unavailable("cache_unavailable", "could not clear cached credentials")
	}
	return c.NoContent(http.StatusNoContent)
}
