package voicesession

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/eleven-am/vision-bridge/internal/shared"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	session *ElevenLabs
	agentID func(ctx context.Context) string
	logger  *slog.Logger
}

func NewHandler(session *ElevenLabs, agentID func(ctx context.Context) string, logger *slog.Logger) *Handler {
	if agentID == nil {
		agentID = func(context.Context) string { return "" }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		session: session,
		agentID: agentID,
		logger:  logger.With("component", "voice_handler"),
	}
}

type ConnectRequest struct {
	AgentID string `json:"agent_id"`
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/connect", h.Connect)
	g.POST("/disconnect", h.Disconnect)
	g.GET("/status", h.Status)
}

// Connect godoc
// @Summary      Connect to the voice agent
// @Description  Opens a conversation with the hosted voice agent. The agent id defaults to the stored credential.
// @Tags         voice
// @Accept       json
// @Produce      json
// @Param        request  body      voicesession.ConnectRequest  false  "Agent to connect to"
// @Success      202      {object}  voicesession.Info
// @Failure      400      {object}  shared.APIError
// @Failure      409      {object}  shared.APIError  "Session already active"
// @Failure      502      {object}  shared.APIError
// @Router       /voice/connect [post]
func (h *Handler) Connect(c echo.Context) error {
	var req ConnectRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return shared.BadRequest("invalid_request", "invalid request body")
		}
	}

	ctx := c.Request().Context()
	agentID := strings.TrimSpace(req.AgentID)
	if agentID == "" {
		agentID = h.agentID(ctx)
	}

	err := h.session.Connect(ctx, agentID)
	switch {
	case err == nil:
		return c.JSON(http.StatusAccepted, h.session.Info())
	case errors.Is(err, ErrMissingAgentID):
		return shared.BadRequest("missing_agent_id", "voice agent id is not configured")
	case errors.Is(err, ErrAlreadyConnected):
		return shared.Conflict("already_connected", "voice session already active")
	}

	var authErr *AuthError
	if errors.As(err, &authErr) {
		return shared.NewAPIError("voice_auth_failed", "voice service rejected the credentials").
			WithDetails(h.session.Info()).
			ToHTTP(http.StatusBadGateway)
	}
	return shared.NewAPIError("voice_connect_failed", "could not reach the voice service").
		WithDetails(h.session.Info()).
		ToHTTP(http.StatusBadGateway)
}

// Disconnect godoc
// @Summary      Disconnect from the voice agent
// @Tags         voice
// @Produce      json
// @Success      200  {object}  voicesession.Info
// @Failure      500  {object}  shared.APIError
// @Router       /voice/disconnect [post]
func (h *Handler) Disconnect(c echo.Context) error {
	if err := h.session.Disconnect(); err != nil {
		h.logger.Error("disconnect failed", "error", err)
		return shared.InternalError("disconnect_failed", "failed to disconnect")
	}
	return c.JSON(http.StatusOK, h.session.Info())
}

// Status godoc
// @Summary      Voice session status
// @Tags         voice
// @Produce      json
// @Success      200  {object}  voicesession.Info
// @Router       /voice/status [get]
func (h *Handler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, h.session.Info())
}
