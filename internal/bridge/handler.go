package bridge

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	loop   *Loop
	logger *slog.Logger
}

func NewHandler(loop *Loop, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		loop:   loop,
		logger: logger.With("component", "bridge_handler"),
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/start", h.Start)
	g.POST("/stop", h.Stop)
	g.GET("/status", h.Status)
}

// Start godoc
// @Summary      Start vision
// @Description  Activates the vision loop. Ticks begin once a camera frame is available.
// @Tags         vision
// @Produce      json
// @Success      200  {object}  bridge.Status
// @Router       /vision/start [post]
func (h *Handler) Start(c echo.Context) error {
	h.loop.Start()
	return c.JSON(http.StatusOK, h.loop.Status())
}

// Stop godoc
// @Summary      Stop vision
// @Description  Deactivates the vision loop and clears the previous frame and observation
// @Tags         vision
// @Produce      json
// @Success      200  {object}  bridge.Status
// @Router       /vision/stop [post]
func (h *Handler) Stop(c echo.Context) error {
	h.loop.Stop()
	return c.JSON(http.StatusOK, h.loop.Status())
}

// Status godoc
// @Summary      Vision status
// @Tags         vision
// @Produce      json
// @Success      200  {object}  bridge.Status
// @Router       /vision/status [get]
func (h *Handler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, h.loop.Status())
}
