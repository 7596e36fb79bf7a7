package frame

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/eleven-am/vision-bridge/internal/shared"
	"github.com/labstack/echo/v4"
)

const (
	MaxUploadSize = 5 << 20
	// MaxUploadDimension caps either side of an uploaded image before it is
	// decoded into memory.
	MaxUploadDimension = 8192
)

type Handler struct {
	source *LiveSource
	logger *slog.Logger
}

func NewHandler(source *LiveSource, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		source: source,
		logger: logger.With("component", "frame_handler"),
	}
}

type UploadResponse struct {
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type StatusResponse struct {
	Ready       bool       `json:"ready"`
	LastFrameAt *time.Time `json:"last_frame_at,omitempty"`
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("", h.Upload)
	g.DELETE("", h.Clear)
	g.GET("/status", h.Status)
}

// Upload accepts a single JPEG or PNG still as the raw request body.
// @Summary      Upload a camera frame
// @Description  Replaces the current camera frame with a JPEG or PNG still sent as the raw body
// @Tags         frames
// @Accept       image/jpeg,image/png
// @Produce      json
// @Success      202  {object}  frame.UploadResponse
// @Failure      400  {object}  shared.APIError
// @Failure      413  {object}  shared.APIError  "Body over 5 MiB or a side over 8192 pixels"
// @Failure      415  {object}  shared.APIError
// @Router       /frames [post]
func (h *Handler) Upload(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, MaxUploadSize+1))
	if err != nil {
		return shared.BadRequest("read_failed", "failed to read frame")
	}
	if len(body) == 0 {
		return shared.BadRequest("empty_frame", "empty frame")
	}
	if len(body) > MaxUploadSize {
		return shared.NewAPIError("frame_too_large", "frame exceeds 5 MiB").ToHTTP(http.StatusRequestEntityTooLarge)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(body))
	if err != nil {
		h.logger.Debug("frame header decode failed", "error", err)
		return shared.NewAPIError("unsupported_image", "frame must be a JPEG or PNG image").ToHTTP(http.StatusUnsupportedMediaType)
	}
	if cfg.Width > MaxUploadDimension || cfg.Height > MaxUploadDimension {
		return shared.NewAPIError("frame_too_large", "frame dimensions exceed 8192 pixels").ToHTTP(http.StatusRequestEntityTooLarge)
	}

	img, format, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		h.logger.Debug("frame decode failed", "error", err)
		return shared.NewAPIError("unsupported_image", "frame must be a JPEG or PNG image").ToHTTP(http.StatusUnsupportedMediaType)
	}

	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return shared.BadRequest("empty_frame", "frame has no pixels")
	}

	h.source.Update(img)

	return c.JSON(http.StatusAccepted, UploadResponse{
		Format: format,
		Width:  b.Dx(),
		Height: b.Dy(),
	})
}

// Clear godoc
// @Summary      Forget the camera frame
// @Tags         frames
// @Success      204  "No Content"
// @Router       /frames [delete]
func (h *Handler) Clear(c echo.Context) error {
	h.source.Reset()
	return c.NoContent(http.StatusNoContent)
}

// Status godoc
// @Summary      Camera frame status
// @Description  Reports whether a frame is available and when it arrived
// @Tags         frames
// @Produce      json
// @Success      200  {object}  frame.StatusResponse
// @Router       /frames/status [get]
func (h *Handler) Status(c echo.Context) error {
	resp := StatusResponse{Ready: h.source.Ready()}
	if at := h.source.LastFrameAt(); !at.IsZero() {
		resp.LastFrameAt = &at
	}
	return c.JSON(http.StatusOK, resp)
}
