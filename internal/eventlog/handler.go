package eventlog

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/eleven-am/vision-bridge/internal/shared"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type Handler struct {
	sink   *Sink
	logger *slog.Logger
}

func NewHandler(sink *Sink, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		sink:   sink,
		logger: logger.With("component", "eventlog_handler"),
	}
}

type ListResponse struct {
	Total   int     `json:"total"`
	Entries []Entry `json:"entries"`
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.List)
	g.GET("/stream", h.Stream)
}

// List godoc
// @Summary      List log entries
// @Description  Returns log entries in append order, starting at the given index
// @Tags         log
// @Produce      json
// @Param        since  query     int  false  "Index of the first entry to return"
// @Success      200    {object}  eventlog.ListResponse
// @Failure      400    {object}  shared.APIError
// @Router       /logs [get]
func (h *Handler) List(c echo.Context) error {
	since := 0
	if raw := c.QueryParam("since"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return shared.BadRequest("invalid_since", "since must be a non-negative integer")
		}
		since = n
	}

	return c.JSON(http.StatusOK, ListResponse{
		Total:   h.sink.Len(),
		Entries: h.sink.Since(since),
	})
}

// Stream godoc
// @Summary      Stream log entries
// @Description  Upgrades to a websocket that replays the history and then pushes each new entry as JSON
// @Tags         log
// @Success      101  "Switching Protocols"
// @Router       /logs/stream [get]
func (h *Handler) Stream(c echo.Context) error {
	ws, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return nil
	}
	defer ws.Close()

	history, entries, cancel := h.sink.Subscribe()
	defer cancel()

	closed := make(chan struct{})
	go h.readPump(ws, closed)

	for _, entry := range history {
		if err := writeEntry(ws, entry); err != nil {
			return nil
		}
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return nil
		case entry, ok := <-entries:
			if !ok {
				return nil
			}
			if err := writeEntry(ws, entry); err != nil {
				h.logger.Debug("log stream write failed", "error", err)
				return nil
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		}
	}
}

// readPump only drains control frames; the stream is server-to-client.
func (h *Handler) readPump(ws *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

func writeEntry(ws *websocket.Conn, entry Entry) error {
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	return ws.WriteJSON(entry)
}
