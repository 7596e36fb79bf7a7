package realtime

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/eleven-am/vision-bridge/internal/frame"
	"github.com/eleven-am/vision-bridge/internal/shared"
	"github.com/labstack/echo/v4"
	"github.com/pion/webrtc/v4"
)

// Camera is where decoded video frames land.
type Camera interface {
	frame.ImageSink
	Reset()
}

type Handler struct {
	manager *Manager
	camera  Camera
	log     *slog.Logger
}

func NewHandler(mgr *Manager, camera Camera, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		manager: mgr,
		camera:  camera,
		log:     log.With("component", "rtc_handler"),
	}
}

type OfferRequest struct {
	SDP string `json:"sdp"`
}

type ICEServer struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username,omitempty"`
	Credential string   `json:"credential,omitempty"`
}

type ICECandidateRequest struct {
	Candidate     string  `json:"candidate"`
	SDPMid        *string `json:"sdpMid,omitempty"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex,omitempty"`
}

type ICEServersResponse struct {
	ICEServers []ICEServer `json:"ice_servers"`
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/video", h.HandleOffer)
	g.POST("/video/:session_id", h.HandleICECandidate)
	g.GET("/video/:session_id", h.HandleICEStream)
	g.DELETE("/video/:session_id", h.HandleClose)
	g.GET("/ice-servers", h.HandleICEServers)
}

// HandleICECandidate godoc
// @Summary      Add a remote ICE candidate
// @Tags         rtc
// @Accept       json
// @Param        session_id  path  string                        true  "Session ID"
// @Param        request     body  realtime.ICECandidateRequest  true  "Candidate"
// @Success      204  "No Content"
// @Failure      400  {object}  shared.APIError
// @Failure      404  {object}  shared.APIError
// @Router       /rtc/video/{session_id} [post]
func (h *Handler) HandleICECandidate(c echo.Context) error {
	session, err := h.lookup(c)
	if err != nil {
		return err
	}

	var req ICECandidateRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_body", "invalid request body")
	}

	candidate := webrtc.ICECandidateInit{
		Candidate:     req.Candidate,
		SDPMid:        req.SDPMid,
		SDPMLineIndex: req.SDPMLineIndex,
	}

	if err := session.Peer().AddICECandidate(candidate); err != nil {
		h.log.Error("failed to add ICE candidate", "error", err)
		return shared.BadRequest("invalid_candidate", "failed to add candidate")
	}

	return c.NoContent(http.StatusNoContent)
}

// HandleICEStream godoc
// @Summary      Stream local ICE candidates
// @Description  Server-sent events, one ice-candidate event per gathered candidate
// @Tags         rtc
// @Produce      text/event-stream
// @Param        session_id  path  string  true  "Session ID"
// @Success      200  "Event stream"
// @Failure      404  {object}  shared.APIError
// @Router       /rtc/video/{session_id} [get]
func (h *Handler) HandleICEStream(c echo.Context) error {
	session, err := h.lookup(c)
	if err != nil {
		return err
	}

	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Flush()

	ctx := c.Request().Context()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-session.Done():
			return nil
		case candidate, ok := <-session.ICECandidates():
			if !ok {
				return nil
			}

			data, err := json.Marshal(candidate)
			if err != nil {
				continue
			}

			fmt.Fprintf(c.Response(), "event: ice-candidate\ndata: %s\n\n", data)
			c.Response().Flush()
		}
	}
}

// HandleClose godoc
// @Summary      Close a camera session
// @Tags         rtc
// @Param        session_id  path  string  true  "Session ID"
// @Success      204  "No Content"
// @Failure      404  {object}  shared.APIError
// @Router       /rtc/video/{session_id} [delete]
func (h *Handler) HandleClose(c echo.Context) error {
	if !h.manager.RemoveSession(c.Param("session_id")) {
		return shared.NotFound("session_not_found", "session not found")
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleICEServers godoc
// @Summary      ICE server list
// @Tags         rtc
// @Produce      json
// @Success      200  {object}  realtime.ICEServersResponse
// @Router       /rtc/ice-servers [get]
func (h *Handler) HandleICEServers(c echo.Context) error {
	return c.JSON(http.StatusOK, ICEServersResponse{ICEServers: h.iceServersResponse()})
}

func (h *Handler) lookup(c echo.Context) (*Session, error) {
	sessionID := c.Param("session_id")
	if sessionID == "" {
		return nil, shared.BadRequest("missing_session_id", "missing session id")
	}

	session, ok := h.manager.GetSession(sessionID)
	if !ok {
		return nil, shared.NotFound("session_not_found", "session not found")
	}
	return session, nil
}

func (h *Handler) maxSDPSize() int64 {
	maxSize := h.manager.Config().MaxSDPSize
	if maxSize <= 0 {
		maxSize = 64 * 1024
	}
	return int64(maxSize)
}

func (h *Handler) iceServersResponse() []ICEServer {
	cfgServers := h.manager.ICEServers()
	servers := make([]ICEServer, 0, len(cfgServers))

	for _, s := range cfgServers {
		servers = append(servers, ICEServer(s))
	}

	if len(servers) == 0 {
		servers = append(servers, ICEServer{
			URLs: []string{"stun:stun.l.google.com:19302"},
		})
	}

	return servers
}

// HandleOffer answers a browser's camera offer. Any existing camera session
// is replaced.
// @Summary      Start a camera session
// @Description  Accepts an SDP offer as application/sdp or JSON and returns the SDP answer. The session id is in X-Session-Id.
// @Tags         rtc
// @Accept       application/sdp,json
// @Produce      application/sdp
// @Param        request  body      realtime.OfferRequest  true  "SDP offer"
// @Success      200      {string}  string  "SDP answer"
// @Header       200      {string}  X-Session-Id  "Camera session id"
// @Failure      400      {object}  shared.APIError
// @Failure      500      {object}  shared.APIError
// @Router       /rtc/video [post]
func (h *Handler) HandleOffer(c echo.Context) error {
	sdp, err := h.extractRequest(c)
	if err != nil {
		h.log.Warn("failed to extract offer", "error", err)
		return shared.BadRequest("invalid_offer", err.Error())
	}

	if sdp == "" {
		return shared.BadRequest("missing_sdp", "missing sdp")
	}

	h.manager.RemoveAll()

	peer, err := h.manager.NewPeer()
	if err != nil {
		h.log.Error("failed to create peer", "error", err)
		return shared.InternalError("peer_failed", "failed to create peer connection")
	}

	if err := peer.SetOffer(sdp); err != nil {
		peer.Close()
		h.log.Warn("failed to set offer", "error", err)
		return shared.BadRequest("invalid_offer", "failed to process offer")
	}

	feed := frame.NewRTPFeed(frame.FeedConfig{
		Sink:       h.camera,
		DecodeRate: h.manager.Config().DecodeRate,
		Logger:     h.log,
	})
	feed.OnKeyframeRequest(peer.RequestKeyframe)
	peer.OnVideo(feed.HandleRTP)

	rtcSession := h.manager.CreateSession(peer, feed)
	sessionID := rtcSession.ID

	peer.OnConnected(func() {
		h.log.Info("camera connected", "session_id", sessionID)
	})
	peer.OnFailed(func() {
		h.log.Info("camera disconnected", "session_id", sessionID)
		h.manager.RemoveSession(sessionID)
	})
	rtcSession.OnClose(func() {
		if h.camera != nil {
			h.camera.Reset()
		}
	})

	peer.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand == nil {
			return
		}
		rtcSession.SendICE(cand.ToJSON())
	})

	answer, err := peer.CreateAnswer()
	if err != nil {
		h.manager.RemoveSession(sessionID)
		h.log.Error("failed to create answer", "error", err)
		return shared.InternalError("answer_failed", "failed to create answer")
	}

	c.Response().Header().Set("X-Session-Id", sessionID)
	c.Response().Header().Set("Content-Type", "application/sdp")
	return c.String(http.StatusOK, answer)
}

func (h *Handler) extractRequest(c echo.Context) (string, error) {
	contentType := c.Request().Header.Get("Content-Type")
	mediaType, params, _ := mime.ParseMediaType(contentType)

	switch mediaType {
	case "application/sdp":
		body, err := io.ReadAll(io.LimitReader(c.Request().Body, h.maxSDPSize()))
		if err != nil {
			return "", fmt.Errorf("failed to read SDP body: %w", err)
		}
		return string(body), nil

	case "multipart/form-data":
		boundary := params["boundary"]
		if boundary == "" {
			return "", fmt.Errorf("missing boundary in multipart")
		}
		reader := multipart.NewReader(c.Request().Body, boundary)
		var sdp string
		for {
			part, err := reader.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				return "", fmt.Errorf("failed to read multipart: %w", err)
			}
			if part.FormName() == "sdp" {
				data, err := io.ReadAll(io.LimitReader(part, h.maxSDPSize()))
				if err != nil {
					return "", fmt.Errorf("failed to read SDP part: %w", err)
				}
				sdp = string(data)
			}
		}
		if sdp == "" {
			return "", fmt.Errorf("sdp field not found in multipart")
		}
		return sdp, nil

	case "application/json", "":
		body, err := io.ReadAll(io.LimitReader(c.Request().Body, h.maxSDPSize()))
		if err != nil {
			return "", fmt.Errorf("failed to read request body: %w", err)
		}
		var req OfferRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return "", fmt.Errorf("invalid JSON body: %w", err)
		}
		return req.SDP, nil

	default:
		return "", fmt.Errorf("unsupported content type: %s", contentType)
	}
}
