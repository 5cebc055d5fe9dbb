package ws

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-meshgrid/internal/app"
	"github.com/coreman2200/funtimes-meshgrid/internal/config"
	diag "github.com/coreman2200/funtimes-meshgrid/internal/diagnostics"
)

const writeWait = 200 * time.Millisecond

// State serves the viewer over HTTP: PNG frames and diagnostics are pushed over websockets,
// control messages come back on /control and are applied on the core's loop.
type State struct {
	Core       *app.Core
	ConfigPath string
	Driver     string

	mu          sync.RWMutex
	startTime   time.Time
	frameID     uint64
	clients     map[uuid.UUID]*websocket.Conn
	diagClients map[uuid.UUID]*websocket.Conn
	up          websocket.Upgrader
}

func NewState(core *app.Core) *State {
	return &State{
		Core:        core,
		startTime:   time.Now(),
		clients:     map[uuid.UUID]*websocket.Conn{},
		diagClients: map[uuid.UUID]*websocket.Conn{},
		up:          websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

// Router returns the gin engine with every route mounted.
func (s *State) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), withCORS())
	r.GET("/health", s.HandleHealth)
	r.GET("/topology", s.HandleTopology)
	r.GET("/snapshot.png", s.HandleSnapshot)
	r.GET("/ws", s.HandleFramesWS)
	r.GET("/diag", s.HandleDiagWS)
	r.GET("/control", s.HandleControlWS)
	return r
}

func withCORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

func (s *State) register(set map[uuid.UUID]*websocket.Conn, conn *websocket.Conn) uuid.UUID {
	id := uuid.New()
	s.mu.Lock()
	set[id] = conn
	s.mu.Unlock()
	return id
}

// drain reads until the peer goes away, then unregisters it.
func (s *State) drain(set map[uuid.UUID]*websocket.Conn, id uuid.UUID, conn *websocket.Conn) {
	defer func() {
		s.mu.Lock()
		delete(set, id)
		s.mu.Unlock()
		conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *State) HandleFramesWS(c *gin.Context) {
	conn, err := s.up.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	// topology goes out before the conn is shared with BroadcastFrame
	s.sendTopology(c.Request.Context(), conn)
	id := s.register(s.clients, conn)
	log.Debug().Str("client", id.String()).Msg("frame client connected")
	go s.drain(s.clients, id, conn)
}

func (s *State) HandleDiagWS(c *gin.Context) {
	conn, err := s.up.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	id := s.register(s.diagClients, conn)
	go s.drain(s.diagClients, id, conn)
}

func (s *State) HandleControlWS(c *gin.Context) {
	conn, err := s.up.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	ctx := c.Request.Context()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg Control
		if err := json.Unmarshal(data, &msg); err != nil {
			s.PushDiag(diag.Diagnostic{Severity: diag.Warn, Code: "CONTROL.BAD", Summary: "Malformed control message", Detail: err.Error()})
			continue
		}
		if err := s.Core.Do(ctx, func() error { return s.apply(msg) }); err != nil {
			s.PushDiag(diag.FromError(err))
		}
		s.sendTopology(ctx, conn)
	}
}

func (s *State) HandleHealth(c *gin.Context) {
	var frames uint64
	var failures int
	if err := s.Core.Do(c.Request.Context(), func() error {
		frames, failures = s.Core.Eng.Frames(), s.Core.Failures()
		return nil
	}); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c.JSON(http.StatusOK, gin.H{
		"frame_id": s.frameID,
		"frames":   frames,
		"failures": failures,
		"uptime_s": time.Since(s.startTime).Seconds(),
		"clients":  len(s.clients),
		"driver":   s.Driver,
	})
}

func (s *State) HandleTopology(c *gin.Context) {
	var top app.Topology
	if err := s.Core.Do(c.Request.Context(), func() error {
		top = s.Core.Topology()
		return nil
	}); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, top)
}

func (s *State) HandleSnapshot(c *gin.Context) {
	var b []byte
	err := s.Core.Do(c.Request.Context(), func() error {
		if err := s.Core.Eng.RenderAll(); err != nil {
			return err
		}
		var err error
		b, err = s.Core.Snapshot()
		return err
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, diag.FromError(err))
		return
	}
	c.Data(http.StatusOK, "image/png", b)
}

// Control is one message on /control. Op selects which fields are read.
type Control struct {
	Op      string          `json:"op"`
	DX      float64         `json:"dx,omitempty"`
	DY      float64         `json:"dy,omitempty"`
	Factor  float64         `json:"factor,omitempty"`
	Row     *int            `json:"row,omitempty"`
	Value   float64         `json:"value,omitempty"`
	Width   float64         `json:"width,omitempty"`
	Seconds float64         `json:"seconds,omitempty"`
	Loop    bool            `json:"loop,omitempty"`
	Name    string          `json:"name,omitempty"`
	Program json.RawMessage `json:"program,omitempty"`
}

// apply runs on the core loop.
func (s *State) apply(m Control) error {
	switch m.Op {
	case "orbit":
		s.Core.Drag(m.DX, m.DY)
	case "pan":
		s.Core.Pan(m.DX, m.DY)
	case "zoom":
		s.Core.Zoom(m.Factor)
	case "clip":
		row := -1
		if m.Row != nil {
			row = *m.Row
		}
		if _, err := s.Core.SetClip(row, m.Value); err != nil {
			return err
		}
	case "resize":
		if err := s.Core.Resize(m.Width); err != nil {
			return err
		}
		s.saveConfig()
	case "sweep":
		return s.Core.StartSweep(m.Seconds)
	case "turntable":
		return s.Core.StartTurntable(m.Seconds, m.Loop)
	case "program":
		return s.Core.PlayProgram(m.Program)
	case "stop":
		s.Core.StopSequence()
	case "runTest":
		if err := s.Core.RunPattern(m.Name); err != nil {
			s.PushDiag(diag.Diagnostic{
				Severity: diag.Warn, Code: "TEST.UNKNOWN", Summary: "Unknown test name",
				Evidence: map[string]any{"name": m.Name},
			})
		}
	default:
		return fmt.Errorf("unknown control op %q", m.Op)
	}
	return nil
}

// saveConfig persists the config after a change. Must run on the core loop.
func (s *State) saveConfig() {
	if s.ConfigPath == "" {
		return
	}
	if err := config.Save(s.ConfigPath, s.Core.Cfg); err != nil {
		log.Warn().Err(err).Str("path", s.ConfigPath).Msg("config save failed")
	}
}

func (s *State) sendTopology(ctx context.Context, conn *websocket.Conn) {
	var top app.Topology
	if err := s.Core.Do(ctx, func() error {
		top = s.Core.Topology()
		return nil
	}); err != nil {
		return
	}
	b, _ := json.Marshal(map[string]any{"type": "topology", "topology": top, "driver": s.Driver})
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteMessage(websocket.TextMessage, b)
}

// BroadcastFrame sends an encoded frame to every frame client. It is the preview driver's
// emit callback.
func (s *State) BroadcastFrame(png []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frameID++
	for id, c := range s.clients {
		_ = c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(websocket.BinaryMessage, png); err != nil {
			log.Debug().Err(err).Str("client", id.String()).Msg("write frame")
		}
	}
}

// PushDiag sends d to every diagnostics client.
func (s *State) PushDiag(d diag.Diagnostic) {
	b, _ := json.Marshal(d)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.diagClients {
		_ = c.SetWriteDeadline(time.Now().Add(writeWait))
		_ = c.WriteMessage(websocket.TextMessage, b)
	}
}
