package ws

import (
	"bytes"
	"context"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/funtimes-meshgrid/internal/app"
	"github.com/coreman2200/funtimes-meshgrid/internal/config"
	"github.com/coreman2200/funtimes-meshgrid/internal/feed"
	"github.com/coreman2200/funtimes-meshgrid/internal/render/fake/solid"
)

func newServer(t *testing.T) (*State, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := config.Default()
	cfg.Cases = []string{"a", "b"}
	cfg.Methods = cfg.Methods[:3]
	cfg.Layout.Width = 600
	cfg.Continuous = false
	core, err := app.InitCore(cfg, solid.New(1, 1), feed.FSSource(fstest.MapFS{}))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go core.Run(ctx)

	s := NewState(core)
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return s, srv
}

func TestHealthAndTopology(t *testing.T) {
	_, srv := newServer(t)

	res, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "*", res.Header.Get("Access-Control-Allow-Origin"))

	res, err = http.Get(srv.URL + "/topology")
	require.NoError(t, err)
	defer res.Body.Close()
	var top app.Topology
	require.NoError(t, json.NewDecoder(res.Body).Decode(&top))
	assert.Equal(t, 2, top.Rows)
	assert.Equal(t, 3, top.Cols)
	assert.Equal(t, 600.0, top.Width)
	assert.Len(t, top.Clip, 2)
}

func TestSnapshotPNG(t *testing.T) {
	_, srv := newServer(t)
	res, err := http.Get(srv.URL + "/snapshot.png")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "image/png", res.Header.Get("Content-Type"))
	img, err := png.Decode(res.Body)
	require.NoError(t, err)
	assert.Equal(t, 600, img.Bounds().Dx())
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

type topologyMsg struct {
	Type     string       `json:"type"`
	Topology app.Topology `json:"topology"`
}

func readTopology(t *testing.T, conn *websocket.Conn) app.Topology {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg topologyMsg
	require.NoError(t, json.Unmarshal(data, &msg))
	require.Equal(t, "topology", msg.Type)
	return msg.Topology
}

func TestControlClipIsolatedToRow(t *testing.T) {
	_, srv := newServer(t)
	conn := dial(t, srv, "/control")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"op":"clip","row":1,"value":3}`)))
	top := readTopology(t, conn)
	assert.Equal(t, []float64{0, 3}, top.Clip)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"op":"resize","width":900}`)))
	top = readTopology(t, conn)
	assert.Equal(t, 900.0, top.Width)
}

func TestControlErrorsReachDiagnostics(t *testing.T) {
	_, srv := newServer(t)
	diagConn := dial(t, srv, "/diag")
	conn := dial(t, srv, "/control")

	// the diag client registers asynchronously to the dial returning
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"op":"resize","width":0}`)))
	readTopology(t, conn)

	require.NoError(t, diagConn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := diagConn.ReadMessage()
	require.NoError(t, err)
	assert.True(t, bytes.Contains(data, []byte("CONFIG.INVALID")), string(data))
}

func TestFramesClientGetsTopologyThenFrames(t *testing.T) {
	s, srv := newServer(t)
	conn := dial(t, srv, "/ws")
	top := readTopology(t, conn)
	assert.Equal(t, 2, top.Rows)

	require.Eventually(t, func() bool {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return len(s.clients) == 1
	}, time.Second, 10*time.Millisecond)

	s.BroadcastFrame([]byte{1, 2, 3})
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, kind)
	assert.Equal(t, []byte{1, 2, 3}, data)
}
