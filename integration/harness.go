package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	apirest "github.com/kasuganosora/creaturebattle/server/api/rest"
	"github.com/kasuganosora/creaturebattle/server/api/sse"
	apows "github.com/kasuganosora/creaturebattle/server/api/ws"
	"github.com/kasuganosora/creaturebattle/server/cache"
	"github.com/kasuganosora/creaturebattle/server/config"
	"github.com/kasuganosora/creaturebattle/server/game/battle"
	"github.com/kasuganosora/creaturebattle/server/game/match"
	"github.com/kasuganosora/creaturebattle/server/game/player"
	"github.com/kasuganosora/creaturebattle/server/game/roster"
	mw "github.com/kasuganosora/creaturebattle/server/middleware"
	"github.com/kasuganosora/creaturebattle/server/outcome"
	"github.com/kasuganosora/creaturebattle/server/resource"
	"github.com/kasuganosora/creaturebattle/server/scheduler"
	"github.com/kasuganosora/creaturebattle/server/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

const adminKey = "integration-admin"

// TestServer wraps a real HTTP server with the battle subsystems wired together.
type TestServer struct {
	DB       *gorm.DB
	Cache    cache.Cache
	PubSub   cache.PubSub
	SM       *player.SessionManager
	Res      *resource.ResourceLoader
	Matches  *match.Manager
	Outcomes *outcome.Service
	Sched    *scheduler.Scheduler
	Server   *httptest.Server
	URL      string // http://127.0.0.1:<port>
	WSURL    string // ws://127.0.0.1:<port>/ws
	Sec      config.SecurityConfig
}

// NewTestServer creates a fully wired server for integration testing.
// It mirrors the dependency wiring in main.go.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	return NewTestServerWithSecurity(t, config.SecurityConfig{
		JWTSecret:      "integration-secret",
		JWTTTLH:        time.Hour,
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
	})
}

// NewTestServerWithSecurity is NewTestServer with caller-supplied security settings.
func NewTestServerWithSecurity(t *testing.T, sec config.SecurityConfig) *TestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	// ---- Infrastructure ----
	db := testutil.SetupTestDB(t)
	c, pubsub := testutil.SetupTestCache(t)
	res := testutil.SetupCatalog(t)
	logger := zap.NewNop()

	outcomes := outcome.New(db, c, pubsub, logger, outcome.Options{FlushInterval: 20 * time.Millisecond})

	sm := player.NewSessionManager(logger)
	mgr := match.NewManager(match.Config{
		Roster: roster.NewBuilder(res, 50, 3),
		Rand:   battle.NewRand(42),
		Sink:   outcomes,
		Logger: logger,
	})
	mgrCtx, stopMgr := context.WithCancel(context.Background())
	mgrDone := make(chan struct{})
	go func() {
		defer close(mgrDone)
		_ = mgr.Run(mgrCtx)
	}()

	rankH := apirest.NewRankingHandler(db, c, logger)
	sched := scheduler.New(logger)
	sched.AddTicker("ranking-refresh", time.Hour, func(ctx context.Context) error {
		_, err := rankH.Refresh(ctx)
		return err
	})

	// ---- WS Router ----
	wsRouter := apows.NewRouter(logger)
	if sec.WSRateRPS > 0 {
		wsRouter.Limit(mw.NewLimiterSet(rate.Limit(sec.WSRateRPS), sec.WSRateBurst))
	}
	apows.NewBattleHandlers(mgr, logger).RegisterHandlers(wsRouter)

	// ---- Gin ----
	r := gin.New()
	r.Use(mw.TraceID(), mw.Recovery(logger))
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authH := apirest.NewAuthHandler(c, sec, logger)
	catalogH := apirest.NewCatalogHandler(res)
	adminH := apirest.NewAdminHandler(sm, mgr, sched, logger)
	sseH := sse.NewHandler(pubsub, c, rankH, sec, logger)

	api := r.Group("/api")
	api.Use(mw.RateLimit(rate.Limit(sec.RateLimitRPS), sec.RateLimitBurst))
	{
		authG := api.Group("/auth")
		authG.POST("/guest", authH.Guest)
		authG.POST("/logout", mw.Auth(sec, c), authH.Logout)
		authG.POST("/refresh", mw.Auth(sec, c), authH.Refresh)
		authG.GET("/me", mw.Auth(sec, c), authH.Me)

		catG := api.Group("/catalog")
		catG.GET("/types", catalogH.Types)
		catG.GET("/moves", catalogH.Moves)
		catG.GET("/species", catalogH.Species)
		catG.GET("/species/:id", catalogH.SpeciesByID)
		catG.GET("/teams", catalogH.Teams)

		api.GET("/profiles/:id", rankH.Profile(sm.IsOnline))
		api.GET("/ranking/wins", rankH.TopWins)
		api.GET("/outcomes/recent", rankH.Recent)

		adminG := api.Group("/admin")
		adminG.Use(apirest.AdminAuth(adminKey))
		adminG.GET("/metrics", adminH.Metrics)
		adminG.GET("/participants", adminH.ListParticipants)
		adminG.POST("/kick/:id", adminH.Kick)
		adminG.GET("/scheduler", adminH.ListSchedulerTasks)
		adminG.POST("/ranking/refresh", rankH.RefreshRanking)
		adminG.POST("/announce", sseH.Announce)
	}

	wsH := apows.NewHandler(c, sec, sm, mgr, wsRouter, logger)
	r.GET("/ws", wsH.ServeWS)
	r.GET("/sse/outcomes", sseH.ServeOutcomes)

	srv := httptest.NewServer(r)
	ts := &TestServer{
		DB:       db,
		Cache:    c,
		PubSub:   pubsub,
		SM:       sm,
		Res:      res,
		Matches:  mgr,
		Outcomes: outcomes,
		Sched:    sched,
		Server:   srv,
		URL:      srv.URL,
		WSURL:    "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
		Sec:      sec,
	}

	// Same order as main.go: sockets close while the manager still runs.
	t.Cleanup(func() {
		sched.Stop()
		sm.CloseAllSessions(time.Second)
		srv.Close()
		stopMgr()
		<-mgrDone
		outcomes.Stop(context.Background())
	})
	return ts
}

// --- HTTP helpers ---

// PostJSON sends a POST request with JSON body and optional Bearer token.
func (ts *TestServer) PostJSON(t *testing.T, path string, body interface{}, token string) *http.Response {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		bodyReader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(http.MethodPost, ts.URL+path, bodyReader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if strings.HasPrefix(path, "/api/admin") {
		req.Header.Set("X-Admin-Key", adminKey)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// Get sends a GET request with optional Bearer token.
func (ts *TestServer) Get(t *testing.T, path string, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, ts.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if strings.HasPrefix(path, "/api/admin") {
		req.Header.Set("X-Admin-Key", adminKey)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// ReadJSON reads and decodes a JSON response body into the given target.
func ReadJSON(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, target), "body: %s", string(data))
}

// --- Auth helpers ---

// Guest issues a guest token and returns it with the participant id.
func (ts *TestServer) Guest(t *testing.T, name string) (token, id string) {
	t.Helper()
	resp := ts.PostJSON(t, "/api/auth/guest", map[string]string{"name": name}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out apirest.GuestResponse
	ReadJSON(t, resp, &out)
	require.NotEmpty(t, out.Token)
	return out.Token, out.ParticipantID
}

// --- WebSocket client ---

// Packet mirrors the wire envelope.
type Packet struct {
	Seq     uint64          `json:"seq"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Decode unmarshals the payload into v.
func (p *Packet) Decode(t *testing.T, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(p.Payload, v), "payload: %s", string(p.Payload))
}

// WSClient wraps a gorilla/websocket connection for integration testing.
// A background readLoop feeds readCh so timeouts never touch the read deadline.
type WSClient struct {
	Conn   *websocket.Conn
	ID     string
	t      *testing.T
	seq    uint64
	readCh chan readResult
}

type readResult struct {
	data []byte
	err  error
}

// ConnectWS dials the WS endpoint with a token, or as an anonymous guest
// when token is empty. It consumes the connected greeting.
func (ts *TestServer) ConnectWS(t *testing.T, token, name string) *WSClient {
	t.Helper()
	q := url.Values{}
	if token != "" {
		q.Set("token", token)
	}
	if name != "" {
		q.Set("name", name)
	}
	conn, resp, err := websocket.DefaultDialer.Dial(ts.WSURL+"?"+q.Encode(), nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	require.NoError(t, err, "WS dial failed")
	wc := &WSClient{Conn: conn, t: t, readCh: make(chan readResult, 256)}
	go wc.readLoop()
	t.Cleanup(func() { _ = conn.Close() })

	var hello apows.ConnectedView
	wc.RecvType(apows.EventConnected, 2*time.Second).Decode(t, &hello)
	wc.ID = hello.ParticipantID
	return wc
}

func (wc *WSClient) readLoop() {
	for {
		_, data, err := wc.Conn.ReadMessage()
		wc.readCh <- readResult{data, err}
		if err != nil {
			return
		}
	}
}

// Send writes one packet with the next sequence number.
func (wc *WSClient) Send(msgType string, payload interface{}) {
	wc.t.Helper()
	seq := atomic.AddUint64(&wc.seq, 1)
	raw, err := json.Marshal(payload)
	require.NoError(wc.t, err)
	data, err := json.Marshal(Packet{Seq: seq, Type: msgType, Payload: raw})
	require.NoError(wc.t, err)
	require.NoError(wc.t, wc.Conn.WriteMessage(websocket.TextMessage, data))
}

// Recv returns the next packet, or an error on timeout or a closed socket.
func (wc *WSClient) Recv(timeout time.Duration) (*Packet, error) {
	select {
	case res := <-wc.readCh:
		if res.err != nil {
			return nil, res.err
		}
		var pkt Packet
		if err := json.Unmarshal(res.data, &pkt); err != nil {
			return nil, err
		}
		return &pkt, nil
	case <-time.After(timeout):
		return nil, errTimeout
	}
}

type timeoutError struct{}

func (timeoutError) Error() string { return "read timeout" }

var errTimeout error = timeoutError{}

// RecvType reads packets until one of the given type arrives.
func (wc *WSClient) RecvType(msgType string, timeout time.Duration) *Packet {
	wc.t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			wc.t.Fatalf("timed out waiting for %q", msgType)
		}
		pkt, err := wc.Recv(remaining)
		if err != nil {
			wc.t.Fatalf("WS recv failed while waiting for %q: %v", msgType, err)
		}
		if pkt.Type == msgType {
			return pkt
		}
	}
}

// Expect reads exactly one packet and requires its type.
func (wc *WSClient) Expect(msgType string) *Packet {
	wc.t.Helper()
	pkt, err := wc.Recv(2 * time.Second)
	require.NoError(wc.t, err, "waiting for %q", msgType)
	require.Equal(wc.t, msgType, pkt.Type, "payload: %s", string(pkt.Payload))
	return pkt
}

// ExpectNone requires that nothing arrives within d.
func (wc *WSClient) ExpectNone(d time.Duration) {
	wc.t.Helper()
	pkt, err := wc.Recv(d)
	if err == nil {
		wc.t.Fatalf("unexpected packet %q: %s", pkt.Type, string(pkt.Payload))
	}
}
