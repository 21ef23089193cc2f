package testserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/setlistd/internal/app"
	"github.com/rpggio/setlistd/internal/config"
	"github.com/rpggio/setlistd/internal/sqlite"
	"github.com/stretchr/testify/require"
)

// TestServer is a complete setlistd instance over a FakeReaper, served on
// an httptest server.
type TestServer struct {
	App    *app.App
	Reaper *FakeReaper
	Server *httptest.Server
	DB     *sqlite.DB
	Token  string
}

// Config returns timings short enough for tests.
func Config(reaperURL string) config.Config {
	cfg := config.Default()
	cfg.Transport.Mode = config.ModeHTTP
	cfg.DB.Path = ":memory:"
	cfg.DAW.URL = reaperURL
	cfg.DAW.Timeout = time.Second
	cfg.Polling.TransportInterval = 50 * time.Millisecond
	cfg.Polling.RegionInterval = 200 * time.Millisecond
	cfg.Transition.WatchInterval = 20 * time.Millisecond
	cfg.Transition.SettleDelay = 5 * time.Millisecond
	cfg.Transition.RestartDelay = 10 * time.Millisecond
	return cfg
}

// New starts a TestServer. mutate, when non-nil, adjusts the config first.
func New(t *testing.T, token string, mutate func(*config.Config)) *TestServer {
	t.Helper()

	reaper := NewFakeReaper(t)
	cfg := Config(reaper.URL())
	cfg.Auth.Token = token
	if mutate != nil {
		mutate(&cfg)
	}

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	a, err := app.New(app.Options{Config: cfg, DB: db})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	server := httptest.NewServer(a.HTTPHandler(token))

	t.Cleanup(func() {
		server.Close()
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("app did not stop")
		}
		_ = db.Close()
	})

	return &TestServer{App: a, Reaper: reaper, Server: server, DB: db, Token: token}
}

// Connect opens an MCP client session over streamable HTTP.
func (ts *TestServer) Connect(t *testing.T) *sdkmcp.ClientSession {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "integration", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, &sdkmcp.StreamableClientTransport{
		Endpoint:   ts.Server.URL + "/mcp",
		HTTPClient: &http.Client{Transport: bearer{token: ts.Token, next: http.DefaultTransport}},
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

// Call invokes a tool and decodes its structured result into out. It
// returns the raw result so callers can inspect errors.
func Call(t *testing.T, session *sdkmcp.ClientSession, name string, args map[string]any, out any) *sdkmcp.CallToolResult {
	t.Helper()
	if args == nil {
		args = map[string]any{}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	if out != nil && !res.IsError {
		data, err := json.Marshal(res.StructuredContent)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, out))
	}
	return res
}

// ErrorText returns the text of a failed tool result.
func ErrorText(t *testing.T, res *sdkmcp.CallToolResult) string {
	t.Helper()
	require.True(t, res.IsError, "expected a tool error")
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok)
	return text.Text
}

type bearer struct {
	token string
	next  http.RoundTripper
}

func (b bearer) RoundTrip(req *http.Request) (*http.Response, error) {
	if b.token == "" {
		return b.next.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+b.token)
	return b.next.RoundTrip(req)
}
