package transport

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

type bearer struct {
	token string
	next  http.RoundTripper
}

func (b bearer) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+b.token)
	return b.next.RoundTrip(req)
}

type pingInput struct{}

type pingOutput struct {
	Pong bool `json:"pong"`
}

func newMCPServer() *sdkmcp.Server {
	server := sdkmcp.NewServer(&sdkmcp.Implementation{Name: "test", Version: "v0.0.1"}, nil)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "ping", Description: "ping"},
		func(context.Context, *sdkmcp.CallToolRequest, pingInput) (*sdkmcp.CallToolResult, pingOutput, error) {
			return nil, pingOutput{Pong: true}, nil
		})
	return server
}

func TestHandler_Health(t *testing.T) {
	srv := httptest.NewServer(NewHandler(newMCPServer(), AuthMiddleware(StaticToken("token")), func() Health {
		return Health{Status: "ok", DAW: "degraded", Phase: "idle"}
	}))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, "health is not behind auth")

	var h Health
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&h))
	require.Equal(t, "degraded", h.DAW)
}

func TestHandler_MCPRequiresToken(t *testing.T) {
	srv := httptest.NewServer(NewHandler(newMCPServer(), AuthMiddleware(StaticToken("token")), nil))
	t.Cleanup(srv.Close)

	resp, err := http.Post(srv.URL+"/mcp", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandler_MCPRoundTrip(t *testing.T) {
	srv := httptest.NewServer(NewHandler(newMCPServer(), AuthMiddleware(StaticToken("token")), nil))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, &sdkmcp.StreamableClientTransport{
		Endpoint:   srv.URL + "/mcp",
		HTTPClient: &http.Client{Transport: bearer{token: "token", next: http.DefaultTransport}},
	}, nil)
	require.NoError(t, err)
	defer session.Close()

	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: "ping", Arguments: map[string]any{}})
	require.NoError(t, err)
	require.False(t, res.IsError)
}

func TestServer_StopsOnContext(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	s := NewServer(ln.Addr().String(), NewHandler(newMCPServer(), nil, nil), nil)
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}
