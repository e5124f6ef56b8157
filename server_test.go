package forge

import (
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// roundTrip feeds raw to a server's serveConn over an in-memory pipe and
// returns the raw response bytes.
func roundTrip(t *testing.T, srv *Server, raw string) string {
	t.Helper()
	client, serverSide := net.Pipe()

	done := make(chan struct{})
	go func() {
		srv.serveConn(serverSide)
		close(done)
	}()

	_, err := client.Write([]byte(raw))
	require.NoError(t, err)

	out := make([]byte, 0, 4096)
	buf := make([]byte, 4096)
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		n, err := client.Read(buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if err != nil {
			break
		}
	}
	client.Close()
	<-done
	return string(out)
}

func newTestServer(t *testing.T, root *RouteHandler) *Server {
	t.Helper()
	srv, err := New(root)
	require.NoError(t, err)
	return srv
}

func addXY(x int, y int) int { return x + y }

func TestServerScenarioS1(t *testing.T) {
	RegisterNames(addXY, "x", "y")
	root := NewRouteHandler("/")
	_, err := root.Register("/add", addXY)
	require.NoError(t, err)

	srv := newTestServer(t, root)
	resp := roundTrip(t, srv, "GET /add?x=2&y=3 HTTP/1.1\r\nHost: x\r\n\r\n")

	assert.Contains(t, resp, "200")
	assert.Contains(t, resp, "application/json")
	assert.Contains(t, resp, "5")
}

func handlerA(b string, c int) string {
	return "b='" + b + "' c=" + strconv.Itoa(c)
}

func TestServerScenarioS2(t *testing.T) {
	RegisterNames(handlerA, "b", "c")
	root := NewRouteHandler("/")
	_, err := root.Register("/a/{c}", handlerA)
	require.NoError(t, err)

	srv := newTestServer(t, root)
	resp := roundTrip(t, srv, "GET /a/99?b=hello HTTP/1.1\r\nHost: x\r\n\r\n")

	assert.Contains(t, resp, "200")
	assert.Contains(t, resp, "b='hello'")
	assert.Contains(t, resp, "c=99")
}

func postOnly() string { return "posted" }

func TestServerScenarioS4(t *testing.T) {
	root := NewRouteHandler("/")
	_, err := root.Register("/post", postOnly, WithMethods(MethodPost))
	require.NoError(t, err)

	srv := newTestServer(t, root)
	resp := roundTrip(t, srv, "GET /post HTTP/1.1\r\nHost: x\r\n\r\n")

	assert.Contains(t, resp, "405")
	assert.Contains(t, resp, "Allow: POST")
}

func TestServerScenarioS6(t *testing.T) {
	root := NewRouteHandler("/")
	root.disableDefaultRoutes = true

	srv := newTestServer(t, root)
	resp := roundTrip(t, srv, "GET /missing HTTP/1.1\r\nHost: x\r\n\r\n")

	assert.Contains(t, resp, "404")
	assert.Contains(t, resp, "Content-Type: text/plain; charset=utf-8")
	_, body := splitHeaderBody(resp)
	assert.Equal(t, "Not Found", body)
}

func getOnly() string { return "hi" }

func TestServerHeadStripsBodyKeepsHeaders(t *testing.T) {
	root := NewRouteHandler("/")
	_, err := root.Register("/hi", getOnly)
	require.NoError(t, err)

	srv := newTestServer(t, root)
	getResp := roundTrip(t, srv, "GET /hi HTTP/1.1\r\nHost: x\r\n\r\n")
	headResp := roundTrip(t, srv, "HEAD /hi HTTP/1.1\r\nHost: x\r\n\r\n")

	getHeaders, getBody := splitHeaderBody(getResp)
	headHeaders, headBody := splitHeaderBody(headResp)

	assert.Equal(t, headersWithoutStatusLine(getHeaders), headersWithoutStatusLine(headHeaders))
	assert.NotEmpty(t, getBody)
	assert.Empty(t, headBody)
}

func splitHeaderBody(resp string) (string, string) {
	parts := strings.SplitN(resp, "\r\n\r\n", 2)
	if len(parts) != 2 {
		return resp, ""
	}
	return parts[0], parts[1]
}

func headersWithoutStatusLine(headers string) string {
	lines := strings.Split(headers, "\r\n")
	var out []string
	for _, l := range lines {
		if strings.HasPrefix(l, "HTTP/") {
			continue
		}
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}

func panicky() string { panic("boom") }

func TestServerPanicRecoveryShort(t *testing.T) {
	root := NewRouteHandler("/")
	_, err := root.Register("/boom", panicky, WithErrorMode(ErrorModeShort))
	require.NoError(t, err)

	srv := newTestServer(t, root)
	resp := roundTrip(t, srv, "GET /boom HTTP/1.1\r\nHost: x\r\n\r\n")

	assert.Contains(t, resp, "500")
	assert.Contains(t, resp, "boom")
}

func TestServerAccessLogHookInvoked(t *testing.T) {
	root := NewRouteHandler("/")
	_, err := root.Register("/hi", getOnly)
	require.NoError(t, err)

	srv := newTestServer(t, root)

	var loggedStatus int
	var loggedMethod string
	srv.AccessLog = func(req *Request, statusCode int, latency time.Duration, err error) {
		loggedStatus = statusCode
		loggedMethod = req.Method
	}

	roundTrip(t, srv, "GET /hi HTTP/1.1\r\nHost: x\r\n\r\n")

	assert.Equal(t, StatusOK, loggedStatus)
	assert.Equal(t, MethodGet, loggedMethod)
}

func TestServerPauseBlocksAccept(t *testing.T) {
	root := NewRouteHandler("/")
	srv := newTestServer(t, root)
	srv.Pause()
	assert.True(t, srv.paused.Load())
	srv.Resume()
	assert.False(t, srv.paused.Load())
}

func TestSplitHostPort(t *testing.T) {
	host, port, err := splitHostPort("", "", 8080)
	require.NoError(t, err)
	assert.Equal(t, "", host)
	assert.Equal(t, 8080, port)

	host, port, err = splitHostPort("127.0.0.1:9090", "", 8080)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", host)
	assert.Equal(t, 9090, port)
}
