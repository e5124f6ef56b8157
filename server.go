package forge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/forgehttp/forge/internal/wire"
	"github.com/forgehttp/forge/log"
)

// AccessLogHook is invoked once per completed request with the resolved
// status code, processing latency, and handler/protocol error if any.
// middleware/accesslog.Hook has this same underlying signature and
// assigns directly.
type AccessLogHook func(req *Request, statusCode int, latency time.Duration, err error)

// RateLimitHook is consulted before a request is dispatched. A non-nil
// error rejects the request without invoking the handler;
// middleware/ratelimit.Hook has this same underlying signature and
// assigns directly.
type RateLimitHook func(req *Request) error

// Server runs the accept loop and fixed-size worker pool: one thread
// accepts connections and submits each to a pool
// (size 1 by default) that reads, dispatches, and replies to exactly one
// request before closing the socket.
type Server struct {
	config Config
	root   *RouteHandler
	pool   *ants.Pool

	listener net.Listener

	paused  atomic.Bool
	stopped atomic.Bool
	wg      sync.WaitGroup

	// AccessLog, if set, is called after every request (including ones
	// that fail protocol parsing before a route could be resolved).
	AccessLog AccessLogHook

	// RateLimit, if set, is called before dispatch; a rejected request
	// never reaches the route tree or the handler.
	RateLimit RateLimitHook
}

// New creates a Server dispatching through root, configured by the first
// element of config (DefaultConfig() if omitted).
func New(root *RouteHandler, config ...Config) (*Server, error) {
	cfg := DefaultConfig()
	if len(config) > 0 {
		cfg = config[0]
	}
	size := cfg.WorkerPoolSize
	if size <= 0 {
		size = 1
	}
	pool, err := ants.NewPool(size, ants.WithNonblocking(false))
	if err != nil {
		return nil, err
	}
	if root != nil {
		if cfg.NavPathSuffix != "" {
			root.navPathSuffix = cfg.NavPathSuffix
		}
		if cfg.DisableDefaultRoutes {
			root.disableDefaultRoutes = true
		}
	}
	return &Server{config: cfg, root: root, pool: pool}, nil
}

// Pause sets the pause flag: the accept loop stops taking new
// connections but in-flight requests are unaffected.
func (s *Server) Pause() { s.paused.Store(true) }

// Resume clears the pause flag.
func (s *Server) Resume() { s.paused.Store(false) }

// Listen binds addr (host:port; falls back to Config.Host/Config.Port
// when empty) and runs the accept loop until Shutdown is called or the
// listener errors. It blocks.
func (s *Server) Listen(addr string) error {
	cfgPort := s.config.Port
	if cfgPort == 0 {
		cfgPort = defaultPort
	}
	host, port, err := splitHostPort(addr, s.config.Host, cfgPort)
	if err != nil {
		return err
	}

	backlog := s.config.Backlog
	if backlog <= 0 {
		backlog = defaultBacklog
	}
	ln, err := listenTCP(host, port, backlog)
	if err != nil {
		return err
	}
	s.listener = ln

	initLogger(log.InfoLevel)
	displayAddr := net.JoinHostPort(host, strconv.Itoa(port))
	if !s.config.DisableStartupMessage {
		displayStartupMessage(displayAddr)
	}

	return s.acceptLoop()
}

// Shutdown stops the accept loop, closes the listener, and waits for
// in-flight workers to drain (or ctx to expire) before returning.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopped.Store(true)
	if s.listener != nil {
		_ = s.listener.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.pool.Release()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) acceptLoop() error {
	for {
		if s.stopped.Load() {
			return nil
		}
		for s.paused.Load() {
			time.Sleep(defaultPauseIntervalMillis * time.Millisecond)
			if s.stopped.Load() {
				return nil
			}
		}

		conn, err := s.listener.Accept()
		if err != nil {
			if s.stopped.Load() {
				return nil
			}
			logger.Error().Err(err).Msg("forge: accept failed")
			continue
		}

		s.wg.Add(1)
		c := conn
		submitErr := s.pool.Submit(func() {
			defer s.wg.Done()
			s.serveConn(c)
		})
		if submitErr != nil {
			s.wg.Done()
			_ = c.Close()
		}
	}
}

// serveConn reads exactly one request off c, dispatches and invokes the
// matched handler, writes exactly one response, and closes the
// connection.
func (s *Server) serveConn(c net.Conn) {
	defer c.Close()
	start := time.Now()

	if s.config.ReadTimeout > 0 {
		_ = c.SetReadDeadline(start.Add(s.config.ReadTimeout))
	}

	wreq, err := wire.Read(c, wire.Options{
		ReadChunkSize:  s.config.ReadChunkSize,
		MaxHeaderBytes: int64(s.config.MaxHeaderBytes),
		MaxBodyBytes:   s.config.MaxBodyBytes,
	})
	if err != nil {
		s.handleReadError(c, err, start)
		return
	}

	clientAddr := ""
	if ra := c.RemoteAddr(); ra != nil {
		clientAddr = ra.String()
	}
	requestID := uuid.NewString()

	req := NewRequest(wreq.Method, wreq.Target, wreq.Version, HeaderFromMap(wreq.Header), wreq.Body, clientAddr, c)

	resp, invokeErr := s.dispatchAndInvoke(req)
	if req.Version == "HTTP/1.0" || req.Version == "HTTP/1.1" {
		resp.Version = req.Version
	}

	if s.config.WriteTimeout > 0 {
		_ = c.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	}

	stripBody := req.Method == MethodHead
	if writeErr := resp.Write(c, stripBody); writeErr != nil {
		logger.Error().Err(writeErr).Msgf("forge: write failed method=%s path=%s client=%s request_id=%s",
			req.Method, req.Route(), clientAddr, requestID)
	}

	if s.AccessLog != nil {
		s.AccessLog(req, resp.StatusCode, time.Since(start), invokeErr)
	}
	if invokeErr != nil {
		logger.Error().Err(invokeErr).Msgf("forge: request error method=%s path=%s client=%s request_id=%s",
			req.Method, req.Route(), clientAddr, requestID)
	}
}

// dispatchAndInvoke resolves req against the route tree, recovers a
// handler panic into the handler's error mode, and
// shapes whatever comes out into a Response. The returned error, if
// non-nil, is logged by the caller but already reflected in resp.
func (s *Server) dispatchAndInvoke(req *Request) (resp *Response, err error) {
	if s.RateLimit != nil {
		if rlErr := s.RateLimit(req); rlErr != nil {
			status := StatusTooManyRequests
			message := rlErr.Error()
			var httpErr *HttpError
			if errors.As(rlErr, &httpErr) {
				status, message = httpErr.Code, httpErr.Message
			}
			return newPlainResponse(status, message), rlErr
		}
	}

	dr, dispatchErr := s.root.Dispatch(req)
	if dispatchErr != nil {
		var httpErr *HttpError
		if errors.As(dispatchErr, &httpErr) {
			r := newPlainResponse(httpErr.Code, httpErr.Message)
			if httpErr.Allow != "" {
				r.Header.Set("Allow", httpErr.Allow)
			}
			return r, dispatchErr
		}
		return newPlainResponse(StatusInternalServerError, dispatchErr.Error()), dispatchErr
	}

	if dr.Fallback != nil {
		return dr.Fallback, nil
	}

	mode := dr.Handler.ErrorMode
	if mode == ErrorModeHide && s.config.ErrorMode != ErrorModeHide {
		mode = s.config.ErrorMode
	}

	resp, err = s.invokeRecovered(dr.Handler, req, dr.Captures, mode)
	return resp, err
}

func (s *Server) invokeRecovered(w *WrappedHandler, req *Request, captures map[string]string, mode ErrorMode) (resp *Response, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			shaped := shapePanic(mode, rec, fmt.Sprintf("%T", rec))
			resp = newPlainResponse(shaped.Status, shaped.Message)
			err = shaped
		}
	}()

	result, invokeErr := w.Invoke(req, captures)
	if invokeErr != nil {
		var httpErr *HttpError
		if errors.As(invokeErr, &httpErr) {
			return newPlainResponse(httpErr.Code, httpErr.Message), invokeErr
		}
		return newPlainResponse(StatusBadRequest, invokeErr.Error()), invokeErr
	}

	// A handler that returns a bare error (not a *Response) is treated
	// like a recovered panic and shaped per its error mode; a *Response
	// passes straight through even if it happens to also implement error.
	if respErr, ok := result.(error); ok {
		if _, isResp := result.(*Response); !isResp {
			shaped := shapePanic(mode, respErr, fmt.Sprintf("%T", respErr))
			return newPlainResponse(shaped.Status, shaped.Message), respErr
		}
	}

	shaped, shapeErr := ResponseFromAny(result, w.declaredReturn)
	if shapeErr != nil {
		return newPlainResponse(StatusInternalServerError, shapeErr.Error()), shapeErr
	}
	return shaped, nil
}

// handleReadError maps a wire-codec failure to a response: malformed
// request line -> 400, oversized header -> 431, oversized body -> 413.
// A bare connection close before headers completed gets no response at
// all.
func (s *Server) handleReadError(c net.Conn, err error, start time.Time) {
	var status int
	switch {
	case errors.Is(err, wire.ErrMalformedRequestLine):
		status = StatusBadRequest
	case errors.Is(err, wire.ErrHeaderTooLarge):
		status = StatusRequestHeaderFieldsTooLarge
	case errors.Is(err, wire.ErrBodyTooLarge):
		status = StatusRequestEntityTooLarge
	default:
		return
	}

	resp := newPlainResponse(status, StatusText(status))
	_ = resp.Write(c, false)

	clientAddr := ""
	if ra := c.RemoteAddr(); ra != nil {
		clientAddr = ra.String()
	}
	logger.Error().Err(err).Msgf("forge: protocol error client=%s", clientAddr)

	if s.AccessLog != nil {
		s.AccessLog(&Request{ClientAddr: clientAddr}, status, time.Since(start), err)
	}
}

func splitHostPort(addr, defaultHost string, defaultPort int) (string, int, error) {
	if addr == "" {
		return defaultHost, defaultPort, nil
	}
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, err
	}
	if host == "" {
		host = defaultHost
	}
	return host, port, nil
}
