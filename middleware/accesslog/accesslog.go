// Package accesslog provides a request-logging hook for the forge
// server: a formatted one-line-per-request log with status-based
// severity. forge has no middleware chain; the server invokes this hook
// once per completed request.
package accesslog

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/forgehttp/forge"
	"github.com/forgehttp/forge/log"
)

// Config represents the configuration for the AccessLog hook.
type Config struct {
	// Format is the format string for the access log.
	// Available placeholders:
	// - ${remote_ip} - the client's address
	// - ${method} - the HTTP method
	// - ${path} - the request route
	// - ${status} - the HTTP status code
	// - ${latency} - the request latency
	// - ${latency_human} - the request latency in human-readable format
	// - ${time} - the current time in the format "2006-01-02 15:04:05"
	// - ${query} - the URL query string
	// - ${bytes_in} - the request body size in bytes
	// - ${user_agent} - the User-Agent request header
	// - ${referer} - the Referer request header
	// - ${error} - the error kind, if the request failed
	Format string
}

// DefaultConfig returns the default configuration for the AccessLog hook.
func DefaultConfig() Config {
	return Config{
		Format: "${time} | ${status} | ${latency_human} | ${method} ${path} | ${error}",
	}
}

// Hook logs one completed request as a line built from Config.Format; the
// default format carries time, status, latency, method, path, and error
// kind if any, but not the client address (add ${remote_ip} for that).
type Hook func(req *forge.Request, statusCode int, latency time.Duration, err error)

// New builds a Hook from an optional Config (the first one wins; the
// default is used if none is given).
func New(config ...Config) Hook {
	cfg := DefaultConfig()
	if len(config) > 0 {
		cfg = config[0]
	}

	return func(req *forge.Request, statusCode int, latency time.Duration, err error) {
		msg := cfg.Format
		msg = replaceTag(msg, "${remote_ip}", req.ClientAddr)
		msg = replaceTag(msg, "${method}", req.Method)
		msg = replaceTag(msg, "${path}", req.Route())
		msg = replaceTag(msg, "${status}", intToString(statusCode))
		msg = replaceTag(msg, "${latency}", latency.String())
		msg = replaceTag(msg, "${latency_human}", formatLatency(latency))
		msg = replaceTag(msg, "${time}", time.Now().Format("2006-01-02 15:04:05"))
		query := ""
		if i := strings.IndexByte(string(req.Target), '?'); i >= 0 {
			query = string(req.Target)[i+1:]
		}
		msg = replaceTag(msg, "${query}", query)
		msg = replaceTag(msg, "${bytes_in}", intToString(len(req.Body)))
		msg = replaceTag(msg, "${user_agent}", req.Header.Get("User-Agent"))
		msg = replaceTag(msg, "${referer}", req.Header.Get("Referer"))

		if err != nil {
			msg = replaceTag(msg, "${error}", "error: "+err.Error())
		} else {
			msg = replaceTag(msg, "${error}", "")
		}

		switch {
		case statusCode >= 500:
			if err != nil {
				logger.Error().Err(err).Msg(msg)
			} else {
				logger.Error().Msg(msg)
			}
		case statusCode >= 400:
			if err != nil {
				logger.Warn().Err(err).Msg(msg)
			} else {
				logger.Warn().Msg(msg)
			}
		default:
			logger.Info().Msg(msg)
		}
	}
}

var logger *log.Logger

func init() {
	console := log.DefaultConsoleWriter()
	console.Out = os.Stdout
	console.NoColor = false
	logger = log.New(console, log.InfoLevel)

	if globalLogger := log.GetLogger(); globalLogger != nil {
		if loggerImpl, ok := globalLogger.(*log.Logger); ok {
			logger = loggerImpl
		}
	}
}

func replaceTag(msg, tag, value string) string {
	return strings.Replace(msg, tag, value, -1)
}

func intToString(n int) string {
	return strconv.Itoa(n)
}

func int64ToString(n int64) string {
	return strconv.FormatInt(n, 10)
}

func formatLatency(d time.Duration) string {
	if d < time.Microsecond {
		return strconv.FormatInt(d.Nanoseconds(), 10) + "ns"
	}
	if d < time.Millisecond {
		return strconv.FormatFloat(float64(d.Nanoseconds())/float64(time.Microsecond), 'f', 2, 64) + "µs"
	}
	if d < time.Second {
		return strconv.FormatFloat(float64(d.Nanoseconds())/float64(time.Millisecond), 'f', 2, 64) + "ms"
	}
	return strconv.FormatFloat(float64(d.Nanoseconds())/float64(time.Second), 'f', 2, 64) + "s"
}
