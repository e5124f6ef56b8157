package forge

// Wire-level constants shared by the codec and server.
const (
	// defaultReadChunkSize is the number of bytes read from the socket per
	// recv() call while assembling a request.
	defaultReadChunkSize = 4096

	// defaultMaxHeaderBytes caps the size of the request line plus header
	// block before the codec fails the request with 431.
	defaultMaxHeaderBytes = 64 * 1024

	// defaultMaxBodyBytes caps the request body before the codec fails the
	// request with 413.
	defaultMaxBodyBytes = 10 * 1024 * 1024

	// defaultBacklog is the TCP listen backlog.
	defaultBacklog = 1

	// defaultPort is the bind port used when Config.Port is zero.
	defaultPort = 8080

	// defaultPauseIntervalMillis is how long the accept loop sleeps per
	// tick while Server.Pause is in effect.
	defaultPauseIntervalMillis = 100
)

// crlf marks the end of the header block in a raw HTTP/1.x request.
// Chunked request bodies are a non-goal, so there is no corresponding
// terminator for a chunked trailer here.
var crlf = []byte{0x0d, 0x0a, 0x0d, 0x0a}
