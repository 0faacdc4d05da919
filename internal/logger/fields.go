package logger

import (
	"log/slog"
)

// Standard field keys for structured logging across the xrootd data server:
// the request dispatcher, the streaming responder, the open-file table, and
// the DH/GSI key-agreement session. Use these keys consistently across all
// log statements so aggregation and querying stay coherent.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Request dispatch (spec §4.1/§4.3)
	// ========================================================================
	KeyStreamID  = "stream_id"  // Wire stream_id correlating request/response
	KeyOpcode    = "opcode"     // Request opcode name: open, read, stat, ...
	KeyRequestID = "request_id" // Alias for stream_id in log aggregation
	KeyStatus    = "status"     // Response status: ok, oksofar, error
	KeyStatusMsg = "status_msg" // Human-readable status detail

	// ========================================================================
	// File System Operations
	// ========================================================================
	KeyPath       = "path"        // Full client-supplied path
	KeyFilename   = "filename"    // File or directory name (basename)
	KeyParentPath = "parent_path" // Parent directory path
	KeyOldPath    = "old_path"    // Source path for mv operations
	KeyNewPath    = "new_path"    // Destination path for mv operations
	KeyType       = "type"        // File type: file, directory, other
	KeySize       = "size"        // File size in bytes
	KeyMode       = "mode"        // File mode/permissions (Unix-style)
	KeyFD         = "fd"          // Open-file table descriptor

	// ========================================================================
	// Streaming I/O (spec §4.4/§4.10)
	// ========================================================================
	KeyOffset     = "offset"      // File offset for read/readv
	KeyCount      = "count"       // Byte count requested
	KeyBytesRead  = "bytes_read"  // Actual bytes read
	KeyBytesSent  = "bytes_sent"  // Actual bytes written to the wire
	KeyFrameSize  = "frame_size"  // Size of one chunked response frame
	KeyFrameCount = "frame_count" // Number of frames a response was split into
	KeyZeroCopy   = "zero_copy"   // Whether the zero-copy transport path was used

	// ========================================================================
	// Client Identification
	// ========================================================================
	KeyClientIP     = "client_ip"     // Client IP address
	KeyClientPort   = "client_port"   // Client source port
	KeyClientHost   = "client_host"   // Client hostname (if resolved)
	KeyConnectionID = "connection_id" // Connection identifier

	// ========================================================================
	// DH/GSI key agreement (spec §4.6)
	// ========================================================================
	KeyDHState     = "dh_state"     // Session state: initialized, finalized
	KeyCipherSpec  = "cipher_spec"  // Negotiated cipher identifier
	KeyKeySpec     = "key_spec"     // Negotiated key derivation identifier

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyErrorKind  = "error_kind"  // Wire-visible error kind (spec §7)
	KeyOperation  = "operation"   // Sub-operation type for complex operations

	// ========================================================================
	// Directory Operations
	// ========================================================================
	KeyEntries    = "entries"     // Number of directory entries
	KeyMaxEntries = "max_entries" // Maximum entries requested
)

// ============================================================================
// Field constructors for type safety
// ============================================================================

// TraceID returns a slog.Attr for OpenTelemetry trace ID.
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID.
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// StreamID returns a slog.Attr for the wire stream_id.
func StreamID(id uint16) slog.Attr {
	return slog.Any(KeyStreamID, id)
}

// Opcode returns a slog.Attr for a request opcode name.
func Opcode(name string) slog.Attr {
	return slog.String(KeyOpcode, name)
}

// Status returns a slog.Attr for a response status name.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// StatusMsg returns a slog.Attr for a human-readable status detail.
func StatusMsg(msg string) slog.Attr {
	return slog.String(KeyStatusMsg, msg)
}

// Path returns a slog.Attr for a client-supplied path.
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Filename returns a slog.Attr for a basename.
func Filename(name string) slog.Attr {
	return slog.String(KeyFilename, name)
}

// ParentPath returns a slog.Attr for a parent directory path.
func ParentPath(p string) slog.Attr {
	return slog.String(KeyParentPath, p)
}

// OldPath returns a slog.Attr for the source path of an mv operation.
func OldPath(p string) slog.Attr {
	return slog.String(KeyOldPath, p)
}

// NewPath returns a slog.Attr for the destination path of an mv operation.
func NewPath(p string) slog.Attr {
	return slog.String(KeyNewPath, p)
}

// TypeStr returns a slog.Attr for a file type.
func TypeStr(t string) slog.Attr {
	return slog.String(KeyType, t)
}

// Size returns a slog.Attr for a file size.
func Size(s uint64) slog.Attr {
	return slog.Uint64(KeySize, s)
}

// Mode returns a slog.Attr for a file mode.
func Mode(m uint32) slog.Attr {
	return slog.Any(KeyMode, m)
}

// FD returns a slog.Attr for an open-file table descriptor.
func FD(fd int32) slog.Attr {
	return slog.Int(KeyFD, int(fd))
}

// Offset returns a slog.Attr for a file offset.
func Offset(off int64) slog.Attr {
	return slog.Int64(KeyOffset, off)
}

// Count returns a slog.Attr for a byte count requested.
func Count(c int) slog.Attr {
	return slog.Int(KeyCount, c)
}

// BytesRead returns a slog.Attr for actual bytes read.
func BytesRead(n int) slog.Attr {
	return slog.Int(KeyBytesRead, n)
}

// BytesSent returns a slog.Attr for actual bytes written to the wire.
func BytesSent(n int) slog.Attr {
	return slog.Int(KeyBytesSent, n)
}

// FrameSize returns a slog.Attr for a chunked response frame size.
func FrameSize(n int) slog.Attr {
	return slog.Int(KeyFrameSize, n)
}

// FrameCount returns a slog.Attr for the number of frames a response used.
func FrameCount(n int) slog.Attr {
	return slog.Int(KeyFrameCount, n)
}

// ZeroCopy returns a slog.Attr for whether the zero-copy transport path ran.
func ZeroCopy(used bool) slog.Attr {
	return slog.Bool(KeyZeroCopy, used)
}

// ClientIP returns a slog.Attr for a client IP address.
func ClientIP(addr string) slog.Attr {
	return slog.String(KeyClientIP, addr)
}

// ClientPort returns a slog.Attr for a client source port.
func ClientPort(port int) slog.Attr {
	return slog.Int(KeyClientPort, port)
}

// ClientHost returns a slog.Attr for a client hostname.
func ClientHost(host string) slog.Attr {
	return slog.String(KeyClientHost, host)
}

// ConnectionID returns a slog.Attr for a connection identifier.
func ConnectionID(id string) slog.Attr {
	return slog.String(KeyConnectionID, id)
}

// DHState returns a slog.Attr for a DH session state.
func DHState(state string) slog.Attr {
	return slog.String(KeyDHState, state)
}

// CipherSpec returns a slog.Attr for a negotiated cipher identifier.
func CipherSpec(spec string) slog.Attr {
	return slog.String(KeyCipherSpec, spec)
}

// KeySpecAttr returns a slog.Attr for a negotiated key derivation identifier.
func KeySpecAttr(spec string) slog.Attr {
	return slog.String(KeyKeySpec, spec)
}

// DurationMs returns a slog.Attr for a duration in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error, or a zero Attr if err is nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorKind returns a slog.Attr for a wire-visible error kind (spec §7).
func ErrorKind(kind string) slog.Attr {
	return slog.String(KeyErrorKind, kind)
}

// Operation returns a slog.Attr for a sub-operation type.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Entries returns a slog.Attr for a directory entry count.
func Entries(n int) slog.Attr {
	return slog.Int(KeyEntries, n)
}

// MaxEntries returns a slog.Attr for a maximum entries requested.
func MaxEntries(n int) slog.Attr {
	return slog.Int(KeyMaxEntries, n)
}
