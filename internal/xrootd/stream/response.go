// Package stream implements the chunked read responder (spec §4.4): it
// turns a file region into a sequence of bounded response frames, in
// "copy" mode (buffered reads through a pool) or "zero-copy" mode (the
// transport hands the kernel a file descriptor directly), and frames a
// readv response from multiple embedded element descriptors.
package stream

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/gbehrmann/xrootd4j/internal/xrootd/xrdproto"
	"github.com/gbehrmann/xrootd4j/pkg/bufpool"
)

// MaxFrameSize bounds a single response frame's payload (spec §4.4).
const MaxFrameSize = 2 << 20 // 2 MiB

// Writer is the subset of a connection's outbound path a responder needs:
// write one complete frame (header + body) per call, and report whether
// the underlying transport can hand off a file region without copying.
type Writer interface {
	// WriteFrame writes one response frame. status is Ok for the final
	// frame of a stream, Oksofar for every frame before it.
	WriteFrame(streamID uint16, status xrdproto.StatusCode, body []byte) error

	// WriteFileRegion writes a single Ok frame whose body is the next
	// length bytes of file starting at offset, handed to the transport
	// without a user-space copy. Only called when SupportsZeroCopy is true.
	WriteFileRegion(streamID uint16, file *os.File, offset, length int64) error

	// SupportsZeroCopy reports whether WriteFileRegion is usable on this
	// connection (spec §4.10: a transport capability, not a handler flag).
	SupportsZeroCopy() bool
}

// RespondRead streams the result of a `read(fd, offset, len)` request.
//
// If useZeroCopy is true and w supports it, a single Ok frame transfers the
// whole region via the transport's zero-copy path. Otherwise the region is
// read from file in MaxFrameSize chunks, each chunk written as its own
// frame: every frame but the last carries status Oksofar, the last carries
// Ok. A zero-length read produces exactly one Ok frame with an empty body.
func RespondRead(w Writer, streamID uint16, file *os.File, offset, length int64, useZeroCopy bool) error {
	if useZeroCopy && w.SupportsZeroCopy() {
		return w.WriteFileRegion(streamID, file, offset, length)
	}
	return copyChunks(w, streamID, file, offset, length)
}

func copyChunks(w Writer, streamID uint16, file *os.File, offset, length int64) error {
	if length == 0 {
		return w.WriteFrame(streamID, xrdproto.StatusOK, nil)
	}

	remaining := length
	pos := offset

	for remaining > 0 {
		chunkSize := remaining
		if chunkSize > MaxFrameSize {
			chunkSize = MaxFrameSize
		}

		buf := bufpool.Get(int(chunkSize))
		n, err := file.ReadAt(buf[:chunkSize], pos)
		if err != nil && err != io.EOF {
			bufpool.Put(buf)
			return err
		}

		status := xrdproto.StatusOksofar
		if remaining-int64(n) <= 0 || err == io.EOF {
			status = xrdproto.StatusOK
		}

		werr := w.WriteFrame(streamID, status, buf[:n])
		bufpool.Put(buf)
		if werr != nil {
			return werr
		}

		pos += int64(n)
		remaining -= int64(n)

		if err == io.EOF {
			break
		}
	}

	return nil
}

// ReadVElement is one embedded request within a readv list (spec §4.4).
type ReadVElement struct {
	FD     uint32
	Offset int64
	Length int64
}

// readVHeaderSize is the size of the embedded-response header prefixing
// each element's data in a readv response: fd(4) | length(4) | offset(4) |
// reserved(4).
const readVHeaderSize = 16

// RespondReadV streams the concatenation of per-element headers and file
// data for a readv request, honoring MaxFrameSize framing: frame
// boundaries may split an element's header or data, but never interleave
// bytes from a different request on the same connection.
//
// resolve must return the *os.File registered for an element's fd, or an
// error if it is not open; on such an error the whole response becomes a
// single error frame with FileNotOpen (the caller is expected to map that
// to the wire error, RespondReadV itself returns the error for the caller
// to translate).
func RespondReadV(w Writer, streamID uint16, elements []ReadVElement, resolve func(fd uint32) (*os.File, error)) error {
	files := make([]*os.File, len(elements))
	for i, e := range elements {
		f, err := resolve(e.FD)
		if err != nil {
			return err
		}
		files[i] = f
	}

	var pending []byte
	flush := func(last bool) error {
		status := xrdproto.StatusOksofar
		if last {
			status = xrdproto.StatusOK
		}
		if err := w.WriteFrame(streamID, status, pending); err != nil {
			return err
		}
		pending = pending[:0]
		return nil
	}

	appendBytes := func(b []byte) error {
		for len(b) > 0 {
			space := MaxFrameSize - len(pending)
			if space <= 0 {
				if err := flush(false); err != nil {
					return err
				}
				space = MaxFrameSize
			}
			n := len(b)
			if n > space {
				n = space
			}
			pending = append(pending, b[:n]...)
			b = b[n:]
		}
		return nil
	}

	for i, e := range elements {
		var hdr [readVHeaderSize]byte
		binary.BigEndian.PutUint32(hdr[0:4], e.FD)
		binary.BigEndian.PutUint32(hdr[4:8], uint32(e.Length))
		binary.BigEndian.PutUint32(hdr[8:12], uint32(e.Offset))
		// hdr[12:16] reserved, left zero
		if err := appendBytes(hdr[:]); err != nil {
			return err
		}

		remaining := e.Length
		pos := e.Offset
		for remaining > 0 {
			chunk := remaining
			if chunk > MaxFrameSize {
				chunk = MaxFrameSize
			}
			buf := bufpool.Get(int(chunk))
			n, err := files[i].ReadAt(buf[:chunk], pos)
			if err != nil && err != io.EOF {
				bufpool.Put(buf)
				return err
			}
			werr := appendBytes(buf[:n])
			bufpool.Put(buf)
			if werr != nil {
				return werr
			}
			pos += int64(n)
			remaining -= int64(n)
			if err == io.EOF {
				break
			}
		}
	}

	return flush(true)
}
