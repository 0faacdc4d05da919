package xrdproto

import (
	"encoding/binary"
	"fmt"
	"io"
)

// RequestHeaderSize is the fixed size of an xrootd request header:
// stream_id(2) | request_code(2) | body(16) | dlen(4).
const RequestHeaderSize = 24

// ResponseHeaderSize is the fixed size of an xrootd response header:
// stream_id(2) | status(2) | dlen(4).
const ResponseHeaderSize = 8

// DefaultMaxBodySize bounds the body length accepted by DecodeRequest when
// the caller does not configure a smaller cap (spec §4.1's "configurable
// cap").
const DefaultMaxBodySize = 8 << 20 // 8 MiB

// ErrShortFrame is returned when the input stream ends before a complete
// header or body could be read.
var ErrShortFrame = fmt.Errorf("xrdproto: short frame")

// ErrBadLength is returned when a decoded dlen is negative or exceeds the
// configured cap.
var ErrBadLength = fmt.Errorf("xrdproto: bad length")

// RequestHeader is the fixed 24-byte prefix of every client request frame.
type RequestHeader struct {
	StreamID uint16
	Code     RequestCode
	Body     [16]byte
	Dlen     int32
}

// Request is one fully decoded client frame: header plus its payload.
type Request struct {
	RequestHeader
	Payload []byte
}

// DecodeRequest reads exactly one request frame from r.
//
// It fails with ErrShortFrame if r is exhausted mid-header or mid-body, and
// ErrBadLength if the decoded dlen is negative or exceeds maxBodySize (pass
// 0 to use DefaultMaxBodySize).
func DecodeRequest(r io.Reader, maxBodySize int) (*Request, error) {
	if maxBodySize <= 0 {
		maxBodySize = DefaultMaxBodySize
	}

	var hdr [RequestHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: %v", ErrShortFrame, err)
	}

	req := &Request{}
	req.StreamID = binary.BigEndian.Uint16(hdr[0:2])
	req.Code = RequestCode(binary.BigEndian.Uint16(hdr[2:4]))
	copy(req.Body[:], hdr[4:20])
	dlen := int32(binary.BigEndian.Uint32(hdr[20:24]))
	req.Dlen = dlen

	if dlen < 0 || int(dlen) > maxBodySize {
		return nil, ErrBadLength
	}

	if dlen == 0 {
		return req, nil
	}

	payload := make([]byte, dlen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShortFrame, err)
	}
	req.Payload = payload

	return req, nil
}

// EncodeResponseHeader writes an 8-byte response header to w.
func EncodeResponseHeader(w io.Writer, streamID uint16, status StatusCode, dlen uint32) error {
	var hdr [ResponseHeaderSize]byte
	binary.BigEndian.PutUint16(hdr[0:2], streamID)
	binary.BigEndian.PutUint16(hdr[2:4], uint16(status))
	binary.BigEndian.PutUint32(hdr[4:8], dlen)
	_, err := w.Write(hdr[:])
	return err
}

// EncodeOkFrame writes a complete ok/oksofar response frame with body.
func EncodeOkFrame(w io.Writer, streamID uint16, status StatusCode, body []byte) error {
	if err := EncodeResponseHeader(w, streamID, status, uint32(len(body))); err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	_, err := w.Write(body)
	return err
}

// EncodeErrorFrame writes a single error response frame: status=error,
// body = errcode(4) | UTF-8 message | NUL.
func EncodeErrorFrame(w io.Writer, streamID uint16, errCode uint32, message string) error {
	body := make([]byte, 4+len(message)+1)
	binary.BigEndian.PutUint32(body[0:4], errCode)
	copy(body[4:], message)
	// trailing byte is already zero (NUL)
	return EncodeOkFrame(w, streamID, StatusError, body)
}
