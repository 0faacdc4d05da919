package handler

import (
	"encoding/binary"
	"strings"

	"github.com/gbehrmann/xrootd4j/internal/xrootd/xrdproto"
)

// Fixed-body layouts, all within the 16-byte Request.Body. Variable-length
// data (paths, write payloads, readv element lists) lives in Request.Payload.

func decodeFD(req *xrdproto.Request) uint32 {
	return binary.BigEndian.Uint32(req.Body[0:4])
}

type readArgs struct {
	fd     uint32
	offset int64
	length uint32
}

func decodeRead(req *xrdproto.Request) readArgs {
	return readArgs{
		fd:     binary.BigEndian.Uint32(req.Body[0:4]),
		offset: int64(binary.BigEndian.Uint64(req.Body[4:12])),
		length: binary.BigEndian.Uint32(req.Body[12:16]),
	}
}

type writeArgs struct {
	fd     uint32
	offset int64
	data   []byte
}

func decodeWrite(req *xrdproto.Request) writeArgs {
	return writeArgs{
		fd:     binary.BigEndian.Uint32(req.Body[0:4]),
		offset: int64(binary.BigEndian.Uint64(req.Body[4:12])),
		data:   req.Payload,
	}
}

func decodeOpen(req *xrdproto.Request) (flags uint32, path string) {
	flags = binary.BigEndian.Uint32(req.Body[4:8])
	path = string(req.Payload)
	return flags, path
}

func decodeMkdir(req *xrdproto.Request) (flags uint32, path string) {
	flags = binary.BigEndian.Uint32(req.Body[0:4])
	path = string(req.Payload)
	return flags, path
}

func decodePath(req *xrdproto.Request) string {
	return string(req.Payload)
}

// decodePathList splits a newline-separated payload into its non-empty
// path entries, used by statx.
func decodePathList(req *xrdproto.Request) []string {
	if len(req.Payload) == 0 {
		return nil
	}
	parts := strings.Split(string(req.Payload), "\n")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// decodeMvPaths splits "src\ndst" into its two halves.
func decodeMvPaths(req *xrdproto.Request) (src, dst string, ok bool) {
	s := string(req.Payload)
	idx := strings.IndexByte(s, '\n')
	if idx < 0 {
		return "", "", false
	}
	return s[:idx], s[idx+1:], true
}

// readVElementSize is the wire size of one embedded request in a readv
// request payload: fd(4) | offset(8) | length(4).
const readVElementSize = 16

func decodeReadV(req *xrdproto.Request) []readArgs {
	n := len(req.Payload) / readVElementSize
	out := make([]readArgs, 0, n)
	for i := 0; i < n; i++ {
		b := req.Payload[i*readVElementSize : (i+1)*readVElementSize]
		out = append(out, readArgs{
			fd:     binary.BigEndian.Uint32(b[0:4]),
			offset: int64(binary.BigEndian.Uint64(b[4:12])),
			length: binary.BigEndian.Uint32(b[12:16]),
		})
	}
	return out
}
