// Package handler implements the request dispatcher (spec §4.5): one
// procedure per opcode, resolving paths through fs.Resolve, tracking open
// handles through fs.Table, and streaming read/readv payloads through the
// stream package.
package handler

import (
	"encoding/binary"

	"github.com/gbehrmann/xrootd4j/internal/xrootd/xrdproto"
)

// FileStatus flag bits (spec §3).
const (
	FlagIsDir    uint32 = 1 << iota // entry is a directory
	FlagOther                       // not a regular file or directory (device, socket, ...)
	FlagXSet                        // executable bit set
	FlagReadable                    // readable by the server process
	FlagWritable                    // writable by the server process
)

// FileStatus is the spec §3 FileStatus tuple. ID is always 0: this core
// does not assign persistent file identities distinct from path + handle.
type FileStatus struct {
	ID     uint32
	Length int64
	Flags  uint32
	Mtime  int64 // seconds since epoch
}

// Open flag bits (spec §4.5 "Open flags").
const (
	OpenReadWrite uint32 = 1 << iota
	OpenNew               // fail if the file already exists
	OpenDelete            // truncate on open
	OpenMkpath            // create missing parent directories
	OpenRetstat           // include FileStatus in the Open response
)

// HandlerResult is the non-streaming half of spec §3's Response variant:
// everything except Read and ReadV, which write their own frames directly
// through the stream package instead of buffering a body here.
type HandlerResult struct {
	Status xrdproto.StatusCode
	Body   []byte
}

func okResult(body []byte) (*HandlerResult, error) {
	return &HandlerResult{Status: xrdproto.StatusOK, Body: body}, nil
}

func encodeStat(st FileStatus) []byte {
	body := make([]byte, 20)
	binary.BigEndian.PutUint32(body[0:4], st.ID)
	binary.BigEndian.PutUint64(body[4:12], uint64(st.Length))
	binary.BigEndian.PutUint32(body[12:16], st.Flags)
	binary.BigEndian.PutUint32(body[16:20], uint32(st.Mtime))
	return body
}

func encodeOpen(fd uint32, st *FileStatus) []byte {
	body := make([]byte, 4, 24)
	binary.BigEndian.PutUint32(body[0:4], fd)
	if st != nil {
		body = append(body, encodeStat(*st)...)
	}
	return body
}

func encodeProtocol(serverKind uint32) []byte {
	body := make([]byte, 4)
	binary.BigEndian.PutUint32(body, serverKind)
	return body
}

func encodeDirList(names []string) []byte {
	var body []byte
	for _, n := range names {
		body = append(body, []byte(n)...)
		body = append(body, '\n')
	}
	return body
}

func encodeStatx(flags []byte) []byte {
	return flags
}

func encodeLocate(info string) []byte {
	return []byte(info)
}
