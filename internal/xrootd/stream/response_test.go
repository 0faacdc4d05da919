package stream

import (
	"bytes"
	"os"
	"testing"

	"github.com/gbehrmann/xrootd4j/internal/xrootd/xrdproto"
	"github.com/stretchr/testify/require"
)

type recordedFrame struct {
	status xrdproto.StatusCode
	body   []byte
}

type fakeWriter struct {
	frames    []recordedFrame
	zeroCopy  bool
	fileCalls int
}

func (f *fakeWriter) WriteFrame(streamID uint16, status xrdproto.StatusCode, body []byte) error {
	cp := make([]byte, len(body))
	copy(cp, body)
	f.frames = append(f.frames, recordedFrame{status: status, body: cp})
	return nil
}

func (f *fakeWriter) WriteFileRegion(streamID uint16, file *os.File, offset, length int64) error {
	f.fileCalls++
	buf := make([]byte, length)
	_, err := file.ReadAt(buf, offset)
	if err != nil {
		return err
	}
	f.frames = append(f.frames, recordedFrame{status: xrdproto.StatusOK, body: buf})
	return nil
}

func (f *fakeWriter) SupportsZeroCopy() bool { return f.zeroCopy }

func writeTempFile(t *testing.T, content []byte) *os.File {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "stream-*")
	require.NoError(t, err)
	_, err = f.Write(content)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestRespondRead_ZeroBytes(t *testing.T) {
	f := writeTempFile(t, []byte("hello"))
	w := &fakeWriter{}

	require.NoError(t, RespondRead(w, 1, f, 0, 0, false))
	require.Len(t, w.frames, 1)
	require.Equal(t, xrdproto.StatusOK, w.frames[0].status)
	require.Empty(t, w.frames[0].body)
}

func TestRespondRead_SingleFrame(t *testing.T) {
	content := []byte("hello world")
	f := writeTempFile(t, content)
	w := &fakeWriter{}

	require.NoError(t, RespondRead(w, 1, f, 0, int64(len(content)), false))
	require.Len(t, w.frames, 1)
	require.Equal(t, xrdproto.StatusOK, w.frames[0].status)
	require.Equal(t, content, w.frames[0].body)
}

func TestRespondRead_ExactlyMaxFrameSizeIsOneFrame(t *testing.T) {
	content := bytes.Repeat([]byte{'x'}, MaxFrameSize)
	f := writeTempFile(t, content)
	w := &fakeWriter{}

	require.NoError(t, RespondRead(w, 1, f, 0, MaxFrameSize, false))
	require.Len(t, w.frames, 1)
	require.Equal(t, xrdproto.StatusOK, w.frames[0].status)
	require.Len(t, w.frames[0].body, MaxFrameSize)
}

func TestRespondRead_MaxFrameSizePlusOneIsTwoFrames(t *testing.T) {
	content := bytes.Repeat([]byte{'y'}, MaxFrameSize+1)
	f := writeTempFile(t, content)
	w := &fakeWriter{}

	require.NoError(t, RespondRead(w, 1, f, 0, MaxFrameSize+1, false))
	require.Len(t, w.frames, 2)
	require.Equal(t, xrdproto.StatusOksofar, w.frames[0].status)
	require.Len(t, w.frames[0].body, MaxFrameSize)
	require.Equal(t, xrdproto.StatusOK, w.frames[1].status)
	require.Len(t, w.frames[1].body, 1)

	var full []byte
	for _, fr := range w.frames {
		full = append(full, fr.body...)
	}
	require.Equal(t, content, full)
}

func TestRespondRead_ZeroCopyUsesFileRegion(t *testing.T) {
	content := []byte("zero-copy-data")
	f := writeTempFile(t, content)
	w := &fakeWriter{zeroCopy: true}

	require.NoError(t, RespondRead(w, 1, f, 0, int64(len(content)), true))
	require.Equal(t, 1, w.fileCalls)
	require.Len(t, w.frames, 1)
	require.Equal(t, content, w.frames[0].body)
}

func TestRespondRead_ZeroCopyRequestedButUnsupportedFallsBack(t *testing.T) {
	content := []byte("fallback")
	f := writeTempFile(t, content)
	w := &fakeWriter{zeroCopy: false}

	require.NoError(t, RespondRead(w, 1, f, 0, int64(len(content)), true))
	require.Equal(t, 0, w.fileCalls)
	require.Len(t, w.frames, 1)
}

func TestRespondReadV(t *testing.T) {
	f := writeTempFile(t, []byte("ABCDEFGH"))
	w := &fakeWriter{}

	elems := []ReadVElement{
		{FD: 0, Offset: 0, Length: 4},
		{FD: 0, Offset: 4, Length: 4},
	}
	resolve := func(fd uint32) (*os.File, error) { return f, nil }

	require.NoError(t, RespondReadV(w, 7, elems, resolve))
	require.Len(t, w.frames, 1)
	require.Equal(t, xrdproto.StatusOK, w.frames[0].status)

	body := w.frames[0].body
	require.Len(t, body, 2*(readVHeaderSize+4))
	require.Equal(t, "ABCD", string(body[readVHeaderSize:readVHeaderSize+4]))
	require.Equal(t, "EFGH", string(body[2*readVHeaderSize+4:2*readVHeaderSize+8]))
}

func TestRespondReadV_UnresolvedFD(t *testing.T) {
	w := &fakeWriter{}
	elems := []ReadVElement{{FD: 99, Offset: 0, Length: 1}}
	resolve := func(fd uint32) (*os.File, error) { return nil, os.ErrNotExist }

	err := RespondReadV(w, 1, elems, resolve)
	require.Error(t, err)
	require.Empty(t, w.frames)
}
