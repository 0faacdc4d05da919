package xrdproto

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildHeader(streamID uint16, code RequestCode, dlen uint32) []byte {
	hdr := make([]byte, RequestHeaderSize)
	binary.BigEndian.PutUint16(hdr[0:2], streamID)
	binary.BigEndian.PutUint16(hdr[2:4], uint16(code))
	binary.BigEndian.PutUint32(hdr[20:24], dlen)
	return hdr
}

func TestDecodeRequest(t *testing.T) {
	tests := []struct {
		name        string
		frame       []byte
		maxBodySize int
		wantErr     error
		want        *Request
	}{
		{
			name:  "truncated header",
			frame: buildHeader(1, ReqStat, 0)[:10],
			wantErr: ErrShortFrame,
		},
		{
			name:  "well-formed frame with no payload",
			frame: buildHeader(7, ReqProtocol, 0),
			want:  &Request{RequestHeader: RequestHeader{StreamID: 7, Code: ReqProtocol, Dlen: 0}},
		},
		{
			name:  "well-formed frame with payload round trips",
			frame: append(buildHeader(9, ReqStat, 4), []byte("/a/b")...),
			want: &Request{
				RequestHeader: RequestHeader{StreamID: 9, Code: ReqStat, Dlen: 4},
				Payload:       []byte("/a/b"),
			},
		},
		{
			name:    "truncated body",
			frame:   append(buildHeader(9, ReqStat, 5), []byte("/a")...),
			wantErr: ErrShortFrame,
		},
		{
			name:    "negative dlen rejected",
			frame:   buildHeader(1, ReqStat, 0xFFFFFFFF),
			wantErr: ErrBadLength,
		},
		{
			name:        "dlen over cap rejected",
			frame:       buildHeader(1, ReqStat, 100),
			maxBodySize: 10,
			wantErr:     ErrBadLength,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeRequest(bytes.NewReader(tt.frame), tt.maxBodySize)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v, want wrapping %v", err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeRequest_EOFOnEmptyStream(t *testing.T) {
	_, err := DecodeRequest(bytes.NewReader(nil), 0)
	assert.Equal(t, io.EOF, err)
}

func TestEncodeOkFrame(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeOkFrame(&buf, 3, StatusOksofar, []byte("hello")))

	out := buf.Bytes()
	require.Len(t, out, ResponseHeaderSize+len("hello"))
	assert.Equal(t, uint16(3), binary.BigEndian.Uint16(out[0:2]))
	assert.Equal(t, uint16(StatusOksofar), binary.BigEndian.Uint16(out[2:4]))
	assert.Equal(t, uint32(5), binary.BigEndian.Uint32(out[4:8]))
	assert.Equal(t, "hello", string(out[8:]))
}

func TestEncodeOkFrame_EmptyBody(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeOkFrame(&buf, 1, StatusOK, nil))
	assert.Equal(t, ResponseHeaderSize, buf.Len())
}

func TestEncodeErrorFrame(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeErrorFrame(&buf, 4, 3011, "not found"))

	out := buf.Bytes()
	assert.Equal(t, uint16(4), binary.BigEndian.Uint16(out[0:2]))
	assert.Equal(t, uint16(StatusError), binary.BigEndian.Uint16(out[2:4]))

	body := out[ResponseHeaderSize:]
	require.Len(t, body, 4+len("not found")+1)
	assert.Equal(t, uint32(3011), binary.BigEndian.Uint32(body[0:4]))
	assert.Equal(t, "not found", string(body[4:len(body)-1]))
	assert.Equal(t, byte(0), body[len(body)-1])
}
