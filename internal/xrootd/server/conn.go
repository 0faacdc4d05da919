package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/gbehrmann/xrootd4j/internal/dh"
	"github.com/gbehrmann/xrootd4j/internal/logger"
	"github.com/gbehrmann/xrootd4j/internal/metrics"
	xrootdfs "github.com/gbehrmann/xrootd4j/internal/xrootd/fs"
	"github.com/gbehrmann/xrootd4j/internal/xrootd/handler"
	"github.com/gbehrmann/xrootd4j/internal/xrootd/xrdproto"
	"github.com/gbehrmann/xrootd4j/pkg/config"
)

// authCipherSpec, authKeySpec and authBlockSize are this core's fixed
// choice of symmetric primitive for decrypting the kXR_login authenticator
// once a DH session is Finalized, matching the block size used in spec
// §8's literal DH scenario.
const (
	authCipherSpec = "Blowfish/CBC/PKCS5Padding"
	authKeySpec    = "Blowfish"
	authBlockSize  = 8
)

// session is the per-connection state a frame loop operates against: an
// open-file table and an optional in-progress DH handshake (spec §3's
// "Connection session").
type session struct {
	table     *xrootdfs.Table
	dhSession *dh.Session
}

// serveConn owns one accepted connection end to end: it reads frames until
// the connection closes, is idle past cfg.IdleTimeout, or ctx is canceled,
// dispatching each to the auth sub-flow or the filesystem dispatch table.
func serveConn(ctx context.Context, connID string, conn net.Conn, h *handler.Handler, m *metrics.Metrics, cfg config.ServerConfig) {
	defer conn.Close()

	clientIP, _, _ := net.SplitHostPort(conn.RemoteAddr().String())
	lc := logger.NewLogContext(connID, clientIP)
	logCtx := logger.WithContext(context.Background(), lc)

	logger.InfoCtx(logCtx, "connection accepted")
	defer logger.InfoCtx(logCtx, "connection closed")

	sess := &session{table: xrootdfs.NewTable()}
	defer func() {
		sess.table.CloseAll()
		m.SetOpenFiles(0)
	}()

	writer := newConnWriter(conn, cfg.UseZeroCopy)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if cfg.IdleTimeout > 0 {
			_ = conn.SetDeadline(time.Now().Add(cfg.IdleTimeout))
		}

		req, err := xrdproto.DecodeRequest(conn, int(cfg.MaxBodySize))
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.WarnCtx(logCtx, "connection read failed", logger.Err(err))
			}
			return
		}

		reqCtx := logger.WithContext(context.Background(), lc.WithRequest(req.StreamID, opcodeName(req.Code)))
		dispatchRequest(reqCtx, req, h, sess, writer, m)
	}
}

// dispatchRequest routes one decoded frame to the auth sub-flow (spec
// §4.6) or the filesystem handler dispatch table (spec §4.5), writing
// exactly one response (or, for read/readv, a stream already written by
// the handler itself).
func dispatchRequest(ctx context.Context, req *xrdproto.Request, h *handler.Handler, sess *session, writer *connWriter, m *metrics.Metrics) {
	name := opcodeName(req.Code)
	m.RecordRequest(name)
	start := time.Now()

	var result *handler.HandlerResult
	var err error

	switch req.Code {
	case xrdproto.ReqAuth:
		result, err = handleAuth(ctx, sess, req, m)
	case xrdproto.ReqLogin:
		result, err = handleLogin(ctx, sess, req)
	default:
		proc, ok := handler.DispatchTable[req.Code]
		if !ok {
			err = xrdproto.NewError(xrdproto.ErrArgInvalid, "unsupported request code")
			break
		}
		cw := newCountingWriter(writer)
		hctx := &handler.Context{Table: sess.table, Writer: cw, StreamID: req.StreamID}
		result, err = proc.Handler(h, hctx, req)
		m.AddBytesStreamed(int(cw.bytes))
	}

	logger.DebugCtx(ctx, "request dispatched", logger.DurationMs(time.Since(start).Seconds()*1000))

	if err != nil {
		writeError(ctx, writer, req.StreamID, name, err, m)
		return
	}
	if result == nil {
		// read/readv already streamed their own frames.
		return
	}
	if werr := writer.WriteFrame(req.StreamID, result.Status, result.Body); werr != nil {
		logger.WarnCtx(ctx, "response write failed", logger.Err(werr))
	}
}

func writeError(ctx context.Context, writer *connWriter, streamID uint16, opcode string, err error, m *metrics.Metrics) {
	var herr *xrdproto.HandlerError
	if !errors.As(err, &herr) {
		herr = xrdproto.NewError(xrdproto.ErrIOError, err.Error())
	}
	m.RecordError(opcode, herr.Kind.String())
	logger.WarnCtx(ctx, "request failed", logger.ErrorKind(herr.Kind.String()), logger.Err(err))

	if werr := xrdproto.EncodeErrorFrame(writer.conn, streamID, herr.ErrCode(), err.Error()); werr != nil {
		logger.WarnCtx(ctx, "error frame write failed", logger.Err(werr))
	}
}

// handleAuth implements the DH half of the GSI authentication sub-flow
// (spec §4.6/§9): the request payload is the peer's PEM/hex-encoded DH
// material. A fresh session is constructed on first use, the peer's
// material finalizes it, and this server's own material is returned so the
// peer can finalize its side (spec §8 scenario 5's mutual exchange). A
// request with an empty payload only constructs the session and returns its
// material, leaving it Initialized, so this side can open the exchange.
func handleAuth(ctx context.Context, sess *session, req *xrdproto.Request, m *metrics.Metrics) (*handler.HandlerResult, error) {
	if sess.dhSession == nil {
		s, err := dh.Construct()
		if err != nil {
			return nil, xrdproto.NewError(xrdproto.ErrIOError, "dh: construct local keypair")
		}
		sess.dhSession = s
	}

	if sess.dhSession.State() == dh.Initialized && len(req.Payload) > 0 {
		if err := sess.dhSession.Finalize(string(req.Payload)); err != nil {
			return nil, xrdproto.NewError(xrdproto.ErrIOError, "dh: "+err.Error())
		}
		m.RecordDHSessionFinalized()
		logger.InfoCtx(ctx, "dh session finalized", logger.DHState("finalized"))
	}

	material, err := sess.dhSession.EncodedMaterial()
	if err != nil {
		return nil, xrdproto.NewError(xrdproto.ErrIOError, "dh: encode local material")
	}
	return &handler.HandlerResult{Status: xrdproto.StatusOK, Body: []byte(material)}, nil
}

// handleLogin acknowledges a kXR_login request. When a DH session has
// already been finalized and the login carries a non-empty payload, that
// payload is treated as the client's encrypted authenticator (spec §1:
// "derived session key is used to decrypt authenticated client material")
// and must decrypt successfully for the login to succeed. A login with no
// prior DH handshake is accepted unconditionally: the broader GSI identity
// check beyond DH is out of scope (spec §1).
func handleLogin(ctx context.Context, sess *session, req *xrdproto.Request) (*handler.HandlerResult, error) {
	if sess.dhSession == nil || sess.dhSession.State() != dh.Finalized || len(req.Payload) == 0 {
		return &handler.HandlerResult{Status: xrdproto.StatusOK}, nil
	}

	plaintext, err := sess.dhSession.Decrypt(authCipherSpec, authKeySpec, authBlockSize, req.Payload)
	if err != nil {
		return nil, xrdproto.NewError(xrdproto.ErrIOError, "login: authenticator did not decrypt: "+err.Error())
	}

	logger.DebugCtx(ctx, "login authenticator decrypted", logger.CipherSpec(authCipherSpec))
	return &handler.HandlerResult{Status: xrdproto.StatusOK, Body: plaintext}, nil
}

func opcodeName(code xrdproto.RequestCode) string {
	switch code {
	case xrdproto.ReqAuth:
		return "auth"
	case xrdproto.ReqLogin:
		return "login"
	}
	if proc, ok := handler.DispatchTable[code]; ok {
		return proc.Name
	}
	return fmt.Sprintf("unknown(%d)", uint16(code))
}
