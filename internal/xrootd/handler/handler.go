package handler

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	xrootdfs "github.com/gbehrmann/xrootd4j/internal/xrootd/fs"
	"github.com/gbehrmann/xrootd4j/internal/xrootd/stream"
	"github.com/gbehrmann/xrootd4j/internal/xrootd/xrdproto"
)

// Handler holds the configuration every procedure needs: the filesystem
// root every client path is resolved under, and whether zero-copy transfer
// is enabled for read responses (spec §4.10).
type Handler struct {
	Root        string
	UseZeroCopy bool
}

// Context is the per-connection state a procedure operates against: its
// open-file table, the outbound frame writer, and the request's stream id.
type Context struct {
	Table    *xrootdfs.Table
	Writer   stream.Writer
	StreamID uint16
}

// Procedure is one opcode's handler. A procedure that streams its own
// response (read, readv) returns (nil, nil) on success, having already
// written frames through c.Writer; the dispatcher only encodes a
// HandlerResult or error for the remaining procedures.
type Procedure struct {
	Name    string
	Handler func(h *Handler, c *Context, req *xrdproto.Request) (*HandlerResult, error)
}

// DispatchTable maps request opcodes to their procedure (spec §4.5).
var DispatchTable = map[xrdproto.RequestCode]*Procedure{
	xrdproto.ReqProtocol: {Name: "protocol", Handler: (*Handler).handleProtocol},
	xrdproto.ReqStat:     {Name: "stat", Handler: (*Handler).handleStat},
	xrdproto.ReqStatx:    {Name: "statx", Handler: (*Handler).handleStatx},
	xrdproto.ReqRm:       {Name: "rm", Handler: (*Handler).handleRm},
	xrdproto.ReqRmdir:    {Name: "rmdir", Handler: (*Handler).handleRmdir},
	xrdproto.ReqMkdir:    {Name: "mkdir", Handler: (*Handler).handleMkdir},
	xrdproto.ReqMv:       {Name: "mv", Handler: (*Handler).handleMv},
	xrdproto.ReqDirlist:  {Name: "dirlist", Handler: (*Handler).handleDirlist},
	xrdproto.ReqPrepare:  {Name: "prepare", Handler: (*Handler).handlePrepare},
	xrdproto.ReqOpen:     {Name: "open", Handler: (*Handler).handleOpen},
	xrdproto.ReqRead:     {Name: "read", Handler: (*Handler).handleRead},
	xrdproto.ReqReadV:    {Name: "readv", Handler: (*Handler).handleReadV},
	xrdproto.ReqWrite:    {Name: "write", Handler: (*Handler).handleWrite},
	xrdproto.ReqSync:     {Name: "sync", Handler: (*Handler).handleSync},
	xrdproto.ReqClose:    {Name: "close", Handler: (*Handler).handleClose},
	xrdproto.ReqLocate:   {Name: "locate", Handler: (*Handler).handleLocate},
}

func (h *Handler) resolve(clientPath string) (string, error) {
	p, err := xrootdfs.Resolve(h.Root, clientPath)
	if err != nil {
		return "", xrdproto.NewError(xrdproto.ErrArgInvalid, err.Error())
	}
	return p, nil
}

func statToFileStatus(info fs.FileInfo) FileStatus {
	var flags uint32
	mode := info.Mode()
	switch {
	case info.IsDir():
		flags |= FlagIsDir
	case !mode.IsRegular():
		flags |= FlagOther
	}
	if mode&0o400 != 0 {
		flags |= FlagReadable
	}
	if mode&0o200 != 0 {
		flags |= FlagWritable
	}
	if mode&0o100 != 0 {
		flags |= FlagXSet
	}
	return FileStatus{
		ID:     0,
		Length: info.Size(),
		Flags:  flags,
		Mtime:  info.ModTime().Unix(),
	}
}

func (h *Handler) handleProtocol(_ *Context, _ *xrdproto.Request) (*HandlerResult, error) {
	return okResult(encodeProtocol(xrdproto.ServerKindDataServer))
}

func (h *Handler) handleStat(_ *Context, req *xrdproto.Request) (*HandlerResult, error) {
	clientPath := decodePath(req)
	abs, err := h.resolve(clientPath)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, xrdproto.NewError(xrdproto.ErrNotFound, clientPath)
		}
		return nil, fmt.Errorf("stat %s: %w", clientPath, err)
	}
	return okResult(encodeStat(statToFileStatus(info)))
}

func (h *Handler) handleStatx(_ *Context, req *xrdproto.Request) (*HandlerResult, error) {
	paths := decodePathList(req)
	if len(paths) == 0 {
		return nil, xrdproto.NewError(xrdproto.ErrArgMissing, "statx requires at least one path")
	}
	flags := make([]byte, len(paths))
	for i, p := range paths {
		abs, err := h.resolve(p)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(abs)
		if err != nil {
			flags[i] = byte(FlagOther)
			continue
		}
		flags[i] = byte(statToFileStatus(info).Flags)
	}
	return okResult(encodeStatx(flags))
}

func (h *Handler) handleRm(_ *Context, req *xrdproto.Request) (*HandlerResult, error) {
	clientPath := decodePath(req)
	if clientPath == "" {
		return nil, xrdproto.NewError(xrdproto.ErrArgMissing, "rm requires a path")
	}
	abs, err := h.resolve(clientPath)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, xrdproto.NewError(xrdproto.ErrNotFound, clientPath)
		}
		return nil, fmt.Errorf("stat %s: %w", clientPath, err)
	}
	if info.IsDir() {
		return nil, xrdproto.NewError(xrdproto.ErrNotFile, clientPath)
	}
	if err := os.Remove(abs); err != nil {
		return nil, fmt.Errorf("rm %s: %w", clientPath, err)
	}
	return okResult(nil)
}

func (h *Handler) handleRmdir(_ *Context, req *xrdproto.Request) (*HandlerResult, error) {
	clientPath := decodePath(req)
	if clientPath == "" {
		return nil, xrdproto.NewError(xrdproto.ErrArgMissing, "rmdir requires a path")
	}
	abs, err := h.resolve(clientPath)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, xrdproto.NewError(xrdproto.ErrNotFound, clientPath)
		}
		return nil, fmt.Errorf("stat %s: %w", clientPath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("rmdir %s: not a directory", clientPath)
	}
	if err := os.Remove(abs); err != nil {
		return nil, fmt.Errorf("rmdir %s: %w", clientPath, err)
	}
	return okResult(nil)
}

func (h *Handler) handleMkdir(_ *Context, req *xrdproto.Request) (*HandlerResult, error) {
	flags, clientPath := decodeMkdir(req)
	if clientPath == "" {
		return nil, xrdproto.NewError(xrdproto.ErrArgMissing, "mkdir requires a path")
	}
	abs, err := h.resolve(clientPath)
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(abs); statErr == nil {
		return nil, fmt.Errorf("mkdir %s: already exists", clientPath)
	}
	if flags&OpenMkpath != 0 {
		err = os.MkdirAll(abs, 0o755)
	} else {
		err = os.Mkdir(abs, 0o755)
	}
	if err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", clientPath, err)
	}
	return okResult(nil)
}

func (h *Handler) handleMv(_ *Context, req *xrdproto.Request) (*HandlerResult, error) {
	srcClient, dstClient, ok := decodeMvPaths(req)
	if !ok || srcClient == "" || dstClient == "" {
		return nil, xrdproto.NewError(xrdproto.ErrArgMissing, "mv requires src and dst")
	}
	src, err := h.resolve(srcClient)
	if err != nil {
		return nil, err
	}
	dst, err := h.resolve(dstClient)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(src); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, xrdproto.NewError(xrdproto.ErrNotFound, srcClient)
		}
		return nil, fmt.Errorf("stat %s: %w", srcClient, err)
	}
	if err := os.Rename(src, dst); err != nil {
		return nil, fmt.Errorf("mv %s -> %s: %w", srcClient, dstClient, err)
	}
	return okResult(nil)
}

func (h *Handler) handleDirlist(_ *Context, req *xrdproto.Request) (*HandlerResult, error) {
	clientPath := decodePath(req)
	if clientPath == "" {
		return nil, xrdproto.NewError(xrdproto.ErrArgMissing, "dirlist requires a path")
	}
	abs, err := h.resolve(clientPath)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("dirlist %s: %w", clientPath, err)
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	if len(names) == 0 {
		return nil, xrdproto.NewError(xrdproto.ErrNotFound, clientPath)
	}
	sort.Strings(names)
	return okResult(encodeDirList(names))
}

func (h *Handler) handlePrepare(_ *Context, _ *xrdproto.Request) (*HandlerResult, error) {
	return okResult(nil)
}

func (h *Handler) handleOpen(c *Context, req *xrdproto.Request) (*HandlerResult, error) {
	flags, clientPath := decodeOpen(req)
	abs, err := h.resolve(clientPath)
	if err != nil {
		return nil, err
	}

	if flags&OpenMkpath != 0 {
		if err := os.MkdirAll(path.Dir(abs), 0o755); err != nil {
			return nil, fmt.Errorf("open %s: mkpath: %w", clientPath, err)
		}
	}

	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		return nil, xrdproto.NewError(xrdproto.ErrIsDirectory, clientPath)
	}

	osFlags := os.O_RDONLY
	if flags&OpenReadWrite != 0 {
		osFlags = os.O_RDWR | os.O_CREATE
	}
	if flags&OpenNew != 0 {
		osFlags |= os.O_CREATE | os.O_EXCL
	}
	if flags&OpenDelete != 0 {
		osFlags |= os.O_CREATE | os.O_TRUNC
	}

	file, err := os.OpenFile(abs, osFlags, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, xrdproto.NewError(xrdproto.ErrNotFound, clientPath)
		}
		return nil, fmt.Errorf("open %s: %w", clientPath, err)
	}

	var stPtr *FileStatus
	if flags&OpenRetstat != 0 {
		info, err := file.Stat()
		if err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("open %s: stat after open: %w", clientPath, err)
		}
		st := statToFileStatus(info)
		stPtr = &st
	}

	fd := c.Table.Add(file)
	return okResult(encodeOpen(uint32(fd), stPtr))
}

func (h *Handler) handleRead(c *Context, req *xrdproto.Request) (*HandlerResult, error) {
	args := decodeRead(req)
	file, err := c.Table.Get(int(args.fd))
	if err != nil {
		return nil, xrdproto.NewError(xrdproto.ErrFileNotOpen, fmt.Sprintf("fd %d", args.fd))
	}
	if err := stream.RespondRead(c.Writer, c.StreamID, file, args.offset, int64(args.length), h.UseZeroCopy); err != nil {
		return nil, fmt.Errorf("read fd %d: %w", args.fd, err)
	}
	return nil, nil
}

func (h *Handler) handleReadV(c *Context, req *xrdproto.Request) (*HandlerResult, error) {
	elements := decodeReadV(req)
	if len(elements) == 0 {
		return nil, xrdproto.NewError(xrdproto.ErrArgMissing, "readv requires at least one element")
	}
	streamElems := make([]stream.ReadVElement, len(elements))
	for i, e := range elements {
		streamElems[i] = stream.ReadVElement{FD: e.fd, Offset: e.offset, Length: int64(e.length)}
	}
	resolve := func(fd uint32) (*os.File, error) {
		f, err := c.Table.Get(int(fd))
		if err != nil {
			return nil, xrdproto.NewError(xrdproto.ErrFileNotOpen, fmt.Sprintf("fd %d", fd))
		}
		return f, nil
	}
	if err := stream.RespondReadV(c.Writer, c.StreamID, streamElems, resolve); err != nil {
		var herr *xrdproto.HandlerError
		if errors.As(err, &herr) {
			return nil, herr
		}
		return nil, fmt.Errorf("readv: %w", err)
	}
	return nil, nil
}

func (h *Handler) handleWrite(c *Context, req *xrdproto.Request) (*HandlerResult, error) {
	args := decodeWrite(req)
	file, err := c.Table.Get(int(args.fd))
	if err != nil {
		return nil, xrdproto.NewError(xrdproto.ErrFileNotOpen, fmt.Sprintf("fd %d", args.fd))
	}
	if _, err := file.WriteAt(args.data, args.offset); err != nil {
		return nil, fmt.Errorf("write fd %d: %w", args.fd, err)
	}
	return okResult(nil)
}

func (h *Handler) handleSync(c *Context, req *xrdproto.Request) (*HandlerResult, error) {
	fd := decodeFD(req)
	file, err := c.Table.Get(int(fd))
	if err != nil {
		return nil, xrdproto.NewError(xrdproto.ErrFileNotOpen, fmt.Sprintf("fd %d", fd))
	}
	if err := file.Sync(); err != nil {
		return nil, fmt.Errorf("sync fd %d: %w", fd, err)
	}
	return okResult(nil)
}

func (h *Handler) handleClose(c *Context, req *xrdproto.Request) (*HandlerResult, error) {
	fd := decodeFD(req)
	if err := c.Table.Close(int(fd)); err != nil {
		return nil, xrdproto.NewError(xrdproto.ErrFileNotOpen, fmt.Sprintf("fd %d", fd))
	}
	return okResult(nil)
}

func (h *Handler) handleLocate(_ *Context, req *xrdproto.Request) (*HandlerResult, error) {
	clientPath := strings.TrimPrefix(decodePath(req), "*")
	abs, err := h.resolve(clientPath)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return okResult(encodeLocate(""))
	}
	access := "r"
	if info.Mode()&0o200 != 0 {
		access += "w"
	}
	return okResult(encodeLocate(fmt.Sprintf("localhost %s", access)))
}
