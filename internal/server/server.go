// Package server exposes recognition and saved games over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/fenscan/internal/games"
	"github.com/park285/fenscan/internal/msgcat"
	"github.com/park285/fenscan/internal/pipeline"
	"github.com/park285/fenscan/internal/recognize"
)

const (
	headerUserID    = "X-User-Id"
	headerRequestID = "X-Request-Id"
	uploadField     = "file"
	// multipart framing on top of the file itself
	formOverhead = 64 << 10
)

// Recognizer is satisfied by *recognize.Service.
type Recognizer interface {
	Recognize(ctx context.Context, data []byte) (recognize.Outcome, error)
}

type Config struct {
	MaxUploadBytes int
	RequestTimeout time.Duration
}

type Server struct {
	rec     Recognizer
	games   games.Repository
	msgs    *msgcat.Catalog
	cfg     Config
	logger  *zap.Logger
	httpSrv *fasthttp.Server
}

func New(rec Recognizer, repo games.Repository, msgs *msgcat.Catalog, cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	s := &Server{rec: rec, games: repo, msgs: msgs, cfg: cfg, logger: logger}
	s.httpSrv = &fasthttp.Server{
		Handler:            s.Handler(),
		Name:               "fenscan",
		MaxRequestBodySize: cfg.MaxUploadBytes + formOverhead,
		ReadTimeout:        30 * time.Second,
		WriteTimeout:       30 * time.Second,
		IdleTimeout:        2 * time.Minute,
	}
	return s
}

func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("http server listening", zap.String("addr", addr))
	return s.httpSrv.ListenAndServe(addr)
}

func (s *Server) Serve(ln net.Listener) error { return s.httpSrv.Serve(ln) }

func (s *Server) Shutdown(ctx context.Context) error { return s.httpSrv.ShutdownWithContext(ctx) }

// Handler routes requests and writes an access log line for each.
func (s *Server) Handler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		reqID := uuid.NewString()
		ctx.Response.Header.Set(headerRequestID, reqID)

		s.route(ctx)

		s.logger.Info("http request",
			zap.String("request_id", reqID),
			zap.ByteString("method", ctx.Method()),
			zap.ByteString("path", ctx.Path()),
			zap.Int("status", ctx.Response.StatusCode()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

func (s *Server) route(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())
	switch {
	case path == "/health":
		if !ctx.IsGet() {
			s.methodNotAllowed(ctx)
			return
		}
		writeJSON(ctx, fasthttp.StatusOK, map[string]any{"ok": true})
	case path == "/predict":
		if !ctx.IsPost() {
			s.methodNotAllowed(ctx)
			return
		}
		s.handlePredict(ctx)
	case path == "/games":
		switch {
		case ctx.IsPost():
			s.handleCreateGame(ctx)
		case ctx.IsGet():
			s.handleListGames(ctx)
		default:
			s.methodNotAllowed(ctx)
		}
	case strings.HasPrefix(path, "/games/"):
		if !ctx.IsGet() {
			s.methodNotAllowed(ctx)
			return
		}
		s.handleGetGame(ctx, strings.TrimPrefix(path, "/games/"))
	default:
		writeJSON(ctx, fasthttp.StatusNotFound, errorBody{Error: "not found", Kind: "not_found"})
	}
}

type errorBody struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type predictBody struct {
	OK     bool   `json:"ok"`
	FEN    string `json:"fen"`
	ID     string `json:"id"`
	Cached bool   `json:"cached"`
}

func (s *Server) handlePredict(ctx *fasthttp.RequestCtx) {
	fh, err := ctx.FormFile(uploadField)
	if err != nil {
		s.fail(ctx, fasthttp.StatusBadRequest, "missing_file", nil, "no file uploaded")
		return
	}
	if fh.Size > int64(s.cfg.MaxUploadBytes) {
		s.fail(ctx, fasthttp.StatusRequestEntityTooLarge, "too_large", map[string]any{"Limit": s.cfg.MaxUploadBytes}, "upload too large")
		return
	}
	f, err := fh.Open()
	if err != nil {
		s.fail(ctx, fasthttp.StatusBadRequest, "missing_file", nil, "unreadable upload")
		return
	}
	data, err := io.ReadAll(f)
	_ = f.Close()
	if err != nil {
		s.fail(ctx, fasthttp.StatusBadRequest, "missing_file", nil, "unreadable upload")
		return
	}

	rctx, cancel := s.requestContext()
	defer cancel()
	out, err := s.rec.Recognize(rctx, data)
	if err != nil {
		status, kind := classifyError(err)
		if kind == "internal" || kind == "encoding" {
			s.logger.Error("recognition failed", zap.String("kind", kind), zap.Error(err))
		}
		s.fail(ctx, status, kind, nil, "recognition failed")
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, predictBody{OK: true, FEN: out.FEN, ID: out.ID, Cached: out.Cached})
}

// classifyError maps a recognition error onto an HTTP status and a catalog
// kind.
func classifyError(err error) (int, string) {
	if errors.Is(err, context.DeadlineExceeded) {
		return fasthttp.StatusGatewayTimeout, "timeout"
	}
	kind := pipeline.KindName(err)
	switch kind {
	case "decode":
		return fasthttp.StatusBadRequest, kind
	case "detection":
		return fasthttp.StatusUnprocessableEntity, kind
	default:
		return fasthttp.StatusInternalServerError, kind
	}
}

type createGameRequest struct {
	FEN    string `json:"fen"`
	Title  string `json:"title"`
	ScanID string `json:"scan_id"`
}

func (s *Server) handleCreateGame(ctx *fasthttp.RequestCtx) {
	owner, ok := s.requireUser(ctx)
	if !ok {
		return
	}
	var req createGameRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		s.fail(ctx, fasthttp.StatusBadRequest, "invalid_request", nil, "invalid json")
		return
	}
	g, err := games.NewGame(owner, req.Title, req.FEN, req.ScanID)
	if err != nil {
		if errors.Is(err, games.ErrInvalidFEN) {
			s.fail(ctx, fasthttp.StatusBadRequest, "invalid_fen", map[string]any{"FEN": req.FEN}, "invalid fen")
			return
		}
		s.fail(ctx, fasthttp.StatusBadRequest, "invalid_request", nil, err.Error())
		return
	}
	rctx, cancel := s.requestContext()
	defer cancel()
	id, err := s.games.Insert(rctx, g)
	if err != nil {
		s.logger.Error("insert game failed", zap.Error(err))
		s.fail(ctx, fasthttp.StatusInternalServerError, "internal", nil, "storage error")
		return
	}
	g.ID = id
	writeJSON(ctx, fasthttp.StatusCreated, map[string]any{"ok": true, "game": g})
}

func (s *Server) handleListGames(ctx *fasthttp.RequestCtx) {
	owner, ok := s.requireUser(ctx)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(string(ctx.QueryArgs().Peek("limit")))
	rctx, cancel := s.requestContext()
	defer cancel()
	list, err := s.games.List(rctx, owner, limit)
	if err != nil {
		s.logger.Error("list games failed", zap.Error(err))
		s.fail(ctx, fasthttp.StatusInternalServerError, "internal", nil, "storage error")
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, map[string]any{"ok": true, "games": list})
}

func (s *Server) handleGetGame(ctx *fasthttp.RequestCtx, rawID string) {
	owner, ok := s.requireUser(ctx)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		s.fail(ctx, fasthttp.StatusNotFound, "not_found", map[string]any{"ID": rawID}, "not found")
		return
	}
	rctx, cancel := s.requestContext()
	defer cancel()
	g, err := s.games.Get(rctx, id, owner)
	if errors.Is(err, games.ErrNotFound) {
		s.fail(ctx, fasthttp.StatusNotFound, "not_found", map[string]any{"ID": rawID}, "not found")
		return
	}
	if err != nil {
		s.logger.Error("get game failed", zap.Error(err))
		s.fail(ctx, fasthttp.StatusInternalServerError, "internal", nil, "storage error")
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, map[string]any{"ok": true, "game": g})
}

func (s *Server) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.cfg.RequestTimeout)
}

func (s *Server) requireUser(ctx *fasthttp.RequestCtx) (string, bool) {
	owner := strings.TrimSpace(string(ctx.Request.Header.Peek(headerUserID)))
	if owner == "" {
		s.fail(ctx, fasthttp.StatusUnauthorized, "unauthorized", nil, "missing user")
		return "", false
	}
	return owner, true
}

func (s *Server) methodNotAllowed(ctx *fasthttp.RequestCtx) {
	writeJSON(ctx, fasthttp.StatusMethodNotAllowed, errorBody{Error: "method not allowed", Kind: "method"})
}

// fail writes the catalog message for kind, or fallback when the catalog has
// none.
func (s *Server) fail(ctx *fasthttp.RequestCtx, status int, kind string, data any, fallback string) {
	msg := s.msgs.Text(msgcat.ErrorKey(kind), data, fallback)
	writeJSON(ctx, status, errorBody{Error: msg, Kind: kind})
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		ctx.Error(`{"ok":false,"error":"encode response","kind":"internal"}`, fasthttp.StatusInternalServerError)
		ctx.SetContentType("application/json")
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}
