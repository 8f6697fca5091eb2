package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"testing"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/park285/fenscan/internal/fen"
	"github.com/park285/fenscan/internal/games"
	"github.com/park285/fenscan/internal/msgcat"
	"github.com/park285/fenscan/internal/pipeline"
	"github.com/park285/fenscan/internal/recognize"
)

type fakeRecognizer struct {
	err  error
	wait time.Duration
	got  []byte
}

func (f *fakeRecognizer) Recognize(ctx context.Context, data []byte) (recognize.Outcome, error) {
	f.got = data
	if f.wait > 0 {
		select {
		case <-time.After(f.wait):
		case <-ctx.Done():
			return recognize.Outcome{}, ctx.Err()
		}
	}
	if f.err != nil {
		return recognize.Outcome{}, f.err
	}
	return recognize.Outcome{ID: "scan-1", FEN: fen.StartingPosition}, nil
}

func newTestServer(t *testing.T, rec Recognizer, cfg Config) *Server {
	t.Helper()
	msgs, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat: %v", err)
	}
	return New(rec, games.NewMemoryRepository(), msgs, cfg, nil)
}

func do(s *Server, req *fasthttp.Request) *fasthttp.RequestCtx {
	var ctx fasthttp.RequestCtx
	ctx.Init(req, nil, nil)
	s.Handler()(&ctx)
	return &ctx
}

func uploadRequest(t *testing.T, field string, payload []byte) *fasthttp.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile(field, "board.png")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write(payload); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	req := fasthttp.AcquireRequest()
	t.Cleanup(func() { fasthttp.ReleaseRequest(req) })
	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI("http://fenscan.test/predict")
	req.Header.SetContentType(w.FormDataContentType())
	req.SetBody(buf.Bytes())
	return req
}

func decodeBody(t *testing.T, ctx *fasthttp.RequestCtx) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(ctx.Response.Body(), &out); err != nil {
		t.Fatalf("decode body %q: %v", ctx.Response.Body(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &fakeRecognizer{}, Config{})
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI("http://fenscan.test/health")
	ctx := do(s, req)
	if ctx.Response.StatusCode() != fasthttp.StatusOK || decodeBody(t, ctx)["ok"] != true {
		t.Fatalf("unexpected health response %d %s", ctx.Response.StatusCode(), ctx.Response.Body())
	}
	if len(ctx.Response.Header.Peek(headerRequestID)) == 0 {
		t.Fatalf("missing request id header")
	}
}

func TestPredictSuccess(t *testing.T) {
	rec := &fakeRecognizer{}
	s := newTestServer(t, rec, Config{})
	ctx := do(s, uploadRequest(t, "file", []byte("png-bytes")))
	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("status %d: %s", ctx.Response.StatusCode(), ctx.Response.Body())
	}
	body := decodeBody(t, ctx)
	if body["ok"] != true || body["fen"] != fen.StartingPosition || body["id"] != "scan-1" {
		t.Fatalf("unexpected body %v", body)
	}
	if string(rec.got) != "png-bytes" {
		t.Fatalf("recognizer got %q", rec.got)
	}
}

func TestPredictErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"decode", &pipeline.Error{Kind: pipeline.ErrDecode, Stage: pipeline.StageDecode}, fasthttp.StatusBadRequest, "decode"},
		{"detection", &pipeline.Error{Kind: pipeline.ErrDetection, Stage: pipeline.StageSegment}, fasthttp.StatusUnprocessableEntity, "detection"},
		{"classification", &pipeline.Error{Kind: pipeline.ErrClassification, Stage: pipeline.StageClassify}, fasthttp.StatusInternalServerError, "classification"},
		{"internal", context.Canceled, fasthttp.StatusInternalServerError, "internal"},
	}
	msgs, _ := msgcat.New("")
	for _, tc := range cases {
		s := newTestServer(t, &fakeRecognizer{err: tc.err}, Config{})
		ctx := do(s, uploadRequest(t, "file", []byte("x")))
		if ctx.Response.StatusCode() != tc.status {
			t.Fatalf("%s: status %d", tc.name, ctx.Response.StatusCode())
		}
		body := decodeBody(t, ctx)
		if body["ok"] != false || body["kind"] != tc.kind {
			t.Fatalf("%s: unexpected body %v", tc.name, body)
		}
		if want := msgs.Text(msgcat.ErrorKey(tc.kind), nil, ""); body["error"] != want {
			t.Fatalf("%s: message %q, want %q", tc.name, body["error"], want)
		}
	}
}

func TestPredictMissingFile(t *testing.T) {
	s := newTestServer(t, &fakeRecognizer{}, Config{})
	ctx := do(s, uploadRequest(t, "image", []byte("x")))
	if ctx.Response.StatusCode() != fasthttp.StatusBadRequest || decodeBody(t, ctx)["kind"] != "missing_file" {
		t.Fatalf("unexpected response %d %s", ctx.Response.StatusCode(), ctx.Response.Body())
	}
}

func TestPredictTooLarge(t *testing.T) {
	s := newTestServer(t, &fakeRecognizer{}, Config{MaxUploadBytes: 4})
	ctx := do(s, uploadRequest(t, "file", []byte("0123456789")))
	if ctx.Response.StatusCode() != fasthttp.StatusRequestEntityTooLarge {
		t.Fatalf("unexpected status %d", ctx.Response.StatusCode())
	}
}

func TestPredictTimeout(t *testing.T) {
	s := newTestServer(t, &fakeRecognizer{wait: time.Second}, Config{RequestTimeout: 20 * time.Millisecond})
	ctx := do(s, uploadRequest(t, "file", []byte("x")))
	if ctx.Response.StatusCode() != fasthttp.StatusGatewayTimeout || decodeBody(t, ctx)["kind"] != "timeout" {
		t.Fatalf("unexpected response %d %s", ctx.Response.StatusCode(), ctx.Response.Body())
	}
}

func gamesRequest(method, path, user string, body []byte) *fasthttp.Request {
	req := fasthttp.AcquireRequest()
	req.Header.SetMethod(method)
	req.SetRequestURI("http://fenscan.test" + path)
	if user != "" {
		req.Header.Set(headerUserID, user)
	}
	if body != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}
	return req
}

func TestGamesFlow(t *testing.T) {
	s := newTestServer(t, &fakeRecognizer{}, Config{})

	ctx := do(s, gamesRequest(fasthttp.MethodGet, "/games", "", nil))
	if ctx.Response.StatusCode() != fasthttp.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", ctx.Response.StatusCode())
	}

	ctx = do(s, gamesRequest(fasthttp.MethodPost, "/games", "alice", []byte(`{"fen":"8/8/8/8/8/8/8/9","title":"bad"}`)))
	if ctx.Response.StatusCode() != fasthttp.StatusBadRequest || decodeBody(t, ctx)["kind"] != "invalid_fen" {
		t.Fatalf("expected invalid_fen, got %d %s", ctx.Response.StatusCode(), ctx.Response.Body())
	}

	ctx = do(s, gamesRequest(fasthttp.MethodPost, "/games", "alice", []byte(`{"fen":"`+fen.StartingPosition+`","title":"start","scan_id":"scan-1"}`)))
	if ctx.Response.StatusCode() != fasthttp.StatusCreated {
		t.Fatalf("create: %d %s", ctx.Response.StatusCode(), ctx.Response.Body())
	}
	game := decodeBody(t, ctx)["game"].(map[string]any)
	if game["fen"] != fen.StartingPosition || game["id"].(float64) != 1 {
		t.Fatalf("unexpected game %v", game)
	}

	ctx = do(s, gamesRequest(fasthttp.MethodGet, "/games", "alice", nil))
	list := decodeBody(t, ctx)["games"].([]any)
	if len(list) != 1 {
		t.Fatalf("expected one game, got %v", list)
	}

	ctx = do(s, gamesRequest(fasthttp.MethodGet, "/games/1", "bob", nil))
	if ctx.Response.StatusCode() != fasthttp.StatusNotFound {
		t.Fatalf("other users must not read the game, got %d", ctx.Response.StatusCode())
	}
	ctx = do(s, gamesRequest(fasthttp.MethodGet, "/games/1", "alice", nil))
	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("get: %d", ctx.Response.StatusCode())
	}
}

func TestRouting(t *testing.T) {
	s := newTestServer(t, &fakeRecognizer{}, Config{})
	if ctx := do(s, gamesRequest(fasthttp.MethodGet, "/nope", "", nil)); ctx.Response.StatusCode() != fasthttp.StatusNotFound {
		t.Fatalf("expected 404, got %d", ctx.Response.StatusCode())
	}
	if ctx := do(s, gamesRequest(fasthttp.MethodGet, "/predict", "", nil)); ctx.Response.StatusCode() != fasthttp.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", ctx.Response.StatusCode())
	}
}
