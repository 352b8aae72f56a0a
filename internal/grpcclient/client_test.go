package grpcclient

import (
	"context"
	"encoding/base64"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	apperrors "github.com/GriffinCanCode/screenwatch/internal/errors"
	"github.com/GriffinCanCode/screenwatch/internal/resilience"
	"github.com/GriffinCanCode/screenwatch/internal/trace"
)

// ocrHandler answers ExtractText through the unknown-service hook so the
// test needs no generated stubs.
type ocrHandler struct {
	calls   atomic.Int32
	respond func(req *structpb.Struct, md metadata.MD) (*structpb.Struct, error)
}

func (h *ocrHandler) handle(_ any, stream grpc.ServerStream) error {
	method, _ := grpc.MethodFromServerStream(stream)
	if method != ExtractTextMethod {
		return status.Errorf(codes.Unimplemented, "unknown method %s", method)
	}
	h.calls.Add(1)
	req := &structpb.Struct{}
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	md, _ := metadata.FromIncomingContext(stream.Context())
	resp, err := h.respond(req, md)
	if err != nil {
		return err
	}
	return stream.SendMsg(resp)
}

func startServer(t *testing.T, h *ocrHandler) *Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnknownServiceHandler(h.handle))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	c, err := New("passthrough:///bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.retry = resilience.RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
	t.Cleanup(func() { c.Close() })
	return c
}

func textResponse(s string) *structpb.Struct {
	resp, _ := structpb.NewStruct(map[string]any{"text": s})
	return resp
}

func TestExtractText(t *testing.T) {
	var gotLang, gotFormat, gotSession string
	var gotImage []byte
	h := &ocrHandler{respond: func(req *structpb.Struct, md metadata.MD) (*structpb.Struct, error) {
		f := req.GetFields()
		gotLang = f["language"].GetStringValue()
		gotFormat = f["format"].GetStringValue()
		gotImage, _ = base64.StdEncoding.DecodeString(f["image_data"].GetStringValue())
		if v := md.Get(trace.SessionKey); len(v) > 0 {
			gotSession = v[0]
		}
		return textResponse("北京欢迎你\n上海"), nil
	}}
	c := startServer(t, h)

	ctx := trace.WithSession(context.Background(), "s-1")
	text, err := c.ExtractText(ctx, []byte{0x89, 'P', 'N', 'G'}, "png", "chi_sim")
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if text != "北京欢迎你\n上海" {
		t.Errorf("text = %q", text)
	}
	if gotLang != "chi_sim" || gotFormat != "png" {
		t.Errorf("request fields: lang=%q format=%q", gotLang, gotFormat)
	}
	if string(gotImage) != "\x89PNG" {
		t.Errorf("image bytes = %q", gotImage)
	}
	if gotSession != "s-1" {
		t.Errorf("session metadata = %q, want s-1", gotSession)
	}
}

func TestExtractTextRetriesUnavailable(t *testing.T) {
	h := &ocrHandler{}
	h.respond = func(*structpb.Struct, metadata.MD) (*structpb.Struct, error) {
		if h.calls.Load() < 3 {
			return nil, status.Error(codes.Unavailable, "warming up")
		}
		return textResponse("ok"), nil
	}
	c := startServer(t, h)

	text, err := c.ExtractText(context.Background(), []byte("img"), "png", "eng")
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if text != "ok" || h.calls.Load() != 3 {
		t.Errorf("text=%q calls=%d, want ok after 3 calls", text, h.calls.Load())
	}
}

func TestExtractTextPropagatesAppError(t *testing.T) {
	h := &ocrHandler{respond: func(*structpb.Struct, metadata.MD) (*structpb.Struct, error) {
		return nil, apperrors.ExtractionFailed(nil).WithMetadata("reason", "undecodable").GRPCStatus().Err()
	}}
	c := startServer(t, h)

	_, err := c.ExtractText(context.Background(), []byte("img"), "png", "eng")
	if !apperrors.IsCode(err, apperrors.CodeExtractionFailed) {
		t.Fatalf("expected EXTRACTION_FAILED, got %v", err)
	}
	if h.calls.Load() != 1 {
		t.Errorf("calls = %d, non-retryable errors must not be retried", h.calls.Load())
	}
}

func TestExtractTextMissingField(t *testing.T) {
	h := &ocrHandler{respond: func(*structpb.Struct, metadata.MD) (*structpb.Struct, error) {
		return &structpb.Struct{}, nil
	}}
	c := startServer(t, h)

	_, err := c.ExtractText(context.Background(), []byte("img"), "png", "eng")
	if !apperrors.IsCode(err, apperrors.CodeExtractionFailed) {
		t.Fatalf("expected EXTRACTION_FAILED, got %v", err)
	}
}

func TestExtractTextBreakerOpens(t *testing.T) {
	h := &ocrHandler{respond: func(*structpb.Struct, metadata.MD) (*structpb.Struct, error) {
		return nil, status.Error(codes.Unavailable, "down")
	}}
	c := startServer(t, h)

	for i := 0; i < resilience.OCRThreshold; i++ {
		_, _ = c.ExtractText(context.Background(), []byte("img"), "png", "eng")
	}
	if c.BreakerState() != resilience.Open {
		t.Fatalf("breaker = %v, want open", c.BreakerState())
	}

	before := h.calls.Load()
	_, err := c.ExtractText(context.Background(), []byte("img"), "png", "eng")
	if !apperrors.IsCode(err, apperrors.CodeUnavailable) {
		t.Errorf("expected UNAVAILABLE while open, got %v", err)
	}
	if h.calls.Load() != before {
		t.Error("open breaker should not reach the server")
	}
}

func TestExtractTextCancelled(t *testing.T) {
	block := make(chan struct{})
	h := &ocrHandler{respond: func(*structpb.Struct, metadata.MD) (*structpb.Struct, error) {
		<-block
		return textResponse("late"), nil
	}}
	c := startServer(t, h)
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.ExtractText(ctx, []byte("img"), "png", "eng")
	if err == nil {
		t.Fatal("expected error after deadline")
	}
	if c.BreakerState() != resilience.Closed {
		t.Errorf("caller timeout should not trip the breaker past threshold, state=%v", c.BreakerState())
	}
}

func TestHealthy(t *testing.T) {
	c := startServer(t, &ocrHandler{})
	if !c.Healthy(context.Background()) {
		t.Error("Healthy() = false, want true")
	}
}
