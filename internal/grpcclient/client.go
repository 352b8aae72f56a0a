// Package grpcclient provides a client for a remote OCR gRPC service
package grpcclient

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/structpb"

	apperrors "github.com/GriffinCanCode/screenwatch/internal/errors"
	"github.com/GriffinCanCode/screenwatch/internal/resilience"
	"github.com/GriffinCanCode/screenwatch/internal/trace"
)

// Client wraps the connection to the OCR service
type Client struct {
	conn        *grpc.ClientConn
	health      healthpb.HealthClient
	breaker     *resilience.Breaker
	retry       resilience.RetryConfig
	callTimeout time.Duration
}

// New creates a client for addr. Extra options are appended to the defaults.
func New(addr string, opts ...grpc.DialOption) (*Client, error) {
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithChainUnaryInterceptor(trace.UnaryClientInterceptor()),
		grpc.WithChainStreamInterceptor(trace.StreamClientInterceptor()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                DefaultKeepaliveTime,
			Timeout:             DefaultKeepaliveTimeout,
			PermitWithoutStream: true,
		}),
	}, opts...)

	conn, err := grpc.NewClient(addr, dialOpts...)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnavailable, "dial ocr service").WithMetadata("addr", addr)
	}

	return &Client{
		conn:        conn,
		health:      healthpb.NewHealthClient(conn),
		breaker:     resilience.New(resilience.OCRConfig()),
		retry:       resilience.OCRRetryConfig(),
		callTimeout: DefaultCallTimeout,
	}, nil
}

// Close closes the gRPC connection
func (c *Client) Close() error {
	return c.conn.Close()
}

// BreakerState reports the circuit guarding ExtractText.
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}

// ExtractText sends an encoded image to the service and returns the
// recognized text. Calls are retried on transient failures and fail fast
// while the service is known to be down.
func (c *Client) ExtractText(ctx context.Context, imageData []byte, format, language string) (string, error) {
	req, err := structpb.NewStruct(map[string]any{
		"image_data": base64.StdEncoding.EncodeToString(imageData),
		"format":     format,
		"language":   language,
	})
	if err != nil {
		return "", apperrors.ExtractionFailed(err)
	}

	text, err := resilience.ExecuteWithResult(c.breaker, func() (string, error) {
		var text string
		err := resilience.Retry(ctx, c.retry, func() error {
			var err error
			text, err = c.invoke(ctx, req)
			return err
		})
		return text, err
	})
	if err == resilience.ErrOpen {
		return "", apperrors.Wrap(err, apperrors.CodeUnavailable, "ocr service unavailable")
	}
	return text, err
}

func (c *Client) invoke(ctx context.Context, req *structpb.Struct) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	resp := &structpb.Struct{}
	if err := c.conn.Invoke(callCtx, ExtractTextMethod, req, resp); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", apperrors.FromGRPCError(err)
	}

	field, ok := resp.GetFields()["text"]
	if !ok {
		return "", apperrors.ExtractionFailed(fmt.Errorf("response has no text field"))
	}
	return field.GetStringValue(), nil
}

// Healthy reports whether the service answers the standard health check.
func (c *Client) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, HealthCheckTimeout)
	defer cancel()
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		trace.Logger(ctx).Debug("ocr health check failed", "error", err)
		return false
	}
	return resp.GetStatus() == healthpb.HealthCheckResponse_SERVING
}
