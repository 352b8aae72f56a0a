package grpcclient

import "time"

// Client configuration defaults
const (
	// ExtractTextMethod is the full gRPC method name of the remote OCR call.
	// Requests and responses are google.protobuf.Struct messages.
	ExtractTextMethod = "/screenwatch.v1.OCRService/ExtractText"

	// Keepalive configuration
	DefaultKeepaliveTime    = 10 * time.Second
	DefaultKeepaliveTimeout = 3 * time.Second

	// Per-attempt deadline for one ExtractText call
	DefaultCallTimeout = 5 * time.Second

	HealthCheckTimeout = 2 * time.Second
)
