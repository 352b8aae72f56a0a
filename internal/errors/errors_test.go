package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestAppErrorMessage(t *testing.T) {
	err := ConfigInvalid("keyword set is empty")
	if !strings.Contains(err.Error(), "[CONFIG_INVALID]") {
		t.Errorf("Error() = %q, want code prefix", err.Error())
	}
	if !strings.Contains(err.Error(), "keyword set is empty") {
		t.Errorf("Error() = %q, want reason", err.Error())
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := stderrors.New("display not found")
	err := CaptureUnavailable(cause)

	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
	if err.Code != CodeCaptureUnavailable {
		t.Errorf("Code = %v, want %v", err.Code, CodeCaptureUnavailable)
	}
}

func TestIsCodeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("tick: %w", ExtractionFailed(stderrors.New("bad png")))

	if !IsCode(err, CodeExtractionFailed) {
		t.Error("IsCode should see through fmt.Errorf wrapping")
	}
	if IsCode(err, CodeDispatchFailed) {
		t.Error("IsCode matched the wrong code")
	}
	if IsCode(stderrors.New("plain"), CodeUnknown) {
		t.Error("plain errors carry no code")
	}
}

func TestDispatchFailedMetadata(t *testing.T) {
	err := DispatchFailed("2", stderrors.New("xdotool missing"))
	if err.Metadata["payload"] != "2" {
		t.Errorf("payload metadata = %q, want %q", err.Metadata["payload"], "2")
	}
}

func TestGRPCRoundTrip(t *testing.T) {
	orig := New(CodeExtractionFailed, "tesseract crashed").WithMetadata("lang", "chi_sim")

	got := FromGRPCError(orig.GRPCStatus().Err())
	if got.Code != CodeExtractionFailed {
		t.Errorf("Code = %v, want %v", got.Code, CodeExtractionFailed)
	}
	if got.Message != "tesseract crashed" {
		t.Errorf("Message = %q, want %q", got.Message, "tesseract crashed")
	}
	if got.Metadata["lang"] != "chi_sim" {
		t.Errorf("Metadata[lang] = %q, want %q", got.Metadata["lang"], "chi_sim")
	}
}

func TestFromGRPCErrorFallback(t *testing.T) {
	tests := []struct {
		code codes.Code
		want Code
	}{
		{codes.Unavailable, CodeUnavailable},
		{codes.DeadlineExceeded, CodeTimeout},
		{codes.InvalidArgument, CodeConfigInvalid},
		{codes.Internal, CodeInternal},
		{codes.PermissionDenied, CodeUnknown},
	}
	for _, tt := range tests {
		got := FromGRPCError(status.Error(tt.code, "x"))
		if got.Code != tt.want {
			t.Errorf("FromGRPCError(%v).Code = %v, want %v", tt.code, got.Code, tt.want)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(New(CodeUnavailable, "down")) {
		t.Error("UNAVAILABLE should be retryable")
	}
	if IsRetryable(ConfigInvalid("bad")) {
		t.Error("CONFIG_INVALID should not be retryable")
	}
	if IsRetryable(stderrors.New("plain")) {
		t.Error("plain errors are not retryable")
	}
}

func TestCodeString(t *testing.T) {
	if CodeDispatchFailed.String() != "DISPATCH_FAILED" {
		t.Errorf("String() = %q", CodeDispatchFailed.String())
	}
	if ParseCode("DISPATCH_FAILED") != CodeDispatchFailed {
		t.Error("ParseCode should invert String")
	}
	if ParseCode("nope") != CodeUnknown {
		t.Error("unknown names map to CodeUnknown")
	}
}
