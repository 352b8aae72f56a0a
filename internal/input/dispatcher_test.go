package input

import (
	"context"
	"errors"
	"strings"
	"testing"

	apperrors "github.com/GriffinCanCode/screenwatch/internal/errors"
)

type recorder struct {
	calls [][]string
	err   error
}

func (r *recorder) run(_ context.Context, name string, args ...string) error {
	r.calls = append(r.calls, append([]string{name}, args...))
	return r.err
}

func TestPlanLinux(t *testing.T) {
	cmds, err := plan("linux", "2", true)
	if err != nil {
		t.Fatal(err)
	}
	if len(cmds) != 2 {
		t.Fatalf("got %d commands, want 2", len(cmds))
	}
	if got := strings.Join(cmds[0], " "); got != "xdotool type --clearmodifiers -- 2" {
		t.Errorf("type command = %q", got)
	}
	if cmds[1][len(cmds[1])-1] != "Return" {
		t.Errorf("submit command = %v", cmds[1])
	}

	cmds, _ = plan("linux", "-x", false)
	if len(cmds) != 1 || cmds[0][len(cmds[0])-1] != "-x" {
		t.Errorf("dash payload must follow --, got %v", cmds)
	}
}

func TestPlanDarwinEscapes(t *testing.T) {
	cmds, err := plan("darwin", `say "hi" \o/`, true)
	if err != nil {
		t.Fatal(err)
	}
	args := cmds[0]
	if args[0] != "osascript" || len(args) != 5 {
		t.Fatalf("args = %v", args)
	}
	if !strings.Contains(args[2], `keystroke "say \"hi\" \\o/"`) {
		t.Errorf("script = %s", args[2])
	}
	if !strings.Contains(args[4], "key code 36") {
		t.Errorf("submit script = %s", args[4])
	}
}

func TestPlanWindowsEscapes(t *testing.T) {
	cmds, err := plan("windows", "1+1 it's {ok}", true)
	if err != nil {
		t.Fatal(err)
	}
	script := cmds[0][len(cmds[0])-1]
	if !strings.Contains(script, "SendKeys('1{+}1 it''s {{}ok{}}{ENTER}')") {
		t.Errorf("script = %s", script)
	}
}

func TestPlanUnsupported(t *testing.T) {
	if _, err := plan("plan9", "2", true); err == nil {
		t.Error("expected error for unsupported platform")
	}
}

func TestKeyboardDispatch(t *testing.T) {
	rec := &recorder{}
	k := &Keyboard{goos: "linux", submit: true, run: rec.run}

	if err := k.Dispatch(context.Background(), "2"); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(rec.calls) != 2 {
		t.Errorf("calls = %v", rec.calls)
	}
}

func TestKeyboardDispatchFailure(t *testing.T) {
	rec := &recorder{err: errors.New("cannot open display")}
	k := &Keyboard{goos: "linux", submit: true, run: rec.run}

	err := k.Dispatch(context.Background(), "2")
	if !apperrors.IsCode(err, apperrors.CodeDispatchFailed) {
		t.Fatalf("expected DISPATCH_FAILED, got %v", err)
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Metadata["payload"] != "2" {
		t.Errorf("payload metadata = %q", appErr.Metadata["payload"])
	}
	if len(rec.calls) != 1 {
		t.Errorf("should stop after the first failed command, calls = %v", rec.calls)
	}
}

func TestDryRun(t *testing.T) {
	if err := (DryRun{}).Dispatch(context.Background(), "2"); err != nil {
		t.Errorf("DryRun.Dispatch = %v", err)
	}
}
