// Package input delivers reply payloads to the foreground window by
// simulating keystrokes.
package input

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	apperrors "github.com/GriffinCanCode/screenwatch/internal/errors"
	"github.com/GriffinCanCode/screenwatch/internal/trace"
)

// Dispatcher performs the reaction for a claimed match.
type Dispatcher interface {
	Dispatch(ctx context.Context, payload string) error
}

// runner executes one external command.
type runner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// Keyboard types the payload with the platform's automation tool and
// optionally presses Enter afterwards.
type Keyboard struct {
	goos   string
	submit bool
	run    runner
}

// NewKeyboard checks that the platform tool is installed.
func NewKeyboard(submit bool) (*Keyboard, error) {
	tool := toolFor(runtime.GOOS)
	if tool == "" {
		return nil, apperrors.ConfigInvalid("keystroke simulation is not supported on " + runtime.GOOS)
	}
	if _, err := exec.LookPath(tool); err != nil {
		return nil, apperrors.ConfigInvalid(fmt.Sprintf("%s not found on PATH", tool))
	}
	return &Keyboard{goos: runtime.GOOS, submit: submit, run: execRunner}, nil
}

func (k *Keyboard) Dispatch(ctx context.Context, payload string) error {
	cmds, err := plan(k.goos, payload, k.submit)
	if err != nil {
		return apperrors.DispatchFailed(payload, err)
	}
	for _, c := range cmds {
		if err := k.run(ctx, c[0], c[1:]...); err != nil {
			return apperrors.DispatchFailed(payload, err)
		}
	}
	trace.Logger(ctx).Debug("payload typed", "payload", payload, "submit", k.submit)
	return nil
}

func toolFor(goos string) string {
	switch goos {
	case "linux", "freebsd", "openbsd", "netbsd":
		return "xdotool"
	case "darwin":
		return "osascript"
	case "windows":
		return "powershell"
	default:
		return ""
	}
}

// plan returns the command lines that type payload on goos.
func plan(goos, payload string, submit bool) ([][]string, error) {
	switch toolFor(goos) {
	case "xdotool":
		cmds := [][]string{{"xdotool", "type", "--clearmodifiers", "--", payload}}
		if submit {
			cmds = append(cmds, []string{"xdotool", "key", "--clearmodifiers", "Return"})
		}
		return cmds, nil
	case "osascript":
		script := fmt.Sprintf(`tell application "System Events" to keystroke "%s"`, appleScriptEscape(payload))
		args := []string{"osascript", "-e", script}
		if submit {
			args = append(args, "-e", `tell application "System Events" to key code 36`)
		}
		return [][]string{args}, nil
	case "powershell":
		keys := sendKeysEscape(payload)
		if submit {
			keys += "{ENTER}"
		}
		script := fmt.Sprintf(`$w = New-Object -ComObject WScript.Shell; $w.SendKeys('%s')`,
			strings.ReplaceAll(keys, "'", "''"))
		return [][]string{{"powershell", "-NoProfile", "-NonInteractive", "-Command", script}}, nil
	default:
		return nil, fmt.Errorf("unsupported platform %s", goos)
	}
}

func appleScriptEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

// sendKeysEscape brackets the characters SendKeys treats as commands.
func sendKeysEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '+', '^', '%', '~', '(', ')', '{', '}', '[', ']':
			b.WriteByte('{')
			b.WriteRune(r)
			b.WriteByte('}')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DryRun logs payloads instead of typing them.
type DryRun struct{}

func (DryRun) Dispatch(ctx context.Context, payload string) error {
	trace.Logger(ctx).Info("dry run: would type payload", "payload", payload)
	return nil
}
