package events

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestFanoutDeliversInOrder(t *testing.T) {
	var got []string
	a := SinkFunc(func(e Event) { got = append(got, "a:"+string(e.Type)) })
	b := SinkFunc(func(e Event) { got = append(got, "b:"+string(e.Type)) })

	Fanout{a, nil, b}.Emit(Event{Type: MatchFound})

	if strings.Join(got, ",") != "a:match-found,b:match-found" {
		t.Errorf("got %v", got)
	}
}

func TestEventJSONOmitsUnsetFields(t *testing.T) {
	e := Event{Type: TickSkipped, Time: time.Unix(0, 0).UTC(), Session: "s1", Reason: ReasonUnchanged}
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	if !strings.Contains(s, `"type":"tick-skipped"`) || !strings.Contains(s, `"reason":"unchanged"`) {
		t.Errorf("json = %s", s)
	}
	if strings.Contains(s, "keyword") || strings.Contains(s, "payload") {
		t.Errorf("unset fields leaked: %s", s)
	}
}

func TestLogSinkLevels(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))
	defer slog.SetDefault(prev)

	sink := NewLogSink(context.Background())
	sink.Emit(Event{Type: TickSkipped, Session: "s1", Reason: ReasonUnchanged})
	if buf.Len() != 0 {
		t.Errorf("unchanged skips should log at debug, got %q", buf.String())
	}

	sink.Emit(Event{Type: TickSkipped, Session: "s1", Reason: ReasonCaptureFailed, Error: "off-screen"})
	sink.Emit(Event{Type: ActionDispatched, Session: "s1", Payload: "2", Outcome: OutcomeFailed, Error: "no display"})
	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "reason=capture-failed") {
		t.Errorf("missing capture warning: %s", out)
	}
	if !strings.Contains(out, "level=ERROR") || !strings.Contains(out, "session=s1") {
		t.Errorf("missing dispatch error: %s", out)
	}
}
