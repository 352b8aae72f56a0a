package orchestrator

import (
	"context"

	"github.com/GriffinCanCode/screenwatch/internal/events"
	"github.com/GriffinCanCode/screenwatch/internal/trace"
)

// tick runs one capture → detect → extract → match → claim → dispatch pass.
// No error escapes it: capture and extraction failures skip the tick, and
// dispatch failures are reported per event.
func (s *Scheduler) tick(ctx context.Context, sess *session) {
	ctx, span := trace.StartSpan(ctx, "tick")
	defer span.Finish(ctx)
	log := trace.Logger(ctx)

	at := s.now()
	s.status.Write(func(st *Status) {
		st.Ticks++
		st.LastTick = at
	})

	img, err := s.deps.Source.Capture(ctx, sess.cfg.Region.Rect())
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		span.SetAttr("skipped", events.ReasonCaptureFailed)
		log.Warn("capture failed", "region", sess.cfg.Region.String(), "error", err)
		s.status.Write(func(st *Status) {
			st.CaptureFailures++
			st.LastError = err.Error()
		})
		s.emit(sess, events.Event{Type: events.TickSkipped, Reason: events.ReasonCaptureFailed, Error: err.Error()})
		return
	}
	span.SetAttr("image_bytes", len(img))

	if !sess.detector.ShouldProcess(img) {
		span.SetAttr("skipped", events.ReasonUnchanged)
		s.status.Write(func(st *Status) { st.Unchanged++ })
		s.emit(sess, events.Event{Type: events.TickSkipped, Reason: events.ReasonUnchanged})
		return
	}

	text, err := s.deps.Extractor.Extract(ctx, img, sess.cfg.Language)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		span.SetAttr("skipped", events.ReasonExtractionFailed)
		log.Warn("text extraction failed", "error", err)
		s.status.Write(func(st *Status) {
			st.ExtractionFailures++
			st.LastError = err.Error()
		})
		s.emit(sess, events.Event{Type: events.TickSkipped, Reason: events.ReasonExtractionFailed, Error: err.Error()})
		return
	}
	span.SetAttr("text_len", len(text))

	// claiming inside Find lets a keyword whose first line was just taken
	// by another keyword fall through to its next line in the same pass
	for _, m := range sess.matcher.Find(text, sess.claims.TryClaim) {
		fp := m.Fingerprint.Short()
		log.Info("keyword matched", "keyword", m.Keyword, "line", m.Line, "fingerprint", fp)
		s.status.Write(func(st *Status) {
			st.Matches++
			st.Claims = sess.claims.Len()
		})
		s.emit(sess, events.Event{Type: events.MatchFound, Keyword: m.Keyword, Line: m.Line, Fingerprint: fp})

		payload := sess.cfg.Reply
		ev := events.Event{Type: events.ActionDispatched, Keyword: m.Keyword, Fingerprint: fp, Payload: payload, Outcome: events.OutcomeOK}
		if err := s.deps.Dispatcher.Dispatch(ctx, payload); err != nil {
			// the claim stands: the line must not fire twice
			log.Error("dispatch failed", "keyword", m.Keyword, "error", err)
			ev.Outcome = events.OutcomeFailed
			ev.Error = err.Error()
			s.status.Write(func(st *Status) {
				st.DispatchFailures++
				st.LastError = err.Error()
			})
		} else {
			s.status.Write(func(st *Status) { st.Dispatches++ })
		}
		s.emit(sess, ev)
	}
}
