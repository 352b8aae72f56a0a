// Package audio plays an audible alert when a keyword is matched.
package audio

import (
	"context"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"

	"github.com/GriffinCanCode/screenwatch/internal/events"
	"github.com/GriffinCanCode/screenwatch/internal/trace"
)

// Alert tone parameters
const (
	SampleRate      = 44100
	FramesPerBuffer = 1024
	ToneFrequency   = 880 // Hz
	ToneDurationMs  = 180
	ToneVolume      = 0.3
)

// player writes mono float32 samples to an output device.
type player interface {
	play(samples []float32) error
	close() error
}

// Alerter beeps on every match. A beep requested while one is still
// playing is dropped.
type Alerter struct {
	player  player
	tone    []float32
	playing atomic.Bool
	wg      sync.WaitGroup
}

// NewAlerter initializes PortAudio and prepares the tone.
func NewAlerter() (*Alerter, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	return newAlerter(&portaudioPlayer{}), nil
}

func newAlerter(p player) *Alerter {
	return &Alerter{
		player: p,
		tone:   Tone(SampleRate, ToneFrequency, ToneDurationMs, ToneVolume),
	}
}

// Emit implements events.Sink.
func (a *Alerter) Emit(e events.Event) {
	if e.Type != events.MatchFound {
		return
	}
	if !a.playing.CompareAndSwap(false, true) {
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.playing.Store(false)
		if err := a.player.play(a.tone); err != nil {
			trace.Logger(context.Background()).Warn("alert playback failed", "error", err)
		}
	}()
}

// Close waits for a playing tone and releases the device.
func (a *Alerter) Close() error {
	a.wg.Wait()
	return a.player.close()
}

// Tone renders a sine burst with short linear fades to avoid clicks.
func Tone(sampleRate, freq, durationMs int, volume float64) []float32 {
	n := sampleRate * durationMs / 1000
	fade := n / 10
	out := make([]float32, n)
	for i := range out {
		amp := volume
		switch {
		case i < fade:
			amp *= float64(i) / float64(fade)
		case i >= n-fade:
			amp *= float64(n-1-i) / float64(fade)
		}
		out[i] = float32(amp * math.Sin(2*math.Pi*float64(freq)*float64(i)/float64(sampleRate)))
	}
	return out
}

type portaudioPlayer struct{}

func (portaudioPlayer) play(samples []float32) error {
	buf := make([]float32, FramesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(0, 1, SampleRate, len(buf), &buf)
	if err != nil {
		return err
	}
	defer stream.Close()
	if err := stream.Start(); err != nil {
		return err
	}
	defer stream.Stop()

	for off := 0; off < len(samples); off += len(buf) {
		n := copy(buf, samples[off:])
		clear(buf[n:])
		if err := stream.Write(); err != nil {
			return err
		}
	}
	return nil
}

func (portaudioPlayer) close() error {
	return portaudio.Terminate()
}
