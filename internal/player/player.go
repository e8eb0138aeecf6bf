// Package player sequences playback for the selected track: a synthesized
// spoken introduction first, then the track itself, emitted as real-time PCM
// frames. Selections supersede each other; stale asynchronous work is
// discarded before it can produce an audible effect.
package player

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"soniccluster/internal/audio"
	"soniccluster/internal/library"
)

// VoiceOracle is the external voice-synthesis service. The returned clip is
// raw 24kHz mono PCM (audio.VoiceSampleRate).
type VoiceOracle interface {
	Synthesize(ctx context.Context, text string) ([]int16, error)
}

// DecodeFunc decodes a staged payload file into 48kHz interleaved stereo
// samples. Defaults to audio.DecodeFile.
type DecodeFunc func(path string) ([]int16, error)

type stage int

const (
	stageIdle stage = iota
	stagePreparing
	stageVoice
	stageMedia
)

func (s stage) String() string {
	switch s {
	case stagePreparing:
		return "preparing"
	case stageVoice:
		return "voice"
	case stageMedia:
		return "media"
	default:
		return "idle"
	}
}

// Status is the observable playback state, read-only for the presentation
// surface.
type Status struct {
	TrackID      string  `json:"track_id"`
	Stage        string  `json:"stage"`
	Playing      bool    `json:"playing"`
	Paused       bool    `json:"paused"`
	LoadingVoice bool    `json:"loading_voice"`
	Position     float64 `json:"position"` // seconds into the media
	Duration     float64 `json:"duration"` // seconds
	Err          string  `json:"error,omitempty"`
}

// Player is the per-selection playback state machine. All state is guarded by
// one mutex; every asynchronous continuation captures the generation counter
// it was started under and re-validates it before touching state, which is
// the sole cancellation mechanism.
type Player struct {
	voice   VoiceOracle
	decode  DecodeFunc
	tmpDir  string
	frameCh chan []int16
	tick    time.Duration

	mu  sync.Mutex
	ctx context.Context // set by Run; used by asynchronous preparation

	gen      uint64 // current playback intent; bumped on every new selection and on close
	trackID  string
	loading  bool
	lastErr  string
	st       stage
	paused   bool
	voiceBuf []int16 // padded to whole frames
	voicePos int     // frame index
	media    *mediaHandle
	mediaPos int // frame index
}

// New creates a player. decode may be nil to use the FFmpeg decoder.
func New(voice VoiceOracle, decode DecodeFunc, tmpDir string) *Player {
	if decode == nil {
		decode = audio.DecodeFile
	}
	return &Player{
		voice:   voice,
		decode:  decode,
		tmpDir:  tmpDir,
		frameCh: make(chan []int16, 100),
		tick:    audio.FrameDuration,
	}
}

// Frames returns the channel of outgoing PCM frames (20ms each). Nothing is
// emitted while idle or paused.
func (p *Player) Frames() <-chan []int16 {
	return p.frameCh
}

// Run pumps frames at real-time rate. Blocks until ctx is cancelled, then
// releases every outstanding resource unconditionally.
func (p *Player) Run(ctx context.Context) {
	p.mu.Lock()
	p.ctx = ctx
	tick := p.tick
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.gen++
		p.resetLocked()
		p.mu.Unlock()
	}()

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frame, ok := p.nextFrame()
		if !ok {
			continue
		}
		select {
		case p.frameCh <- frame:
		case <-ctx.Done():
			return
		}
	}
}

// Select starts the two-stage playback sequence for the track, superseding
// whatever was playing. Selecting the already-active track only toggles
// play/pause on the media; the voice is never re-synthesized.
func (p *Player) Select(tr library.Track) {
	p.mu.Lock()

	if p.trackID == tr.ID && p.st != stageIdle {
		if p.st == stageMedia {
			p.paused = !p.paused
			if !p.paused && p.mediaPos >= p.media.frames {
				p.mediaPos = 0 // resume after natural end restarts
			}
		}
		p.mu.Unlock()
		return
	}

	// Supersede: everything below this generation bump is dead weight.
	p.gen++
	gen := p.gen
	p.resetLocked()
	p.trackID = tr.ID
	p.st = stagePreparing
	p.paused = true
	ctx := p.ctx
	p.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}
	go p.prepare(ctx, gen, tr)
}

// Seek moves the media position. Out-of-range values are clamped, never an
// error.
func (p *Player) Seek(seconds float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.media == nil {
		return
	}
	frame := int(seconds / audio.FrameDuration.Seconds())
	if frame < 0 {
		frame = 0
	}
	if frame > p.media.frames {
		frame = p.media.frames
	}
	p.mediaPos = frame
}

// Close invalidates the current intent, stops voice and media, releases the
// staged payload and clears all transient playback state. Safe to call any
// number of times.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen++
	p.resetLocked()
}

// Status returns a snapshot of the observable playback state.
func (p *Player) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := Status{
		TrackID:      p.trackID,
		Stage:        p.st.String(),
		Playing:      p.st == stageVoice || (p.st == stageMedia && !p.paused),
		Paused:       p.st == stageMedia && p.paused,
		LoadingVoice: p.loading,
		Position:     frameSeconds(p.mediaPos),
		Err:          p.lastErr,
	}
	if p.media != nil {
		s.Duration = frameSeconds(p.media.frames)
	}
	return s
}

// prepare runs the asynchronous half of a selection: stage and decode the
// payload, request the voice clip, then hand the sequence to the pump. Every
// step re-checks that gen is still the current intent before having any
// observable effect.
func (p *Player) prepare(ctx context.Context, gen uint64, tr library.Track) {
	handle, err := stagePayload(p.tmpDir, tr)
	if err == nil {
		var samples []int16
		samples, err = p.decode(handle.path)
		if err == nil {
			handle.samples = samples
			handle.frames = len(samples) / audio.FrameSamples
		}
	}

	p.mu.Lock()
	if p.gen != gen {
		p.mu.Unlock()
		handle.release()
		return
	}
	if err != nil {
		// Media failure is the one error class surfaced to the user.
		log.Printf("Media prepare failed for %s: %v", tr.Name, err)
		p.resetLocked()
		p.lastErr = "Error playing audio file."
		p.mu.Unlock()
		handle.release()
		return
	}
	p.media = handle
	p.loading = true
	p.mu.Unlock()

	clip, synthErr := p.voice.Synthesize(ctx, caption(tr))

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gen != gen {
		// Superseded while synthesizing: discard silently. The loading
		// flag now belongs to the newer intent, so leave it alone.
		return
	}
	p.loading = false
	if synthErr != nil {
		// Voice is best-effort; skip straight to the music.
		log.Printf("Voice synthesis failed, playing media directly: %v", synthErr)
		p.startMediaLocked()
		return
	}
	voiceStream := audio.VoiceToStream(clip)
	if len(voiceStream) == 0 {
		p.startMediaLocked()
		return
	}
	p.voiceBuf = padToFrames(voiceStream)
	p.voicePos = 0
	p.st = stageVoice
	log.Printf("Introducing: %s (voice %d frames, media %d frames)",
		tr.Name, len(p.voiceBuf)/audio.FrameSamples, p.media.frames)
}

// nextFrame advances the state machine by one tick and returns the frame to
// emit, if any.
func (p *Player) nextFrame() ([]int16, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.st {
	case stageVoice:
		start := p.voicePos * audio.FrameSamples
		frame := p.voiceBuf[start : start+audio.FrameSamples]
		p.voicePos++
		if p.voicePos >= len(p.voiceBuf)/audio.FrameSamples {
			// Voice finished. Selection changes clear voice state under
			// mu before bumping the generation, so reaching the end of
			// the clip means this intent is still current.
			p.startMediaLocked()
		}
		return frame, true

	case stageMedia:
		if p.paused || p.mediaPos >= p.media.frames {
			return nil, false
		}
		start := p.mediaPos * audio.FrameSamples
		frame := p.media.samples[start : start+audio.FrameSamples]
		p.mediaPos++
		if p.mediaPos >= p.media.frames {
			p.paused = true // natural end: stop emitting, keep selection
		}
		return frame, true

	default:
		return nil, false
	}
}

// startMediaLocked begins media playback from the current position. Caller
// must hold mu.
func (p *Player) startMediaLocked() {
	p.voiceBuf = nil
	p.voicePos = 0
	p.st = stageMedia
	p.paused = false
}

// resetLocked stops everything and clears all transient playback state.
// Caller must hold mu. Releasing the handle is idempotent, so superseded
// continuations racing with this are harmless.
func (p *Player) resetLocked() {
	p.st = stageIdle
	p.trackID = ""
	p.loading = false
	p.lastErr = ""
	p.voiceBuf = nil
	p.voicePos = 0
	p.media.release()
	p.media = nil
	p.mediaPos = 0
	p.paused = false
}

// caption builds the spoken introduction text.
func caption(tr library.Track) string {
	desc := "analyzed track"
	if tr.Features != nil && tr.Features.Description != "" {
		desc = tr.Features.Description
	}
	return fmt.Sprintf("Playing %s. %s", tr.Name, desc)
}

// padToFrames zero-pads samples up to a whole number of frames so the last
// bit of the clip is not dropped.
func padToFrames(samples []int16) []int16 {
	if rem := len(samples) % audio.FrameSamples; rem != 0 {
		samples = append(samples, make([]int16, audio.FrameSamples-rem)...)
	}
	return samples
}

func frameSeconds(frames int) float64 {
	return float64(frames) * audio.FrameDuration.Seconds()
}
