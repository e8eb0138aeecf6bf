// Package library holds the in-memory track queue: uploaded audio files,
// their analysis lifecycle, and their current cluster assignments.
package library

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Upload is one candidate file handed over by the upload surface.
type Upload struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Library is the track queue. Tracks are appended in arrival order and only
// ever removed explicitly; all other mutation is status transitions.
type Library struct {
	mu       sync.RWMutex
	maxBytes int64
	tracks   []*Track
}

// New creates an empty library that rejects uploads larger than maxFileMB.
func New(maxFileMB int) *Library {
	return &Library{maxBytes: int64(maxFileMB) * 1024 * 1024}
}

// MaxBytes returns the per-file upload size limit.
func (l *Library) MaxBytes() int64 {
	return l.maxBytes
}

// Add enqueues the given files. Files over the size limit are skipped and
// returned by name as a single batch of rejections; accepted tracks keep
// arrival order and start in StatusIdle.
func (l *Library) Add(uploads []Upload) (added []Track, rejected []string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, u := range uploads {
		if int64(len(u.Data)) > l.maxBytes {
			rejected = append(rejected, u.Name)
			continue
		}
		mime := u.MIMEType
		if mime == "" {
			mime = "audio/mp3"
		}
		t := &Track{
			ID:        uuid.NewString(),
			Name:      u.Name,
			Size:      int64(len(u.Data)),
			MIMEType:  mime,
			Data:      u.Data,
			Status:    StatusIdle,
			ClusterID: -1,
		}
		l.tracks = append(l.tracks, t)
		added = append(added, *t)
	}
	return added, rejected
}

// Remove deletes a track. Returns false if the id is unknown. If the track is
// currently playing the caller must stop the player first; removal itself
// never touches playback.
func (l *Library) Remove(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, t := range l.tracks {
		if t.ID == id {
			l.tracks = append(l.tracks[:i], l.tracks[i+1:]...)
			return true
		}
	}
	return false
}

// Get returns a copy of the track with the given id.
func (l *Library) Get(id string) (Track, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, t := range l.tracks {
		if t.ID == id {
			return *t, true
		}
	}
	return Track{}, false
}

// Tracks returns a snapshot of all tracks in arrival order.
func (l *Library) Tracks() []Track {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Track, len(l.tracks))
	for i, t := range l.tracks {
		out[i] = *t
	}
	return out
}

// Pending returns a snapshot of tracks still waiting for analysis, FIFO.
func (l *Library) Pending() []Track {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Track
	for _, t := range l.tracks {
		if t.Status == StatusIdle {
			out = append(out, *t)
		}
	}
	return out
}

// Analyzed returns a snapshot of tracks eligible for clustering.
func (l *Library) Analyzed() []Track {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Track
	for _, t := range l.tracks {
		if t.Status == StatusCompleted && t.Features != nil {
			out = append(out, *t)
		}
	}
	return out
}

// MarkAnalyzing transitions a track from idle to analyzing. Returns false if
// the track is gone or no longer idle (e.g. removed mid-run).
func (l *Library) MarkAnalyzing(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	t := l.find(id)
	if t == nil || t.Status != StatusIdle {
		return false
	}
	t.Status = StatusAnalyzing
	return true
}

// Complete records extracted features and finishes the track's analysis.
func (l *Library) Complete(id string, f AudioFeatures) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	t := l.find(id)
	if t == nil {
		return fmt.Errorf("complete: unknown track %s", id)
	}
	if t.Status != StatusAnalyzing {
		return fmt.Errorf("complete: track %s is %s, not analyzing", id, t.Status)
	}
	t.Status = StatusCompleted
	t.Features = &f
	t.Err = ""
	return nil
}

// Fail records an analysis error on the track.
func (l *Library) Fail(id string, msg string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	t := l.find(id)
	if t == nil {
		return fmt.Errorf("fail: unknown track %s", id)
	}
	if t.Status != StatusAnalyzing {
		return fmt.Errorf("fail: track %s is %s, not analyzing", id, t.Status)
	}
	t.Status = StatusError
	t.Err = msg
	t.Features = nil
	return nil
}

// ApplyClusters replaces every cluster assignment with the result of a
// clustering run: tracks in the map get their new id, all others are cleared.
// Stale assignments never survive a run that excluded the track.
func (l *Library) ApplyClusters(assignments map[string]int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, t := range l.tracks {
		if id, ok := assignments[t.ID]; ok {
			t.ClusterID = id
		} else {
			t.ClusterID = -1
		}
	}
}

// find returns the tracked pointer for id. Caller must hold mu.
func (l *Library) find(id string) *Track {
	for _, t := range l.tracks {
		if t.ID == id {
			return t
		}
	}
	return nil
}
