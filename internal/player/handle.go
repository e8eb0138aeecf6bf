package player

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"soniccluster/internal/library"
)

// mediaHandle is the decodable resource bound to one selection: the raw
// payload staged to a temp file plus its decoded PCM. The file lives until
// release, which is idempotent; the handle is released exactly once on
// replacement, close, or teardown.
type mediaHandle struct {
	path     string
	samples  []int16
	frames   int
	released atomic.Bool
}

func (m *mediaHandle) release() {
	if m == nil || !m.released.CompareAndSwap(false, true) {
		return
	}
	os.Remove(m.path)
}

// stagePayload writes the track's payload to a temp file so FFmpeg can read
// it. The extension is a hint only; FFmpeg probes the content.
func stagePayload(tmpDir string, tr library.Track) (*mediaHandle, error) {
	ext := "mp3"
	if i := strings.IndexByte(tr.MIMEType, '/'); i >= 0 && i+1 < len(tr.MIMEType) {
		ext = tr.MIMEType[i+1:]
	}
	f, err := os.CreateTemp(tmpDir, "soniccluster-*."+ext)
	if err != nil {
		return nil, fmt.Errorf("stage payload: %w", err)
	}
	if _, err := f.Write(tr.Data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("stage payload: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return nil, fmt.Errorf("stage payload: %w", err)
	}
	return &mediaHandle{path: f.Name()}, nil
}
