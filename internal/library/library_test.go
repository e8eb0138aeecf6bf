package library

import (
	"strings"
	"testing"
)

func upload(name string, size int) Upload {
	return Upload{Name: name, MIMEType: "audio/mp3", Data: make([]byte, size)}
}

func TestAddPreservesOrderAndIDs(t *testing.T) {
	l := New(10)
	added, rejected := l.Add([]Upload{upload("a.mp3", 10), upload("b.mp3", 20), upload("c.mp3", 30)})
	if len(rejected) != 0 {
		t.Fatalf("unexpected rejections: %v", rejected)
	}
	if len(added) != 3 {
		t.Fatalf("added = %d, want 3", len(added))
	}

	seen := map[string]bool{}
	for i, tr := range added {
		if tr.ID == "" {
			t.Errorf("track %d has empty id", i)
		}
		if seen[tr.ID] {
			t.Errorf("duplicate id %s", tr.ID)
		}
		seen[tr.ID] = true
		if tr.Status != StatusIdle {
			t.Errorf("track %d status = %s, want IDLE", i, tr.Status)
		}
		if tr.ClusterID != -1 {
			t.Errorf("track %d clusterID = %d, want -1", i, tr.ClusterID)
		}
	}

	names := []string{}
	for _, tr := range l.Tracks() {
		names = append(names, tr.Name)
	}
	if got := strings.Join(names, ","); got != "a.mp3,b.mp3,c.mp3" {
		t.Errorf("order = %s, want a.mp3,b.mp3,c.mp3", got)
	}
}

func TestAddRejectsOversizeAsBatch(t *testing.T) {
	l := New(1) // 1MB limit
	added, rejected := l.Add([]Upload{
		upload("small.mp3", 100),
		upload("big.mp3", 2*1024*1024),
		upload("huge.mp3", 3*1024*1024),
	})
	if len(added) != 1 || added[0].Name != "small.mp3" {
		t.Errorf("added = %v, want only small.mp3", added)
	}
	if len(rejected) != 2 {
		t.Fatalf("rejected = %v, want 2 names", rejected)
	}
	if rejected[0] != "big.mp3" || rejected[1] != "huge.mp3" {
		t.Errorf("rejected = %v", rejected)
	}
	// Oversize files must not enter the queue at all.
	if n := len(l.Tracks()); n != 1 {
		t.Errorf("library holds %d tracks, want 1", n)
	}
}

func TestRemove(t *testing.T) {
	l := New(10)
	added, _ := l.Add([]Upload{upload("a.mp3", 10), upload("b.mp3", 10)})
	if !l.Remove(added[0].ID) {
		t.Fatal("Remove returned false for known id")
	}
	if l.Remove(added[0].ID) {
		t.Error("Remove returned true for already-removed id")
	}
	if l.Remove("no-such-id") {
		t.Error("Remove returned true for unknown id")
	}
	if n := len(l.Tracks()); n != 1 {
		t.Errorf("tracks = %d, want 1", n)
	}
}

func TestLifecycleTransitions(t *testing.T) {
	l := New(10)
	added, _ := l.Add([]Upload{upload("a.mp3", 10)})
	id := added[0].ID

	if !l.MarkAnalyzing(id) {
		t.Fatal("MarkAnalyzing failed for idle track")
	}
	if l.MarkAnalyzing(id) {
		t.Error("MarkAnalyzing succeeded twice")
	}

	f := AudioFeatures{Energy: 0.8, Valence: 0.4, Danceability: 0.6, Acousticness: 0.1, Tempo: 120, Description: "test"}
	if err := l.Complete(id, f); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	got, ok := l.Get(id)
	if !ok {
		t.Fatal("Get failed")
	}
	if got.Status != StatusCompleted {
		t.Errorf("status = %s, want COMPLETED", got.Status)
	}
	if got.Features == nil || got.Features.Energy != 0.8 {
		t.Errorf("features = %+v", got.Features)
	}
	if got.Err != "" {
		t.Errorf("completed track carries error %q", got.Err)
	}

	// COMPLETED is terminal: no further transitions.
	if err := l.Complete(id, f); err == nil {
		t.Error("Complete out of ANALYZING should fail")
	}
	if err := l.Fail(id, "boom"); err == nil {
		t.Error("Fail out of ANALYZING should fail")
	}
}

func TestFailSetsErrorNotFeatures(t *testing.T) {
	l := New(10)
	added, _ := l.Add([]Upload{upload("a.mp3", 10)})
	id := added[0].ID

	l.MarkAnalyzing(id)
	if err := l.Fail(id, "invalid file or parameters"); err != nil {
		t.Fatalf("Fail: %v", err)
	}

	got, _ := l.Get(id)
	if got.Status != StatusError {
		t.Errorf("status = %s, want ERROR", got.Status)
	}
	if got.Err != "invalid file or parameters" {
		t.Errorf("err = %q", got.Err)
	}
	if got.Features != nil {
		t.Error("errored track carries features")
	}
}

func TestPendingAndAnalyzedViews(t *testing.T) {
	l := New(10)
	added, _ := l.Add([]Upload{upload("a.mp3", 10), upload("b.mp3", 10), upload("c.mp3", 10)})

	l.MarkAnalyzing(added[0].ID)
	l.Complete(added[0].ID, AudioFeatures{Energy: 0.5})
	l.MarkAnalyzing(added[1].ID)
	l.Fail(added[1].ID, "x")

	pending := l.Pending()
	if len(pending) != 1 || pending[0].ID != added[2].ID {
		t.Errorf("pending = %v", pending)
	}

	analyzed := l.Analyzed()
	if len(analyzed) != 1 || analyzed[0].ID != added[0].ID {
		t.Errorf("analyzed = %v", analyzed)
	}
}

func TestApplyClustersClearsExcluded(t *testing.T) {
	l := New(10)
	added, _ := l.Add([]Upload{upload("a.mp3", 10), upload("b.mp3", 10)})

	l.ApplyClusters(map[string]int{added[0].ID: 2, added[1].ID: 0})
	a, _ := l.Get(added[0].ID)
	b, _ := l.Get(added[1].ID)
	if a.ClusterID != 2 || b.ClusterID != 0 {
		t.Errorf("clusterIDs = %d,%d want 2,0", a.ClusterID, b.ClusterID)
	}

	// A new run that only includes b must clear a's stale assignment.
	l.ApplyClusters(map[string]int{added[1].ID: 1})
	a, _ = l.Get(added[0].ID)
	b, _ = l.Get(added[1].ID)
	if a.ClusterID != -1 {
		t.Errorf("excluded track keeps stale clusterID %d", a.ClusterID)
	}
	if b.ClusterID != 1 {
		t.Errorf("b clusterID = %d, want 1", b.ClusterID)
	}
}

func TestFeatureVector(t *testing.T) {
	f := AudioFeatures{Energy: 0.1, Valence: 0.2, Danceability: 0.3, Acousticness: 0.4, Tempo: 180}
	v := f.Vector()
	want := [4]float64{0.1, 0.2, 0.3, 0.4}
	if v != want {
		t.Errorf("Vector() = %v, want %v (tempo must not leak in)", v, want)
	}
}
