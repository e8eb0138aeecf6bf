package cluster

import (
	"math"
	"math/rand/v2"
	"testing"

	"soniccluster/internal/library"
)

func analyzedTrack(id string, energy, valence, dance, acoustic float64) library.Track {
	return library.Track{
		ID:     id,
		Status: library.StatusCompleted,
		Features: &library.AudioFeatures{
			Energy:       energy,
			Valence:      valence,
			Danceability: dance,
			Acousticness: acoustic,
			Tempo:        120,
		},
	}
}

func testRng(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b9))
}

func TestAtMostKClustersValidAssignments(t *testing.T) {
	rng := testRng(1)
	var tracks []library.Track
	for i := 0; i < 12; i++ {
		tracks = append(tracks, analyzedTrack(
			string(rune('a'+i)),
			rng.Float64(), rng.Float64(), rng.Float64(), rng.Float64(),
		))
	}

	for k := 2; k <= 8; k++ {
		assigned, clusters := Partition(tracks, k, testRng(uint64(k)))
		if len(clusters) > k {
			t.Errorf("k=%d: got %d clusters", k, len(clusters))
		}
		if len(assigned) != len(tracks) {
			t.Errorf("k=%d: %d assignments, want %d", k, len(assigned), len(tracks))
		}
		for id, c := range assigned {
			if c < 0 || c >= len(clusters) {
				t.Errorf("k=%d: track %s assigned to nonexistent cluster %d", k, id, c)
			}
		}
	}
}

func TestEffectiveKAndNoEmptyClusters(t *testing.T) {
	tracks := []library.Track{
		analyzedTrack("a", 0.1, 0.1, 0.1, 0.1),
		analyzedTrack("b", 0.5, 0.5, 0.5, 0.5),
		analyzedTrack("c", 0.9, 0.9, 0.9, 0.9),
	}

	assigned, clusters := Partition(tracks, 8, testRng(7))
	if len(clusters) != 3 {
		t.Fatalf("effective k = %d, want 3 (track count)", len(clusters))
	}

	members := make([]int, len(clusters))
	for _, c := range assigned {
		members[c]++
	}
	for c, n := range members {
		if n == 0 {
			t.Errorf("cluster %d reported with zero members", c)
		}
	}
}

func TestWellSeparatedGroupsConverge(t *testing.T) {
	// Two tight groups far apart in feature space. Regardless of the random
	// init, k=2 must terminate within the iteration cap and recover the
	// groups; assert majority success over many seeds.
	tracks := []library.Track{
		analyzedTrack("a1", 0.05, 0.05, 0.05, 0.05),
		analyzedTrack("a2", 0.06, 0.04, 0.05, 0.06),
		analyzedTrack("a3", 0.04, 0.06, 0.06, 0.04),
		analyzedTrack("b1", 0.95, 0.95, 0.95, 0.95),
		analyzedTrack("b2", 0.94, 0.96, 0.95, 0.94),
		analyzedTrack("b3", 0.96, 0.94, 0.94, 0.96),
	}

	const seeds = 100
	success := 0
	for seed := uint64(0); seed < seeds; seed++ {
		assigned, clusters := Partition(tracks, 2, testRng(seed))
		if len(clusters) != 2 {
			continue
		}
		if assigned["a1"] == assigned["a2"] && assigned["a2"] == assigned["a3"] &&
			assigned["b1"] == assigned["b2"] && assigned["b2"] == assigned["b3"] &&
			assigned["a1"] != assigned["b1"] {
			success++
		}
	}
	if success < seeds*9/10 {
		t.Errorf("recovered the true partition in %d/%d seeds", success, seeds)
	}
}

func TestZeroEligibleTracks(t *testing.T) {
	assigned, clusters := Partition(nil, 3, testRng(1))
	if len(assigned) != 0 || len(clusters) != 0 {
		t.Errorf("empty input: assigned=%v clusters=%v", assigned, clusters)
	}

	// Unanalyzed and errored tracks are not eligible.
	tracks := []library.Track{
		{ID: "x", Status: library.StatusIdle},
		{ID: "y", Status: library.StatusError, Err: "boom"},
		{ID: "z", Status: library.StatusAnalyzing},
	}
	assigned, clusters = Partition(tracks, 3, testRng(1))
	if len(assigned) != 0 || len(clusters) != 0 {
		t.Errorf("ineligible input: assigned=%v clusters=%v", assigned, clusters)
	}
}

func TestOutOfRangeFeaturesStillProduceResult(t *testing.T) {
	tracks := []library.Track{
		analyzedTrack("a", 5.0, -3.0, 100, 0.5),
		analyzedTrack("b", -1.0, 42.0, 0.5, -7),
		analyzedTrack("c", 0.5, 0.5, 0.5, 0.5),
	}
	assigned, clusters := Partition(tracks, 2, testRng(3))
	if len(clusters) != 2 {
		t.Fatalf("clusters = %d, want 2", len(clusters))
	}
	for id, c := range assigned {
		if c < 0 || c >= 2 {
			t.Errorf("track %s assigned to %d", id, c)
		}
	}
}

func TestDeterministicWithFixedSeed(t *testing.T) {
	var tracks []library.Track
	rng := testRng(42)
	for i := 0; i < 10; i++ {
		tracks = append(tracks, analyzedTrack(
			string(rune('a'+i)),
			rng.Float64(), rng.Float64(), rng.Float64(), rng.Float64(),
		))
	}

	first, _ := Partition(tracks, 4, testRng(99))
	second, _ := Partition(tracks, 4, testRng(99))
	for id, c := range first {
		if second[id] != c {
			t.Errorf("track %s: %d vs %d with identical seed", id, c, second[id])
		}
	}
}

func TestFeatureVectorsNotMutated(t *testing.T) {
	tracks := []library.Track{
		analyzedTrack("a", 0.1, 0.2, 0.3, 0.4),
		analyzedTrack("b", 0.9, 0.8, 0.7, 0.6),
	}
	before := []library.AudioFeatures{*tracks[0].Features, *tracks[1].Features}

	Partition(tracks, 2, testRng(5))

	for i, tr := range tracks {
		if *tr.Features != before[i] {
			t.Errorf("track %s features mutated: %+v -> %+v", tr.ID, before[i], *tr.Features)
		}
	}
}

func TestClusterDescriptors(t *testing.T) {
	tracks := []library.Track{analyzedTrack("a", 0.9, 0.2, 0.5, 0.5)}
	_, clusters := Partition(tracks, 1, testRng(1))
	if len(clusters) != 1 {
		t.Fatalf("clusters = %d, want 1", len(clusters))
	}
	c := clusters[0]
	if c.ID != 0 || c.Name != "Cluster 1" || c.Color != palette[0] {
		t.Errorf("descriptor = %+v", c)
	}
	// Display centroid projects (valence, energy).
	if math.Abs(c.Centroid.X-0.2) > 1e-9 || math.Abs(c.Centroid.Y-0.9) > 1e-9 {
		t.Errorf("centroid = %+v, want X=0.2 Y=0.9", c.Centroid)
	}
}

func TestColorCyclesPastPalette(t *testing.T) {
	var tracks []library.Track
	for i := 0; i < 12; i++ {
		tracks = append(tracks, analyzedTrack(
			string(rune('a'+i)),
			float64(i)/12, float64(i)/12, float64(i)/12, float64(i)/12,
		))
	}
	_, clusters := Partition(tracks, 10, testRng(2))
	if len(clusters) != 10 {
		t.Fatalf("clusters = %d, want 10", len(clusters))
	}
	if clusters[8].Color != clusters[0].Color || clusters[9].Color != clusters[1].Color {
		t.Errorf("palette should cycle: %s/%s vs %s/%s",
			clusters[8].Color, clusters[9].Color, clusters[0].Color, clusters[1].Color)
	}
}

func TestFirstDistinctFallback(t *testing.T) {
	points := [][4]float64{
		{0.1, 0, 0, 0}, {0.2, 0, 0, 0}, {0.3, 0, 0, 0}, {0.4, 0, 0, 0},
	}
	got := firstDistinct(points, 2)
	if len(got) != 2 || got[0] != points[0] || got[1] != points[1] {
		t.Errorf("firstDistinct = %v", got)
	}
}
