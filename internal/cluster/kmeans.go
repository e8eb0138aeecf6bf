package cluster

import (
	"math"
	"math/rand/v2"

	"soniccluster/internal/library"
)

const (
	maxIterations = 20
	// Redraw budget for the random centroid draw, per centroid. Past this
	// the draw falls back to the first k distinct points so tiny datasets
	// still terminate.
	redrawsPerCentroid = 20
)

// Partition runs k-means over every eligible track (completed, with features)
// and returns the per-track cluster assignment plus the derived cluster set.
// Tracks without features are ignored and get no assignment. The caller owns
// k clamping; effective k is still reduced to the eligible count.
//
// rng drives centroid initialization and is the only source of randomness, so
// tests can pin it. Feature vectors are never mutated.
func Partition(tracks []library.Track, k int, rng *rand.Rand) (map[string]int, []Cluster) {
	ids := make([]string, 0, len(tracks))
	points := make([][4]float64, 0, len(tracks))
	for _, t := range tracks {
		if t.Status != library.StatusCompleted || t.Features == nil {
			continue
		}
		ids = append(ids, t.ID)
		points = append(points, t.Features.Vector())
	}

	if len(points) == 0 {
		return map[string]int{}, nil
	}

	if k < 1 {
		k = 1
	}
	if k > len(points) {
		k = len(points)
	}

	centroids := initialCentroids(points, k, rng)
	assignments := make([]int, len(points))
	for i := range assignments {
		assignments[i] = -1
	}

	for iter := 0; iter < maxIterations; iter++ {
		changed := false

		// Assignment: nearest centroid, ties to the first encountered.
		for i, p := range points {
			best, bestDist := 0, math.Inf(1)
			for c, centroid := range centroids {
				if d := sqDistance(p, centroid); d < bestDist {
					best, bestDist = c, d
				}
			}
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}

		if !changed {
			break
		}

		// Update: arithmetic mean per dimension. An empty cluster keeps
		// its previous centroid instead of being re-seeded.
		sums := make([][4]float64, k)
		counts := make([]int, k)
		for i, p := range points {
			c := assignments[i]
			for d := 0; d < 4; d++ {
				sums[c][d] += p[d]
			}
			counts[c]++
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				continue
			}
			for d := 0; d < 4; d++ {
				centroids[c][d] = sums[c][d] / float64(counts[c])
			}
		}
	}

	assigned := make(map[string]int, len(ids))
	for i, id := range ids {
		assigned[id] = assignments[i]
	}
	clusters := make([]Cluster, k)
	for c := range clusters {
		clusters[c] = makeCluster(c, centroids[c])
	}
	return assigned, clusters
}

// initialCentroids samples k distinct points uniformly without replacement,
// redrawing on index collisions up to a fixed budget before falling back to
// the first k points.
func initialCentroids(points [][4]float64, k int, rng *rand.Rand) [][4]float64 {
	centroids := make([][4]float64, 0, k)
	picked := make(map[int]bool, k)
	redraws := 0
	for len(centroids) < k {
		idx := rng.IntN(len(points))
		if picked[idx] {
			redraws++
			if redraws > redrawsPerCentroid*k {
				return firstDistinct(points, k)
			}
			continue
		}
		picked[idx] = true
		centroids = append(centroids, points[idx])
	}
	return centroids
}

func firstDistinct(points [][4]float64, k int) [][4]float64 {
	centroids := make([][4]float64, k)
	copy(centroids, points[:k])
	return centroids
}

func sqDistance(a, b [4]float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
