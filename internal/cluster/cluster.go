// Package cluster partitions analyzed tracks into similarity groups with
// k-means over their 4D feature vector.
package cluster

import "fmt"

// palette holds the display colors, assigned by cluster index and cycling
// when k exceeds the palette.
var palette = [...]string{
	"#f43f5e", // rose
	"#3b82f6", // blue
	"#22c55e", // green
	"#eab308", // yellow
	"#a855f7", // purple
	"#f97316", // orange
	"#06b6d4", // cyan
	"#ec4899", // pink
}

// Point is a cluster centroid projected onto the display axes:
// X = valence, Y = energy.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Cluster describes one group produced by a clustering run. A run replaces
// the full cluster set atomically; clusters are never mutated in place.
type Cluster struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	Centroid Point  `json:"centroid"`
}

func makeCluster(id int, centroid [4]float64) Cluster {
	return Cluster{
		ID:       id,
		Name:     fmt.Sprintf("Cluster %d", id+1),
		Color:    palette[id%len(palette)],
		Centroid: Point{X: centroid[1], Y: centroid[0]},
	}
}
