package library

// Status is the analysis lifecycle state of a track.
type Status string

const (
	StatusIdle      Status = "IDLE"
	StatusAnalyzing Status = "ANALYZING"
	StatusCompleted Status = "COMPLETED"
	StatusError     Status = "ERROR"
)

// AudioFeatures is the musical summary the analysis oracle extracts from a
// track. The four unit-range attributes form the clustering vector; tempo is
// excluded from distance so BPM does not dominate the unit dimensions.
type AudioFeatures struct {
	Energy       float64 `json:"energy"`       // 0.0 to 1.0, intensity and activity
	Valence      float64 `json:"valence"`      // 0.0 to 1.0, sad to happy
	Danceability float64 `json:"danceability"` // 0.0 to 1.0
	Acousticness float64 `json:"acousticness"` // 0.0 to 1.0
	Tempo        float64 `json:"tempo"`        // estimated BPM
	Description  string  `json:"description"`  // short mood/genre description
}

// Vector returns the 4D clustering vector.
func (f AudioFeatures) Vector() [4]float64 {
	return [4]float64{f.Energy, f.Valence, f.Danceability, f.Acousticness}
}

// Track is one uploaded audio file and its analysis state.
//
// Data is the raw payload; it is written once on enqueue and read-only
// afterwards. Features is set exactly when Status is StatusCompleted and never
// mutated after that; Err is set exactly when Status is StatusError.
type Track struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"-"`

	Status    Status         `json:"status"`
	Features  *AudioFeatures `json:"features,omitempty"`
	ClusterID int            `json:"cluster_id"` // -1 until a clustering run assigns one
	Err       string         `json:"error,omitempty"`
}
