package worker

import (
	"strconv"

	"studio/internal/domain"
)

// Worker task states as they appear on /progress.
const (
	StatusIdle      = "idle"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusError     = "error"
)

// MixPayload is the JSON body of POST /start_mix. Weight maps are keyed by
// slot id ("1".."4"); all four channels are always present.
type MixPayload struct {
	MixMode         string                     `json:"mix_mode"`
	MagWeights      map[string]float64         `json:"mag_weights"`
	PhaseWeights    map[string]float64         `json:"phase_weights"`
	RealWeights     map[string]float64         `json:"real_weights"`
	ImagWeights     map[string]float64         `json:"imag_weights"`
	Region          RegionPayload              `json:"region"`
	RegionPositions map[string]PositionPayload `json:"region_positions"`
}

// RegionPayload is the region descriptor in percent of the spectrum.
type RegionPayload struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Type   string  `json:"type"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// PositionPayload is one slot's region anchor.
type PositionPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// StartMixResponse acknowledges an accepted job.
type StartMixResponse struct {
	TaskID int `json:"task_id"`
}

// ProgressPayload is the body of GET /progress.
type ProgressPayload struct {
	ID       int    `json:"id"`
	Progress int    `json:"progress"`
	Status   string `json:"status"`
	Result   string `json:"result"`
	Error    string `json:"error"`
}

// ViewPayload is the body of GET /get_view/{slot}/{component}.
type ViewPayload struct {
	Image string `json:"image,omitempty"`
	Error string `json:"error,omitempty"`
}

// UploadResponse is the body of POST /upload/{slot}.
type UploadResponse struct {
	Status string `json:"status,omitempty"`
	Dims   []int  `json:"dims,omitempty"`
	Error  string `json:"error,omitempty"`
}

// NewMixPayload converts a job request into its wire form.
func NewMixPayload(req domain.JobRequest) MixPayload {
	p := MixPayload{
		MixMode:         string(req.MixMode),
		MagWeights:      make(map[string]float64, domain.SlotCount),
		PhaseWeights:    make(map[string]float64, domain.SlotCount),
		RealWeights:     make(map[string]float64, domain.SlotCount),
		ImagWeights:     make(map[string]float64, domain.SlotCount),
		RegionPositions: make(map[string]PositionPayload, domain.SlotCount),
		Region: RegionPayload{
			Width:  req.Region.WidthPct,
			Height: req.Region.HeightPct,
			Type:   string(req.Region.Kind),
			X:      req.Region.XPct,
			Y:      req.Region.YPct,
		},
	}
	for _, slot := range domain.AllSlots() {
		key := slot.String()
		i := slot.Index()
		p.MagWeights[key] = float64(req.Weights.Magnitude[i])
		p.PhaseWeights[key] = float64(req.Weights.Phase[i])
		p.RealWeights[key] = float64(req.Weights.Real[i])
		p.ImagWeights[key] = float64(req.Weights.Imaginary[i])
		pos := req.Positions[i]
		p.RegionPositions[key] = PositionPayload{X: pos.XPct, Y: pos.YPct}
	}
	return p
}

// Weight returns the weight for slot in the named map as a 0..1 fraction.
// Missing entries count as zero.
func Weight(weights map[string]float64, slot domain.SlotID) float64 {
	return weights[strconv.Itoa(int(slot))] / 100.0
}
