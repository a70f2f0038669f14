package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"studio/internal/domain"
	"studio/internal/mixer"
)

type outputView struct {
	mixer.OutputSlot
	HasImage bool   `json:"has_image"`
	MIME     string `json:"mime,omitempty"`
	Active   bool   `json:"active"`
}

type stateResponse struct {
	Config  mixer.Snapshot `json:"config"`
	Status  mixer.Status   `json:"status"`
	Outputs []outputView   `json:"outputs"`
}

func (a *App) outputViews() []outputView {
	outs := a.Mixer.Outputs()
	active := outs.Active()
	list := outs.List()
	items := make([]outputView, 0, len(list))
	for _, o := range list {
		items = append(items, outputView{OutputSlot: o, HasImage: o.HasImage(), MIME: o.Image.MIME, Active: o.ID == active})
	}
	return items
}

// State returns the whole configuration, the orchestrator status and the
// output slots in one document.
func (a *App) State(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, stateResponse{
		Config:  a.Mixer.Model().Snapshot(),
		Status:  a.Mixer.Status(),
		Outputs: a.outputViews(),
	})
}

func (a *App) config(w http.ResponseWriter) {
	a.json(w, http.StatusOK, a.Mixer.Model().Snapshot())
}

type weightRequest struct {
	Value *int `json:"value"`
}

// SetWeight handles PUT /weights/{channel}/{slot}.
func (a *App) SetWeight(w http.ResponseWriter, r *http.Request) {
	channel, err := domain.ParseChannel(chi.URLParam(r, "channel"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	slot, err := domain.ParseSlotID(chi.URLParam(r, "slot"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req weightRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.Value == nil {
		a.error(w, http.StatusBadRequest, "invalid_argument", "value is required")
		return
	}
	if err := a.Mixer.Model().SetWeight(channel, slot, *req.Value); err != nil {
		a.fail(w, r, err)
		return
	}
	a.config(w)
}

type weightsRequest struct {
	Magnitude *[domain.SlotCount]int `json:"magnitude"`
	Phase     *[domain.SlotCount]int `json:"phase"`
	Real      *[domain.SlotCount]int `json:"real"`
	Imaginary *[domain.SlotCount]int `json:"imaginary"`
}

// SetWeights handles PUT /weights with any subset of the four channel rows.
// All rows land in one model update.
func (a *App) SetWeights(w http.ResponseWriter, r *http.Request) {
	var req weightsRequest
	if !a.decode(w, r, &req) {
		return
	}
	rows := make(map[domain.Channel][domain.SlotCount]int, 4)
	for ch, values := range map[domain.Channel]*[domain.SlotCount]int{
		domain.ChannelMagnitude: req.Magnitude,
		domain.ChannelPhase:     req.Phase,
		domain.ChannelReal:      req.Real,
		domain.ChannelImaginary: req.Imaginary,
	} {
		if values != nil {
			rows[ch] = *values
		}
	}
	if err := a.Mixer.Model().SetWeights(rows); err != nil {
		a.fail(w, r, err)
		return
	}
	a.config(w)
}

type regionRequest struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Type   string  `json:"type"`
}

// SetRegion handles PUT /region.
func (a *App) SetRegion(w http.ResponseWriter, r *http.Request) {
	req := regionRequest{Width: -1, Height: -1}
	if !a.decode(w, r, &req) {
		return
	}
	current := a.Mixer.Model().Snapshot().Geometry
	if req.Width < 0 {
		req.Width = current.WidthPct
	}
	if req.Height < 0 {
		req.Height = current.HeightPct
	}
	kind := current.Kind
	if req.Type != "" {
		kind = domain.NormalizeRegionKind(req.Type)
	}
	a.Mixer.Model().SetGeometry(req.Width, req.Height, kind)
	a.config(w)
}

type positionRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// SetPosition handles PUT /region/positions/{slot}.
func (a *App) SetPosition(w http.ResponseWriter, r *http.Request) {
	slot, err := domain.ParseSlotID(chi.URLParam(r, "slot"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req positionRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := a.Mixer.Model().SetPosition(slot, req.X, req.Y); err != nil {
		a.fail(w, r, err)
		return
	}
	a.config(w)
}

type linkedRequest struct {
	Linked bool `json:"linked"`
}

// SetLinked handles PUT /region/linked.
func (a *App) SetLinked(w http.ResponseWriter, r *http.Request) {
	var req linkedRequest
	if !a.decode(w, r, &req) {
		return
	}
	a.Mixer.Model().SetLinked(req.Linked)
	a.config(w)
}

type modeRequest struct {
	MixMode        string `json:"mix_mode"`
	ProcessingMode string `json:"processing_mode"`
}

// SetMode handles PUT /mode; either field may be omitted.
func (a *App) SetMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.MixMode == "" && req.ProcessingMode == "" {
		a.error(w, http.StatusBadRequest, "invalid_argument", "mix_mode or processing_mode is required")
		return
	}
	var (
		mix    domain.MixMode
		proc   domain.ProcessingMode
		mixOK  = req.MixMode == ""
		procOK = req.ProcessingMode == ""
	)
	if !mixOK {
		mix, mixOK = domain.NormalizeMixMode(req.MixMode)
	}
	if !procOK {
		proc, procOK = domain.NormalizeProcessingMode(req.ProcessingMode)
	}
	if !mixOK || !procOK {
		a.error(w, http.StatusBadRequest, "invalid_argument", "unsupported mix_mode or processing_mode")
		return
	}
	if err := a.Mixer.Model().SetModes(mix, proc); err != nil {
		a.fail(w, r, err)
		return
	}
	a.config(w)
}
