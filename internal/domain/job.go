package domain

import "strings"

// MixMode selects which conjugate pair of components the sliders express.
type MixMode string

const (
	MixModeMagPhase MixMode = "mag_phase"
	MixModeRealImag MixMode = "real_imag"
)

// ProcessingMode selects whether the job operates on the whole spectrum or a region.
type ProcessingMode string

const (
	ProcessingWhole  ProcessingMode = "whole"
	ProcessingRegion ProcessingMode = "region"
)

// NormalizeMixMode sanitizes free-form input into a supported mix mode.
func NormalizeMixMode(mode string) (MixMode, bool) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case string(MixModeMagPhase):
		return MixModeMagPhase, true
	case string(MixModeRealImag):
		return MixModeRealImag, true
	default:
		return "", false
	}
}

// NormalizeProcessingMode sanitizes free-form input into a supported processing mode.
func NormalizeProcessingMode(mode string) (ProcessingMode, bool) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case string(ProcessingWhole):
		return ProcessingWhole, true
	case string(ProcessingRegion):
		return ProcessingRegion, true
	default:
		return "", false
	}
}

// JobRequest is the immutable snapshot submitted to the worker. All fields are
// values, so a copy never aliases the configuration it was built from.
type JobRequest struct {
	MixMode   MixMode                   `json:"mix_mode"`
	Weights   WeightMatrix              `json:"weights"`
	Region    RegionDescriptor          `json:"region"`
	Positions [SlotCount]RegionPosition `json:"region_positions"`
}

// JobState enumerates what the worker reports about the outstanding job.
type JobState string

const (
	JobPending   JobState = "pending"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "error"
)

// JobStatus is one poll answer from the worker.
type JobStatus struct {
	State    JobState
	Progress int
	Result   Image
	Message  string
}

// Image is an encoded image plus its media type.
type Image struct {
	Data []byte
	MIME string
}

// Empty reports whether the image carries no bytes.
func (i Image) Empty() bool {
	return len(i.Data) == 0
}
