package job

import "time"

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// rank orders statuses so a transition can never move backwards.
func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusProcessing:
		return 1
	case StatusCompleted, StatusFailed:
		return 2
	default:
		return -1
	}
}

type Capability string

const (
	CapabilityTTS          Capability = "tts"
	CapabilitySTT          Capability = "stt"
	CapabilityNoiseRemoval Capability = "noise_removal"
)

// Metadata keys written by the dispatch pipeline.
const (
	MetaError      = "error"
	MetaOutputText = "output_text"
)

// Job is one user-submitted media-processing request and its tracked
// lifecycle. ID, UserID, Capability and ChosenModel are immutable after
// creation; the store owns every mutation.
type Job struct {
	ID              string         `json:"job_id"`
	UserID          string         `json:"user_id"`
	Capability      Capability     `json:"capability"`
	ChosenModel     string         `json:"chosen_model"`
	InputAudioPath  string         `json:"input_audio_path,omitempty"`
	OutputAudioPath string         `json:"output_audio_path,omitempty"`
	Status          Status         `json:"status"`
	Metadata        map[string]any `json:"metadata"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Clone returns a deep-enough copy so readers never alias store state.
func (j *Job) Clone() *Job {
	cp := *j
	cp.Metadata = make(map[string]any, len(j.Metadata))
	for k, v := range j.Metadata {
		cp.Metadata[k] = v
	}
	return &cp
}

// ErrorMessage returns metadata["error"] if set.
func (j *Job) ErrorMessage() string {
	if v, ok := j.Metadata[MetaError].(string); ok {
		return v
	}
	return ""
}

// OutputText returns metadata["output_text"] if set (STT results).
func (j *Job) OutputText() string {
	if v, ok := j.Metadata[MetaOutputText].(string); ok {
		return v
	}
	return ""
}

// OutputAvailable reports whether a completed output blob exists.
func (j *Job) OutputAvailable() bool {
	return j.Status == StatusCompleted && j.OutputAudioPath != ""
}
