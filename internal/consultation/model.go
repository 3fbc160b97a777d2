package consultation

import (
	"time"

	"github.com/google/uuid"
)

// Audio is a recorded voice note.
type Audio struct {
	Data     []byte
	Filename string
}

// Image is an uploaded picture, e.g. a photo of a rash.
type Image struct {
	Data     []byte
	MIMEType string
}

// VoiceArtifact is the synthesized reading of a diagnosis.
type VoiceArtifact struct {
	Audio    []byte `json:"-"`
	MIMEType string `json:"mime_type"`
}

// Request carries everything a user submitted. Any part may be missing.
type Request struct {
	Audio    *Audio
	Image    *Image
	Symptoms []string // picker labels as submitted, decoration included
}

// Path names the branch that produced a diagnosis.
type Path string

const (
	PathPredefined Path = "predefined"
	PathVision     Path = "vision"
	PathText       Path = "text"
)

// Result is what a consultation hands back to the user.
type Result struct {
	Summary     string         `json:"summary"`
	Diagnosis   string         `json:"diagnosis"`
	Voice       *VoiceArtifact `json:"voice,omitempty"`
	Path        Path           `json:"path"`
	ConditionID string         `json:"condition_id,omitempty"`
}

// Consultation is a stored request/result pair.
type Consultation struct {
	ID       uuid.UUID `json:"id" db:"id"`
	Symptoms []string  `json:"symptoms" db:"symptoms"`
	HasAudio bool      `json:"has_audio" db:"has_audio"`
	HasImage bool      `json:"has_image" db:"has_image"`

	Result

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
