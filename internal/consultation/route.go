package consultation

import "ai-doctor/internal/symptom"

// Route is the branch chosen for one request. Exactly one of
// PredefinedRoute, VisionRoute or TextRoute.
type Route interface {
	Path() Path
	route()
}

// PredefinedRoute answers from the knowledge base without any model call.
type PredefinedRoute struct {
	Condition symptom.Condition
}

// VisionRoute sends the image and the description to the analyzer.
type VisionRoute struct {
	Prompt string
	Image  *Image
}

// TextRoute sends the description alone to the analyzer.
type TextRoute struct {
	Prompt      string
	Description string
}

func (PredefinedRoute) Path() Path { return PathPredefined }
func (VisionRoute) Path() Path     { return PathVision }
func (TextRoute) Path() Path       { return PathText }

func (PredefinedRoute) route() {}
func (VisionRoute) route()     {}
func (TextRoute) route()       {}

// Decide picks the branch. Rules are checked in order and the first that
// applies wins:
//  1. a predefined match with no image
//  2. any image
//  3. everything else
func Decide(match *symptom.Condition, image *Image, description string) Route {
	switch {
	case match != nil && image == nil:
		return PredefinedRoute{Condition: *match}
	case image != nil:
		return VisionRoute{Prompt: visionPrompt(description), Image: image}
	default:
		return TextRoute{Prompt: textPrompt(description), Description: description}
	}
}

// Describe assembles the summary shown back to the user from the selected
// symptoms and the outcome of transcription. transcript is nil when no audio
// was submitted.
func Describe(sel symptom.Selection, transcript *Outcome) string {
	phrase := sel.Phrase()
	if transcript == nil {
		if phrase == "" {
			return noSymptomsDescribed
		}
		return phrase
	}
	if transcript.Err != nil {
		return phrase + transcriptionError(transcript.Err)
	}
	return phrase + transcript.Text
}
