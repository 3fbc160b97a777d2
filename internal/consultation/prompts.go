package consultation

import (
	"fmt"
	"strings"

	"ai-doctor/internal/symptom"
)

const noSymptomsDescribed = "No symptoms described"

// visionInstruction is sent ahead of the patient's description whenever an
// image is attached.
const visionInstruction = `You have to act as a professional doctor, i know you are not but this is for learning purpose.
What's in this image?. Do you find anything wrong with it medically?
If you make a differential, suggest some remedies for them. Donot add any numbers or special characters in
your response. Your response should be in one long paragraph. Also always answer as if you are answering to a real person.
Donot say 'In the image I see' but say 'With what I see, I think you have ....'
Dont respond as an AI model in markdown, your answer should mimic that of an actual doctor not an AI bot,
Keep your answer concise (max 2 sentences). No preamble, start your answer right away please`

const textPromptFormat = `You are a medical doctor for educational purposes. The patient reports: %s

Provide brief possible causes and self-care advice in 2-3 sentences. Be concise and practical.`

func visionPrompt(description string) string {
	if description == "" {
		return visionInstruction
	}
	return visionInstruction + " " + description
}

func textPrompt(description string) string {
	return fmt.Sprintf(textPromptFormat, description)
}

// QuickDetection renders a predefined condition as a diagnosis.
func QuickDetection(c symptom.Condition) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚨 QUICK DETECTION: %s\n\n", c.Condition)
	fmt.Fprintf(&b, "📋 SYMPTOMS MATCHED: %s\n\n", strings.Join(c.Symptoms, ", "))
	fmt.Fprintf(&b, "💡 RECOMMENDATIONS: %s\n\n", c.Advice)
	fmt.Fprintf(&b, "⚠️ URGENCY: %s\n\n", c.Urgency)
	b.WriteString("Note: This is automated advice. Consult healthcare provider for proper diagnosis.")
	return b.String()
}

func transcriptionError(err error) string {
	return "Error transcribing audio: " + err.Error()
}

func imageAnalysisError(err error) string {
	return "Error analyzing image: " + err.Error()
}

func textFallback(description string) string {
	return fmt.Sprintf("Based on your symptoms: %s. I recommend consulting a healthcare provider for proper diagnosis.", description)
}
