package consultation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-doctor/internal/symptom"
)

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(context.Context, []byte) (string, error) {
	return f.text, f.err
}

type analyzeCall struct {
	prompt string
	image  *Image
}

type fakeAnalyzer struct {
	calls []analyzeCall
	text  string
	err   error
}

func (f *fakeAnalyzer) Analyze(_ context.Context, prompt string, image *Image) (string, error) {
	f.calls = append(f.calls, analyzeCall{prompt: prompt, image: image})
	return f.text, f.err
}

type fakeSynthesizer struct {
	texts []string
	audio []byte
	err   error
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, text string) ([]byte, error) {
	f.texts = append(f.texts, text)
	return f.audio, f.err
}

type fixture struct {
	stt    *fakeTranscriber
	ai     *fakeAnalyzer
	tts    *fakeSynthesizer
	router *Router
}

func newFixture() *fixture {
	f := &fixture{
		stt: &fakeTranscriber{text: "it started yesterday"},
		ai:  &fakeAnalyzer{text: "You likely have a mild infection, rest and drink fluids."},
		tts: &fakeSynthesizer{audio: []byte("mp3")},
	}
	f.router = NewRouter(symptom.Default(), f.stt, f.ai, f.tts)
	return f
}

var feverCold = []string{"🤒 Fever", "🤧 Cough/Cold", "🥴 Fatigue"}

func TestConsultPredefinedMatchSkipsAnalyzer(t *testing.T) {
	f := newFixture()

	res := f.router.Consult(context.Background(), Request{Symptoms: feverCold})

	assert.Equal(t, PathPredefined, res.Path)
	assert.Equal(t, "fever_cold", res.ConditionID)
	assert.Contains(t, res.Diagnosis, "Common Cold or Viral Infection")
	assert.Contains(t, res.Diagnosis, "Moderate - See doctor if no improvement in 3 days")
	assert.Contains(t, res.Diagnosis, "SYMPTOMS MATCHED: Fever, Cough/Cold, Chills, Fatigue")
	assert.Equal(t, "Patient reports symptoms: Fever, Cough/Cold, Fatigue. ", res.Summary)
	assert.Empty(t, f.ai.calls)

	require.NotNil(t, res.Voice)
	assert.Equal(t, []string{res.Diagnosis}, f.tts.texts)
}

func TestConsultPredefinedMatchWithAudio(t *testing.T) {
	f := newFixture()

	res := f.router.Consult(context.Background(), Request{
		Audio:    &Audio{Data: []byte("wav")},
		Symptoms: feverCold,
	})

	assert.Equal(t, PathPredefined, res.Path)
	assert.Equal(t, "Patient reports symptoms: Fever, Cough/Cold, Fatigue. it started yesterday", res.Summary)
	assert.Empty(t, f.ai.calls)
}

func TestConsultImageAlwaysUsesVision(t *testing.T) {
	f := newFixture()
	img := &Image{Data: []byte{0x89, 'P', 'N', 'G'}, MIMEType: "image/png"}

	res := f.router.Consult(context.Background(), Request{Image: img, Symptoms: feverCold})

	assert.Equal(t, PathVision, res.Path)
	assert.Empty(t, res.ConditionID)
	require.Len(t, f.ai.calls, 1)
	call := f.ai.calls[0]
	assert.Same(t, img, call.image)
	assert.True(t, strings.HasPrefix(call.prompt, visionInstruction))
	assert.True(t, strings.HasSuffix(call.prompt, " Patient reports symptoms: Fever, Cough/Cold, Fatigue. "))
	assert.Equal(t, f.ai.text, res.Diagnosis)
}

func TestConsultImageOnly(t *testing.T) {
	f := newFixture()

	res := f.router.Consult(context.Background(), Request{Image: &Image{Data: []byte{1}, MIMEType: "image/jpeg"}})

	assert.Equal(t, PathVision, res.Path)
	assert.Equal(t, noSymptomsDescribed, res.Summary)
	require.Len(t, f.ai.calls, 1)
	assert.Equal(t, visionInstruction+" "+noSymptomsDescribed, f.ai.calls[0].prompt)
}

func TestConsultFallsBackToText(t *testing.T) {
	tests := []struct {
		name     string
		req      Request
		contains string
	}{
		{"single symptom", Request{Symptoms: []string{"🥴 Fatigue"}}, "Patient reports symptoms: Fatigue. "},
		{"no overlapping condition", Request{Symptoms: []string{"👂 Ear Pain", "🦷 Tooth Pain"}}, "Ear Pain, Tooth Pain"},
		{"voice only", Request{Audio: &Audio{Data: []byte("wav")}}, "it started yesterday"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()

			res := f.router.Consult(context.Background(), tt.req)

			assert.Equal(t, PathText, res.Path)
			require.Len(t, f.ai.calls, 1)
			assert.Nil(t, f.ai.calls[0].image)
			assert.Contains(t, f.ai.calls[0].prompt, tt.contains)
			assert.Contains(t, f.ai.calls[0].prompt, "2-3 sentences")
			assert.Equal(t, f.ai.text, res.Diagnosis)
		})
	}
}

func TestConsultNothingProvided(t *testing.T) {
	f := newFixture()

	res := f.router.Consult(context.Background(), Request{})

	assert.Equal(t, noSymptomsDescribed, res.Summary)
	assert.Equal(t, PathText, res.Path)
	require.Len(t, f.ai.calls, 1)
	assert.Contains(t, f.ai.calls[0].prompt, "The patient reports: "+noSymptomsDescribed)
}

func TestConsultTranscriptionFailureContinues(t *testing.T) {
	f := newFixture()
	f.stt.err = errors.New("service unreachable")

	res := f.router.Consult(context.Background(), Request{
		Audio:    &Audio{Data: []byte("wav")},
		Symptoms: []string{"🥴 Fatigue"},
	})

	assert.Equal(t, "Patient reports symptoms: Fatigue. Error transcribing audio: service unreachable", res.Summary)
	assert.Equal(t, PathText, res.Path)
	require.Len(t, f.ai.calls, 1)
	assert.Contains(t, f.ai.calls[0].prompt, "Error transcribing audio")
}

func TestConsultVisionAnalyzerFailure(t *testing.T) {
	f := newFixture()
	f.ai.err = errors.New("invalid image")

	res := f.router.Consult(context.Background(), Request{Image: &Image{Data: []byte{1}}})

	assert.Equal(t, "Error analyzing image: invalid image", res.Diagnosis)
	// Speech is still attempted, on the error text.
	assert.Equal(t, []string{res.Diagnosis}, f.tts.texts)
	assert.NotNil(t, res.Voice)
}

func TestConsultTextAnalyzerFailure(t *testing.T) {
	f := newFixture()
	f.ai.err = errors.New("quota exceeded")

	res := f.router.Consult(context.Background(), Request{Symptoms: []string{"🦷 Tooth Pain"}})

	assert.Equal(t,
		"Based on your symptoms: Patient reports symptoms: Tooth Pain. . I recommend consulting a healthcare provider for proper diagnosis.",
		res.Diagnosis)
	assert.Equal(t, PathText, res.Path)
}

func TestConsultSynthesisFailureKeepsText(t *testing.T) {
	ok := newFixture().router.Consult(context.Background(), Request{Symptoms: feverCold})

	f := newFixture()
	f.tts.err = errors.New("tts down")
	res := f.router.Consult(context.Background(), Request{Symptoms: feverCold})

	assert.Nil(t, res.Voice)
	assert.Equal(t, ok.Summary, res.Summary)
	assert.Equal(t, ok.Diagnosis, res.Diagnosis)
}

func TestConsultEmptyAudioIsNoArtifact(t *testing.T) {
	f := newFixture()
	f.tts.audio = nil

	res := f.router.Consult(context.Background(), Request{Symptoms: feverCold})
	assert.Nil(t, res.Voice)
}

func TestConsultWithoutCollaborators(t *testing.T) {
	r := NewRouter(symptom.Default(), nil, nil, nil)

	res := r.Consult(context.Background(), Request{
		Audio:    &Audio{Data: []byte("wav")},
		Symptoms: []string{"🥴 Fatigue"},
	})
	assert.Contains(t, res.Summary, "Error transcribing audio: no transcriber configured")
	assert.Contains(t, res.Diagnosis, "I recommend consulting a healthcare provider")
	assert.Nil(t, res.Voice)

	res = r.Consult(context.Background(), Request{Symptoms: feverCold})
	assert.Equal(t, PathPredefined, res.Path)
}

func TestDecide(t *testing.T) {
	c, _ := symptom.Default().Lookup("migraine")
	img := &Image{Data: []byte{1}}

	assert.IsType(t, PredefinedRoute{}, Decide(&c, nil, "d"))
	assert.IsType(t, VisionRoute{}, Decide(&c, img, "d"))
	assert.IsType(t, VisionRoute{}, Decide(nil, img, "d"))
	assert.IsType(t, TextRoute{}, Decide(nil, nil, "d"))

	tr := Decide(nil, nil, "headache").(TextRoute)
	assert.Equal(t, "headache", tr.Description)
	assert.Equal(t, PathText, tr.Path())
}

func TestDescribe(t *testing.T) {
	sel := symptom.Selection{Raw: []string{"🤕 Headache"}}

	assert.Equal(t, noSymptomsDescribed, Describe(symptom.Selection{}, nil))
	assert.Equal(t, "Patient reports symptoms: Headache. ", Describe(sel, nil))
	assert.Equal(t, "Patient reports symptoms: Headache. since noon", Describe(sel, &Outcome{Text: "since noon"}))
	assert.Equal(t, "Error transcribing audio: boom", Describe(symptom.Selection{}, &Outcome{Err: errors.New("boom")}))
	assert.Equal(t, "", Describe(symptom.Selection{}, &Outcome{Text: ""}))
}

func TestVisionInstructionWording(t *testing.T) {
	assert.Contains(t, visionInstruction, "What's in this image?. Do you find anything wrong with it medically?")
	assert.Contains(t, visionInstruction, "Donot add any numbers or special characters in")
	assert.True(t, strings.HasSuffix(visionInstruction, "No preamble, start your answer right away please"))
}
