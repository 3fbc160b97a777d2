package consultation

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"ai-doctor/internal/symptom"
)

// Transcriber turns recorded speech into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioData []byte) (string, error)
}

// Analyzer asks a vision/language model about a prompt and an optional image.
type Analyzer interface {
	Analyze(ctx context.Context, prompt string, image *Image) (string, error)
}

// Synthesizer reads text aloud.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

var (
	errNoTranscriber = errors.New("no transcriber configured")
	errNoAnalyzer    = errors.New("no analyzer configured")
	errNoSynthesizer = errors.New("no synthesizer configured")
	errEmptyAudio    = errors.New("synthesizer returned no audio")
)

// Outcome is the result of one collaborator call.
type Outcome struct {
	Text string
	Err  error
}

// Router turns a Request into a Result. It holds no per-request state and
// never fails: collaborator errors end up as text in the result.
type Router struct {
	kb          *symptom.KnowledgeBase
	transcriber Transcriber
	analyzer    Analyzer
	synthesizer Synthesizer
	voiceMIME   string
	log         *zap.Logger
}

type RouterOption func(*Router)

// WithVoiceMIME sets the content type reported for synthesized audio.
func WithVoiceMIME(mime string) RouterOption {
	return func(r *Router) { r.voiceMIME = mime }
}

func WithLogger(log *zap.Logger) RouterOption {
	return func(r *Router) { r.log = log }
}

func NewRouter(kb *symptom.KnowledgeBase, stt Transcriber, analyzer Analyzer, tts Synthesizer, opts ...RouterOption) *Router {
	r := &Router{
		kb:          kb,
		transcriber: stt,
		analyzer:    analyzer,
		synthesizer: tts,
		voiceMIME:   "audio/mpeg",
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Consult runs one request through matching, routing and speech synthesis.
func (r *Router) Consult(ctx context.Context, req Request) Result {
	sel := symptom.Selection{Raw: req.Symptoms}

	var match *symptom.Condition
	if !sel.Empty() {
		if c, ok := r.kb.Match(sel.Canonical()); ok {
			match = &c
		}
	}

	var transcript *Outcome
	if req.Audio != nil {
		out := r.transcribe(ctx, req.Audio)
		transcript = &out
	}
	description := Describe(sel, transcript)

	route := Decide(match, req.Image, description)
	res := Result{
		Summary:   description,
		Diagnosis: r.diagnose(ctx, route),
		Path:      route.Path(),
	}
	if p, ok := route.(PredefinedRoute); ok {
		res.ConditionID = p.Condition.ID
	}

	res.Voice = r.speak(ctx, res.Diagnosis)
	return res
}

func (r *Router) diagnose(ctx context.Context, route Route) string {
	switch rt := route.(type) {
	case PredefinedRoute:
		r.log.Info("predefined condition matched, skipping analyzer", zap.String("condition_id", rt.Condition.ID))
		return QuickDetection(rt.Condition)
	case VisionRoute:
		out := r.analyze(ctx, rt.Prompt, rt.Image)
		if out.Err != nil {
			r.log.Warn("image analysis failed", zap.Error(out.Err))
			return imageAnalysisError(out.Err)
		}
		return out.Text
	case TextRoute:
		out := r.analyze(ctx, rt.Prompt, nil)
		if out.Err != nil {
			r.log.Warn("symptom analysis failed", zap.Error(out.Err))
			return textFallback(rt.Description)
		}
		return out.Text
	default:
		// Unreachable while Route stays sealed.
		return textFallback(noSymptomsDescribed)
	}
}

func (r *Router) transcribe(ctx context.Context, audio *Audio) Outcome {
	if r.transcriber == nil {
		return Outcome{Err: errNoTranscriber}
	}
	text, err := r.transcriber.Transcribe(ctx, audio.Data)
	if err != nil {
		r.log.Warn("transcription failed", zap.Error(err))
	}
	return Outcome{Text: text, Err: err}
}

func (r *Router) analyze(ctx context.Context, prompt string, image *Image) Outcome {
	if r.analyzer == nil {
		return Outcome{Err: errNoAnalyzer}
	}
	text, err := r.analyzer.Analyze(ctx, prompt, image)
	return Outcome{Text: text, Err: err}
}

// speak returns nil when synthesis fails for any reason.
func (r *Router) speak(ctx context.Context, text string) *VoiceArtifact {
	audio, err := r.synthesize(ctx, text)
	if err != nil {
		r.log.Warn("voice generation failed", zap.Error(err))
		return nil
	}
	return &VoiceArtifact{Audio: audio, MIMEType: r.voiceMIME}
}

func (r *Router) synthesize(ctx context.Context, text string) ([]byte, error) {
	if r.synthesizer == nil {
		return nil, errNoSynthesizer
	}
	audio, err := r.synthesizer.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, errEmptyAudio
	}
	return audio, nil
}
