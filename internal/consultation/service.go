package consultation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ai-doctor/internal/symptom"
)

// ReportService renders and delivers consultation reports.
// We define it here to decouple from the specific report implementation.
type ReportService interface {
	Render(ctx context.Context, c Consultation) ([]byte, error)
	SendDoctorReport(ctx context.Context, c Consultation) error
}

// MatchResult explains how a symptom selection scored against the knowledge base.
type MatchResult struct {
	Condition *symptom.Condition `json:"condition"`
	Scores    []symptom.Score    `json:"scores"`
}

type Service interface {
	Consult(ctx context.Context, req Request) *Consultation
	Get(ctx context.Context, id uuid.UUID) (*Consultation, error)
	Match(labels []string) MatchResult
	Catalog() []string
	SynthesizeSpeech(ctx context.Context, text string) ([]byte, error)
	Report(ctx context.Context, id uuid.UUID) ([]byte, error)
	SendReport(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo      Repository
	router    *Router
	kb        *symptom.KnowledgeBase
	tts       Synthesizer
	reportSvc ReportService
	log       *zap.Logger
	now       func() time.Time
}

func NewService(repo Repository, router *Router, kb *symptom.KnowledgeBase, tts Synthesizer, report ReportService, log *zap.Logger) Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &service{
		repo:      repo,
		router:    router,
		kb:        kb,
		tts:       tts,
		reportSvc: report,
		log:       log,
		now:       time.Now,
	}
}

// Consult answers a request and records it. Storage problems are logged and
// do not affect the answer.
func (s *service) Consult(ctx context.Context, req Request) *Consultation {
	start := s.now()
	res := s.router.Consult(ctx, req)

	c := &Consultation{
		ID:        uuid.New(),
		Symptoms:  append([]string{}, req.Symptoms...),
		HasAudio:  req.Audio != nil,
		HasImage:  req.Image != nil,
		Result:    res,
		CreatedAt: start.UTC(),
	}

	s.log.Info("consultation answered",
		zap.String("id", c.ID.String()),
		zap.String("path", string(res.Path)),
		zap.String("condition_id", res.ConditionID),
		zap.Bool("voice", res.Voice != nil),
		zap.Duration("took", s.now().Sub(start)),
	)

	if err := s.repo.Save(ctx, c); err != nil {
		s.log.Error("failed to save consultation", zap.String("id", c.ID.String()), zap.Error(err))
	}
	return c
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) Match(labels []string) MatchResult {
	set := symptom.Normalize(labels)
	out := MatchResult{Scores: s.kb.Scores(set)}
	if c, ok := s.kb.Match(set); ok {
		out.Condition = &c
	}
	return out
}

func (s *service) Catalog() []string {
	return s.kb.Catalog()
}

func (s *service) SynthesizeSpeech(ctx context.Context, text string) ([]byte, error) {
	if s.tts == nil {
		return nil, errNoSynthesizer
	}
	return s.tts.Synthesize(ctx, text)
}

func (s *service) Report(ctx context.Context, id uuid.UUID) ([]byte, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	pdf, err := s.reportSvc.Render(ctx, *c)
	if err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return pdf, nil
}

func (s *service) SendReport(ctx context.Context, id uuid.UUID) error {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.reportSvc.SendDoctorReport(ctx, *c); err != nil {
		return fmt.Errorf("send report: %w", err)
	}
	s.log.Info("report sent to doctor", zap.String("id", id.String()))
	return nil
}
