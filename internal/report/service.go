package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/signintech/gopdf"
	"go.uber.org/zap"

	"ai-doctor/internal/consultation"
	"ai-doctor/internal/symptom"
)

type TelegramClient interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendDocument(ctx context.Context, chatID int64, fileData []byte, fileName string) error
}

// DefaultFontPaths are the usual DejaVuSans locations on Debian and Alpine.
var DefaultFontPaths = []string{
	"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
}

const (
	fontName  = "DejaVu"
	textWidth = 500

	// A4 is 842pt high. Body text stops at bodyBottom and the
	// disclaimer sits below it on every page.
	pageTop    = 40
	bodyBottom = 770
	footerY    = 790
)

var ErrNoDoctorChat = errors.New("doctor chat is not configured")

type Service struct {
	tgClient     TelegramClient
	doctorChatID int64
	kb           *symptom.KnowledgeBase
	fontPaths    []string
	log          *zap.Logger
}

func NewService(tg TelegramClient, doctorChatID int64, kb *symptom.KnowledgeBase, fontPaths []string, log *zap.Logger) *Service {
	if len(fontPaths) == 0 {
		fontPaths = DefaultFontPaths
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		tgClient:     tg,
		doctorChatID: doctorChatID,
		kb:           kb,
		fontPaths:    fontPaths,
		log:          log,
	}
}

// Render lays out a PDF summary of a consultation. Long descriptions
// continue on further pages.
func (s *Service) Render(ctx context.Context, c consultation.Consultation) ([]byte, error) {
	pdf, err := s.layout(c)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *Service) layout(c consultation.Consultation) (*gopdf.GoPdf, error) {
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	if err := s.loadFont(pdf); err != nil {
		return nil, err
	}

	w := &writer{pdf: pdf}
	w.font(20)
	w.line("Consultation report (AI Doctor)")
	pdf.Br(30)

	w.font(12)
	w.line(fmt.Sprintf("Date: %s", c.CreatedAt.Format("02.01.2006 15:04")))
	w.line(fmt.Sprintf("Consultation ID: %s", c.ID))
	w.line(fmt.Sprintf("Answered by: %s", pathLabel(c.Path)))
	w.line(fmt.Sprintf("Inputs: %s", inputs(c)))
	pdf.Br(10)

	w.section("Selected symptoms:")
	if len(c.Symptoms) == 0 {
		w.paragraph("- None selected.")
	}
	for _, name := range symptom.CleanLabels(c.Symptoms) {
		w.paragraph("- " + name)
	}
	pdf.Br(10)

	w.section("Patient description:")
	w.paragraph(c.Summary)
	pdf.Br(10)

	w.section("Analysis:")
	w.paragraph(c.Diagnosis)

	if cond, ok := s.condition(c.ConditionID); ok {
		pdf.Br(10)
		w.section("Urgency:")
		w.paragraph(cond.Urgency)
	}

	w.footer()

	if w.err != nil {
		return nil, w.err
	}
	return pdf, nil
}

// SendDoctorReport renders the report and posts it to the doctor's chat.
func (s *Service) SendDoctorReport(ctx context.Context, c consultation.Consultation) error {
	if s.doctorChatID == 0 || s.tgClient == nil {
		return ErrNoDoctorChat
	}

	pdf, err := s.Render(ctx, c)
	if err != nil {
		return err
	}

	if cond, ok := s.condition(c.ConditionID); ok {
		msg := fmt.Sprintf("New consultation %s: %s (%s)", c.ID, cond.Condition, cond.Urgency)
		if err := s.tgClient.SendMessage(ctx, s.doctorChatID, msg); err != nil {
			s.log.Warn("failed to send report summary", zap.Error(err))
		}
	}

	fileName := fmt.Sprintf("report_%s.pdf", c.ID.String())
	s.log.Info("sending PDF report", zap.String("file", fileName), zap.Int64("chat_id", s.doctorChatID))
	return s.tgClient.SendDocument(ctx, s.doctorChatID, pdf, fileName)
}

func (s *Service) loadFont(pdf *gopdf.GoPdf) error {
	var fontErr error
	for _, path := range s.fontPaths {
		err := pdf.AddTTFFont(fontName, path)
		if err == nil {
			return nil
		}
		fontErr = err
	}
	return fmt.Errorf("failed to load font for PDF, install ttf-dejavu or set REPORT_FONT_PATH: %w", fontErr)
}

func (s *Service) condition(id string) (symptom.Condition, bool) {
	if id == "" || s.kb == nil {
		return symptom.Condition{}, false
	}
	return s.kb.Lookup(id)
}

// writer keeps the first layout error so Render can check once at the end.
type writer struct {
	pdf  *gopdf.GoPdf
	size float64
	err  error
}

func (w *writer) font(size float64) {
	if w.err != nil {
		return
	}
	w.size = size
	w.err = w.pdf.SetFont(fontName, "", size)
}

// ensure starts a new page when the next h points would cross bodyBottom.
func (w *writer) ensure(h float64) {
	if w.err != nil || w.pdf.GetY()+h <= bodyBottom {
		return
	}
	w.footer()
	w.pdf.AddPage()
	w.pdf.SetY(pageTop)
}

func (w *writer) footer() {
	if w.err != nil {
		return
	}
	size := w.size
	w.pdf.SetY(footerY)
	w.font(9)
	if w.err == nil {
		w.err = w.pdf.Cell(nil, "Educational use only. Not a substitute for professional medical advice.")
	}
	w.font(size)
}

func (w *writer) line(text string) {
	w.ensure(15)
	if w.err != nil {
		return
	}
	w.err = w.pdf.Cell(nil, plain(text))
	w.pdf.Br(15)
}

func (w *writer) section(title string) {
	w.font(14)
	w.line(title)
	w.font(11)
}

func (w *writer) paragraph(text string) {
	for _, raw := range strings.Split(plain(text), "\n") {
		if w.err != nil {
			return
		}
		if strings.TrimSpace(raw) == "" {
			w.pdf.Br(6)
			continue
		}
		lines, err := w.pdf.SplitText(raw, textWidth)
		if err != nil {
			w.err = err
			return
		}
		for _, l := range lines {
			if w.ensure(12); w.err != nil {
				return
			}
			if w.err = w.pdf.Cell(nil, l); w.err != nil {
				return
			}
			w.pdf.Br(12)
		}
	}
}

// plain drops pictographs the report font has no glyphs for.
func plain(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.Is(unicode.So, r) || unicode.Is(unicode.Variation_Selector, r) || r == '\u200d' {
			return -1
		}
		return r
	}, text)
}

func pathLabel(p consultation.Path) string {
	switch p {
	case consultation.PathPredefined:
		return "knowledge base (no model call)"
	case consultation.PathVision:
		return "vision model (image attached)"
	case consultation.PathText:
		return "language model"
	default:
		return string(p)
	}
}

func inputs(c consultation.Consultation) string {
	var parts []string
	if len(c.Symptoms) > 0 {
		parts = append(parts, "symptoms")
	}
	if c.HasAudio {
		parts = append(parts, "voice")
	}
	if c.HasImage {
		parts = append(parts, "image")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}
