package report

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-doctor/internal/consultation"
	"ai-doctor/internal/symptom"
)

type fakeTelegram struct {
	messages []string
	docs     map[string][]byte
}

func (f *fakeTelegram) SendMessage(_ context.Context, _ int64, text string) error {
	f.messages = append(f.messages, text)
	return nil
}

func (f *fakeTelegram) SendDocument(_ context.Context, _ int64, data []byte, name string) error {
	if f.docs == nil {
		f.docs = map[string][]byte{}
	}
	f.docs[name] = data
	return nil
}

func availableFont(t *testing.T) string {
	t.Helper()
	for _, p := range DefaultFontPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	t.Skip("DejaVuSans.ttf not installed")
	return ""
}

func sampleConsultation() consultation.Consultation {
	c, _ := symptom.Default().Lookup("fever_cold")
	return consultation.Consultation{
		ID:       uuid.New(),
		Symptoms: []string{"🤒 Fever", "🤧 Cough/Cold", "🥴 Fatigue"},
		Result: consultation.Result{
			Summary:     "Patient reports symptoms: Fever, Cough/Cold, Fatigue. ",
			Diagnosis:   consultation.QuickDetection(c),
			Path:        consultation.PathPredefined,
			ConditionID: c.ID,
		},
		CreatedAt: time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC),
	}
}

func TestPlainStripsPictographs(t *testing.T) {
	assert.Equal(t, " QUICK DETECTION: Flu", plain("🚨 QUICK DETECTION: Flu"))
	assert.Equal(t, " URGENCY: Low", plain("⚠️ URGENCY: Low"))
	assert.Equal(t, "Cough/Cold", plain("Cough/Cold"))
}

func TestInputs(t *testing.T) {
	c := sampleConsultation()
	c.HasImage = true
	assert.Equal(t, "symptoms, image", inputs(c))
	assert.Equal(t, "none", inputs(consultation.Consultation{}))
}

func TestSendDoctorReportWithoutChat(t *testing.T) {
	s := NewService(&fakeTelegram{}, 0, symptom.Default(), nil, nil)
	err := s.SendDoctorReport(context.Background(), sampleConsultation())
	assert.ErrorIs(t, err, ErrNoDoctorChat)
}

func TestRenderMissingFont(t *testing.T) {
	s := NewService(nil, 0, nil, []string{"/nonexistent/font.ttf"}, nil)
	_, err := s.Render(context.Background(), sampleConsultation())
	assert.ErrorContains(t, err, "failed to load font")
}

func TestRender(t *testing.T) {
	font := availableFont(t)
	s := NewService(nil, 0, symptom.Default(), []string{font}, nil)

	pdf, err := s.Render(context.Background(), sampleConsultation())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}

func TestRenderLongSummaryAddsPages(t *testing.T) {
	font := availableFont(t)
	s := NewService(nil, 0, symptom.Default(), []string{font}, nil)
	c := sampleConsultation()
	c.Summary = strings.Repeat("The pain started in the lower back and moved to the left leg over two days. ", 90)
	require.Greater(t, len(c.Summary), 6000)

	pdf, err := s.layout(c)
	require.NoError(t, err)
	assert.Greater(t, pdf.GetNumberOfPages(), 1)
	assert.LessOrEqual(t, pdf.GetY(), float64(footerY+15))

	out, err := s.Render(context.Background(), c)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestRenderShortReportFitsOnePage(t *testing.T) {
	font := availableFont(t)
	s := NewService(nil, 0, symptom.Default(), []string{font}, nil)

	pdf, err := s.layout(sampleConsultation())
	require.NoError(t, err)
	assert.Equal(t, 1, pdf.GetNumberOfPages())
}

func TestSendDoctorReport(t *testing.T) {
	font := availableFont(t)
	tg := &fakeTelegram{}
	s := NewService(tg, 99, symptom.Default(), []string{font}, nil)
	c := sampleConsultation()

	require.NoError(t, s.SendDoctorReport(context.Background(), c))
	require.Len(t, tg.messages, 1)
	assert.Contains(t, tg.messages[0], "Common Cold or Viral Infection")
	assert.Contains(t, tg.docs, "report_"+c.ID.String()+".pdf")
}
