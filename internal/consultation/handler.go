package consultation

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxUploadSize bounds the multipart body of a consultation (audio + image).
const maxUploadSize = 10 << 20

type Handler struct {
	svc Service
	log *zap.Logger
}

func NewHandler(svc Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, log: log}
}

type ConsultationResponse struct {
	ID          string `json:"id"`
	Summary     string `json:"summary"`
	Diagnosis   string `json:"diagnosis"`
	Path        Path   `json:"path"`
	ConditionID string `json:"condition_id,omitempty"`
	AudioBase64 string `json:"audio_base64"`
	AudioMIME   string `json:"audio_mime,omitempty"`
}

func newConsultationResponse(c *Consultation) ConsultationResponse {
	resp := ConsultationResponse{
		ID:          c.ID.String(),
		Summary:     c.Summary,
		Diagnosis:   c.Diagnosis,
		Path:        c.Path,
		ConditionID: c.ConditionID,
	}
	if c.Voice != nil {
		resp.AudioBase64 = base64.StdEncoding.EncodeToString(c.Voice.Audio)
		resp.AudioMIME = c.Voice.MIMEType
	}
	return resp
}

func (h *Handler) ListSymptoms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{
		"symptoms": h.svc.Catalog(),
	})
}

type MatchRequest struct {
	Symptoms []string `json:"symptoms"`
}

func (h *Handler) MatchSymptoms(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Match(req.Symptoms))
}

// CreateConsultation accepts a multipart form with optional "audio" and
// "image" files and any number of "symptoms" fields.
func (h *Handler) CreateConsultation(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	var req Request
	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			http.Error(w, "Invalid multipart form", http.StatusBadRequest)
			return
		}

		audio, header, err := readFormFile(r, "audio")
		if err != nil {
			http.Error(w, "Error retrieving audio file", http.StatusBadRequest)
			return
		}
		if audio != nil {
			req.Audio = &Audio{Data: audio, Filename: header.Filename}
		}

		image, header, err := readFormFile(r, "image")
		if err != nil {
			http.Error(w, "Error retrieving image file", http.StatusBadRequest)
			return
		}
		if image != nil {
			req.Image = &Image{Data: image, MIMEType: imageMIME(header, image)}
		}

		req.Symptoms = r.MultipartForm.Value["symptoms"]
	} else {
		// JSON bodies carry symptoms only.
		var body MatchRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		req.Symptoms = body.Symptoms
	}

	c := h.svc.Consult(r.Context(), req)
	writeJSON(w, http.StatusOK, newConsultationResponse(c))
}

func (h *Handler) GetConsultation(w http.ResponseWriter, r *http.Request) {
	c, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) GetVoice(w http.ResponseWriter, r *http.Request) {
	c, ok := h.load(w, r)
	if !ok {
		return
	}
	if c.Voice == nil {
		http.Error(w, "No voice response for this consultation", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", c.Voice.MIMEType)
	w.Write(c.Voice.Audio)
}

func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	pdf, err := h.svc.Report(r.Context(), id)
	if err != nil {
		h.fail(w, "Report generation failed", err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="report_`+id.String()+`.pdf"`)
	w.Write(pdf)
}

func (h *Handler) SendReport(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.svc.SendReport(r.Context(), id); err != nil {
		h.fail(w, "Report delivery failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

type TTSRequest struct {
	Text string `json:"text"`
}

func (h *Handler) HandleTTS(w http.ResponseWriter, r *http.Request) {
	var req TTSRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	audioData, err := h.svc.SynthesizeSpeech(r.Context(), req.Text)
	if err != nil {
		h.log.Warn("tts failed", zap.Error(err))
		http.Error(w, "TTS failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Write(audioData)
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (*Consultation, bool) {
	id, ok := parseID(w, r)
	if !ok {
		return nil, false
	}
	c, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "Failed to load consultation", err)
		return nil, false
	}
	return c, true
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if errors.Is(err, ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	h.log.Error(msg, zap.Error(err))
	http.Error(w, msg+": "+err.Error(), http.StatusInternalServerError)
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid consultation ID", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// readFormFile returns nil data and no error when the field is absent.
func readFormFile(r *http.Request, field string) ([]byte, *multipart.FileHeader, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		return nil, nil, err
	}
	if buf.Len() == 0 {
		return nil, nil, nil
	}
	return buf.Bytes(), header, nil
}

func imageMIME(header *multipart.FileHeader, data []byte) string {
	if ct := header.Header.Get("Content-Type"); strings.HasPrefix(ct, "image/") {
		return ct
	}
	return http.DetectContentType(data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func RegisterRoutes(r chi.Router, h *Handler, limit func(http.Handler) http.Handler) {
	r.Get("/symptoms", h.ListSymptoms)
	r.Post("/symptoms/match", h.MatchSymptoms)

	r.Group(func(r chi.Router) {
		if limit != nil {
			r.Use(limit)
		}
		r.Post("/consultation", h.CreateConsultation)
		r.Post("/tts", h.HandleTTS)
	})

	r.Get("/consultation/{id}", h.GetConsultation)
	r.Get("/consultation/{id}/voice", h.GetVoice)
	r.Get("/consultation/{id}/report", h.GetReport)
	r.Post("/consultation/{id}/report/send", h.SendReport)
}
