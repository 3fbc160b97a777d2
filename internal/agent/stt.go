package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"

	"ai-doctor/internal/consultation"
)

// DefaultWhisperURL is the local Whisper service (same container as the TTS service).
const DefaultWhisperURL = "http://tts:8000/transcribe"

type whisperClient struct {
	url        string
	httpClient *http.Client
}

func NewWhisperClient(url string) consultation.Transcriber {
	if url == "" {
		url = DefaultWhisperURL
	}
	return &whisperClient{
		url: url,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type sttResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

func (c *whisperClient) Transcribe(ctx context.Context, audioData []byte) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(audioData); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("STT request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("STT API error: %s - %s", resp.Status, string(respBody))
	}

	var result sttResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode STT response: %w", err)
	}
	return strings.TrimSpace(result.Text), nil
}

// recognizer is the part of the Cloud Speech client we use.
type recognizer interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest, opts ...gax.CallOption) (*speechpb.RecognizeResponse, error)
}

// GoogleSTTClient transcribes WAV or FLAC recordings with Cloud Speech-to-Text.
type GoogleSTTClient struct {
	client   *speech.Client
	rec      recognizer
	language string
}

func NewGoogleSTTClient(ctx context.Context, credentialsFile, language string) (*GoogleSTTClient, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize speech client: %w", err)
	}
	if language == "" {
		language = "en-US"
	}
	return &GoogleSTTClient{client: client, rec: client, language: language}, nil
}

func (c *GoogleSTTClient) Transcribe(ctx context.Context, audioData []byte) (string, error) {
	req := &speechpb.RecognizeRequest{
		// Encoding and sample rate are read from the WAV/FLAC header.
		Config: &speechpb.RecognitionConfig{
			LanguageCode:               c.language,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{
				Content: audioData,
			},
		},
	}

	resp, err := c.rec.Recognize(ctx, req)
	if err != nil {
		return "", fmt.Errorf("speech recognition failed: %w", err)
	}

	var transcript strings.Builder
	for _, result := range resp.GetResults() {
		alts := result.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		// Alternatives are ordered by confidence.
		transcript.WriteString(alts[0].GetTranscript())
		transcript.WriteString(" ")
	}
	return strings.TrimSpace(transcript.String()), nil
}

func (c *GoogleSTTClient) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}
