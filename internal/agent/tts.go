package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ai-doctor/internal/consultation"
)

const (
	elevenLabsAPIURL   = "https://api.elevenlabs.io/v1/text-to-speech"
	defaultElevenVoice = "21m00Tcm4TlvDq8ikWAM" // Rachel
	DefaultLocalTTSURL = "http://tts:8000/synthesize"
)

type elevenLabsClient struct {
	apiKey     string
	voiceID    string
	baseURL    string
	httpClient *http.Client
}

func NewElevenLabsClient(apiKey, voiceID string) consultation.Synthesizer {
	if voiceID == "" {
		voiceID = defaultElevenVoice
	}
	return &elevenLabsClient{
		apiKey:  apiKey,
		voiceID: voiceID,
		baseURL: elevenLabsAPIURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type ttsRequest struct {
	Text          string `json:"text"`
	ModelID       string `json:"model_id"`
	VoiceSettings struct {
		Stability       float64 `json:"stability"`
		SimilarityBoost float64 `json:"similarity_boost"`
	} `json:"voice_settings"`
}

func (c *elevenLabsClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, c.voiceID)

	reqBody := ttsRequest{
		Text:    text,
		ModelID: "eleven_turbo_v2",
	}
	reqBody.VoiceSettings.Stability = 0.5
	reqBody.VoiceSettings.SimilarityBoost = 0.75

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", c.apiKey)

	return doAudioRequest(c.httpClient, req)
}

// localTTSClient talks to the self-hosted Silero service.
type localTTSClient struct {
	url        string
	httpClient *http.Client
}

func NewLocalTTSClient(url string) consultation.Synthesizer {
	if url == "" {
		url = DefaultLocalTTSURL
	}
	return &localTTSClient{
		url: url,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (c *localTTSClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	jsonBody, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return doAudioRequest(c.httpClient, req)
}

func doAudioRequest(client *http.Client, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("TTS request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("TTS API error: %s - %s", resp.Status, string(body))
	}
	return io.ReadAll(resp.Body)
}
