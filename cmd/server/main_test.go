package main

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"ai-doctor/config"
)

type recordingCloser struct {
	name  string
	order *[]string
	err   error
}

func (c recordingCloser) Close() error {
	*c.order = append(*c.order, c.name)
	return c.err
}

func TestCloseAllReverseOrder(t *testing.T) {
	var order []string
	closers := []io.Closer{
		recordingCloser{name: "gemini", order: &order},
		recordingCloser{name: "redis", order: &order, err: errors.New("already closed")},
		recordingCloser{name: "speech", order: &order},
	}

	closeAll(closers, zap.NewNop())

	assert.Equal(t, []string{"speech", "redis", "gemini"}, order)
}

func TestNewAnalyzerWithoutKey(t *testing.T) {
	var closers []io.Closer

	a := newAnalyzer(context.Background(), config.Config{}, zap.NewNop(), &closers)

	assert.Nil(t, a)
	assert.Empty(t, closers)
}

func TestNewTranscriberWhisperNeedsNoClose(t *testing.T) {
	var closers []io.Closer

	stt := newTranscriber(context.Background(), config.Config{STTProvider: "whisper", WhisperURL: "http://localhost:9000"}, zap.NewNop(), &closers)

	assert.NotNil(t, stt)
	assert.Empty(t, closers)
}
