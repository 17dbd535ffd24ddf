package ai

import (
	"context"
	"io"

	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"
)

// SpeechService turns reply text into voice audio for personas running in
// voice mode.
type SpeechService struct {
	client *openai.Client
	model  openai.SpeechModel
	voice  openai.SpeechVoice
}

// NewSpeechService creates a speech service sharing the LLM client config.
func NewSpeechService(cfg *Config) *SpeechService {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &SpeechService{
		client: openai.NewClientWithConfig(clientConfig),
		model:  openai.TTSModel1,
		voice:  openai.VoiceNova,
	}
}

// Synthesize renders text to MP3 bytes.
func (s *SpeechService) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          s.model,
		Input:          text,
		Voice:          s.voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, errors.Wrap(err, "speech synthesis failed")
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read audio stream")
	}
	return audio, nil
}
