// Package audio turns speech recordings into text documents by
// transcribing them and correcting the transcript's spelling.
package audio

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/coworker/internal/core/domain"
	"github.com/custodia-labs/coworker/internal/core/ports/driven"
	"github.com/custodia-labs/coworker/internal/logger"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// MaxAudioBytes is the largest upload the transcription API accepts.
const MaxAudioBytes = 25 << 20

// MetaTranscribed marks documents whose text came from speech.
const MetaTranscribed = "transcribed"

// Config wires the normaliser to its services.
type Config struct {
	Transcriber driven.Transcriber

	// LLM corrects the raw transcript. Nil skips correction.
	LLM driven.LLMService

	// FixPrompt is the system prompt for correction.
	FixPrompt string

	// Temperature for correction; zero keeps the output deterministic.
	Temperature float64
}

// Normaliser handles audio files.
type Normaliser struct {
	cfg Config
}

// New creates an audio normaliser.
func New(cfg Config) *Normaliser {
	return &Normaliser{cfg: cfg}
}

// Kind returns the content variant.
func (n *Normaliser) Kind() domain.ContentKind {
	return domain.ContentAudio
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"audio/flac",
		"audio/mp4",
		"audio/mpeg",
		"audio/ogg",
		"audio/wav",
		"audio/x-wav",
		"audio/webm",
		"video/mp4",
		"video/webm",
	}
}

// SupportedExtensions returns the file extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{"flac", "mp3", "mp4", "mpeg", "mpga", "m4a", "ogg", "oga", "wav", "webm"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise transcribes the recording into one document.
// Silence (an empty transcript) yields no documents.
func (n *Normaliser) Normalise(ctx context.Context, file *domain.FileUpload) ([]domain.Document, error) {
	if file == nil {
		return nil, fmt.Errorf("%w: file is nil", domain.ErrValidation)
	}
	if n.cfg.Transcriber == nil {
		return nil, fmt.Errorf("%w: no transcriber configured", domain.ErrNotImplemented)
	}
	if len(file.Data) > MaxAudioBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit is %d",
			domain.ErrValidation, file.Name, len(file.Data), MaxAudioBytes)
	}

	transcript, err := n.cfg.Transcriber.Transcribe(ctx, file.Name, file.Data)
	if err != nil {
		return nil, fmt.Errorf("transcribe %s: %w", file.Name, err)
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		logger.Debug("audio: %s produced an empty transcript", file.Name)
		return nil, nil
	}

	text, err := n.correct(ctx, transcript)
	if err != nil {
		return nil, fmt.Errorf("correct transcript of %s: %w", file.Name, err)
	}

	doc := file.NewDocument(text, n.Kind())
	doc.Metadata[MetaTranscribed] = true
	return []domain.Document{doc}, nil
}

func (n *Normaliser) correct(ctx context.Context, transcript string) (string, error) {
	if n.cfg.LLM == nil {
		return transcript, nil
	}
	fixed, err := n.cfg.LLM.Chat(ctx, []driven.ChatMessage{
		{Role: "system", Content: n.cfg.FixPrompt},
		{Role: "user", Content: transcript},
	}, driven.ChatOptions{Temperature: n.cfg.Temperature})
	if err != nil {
		return "", err
	}
	if fixed = strings.TrimSpace(fixed); fixed == "" {
		return transcript, nil
	}
	return fixed, nil
}
