package services

import (
	"context"

	"thoughtbox/internal/domain/models/doctree"
)

// Transcriber turns recorded audio into text.
type Transcriber interface {
	// Transcribe blocks until the job completes, fails or runs out of
	// polling attempts.
	Transcribe(ctx context.Context, audioURL string) (string, error)
}

// Refiner rewrites dictated text into a structured document.
type Refiner interface {
	Refine(ctx context.Context, text string) (doctree.Document, error)
}
