package config

import "time"

const (
	// MaxThoughtTitleLength fits in VARCHAR(255).
	MaxThoughtTitleLength = 255

	// MaxDescriptionLength bounds the optional thought description.
	MaxDescriptionLength = 2000

	// MaxVersionsPerThought caps non-core versions. The core version does
	// not count toward it.
	MaxVersionsPerThought = 10

	// StatusResetDelay is the quiet period after which the visible editor
	// status falls back to idle.
	StatusResetDelay = 2 * time.Second

	// TranscriptionPollInterval and TranscriptionMaxAttempts bound the
	// transcription poll loop to about two and a half minutes.
	TranscriptionPollInterval = 10 * time.Second
	TranscriptionMaxAttempts  = 15

	// DefaultSessionTTL expires editor sessions nobody has touched.
	DefaultSessionTTL = 30 * time.Minute

	// DefaultDictationRPM limits transcription and refinement calls per user.
	DefaultDictationRPM = 6

	// MaxLogFiles is how many log files SetupLogFile keeps.
	MaxLogFiles = 10

	// MaxDictationTextLength bounds text sent for refinement.
	MaxDictationTextLength = 20000
)
