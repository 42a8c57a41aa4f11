// Package services implements the request orchestration logic: the
// slot-filling protocol over transcription and field extraction, reward
// scoring, and finalization through the transactional allocator.
// This file centralizes service-level error values so they can be returned
// consistently and mapped to HTTP responses at the handler layer.
package services

import "errors"

var (
	// ErrEmptyAudio is returned when a submission carries no audio bytes.
	ErrEmptyAudio = errors.New("audio is empty")

	// ErrNoSpeech is returned when the provider transcribed nothing on an
	// initial submission. On follow-up turns the same condition re-prompts
	// instead of failing.
	ErrNoSpeech = errors.New("no speech recognized")
)
