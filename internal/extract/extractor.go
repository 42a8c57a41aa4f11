// Package extract turns free-form transcripts into the structured task
// fields the request flow needs. The generative model is reached through the
// narrow Generator interface; prompt construction, code-fence stripping, and
// strict JSON parsing all live here so the rest of the application only ever
// sees domain.TaskFields or a typed parse error.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/yunseo-dev/go-care-backend/internal/domain"
)

// Generator produces text for a prompt. The production implementation wraps
// the Gemini API (see gemini.go); tests substitute a canned one.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ParseError reports that the model returned something that is not the JSON
// object the prompt demands. Callers must treat this as an upstream failure,
// never as "all fields missing".
type ParseError struct {
	Raw string // model output after code-fence stripping
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("extraction result is not valid JSON: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Extractor builds prompts, calls the Generator, and parses the result.
//
// Now is injected so relative date expressions ("내일 오후에") resolve against
// a known clock; it defaults to time.Now in NewExtractor.
type Extractor struct {
	Gen Generator
	Now func() time.Time
}

// NewExtractor returns an Extractor using the wall clock.
func NewExtractor(gen Generator) *Extractor {
	return &Extractor{Gen: gen, Now: time.Now}
}

const initialPromptFmt = `Analyze the following request from an elderly person and extract the key information.
The user making the request is likely in rural South Korea and speaks Korean.
The current date and time is %s. Resolve relative date or time expressions against it.
Respond ONLY with a valid JSON object with the following keys:
"time" (ISO-8601 string), "locationFrom", "locationTo", "method", "task_description".
"method" must be "차량" if a vehicle is needed, "도보" if walking, or null if not mentioned.
If a value is not mentioned, set it to null. Do not invent values.

Request: "%s"`

const mergePromptFmt = `An elderly person previously made the following request and is now answering a clarification question.
The current date and time is %s. Resolve relative date or time expressions against it.
Combine the original request, the already-extracted fields, and the follow-up answer
into one complete, best-effort field set. Reuse the prior answers and only change a
field when the follow-up clearly supplies or corrects it.
Respond ONLY with a valid JSON object with the following keys:
"time" (ISO-8601 string), "locationFrom", "locationTo", "method", "task_description".
"method" must be "차량" if a vehicle is needed, "도보" if walking, or null if still not mentioned.
If a value is still not known, set it to null. Do not invent values.

Original request: "%s"
Already-extracted fields: %s
Follow-up answer: "%s"`

// Fields extracts a structured field set from a single transcript.
func (e *Extractor) Fields(ctx context.Context, transcript string) (domain.TaskFields, error) {
	prompt := fmt.Sprintf(initialPromptFmt, e.now().Format(time.RFC3339), transcript)
	return e.generate(ctx, prompt)
}

// Merge re-extracts against the original transcript, the previously stored
// partial fields, and a follow-up answer, producing a merged field set.
func (e *Extractor) Merge(ctx context.Context, original string, prior domain.TaskFields, followUp string) (domain.TaskFields, error) {
	priorJSON, err := json.Marshal(prior)
	if err != nil {
		return domain.TaskFields{}, fmt.Errorf("encode prior fields: %w", err)
	}
	prompt := fmt.Sprintf(mergePromptFmt, e.now().Format(time.RFC3339), original, priorJSON, followUp)
	return e.generate(ctx, prompt)
}

func (e *Extractor) generate(ctx context.Context, prompt string) (domain.TaskFields, error) {
	out, err := e.Gen.Generate(ctx, prompt)
	if err != nil {
		return domain.TaskFields{}, fmt.Errorf("language model call: %w", err)
	}
	return ParseFields(out)
}

func (e *Extractor) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// ParseFields strips code-fence markers from raw model output and parses it
// strictly as the extraction schema. Malformed output yields a *ParseError.
func ParseFields(raw string) (domain.TaskFields, error) {
	cleaned := StripCodeFences(raw)
	var f domain.TaskFields
	if err := json.Unmarshal([]byte(cleaned), &f); err != nil {
		return domain.TaskFields{}, &ParseError{Raw: cleaned, Err: err}
	}
	return f, nil
}

// StripCodeFences removes a surrounding Markdown code fence, with or without
// a language tag, from model output. Content without fences is returned
// trimmed and otherwise untouched.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
