// This file implements RequestService, the orchestrator of the voice request
// flow. An initial submission is transcribed, run through field extraction,
// and either finalized (reward points, transactional ID allocation, push
// notification) or parked as a pending request together with a clarification
// question. Follow-up turns merge new answers into the stored partial state
// until every required field is present.
//
// All collaborators are reached through the narrow interfaces below so the
// protocol can be tested without cloud services.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// requester and pending identifiers.

package services

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yunseo-dev/go-care-backend/internal/domain"
	"github.com/yunseo-dev/go-care-backend/internal/store"
)

var (
	requestsFinalized = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "care_requests_finalized_total",
		Help: "Voice requests finalized with an allocated ID.",
	})
	requestsIncomplete = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "care_requests_incomplete_total",
		Help: "Voice submissions parked pending clarification.",
	})
)

func init() {
	prometheus.MustRegister(requestsFinalized, requestsIncomplete)
}

//
// Collaborator contracts (context-aware)
//

// Recognizer converts audio bytes to a transcript; empty means no speech.
type Recognizer interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// FieldExtractor turns transcripts into structured task fields, either from
// scratch or by merging a follow-up answer into prior partial state.
type FieldExtractor interface {
	Fields(ctx context.Context, transcript string) (domain.TaskFields, error)
	Merge(ctx context.Context, original string, prior domain.TaskFields, followUp string) (domain.TaskFields, error)
}

// Allocator persists finalized requests under transactionally allocated
// sequential IDs and can undo the most recent allocation.
type Allocator interface {
	AllocateAndStore(ctx context.Context, r domain.Request) (string, error)
	DeleteMostRecent(ctx context.Context) (string, error)
}

// PendingStore keeps partial submissions between clarification turns.
type PendingStore interface {
	Create(ctx context.Context, p domain.PendingRequest) (string, error)
	Get(ctx context.Context, id string) (*domain.PendingRequest, error)
	Update(ctx context.Context, id string, partial domain.TaskFields, missing []string, clarification string) error
	Delete(ctx context.Context, id string) error
}

// Notifier announces a finalized request to volunteer devices, best-effort.
type Notifier interface {
	NotifyVolunteers(ctx context.Context, requestID, summary string)
}

// Outcome is the result of a submission turn: either a finalized request ID,
// or a pending ID with the fields still missing and the question to ask.
type Outcome struct {
	RequestID     string   `json:"request_id,omitempty"`
	PendingID     string   `json:"pending_request_id,omitempty"`
	Missing       []string `json:"missing_fields,omitempty"`
	Clarification string   `json:"clarification_prompt_text,omitempty"`
}

// Finalized reports whether the turn produced a stored request.
func (o Outcome) Finalized() bool { return o.RequestID != "" }

// RequestService drives the slot-filling protocol.
type RequestService struct {
	Speech  Recognizer
	Extract FieldExtractor
	Alloc   Allocator
	Pending PendingStore
	Notify  Notifier
	Scoring ScoringPolicy
}

// NewRequestService wires the orchestrator with the current scoring policy.
func NewRequestService(sp Recognizer, ex FieldExtractor, al Allocator, pe PendingStore, no Notifier, sc ScoringPolicy) *RequestService {
	if sc == nil {
		sc = MethodScoring{}
	}
	return &RequestService{Speech: sp, Extract: ex, Alloc: al, Pending: pe, Notify: no, Scoring: sc}
}

// SubmitInitial handles a fresh voice submission. Transcription and
// extraction failures abort the call; missing required fields park the
// submission as a PendingRequest instead.
func (s *RequestService) SubmitInitial(ctx context.Context, requesterID string, audio []byte) (Outcome, error) {
	tr := otel.Tracer("services/RequestService")
	ctx, span := tr.Start(ctx, "SubmitInitial",
		trace.WithAttributes(attribute.String("requester.id", requesterID)),
	)
	defer span.End()

	if len(audio) == 0 {
		return Outcome{}, ErrEmptyAudio
	}
	transcript, err := s.Speech.Transcribe(ctx, audio)
	if err != nil {
		return Outcome{}, fmt.Errorf("transcription: %w", err)
	}
	if transcript == "" {
		return Outcome{}, ErrNoSpeech
	}

	fields, err := s.Extract.Fields(ctx, transcript)
	if err != nil {
		return Outcome{}, err
	}

	missing := fields.MissingFields()
	if len(missing) == 0 {
		return s.finalize(ctx, requesterID, transcript, fields)
	}

	clarification := BuildClarification(missing)
	pendingID, err := s.Pending.Create(ctx, domain.PendingRequest{
		RequesterID:   requesterID,
		Partial:       fields,
		Missing:       missing,
		Transcript:    transcript,
		Clarification: clarification,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("store pending request: %w", err)
	}
	requestsIncomplete.Inc()
	return Outcome{PendingID: pendingID, Missing: missing, Clarification: clarification}, nil
}

// SubmitFollowUp handles one clarification turn against a stored pending
// request. A recording that transcribes to nothing is not an error: the
// previous question is re-asked with an apology and the pending state is
// left untouched.
func (s *RequestService) SubmitFollowUp(ctx context.Context, requesterID, pendingID string, audio []byte) (Outcome, error) {
	tr := otel.Tracer("services/RequestService")
	ctx, span := tr.Start(ctx, "SubmitFollowUp",
		trace.WithAttributes(
			attribute.String("requester.id", requesterID),
			attribute.String("pending.id", pendingID),
		),
	)
	defer span.End()

	pending, err := s.Pending.Get(ctx, pendingID)
	if err != nil {
		return Outcome{}, err
	}
	if pending.RequesterID != requesterID {
		// A pending session is only visible to the account that opened it.
		return Outcome{}, fmt.Errorf("pending request %s: %w", pendingID, store.ErrPendingNotFound)
	}

	if len(audio) == 0 {
		return Outcome{}, ErrEmptyAudio
	}
	transcript, err := s.Speech.Transcribe(ctx, audio)
	if err != nil {
		return Outcome{}, fmt.Errorf("transcription: %w", err)
	}
	if transcript == "" {
		return Outcome{
			PendingID:     pendingID,
			Missing:       pending.Missing,
			Clarification: apologyPrefix + pending.Clarification,
		}, nil
	}

	merged, err := s.Extract.Merge(ctx, pending.Transcript, pending.Partial, transcript)
	if err != nil {
		return Outcome{}, err
	}

	missing := merged.MissingFields()
	if len(missing) == 0 {
		out, err := s.finalize(ctx, pending.RequesterID, pending.Transcript, merged)
		if err != nil {
			return Outcome{}, err
		}
		if derr := s.Pending.Delete(ctx, pendingID); derr != nil {
			// The request is committed; a stale pending doc is a cleanup
			// concern, not a failure of this turn.
			log.Warn().Err(derr).Str("pending_id", pendingID).Msg("could not delete promoted pending request")
		}
		return out, nil
	}

	clarification := BuildClarification(missing)
	if err := s.Pending.Update(ctx, pendingID, merged, missing, clarification); err != nil {
		return Outcome{}, fmt.Errorf("update pending request: %w", err)
	}
	return Outcome{PendingID: pendingID, Missing: missing, Clarification: clarification}, nil
}

// UndoLast removes the most recently finalized request and rolls the
// counter back. It proxies the allocator so handlers stay transport-thin.
func (s *RequestService) UndoLast(ctx context.Context) (string, error) {
	tr := otel.Tracer("services/RequestService")
	ctx, span := tr.Start(ctx, "UndoLast")
	defer span.End()
	return s.Alloc.DeleteMostRecent(ctx)
}

// finalize scores the request, allocates its ID transactionally, and fires
// the best-effort volunteer notification.
func (s *RequestService) finalize(ctx context.Context, requesterID, transcript string, fields domain.TaskFields) (Outcome, error) {
	req := domain.Request{
		RequesterID: requesterID,
		Status:      domain.StatusWaiting,
		Transcript:  transcript,
		Task:        fields,
		Method:      fields.TransportMethod(),
		Points:      s.Scoring.Score(fields),
	}
	id, err := s.Alloc.AllocateAndStore(ctx, req)
	if err != nil {
		return Outcome{}, fmt.Errorf("allocate request: %w", err)
	}
	requestsFinalized.Inc()
	s.Notify.NotifyVolunteers(ctx, id, transcript)
	return Outcome{RequestID: id}, nil
}
