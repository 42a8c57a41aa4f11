// Pending-request storage.

package store

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/yunseo-dev/go-care-backend/internal/domain"
)

// ErrPendingNotFound is returned when a pending request ID is unknown,
// whether it never existed or an external cleanup already removed it.
var ErrPendingNotFound = errors.New("pending request not found")

// PendingStore keeps incomplete submissions under pending_requests/{uuid}
// until the slot-filling conversation completes or abandons them. Expiry of
// abandoned entries is owned by an external scheduled cleanup.
type PendingStore struct {
	client *firestore.Client
}

// NewPendingStore returns a PendingStore bound to the given client.
func NewPendingStore(client *firestore.Client) *PendingStore {
	return &PendingStore{client: client}
}

func (s *PendingStore) doc(id string) *firestore.DocumentRef {
	return s.client.Collection(CollectionPending).Doc(id)
}

// Create persists p under a freshly generated opaque ID and returns that ID.
func (s *PendingStore) Create(ctx context.Context, p domain.PendingRequest) (string, error) {
	id := uuid.NewString()
	if _, err := s.doc(id).Create(ctx, p); err != nil {
		return "", fmt.Errorf("create pending request: %w", err)
	}
	return id, nil
}

// Get loads a pending request by ID, or ErrPendingNotFound.
func (s *PendingStore) Get(ctx context.Context, id string) (*domain.PendingRequest, error) {
	snap, err := s.doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrPendingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get pending request: %w", err)
	}
	var p domain.PendingRequest
	if err := snap.DataTo(&p); err != nil {
		return nil, fmt.Errorf("decode pending request: %w", err)
	}
	p.ID = snap.Ref.ID
	return &p, nil
}

// Update replaces the partial field set, missing-field list, and stored
// clarification wholesale after a follow-up turn. The transcript and
// creation timestamp are left untouched.
func (s *PendingStore) Update(ctx context.Context, id string, partial domain.TaskFields, missing []string, clarification string) error {
	_, err := s.doc(id).Update(ctx, []firestore.Update{
		{Path: "partialFields", Value: partial},
		{Path: "missingFields", Value: missing},
		{Path: "clarification", Value: clarification},
	})
	if status.Code(err) == codes.NotFound {
		return ErrPendingNotFound
	}
	if err != nil {
		return fmt.Errorf("update pending request: %w", err)
	}
	return nil
}

// Delete removes a pending request. Deleting an already-absent document is
// not an error; promotion and cleanup may race.
func (s *PendingStore) Delete(ctx context.Context, id string) error {
	if _, err := s.doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("delete pending request: %w", err)
	}
	return nil
}
