// Counter-backed ID allocation.
//
// Sequential request IDs come from the counters/request_counter document.
// The counter read, the ID computation, and the request write always share
// one Firestore transaction, so concurrent submissions can never produce a
// gap or a duplicate: Firestore retries the whole function on conflict.
//
// The transaction body is written against the narrow txHandle seam rather
// than *firestore.Transaction directly, which keeps the allocation and
// undo logic testable without a live emulator.

package store

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/yunseo-dev/go-care-backend/internal/domain"
)

var (
	// ErrNothingToDelete is returned by DeleteMostRecent when the counter is
	// already at zero.
	ErrNothingToDelete = errors.New("no request to delete")

	// ErrInconsistentCounter is returned when the counter points at a request
	// document that does not exist. The counter is still decremented in the
	// same transaction to repair the drift, and the caller is told.
	ErrInconsistentCounter = errors.New("request counter is inconsistent with the requests collection")
)

// txHandle is the slice of a storage transaction the allocator needs: read
// and replace the counter, and write or delete a request document under it.
type txHandle interface {
	Counter() (domain.RequestCounter, error)
	PutCounter(domain.RequestCounter) error
	PutRequest(id string, r domain.Request) error
	RequestExists(id string) (bool, error)
	DeleteRequest(id string) error
}

// allocate assigns the next sequential ID to r and writes both the request
// and the advanced counter through tx.
func allocate(tx txHandle, r domain.Request) (string, error) {
	c, err := tx.Counter()
	if err != nil {
		return "", fmt.Errorf("read counter: %w", err)
	}
	next := c.LastID + 1
	id := domain.RequestID(next)

	if err := tx.PutRequest(id, r); err != nil {
		return "", fmt.Errorf("write request %s: %w", id, err)
	}
	if err := tx.PutCounter(domain.RequestCounter{LastID: next}); err != nil {
		return "", fmt.Errorf("advance counter: %w", err)
	}
	return id, nil
}

// deleteLast removes the most recently allocated request and rolls the
// counter back by one. When the counter points at a missing document the
// counter is still decremented (the repair must commit) and
// ErrInconsistentCounter is reported alongside.
func deleteLast(tx txHandle) (id string, healed error, err error) {
	c, err := tx.Counter()
	if err != nil {
		return "", nil, fmt.Errorf("read counter: %w", err)
	}
	if c.LastID <= 0 {
		return "", nil, ErrNothingToDelete
	}
	id = domain.RequestID(c.LastID)

	exists, err := tx.RequestExists(id)
	if err != nil {
		return "", nil, fmt.Errorf("check request %s: %w", id, err)
	}
	if err := tx.PutCounter(domain.RequestCounter{LastID: c.LastID - 1}); err != nil {
		return "", nil, fmt.Errorf("roll back counter: %w", err)
	}
	if !exists {
		return id, fmt.Errorf("%w: counter says %s but the document is missing", ErrInconsistentCounter, id), nil
	}
	if err := tx.DeleteRequest(id); err != nil {
		return "", nil, fmt.Errorf("delete request %s: %w", id, err)
	}
	return id, nil, nil
}

// Allocator runs the allocation logic inside Firestore transactions.
type Allocator struct {
	client *firestore.Client
}

// NewAllocator returns an Allocator bound to the given Firestore client.
func NewAllocator(client *firestore.Client) *Allocator {
	return &Allocator{client: client}
}

// AllocateAndStore writes r under the next sequential request ID and returns
// that ID. Counter and request are committed atomically; Firestore retries
// the transaction on conflict, so callers see either full success or an error.
func (a *Allocator) AllocateAndStore(ctx context.Context, r domain.Request) (string, error) {
	var id string
	err := a.client.RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
		var err error
		id, err = allocate(&firestoreTx{client: a.client, tx: tx}, r)
		return err
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// DeleteMostRecent undoes the latest allocation. It fails with
// ErrNothingToDelete when the counter is at zero, and with
// ErrInconsistentCounter when the counter had to be repaired because the
// corresponding request document was already gone (the repair still commits).
func (a *Allocator) DeleteMostRecent(ctx context.Context) (string, error) {
	var id string
	var healed error
	err := a.client.RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
		healed = nil // the function may rerun on conflict
		var err error
		id, healed, err = deleteLast(&firestoreTx{client: a.client, tx: tx})
		return err
	})
	if err != nil {
		return "", err
	}
	if healed != nil {
		return id, healed
	}
	return id, nil
}

// firestoreTx adapts *firestore.Transaction to txHandle.
type firestoreTx struct {
	client *firestore.Client
	tx     *firestore.Transaction
}

func (f *firestoreTx) counterRef() *firestore.DocumentRef {
	return f.client.Collection(CollectionCounters).Doc(RequestCounterDoc)
}

func (f *firestoreTx) requestRef(id string) *firestore.DocumentRef {
	return f.client.Collection(CollectionRequests).Doc(id)
}

// Counter reads the singleton counter; a missing document means zero.
func (f *firestoreTx) Counter() (domain.RequestCounter, error) {
	snap, err := f.tx.Get(f.counterRef())
	if status.Code(err) == codes.NotFound {
		return domain.RequestCounter{}, nil
	}
	if err != nil {
		return domain.RequestCounter{}, err
	}
	var c domain.RequestCounter
	if err := snap.DataTo(&c); err != nil {
		return domain.RequestCounter{}, err
	}
	return c, nil
}

func (f *firestoreTx) PutCounter(c domain.RequestCounter) error {
	return f.tx.Set(f.counterRef(), c)
}

func (f *firestoreTx) PutRequest(id string, r domain.Request) error {
	return f.tx.Set(f.requestRef(id), r)
}

func (f *firestoreTx) RequestExists(id string) (bool, error) {
	_, err := f.tx.Get(f.requestRef(id))
	if status.Code(err) == codes.NotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (f *firestoreTx) DeleteRequest(id string) error {
	return f.tx.Delete(f.requestRef(id))
}
