// Volunteer directory reads.

package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/yunseo-dev/go-care-backend/internal/domain"
)

// VolunteerDirectory is a read-only view over users/ restricted to what the
// notifier needs: push tokens of accounts flagged as volunteers.
type VolunteerDirectory struct {
	client *firestore.Client
}

// NewVolunteerDirectory returns a directory bound to the given client.
func NewVolunteerDirectory(client *firestore.Client) *VolunteerDirectory {
	return &VolunteerDirectory{client: client}
}

// Tokens returns the non-empty FCM tokens of all volunteer accounts.
func (d *VolunteerDirectory) Tokens(ctx context.Context) ([]string, error) {
	iter := d.client.Collection(CollectionUsers).
		Where("role", "==", domain.RoleVolunteer).
		Documents(ctx)
	defer iter.Stop()

	var tokens []string
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list volunteers: %w", err)
		}
		var u domain.User
		if err := snap.DataTo(&u); err != nil {
			continue // skip malformed user docs
		}
		if u.FCMToken != "" {
			tokens = append(tokens, u.FCMToken)
		}
	}
	return tokens, nil
}
