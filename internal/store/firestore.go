// Package store implements the Firestore persistence layer: the transactional
// request/counter allocator, the pending-request store, and the volunteer
// directory. All document layout knowledge (collection names, the counter
// singleton) is kept in this package.
package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// Firestore layout.
const (
	CollectionRequests = "requests"
	CollectionCounters = "counters"
	CollectionPending  = "pending_requests"
	CollectionUsers    = "users"

	// RequestCounterDoc is the singleton counter document ID.
	RequestCounterDoc = "request_counter"
)

// OpenApp initializes the Firebase app once and hands out the two clients
// this service uses. The caller owns closing the Firestore client.
func OpenApp(ctx context.Context, projectID, credentialsFile string) (*firestore.Client, *messaging.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	var conf *firebase.Config
	if projectID != "" {
		conf = &firebase.Config{ProjectID: projectID}
	}
	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("init firebase app: %w", err)
	}

	fs, err := app.Firestore(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("init firestore client: %w", err)
	}
	msg, err := app.Messaging(ctx)
	if err != nil {
		fs.Close()
		return nil, nil, fmt.Errorf("init messaging client: %w", err)
	}
	return fs, msg, nil
}
