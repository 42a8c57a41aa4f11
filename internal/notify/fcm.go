// Package notify fans out push notifications to registered volunteer
// devices. Delivery is strictly best-effort: per-token failures are counted
// and logged, and nothing in this package ever fails the request flow that
// triggered the notification.
package notify

import (
	"context"
	"unicode/utf8"

	"firebase.google.com/go/v4/messaging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var (
	pushSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "care_push_messages_sent_total",
		Help: "Push messages accepted by FCM.",
	})
	pushFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "care_push_messages_failed_total",
		Help: "Push messages rejected by FCM, per token.",
	})
)

func init() {
	prometheus.MustRegister(pushSent, pushFailed)
}

// maxBodyRunes caps the transcript excerpt shown in the notification body.
const maxBodyRunes = 50

// MulticastSender is the slice of the FCM client the notifier uses.
type MulticastSender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// TokenSource enumerates the push tokens to deliver to.
type TokenSource interface {
	Tokens(ctx context.Context) ([]string, error)
}

// VolunteerNotifier sends one multicast push per finalized request.
type VolunteerNotifier struct {
	Sender MulticastSender
	Tokens TokenSource
}

// NewVolunteerNotifier wires the FCM client to the volunteer directory.
func NewVolunteerNotifier(sender MulticastSender, tokens TokenSource) *VolunteerNotifier {
	return &VolunteerNotifier{Sender: sender, Tokens: tokens}
}

// NotifyVolunteers pushes a new-request notification to every registered
// volunteer device. Failures are logged and counted, never returned: the
// parent request has already been committed and must not be affected.
func (n *VolunteerNotifier) NotifyVolunteers(ctx context.Context, requestID, summary string) {
	tokens, err := n.Tokens.Tokens(ctx)
	if err != nil {
		log.Error().Err(err).Str("request_id", requestID).Msg("could not enumerate volunteer tokens")
		return
	}
	if len(tokens) == 0 {
		log.Info().Str("request_id", requestID).Msg("no volunteer tokens registered, skipping push")
		return
	}

	msg := &messaging.MulticastMessage{
		Notification: &messaging.Notification{
			Title: "New Help Request!",
			Body:  "A new request is available: " + excerpt(summary),
		},
		Data: map[string]string{
			"requestId":    requestID,
			"click_action": "FLUTTER_NOTIFICATION_CLICK",
		},
		Tokens: tokens,
	}

	resp, err := n.Sender.SendEachForMulticast(ctx, msg)
	if err != nil {
		pushFailed.Add(float64(len(tokens)))
		log.Error().Err(err).Str("request_id", requestID).Msg("push multicast failed")
		return
	}
	pushSent.Add(float64(resp.SuccessCount))
	pushFailed.Add(float64(resp.FailureCount))
	log.Info().
		Str("request_id", requestID).
		Int("success", resp.SuccessCount).
		Int("failure", resp.FailureCount).
		Msg("volunteer push sent")
}

// excerpt returns the first maxBodyRunes runes of s, with an ellipsis when
// truncated.
func excerpt(s string) string {
	if utf8.RuneCountInString(s) <= maxBodyRunes {
		return s
	}
	return string([]rune(s)[:maxBodyRunes]) + "..."
}
