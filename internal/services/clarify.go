// Clarification prompt assembly for the slot-filling protocol.

package services

import (
	"strings"

	"github.com/yunseo-dev/go-care-backend/internal/domain"
)

// Per-field clarification prompts, spoken back to the user by the app.
var clarificationPrompts = map[string]string{
	domain.FieldTime:        "언제 도움이 필요하신가요?",
	domain.FieldOrigin:      "어디에서 출발하시나요?",
	domain.FieldDestination: "어디로 가야 하나요?",
	domain.FieldMethod:      "차로 모셔다드릴까요, 아니면 걸어서 함께 가드릴까요?",
}

// apologyPrefix is prepended when a follow-up recording contained no speech
// and the previous question has to be asked again.
const apologyPrefix = "죄송해요, 잘 들리지 않았어요. "

// BuildClarification concatenates the fixed per-field prompts for the given
// missing fields, in the order they are listed (callers pass the fixed
// required-field order).
func BuildClarification(missing []string) string {
	parts := make([]string, 0, len(missing))
	for _, field := range missing {
		if p, ok := clarificationPrompts[field]; ok {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}
