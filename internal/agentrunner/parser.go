package agentrunner

import (
	"strings"

	"github.com/revisoria/deliberation/internal/domain"
)

// parseDecision extracts the decision label from a model's free-text
// response. When the response already carries a
// structured Decision (the reference ModelPort implementations set this
// directly), that value is trusted outright; parseDecision only handles
// the fallback path where a model's raw text must be classified.
//
// If the label cannot be determined, the stage is treated as
// request_info and the raw text is recorded as the reasoning.
func parseDecision(text string) domain.Decision {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "decision: approve"), strings.Contains(lower, "decision:approve"):
		return domain.DecisionApprove
	case strings.Contains(lower, "decision: reject"), strings.Contains(lower, "decision:reject"):
		return domain.DecisionReject
	case strings.Contains(lower, "decision: request_info"), strings.Contains(lower, "decision:request_info"):
		return domain.DecisionRequestInfo
	case strings.Contains(lower, "approve") && !strings.Contains(lower, "do not approve") && !strings.Contains(lower, "cannot approve"):
		return domain.DecisionApprove
	case strings.Contains(lower, "reject"):
		return domain.DecisionReject
	default:
		return domain.DecisionRequestInfo
	}
}
