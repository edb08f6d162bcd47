package screening

import "fmt"

// Outcome is the closed set of admission decisions.
type Outcome string

const (
	OutcomeAllow  Outcome = "ALLOW"
	OutcomeBlock  Outcome = "BLOCK"
	OutcomeScreen Outcome = "SCREEN"
)

// Decision is one admission decision with its human-readable reason.
type Decision struct {
	Outcome Outcome
	Reason  string
}

func Allow(reason string) Decision  { return Decision{Outcome: OutcomeAllow, Reason: reason} }
func Block(reason string) Decision  { return Decision{Outcome: OutcomeBlock, Reason: reason} }
func Screen(reason string) Decision { return Decision{Outcome: OutcomeScreen, Reason: reason} }

// Evaluation is the full result of one evaluation, carrying what the
// telephony-facing layer needs beyond the decision itself.
type Evaluation struct {
	Decision  Decision
	Number    string // normalized, empty when anonymous
	Anonymous bool
	Score     float64
	Scored    bool // false on the emergency / known-contact fast paths
}

// IncomingCall is the wire format delivered by the telephony collaborator.
// Number is null for anonymous callers.
type IncomingCall struct {
	Number  *string `json:"number"`
	SimSlot int     `json:"sim_slot"`
}

// Action is the synchronous response to the telephony collaborator.
type Action string

const (
	ActionAllow   Action = "allow"
	ActionSilence Action = "silence"
	ActionReject  Action = "reject"
	ActionBot     Action = "bot"
)

// ScreenResponse is the reply to a screening request.
type ScreenResponse struct {
	Action Action `json:"action"`
	Reason string `json:"reason"`
}

func scoreReason(score float64) string {
	return fmt.Sprintf("score=%.2f", score)
}
