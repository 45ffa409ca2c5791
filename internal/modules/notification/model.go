// README: Notification model and the mapping from domain events to user-facing messages.
package notification

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"medride/internal/events"
	"medride/internal/types"
)

var ErrNotFound = errors.New("notification not found")

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

var severityRank = map[Severity]int{
	SeverityInfo:    0,
	SeveritySuccess: 1,
	SeverityWarning: 2,
	SeverityError:   3,
}

// AtLeast reports whether s is as severe as min.
func (s Severity) AtLeast(min Severity) bool {
	return severityRank[s] >= severityRank[min]
}

type Notification struct {
	ID        types.ID    `json:"id"`
	Title     string      `json:"title"`
	Message   string      `json:"message"`
	Severity  Severity    `json:"severity"`
	Read      bool        `json:"read"`
	EventKind events.Kind `json:"event_kind"`
	Op        string      `json:"op"`
	SubjectID types.ID    `json:"subject_id,omitempty"`
	At        time.Time   `json:"at"`
}

var opTitles = map[string]string{
	"create":   "New transport request",
	"accept":   "Request accepted",
	"reject":   "Request declined",
	"cancel":   "Request cancelled",
	"start":    "Trip started",
	"complete": "Trip completed",
}

// FromEvent renders one notification for one domain event.
func FromEvent(e events.Event) Notification {
	n := Notification{
		ID:        types.NewID(),
		Severity:  SeverityInfo,
		EventKind: e.Kind,
		Op:        e.Op,
		SubjectID: e.SubjectID,
		At:        e.At,
	}
	if n.At.IsZero() {
		n.At = time.Now()
	}

	switch e.Kind {
	case events.KindTransition:
		n.Title = opTitles[e.Op]
		if n.Title == "" {
			n.Title = "Request updated"
		}
		n.Message = transitionMessage(e)
		if e.Op == "complete" {
			n.Severity = SeveritySuccess
		}
		if e.Op == "cancel" || e.Op == "reject" {
			n.Severity = SeverityWarning
		}
	case events.KindReward:
		n.Title = "Points earned"
		n.Severity = SeveritySuccess
		n.Message = fmt.Sprintf("+%v points for %s", e.Payload["points"], e.ActorID)
		if d, ok := e.Payload["description"].(string); ok && d != "" {
			n.Message += ": " + d
		}
	case events.KindTransitionFailed:
		n.Severity = SeverityError
		n.Title = fmt.Sprintf("Could not %s request", humanOp(e.Op))
		n.Message = e.Error
	case events.KindRewardFailed:
		n.Severity = SeverityError
		n.Title = "Reward not recorded"
		n.Message = fmt.Sprintf("%s: %s", humanOp(e.Op), e.Error)
	default:
		n.Title = string(e.Kind)
		n.Message = e.Op
	}
	return n
}

func transitionMessage(e events.Event) string {
	switch e.Op {
	case "create":
		return fmt.Sprintf("Request %s is waiting for a rider", e.SubjectID)
	case "accept":
		return fmt.Sprintf("Rider %s accepted request %s", e.ActorID, e.SubjectID)
	case "reject":
		return fmt.Sprintf("Request %s was declined", e.SubjectID)
	case "cancel":
		return fmt.Sprintf("Request %s was cancelled", e.SubjectID)
	case "start":
		return fmt.Sprintf("Rider is on the way with request %s", e.SubjectID)
	case "complete":
		return fmt.Sprintf("Request %s arrived at the destination", e.SubjectID)
	}
	return fmt.Sprintf("Request %s moved from %s to %s", e.SubjectID, e.From, e.To)
}

func humanOp(op string) string {
	if op == "" {
		return "process"
	}
	return strings.ReplaceAll(op, "_", " ")
}
