package services

import (
	"context"
	"time"
)

// EventKind names a post-operation side effect.
type EventKind string

const (
	EventManuscriptSubmitted EventKind = "manuscript_submitted"
	EventTriageDecision      EventKind = "triage_decision"
	EventEditorDecision      EventKind = "editor_decision"
	EventRevisionSubmitted   EventKind = "revision_submitted"
	EventStageOverridden     EventKind = "stage_overridden"
	EventArticlePublished    EventKind = "article_published"
	EventReviewerInvited     EventKind = "reviewer_invited"
	EventReviewAccepted      EventKind = "review_accepted"
	EventReviewDeclined      EventKind = "review_declined"
	EventReviewSubmitted     EventKind = "review_submitted"
	EventReviewOverdue       EventKind = "review_overdue"
	EventTriageOverdue       EventKind = "triage_overdue"
)

// Event is returned by core operations for the caller to act on after the
// operation committed. Recipients are explicit users and/or whole roles.
type Event struct {
	Kind         EventKind
	ManuscriptID uint
	ReviewID     uint
	DecisionID   uint
	ActorID      uint
	UserIDs      []uint
	Roles        []Role
	Data         map[string]string
	At           time.Time
}

// EventSink receives committed events. Implementations must not block the
// caller on delivery and must never report failures back.
type EventSink interface {
	Dispatch(ctx context.Context, events []Event)
}

// DiscardEvents is an EventSink that drops everything.
type DiscardEvents struct{}

func (DiscardEvents) Dispatch(context.Context, []Event) {}

var editorialRoles = []Role{RoleEditor, RoleEditorInChief}
