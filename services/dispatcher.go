package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"journal-review-api/models"

	"go.uber.org/zap"
)

// Mailer sends one HTML message.
type Mailer interface {
	SendMail(to []string, subject, html string) error
}

type defaultMessage struct {
	Title string
	Body  string
}

// defaultMessages are used when no active template exists for an event and audience.
var defaultMessages = map[EventKind]map[string]defaultMessage{
	EventManuscriptSubmitted: {
		"editor": {"New submission: {{title}}", "A new {{article_type}} manuscript \"{{title}}\" is waiting for triage. Triage is due by {{triage_deadline}}."},
		"author": {"Submission received", "Your manuscript \"{{title}}\" has been received and will be screened by the editorial office."},
	},
	EventTriageDecision: {
		"author": {"Triage decision: {{title}}", "The editorial office recorded the decision \"{{decision}}\" for \"{{title}}\".\n\n{{letter}}"},
	},
	EventEditorDecision: {
		"author": {"Editorial decision: {{title}}", "The editor recorded the decision \"{{decision}}\" for \"{{title}}\".\n\n{{letter}}"},
	},
	EventRevisionSubmitted: {
		"editor": {"Revision received: {{title}}", "Revision {{revision_number}} of \"{{title}}\" was uploaded and returned to {{returned_to}}."},
	},
	EventStageOverridden: {
		"author": {"Manuscript status changed", "The status of \"{{title}}\" was changed from {{from}} to {{stage}}."},
	},
	EventArticlePublished: {
		"author": {"Article published", "Congratulations, \"{{title}}\" has been published."},
	},
	EventReviewerInvited: {
		"reviewer": {"Review invitation: {{title}}", "You have been invited to review \"{{title}}\". Please respond and submit your review by {{due_date}}."},
	},
	EventReviewAccepted: {
		"editor": {"Review invitation accepted", "A reviewer accepted the invitation for \"{{title}}\"."},
	},
	EventReviewDeclined: {
		"editor": {"Review invitation declined", "A reviewer declined the invitation for \"{{title}}\"."},
	},
	EventReviewSubmitted: {
		"editor": {"Review submitted: {{title}}", "A review of \"{{title}}\" was submitted with the recommendation {{recommendation}}."},
	},
	EventReviewOverdue: {
		"reviewer": {"Review overdue: {{title}}", "Your review of \"{{title}}\" was due on {{due_date}}."},
		"editor":   {"Review overdue: {{title}}", "A review of \"{{title}}\" was due on {{due_date}} and is still {{status}}."},
	},
	EventTriageOverdue: {
		"editor": {"Triage overdue: {{title}}", "Triage of \"{{title}}\" was due on {{triage_deadline}}."},
	},
}

var eventNotificationType = map[EventKind]models.NotificationType{
	EventArticlePublished: models.NotificationSuccess,
	EventReviewOverdue:    models.NotificationWarning,
	EventTriageOverdue:    models.NotificationWarning,
	EventReviewDeclined:   models.NotificationWarning,
}

func applyTemplatePlaceholders(text string, data map[string]string) string {
	result := text
	for key, value := range data {
		result = strings.ReplaceAll(result, "{{"+key+"}}", value)
	}
	return result
}

func audienceFor(u *models.User) string {
	role, _ := ResolveRole(u)
	switch role {
	case RoleAuthor:
		return "author"
	case RoleReviewer:
		return "reviewer"
	default:
		return "editor"
	}
}

// Dispatcher delivers committed events as in-app notifications and email.
// Delivery runs in the background and failures are only logged.
type Dispatcher struct {
	users   UserDirectory
	store   NotificationStore
	mailer  Mailer
	log     *zap.Logger
	metrics *Metrics
	baseURL string

	wg sync.WaitGroup
}

type DispatcherOptions struct {
	Logger  *zap.Logger
	Metrics *Metrics
	// BaseURL is linked from emails; empty disables the button.
	BaseURL string
}

func NewDispatcher(users UserDirectory, store NotificationStore, mailer Mailer, opts DispatcherOptions) *Dispatcher {
	d := &Dispatcher{
		users:   users,
		store:   store,
		mailer:  mailer,
		log:     opts.Logger,
		metrics: opts.Metrics,
		baseURL: strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
	}
	if d.log == nil {
		d.log = zap.NewNop()
	}
	return d
}

func (d *Dispatcher) Dispatch(ctx context.Context, events []Event) {
	if len(events) == 0 {
		return
	}
	ctx = persistentContext(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for _, e := range events {
			d.deliver(ctx, e)
		}
	}()
}

// Wait blocks until every dispatched batch has been delivered.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) recipients(ctx context.Context, e Event) []models.User {
	seen := make(map[uint]bool)
	var out []models.User
	for _, id := range e.UserIDs {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		u, err := d.users.GetUser(ctx, id)
		if err != nil {
			d.log.Warn("notification recipient not found", zap.Uint("user_id", id), zap.Error(err))
			continue
		}
		out = append(out, *u)
	}
	if len(e.Roles) > 0 {
		users, err := d.users.ListByRoles(ctx, e.Roles)
		if err != nil {
			d.log.Warn("failed to resolve notification roles", zap.String("event", string(e.Kind)), zap.Error(err))
		}
		for _, u := range users {
			if seen[u.UserID] {
				continue
			}
			seen[u.UserID] = true
			out = append(out, u)
		}
	}
	return out
}

func (d *Dispatcher) render(ctx context.Context, kind EventKind, audience string, data map[string]string) (defaultMessage, bool) {
	if d.store != nil {
		tmpl, err := d.store.Template(ctx, string(kind), audience)
		if err == nil {
			return defaultMessage{
				Title: applyTemplatePlaceholders(tmpl.TitleTemplate, data),
				Body:  applyTemplatePlaceholders(tmpl.BodyTemplate, data),
			}, true
		}
	}
	msg, ok := defaultMessages[kind][audience]
	if !ok {
		return defaultMessage{}, false
	}
	return defaultMessage{
		Title: applyTemplatePlaceholders(msg.Title, data),
		Body:  applyTemplatePlaceholders(msg.Body, data),
	}, true
}

func (d *Dispatcher) deliver(ctx context.Context, e Event) {
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}
	for _, u := range d.recipients(ctx, e) {
		audience := e.Data["audience"]
		if audience == "" {
			audience = audienceFor(&u)
		}
		msg, ok := d.render(ctx, e.Kind, audience, e.Data)
		if !ok {
			continue
		}

		if d.store != nil {
			n := &models.Notification{
				UserID:   u.UserID,
				Title:    msg.Title,
				Message:  msg.Body,
				Type:     models.NotificationInfo,
				EventKey: string(e.Kind),
				CreateAt: at,
			}
			if t, ok := eventNotificationType[e.Kind]; ok {
				n.Type = t
			}
			if e.ManuscriptID != 0 {
				id := e.ManuscriptID
				n.RelatedManuscriptID = &id
			}
			if err := d.store.Create(ctx, n); err != nil {
				d.metrics.notification("in_app", "failed")
				d.log.Warn("failed to store notification",
					zap.String("event", string(e.Kind)),
					zap.Uint("user_id", u.UserID),
					zap.Error(err),
				)
			} else {
				d.metrics.notification("in_app", "sent")
			}
		}

		if d.mailer != nil && strings.TrimSpace(u.Email) != "" {
			d.sendMail(e, &u, msg)
		}
	}
}

func (d *Dispatcher) sendMail(e Event, u *models.User, msg defaultMessage) {
	buttonURL := ""
	if d.baseURL != "" && e.ManuscriptID != 0 {
		buttonURL = fmt.Sprintf("%s/manuscripts/%d", d.baseURL, e.ManuscriptID)
	}
	meta := []emailMetaItem{{Label: "Manuscript", Value: e.Data["title"]}}
	if due := e.Data["due_date"]; due != "" {
		meta = append(meta, emailMetaItem{Label: "Due date", Value: due})
	}
	html := buildEmailTemplate(msg.Title, "Dear "+u.Name()+",", []string{msg.Body}, meta,
		"Open in the journal", buttonURL, "This message was sent automatically by the editorial system.")

	if err := d.mailer.SendMail([]string{u.Email}, msg.Title, html); err != nil {
		d.metrics.notification("email", "failed")
		d.log.Warn("notification email send failed",
			zap.String("event", string(e.Kind)),
			zap.String("subject", msg.Title),
			zap.Uint("user_id", u.UserID),
			zap.Error(err),
		)
		return
	}
	d.metrics.notification("email", "sent")
}

// NotificationAudiences are the send_to values templates are keyed by.
var NotificationAudiences = []string{"author", "reviewer", "editor"}

// DefaultTemplate returns the built-in title and body for an event and
// audience.
func DefaultTemplate(eventKey, audience string) (title, body string, ok bool) {
	msg, ok := defaultMessages[EventKind(eventKey)][audience]
	return msg.Title, msg.Body, ok
}
