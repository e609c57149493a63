package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"journal-review-api/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	to      []string
	subject string
	html    string
}

type captureMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *captureMailer) SendMail(to []string, subject, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, html: html})
	return nil
}

func TestDispatcherDeliversSubmissionEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	notes := NewMemoryNotificationStore()
	mailer := &captureMailer{}
	d := NewDispatcher(f.users, notes, mailer, DispatcherOptions{BaseURL: "https://journal.example.org/"})

	res, err := f.journal.Workflow.SubmitManuscript(ctx, f.author, validSubmission())
	require.NoError(t, err)
	d.Dispatch(ctx, res.Events)
	d.Wait()

	editorNotes, err := notes.List(ctx, f.editor.UserID, false, 10, 0)
	require.NoError(t, err)
	require.Len(t, editorNotes, 1)
	require.Equal(t, "New submission: "+res.Manuscript.Title, editorNotes[0].Title)
	require.Equal(t, string(EventManuscriptSubmitted), editorNotes[0].EventKey)
	require.Equal(t, res.Manuscript.ManuscriptID, *editorNotes[0].RelatedManuscriptID)
	require.NotContains(t, editorNotes[0].Message, "Ada")

	eicNotes, err := notes.List(ctx, f.eic.UserID, true, 10, 0)
	require.NoError(t, err)
	require.Len(t, eicNotes, 1)

	authorNotes, err := notes.List(ctx, f.author.UserID, false, 10, 0)
	require.NoError(t, err)
	require.Len(t, authorNotes, 1)
	require.Equal(t, "Submission received", authorNotes[0].Title)

	managingNotes, err := notes.List(ctx, f.managing.UserID, false, 10, 0)
	require.NoError(t, err)
	require.Empty(t, managingNotes)

	require.Len(t, mailer.sent, 3)
	var authorMail *sentMail
	for i := range mailer.sent {
		if mailer.sent[i].to[0] == "ada@example.org" {
			authorMail = &mailer.sent[i]
		}
	}
	require.NotNil(t, authorMail)
	require.Contains(t, authorMail.html, "Dear Ada Author,")
	require.True(t, strings.Contains(authorMail.html, "https://journal.example.org/manuscripts/"))
}

func TestDispatcherPrefersStoredTemplates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	notes := NewMemoryNotificationStore()
	notes.PutTemplate(models.NotificationMessage{
		EventKey:      string(EventReviewerInvited),
		SendTo:        "reviewer",
		TitleTemplate: "Invitation ({{review_round}})",
		BodyTemplate:  "Due {{due_date}}",
		IsActive:      true,
	})
	d := NewDispatcher(f.users, notes, nil, DispatcherOptions{})

	m := f.inReview(t)
	inv, err := f.journal.Reviews.Invite(ctx, f.editor, m.ManuscriptID, f.reviewer.UserID, InviteOptions{})
	require.NoError(t, err)
	d.Dispatch(ctx, inv.Events)
	d.Wait()

	items, err := notes.List(ctx, f.reviewer.UserID, false, 10, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "Invitation (1)", items[0].Title)
	require.Equal(t, "Due "+inv.Review.DueDate.Format("2006-01-02"), items[0].Message)

	count, err := notes.CountUnread(ctx, f.reviewer.UserID)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
	require.NoError(t, notes.MarkRead(ctx, f.reviewer.UserID, items[0].NotificationID))
	count, err = notes.CountUnread(ctx, f.reviewer.UserID)
	require.NoError(t, err)
	require.Zero(t, count)
	require.ErrorIs(t, notes.MarkRead(ctx, f.editor.UserID, items[0].NotificationID), ErrRecordNotFound)
}

func TestDispatcherSwallowsMailFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	notes := NewMemoryNotificationStore()
	d := NewDispatcher(f.users, notes, &captureMailer{err: errors.New("smtp down")}, DispatcherOptions{Metrics: metrics})

	d.Dispatch(ctx, []Event{{
		Kind:         EventArticlePublished,
		ManuscriptID: 1,
		UserIDs:      []uint{f.author.UserID, 404},
		Data:         map[string]string{"title": "Reproducible pipelines"},
	}})
	d.Wait()

	items, err := notes.List(ctx, f.author.UserID, false, 10, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, models.NotificationSuccess, items[0].Type)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.notifications.WithLabelValues("email", "failed")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.notifications.WithLabelValues("in_app", "sent")))
}

func TestApplyTemplatePlaceholders(t *testing.T) {
	out := applyTemplatePlaceholders("{{title}} due {{due_date}} {{missing}}", map[string]string{
		"title":    "Paper",
		"due_date": "2026-03-23",
	})
	require.Equal(t, "Paper due 2026-03-23 {{missing}}", out)
}

func TestMemoryTemplateAdmin(t *testing.T) {
	ctx := context.Background()
	notes := NewMemoryNotificationStore()
	tmpl := &models.NotificationMessage{EventKey: "review_submitted", SendTo: "editor", TitleTemplate: "T", BodyTemplate: "B", IsActive: false}
	require.NoError(t, notes.SaveTemplate(ctx, tmpl))
	require.NotZero(t, tmpl.ID)

	_, err := notes.Template(ctx, "review_submitted", "editor")
	require.ErrorIs(t, err, ErrRecordNotFound)

	tmpl.IsActive = true
	require.NoError(t, notes.SaveTemplate(ctx, tmpl))
	got, err := notes.Template(ctx, "review_submitted", "editor")
	require.NoError(t, err)
	require.Equal(t, "T", got.TitleTemplate)

	active := true
	items, err := notes.ListTemplates(ctx, TemplateFilter{IsActive: &active})
	require.NoError(t, err)
	require.Len(t, items, 1)

	require.ErrorIs(t, notes.SaveTemplate(ctx, &models.NotificationMessage{ID: 99}), ErrRecordNotFound)

	title, body, ok := DefaultTemplate(string(EventReviewerInvited), "reviewer")
	require.True(t, ok)
	require.Contains(t, title, "{{title}}")
	require.Contains(t, body, "{{due_date}}")
	_, _, ok = DefaultTemplate(string(EventReviewerInvited), "author")
	require.False(t, ok)
}
