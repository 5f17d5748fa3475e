package service

import (
	"context"
	"fmt"
	"sync"

	"shiftlog/internal/i18n"
	"shiftlog/internal/logging"
	"shiftlog/internal/mattermost"
	"shiftlog/internal/model"
)

// Event names a session transition that is announced to the team.
type Event string

const (
	EventCheckedIn    Event = "checked_in"
	EventBreakStarted Event = "break_started"
	EventBreakEnded   Event = "break_ended"
	EventCheckedOut   Event = "checked_out"
)

// Notifier announces accepted session transitions. Failures are the
// notifier's own business and never affect the transition.
type Notifier interface {
	Notify(ctx context.Context, event Event, rec *model.AttendanceRecord, data map[string]any)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Event, *model.AttendanceRecord, map[string]any) {}

// postCreator is the part of the Mattermost client the notifier uses.
type postCreator interface {
	CreatePost(ctx context.Context, post *mattermost.Post) (*mattermost.Post, error)
}

// MattermostNotifier posts transitions to a channel. The check-in post of a
// session becomes the thread root for its later events. Threads of sessions
// from earlier shift days are forgotten once a later day is announced, so
// sessions that are never checked out do not pile up.
type MattermostNotifier struct {
	mm        postCreator
	channelID string
	locale    string
	log       logging.Logger

	mu    sync.Mutex
	roots map[string]thread // by record ID
}

type thread struct {
	rootID    string
	shiftDate string
}

func NewMattermostNotifier(mm postCreator, channelID, locale string, log logging.Logger) *MattermostNotifier {
	return &MattermostNotifier{
		mm:        mm,
		channelID: channelID,
		locale:    locale,
		log:       log.With("component", "mattermost_notifier"),
		roots:     make(map[string]thread),
	}
}

func (n *MattermostNotifier) Notify(ctx context.Context, event Event, rec *model.AttendanceRecord, data map[string]any) {
	msgCtx := i18n.WithLocale(ctx, n.locale)
	post := &mattermost.Post{
		ChannelID: n.channelID,
		Message:   i18n.T(msgCtx, "notify."+string(event), data),
	}

	n.mu.Lock()
	n.prune(rec.ShiftDate)
	post.RootID = n.roots[rec.ID].rootID
	n.mu.Unlock()

	if event == EventCheckedOut {
		post.Props.Attachments = []mattermost.Attachment{{
			Color: "#2e7d32",
			Fields: []mattermost.Field{
				{Title: "Date", Value: rec.ShiftDate, Short: true},
				{Title: "Hours", Value: fmt.Sprint(data["Hours"]), Short: true},
				{Title: "Breaks", Value: fmt.Sprint(data["Break"]), Short: true},
			},
		}}
	}

	created, err := n.mm.CreatePost(ctx, post)
	if err != nil {
		n.log.Warn(ctx, "notification failed", "event", event, "user", rec.User, "error", err)
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	switch {
	case event == EventCheckedOut:
		delete(n.roots, rec.ID)
	case post.RootID == "":
		n.roots[rec.ID] = thread{rootID: created.ID, shiftDate: rec.ShiftDate}
	}
}

// prune must be called with mu held. Shift dates are ISO dates, so string
// order is date order.
func (n *MattermostNotifier) prune(shiftDate string) {
	for id, th := range n.roots {
		if th.shiftDate < shiftDate {
			delete(n.roots, id)
		}
	}
}
