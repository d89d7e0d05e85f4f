// Package dashboard builds per-session views over the ranked snapshot and
// routes operator interactions to the selection reducer and the assistant.
package dashboard

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/rescue-triage-service/internal/briefing"
	"github.com/couchcryptid/rescue-triage-service/internal/chat"
	"github.com/couchcryptid/rescue-triage-service/internal/domain"
	"github.com/couchcryptid/rescue-triage-service/internal/pipeline"
	"github.com/couchcryptid/rescue-triage-service/internal/selection"
	"github.com/couchcryptid/rescue-triage-service/internal/session"
)

// SnapshotProvider returns the current ranked snapshot.
type SnapshotProvider interface {
	Snapshot(ctx context.Context) pipeline.Snapshot
	Refresh(ctx context.Context) pipeline.Snapshot
}

// SessionStore opens, looks up and closes operator sessions.
type SessionStore interface {
	Create() *session.Session
	Get(id string) (*session.Session, error)
	Delete(id string) error
}

// Options are the fixed view settings.
type Options struct {
	Rescuer     domain.Coordinates
	FocusZoom   int
	ContextTopN int
}

// ChatReply is the answer to one prompt together with the refreshed history.
type ChatReply struct {
	Reply   string         `json:"reply"`
	History []chat.Message `json:"history"`
}

// Service serves dashboards for sessions.
type Service struct {
	snapshots SnapshotProvider
	sessions  SessionStore
	responder chat.Responder
	opts      Options
	logger    *slog.Logger
}

// NewService creates a Service.
func NewService(snapshots SnapshotProvider, sessions SessionStore, responder chat.Responder, opts Options, logger *slog.Logger) *Service {
	return &Service{
		snapshots: snapshots,
		sessions:  sessions,
		responder: responder,
		opts:      opts,
		logger:    logger,
	}
}

// NewSession opens a session and returns its first dashboard.
func (s *Service) NewSession(ctx context.Context) Dashboard {
	sess := s.sessions.Create()
	s.logger.Info("session opened", "session_id", sess.ID)

	var d Dashboard
	sess.Do(func(sel *selection.State, _ *chat.History) {
		d = s.render(sess.ID, s.snapshots.Snapshot(ctx), *sel)
	})
	return d
}

// CloseSession discards a session with its selection and chat history.
func (s *Service) CloseSession(id string) error {
	if err := s.sessions.Delete(id); err != nil {
		return err
	}
	s.logger.Info("session closed", "session_id", id)
	return nil
}

// Dashboard returns the current dashboard of a session.
func (s *Service) Dashboard(ctx context.Context, id string) (Dashboard, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return Dashboard{}, err
	}
	var d Dashboard
	sess.Do(func(sel *selection.State, _ *chat.History) {
		d = s.render(sess.ID, s.snapshots.Snapshot(ctx), *sel)
	})
	return d, nil
}

// MapClick selects the marker at the clicked coordinates.
func (s *Service) MapClick(ctx context.Context, id string, lat, lon float64) (Dashboard, error) {
	return s.apply(ctx, id, selection.MapClicked{Lat: lat, Lon: lon})
}

// ListClick selects a row of the displayed list and focuses the map on it.
func (s *Service) ListClick(ctx context.Context, id string, row int) (Dashboard, error) {
	return s.apply(ctx, id, selection.ListClicked{Row: row})
}

func (s *Service) apply(ctx context.Context, id string, ev selection.Event) (Dashboard, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return Dashboard{}, err
	}

	var d Dashboard
	sess.Do(func(sel *selection.State, _ *chat.History) {
		snap := s.snapshots.Snapshot(ctx)
		visible := present(snap.Individuals)
		next, changed := selection.Apply(*sel, ev, selection.View{
			Markers:   visible,
			Rows:      visible,
			FocusZoom: s.opts.FocusZoom,
		})
		if changed {
			*sel = next
			s.logger.Debug("selection changed", "session_id", id, "selected_id", next.SelectedID, "epoch", next.RenderEpoch)
		}
		d = s.render(id, snap, *sel)
	})
	return d, nil
}

// History returns the visible chat turns of a session.
func (s *Service) History(id string) ([]chat.Message, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	var msgs []chat.Message
	sess.Do(func(_ *selection.State, history *chat.History) {
		msgs = history.Messages()
	})
	return msgs, nil
}

// Chat answers prompt using a briefing of the current snapshot and selection.
func (s *Service) Chat(ctx context.Context, id, prompt string) (ChatReply, error) {
	return s.chat(ctx, id, prompt, nil)
}

// ChatStream is Chat with the reply delivered incrementally to onDelta.
func (s *Service) ChatStream(ctx context.Context, id, prompt string, onDelta func(string) error) (ChatReply, error) {
	return s.chat(ctx, id, prompt, onDelta)
}

func (s *Service) chat(ctx context.Context, id, prompt string, onDelta func(string) error) (ChatReply, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return ChatReply{}, err
	}

	var out ChatReply
	sess.Do(func(sel *selection.State, history *chat.History) {
		snap := s.snapshots.Snapshot(ctx)
		brief := briefing.Assemble(snap.Individuals, sel.SelectedID, s.opts.ContextTopN)
		if onDelta != nil {
			out.Reply = s.responder.RespondStream(ctx, prompt, brief, history, onDelta)
		} else {
			out.Reply = s.responder.Respond(ctx, prompt, brief, history)
		}
		out.History = history.Messages()
	})
	return out, nil
}

// Refresh reloads the snapshot now and reports its state.
func (s *Service) Refresh(ctx context.Context) pipeline.Snapshot {
	return s.snapshots.Refresh(ctx)
}

func (s *Service) render(id string, snap pipeline.Snapshot, sel selection.State) Dashboard {
	m, l := build(snap, sel, s.opts.Rescuer)
	return Dashboard{
		SessionID: id,
		Status:    snap.Status,
		Reason:    snap.Reason,
		Provider:  snap.Provider,
		LoadedAt:  snap.LoadedAt,
		Metrics:   countsFor(snap.Individuals),
		Map:       m,
		List:      l,
	}
}
