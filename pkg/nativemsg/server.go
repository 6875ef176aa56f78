package nativemsg

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/devraulu/tabseek/pkg/grouping"
	"github.com/devraulu/tabseek/pkg/omnibox"
	"github.com/devraulu/tabseek/pkg/resolve"
)

// Incoming message types.
const (
	TypeStart     = "start"
	TypeChanged   = "changed"
	TypeEntered   = "entered"
	TypeCancelled = "cancelled"
	TypeGroup     = "group"
)

// Outgoing message types.
const (
	TypeDefault = "default"
	TypeSuggest = "suggest"
	TypeAction  = "action"
	TypeGroups  = "groups"
	TypeError   = "error"
)

type Request struct {
	Type  string `json:"type"`
	Query string `json:"query,omitempty"`
	Text  string `json:"text,omitempty"`
}

type Response struct {
	Type        string               `json:"type"`
	Session     string               `json:"session,omitempty"`
	Query       string               `json:"query,omitempty"`
	Description string               `json:"description,omitempty"`
	Suggestions []omnibox.Suggestion `json:"suggestions,omitempty"`
	Loading     bool                 `json:"loading,omitempty"`
	Action      *resolve.Action      `json:"action,omitempty"`
	Groups      []grouping.Group     `json:"groups,omitempty"`
	Error       string               `json:"error,omitempty"`
}

type Controller interface {
	Start(ctx context.Context) string
	Accept(ctx context.Context, query string) omnibox.Keystroke
	Suggest(ctx context.Context, k omnibox.Keystroke, emit func(omnibox.Update))
	Entered(ctx context.Context, text string) resolve.Action
	Cancelled()
}

type Grouper interface {
	PlanOpenTabs(ctx context.Context) ([]grouping.Group, error)
}

// Server answers one browser connection over a reader/writer pair,
// normally stdin and stdout.
type Server struct {
	Controller Controller
	// Grouper is optional; without it group requests get an error reply.
	Grouper Grouper

	in  io.Reader
	out io.Writer

	mu sync.Mutex
	wg sync.WaitGroup
}

func NewServer(in io.Reader, out io.Writer, c Controller, g Grouper) *Server {
	return &Server{Controller: c, Grouper: g, in: in, out: out}
}

// Serve handles messages until the browser closes the pipe or ctx is done.
// Keystrokes and grouping run concurrently so that a slow request never
// holds up a newer one.
func (s *Server) Serve(ctx context.Context) error {
	defer s.wg.Wait()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var req Request
		err := ReadMessage(s.in, &req)
		if errors.Is(err, io.EOF) {
			slog.Info("browser closed the connection")
			return nil
		}
		if err != nil {
			slog.Error("failed to read native message", slog.Any("err", err))
			return err
		}

		slog.Debug("native message", slog.String("type", req.Type))
		s.dispatch(ctx, req)
	}
}

func (s *Server) dispatch(ctx context.Context, req Request) {
	switch req.Type {
	case TypeStart:
		id := s.Controller.Start(ctx)
		s.send(Response{Type: TypeDefault, Session: id, Description: omnibox.DefaultDescription})

	case TypeChanged:
		// Accepting in the read loop keeps keystrokes in arrival order;
		// only the ranking, which may wait on the gather, runs aside.
		k := s.Controller.Accept(ctx, req.Query)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.Controller.Suggest(ctx, k, s.sendUpdate)
		}()

	case TypeEntered:
		a := s.Controller.Entered(ctx, req.Text)
		s.send(Response{Type: TypeAction, Action: &a})

	case TypeCancelled:
		s.Controller.Cancelled()

	case TypeGroup:
		if s.Grouper == nil {
			s.send(Response{Type: TypeError, Error: "tab grouping is not configured"})
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			groups, err := s.Grouper.PlanOpenTabs(ctx)
			if err != nil {
				slog.Error("tab grouping failed", slog.Any("err", err))
				s.send(Response{Type: TypeError, Error: err.Error()})
				return
			}
			s.send(Response{Type: TypeGroups, Groups: groups})
		}()

	default:
		slog.Warn("unknown native message", slog.String("type", req.Type))
		s.send(Response{Type: TypeError, Error: "unknown message type " + req.Type})
	}
}

func (s *Server) sendUpdate(u omnibox.Update) {
	s.send(Response{
		Type:        TypeSuggest,
		Query:       u.Query,
		Description: u.Default,
		Suggestions: u.Suggestions,
		Loading:     u.Loading,
	})
}

func (s *Server) send(resp Response) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := WriteMessage(s.out, resp); err != nil {
		slog.Error("failed to write native message", slog.String("type", resp.Type), slog.Any("err", err))
	}
}
