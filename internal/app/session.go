package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"lightning_go/internal/infra"
	"lightning_go/internal/infra/bitflyer"
	"lightning_go/internal/request"
)

// Session carries the credential-bearing client for one run. Requests are
// executed through it instead of through process-wide state.
type Session struct {
	ID        string
	Client    *bitflyer.Client
	StartedAt time.Time
	logger    *slog.Logger
}

// NewSession builds a session from configuration.
func NewSession(cfg *infra.Config) *Session {
	id := uuid.NewString()
	return &Session{
		ID:        id,
		Client:    bitflyer.NewClient(cfg),
		StartedAt: time.Now(),
		logger:    slog.Default().With("module", "session", "session_id", id),
	}
}

// Execute validates and performs req, decoding the response into out.
func (s *Session) Execute(ctx context.Context, req *request.Request, out any) error {
	s.logger.Debug("Request", slog.String("call", req.String()), slog.Bool("private", req.Private()))
	if err := req.Execute(ctx, s.Client, out); err != nil {
		s.logger.Warn("Request failed", slog.String("kind", string(req.Kind())), slog.Any("error", err))
		return err
	}
	return nil
}
