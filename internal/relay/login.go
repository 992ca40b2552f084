package relay

import (
	"context"
	"log/slog"

	"github.com/errorterry/algotrack-agent/internal/bus"
	"github.com/errorterry/algotrack-agent/internal/kvstore"
	"github.com/errorterry/algotrack-agent/internal/messages"
	"github.com/errorterry/algotrack-agent/internal/session"
)

// DefaultAllowedOrigins are the companion-service origins a login
// credential may arrive from.
var DefaultAllowedOrigins = []string{
	"https://algotrack.store",
	"https://www.algotrack.store",
	"http://localhost:5173",
}

// LoginGate admits login-success messages from allow-listed origins only
// and persists the credential. Messages from any other origin are dropped
// without side effects.
type LoginGate struct {
	allowed map[string]struct{}
	store   kvstore.Store
	logger  *slog.Logger
}

// NewLoginGate creates a gate admitting the given origins in addition to
// the defaults.
func NewLoginGate(extraOrigins []string, store kvstore.Store, logger *slog.Logger) *LoginGate {
	allowed := make(map[string]struct{})
	for _, o := range DefaultAllowedOrigins {
		allowed[o] = struct{}{}
	}
	for _, o := range extraOrigins {
		if o != "" {
			allowed[o] = struct{}{}
		}
	}
	return &LoginGate{allowed: allowed, store: store, logger: logger}
}

// Start subscribes the gate to the control topic.
func (g *LoginGate) Start(b bus.Bus) (cancel func()) {
	return b.Subscribe(bus.TopicControl, func(ctx context.Context, env messages.Envelope) {
		if env.Type != messages.TypeLoginSuccess {
			return
		}
		if _, ok := g.allowed[env.Origin]; !ok {
			g.logger.Warn("login message from untrusted origin dropped", "origin", env.Origin)
			return
		}

		m, err := env.Decode()
		if err != nil {
			g.logger.Warn("rejected login message", "origin", env.Origin, "err", err)
			return
		}
		login, ok := m.(*messages.LoginSuccess)
		if !ok {
			return
		}

		auth := session.Auth{
			AccessToken:     login.AccessToken,
			Nickname:        login.Nickname,
			ProfileImageURL: login.ProfileImageURL,
		}
		if err := session.Save(ctx, g.store, auth); err != nil {
			g.logger.Warn("failed to persist login", "err", err)
			return
		}
		g.logger.Info("login accepted", "origin", env.Origin, "nickname", login.Nickname)
	})
}
