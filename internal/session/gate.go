// Package session observes authentication state transitions and drives the
// application lifecycle: mount once on the first notification, load the
// profile whenever a user is present, and perform the navigation the store
// deliberately leaves to its caller.
package session

import (
	"context"
	"log/slog"

	"driftline/internal/observability"
	"driftline/internal/remote"
	"driftline/internal/router"
	"driftline/internal/store"
)

// MountFunc attaches the presentation root. Called exactly once.
type MountFunc func()

// Gate is a two-state machine: unmounted until the first identity
// notification, mounted afterwards.
type Gate struct {
	store  *store.Store
	router *router.Router
	auth   remote.Auth
	mount  MountFunc
	logger *slog.Logger

	mounted bool
}

// New creates a Gate. mount may be nil when there is no presentation root to
// attach (tests, headless tooling).
func New(st *store.Store, rt *router.Router, auth remote.Auth, mount MountFunc) *Gate {
	return &Gate{
		store:  st,
		router: rt,
		auth:   auth,
		mount:  mount,
		logger: observability.Component("session"),
	}
}

// Attach subscribes the gate to identity-change notifications. The
// subscription delivers the current state immediately, so attaching also
// mounts.
func (g *Gate) Attach() {
	g.auth.OnIdentityChange(g.onIdentity)
}

// Mounted reports whether the presentation root has been attached.
func (g *Gate) Mounted() bool {
	return g.mounted
}

// onIdentity handles one identity notification. Identity callbacks are
// delivered sequentially by the auth service, so no locking is needed here.
func (g *Gate) onIdentity(identity *remote.Identity) {
	// First notification mounts, whether or not a user is present.
	if !g.mounted {
		g.mounted = true
		if g.mount != nil {
			g.mount()
		}
	}

	if identity == nil {
		g.redirectToLoginIfGuarded()
		return
	}

	profile, err := g.store.FetchUserProfile(context.Background(), identity.UID)
	if err != nil {
		g.logger.Error("profile fetch failed",
			slog.String("uid", identity.UID),
			slog.String("error", err.Error()),
		)
		return
	}

	// Arriving on the login view with a session means the login just
	// completed: move to the user's own posts listing.
	current := g.router.Current()
	if current.Route != nil && current.Route.Name == "login" && profile.Name != "" {
		if _, err := g.router.PushNamed("my_posts", router.Params{"name": profile.Name}); err != nil {
			g.logger.Error("post-login navigation failed", slog.String("error", err.Error()))
		}
	}
}

// redirectToLoginIfGuarded sends a signed-out session to the login view when
// it is sitting on an authenticated-only route.
func (g *Gate) redirectToLoginIfGuarded() {
	current := g.router.Current()
	if current.Route == nil || !current.Route.RequiresAuth {
		return
	}
	if _, err := g.router.Push(router.LoginPath); err != nil {
		g.logger.Error("logout navigation failed", slog.String("error", err.Error()))
	}
}
