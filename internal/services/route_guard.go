package services

import (
	"github.com/sirupsen/logrus"

	"github.com/namhsc/tvtl-sub000/domain"
)

// GuardPaths holds the navigation targets the guard redirects to.
type GuardPaths struct {
	Login          string
	DefaultLanding string
	AdminLanding   string
}

// RouteGuard decides render vs. redirect for each navigation from the
// session snapshot and the target route's declared requirement. It is
// re-evaluated on every navigation, never cached, and never errors: unmet
// conditions always resolve to a decision.
type RouteGuard struct {
	policy domain.PolicyService
	clock  domain.Clock
	sink   domain.EventSink
	log    *logrus.Entry
	paths  GuardPaths
}

// NewRouteGuard creates a route guard. The policy service may be nil, in
// which case role matching falls back to direct set intersection.
func NewRouteGuard(policy domain.PolicyService, clock domain.Clock, sink domain.EventSink, logger *logrus.Logger, paths GuardPaths) *RouteGuard {
	if clock == nil {
		clock = systemClock{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if paths.Login == "" {
		paths.Login = "/login"
	}
	if paths.DefaultLanding == "" {
		paths.DefaultLanding = "/"
	}
	if paths.AdminLanding == "" {
		paths.AdminLanding = "/admin"
	}
	return &RouteGuard{
		policy: policy,
		clock:  clock,
		sink:   sink,
		log:    logger.WithField("component", "guard"),
		paths:  paths,
	}
}

// Evaluate returns the decision for one navigation.
func (g *RouteGuard) Evaluate(session domain.Session, rule domain.RouteRule) domain.Decision {
	// No redirect before the first token check completes, to avoid flashing
	// a redirect that the restored session would immediately undo.
	if !session.IsInitialized {
		return domain.Decision{Kind: domain.DecisionLoading}
	}

	authenticated := session.IsAuthenticated(g.clock.Now())

	if !authenticated {
		if rule.RequiresAuth || len(rule.Roles) > 0 {
			return domain.Decision{
				Kind:       domain.DecisionRedirect,
				RedirectTo: g.paths.Login,
				From:       rule.Path,
			}
		}
		return domain.Decision{Kind: domain.DecisionRender}
	}

	if rule.PublicOnly {
		landing := g.paths.DefaultLanding
		if session.User.IsAdmin() {
			landing = g.paths.AdminLanding
		}
		return domain.Decision{Kind: domain.DecisionRedirect, RedirectTo: landing}
	}

	if len(rule.Roles) > 0 {
		if g.roleAllowed(session, rule) {
			g.publish(domain.NewSessionEvent(domain.AccessGrantedEvent).WithUser(session.User).WithMetadata("path", rule.Path))
			return domain.Decision{Kind: domain.DecisionRender}
		}
		if session.User.IsAdmin() {
			// Observed product behavior: admins pass role checks on
			// non-admin routes. Flagged for product clarification.
			g.log.WithField("path", rule.Path).Info("admin accessing non-admin route")
			return domain.Decision{Kind: domain.DecisionRender}
		}
		g.publish(domain.NewSessionEvent(domain.AccessDeniedEvent).WithUser(session.User).WithMetadata("path", rule.Path))
		return domain.Decision{
			Kind:  domain.DecisionDenied,
			Roles: session.Roles(),
		}
	}

	return domain.Decision{Kind: domain.DecisionRender}
}

func (g *RouteGuard) roleAllowed(session domain.Session, rule domain.RouteRule) bool {
	for _, role := range session.Roles() {
		if g.policy != nil {
			allowed, err := g.policy.Allow(role, rule.Path)
			if err != nil {
				g.log.WithError(err).Warn("policy check failed")
				continue
			}
			if allowed {
				return true
			}
			continue
		}
		for _, required := range rule.Roles {
			if role == required {
				return true
			}
		}
	}
	return false
}

func (g *RouteGuard) publish(event *domain.SessionEvent) {
	if g.sink != nil {
		g.sink.Publish(event)
	}
}
