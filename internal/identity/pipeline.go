// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NetDodge Contributors

// Package identity drives a user from a configured credential to a
// logged-in backend user via a two-stage pipeline: a primary identity
// login, then a token exchange into the backend user service.
//
// Pipeline is not safe for concurrent use. All methods and all backend
// completions must run on the single goroutine that pumps the backend
// queue; the state machine relies on that for its phase invariants.
package identity

import (
	"log/slog"

	"github.com/samber/oops"

	"github.com/netdodge/netdodge/internal/backend"
	"github.com/netdodge/netdodge/internal/events"
	"github.com/netdodge/netdodge/pkg/errutil"
)

// maxDeviceLoginAttempts bounds retries when the backend reports a
// duplicate device login, which can happen transiently when a previous
// process holding the device identity has not yet timed out.
const maxDeviceLoginAttempts = 3

// Settings carries the configuration slice the pipeline needs.
type Settings struct {
	// DevAuthURL and DeveloperUsername select the account when logging
	// in through a developer auth tool.
	DevAuthURL        string
	DeveloperUsername string
	// ClientSecret being empty is tolerated but provider logins are
	// likely to fail; the pipeline warns once at start.
	ClientSecret string
	// DisplayName is attached to device-identity logins.
	DisplayName string
	// DeviceModel labels a freshly created device identity.
	DeviceModel string
}

// Pipeline owns the authentication state machine.
type Pipeline struct {
	provider backend.IdentityProvider
	users    backend.UserService
	tickets  backend.TicketSource
	sink     events.Sink
	logger   *slog.Logger
	settings Settings

	phase       Phase
	kind        backend.CredentialKind
	accountID   string
	userID      string
	continuance *backend.ContinuanceToken

	deviceAttempts int
	subs           []*backend.Subscription
}

// New builds a pipeline. tickets may be nil when no storefront
// integration is available; storefront logins then fail synchronously.
func New(provider backend.IdentityProvider, users backend.UserService, tickets backend.TicketSource, sink events.Sink, logger *slog.Logger, settings Settings) *Pipeline {
	return &Pipeline{
		provider: provider,
		users:    users,
		tickets:  tickets,
		sink:     sink,
		logger:   logger.With("component", "identity"),
		settings: settings,
		phase:    PhaseUnauthenticated,
	}
}

// Phase returns the current state-machine phase.
func (p *Pipeline) Phase() Phase { return p.phase }

// UserID returns the backend user id, or "" before authentication
// completes.
func (p *Pipeline) UserID() string { return p.userID }

// AccountID returns the primary identity account id, or "" for device
// logins and before primary authentication completes.
func (p *Pipeline) AccountID() string { return p.accountID }

// Authenticated reports whether the pipeline reached its terminal
// success state.
func (p *Pipeline) Authenticated() bool { return p.phase == PhaseAuthenticated }

// StartLogin begins an authentication attempt with the given credential
// kind. It returns an error synchronously when preconditions fail; no
// event is emitted and no backend call is issued in that case. Once a
// backend call is in flight, the attempt always terminates in exactly
// one AuthenticationFinished or AccountLinkingRequired event.
func (p *Pipeline) StartLogin(kind backend.CredentialKind) error {
	if p.phase.inFlight() {
		return oops.Code("AUTH_IN_PROGRESS").
			With("phase", p.phase.String()).
			Errorf("authentication already in progress")
	}
	if p.phase == PhaseAuthenticated {
		return oops.Code("AUTH_ALREADY_AUTHENTICATED").
			With("user_id", p.userID).
			Errorf("already authenticated")
	}
	cred, err := p.buildCredential(kind)
	if err != nil {
		return err
	}
	p.begin(kind, cred)
	return nil
}

func (p *Pipeline) buildCredential(kind backend.CredentialKind) (backend.Credential, error) {
	cred := backend.Credential{Kind: kind, Scopes: backend.DefaultScopes}
	switch kind {
	case backend.KindDeveloperTool:
		if p.settings.DevAuthURL == "" || p.settings.DeveloperUsername == "" {
			return cred, oops.Code("CONFIG_MISSING").
				Errorf("developer login requires dev_auth_url and developer_username")
		}
		cred.ID = p.settings.DevAuthURL
		cred.Token = p.settings.DeveloperUsername
	case backend.KindBrowserPortal:
		// The portal flow carries no local credential material.
	case backend.KindStorefrontTicket:
		if p.tickets == nil {
			return cred, oops.Code("CONFIG_MISSING").
				Errorf("storefront login requires a session ticket source")
		}
		ticket, err := p.tickets.SessionTicket()
		if err != nil {
			return cred, oops.Code("AUTH_STOREFRONT_UNAVAILABLE").
				Wrapf(err, "could not obtain storefront session ticket")
		}
		cred.Token = ticket
	case backend.KindDeviceID:
		// Device logins skip the primary identity stage entirely.
	default:
		return cred, oops.Code("CONFIG_INVALID").
			With("kind", int(kind)).
			Errorf("unknown credential kind")
	}
	return cred, nil
}

// begin starts (or restarts) the attempt. Callers have already
// validated the credential.
func (p *Pipeline) begin(kind backend.CredentialKind, cred backend.Credential) {
	p.kind = kind
	p.accountID = ""
	p.continuance = nil
	p.deviceAttempts = 0
	if p.settings.ClientSecret == "" {
		p.logger.Warn("client secret not configured, backend logins may be rejected")
	}
	AuthAttempts.WithLabelValues(kind.String()).Inc()
	p.logger.Info("starting authentication", "kind", kind.String())

	if kind == backend.KindDeviceID {
		p.phase = PhaseBackendLoggingInDevice
		p.loginDevice()
		return
	}
	p.phase = PhaseAuthenticatingPrimary
	p.provider.Login(cred, p.onPrimaryLogin)
}

func (p *Pipeline) onPrimaryLogin(res backend.LoginResult) {
	switch res.Code {
	case backend.ResultSuccess:
		p.accountID = res.AccountID
		p.phase = PhasePrimaryAuthenticated
		p.exchangeToken()
	case backend.ResultInvalidUser:
		// The credential is valid but not yet linked to an account.
		p.continuance = res.Continuance
		p.phase = PhaseNeedsLinking
		p.logger.Info("account linking required", "kind", p.kind.String())
		p.sink.Emit(events.AccountLinkingRequired{})
	default:
		err := oops.Code("AUTH_PRIMARY_FAILED").
			With("result", res.Code.String()).
			Errorf("primary login failed: %s", res.Code)
		if res.Code == backend.ResultInvalidCredentials && p.kind == backend.KindDeveloperTool {
			err = oops.Code("AUTH_PRIMARY_FAILED").
				With("result", res.Code.String()).
				Hint("check that the developer auth tool is running and the configured credential name exists").
				Errorf("primary login failed: %s (is the developer auth tool running?)", res.Code)
		}
		p.fail(err)
	}
}

func (p *Pipeline) exchangeToken() {
	p.phase = PhaseExchangingToken
	code, token := p.provider.CopyIDToken(p.accountID)
	if !code.OK() {
		p.fail(oops.Code("AUTH_TOKEN_COPY_FAILED").
			With("result", code.String()).
			Errorf("could not copy identity token: %s", code))
		return
	}
	p.phase = PhaseBackendLoggingIn
	p.users.Login(backend.UserCredential{
		Method:      backend.MethodIDToken,
		Token:       token,
		DisplayName: p.settings.DisplayName,
	}, p.onUserLogin)
}

func (p *Pipeline) loginDevice() {
	p.users.Login(backend.UserCredential{
		Method:      backend.MethodDeviceID,
		DisplayName: p.settings.DisplayName,
	}, p.onUserLogin)
}

func (p *Pipeline) onUserLogin(res backend.UserLoginResult) {
	switch {
	case res.Code == backend.ResultSuccess:
		p.finish(res.UserID)
	case res.Code == backend.ResultInvalidUser && p.kind != backend.KindDeviceID:
		// Known identity, no backend user yet. The needs-creation phase
		// advances immediately: the continuance token is consumed
		// without waiting for caller input.
		p.phase = PhaseNeedsBackendUserCreation
		p.createBackendUser(res.Continuance)
	case res.Code == backend.ResultNotFound && p.kind == backend.KindDeviceID:
		p.phase = PhaseCreatingDeviceID
		p.users.CreateDeviceID(p.settings.DeviceModel, p.onCreateDeviceID)
	case res.Code == backend.ResultDuplicateNotAllowed && p.kind == backend.KindDeviceID:
		p.deviceAttempts++
		if p.deviceAttempts < maxDeviceLoginAttempts {
			p.logger.Warn("device identity still in use, retrying login",
				"attempt", p.deviceAttempts+1)
			p.loginDevice()
			return
		}
		p.fail(oops.Code("AUTH_DEVICE_IN_USE").
			With("attempts", p.deviceAttempts).
			Errorf("device identity in use by another session"))
	default:
		p.fail(oops.Code("AUTH_BACKEND_FAILED").
			With("result", res.Code.String()).
			Errorf("backend login failed: %s", res.Code))
	}
}

func (p *Pipeline) createBackendUser(token *backend.ContinuanceToken) {
	p.phase = PhaseCreatingBackendUser
	p.users.CreateUser(token, p.onCreateUser)
}

func (p *Pipeline) onCreateUser(res backend.UserCreateResult) {
	if res.Code != backend.ResultSuccess {
		p.fail(oops.Code("AUTH_USER_CREATE_FAILED").
			With("result", res.Code.String()).
			Errorf("backend user creation failed: %s", res.Code))
		return
	}
	p.finish(res.UserID)
}

func (p *Pipeline) onCreateDeviceID(code backend.Result) {
	// DuplicateNotAllowed means the identity already exists locally,
	// which is fine: log in with it.
	if code != backend.ResultSuccess && code != backend.ResultDuplicateNotAllowed {
		p.fail(oops.Code("AUTH_DEVICE_CREATE_FAILED").
			With("result", code.String()).
			Errorf("device identity creation failed: %s", code))
		return
	}
	p.phase = PhaseBackendLoggingInDevice
	p.loginDevice()
}

// LinkAccount consumes the pending continuance token to link the
// primary credential to an existing account, then restarts the login.
func (p *Pipeline) LinkAccount() error {
	if p.phase != PhaseNeedsLinking {
		return oops.Code("AUTH_NOT_LINKING").
			With("phase", p.phase.String()).
			Errorf("no account link pending")
	}
	tok := p.continuance
	p.continuance = nil
	p.phase = PhaseLinkingAccount
	p.provider.LinkAccount(tok, func(code backend.Result) {
		if code != backend.ResultSuccess {
			p.fail(oops.Code("AUTH_LINKING_FAILED").
				With("result", code.String()).
				Errorf("account linking failed: %s", code))
			return
		}
		p.logger.Info("account linked, restarting login", "kind", p.kind.String())
		p.restart()
	})
	return nil
}

// restart re-runs the attempt with the stored credential kind. Used
// after linking and after auth expiration; userID is preserved until
// the restart reaches a terminal state.
func (p *Pipeline) restart() {
	cred, err := p.buildCredential(p.kind)
	if err != nil {
		p.fail(err)
		return
	}
	p.begin(p.kind, cred)
}

func (p *Pipeline) finish(userID string) {
	p.userID = userID
	p.continuance = nil
	p.phase = PhaseAuthenticated
	p.registerNotifications()
	AuthOutcomes.WithLabelValues(p.kind.String(), "success").Inc()
	p.logger.Info("authenticated", "user_id", userID, "kind", p.kind.String())
	p.sink.Emit(events.AuthenticationFinished{Success: true, UserID: userID})
}

func (p *Pipeline) fail(err error) {
	p.phase = PhaseUnauthenticated
	p.accountID = ""
	p.userID = ""
	p.continuance = nil
	AuthOutcomes.WithLabelValues(p.kind.String(), "failure").Inc()
	errutil.LogError(p.logger, "authentication failed", err)
	p.sink.Emit(events.AuthenticationFinished{Success: false, ErrorMessage: errutil.Message(err)})
}

func (p *Pipeline) registerNotifications() {
	if len(p.subs) > 0 {
		return
	}
	p.subs = append(p.subs,
		p.users.NotifyAuthExpiration(p.onAuthExpiration),
		p.users.NotifyLoginStatusChanged(p.onLoginStatusChanged),
	)
}

// onAuthExpiration restarts the login with the original credential
// kind. The user id is kept in place until the restart either
// re-authenticates or fails, so session operations keyed on it keep
// working across a token refresh.
func (p *Pipeline) onAuthExpiration() {
	if p.phase != PhaseAuthenticated {
		return
	}
	p.logger.Warn("backend auth expiring, refreshing login", "kind", p.kind.String())
	p.restart()
}

func (p *Pipeline) onLoginStatusChanged(loggedIn bool) {
	if loggedIn || p.phase != PhaseAuthenticated {
		return
	}
	err := oops.Code("AUTH_LOGGED_OUT").Errorf("backend reported user logged out")
	p.userID = ""
	p.accountID = ""
	p.phase = PhaseUnauthenticated
	errutil.LogError(p.logger, "logged out by backend", err)
	p.sink.Emit(events.AuthenticationFinished{Success: false, ErrorMessage: errutil.Message(err)})
}

// Close removes notification subscriptions.
func (p *Pipeline) Close() {
	for _, s := range p.subs {
		s.Remove()
	}
	p.subs = nil
}
