package telegram

import (
	"sync"

	"go.uber.org/zap"

	"github.com/telegate/telegate/internal/domain"
)

// SessionManager owns the authorization state of the single upstream session.
// Transitions happen only through its methods; readers see a consistent state
// under the RWMutex. The wire-level login exchange itself is driven by
// AuthFlow, which calls back into this type to advance the state machine.
//
// Legal transitions:
//
//	unauthenticated -> code_requested -> authorized
//	code_requested  -> 2fa_required   -> authorized
//	authorized      -> unauthenticated (logout or revoked session)
//
// Any other transition fails with domain.ErrInvalidAuthState.
type SessionManager struct {
	mu        sync.RWMutex
	state     domain.AuthState
	phone     string
	codeHash  string
	connected bool
	logger    *zap.Logger
}

func NewSessionManager(logger *zap.Logger) *SessionManager {
	return &SessionManager{logger: logger}
}

// State returns the current authorization state.
func (s *SessionManager) State() domain.AuthState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IsAuthorized reports whether the session may serve data-plane requests.
func (s *SessionManager) IsAuthorized() bool {
	return s.State() == domain.AuthAuthorized
}

// EnsureAuthorized fails fast with ErrUnauthenticated when no valid session
// exists. It never attempts an interactive login.
func (s *SessionManager) EnsureAuthorized() error {
	if !s.IsAuthorized() {
		return domain.ErrUnauthenticated
	}
	return nil
}

// SetConnected records transport connectivity, independent of authorization.
func (s *SessionManager) SetConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = connected
}

// Connected reports whether the MTProto transport is up.
func (s *SessionManager) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// BeginCodeRequest moves unauthenticated -> code_requested and records the
// phone and the phone_code_hash issued by the upstream. A second attempt
// while a code is already pending fails with ErrAlreadyAuthenticating; an
// attempt on an authorized session fails with ErrInvalidAuthState.
func (s *SessionManager) BeginCodeRequest(phone, codeHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case domain.AuthNone:
		s.state = domain.AuthCodeRequested
		s.phone = phone
		s.codeHash = codeHash
		s.logger.Info("verification code requested", zap.String("phone", phone))
		return nil
	case domain.AuthCodeRequested, domain.AuthTwoFactorRequired:
		return domain.ErrAlreadyAuthenticating
	default:
		return domain.ErrInvalidAuthState
	}
}

// PendingCode returns the phone and code hash of the in-flight code request.
func (s *SessionManager) PendingCode() (phone, codeHash string, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != domain.AuthCodeRequested {
		return "", "", domain.ErrInvalidAuthState
	}
	return s.phone, s.codeHash, nil
}

// RequireTwoFactor moves code_requested -> 2fa_required.
func (s *SessionManager) RequireTwoFactor() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.AuthCodeRequested {
		return domain.ErrInvalidAuthState
	}
	s.state = domain.AuthTwoFactorRequired
	return nil
}

// TwoFactorPending reports whether the flow is waiting for the 2FA password.
func (s *SessionManager) TwoFactorPending() bool {
	return s.State() == domain.AuthTwoFactorRequired
}

// Authorize completes the flow from code_requested or 2fa_required, or marks
// a session restored from disk as valid (from unauthenticated).
func (s *SessionManager) Authorize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case domain.AuthNone, domain.AuthCodeRequested, domain.AuthTwoFactorRequired:
		s.state = domain.AuthAuthorized
		s.codeHash = ""
		s.logger.Info("session authorized")
		return nil
	case domain.AuthAuthorized:
		return nil
	default:
		return domain.ErrInvalidAuthState
	}
}

// Invalidate drops back to unauthenticated. Called on logout and whenever the
// upstream reports the session as revoked or expired.
func (s *SessionManager) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.AuthNone {
		s.logger.Warn("session invalidated", zap.Stringer("was", s.state))
	}
	s.state = domain.AuthNone
	s.phone = ""
	s.codeHash = ""
}
