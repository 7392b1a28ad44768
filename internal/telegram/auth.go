package telegram

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"

	"github.com/telegate/telegate/internal/domain"
)

// authAPI is the slice of gotd's auth client the flow needs. *auth.Client
// satisfies it; tests substitute a fake.
type authAPI interface {
	SendCode(ctx context.Context, phone string, options auth.SendCodeOptions) (tg.AuthSentCodeClass, error)
	SignIn(ctx context.Context, phone, code, codeHash string) (*tg.AuthAuthorization, error)
	Password(ctx context.Context, password string) (*tg.AuthAuthorization, error)
}

// logoutAPI is the raw call that terminates the session upstream. The auth
// client has no logout helper, so this comes from *tg.Client.
type logoutAPI interface {
	AuthLogOut(ctx context.Context) (*tg.AuthLoggedOut, error)
}

// AuthFlow drives the phone -> code -> optional 2FA login exchange over REST
// calls. Each step advances the SessionManager state machine; out-of-order
// steps are rejected there before any network traffic.
type AuthFlow struct {
	api      authAPI
	raw      logoutAPI
	session  *SessionManager
	governor *Governor
	logger   *zap.Logger

	refreshSelf func(ctx context.Context) (*tg.User, error)
	self        func() *tg.User
}

func NewAuthFlow(client *Client, session *SessionManager, governor *Governor, logger *zap.Logger) *AuthFlow {
	return &AuthFlow{
		api:         client.Auth(),
		raw:         client.API(),
		session:     session,
		governor:    governor,
		logger:      logger,
		refreshSelf: client.RefreshSelf,
		self:        client.Self,
	}
}

// RequestCode asks Telegram to send a login code to phone and returns the
// phone_code_hash needed to verify it.
func (f *AuthFlow) RequestCode(ctx context.Context, phone string) (string, error) {
	switch f.session.State() {
	case domain.AuthCodeRequested, domain.AuthTwoFactorRequired:
		return "", domain.ErrAlreadyAuthenticating
	case domain.AuthAuthorized:
		return "", domain.ErrInvalidAuthState
	}

	var codeHash string
	err := f.governor.Do(ctx, "auth.sendCode", func(ctx context.Context) error {
		sent, err := f.api.SendCode(ctx, phone, auth.SendCodeOptions{})
		if err != nil {
			return err
		}
		code, ok := sent.(*tg.AuthSentCode)
		if !ok {
			return fmt.Errorf("unexpected sent code type: %T", sent)
		}
		codeHash = code.PhoneCodeHash
		return nil
	})
	if err != nil {
		return "", err
	}

	if err := f.session.BeginCodeRequest(phone, codeHash); err != nil {
		return "", err
	}
	return codeHash, nil
}

// VerifyCode submits the received login code. When the account has a cloud
// password it returns ErrTwoFactorRequired and the flow continues with
// Verify2FA.
func (f *AuthFlow) VerifyCode(ctx context.Context, code string) error {
	phone, codeHash, err := f.session.PendingCode()
	if err != nil {
		return err
	}

	err = f.governor.Do(ctx, "auth.signIn", func(ctx context.Context) error {
		_, err := f.api.SignIn(ctx, phone, code, codeHash)
		return err
	})
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrPasswordAuthNeeded):
		if err := f.session.RequireTwoFactor(); err != nil {
			return err
		}
		return domain.ErrTwoFactorRequired
	case tgerr.Is(err, "PHONE_CODE_INVALID", "PHONE_CODE_EXPIRED"):
		return fmt.Errorf("%w: %v", domain.ErrIncorrectCredentials, err)
	default:
		return err
	}

	return f.finish(ctx)
}

// Verify2FA completes the flow with the account's cloud password.
func (f *AuthFlow) Verify2FA(ctx context.Context, password string) error {
	if !f.session.TwoFactorPending() {
		return domain.ErrInvalidAuthState
	}

	err := f.governor.Do(ctx, "auth.checkPassword", func(ctx context.Context) error {
		_, err := f.api.Password(ctx, password)
		return err
	})
	switch {
	case err == nil:
	case tgerr.Is(err, "PASSWORD_HASH_INVALID"):
		return fmt.Errorf("%w: %v", domain.ErrIncorrectCredentials, err)
	default:
		return err
	}

	return f.finish(ctx)
}

func (f *AuthFlow) finish(ctx context.Context) error {
	if err := f.session.Authorize(); err != nil {
		return err
	}
	if _, err := f.refreshSelf(ctx); err != nil {
		f.logger.Warn("failed to fetch self after login", zap.Error(err))
	}
	return nil
}

// Logout invalidates the session upstream and locally.
func (f *AuthFlow) Logout(ctx context.Context) error {
	if err := f.session.EnsureAuthorized(); err != nil {
		return err
	}
	err := f.governor.Do(ctx, "auth.logOut", func(ctx context.Context) error {
		_, err := f.raw.AuthLogOut(ctx)
		return err
	})
	// The local session is gone either way.
	f.session.Invalidate()
	return err
}

// Status reports the current authorization state, with account details when
// authorized.
func (f *AuthFlow) Status() domain.AuthStatus {
	st := domain.AuthStatus{
		Authenticated: f.session.IsAuthorized(),
		State:         f.session.State().String(),
	}
	if self := f.self(); st.Authenticated && self != nil {
		st.UserID = self.ID
		st.Username = self.Username
		st.Phone = self.Phone
	}
	return st
}
