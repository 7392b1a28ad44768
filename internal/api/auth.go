package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/telegate/telegate/internal/domain"
)

type requestCodeBody struct {
	PhoneNumber string `json:"phone_number" validate:"required,e164"`
}

type verifyCodeBody struct {
	Code string `json:"code" validate:"required,numeric"`
}

type verify2FABody struct {
	Password string `json:"password" validate:"required"`
}

func (s *Server) decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed body: %v", domain.ErrInvalidRequest, err)
	}
	if err := s.validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	return nil
}

// requestCode starts the login flow by sending a verification code to the
// given phone number.
func (s *Server) requestCode(w http.ResponseWriter, r *http.Request) {
	var body requestCodeBody
	if err := s.decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	if _, err := s.auth.RequestCode(r.Context(), body.PhoneNumber); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "code_sent",
		"message": "verification code sent, submit it to verify-code",
	})
}

// verifyCode submits the received code. Accounts with a cloud password get a
// requires_2fa response and finish with verify-2fa.
func (s *Server) verifyCode(w http.ResponseWriter, r *http.Request) {
	var body verifyCodeBody
	if err := s.decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	err := s.auth.VerifyCode(r.Context(), body.Code)
	if errors.Is(err, domain.ErrTwoFactorRequired) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":       "2fa_required",
			"requires_2fa": true,
			"message":      "cloud password required, submit it to verify-2fa",
		})
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.auth.Status())
}

// verify2FA completes the flow with the account's cloud password.
func (s *Server) verify2FA(w http.ResponseWriter, r *http.Request) {
	var body verify2FABody
	if err := s.decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.auth.Verify2FA(r.Context(), body.Password); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.auth.Status())
}

// authStatus reports the session state without side effects.
func (s *Server) authStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.auth.Status())
}

// logout terminates the session upstream and locally.
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}
