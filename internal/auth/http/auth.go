package http

import (
	"net/http"

	"github.com/aussiebroadwan/usermgmt/internal/auth/service"
	"github.com/aussiebroadwan/usermgmt/pkg/authsdk"
	"github.com/aussiebroadwan/usermgmt/pkg/httpx"
)

type AuthHandler struct {
	AccountService *service.AccountService
}

// HandleRegister creates an unverified account.
//
//	@Summary		Register an account
//	@Description	Creates an unverified account and emails a verification token. No session is issued until the email is verified.
//	@Description	A taken email is reported as 409 whatever else is wrong with the request.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RegisterRequest	true	"Registration details"
//	@Success		201		{object}	httpx.Envelope{data=authsdk.User}
//	@Failure		400		{object}	httpx.Envelope	"Validation failed or invalid role"
//	@Failure		409		{object}	httpx.Envelope	"Email already registered"
//	@Failure		429		{object}	httpx.Envelope	"Too many requests"
//	@Router			/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	view, err := h.AccountService.Register(r.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     req.Role,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusCreated, "Registration successful. Please verify your email.", toUser(view))
}

// HandleLogin exchanges credentials for a session token.
//
//	@Summary		Log in
//	@Description	Returns a session token for a verified account. Unknown emails and wrong passwords get the same 401.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	httpx.Envelope{data=authsdk.SessionResponse}
//	@Failure		400		{object}	httpx.Envelope	"Missing fields"
//	@Failure		401		{object}	httpx.Envelope	"Invalid email or password"
//	@Failure		403		{object}	httpx.Envelope	"Email not verified"
//	@Failure		429		{object}	httpx.Envelope	"Too many requests"
//	@Router			/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if !decodeBody(w, r, &req) || !validateBody(w, req.Validate()) {
		return
	}

	sess, err := h.AccountService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, "Login successful.", toSession(sess))
}

// HandleVerifyEmail consumes a verification token.
//
//	@Summary		Verify email
//	@Description	Marks the email verified and returns a session token. Each token works once and expires after 24 hours.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.VerifyEmailRequest	true	"Email and token"
//	@Success		200		{object}	httpx.Envelope{data=authsdk.SessionResponse}
//	@Failure		400		{object}	httpx.Envelope	"Invalid or expired token"
//	@Failure		404		{object}	httpx.Envelope	"User not found"
//	@Failure		409		{object}	httpx.Envelope	"Email already verified"
//	@Failure		429		{object}	httpx.Envelope	"Too many requests"
//	@Router			/auth/verify-email [post].
func (h *AuthHandler) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req authsdk.VerifyEmailRequest
	if !decodeBody(w, r, &req) {
		return
	}

	sess, err := h.AccountService.VerifyEmail(r.Context(), req.Email, req.Token)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, "Email verification successful.", toSession(sess))
}
