package handler

import (
	"log/slog"
	"net/http"

	"github.com/templui/docshelf/internal/service"
	"github.com/templui/docshelf/internal/ui"
)

type AuthHandler struct {
	authService         *service.AuthService
	registrationService *service.RegistrationService
	userService         *service.UserService
}

func NewAuthHandler(authService *service.AuthService, registrationService *service.RegistrationService, userService *service.UserService) *AuthHandler {
	return &AuthHandler{
		authService:         authService,
		registrationService: registrationService,
		userService:         userService,
	}
}

type registerRequest struct {
	FirstName            string `json:"first_name"`
	LastName             string `json:"last_name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
	AccountName          string `json:"account_name"`
	ServiceLevel         string `json:"service_level"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.registrationService.RegisterNewAccount(r.Context(), service.RegisterInput{
		FirstName:            req.FirstName,
		LastName:             req.LastName,
		Email:                req.Email,
		Password:             req.Password,
		PasswordConfirmation: req.PasswordConfirmation,
		AccountName:          req.AccountName,
		ServiceLevel:         req.ServiceLevel,
	})
	if err != nil {
		slog.Warn("registration failed", "error", err, "email", req.Email)
		HandleError(w, r, err)
		return
	}

	ui.JSON(w, http.StatusCreated, newUserResponse(user))
}

func (h *AuthHandler) ConfirmRegistration(w http.ResponseWriter, r *http.Request) {
	confirmed, err := h.registrationService.ConfirmRegistration(r.Context(), r.PathValue("token"))
	if err != nil {
		HandleError(w, r, err)
		return
	}
	if !confirmed {
		ui.Error(w, http.StatusBadRequest, service.ErrInvalidOrExpiredToken.Error())
		return
	}

	ui.JSON(w, http.StatusOK, map[string]bool{"confirmed": true})
}

type emailRequest struct {
	Email string `json:"email"`
}

// ResendConfirmation always answers 202 so the response does not reveal
// whether the email is registered.
func (h *AuthHandler) ResendConfirmation(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.registrationService.ResendConfirmation(r.Context(), req.Email); err != nil {
		slog.Warn("resend confirmation failed", "error", err, "email", req.Email)
	}
	ui.JSON(w, http.StatusAccepted, nil)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		slog.Warn("password login failed", "error", err, "email", req.Email)
		HandleError(w, r, err)
		return
	}

	token, expiresAt, err := h.authService.GenerateJWT(user)
	if err != nil {
		slog.Error("failed to generate JWT", "error", err, "user_id", user.ID)
		ui.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}
	h.authService.SetJWTCookie(w, token, expiresAt)

	slog.Info("user logged in with password", "user_id", user.ID)
	ui.JSON(w, http.StatusOK, loginResponse{Token: token, User: newUserResponse(user)})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authService.ClearJWTCookie(w)
	ui.NoContent(w)
}

// ForgotPassword always answers 202 to prevent email enumeration.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.userService.RequestPasswordReset(r.Context(), req.Email); err != nil {
		slog.Warn("password reset request failed", "error", err, "email", req.Email)
	}
	ui.JSON(w, http.StatusAccepted, nil)
}

func (h *AuthHandler) CheckResetToken(w http.ResponseWriter, r *http.Request) {
	valid, err := h.userService.IsValidPasswordResetToken(r.Context(), r.PathValue("token"))
	if err != nil {
		HandleError(w, r, err)
		return
	}
	ui.JSON(w, http.StatusOK, map[string]bool{"valid": valid})
}

type resetPasswordRequest struct {
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
	Token                string `json:"token"`
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.userService.ResetPassword(r.Context(), req.Email, req.Password, req.PasswordConfirmation, req.Token)
	if err != nil {
		slog.Warn("password reset failed", "error", err, "email", req.Email)
		HandleError(w, r, err)
		return
	}
	ui.NoContent(w)
}
