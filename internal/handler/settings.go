package handler

import (
	"net/http"

	"github.com/templui/docshelf/internal/ctxkeys"
	"github.com/templui/docshelf/internal/service"
	"github.com/templui/docshelf/internal/ui"
)

type SettingsHandler struct {
	userService *service.UserService
}

func NewSettingsHandler(userService *service.UserService) *SettingsHandler {
	return &SettingsHandler{userService: userService}
}

func (h *SettingsHandler) Me(w http.ResponseWriter, r *http.Request) {
	ui.JSON(w, http.StatusOK, newUserResponse(ctxkeys.User(r.Context())))
}

type changePasswordRequest struct {
	CurrentPassword         string `json:"current_password"`
	NewPassword             string `json:"new_password"`
	NewPasswordConfirmation string `json:"new_password_confirmation"`
}

func (h *SettingsHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	// The context user carries no hash; load the stored one
	user, err := h.userService.ByID(r.Context(), ctxkeys.User(r.Context()).ID)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	if _, err := h.userService.ChangePassword(r.Context(), user, req.CurrentPassword, req.NewPassword, req.NewPasswordConfirmation); err != nil {
		HandleError(w, r, err)
		return
	}
	ui.NoContent(w)
}
