package handler

import (
	"net/http"

	"github.com/templui/docshelf/internal/ctxkeys"
	"github.com/templui/docshelf/internal/model"
	"github.com/templui/docshelf/internal/service"
	"github.com/templui/docshelf/internal/ui"
)

type AccountHandler struct {
	accountService *service.AccountService
}

func NewAccountHandler(accountService *service.AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

func (h *AccountHandler) ServiceLevels(w http.ResponseWriter, r *http.Request) {
	levels := h.accountService.ServiceLevels()
	resp := make([]serviceLevelResponse, 0, len(levels))
	for _, l := range levels {
		resp = append(resp, newServiceLevelResponse(l))
	}
	ui.JSON(w, http.StatusOK, resp)
}

// List returns every account the signed-in user owns or belongs to.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	accounts, err := h.accountService.AccountsForUser(r.Context(), user.ID)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	resp := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		resp = append(resp, newAccountResponse(a))
	}
	ui.JSON(w, http.StatusOK, resp)
}

func (h *AccountHandler) Show(w http.ResponseWriter, r *http.Request) {
	ui.JSON(w, http.StatusOK, newAccountResponse(ctxkeys.Account(r.Context())))
}

// NameExists lets a registration form check availability up front.
func (h *AccountHandler) NameExists(w http.ResponseWriter, r *http.Request) {
	exists, err := h.accountService.AccountNameExists(r.Context(), r.PathValue("name"))
	if err != nil {
		HandleError(w, r, err)
		return
	}
	ui.JSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

type serviceLevelRequest struct {
	ServiceLevel string `json:"service_level"`
}

func (h *AccountHandler) ChangeServiceLevel(w http.ResponseWriter, r *http.Request) {
	var req serviceLevelRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	h.respond(w, r)(h.accountService.ChangeServiceLevel(r.Context(), ctxkeys.Account(r.Context()), req.ServiceLevel))
}

type addMemberRequest struct {
	Email string `json:"email"`
}

func (h *AccountHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	var req addMemberRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	h.respond(w, r)(h.accountService.AddUserByEmail(r.Context(), req.Email, ctxkeys.Account(r.Context())))
}

func (h *AccountHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	h.respond(w, r)(h.accountService.RemoveUserByID(ctx, r.PathValue("userID"), ctxkeys.User(ctx), ctxkeys.Account(ctx)))
}

func (h *AccountHandler) respond(w http.ResponseWriter, r *http.Request) func(*model.Account, error) {
	return func(account *model.Account, err error) {
		if err != nil {
			HandleError(w, r, err)
			return
		}
		ui.JSON(w, http.StatusOK, newAccountResponse(account))
	}
}
