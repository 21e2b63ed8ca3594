package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/templui/docshelf/internal/model"
	"github.com/templui/docshelf/internal/service"
	"github.com/templui/docshelf/internal/ui"
)

const maxJSONBody = 1 << 20

// errorStatus maps domain errors to HTTP status codes. Rule rejections are
// client errors, dependency failures are server errors.
var errorStatus = []struct {
	err    error
	status int
}{
	{service.ErrInvalidInput, http.StatusBadRequest},
	{service.ErrPasswordMismatch, http.StatusBadRequest},
	{service.ErrEmptyFile, http.StatusBadRequest},
	{service.ErrInvalidServiceLevel, http.StatusBadRequest},
	{service.ErrCannotRemoveSelf, http.StatusBadRequest},
	{service.ErrInvalidOrExpiredToken, http.StatusBadRequest},
	{service.ErrIncorrectPassword, http.StatusForbidden},
	{service.ErrInvalidCredentials, http.StatusUnauthorized},
	{service.ErrAccountNotActivated, http.StatusForbidden},
	{service.ErrAccountNotFound, http.StatusNotFound},
	{service.ErrUserNotFound, http.StatusNotFound},
	{service.ErrDocumentNotFound, http.StatusNotFound},
	{service.ErrUserAlreadyMember, http.StatusConflict},
	{service.ErrMembershipLimitExceeded, http.StatusConflict},
	{service.ErrDuplicateDocument, http.StatusConflict},
	{service.ErrDuplicateEmail, http.StatusConflict},
	{service.ErrDuplicateAccountName, http.StatusConflict},
	{service.ErrConcurrentModification, http.StatusConflict},
	{service.ErrLinksUnsupported, http.StatusNotImplemented},
	{service.ErrNotificationFailure, http.StatusBadGateway},
	{service.ErrStorageFailure, http.StatusServiceUnavailable},
}

// HandleError writes the status mapped from err. Unknown errors become 500
// and are logged.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorStatus {
		if errors.Is(err, m.err) {
			if m.status >= http.StatusInternalServerError {
				slog.Error("request failed", "error", err, "method", r.Method, "path", r.URL.Path)
				ui.Error(w, m.status, m.err.Error())
				return
			}
			ui.Error(w, m.status, err.Error())
			return
		}
	}

	slog.Error("unhandled error", "error", err, "method", r.Method, "path", r.URL.Path)
	ui.Error(w, http.StatusInternalServerError, "internal server error")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		ui.Error(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

type userResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Confirmed bool   `json:"confirmed"`
}

func newUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Confirmed: u.IsConfirmed(),
	}
}

type serviceLevelResponse struct {
	Name               string          `json:"name"`
	FlatPrice          decimal.Decimal `json:"flat_price"`
	MaxUploads         int             `json:"max_uploads"`
	MaxUploadsPerMonth int             `json:"max_uploads_per_month"`
	MaxUsers           int             `json:"max_users"`
	AdsEnabled         bool            `json:"ads_enabled"`
}

func newServiceLevelResponse(l model.ServiceLevel) serviceLevelResponse {
	return serviceLevelResponse{
		Name:               l.Name,
		FlatPrice:          l.FlatPrice,
		MaxUploads:         l.MaxUploads,
		MaxUploadsPerMonth: l.MaxUploadsPerMonth,
		MaxUsers:           l.MaxUsers,
		AdsEnabled:         l.AdsEnabled,
	}
}

type documentResponse struct {
	Name      string    `json:"name"`
	Extension string    `json:"extension"`
	MimeType  string    `json:"mime_type"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

func newDocumentResponse(d *model.Document) documentResponse {
	return documentResponse{
		Name:      d.Name,
		Extension: d.Extension,
		MimeType:  d.MimeType,
		Size:      d.Size,
		CreatedAt: d.CreatedAt,
	}
}

type accountResponse struct {
	ID           string               `json:"id"`
	Name         string               `json:"name"`
	Owner        *userResponse        `json:"owner,omitempty"`
	ServiceLevel serviceLevelResponse `json:"service_level"`
	Rate         decimal.Decimal      `json:"rate"`
	Members      []userResponse       `json:"members"`
	Documents    []documentResponse   `json:"documents"`
	Version      int                  `json:"version"`
}

func newAccountResponse(a *model.Account) accountResponse {
	resp := accountResponse{
		ID:           a.ID,
		Name:         a.Name,
		ServiceLevel: newServiceLevelResponse(a.ServiceLevel),
		Rate:         a.Rate(),
		Members:      make([]userResponse, 0, len(a.Users)),
		Documents:    make([]documentResponse, 0, len(a.Documents)),
		Version:      a.Version,
	}
	if a.Owner != nil {
		owner := newUserResponse(a.Owner)
		resp.Owner = &owner
	}
	for _, u := range a.Users {
		resp.Members = append(resp.Members, newUserResponse(u))
	}
	for _, d := range a.Documents {
		resp.Documents = append(resp.Documents, newDocumentResponse(d))
	}
	return resp
}
