package handler

import (
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/templui/docshelf/internal/ctxkeys"
	"github.com/templui/docshelf/internal/service"
	"github.com/templui/docshelf/internal/ui"
	"github.com/templui/docshelf/internal/validation"
)

type DocumentHandler struct {
	accountService *service.AccountService
	maxUploadSize  int64
	linkExpiry     time.Duration
}

func NewDocumentHandler(accountService *service.AccountService, maxUploadSize int64, linkExpiry time.Duration) *DocumentHandler {
	return &DocumentHandler{
		accountService: accountService,
		maxUploadSize:  maxUploadSize,
		linkExpiry:     linkExpiry,
	}
}

// Upload expects a multipart form with the file under "file".
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	account := ctxkeys.Account(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+(1<<20))
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		ui.Error(w, http.StatusBadRequest, "invalid upload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		ui.Error(w, http.StatusBadRequest, "file is required")
		return
	}
	defer func() { _ = file.Close() }()

	contentType, err := validation.DetectUpload(header, h.maxUploadSize)
	if err != nil {
		ui.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		slog.Warn("failed to read upload", "error", err, "account_id", account.ID)
		ui.Error(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	updated, err := h.accountService.AddDocument(r.Context(), service.Upload{
		Filename:    header.Filename,
		ContentType: contentType,
		Content:     content,
	}, account)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	ui.JSON(w, http.StatusCreated, newAccountResponse(updated))
}

func (h *DocumentHandler) Download(w http.ResponseWriter, r *http.Request) {
	doc, err := h.accountService.Document(r.Context(), ctxkeys.Account(r.Context()), r.PathValue("document"))
	if err != nil {
		HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", doc.MimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Content)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.FileName()}))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.Content); err != nil {
		slog.Warn("failed to write download", "error", err, "document_id", doc.ID)
	}
}

// Link returns a short-lived direct download URL.
func (h *DocumentHandler) Link(w http.ResponseWriter, r *http.Request) {
	url, err := h.accountService.DocumentLink(r.Context(), ctxkeys.Account(r.Context()), r.PathValue("document"), h.linkExpiry)
	if err != nil {
		HandleError(w, r, err)
		return
	}
	ui.JSON(w, http.StatusOK, map[string]any{
		"url":        url,
		"expires_in": int(h.linkExpiry.Seconds()),
	})
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	updated, err := h.accountService.RemoveDocumentByName(r.Context(), r.PathValue("document"), ctxkeys.Account(r.Context()))
	if err != nil {
		HandleError(w, r, err)
		return
	}
	ui.JSON(w, http.StatusOK, newAccountResponse(updated))
}
