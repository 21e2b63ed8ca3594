package routes

import (
	"net/http"

	"github.com/templui/docshelf/internal/app"
	"github.com/templui/docshelf/internal/handler"
	"github.com/templui/docshelf/internal/middleware"
	"github.com/templui/docshelf/internal/ui"
)

func SetupRoutes(app *app.App) http.Handler {
	auth := handler.NewAuthHandler(app.AuthService, app.RegistrationService, app.UserService)
	accounts := handler.NewAccountHandler(app.AccountService)
	documents := handler.NewDocumentHandler(app.AccountService, app.Cfg.MaxUploadSize, app.Cfg.DownloadLinkExpiry)
	settings := handler.NewSettingsHandler(app.UserService)

	// Account-scoped routes resolve {account} and check access first
	scoped := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.RequireAccountAccess(app.AccountService, h)
	}

	mux := http.NewServeMux()

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		ui.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /service-levels", accounts.ServiceLevels)
	mux.HandleFunc("GET /accounts/{name}/exists", accounts.NameExists)

	// Registration
	mux.HandleFunc("POST /auth/register", auth.Register)
	mux.HandleFunc("GET /auth/confirm/{token}", auth.ConfirmRegistration)
	mux.HandleFunc("POST /auth/confirm/resend", auth.ResendConfirmation)

	// Session
	mux.HandleFunc("POST /auth/login", auth.Login)
	mux.HandleFunc("POST /auth/logout", auth.Logout)

	// Password reset
	mux.HandleFunc("POST /auth/forgot-password", auth.ForgotPassword)
	mux.HandleFunc("GET /auth/reset-password/{token}", auth.CheckResetToken)
	mux.HandleFunc("POST /auth/reset-password", auth.ResetPassword)

	// ============================================================================
	// PROTECTED ROUTES (/app/*)
	// ============================================================================

	mux.HandleFunc("GET /app/me", middleware.RequireAuth(settings.Me))
	mux.HandleFunc("POST /app/settings/password", middleware.RequireAuth(settings.ChangePassword))

	mux.HandleFunc("GET /app/accounts", middleware.RequireAuth(accounts.List))
	mux.HandleFunc("GET /app/accounts/{account}", scoped(accounts.Show))
	mux.HandleFunc("PUT /app/accounts/{account}/service-level", scoped(accounts.ChangeServiceLevel))
	mux.HandleFunc("POST /app/accounts/{account}/members", scoped(accounts.AddMember))
	mux.HandleFunc("DELETE /app/accounts/{account}/members/{userID}", scoped(accounts.RemoveMember))

	mux.HandleFunc("POST /app/accounts/{account}/documents", scoped(documents.Upload))
	mux.HandleFunc("GET /app/accounts/{account}/documents/{document}", scoped(documents.Download))
	mux.HandleFunc("GET /app/accounts/{account}/documents/{document}/link", scoped(documents.Link))
	mux.HandleFunc("DELETE /app/accounts/{account}/documents/{document}", scoped(documents.Delete))

	// ============================================================================
	// FALLBACK
	// ============================================================================

	mux.HandleFunc("/{path...}", func(w http.ResponseWriter, r *http.Request) {
		ui.Error(w, http.StatusNotFound, "not found")
	})

	// Global middleware - executed in order (top to bottom)
	return middleware.Chain(
		mux,
		middleware.Recover,
		middleware.AuthMiddleware(app.AuthService, app.UserService),
		middleware.RequestLogging,
	)
}
