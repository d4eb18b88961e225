package routes

import (
	"github.com/code-sharad/inventory-management-sub000/internal/auth"
	"github.com/code-sharad/inventory-management-sub000/internal/handlers"
	"github.com/code-sharad/inventory-management-sub000/internal/middleware"
	"github.com/code-sharad/inventory-management-sub000/internal/repositories"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	accountHandler *handlers.AccountHandler,
	tokenManager *auth.TokenManager,
	userRepo *repositories.UserRepository,
) {
	credentialLimit := middleware.RateLimitByIP(middleware.CredentialRateLimit())
	emailActionLimit := middleware.RateLimitByIP(middleware.EmailActionRateLimit())

	// Public routes - no authentication required
	router.With(credentialLimit).Post("/auth/register", authHandler.Register)
	router.With(credentialLimit).Post("/auth/login", authHandler.Login)
	router.Post("/auth/refresh-token", authHandler.RefreshToken)
	router.With(emailActionLimit).Post("/auth/forgot-password", authHandler.ForgotPassword)
	router.Patch("/auth/reset-password/{token}", authHandler.ResetPassword)
	router.With(emailActionLimit).Get("/auth/verify-email/{token}", authHandler.VerifyEmail)

	// Protected routes - authentication required
	router.Group(func(r chi.Router) {
		r.Use(auth.AuthMiddleware(tokenManager))

		r.Post("/auth/logout", authHandler.Logout)
		r.Patch("/auth/change-password", authHandler.ChangePassword)
		r.With(emailActionLimit).Post("/auth/resend-verification", authHandler.ResendVerification)

		r.Get("/auth/profile", accountHandler.GetProfile)
		r.Patch("/auth/profile", accountHandler.UpdateProfile)
		r.Get("/auth/sessions", accountHandler.ListSessions)
		r.Get("/auth/login-history", accountHandler.GetLoginHistory)

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin(userRepo))
			r.Post("/auth/logout-all", authHandler.LogoutAll)
			r.Get("/users", accountHandler.ListAccounts)
			r.Post("/users", accountHandler.CreateAccount)
			r.Patch("/users/{id}/status", accountHandler.SetAccountStatus)
			r.Delete("/users/{id}", accountHandler.DeleteAccount)
		})
	})
}
