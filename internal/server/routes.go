// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"codeberg.org/godrive/accounts/internal/handlers"
	"codeberg.org/godrive/accounts/internal/metrics"
	appmw "codeberg.org/godrive/accounts/internal/middleware"
	"codeberg.org/godrive/accounts/internal/services/verification"
	"codeberg.org/godrive/accounts/internal/storage"
	"github.com/labstack/echo/v4"
)

func setupRoutes(e *echo.Echo, h *handlers.Handlers) {
	e.GET("/"+storage.URLPrefix+"/:name", h.Upload, appmw.RequireAuth)

	e.GET("/health", h.Health)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	e.GET("/", h.Home)

	// Account verification
	e.GET(verification.AccountPath, h.AccountPage)
	e.GET("/owner-application", h.OwnerApplication)
	v := e.Group(verification.AccountPath)
	v.POST("/send-otp", h.SendOTP)
	v.POST("/verify-otp", h.VerifyOTP)
	v.POST("/verify", h.Verify)
	v.POST("/resend", h.Resend)

	// Auth
	a := e.Group("/auth")
	a.GET("/register", h.RegisterPage)
	a.POST("/register", h.Register)
	a.GET("/login", h.LoginPage)
	a.POST("/login", h.Login)
	a.POST("/logout", h.Logout, appmw.RequireAuth)

	e.GET("/dashboard", h.Dashboard, appmw.RequireAuth)

	// Admin
	u := e.Group("/user", appmw.RequireAuth, appmw.RequireAdmin)
	u.POST("", h.CreateUser)
	u.PUT("/:id", h.UpdateUser)
	u.DELETE("/:id", h.DeleteUser)
	u.PATCH("/:id/approve", h.Approve)
}
