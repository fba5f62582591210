// Copyright 2026 The SecureShop Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// @title SecureShop Auth API
// @version 1.0.0
// @description Authentication and resource-ownership service for the SecureShop storefront

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/secureshop/secureshop/internal/audit"
	"github.com/secureshop/secureshop/internal/authz"
	"github.com/secureshop/secureshop/internal/identity"
	"github.com/secureshop/secureshop/internal/oauth2"
	"github.com/secureshop/secureshop/internal/observability/logger"
	"github.com/secureshop/secureshop/internal/shop"
	"github.com/secureshop/secureshop/internal/token"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// refreshCookieName is the cookie the renewal endpoint reads.
const refreshCookieName = "refresh_token"

// forbiddenMessage is the fixed message of every authorization denial.
// Denials are deliberately uniform so a caller cannot distinguish
// "resource missing" from "not the owner".
const forbiddenMessage = "You do not have permission to perform this action"

// Handler holds HTTP handlers and dependencies
type Handler struct {
	identityService *identity.Service
	resolver        *identity.Resolver
	tokenService    *token.Service
	bridge          *oauth2.Bridge
	engine          *authz.Engine
	orders          shop.OrderRepository
	orderItems      shop.OrderItemRepository
	reviews         shop.ReviewRepository
	warranties      shop.WarrantyRequestRepository
	auditLogger     audit.Logger
	providers       map[string]oauth2.ProviderClient
	cookieSecure    bool
}

// NewHandler creates a new HTTP handler
func NewHandler(
	identityService *identity.Service,
	resolver *identity.Resolver,
	tokenService *token.Service,
	bridge *oauth2.Bridge,
	engine *authz.Engine,
	orders shop.OrderRepository,
	orderItems shop.OrderItemRepository,
	reviews shop.ReviewRepository,
	warranties shop.WarrantyRequestRepository,
	auditLogger audit.Logger,
	providers map[string]oauth2.ProviderClient,
	cookieSecure bool,
) *Handler {
	return &Handler{
		identityService: identityService,
		resolver:        resolver,
		tokenService:    tokenService,
		bridge:          bridge,
		engine:          engine,
		orders:          orders,
		orderItems:      orderItems,
		reviews:         reviews,
		warranties:      warranties,
		auditLogger:     auditLogger,
		providers:       providers,
		cookieSecure:    cookieSecure,
	}
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, rateLimiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check
	r.Get("/health", h.HealthCheck)

	// Federated login callback. Always redirects, never errors.
	r.Get("/oauth2/callback/{provider}", h.OAuth2Callback)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)
		r.Post("/auth/refresh", h.Refresh)
		r.Post("/auth/logout", h.Logout)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)

			r.Get("/auth/me", h.GetCurrentUser)

			r.Get("/orders/{id}", h.GetOrder)
			r.Get("/order-items/{id}", h.GetOrderItem)
			r.Get("/reviews/{id}", h.GetReview)
			r.Delete("/reviews/{id}", h.DeleteReview)
			r.Get("/warranty-requests/{id}", h.GetWarrantyRequest)
		})
	})

	return r
}

// HealthCheck returns the health status
// @Summary Health Check
// @Description Checks if the service is up and running
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "secureshop",
	})
}

// RegisterRequest represents registration data
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// Register handles local account registration
// @Summary Register a new account
// @Description Create a local account with an email and password
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration Data"
// @Success 201 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	account, err := h.identityService.Register(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to register account",
			logger.Error(err),
			logger.Email(req.Email),
		)

		switch {
		case errors.Is(err, identity.ErrAccountExists):
			respondError(w, http.StatusConflict, "account already exists")
		case errors.Is(err, identity.ErrInvalidEmail):
			respondError(w, http.StatusBadRequest, "invalid email address")
		case errors.Is(err, identity.ErrWeakPassword):
			respondError(w, http.StatusBadRequest, "password does not meet security requirements")
		default:
			respondError(w, http.StatusInternalServerError, "failed to create account")
		}
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"account_id": account.ID,
		"email":      account.Email,
	})
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles local login. The access token is returned in the body and
// the refresh token only ever travels in an HttpOnly cookie.
// @Summary Login
// @Description Authenticate with email and password, returning a bearer access token
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Router /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	account, err := h.identityService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrAccountDisabled) {
			respondError(w, http.StatusForbidden, "account is disabled")
			return
		}
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	accessToken, err := h.tokenService.Issue(account)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to issue access token", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	refreshToken, err := h.tokenService.IssueRefresh(account)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to issue refresh token", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	h.setRefreshCookie(w, refreshToken)

	h.auditLogger.Log(r.Context(), audit.Event{
		Type:      audit.TypeTokenIssued,
		ActorID:   account.ID,
		Resource:  "token",
		IPAddress: getIPAddress(r),
		UserAgent: r.UserAgent(),
	})

	respondJSON(w, http.StatusOK, map[string]any{
		"access_token": accessToken,
		"token_type":   "Bearer",
		"expires_in":   int64(h.tokenService.AccessTTL().Seconds()),
	})
}

// Refresh exchanges a valid refresh cookie for a fresh access token and a
// rotated refresh cookie. The account is re-read so a disable or delete
// since login takes effect.
// @Summary Refresh access token
// @Description Exchange the refresh cookie for a new access token
// @Tags Auth
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 401 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Router /auth/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		respondError(w, http.StatusUnauthorized, "missing refresh token")
		return
	}

	claims, err := h.tokenService.Validate(cookie.Value)
	if err != nil {
		h.clearRefreshCookie(w)
		switch err {
		case token.ErrExpiredToken:
			respondError(w, http.StatusUnauthorized, "refresh token expired")
		default:
			respondError(w, http.StatusUnauthorized, "invalid refresh token")
		}
		return
	}
	if !claims.Refresh {
		respondError(w, http.StatusUnauthorized, "access token cannot be used as refresh token")
		return
	}

	account, err := h.resolver.Resolve(r.Context(), claims.SubjectID)
	if err != nil {
		h.clearRefreshCookie(w)
		respondError(w, http.StatusUnauthorized, "account not found")
		return
	}
	if !account.Active() {
		h.clearRefreshCookie(w)
		respondError(w, http.StatusForbidden, "account is disabled")
		return
	}

	accessToken, err := h.tokenService.Issue(account)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to issue access token", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	rotated, err := h.tokenService.IssueRefresh(account)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to rotate refresh token", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	h.setRefreshCookie(w, rotated)

	h.auditLogger.Log(r.Context(), audit.Event{
		Type:      audit.TypeTokenRefreshed,
		ActorID:   account.ID,
		Resource:  "token",
		IPAddress: getIPAddress(r),
		UserAgent: r.UserAgent(),
	})

	respondJSON(w, http.StatusOK, map[string]any{
		"access_token": accessToken,
		"token_type":   "Bearer",
		"expires_in":   int64(h.tokenService.AccessTTL().Seconds()),
	})
}

// Logout clears the refresh cookie. Access tokens are not revoked; they
// expire on their own.
// @Summary Logout
// @Description Expire the refresh cookie
// @Tags Auth
// @Produce json
// @Success 200 {object} map[string]string
// @Router /auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(refreshCookieName); err == nil && cookie.Value != "" {
		if claims, err := h.tokenService.Validate(cookie.Value); err == nil {
			h.auditLogger.Log(r.Context(), audit.Event{
				Type:      audit.TypeLogout,
				ActorID:   claims.SubjectID,
				Resource:  "token",
				IPAddress: getIPAddress(r),
				UserAgent: r.UserAgent(),
			})
		}
	}

	h.clearRefreshCookie(w)

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "logged out successfully",
	})
}

// GetCurrentUser returns the authenticated account
// @Summary Get Current Account
// @Description Retrieve the profile of the authenticated account
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]any
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /auth/me [get]
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())

	account, err := h.resolver.Resolve(r.Context(), p.AccountID)
	if err != nil {
		respondError(w, http.StatusNotFound, "account not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"account_id":   account.ID,
		"email":        account.Email,
		"display_name": account.DisplayName,
		"avatar_url":   account.AvatarURL,
		"provider":     account.Provider,
		"role":         account.Role,
	})
}

// GetOrder returns an order if the principal owns it or is an admin
// @Summary Get Order
// @Description Retrieve an order owned by the authenticated account
// @Tags Shop
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Success 200 {object} shop.Order
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /orders/{id} [get]
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p := GetPrincipal(r.Context())

	if !h.engine.CanAccessOrder(r.Context(), id, p) {
		h.respondForbidden(w, r, id)
		return
	}

	order, err := h.orders.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "order not found")
		return
	}

	respondJSON(w, http.StatusOK, order)
}

// GetOrderItem returns an order item if the principal owns its order
// @Summary Get Order Item
// @Description Retrieve an order item belonging to an order the account owns
// @Tags Shop
// @Produce json
// @Security BearerAuth
// @Param id path int true "Order Item ID"
// @Success 200 {object} shop.OrderItem
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /order-items/{id} [get]
func (h *Handler) GetOrderItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order item id")
		return
	}
	p := GetPrincipal(r.Context())

	if !h.engine.CanAccessOrderItem(r.Context(), id, p) {
		h.respondForbidden(w, r, chi.URLParam(r, "id"))
		return
	}

	item, err := h.orderItems.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "order item not found")
		return
	}

	respondJSON(w, http.StatusOK, item)
}

// GetReview returns a review if the principal wrote it or is an admin
// @Summary Get Review
// @Description Retrieve a review written by the authenticated account
// @Tags Shop
// @Produce json
// @Security BearerAuth
// @Param id path int true "Review ID"
// @Success 200 {object} shop.Review
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /reviews/{id} [get]
func (h *Handler) GetReview(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid review id")
		return
	}
	p := GetPrincipal(r.Context())

	if !h.engine.CanAccessReview(r.Context(), id, p) {
		h.respondForbidden(w, r, chi.URLParam(r, "id"))
		return
	}

	review, err := h.reviews.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "review not found")
		return
	}

	respondJSON(w, http.StatusOK, review)
}

// DeleteReview deletes a review if the principal wrote it or is an admin
// @Summary Delete Review
// @Description Delete a review written by the authenticated account
// @Tags Shop
// @Produce json
// @Security BearerAuth
// @Param id path int true "Review ID"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /reviews/{id} [delete]
func (h *Handler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid review id")
		return
	}
	p := GetPrincipal(r.Context())

	if !h.engine.CanAccessReview(r.Context(), id, p) {
		h.respondForbidden(w, r, chi.URLParam(r, "id"))
		return
	}

	if err := h.reviews.Delete(r.Context(), id); err != nil {
		if errors.Is(err, shop.ErrReviewNotFound) {
			respondError(w, http.StatusNotFound, "review not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to delete review", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to delete review")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "review deleted",
	})
}

// GetWarrantyRequest returns a warranty request if the principal owns the
// order it chains back to
// @Summary Get Warranty Request
// @Description Retrieve a warranty request chained to an order the account owns
// @Tags Shop
// @Produce json
// @Security BearerAuth
// @Param id path int true "Warranty Request ID"
// @Success 200 {object} shop.WarrantyRequest
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /warranty-requests/{id} [get]
func (h *Handler) GetWarrantyRequest(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid warranty request id")
		return
	}
	p := GetPrincipal(r.Context())

	if !h.engine.CanAccessWarrantyRequest(r.Context(), id, p) {
		h.respondForbidden(w, r, chi.URLParam(r, "id"))
		return
	}

	wr, err := h.warranties.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "warranty request not found")
		return
	}

	respondJSON(w, http.StatusOK, wr)
}

// Helper functions

func (h *Handler) setRefreshCookie(w http.ResponseWriter, refreshToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    refreshToken,
		Path:     "/",
		Secure:   h.cookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.tokenService.RefreshTTL().Seconds()),
	})
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/",
		Secure:   h.cookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// respondForbidden emits the uniform denial payload and audits the refusal.
func (h *Handler) respondForbidden(w http.ResponseWriter, r *http.Request, resourceID string) {
	p := GetPrincipal(r.Context())

	h.auditLogger.Log(r.Context(), audit.Event{
		Type:      audit.TypeAccessDenied,
		ActorID:   p.AccountID,
		Resource:  r.URL.Path,
		IPAddress: getIPAddress(r),
		UserAgent: r.UserAgent(),
		Metadata:  map[string]any{audit.AttrResource: resourceID},
	})

	respondJSON(w, http.StatusForbidden, map[string]string{
		"error":     "FORBIDDEN",
		"message":   forbiddenMessage,
		"path":      r.URL.Path,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

func getIPAddress(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
