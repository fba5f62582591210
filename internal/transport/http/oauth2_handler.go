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

package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/secureshop/secureshop/internal/audit"
	"github.com/secureshop/secureshop/internal/oauth2"
	"github.com/secureshop/secureshop/internal/observability/logger"
)

// OAuth2Callback completes a federated login. Every exit from this handler
// is a redirect to the frontend; the browser never sees an error status or
// a raw failure from a provider.
// @Summary OAuth2 Callback
// @Description Complete a federated login and redirect to the frontend
// @Tags Auth
// @Param provider path string true "Provider name"
// @Param code query string false "Authorization code"
// @Param error query string false "Provider error"
// @Success 302
// @Router /oauth2/callback/{provider} [get]
func (h *Handler) OAuth2Callback(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")

	client, ok := h.providers[provider]
	if !ok {
		slog.WarnContext(r.Context(), "callback for unknown oauth provider",
			logger.Provider(provider),
		)
		h.redirectOAuthFailure(w, r, provider, oauth2.ReasonAuthFailed)
		return
	}

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		slog.WarnContext(r.Context(), "oauth provider returned error",
			logger.Provider(provider),
			"provider_error", errParam,
		)
		h.redirectOAuthFailure(w, r, provider, oauth2.ReasonAuthFailed)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.redirectOAuthFailure(w, r, provider, oauth2.ReasonAuthFailed)
		return
	}

	attrs, err := client.FetchProfile(r.Context(), code)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to fetch oauth profile",
			logger.Provider(provider),
			logger.Error(err),
		)
		h.redirectOAuthFailure(w, r, provider, oauth2.ReasonAuthFailed)
		return
	}

	result, err := h.bridge.Complete(r.Context(), provider, attrs)
	if err != nil {
		reason := oauth2.ReasonAuthFailed
		if errors.Is(err, oauth2.ErrMissingEmail) {
			reason = oauth2.ReasonMissingEmail
		}
		slog.ErrorContext(r.Context(), "federated login failed",
			logger.Provider(provider),
			logger.Error(err),
		)
		// The bridge has already audited its own failure.
		http.Redirect(w, r, h.bridge.ErrorRedirectURL(reason), http.StatusFound)
		return
	}

	h.setRefreshCookie(w, result.RefreshToken)

	http.Redirect(w, r, h.bridge.SuccessRedirectURL(result), http.StatusFound)
}

func (h *Handler) redirectOAuthFailure(w http.ResponseWriter, r *http.Request, provider, reason string) {
	h.auditLogger.Log(r.Context(), audit.Event{
		Type:      audit.TypeOAuthFailed,
		IPAddress: getIPAddress(r),
		UserAgent: r.UserAgent(),
		Metadata: map[string]any{
			audit.AttrProvider: provider,
			audit.AttrReason:   reason,
		},
	})
	http.Redirect(w, r, h.bridge.ErrorRedirectURL(reason), http.StatusFound)
}
