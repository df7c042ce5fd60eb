package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/alhassan/smart-sales-agent-go/internal/service"
)

// ============================================================
// Admin login — POST /v1/admin/login
// ============================================================

func adminLoginHandler(svc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "POST /v1/admin/login")
		defer span.End()

		var body struct {
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		token, expiresIn, err := svc.Login(body.Password)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": token,
			"token_type":   "Bearer",
			"expires_in":   expiresIn,
		})
	}
}
