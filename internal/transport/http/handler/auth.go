package handler

import (
	"net/http"

	"github.com/go-signup-nosql/internal/application/auth"
	"github.com/go-signup-nosql/internal/domain"
	"github.com/go-signup-nosql/internal/transport/http/middleware"
	"go.uber.org/zap"
)

// AuthHandler exposes the signup handshake and login.
type AuthHandler struct {
	svc auth.Service
	log *zap.Logger
}

func NewAuthHandler(svc auth.Service, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{svc: svc, log: log.Named("http.auth")}
}

func (h *AuthHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.RequestCodeRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.RequestCode(r.Context(), req); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeOK(w, http.StatusOK, "OTP sent successfully to your email", nil)
}

func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyCodeRequest
	if !decode(w, r, &req) {
		return
	}
	cred, err := h.svc.VerifyCode(r.Context(), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeOK(w, http.StatusOK, "Email verified successfully", cred)
}

// CheckUsername answers 200 for both verdicts; a failed check is a 500 with
// available=false.
func (h *AuthHandler) CheckUsername(w http.ResponseWriter, r *http.Request) {
	var req domain.CheckUsernameRequest
	if !decode(w, r, &req) {
		return
	}
	avail, err := h.svc.CheckAvailability(r.Context(), req)
	if err != nil && domain.KindOf(err) == domain.KindTransient {
		h.log.Error("username check failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Envelope{Message: avail.Reason, Data: avail})
		return
	}
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeOK(w, http.StatusOK, avail.Reason, avail)
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.Register(r.Context(), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeOK(w, http.StatusCreated, "User registered successfully", res)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.Login(r.Context(), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeOK(w, http.StatusOK, "Login successful", res)
}

func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, h.log, domain.Unauthorized("Unauthorized"))
		return
	}
	u, err := h.svc.CurrentUser(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeOK(w, http.StatusOK, "", u)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, h.log, domain.Unauthorized("Unauthorized"))
		return
	}
	if err := h.svc.Logout(r.Context(), claims.UserID); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeOK(w, http.StatusOK, "Logged out successfully", nil)
}
