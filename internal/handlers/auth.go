package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/road-monitor/internal/auth"
	"github.com/ukydev/road-monitor/internal/db"
	"github.com/ukydev/road-monitor/internal/models"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService    *auth.Service
	userCollection db.UserCollection
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService *auth.Service, userCollection db.UserCollection) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		userCollection: userCollection,
	}
}

// RegisterRoutes mounts the authentication endpoints on the router.
func (h *AuthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/auth/login", h.Login).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/register", h.Register).Methods(http.MethodPost)
}

// Login handles user login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var loginReq models.LoginRequest
	if err := json.Unmarshal(body, &loginReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if loginReq.Username == "" || loginReq.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.userCollection.FindUserByUsername(r.Context(), loginReq.Username)
	if err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	if !user.IsActive {
		http.Error(w, "Account is deactivated", http.StatusUnauthorized)
		return
	}

	if !h.authService.CheckPassword(loginReq.Password, user.PasswordHash) {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		log.WithError(err).Error("Failed to generate token")
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, models.LoginResponse{
		Token: token,
		User:  *user,
	})
}

// Register handles user registration
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var registerReq models.RegisterRequest
	if err := json.Unmarshal(body, &registerReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if err := h.authService.ValidateUsername(registerReq.Username); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.authService.ValidateEmail(registerReq.Email); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.authService.ValidatePassword(registerReq.Password); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := h.userCollection.FindUserByUsername(r.Context(), registerReq.Username); err == nil {
		http.Error(w, "Username already taken", http.StatusConflict)
		return
	} else if !errors.Is(err, db.ErrNotFound) {
		log.WithError(err).Error("Failed to check username")
		http.Error(w, "Failed to register", http.StatusInternalServerError)
		return
	}

	hash, err := h.authService.HashPassword(registerReq.Password)
	if err != nil {
		log.WithError(err).Error("Failed to hash password")
		http.Error(w, "Failed to register", http.StatusInternalServerError)
		return
	}

	user := models.User{
		Username:     registerReq.Username,
		Email:        registerReq.Email,
		PasswordHash: hash,
	}
	if err := h.userCollection.InsertUser(r.Context(), user); err != nil {
		log.WithError(err).Error("Failed to insert user")
		http.Error(w, "Failed to register", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}
