package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "finwise/internal/errors"
	"finwise/internal/identity"
	"finwise/internal/middleware"
	"finwise/internal/models"
	"finwise/internal/services"
)

// AuthHandler handles authentication and profile requests
type AuthHandler struct {
	userService  services.UserServicer
	auditService services.AuditServicer
	verifier     identity.Verifier
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(userService services.UserServicer, auditService services.AuditServicer, verifier identity.Verifier) *AuthHandler {
	return &AuthHandler{userService: userService, auditService: auditService, verifier: verifier}
}

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// GoogleLoginRequest carries the ID token returned by Google Identity Services.
type GoogleLoginRequest struct {
	Credential string `json:"credential" binding:"required"`
}

// UpdateThemeRequest represents the theme update payload
type UpdateThemeRequest struct {
	Theme models.Theme `json:"theme" binding:"required,theme"`
}

// UserResponse represents the user data in the response
type UserResponse struct {
	ID       string              `json:"id"`
	Name     string              `json:"name"`
	Email    string              `json:"email"`
	Theme    models.Theme        `json:"theme"`
	Provider models.AuthProvider `json:"provider"`
}

// AuthResponse represents the authentication response with token
type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

func newUserResponse(user *models.User) UserResponse {
	return UserResponse{
		ID:       user.ID,
		Name:     user.Name,
		Email:    user.Email,
		Theme:    user.Theme,
		Provider: user.Provider,
	}
}

// respondWithToken issues a token for user and writes it with the profile.
func respondWithToken(c *gin.Context, status int, user *models.User) {
	token, err := middleware.GenerateToken(user)
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}
	c.JSON(status, AuthResponse{Token: token, User: newUserResponse(user)})
}

// Register handles user registration
// @Summary     Register a new user
// @Description Register a new user with name, email and password
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body RegisterRequest true "User registration data"
// @Success     201 {object} AuthResponse "User registered and token generated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     409 {object} ErrorResponse "Email already registered"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	user, err := h.userService.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), services.AuditEntry{
		UserID:       user.ID,
		Action:       "REGISTER",
		ResourceType: "user",
		ResourceID:   user.ID,
		IPAddress:    c.ClientIP(),
	})

	respondWithToken(c, http.StatusCreated, user)
}

// Login handles user login
// @Summary     Login user
// @Description Authenticate a user and get a token
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body LoginRequest true "User login credentials"
// @Success     200 {object} AuthResponse "User authenticated and token generated"
// @Failure     400 {object} ErrorResponse "Invalid input or social account"
// @Failure     401 {object} ErrorResponse "Invalid credentials"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	user, err := h.userService.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondWithError(c, err)
		return
	}

	respondWithToken(c, http.StatusOK, user)
}

// GoogleLogin handles Google sign-in
// @Summary     Sign in with Google
// @Description Verify a Google ID token and sign in, linking or creating the account
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body GoogleLoginRequest true "Google ID token"
// @Success     200 {object} AuthResponse "User authenticated and token generated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Invalid ID token"
// @Failure     503 {object} ErrorResponse "Google sign-in not configured"
// @Router      /auth/google [post]
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	var req GoogleLoginRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	profile, err := h.verifier.Verify(c.Request.Context(), req.Credential)
	if err != nil {
		respondWithError(c, err)
		return
	}

	user, err := h.userService.LoginWithGoogle(c.Request.Context(), profile)
	if err != nil {
		respondWithError(c, err)
		return
	}

	respondWithToken(c, http.StatusOK, user)
}

// GetProfile returns the user's profile
// @Summary     Get user profile
// @Description Get the authenticated user's profile information
// @Tags        user
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} UserResponse "User profile"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "User not found"
// @Router      /profile [get]
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	user, err := h.userService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": newUserResponse(user)})
}

// UpdateTheme stores the user's UI theme
// @Summary     Update theme
// @Description Set the authenticated user's UI theme (light or dark)
// @Tags        user
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body UpdateThemeRequest true "Theme"
// @Success     200 {object} UserResponse "Updated profile"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /profile/theme [put]
func (h *AuthHandler) UpdateTheme(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateThemeRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	user, err := h.userService.UpdateTheme(c.Request.Context(), userID, req.Theme)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": newUserResponse(user)})
}

// DeleteAccount removes the user together with their transactions and
// categories
// @Summary     Delete account
// @Description Delete the authenticated user and all of their data
// @Tags        user
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string]string "Account deleted"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "User not found"
// @Router      /profile [delete]
func (h *AuthHandler) DeleteAccount(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.userService.DeleteUser(c.Request.Context(), userID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), services.AuditEntry{
		UserID:       userID,
		Action:       "DELETE_ACCOUNT",
		ResourceType: "user",
		ResourceID:   userID,
		IPAddress:    c.ClientIP(),
	})

	c.JSON(http.StatusOK, gin.H{"message": "Account deleted successfully"})
}
