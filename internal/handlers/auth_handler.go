package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/railbook/train-booking-backend/internal/database"
	"github.com/railbook/train-booking-backend/internal/models"
	"github.com/railbook/train-booking-backend/pkg/jwt"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// AuthHandler handles account registration and login
type AuthHandler struct {
	userRepo    *database.UserRepository
	jwtService  *jwt.Service
	bcryptCost  int
	tokenExpiry time.Duration
	logger      *logrus.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(userRepo *database.UserRepository, jwtService *jwt.Service, bcryptCost int, tokenExpiry time.Duration, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		userRepo:    userRepo,
		jwtService:  jwtService,
		bcryptCost:  bcryptCost,
		tokenExpiry: tokenExpiry,
		logger:      logger,
	}
}

// Register creates a new passenger account
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body: " + err.Error(),
			"code":  "INVALID_REQUEST",
		})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.bcryptCost)
	if err != nil {
		h.logger.WithError(err).Error("Failed to hash password")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error", "code": "INTERNAL_ERROR"})
		return
	}

	user, err := h.userRepo.Create(strings.ToLower(strings.TrimSpace(req.Email)), req.Name, string(hash))
	if err != nil {
		if errors.Is(err, database.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{
				"error": "an account with this email already exists",
				"code":  "EMAIL_TAKEN",
			})
			return
		}
		respondError(c, h.logger, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   user.Email,
	}).Info("User registered")

	c.JSON(http.StatusCreated, user)
}

// Login authenticates a user and issues an access token
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body: " + err.Error(),
			"code":  "INVALID_REQUEST",
		})
		return
	}

	user, err := h.userRepo.GetByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	// Same response for unknown email and wrong password
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "invalid email or password",
			"code":  "INVALID_CREDENTIALS",
		})
		return
	}

	token, err := h.jwtService.GenerateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		h.logger.WithError(err).Error("Failed to generate access token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error", "code": "INTERNAL_ERROR"})
		return
	}

	c.JSON(http.StatusOK, models.LoginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(h.tokenExpiry),
		User:      user,
	})
}
