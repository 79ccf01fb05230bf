package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-ordering/middlewares"
	"github.com/yeremiapane/restaurant-ordering/models"
	"github.com/yeremiapane/restaurant-ordering/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserController struct {
	DB     *gorm.DB
	Tokens *utils.JWTManager
}

func NewUserController(db *gorm.DB, tokens *utils.JWTManager) *UserController {
	return &UserController{DB: db, Tokens: tokens}
}

// Login user -> return JWT
func (uc *UserController) Login(c *gin.Context) {
	var input struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindingError(c, err)
		return
	}

	var user models.User
	err := uc.DB.WithContext(c.Request.Context()).Where("username = ?", input.Username).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		respondServiceError(c, utils.NewInternalError("failed to load user", err))
		return
	}
	if err != nil || !user.IsActive || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)) != nil {
		utils.InfoLogger.WithField("username", input.Username).Warn("failed login")
		utils.RespondError(c, http.StatusUnauthorized, utils.CodeInvalidCredentials, errors.New("invalid credentials"))
		return
	}

	token, err := uc.Tokens.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		respondServiceError(c, utils.NewInternalError("failed to sign token", err))
		return
	}

	utils.InfoLogger.Printf("Login successful for user: %s, role: %s", user.Username, user.Role)
	utils.RespondJSON(c, http.StatusOK, "Login successful", gin.H{
		"token": token,
		"user":  user,
	})
}

// GetProfile -> the user behind the token
func (uc *UserController) GetProfile(c *gin.Context) {
	var user models.User
	err := uc.DB.WithContext(c.Request.Context()).First(&user, "id = ?", c.GetString(middlewares.ContextUserID)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, utils.CodeUserNotFound, errors.New("user not found"))
			return
		}
		respondServiceError(c, utils.NewInternalError("failed to load user", err))
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Profile data retrieved successfully", gin.H{"user": user})
}
