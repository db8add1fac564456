package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"library-system/pkg/auth"
	"library-system/pkg/config"
	"library-system/pkg/database"
	"library-system/pkg/models"
)

var (
	db        *gorm.DB
	jwtSecret []byte
)

const tokenTTL = time.Hour

func main() {
	log.Println("Starting auth service...")

	cfg, err := config.LoadService(":8040", "auth")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	jwtSecret = []byte(cfg.JWTSecret)

	db = database.InitAuthDB(cfg.DB.DSN())

	server := gin.Default()
	server.POST("/api/v1/auth/register", register)
	server.POST("/api/v1/auth/login", login)
	server.GET("/manage/health", healthCheck)

	log.Printf("Auth service starting on %s", cfg.Addr)
	if err := server.Run(cfg.Addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func register(c *gin.Context) {
	var request struct {
		Username  string `json:"username" binding:"required,min=3"`
		Password  string `json:"password" binding:"required,min=8"`
		Role      string `json:"role"`
		MemberUid string `json:"memberUid"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	role := request.Role
	if role != "LIBRARIAN" {
		role = "MEMBER"
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(request.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
		return
	}

	account := models.Account{
		Username:     request.Username,
		PasswordHash: string(hash),
		Role:         role,
		MemberUid:    request.MemberUid,
	}
	if err := db.Create(&account).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"username": account.Username,
		"role":     account.Role,
	})
}

func login(c *gin.Context) {
	var request struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	var account models.Account
	if err := db.Where("username = ?", request.Username).First(&account).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(request.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
		return
	}

	token, err := auth.IssueToken(jwtSecret, account.Username, account.Role, account.MemberUid, tokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"accessToken": token,
		"tokenType":   "Bearer",
		"expiresIn":   int(tokenTTL.Seconds()),
		"role":        account.Role,
		"memberUid":   account.MemberUid,
	})
}

func healthCheck(ctx *gin.Context) {
	sqlDB, err := db.DB()
	if err != nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "DOWN",
			"details": "Database connection failed",
			"error":   err.Error(),
		})
		return
	}
	if err := sqlDB.Ping(); err != nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "DOWN",
			"details": "Database ping failed",
			"error":   err.Error(),
		})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"status": "UP",
	})
}
