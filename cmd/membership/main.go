package main

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"library-system/pkg/auth"
	"library-system/pkg/config"
	"library-system/pkg/database"
	"library-system/pkg/models"
)

var db *gorm.DB

func main() {
	log.Println("Starting membership service...")

	cfg, err := config.LoadService(":8050", "members")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db = database.InitMembershipDB(cfg.DB.DSN())

	server := gin.Default()
	api := server.Group("/api/v1", auth.Middleware([]byte(cfg.JWTSecret)))
	api.GET("/members", getMembers)
	api.GET("/members/:memberUid", getMember)
	api.POST("/members", createMember)
	api.PUT("/members/:memberUid", updateMember)
	api.DELETE("/members/:memberUid", deleteMember)
	server.GET("/manage/health", healthCheck)

	log.Printf("Membership service starting on %s", cfg.Addr)
	if err := server.Run(cfg.Addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func memberJSON(member models.Member) gin.H {
	return gin.H{
		"memberUid":      member.MemberUid,
		"name":           member.Name,
		"email":          member.Email,
		"phone":          member.Phone,
		"address":        member.Address,
		"membershipDate": member.MembershipDate.Format("2006-01-02"),
	}
}

func getMembers(c *gin.Context) {
	pageStr := c.DefaultQuery("page", "1")
	sizeStr := c.DefaultQuery("size", "10")

	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(sizeStr)
	if err != nil || size < 1 || size > 100 {
		size = 10
	}

	var totalElements int64
	db.Model(&models.Member{}).Count(&totalElements)

	var members []models.Member
	offset := (page - 1) * size
	if err := db.Offset(offset).Limit(size).Find(&members).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	items := make([]gin.H, len(members))
	for i, member := range members {
		items[i] = memberJSON(member)
	}
	c.JSON(http.StatusOK, gin.H{
		"page":          page,
		"pageSize":      size,
		"totalElements": totalElements,
		"items":         items,
	})
}

func getMember(c *gin.Context) {
	memberUid := c.Param("memberUid")

	var member models.Member
	if err := db.Where("member_uid = ?", memberUid).First(&member).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
		return
	}
	c.JSON(http.StatusOK, memberJSON(member))
}

func createMember(c *gin.Context) {
	var request struct {
		Name    string `json:"name" binding:"required"`
		Email   string `json:"email" binding:"required,email"`
		Phone   string `json:"phone"`
		Address string `json:"address"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	member := models.Member{
		MemberUid:      uuid.New().String(),
		Name:           request.Name,
		Email:          request.Email,
		Phone:          request.Phone,
		Address:        request.Address,
		MembershipDate: time.Now(),
	}
	if err := db.Create(&member).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "member with this email already exists"})
		return
	}
	c.JSON(http.StatusCreated, memberJSON(member))
}

func updateMember(c *gin.Context) {
	memberUid := c.Param("memberUid")

	var request struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Phone   string `json:"phone"`
		Address string `json:"address"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	var member models.Member
	if err := db.Where("member_uid = ?", memberUid).First(&member).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
		return
	}

	if request.Name != "" {
		member.Name = request.Name
	}
	if request.Email != "" {
		member.Email = request.Email
	}
	if request.Phone != "" {
		member.Phone = request.Phone
	}
	if request.Address != "" {
		member.Address = request.Address
	}

	if err := db.Save(&member).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update member"})
		return
	}
	c.JSON(http.StatusOK, memberJSON(member))
}

func deleteMember(c *gin.Context) {
	memberUid := c.Param("memberUid")

	var member models.Member
	if err := db.Where("member_uid = ?", memberUid).First(&member).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
		return
	}
	if err := db.Delete(&member).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete member"})
		return
	}
	c.Status(http.StatusNoContent)
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
