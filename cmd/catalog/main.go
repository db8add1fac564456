package main

import (
	"log"
	"net/http"
	"strconv"

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
	log.Println("Starting catalog service...")

	cfg, err := config.LoadService(":8060", "library")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db = database.InitLibraryDB(cfg.DB.DSN())

	seedTestData()

	server := gin.Default()
	api := server.Group("/api/v1", auth.Middleware([]byte(cfg.JWTSecret)))
	api.GET("/books", getBooks)
	api.GET("/books/available", getAvailableBooks)
	api.GET("/books/:bookUid", getBook)
	api.POST("/books", createBook)
	api.PUT("/books/:bookUid", updateBook)
	api.DELETE("/books/:bookUid", deleteBook)
	server.GET("/manage/health", healthCheck)

	log.Printf("Catalog service starting on %s", cfg.Addr)
	if err := server.Run(cfg.Addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func bookJSON(book models.Book) gin.H {
	return gin.H{
		"bookUid":         book.BookUid,
		"title":           book.Title,
		"authorName":      book.AuthorName,
		"genre":           book.Genre,
		"publishedYear":   book.PublishedYear,
		"totalCopies":     book.TotalCopies,
		"copiesAvailable": book.CopiesAvailable,
	}
}

func getBooks(c *gin.Context) {
	pageStr := c.DefaultQuery("page", "1")
	sizeStr := c.DefaultQuery("size", "10")
	genre := c.Query("genre")

	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(sizeStr)
	if err != nil || size < 1 || size > 100 {
		size = 10
	}

	query := db.Model(&models.Book{})
	if genre != "" {
		query = query.Where("genre = ?", genre)
	}

	var totalElements int64
	query.Count(&totalElements)

	var books []models.Book
	offset := (page - 1) * size
	if err := query.Offset(offset).Limit(size).Find(&books).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	items := make([]gin.H, len(books))
	for i, book := range books {
		items[i] = bookJSON(book)
	}
	c.JSON(http.StatusOK, gin.H{
		"page":          page,
		"pageSize":      size,
		"totalElements": totalElements,
		"items":         items,
	})
}

func getAvailableBooks(c *gin.Context) {
	var books []models.Book
	if err := db.Where("copies_available > 0").Find(&books).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	items := make([]gin.H, len(books))
	for i, book := range books {
		items[i] = bookJSON(book)
	}
	c.JSON(http.StatusOK, items)
}

func getBook(c *gin.Context) {
	bookUid := c.Param("bookUid")

	var book models.Book
	if err := db.Where("book_uid = ?", bookUid).First(&book).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Book not found"})
		return
	}
	c.JSON(http.StatusOK, bookJSON(book))
}

func createBook(c *gin.Context) {
	var request struct {
		Title         string `json:"title" binding:"required"`
		AuthorName    string `json:"authorName"`
		Genre         string `json:"genre"`
		PublishedYear int    `json:"publishedYear"`
		TotalCopies   int    `json:"totalCopies" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	book := models.Book{
		BookUid:         uuid.New().String(),
		Title:           request.Title,
		AuthorName:      request.AuthorName,
		Genre:           request.Genre,
		PublishedYear:   request.PublishedYear,
		TotalCopies:     request.TotalCopies,
		CopiesAvailable: request.TotalCopies,
	}
	if err := db.Create(&book).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create book"})
		return
	}
	c.JSON(http.StatusCreated, bookJSON(book))
}

func updateBook(c *gin.Context) {
	bookUid := c.Param("bookUid")

	var request struct {
		Title         string `json:"title"`
		AuthorName    string `json:"authorName"`
		Genre         string `json:"genre"`
		PublishedYear int    `json:"publishedYear"`
		TotalCopies   *int   `json:"totalCopies"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	var book models.Book
	if err := db.Where("book_uid = ?", bookUid).First(&book).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Book not found"})
		return
	}

	if request.Title != "" {
		book.Title = request.Title
	}
	if request.AuthorName != "" {
		book.AuthorName = request.AuthorName
	}
	if request.Genre != "" {
		book.Genre = request.Genre
	}
	if request.PublishedYear != 0 {
		book.PublishedYear = request.PublishedYear
	}
	if request.TotalCopies != nil {
		onLoan := book.TotalCopies - book.CopiesAvailable
		if *request.TotalCopies < onLoan {
			c.JSON(http.StatusConflict, gin.H{"error": "total copies cannot drop below copies on loan"})
			return
		}
		book.TotalCopies = *request.TotalCopies
		book.CopiesAvailable = *request.TotalCopies - onLoan
	}

	if err := db.Save(&book).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update book"})
		return
	}
	c.JSON(http.StatusOK, bookJSON(book))
}

func deleteBook(c *gin.Context) {
	bookUid := c.Param("bookUid")

	var book models.Book
	if err := db.Where("book_uid = ?", bookUid).First(&book).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Book not found"})
		return
	}

	if book.CopiesAvailable < book.TotalCopies {
		c.JSON(http.StatusConflict, gin.H{"error": "book has copies on loan"})
		return
	}

	if err := db.Delete(&book).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete book"})
		return
	}
	c.Status(http.StatusNoContent)
}

func seedTestData() {
	books := []models.Book{
		{Title: "To Kill a Mockingbird", AuthorName: "Harper Lee", Genre: "Fiction", PublishedYear: 1960, TotalCopies: 5, CopiesAvailable: 5},
		{Title: "The Go Programming Language", AuthorName: "Alan Donovan", Genre: "Technology", PublishedYear: 2015, TotalCopies: 3, CopiesAvailable: 3},
		{Title: "Pride and Prejudice", AuthorName: "Jane Austen", Genre: "Fiction", PublishedYear: 1813, TotalCopies: 2, CopiesAvailable: 2},
	}

	for _, book := range books {
		var existing models.Book
		if err := db.Where("title = ?", book.Title).First(&existing).Error; err != nil {
			book.BookUid = uuid.New().String()
			if err := db.Create(&book).Error; err != nil {
				log.Printf("Failed to create book %s: %v", book.Title, err)
			}
		}
	}
	log.Println("Catalog test data seeded")
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
