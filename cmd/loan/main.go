package main

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"library-system/pkg/auth"
	"library-system/pkg/config"
	"library-system/pkg/database"
	"library-system/pkg/loans"
	"library-system/pkg/models"
)

var db *gorm.DB

var (
	errBookNotFound    = errors.New("book not found")
	errNoCopies        = errors.New("no copies available")
	errLoanNotFound    = errors.New("loan not found")
	errAlreadyReturned = errors.New("loan already returned")
)

func main() {
	log.Println("Starting loan service...")

	cfg, err := config.LoadService(":8070", "library")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db = database.InitLibraryDB(cfg.DB.DSN())

	server := gin.Default()
	api := server.Group("/api/v1", auth.Middleware([]byte(cfg.JWTSecret)))
	api.GET("/loans", getLoans)
	api.GET("/loans/active/count", getActiveLoanCount)
	api.POST("/loans", createLoan)
	api.POST("/loans/:loanUid/return", completeLoan)
	server.GET("/manage/health", healthCheck)

	log.Printf("Loan service starting on %s", cfg.Addr)
	if err := server.Run(cfg.Addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func viewOf(loan models.Loan) loans.Loan {
	return loans.Loan{
		LoanUid:     loan.LoanUid,
		BookUid:     loan.BookUid,
		MemberUid:   loan.MemberUid,
		LoanDate:    loan.LoanDate,
		DueDate:     loan.DueDate,
		ReturnDate:  loan.ReturnDate,
		IsOverdue:   loan.OverdueAtReturn,
		DaysOverdue: loan.DaysOverdue,
	}
}

func loanJSON(loan models.Loan, book *models.Book) gin.H {
	st := loans.ComputeOverdueStatus(viewOf(loan), time.Now())
	h := gin.H{
		"loanUid":     loan.LoanUid,
		"bookUid":     loan.BookUid,
		"memberUid":   loan.MemberUid,
		"loanDate":    loan.LoanDate,
		"dueDate":     loan.DueDate,
		"returnDate":  loan.ReturnDate,
		"isOverdue":   st.IsOverdue,
		"daysOverdue": st.DaysOverdue,
	}
	if book != nil {
		h["book"] = gin.H{
			"bookUid":         book.BookUid,
			"title":           book.Title,
			"authorName":      book.AuthorName,
			"genre":           book.Genre,
			"publishedYear":   book.PublishedYear,
			"totalCopies":     book.TotalCopies,
			"copiesAvailable": book.CopiesAvailable,
		}
	}
	return h
}

// createLoan decrements the book's availability and inserts the loan record
// in one transaction, so two concurrent issues can never both take the last
// copy. An X-Idempotency-Key header makes retries safe: a replayed create
// returns the loan from the first attempt.
func createLoan(c *gin.Context) {
	var request struct {
		MemberUid      string `json:"memberUid" binding:"required"`
		BookUid        string `json:"bookUid" binding:"required"`
		LoanPeriodDays int    `json:"loanPeriodDays"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	if request.LoanPeriodDays == 0 {
		request.LoanPeriodDays = loans.DefaultLoanPeriodDays
	}
	if request.LoanPeriodDays < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "loanPeriodDays must be positive"})
		return
	}

	idempotencyKey := c.GetHeader("X-Idempotency-Key")
	if idempotencyKey != "" {
		var existing models.Loan
		if err := db.Where("idempotency_key = ?", idempotencyKey).First(&existing).Error; err == nil {
			var book models.Book
			db.Where("book_uid = ?", existing.BookUid).First(&book)
			c.JSON(http.StatusOK, loanJSON(existing, &book))
			return
		}
	}

	now := time.Now()
	var loan models.Loan
	err := db.Transaction(func(tx *gorm.DB) error {
		var book models.Book
		if err := tx.Where("book_uid = ?", request.BookUid).First(&book).Error; err != nil {
			return errBookNotFound
		}

		// Conditional decrement: zero rows affected means the last copy
		// was taken concurrently.
		res := tx.Model(&models.Book{}).
			Where("book_uid = ? AND copies_available > 0", request.BookUid).
			UpdateColumn("copies_available", gorm.Expr("copies_available - 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errNoCopies
		}

		loan = models.Loan{
			LoanUid:   uuid.New().String(),
			BookUid:   request.BookUid,
			MemberUid: request.MemberUid,
			LoanDate:  now,
			DueDate:   loans.DueDate(now, request.LoanPeriodDays),
		}
		if idempotencyKey != "" {
			loan.IdempotencyKey = &idempotencyKey
		}
		return tx.Create(&loan).Error
	})

	switch {
	case errors.Is(err, errBookNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Book not found"})
		return
	case errors.Is(err, errNoCopies):
		c.JSON(http.StatusConflict, gin.H{"error": "no copies available"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create loan"})
		return
	}

	var book models.Book
	db.Where("book_uid = ?", loan.BookUid).First(&book)
	c.JSON(http.StatusCreated, loanJSON(loan, &book))
}

// completeLoan closes an active loan: sets the return date, freezes the
// overdue status computed at that instant and restores the book's
// availability, all in one transaction. A second return is a conflict.
func completeLoan(c *gin.Context) {
	loanUid := c.Param("loanUid")
	now := time.Now()

	var loan models.Loan
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("loan_uid = ?", loanUid).First(&loan).Error; err != nil {
			return errLoanNotFound
		}
		if loan.ReturnDate != nil {
			return errAlreadyReturned
		}

		st := loans.Overdue(loan.DueDate, now)
		loan.ReturnDate = &now
		loan.OverdueAtReturn = st.IsOverdue
		loan.DaysOverdue = st.DaysOverdue
		if err := tx.Save(&loan).Error; err != nil {
			return err
		}

		// Capped at total_copies so a stray return can never inflate stock.
		res := tx.Model(&models.Book{}).
			Where("book_uid = ? AND copies_available < total_copies", loan.BookUid).
			UpdateColumn("copies_available", gorm.Expr("copies_available + 1"))
		return res.Error
	})

	switch {
	case errors.Is(err, errLoanNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Loan not found"})
		return
	case errors.Is(err, errAlreadyReturned):
		c.JSON(http.StatusConflict, gin.H{"error": "loan already returned"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to complete loan"})
		return
	}

	var book models.Book
	db.Where("book_uid = ?", loan.BookUid).First(&book)
	c.JSON(http.StatusOK, loanJSON(loan, &book))
}

func getLoans(c *gin.Context) {
	memberUid := c.Query("memberUid")
	activeOnly := c.Query("active") == "true"
	overdueOnly := c.Query("overdue") == "true"

	query := db.Model(&models.Loan{})
	if memberUid != "" {
		query = query.Where("member_uid = ?", memberUid)
	}
	if activeOnly {
		query = query.Where("return_date IS NULL")
	}

	var list []models.Loan
	if err := query.Order("loan_date DESC").Find(&list).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	books := loadBooks(list)
	now := time.Now()

	items := make([]gin.H, 0, len(list))
	for _, loan := range list {
		if overdueOnly && !loans.ComputeOverdueStatus(viewOf(loan), now).IsOverdue {
			continue
		}
		items = append(items, loanJSON(loan, books[loan.BookUid]))
	}
	c.JSON(http.StatusOK, items)
}

func loadBooks(list []models.Loan) map[string]*models.Book {
	uids := make([]string, 0, len(list))
	seen := make(map[string]bool)
	for _, loan := range list {
		if !seen[loan.BookUid] {
			seen[loan.BookUid] = true
			uids = append(uids, loan.BookUid)
		}
	}
	result := make(map[string]*models.Book, len(uids))
	if len(uids) == 0 {
		return result
	}
	var books []models.Book
	if err := db.Where("book_uid IN ?", uids).Find(&books).Error; err != nil {
		log.Printf("Failed to load book snapshots: %v", err)
		return result
	}
	for i := range books {
		result[books[i].BookUid] = &books[i]
	}
	return result
}

func getActiveLoanCount(c *gin.Context) {
	memberUid := c.Query("memberUid")
	if memberUid == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "memberUid is required"})
		return
	}

	var count int64
	err := db.Model(&models.Loan{}).
		Where("member_uid = ? AND return_date IS NULL", memberUid).
		Count(&count).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
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
