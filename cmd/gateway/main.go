package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"library-system/pkg/auth"
	"library-system/pkg/clients"
	"library-system/pkg/config"
	"library-system/pkg/loans"
	"library-system/pkg/queue"
)

var (
	cfg        config.Gateway
	manager    *loans.Manager
	loanClient *clients.LoanClient
	retryQueue *queue.RetryQueue
	httpClient *http.Client
)

func main() {
	var err error
	cfg, err = config.LoadGateway()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	catalogClient := clients.NewCatalogClient(cfg.CatalogURL, cfg.RequestTimeout, cfg.BreakerMaxFailures, cfg.BreakerCooldown)
	membershipClient := clients.NewMembershipClient(cfg.MembershipURL, cfg.RequestTimeout, cfg.BreakerMaxFailures, cfg.BreakerCooldown)
	loanClient = clients.NewLoanClient(cfg.LoanURL, cfg.RequestTimeout, cfg.BreakerMaxFailures, cfg.BreakerCooldown)
	manager = loans.NewManager(catalogClient, membershipClient, loanClient)

	retryQueue = queue.NewRetryQueue()
	go drainRetryQueue()

	httpClient = &http.Client{Timeout: cfg.RequestTimeout}

	r := gin.Default()

	// Login and registration pass through unauthenticated; everything else
	// requires a valid bearer token before any domain logic runs.
	r.POST("/api/v1/auth/login", proxy(func() string { return cfg.AuthURL }))
	r.POST("/api/v1/auth/register", proxy(func() string { return cfg.AuthURL }))

	api := r.Group("/api/v1", auth.Middleware([]byte(cfg.JWTSecret)))
	api.GET("/books", proxy(func() string { return cfg.CatalogURL }))
	api.GET("/books/available", proxy(func() string { return cfg.CatalogURL }))
	api.GET("/books/:bookUid", proxy(func() string { return cfg.CatalogURL }))
	api.POST("/books", proxy(func() string { return cfg.CatalogURL }))
	api.PUT("/books/:bookUid", proxy(func() string { return cfg.CatalogURL }))
	api.DELETE("/books/:bookUid", proxy(func() string { return cfg.CatalogURL }))

	api.GET("/members", proxy(func() string { return cfg.MembershipURL }))
	api.GET("/members/:memberUid", proxy(func() string { return cfg.MembershipURL }))
	api.POST("/members", proxy(func() string { return cfg.MembershipURL }))
	api.PUT("/members/:memberUid", proxy(func() string { return cfg.MembershipURL }))
	api.DELETE("/members/:memberUid", proxy(func() string { return cfg.MembershipURL }))

	api.GET("/loans", getLoansHandler)
	api.GET("/loans/active", getActiveLoansHandler)
	api.GET("/loans/overdue", getOverdueLoansHandler)
	api.GET("/loans/by-member", getLoansByMemberHandler)
	api.POST("/loans/borrow", borrowBookHandler)
	api.POST("/loans/return", bulkReturnHandler)
	api.POST("/loans/:loanUid/return", returnBookHandler)

	r.GET("/manage/health", healthCheck)

	log.Printf("Gateway service starting on %s", cfg.Addr)
	if err := r.Run(cfg.Addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// requestContext carries the caller's bearer credential so the store clients
// forward it downstream.
func requestContext(c *gin.Context) context.Context {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	return clients.WithToken(c.Request.Context(), token)
}

func statusForError(err error) int {
	switch loans.KindOf(err) {
	case loans.KindNotFound:
		return http.StatusNotFound
	case loans.KindConflict:
		return http.StatusConflict
	case loans.KindUnauthenticated:
		return http.StatusUnauthorized
	case loans.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	c.JSON(statusForError(err), gin.H{"error": err.Error()})
}

func loanView(l loans.Loan) gin.H {
	h := gin.H{
		"loanUid":     l.LoanUid,
		"bookUid":     l.BookUid,
		"memberUid":   l.MemberUid,
		"loanDate":    l.LoanDate.Format("2006-01-02"),
		"dueDate":     l.DueDate.Format("2006-01-02"),
		"isOverdue":   l.IsOverdue,
		"daysOverdue": l.DaysOverdue,
	}
	if l.ReturnDate != nil {
		h["returnDate"] = l.ReturnDate.Format("2006-01-02")
	} else {
		h["returnDate"] = nil
	}
	if l.Book != nil {
		h["book"] = l.Book
	}
	if l.Member != nil {
		h["member"] = l.Member
	}
	return h
}

func borrowBookHandler(c *gin.Context) {
	var request struct {
		MemberUid      string `json:"memberUid" binding:"required"`
		BookUid        string `json:"bookUid" binding:"required"`
		LoanPeriodDays int    `json:"loanPeriodDays"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "validation error",
			"errors": map[string]string{
				"field": "request",
				"error": err.Error(),
			},
		})
		return
	}
	if request.LoanPeriodDays < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "loanPeriodDays must be positive"})
		return
	}

	loan, err := manager.IssueLoan(requestContext(c), request.MemberUid, request.BookUid, request.LoanPeriodDays)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, loanView(*loan))
}

func returnBookHandler(c *gin.Context) {
	loan, err := manager.ReturnLoan(requestContext(c), c.Param("loanUid"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, loanView(*loan))
}

// bulkReturnHandler applies each return independently: one failure does not
// roll back the others and every loan gets its own outcome in the response.
// Returns that failed because the loan store was unreachable are queued for
// a background replay.
func bulkReturnHandler(c *gin.Context) {
	var request struct {
		LoanUids []string `json:"loanUids" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	results := manager.ReturnLoans(requestContext(c), request.LoanUids)

	items := make([]gin.H, len(results))
	for i, res := range results {
		item := gin.H{"loanUid": res.LoanUid}
		if res.Err != nil {
			item["status"] = "FAILED"
			item["error"] = res.Err.Error()
			if loans.IsUnavailable(res.Err) {
				retryQueue.Enqueue(&queue.PendingReturn{
					LoanUid:     res.LoanUid,
					Token:       token,
					MaxAttempts: cfg.RetryMaxAttempts,
					RetryAt:     time.Now().Add(cfg.RetryBase),
				})
				item["status"] = "QUEUED"
			}
		} else {
			item["status"] = "RETURNED"
			item["loan"] = loanView(*res.Loan)
		}
		items[i] = item
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// drainRetryQueue replays queued returns. A Conflict answer means the return
// already went through on an earlier attempt, so the item is done.
func drainRetryQueue() {
	for {
		item := retryQueue.Dequeue()
		if item == nil {
			time.Sleep(time.Second)
			continue
		}

		ctx := clients.WithToken(context.Background(), item.Token)
		_, err := loanClient.CompleteLoan(ctx, item.LoanUid)
		switch {
		case err == nil || loans.IsConflict(err):
			log.Printf("Queued return for loan %s applied", item.LoanUid)
		case loans.IsUnavailable(err):
			if !retryQueue.Requeue(item, cfg.RetryBase) {
				log.Printf("Giving up on queued return for loan %s after %d attempts", item.LoanUid, item.Attempts)
			}
		default:
			log.Printf("Queued return for loan %s failed: %v", item.LoanUid, err)
		}
	}
}

func listLoans(c *gin.Context, filter loans.ListFilter, overdueOnly bool) {
	list, err := manager.ListLoans(requestContext(c), filter)
	if err != nil {
		abortWithError(c, err)
		return
	}

	activeCount := 0
	overdueCount := 0
	items := make([]gin.H, 0, len(list))
	for _, l := range list {
		if l.Active() {
			activeCount++
		}
		if l.IsOverdue {
			overdueCount++
		}
		if overdueOnly && !l.IsOverdue {
			continue
		}
		items = append(items, loanView(l))
	}

	c.JSON(http.StatusOK, gin.H{
		"totalElements": len(list),
		"activeCount":   activeCount,
		"overdueCount":  overdueCount,
		"items":         items,
	})
}

func getLoansHandler(c *gin.Context) {
	listLoans(c, loans.ListFilter{MemberUid: c.Query("memberUid")}, false)
}

func getActiveLoansHandler(c *gin.Context) {
	listLoans(c, loans.ListFilter{MemberUid: c.Query("memberUid"), ActiveOnly: true}, false)
}

func getOverdueLoansHandler(c *gin.Context) {
	listLoans(c, loans.ListFilter{MemberUid: c.Query("memberUid"), ActiveOnly: true}, true)
}

// getLoansByMemberHandler groups active loans per member for the return
// workflow, one bucket per member with their borrowed books.
func getLoansByMemberHandler(c *gin.Context) {
	list, err := manager.ListLoans(requestContext(c), loans.ListFilter{ActiveOnly: true})
	if err != nil {
		abortWithError(c, err)
		return
	}

	grouped := loans.GroupLoansByMember(list)
	items := make([]gin.H, 0, len(grouped))
	for memberUid, memberLoans := range grouped {
		views := make([]gin.H, len(memberLoans))
		for i, l := range memberLoans {
			views[i] = loanView(l)
		}
		entry := gin.H{
			"memberUid": memberUid,
			"loans":     views,
		}
		if memberLoans[0].Member != nil {
			entry["member"] = memberLoans[0].Member
		}
		items = append(items, entry)
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// proxy forwards the request body, query and bearer credential to one of the
// stores and relays the response as-is.
func proxy(target func() string) gin.HandlerFunc {
	return func(c *gin.Context) {
		url := target() + c.Request.URL.Path
		if query := c.Request.URL.RawQuery; query != "" {
			url += "?" + query
		}

		req, err := http.NewRequest(c.Request.Method, url, c.Request.Body)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create request"})
			return
		}
		req.Header.Set("Content-Type", c.ContentType())
		req.Header.Set("Authorization", c.GetHeader("Authorization"))

		response, err := httpClient.Do(req)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to perform request"})
			return
		}
		defer response.Body.Close()

		body, err := io.ReadAll(response.Body)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read the response"})
			return
		}
		c.Data(response.StatusCode, "application/json", body)
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "UP",
		"queueSize": retryQueue.Size(),
	})
}
