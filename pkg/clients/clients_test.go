package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"library-system/pkg/loans"
)

const (
	testTimeout     = 2 * time.Second
	testMaxFailures = 5
	testCooldown    = time.Minute
)

func TestGetBook(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/books/b1", r.URL.Path)
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"bookUid":         "b1",
			"title":           "To Kill a Mockingbird",
			"authorName":      "Harper Lee",
			"totalCopies":     5,
			"copiesAvailable": 3,
		})
	}))
	defer server.Close()

	client := NewCatalogClient(server.URL, testTimeout, testMaxFailures, testCooldown)
	ctx := WithToken(context.Background(), "token-123")

	book, err := client.GetBook(ctx, "b1")
	assert.NoError(t, err)
	assert.Equal(t, "To Kill a Mockingbird", book.Title)
	assert.Equal(t, 3, book.CopiesAvailable)
}

func TestGetBookNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewCatalogClient(server.URL, testTimeout, testMaxFailures, testCooldown)

	_, err := client.GetBook(context.Background(), "missing")
	assert.True(t, loans.IsNotFound(err))
	assert.EqualError(t, err, "book not found")
}

func TestGetMemberUnauthenticated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewMembershipClient(server.URL, testTimeout, testMaxFailures, testCooldown)

	_, err := client.GetMember(context.Background(), "m1")
	assert.True(t, loans.IsUnauthenticated(err))
}

func TestCreateLoanConflictMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": "no copies available"})
	}))
	defer server.Close()

	client := NewLoanClient(server.URL, testTimeout, testMaxFailures, testCooldown)

	_, err := client.CreateLoan(context.Background(), loans.CreateLoanRequest{
		MemberUid: "m1", BookUid: "b1", LoanPeriodDays: 14,
	})
	assert.True(t, loans.IsConflict(err))
	assert.EqualError(t, err, "no copies available")
}

func TestCreateLoanSendsIdempotencyKey(t *testing.T) {
	var gotKey string
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Idempotency-Key")
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"loanUid":  "l1",
			"bookUid":  "b1",
			"loanDate": time.Now().Format(time.RFC3339),
			"dueDate":  time.Now().AddDate(0, 0, 14).Format(time.RFC3339),
		})
	}))
	defer server.Close()

	client := NewLoanClient(server.URL, testTimeout, testMaxFailures, testCooldown)

	loan, err := client.CreateLoan(context.Background(), loans.CreateLoanRequest{
		MemberUid:      "m1",
		BookUid:        "b1",
		LoanPeriodDays: 7,
		IdempotencyKey: "idem-42",
	})
	assert.NoError(t, err)
	assert.Equal(t, "l1", loan.LoanUid)
	assert.Equal(t, "idem-42", gotKey)
	assert.Equal(t, "m1", gotBody["memberUid"])
	assert.Equal(t, "b1", gotBody["bookUid"])
	assert.Equal(t, float64(7), gotBody["loanPeriodDays"])
}

func TestCompleteLoanParsesDates(t *testing.T) {
	returnDate := time.Date(2025, 3, 17, 12, 0, 0, 0, time.UTC)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/loans/l1/return", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"loanUid":     "l1",
			"returnDate":  returnDate.Format(time.RFC3339),
			"isOverdue":   true,
			"daysOverdue": 2,
		})
	}))
	defer server.Close()

	client := NewLoanClient(server.URL, testTimeout, testMaxFailures, testCooldown)

	loan, err := client.CompleteLoan(context.Background(), "l1")
	assert.NoError(t, err)
	assert.NotNil(t, loan.ReturnDate)
	assert.True(t, loan.ReturnDate.Equal(returnDate))
	assert.True(t, loan.IsOverdue)
	assert.Equal(t, 2, loan.DaysOverdue)
}

func TestListLoansFilterParams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "m1", r.URL.Query().Get("memberUid"))
		assert.Equal(t, "true", r.URL.Query().Get("active"))
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"loanUid": "l1", "memberUid": "m1"},
		})
	}))
	defer server.Close()

	client := NewLoanClient(server.URL, testTimeout, testMaxFailures, testCooldown)

	list, err := client.ListLoans(context.Background(), loans.ListFilter{MemberUid: "m1", ActiveOnly: true})
	assert.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, "l1", list[0].LoanUid)
}

func TestServerErrorMapsToUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewCatalogClient(server.URL, testTimeout, testMaxFailures, testCooldown)

	_, err := client.GetBook(context.Background(), "b1")
	assert.True(t, loans.IsUnavailable(err))
}

func TestUnreachableStoreMapsToUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewCatalogClient(server.URL, testTimeout, testMaxFailures, testCooldown)

	_, err := client.GetBook(context.Background(), "b1")
	assert.True(t, loans.IsUnavailable(err))
}

func TestBreakerOpensAfterRepeatedOutages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewCatalogClient(server.URL, testTimeout, 2, time.Minute)

	for i := 0; i < 2; i++ {
		_, err := client.GetBook(context.Background(), "b1")
		assert.True(t, loans.IsUnavailable(err))
	}

	// Third call is rejected by the open breaker without touching the wire.
	_, err := client.GetBook(context.Background(), "b1")
	assert.True(t, loans.IsUnavailable(err))
	assert.EqualError(t, err, "book store circuit open")
}

func TestBusinessErrorsDoNotTripBreaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewCatalogClient(server.URL, testTimeout, 2, time.Minute)

	for i := 0; i < 5; i++ {
		_, err := client.GetBook(context.Background(), "b1")
		assert.True(t, loans.IsNotFound(err))
	}
}
