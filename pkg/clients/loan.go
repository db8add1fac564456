package clients

import (
	"context"
	"net/url"
	"time"

	"library-system/pkg/loans"
)

type LoanClient struct {
	client
}

func NewLoanClient(baseURL string, timeout time.Duration, maxFailures int, cooldown time.Duration) *LoanClient {
	return &LoanClient{client: newClient(baseURL, timeout, maxFailures, cooldown)}
}

// loanWire is the loan store's JSON shape; dates travel as RFC 3339.
type loanWire struct {
	LoanUid     string      `json:"loanUid"`
	BookUid     string      `json:"bookUid"`
	MemberUid   string      `json:"memberUid"`
	LoanDate    time.Time   `json:"loanDate"`
	DueDate     time.Time   `json:"dueDate"`
	ReturnDate  *time.Time  `json:"returnDate"`
	IsOverdue   bool        `json:"isOverdue"`
	DaysOverdue int         `json:"daysOverdue"`
	Book        *loans.Book `json:"book,omitempty"`
}

func (w loanWire) toLoan() *loans.Loan {
	return &loans.Loan{
		LoanUid:     w.LoanUid,
		BookUid:     w.BookUid,
		MemberUid:   w.MemberUid,
		LoanDate:    w.LoanDate,
		DueDate:     w.DueDate,
		ReturnDate:  w.ReturnDate,
		IsOverdue:   w.IsOverdue,
		DaysOverdue: w.DaysOverdue,
		Book:        w.Book,
	}
}

func (c *LoanClient) CreateLoan(ctx context.Context, req loans.CreateLoanRequest) (*loans.Loan, error) {
	body := map[string]interface{}{
		"memberUid":      req.MemberUid,
		"bookUid":        req.BookUid,
		"loanPeriodDays": req.LoanPeriodDays,
	}
	var headers map[string]string
	if req.IdempotencyKey != "" {
		headers = map[string]string{"X-Idempotency-Key": req.IdempotencyKey}
	}
	var wire loanWire
	if err := c.do(ctx, "POST", "/api/v1/loans", "book", headers, body, &wire); err != nil {
		return nil, err
	}
	return wire.toLoan(), nil
}

func (c *LoanClient) CompleteLoan(ctx context.Context, loanUid string) (*loans.Loan, error) {
	var wire loanWire
	if err := c.do(ctx, "POST", "/api/v1/loans/"+loanUid+"/return", "loan", nil, nil, &wire); err != nil {
		return nil, err
	}
	return wire.toLoan(), nil
}

func (c *LoanClient) ListLoans(ctx context.Context, filter loans.ListFilter) ([]loans.Loan, error) {
	params := url.Values{}
	if filter.MemberUid != "" {
		params.Set("memberUid", filter.MemberUid)
	}
	if filter.ActiveOnly {
		params.Set("active", "true")
	}
	path := "/api/v1/loans"
	if encoded := params.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var wires []loanWire
	if err := c.do(ctx, "GET", path, "loan", nil, nil, &wires); err != nil {
		return nil, err
	}
	list := make([]loans.Loan, len(wires))
	for i, w := range wires {
		list[i] = *w.toLoan()
	}
	return list, nil
}
