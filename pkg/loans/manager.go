package loans

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type CatalogStore interface {
	GetBook(ctx context.Context, bookUid string) (*Book, error)
}

type MembershipStore interface {
	GetMember(ctx context.Context, memberUid string) (*Member, error)
}

type CreateLoanRequest struct {
	MemberUid      string
	BookUid        string
	LoanPeriodDays int
	// IdempotencyKey makes a retried create safe: the store replays the
	// already-created loan instead of issuing a second one.
	IdempotencyKey string
}

type ListFilter struct {
	MemberUid  string
	ActiveOnly bool
}

type LoanStore interface {
	CreateLoan(ctx context.Context, req CreateLoanRequest) (*Loan, error)
	CompleteLoan(ctx context.Context, loanUid string) (*Loan, error)
	ListLoans(ctx context.Context, filter ListFilter) ([]Loan, error)
}

// Manager owns the loan lifecycle rules: issuing decrements availability and
// creates the loan, returning closes it and restores availability, overdue
// status comes from ComputeOverdueStatus and nowhere else. All durable state
// and the decrement-and-insert atomicity live in the stores; the manager
// validates preconditions up front so callers get precise errors.
type Manager struct {
	catalog CatalogStore
	members MembershipStore
	loans   LoanStore
	now     func() time.Time
}

func NewManager(catalog CatalogStore, members MembershipStore, loans LoanStore) *Manager {
	return &Manager{
		catalog: catalog,
		members: members,
		loans:   loans,
		now:     time.Now,
	}
}

// IssueLoan checks member, book and availability in that order, then asks the
// loan store to atomically decrement the copy count and create the loan.
// The availability check here is advisory: a concurrent issue can still
// exhaust the last copy, in which case the store answers Conflict.
func (m *Manager) IssueLoan(ctx context.Context, memberUid, bookUid string, loanPeriodDays int) (*Loan, error) {
	if loanPeriodDays <= 0 {
		loanPeriodDays = DefaultLoanPeriodDays
	}

	member, err := m.members.GetMember(ctx, memberUid)
	if err != nil {
		return nil, err
	}

	book, err := m.catalog.GetBook(ctx, bookUid)
	if err != nil {
		return nil, err
	}
	if book.CopiesAvailable <= 0 {
		return nil, Conflict("no copies available")
	}

	loan, err := m.loans.CreateLoan(ctx, CreateLoanRequest{
		MemberUid:      memberUid,
		BookUid:        bookUid,
		LoanPeriodDays: loanPeriodDays,
		IdempotencyKey: uuid.New().String(),
	})
	if err != nil {
		return nil, err
	}
	loan.Member = member
	if loan.Book == nil {
		loan.Book = book
	}
	return loan, nil
}

// ReturnLoan closes an active loan. Returning twice is a Conflict, not a
// silent no-op.
func (m *Manager) ReturnLoan(ctx context.Context, loanUid string) (*Loan, error) {
	return m.loans.CompleteLoan(ctx, loanUid)
}

type ReturnResult struct {
	LoanUid string
	Loan    *Loan
	Err     error
}

// ReturnLoans applies ReturnLoan to each uid independently and in parallel.
// Partial failure is expected: each outcome is reported on its own and one
// failure never rolls back the others.
func (m *Manager) ReturnLoans(ctx context.Context, loanUids []string) []ReturnResult {
	results := make([]ReturnResult, len(loanUids))
	var wg sync.WaitGroup
	for i, uid := range loanUids {
		wg.Add(1)
		go func(i int, uid string) {
			defer wg.Done()
			loan, err := m.loans.CompleteLoan(ctx, uid)
			results[i] = ReturnResult{LoanUid: uid, Loan: loan, Err: err}
		}(i, uid)
	}
	wg.Wait()
	return results
}

// ListLoans fetches loans from the store, recomputes overdue status through
// the one shared function and enriches each record with book and member
// snapshots for display. Lookups are memoized per call.
func (m *Manager) ListLoans(ctx context.Context, filter ListFilter) ([]Loan, error) {
	list, err := m.loans.ListLoans(ctx, filter)
	if err != nil {
		return nil, err
	}

	books := make(map[string]*Book)
	members := make(map[string]*Member)
	now := m.now()

	for i := range list {
		st := ComputeOverdueStatus(list[i], now)
		list[i].IsOverdue = st.IsOverdue
		list[i].DaysOverdue = st.DaysOverdue

		if list[i].Book == nil {
			book, ok := books[list[i].BookUid]
			if !ok {
				book, err = m.catalog.GetBook(ctx, list[i].BookUid)
				if err != nil {
					if !IsNotFound(err) {
						return nil, err
					}
					book = nil
				}
				books[list[i].BookUid] = book
			}
			list[i].Book = book
		}

		member, ok := members[list[i].MemberUid]
		if !ok {
			member, err = m.members.GetMember(ctx, list[i].MemberUid)
			if err != nil {
				if !IsNotFound(err) {
					return nil, err
				}
				member = nil
			}
			members[list[i].MemberUid] = member
		}
		list[i].Member = member
	}
	return list, nil
}
