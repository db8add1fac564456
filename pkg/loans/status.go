package loans

import (
	"math"
	"time"
)

const DefaultLoanPeriodDays = 14

// Book is the catalog snapshot embedded in loan responses.
type Book struct {
	BookUid         string `json:"bookUid"`
	Title           string `json:"title"`
	AuthorName      string `json:"authorName"`
	Genre           string `json:"genre"`
	PublishedYear   int    `json:"publishedYear"`
	TotalCopies     int    `json:"totalCopies"`
	CopiesAvailable int    `json:"copiesAvailable"`
}

// Member is the membership snapshot embedded in loan responses.
type Member struct {
	MemberUid      string `json:"memberUid"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Address        string `json:"address"`
	MembershipDate string `json:"membershipDate"`
}

type Loan struct {
	LoanUid    string     `json:"loanUid"`
	BookUid    string     `json:"bookUid"`
	MemberUid  string     `json:"memberUid"`
	LoanDate   time.Time  `json:"loanDate"`
	DueDate    time.Time  `json:"dueDate"`
	ReturnDate *time.Time `json:"returnDate"`

	// For a returned loan these hold the values frozen at return time.
	IsOverdue   bool `json:"isOverdue"`
	DaysOverdue int  `json:"daysOverdue"`

	Book   *Book   `json:"book,omitempty"`
	Member *Member `json:"member,omitempty"`
}

// Active reports whether the loan has not been returned yet.
func (l Loan) Active() bool {
	return l.ReturnDate == nil
}

type Status struct {
	IsOverdue   bool
	DaysOverdue int
}

func DueDate(loanDate time.Time, loanPeriodDays int) time.Time {
	return loanDate.AddDate(0, 0, loanPeriodDays)
}

// Overdue computes the overdue status of a loan due at dueDate as of the
// given instant. A loan is overdue once asOf passes dueDate, and the day
// count rounds up: one hour late is one day overdue.
func Overdue(dueDate, asOf time.Time) Status {
	if !asOf.After(dueDate) {
		return Status{}
	}
	days := int(math.Ceil(asOf.Sub(dueDate).Hours() / 24))
	return Status{IsOverdue: true, DaysOverdue: days}
}

// ComputeOverdueStatus is the single source of truth for overdue badges and
// filters. Active loans are judged against asOf; returned loans keep the
// status frozen at return time regardless of how far asOf advances.
func ComputeOverdueStatus(l Loan, asOf time.Time) Status {
	if l.ReturnDate != nil {
		return Status{IsOverdue: l.IsOverdue, DaysOverdue: l.DaysOverdue}
	}
	return Overdue(l.DueDate, asOf)
}

// GroupLoansByMember buckets loans by member uid, preserving input order
// within each bucket. Used by the return workflow to show one card per
// member with their borrowed books.
func GroupLoansByMember(loans []Loan) map[string][]Loan {
	grouped := make(map[string][]Loan)
	for _, l := range loans {
		grouped[l.MemberUid] = append(grouped[l.MemberUid], l)
	}
	return grouped
}
