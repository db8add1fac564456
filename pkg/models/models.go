package models

import (
	"time"
)

type Book struct {
	ID              uint   `gorm:"primaryKey"`
	BookUid         string `gorm:"type:uuid;uniqueIndex;not null"`
	Title           string `gorm:"not null"`
	AuthorName      string
	Genre           string
	PublishedYear   int
	TotalCopies     int `gorm:"not null"`
	CopiesAvailable int `gorm:"not null;check:copies_available >= 0"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Member struct {
	ID             uint   `gorm:"primaryKey"`
	MemberUid      string `gorm:"type:uuid;uniqueIndex;not null"`
	Name           string `gorm:"size:80;not null"`
	Email          string `gorm:"size:120;uniqueIndex;not null"`
	Phone          string `gorm:"size:30"`
	Address        string
	MembershipDate time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Loan struct {
	ID        uint   `gorm:"primaryKey"`
	LoanUid   string `gorm:"type:uuid;uniqueIndex;not null"`
	BookUid   string `gorm:"type:uuid;not null;index"`
	MemberUid string `gorm:"type:uuid;not null;index"`
	LoanDate  time.Time
	DueDate   time.Time
	// ReturnDate is nil while the loan is active.
	ReturnDate *time.Time
	// Frozen at return time, never recomputed afterwards.
	OverdueAtReturn bool
	DaysOverdue     int
	IdempotencyKey  *string `gorm:"uniqueIndex"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Account struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"size:80;not null;uniqueIndex"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"size:20;default:'MEMBER'"`
	MemberUid    string `gorm:"type:uuid"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
