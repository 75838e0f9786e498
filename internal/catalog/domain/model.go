package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

type Course struct {
	ID           snowflake.ID    `json:"id" gorm:"primaryKey"`
	Title        string          `json:"title" gorm:"type:text;not null"`
	Slug         string          `json:"slug" gorm:"type:text;not null;uniqueIndex"`
	Price        decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	Currency     string          `json:"currency" gorm:"type:varchar(3);not null;default:BDT"`
	IsPaid       bool            `json:"is_paid" gorm:"not null"`
	Status       string          `json:"status" gorm:"type:text;not null"`
	TotalLessons int             `json:"total_lessons" gorm:"not null;default:0"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (Course) TableName() string { return "courses" }

// Purchasable reports whether checkout may be initiated for the course.
func (c Course) Purchasable() bool {
	return c.Status == StatusPublished && c.IsPaid && c.Price.IsPositive()
}

// Enrollable reports whether the course accepts any enrollment at all.
func (c Course) Enrollable() bool {
	return c.Status == StatusPublished
}

var (
	ErrNotFound       = errors.New("course_not_found")
	ErrNotPurchasable = errors.New("course_not_purchasable")
	ErrPaymentNeeded  = errors.New("course_requires_payment")
)

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Course, error)
	FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*Course, error)
}
