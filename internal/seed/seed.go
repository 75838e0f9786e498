package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type demoCourse struct {
	title    string
	price    decimal.Decimal
	isPaid   bool
	lessons  int
	currency string
}

var demoCourses = []demoCourse{
	{title: "Introduction to Programming", price: decimal.Zero, isPaid: false, lessons: 12, currency: "BDT"},
	{title: "Advanced Web Development", price: decimal.NewFromInt(1000), isPaid: true, lessons: 24, currency: "BDT"},
}

// EnsureDemoCatalog seeds a free and a paid course plus a half-off coupon so a
// local instance is exercisable end to end. Inserts are keyed on slug and code
// so reruns are no-ops.
func EnsureDemoCatalog(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	now := time.Now().UTC()

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var paidCourseID snowflake.ID
		for _, c := range demoCourses {
			id, err := ensureCourse(ctx, tx, node, c, now)
			if err != nil {
				return err
			}
			if c.isPaid {
				paidCourseID = id
			}
		}
		if paidCourseID == 0 {
			return nil
		}
		return ensureCoupon(ctx, tx, node, paidCourseID, now)
	})
}

func ensureCourse(ctx context.Context, tx *gorm.DB, node *snowflake.Node, c demoCourse, now time.Time) (snowflake.ID, error) {
	courseSlug := slug.Make(c.title)

	var existing snowflake.ID
	if err := tx.WithContext(ctx).Raw(
		`SELECT id FROM courses WHERE slug = ?`, courseSlug,
	).Scan(&existing).Error; err != nil {
		return 0, err
	}
	if existing != 0 {
		return existing, nil
	}

	id := node.Generate()
	err := tx.WithContext(ctx).Exec(
		`INSERT INTO courses (id, title, slug, price, currency, is_paid, status, total_lessons, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, 'published', ?, ?, ?)`,
		id, c.title, courseSlug, c.price, c.currency, c.isPaid, c.lessons, now, now,
	).Error
	if err != nil {
		return 0, err
	}
	return id, nil
}

func ensureCoupon(ctx context.Context, tx *gorm.DB, node *snowflake.Node, courseID snowflake.ID, now time.Time) error {
	var existing snowflake.ID
	if err := tx.WithContext(ctx).Raw(
		`SELECT id FROM coupons WHERE code = ?`, "WELCOME50",
	).Scan(&existing).Error; err != nil {
		return err
	}
	if existing != 0 {
		return nil
	}

	return tx.WithContext(ctx).Exec(
		`INSERT INTO coupons (id, code, discount_type, discount_value, course_id, is_active, created_at, updated_at)
		 VALUES (?, 'WELCOME50', 'percentage', 50, ?, ?, ?, ?)`,
		node.Generate(), courseID, true, now, now,
	).Error
}
