package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/pathshala-labs/pathshala/internal/cache"
	"github.com/pathshala-labs/pathshala/internal/catalog/domain"
	"gorm.io/gorm"
)

const courseTTL = 5 * time.Minute

// cachedRepo keeps hot course lookups out of the database. Courses change
// rarely relative to checkout traffic, so a short TTL is enough.
type cachedRepo struct {
	inner  domain.Repository
	byID   cache.Cache[snowflake.ID, *domain.Course]
	bySlug cache.Cache[string, *domain.Course]
}

func ProvideCached() domain.Repository {
	return &cachedRepo{
		inner:  Provide(),
		byID:   cache.NewTTLCache[snowflake.ID, *domain.Course](),
		bySlug: cache.NewTTLCache[string, *domain.Course](),
	}
}

func (r *cachedRepo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Course, error) {
	if course, ok := r.byID.Get(id); ok {
		return course, nil
	}
	course, err := r.inner.FindByID(ctx, db, id)
	if err != nil || course == nil {
		return course, err
	}
	r.byID.Set(id, course, courseTTL)
	return course, nil
}

func (r *cachedRepo) FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Course, error) {
	if course, ok := r.bySlug.Get(slug); ok {
		return course, nil
	}
	course, err := r.inner.FindBySlug(ctx, db, slug)
	if err != nil || course == nil {
		return course, err
	}
	r.bySlug.Set(slug, course, courseTTL)
	return course, nil
}
