package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/pathshala-labs/pathshala/internal/catalog/domain"
	"github.com/pathshala-labs/pathshala/internal/clock"
	enrollmentdomain "github.com/pathshala-labs/pathshala/internal/enrollment/domain"
	"github.com/pathshala-labs/pathshala/internal/progress/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	GenID          *snowflake.Node
	Clock          clock.Clock
	Repo           domain.Repository
	CatalogRepo    catalogdomain.Repository
	EnrollmentRepo enrollmentdomain.Repository
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	genID          *snowflake.Node
	clock          clock.Clock
	repo           domain.Repository
	catalogRepo    catalogdomain.Repository
	enrollmentRepo enrollmentdomain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("progress.service"),
		genID:          p.GenID,
		clock:          p.Clock,
		repo:           p.Repo,
		catalogRepo:    p.CatalogRepo,
		enrollmentRepo: p.EnrollmentRepo,
	}
}

// CompleteLesson records a lesson completion and recomputes the course rollup.
// Replays of the same lesson leave the rollup unchanged.
func (s *Service) CompleteLesson(ctx context.Context, userID, courseID, lessonID snowflake.ID) (*domain.CourseProgress, error) {
	course, err := s.catalogRepo.FindByID(ctx, s.db, courseID)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, catalogdomain.ErrNotFound
	}

	enrollment, err := s.enrollmentRepo.FindActive(ctx, s.db, userID, courseID)
	if err != nil {
		return nil, err
	}
	if enrollment == nil {
		return nil, domain.ErrNotEnrolled
	}

	now := s.clock.Now()
	var progress *domain.CourseProgress

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.repo.InsertCompletion(ctx, tx, &domain.LessonCompletion{
			ID:          s.genID.Generate(),
			UserID:      userID,
			CourseID:    courseID,
			LessonID:    lessonID,
			CompletedAt: now,
		}); err != nil {
			return err
		}

		completed, err := s.repo.CountCompletions(ctx, tx, userID, courseID)
		if err != nil {
			return err
		}

		progress = &domain.CourseProgress{
			ID:               s.genID.Generate(),
			UserID:           userID,
			CourseID:         courseID,
			CompletedLessons: completed,
			TotalLessons:     course.TotalLessons,
			UpdatedAt:        now,
		}
		return s.repo.UpsertProgress(ctx, tx, progress)
	})
	if err != nil {
		return nil, err
	}

	if progress.Complete() {
		s.log.Info("course completed",
			zap.Int64("user_id", int64(userID)),
			zap.Int64("course_id", int64(courseID)),
		)
	}
	return progress, nil
}

func (s *Service) Get(ctx context.Context, userID, courseID snowflake.ID) (*domain.CourseProgress, error) {
	progress, err := s.repo.FindProgress(ctx, s.db, userID, courseID)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		course, err := s.catalogRepo.FindByID(ctx, s.db, courseID)
		if err != nil {
			return nil, err
		}
		if course == nil {
			return nil, catalogdomain.ErrNotFound
		}
		return &domain.CourseProgress{
			UserID:       userID,
			CourseID:     courseID,
			TotalLessons: course.TotalLessons,
		}, nil
	}
	return progress, nil
}
