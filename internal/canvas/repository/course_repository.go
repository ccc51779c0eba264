package repository

import (
	"time"

	domain "canvas-mirror-backend/internal/canvas/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// fixtureCourses seeds the course list when no live credentials exist.
var fixtureCourses = []*domain.Course{
	{ID: "101", Name: "Introduction to Computer Science", Term: strPtr("Fall 2025")},
	{ID: "102", Name: "Linear Algebra", Term: strPtr("Fall 2025")},
	{ID: "201", Name: "Operating Systems", Term: strPtr("Spring 2026")},
}

func strPtr(s string) *string { return &s }

type courseRepository struct {
	db *gorm.DB
}

func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{
		db: db,
	}
}

func (r *courseRepository) UpsertAll(courses []*domain.Course) error {
	if len(courses) == 0 {
		return nil
	}
	now := time.Now()
	for _, course := range courses {
		course.UpdatedAt = now
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "term", "updated_at"}),
	}).Create(&courses).Error
}

func (r *courseRepository) ListAll() ([]*domain.Course, error) {
	var courses []*domain.Course
	if err := r.db.Order("id").Find(&courses).Error; err != nil {
		return nil, err
	}
	return courses, nil
}

func (r *courseRepository) SeedFixtures() error {
	var count int64
	if err := r.db.Model(&domain.Course{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return r.db.Create(&fixtureCourses).Error
}
