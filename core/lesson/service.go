package lesson

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
)

var ErrNotFound = errors.New("lesson not found")

type (
	Repository interface {
		CreateLesson(ctx context.Context, les Lesson) (Lesson, error)
		QueryLessons(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Lesson, error)
		GetLesson(ctx context.Context, id string) (Lesson, error)
		UpdateLesson(ctx context.Context, les Lesson) (Lesson, error)
		DeleteLessonsByID(ctx context.Context, ids ...string) (int, error)
		CountLessons(ctx context.Context, createdFrom, createdTo time.Time) (int, error)
	}

	Service interface {
		Create(ctx context.Context, nl NewLesson, createdBy string) (Lesson, error)
		Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Lesson, error)
		QueryActive(ctx context.Context, filter *QueryFilter) ([]Lesson, error)
		GetByID(ctx context.Context, id string) (Lesson, error)
		Update(ctx context.Context, id string, ul UpdateLesson) (Lesson, error)
		Delete(ctx context.Context, ids ...string) error
		Count(ctx context.Context, createdFrom, createdTo time.Time) (int, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Create(ctx context.Context, nl NewLesson, createdBy string) (Lesson, error) {
	now := time.Now().UTC()
	les := Lesson{
		Name:          nl.Name,
		Category:      nl.Category,
		Difficulty:    nl.Difficulty,
		Description:   nl.Description,
		Signs:         nl.Signs,
		SignImages:    nl.SignImages,
		Instructions:  nl.Instructions,
		EstimatedTime: nl.EstimatedTime,
		Points:        nl.Points,
		DisplayOrder:  nl.DisplayOrder,
		CreatedBy:     createdBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	les.SetActive(true)
	return svc.repo.CreateLesson(ctx, les)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Lesson, error) {
	if filter != nil {
		filter.Clean()
	}
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "display_order", Ascending: true}}
	}
	return svc.repo.QueryLessons(ctx, filter, ordering...)
}

// QueryActive lists active lessons in display order; this is the learner-facing catalog.
func (svc *service) QueryActive(ctx context.Context, filter *QueryFilter) ([]Lesson, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	active := true
	filter.IsActive = &active
	return svc.Query(ctx, filter)
}

func (svc *service) GetByID(ctx context.Context, id string) (Lesson, error) {
	return svc.repo.GetLesson(ctx, id)
}

func (svc *service) Update(ctx context.Context, id string, ul UpdateLesson) (Lesson, error) {
	les, err := svc.repo.GetLesson(ctx, id)
	if err != nil {
		return Lesson{}, err
	}
	if ul.Name != "" {
		les.Name = ul.Name
	}
	if ul.Category != "" {
		les.Category = ul.Category
	}
	if ul.Difficulty != "" {
		les.Difficulty = ul.Difficulty
	}
	if ul.Description != nil {
		les.Description = *ul.Description
	}
	if ul.Signs != nil {
		les.Signs = ul.Signs
	}
	if ul.SignImages != nil {
		les.SignImages = ul.SignImages
	}
	if ul.Instructions != nil {
		les.Instructions = *ul.Instructions
	}
	if ul.EstimatedTime > 0 {
		les.EstimatedTime = ul.EstimatedTime
	}
	if ul.Points != nil {
		les.Points = *ul.Points
	}
	if ul.IsActive != nil {
		les.IsActive = ul.IsActive
	}
	if ul.DisplayOrder != nil {
		les.DisplayOrder = *ul.DisplayOrder
	}
	les.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateLesson(ctx, les)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteLessonsByID(ctx, ids...)
	return err
}

func (svc *service) Count(ctx context.Context, createdFrom, createdTo time.Time) (int, error) {
	return svc.repo.CountLessons(ctx, createdFrom, createdTo)
}
