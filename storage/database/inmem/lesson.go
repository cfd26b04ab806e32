package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/lesson"
)

type lessonRepository struct {
	db *lessonTable
}

var _ lesson.Repository = (*lessonRepository)(nil)

func NewLessonRepository(db *DB) lesson.Repository {
	return &lessonRepository{db: db.lesson}
}

func (repo *lessonRepository) query() []lesson.Lesson {
	lessons := make([]lesson.Lesson, 0, len(repo.db.table))
	for _, les := range repo.db.table {
		lessons = append(lessons, *les)
	}
	return lessons
}

func (repo *lessonRepository) CreateLesson(_ context.Context, les lesson.Lesson) (lesson.Lesson, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	les.ID = uuid.New().String()
	repo.db.table[les.ID] = &les
	return les, nil
}

func (repo *lessonRepository) QueryLessons(_ context.Context, filter *lesson.QueryFilter, ordering ...core.DBOrdering) ([]lesson.Lesson, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	lessons := make([]lesson.Lesson, 0)
	for _, les := range repo.query() {
		if matchLessonFilter(les, filter) {
			lessons = append(lessons, les)
		}
	}
	sort.Slice(lessons, func(i, j int) bool {
		if lessons[i].DisplayOrder != lessons[j].DisplayOrder {
			return lessons[i].DisplayOrder < lessons[j].DisplayOrder
		}
		return lessons[i].CreatedAt.Before(lessons[j].CreatedAt)
	})
	return lessons, nil
}

func matchLessonFilter(les lesson.Lesson, filter *lesson.QueryFilter) bool {
	if filter == nil || filter.IsEmpty() {
		return true
	}
	if filter.Search != "" {
		search := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(les.Name), search) &&
			!strings.Contains(strings.ToLower(les.Description), search) {
			return false
		}
	}
	if filter.Category != "" && les.Category != filter.Category {
		return false
	}
	if filter.Difficulty != "" && les.Difficulty != filter.Difficulty {
		return false
	}
	if filter.IsActive != nil && les.Active() != *filter.IsActive {
		return false
	}
	if !filter.CreatedFrom.IsZero() && les.CreatedAt.Before(filter.CreatedFrom) {
		return false
	}
	if !filter.CreatedTo.IsZero() && !les.CreatedAt.Before(filter.CreatedTo) {
		return false
	}
	return true
}

func (repo *lessonRepository) GetLesson(_ context.Context, id string) (lesson.Lesson, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if les, ok := repo.db.table[id]; ok {
		return *les, nil
	}
	return lesson.Lesson{}, lesson.ErrNotFound
}

func (repo *lessonRepository) UpdateLesson(_ context.Context, les lesson.Lesson) (lesson.Lesson, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[les.ID]; !ok {
		return lesson.Lesson{}, lesson.ErrNotFound
	}
	repo.db.table[les.ID] = &les
	return les, nil
}

func (repo *lessonRepository) DeleteLessonsByID(_ context.Context, ids ...string) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var n int
	for _, id := range ids {
		if _, ok := repo.db.table[id]; ok {
			delete(repo.db.table, id)
			n++
		}
	}
	return n, nil
}

func (repo *lessonRepository) CountLessons(_ context.Context, createdFrom, createdTo time.Time) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var n int
	for _, les := range repo.db.table {
		if !createdFrom.IsZero() && les.CreatedAt.Before(createdFrom) {
			continue
		}
		if !createdTo.IsZero() && !les.CreatedAt.Before(createdTo) {
			continue
		}
		n++
	}
	return n, nil
}
