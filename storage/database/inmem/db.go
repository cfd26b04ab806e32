// Package inmemdb implements the core repositories in memory. It backs the
// API tests and local development without a PostgreSQL instance; the same
// invariants the SQL layer enforces (unique keys, version checks) hold here.
package inmemdb

import (
	"sync"

	"github.com/trezcool/alama/core/lesson"
	"github.com/trezcool/alama/core/progress"
	"github.com/trezcool/alama/core/review"
	"github.com/trezcool/alama/core/user"
)

type (
	userTable struct {
		mutex sync.RWMutex
		table map[string]*user.User
	}

	lessonTable struct {
		mutex sync.RWMutex
		table map[string]*lesson.Lesson
	}

	progressTable struct {
		mutex sync.RWMutex
		table map[string]*progress.Record // by (user_id, lesson_id) key
	}

	reviewTable struct {
		mutex sync.RWMutex
		table map[string]*review.Review
	}

	eventTable struct {
		mutex sync.Mutex
		seen  map[string]struct{}
	}

	DB struct {
		user     *userTable
		lesson   *lessonTable
		progress *progressTable
		review   *reviewTable
		event    *eventTable
	}
)

func NewDB() *DB {
	return &DB{
		user:     &userTable{table: make(map[string]*user.User)},
		lesson:   &lessonTable{table: make(map[string]*lesson.Lesson)},
		progress: &progressTable{table: make(map[string]*progress.Record)},
		review:   &reviewTable{table: make(map[string]*review.Review)},
		event:    &eventTable{seen: make(map[string]struct{})},
	}
}
