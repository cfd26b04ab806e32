package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/alama/core/progress"
)

type progressRepository struct {
	db *progressTable
}

var _ progress.Repository = (*progressRepository)(nil)

func NewProgressRepository(db *DB) progress.Repository {
	return &progressRepository{db: db.progress}
}

func key(userID, lessonID string) string { return userID + "|" + lessonID }

func (repo *progressRepository) GetRecord(_ context.Context, userID, lessonID string) (progress.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if rec, ok := repo.db.table[key(userID, lessonID)]; ok {
		return cloneRecord(*rec), nil
	}
	return progress.Record{}, progress.ErrRecordNotFound
}

func (repo *progressRepository) CreateRecord(_ context.Context, rec progress.Record) (progress.Record, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	k := key(rec.UserID, rec.LessonID)
	// the unique (user, lesson) key: concurrent first attempts collide here
	if _, ok := repo.db.table[k]; ok {
		return progress.Record{}, progress.ErrConflict
	}
	rec.ID = uuid.New().String()
	rec.Version = 1
	repo.db.table[k] = &rec
	return cloneRecord(rec), nil
}

func (repo *progressRepository) UpdateRecord(_ context.Context, rec progress.Record) (progress.Record, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	k := key(rec.UserID, rec.LessonID)
	stored, ok := repo.db.table[k]
	if !ok {
		return progress.Record{}, progress.ErrRecordNotFound
	}
	// version check linearizes concurrent read-modify-write cycles
	if stored.Version != rec.Version {
		return progress.Record{}, progress.ErrConflict
	}
	rec.Version++
	repo.db.table[k] = &rec
	return cloneRecord(rec), nil
}

func (repo *progressRepository) QueryUserRecords(_ context.Context, userID string) ([]progress.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	recs := make([]progress.Record, 0)
	for _, rec := range repo.db.table {
		if rec.UserID == userID {
			recs = append(recs, cloneRecord(*rec))
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].LastAccessedAt.After(recs[j].LastAccessedAt) })
	return recs, nil
}

func (repo *progressRepository) CountCompletedRecords(_ context.Context, completedFrom, completedTo time.Time) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var n int
	for _, rec := range repo.db.table {
		if !rec.IsCompleted {
			continue
		}
		if !completedFrom.IsZero() && rec.CompletedAt.Before(completedFrom) {
			continue
		}
		if !completedTo.IsZero() && !rec.CompletedAt.Before(completedTo) {
			continue
		}
		n++
	}
	return n, nil
}

// cloneRecord deep-copies the sign slice so callers cannot mutate stored state.
func cloneRecord(rec progress.Record) progress.Record {
	signs := make([]progress.SignProgress, len(rec.CompletedSigns))
	copy(signs, rec.CompletedSigns)
	rec.CompletedSigns = signs
	return rec
}
