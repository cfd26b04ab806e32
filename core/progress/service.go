package progress

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/lesson"
)

var (
	// errors
	ErrLessonNotFound = errors.New("lesson not found")
	ErrInvalidSign    = errors.New("sign is not part of this lesson")
	ErrRecordNotFound = errors.New("progress record not found")
	ErrConflict       = errors.New("progress record was modified concurrently")
)

// maxConflictRetries bounds how many times a conflicting read-modify-write
// cycle is replayed before the conflict is surfaced to the caller.
const maxConflictRetries = 3

// mocked in tests
var nowFunc func() time.Time = time.Now

type (
	// Repository persists progress records. Implementations must enforce a
	// unique (user_id, lesson_id) constraint and an optimistic version check:
	// UpdateRecord returns ErrConflict when the stored version no longer
	// matches rec.Version, and CreateRecord returns ErrConflict when a record
	// for the pair already exists.
	Repository interface {
		GetRecord(ctx context.Context, userID, lessonID string) (Record, error)
		CreateRecord(ctx context.Context, rec Record) (Record, error)
		UpdateRecord(ctx context.Context, rec Record) (Record, error)
		QueryUserRecords(ctx context.Context, userID string) ([]Record, error)
		CountCompletedRecords(ctx context.Context, completedFrom, completedTo time.Time) (int, error)
	}

	// Catalog is the read-only lesson lookup the tracker depends on.
	// lesson.Service satisfies it.
	Catalog interface {
		GetByID(ctx context.Context, id string) (lesson.Lesson, error)
		QueryActive(ctx context.Context, filter *lesson.QueryFilter) ([]lesson.Lesson, error)
	}

	Service interface {
		SubmitAttempt(ctx context.Context, userID, lessonID string, att Attempt) (Snapshot, error)
		Progress(ctx context.Context, userID, lessonID string) (Snapshot, error)
		UserSummary(ctx context.Context, userID string) ([]LessonSummary, error)
		CountCompleted(ctx context.Context, completedFrom, completedTo time.Time) (int, error)
	}

	service struct {
		repo    Repository
		catalog Catalog
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, catalog Catalog) Service {
	return &service{
		repo:    repo,
		catalog: catalog,
	}
}

// SubmitAttempt records one practice attempt and returns the updated tracker
// state. Validation failures (unknown lesson, sign not in the lesson) are
// returned before any mutation. Concurrent submissions for the same
// (user, lesson) pair are linearized by the repository's version check; on
// conflict the whole read-modify-write cycle is replayed so no increment is
// lost or doubled.
func (svc *service) SubmitAttempt(ctx context.Context, userID, lessonID string, att Attempt) (Snapshot, error) {
	les, err := svc.catalog.GetByID(ctx, lessonID)
	if err != nil {
		if errors.Cause(err) == lesson.ErrNotFound {
			return Snapshot{}, ErrLessonNotFound
		}
		return Snapshot{}, err
	}
	// deactivated lessons are hidden from learners
	if !les.Active() {
		return Snapshot{}, ErrLessonNotFound
	}
	if !les.HasSign(att.Sign) {
		return Snapshot{}, ErrInvalidSign
	}

	var rec Record
	for retries := 0; ; retries++ {
		rec, err = svc.applyAttempt(ctx, userID, &les, att)
		if err == nil {
			break
		}
		if errors.Cause(err) != ErrConflict || retries >= maxConflictRetries {
			return Snapshot{}, err
		}
	}
	return svc.snapshot(rec, &les)
}

// applyAttempt runs one read-modify-write cycle against the record.
func (svc *service) applyAttempt(ctx context.Context, userID string, les *lesson.Lesson, att Attempt) (Record, error) {
	now := nowFunc().UTC()

	rec, err := svc.repo.GetRecord(ctx, userID, les.ID)
	if err != nil {
		if errors.Cause(err) != ErrRecordNotFound {
			return Record{}, err
		}
		rec = Record{
			UserID:    userID,
			LessonID:  les.ID,
			CreatedAt: now,
		}
		if rec, err = svc.repo.CreateRecord(ctx, rec); err != nil {
			if errors.Cause(err) != ErrConflict {
				return Record{}, err
			}
			// lost the creation race; reload the winner's record
			if rec, err = svc.repo.GetRecord(ctx, userID, les.ID); err != nil {
				return Record{}, err
			}
		}
	}

	if entry := rec.signEntry(att.Sign); entry != nil {
		entry.Attempts++
		if acc := att.accuracy(); acc > entry.Accuracy {
			entry.Accuracy = acc
		}
	} else {
		rec.CompletedSigns = append(rec.CompletedSigns, SignProgress{
			Sign:        att.Sign,
			Attempts:    1,
			Accuracy:    att.accuracy(),
			CompletedAt: now,
		})
	}

	rec.TotalAttempts++
	rec.TimeSpent += att.TimeSpent
	rec.LastAccessedAt = now

	var sum float64
	for _, sp := range rec.CompletedSigns {
		sum += sp.Accuracy
	}
	rec.AverageAccuracy = sum / float64(len(rec.CompletedSigns))

	// the cursor advances only when the next expected sign was just practiced,
	// and never past the last index
	if rec.CurrentSignIndex < len(les.Signs)-1 && les.Signs[rec.CurrentSignIndex] == att.Sign {
		rec.CurrentSignIndex++
	}

	if !rec.IsCompleted && distinctSignCount(rec.CompletedSigns) == len(les.Signs) {
		rec.IsCompleted = true
		rec.CompletedAt = now
	}

	rec.UpdatedAt = now
	return svc.repo.UpdateRecord(ctx, rec)
}

// Progress reports the current tracker state without mutating it. A user who
// never attempted the lesson gets an empty snapshot; an unresolvable lesson
// reference yields a zero snapshot rather than an error.
func (svc *service) Progress(ctx context.Context, userID, lessonID string) (Snapshot, error) {
	les, err := svc.catalog.GetByID(ctx, lessonID)
	if err != nil {
		if errors.Cause(err) == lesson.ErrNotFound {
			return Snapshot{LessonID: lessonID}, nil
		}
		return Snapshot{}, err
	}

	rec, err := svc.repo.GetRecord(ctx, userID, lessonID)
	if err != nil {
		if errors.Cause(err) == ErrRecordNotFound {
			return Snapshot{LessonID: lessonID, TotalSigns: len(les.Signs)}, nil
		}
		return Snapshot{}, err
	}
	return svc.snapshot(rec, &les)
}

// UserSummary joins every progress record of the user with its lesson
// metadata, ordered by the lessons' display order. Records whose lesson no
// longer resolves are skipped.
func (svc *service) UserSummary(ctx context.Context, userID string) ([]LessonSummary, error) {
	recs, err := svc.repo.QueryUserRecords(ctx, userID)
	if err != nil {
		return nil, err
	}

	lessons, err := svc.catalog.QueryActive(ctx, nil)
	if err != nil {
		return nil, err
	}
	lessonByID := make(map[string]lesson.Lesson, len(lessons))
	order := make(map[string]int, len(lessons))
	for i, les := range lessons {
		lessonByID[les.ID] = les
		order[les.ID] = i
	}

	summaries := make([]LessonSummary, 0, len(recs))
	for _, rec := range recs {
		les, ok := lessonByID[rec.LessonID]
		if !ok {
			continue
		}
		distinct, err := checkedDistinctCount(&rec)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, LessonSummary{
			LessonID:           les.ID,
			LessonName:         les.Name,
			Category:           les.Category,
			Difficulty:         les.Difficulty,
			TotalSigns:         len(les.Signs),
			CompletedSignCount: distinct,
			ProgressPercentage: percentage(distinct, len(les.Signs)),
			IsCompleted:        rec.IsCompleted,
			AverageAccuracy:    rec.AverageAccuracy,
			TimeSpent:          rec.TimeSpent,
			LastAccessedAt:     rec.LastAccessedAt,
		})
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return order[summaries[i].LessonID] < order[summaries[j].LessonID]
	})
	return summaries, nil
}

func (svc *service) CountCompleted(ctx context.Context, completedFrom, completedTo time.Time) (int, error) {
	return svc.repo.CountCompletedRecords(ctx, completedFrom, completedTo)
}

func (svc *service) snapshot(rec Record, les *lesson.Lesson) (Snapshot, error) {
	distinct, err := checkedDistinctCount(&rec)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		LessonID:           rec.LessonID,
		CompletedSigns:     rec.CompletedSigns,
		CurrentSignIndex:   rec.CurrentSignIndex,
		IsCompleted:        rec.IsCompleted,
		CompletedAt:        rec.CompletedAt,
		TotalAttempts:      rec.TotalAttempts,
		AverageAccuracy:    rec.AverageAccuracy,
		TimeSpent:          rec.TimeSpent,
		TotalSigns:         len(les.Signs),
		ProgressPercentage: percentage(distinct, len(les.Signs)),
	}, nil
}

// checkedDistinctCount returns the number of distinct signs in the record,
// verifying the one-entry-per-sign invariant rather than assuming it.
func checkedDistinctCount(rec *Record) (int, error) {
	distinct := distinctSignCount(rec.CompletedSigns)
	if distinct != len(rec.CompletedSigns) {
		return 0, core.NewIntegrityError(
			fmt.Sprintf("progress record %s holds duplicate sign entries", rec.ID))
	}
	return distinct, nil
}

func distinctSignCount(signs []SignProgress) int {
	seen := make(map[string]struct{}, len(signs))
	for _, sp := range signs {
		seen[sp.Sign] = struct{}{}
	}
	return len(seen)
}

func percentage(completed, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(completed) / float64(total)
}
