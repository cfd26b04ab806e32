package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core/progress"
)

type progressRepository struct {
	db *sqlx.DB
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(db *sqlx.DB) *progressRepository {
	return &progressRepository{db: db}
}

type dbProgress struct {
	ID               string       `db:"id"`
	UserID           string       `db:"user_id"`
	LessonID         string       `db:"lesson_id"`
	CompletedSigns   []byte       `db:"completed_signs"`
	CurrentSignIndex int          `db:"current_sign_index"`
	IsCompleted      bool         `db:"is_completed"`
	CompletedAt      sql.NullTime `db:"completed_at"`
	TotalAttempts    int          `db:"total_attempts"`
	AverageAccuracy  float64      `db:"average_accuracy"`
	TimeSpent        int          `db:"time_spent"`
	LastAccessedAt   sql.NullTime `db:"last_accessed_at"`
	Version          int          `db:"version"`
	CreatedAt        time.Time    `db:"created_at"`
	UpdatedAt        time.Time    `db:"updated_at"`
}

func (repo progressRepository) record(rec progress.Record) (dbProgress, error) {
	signs := rec.CompletedSigns
	if signs == nil {
		signs = []progress.SignProgress{}
	}
	signsJSON, err := json.Marshal(signs)
	if err != nil {
		return dbProgress{}, errors.Wrap(err, "encoding completed signs")
	}
	return dbProgress{
		ID:               rec.ID,
		UserID:           rec.UserID,
		LessonID:         rec.LessonID,
		CompletedSigns:   signsJSON,
		CurrentSignIndex: rec.CurrentSignIndex,
		IsCompleted:      rec.IsCompleted,
		CompletedAt:      nullTime(rec.CompletedAt),
		TotalAttempts:    rec.TotalAttempts,
		AverageAccuracy:  rec.AverageAccuracy,
		TimeSpent:        rec.TimeSpent,
		LastAccessedAt:   nullTime(rec.LastAccessedAt),
		Version:          rec.Version,
		CreatedAt:        rec.CreatedAt.UTC(),
		UpdatedAt:        rec.UpdatedAt.UTC(),
	}, nil
}

func (repo progressRepository) model(rec dbProgress) (progress.Record, error) {
	var signs []progress.SignProgress
	if len(rec.CompletedSigns) > 0 {
		if err := json.Unmarshal(rec.CompletedSigns, &signs); err != nil {
			return progress.Record{}, errors.Wrap(err, "decoding completed signs")
		}
	}
	return progress.Record{
		ID:               rec.ID,
		UserID:           rec.UserID,
		LessonID:         rec.LessonID,
		CompletedSigns:   signs,
		CurrentSignIndex: rec.CurrentSignIndex,
		IsCompleted:      rec.IsCompleted,
		CompletedAt:      timeVal(rec.CompletedAt),
		TotalAttempts:    rec.TotalAttempts,
		AverageAccuracy:  rec.AverageAccuracy,
		TimeSpent:        rec.TimeSpent,
		LastAccessedAt:   timeVal(rec.LastAccessedAt),
		Version:          rec.Version,
		CreatedAt:        rec.CreatedAt,
		UpdatedAt:        rec.UpdatedAt,
	}, nil
}

func (repo progressRepository) GetRecord(ctx context.Context, userID, lessonID string) (progress.Record, error) {
	var rec dbProgress
	query := "SELECT * FROM lesson_progress WHERE user_id = $1 AND lesson_id = $2"
	if err := repo.db.GetContext(ctx, &rec, query, userID, lessonID); err != nil {
		if err == sql.ErrNoRows {
			return progress.Record{}, progress.ErrRecordNotFound
		}
		return progress.Record{}, errors.Wrap(err, "getting progress record")
	}
	return repo.model(rec)
}

func (repo progressRepository) CreateRecord(ctx context.Context, rec progress.Record) (progress.Record, error) {
	rec.ID = uuid.New().String()
	rec.Version = 1
	dbRec, err := repo.record(rec)
	if err != nil {
		return progress.Record{}, err
	}

	// the unique (user_id, lesson_id) key makes concurrent first attempts
	// collide here instead of creating two records
	query := `
		INSERT INTO lesson_progress (
			id, user_id, lesson_id, completed_signs, current_sign_index,
			is_completed, completed_at, total_attempts, average_accuracy,
			time_spent, last_accessed_at, version, created_at, updated_at
		) VALUES (
			:id, :user_id, :lesson_id, :completed_signs, :current_sign_index,
			:is_completed, :completed_at, :total_attempts, :average_accuracy,
			:time_spent, :last_accessed_at, :version, :created_at, :updated_at
		)`
	if _, err = repo.db.NamedExecContext(ctx, query, dbRec); err != nil {
		if isUniqueViolation(err) {
			return progress.Record{}, progress.ErrConflict
		}
		return progress.Record{}, errors.Wrap(err, "creating progress record")
	}
	return rec, nil
}

func (repo progressRepository) UpdateRecord(ctx context.Context, rec progress.Record) (progress.Record, error) {
	currentVersion := rec.Version
	rec.Version++
	dbRec, err := repo.record(rec)
	if err != nil {
		return progress.Record{}, err
	}

	// version match linearizes concurrent read-modify-write cycles
	query := `
		UPDATE lesson_progress SET
			completed_signs = :completed_signs, current_sign_index = :current_sign_index,
			is_completed = :is_completed, completed_at = :completed_at,
			total_attempts = :total_attempts, average_accuracy = :average_accuracy,
			time_spent = :time_spent, last_accessed_at = :last_accessed_at,
			version = :version, updated_at = :updated_at
		WHERE id = :id AND version = :current_version`
	res, err := repo.db.NamedExecContext(ctx, query, struct {
		dbProgress
		CurrentVersion int `db:"current_version"`
	}{dbRec, currentVersion})
	if err != nil {
		return progress.Record{}, errors.Wrap(err, "updating progress record")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return progress.Record{}, progress.ErrConflict
	}
	return rec, nil
}

func (repo progressRepository) QueryUserRecords(ctx context.Context, userID string) ([]progress.Record, error) {
	var dbRecs []dbProgress
	query := "SELECT * FROM lesson_progress WHERE user_id = $1 ORDER BY last_accessed_at DESC"
	if err := repo.db.SelectContext(ctx, &dbRecs, query, userID); err != nil {
		return nil, errors.Wrap(err, "querying progress records")
	}

	recs := make([]progress.Record, 0, len(dbRecs))
	for _, dbRec := range dbRecs {
		rec, err := repo.model(dbRec)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (repo progressRepository) CountCompletedRecords(ctx context.Context, completedFrom, completedTo time.Time) (int, error) {
	query := "SELECT COUNT(*) FROM lesson_progress WHERE is_completed"
	var args []interface{}
	if !completedFrom.IsZero() {
		args = append(args, completedFrom.UTC())
		query += fmt.Sprintf(" AND completed_at >= $%d", len(args))
	}
	if !completedTo.IsZero() {
		args = append(args, completedTo.UTC())
		query += fmt.Sprintf(" AND completed_at < $%d", len(args))
	}

	var count int
	if err := repo.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, errors.Wrap(err, "counting completed records")
	}
	return count, nil
}
