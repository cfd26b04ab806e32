package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/lesson"
)

type lessonRepository struct {
	db *sqlx.DB
}

var _ lesson.Repository = (*lessonRepository)(nil) // interface compliance check

func NewLessonRepository(db *sqlx.DB) *lessonRepository {
	return &lessonRepository{db: db}
}

type dbLesson struct {
	ID            string         `db:"id"`
	Name          string         `db:"name"`
	Category      string         `db:"category"`
	Difficulty    string         `db:"difficulty"`
	Description   string         `db:"description"`
	Signs         pq.StringArray `db:"signs"`
	SignImages    []byte         `db:"sign_images"`
	Instructions  string         `db:"instructions"`
	EstimatedTime int            `db:"estimated_time"`
	Points        int            `db:"points"`
	IsActive      bool           `db:"is_active"`
	DisplayOrder  int            `db:"display_order"`
	CreatedBy     sql.NullString `db:"created_by"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func (repo lessonRepository) record(les lesson.Lesson) (dbLesson, error) {
	images := les.SignImages
	if images == nil {
		images = []lesson.SignImage{}
	}
	imagesJSON, err := json.Marshal(images)
	if err != nil {
		return dbLesson{}, errors.Wrap(err, "encoding sign images")
	}
	return dbLesson{
		ID:            les.ID,
		Name:          les.Name,
		Category:      les.Category,
		Difficulty:    les.Difficulty,
		Description:   les.Description,
		Signs:         les.Signs,
		SignImages:    imagesJSON,
		Instructions:  les.Instructions,
		EstimatedTime: les.EstimatedTime,
		Points:        les.Points,
		IsActive:      les.Active(),
		DisplayOrder:  les.DisplayOrder,
		CreatedBy:     sql.NullString{String: les.CreatedBy, Valid: les.CreatedBy != ""},
		CreatedAt:     les.CreatedAt.UTC(),
		UpdatedAt:     les.UpdatedAt.UTC(),
	}, nil
}

func (repo lessonRepository) model(rec dbLesson) (lesson.Lesson, error) {
	var images []lesson.SignImage
	if len(rec.SignImages) > 0 {
		if err := json.Unmarshal(rec.SignImages, &images); err != nil {
			return lesson.Lesson{}, errors.Wrap(err, "decoding sign images")
		}
	}
	les := lesson.Lesson{
		ID:            rec.ID,
		Name:          rec.Name,
		Category:      rec.Category,
		Difficulty:    rec.Difficulty,
		Description:   rec.Description,
		Signs:         rec.Signs,
		SignImages:    images,
		Instructions:  rec.Instructions,
		EstimatedTime: rec.EstimatedTime,
		Points:        rec.Points,
		DisplayOrder:  rec.DisplayOrder,
		CreatedBy:     rec.CreatedBy.String,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
	}
	les.SetActive(rec.IsActive)
	return les, nil
}

func (repo lessonRepository) models(recs []dbLesson) ([]lesson.Lesson, error) {
	lessons := make([]lesson.Lesson, 0, len(recs))
	for _, rec := range recs {
		les, err := repo.model(rec)
		if err != nil {
			return nil, err
		}
		lessons = append(lessons, les)
	}
	return lessons, nil
}

func (repo lessonRepository) CreateLesson(ctx context.Context, les lesson.Lesson) (lesson.Lesson, error) {
	les.ID = uuid.New().String()
	rec, err := repo.record(les)
	if err != nil {
		return lesson.Lesson{}, err
	}

	query := `
		INSERT INTO lesson (
			id, name, category, difficulty, description, signs, sign_images,
			instructions, estimated_time, points, is_active, display_order,
			created_by, created_at, updated_at
		) VALUES (
			:id, :name, :category, :difficulty, :description, :signs, :sign_images,
			:instructions, :estimated_time, :points, :is_active, :display_order,
			:created_by, :created_at, :updated_at
		)`
	if _, err = repo.db.NamedExecContext(ctx, query, rec); err != nil {
		return lesson.Lesson{}, errors.Wrap(err, "creating lesson")
	}
	return les, nil
}

func (repo lessonRepository) QueryLessons(ctx context.Context, filter *lesson.QueryFilter, ordering ...core.DBOrdering) ([]lesson.Lesson, error) {
	query := "SELECT * FROM lesson"
	var conds []string
	var args []interface{}

	arg := func(val interface{}) string {
		args = append(args, val)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil && !filter.IsEmpty() {
		if filter.Search != "" {
			p := arg("%" + filter.Search + "%")
			conds = append(conds, fmt.Sprintf("(name ILIKE %s OR description ILIKE %s)", p, p))
		}
		if filter.Category != "" {
			conds = append(conds, fmt.Sprintf("category = %s", arg(filter.Category)))
		}
		if filter.Difficulty != "" {
			conds = append(conds, fmt.Sprintf("difficulty = %s", arg(filter.Difficulty)))
		}
		if filter.IsActive != nil {
			conds = append(conds, fmt.Sprintf("is_active = %s", arg(*filter.IsActive)))
		}
		if !filter.CreatedFrom.IsZero() {
			conds = append(conds, fmt.Sprintf("created_at >= %s", arg(filter.CreatedFrom.UTC())))
		}
		if !filter.CreatedTo.IsZero() {
			conds = append(conds, fmt.Sprintf("created_at < %s", arg(filter.CreatedTo.UTC())))
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += orderBy(ordering, core.DBOrdering{Field: "display_order", Ascending: true})

	var recs []dbLesson
	if err := repo.db.SelectContext(ctx, &recs, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying lessons")
	}
	return repo.models(recs)
}

func (repo lessonRepository) GetLesson(ctx context.Context, id string) (lesson.Lesson, error) {
	var rec dbLesson
	if err := repo.db.GetContext(ctx, &rec, "SELECT * FROM lesson WHERE id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return lesson.Lesson{}, lesson.ErrNotFound
		}
		return lesson.Lesson{}, errors.Wrap(err, "getting lesson")
	}
	return repo.model(rec)
}

func (repo lessonRepository) UpdateLesson(ctx context.Context, les lesson.Lesson) (lesson.Lesson, error) {
	rec, err := repo.record(les)
	if err != nil {
		return lesson.Lesson{}, err
	}

	query := `
		UPDATE lesson SET
			name = :name, category = :category, difficulty = :difficulty,
			description = :description, signs = :signs, sign_images = :sign_images,
			instructions = :instructions, estimated_time = :estimated_time,
			points = :points, is_active = :is_active, display_order = :display_order,
			updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, query, rec)
	if err != nil {
		return lesson.Lesson{}, errors.Wrap(err, "updating lesson")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return lesson.Lesson{}, lesson.ErrNotFound
	}
	return les, nil
}

func (repo lessonRepository) DeleteLessonsByID(ctx context.Context, ids ...string) (int, error) {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM lesson WHERE id = ANY($1)", pq.StringArray(ids))
	if err != nil {
		return 0, errors.Wrap(err, "deleting lessons")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (repo lessonRepository) CountLessons(ctx context.Context, createdFrom, createdTo time.Time) (int, error) {
	return countRows(ctx, repo.db, "lesson", createdFrom, createdTo)
}
