package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/alama/core/lesson"
	"github.com/trezcool/alama/core/review"
	"github.com/trezcool/alama/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateLesson(
	t *testing.T,
	repo lesson.Repository,
	name, category, difficulty string,
	signs []string,
	displayOrder int,
	isActive bool,
) lesson.Lesson {
	t.Helper()

	now := time.Now().UTC()
	les := lesson.Lesson{
		Name:         name,
		Category:     category,
		Difficulty:   difficulty,
		Signs:        signs,
		DisplayOrder: displayOrder,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	les.SetActive(isActive)
	les, err := repo.CreateLesson(context.Background(), les)
	if err != nil {
		t.Fatalf("CreateLesson() failed: %v", err)
	}
	return les
}

func CreateReview(
	t *testing.T,
	repo review.Repository,
	usr user.User,
	rating int,
	body, status string,
	createdAt ...time.Time,
) review.Review {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	rev := review.Review{
		UserID:    usr.ID,
		UserName:  usr.Name,
		Rating:    rating,
		Body:      body,
		Status:    status,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	rev, err := repo.CreateReview(context.Background(), rev)
	if err != nil {
		t.Fatalf("CreateReview() failed: %v", err)
	}
	return rev
}
