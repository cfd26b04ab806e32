package main

import (
	"context"
	"fmt"
	"time"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/lesson"
)

func (cli *commandLine) addLesson(name, category, difficulty string, signs []string, order int) error {
	difficulty = core.CleanString(difficulty, true /* lower */)
	valid := false
	for _, d := range lesson.Difficulties {
		if d == difficulty {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("unknown difficulty %q", difficulty)
	}

	cleaned := make([]string, 0, len(signs))
	seen := make(map[string]bool, len(signs))
	for _, sign := range signs {
		sign = core.CleanString(sign)
		if sign == "" || seen[sign] {
			continue
		}
		seen[sign] = true
		cleaned = append(cleaned, sign)
	}
	if len(cleaned) == 0 {
		return fmt.Errorf("at least one sign is required")
	}

	now := time.Now().UTC()
	les := lesson.Lesson{
		Name:         core.CleanString(name),
		Category:     core.CleanString(category, true /* lower */),
		Difficulty:   difficulty,
		Signs:        cleaned,
		DisplayOrder: order,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	les.SetActive(true)
	if _, err := cli.lesRepo.CreateLesson(context.Background(), les); err != nil {
		return err
	}
	return nil
}
