package services

import "github.com/Pokatocz/quest-and-check/internal/models"

// LevelThreshold is the reward needed per level. Level N starts at a
// cumulative reward of (N-1)*LevelThreshold.
const LevelThreshold = 100

type Ledger struct {
	TotalReward int `json:"total_reward"`
	Level       int `json:"level"`
	WithinLevel int `json:"within_level"`
	ToNextLevel int `json:"to_next_level"`
	Threshold   int `json:"level_threshold"`
}

func ComputeLevel(totalReward int) Ledger {
	if totalReward < 0 {
		totalReward = 0
	}
	within := totalReward % LevelThreshold
	return Ledger{
		TotalReward: totalReward,
		Level:       totalReward/LevelThreshold + 1,
		WithinLevel: within,
		ToNextLevel: LevelThreshold - within,
		Threshold:   LevelThreshold,
	}
}

// TotalReward sums XP over the tasks userID completed and had approved.
func TotalReward(tasks []models.Task, userID uint) int {
	total := 0
	for i := range tasks {
		task := &tasks[i]
		if task.Countable() && *task.CompletedBy == userID {
			total += task.XP
		}
	}
	return total
}
