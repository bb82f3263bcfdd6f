package store

import (
	"encoding/json"

	"github.com/tgienger/nudge/internal/models"
)

// Encode serializes the full task list
func Encode(tasks []models.Task) ([]byte, error) {
	if tasks == nil {
		tasks = []models.Task{}
	}
	return json.Marshal(tasks)
}

// Decode parses a serialized task list
func Decode(data []byte) ([]models.Task, error) {
	var tasks []models.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, nil
}
