package director

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// WritePlan writes a plan to a YAML file
func WritePlan(plan *Plan, path string) error {
	data, err := yaml.Marshal(plan)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadPlan reads a plan from a YAML file and validates its samples
func ReadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, err
	}

	// Файл могли править руками: порядок и уникальность проверяем заново
	if err := ValidateSamples(plan.Samples()); err != nil {
		return nil, fmt.Errorf("plan %s: %w", path, err)
	}
	for i := 1; i < len(plan.Keyframes); i++ {
		if plan.Keyframes[i].Sample.Percent <= plan.Keyframes[i-1].Sample.Percent {
			return nil, fmt.Errorf("plan %s: %w: keyframes are not in ascending order", path, ErrInvalidConfiguration)
		}
	}
	// Обои должны покрывать сутки целиком
	if err := CheckFullCycle(plan.Samples()); err != nil {
		return nil, fmt.Errorf("plan %s: %w", path, err)
	}
	for _, kf := range plan.Keyframes {
		if len(kf.Shots) == 0 {
			return nil, fmt.Errorf("plan %s: %w: keyframe %v has no shots", path, ErrInvalidConfiguration, kf.Sample.Percent)
		}
	}

	return &plan, nil
}
