package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"remi/internal/models"
)

// LoadAgendaDefinition loads an agenda definition from a JSON or YAML file.
// The format is chosen by file extension; anything not .yaml/.yml is parsed as JSON.
func LoadAgendaDefinition(filePath string) (*models.AgendaDefinition, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read agenda file: %w", err)
	}

	var def models.AgendaDefinition
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("failed to parse agenda YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("failed to parse agenda JSON: %w", err)
		}
	}

	return &def, nil
}

// WriteExampleAgenda writes a starter agenda definition to the given path.
// Used at bootstrap when no agenda file exists yet.
func WriteExampleAgenda(filePath string) error {
	example := models.AgendaDefinition{
		MeetingTitle: "Product Sprint Planning",
		Items: []models.AgendaItemDefinition{
			{
				ID:               "item_1",
				Title:            "Review Last Sprint",
				Description:      "Discuss completed tasks and blockers",
				Keywords:         []string{"sprint", "review", "completed", "blockers", "retrospective"},
				EstimatedMinutes: 10,
			},
			{
				ID:               "item_2",
				Title:            "Budget Allocation",
				Description:      "Discuss budget for next quarter",
				Keywords:         []string{"budget", "funding", "cost", "resources", "financial"},
				EstimatedMinutes: 15,
			},
			{
				ID:               "item_3",
				Title:            "Timeline & Deadlines",
				Description:      "Set milestones and delivery dates",
				Keywords:         []string{"timeline", "deadline", "milestone", "schedule", "delivery"},
				EstimatedMinutes: 10,
			},
		},
	}

	data, err := json.MarshalIndent(example, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal example agenda: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write example agenda: %w", err)
	}

	return nil
}
