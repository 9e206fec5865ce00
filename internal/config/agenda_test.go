package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAgendaDefinition_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agenda.json")
	content := `{
		"meetingTitle": "Weekly Sync",
		"items": [
			{"id": "item_1", "title": "Budget", "keywords": ["budget", "cost"], "estimatedMinutes": 15},
			{"id": "item_2", "title": "Roadmap", "description": "Q4 plans"}
		]
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	def, err := LoadAgendaDefinition(path)
	if err != nil {
		t.Fatalf("failed to load agenda: %v", err)
	}

	if def.MeetingTitle != "Weekly Sync" {
		t.Errorf("expected meeting title %q, got %q", "Weekly Sync", def.MeetingTitle)
	}
	if len(def.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(def.Items))
	}
	if def.Items[0].EstimatedMinutes != 15 {
		t.Errorf("expected 15 estimated minutes, got %d", def.Items[0].EstimatedMinutes)
	}
	if def.Items[1].Description != "Q4 plans" {
		t.Errorf("expected description to survive, got %q", def.Items[1].Description)
	}
}

func TestLoadAgendaDefinition_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agenda.yaml")
	content := `meetingTitle: Planning
items:
  - id: item_1
    title: Budget
    keywords: [budget]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	def, err := LoadAgendaDefinition(path)
	if err != nil {
		t.Fatalf("failed to load YAML agenda: %v", err)
	}
	if def.MeetingTitle != "Planning" {
		t.Errorf("expected meeting title %q, got %q", "Planning", def.MeetingTitle)
	}
	if len(def.Items) != 1 || def.Items[0].ID != "item_1" {
		t.Errorf("unexpected items: %+v", def.Items)
	}
}

func TestLoadAgendaDefinition_MissingFile(t *testing.T) {
	if _, err := LoadAgendaDefinition(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadAgendaDefinition_MalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadAgendaDefinition(path); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestWriteExampleAgenda(t *testing.T) {
	path := filepath.Join(t.TempDir(), "example_agenda.json")
	if err := WriteExampleAgenda(path); err != nil {
		t.Fatalf("failed to write example agenda: %v", err)
	}

	def, err := LoadAgendaDefinition(path)
	if err != nil {
		t.Fatalf("example agenda does not round-trip: %v", err)
	}
	if def.MeetingTitle == "" {
		t.Error("example agenda has no meeting title")
	}
	if len(def.Items) == 0 {
		t.Error("example agenda has no items")
	}
	for _, item := range def.Items {
		if item.ID == "" || item.Title == "" {
			t.Errorf("example item missing id or title: %+v", item)
		}
	}
}
