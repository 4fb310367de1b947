package importer

import (
	"encoding/json"
	"fmt"
	"os"
)

// ImportSchema is the top-level JSON structure for schedule import.
type ImportSchema struct {
	Schedule     ScheduleImport     `json:"schedule"`
	Tasks        []TaskImport       `json:"tasks"`
	Dependencies []DependencyImport `json:"dependencies,omitempty"`
}

// ScheduleImport defines the schedule header fields in the import file.
type ScheduleImport struct {
	Name      string `json:"name"`
	ProjectID string `json:"project_id,omitempty"`
}

// TaskImport defines one task. Tasks refer to each other by Ref, and a
// parent must appear before its children.
type TaskImport struct {
	Ref         string  `json:"ref"`
	ParentRef   *string `json:"parent_ref,omitempty"`
	Code        string  `json:"code,omitempty"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Kind        string  `json:"kind,omitempty"`
	Start       string  `json:"start"`
	End         string  `json:"end,omitempty"`
	Progress    int     `json:"progress,omitempty"`
	Phase       string  `json:"phase,omitempty"`
	AssigneeID  string  `json:"assignee_id,omitempty"`
	Color       string  `json:"color,omitempty"`
	Order       int     `json:"order,omitempty"`
	Status      string  `json:"status,omitempty"`
	Critical    bool    `json:"critical,omitempty"`
}

// DependencyImport defines a precedence edge between two tasks.
type DependencyImport struct {
	PredecessorRef string `json:"predecessor_ref"`
	SuccessorRef   string `json:"successor_ref"`
	Type           string `json:"type,omitempty"`
	LagDays        int    `json:"lag_days,omitempty"`
}

// LoadImportSchema reads and parses a schedule import JSON file.
func LoadImportSchema(path string) (*ImportSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseImportSchema(data)
}

// ParseImportSchema decodes an import document.
func ParseImportSchema(data []byte) (*ImportSchema, error) {
	var schema ImportSchema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("parsing import file: %w", err)
	}
	return &schema, nil
}
