package template

import (
	"encoding/json"
	"fmt"
	"os"
)

// TemplateSchema is the JSON shape of a reusable schedule template. Task and
// dependency IDs may contain {expr} blocks that are expanded per repeat.
type TemplateSchema struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Version      string             `json:"version"`
	Description  string             `json:"description,omitempty"`
	Variables    []VariableConfig   `json:"variables,omitempty"`
	Tasks        []TaskConfig       `json:"tasks"`
	Dependencies []DependencyConfig `json:"dependencies,omitempty"`
}

type VariableConfig struct {
	Key         string          `json:"key"`
	Description string          `json:"description,omitempty"`
	Required    bool            `json:"required"`
	Default     json.RawMessage `json:"default,omitempty"`
	Min         *int            `json:"min,omitempty"`
	Max         *int            `json:"max,omitempty"`
}

// RepeatConfig can be a single repeat or nested.
// In JSON, "repeat" can be an object (single) or array of objects (nested).
type RepeatConfig struct {
	Var   string `json:"var"`
	From  int    `json:"from"`
	To    *int   `json:"to,omitempty"`     // explicit upper bound
	ToVar string `json:"to_var,omitempty"` // variable name for upper bound
}

// TaskConfig describes one task row. OffsetDays and DurationDays are
// expressions evaluated against the variables and the repeat counters.
// A group without an offset spans its generated children.
type TaskConfig struct {
	ID           string          `json:"id"`
	Repeat       json.RawMessage `json:"repeat,omitempty"`
	ParentID     *string         `json:"parent_id,omitempty"`
	Code         string          `json:"code,omitempty"`
	Title        string          `json:"title"`
	Description  string          `json:"description,omitempty"`
	Kind         string          `json:"kind,omitempty"`
	Phase        string          `json:"phase,omitempty"`
	Color        string          `json:"color,omitempty"`
	Critical     bool            `json:"critical,omitempty"`
	Order        string          `json:"order,omitempty"`
	OffsetDays   string          `json:"offset_days,omitempty"`
	DurationDays string          `json:"duration_days,omitempty"`
}

type DependencyConfig struct {
	Repeat      json.RawMessage `json:"repeat,omitempty"`
	Predecessor string          `json:"predecessor"` // task ID pattern
	Successor   string          `json:"successor"`   // task ID pattern
	Type        string          `json:"type,omitempty"`
	LagDays     string          `json:"lag_days,omitempty"`
}

// LoadSchema reads and parses a template JSON file.
func LoadSchema(path string) (*TemplateSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var schema TemplateSchema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("parsing template: %w", err)
	}
	return &schema, nil
}

// ParseRepeats parses the repeat field which can be a single object or an array.
func ParseRepeats(raw json.RawMessage) ([]RepeatConfig, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var arr []RepeatConfig
	if err := json.Unmarshal(raw, &arr); err == nil {
		return arr, nil
	}

	var single RepeatConfig
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, err
	}
	return []RepeatConfig{single}, nil
}
