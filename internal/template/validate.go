package template

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/cronograma/internal/domain"
)

// ValidateSchema checks a TemplateSchema for structural errors.
// Returns a slice of errors (empty if valid).
func ValidateSchema(schema *TemplateSchema) []error {
	var errs []error

	if schema.ID == "" {
		errs = append(errs, fmt.Errorf("template id is required"))
	}
	if schema.Name == "" {
		errs = append(errs, fmt.Errorf("template name is required"))
	}
	if len(schema.Tasks) == 0 {
		errs = append(errs, fmt.Errorf("at least one task is required"))
	}

	vars := map[string]bool{}
	for i, v := range schema.Variables {
		if v.Key == "" {
			errs = append(errs, fmt.Errorf("variable[%d]: key is required", i))
		} else if vars[v.Key] {
			errs = append(errs, fmt.Errorf("variable[%d]: duplicate key %q", i, v.Key))
		}
		vars[v.Key] = true
		if v.Min != nil && v.Max != nil && *v.Min > *v.Max {
			errs = append(errs, fmt.Errorf("variable[%d]: min %d above max %d", i, *v.Min, *v.Max))
		}
	}

	for i, t := range schema.Tasks {
		if t.ID == "" {
			errs = append(errs, fmt.Errorf("task[%d]: id is required", i))
		}
		if strings.TrimSpace(t.Title) == "" {
			errs = append(errs, fmt.Errorf("task[%d]: title is required", i))
		}
		if t.Kind != "" && !domain.ValidTaskKinds[domain.TaskKind(t.Kind)] {
			errs = append(errs, fmt.Errorf("task[%d]: invalid kind %q", i, t.Kind))
		}
		if _, err := ParseRepeats(t.Repeat); err != nil {
			errs = append(errs, fmt.Errorf("task[%d]: invalid repeat: %w", i, err))
		}
	}

	for i, d := range schema.Dependencies {
		if d.Predecessor == "" {
			errs = append(errs, fmt.Errorf("dependency[%d]: predecessor is required", i))
		}
		if d.Successor == "" {
			errs = append(errs, fmt.Errorf("dependency[%d]: successor is required", i))
		}
		if d.Type != "" && !domain.ValidDependencyTypes[domain.DependencyType(strings.ToUpper(d.Type))] {
			errs = append(errs, fmt.Errorf("dependency[%d]: invalid type %q", i, d.Type))
		}
		if _, err := ParseRepeats(d.Repeat); err != nil {
			errs = append(errs, fmt.Errorf("dependency[%d]: invalid repeat: %w", i, err))
		}
	}

	return errs
}
