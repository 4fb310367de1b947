package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexanderramin/cronograma/internal/contract"
)

// resolveScheduleID resolves a schedule reference, which can be:
//   - the schedule name (case-insensitive, must be unique)
//   - a full UUID
//   - a UUID prefix
func resolveScheduleID(ctx context.Context, app *App, input string) (string, error) {
	if input == "" {
		return "", fmt.Errorf("schedule ID is required")
	}

	schedules, err := app.Schedules.ListSchedules(ctx)
	if err != nil {
		return "", err
	}

	var byName []string
	for _, s := range schedules {
		if s.ID == input {
			return s.ID, nil
		}
		if strings.EqualFold(s.Name, input) {
			byName = append(byName, s.ID)
		}
	}
	if len(byName) == 1 {
		return byName[0], nil
	}

	var matches []string
	for _, s := range schedules {
		if strings.HasPrefix(s.ID, input) {
			matches = append(matches, s.ID)
		}
	}
	return pickOne("schedule", input, matches)
}

// resolveTaskID resolves a task reference within one schedule: its code
// (case-insensitive), its full UUID, or a UUID prefix.
func resolveTaskID(agg *contract.ScheduleAggregate, input string) (string, error) {
	for _, t := range agg.Tasks {
		if t.ID == input || (t.Code != "" && strings.EqualFold(t.Code, input)) {
			return t.ID, nil
		}
	}
	var matches []string
	for _, t := range agg.Tasks {
		if strings.HasPrefix(t.ID, input) {
			matches = append(matches, t.ID)
		}
	}
	return pickOne("task", input, matches)
}

// resolveDependencyID resolves an edge by full UUID or UUID prefix.
func resolveDependencyID(agg *contract.ScheduleAggregate, input string) (string, error) {
	var matches []string
	for _, d := range agg.Dependencies {
		if d.ID == input {
			return d.ID, nil
		}
		if strings.HasPrefix(d.ID, input) {
			matches = append(matches, d.ID)
		}
	}
	return pickOne("dependency", input, matches)
}

func pickOne(kind, input string, matches []string) (string, error) {
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%s not found: %q", kind, input)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%s ID prefix %q is ambiguous (%d matches)", kind, input, len(matches))
	}
}

// loadSchedule resolves a schedule reference and returns its aggregate.
func loadSchedule(ctx context.Context, app *App, input string) (*contract.ScheduleAggregate, error) {
	id, err := resolveScheduleID(ctx, app, input)
	if err != nil {
		return nil, err
	}
	return app.Schedules.GetSchedule(ctx, id)
}
