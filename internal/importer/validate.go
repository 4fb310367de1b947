package importer

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/alexanderramin/cronograma/internal/depgraph"
	"github.com/alexanderramin/cronograma/internal/domain"
)

// ValidateImportSchema checks the import schema for errors before conversion.
// Returns a slice of all validation errors found.
func ValidateImportSchema(schema *ImportSchema) []error {
	var errs []error

	if strings.TrimSpace(schema.Schedule.Name) == "" {
		errs = append(errs, fmt.Errorf("schedule.name is required"))
	}

	kinds := make(map[string]domain.TaskKind)
	errs = append(errs, validateTasks(schema.Tasks, kinds)...)
	errs = append(errs, validateDependencies(schema.Dependencies, kinds)...)

	return errs
}

func validateTasks(tasks []TaskImport, kinds map[string]domain.TaskKind) []error {
	var errs []error
	codes := make(map[string]string)

	for i, t := range tasks {
		prefix := fmt.Sprintf("tasks[%d]", i)

		kind := domain.TaskKind(t.Kind)
		if kind == "" {
			kind = domain.KindTask
		}
		if !domain.ValidTaskKinds[kind] {
			errs = append(errs, fmt.Errorf("%s.kind: invalid value %q", prefix, t.Kind))
		}

		if t.ParentRef != nil && *t.ParentRef != "" {
			if _, ok := kinds[*t.ParentRef]; !ok {
				errs = append(errs, fmt.Errorf("%s.parent_ref: ref %q not found (must appear earlier in tasks list)", prefix, *t.ParentRef))
			}
		}

		if t.Ref == "" {
			errs = append(errs, fmt.Errorf("%s.ref is required", prefix))
		} else if _, dup := kinds[t.Ref]; dup {
			errs = append(errs, fmt.Errorf("%s.ref: duplicate ref %q", prefix, t.Ref))
		} else {
			kinds[t.Ref] = kind
		}

		if strings.TrimSpace(t.Name) == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		}

		if code := strings.TrimSpace(t.Code); code != "" {
			key := strings.ToLower(code)
			if utf8.RuneCountInString(code) > domain.MaxTaskCodeLen {
				errs = append(errs, fmt.Errorf("%s.code: %q exceeds %d characters", prefix, code, domain.MaxTaskCodeLen))
			} else if prev, dup := codes[key]; dup {
				errs = append(errs, fmt.Errorf("%s.code: %q already used by %s", prefix, code, prev))
			} else {
				codes[key] = prefix
			}
		}

		if t.Status != "" && !domain.ValidTaskStatuses[domain.TaskStatus(t.Status)] {
			errs = append(errs, fmt.Errorf("%s.status: invalid value %q", prefix, t.Status))
		}
		if t.Progress < 0 || t.Progress > 100 {
			errs = append(errs, fmt.Errorf("%s.progress: %d must be between 0 and 100", prefix, t.Progress))
		} else if kind == domain.KindGroup && t.Progress != 0 {
			errs = append(errs, fmt.Errorf("%s.progress: groups derive progress from their tasks", prefix))
		}

		errs = append(errs, validateSpan(prefix, t, kind)...)
	}

	return errs
}

func validateSpan(prefix string, t TaskImport, kind domain.TaskKind) []error {
	if t.Start == "" {
		return []error{fmt.Errorf("%s.start is required", prefix)}
	}
	start, err := domain.ParseDate(t.Start)
	if err != nil {
		return []error{fmt.Errorf("%s.start: invalid date format %q (expected YYYY-MM-DD)", prefix, t.Start)}
	}
	if t.End == "" {
		if kind == domain.KindMilestone {
			return nil
		}
		return []error{fmt.Errorf("%s.end is required", prefix)}
	}
	end, err := domain.ParseDate(t.End)
	if err != nil {
		return []error{fmt.Errorf("%s.end: invalid date format %q (expected YYYY-MM-DD)", prefix, t.End)}
	}
	if kind != domain.KindMilestone && domain.DayNumber(end) < domain.DayNumber(start) {
		return []error{fmt.Errorf("%s: end %s is before start %s", prefix, t.End, t.Start)}
	}
	return nil
}

// validateDependencies checks refs and types, then replays the edges into a
// dependency graph keyed by ref so duplicates and cycles are reported exactly
// as the live graph would report them.
func validateDependencies(deps []DependencyImport, kinds map[string]domain.TaskKind) []error {
	var errs []error
	graph := depgraph.New()
	exists := func(ref string) bool {
		_, ok := kinds[ref]
		return ok
	}

	for i, d := range deps {
		prefix := fmt.Sprintf("dependencies[%d]", i)
		ok := true

		if d.PredecessorRef == "" {
			errs = append(errs, fmt.Errorf("%s.predecessor_ref is required", prefix))
			ok = false
		} else if !exists(d.PredecessorRef) {
			errs = append(errs, fmt.Errorf("%s.predecessor_ref: ref %q not found in tasks", prefix, d.PredecessorRef))
			ok = false
		}

		if d.SuccessorRef == "" {
			errs = append(errs, fmt.Errorf("%s.successor_ref is required", prefix))
			ok = false
		} else if !exists(d.SuccessorRef) {
			errs = append(errs, fmt.Errorf("%s.successor_ref: ref %q not found in tasks", prefix, d.SuccessorRef))
			ok = false
		}

		typ := dependencyType(d.Type)
		if !domain.ValidDependencyTypes[typ] {
			errs = append(errs, fmt.Errorf("%s.type: invalid value %q (expected FS, FF, SS or SF)", prefix, d.Type))
			ok = false
		}

		if d.PredecessorRef != "" && d.PredecessorRef == d.SuccessorRef {
			errs = append(errs, fmt.Errorf("%s: self-dependency (predecessor_ref == successor_ref == %q)", prefix, d.PredecessorRef))
			continue
		}
		if !ok {
			continue
		}

		_, err := graph.AddEdge(domain.Dependency{
			ID:            prefix,
			OriginID:      d.PredecessorRef,
			DestinationID: d.SuccessorRef,
			Type:          typ,
			LagDays:       d.LagDays,
		}, exists)
		var dupErr *domain.DuplicateEdgeError
		var cycleErr *domain.CycleError
		switch {
		case errors.As(err, &dupErr):
			errs = append(errs, fmt.Errorf("%s: duplicate of %s", prefix, dupErr.ExistingID))
		case errors.As(err, &cycleErr):
			errs = append(errs, fmt.Errorf("%s: circular dependency %s", prefix, strings.Join(cycleErr.Path, " -> ")))
		case err != nil:
			errs = append(errs, fmt.Errorf("%s: %w", prefix, err))
		}
	}

	return errs
}

func dependencyType(s string) domain.DependencyType {
	if s == "" {
		return domain.DepFinishToStart
	}
	return domain.DependencyType(strings.ToUpper(s))
}
