package template

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alexanderramin/cronograma/internal/domain"
	"github.com/alexanderramin/cronograma/internal/importer"
)

// Input carries the per-instance values a template is expanded with.
type Input struct {
	Name      string
	ProjectID string
	Start     time.Time
	Vars      map[string]string
}

// span holds day offsets from the anchor date. A derived span belongs to a
// group whose dates come from its children and is unset until one is seen.
type span struct {
	start, end int
	set        bool
	derived    bool
}

// Expand turns a template into an import document anchored on in.Start.
// The result still goes through importer validation when it is persisted.
func Expand(schema *TemplateSchema, in Input) (*importer.ImportSchema, error) {
	if errs := ValidateSchema(schema); len(errs) > 0 {
		return nil, fmt.Errorf("invalid template: %w", errs[0])
	}
	if in.Start.IsZero() {
		return nil, fmt.Errorf("start date is required")
	}

	vars, err := resolveVariables(schema.Variables, in.Vars)
	if err != nil {
		return nil, fmt.Errorf("resolving variables: %w", err)
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = schema.Name
	}
	out := &importer.ImportSchema{
		Schedule: importer.ScheduleImport{Name: name, ProjectID: in.ProjectID},
	}

	index := make(map[string]int) // ref -> position in out.Tasks
	var spans []span

	for _, tc := range schema.Tasks {
		repeats, err := ParseRepeats(tc.Repeat)
		if err != nil {
			return nil, fmt.Errorf("parsing repeats for task '%s': %w", tc.ID, err)
		}
		err = iterateRepeats(repeats, vars, func(v map[string]int) error {
			row, sp, err := expandTask(tc, v)
			if err != nil {
				return fmt.Errorf("task '%s': %w", tc.ID, err)
			}
			if _, dup := index[row.Ref]; dup {
				return fmt.Errorf("task '%s' generated twice", row.Ref)
			}
			if row.ParentRef != nil {
				if _, ok := index[*row.ParentRef]; !ok {
					return fmt.Errorf("task '%s': parent '%s' must be generated first", row.Ref, *row.ParentRef)
				}
			}
			index[row.Ref] = len(out.Tasks)
			out.Tasks = append(out.Tasks, row)
			spans = append(spans, sp)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	if err := envelopeGroups(out.Tasks, spans, index); err != nil {
		return nil, err
	}

	anchor := domain.AtNoon(in.Start)
	for i := range out.Tasks {
		out.Tasks[i].Start = domain.FormatDate(domain.AddDays(anchor, spans[i].start))
		out.Tasks[i].End = domain.FormatDate(domain.AddDays(anchor, spans[i].end))
	}

	for i, dc := range schema.Dependencies {
		repeats, err := ParseRepeats(dc.Repeat)
		if err != nil {
			return nil, fmt.Errorf("parsing repeats for dependency[%d]: %w", i, err)
		}
		err = iterateRepeats(repeats, vars, func(v map[string]int) error {
			dep, err := expandDependency(dc, v)
			if err != nil {
				return fmt.Errorf("dependency[%d]: %w", i, err)
			}
			for _, ref := range []string{dep.PredecessorRef, dep.SuccessorRef} {
				if _, ok := index[ref]; !ok {
					return fmt.Errorf("dependency[%d]: task '%s' was not generated", i, ref)
				}
			}
			out.Dependencies = append(out.Dependencies, dep)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return out, nil
}

func expandTask(tc TaskConfig, vars map[string]int) (importer.TaskImport, span, error) {
	var row importer.TaskImport
	var err error

	if row.Ref, err = ExpandTemplate(tc.ID, vars); err != nil {
		return row, span{}, err
	}
	if row.Name, err = ExpandTemplate(tc.Title, vars); err != nil {
		return row, span{}, err
	}
	if row.Code, err = ExpandTemplate(tc.Code, vars); err != nil {
		return row, span{}, err
	}
	if row.Description, err = ExpandTemplate(tc.Description, vars); err != nil {
		return row, span{}, err
	}
	if row.Phase, err = ExpandTemplate(tc.Phase, vars); err != nil {
		return row, span{}, err
	}
	if tc.ParentID != nil && *tc.ParentID != "" {
		parent, err := ExpandTemplate(*tc.ParentID, vars)
		if err != nil {
			return row, span{}, err
		}
		row.ParentRef = &parent
	}
	if row.Order, err = evalIntExpr(tc.Order, vars, 0); err != nil {
		return row, span{}, fmt.Errorf("order: %w", err)
	}
	row.Kind = tc.Kind
	row.Color = tc.Color
	row.Critical = tc.Critical

	kind := domain.TaskKind(tc.Kind)
	if kind == domain.KindGroup && strings.TrimSpace(tc.OffsetDays) == "" {
		return row, span{derived: true}, nil
	}

	offset, err := evalIntExpr(tc.OffsetDays, vars, 0)
	if err != nil {
		return row, span{}, fmt.Errorf("offset_days: %w", err)
	}
	if kind == domain.KindMilestone {
		return row, span{start: offset, end: offset, set: true}, nil
	}
	duration, err := evalIntExpr(tc.DurationDays, vars, 1)
	if err != nil {
		return row, span{}, fmt.Errorf("duration_days: %w", err)
	}
	if duration < 1 {
		return row, span{}, fmt.Errorf("duration_days: %d must be at least 1", duration)
	}
	return row, span{start: offset, end: offset + duration - 1, set: true}, nil
}

// envelopeGroups gives every undated group the smallest span covering its
// children. Children always follow their parent, so walking backwards
// settles the deepest groups first.
func envelopeGroups(rows []importer.TaskImport, spans []span, index map[string]int) error {
	for i := len(rows) - 1; i >= 0; i-- {
		if !spans[i].set {
			return fmt.Errorf("group '%s' has no offset_days and no dated children", rows[i].Ref)
		}
		if rows[i].ParentRef == nil {
			continue
		}
		ps := &spans[index[*rows[i].ParentRef]]
		switch {
		case !ps.derived:
		case !ps.set:
			ps.start, ps.end, ps.set = spans[i].start, spans[i].end, true
		default:
			ps.start = min(ps.start, spans[i].start)
			ps.end = max(ps.end, spans[i].end)
		}
	}
	return nil
}

func expandDependency(dc DependencyConfig, vars map[string]int) (importer.DependencyImport, error) {
	var dep importer.DependencyImport
	var err error
	if dep.PredecessorRef, err = ExpandTemplate(dc.Predecessor, vars); err != nil {
		return dep, err
	}
	if dep.SuccessorRef, err = ExpandTemplate(dc.Successor, vars); err != nil {
		return dep, err
	}
	if dep.LagDays, err = evalIntExpr(dc.LagDays, vars, 0); err != nil {
		return dep, fmt.Errorf("lag_days: %w", err)
	}
	dep.Type = strings.ToUpper(dc.Type)
	return dep, nil
}

// resolveVariables builds the resolved variable map from defaults + user overrides.
func resolveVariables(defs []VariableConfig, userVars map[string]string) (map[string]int, error) {
	vars := make(map[string]int)
	known := make(map[string]bool, len(defs))

	for _, v := range defs {
		known[v.Key] = true

		if len(v.Default) > 0 {
			var def int
			if err := json.Unmarshal(v.Default, &def); err != nil {
				return nil, fmt.Errorf("variable '%s': default must be an integer", v.Key)
			}
			vars[v.Key] = def
		}

		if val, ok := userVars[v.Key]; ok {
			n, err := strconv.Atoi(strings.TrimSpace(val))
			if err != nil {
				return nil, fmt.Errorf("variable '%s': expected integer, got '%s'", v.Key, val)
			}
			vars[v.Key] = n
		}

		n, ok := vars[v.Key]
		if !ok {
			if v.Required {
				return nil, fmt.Errorf("required variable '%s' not provided", v.Key)
			}
			continue
		}
		if v.Min != nil && n < *v.Min {
			return nil, fmt.Errorf("variable '%s': value %d below minimum %d", v.Key, n, *v.Min)
		}
		if v.Max != nil && n > *v.Max {
			return nil, fmt.Errorf("variable '%s': value %d above maximum %d", v.Key, n, *v.Max)
		}
	}

	for k := range userVars {
		if !known[k] {
			return nil, fmt.Errorf("unknown variable '%s'", k)
		}
	}
	return vars, nil
}

// iterateRepeats runs a callback for each combination of repeat variables.
// If no repeats, runs once with just the base vars.
func iterateRepeats(repeats []RepeatConfig, baseVars map[string]int, fn func(vars map[string]int) error) error {
	return iterateRepeatLevel(repeats, 0, baseVars, fn)
}

func iterateRepeatLevel(repeats []RepeatConfig, level int, vars map[string]int, fn func(vars map[string]int) error) error {
	if level >= len(repeats) {
		return fn(vars)
	}

	r := repeats[level]
	var to int
	switch {
	case r.To != nil:
		to = *r.To
	case r.ToVar != "":
		// to_var may be a plain name or an expression such as "weeks-1".
		n, err := EvalExpr(r.ToVar, vars)
		if err != nil {
			return fmt.Errorf("repeat bound for '%s': %w", r.Var, err)
		}
		to = n
	default:
		return fmt.Errorf("repeat for '%s' has no 'to' or 'to_var'", r.Var)
	}

	for i := r.From; i <= to; i++ {
		loopVars := copyVars(vars)
		loopVars[r.Var] = i
		if err := iterateRepeatLevel(repeats, level+1, loopVars, fn); err != nil {
			return err
		}
	}
	return nil
}

func copyVars(vars map[string]int) map[string]int {
	cp := make(map[string]int, len(vars)+1)
	for k, v := range vars {
		cp[k] = v
	}
	return cp
}
