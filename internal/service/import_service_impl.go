package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/cronograma/internal/actor"
	"github.com/alexanderramin/cronograma/internal/contract"
	"github.com/alexanderramin/cronograma/internal/db"
	"github.com/alexanderramin/cronograma/internal/domain"
	"github.com/alexanderramin/cronograma/internal/importer"
	"github.com/alexanderramin/cronograma/internal/workflow"
)

type importService struct {
	uow      db.UnitOfWork
	policy   workflow.Policy
	observer UseCaseObserver
}

func NewImportService(uow db.UnitOfWork, policy workflow.Policy, observers ...UseCaseObserver) ImportService {
	return &importService{
		uow:      uow,
		policy:   policy,
		observer: useCaseObserverOrNoop(observers),
	}
}

func (s *importService) ImportSchedule(ctx context.Context, filePath string) (*ImportResult, error) {
	schema, err := importer.LoadImportSchema(filePath)
	if err != nil {
		return nil, fmt.Errorf("loading import file: %w", err)
	}
	return s.importSchema(ctx, schema)
}

func (s *importService) ImportScheduleFromSchema(ctx context.Context, schema *importer.ImportSchema) (*ImportResult, error) {
	return s.importSchema(ctx, schema)
}

func (s *importService) importSchema(ctx context.Context, schema *importer.ImportSchema) (result *ImportResult, err error) {
	fields := map[string]any{"name": schema.Schedule.Name}
	done := startUseCase(ctx, s.observer, "import-schedule", fields)
	defer func() { done(err) }()

	// An import builds a fresh draft, so it needs the rights of a draft editor.
	if err := s.policy.Require(domain.StateDraft, actor.RoleFrom(ctx), domain.CapStructure, domain.CapDependencies); err != nil {
		return nil, err
	}
	if errs := importer.ValidateImportSchema(schema); len(errs) > 0 {
		return nil, formatValidationErrors(errs)
	}

	sch, err := importer.Convert(schema, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("converting import schema: %w", err)
	}
	fields["task_count"] = sch.TaskCount()
	fields["dependency_count"] = len(sch.Dependencies())

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		return persistDiff(ctx, tx, nil, sch, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("saving imported schedule: %w", err)
	}

	view := contract.FromSchedule(sch)
	return &ImportResult{
		Schedule:        &view,
		TaskCount:       sch.TaskCount(),
		DependencyCount: len(sch.Dependencies()),
	}, nil
}

func formatValidationErrors(errs []error) error {
	var b strings.Builder
	fmt.Fprintf(&b, "import validation failed (%d errors):", len(errs))
	for _, e := range errs {
		b.WriteString("\n  - ")
		b.WriteString(e.Error())
	}
	return fmt.Errorf("%w: %s", domain.ErrValidation, b.String())
}
