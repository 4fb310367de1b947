package main

import (
	"fmt"
	"os"

	"github.com/alexanderramin/cronograma/internal/cli"
	"github.com/alexanderramin/cronograma/internal/config"
	"github.com/alexanderramin/cronograma/internal/db"
	"github.com/alexanderramin/cronograma/internal/repository"
	"github.com/alexanderramin/cronograma/internal/service"
	"github.com/alexanderramin/cronograma/internal/workflow"
	"github.com/mattn/go-isatty"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.LoadConfig()

	// Open database
	database, err := db.OpenDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	// Wire repositories
	scheduleRepo := repository.NewSQLiteScheduleRepo(database)
	taskRepo := repository.NewSQLiteTaskRepo(database)
	depRepo := repository.NewSQLiteDependencyRepo(database)
	eventRepo := repository.NewSQLiteEventRepo(database)

	// Wire unit of work for transactional operations
	uow := db.NewSQLiteUnitOfWork(database)
	policy := workflow.NewPolicy(cfg.StatusRoles)

	var observer service.UseCaseObserver = service.NoopUseCaseObserver{}
	if cfg.LogUseCases {
		observer = service.NewLogUseCaseObserver(os.Stderr)
	}

	app := &cli.App{
		Schedules: service.NewScheduleService(scheduleRepo, taskRepo, depRepo, eventRepo, uow, policy, observer),
		Import:    service.NewImportService(uow, policy, observer),
		Role:      cfg.Role,
	}

	// Prompts only make sense on a terminal.
	app.IsInteractive = func() bool {
		return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	}

	return cli.NewRootCmd(app).Execute()
}
