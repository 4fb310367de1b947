package cli

import (
	"context"
	"strings"

	"github.com/alexanderramin/cronograma/internal/actor"
	"github.com/alexanderramin/cronograma/internal/domain"
	"github.com/alexanderramin/cronograma/internal/service"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// App holds references to the services used by CLI commands.
type App struct {
	Schedules service.ScheduleService
	Import    service.ImportService

	// Role is used when --role is not given.
	Role domain.Role

	// IsInteractive reports whether stdin is a terminal. Prompts are only
	// shown when it returns true; nil means never.
	IsInteractive func() bool
}

func (a *App) interactive() bool {
	return a.IsInteractive != nil && a.IsInteractive()
}

// NewRootCmd creates the top-level "cronograma" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	role := app.Role
	if role == "" {
		role = actor.DefaultRole
	}

	root := &cobra.Command{
		Use:           "cronograma",
		Short:         "Project schedules with dependency checks and dual approval",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(actor.WithRole(ctx, role))
			return nil
		},
	}
	// --dry_run and --dry-run name the same flag.
	root.SetGlobalNormalizationFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	root.PersistentFlags().Var(&roleFlag{role: &role}, "role",
		"Act as role: planner, executor, pmo_reviewer, sponsor_reviewer or admin")

	root.AddCommand(
		newScheduleCmd(app),
		newTaskCmd(app),
		newDepCmd(app),
		newReviewCmd(app),
	)
	return root
}

var _ pflag.Value = (*roleFlag)(nil)

// roleFlag is a pflag.Value that only accepts known roles.
type roleFlag struct {
	role *domain.Role
}

func (f *roleFlag) String() string {
	if f.role == nil {
		return ""
	}
	return string(*f.role)
}

func (f *roleFlag) Set(s string) error {
	r, err := actor.Parse(s)
	if err != nil {
		return err
	}
	*f.role = r
	return nil
}

func (f *roleFlag) Type() string { return "role" }
