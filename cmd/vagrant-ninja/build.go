package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jbweber/vagrant-ninja/api/v1alpha1"
	"github.com/jbweber/vagrant-ninja/internal/build"
	"github.com/jbweber/vagrant-ninja/internal/loader"
)

var (
	buildSeedISO bool

	quickProject string
)

var buildCmd = &cobra.Command{
	Use:   "build <config.yaml>",
	Short: "Build a VM from a provisioning config",
	Long: `Build a VM from a ProvisioningConfig file.

This will:
- Create <base-dir>/<name> (an existing directory is reused)
- Run "vagrant init" there and replace its Vagrantfile
- Write the Vagrantfile and bootstrap.sh
- Run "vagrant up" and stream its output

The first interrupt asks vagrant to stop, a second one kills it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loader.LoadFromFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		svc := newService()
		return runAndWait(svc, func(ctx context.Context) (*v1alpha1.BuildRun, error) {
			return svc.Build(ctx, cfg, build.Options{SeedISO: buildSeedISO})
		})
	},
}

func init() {
	buildCmd.Flags().BoolVar(&buildSeedISO, "seed-iso", false, "also write provision-seed.iso with the generated files")
}

// newQuickCmd creates the command running "vagrant <verb>" in a project.
func newQuickCmd(verb string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   verb,
		Short: fmt.Sprintf("Run vagrant %s in a project directory", verb),
		Long: fmt.Sprintf(`Run "vagrant %s" in an existing project directory.

No files are generated. The run record of the project is updated when
vagrant exits.`, verb),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := cmd.Flags().GetString("project")
			if err != nil {
				return err
			}

			svc := newService()
			return runAndWait(svc, func(ctx context.Context) (*v1alpha1.BuildRun, error) {
				return svc.QuickCommand(ctx, verb, build.DirectoryLocator{Dir: project})
			})
		},
	}
	cmd.Flags().StringP("project", "p", "", "project directory (default current directory)")
	return cmd
}

// runAndWait starts a run, forwards interrupts to it and waits for its
// completion. It fails unless the run completed.
func runAndWait(svc *build.Service, start func(context.Context) (*v1alpha1.BuildRun, error)) error {
	ctx := context.Background()

	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer func() {
		signal.Stop(sigs)
		close(sigs)
	}()

	go func() {
		count := 0
		for range sigs {
			count++
			if count == 1 {
				logger.Info().Msg("stop requested, interrupt again to kill")
				svc.Stop()
				continue
			}
			svc.Kill()
		}
	}()

	run, err := start(ctx)
	if run == nil {
		return err
	}
	if err != nil {
		// A run that failed to launch has already completed
		logger.Debug().Err(err).Msg("run failed before launch")
	}

	if err := svc.Wait(ctx); err != nil {
		return err
	}

	last := svc.LastRun()
	if last.GetPhase() != v1alpha1.RunPhaseCompleted {
		msg := last.Status.Message
		if msg == "" {
			msg = string(last.GetPhase())
		}
		return errors.New(msg)
	}
	return nil
}
