package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jbweber/vagrant-ninja/api/v1alpha1"
	"github.com/jbweber/vagrant-ninja/internal/runner"
	"github.com/jbweber/vagrant-ninja/internal/status"
)

// QuickVerbs are the vagrant subcommands QuickCommand accepts, in menu
// order.
var QuickVerbs = []string{"up", "halt", "reload", "status", "suspend", "resume", "provision", "package", "init", "destroy"}

// IsQuickVerb reports whether verb is one of QuickVerbs.
func IsQuickVerb(verb string) bool {
	for _, v := range QuickVerbs {
		if v == verb {
			return true
		}
	}
	return false
}

// QuickCommand runs "vagrant <verb>" in the directory reported by locator.
// No artifacts are generated. Like Build it returns once the process runs;
// completion stamps the panel and updates the run record of the project.
func (s *Service) QuickCommand(ctx context.Context, verb string, locator ProjectLocator) (*v1alpha1.BuildRun, error) {
	if !IsQuickVerb(verb) {
		return nil, fmt.Errorf("unsupported verb %q (supported: %s)", verb, strings.Join(QuickVerbs, ", "))
	}
	if err := s.reserve(); err != nil {
		return nil, err
	}
	defer s.release()

	dir, err := locator.CurrentProjectDirectory()
	if err != nil {
		return nil, fmt.Errorf("failed to determine project directory: %w", err)
	}
	if dir == "" {
		return nil, fmt.Errorf("no project directory")
	}
	if verb != "init" && !s.workspace.HasDescriptor(dir) {
		return nil, fmt.Errorf("no Vagrantfile in %s", dir)
	}

	cmd := s.toolCommand(dir, s.settings.QuickLowPriority, verb)
	run := v1alpha1.NewBuildRun(filepath.Base(dir), dir, verb, cmd.Argv())

	s.panel.Clear()
	s.panel.Stamp()
	s.panel.Infof("Dir: %s", dir)
	s.logger.Info().Str("dir", dir).Str("command", cmd.String()).Msg("starting quick command")

	if err := status.TransitionToStarting(&run.Status); err != nil {
		return nil, err
	}

	err = s.runner.Start(ctx, cmd, func(res runner.Result) {
		s.completeQuick(run, res)
	})
	if errors.Is(err, runner.ErrBusy) {
		return nil, err
	}
	if err == nil {
		s.markRunning(run)
	}

	return s.LastRun(), err
}

func (s *Service) completeQuick(run *v1alpha1.BuildRun, res runner.Result) {
	s.mu.Lock()
	applyResult(&run.Status, res)
	s.current = run
	snapshot := run.DeepCopy()
	s.mu.Unlock()

	s.reportResult(run.Spec.Verb, res)
	s.panel.Stamp()

	if err := s.records.Update(run.Spec.Directory, snapshot); err != nil {
		s.logger.Warn().Err(err).Str("dir", run.Spec.Directory).Msg("failed to update run record")
	}
	s.logger.Info().Str("verb", run.Spec.Verb).Str("phase", string(snapshot.Status.Phase)).Msg("quick command finished")
}

// DirectoryLocator is a ProjectLocator with a fixed directory. An empty
// Dir means the current working directory.
type DirectoryLocator struct {
	Dir string
}

// CurrentProjectDirectory returns the absolute project directory.
func (l DirectoryLocator) CurrentProjectDirectory() (string, error) {
	dir := l.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		dir = wd
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", abs)
	}
	return abs, nil
}
