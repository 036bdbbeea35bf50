package build

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jbweber/vagrant-ninja/api/v1alpha1"
	"github.com/jbweber/vagrant-ninja/internal/config"
	"github.com/jbweber/vagrant-ninja/internal/logpanel"
	"github.com/jbweber/vagrant-ninja/internal/opener"
	"github.com/jbweber/vagrant-ninja/internal/runner"
	"github.com/jbweber/vagrant-ninja/internal/status"
	"github.com/jbweber/vagrant-ninja/internal/workspace"
)

// Deps are the collaborators of a Service. Nil fields get the production
// implementation.
type Deps struct {
	Workspace Workspace
	Runner    ProcessRunner
	Executor  Executor
	Opener    opener.Opener
	Records   RecordStore
}

// Service runs builds and quick commands, one at a time.
type Service struct {
	settings  *config.Settings
	panel     *logpanel.Panel
	logger    zerolog.Logger
	workspace Workspace
	runner    ProcessRunner
	exec      Executor
	opener    opener.Opener
	records   RecordStore

	mu       sync.Mutex
	current  *v1alpha1.BuildRun
	starting bool
}

// NewService creates a Service writing to panel.
func NewService(settings *config.Settings, panel *logpanel.Panel, logger zerolog.Logger, deps Deps) *Service {
	if panel == nil {
		panel = logpanel.New()
	}
	logger = logger.With().Str("component", "build").Logger()

	s := &Service{
		settings:  settings,
		panel:     panel,
		logger:    logger,
		workspace: deps.Workspace,
		runner:    deps.Runner,
		exec:      deps.Executor,
		opener:    deps.Opener,
		records:   deps.Records,
	}
	if s.workspace == nil {
		s.workspace = workspace.NewManager(settings.BaseDir)
	}
	if s.runner == nil {
		s.runner = runner.New(panel, logger)
	}
	if s.exec == nil {
		s.exec = runner.Exec{}
	}
	if s.opener == nil {
		s.opener = opener.System{}
	}
	if s.records == nil {
		s.records = fileRecords{}
	}
	return s
}

// Panel returns the log panel of the service.
func (s *Service) Panel() *logpanel.Panel {
	return s.panel
}

// AttachTo registers the log panel with host.
func (s *Service) AttachTo(host PanelHost) {
	host.RegisterPanel(s.panel)
}

// Phase returns the phase of the process runner, or Starting while a run
// is being prepared.
func (s *Service) Phase() v1alpha1.RunPhase {
	s.mu.Lock()
	starting := s.starting
	s.mu.Unlock()

	phase := s.runner.Phase()
	if starting && status.IsIdle(phase) {
		return v1alpha1.RunPhaseStarting
	}
	return phase
}

// reserve admits a single run into the service. Every successful reserve
// must be paired with release once Start has returned.
func (s *Service) reserve() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.starting || !status.IsIdle(s.runner.Phase()) {
		return runner.ErrBusy
	}
	s.starting = true
	return nil
}

func (s *Service) release() {
	s.mu.Lock()
	s.starting = false
	s.mu.Unlock()
}

// Stop asks the running process to terminate. It reports whether a
// signal was sent.
func (s *Service) Stop() bool {
	return s.runner.RequestStop()
}

// Kill kills the running process. It reports whether a signal was sent.
func (s *Service) Kill() bool {
	return s.runner.RequestKill()
}

// Wait blocks until the current run has completed, including its
// completion steps.
func (s *Service) Wait(ctx context.Context) error {
	return s.runner.Wait(ctx)
}

// LastRun returns a copy of the most recent run, or nil.
func (s *Service) LastRun() *v1alpha1.BuildRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.DeepCopy()
}

func (s *Service) setCurrent(run *v1alpha1.BuildRun) {
	s.mu.Lock()
	s.current = run
	s.mu.Unlock()
}

// markRunning publishes a started run and moves it to Running unless it
// already completed.
func (s *Service) markRunning(run *v1alpha1.BuildRun) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = run
	if run.Status.Phase == v1alpha1.RunPhaseStarting {
		_ = status.TransitionToRunning(&run.Status)
	}
}

// toolCommand builds the runner command for the provisioning tool.
func (s *Service) toolCommand(dir string, lowPriority bool, args ...string) runner.Command {
	argv := s.settings.ToolCommand(lowPriority, args...)
	return runner.Command{Name: argv[0], Args: argv[1:], Dir: dir}
}

// applyResult copies the outcome of a process into the run status.
func applyResult(st *v1alpha1.RunStatus, res runner.Result) {
	st.Phase = res.Phase
	if !res.StartedAt.IsZero() {
		st.StartTime = v1alpha1.Time{Time: res.StartedAt}
	}
	st.CompletionTime = v1alpha1.Time{Time: res.FinishedAt}
	if st.CompletionTime.IsZero() {
		st.CompletionTime = v1alpha1.Now()
	}

	st.ExitCode = nil
	if res.ExitCode >= 0 {
		code := res.ExitCode
		st.ExitCode = &code
	}

	switch {
	case res.Phase == v1alpha1.RunPhaseCompleted:
		st.Message = "process exited successfully"
	case res.Err != nil:
		st.Message = res.Err.Error()
	default:
		st.Message = fmt.Sprintf("process ended in phase %s", res.Phase)
	}

	if res.StartedAt.IsZero() {
		status.SetCondition(st, v1alpha1.ConditionProcessStarted, v1alpha1.ConditionFalse, "LaunchFailed", st.Message)
	} else {
		status.SetCondition(st, v1alpha1.ConditionProcessStarted, v1alpha1.ConditionTrue, "Launched", "process launched")
	}
}

// reportResult writes the outcome of a process to the panel.
func (s *Service) reportResult(verb string, res runner.Result) {
	switch res.Phase {
	case v1alpha1.RunPhaseCompleted:
		s.panel.Infof("OK: Vagrant %s finished", verb)
	case v1alpha1.RunPhaseKilled:
		s.panel.Errorf("Vagrant %s was stopped", verb)
	default:
		if res.StartedAt.IsZero() {
			s.panel.Errorf("FAIL: Vagrant Fail: %v", res.Err)
		} else {
			s.panel.Errorf("FAIL: Vagrant %s exited with code %d", verb, res.ExitCode)
		}
	}
}

// relayOutput appends captured command output to the panel line by line.
func (s *Service) relayOutput(out []byte) {
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		s.panel.Line(runner.Stdout, strings.TrimRight(sc.Text(), "\r"))
	}
}
