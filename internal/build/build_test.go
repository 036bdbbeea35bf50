package build

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/jbweber/vagrant-ninja/api/v1alpha1"
	"github.com/jbweber/vagrant-ninja/internal/artifacts"
	"github.com/jbweber/vagrant-ninja/internal/config"
	"github.com/jbweber/vagrant-ninja/internal/logpanel"
	"github.com/jbweber/vagrant-ninja/internal/runner"
	"github.com/jbweber/vagrant-ninja/internal/status"
	"github.com/jbweber/vagrant-ninja/internal/workspace"
)

// testConfig creates a valid config with a fixed git identity
func testConfig() *v1alpha1.ProvisioningConfig {
	cfg := v1alpha1.NewProvisioningConfig("ninja")
	cfg.Spec.Guest.GitUser = "juan"
	cfg.Spec.Guest.GitEmail = "juan@example.com"
	return cfg
}

// testSettings returns default settings rooted at testBase
func testSettings() *config.Settings {
	s := config.DefaultSettings()
	s.BaseDir = testBase
	return s
}

// testService bundles a Service with its mocks
type testService struct {
	svc       *Service
	panel     *logpanel.Panel
	workspace *mockWorkspace
	runner    *mockRunner
	exec      *mockExecutor
	opener    *mockOpener
	records   *mockRecords
}

func newTestService(settings *config.Settings) *testService {
	ts := &testService{
		panel:     logpanel.New(),
		workspace: newMockWorkspace(),
		runner:    newMockRunner(),
		exec:      newMockExecutor(),
		opener:    &mockOpener{},
		records:   &mockRecords{},
	}
	ts.svc = NewService(settings, ts.panel, zerolog.Nop(), Deps{
		Workspace: ts.workspace,
		Runner:    ts.runner,
		Executor:  ts.exec,
		Opener:    ts.opener,
		Records:   ts.records,
	})
	return ts
}

func wrapped(args ...string) []string {
	return append([]string{"chrt", "--verbose", "-i", "0", "vagrant"}, args...)
}

// TestBuild_Success tests the happy path
func TestBuild_Success(t *testing.T) {
	ts := newTestService(testSettings())
	dir := filepath.Join(testBase, "ninja")
	ts.exec.outputs[strings.Join(wrapped("init"), " ")] = "A `Vagrantfile` has been placed in this directory.\n"

	run, err := ts.svc.Build(context.Background(), testConfig(), Options{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if len(ts.workspace.createCalls) != 1 || ts.workspace.createCalls[0] != "ninja" {
		t.Errorf("CreateTargetDirectory calls = %v", ts.workspace.createCalls)
	}
	if len(ts.workspace.removeCalls) != 1 || ts.workspace.removeCalls[0] != dir {
		t.Errorf("RemoveDescriptor calls = %v", ts.workspace.removeCalls)
	}

	// vagrant init runs in the target directory under the priority wrapper
	if len(ts.exec.calls) != 1 {
		t.Fatalf("Expected 1 exec call, got %d", len(ts.exec.calls))
	}
	if got := ts.exec.calls[0].Argv(); !reflect.DeepEqual(got, wrapped("init")) {
		t.Errorf("init argv = %v", got)
	}
	if ts.exec.calls[0].Dir != dir {
		t.Errorf("init dir = %s, want %s", ts.exec.calls[0].Dir, dir)
	}

	if len(ts.workspace.writeArtifactsCalls) != 1 {
		t.Fatalf("Expected 1 WriteArtifacts call, got %d", len(ts.workspace.writeArtifactsCalls))
	}
	set := ts.workspace.writeArtifactsCalls[0]
	if !strings.Contains(set.Vagrantfile, `config.vm.hostname = "ninja"`) {
		t.Errorf("Vagrantfile does not mention the VM name:\n%s", set.Vagrantfile)
	}
	if set.BootstrapScript == "" {
		t.Error("Expected a bootstrap script")
	}
	if len(ts.workspace.writeSeedISOCalls) != 0 {
		t.Error("Seed ISO written without being requested")
	}

	// vagrant up
	if len(ts.runner.startCalls) != 1 {
		t.Fatalf("Expected 1 Start call, got %d", len(ts.runner.startCalls))
	}
	up := ts.runner.startCalls[0]
	if !reflect.DeepEqual(up.Argv(), wrapped("up")) || up.Dir != dir {
		t.Errorf("up command = %v in %s", up.Argv(), up.Dir)
	}

	// Completion steps
	if len(ts.workspace.saveLogCalls) != 1 {
		t.Fatalf("Expected 1 SaveLog call, got %d", len(ts.workspace.saveLogCalls))
	}
	if !strings.Contains(ts.workspace.saveLogCalls[0], "INFO: Dir: "+dir) {
		t.Errorf("Saved log misses the directory line:\n%s", ts.workspace.saveLogCalls[0])
	}
	if len(ts.opener.calls) != 1 || ts.opener.calls[0] != dir {
		t.Errorf("Open calls = %v", ts.opener.calls)
	}

	if len(ts.records.storeCalls) != 1 {
		t.Fatalf("Expected 1 Store call, got %d", len(ts.records.storeCalls))
	}
	rec := ts.records.storeCalls[0]
	if rec.Config == nil || rec.Config.Name != "ninja" {
		t.Errorf("Record config = %+v", rec.Config)
	}
	if rec.Run.Status.Phase != v1alpha1.RunPhaseCompleted {
		t.Errorf("Record phase = %s", rec.Run.Status.Phase)
	}

	if run == nil {
		t.Fatal("Expected a run")
	}
	if run.Status.Phase != v1alpha1.RunPhaseCompleted {
		t.Errorf("Run phase = %s", run.Status.Phase)
	}
	if run.Status.ExitCode == nil || *run.Status.ExitCode != 0 {
		t.Errorf("Run exit code = %v", run.Status.ExitCode)
	}
	if run.Spec.Verb != "up" || run.Spec.Directory != dir {
		t.Errorf("Run spec = %+v", run.Spec)
	}
	for _, cond := range []string{v1alpha1.ConditionDirectoryReady, v1alpha1.ConditionArtifactsWritten, v1alpha1.ConditionProcessStarted} {
		if !status.IsConditionTrue(&run.Status, cond) {
			t.Errorf("Condition %s is not true", cond)
		}
	}

	for _, want := range []string{
		"INFO: OK: Running Vagrant Init",
		"A `Vagrantfile` has been placed in this directory.",
		"INFO: OK: Completed Vagrant Init",
		"INFO: Writing Vagrantfile",
		"INFO: bootstrap.sh is 775",
		"INFO: OK: Running Vagrant Up!",
		"INFO: OK: Vagrant up finished",
		"INFO: OK: Writing .LOG",
		"INFO: Opening Target Folder",
	} {
		if !panelContains(ts.panel, want) {
			t.Errorf("Panel misses %q", want)
		}
	}
}

// TestBuild_DoesNotModifyInput tests that defaults are applied to a copy
func TestBuild_DoesNotModifyInput(t *testing.T) {
	ts := newTestService(testSettings())
	cfg := v1alpha1.NewProvisioningConfig("ninja")
	cfg.Spec.Box.Architecture = "x86_64"

	if _, err := ts.svc.Build(context.Background(), cfg, Options{}); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if cfg.Spec.Guest.GitUser != "" || cfg.Spec.Guest.GitEmail != "" {
		t.Errorf("Input guest was modified: %+v", cfg.Spec.Guest)
	}
	if cfg.Spec.Box.Architecture != "x86_64" {
		t.Errorf("Input architecture was modified: %s", cfg.Spec.Box.Architecture)
	}

	stored := ts.records.storeCalls[0].Config
	if stored.Spec.Box.Architecture != v1alpha1.ArchAMD64 {
		t.Errorf("Stored architecture = %s", stored.Spec.Box.Architecture)
	}
	if stored.Spec.Guest.GitUser == "" {
		t.Error("Stored config has no git user")
	}
}

// TestBuild_DirectoryExists tests that an existing directory is reused
func TestBuild_DirectoryExists(t *testing.T) {
	ts := newTestService(testSettings())
	ts.workspace.createFunc = func(name string) (string, error) {
		dir := filepath.Join(testBase, name)
		return dir, fmt.Errorf("%w: %s", workspace.ErrDirectoryExists, dir)
	}
	ts.workspace.removeFunc = func(dir string) (bool, error) {
		return true, nil
	}

	run, err := ts.svc.Build(context.Background(), testConfig(), Options{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if !panelContains(ts.panel, "ERROR: Target Folder Exist") {
		t.Error("Panel misses the existing folder error")
	}
	if len(ts.runner.startCalls) != 1 {
		t.Error("Build should continue into an existing directory")
	}

	cond := status.GetCondition(&run.Status, v1alpha1.ConditionDirectoryReady)
	if cond == nil || cond.Status != v1alpha1.ConditionTrue || cond.Reason != "AlreadyExists" {
		t.Errorf("DirectoryReady = %+v", cond)
	}
}

// TestBuild_DirectoryCreateFailure tests that other directory errors stop the build
func TestBuild_DirectoryCreateFailure(t *testing.T) {
	ts := newTestService(testSettings())
	ts.workspace.createFunc = func(name string) (string, error) {
		return filepath.Join(testBase, name), errMock
	}

	run, err := ts.svc.Build(context.Background(), testConfig(), Options{})
	if !errors.Is(err, errMock) {
		t.Fatalf("Expected errMock, got %v", err)
	}

	if len(ts.exec.calls) != 0 || len(ts.workspace.writeArtifactsCalls) != 0 || len(ts.runner.startCalls) != 0 {
		t.Error("No step should run after a failed directory creation")
	}
	if run == nil || run.Status.Phase != v1alpha1.RunPhaseFailed {
		t.Fatalf("Expected failed run, got %+v", run)
	}
	if !status.IsConditionFalse(&run.Status, v1alpha1.ConditionDirectoryReady) {
		t.Error("DirectoryReady should be false")
	}
	if len(ts.records.storeCalls) != 1 {
		t.Errorf("Expected the failed run to be recorded, got %d Store calls", len(ts.records.storeCalls))
	}
}

// TestBuild_ArtifactWriteFailure tests that no process starts without artifacts
func TestBuild_ArtifactWriteFailure(t *testing.T) {
	ts := newTestService(testSettings())
	ts.workspace.writeArtifactsFunc = func(dir string, _ artifacts.Set) error {
		return &workspace.ArtifactWriteError{Path: filepath.Join(dir, "Vagrantfile"), Err: errMock}
	}

	run, err := ts.svc.Build(context.Background(), testConfig(), Options{})

	var target *workspace.ArtifactWriteError
	if !errors.As(err, &target) {
		t.Fatalf("Expected *ArtifactWriteError, got %v", err)
	}
	if len(ts.runner.startCalls) != 0 {
		t.Error("Process started after artifact failure")
	}
	if run.Status.Phase != v1alpha1.RunPhaseFailed {
		t.Errorf("Run phase = %s", run.Status.Phase)
	}
	if !status.IsConditionFalse(&run.Status, v1alpha1.ConditionArtifactsWritten) {
		t.Error("ArtifactsWritten should be false")
	}
	if len(ts.workspace.saveLogCalls) != 0 || len(ts.opener.calls) != 0 {
		t.Error("Completion steps ran without a process")
	}
	if !panelContains(ts.panel, "ERROR: FAIL: ") {
		t.Error("Panel misses the failure")
	}
}

// TestBuild_InitFailureContinues tests that a failing vagrant init is only reported
func TestBuild_InitFailureContinues(t *testing.T) {
	ts := newTestService(testSettings())
	key := strings.Join(wrapped("init"), " ")
	ts.exec.outputs[key] = "`Vagrantfile` already exists in this directory.\n"
	ts.exec.errs[key] = errMock

	if _, err := ts.svc.Build(context.Background(), testConfig(), Options{}); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if !panelContains(ts.panel, "`Vagrantfile` already exists in this directory.") {
		t.Error("Panel misses the init output")
	}
	if !panelContains(ts.panel, "ERROR: Vagrant Init: mock failure") {
		t.Error("Panel misses the init error")
	}
	if panelContains(ts.panel, "OK: Completed Vagrant Init") {
		t.Error("Init reported as completed")
	}
	if len(ts.workspace.writeArtifactsCalls) != 1 || len(ts.runner.startCalls) != 1 {
		t.Error("Build should continue after a failed init")
	}
}

// TestBuild_Busy tests that a second build is rejected while one runs
func TestBuild_Busy(t *testing.T) {
	ts := newTestService(testSettings())
	ts.runner.phase = v1alpha1.RunPhaseRunning
	ts.panel.Info("previous output")

	run, err := ts.svc.Build(context.Background(), testConfig(), Options{})
	if !errors.Is(err, runner.ErrBusy) {
		t.Fatalf("Expected ErrBusy, got %v", err)
	}
	if run != nil {
		t.Error("Expected no run")
	}
	if len(ts.workspace.createCalls) != 0 {
		t.Error("Workspace touched while busy")
	}
	if !panelContains(ts.panel, "previous output") {
		t.Error("Panel cleared while busy")
	}
}

// TestBuild_BusyWhilePreparing tests that runs requested while a build is
// still in vagrant init are rejected before any side effect
func TestBuild_BusyWhilePreparing(t *testing.T) {
	ts := newTestService(testSettings())
	projectDir := filepath.Join(testBase, "other")

	var (
		hookCalls int
		quickErr  error
		buildErr  error
		quickRun  *v1alpha1.BuildRun
		buildRun  *v1alpha1.BuildRun
		phase     v1alpha1.RunPhase
		lastRun   *v1alpha1.BuildRun
	)
	ts.exec.onCall = func(c runner.Command) {
		hookCalls++
		if hookCalls > 1 {
			return
		}
		phase = ts.svc.Phase()
		lastRun = ts.svc.LastRun()
		quickRun, quickErr = ts.svc.QuickCommand(context.Background(), "status", mockLocator{dir: projectDir})
		buildRun, buildErr = ts.svc.Build(context.Background(), testConfig(), Options{})
	}

	run, err := ts.svc.Build(context.Background(), testConfig(), Options{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if hookCalls != 1 {
		t.Fatalf("vagrant init ran %d times, want 1", hookCalls)
	}
	if phase != v1alpha1.RunPhaseStarting {
		t.Errorf("Service phase during init = %s, want Starting", phase)
	}
	if lastRun != nil {
		t.Errorf("Run published before launch: %+v", lastRun.Status)
	}

	tests := []struct {
		name string
		run  *v1alpha1.BuildRun
		err  error
	}{
		{"quick command", quickRun, quickErr},
		{"build", buildRun, buildErr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, runner.ErrBusy) {
				t.Errorf("Expected ErrBusy, got %v", tt.err)
			}
			if tt.run != nil {
				t.Error("Expected no run")
			}
		})
	}

	if !panelContains(ts.panel, "OK: Running Vagrant Init") {
		t.Error("Panel cleared by a rejected run")
	}
	if len(ts.workspace.createCalls) != 1 {
		t.Errorf("createCalls = %v, want one", ts.workspace.createCalls)
	}
	if len(ts.workspace.hasDescriptorCalls) != 0 {
		t.Errorf("hasDescriptorCalls = %v, want none", ts.workspace.hasDescriptorCalls)
	}
	if len(ts.workspace.writeArtifactsCalls) != 1 {
		t.Errorf("writeArtifactsCalls = %d, want 1", len(ts.workspace.writeArtifactsCalls))
	}
	if len(ts.runner.startCalls) != 1 {
		t.Fatalf("startCalls = %d, want 1", len(ts.runner.startCalls))
	}
	if got := ts.runner.startCalls[0].Argv(); !reflect.DeepEqual(got, wrapped("up")) {
		t.Errorf("Started %v, want %v", got, wrapped("up"))
	}

	if run.Spec.Verb != "up" || run.Status.Phase != v1alpha1.RunPhaseCompleted {
		t.Errorf("run = %s/%s, want up/Completed", run.Spec.Verb, run.Status.Phase)
	}
	last := ts.svc.LastRun()
	if last.Spec.Verb != "up" || last.Status.Phase != v1alpha1.RunPhaseCompleted {
		t.Errorf("LastRun = %s/%s, want up/Completed", last.Spec.Verb, last.Status.Phase)
	}
	if ts.svc.Phase() != v1alpha1.RunPhaseIdle {
		t.Errorf("Service phase = %s, want Idle", ts.svc.Phase())
	}

	// Admission is released once the first build has returned
	if _, err := ts.svc.QuickCommand(context.Background(), "status", mockLocator{dir: projectDir}); err != nil {
		t.Errorf("QuickCommand() after build error = %v", err)
	}
}

// TestBuild_InvalidConfig tests validation before any side effect
func TestBuild_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*v1alpha1.ProvisioningConfig)
	}{
		{"empty name", func(c *v1alpha1.ProvisioningConfig) { c.Name = "" }},
		{"bad name", func(c *v1alpha1.ProvisioningConfig) { c.Name = "Ninja VM" }},
		{"unknown codename", func(c *v1alpha1.ProvisioningConfig) { c.Spec.Box.Codename = "warty" }},
		{"port out of range", func(c *v1alpha1.ProvisioningConfig) { c.Spec.Network.ForwardedPorts = []int{70000} }},
		{"gui cap", func(c *v1alpha1.ProvisioningConfig) { c.Spec.GUI.CPUExecutionCap = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestService(testSettings())
			cfg := testConfig()
			tt.modify(cfg)

			_, err := ts.svc.Build(context.Background(), cfg, Options{})
			if err == nil || !strings.Contains(err.Error(), "invalid configuration") {
				t.Fatalf("Expected invalid configuration error, got %v", err)
			}
			if len(ts.workspace.createCalls) != 0 || len(ts.runner.startCalls) != 0 {
				t.Error("Side effects before validation")
			}
			if len(ts.panel.Entries()) != 0 {
				t.Error("Panel written for an invalid config")
			}
		})
	}
}

// TestBuild_LaunchFailure tests a provisioning tool that cannot be started
func TestBuild_LaunchFailure(t *testing.T) {
	ts := newTestService(testSettings())
	ts.runner.launchErr = errors.New("executable file not found in $PATH")

	run, err := ts.svc.Build(context.Background(), testConfig(), Options{})

	var launchErr *runner.LaunchError
	if !errors.As(err, &launchErr) {
		t.Fatalf("Expected *LaunchError, got %v", err)
	}
	if run.Status.Phase != v1alpha1.RunPhaseFailed {
		t.Errorf("Run phase = %s", run.Status.Phase)
	}
	if run.Status.ExitCode != nil {
		t.Errorf("Expected no exit code, got %d", *run.Status.ExitCode)
	}
	cond := status.GetCondition(&run.Status, v1alpha1.ConditionProcessStarted)
	if cond == nil || cond.Status != v1alpha1.ConditionFalse || cond.Reason != "LaunchFailed" {
		t.Errorf("ProcessStarted = %+v", cond)
	}
	if !panelContains(ts.panel, "ERROR: FAIL: Vagrant Fail: ") {
		t.Error("Panel misses the launch failure")
	}
	if len(ts.records.storeCalls) != 1 || ts.records.storeCalls[0].Run.Status.Phase != v1alpha1.RunPhaseFailed {
		t.Error("Failed launch not recorded")
	}
}

// TestBuild_ProcessOutcome tests how the process result is reported
func TestBuild_ProcessOutcome(t *testing.T) {
	tests := []struct {
		name      string
		result    runner.Result
		wantPhase v1alpha1.RunPhase
		wantCode  *int
		wantPanel string
	}{
		{
			name:      "non-zero exit",
			result:    runner.Result{Phase: v1alpha1.RunPhaseFailed, ExitCode: 1, Err: errors.New("exit status 1")},
			wantPhase: v1alpha1.RunPhaseFailed,
			wantCode:  intPtr(1),
			wantPanel: "ERROR: FAIL: Vagrant up exited with code 1",
		},
		{
			name:      "stopped",
			result:    runner.Result{Phase: v1alpha1.RunPhaseKilled, ExitCode: -1},
			wantPhase: v1alpha1.RunPhaseKilled,
			wantPanel: "ERROR: Vagrant up was stopped",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestService(testSettings())
			ts.runner.result = tt.result

			run, err := ts.svc.Build(context.Background(), testConfig(), Options{})
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}

			if run.Status.Phase != tt.wantPhase {
				t.Errorf("Phase = %s, want %s", run.Status.Phase, tt.wantPhase)
			}
			if !reflect.DeepEqual(run.Status.ExitCode, tt.wantCode) {
				t.Errorf("ExitCode = %v, want %v", run.Status.ExitCode, tt.wantCode)
			}
			if !status.IsConditionTrue(&run.Status, v1alpha1.ConditionProcessStarted) {
				t.Error("ProcessStarted should be true")
			}
			if !panelContains(ts.panel, tt.wantPanel) {
				t.Errorf("Panel misses %q", tt.wantPanel)
			}
			if len(ts.workspace.saveLogCalls) != 1 {
				t.Error("Log should be saved whatever the outcome")
			}
		})
	}
}

// TestBuild_RunOptions tests the per-config run options
func TestBuild_RunOptions(t *testing.T) {
	ts := newTestService(testSettings())
	cfg := testConfig()
	cfg.Spec.Run = v1alpha1.RunOptions{}

	if _, err := ts.svc.Build(context.Background(), cfg, Options{}); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if got := ts.runner.startCalls[0].Argv(); !reflect.DeepEqual(got, []string{"vagrant", "up"}) {
		t.Errorf("up argv = %v", got)
	}
	if got := ts.exec.calls[0].Argv(); !reflect.DeepEqual(got, []string{"vagrant", "init"}) {
		t.Errorf("init argv = %v", got)
	}
	if len(ts.workspace.saveLogCalls) != 0 {
		t.Error("Log saved with SaveLog off")
	}
	if len(ts.opener.calls) != 0 {
		t.Error("Directory opened with OpenDirectory off")
	}
	if len(ts.records.storeCalls) != 1 {
		t.Error("Run record is always stored")
	}
}

// TestBuild_OpenFailureIgnored tests that a missing file manager is not an error
func TestBuild_OpenFailureIgnored(t *testing.T) {
	ts := newTestService(testSettings())
	ts.opener.err = errMock

	run, err := ts.svc.Build(context.Background(), testConfig(), Options{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if run.Status.Phase != v1alpha1.RunPhaseCompleted {
		t.Errorf("Run phase = %s", run.Status.Phase)
	}
	if panelContains(ts.panel, "mock failure") {
		t.Error("Open failure should not reach the panel")
	}
}

// TestBuild_SeedISO tests the optional seed image
func TestBuild_SeedISO(t *testing.T) {
	t.Run("written", func(t *testing.T) {
		ts := newTestService(testSettings())

		if _, err := ts.svc.Build(context.Background(), testConfig(), Options{SeedISO: true}); err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		if len(ts.workspace.writeSeedISOCalls) != 1 || len(ts.workspace.writeSeedISOCalls[0]) == 0 {
			t.Fatal("Expected one non-empty seed ISO")
		}
	})

	t.Run("failure is not fatal", func(t *testing.T) {
		ts := newTestService(testSettings())
		ts.workspace.writeSeedISOFunc = func(dir string, data []byte) (string, error) {
			return "", errMock
		}

		if _, err := ts.svc.Build(context.Background(), testConfig(), Options{SeedISO: true}); err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		if !panelContains(ts.panel, "ERROR: Seed ISO: mock failure") {
			t.Error("Panel misses the seed ISO error")
		}
		if len(ts.runner.startCalls) != 1 {
			t.Error("Build should continue after a seed ISO failure")
		}
	})
}

// TestBuild_Running tests the state while the process is still alive
func TestBuild_Running(t *testing.T) {
	ts := newTestService(testSettings())
	ts.runner.manual = true

	run, err := ts.svc.Build(context.Background(), testConfig(), Options{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if run.Status.Phase != v1alpha1.RunPhaseRunning {
		t.Errorf("Phase after Build = %s, want Running", run.Status.Phase)
	}
	if len(ts.records.storeCalls) != 0 {
		t.Error("Record stored before completion")
	}

	if _, err := ts.svc.Build(context.Background(), testConfig(), Options{}); !errors.Is(err, runner.ErrBusy) {
		t.Errorf("Expected ErrBusy for a concurrent build, got %v", err)
	}

	if !ts.svc.Stop() || ts.runner.stopCalls != 1 {
		t.Error("Stop should reach the runner")
	}
	if !ts.svc.Kill() || ts.runner.killCalls != 1 {
		t.Error("Kill should reach the runner")
	}

	ts.runner.complete(runner.Result{Phase: v1alpha1.RunPhaseKilled, ExitCode: -1})

	last := ts.svc.LastRun()
	if last.Status.Phase != v1alpha1.RunPhaseKilled {
		t.Errorf("Phase after completion = %s", last.Status.Phase)
	}
	if ts.svc.Phase() != v1alpha1.RunPhaseIdle {
		t.Errorf("Service phase = %s, want Idle", ts.svc.Phase())
	}
	if len(ts.records.storeCalls) != 1 {
		t.Error("Record not stored at completion")
	}

	// The snapshot returned earlier is not affected by completion
	if run.Status.Phase != v1alpha1.RunPhaseRunning {
		t.Errorf("Returned snapshot changed to %s", run.Status.Phase)
	}
}

// TestService_AttachTo tests registering the panel with a host
func TestService_AttachTo(t *testing.T) {
	ts := newTestService(testSettings())
	host := &mockPanelHost{}

	ts.svc.AttachTo(host)

	if len(host.panels) != 1 || host.panels[0] != ts.svc.Panel() {
		t.Errorf("Registered panels = %v", host.panels)
	}
}

func intPtr(i int) *int {
	return &i
}
