package build

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jbweber/vagrant-ninja/api/v1alpha1"
	"github.com/jbweber/vagrant-ninja/internal/artifacts"
	"github.com/jbweber/vagrant-ninja/internal/logpanel"
	"github.com/jbweber/vagrant-ninja/internal/metadata"
	"github.com/jbweber/vagrant-ninja/internal/runner"
)

const testBase = "/home/juan/vagrant"

// mockWorkspace is a mock implementation of the Workspace interface for testing.
type mockWorkspace struct {
	mu sync.Mutex

	// Configurable behavior
	createFunc         func(name string) (string, error)
	removeFunc         func(dir string) (bool, error)
	hasDescriptor      bool
	writeArtifactsFunc func(dir string, set artifacts.Set) error
	writeSeedISOFunc   func(dir string, data []byte) (string, error)
	saveLogFunc        func(dir, text string) (string, error)

	// Call tracking
	createCalls         []string
	removeCalls         []string
	hasDescriptorCalls  []string
	writeArtifactsCalls []artifacts.Set
	writeSeedISOCalls   [][]byte
	saveLogCalls        []string
}

func newMockWorkspace() *mockWorkspace {
	return &mockWorkspace{
		createFunc: func(name string) (string, error) {
			return filepath.Join(testBase, name), nil
		},
		removeFunc: func(dir string) (bool, error) {
			return false, nil
		},
		hasDescriptor: true,
		writeArtifactsFunc: func(dir string, set artifacts.Set) error {
			return nil
		},
		writeSeedISOFunc: func(dir string, data []byte) (string, error) {
			return filepath.Join(dir, "provision-seed.iso"), nil
		},
		saveLogFunc: func(dir, text string) (string, error) {
			return filepath.Join(dir, "vagrant_ninja.log"), nil
		},
	}
}

func (m *mockWorkspace) CreateTargetDirectory(name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls = append(m.createCalls, name)
	return m.createFunc(name)
}

func (m *mockWorkspace) RemoveDescriptor(dir string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeCalls = append(m.removeCalls, dir)
	return m.removeFunc(dir)
}

func (m *mockWorkspace) HasDescriptor(dir string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hasDescriptorCalls = append(m.hasDescriptorCalls, dir)
	return m.hasDescriptor
}

func (m *mockWorkspace) WriteArtifacts(dir string, set artifacts.Set) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeArtifactsCalls = append(m.writeArtifactsCalls, set)
	return m.writeArtifactsFunc(dir, set)
}

func (m *mockWorkspace) WriteSeedISO(dir string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeSeedISOCalls = append(m.writeSeedISOCalls, data)
	return m.writeSeedISOFunc(dir, data)
}

func (m *mockWorkspace) SaveLog(dir, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveLogCalls = append(m.saveLogCalls, text)
	return m.saveLogFunc(dir, text)
}

// mockRunner is a mock implementation of the ProcessRunner interface.
// By default a started process completes immediately with the configured
// result; with manual set, the test ends it through complete.
type mockRunner struct {
	mu sync.Mutex

	// Configurable behavior
	phase     v1alpha1.RunPhase
	result    runner.Result
	launchErr error
	manual    bool

	// Call tracking
	startCalls []runner.Command
	stopCalls  int
	killCalls  int
	pending    runner.CompletionFunc
}

func newMockRunner() *mockRunner {
	return &mockRunner{
		phase: v1alpha1.RunPhaseIdle,
		result: runner.Result{
			Phase:    v1alpha1.RunPhaseCompleted,
			ExitCode: 0,
		},
	}
}

func (m *mockRunner) Start(ctx context.Context, c runner.Command, onComplete runner.CompletionFunc) error {
	m.mu.Lock()
	if m.phase != v1alpha1.RunPhaseIdle {
		m.mu.Unlock()
		return runner.ErrBusy
	}
	m.startCalls = append(m.startCalls, c)

	if m.launchErr != nil {
		launchErr := &runner.LaunchError{Command: c, Err: m.launchErr}
		res := runner.Result{Command: c, Phase: v1alpha1.RunPhaseFailed, ExitCode: -1, Err: launchErr, FinishedAt: time.Now()}
		m.mu.Unlock()
		onComplete(res)
		return launchErr
	}

	if m.manual {
		m.phase = v1alpha1.RunPhaseRunning
		m.pending = onComplete
		m.mu.Unlock()
		return nil
	}

	res := m.result
	res.Command = c
	res.StartedAt = time.Now()
	res.FinishedAt = time.Now()
	m.mu.Unlock()
	onComplete(res)
	return nil
}

// complete ends a manual run.
func (m *mockRunner) complete(res runner.Result) {
	m.mu.Lock()
	fn := m.pending
	m.pending = nil
	m.mu.Unlock()

	if res.StartedAt.IsZero() {
		res.StartedAt = time.Now()
	}
	res.FinishedAt = time.Now()
	fn(res)

	m.mu.Lock()
	m.phase = v1alpha1.RunPhaseIdle
	m.mu.Unlock()
}

func (m *mockRunner) RequestStop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopCalls++
	return m.phase == v1alpha1.RunPhaseRunning
}

func (m *mockRunner) RequestKill() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.killCalls++
	return m.phase == v1alpha1.RunPhaseRunning
}

func (m *mockRunner) Phase() v1alpha1.RunPhase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

func (m *mockRunner) Wait(ctx context.Context) error {
	return nil
}

// mockExecutor is a mock implementation of the Executor interface, keyed
// by the space separated command line.
type mockExecutor struct {
	mu sync.Mutex

	outputs map[string]string
	errs    map[string]error

	// onCall runs after the call is recorded, outside the lock
	onCall func(c runner.Command)

	calls []runner.Command
}

func newMockExecutor() *mockExecutor {
	return &mockExecutor{
		outputs: map[string]string{},
		errs:    map[string]error{},
	}
}

func (m *mockExecutor) CombinedOutput(ctx context.Context, c runner.Command) ([]byte, error) {
	m.mu.Lock()
	m.calls = append(m.calls, c)
	out, err, hook := m.outputs[c.String()], m.errs[c.String()], m.onCall
	m.mu.Unlock()

	if hook != nil {
		hook(c)
	}
	return []byte(out), err
}

// mockOpener records opened paths.
type mockOpener struct {
	mu    sync.Mutex
	err   error
	calls []string
}

func (m *mockOpener) Open(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, path)
	return m.err
}

// mockRecords is a mock implementation of the RecordStore interface.
type mockRecords struct {
	mu        sync.Mutex
	storeErr  error
	updateErr error

	storeCalls  []*metadata.Record
	updateCalls []*v1alpha1.BuildRun
}

func (m *mockRecords) Store(dir string, rec *metadata.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storeCalls = append(m.storeCalls, rec)
	return m.storeErr
}

func (m *mockRecords) Update(dir string, run *v1alpha1.BuildRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls = append(m.updateCalls, run)
	return m.updateErr
}

// mockLocator returns a fixed directory or error.
type mockLocator struct {
	dir string
	err error
}

func (m mockLocator) CurrentProjectDirectory() (string, error) {
	return m.dir, m.err
}

// mockPanelHost records registered panels.
type mockPanelHost struct {
	panels []*logpanel.Panel
}

func (m *mockPanelHost) RegisterPanel(panel *logpanel.Panel) {
	m.panels = append(m.panels, panel)
}

var errMock = errors.New("mock failure")

// panelContains reports whether the panel dump has a line containing s.
func panelContains(p *logpanel.Panel, s string) bool {
	return strings.Contains(p.PlainText(), s)
}
