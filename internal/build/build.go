package build

import (
	"context"
	"errors"
	"fmt"

	"github.com/jbweber/vagrant-ninja/api/v1alpha1"
	"github.com/jbweber/vagrant-ninja/internal/artifacts"
	"github.com/jbweber/vagrant-ninja/internal/loader"
	"github.com/jbweber/vagrant-ninja/internal/metadata"
	"github.com/jbweber/vagrant-ninja/internal/runner"
	"github.com/jbweber/vagrant-ninja/internal/status"
	"github.com/jbweber/vagrant-ninja/internal/workspace"
)

// Options tune a single build.
type Options struct {
	// SeedISO also writes provision-seed.iso into the target directory.
	SeedISO bool
}

// Build renders cfg into <base>/<name> and starts "vagrant up" there.
//
// The workflow is:
//  1. Reject unless no other run is active or being prepared
//  2. Validate and snapshot the config
//  3. Reset the log panel and stamp the time
//  4. Create the target directory (an existing one is reported and reused)
//  5. Remove a stale Vagrantfile
//  6. Run "vagrant init" and show its output
//  7. Write the Vagrantfile and bootstrap.sh
//  8. Optionally write the seed ISO
//  9. Start "vagrant up"
//
// Build returns once the process is running; completion (timestamp, log
// file, opening the directory, run record) happens when it exits. Use Wait
// to block until then. The returned run is a snapshot taken at return.
func (s *Service) Build(ctx context.Context, cfg *v1alpha1.ProvisioningConfig, opts Options) (*v1alpha1.BuildRun, error) {
	// Step 1: One run per service
	if err := s.reserve(); err != nil {
		return nil, err
	}
	defer s.release()

	// Step 2: Validate, then work on a private copy
	snapshot := cfg.DeepCopy()
	snapshot.Normalize()
	loader.ApplyGuestDefaults(snapshot)
	if err := loader.Validate(snapshot); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Step 3: Fresh panel
	s.panel.Clear()
	s.panel.Stamp()

	log := s.logger.With().Str("name", snapshot.Name).Logger()
	upCmd := s.toolCommand("", snapshot.Spec.Run.LowPriority, "up")

	// Step 4: Target directory
	dir, err := s.workspace.CreateTargetDirectory(snapshot.Name)
	upCmd.Dir = dir
	run := v1alpha1.NewBuildRun(snapshot.Name, dir, "up", upCmd.Argv())

	s.panel.Infof("Dir: %s", dir)
	switch {
	case err == nil:
		status.MarkDirectoryReady(&run.Status, "Created", "Target directory created")
	case errors.Is(err, workspace.ErrDirectoryExists):
		s.panel.Error("Target Folder Exist")
		status.MarkDirectoryReady(&run.Status, "AlreadyExists", "Target directory already existed")
	default:
		s.panel.Errorf("Target Folder: %v", err)
		status.MarkDirectoryFailed(&run.Status, err)
		log.Error().Err(err).Str("dir", dir).Msg("failed to create target directory")
		return s.failBeforeLaunch(run, snapshot, err)
	}

	// Step 5: Stale descriptor
	s.panel.Info("Removing Vagrant file")
	if removed, err := s.workspace.RemoveDescriptor(dir); err != nil {
		s.panel.Error("Remove Vagrant file")
		log.Warn().Err(err).Msg("failed to remove stale Vagrantfile")
	} else if !removed {
		log.Debug().Str("dir", dir).Msg("no stale Vagrantfile")
	}

	// Step 6: vagrant init
	initCmd := s.toolCommand(dir, snapshot.Spec.Run.LowPriority, "init")
	s.panel.Info("OK: Running Vagrant Init")
	out, err := s.exec.CombinedOutput(ctx, initCmd)
	s.relayOutput(out)
	if err != nil {
		s.panel.Errorf("Vagrant Init: %v", err)
		log.Warn().Err(err).Msg("vagrant init failed, continuing")
	} else {
		s.panel.Info("OK: Completed Vagrant Init")
	}

	// Step 7: Artifacts
	set := artifacts.Render(snapshot)
	s.panel.Infof("OK: Config: %s", set.Vagrantfile)
	s.panel.Info("Writing Vagrantfile")
	s.panel.Infof("OK: Script: %s", set.BootstrapScript)
	if err := s.workspace.WriteArtifacts(dir, set); err != nil {
		s.panel.Errorf("FAIL: %v", err)
		status.MarkArtifactsFailed(&run.Status, err)
		log.Error().Err(err).Msg("failed to write artifacts")
		return s.failBeforeLaunch(run, snapshot, err)
	}
	status.MarkArtifactsWritten(&run.Status)
	s.panel.Info("Writing bootstrap.sh")
	s.panel.Info("bootstrap.sh is 775")

	// Step 8: Seed ISO
	if opts.SeedISO {
		s.writeSeedISO(dir, set)
	}

	// Step 9: vagrant up
	s.panel.Info("OK: Vagrant Up needs time, depends on your Internet Connection Speed!")
	s.panel.Info("OK: Running Vagrant Up!")
	log.Info().Str("dir", dir).Str("command", upCmd.String()).Msg("starting vagrant up")

	if err := status.TransitionToStarting(&run.Status); err != nil {
		return nil, err
	}

	err = s.runner.Start(ctx, upCmd, func(res runner.Result) {
		s.completeBuild(run, snapshot, res)
	})
	if errors.Is(err, runner.ErrBusy) {
		return nil, err
	}
	if err == nil {
		s.markRunning(run)
	}

	return s.LastRun(), err
}

// writeSeedISO packs the artifacts into an ISO image. Failures are shown
// and do not stop the build.
func (s *Service) writeSeedISO(dir string, set artifacts.Set) {
	s.panel.Info("Writing seed ISO")

	data, err := artifacts.GenerateSeedISO(set)
	if err == nil {
		_, err = s.workspace.WriteSeedISO(dir, data)
	}
	if err != nil {
		s.panel.Errorf("Seed ISO: %v", err)
		s.logger.Warn().Err(err).Str("dir", dir).Msg("failed to write seed ISO")
	}
}

// failBeforeLaunch records a run that ended before the process started.
func (s *Service) failBeforeLaunch(run *v1alpha1.BuildRun, cfg *v1alpha1.ProvisioningConfig, err error) (*v1alpha1.BuildRun, error) {
	if run.GetPhase() != v1alpha1.RunPhaseFailed {
		run.SetPhase(v1alpha1.RunPhaseFailed)
		run.Status.CompletionTime = v1alpha1.Now()
		run.Status.Message = err.Error()
	}
	s.setCurrent(run)
	snapshot := s.LastRun()

	s.panel.Stamp()
	s.storeRecord(snapshot.Spec.Directory, cfg, snapshot)
	return snapshot, err
}

// completeBuild runs on the runner goroutine once "vagrant up" has exited
// or failed to launch.
func (s *Service) completeBuild(run *v1alpha1.BuildRun, cfg *v1alpha1.ProvisioningConfig, res runner.Result) {
	dir := run.Spec.Directory

	s.mu.Lock()
	applyResult(&run.Status, res)
	s.current = run
	snapshot := run.DeepCopy()
	s.mu.Unlock()

	s.reportResult("up", res)
	s.panel.Stamp()

	if cfg.Spec.Run.SaveLog {
		s.panel.Info("OK: Writing .LOG")
		if path, err := s.workspace.SaveLog(dir, s.panel.PlainText()); err != nil {
			s.panel.Errorf("Writing .LOG: %v", err)
			s.logger.Warn().Err(err).Str("dir", dir).Msg("failed to save log")
		} else {
			s.logger.Debug().Str("path", path).Msg("log saved")
		}
	}

	if cfg.Spec.Run.OpenDirectory {
		s.panel.Info("Opening Target Folder")
		if err := s.opener.Open(dir); err != nil {
			s.logger.Debug().Err(err).Str("dir", dir).Msg("failed to open target directory")
		}
	}

	s.storeRecord(dir, cfg, snapshot)
	s.logger.Info().Str("name", run.Name).Str("phase", string(snapshot.Status.Phase)).Msg("build finished")
}

func (s *Service) storeRecord(dir string, cfg *v1alpha1.ProvisioningConfig, run *v1alpha1.BuildRun) {
	if err := s.records.Store(dir, &metadata.Record{Config: cfg, Run: run}); err != nil {
		s.logger.Warn().Err(err).Str("dir", dir).Msg("failed to store run record")
	}
}
