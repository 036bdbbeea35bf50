// Package build orchestrates provisioning runs.
//
// It ties the low-level components (loader, artifacts, workspace, runner,
// log panel, opener, run records) into two operations:
//   - Build: render a ProvisioningConfig into a target directory and run
//     "vagrant up" there
//   - QuickCommand: run a single vagrant verb in an existing project
//
// Error Handling:
//
// Only a failed artifact write and a failed launch end a build early.
// Everything else (an existing target directory, a missing stale
// Vagrantfile, a failing "vagrant init", saving the log, opening the
// directory, storing the run record) is best-effort: the failure is shown
// in the log panel or logged, and the build continues.
//
// Concurrency:
//
// A Service owns one process runner. A Build or QuickCommand while a run is
// in progress fails with runner.ErrBusy. The completion of a run happens on
// the runner's goroutine; Wait blocks until it is done.
package build
