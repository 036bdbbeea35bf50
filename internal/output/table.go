package output

import (
	"bytes"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/jbweber/vagrant-ninja/api/v1alpha1"
	"github.com/jbweber/vagrant-ninja/internal/naming"
)

// TableFormatter formats resources as human-readable tables.
type TableFormatter struct {
	// NoHeaders omits the header row.
	NoHeaders bool
}

// FormatConfig formats a ProvisioningConfig as a single table row.
func (f *TableFormatter) FormatConfig(cfg *v1alpha1.ProvisioningConfig) (string, error) {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "NAME\tBOX\tARCH\tPORTS\tGUI\tDESKTOP")
	}

	ports := naming.FormatPorts(cfg.Spec.Network.ForwardedPorts)
	if ports == "" {
		ports = "-"
	}

	gui := "headless"
	if cfg.IsGUI() {
		gui = fmt.Sprintf("%d%% cpu, %d MiB", cfg.Spec.GUI.CPUExecutionCap, cfg.Spec.GUI.MemoryMiB)
	}

	desktop := string(cfg.Spec.Desktop)
	if desktop == "" {
		desktop = string(v1alpha1.DesktopNone)
	}

	_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
		cfg.Name, cfg.Spec.Box.Codename, cfg.Spec.Box.Architecture, ports, gui, desktop)

	_ = w.Flush()
	return buf.String(), nil
}

// FormatRun formats a single BuildRun as a table row.
func (f *TableFormatter) FormatRun(run *v1alpha1.BuildRun) (string, error) {
	return f.FormatRunList([]*v1alpha1.BuildRun{run})
}

// FormatRunList formats a list of BuildRuns as a table.
func (f *TableFormatter) FormatRunList(runs []*v1alpha1.BuildRun) (string, error) {
	if len(runs) == 0 {
		return "No runs found\n", nil
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "NAME\tVERB\tPHASE\tEXIT\tDIRECTORY\tAGE")
	}

	for _, run := range runs {
		phase := string(run.Status.Phase)
		if phase == "" {
			phase = "-"
		}

		exit := "-"
		if run.Status.ExitCode != nil {
			exit = strconv.Itoa(*run.Status.ExitCode)
		}

		age := "-"
		if !run.CreationTimestamp.IsZero() {
			age = formatAge(time.Since(run.CreationTimestamp.Time))
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			run.Name, run.Spec.Verb, phase, exit, run.Spec.Directory, age)
	}

	_ = w.Flush()
	return buf.String(), nil
}

// formatAge formats a duration as a human-readable age string.
// Examples: "5s", "2m", "3h", "4d", "2w", "1y"
func formatAge(d time.Duration) string {
	if d < 0 {
		return "unknown"
	}

	seconds := int(d.Seconds())
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}

	minutes := seconds / 60
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}

	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("%dh", hours)
	}

	days := hours / 24
	if days < 7 {
		return fmt.Sprintf("%dd", days)
	}

	weeks := days / 7
	if weeks < 8 {
		return fmt.Sprintf("%dw", weeks)
	}

	// Past eight weeks, whole years or else days
	years := days / 365
	if years > 0 {
		return fmt.Sprintf("%dy", years)
	}

	return fmt.Sprintf("%dd", days)
}
