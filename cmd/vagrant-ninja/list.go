package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jbweber/vagrant-ninja/api/v1alpha1"
	"github.com/jbweber/vagrant-ninja/internal/loader"
	"github.com/jbweber/vagrant-ninja/internal/metadata"
	"github.com/jbweber/vagrant-ninja/internal/naming"
	"github.com/jbweber/vagrant-ninja/internal/output"
)

var (
	outputFormat string
	noHeaders    bool
	asList       bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List builds in the base directory",
	Long: `List the last run of every target directory in the base directory.

Directories without a run record are skipped.

Output formats:
  -o table  Human-readable table (default)
  -o yaml   Full YAML resource definitions
  -o json   Full JSON resource definitions (--as-list wraps them in a
            BuildRunList)`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		formatter, err := newFormatter()
		if err != nil {
			return err
		}

		records, err := metadata.List(settings.BaseDir)
		if err != nil {
			if len(records) == 0 {
				return fmt.Errorf("failed to list runs: %w", err)
			}
			logger.Warn().Err(err).Msg("some run records could not be read")
		}

		runs := make([]*v1alpha1.BuildRun, 0, len(records))
		for _, rec := range records {
			runs = append(runs, rec.Run)
		}

		var result string
		if jf, ok := formatter.(*output.JSONFormatter); ok && asList {
			result, err = jf.FormatRunListAsItems(runs)
		} else {
			result, err = formatter.FormatRunList(runs)
		}
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}

		fmt.Print(result)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show the config and last run of a build",
	Long: `Show the provisioning config and the last run recorded in
<base-dir>/<name>.

Output formats:
  -o table  Human-readable table (default)
  -o yaml   Full YAML resource definitions
  -o json   Full JSON resource definitions`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if err := loader.ValidateName(name); err != nil {
			return err
		}

		formatter, err := newFormatter()
		if err != nil {
			return err
		}

		rec, err := metadata.Load(naming.TargetDirectory(settings.BaseDir, name))
		if err != nil {
			return fmt.Errorf("failed to load run record: %w", err)
		}

		if rec.Config != nil {
			result, err := formatter.FormatConfig(rec.Config)
			if err != nil {
				return fmt.Errorf("failed to format output: %w", err)
			}
			fmt.Print(result)
			if outputFormat == string(output.FormatTable) {
				fmt.Println()
			}
		}

		result, err := formatter.FormatRun(rec.Run)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}

		fmt.Print(result)
		return nil
	},
}

var forgetCmd = &cobra.Command{
	Use:   "forget <name>",
	Short: "Remove the run record of a build",
	Long: `Remove the run record from <base-dir>/<name> so the build no longer
shows up in "vagrant-ninja list".

The VM, the Vagrantfile and the other files are left alone. Use
"vagrant-ninja destroy" in the directory to remove the VM itself.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if err := loader.ValidateName(name); err != nil {
			return err
		}

		dir := naming.TargetDirectory(settings.BaseDir, name)
		if !metadata.Exists(dir) {
			return fmt.Errorf("no run record in %s", dir)
		}
		if err := metadata.Delete(dir); err != nil {
			return err
		}

		fmt.Printf("✓ Forgot %s\n", name)
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{listCmd, showCmd} {
		cmd.Flags().StringVarP(&outputFormat, "output", "o", "table", "output format (table, yaml, json)")
		cmd.Flags().BoolVar(&noHeaders, "no-headers", false, "omit table headers")
	}
	listCmd.Flags().BoolVar(&asList, "as-list", false, "with -o json, print a BuildRunList object instead of an array")
}

func newFormatter() (output.Formatter, error) {
	if err := output.ValidateFormat(outputFormat); err != nil {
		return nil, err
	}

	return output.NewFormatter(output.Options{
		Format:    output.Format(outputFormat),
		NoHeaders: noHeaders,
	})
}
