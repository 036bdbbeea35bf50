package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/jbweber/vagrant-ninja/api/v1alpha1"
	"github.com/jbweber/vagrant-ninja/internal/artifacts"
	"github.com/jbweber/vagrant-ninja/internal/loader"
	"github.com/jbweber/vagrant-ninja/internal/naming"
)

var (
	newFile     string
	newForce    bool
	newCodename string
	newArch     string
	newPorts    string
	newDesktop  string
	newHeadless bool

	renderOnly string
)

var newCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "Write a default provisioning config",
	Long: `Write a ProvisioningConfig with every option at its default.

The git identity is left empty and filled from the invoking user at build
time. Edit the file, then run "vagrant-ninja build".

Example:
  vagrant-ninja new ninja -f ninja.yaml --ports "8000, 9000" --headless`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if err := loader.ValidateName(name); err != nil {
			return err
		}

		path := newFile
		if path == "" {
			path = name + ".yaml"
		}

		if !newForce {
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("failed to check %s: %w", path, err)
			}
		}

		cfg := v1alpha1.NewProvisioningConfig(name)
		if newCodename != "" {
			cfg.Spec.Box.Codename = newCodename
		}
		if newArch != "" {
			cfg.Spec.Box.Architecture = v1alpha1.Architecture(newArch)
		}
		if cmd.Flags().Changed("ports") {
			ports, err := naming.ParsePorts(newPorts)
			if err != nil {
				return err
			}
			cfg.Spec.Network.ForwardedPorts = ports
		}
		if newDesktop != "" {
			cfg.Spec.Desktop = v1alpha1.DesktopEnvironment(newDesktop)
		}
		if newHeadless {
			cfg.Spec.GUI = nil
		}

		cfg.Normalize()
		if err := loader.Validate(cfg); err != nil {
			return err
		}

		if err := loader.SaveToFile(cfg, path); err != nil {
			return err
		}

		fmt.Printf("✓ Wrote %s\n", path)
		return nil
	},
}

var renderCmd = &cobra.Command{
	Use:   "render <config.yaml>",
	Short: "Print the generated Vagrantfile and bootstrap script",
	Long: `Render the artifacts of a provisioning config without building.

Nothing is written to disk.

Example:
  vagrant-ninja render ninja.yaml --only vagrantfile`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loader.LoadFromFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		set := artifacts.Render(cfg)
		switch renderOnly {
		case "":
			fmt.Printf("# Vagrantfile\n%s\n# bootstrap.sh\n%s", set.Vagrantfile, set.BootstrapScript)
		case "vagrantfile":
			fmt.Print(set.Vagrantfile)
		case "bootstrap":
			fmt.Print(set.BootstrapScript)
		default:
			return fmt.Errorf("invalid --only value %q (valid: vagrantfile, bootstrap)", renderOnly)
		}
		return nil
	},
}

func init() {
	newCmd.Flags().StringVarP(&newFile, "file", "f", "", "output file (default <name>.yaml)")
	newCmd.Flags().BoolVar(&newForce, "force", false, "overwrite an existing file")
	newCmd.Flags().StringVar(&newCodename, "codename", "", "Ubuntu release codename (default saucy)")
	newCmd.Flags().StringVar(&newArch, "arch", "", "box architecture, amd64 or i386 (default amd64)")
	newCmd.Flags().StringVar(&newPorts, "ports", "", `forwarded ports, e.g. "8000, 9000"`)
	newCmd.Flags().StringVar(&newDesktop, "desktop", "", "desktop environment (none, unity, kde, lxde, xfce)")
	newCmd.Flags().BoolVar(&newHeadless, "headless", false, "run without a VirtualBox window")

	renderCmd.Flags().StringVar(&renderOnly, "only", "", "print only one artifact (vagrantfile, bootstrap)")
}
