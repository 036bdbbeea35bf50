package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jbweber/vagrant-ninja/internal/build"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the vagrant and VirtualBox installation",
	Long: `Print the versions of vagrant and VirtualBox and the settings in use.

Fails if vagrant cannot be run. A missing VirtualBox is only reported.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ok := color.New(color.FgGreen).SprintFunc()
		bad := color.New(color.FgRed).SprintFunc()

		file := settings.File
		if file == "" {
			file = "(defaults)"
		}
		fmt.Printf("Settings: %s\n", file)
		fmt.Printf("Base directory: %s\n", settings.BaseDir)

		svc := build.NewService(settings, nil, logger, build.Deps{})
		var vagrantErr error
		for _, v := range svc.BackendVersions(context.Background()) {
			if v.Err != nil {
				fmt.Printf("%s %s: %v\n", bad("✗"), v.Name, v.Err)
				if v.Name == "vagrant" {
					vagrantErr = v.Err
				}
				continue
			}
			fmt.Printf("%s %s: %s\n", ok("✓"), v.Name, v.Version)
		}

		if vagrantErr != nil {
			return fmt.Errorf("vagrant is not usable: %w", vagrantErr)
		}
		return nil
	},
}
