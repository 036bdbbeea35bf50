// Package naming provides the file and URL naming conventions of a Vagrant
// project directory: artifact file names, the Ubuntu cloud box URL, the
// per-VM target directory, and the forwarded port list format.
//
// These naming rules are version-independent and shared across all
// API versions.
package naming

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// File names written into a target directory.
const (
	VagrantfileName     = "Vagrantfile"
	BootstrapScriptName = "bootstrap.sh"
	LogFileName         = "vagrant_ninja.log"
	RecordFileName      = ".vagrant-ninja.yaml"
	SeedISOName         = "provision-seed.iso"
)

// CloudImagesHost serves the Ubuntu Vagrant boxes.
const CloudImagesHost = "cloud-images.ubuntu.com"

// BoxURL returns the download URL of an Ubuntu cloud Vagrant box.
//
// Example: https, saucy, amd64 →
// https://cloud-images.ubuntu.com/vagrant/saucy/current/saucy-server-cloudimg-amd64-vagrant-disk1.box
func BoxURL(protocol, codename, arch string) string {
	return fmt.Sprintf("%s://%s/vagrant/%s/current/%s-server-cloudimg-%s-vagrant-disk1.box",
		protocol, CloudImagesHost, codename, codename, arch)
}

// TargetDirectory returns <base>/<name>.
func TargetDirectory(base, name string) string {
	return filepath.Join(base, name)
}

// ParsePorts parses a comma separated port list such as "8000, 9000".
// Empty items are skipped. Order is kept.
func ParsePorts(s string) ([]int, error) {
	var ports []int
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		port, err := strconv.Atoi(item)
		if err != nil {
			return nil, fmt.Errorf("invalid port %q: %w", item, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("port %d out of range 1-65535", port)
		}
		ports = append(ports, port)
	}
	return ports, nil
}

// FormatPorts is the inverse of ParsePorts.
func FormatPorts(ports []int) string {
	items := make([]string, len(ports))
	for i, p := range ports {
		items[i] = strconv.Itoa(p)
	}
	return strings.Join(items, ", ")
}
