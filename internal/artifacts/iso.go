package artifacts

import (
	"bytes"
	"fmt"

	"github.com/kdomanski/iso9660"

	"github.com/jbweber/vagrant-ninja/internal/naming"
)

// SeedVolumeID is the ISO9660 volume label of a seed image.
const SeedVolumeID = "VAGRANTNINJA"

// GenerateSeedISO packs a rendered Set into an ISO9660 image.
//
// The image holds two files in its root directory, Vagrantfile and
// bootstrap.sh, and is labelled VAGRANTNINJA. It lets the provisioning
// inputs be archived or attached to a hypervisor other than VirtualBox.
func GenerateSeedISO(set Set) ([]byte, error) {
	if set.Vagrantfile == "" || set.BootstrapScript == "" {
		return nil, fmt.Errorf("artifact set is incomplete")
	}

	writer, err := iso9660.NewWriter()
	if err != nil {
		return nil, fmt.Errorf("failed to create ISO writer: %w", err)
	}
	defer func() {
		_ = writer.Cleanup()
	}()

	files := []struct {
		name    string
		content string
	}{
		{naming.VagrantfileName, set.Vagrantfile},
		{naming.BootstrapScriptName, set.BootstrapScript},
	}
	for _, f := range files {
		if err := writer.AddFile(bytes.NewReader([]byte(f.content)), f.name); err != nil {
			return nil, fmt.Errorf("failed to add %s: %w", f.name, err)
		}
	}

	var buf bytes.Buffer
	if err := writer.WriteTo(&buf, SeedVolumeID); err != nil {
		return nil, fmt.Errorf("failed to write ISO image: %w", err)
	}

	return buf.Bytes(), nil
}
