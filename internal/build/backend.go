package build

import (
	"context"
	"strings"

	"github.com/jbweber/vagrant-ninja/internal/runner"
)

// BackendVersion is the reported version of one backend tool.
type BackendVersion struct {
	Name    string
	Version string
	Err     error
}

// BackendVersions queries "vagrant --version" and "vboxmanage --version".
// A failing backend is reported in its entry and does not affect the other.
func (s *Service) BackendVersions(ctx context.Context) []BackendVersion {
	backends := []struct {
		name   string
		binary string
	}{
		{"vagrant", s.settings.VagrantBinary},
		{"virtualbox", s.settings.VBoxManageBinary},
	}

	versions := make([]BackendVersion, 0, len(backends))
	for _, b := range backends {
		v := BackendVersion{Name: b.name}
		out, err := s.exec.CombinedOutput(ctx, runner.Command{Name: b.binary, Args: []string{"--version"}})
		if err != nil {
			v.Err = err
			s.logger.Debug().Err(err).Str("backend", b.name).Msg("version query failed")
		} else {
			v.Version = strings.TrimSpace(string(out))
		}
		versions = append(versions, v)
	}
	return versions
}
