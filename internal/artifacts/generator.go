// Package artifacts renders the files a Vagrant project needs from a
// ProvisioningConfig: the Vagrantfile that describes the VM and the
// bootstrap.sh shell provisioner that runs inside it on first boot.
//
// Rendering is pure and deterministic. The same config always yields
// byte-identical output, and nothing here touches the filesystem.
//
// Package lists, the PPA, the requirements path, the proxy and the git
// identity are interpolated into the script verbatim. They are not quoted
// or escaped, so a config is as trusted as a shell script.
package artifacts

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/jbweber/vagrant-ninja/api/v1alpha1"
	"github.com/jbweber/vagrant-ninja/internal/naming"
)

// Set is the pair of rendered artifacts for one VM.
type Set struct {
	Vagrantfile     string
	BootstrapScript string
}

const vagrantfileTemplate = `Vagrant.configure("2") do |config|
    config.vm.box = "{{ .Name }}"
    config.vm.hostname = "{{ .Name }}"
    config.vm.box_url = "{{ .BoxURL }}"
    config.vm.provision :shell, :path => "{{ .Bootstrap }}"
{{ range .Ports }}
    config.vm.network :forwarded_port, host: {{ . }}, guest: {{ . }}
{{- end }}
{{- with .GUI }}

    config.vm.provider :virtualbox do |vb|
        vb.gui = true
        vb.customize ["modifyvm", :id, "--memory", "{{ .MemoryMiB }}"]
        vb.customize ["modifyvm", :id, "--cpuexecutioncap", "{{ .CPUExecutionCap }}"]
    end
{{- end }}
end
`

const bootstrapTemplate = `#!/usr/bin/env bash
# -*- coding: utf-8 -*-

PS1='\[\e[1;32m\][\u@\h \W]\$\[\e[0m\] ' ; HISTSIZE=5000
# Vagrant Bootstrap Provisioning generated by Vagrant Ninja!
{{- with .Proxy }}

# proxy support for the VM
echo "Acquire::http::Proxy 'http://{{ . }}';" | tee /etc/apt/apt.conf.d/99proxy
echo "Acquire::https::Proxy 'https://{{ . }}';" >> /etc/apt/apt.conf.d/99proxy
echo "Acquire::ftp::Proxy 'ftp://{{ . }}';" >> /etc/apt/apt.conf.d/99proxy
export http_proxy='http://{{ . }}'
export https_proxy='https://{{ . }}'
export ftp_proxy='ftp://{{ . }}'
{{- end }}

add-apt-repository -s -y {{ .PPA }}
{{- range .Maintenance }}
{{ . }}
{{- end }}
apt-get -y --force-yes install {{ .APT }}
pip install --verbose {{ .Pip }}
{{- with .Requirements }}
pip install --verbose -r {{ . }}
{{- end }}
{{- with .DesktopPackage }}
apt-get -y --force-yes -m install {{ . }}
{{- end }}

git config --global user.name "{{ .GitUser }}"
git config --global color.branch auto
git config --global color.diff auto
git config --global color.interactive auto
git config --global color.status auto
git config --global credential.helper cache
git config --global user.email "{{ .GitEmail }}"
git config --global push.default simple
ufw status ; service ufw stop ; ufw disable ; swapoff --verbose --all
export LANGUAGE=en_US.UTF-8
export LANG=en_US.UTF-8
export LC_ALL=en_US.UTF-8
locale-gen en_US.UTF-8
dpkg-reconfigure locales
`

var (
	vagrantfileTmpl = template.Must(template.New("vagrantfile").Parse(vagrantfileTemplate))
	bootstrapTmpl   = template.Must(template.New("bootstrap").Parse(bootstrapTemplate))
)

type vagrantfileData struct {
	Name      string
	BoxURL    string
	Bootstrap string
	Ports     []int
	GUI       *v1alpha1.GUISpec
}

type bootstrapData struct {
	Proxy          string
	PPA            string
	Maintenance    []string
	APT            string
	Pip            string
	Requirements   string
	DesktopPackage string
	GitUser        string
	GitEmail       string
}

// RenderVagrantfile renders the Vagrantfile for cfg.
//
// The box and hostname are the config name. One forwarded_port line is
// emitted per port, in order, mapping host N to guest N. The VirtualBox
// provider block is only present when cfg.Spec.GUI is set.
func RenderVagrantfile(cfg *v1alpha1.ProvisioningConfig) string {
	box := cfg.Spec.Box
	return execute(vagrantfileTmpl, vagrantfileData{
		Name:      cfg.Name,
		BoxURL:    naming.BoxURL(box.Protocol, box.Codename, string(box.Architecture)),
		Bootstrap: naming.BootstrapScriptName,
		Ports:     cfg.Spec.Network.ForwardedPorts,
		GUI:       cfg.Spec.GUI,
	})
}

// RenderBootstrapScript renders bootstrap.sh for cfg.
//
// Sections appear in a fixed order: proxy setup (only when the proxy is at
// least 5 characters), the PPA, the enabled maintenance commands, apt
// packages, pip packages and requirements, the desktop meta-package, and
// finally git identity, firewall, swap and locale housekeeping.
func RenderBootstrapScript(cfg *v1alpha1.ProvisioningConfig) string {
	spec := cfg.Spec

	data := bootstrapData{
		PPA:            strings.TrimSpace(spec.Packages.PPA),
		Maintenance:    MaintenanceCommands(spec.Maintenance),
		APT:            spec.Packages.APT,
		Pip:            spec.Packages.Pip,
		Requirements:   spec.Packages.RequirementsFile,
		DesktopPackage: spec.Desktop.Package(),
		GitUser:        spec.Guest.GitUser,
		GitEmail:       spec.Guest.GitEmail,
	}
	if cfg.HasProxy() {
		data.Proxy = spec.Network.Proxy
	}

	return execute(bootstrapTmpl, data)
}

// Render renders both artifacts.
func Render(cfg *v1alpha1.ProvisioningConfig) Set {
	return Set{
		Vagrantfile:     RenderVagrantfile(cfg),
		BootstrapScript: RenderBootstrapScript(cfg),
	}
}

// MaintenanceCommands returns the enabled package maintenance commands in
// execution order.
func MaintenanceCommands(m v1alpha1.MaintenanceSpec) []string {
	steps := []struct {
		enabled bool
		command string
	}{
		{m.Update, "apt-get -V -u -m -y update"},
		{m.DistUpgrade, "apt-get -y -m dist-upgrade"},
		{m.Autoremove, "apt-get -y -m autoremove"},
		{m.Clean, "apt-get -y clean"},
		{m.Configure, "dpkg --configure -a"},
		{m.FixBroken, "apt-get -y -f install"},
		{m.Check, "apt-get -y check"},
	}

	var commands []string
	for _, s := range steps {
		if s.enabled {
			commands = append(commands, s.command)
		}
	}
	return commands
}

// execute only fails on a template bug; the templates and data types are fixed.
func execute(tmpl *template.Template, data any) string {
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		panic(fmt.Sprintf("render %s: %v", tmpl.Name(), err))
	}
	return b.String()
}
