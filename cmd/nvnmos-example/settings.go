package main

import (
	"fmt"
	"os"

	"github.com/NVIDIA/nvnmos"
	"github.com/NVIDIA/nvnmos/pkg/api"
	"github.com/NVIDIA/nvnmos/pkg/config"
)

// loadSDPFiles reads each path and returns its contents, skipping (and
// warning about) any file that cannot be read rather than aborting
// startup over one bad entry.
func loadSDPFiles(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			fmt.Fprintf(os.Stderr, "skipping unreadable sdp file %s: %v\n", p, err)
			continue
		}
		out = append(out, string(data))
	}
	return out
}

// loadSettings reads a pkg/config.Settings document from path and
// translates it into the facade's Config shape.
func loadSettings(path string) (nvnmos.Config, error) {
	s, err := config.Load(path)
	if err != nil {
		return nvnmos.Config{}, err
	}
	if err := s.Validate(); err != nil {
		return nvnmos.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	interfaces := make([]nvnmos.HostInterface, 0, len(s.HostInterfaces))
	for _, hi := range s.HostInterfaces {
		interfaces = append(interfaces, nvnmos.HostInterface{Name: hi.Name, Address: hi.Address})
	}

	var auth *api.AuthConfig
	if s.Auth.Enabled {
		auth = &api.AuthConfig{Enabled: true, Secret: s.Auth.Secret, TokenHash: s.Auth.TokenHash}
	}

	return nvnmos.Config{
		Seed:             s.Seed,
		Hostname:         s.Hostname,
		HTTPPort:         s.HTTPPort,
		Label:            s.Label,
		Description:      s.Description,
		Manufacturer:     s.Manufacturer,
		Product:          s.Product,
		InstanceID:       s.InstanceID,
		Functions:        s.Functions,
		HostInterfaces:   interfaces,
		ListenAddr:       fmt.Sprintf(":%d", s.HTTPPort),
		RegistryEnabled:  true,
		Auth:             auth,
		InitialSenders:   loadSDPFiles(s.InitialSenders),
		InitialReceivers: loadSDPFiles(s.InitialReceivers),
		LogLevel:         s.Log.Level,
		LogCategories:    s.Log.Categories,
		OnLog: func(categories string, level int, text string) {
			fmt.Printf("[%s] (%d) %s\n", categories, level, text)
		},
	}, nil
}
