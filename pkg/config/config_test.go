package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	original := &Settings{
		Seed:     "node-1",
		Hostname: "node-1.local",
		HTTPPort: 8080,
		HostInterfaces: []InterfaceConfig{
			{Name: "eth0", Address: "192.0.2.10"},
		},
	}
	require.NoError(t, Save(path, original))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, original.Seed, loaded.Seed)
	require.Equal(t, original.HostInterfaces, loaded.HostInterfaces)

	_, err = os.Stat(path + ".tmp")
	require.True(t, os.IsNotExist(err))
}

func TestValidateRejectsMissingFields(t *testing.T) {
	require.Error(t, (&Settings{}).Validate())
	require.Error(t, (&Settings{Seed: "s"}).Validate())
	require.NoError(t, (&Settings{Seed: "s", Hostname: "h", HTTPPort: 80}).Validate())
}

func TestStoreMergeRecipientWinsForScalars(t *testing.T) {
	st := NewStore(Settings{System: SystemGlobal{HeartbeatIntervalSeconds: 5}})

	st.Merge(SystemGlobal{
		HeartbeatIntervalSeconds:    30,
		DiscoveryIntervalMinSeconds: 1,
		DiscoveryIntervalMaxSeconds: 10,
		Tags:                        []string{"lab-a"},
	})

	got := st.Get()
	require.Equal(t, 5, got.System.HeartbeatIntervalSeconds, "recipient's own value must not be overwritten")
	require.Equal(t, 1, got.System.DiscoveryIntervalMinSeconds, "unset recipient field takes the update's value")
	require.Equal(t, []string{"lab-a"}, got.System.Tags, "array fields are replaced wholesale")
}

func TestDecodeSystemGlobalFromUntypedMap(t *testing.T) {
	raw := map[string]interface{}{
		"heartbeat_interval": 15,
		"tags":               []interface{}{"lab-a", "lab-b"},
	}
	sg, err := DecodeSystemGlobal(raw)
	require.NoError(t, err)
	require.Equal(t, 15, sg.HeartbeatIntervalSeconds)
	require.Equal(t, []string{"lab-a", "lab-b"}, sg.Tags)
}
