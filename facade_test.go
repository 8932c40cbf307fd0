package nvnmos

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/nvnmos/pkg/api"
)

const testSenderSDP = "v=0\r\n" +
	"o=- 0 0 IN IP4 192.0.2.10\r\n" +
	"s=sink-0\r\n" +
	"t=0 0\r\n" +
	"a=x-nvnmos-id:sink-0\r\n" +
	"m=video 5020 RTP/AVP 96\r\n" +
	"c=IN IP4 233.252.0.0/32\r\n" +
	"a=x-nvnmos-iface-ip:192.0.2.10\r\n" +
	"a=ts-refclk:ptp=IEEE1588-2008:AC-DE-48-23-45-67-01-9F:42\r\n" +
	"a=mediaclk:direct=0\r\n" +
	"a=fmtp:96 sampling=YCbCr-4:2:2;width=1920;height=1080\r\n"

func testConfig() Config {
	return Config{
		Seed:     "nmos-api.local:8080",
		Hostname: "nmos-api.local",
		HTTPPort: 8080,
		Label:    "test-node",
		HostInterfaces: []HostInterface{
			{Name: "eth0", Address: "192.0.2.10"},
		},
	}
}

func TestCreateRejectsMissingSeed(t *testing.T) {
	cfg := testConfig()
	cfg.Seed = ""
	var logged []string
	cfg.OnLog = func(categories string, level int, text string) { logged = append(logged, text) }

	n, ok := Create(cfg)
	require.False(t, ok)
	require.Nil(t, n)
	require.NotEmpty(t, logged)
}

func TestCreateDestroyRoundTrip(t *testing.T) {
	n, ok := Create(testConfig())
	require.True(t, ok)
	require.NotNil(t, n)
	require.True(t, Destroy(n))
}

func TestAddRemoveSenderLifecycle(t *testing.T) {
	n, ok := Create(testConfig())
	require.True(t, ok)
	defer Destroy(n)

	id, ok := n.AddSender(testSenderSDP)
	require.True(t, ok)
	require.Equal(t, "sink-0", id)

	require.True(t, n.RemoveSender(id))
}

func TestAddSenderRejectsEmptySDP(t *testing.T) {
	n, ok := Create(testConfig())
	require.True(t, ok)
	defer Destroy(n)

	_, ok = n.AddSender("")
	require.False(t, ok)
}

func TestActivateRejectsEmptyID(t *testing.T) {
	n, ok := Create(testConfig())
	require.True(t, ok)
	defer Destroy(n)

	require.False(t, n.Activate("", ""))
}

func TestActivateSenderViaHostPath(t *testing.T) {
	n, ok := Create(testConfig())
	require.True(t, ok)
	defer Destroy(n)

	id, ok := n.AddSender(testSenderSDP)
	require.True(t, ok)
	require.True(t, n.Activate(id, testSenderSDP))
}

func TestCreateWiresAuthConfigThroughToServer(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = &api.AuthConfig{Enabled: true, Secret: "test-secret"}
	cfg.ListenAddr = "127.0.0.1:0"

	n, ok := Create(cfg)
	require.True(t, ok)
	defer Destroy(n)

	require.NotNil(t, n.server)
}
