package node

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/nvnmos/pkg/idgen"
	"github.com/NVIDIA/nvnmos/pkg/resource"
)

const videoSenderSDP = "v=0\r\n" +
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

const audioReceiverSDP = "v=0\r\n" +
	"o=- 0 0 IN IP4 192.0.2.10\r\n" +
	"s=src-0\r\n" +
	"t=0 0\r\n" +
	"a=x-nvnmos-id:src-0\r\n" +
	"m=audio 5030 RTP/AVP 97\r\n" +
	"c=IN IP4 233.252.0.1/32\r\n" +
	"a=x-nvnmos-iface-ip:192.0.2.10\r\n" +
	"a=rtpmap:97 L24/48000/2\r\n"

func newTestModel(t *testing.T) (*Model, *resource.Store, *resource.Store) {
	t.Helper()
	nodeStore := resource.New()
	connStore := resource.New()
	settings := Settings{
		Seed:     "nmos-api.local:8080",
		Hostname: "nmos-api.local",
		HTTPPort: 8080,
		Label:    "test-node",
		HostInterfaces: []HostInterface{
			{Name: "eth0", Address: "192.0.2.10"},
		},
	}
	m := NewModel(settings, nodeStore, connStore, nil)
	require.NoError(t, m.Init())
	return m, nodeStore, connStore
}

func TestInitCreatesNodeAndDevice(t *testing.T) {
	m, nodeStore, _ := newTestModel(t)

	require.Equal(t, idgen.NodeID("nmos-api.local:8080"), m.NodeID())
	require.Equal(t, idgen.DeviceID("nmos-api.local:8080"), m.DeviceID())

	n, err := nodeStore.Find(m.NodeID(), resource.TypeNode)
	require.NoError(t, err)
	nd := n.Data.(*NodeData)
	require.Empty(t, nd.Interfaces)
	require.Len(t, nd.Clocks, 1)
	require.Equal(t, "internal", nd.Clocks[0].RefType)
}

func TestAddSenderUpgradesClockAndInterfaces(t *testing.T) {
	m, nodeStore, connStore := newTestModel(t)

	id, err := m.AddSender(videoSenderSDP)
	require.NoError(t, err)
	require.Equal(t, "sink-0", id)

	senderID := idgen.ID("nmos-api.local:8080", idgen.KindSender, "sink-0")
	sr, err := nodeStore.Find(senderID, resource.TypeSender)
	require.NoError(t, err)
	snd := sr.Data.(*Sender)
	require.Equal(t, []string{"eth0"}, snd.InterfaceBindings)

	n, err := nodeStore.Find(m.NodeID(), resource.TypeNode)
	require.NoError(t, err)
	nd := n.Data.(*NodeData)
	require.Equal(t, []Interface{{Name: "eth0"}}, nd.Interfaces)
	require.Equal(t, "ptp", nd.Clocks[0].RefType)
	require.Equal(t, "ac-de-48-23-45-67-01-9f", nd.Clocks[0].GMID)

	_, err = connStore.Find(senderID, resource.TypeConnectionSender)
	require.NoError(t, err)

	dr, err := nodeStore.Find(m.DeviceID(), resource.TypeDevice)
	require.NoError(t, err)
	require.Contains(t, dr.Data.(*DeviceData).SenderIDs, senderID)
}

func TestRemoveSenderRevertsClockWhenLastPTPSenderRemoved(t *testing.T) {
	m, nodeStore, _ := newTestModel(t)

	id, err := m.AddSender(videoSenderSDP)
	require.NoError(t, err)

	n, err := nodeStore.Find(m.NodeID(), resource.TypeNode)
	require.NoError(t, err)
	require.Equal(t, "ptp", n.Data.(*NodeData).Clocks[0].RefType)

	require.NoError(t, m.RemoveSender(id))

	n, err = nodeStore.Find(m.NodeID(), resource.TypeNode)
	require.NoError(t, err)
	nd := n.Data.(*NodeData)
	require.Equal(t, "internal", nd.Clocks[0].RefType)
	require.Empty(t, nd.Clocks[0].GMID)
}

func TestRemoveSenderKeepsClockWhilePTPSenderRemains(t *testing.T) {
	m, nodeStore, _ := newTestModel(t)

	_, err := m.AddSender(videoSenderSDP)
	require.NoError(t, err)

	secondSDP := "v=0\r\n" +
		"o=- 0 0 IN IP4 192.0.2.10\r\n" +
		"s=sink-1\r\n" +
		"t=0 0\r\n" +
		"a=x-nvnmos-id:sink-1\r\n" +
		"m=video 5022 RTP/AVP 96\r\n" +
		"c=IN IP4 233.252.0.2/32\r\n" +
		"a=x-nvnmos-iface-ip:192.0.2.10\r\n" +
		"a=ts-refclk:ptp=IEEE1588-2008:AC-DE-48-23-45-67-01-9F:42\r\n" +
		"a=mediaclk:direct=0\r\n" +
		"a=fmtp:96 sampling=YCbCr-4:2:2;width=1920;height=1080\r\n"
	secondID, err := m.AddSender(secondSDP)
	require.NoError(t, err)

	require.NoError(t, m.RemoveSender("sink-0"))

	n, err := nodeStore.Find(m.NodeID(), resource.TypeNode)
	require.NoError(t, err)
	require.Equal(t, "ptp", n.Data.(*NodeData).Clocks[0].RefType)

	require.NoError(t, m.RemoveSender(secondID))
	n, err = nodeStore.Find(m.NodeID(), resource.TypeNode)
	require.NoError(t, err)
	require.Equal(t, "internal", n.Data.(*NodeData).Clocks[0].RefType)
}

func TestAddReceiverCapabilityConstraints(t *testing.T) {
	m, nodeStore, _ := newTestModel(t)

	id, err := m.AddReceiver(audioReceiverSDP)
	require.NoError(t, err)
	require.Equal(t, "src-0", id)

	receiverID := idgen.ID("nmos-api.local:8080", idgen.KindReceiver, "src-0")
	rr, err := nodeStore.Find(receiverID, resource.TypeReceiver)
	require.NoError(t, err)
	rcv := rr.Data.(*Receiver)
	require.Len(t, rcv.Caps.ConstraintSets, 1)
	cs := rcv.Caps.ConstraintSets[0]
	require.Equal(t, []interface{}{2}, cs[capChannelCount].Enum)
	require.Equal(t, []interface{}{Rational{Numerator: 48000, Denominator: 1}}, cs[capSampleRate].Enum)
	require.Equal(t, []interface{}{24}, cs[capSampleDepth].Enum)
}

func TestRemoveSenderCascadesToFlowAndSource(t *testing.T) {
	m, nodeStore, connStore := newTestModel(t)

	_, err := m.AddSender(videoSenderSDP)
	require.NoError(t, err)

	sourceID := idgen.ID("nmos-api.local:8080", idgen.KindSource, "sink-0")
	flowID := idgen.ID("nmos-api.local:8080", idgen.KindFlow, "sink-0")
	senderID := idgen.ID("nmos-api.local:8080", idgen.KindSender, "sink-0")

	require.NoError(t, m.RemoveSender("sink-0"))

	_, err = nodeStore.Find(senderID, resource.TypeSender)
	require.ErrorIs(t, err, resource.ErrNotFound)
	_, err = nodeStore.Find(flowID, resource.TypeFlow)
	require.ErrorIs(t, err, resource.ErrNotFound)
	_, err = nodeStore.Find(sourceID, resource.TypeSource)
	require.ErrorIs(t, err, resource.ErrNotFound)
	_, err = connStore.Find(senderID, resource.TypeConnectionSender)
	require.ErrorIs(t, err, resource.ErrNotFound)

	n, err := nodeStore.Find(m.NodeID(), resource.TypeNode)
	require.NoError(t, err)
	require.Empty(t, n.Data.(*NodeData).Interfaces)
}

func TestReAddAfterRemoveYieldsSameIDHigherVersion(t *testing.T) {
	m, nodeStore, _ := newTestModel(t)

	_, err := m.AddSender(videoSenderSDP)
	require.NoError(t, err)
	senderID := idgen.ID("nmos-api.local:8080", idgen.KindSender, "sink-0")
	first, err := nodeStore.Find(senderID, resource.TypeSender)
	require.NoError(t, err)

	require.NoError(t, m.RemoveSender("sink-0"))
	_, err = m.AddSender(videoSenderSDP)
	require.NoError(t, err)

	second, err := nodeStore.Find(senderID, resource.TypeSender)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.True(t, second.Version.After(first.Version))
}

func TestAddSenderRejectsUnknownInterface(t *testing.T) {
	nodeStore := resource.New()
	connStore := resource.New()
	m := NewModel(Settings{Seed: "s", Hostname: "h", HTTPPort: 80}, nodeStore, connStore, nil)
	require.NoError(t, m.Init())

	_, err := m.AddSender(videoSenderSDP)
	require.Error(t, err)
}

func TestAddSenderDuplicateInternalIDRejected(t *testing.T) {
	m, _, _ := newTestModel(t)
	_, err := m.AddSender(videoSenderSDP)
	require.NoError(t, err)

	_, err = m.AddSender(videoSenderSDP)
	require.Error(t, err)
}
