package connection

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/nvnmos/pkg/sdp"
)

const audioReceiverSDP = "v=0\r\n" +
	"o=- 0 0 IN IP4 192.0.2.10\r\n" +
	"s=src-0\r\n" +
	"t=0 0\r\n" +
	"a=x-nvnmos-id:src-0\r\n" +
	"m=audio 5030 RTP/AVP 97\r\n" +
	"c=IN IP4 233.252.0.1/32\r\n" +
	"a=x-nvnmos-iface-ip:192.0.2.10\r\n" +
	"a=rtpmap:97 L24/48000/2\r\n"

func TestNewConnectionSenderConstraintsUseSourceIPKey(t *testing.T) {
	p, err := sdp.Parse(videoSenderSDP, sdp.KindSender)
	require.NoError(t, err)

	cs := NewConnectionSender(uuid.New(), p)
	require.Contains(t, cs.Constraints[0], "source_ip")
	require.NotContains(t, cs.Constraints[0], "interface_ip")
}

func TestNewConnectionReceiverConstraintsUseInterfaceIPKey(t *testing.T) {
	p, err := sdp.Parse(audioReceiverSDP, sdp.KindReceiver)
	require.NoError(t, err)

	cr := NewConnectionReceiver(uuid.New(), p)
	require.Contains(t, cr.Constraints[0], "interface_ip")
	require.NotContains(t, cr.Constraints[0], "source_ip")
}

func TestResolveReceiverLegReadsInterfaceIPConstraint(t *testing.T) {
	p, err := sdp.Parse(audioReceiverSDP, sdp.KindReceiver)
	require.NoError(t, err)

	cr := NewConnectionReceiver(uuid.New(), p)
	cr.StagedParams[0].InterfaceIP = AutoParam()

	resolveReceiverLeg(&cr.StagedParams[0], cr.Constraints[0])
	require.False(t, cr.StagedParams[0].InterfaceIP.Auto)
	require.Equal(t, "192.0.2.10", cr.StagedParams[0].InterfaceIP.String())
}
