package connection

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/nvnmos/pkg/resource"
	"github.com/NVIDIA/nvnmos/pkg/sdp"
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

func TestActivateSenderResolvesAutoDestination(t *testing.T) {
	connStore := resource.New()
	p, err := sdp.Parse(videoSenderSDP, sdp.KindSender)
	require.NoError(t, err)

	senderID := uuid.New()
	cs := NewConnectionSender(senderID, p)
	cs.StagedParams[0].DestinationIP = AutoParam()
	cs.Staged.MasterEnable = true
	connStore.Insert(&resource.Resource{
		ID:   senderID,
		Type: resource.TypeConnectionSender,
		Tags: map[string][]string{resource.TagInternalID: {"sink-0"}},
		Data: cs,
	})

	var gotID, gotSDP string
	eng := NewEngine(connStore, func() time.Time { return time.Unix(1000000000, 0) }, func(id, text string) {
		gotID, gotSDP = id, text
	}, nil)

	require.NoError(t, eng.ActivateSender(senderID))

	r, err := connStore.Find(senderID, resource.TypeConnectionSender)
	require.NoError(t, err)
	active := r.Data.(*ConnectionSender)
	require.True(t, active.Active.MasterEnable)
	require.False(t, active.ActiveParams[0].DestinationIP.Auto)
	require.NotEmpty(t, active.ActiveParams[0].DestinationIP.String())
	require.Equal(t, "sink-0", gotID)
	require.NotEmpty(t, gotSDP)
}

func TestActivateThenDeactivateClearsMasterEnable(t *testing.T) {
	connStore := resource.New()
	p, err := sdp.Parse(videoSenderSDP, sdp.KindSender)
	require.NoError(t, err)

	senderID := uuid.New()
	cs := NewConnectionSender(senderID, p)
	cs.Staged.MasterEnable = true
	connStore.Insert(&resource.Resource{
		ID:   senderID,
		Type: resource.TypeConnectionSender,
		Tags: map[string][]string{resource.TagInternalID: {"sink-0"}},
		Data: cs,
	})

	eng := NewEngine(connStore, nil, nil, nil)
	require.NoError(t, eng.ActivateSender(senderID))

	require.NoError(t, eng.HostActivate("sink-0", ""))
	r, err := connStore.Find(senderID, resource.TypeConnectionSender)
	require.NoError(t, err)
	require.False(t, r.Data.(*ConnectionSender).Active.MasterEnable)
}

func TestPatchSenderImmediateActivation(t *testing.T) {
	connStore := resource.New()
	p, err := sdp.Parse(videoSenderSDP, sdp.KindSender)
	require.NoError(t, err)

	senderID := uuid.New()
	cs := NewConnectionSender(senderID, p)
	connStore.Insert(&resource.Resource{ID: senderID, Type: resource.TypeConnectionSender, Data: cs})

	eng := NewEngine(connStore, nil, nil, nil)
	mode := ActivateImmediate
	enable := true
	err = eng.PatchSender(senderID, StagedPatch{MasterEnable: &enable, Mode: &mode})
	require.NoError(t, err)

	r, err := connStore.Find(senderID, resource.TypeConnectionSender)
	require.NoError(t, err)
	require.True(t, r.Data.(*ConnectionSender).Active.MasterEnable)
}

func TestIdempotenceOfActivateThenDeactivate(t *testing.T) {
	connStore := resource.New()
	p, err := sdp.Parse(videoSenderSDP, sdp.KindSender)
	require.NoError(t, err)

	senderID := uuid.New()
	cs := NewConnectionSender(senderID, p)
	connStore.Insert(&resource.Resource{
		ID:   senderID,
		Type: resource.TypeConnectionSender,
		Tags: map[string][]string{resource.TagInternalID: {"sink-0"}},
		Data: cs,
	})

	before, err := connStore.Find(senderID, resource.TypeConnectionSender)
	require.NoError(t, err)
	beforeActive := before.Data.(*ConnectionSender).Active

	eng := NewEngine(connStore, nil, nil, nil)
	require.NoError(t, eng.HostActivate("sink-0", videoSenderSDP))
	require.NoError(t, eng.HostActivate("sink-0", ""))

	after, err := connStore.Find(senderID, resource.TypeConnectionSender)
	require.NoError(t, err)
	require.Equal(t, beforeActive.MasterEnable, after.Data.(*ConnectionSender).Active.MasterEnable)
}
