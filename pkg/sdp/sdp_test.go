package sdp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
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

func TestParseVideoSender(t *testing.T) {
	p, err := Parse(videoSenderSDP, KindSender)
	require.NoError(t, err)
	require.Equal(t, "sink-0", p.InternalID)
	require.Len(t, p.Legs, 1)
	leg := p.Legs[0]
	require.Equal(t, "192.0.2.10", leg.SourceIP)
	require.Equal(t, "233.252.0.0", leg.DestinationIP)
	require.Equal(t, 5020, leg.DestinationPort)
	require.True(t, leg.RTPEnabled)
	require.NotNil(t, leg.TsRefClk)
	require.True(t, leg.TsRefClk.PTP)
	require.Equal(t, "ac-de-48-23-45-67-01-9f", leg.TsRefClk.GMID)
	require.NotNil(t, leg.TsRefClk.PTPDomain)
	require.Equal(t, 42, *leg.TsRefClk.PTPDomain)
}

func TestClockFromLegsUpgradesToPTP(t *testing.T) {
	p, err := Parse(videoSenderSDP, KindSender)
	require.NoError(t, err)
	clk := ClockFromLegs(p.Legs, nil)
	require.NotNil(t, clk)
	require.Equal(t, ClockPTP, clk.Family)
	require.Equal(t, "ac-de-48-23-45-67-01-9f", clk.GMID)
}

func TestClockTraceableOnly(t *testing.T) {
	legs := []TransportParams{{TsRefClk: parseTsRefClk("ptp=IEEE1588-2008:traceable")}}
	clk := ClockFromLegs(legs, nil)
	require.NotNil(t, clk)
	require.True(t, clk.Traceable)
	require.Equal(t, "ff-ff-ff-ff-ff-ff-ff-ff", clk.GMID)
}

func TestRoundTripInternalEmission(t *testing.T) {
	p, err := Parse(videoSenderSDP, KindSender)
	require.NoError(t, err)

	out, err := EmitInternal(p)
	require.NoError(t, err)

	reparsed, err := Parse(out, KindSender)
	require.NoError(t, err)
	require.Equal(t, p.InternalID, reparsed.InternalID)
	require.Equal(t, p.Legs[0].DestinationIP, reparsed.Legs[0].DestinationIP)
	require.Equal(t, p.Legs[0].SourceIP, reparsed.Legs[0].SourceIP)
	require.Equal(t, p.Legs[0].TsRefClk.GMID, reparsed.Legs[0].TsRefClk.GMID)
}

func TestEmitExternalStripsCustomAttributesAndBumpsOrigin(t *testing.T) {
	p, err := Parse(videoSenderSDP, KindSender)
	require.NoError(t, err)

	now := time.Now()
	out, err := EmitExternal(p, now)
	require.NoError(t, err)
	require.NotContains(t, out, "x-nvnmos")
	require.Contains(t, out, "a=mediaclk:direct=0")

	again, err := EmitExternal(p, now)
	require.NoError(t, err)
	require.Equal(t, out, again)
}

func TestDetectFormat(t *testing.T) {
	f, err := DetectFormat("video")
	require.NoError(t, err)
	require.Equal(t, FormatVideo, f)

	_, err = DetectFormat("text")
	require.ErrorIs(t, err, ErrUnsupportedMedia)
}

func TestBitRatesFromFormatBitRateFmtp(t *testing.T) {
	leg := TransportParams{FmtpParams: map[string]string{"x-nvnmos-format-bit-rate": "10.0"}}
	format, transport, ok := BitRates(leg)
	require.True(t, ok)
	require.InDelta(t, 10.0, format, 0.001)
	require.InDelta(t, 11, transport, 0.001)
}

func TestBitRatesFromTransportBitRateFmtp(t *testing.T) {
	leg := TransportParams{FmtpParams: map[string]string{"x-nvnmos-transport-bit-rate": "11.0"}}
	format, transport, ok := BitRates(leg)
	require.True(t, ok)
	require.InDelta(t, 11.0/1.05, format, 0.001)
	require.InDelta(t, 11.0, transport, 0.001)
}

func TestBitRatesFromBandwidthLine(t *testing.T) {
	as := 10500.0 // kbps
	leg := TransportParams{BitRateAS: &as}
	format, transport, ok := BitRates(leg)
	require.True(t, ok)
	require.InDelta(t, 10, format, 0.01)
	require.InDelta(t, 11, transport, 0.01)
}
