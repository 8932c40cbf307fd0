package sdp

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ntpEpochOffset is the number of seconds between the NTP epoch
// (1900-01-01) and the Unix epoch (1970-01-01).
const ntpEpochOffset = 2208988800

// NTPSeconds returns the current time as NTP seconds, used to refresh
// a sender's transport-file origin version on every external emission.
func NTPSeconds(now time.Time) int64 {
	return now.Unix() + ntpEpochOffset
}

// EmitInternal serializes Parsed back into SDP text including every
// custom x-nvnmos-* attribute (spec section 4.2 "Emit (internal
// form)"). The origin's session-version field is left as-is: internal
// form is used for in-memory round-tripping, not for the wire.
func EmitInternal(p *Parsed) (string, error) {
	return emit(p, true, p.Session.SessionVersion)
}

// EmitExternal serializes Parsed into the SDP body published on a
// sender's /transportfile endpoint: every x-nvnmos-* attribute is
// stripped, and the origin's session-version is refreshed to the
// current NTP time in seconds (spec section 4.2 "Emit (external
// form)"). Calling this twice within the same NTP second for an
// unchanged sender yields byte-identical output.
func EmitExternal(p *Parsed, now time.Time) (string, error) {
	return emit(p, false, strconv.FormatInt(NTPSeconds(now), 10))
}

func emit(p *Parsed, internal bool, sessionVersion string) (string, error) {
	var b strings.Builder
	b.WriteString("v=0\r\n")

	username := p.Session.Username
	if username == "" {
		username = "-"
	}
	sessID := p.Session.SessionID
	if sessID == "" {
		sessID = "0"
	}
	netType := p.Session.NetType
	if netType == "" {
		netType = "IN"
	}
	addrType := p.Session.AddrType
	if addrType == "" {
		addrType = "IP4"
	}
	unicastAddr := p.Session.UnicastAddress
	if unicastAddr == "" {
		unicastAddr = "0.0.0.0"
	}
	fmt.Fprintf(&b, "o=%s %s %s %s %s %s\r\n", username, sessID, sessionVersion, netType, addrType, unicastAddr)

	name := p.Session.Name
	if name == "" {
		name = "-"
	}
	fmt.Fprintf(&b, "s=%s\r\n", name)

	if p.Session.Info != "" {
		fmt.Fprintf(&b, "i=%s\r\n", p.Session.Info)
	}

	if p.Session.ConnAddr != "" {
		fmt.Fprintf(&b, "c=IN IP4 %s\r\n", p.Session.ConnAddr)
	}

	start := p.Session.StartTime
	if start == "" {
		start = "0"
	}
	stop := p.Session.StopTime
	if stop == "" {
		stop = "0"
	}
	fmt.Fprintf(&b, "t=%s %s\r\n", start, stop)

	if internal {
		fmt.Fprintf(&b, "a=x-nvnmos-id:%s\r\n", p.InternalID)
		if p.Session.GroupHint != "" {
			fmt.Fprintf(&b, "a=x-nvnmos-group-hint:%s\r\n", p.Session.GroupHint)
		}
	}

	for _, leg := range p.Legs {
		fields := leg.PayloadType
		fmt.Fprintf(&b, "m=%s %d %s %d\r\n", leg.MediaType, leg.DestinationPort, leg.Proto, fields)

		addr := connAddress(leg, p.Kind)
		if addr != "" {
			fmt.Fprintf(&b, "c=IN IP4 %s\r\n", addr)
		}

		if p.Kind == KindReceiver && leg.SourceFilterIP != "" {
			fmt.Fprintf(&b, "a=source-filter: incl IN IP4 %s %s\r\n", leg.MulticastIP, leg.SourceFilterIP)
		}

		if !leg.RTPEnabled {
			b.WriteString("a=inactive\r\n")
		}

		if internal {
			ifaceIP := leg.SourceIP
			if p.Kind == KindReceiver {
				ifaceIP = leg.InterfaceIP
			}
			if ifaceIP != "" {
				fmt.Fprintf(&b, "a=x-nvnmos-iface-ip:%s\r\n", ifaceIP)
			}
			if p.Kind == KindSender && leg.SourcePort != 0 {
				fmt.Fprintf(&b, "a=x-nvnmos-src-port:%d\r\n", leg.SourcePort)
			}
		}

		if leg.TsRefClk != nil {
			fmt.Fprintf(&b, "a=ts-refclk:%s\r\n", leg.TsRefClk.Raw)
			b.WriteString("a=mediaclk:direct=0\r\n")
		}

		if len(leg.FmtpParams) > 0 {
			emitFmtp(&b, leg, internal)
		}
	}

	return b.String(), nil
}

func connAddress(leg TransportParams, kind Kind) string {
	if kind == KindReceiver {
		return leg.MulticastIP
	}
	return leg.DestinationIP
}

func emitFmtp(b *strings.Builder, leg TransportParams, internal bool) {
	keys := make([]string, 0, len(leg.FmtpParams))
	for k := range leg.FmtpParams {
		if !internal && strings.HasPrefix(k, "x-nvnmos-") {
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, leg.FmtpParams[k]))
	}
	fmt.Fprintf(b, "a=fmtp:%d %s\r\n", leg.PayloadType, strings.Join(parts, ";"))
}
