package connection

import (
	"time"

	"github.com/NVIDIA/nvnmos/pkg/sdp"
)

// synthesizeSenderTransportFile rebuilds a sender's external-form SDP
// from its original skeleton plus the now-active transport params
// (spec section 4.5 "Transport-file synthesizer"). If the active
// params carry more legs than the skeleton has media descriptions,
// the skeleton's first leg is duplicated per spec's
// duplication-group semantics, and its ts-refclk is replicated across
// the extra legs.
func synthesizeSenderTransportFile(skeleton *sdp.Parsed, active []EndpointTransportParams, now time.Time) string {
	p := cloneSkeleton(skeleton)

	for len(p.Legs) < len(active) {
		leg := p.Legs[0]
		p.Legs = append(p.Legs, leg)
	}
	p.Legs = p.Legs[:len(active)]

	for i := range p.Legs {
		leg := &p.Legs[i]
		ap := active[i]
		if !ap.SourceIP.Auto && ap.SourceIP.String() != "" {
			leg.SourceIP = ap.SourceIP.String()
		}
		if !ap.DestinationIP.Auto && ap.DestinationIP.String() != "" {
			leg.DestinationIP = ap.DestinationIP.String()
		}
		if ap.DestinationPort.Int() != 0 {
			leg.DestinationPort = ap.DestinationPort.Int()
		}
		if ap.SourcePort.Int() != 0 {
			leg.SourcePort = ap.SourcePort.Int()
		}
		leg.RTPEnabled = ap.RTPEnabled
		if i > 0 && leg.TsRefClk == nil {
			leg.TsRefClk = p.Legs[0].TsRefClk
		}
	}

	out, err := sdp.EmitExternal(p, now)
	if err != nil {
		return ""
	}
	return out
}

func cloneSkeleton(p *sdp.Parsed) *sdp.Parsed {
	cp := *p
	cp.Legs = make([]sdp.TransportParams, len(p.Legs))
	copy(cp.Legs, p.Legs)
	for i, leg := range p.Legs {
		if leg.FmtpParams != nil {
			cp.Legs[i].FmtpParams = make(map[string]string, len(leg.FmtpParams))
			for k, v := range leg.FmtpParams {
				cp.Legs[i].FmtpParams[k] = v
			}
		}
	}
	return &cp
}
