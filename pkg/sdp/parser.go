package sdp

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse turns a textual SDP payload into a structured Parsed value. kind
// tells the parser whether to interpret c=/source-filter/iface-ip
// attributes as describing a sender or a receiver leg (spec section 4.2).
func Parse(raw string, kind Kind) (*Parsed, error) {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	lines := strings.Split(strings.TrimRight(raw, "\n"), "\n")
	if len(lines) == 0 || !strings.HasPrefix(lines[0], "v=0") {
		return nil, fmt.Errorf("%w: sdp must start with v=0", ErrInvalidSDP)
	}

	p := &Parsed{Kind: kind}
	var sessionConnAddr string
	var sessionClock *TsRefClk
	var leg *TransportParams

	for _, line := range lines[1:] {
		if len(line) < 2 || line[1] != '=' {
			continue
		}
		key, val := line[0], line[2:]

		switch key {
		case 'o':
			fields := strings.Fields(val)
			if len(fields) != 6 {
				return nil, fmt.Errorf("%w: malformed o= line %q", ErrInvalidSDP, line)
			}
			p.Session.Username = fields[0]
			p.Session.SessionID = fields[1]
			p.Session.SessionVersion = fields[2]
			p.Session.NetType = fields[3]
			p.Session.AddrType = fields[4]
			p.Session.UnicastAddress = fields[5]
		case 's':
			p.Session.Name = val
		case 'i':
			if leg == nil {
				p.Session.Info = val
			}
		case 't':
			fields := strings.Fields(val)
			if len(fields) == 2 {
				p.Session.StartTime, p.Session.StopTime = fields[0], fields[1]
			}
		case 'c':
			addr, err := parseConnAddr(val)
			if err != nil {
				return nil, err
			}
			if leg == nil {
				sessionConnAddr = addr
				p.Session.ConnAddr = addr
			} else {
				applyConnAddr(leg, kind, addr)
			}
		case 'b':
			if leg != nil && strings.HasPrefix(val, "AS:") {
				kbps, err := strconv.ParseFloat(strings.TrimPrefix(val, "AS:"), 64)
				if err == nil {
					leg.BitRateAS = &kbps
				}
			}
		case 'm':
			m, err := newLeg(val)
			if err != nil {
				return nil, err
			}
			if sessionConnAddr != "" {
				applyConnAddr(m, kind, sessionConnAddr)
			}
			p.Legs = append(p.Legs, *m)
			leg = &p.Legs[len(p.Legs)-1]
		case 'a':
			if err := applyAttribute(p, leg, &sessionClock, val); err != nil {
				return nil, err
			}
		}
	}

	for i := range p.Legs {
		if p.Legs[i].TsRefClk == nil {
			p.Legs[i].TsRefClk = sessionClock
		}
	}

	if p.InternalID == "" {
		return nil, fmt.Errorf("%w: missing a=x-nvnmos-id", ErrInvalidSDP)
	}

	return p, nil
}

func newLeg(val string) (*TransportParams, error) {
	fields := strings.Fields(val)
	if len(fields) < 4 {
		return nil, fmt.Errorf("%w: malformed m= line %q", ErrInvalidSDP, val)
	}
	port, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, fmt.Errorf("%w: malformed m= port %q", ErrInvalidSDP, fields[1])
	}
	pt := 0
	if len(fields) >= 4 {
		pt, _ = strconv.Atoi(fields[3])
	}
	return &TransportParams{
		MediaType:       fields[0],
		DestinationPort: port,
		Proto:           fields[2],
		PayloadType:     pt,
		RTPEnabled:      true,
		FmtpParams:      map[string]string{},
	}, nil
}

func parseConnAddr(val string) (string, error) {
	fields := strings.Fields(val)
	if len(fields) != 3 {
		return "", fmt.Errorf("%w: malformed c= line %q", ErrInvalidSDP, val)
	}
	addr := fields[2]
	if slash := strings.IndexByte(addr, '/'); slash >= 0 {
		addr = addr[:slash]
	}
	return addr, nil
}

func applyConnAddr(leg *TransportParams, kind Kind, addr string) {
	if kind == KindReceiver {
		leg.MulticastIP = addr
	} else {
		leg.DestinationIP = addr
	}
}

func applyAttribute(p *Parsed, leg *TransportParams, sessionClock **TsRefClk, val string) error {
	name, arg, _ := strings.Cut(val, ":")

	switch {
	case name == "inactive":
		if leg != nil {
			leg.RTPEnabled = false
		}
	case name == "sendrecv" || name == "sendonly" || name == "recvonly":
		if leg != nil {
			leg.RTPEnabled = true
		}
	case name == "x-nvnmos-id":
		p.InternalID = arg
	case name == "x-nvnmos-group-hint":
		p.Session.GroupHint = arg
	case name == "x-nvnmos-iface-ip":
		if leg != nil {
			if p.Kind == KindReceiver {
				leg.InterfaceIP = arg
			} else {
				leg.SourceIP = arg
			}
		}
	case name == "x-nvnmos-src-port":
		if leg != nil {
			port, err := strconv.Atoi(arg)
			if err != nil {
				return fmt.Errorf("%w: malformed x-nvnmos-src-port %q", ErrInvalidSDP, arg)
			}
			leg.SourcePort = port
		}
	case name == "ts-refclk":
		clk := parseTsRefClk(arg)
		if leg != nil {
			leg.TsRefClk = clk
		} else {
			*sessionClock = clk
		}
	case name == "source-filter":
		applySourceFilter(leg, p.Kind, arg)
	case name == "fmtp":
		applyFmtp(leg, arg)
	case name == "rtpmap":
		applyRtpmap(leg, arg)
	}
	return nil
}

// parseTsRefClk parses the clock-source token after "ts-refclk:", e.g.
// "ptp=IEEE1588-2008:AC-DE-48-23-45-67-01-9F:42",
// "ptp=IEEE1588-2008:traceable", or "localmac=AC-DE-48-23-45-67".
func parseTsRefClk(arg string) *TsRefClk {
	clk := &TsRefClk{Raw: arg}
	src, rest, _ := strings.Cut(arg, "=")
	switch src {
	case "ptp":
		clk.PTP = true
		parts := strings.Split(rest, ":")
		if len(parts) >= 1 {
			clk.PTPVersion = parts[0]
		}
		if len(parts) >= 2 {
			if parts[1] == "traceable" {
				clk.Traceable = true
				clk.GMID = "ff-ff-ff-ff-ff-ff-ff-ff"
			} else {
				clk.GMID = strings.ToLower(parts[1])
			}
		}
		if len(parts) >= 3 {
			if domain, err := strconv.Atoi(parts[2]); err == nil {
				clk.PTPDomain = &domain
			}
		}
	case "localmac":
		clk.LocalMAC = rest
	}
	return clk
}

func applySourceFilter(leg *TransportParams, kind Kind, arg string) {
	if leg == nil {
		return
	}
	// "incl IN IP4 <dest-address> <src-address> ..."
	fields := strings.Fields(arg)
	if len(fields) < 5 || fields[0] != "incl" {
		return
	}
	dest := fields[3]
	src := fields[4]
	if kind == KindReceiver {
		leg.MulticastIP = dest
		leg.SourceFilterIP = src
	} else {
		leg.DestinationIP = dest
	}
}

// applyRtpmap parses "a=rtpmap:<payload-type> <encoding>/<clock-rate>[/<channels>]".
func applyRtpmap(leg *TransportParams, arg string) {
	if leg == nil {
		return
	}
	_, desc, found := strings.Cut(arg, " ")
	if !found {
		return
	}
	parts := strings.Split(desc, "/")
	if len(parts) < 2 {
		return
	}
	leg.EncodingName = parts[0]
	if rate, err := strconv.Atoi(parts[1]); err == nil {
		leg.ClockRate = rate
	}
	if len(parts) >= 3 {
		if ch, err := strconv.Atoi(parts[2]); err == nil {
			leg.Channels = ch
		}
	}
}

func applyFmtp(leg *TransportParams, arg string) {
	if leg == nil {
		return
	}
	_, params, found := strings.Cut(arg, " ")
	if !found {
		return
	}
	for _, kv := range strings.Split(params, ";") {
		kv = strings.TrimSpace(kv)
		if kv == "" {
			continue
		}
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		leg.FmtpParams[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
}
