package sdp

import "errors"

var (
	ErrInvalidSDP       = errors.New("sdp: malformed payload")
	ErrUnsupportedMedia = errors.New("sdp: unsupported media type")
)

// Kind distinguishes a sender-side from a receiver-side transport-param view.
type Kind string

const (
	KindSender   Kind = "sender"
	KindReceiver Kind = "receiver"
)

// Format is one of the media format families this node understands.
type Format string

const (
	FormatVideo Format = "video"
	FormatAudio Format = "audio"
	FormatData  Format = "data"
	FormatMux   Format = "mux"
)

// Session carries the session-level fields needed to reconstruct an SDP.
type Session struct {
	Username       string // o= username, usually "-"
	SessionID      string // o= sess-id
	SessionVersion string // o= sess-version
	NetType        string // o= nettype, usually "IN"
	AddrType       string // o= addrtype, usually "IP4"
	UnicastAddress string // o= unicast-address
	Name           string // s=
	ConnAddr       string // session-level c= address, if present
	StartTime      string // t= start
	StopTime       string // t= stop
	GroupHint      string // x-nvnmos-group-hint, optional
	Info           string // i=, optional session information
}

// TsRefClk is one a=ts-refclk attribute value, parsed.
type TsRefClk struct {
	Raw         string // the full clock-source token after "ts-refclk:"
	PTP         bool
	PTPVersion  string // e.g. "IEEE1588-2008"
	GMID        string // lowercase grandmaster id
	PTPDomain   *int
	Traceable   bool
	LocalMAC    string
	MediaClkRef string // direct= clock offset, if any
}

// TransportParams is one leg's worth of RTP transport parameters, for
// either a sender or a receiver. Not every field applies to both kinds;
// unused fields stay zero-valued.
type TransportParams struct {
	SourceIP       string // sender: source_ip : interface to transmit from
	DestinationIP  string // sender: destination_ip (c= or source-filter)
	DestinationPort int   // both: port from m=
	SourcePort     int    // sender: x-nvnmos-src-port, 0 = unresolved/"auto"
	RTPEnabled     bool   // both: false iff a=inactive

	InterfaceIP string // receiver: x-nvnmos-iface-ip
	MulticastIP string // receiver: multicast_ip from c=
	SourceFilterIP string // receiver: source_ip from inclusive source-filter

	MediaType    string // "video", "audio", etc. as it appeared on m=
	Proto        string // m= proto, e.g. "RTP/AVP"
	PayloadType  int
	TsRefClk     *TsRefClk // leg-level, falls back to session-level
	FmtpParams   map[string]string
	BitRateAS    *float64 // b=AS: value, kbps

	EncodingName string // a=rtpmap encoding name, e.g. "L24", "raw"
	ClockRate    int    // a=rtpmap clock rate
	Channels     int    // a=rtpmap channel count, 0 if absent
}

// Parsed is the structured result of parsing one SDP payload.
type Parsed struct {
	Session    Session
	Legs       []TransportParams
	InternalID string
	Kind       Kind
}
