package node

import (
	"strconv"
	"strings"

	"github.com/NVIDIA/nvnmos/pkg/sdp"
)

const (
	capGrainRate            = "urn:x-nmos:cap:format:grain_rate"
	capFrameWidth           = "urn:x-nmos:cap:format:frame_width"
	capFrameHeight          = "urn:x-nmos:cap:format:frame_height"
	capInterlaceMode        = "urn:x-nmos:cap:format:interlace_mode"
	capColorSampling        = "urn:x-nmos:cap:format:color_sampling"
	capChannelCount         = "urn:x-nmos:cap:format:channel_count"
	capSampleRate           = "urn:x-nmos:cap:format:sample_rate"
	capSampleDepth          = "urn:x-nmos:cap:format:sample_depth"
	capProfile              = "urn:x-nmos:cap:format:profile"
	capLevel                = "urn:x-nmos:cap:format:level"
	capSublevel             = "urn:x-nmos:cap:format:sublevel"
	capBitRate              = "urn:x-nmos:cap:format:bit_rate"
	capTransportBitRate     = "urn:x-nmos:cap:transport:bit_rate"
	capPacketTransmission   = "urn:x-nmos:cap:transport:packet_transmission_mode"
	capPacketTime           = "urn:x-nmos:cap:transport:packet_time"
	capMaxPacketTime        = "urn:x-nmos:cap:transport:max_packet_time"
)

// buildConstraintSets synthesizes a receiver's single constraint set
// from the parsed SDP of its format, following the per-format field
// list in spec section 4.4 "add_receiver". Only fields the SDP
// actually carries are included, each as a one-element enum.
func buildConstraintSets(format string, leg sdp.TransportParams) []ConstraintSet {
	cs := ConstraintSet{}

	switch format {
	case FormatVideo:
		if rate, ok := leg.FmtpParams["exactframerate"]; ok {
			if r := parseRational(rate); r != nil {
				cs[capGrainRate] = Constraint{Enum: []interface{}{r}}
			}
		}
		if w, ok := leg.FmtpParams["width"]; ok {
			if n, err := strconv.Atoi(w); err == nil {
				cs[capFrameWidth] = Constraint{Enum: []interface{}{n}}
			}
		}
		if h, ok := leg.FmtpParams["height"]; ok {
			if n, err := strconv.Atoi(h); err == nil {
				cs[capFrameHeight] = Constraint{Enum: []interface{}{n}}
			}
		}
		if il, ok := leg.FmtpParams["interlace"]; ok {
			cs[capInterlaceMode] = Constraint{Enum: []interface{}{il == "1" || il == "true"}}
		}
		if sampling, ok := leg.FmtpParams["sampling"]; ok {
			cs[capColorSampling] = Constraint{Enum: []interface{}{sampling}}
		}
		if profile, ok := leg.FmtpParams["profile"]; ok {
			cs[capProfile] = Constraint{Enum: []interface{}{profile}}
		}
		if level, ok := leg.FmtpParams["level"]; ok {
			cs[capLevel] = Constraint{Enum: []interface{}{level}}
		}
		if sublevel, ok := leg.FmtpParams["sublevel"]; ok {
			cs[capSublevel] = Constraint{Enum: []interface{}{sublevel}}
		}
		if formatBR, transportBR, ok := sdp.BitRates(leg); ok {
			cs[capBitRate] = Constraint{Enum: []interface{}{formatBR}}
			cs[capTransportBitRate] = Constraint{Enum: []interface{}{transportBR}}
		}
		if mode, ok := leg.FmtpParams["TP"]; ok {
			cs[capPacketTransmission] = Constraint{Enum: []interface{}{mode}}
		}

	case FormatAudio:
		if leg.Channels > 0 {
			cs[capChannelCount] = Constraint{Enum: []interface{}{leg.Channels}}
		}
		if leg.ClockRate > 0 {
			cs[capSampleRate] = Constraint{Enum: []interface{}{Rational{Numerator: leg.ClockRate, Denominator: 1}}}
		}
		if depth := audioSampleDepth(leg.EncodingName); depth > 0 {
			cs[capSampleDepth] = Constraint{Enum: []interface{}{depth}}
		}
		if pt, ok := leg.FmtpParams["ptime"]; ok {
			if v, err := strconv.ParseFloat(pt, 64); err == nil {
				cs[capPacketTime] = Constraint{Enum: []interface{}{v}}
			}
		}
		if mpt, ok := leg.FmtpParams["maxptime"]; ok {
			if v, err := strconv.ParseFloat(mpt, 64); err == nil {
				cs[capMaxPacketTime] = Constraint{Enum: []interface{}{v}}
			}
		}
	}

	return []ConstraintSet{cs}
}

// audioSampleDepth maps an RTP audio encoding name to its bit depth;
// only the formats this node supports (spec section 1 non-goals) are
// recognised.
func audioSampleDepth(encoding string) int {
	switch strings.ToUpper(encoding) {
	case "L16":
		return 16
	case "L24":
		return 24
	default:
		return 0
	}
}

// parseRational parses "numerator/denominator" or a bare integer.
func parseRational(s string) *Rational {
	num, den, ok := strings.Cut(s, "/")
	n, err := strconv.Atoi(num)
	if err != nil {
		return nil
	}
	if !ok {
		return &Rational{Numerator: n, Denominator: 1}
	}
	d, err := strconv.Atoi(den)
	if err != nil {
		return nil
	}
	return &Rational{Numerator: n, Denominator: d}
}
