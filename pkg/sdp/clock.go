package sdp

// ClockFamily is the kind of node-level clock a sender's ts-refclk
// attributes resolve to.
type ClockFamily string

const (
	ClockInternal ClockFamily = "internal"
	ClockPTP      ClockFamily = "ptp"
)

// Clock describes a node clock descriptor derived from a sender's
// ts-refclk attributes (spec section 4.2 "Clock").
type Clock struct {
	Family     ClockFamily
	GMID       string
	Traceable  bool
	PTPDomain  *int
}

// ClockFromLegs derives the clock implied by a set of legs' ts-refclk
// attributes (each leg falls back to the session-level clock when it
// has none of its own, which Parse already resolved). If any leg
// carries a ptp=<ver>:<gmid>[:<domain>] clock it wins; a traceable-only
// form yields the all-FF grandmaster id; localmac-only or no clock at
// all means the sender doesn't upgrade the node clock away from
// internal.
func ClockFromLegs(legs []TransportParams, carriedOverDomain *int) *Clock {
	for _, leg := range legs {
		if leg.TsRefClk == nil || !leg.TsRefClk.PTP {
			continue
		}
		clk := &Clock{
			Family:    ClockPTP,
			GMID:      leg.TsRefClk.GMID,
			Traceable: leg.TsRefClk.Traceable,
		}
		if leg.TsRefClk.PTPDomain != nil {
			clk.PTPDomain = leg.TsRefClk.PTPDomain
		} else {
			clk.PTPDomain = carriedOverDomain
		}
		return clk
	}
	return nil
}
