package sdp

import (
	"math"
	"strconv"
)

// BitRates resolves a leg's format and transport bit rates following
// the preference order in spec section 4.2 "Bit rate".
func BitRates(leg TransportParams) (formatMbps, transportMbps float64, ok bool) {
	if v, has := leg.FmtpParams["x-nvnmos-format-bit-rate"]; has {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			formatMbps = f
			ok = true
		}
	}

	if v, has := leg.FmtpParams["x-nvnmos-transport-bit-rate"]; has {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			transportMbps = f
			if !ok {
				formatMbps = f / 1.05
				ok = true
			}
			return formatMbps, transportMbps, ok
		}
	}

	if !ok && leg.BitRateAS != nil {
		formatMbps = *leg.BitRateAS / 1000 / 1.05
		ok = true
	}

	if ok && transportMbps == 0 {
		transportMbps = roundToMbps(math.Ceil(formatMbps * 1.05 * 1000))
		if transportMbps == 0 && leg.BitRateAS != nil {
			transportMbps = *leg.BitRateAS / 1000
		}
	}

	return formatMbps, transportMbps, ok
}

// roundToMbps rounds a value expressed in kbps to the nearest whole
// Mbps and returns it in Mbps, matching the "rounded to nearest Mbps"
// rule for the derived transport bit rate.
func roundToMbps(kbps float64) float64 {
	return math.Round(kbps/1000)
}
