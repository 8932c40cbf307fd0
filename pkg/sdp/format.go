package sdp

import "fmt"

// DetectFormat maps an SDP media type (the first token of an m= line)
// to one of this node's supported format families. An unrecognised
// media type is a hard error (spec section 4.2 "Format detection";
// section 1 limits support to RTP transport carrying uncompressed
// video, JPEG XS video, L16/L24 audio, SMPTE 291 ancillary data, and
// SMPTE 2022-6 mux).
func DetectFormat(mediaType string) (Format, error) {
	switch mediaType {
	case "video":
		return FormatVideo, nil
	case "audio":
		return FormatAudio, nil
	case "application":
		return FormatData, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMedia, mediaType)
	}
}
