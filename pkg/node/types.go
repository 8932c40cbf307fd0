package node

import "github.com/google/uuid"

// Rational is a numerator/denominator pair, used for grain rates and
// sample rates (e.g. 30000/1001 for 29.97Hz).
type Rational struct {
	Numerator   int `json:"numerator"`
	Denominator int `json:"denominator"`
}

// Interface is one host network interface that the node's resources
// currently reference.
type Interface struct {
	Name       string `json:"name"`
	ChassisID  string `json:"chassis_id,omitempty"`
	PortID     string `json:"port_id,omitempty"`
}

// Clock is a node-level clock descriptor: "internal" or "ptp".
type Clock struct {
	Name      string `json:"name"`
	RefType   string `json:"ref_type"`
	Traceable bool   `json:"traceable,omitempty"`
	GMID      string `json:"gmid,omitempty"`
	Domain    *int   `json:"domain,omitempty"`
	Locked    bool   `json:"locked,omitempty"`
}

// Service is a node-level service reference (e.g. a logging endpoint).
type Service struct {
	Href string `json:"href"`
	Type string `json:"type"`
}

// NodeData is the Node resource body.
type NodeData struct {
	Hostname   string      `json:"hostname"`
	Href       string      `json:"href"`
	Interfaces []Interface `json:"interfaces"`
	Clocks     []Clock     `json:"clocks"`
	Services   []Service   `json:"services"`
}

// Control is one IS-05 connection-API endpoint advertised by a Device.
type Control struct {
	Href string `json:"href"`
	Type string `json:"type"`
}

// DeviceData is the Device resource body.
type DeviceData struct {
	NodeID      uuid.UUID   `json:"node_id"`
	Type        string      `json:"type"`
	Controls    []Control   `json:"controls"`
	SenderIDs   []uuid.UUID `json:"senders"`   // deprecated IS-04 array, maintained per invariant 4
	ReceiverIDs []uuid.UUID `json:"receivers"` // deprecated IS-04 array, maintained per invariant 4
}

// Channel is one audio channel descriptor.
type Channel struct {
	Label  string `json:"label"`
	Symbol string `json:"symbol"`
}

// SourceData is the Source resource body.
type SourceData struct {
	DeviceID  uuid.UUID `json:"device_id"`
	Format    string    `json:"format"` // urn:x-nmos:format:{video,audio,data,mux}
	Clock     string    `json:"clock_name"`
	GrainRate *Rational `json:"grain_rate,omitempty"`
	Channels  []Channel `json:"channels,omitempty"`
}

// FlowData is the Flow resource body; only the fields relevant to the
// flow's format are populated, matching IS-04's per-format flow
// schemas (video_raw, jxsv, audio_raw, "urn:x-nmos:format:data" for
// SMPTE 291, "urn:x-nmos:format:mux" for SMPTE 2022-6).
type FlowData struct {
	SourceID uuid.UUID `json:"source_id"`
	Format   string    `json:"format"`
	MediaType string   `json:"media_type"`

	// uncompressed/JPEG XS video
	FrameWidth    int       `json:"frame_width,omitempty"`
	FrameHeight   int       `json:"frame_height,omitempty"`
	Interlace     bool      `json:"interlace_mode,omitempty"`
	ColorSampling string    `json:"colorspace,omitempty"`
	GrainRate     *Rational `json:"grain_rate,omitempty"`
	BitRateMbps   float64   `json:"bit_rate,omitempty"` // JPEG XS format bit rate

	// audio
	SampleRate  *Rational `json:"sample_rate,omitempty"`
	SampleDepth int       `json:"bit_depth,omitempty"`

	// SMPTE 291 ancillary data
	DIDSDID [][2]int `json:"did_sdid,omitempty"`
}

// Sender is the Sender resource body.
type Sender struct {
	DeviceID          uuid.UUID `json:"device_id"`
	FlowID            uuid.UUID `json:"flow_id"`
	Transport         string    `json:"transport"`
	InterfaceBindings []string  `json:"interface_bindings"`
	ManifestHref      string    `json:"manifest_href"`
	InternalID        string    `json:"-"`
}

// ConstraintSet is one set of IS-05 receiver capability constraints,
// keyed by full capability URN (e.g. "urn:x-nmos:cap:format:grain_rate").
type ConstraintSet map[string]Constraint

// Constraint is an IS-05 BCP-004-01 parameter constraint. Only the
// enum form is produced by this node's receiver-capability synthesis.
type Constraint struct {
	Enum []interface{} `json:"enum"`
}

// Caps is the Receiver resource's capability block.
type Caps struct {
	MediaTypes     []string        `json:"media_types"`
	ConstraintSets []ConstraintSet `json:"constraint_sets"`
}

// Receiver is the Receiver resource body.
type Receiver struct {
	DeviceID          uuid.UUID `json:"device_id"`
	Transport         string    `json:"transport"`
	Format            string    `json:"format"`
	Caps              Caps      `json:"caps"`
	InterfaceBindings []string  `json:"interface_bindings"`
	InternalID        string    `json:"-"`
}

const (
	FormatVideo = "urn:x-nmos:format:video"
	FormatAudio = "urn:x-nmos:format:audio"
	FormatData  = "urn:x-nmos:format:data"
	FormatMux   = "urn:x-nmos:format:mux"

	TransportRTP = "urn:x-nmos:transport:rtp"
)
