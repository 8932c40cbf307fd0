// Package connection implements ConnectionEngine, the IS-05 staged/
// active state machine for each sender and receiver (spec section 4.5
// "ConnectionEngine").
package connection

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/NVIDIA/nvnmos/pkg/sdp"
)

// Param is an IS-05 transport-parameter value that is either a
// concrete value or the literal string "auto", matching the wire
// encoding where every staged field may be left for the engine to
// resolve at activation time.
type Param struct {
	Auto  bool
	Value interface{} // string or float64, never both
}

// AutoParam is the unresolved sentinel.
func AutoParam() Param { return Param{Auto: true} }

// StringParam wraps a concrete string value.
func StringParam(v string) Param { return Param{Value: v} }

// IntParam wraps a concrete integer value.
func IntParam(v int) Param { return Param{Value: float64(v)} }

func (p Param) String() string {
	if p.Auto || p.Value == nil {
		return ""
	}
	s, _ := p.Value.(string)
	return s
}

func (p Param) Int() int {
	if p.Auto || p.Value == nil {
		return 0
	}
	switch v := p.Value.(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func (p Param) MarshalJSON() ([]byte, error) {
	if p.Auto || p.Value == nil {
		return json.Marshal("auto")
	}
	return json.Marshal(p.Value)
}

func (p *Param) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if s == "auto" {
			*p = Param{Auto: true}
			return nil
		}
		*p = Param{Value: s}
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*p = Param{Value: f}
		return nil
	}
	return fmt.Errorf("connection: transport param is neither \"auto\" nor a literal value")
}

// EndpointTransportParams is one leg of a sender's or receiver's
// staged/active transport parameters (spec section 4.2 / 4.5).
type EndpointTransportParams struct {
	SourceIP        Param `json:"source_ip,omitempty"`
	DestinationIP   Param `json:"destination_ip,omitempty"`
	DestinationPort Param `json:"destination_port,omitempty"`
	SourcePort      Param `json:"source_port,omitempty"`
	InterfaceIP     Param `json:"interface_ip,omitempty"`
	MulticastIP     Param `json:"multicast_ip,omitempty"`
	RTPEnabled      bool  `json:"rtp_enabled"`
}

// ActivationMode selects how an activation record is applied.
type ActivationMode string

const (
	ActivateNotActivated       ActivationMode = ""
	ActivateImmediate          ActivationMode = "activate_immediate"
	ActivateScheduledAbsolute  ActivationMode = "activate_scheduled_absolute"
	ActivateScheduledRelative  ActivationMode = "activate_scheduled_relative"
)

// Activation is the IS-05 activation record attached to a staged or
// active endpoint.
type Activation struct {
	Mode            ActivationMode `json:"mode,omitempty"`
	RequestedTime   string         `json:"requested_time,omitempty"`
	ActivationTime  string         `json:"activation_time,omitempty"`
	MasterEnable    bool           `json:"master_enable"`
}

// Constraint is a single endpoint-constraint enum used by the auto
// resolver (spec section 4.5 "Auto resolver"); unlike node.Constraint
// this is scoped to transport-parameter resolution, not receiver
// capability advertisement.
type Constraint struct {
	Enum []interface{} `json:"enum,omitempty"`
}

// LegConstraints is the set of per-field constraints for one leg.
type LegConstraints map[string]Constraint

// ConnectionSender is a sender's IS-05 connection-management twin.
type ConnectionSender struct {
	SenderID   uuid.UUID
	InternalID string

	// Skeleton is the original parsed SDP supplied to add_sender; the
	// transport-file synthesizer rebuilds from it on every activation.
	Skeleton *sdp.Parsed

	StagedParams []EndpointTransportParams
	ActiveParams []EndpointTransportParams
	Staged       Activation
	Active       Activation
	Constraints  []LegConstraints

	// TransportFile is the cached external-form SDP body served from
	// /transportfile; it is regenerated on every activation.
	TransportFile string

	cancelScheduled func()
}

// ConnectionReceiver is a receiver's IS-05 connection-management twin.
type ConnectionReceiver struct {
	ReceiverID uuid.UUID
	InternalID string

	StagedParams []EndpointTransportParams
	ActiveParams []EndpointTransportParams
	Staged       Activation
	Active       Activation
	Constraints  []LegConstraints

	// StagedTransportFile/ActiveTransportFile are host-supplied SDP
	// text describing what the receiver should expect to consume; the
	// receiver does not synthesize these, it only stores them.
	StagedTransportFile string
	ActiveTransportFile string

	cancelScheduled func()
}

func newLegConstraints(key string, ip string) LegConstraints {
	c := LegConstraints{}
	if ip != "" {
		c[key] = Constraint{Enum: []interface{}{ip}}
	}
	return c
}

// NewConnectionSender builds the initial connection-sender twin for a
// freshly added sender: active parameters reflect the literal values
// already present in the supplied SDP, and staged starts as a copy of
// active (spec section 3, ConnectionSender row).
func NewConnectionSender(senderID uuid.UUID, p *sdp.Parsed) *ConnectionSender {
	params := make([]EndpointTransportParams, len(p.Legs))
	constraints := make([]LegConstraints, len(p.Legs))
	for i, leg := range p.Legs {
		params[i] = EndpointTransportParams{
			SourceIP:        StringParam(leg.SourceIP),
			DestinationIP:   StringParam(leg.DestinationIP),
			DestinationPort: IntParam(leg.DestinationPort),
			SourcePort:      IntParam(leg.SourcePort),
			RTPEnabled:      leg.RTPEnabled,
		}
		constraints[i] = newLegConstraints("source_ip", leg.SourceIP)
	}
	staged := make([]EndpointTransportParams, len(params))
	copy(staged, params)

	return &ConnectionSender{
		SenderID:     senderID,
		InternalID:   p.InternalID,
		Skeleton:     p,
		StagedParams: staged,
		ActiveParams: params,
		Constraints:  constraints,
	}
}

// NewConnectionReceiver builds the initial connection-receiver twin
// for a freshly added receiver.
func NewConnectionReceiver(receiverID uuid.UUID, p *sdp.Parsed) *ConnectionReceiver {
	params := make([]EndpointTransportParams, len(p.Legs))
	constraints := make([]LegConstraints, len(p.Legs))
	for i, leg := range p.Legs {
		params[i] = EndpointTransportParams{
			InterfaceIP:     StringParam(leg.InterfaceIP),
			MulticastIP:     StringParam(leg.MulticastIP),
			SourceIP:        StringParam(leg.SourceFilterIP),
			DestinationPort: IntParam(leg.DestinationPort),
			RTPEnabled:      leg.RTPEnabled,
		}
		constraints[i] = newLegConstraints("interface_ip", leg.InterfaceIP)
	}
	staged := make([]EndpointTransportParams, len(params))
	copy(staged, params)

	return &ConnectionReceiver{
		ReceiverID:   receiverID,
		InternalID:   p.InternalID,
		StagedParams: staged,
		ActiveParams: params,
		Constraints:  constraints,
	}
}
