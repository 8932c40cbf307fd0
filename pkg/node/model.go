// Package node implements NodeModel, the business-rules layer over
// resource.Store that turns host calls and inbound SDP files into a
// consistent IS-04 resource graph (spec section 4.4 "NodeModel").
package node

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/NVIDIA/nvnmos/internal/logger"
	"github.com/NVIDIA/nvnmos/pkg/connection"
	"github.com/NVIDIA/nvnmos/pkg/idgen"
	"github.com/NVIDIA/nvnmos/pkg/resource"
	"github.com/NVIDIA/nvnmos/pkg/sdp"
)

// HostInterface is one network interface the embedding application has
// declared available for senders/receivers to bind to.
type HostInterface struct {
	Name    string
	Address string
}

// Settings configures a Model at construction time. Fields are copied;
// mutating a Settings value after NewModel returns has no effect.
type Settings struct {
	Seed            string
	Hostname        string
	HTTPPort        int
	Label           string
	Description     string
	Manufacturer    string
	Product         string
	InstanceID      string
	Functions       []string
	HostInterfaces  []HostInterface
}

// Model owns the node's own Node/Device/Source/Flow/Sender/Receiver
// resources and enforces the interface and clock invariants that span
// them (spec section 4.4, invariants 2 and 3). It also creates and
// deletes each sender/receiver's connection-management twin in
// connStore, since the twin's lifetime is tied 1:1 to the IS-04
// resource's lifetime even though ConnectionEngine owns its staged/
// active state.
type Model struct {
	mu sync.Mutex

	nodeStore *resource.Store
	connStore *resource.Store
	settings  Settings
	log       *logger.Logger

	nodeID   uuid.UUID
	deviceID uuid.UUID
}

// NewModel constructs a Model. Init must be called once before any
// Add/Remove call.
func NewModel(settings Settings, nodeStore, connStore *resource.Store, log *logger.Logger) *Model {
	return &Model{
		nodeStore: nodeStore,
		connStore: connStore,
		settings:  settings,
		log:       log,
		nodeID:    idgen.NodeID(settings.Seed),
		deviceID:  idgen.DeviceID(settings.Seed),
	}
}

// NodeID returns the node's deterministic identity.
func (m *Model) NodeID() uuid.UUID { return m.nodeID }

// DeviceID returns the node's single device's deterministic identity.
func (m *Model) DeviceID() uuid.UUID { return m.deviceID }

// Init seeds the store with this node's Node and Device resources. It
// is not idempotent: a second call re-inserts both resources under the
// same ids, replacing the existing ones (and any senders/receivers
// recorded on them); callers must call it exactly once per Model.
func (m *Model) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	controls := make([]Control, 0, 2)
	if m.settings.HTTPPort != 0 {
		controls = append(controls, Control{
			Href: fmt.Sprintf("http://%s:%d/x-nmos/connection/v1.1/", m.settings.Hostname, m.settings.HTTPPort),
			Type: "urn:x-nmos:control:sr-ctrl/v1.1",
		})
	}

	m.nodeStore.Insert(&resource.Resource{
		ID:          m.nodeID,
		Type:        resource.TypeNode,
		Label:       m.settings.Label,
		Description: m.settings.Description,
		Data: &NodeData{
			Hostname:   m.settings.Hostname,
			Href:       fmt.Sprintf("http://%s:%d/", m.settings.Hostname, m.settings.HTTPPort),
			Interfaces: nil,
			Clocks:     []Clock{{Name: "clk0", RefType: "internal"}},
			Services:   nil,
		},
	})

	m.nodeStore.Insert(&resource.Resource{
		ID:          m.deviceID,
		Type:        resource.TypeDevice,
		Label:       m.settings.Label,
		Description: m.settings.Description,
		Data: &DeviceData{
			NodeID:      m.nodeID,
			Type:        "urn:x-nmos:device:generic",
			Controls:    controls,
			SenderIDs:   nil,
			ReceiverIDs: nil,
		},
	})

	return nil
}

// AddSender parses sdpText as a sender-direction transport file,
// creates the Source/Flow/Sender IS-04 resources and the matching
// connection-sender twin, and returns the assigned internal id for use
// in later RemoveSender calls (spec section 4.4 "add_sender").
func (m *Model) AddSender(sdpText string) (string, error) {
	p, err := sdp.Parse(sdpText, sdp.KindSender)
	if err != nil {
		return "", fmt.Errorf("node: parse sender sdp: %w", err)
	}
	if len(p.Legs) == 0 {
		return "", fmt.Errorf("node: sender sdp has no media section")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.findByInternalID(p.InternalID, resource.TypeSender); err == nil {
		return "", fmt.Errorf("node: sender %q already exists", p.InternalID)
	}

	sdpFormat, err := sdp.DetectFormat(p.Legs[0].MediaType)
	if err != nil {
		return "", err
	}
	format := formatURN(sdpFormat)

	bindings, err := m.resolveBindings(p.Legs)
	if err != nil {
		return "", err
	}

	sourceID := idgen.ID(m.settings.Seed, idgen.KindSource, p.InternalID)
	flowID := idgen.ID(m.settings.Seed, idgen.KindFlow, p.InternalID)
	senderID := idgen.ID(m.settings.Seed, idgen.KindSender, p.InternalID)

	clk := sdp.ClockFromLegs(p.Legs, nil)
	clockName := m.applyClock(clk)

	m.nodeStore.Insert(&resource.Resource{
		ID:   sourceID,
		Type: resource.TypeSource,
		Data: &SourceData{
			DeviceID: m.deviceID,
			Format:   format,
			Clock:    clockName,
		},
	})
	m.nodeStore.Insert(&resource.Resource{
		ID:   flowID,
		Type: resource.TypeFlow,
		Data: &FlowData{
			SourceID: sourceID,
			Format:   format,
		},
	})
	m.nodeStore.Insert(&resource.Resource{
		ID:   senderID,
		Type: resource.TypeSender,
		Tags: map[string][]string{resource.TagInternalID: {p.InternalID}},
		Data: &Sender{
			DeviceID:          m.deviceID,
			FlowID:            flowID,
			Transport:         TransportRTP,
			InterfaceBindings: bindings,
			ManifestHref:      fmt.Sprintf("http://%s:%d/x-nmos/connection/v1.1/single/senders/%s/transportfile", m.settings.Hostname, m.settings.HTTPPort, senderID),
			InternalID:        p.InternalID,
		},
	})

	m.appendDeviceSender(senderID)
	m.recomputeInterfaces()

	m.connStore.Insert(&resource.Resource{
		ID:   senderID,
		Type: resource.TypeConnectionSender,
		Tags: map[string][]string{resource.TagInternalID: {p.InternalID}},
		Data: connection.NewConnectionSender(senderID, p),
	})

	return p.InternalID, nil
}

// AddReceiver parses sdpText as a receiver-direction transport file,
// creates the Receiver IS-04 resource and its connection-receiver
// twin, and returns the assigned internal id (spec section 4.4
// "add_receiver").
func (m *Model) AddReceiver(sdpText string) (string, error) {
	p, err := sdp.Parse(sdpText, sdp.KindReceiver)
	if err != nil {
		return "", fmt.Errorf("node: parse receiver sdp: %w", err)
	}
	if len(p.Legs) == 0 {
		return "", fmt.Errorf("node: receiver sdp has no media section")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.findByInternalID(p.InternalID, resource.TypeReceiver); err == nil {
		return "", fmt.Errorf("node: receiver %q already exists", p.InternalID)
	}

	sdpFormat, err := sdp.DetectFormat(p.Legs[0].MediaType)
	if err != nil {
		return "", err
	}
	format := formatURN(sdpFormat)

	bindings, err := m.resolveBindings(p.Legs)
	if err != nil {
		return "", err
	}

	receiverID := idgen.ID(m.settings.Seed, idgen.KindReceiver, p.InternalID)

	mediaTypes := []string{fmt.Sprintf("%s/raw", p.Legs[0].MediaType)}

	m.nodeStore.Insert(&resource.Resource{
		ID:   receiverID,
		Type: resource.TypeReceiver,
		Tags: map[string][]string{resource.TagInternalID: {p.InternalID}},
		Data: &Receiver{
			DeviceID:  m.deviceID,
			Transport: TransportRTP,
			Format:    format,
			Caps: Caps{
				MediaTypes:     mediaTypes,
				ConstraintSets: buildConstraintSets(format, p.Legs[0]),
			},
			InterfaceBindings: bindings,
			InternalID:        p.InternalID,
		},
	})

	m.appendDeviceReceiver(receiverID)
	m.recomputeInterfaces()

	m.connStore.Insert(&resource.Resource{
		ID:   receiverID,
		Type: resource.TypeConnectionReceiver,
		Tags: map[string][]string{resource.TagInternalID: {p.InternalID}},
		Data: connection.NewConnectionReceiver(receiverID, p),
	})

	return p.InternalID, nil
}

// RemoveSender deletes the sender, its Source/Flow, and its
// connection-sender twin, then recomputes node-level invariants (spec
// section 4.4 "remove_sender").
func (m *Model) RemoveSender(internalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, err := m.findByInternalID(internalID, resource.TypeSender)
	if err != nil {
		return err
	}
	snd := r.Data.(*Sender)

	if err := m.nodeStore.Erase(r.ID); err != nil {
		return err
	}
	if flow, ferr := m.nodeStore.Find(snd.FlowID, resource.TypeFlow); ferr == nil {
		_ = m.nodeStore.Erase(snd.FlowID)
		_ = m.nodeStore.Erase(flow.Data.(*FlowData).SourceID)
	}
	_ = m.connStore.Erase(r.ID)

	m.removeDeviceSender(r.ID)
	m.recomputeInterfaces()
	m.recomputeClocks()
	return nil
}

// RemoveReceiver deletes the receiver and its connection-receiver
// twin, then recomputes node-level invariants (spec section 4.4
// "remove_receiver").
func (m *Model) RemoveReceiver(internalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, err := m.findByInternalID(internalID, resource.TypeReceiver)
	if err != nil {
		return err
	}

	if err := m.nodeStore.Erase(r.ID); err != nil {
		return err
	}
	_ = m.connStore.Erase(r.ID)

	m.removeDeviceReceiver(r.ID)
	m.recomputeInterfaces()
	return nil
}

// findByInternalID scans senders or receivers for the one tagged with
// the host-supplied internalID. Callers must hold m.mu.
func (m *Model) findByInternalID(internalID string, typ resource.Type) (*resource.Resource, error) {
	for _, r := range m.nodeStore.Iter(typ) {
		if tags := r.Tags[resource.TagInternalID]; len(tags) == 1 && tags[0] == internalID {
			return r, nil
		}
	}
	return nil, fmt.Errorf("node: no %s with internal id %q: %w", typ, internalID, resource.ErrNotFound)
}

// resolveBindings maps each leg's interface address to a configured
// host interface name, per spec section 4.4's input-validation policy:
// a leg whose address matches no configured interface is rejected
// rather than silently dropped.
func (m *Model) resolveBindings(legs []sdp.TransportParams) ([]string, error) {
	bindings := make([]string, 0, len(legs))
	for _, leg := range legs {
		addr := leg.SourceIP
		if addr == "" {
			addr = leg.InterfaceIP
		}
		if addr == "" {
			bindings = append(bindings, "")
			continue
		}
		name, err := m.interfaceNameForAddress(addr)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, name)
	}
	return bindings, nil
}

func (m *Model) interfaceNameForAddress(addr string) (string, error) {
	for _, hi := range m.settings.HostInterfaces {
		if hi.Address == addr {
			return hi.Name, nil
		}
	}
	return "", fmt.Errorf("node: no configured interface for address %q", addr)
}

// recomputeInterfaces rebuilds the node's interfaces[] array as the
// exact union of every sender/receiver interface_bindings[] entry
// (spec section 4.4 invariant 2). The node is only modified when that
// set differs from the current one. Callers must hold m.mu.
func (m *Model) recomputeInterfaces() {
	seen := make(map[string]bool)
	var names []string
	collect := func(bindings []string) {
		for _, name := range bindings {
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			names = append(names, name)
		}
	}
	for _, r := range m.nodeStore.Iter(resource.TypeSender) {
		collect(r.Data.(*Sender).InterfaceBindings)
	}
	for _, r := range m.nodeStore.Iter(resource.TypeReceiver) {
		collect(r.Data.(*Receiver).InterfaceBindings)
	}

	ifaces := make([]Interface, 0, len(names))
	for _, n := range names {
		ifaces = append(ifaces, Interface{Name: n})
	}

	if n, err := m.nodeStore.Find(m.nodeID, resource.TypeNode); err == nil {
		cur := n.Data.(*NodeData).Interfaces
		same := len(cur) == len(ifaces)
		for _, ci := range cur {
			same = same && seen[ci.Name]
		}
		if same {
			return
		}
	}

	_ = m.nodeStore.Modify(m.nodeID, func(data interface{}) error {
		data.(*NodeData).Interfaces = ifaces
		return nil
	})
}

// applyClock upgrades or confirms the node's clk0 descriptor from a
// sender's ts-refclk (spec section 4.4 invariant 3), returning the
// clock name a Source should reference. A nil clk (no PTP
// information present) leaves the existing clock alone and the Source
// falls back to "internal".
func (m *Model) applyClock(clk *sdp.Clock) string {
	if clk == nil || clk.Family != sdp.ClockPTP {
		return "internal"
	}

	_ = m.nodeStore.Modify(m.nodeID, func(data interface{}) error {
		nd := data.(*NodeData)
		for i := range nd.Clocks {
			if nd.Clocks[i].Name == "clk0" {
				nd.Clocks[i].RefType = "ptp"
				nd.Clocks[i].GMID = clk.GMID
				nd.Clocks[i].Traceable = clk.Traceable
				nd.Clocks[i].Domain = clk.PTPDomain
				return nil
			}
		}
		nd.Clocks = append(nd.Clocks, Clock{Name: "clk0", RefType: "ptp", GMID: clk.GMID, Traceable: clk.Traceable, Domain: clk.PTPDomain})
		return nil
	})
	return "clk0"
}

// recomputeClocks reverts clk0 to "internal" once no remaining Source
// references it, the other half of spec section 4.4 invariant 3:
// removing the last PTP-carrying sender undoes applyClock's upgrade.
// Callers must hold m.mu.
func (m *Model) recomputeClocks() {
	for _, r := range m.nodeStore.Iter(resource.TypeSource) {
		if r.Data.(*SourceData).Clock == "clk0" {
			return
		}
	}

	n, err := m.nodeStore.Find(m.nodeID, resource.TypeNode)
	if err != nil {
		return
	}
	needsRevert := false
	for _, c := range n.Data.(*NodeData).Clocks {
		needsRevert = needsRevert || (c.Name == "clk0" && c.RefType != "internal")
	}
	if !needsRevert {
		return
	}

	_ = m.nodeStore.Modify(m.nodeID, func(data interface{}) error {
		nd := data.(*NodeData)
		for i := range nd.Clocks {
			if nd.Clocks[i].Name == "clk0" && nd.Clocks[i].RefType != "internal" {
				nd.Clocks[i] = Clock{Name: "clk0", RefType: "internal"}
			}
		}
		return nil
	})
}

func (m *Model) appendDeviceSender(id uuid.UUID) {
	_ = m.nodeStore.Modify(m.deviceID, func(data interface{}) error {
		dd := data.(*DeviceData)
		dd.SenderIDs = append(dd.SenderIDs, id)
		return nil
	})
}

func (m *Model) appendDeviceReceiver(id uuid.UUID) {
	_ = m.nodeStore.Modify(m.deviceID, func(data interface{}) error {
		dd := data.(*DeviceData)
		dd.ReceiverIDs = append(dd.ReceiverIDs, id)
		return nil
	})
}

func (m *Model) removeDeviceSender(id uuid.UUID) {
	_ = m.nodeStore.Modify(m.deviceID, func(data interface{}) error {
		dd := data.(*DeviceData)
		dd.SenderIDs = removeUUID(dd.SenderIDs, id)
		return nil
	})
}

func (m *Model) removeDeviceReceiver(id uuid.UUID) {
	_ = m.nodeStore.Modify(m.deviceID, func(data interface{}) error {
		dd := data.(*DeviceData)
		dd.ReceiverIDs = removeUUID(dd.ReceiverIDs, id)
		return nil
	})
}

// formatURN maps an sdp.Format (the codec's plain-word form) to the
// "urn:x-nmos:format:*" form used throughout the resource graph.
func formatURN(f sdp.Format) string {
	switch f {
	case sdp.FormatVideo:
		return FormatVideo
	case sdp.FormatAudio:
		return FormatAudio
	case sdp.FormatData:
		return FormatData
	case sdp.FormatMux:
		return FormatMux
	default:
		return string(f)
	}
}

func removeUUID(ids []uuid.UUID, target uuid.UUID) []uuid.UUID {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}
