package connection

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/NVIDIA/nvnmos/internal/logger"
	"github.com/NVIDIA/nvnmos/pkg/idgen"
	"github.com/NVIDIA/nvnmos/pkg/resource"
)

// ActivationCallback is delivered whenever a sender or receiver
// transitions across the active boundary: (internalID, sdp) for an
// activation that leaves it enabled, (internalID, "") for a
// deactivation (spec section 4.5 "Activation callback").
//
// It is invoked while the engine's lock is held; callbacks must not
// call back into the engine or the facade (spec section 5 "Shared
// resources").
type ActivationCallback func(internalID string, sdpText string)

// Clock is the wall-clock seam scheduled activations are measured
// against (spec section 9, "Open question: scheduled activation
// clock").
type Clock func() time.Time

// Engine implements the per-sender/receiver staged/active state
// machine described in spec section 4.5.
type Engine struct {
	mu sync.Mutex

	connStore *resource.Store
	now       Clock
	onActive  ActivationCallback
	log       *logger.Logger
}

// NewEngine constructs an Engine. now defaults to time.Now if nil;
// onActive may be nil if the host does not need activation
// notifications.
func NewEngine(connStore *resource.Store, now Clock, onActive ActivationCallback, log *logger.Logger) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{connStore: connStore, now: now, onActive: onActive, log: log}
}

// StagedPatch is the subset of an IS-05 PATCH /staged body this engine
// understands: a nil field means "leave unchanged".
type StagedPatch struct {
	Params       []EndpointTransportParams
	MasterEnable *bool
	Mode         *ActivationMode
	RequestedTime string
}

// PatchSender merges patch into the sender's staged endpoint and, if
// the patch requests an activation, performs it (spec section 4.5
// "PATCH /staged").
func (e *Engine) PatchSender(senderID uuid.UUID, patch StagedPatch) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var mode ActivationMode
	var requestedTime string
	if err := e.connStore.Modify(senderID, func(data interface{}) error {
		d := data.(*ConnectionSender)
		e.cancelScheduledSender(d)
		applySenderPatch(d, patch)
		mode, requestedTime = d.Staged.Mode, d.Staged.RequestedTime
		return nil
	}); err != nil {
		return err
	}

	return e.scheduleOrActivateSender(senderID, mode, requestedTime)
}

// PatchReceiver is the receiver-side counterpart of PatchSender.
func (e *Engine) PatchReceiver(receiverID uuid.UUID, patch StagedPatch, transportFile string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var mode ActivationMode
	var requestedTime string
	if err := e.connStore.Modify(receiverID, func(data interface{}) error {
		d := data.(*ConnectionReceiver)
		e.cancelScheduledReceiver(d)
		applyReceiverPatch(d, patch)
		if transportFile != "" {
			d.StagedTransportFile = transportFile
		}
		mode, requestedTime = d.Staged.Mode, d.Staged.RequestedTime
		return nil
	}); err != nil {
		return err
	}

	return e.scheduleOrActivateReceiver(receiverID, mode, requestedTime)
}

func applySenderPatch(cs *ConnectionSender, patch StagedPatch) {
	if patch.Params != nil {
		cs.StagedParams = patch.Params
	}
	if patch.MasterEnable != nil {
		cs.Staged.MasterEnable = *patch.MasterEnable
	}
	if patch.Mode != nil {
		cs.Staged.Mode = *patch.Mode
		cs.Staged.RequestedTime = patch.RequestedTime
	}
}

func applyReceiverPatch(cr *ConnectionReceiver, patch StagedPatch) {
	if patch.Params != nil {
		cr.StagedParams = patch.Params
	}
	if patch.MasterEnable != nil {
		cr.Staged.MasterEnable = *patch.MasterEnable
	}
	if patch.Mode != nil {
		cr.Staged.Mode = *patch.Mode
		cr.Staged.RequestedTime = patch.RequestedTime
	}
}

// scheduleOrActivateSender honors a staged activation mode: immediate
// activates now, scheduled-relative/absolute arms a timer that a
// subsequent PATCH clearing the mode can race against (spec section
// 5 "Cancellation/timeouts").
func (e *Engine) scheduleOrActivateSender(senderID uuid.UUID, mode ActivationMode, requestedTime string) error {
	switch mode {
	case ActivateImmediate:
		return e.activateSenderLocked(senderID)
	case ActivateScheduledRelative, ActivateScheduledAbsolute:
		delay, err := activationDelay(mode, requestedTime, e.now())
		if err != nil {
			return err
		}
		e.armSenderTimer(senderID, delay)
	}
	return nil
}

func (e *Engine) scheduleOrActivateReceiver(receiverID uuid.UUID, mode ActivationMode, requestedTime string) error {
	switch mode {
	case ActivateImmediate:
		return e.activateReceiverLocked(receiverID)
	case ActivateScheduledRelative, ActivateScheduledAbsolute:
		delay, err := activationDelay(mode, requestedTime, e.now())
		if err != nil {
			return err
		}
		e.armReceiverTimer(receiverID, delay)
	}
	return nil
}

func activationDelay(mode ActivationMode, requestedTime string, now time.Time) (time.Duration, error) {
	switch mode {
	case ActivateScheduledRelative:
		secs, err := time.ParseDuration(requestedTime + "s")
		if err != nil {
			return 0, fmt.Errorf("connection: malformed requested_time %q: %w", requestedTime, err)
		}
		return secs, nil
	case ActivateScheduledAbsolute:
		var sec, ns int64
		if _, err := fmt.Sscanf(requestedTime, "%d:%d", &sec, &ns); err != nil {
			return 0, fmt.Errorf("connection: malformed requested_time %q: %w", requestedTime, err)
		}
		target := time.Unix(sec, ns)
		return target.Sub(now), nil
	default:
		return 0, nil
	}
}

func (e *Engine) armSenderTimer(senderID uuid.UUID, delay time.Duration) {
	timer := time.AfterFunc(delay, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		_ = e.activateSenderLocked(senderID)
	})
	if err := e.connStore.Modify(senderID, func(data interface{}) error {
		data.(*ConnectionSender).cancelScheduled = func() { timer.Stop() }
		return nil
	}); err != nil {
		timer.Stop()
	}
}

func (e *Engine) armReceiverTimer(receiverID uuid.UUID, delay time.Duration) {
	timer := time.AfterFunc(delay, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		_ = e.activateReceiverLocked(receiverID)
	})
	if err := e.connStore.Modify(receiverID, func(data interface{}) error {
		data.(*ConnectionReceiver).cancelScheduled = func() { timer.Stop() }
		return nil
	}); err != nil {
		timer.Stop()
	}
}

func (e *Engine) cancelScheduledSender(cs *ConnectionSender) {
	if cs.cancelScheduled != nil {
		cs.cancelScheduled()
		cs.cancelScheduled = nil
	}
}

func (e *Engine) cancelScheduledReceiver(cr *ConnectionReceiver) {
	if cr.cancelScheduled != nil {
		cr.cancelScheduled()
		cr.cancelScheduled = nil
	}
}

// ActivateSender copies staged into active, runs the auto resolver,
// re-synthesizes the transport file, and fires the activation
// callback (spec section 4.5 "Activation").
func (e *Engine) ActivateSender(senderID uuid.UUID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activateSenderLocked(senderID)
}

func (e *Engine) activateSenderLocked(senderID uuid.UUID) error {
	r, err := e.connStore.Find(senderID, resource.TypeConnectionSender)
	if err != nil {
		return err
	}
	cs := r.Data.(*ConnectionSender)

	resolved := make([]EndpointTransportParams, len(cs.StagedParams))
	copy(resolved, cs.StagedParams)
	for i := range resolved {
		resolveSenderLeg(&resolved[i], senderID, i, cs.Constraints[i])
	}

	transportFile := synthesizeSenderTransportFile(cs.Skeleton, resolved, e.now())

	err = e.connStore.Modify(senderID, func(data interface{}) error {
		d := data.(*ConnectionSender)
		d.ActiveParams = resolved
		d.Active = Activation{Mode: ActivateImmediate, MasterEnable: d.Staged.MasterEnable}
		d.TransportFile = transportFile
		return nil
	})
	if err != nil {
		return err
	}

	if e.onActive != nil {
		if cs.Staged.MasterEnable {
			e.onActive(cs.InternalID, transportFile)
		} else {
			e.onActive(cs.InternalID, "")
		}
	}
	return nil
}

// ActivateReceiver is the receiver-side counterpart of ActivateSender.
func (e *Engine) ActivateReceiver(receiverID uuid.UUID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activateReceiverLocked(receiverID)
}

func (e *Engine) activateReceiverLocked(receiverID uuid.UUID) error {
	r, err := e.connStore.Find(receiverID, resource.TypeConnectionReceiver)
	if err != nil {
		return err
	}
	cr := r.Data.(*ConnectionReceiver)

	resolved := make([]EndpointTransportParams, len(cr.StagedParams))
	copy(resolved, cr.StagedParams)
	for i := range resolved {
		resolveReceiverLeg(&resolved[i], cr.Constraints[i])
	}

	err = e.connStore.Modify(receiverID, func(data interface{}) error {
		d := data.(*ConnectionReceiver)
		d.ActiveParams = resolved
		d.Active = Activation{Mode: ActivateImmediate, MasterEnable: d.Staged.MasterEnable}
		d.ActiveTransportFile = d.StagedTransportFile
		return nil
	})
	if err != nil {
		return err
	}

	if e.onActive != nil {
		if cr.Staged.MasterEnable {
			e.onActive(cr.InternalID, cr.StagedTransportFile)
		} else {
			e.onActive(cr.InternalID, "")
		}
	}
	return nil
}

// resolveSenderLeg applies the auto resolver for one sender leg (spec
// section 4.5 "Auto resolver"): source_ip from the leg's constraint
// enum, destination_ip from the deterministic per-leg multicast
// address, source_port/destination_port left as-is if already
// resolved else defaulted.
func resolveSenderLeg(p *EndpointTransportParams, senderID uuid.UUID, leg int, constraints LegConstraints) {
	if p.SourceIP.Auto {
		if c, ok := constraints["source_ip"]; ok && len(c.Enum) > 0 {
			if s, ok := c.Enum[0].(string); ok {
				p.SourceIP = StringParam(s)
			}
		}
	}
	if p.DestinationIP.Auto {
		p.DestinationIP = StringParam(idgen.SourceSpecificMulticastV4(senderID, leg))
	}
	if p.DestinationPort.Auto {
		p.DestinationPort = IntParam(5004 + leg*2)
	}
	if p.SourcePort.Auto {
		p.SourcePort = IntParam(0)
	}
}

// resolveReceiverLeg applies the auto resolver for one receiver leg:
// interface_ip from the leg's constraint enum. No other field is
// resolved; any other "auto" value stays "auto" in the active params.
func resolveReceiverLeg(p *EndpointTransportParams, constraints LegConstraints) {
	if p.InterfaceIP.Auto {
		if c, ok := constraints["interface_ip"]; ok && len(c.Enum) > 0 {
			if s, ok := c.Enum[0].(string); ok {
				p.InterfaceIP = StringParam(s)
			}
		}
	}
}
