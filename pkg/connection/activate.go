package connection

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/NVIDIA/nvnmos/pkg/resource"
	"github.com/NVIDIA/nvnmos/pkg/sdp"
)

// HostActivate is the non-IS-05 activation path (spec section 4.5
// "Host-initiated activation"): given a host-supplied internal id and
// an SDP (or an empty string to deactivate), it locates the matching
// sender or receiver, rewrites its active endpoint directly, and
// notifies the host through the activation callback. It does not go
// through the staged endpoint or the auto resolver: the caller's SDP
// is taken as already resolved.
func (e *Engine) HostActivate(internalID string, sdpText string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if r, err := e.findSenderByInternalID(internalID); err == nil {
		return e.hostActivateSender(r.ID, sdpText)
	}
	if r, err := e.findReceiverByInternalID(internalID); err == nil {
		return e.hostActivateReceiver(r.ID, sdpText)
	}
	return fmt.Errorf("connection: no sender or receiver with internal id %q: %w", internalID, resource.ErrNotFound)
}

func (e *Engine) findSenderByInternalID(internalID string) (*resource.Resource, error) {
	for _, r := range e.connStore.Iter(resource.TypeConnectionSender) {
		if tags := r.Tags[resource.TagInternalID]; len(tags) == 1 && tags[0] == internalID {
			return r, nil
		}
	}
	return nil, resource.ErrNotFound
}

func (e *Engine) findReceiverByInternalID(internalID string) (*resource.Resource, error) {
	for _, r := range e.connStore.Iter(resource.TypeConnectionReceiver) {
		if tags := r.Tags[resource.TagInternalID]; len(tags) == 1 && tags[0] == internalID {
			return r, nil
		}
	}
	return nil, resource.ErrNotFound
}

func (e *Engine) hostActivateSender(senderID uuid.UUID, sdpText string) error {
	e.cancelSenderTimer(senderID)

	deactivate := sdpText == ""
	var transportFile string

	err := e.connStore.Modify(senderID, func(data interface{}) error {
		d := data.(*ConnectionSender)
		if deactivate {
			d.Active.MasterEnable = false
			transportFile = synthesizeSenderTransportFile(d.Skeleton, d.ActiveParams, e.now())
			d.TransportFile = transportFile
			return nil
		}

		p, err := sdp.Parse(sdpText, sdp.KindSender)
		if err != nil {
			return fmt.Errorf("connection: activate: parse sdp: %w", err)
		}
		d.Skeleton = p
		d.ActiveParams = legsToParams(p.Legs, sdp.KindSender)
		d.Active.MasterEnable = true
		transportFile = synthesizeSenderTransportFile(d.Skeleton, d.ActiveParams, e.now())
		d.TransportFile = transportFile
		return nil
	})
	if err != nil {
		return err
	}

	if e.onActive != nil {
		internalID, _ := e.internalIDOfSender(senderID)
		if deactivate {
			e.onActive(internalID, "")
		} else {
			e.onActive(internalID, transportFile)
		}
	}
	return nil
}

func (e *Engine) hostActivateReceiver(receiverID uuid.UUID, sdpText string) error {
	e.cancelReceiverTimer(receiverID)

	deactivate := sdpText == ""

	err := e.connStore.Modify(receiverID, func(data interface{}) error {
		d := data.(*ConnectionReceiver)
		if deactivate {
			d.Active.MasterEnable = false
			return nil
		}

		p, err := sdp.Parse(sdpText, sdp.KindReceiver)
		if err != nil {
			return fmt.Errorf("connection: activate: parse sdp: %w", err)
		}
		d.ActiveParams = legsToParams(p.Legs, sdp.KindReceiver)
		d.Active.MasterEnable = true
		d.ActiveTransportFile = sdpText
		return nil
	})
	if err != nil {
		return err
	}

	if e.onActive != nil {
		internalID, _ := e.internalIDOfReceiver(receiverID)
		if deactivate {
			e.onActive(internalID, "")
		} else {
			e.onActive(internalID, sdpText)
		}
	}
	return nil
}

func (e *Engine) internalIDOfSender(senderID uuid.UUID) (string, error) {
	r, err := e.connStore.Find(senderID, resource.TypeConnectionSender)
	if err != nil {
		return "", err
	}
	return r.Data.(*ConnectionSender).InternalID, nil
}

func (e *Engine) internalIDOfReceiver(receiverID uuid.UUID) (string, error) {
	r, err := e.connStore.Find(receiverID, resource.TypeConnectionReceiver)
	if err != nil {
		return "", err
	}
	return r.Data.(*ConnectionReceiver).InternalID, nil
}

func (e *Engine) cancelSenderTimer(senderID uuid.UUID) {
	_ = e.connStore.Modify(senderID, func(data interface{}) error {
		e.cancelScheduledSender(data.(*ConnectionSender))
		return nil
	})
}

func (e *Engine) cancelReceiverTimer(receiverID uuid.UUID) {
	_ = e.connStore.Modify(receiverID, func(data interface{}) error {
		e.cancelScheduledReceiver(data.(*ConnectionReceiver))
		return nil
	})
}

// legsToParams converts parsed SDP legs directly into resolved (non-
// "auto") transport params, for the host-initiated activation path
// where the host supplies already-concrete values.
func legsToParams(legs []sdp.TransportParams, kind sdp.Kind) []EndpointTransportParams {
	out := make([]EndpointTransportParams, len(legs))
	for i, leg := range legs {
		if kind == sdp.KindReceiver {
			out[i] = EndpointTransportParams{
				InterfaceIP:     StringParam(leg.InterfaceIP),
				MulticastIP:     StringParam(leg.MulticastIP),
				SourceIP:        StringParam(leg.SourceFilterIP),
				DestinationPort: IntParam(leg.DestinationPort),
				RTPEnabled:      leg.RTPEnabled,
			}
			continue
		}
		out[i] = EndpointTransportParams{
			SourceIP:        StringParam(leg.SourceIP),
			DestinationIP:   StringParam(leg.DestinationIP),
			DestinationPort: IntParam(leg.DestinationPort),
			SourcePort:      IntParam(leg.SourcePort),
			RTPEnabled:      leg.RTPEnabled,
		}
	}
	return out
}
