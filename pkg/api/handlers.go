package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/NVIDIA/nvnmos/pkg/connection"
	"github.com/NVIDIA/nvnmos/pkg/resource"
)

func (s *Server) handleNodeAPIRoot(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, []string{
		"self/", "devices/", "sources/", "flows/", "senders/", "receivers/",
	})
}

func (s *Server) handleConnectionAPIRoot(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, []string{"single/"})
}

func (s *Server) handleSelf(w http.ResponseWriter, r *http.Request) {
	res, err := s.nodeStore.Find(s.model.NodeID(), resource.TypeNode)
	if err != nil {
		s.notFound(w, err)
		return
	}
	body, err := renderResource(res)
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.sendJSON(w, http.StatusOK, body)
}

// handleCollection returns a closure listing every resource id of typ,
// one path segment per id (spec section 4.6 "collection listings").
func (s *Server) handleCollection(typ resource.Type) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids := collectionIDs(s.nodeStore, typ)
		listing := make([]string, len(ids))
		for i, id := range ids {
			listing[i] = id + "/"
		}
		s.sendJSON(w, http.StatusOK, listing)
	}
}

func (s *Server) handleResourceByID(typ resource.Type) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			s.badRequest(w, err)
			return
		}
		res, err := s.nodeStore.Find(id, typ)
		if err != nil {
			s.notFound(w, err)
			return
		}
		body, err := renderResource(res)
		if err != nil {
			s.sendError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.sendJSON(w, http.StatusOK, body)
	}
}

// stagedRequest is the subset of an IS-05 PATCH /staged body this
// server understands (spec section 4.6 "PATCH /staged").
type stagedRequest struct {
	MasterEnable    *bool                                `json:"master_enable,omitempty"`
	Activation      *activationRequest                   `json:"activation,omitempty"`
	TransportParams []connection.EndpointTransportParams `json:"transport_params,omitempty"`
	TransportFile   *transportFileRequest                `json:"transport_file,omitempty"`
}

type activationRequest struct {
	Mode          string `json:"mode"`
	RequestedTime string `json:"requested_time"`
}

type transportFileRequest struct {
	Data string `json:"data"`
}

func (s *Server) handleSenderStaged(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.badRequest(w, err)
		return
	}

	if r.Method == http.MethodPatch {
		var req stagedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.badRequest(w, err)
			return
		}
		if err := s.engine.PatchSender(id, stagedPatchFromRequest(req)); err != nil {
			s.patchError(w, err)
			return
		}
	}

	res, err := s.connStore.Find(id, resource.TypeConnectionSender)
	if err != nil {
		s.notFound(w, err)
		return
	}
	cs := res.Data.(*connection.ConnectionSender)
	s.sendJSON(w, http.StatusOK, renderSenderEndpoint(cs.StagedParams, cs.Staged))
}

func (s *Server) handleSenderActive(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.badRequest(w, err)
		return
	}
	res, err := s.connStore.Find(id, resource.TypeConnectionSender)
	if err != nil {
		s.notFound(w, err)
		return
	}
	cs := res.Data.(*connection.ConnectionSender)
	s.sendJSON(w, http.StatusOK, renderSenderEndpoint(cs.ActiveParams, cs.Active))
}

func (s *Server) handleSenderTransportFile(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.badRequest(w, err)
		return
	}
	res, err := s.connStore.Find(id, resource.TypeConnectionSender)
	if err != nil {
		s.notFound(w, err)
		return
	}
	cs := res.Data.(*connection.ConnectionSender)
	w.Header().Set("Content-Type", "application/sdp")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(cs.TransportFile))
}

func (s *Server) handleSenderConstraints(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.badRequest(w, err)
		return
	}
	res, err := s.connStore.Find(id, resource.TypeConnectionSender)
	if err != nil {
		s.notFound(w, err)
		return
	}
	cs := res.Data.(*connection.ConnectionSender)
	s.sendJSON(w, http.StatusOK, cs.Constraints)
}

func (s *Server) handleReceiverStaged(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.badRequest(w, err)
		return
	}

	if r.Method == http.MethodPatch {
		var req stagedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.badRequest(w, err)
			return
		}
		transportFile := ""
		if req.TransportFile != nil {
			transportFile = req.TransportFile.Data
		}
		if err := s.engine.PatchReceiver(id, stagedPatchFromRequest(req), transportFile); err != nil {
			s.patchError(w, err)
			return
		}
	}

	res, err := s.connStore.Find(id, resource.TypeConnectionReceiver)
	if err != nil {
		s.notFound(w, err)
		return
	}
	cr := res.Data.(*connection.ConnectionReceiver)
	body := renderReceiverEndpoint(cr.StagedParams, cr.Staged)
	body["sender_id"] = nil
	s.sendJSON(w, http.StatusOK, body)
}

func (s *Server) handleReceiverActive(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.badRequest(w, err)
		return
	}
	res, err := s.connStore.Find(id, resource.TypeConnectionReceiver)
	if err != nil {
		s.notFound(w, err)
		return
	}
	cr := res.Data.(*connection.ConnectionReceiver)
	s.sendJSON(w, http.StatusOK, renderReceiverEndpoint(cr.ActiveParams, cr.Active))
}

func (s *Server) handleReceiverConstraints(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.badRequest(w, err)
		return
	}
	res, err := s.connStore.Find(id, resource.TypeConnectionReceiver)
	if err != nil {
		s.notFound(w, err)
		return
	}
	cr := res.Data.(*connection.ConnectionReceiver)
	s.sendJSON(w, http.StatusOK, cr.Constraints)
}

func (s *Server) patchError(w http.ResponseWriter, err error) {
	s.sendError(w, http.StatusBadRequest, err.Error())
}

func stagedPatchFromRequest(req stagedRequest) connection.StagedPatch {
	patch := connection.StagedPatch{MasterEnable: req.MasterEnable}
	if req.TransportParams != nil {
		patch.Params = req.TransportParams
	}
	if req.Activation != nil {
		mode := connection.ActivationMode(req.Activation.Mode)
		patch.Mode = &mode
		patch.RequestedTime = req.Activation.RequestedTime
	}
	return patch
}

func renderSenderEndpoint(params []connection.EndpointTransportParams, act connection.Activation) map[string]interface{} {
	return map[string]interface{}{
		"master_enable":    act.MasterEnable,
		"activation":       act,
		"transport_params": params,
	}
}

func renderReceiverEndpoint(params []connection.EndpointTransportParams, act connection.Activation) map[string]interface{} {
	return map[string]interface{}{
		"master_enable":    act.MasterEnable,
		"activation":       act,
		"transport_params": params,
	}
}
