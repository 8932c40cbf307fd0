package discovery

import (
	"encoding/json"

	"github.com/NVIDIA/nvnmos/pkg/resource"
)

// renderResourceBody flattens a Resource into the envelope shape the
// registration API expects, the same flattening pkg/api uses for
// client-facing reads (spec section 4.6/4.7 share one wire shape).
func renderResourceBody(r *resource.Resource) (map[string]interface{}, error) {
	body, err := json.Marshal(r.Data)
	if err != nil {
		return nil, err
	}
	out := map[string]interface{}{}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}

	out["id"] = r.ID.String()
	out["version"] = r.Version.String()
	out["label"] = r.Label
	out["description"] = r.Description
	if r.Tags == nil {
		out["tags"] = map[string][]string{}
	} else {
		out["tags"] = r.Tags
	}
	return out, nil
}
