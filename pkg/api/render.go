package api

import (
	"encoding/json"
	"io"

	"github.com/NVIDIA/nvnmos/pkg/resource"
)

func encodeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	return enc.Encode(v)
}

// renderResource flattens a Resource's envelope (id, version, label,
// description, tags) together with its type-specific Data fields into
// the single JSON object IS-04 wire bodies expect.
func renderResource(r *resource.Resource) (map[string]interface{}, error) {
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

// collectionIDs returns the ids of every resource of the given type,
// satisfying spec section 4.6's "insertion-order-independent JSON
// order" for collection listings.
func collectionIDs(store *resource.Store, typ resource.Type) []string {
	rs := store.Iter(typ)
	ids := make([]string, 0, len(rs))
	for _, r := range rs {
		ids = append(ids, r.ID.String())
	}
	return ids
}
