package content

import (
	"encoding/json"
	"errors"
	"maps"
	"time"
)

var (
	ErrNotFound       = errors.New("document not found")
	ErrUnknownSection = errors.New("unknown section")
)

// Document is a schemaless JSON object in a section.
type Document struct {
	ID        string
	Section   Section
	Data      map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MarshalJSON flattens the document into its fields plus "id".
func (d Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Data)+1)
	maps.Copy(out, d.Data)
	out["id"] = d.ID
	return json.Marshal(out)
}

// merge copies the top-level fields of patch into base. Fields not in patch are kept.
func merge(base, patch map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(patch))
	maps.Copy(out, base)
	for k, v := range patch {
		if k == "id" {
			continue
		}
		out[k] = v
	}
	return out
}

// Portfolio is the public aggregate served to the site.
type Portfolio struct {
	Personal   map[string]any `json:"personal"`
	Skills     []Document     `json:"skills"`
	Experience []Document     `json:"experience"`
	Projects   []Document     `json:"projects"`
	Education  []Document     `json:"education"`
	Papers     []Document     `json:"papers"`
}
