package domain

import (
	"encoding/json"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"github.com/anchored-notes/anchored-sync-service/pkg/timex"
)

// EnvelopeFormat identifies an export payload produced by this service
// or a compatible client.
const EnvelopeFormat = "anchored-notes"

// ExportMeta is the "_anchored" header of an export envelope.
type ExportMeta struct {
	Version    string     `json:"version"`
	ExportedAt timex.Time `json:"exportedAt"`
	Source     string     `json:"source"`
	Format     string     `json:"format"`
}

// Envelope is the import/export document. On the wire it is a flat
// object: the "_anchored" key holds the meta header and every other
// key is a domain mapped to its note array.
type Envelope struct {
	Meta    ExportMeta
	Domains map[string][]*Note
}

// MarshalJSON flattens meta and domains into one object.
func (e *Envelope) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(e.Domains)+1)
	out["_anchored"] = e.Meta
	for domain, notes := range e.Domains {
		if notes == nil {
			notes = []*Note{}
		}
		out[domain] = notes
	}
	return sonic.Marshal(out)
}

// UnmarshalJSON splits the flat object back into meta and domains.
// Reserved keys other than "_anchored" are ignored so that raw store
// dumps can be imported as-is.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "envelope: invalid JSON object")
	}

	e.Domains = make(map[string][]*Note)
	for key, value := range raw {
		if key == "_anchored" {
			if err := sonic.Unmarshal(value, &e.Meta); err != nil {
				return errors.Wrap(err, "envelope: invalid _anchored header")
			}
			continue
		}
		if ReservedKeys[key] {
			continue
		}
		var notes []*Note
		if err := sonic.Unmarshal(value, &notes); err != nil {
			return errors.Wrapf(err, "envelope: domain %q is not a note array", key)
		}
		e.Domains[key] = notes
	}
	return nil
}

// HasHeader reports whether the envelope carried a recognized
// "_anchored" header.
func (e *Envelope) HasHeader() bool {
	return e.Meta.Format == EnvelopeFormat
}

// NoteCount returns the total number of notes across all domains.
func (e *Envelope) NoteCount() int {
	n := 0
	for _, notes := range e.Domains {
		n += len(notes)
	}
	return n
}
