package models

import (
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"
)

// ColdPayload is the on-disk shape of a single payloads/<row_id>.mp file:
// the message's original body, kept in full for on-demand retrieval and
// for the query engine's text-search fallback.
type ColdPayload struct {
	BodyJSON json.RawMessage `msgpack:"body_json"`
}

// EncodePayload serializes a cold payload to MessagePack bytes.
func EncodePayload(bodyJSON json.RawMessage) ([]byte, error) {
	return msgpack.Marshal(&ColdPayload{BodyJSON: bodyJSON})
}

// DecodePayload deserializes MessagePack bytes back into a body_json value.
func DecodePayload(data []byte) (json.RawMessage, error) {
	var p ColdPayload
	if err := msgpack.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return p.BodyJSON, nil
}
