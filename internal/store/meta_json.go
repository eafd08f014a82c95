package store

import (
	"encoding/json"

	"github.com/secstrace/tracecore/internal/apperr"
	"github.com/secstrace/tracecore/pkg/models"
)

func marshalMeta(meta models.SessionMeta) ([]byte, error) {
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindIO, "failed marshaling session metadata", err)
	}
	return data, nil
}

func unmarshalMeta(data []byte) (models.SessionMeta, error) {
	var meta models.SessionMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return models.SessionMeta{}, apperr.Wrap(apperr.KindIO, "failed unmarshaling session metadata", err)
	}
	return meta, nil
}
