package usage

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pipelineatlas/atlas-api/models"
)

// DecodePayload extracts the JSON payload from a stream entry. Entries carry
// their body as a JSON document in the "payload" field; a missing field
// decodes as an empty payload.
func DecodePayload(values map[string]interface{}) (map[string]interface{}, error) {
	raw, ok := values["payload"]
	if !ok {
		return map[string]interface{}{}, nil
	}

	var data []byte
	switch v := raw.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return nil, fmt.Errorf("payload field has unexpected type %T", raw)
	}

	payload := map[string]interface{}{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	return payload, nil
}

// TenantID resolves the tenant a payload belongs to. Checks the top-level
// tenant_id first, then metadata.tenant_id, and attributes everything else
// to the default tenant. Empty strings count as absent.
func TenantID(payload map[string]interface{}) string {
	if id, ok := payload["tenant_id"].(string); ok && id != "" {
		return id
	}
	if metadata, ok := payload["metadata"].(map[string]interface{}); ok {
		if id, ok := metadata["tenant_id"].(string); ok && id != "" {
			return id
		}
	}
	return models.DefaultTenantID
}

// TokensUsed reads the tokens_used field, tolerating the number arriving as
// a JSON number or a string. Absent or unparseable values count as zero.
func TokensUsed(payload map[string]interface{}) int64 {
	switch v := payload["tokens_used"].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0
		}
		return n
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
