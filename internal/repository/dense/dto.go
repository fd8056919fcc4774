package dense

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/loreline/answerd/internal/domain"
)

// fieldMetadata holds metadata keys beyond the indexed status and payload_id,
// serialized as JSON.
const fieldMetadata = "metadata"

func docToFields(doc domain.Document, vector []float32) (map[string]string, error) {
	fields := map[string]string{
		fieldVector:  string(vectorToBytes(vector)),
		fieldContent: doc.Content,
		fieldStatus:  doc.Status(),
	}
	if p, ok := doc.Metadata["payload_id"].(string); ok && p != "" {
		fields[fieldPayloadID] = p
	}

	extra := map[string]any{}
	for k, v := range doc.Metadata {
		if k == "status" || k == "payload_id" {
			continue
		}
		extra[k] = v
	}
	if len(extra) > 0 {
		raw, err := json.Marshal(extra)
		if err != nil {
			return nil, fmt.Errorf("marshal document metadata: %w", err)
		}
		fields[fieldMetadata] = string(raw)
	}
	return fields, nil
}

func docFromFields(key, prefix string, fields map[string]string) (domain.Document, error) {
	metadata := map[string]any{}
	if raw := fields[fieldMetadata]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
			return domain.Document{}, fmt.Errorf("unmarshal document metadata: %w", err)
		}
	}
	if s := fields[fieldStatus]; s != "" {
		metadata["status"] = s
	}
	if p := fields[fieldPayloadID]; p != "" {
		metadata["payload_id"] = p
	}

	return domain.Document{
		ID:       strings.TrimPrefix(key, prefix),
		Content:  fields[fieldContent],
		Metadata: metadata,
	}, nil
}
