package semcache

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/loreline/answerd/internal/domain"
)

// sourceDTO is the stored JSON shape of one source reference.
type sourceDTO struct {
	ID        string `json:"id"`
	PayloadID string `json:"payload_id,omitempty"`
	Snippet   string `json:"snippet,omitempty"`
}

func entryToFields(entry domain.CacheEntry) (map[string]string, error) {
	dtos := make([]sourceDTO, len(entry.Sources))
	for i, s := range entry.Sources {
		dtos[i] = sourceDTO{ID: s.ID, PayloadID: s.PayloadID, Snippet: s.Snippet}
	}
	sources, err := json.Marshal(dtos)
	if err != nil {
		return nil, fmt.Errorf("marshal cache sources: %w", err)
	}

	return map[string]string{
		fieldVector:   string(vectorToBytes(entry.Vector)),
		fieldQuery:    entry.Query,
		fieldResponse: entry.Response,
		fieldSources:  string(sources),
	}, nil
}

func entryFromFields(key, prefix string, fields map[string]string) (*domain.CacheEntry, error) {
	entry := &domain.CacheEntry{
		Key:      strings.TrimPrefix(key, prefix),
		Query:    fields[fieldQuery],
		Response: fields[fieldResponse],
	}

	if raw := fields[fieldSources]; raw != "" {
		var dtos []sourceDTO
		if err := json.Unmarshal([]byte(raw), &dtos); err != nil {
			return nil, fmt.Errorf("unmarshal cache sources: %w", err)
		}
		entry.Sources = make([]domain.SourceRef, len(dtos))
		for i, d := range dtos {
			entry.Sources[i] = domain.SourceRef{ID: d.ID, PayloadID: d.PayloadID, Snippet: d.Snippet}
		}
	}
	return entry, nil
}
