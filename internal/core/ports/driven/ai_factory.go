package driven

import (
	"github.com/custodia-labs/sercha-originality/internal/core/domain"
)

// AIServiceFactory builds the embedding provider named in the settings.
// Unconfigured settings yield nil, nil: the semantic layer is then skipped.
type AIServiceFactory interface {
	CreateEmbeddingService(settings *domain.EmbeddingSettings) (EmbeddingService, error)
}
