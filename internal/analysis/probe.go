package analysis

import (
	"context"
	"fmt"

	"github.com/oukeidos/xraylens/internal/apperrors"
	"github.com/oukeidos/xraylens/internal/llm"
	"github.com/oukeidos/xraylens/internal/logger"
	"github.com/oukeidos/xraylens/internal/metrics"
)

const probePrompt = "Reply with the single word: ok"

// CheckConnectivity sends one minimal text request without retries. Any
// failure is reported as a connectivity error.
func (s *Service) CheckConnectivity(ctx context.Context) (bool, error) {
	if s.Generator == nil {
		metrics.ConnectivityUp.Set(0)
		return false, apperrors.Connectivity(fmt.Errorf("analysis service has no model client"))
	}
	_, err := s.Generator.Generate(ctx, llm.Request{Parts: []llm.Part{llm.TextPart(probePrompt)}})
	metrics.ModelAttemptsTotal.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		metrics.ConnectivityUp.Set(0)
		logger.Warn("Connectivity check failed", "model", s.Generator.ModelID(), "error", err)
		return false, apperrors.Connectivity(err)
	}
	metrics.ConnectivityUp.Set(1)
	logger.Debug("Connectivity check succeeded", "model", s.Generator.ModelID())
	return true, nil
}
