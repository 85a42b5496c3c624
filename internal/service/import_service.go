package service

import (
	"context"
	"sort"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/anchored-notes/anchored-sync-service/internal/bus"
	"github.com/anchored-notes/anchored-sync-service/internal/domain"
	"github.com/anchored-notes/anchored-sync-service/pkg/code"
	"github.com/anchored-notes/anchored-sync-service/pkg/logger"
)

// ImportService merges export envelopes into the store.
type ImportService interface {
	// Import parses and merges a raw envelope payload
	Import(ctx context.Context, payload []byte) (*domain.ImportResult, error)

	// ImportEnvelope merges an already parsed envelope
	ImportEnvelope(ctx context.Context, env *domain.Envelope) (*domain.ImportResult, error)
}

type importService struct {
	repo   domain.NoteRepository
	bus    *bus.Bus
	logger *zap.Logger
}

// NewImportService creates an ImportService.
func NewImportService(repo domain.NoteRepository, eventBus *bus.Bus, lg *zap.Logger) ImportService {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &importService{
		repo:   repo,
		bus:    eventBus,
		logger: lg,
	}
}

func (s *importService) Import(ctx context.Context, payload []byte) (*domain.ImportResult, error) {
	var env domain.Envelope
	if err := sonic.Unmarshal(payload, &env); err != nil {
		return nil, code.ErrorImportInvalidPayload.WithDetails(err.Error())
	}
	return s.ImportEnvelope(ctx, &env)
}

// ImportEnvelope merges domain by domain. A failing domain is recorded
// in the result and does not roll back or block the other domains.
func (s *importService) ImportEnvelope(ctx context.Context, env *domain.Envelope) (*domain.ImportResult, error) {
	if env == nil || !env.HasHeader() {
		return nil, code.ErrorImportInvalidPayload.WithDetails("missing _anchored header")
	}
	if len(env.Domains) == 0 {
		return nil, code.ErrorImportInvalidPayload.WithDetails("no domain buckets")
	}

	if !s.repo.Loaded() {
		if err := s.repo.Load(ctx); err != nil {
			return nil, err
		}
	}

	// deterministic merge order
	domains := make([]string, 0, len(env.Domains))
	for d := range env.Domains {
		domains = append(domains, d)
	}
	sort.Strings(domains)

	result := &domain.ImportResult{Domains: make(map[string]string, len(domains))}
	failed := 0
	for _, d := range domains {
		merge, err := s.repo.MergeBucket(ctx, d, env.Domains[d])
		if err != nil {
			failed++
			result.Domains[d] = err.Error()
			s.logger.Error("domain merge failed",
				zap.String(logger.FieldDomain, d),
				zap.Error(err))
			continue
		}
		result.Imported += merge.Imported
		result.Updated += merge.Updated
		result.Skipped += merge.Skipped
		result.Domains[d] = "ok"
	}

	if failed == len(domains) {
		return result, code.ErrorImportFailed.WithDetails("all domains failed")
	}

	s.bus.Emit(domain.EventNotesImported, result)
	s.logger.Info("import finished",
		zap.Int("imported", result.Imported),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
		zap.Int("failedDomains", failed))

	return result, nil
}
