package service

import (
	"context"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/anchored-notes/anchored-sync-service/internal/bus"
	"github.com/anchored-notes/anchored-sync-service/internal/domain"
	"github.com/anchored-notes/anchored-sync-service/internal/dto"
	"github.com/anchored-notes/anchored-sync-service/pkg/code"
	"github.com/anchored-notes/anchored-sync-service/pkg/timex"
)

// MigrationService detects whether local data needs a migration and
// validates candidate import payloads. Browser extension stores are
// sandboxed, so migration is always a manual export/import round trip.
type MigrationService interface {
	// CheckLocalData reports whether a migration is needed
	CheckLocalData(ctx context.Context) (*domain.MigrationReport, error)

	// ValidatePayload checks a raw payload without committing it
	ValidatePayload(ctx context.Context, payload []byte) *dto.MigrationValidateResponse

	// RunMigration imports a payload and emits migration events
	RunMigration(ctx context.Context, payload []byte) (*domain.MigrationReport, error)
}

type migrationService struct {
	repo          domain.NoteRepository
	importSvc     ImportService
	bus           *bus.Bus
	logger        *zap.Logger
	canDecrypt    bool
	targetVersion string
}

// NewMigrationService creates a MigrationService. canDecrypt reports
// whether the current context holds a decryption capability for
// encrypted note fields.
func NewMigrationService(repo domain.NoteRepository, importSvc ImportService, eventBus *bus.Bus, targetVersion string, canDecrypt bool, lg *zap.Logger) MigrationService {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &migrationService{
		repo:          repo,
		importSvc:     importSvc,
		bus:           eventBus,
		logger:        lg,
		canDecrypt:    canDecrypt,
		targetVersion: targetVersion,
	}
}

// CheckLocalData short-circuits when local notes already exist.
func (s *migrationService) CheckLocalData(ctx context.Context) (*domain.MigrationReport, error) {
	if !s.repo.Loaded() {
		if err := s.repo.Load(ctx); err != nil {
			return nil, err
		}
	}

	notes, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	domains, err := s.repo.Domains(ctx)
	if err != nil {
		return nil, err
	}

	report := &domain.MigrationReport{
		Needed:    len(notes) == 0,
		ToVersion: s.targetVersion,
		NoteCount: len(notes),
		Domains:   domains,
		Timestamp: timex.Now(),
	}
	return report, nil
}

// ValidatePayload requires the "_anchored" header with the recognized
// format and at least one array-valued domain entry.
func (s *migrationService) ValidatePayload(ctx context.Context, payload []byte) *dto.MigrationValidateResponse {
	res := &dto.MigrationValidateResponse{}

	var env domain.Envelope
	if err := sonic.Unmarshal(payload, &env); err != nil {
		return res
	}
	if !env.HasHeader() || len(env.Domains) == 0 {
		return res
	}

	res.Valid = true
	res.NoteCount = env.NoteCount()
	res.DomainCount = len(env.Domains)

	for _, notes := range env.Domains {
		for _, n := range notes {
			if n != nil && n.IsEncrypted() {
				res.HasEncryptedNotes = true
			}
		}
	}
	res.EncryptionCompatible = !res.HasEncryptedNotes || s.canDecrypt
	return res
}

// RunMigration validates, imports and reports. Failures emit
// migration:error; success emits migration:complete.
func (s *migrationService) RunMigration(ctx context.Context, payload []byte) (*domain.MigrationReport, error) {
	check := s.ValidatePayload(ctx, payload)
	if !check.Valid {
		return s.fail("payload is not a recognized export envelope")
	}
	if !check.EncryptionCompatible {
		report := &domain.MigrationReport{
			ToVersion: s.targetVersion,
			Error:     code.ErrorEncryptionIncompatible.Msg(),
			Timestamp: timex.Now(),
		}
		s.bus.Emit(domain.EventMigrationError, report)
		return report, code.ErrorEncryptionIncompatible
	}

	var env domain.Envelope
	if err := sonic.Unmarshal(payload, &env); err != nil {
		return s.fail(err.Error())
	}

	result, err := s.importSvc.ImportEnvelope(ctx, &env)
	if err != nil {
		return s.fail(err.Error())
	}

	domains := make([]string, 0, len(result.Domains))
	for d := range result.Domains {
		domains = append(domains, d)
	}

	report := &domain.MigrationReport{
		FromVersion: env.Meta.Version,
		ToVersion:   s.targetVersion,
		NoteCount:   result.Imported + result.Updated,
		Domains:     domains,
		Timestamp:   timex.Now(),
	}
	s.bus.Emit(domain.EventMigrationComplete, report)
	s.logger.Info("migration complete",
		zap.String("fromVersion", report.FromVersion),
		zap.Int("notes", report.NoteCount))

	return report, nil
}

func (s *migrationService) fail(detail string) (*domain.MigrationReport, error) {
	report := &domain.MigrationReport{
		ToVersion: s.targetVersion,
		Error:     detail,
		Timestamp: timex.Now(),
	}
	s.bus.Emit(domain.EventMigrationError, report)
	return report, code.ErrorImportInvalidPayload.WithDetails(detail)
}
