package service

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/anchored-notes/anchored-sync-service/internal/domain"
	"github.com/anchored-notes/anchored-sync-service/internal/dto"
	"github.com/anchored-notes/anchored-sync-service/pkg/convert"
)

// NoteService is the repository facade consumed by the HTTP and
// WebSocket surfaces.
type NoteService interface {
	// Get returns one note by id
	Get(ctx context.Context, id string) (*domain.Note, error)

	// List returns notes filtered by domain or URL; with no filter it
	// returns everything, newest first
	List(ctx context.Context, params *dto.NoteListRequest) ([]*domain.Note, error)

	// Save creates or updates a note
	Save(ctx context.Context, params *dto.NoteSaveRequest) (*domain.Note, error)

	// Delete removes one note by id
	Delete(ctx context.Context, id string) (*domain.Note, error)

	// DeleteDomain removes a whole domain and returns the note count
	DeleteDomain(ctx context.Context, domain string) (int, error)

	// Domains returns the known domain names
	Domains(ctx context.Context) ([]string, error)

	// Export builds the export envelope, optionally narrowed to domains
	Export(ctx context.Context, domains ...string) (*domain.Envelope, error)

	// Cleanup purges expired soft-deleted notes
	Cleanup(ctx context.Context) (int, error)
}

type noteService struct {
	repo   domain.NoteRepository
	sf     *singleflight.Group
	config *ServiceConfig
}

// NewNoteService creates a NoteService.
func NewNoteService(repo domain.NoteRepository, config *ServiceConfig) NoteService {
	if config == nil {
		config = DefaultServiceConfig()
	}
	return &noteService{
		repo:   repo,
		sf:     &singleflight.Group{},
		config: config,
	}
}

func (s *noteService) Get(ctx context.Context, id string) (*domain.Note, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *noteService) List(ctx context.Context, params *dto.NoteListRequest) ([]*domain.Note, error) {
	if params != nil && params.URL != "" {
		return s.repo.GetByURL(ctx, params.URL)
	}
	if params != nil && params.Domain != "" {
		return s.repo.GetByDomain(ctx, params.Domain)
	}
	return s.repo.GetAll(ctx)
}

func (s *noteService) Save(ctx context.Context, params *dto.NoteSaveRequest) (*domain.Note, error) {
	note := &domain.Note{}
	convert.StructAssign(params, note)
	return s.repo.Save(ctx, note)
}

func (s *noteService) Delete(ctx context.Context, id string) (*domain.Note, error) {
	return s.repo.Delete(ctx, id)
}

func (s *noteService) DeleteDomain(ctx context.Context, d string) (int, error) {
	return s.repo.DeleteByDomain(ctx, d)
}

func (s *noteService) Domains(ctx context.Context) ([]string, error) {
	return s.repo.Domains(ctx)
}

// Export deduplicates concurrent identical export requests through
// singleflight; building an envelope walks the whole cache.
func (s *noteService) Export(ctx context.Context, domains ...string) (*domain.Envelope, error) {
	key := "export"
	for _, d := range domains {
		key += "|" + d
	}
	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		return s.repo.Export(ctx, s.config.ExportSource, domains...)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Envelope), nil
}

func (s *noteService) Cleanup(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.config.SoftDeleteRetention)
	return s.repo.Purge(ctx, cutoff)
}
