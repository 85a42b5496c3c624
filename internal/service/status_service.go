package service

import (
	"context"
	"time"

	"github.com/anchored-notes/anchored-sync-service/internal/domain"
	"github.com/anchored-notes/anchored-sync-service/pkg/util"
)

// StatusService reports runtime health for the status endpoint.
type StatusService interface {
	Status(ctx context.Context) (*StatusInfo, error)
}

// StatusInfo is the status endpoint payload.
type StatusInfo struct {
	Version     string        `json:"version"`
	MachineID   string        `json:"machineId"`
	StoreType   string        `json:"storeType"`
	NoteCount   int           `json:"noteCount"`
	DomainCount int           `json:"domainCount"`
	Uptime      string        `json:"uptime"`
	System      *util.SysInfo `json:"system"`
}

type statusService struct {
	repo      domain.NoteRepository
	storeType string
	version   string
	startedAt time.Time
}

// NewStatusService creates a StatusService.
func NewStatusService(repo domain.NoteRepository, storeType, version string) StatusService {
	return &statusService{
		repo:      repo,
		storeType: storeType,
		version:   version,
		startedAt: time.Now(),
	}
}

func (s *statusService) Status(ctx context.Context) (*StatusInfo, error) {
	notes, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	domains, err := s.repo.Domains(ctx)
	if err != nil {
		return nil, err
	}

	return &StatusInfo{
		Version:     s.version,
		MachineID:   util.GetMachineID(),
		StoreType:   s.storeType,
		NoteCount:   len(notes),
		DomainCount: len(domains),
		Uptime:      time.Since(s.startedAt).Round(time.Second).String(),
		System:      util.GetSysInfo(),
	}, nil
}
