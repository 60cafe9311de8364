package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/success-api/internal/domain"
	"github.com/straye-as/success-api/internal/mapper"
	"github.com/straye-as/success-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PlaybookService manages playbooks and records their runs
type PlaybookService struct {
	playbookRepo *repository.PlaybookRepository
	accountRepo  *repository.AccountRepository
	logger       *zap.Logger
}

// NewPlaybookService creates a new PlaybookService instance
func NewPlaybookService(playbookRepo *repository.PlaybookRepository, accountRepo *repository.AccountRepository, logger *zap.Logger) *PlaybookService {
	return &PlaybookService{
		playbookRepo: playbookRepo,
		accountRepo:  accountRepo,
		logger:       logger,
	}
}

func encodePlaybook(triggers map[string]interface{}, actions []domain.PlaybookAction) (string, string, error) {
	if actions == nil {
		actions = []domain.PlaybookAction{}
	}
	for i, a := range actions {
		if strings.TrimSpace(a.Type) == "" {
			return "", "", fmt.Errorf("%w: action %d has no type", ErrInvalidInput, i)
		}
	}
	triggersJSON, err := mapper.EncodeJSON(triggers)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode triggers: %w", err)
	}
	actionsJSON, err := mapper.EncodeJSON(actions)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode actions: %w", err)
	}
	return triggersJSON, actionsJSON, nil
}

// Create stores a new active playbook
func (s *PlaybookService) Create(ctx context.Context, tc domain.TenantContext, req *domain.CreatePlaybookRequest) (*domain.PlaybookDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	triggers, actions, err := encodePlaybook(req.Triggers, req.Actions)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	playbook := &domain.Playbook{
		TenantID:    tc.TenantID,
		Name:        name,
		ScenarioKey: req.ScenarioKey,
		Description: req.Description,
		Triggers:    triggers,
		Actions:     actions,
		IsActive:    true,
	}
	playbook.CreatedAt = now
	playbook.UpdatedAt = now

	if err := s.playbookRepo.Create(ctx, playbook); err != nil {
		return nil, fmt.Errorf("failed to create playbook: %w", err)
	}

	dto := mapper.ToPlaybookDTO(playbook)
	return &dto, nil
}

// GetByID returns a playbook, active or not
func (s *PlaybookService) GetByID(ctx context.Context, tc domain.TenantContext, id uuid.UUID) (*domain.PlaybookDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	playbook, err := s.get(ctx, tc.TenantID, id)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToPlaybookDTO(playbook)
	return &dto, nil
}

// Update replaces a playbook definition
func (s *PlaybookService) Update(ctx context.Context, tc domain.TenantContext, id uuid.UUID, req *domain.UpdatePlaybookRequest) (*domain.PlaybookDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	playbook, err := s.get(ctx, tc.TenantID, id)
	if err != nil {
		return nil, err
	}

	triggers, actions, err := encodePlaybook(req.Triggers, req.Actions)
	if err != nil {
		return nil, err
	}

	playbook.Name = name
	playbook.ScenarioKey = req.ScenarioKey
	playbook.Description = req.Description
	playbook.Triggers = triggers
	playbook.Actions = actions
	if req.IsActive != nil {
		playbook.IsActive = *req.IsActive
	}
	playbook.UpdatedAt = time.Now().UTC()

	if err := s.playbookRepo.Update(ctx, playbook); err != nil {
		return nil, fmt.Errorf("failed to update playbook: %w", err)
	}

	dto := mapper.ToPlaybookDTO(playbook)
	return &dto, nil
}

// Delete removes a playbook
func (s *PlaybookService) Delete(ctx context.Context, tc domain.TenantContext, id uuid.UUID) error {
	if err := tc.Validate(); err != nil {
		return invalidInput(err)
	}
	if err := s.playbookRepo.Delete(ctx, tc.TenantID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPlaybookNotFound
		}
		return fmt.Errorf("failed to delete playbook: %w", err)
	}
	return nil
}

// List returns the tenant's playbooks, newest first
func (s *PlaybookService) List(ctx context.Context, tc domain.TenantContext, activeOnly bool) ([]domain.PlaybookDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	playbooks, err := s.playbookRepo.List(ctx, tc.TenantID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list playbooks: %w", err)
	}

	dtos := make([]domain.PlaybookDTO, len(playbooks))
	for i := range playbooks {
		dtos[i] = mapper.ToPlaybookDTO(&playbooks[i])
	}
	return dtos, nil
}

// RunPlaybook executes an active playbook against an account and records the run
func (s *PlaybookService) RunPlaybook(ctx context.Context, tc domain.TenantContext, id uuid.UUID, req *domain.RunPlaybookRequest) (*domain.PlaybookRunDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}

	playbook, err := s.playbookRepo.GetActiveByID(ctx, tc.TenantID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlaybookNotFound
		}
		return nil, fmt.Errorf("failed to get playbook: %w", err)
	}
	if _, err := s.accountRepo.GetByID(ctx, tc.TenantID, req.AccountID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	triggeredBy := strings.TrimSpace(req.TriggeredBy)
	if triggeredBy == "" {
		triggeredBy = tc.Actor()
	}

	result, err := mapper.EncodeJSON(map[string]interface{}{
		"actions_executed": mapper.DecodeActions(playbook.Actions),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode run result: %w", err)
	}

	run := &domain.PlaybookRun{
		TenantID:    tc.TenantID,
		PlaybookID:  playbook.ID,
		AccountID:   req.AccountID,
		Status:      domain.PlaybookRunCompleted,
		TriggeredBy: triggeredBy,
		Result:      result,
	}
	run.CreatedAt = time.Now().UTC()

	if err := s.playbookRepo.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to record playbook run: %w", err)
	}
	run.Playbook = playbook

	s.logger.Info("playbook executed",
		zap.String("tenant_id", tc.TenantID.String()),
		zap.String("playbook_id", playbook.ID.String()),
		zap.String("account_id", req.AccountID.String()),
		zap.String("triggered_by", triggeredBy))

	dto := mapper.ToPlaybookRunDTO(run)
	return &dto, nil
}

// ListPlaybookRuns returns an account's runs, newest first
func (s *PlaybookService) ListPlaybookRuns(ctx context.Context, tc domain.TenantContext, accountID uuid.UUID, limit int) ([]domain.PlaybookRunDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	runs, err := s.playbookRepo.ListRunsByAccount(ctx, tc.TenantID, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list playbook runs: %w", err)
	}

	dtos := make([]domain.PlaybookRunDTO, len(runs))
	for i := range runs {
		dtos[i] = mapper.ToPlaybookRunDTO(&runs[i])
	}
	return dtos, nil
}

func (s *PlaybookService) get(ctx context.Context, tenantID, id uuid.UUID) (*domain.Playbook, error) {
	playbook, err := s.playbookRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlaybookNotFound
		}
		return nil, fmt.Errorf("failed to get playbook: %w", err)
	}
	return playbook, nil
}
