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

// AccountService manages the account tree
type AccountService struct {
	accountRepo *repository.AccountRepository
	scoreRepo   *repository.HealthScoreRepository
	alertRepo   *repository.AlertRepository
	journey     *JourneyService
	logger      *zap.Logger
	db          *gorm.DB
}

// NewAccountService creates a new AccountService instance
func NewAccountService(
	accountRepo *repository.AccountRepository,
	scoreRepo *repository.HealthScoreRepository,
	alertRepo *repository.AlertRepository,
	journey *JourneyService,
	logger *zap.Logger,
	db *gorm.DB,
) *AccountService {
	return &AccountService{
		accountRepo: accountRepo,
		scoreRepo:   scoreRepo,
		alertRepo:   alertRepo,
		journey:     journey,
		logger:      logger,
		db:          db,
	}
}

// hierarchyPath is the slash separated chain of ids from the root down to id
func hierarchyPath(parent *domain.Account, id uuid.UUID) (string, int) {
	if parent == nil {
		return id.String(), 0
	}
	return parent.HierarchyPath + "/" + id.String(), parent.HierarchyLevel + 1
}

// Create creates an account below an optional parent. An initial stage opens
// the first journey entry in the same transaction.
func (s *AccountService) Create(ctx context.Context, tc domain.TenantContext, req *domain.CreateAccountRequest) (*domain.AccountDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if req.ARR < 0 {
		return nil, fmt.Errorf("%w: arr must not be negative", ErrInvalidInput)
	}
	status := req.Status
	if status == "" {
		status = domain.AccountStatusActive
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}

	parent, err := s.loadParent(ctx, tc.TenantID, req.ParentID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	account := &domain.Account{
		TenantID:    tc.TenantID,
		Name:        name,
		ParentID:    req.ParentID,
		Status:      status,
		ARR:         req.ARR,
		OwnerID:     req.OwnerID,
		Domain:      req.Domain,
		Industry:    req.Industry,
		ExternalRef: req.ExternalRef,
	}
	account.ID = uuid.New()
	account.CreatedAt = now
	account.UpdatedAt = now
	account.HierarchyPath, account.HierarchyLevel = hierarchyPath(parent, account.ID)

	initialStage := strings.TrimSpace(req.InitialStage)
	if initialStage != "" {
		account.CurrentStage = &initialStage
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.accountRepo.Create(ctx, tx, account); err != nil {
			return fmt.Errorf("failed to create account: %w", err)
		}
		if initialStage != "" {
			if _, err := s.journey.enterStage(ctx, tx, tc, account.ID, initialStage, initialStageReason); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("account created",
		zap.String("tenant_id", tc.TenantID.String()),
		zap.String("account_id", account.ID.String()),
		zap.String("actor", tc.Actor()))

	dto := mapper.ToAccountDTO(account)
	return &dto, nil
}

// GetByID returns an account with its latest health snapshot and alert count
func (s *AccountService) GetByID(ctx context.Context, tc domain.TenantContext, id uuid.UUID) (*domain.AccountWithHealthDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	account, err := s.get(ctx, tc.TenantID, id)
	if err != nil {
		return nil, err
	}

	dto := &domain.AccountWithHealthDTO{AccountDTO: mapper.ToAccountDTO(account)}

	latest, err := s.scoreRepo.GetLatest(ctx, nil, tc.TenantID, id)
	switch {
	case err == nil:
		health := mapper.ToHealthScoreDTO(latest)
		dto.LatestHealth = &health
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("failed to get latest health score: %w", err)
	}

	since := time.Now().UTC().AddDate(0, 0, -30)
	count, err := s.alertRepo.Count(ctx, tc.TenantID, domain.AlertFilters{
		AccountID: &id,
		Created:   domain.DateRange{From: &since},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count alerts: %w", err)
	}
	dto.OpenAlerts = count

	return dto, nil
}

// Update changes account fields. A new parent moves the whole subtree; moving
// an account below itself or one of its descendants is rejected.
func (s *AccountService) Update(ctx context.Context, tc domain.TenantContext, id uuid.UUID, req *domain.UpdateAccountRequest) (*domain.AccountDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if !req.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, req.Status)
	}
	if req.ARR < 0 {
		return nil, fmt.Errorf("%w: arr must not be negative", ErrInvalidInput)
	}
	if req.ParentID != nil && *req.ParentID == id {
		return nil, ErrHierarchyCycle
	}

	var updated *domain.Account
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, parent, err := s.lockForMove(ctx, tx, tc.TenantID, id, req.ParentID)
		if err != nil {
			return err
		}
		if parent != nil && isWithinSubtree(parent.HierarchyPath, account.HierarchyPath) {
			return ErrHierarchyCycle
		}

		oldPath, oldLevel := account.HierarchyPath, account.HierarchyLevel
		account.Name = name
		account.ParentID = req.ParentID
		account.Status = req.Status
		account.ARR = req.ARR
		account.OwnerID = req.OwnerID
		account.Domain = req.Domain
		account.Industry = req.Industry
		account.ExternalRef = req.ExternalRef
		account.UpdatedAt = time.Now().UTC()
		account.HierarchyPath, account.HierarchyLevel = hierarchyPath(parent, account.ID)

		if err := s.accountRepo.Update(ctx, tx, account); err != nil {
			return fmt.Errorf("failed to update account: %w", err)
		}

		if account.HierarchyPath != oldPath {
			if err := s.rewriteDescendants(ctx, tx, tc.TenantID, oldPath, oldLevel, account); err != nil {
				return err
			}
		}
		updated = account
		return nil
	})
	if err != nil {
		return nil, err
	}

	dto := mapper.ToAccountDTO(updated)
	return &dto, nil
}

func (s *AccountService) rewriteDescendants(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, oldPath string, oldLevel int, moved *domain.Account) error {
	descendants, err := s.accountRepo.ListDescendants(ctx, tx, tenantID, oldPath)
	if err != nil {
		return fmt.Errorf("failed to list descendants: %w", err)
	}

	shift := moved.HierarchyLevel - oldLevel
	for _, d := range descendants {
		path := moved.HierarchyPath + strings.TrimPrefix(d.HierarchyPath, oldPath)
		if err := s.accountRepo.UpdateHierarchy(ctx, tx, d.ID, d.HierarchyLevel+shift, path); err != nil {
			return fmt.Errorf("failed to update descendant hierarchy: %w", err)
		}
	}

	if len(descendants) > 0 {
		s.logger.Info("account subtree moved",
			zap.String("account_id", moved.ID.String()),
			zap.Int("descendants", len(descendants)))
	}
	return nil
}

// lockForMove locks the account and its new parent in id order, so two moves
// touching the same pair queue up and the second sees the first's paths.
func (s *AccountService) lockForMove(ctx context.Context, tx *gorm.DB, tenantID, id uuid.UUID, parentID *uuid.UUID) (*domain.Account, *domain.Account, error) {
	lockAccount := func() (*domain.Account, error) {
		account, err := s.accountRepo.GetForUpdate(ctx, tx, tenantID, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrAccountNotFound
			}
			return nil, fmt.Errorf("failed to lock account: %w", err)
		}
		return account, nil
	}
	if parentID == nil {
		account, err := lockAccount()
		return account, nil, err
	}
	lockParent := func() (*domain.Account, error) {
		parent, err := s.accountRepo.GetForUpdate(ctx, tx, tenantID, *parentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrParentNotFound
			}
			return nil, fmt.Errorf("failed to lock parent account: %w", err)
		}
		return parent, nil
	}

	var account, parent *domain.Account
	var err error
	if id.String() < parentID.String() {
		if account, err = lockAccount(); err != nil {
			return nil, nil, err
		}
		parent, err = lockParent()
	} else {
		if parent, err = lockParent(); err != nil {
			return nil, nil, err
		}
		account, err = lockAccount()
	}
	if err != nil {
		return nil, nil, err
	}
	return account, parent, nil
}

// isWithinSubtree reports whether path is root itself or lies below it
func isWithinSubtree(path, root string) bool {
	return path == root || strings.HasPrefix(path, root+"/")
}

// Delete removes an account without children
func (s *AccountService) Delete(ctx context.Context, tc domain.TenantContext, id uuid.UUID) error {
	if err := tc.Validate(); err != nil {
		return invalidInput(err)
	}
	if _, err := s.get(ctx, tc.TenantID, id); err != nil {
		return err
	}

	children, err := s.accountRepo.CountChildren(ctx, tc.TenantID, id)
	if err != nil {
		return fmt.Errorf("failed to count child accounts: %w", err)
	}
	if children > 0 {
		return ErrHasChildren
	}

	if err := s.accountRepo.Delete(ctx, tc.TenantID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("failed to delete account: %w", err)
	}

	s.logger.Info("account deleted",
		zap.String("tenant_id", tc.TenantID.String()),
		zap.String("account_id", id.String()),
		zap.String("actor", tc.Actor()))
	return nil
}

// List returns a filtered, sorted page of accounts
func (s *AccountService) List(ctx context.Context, tc domain.TenantContext, filters domain.AccountFilters, sort repository.SortConfig, page, pageSize int) (*domain.PaginatedResponse, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	page, pageSize = repository.NormalizePage(page, pageSize)

	accounts, total, err := s.accountRepo.List(ctx, tc.TenantID, filters, sort, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	dtos := make([]domain.AccountDTO, len(accounts))
	for i := range accounts {
		dtos[i] = mapper.ToAccountDTO(&accounts[i])
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return &domain.PaginatedResponse{
		Data:       dtos,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// ListChildren returns the direct children of an account
func (s *AccountService) ListChildren(ctx context.Context, tc domain.TenantContext, id uuid.UUID) ([]domain.AccountDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	if _, err := s.get(ctx, tc.TenantID, id); err != nil {
		return nil, err
	}

	children, err := s.accountRepo.ListChildren(ctx, tc.TenantID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list child accounts: %w", err)
	}

	dtos := make([]domain.AccountDTO, len(children))
	for i := range children {
		dtos[i] = mapper.ToAccountDTO(&children[i])
	}
	return dtos, nil
}

func (s *AccountService) get(ctx context.Context, tenantID, id uuid.UUID) (*domain.Account, error) {
	account, err := s.accountRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

func (s *AccountService) loadParent(ctx context.Context, tenantID uuid.UUID, parentID *uuid.UUID) (*domain.Account, error) {
	if parentID == nil {
		return nil, nil
	}
	parent, err := s.accountRepo.GetByID(ctx, tenantID, *parentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrParentNotFound
		}
		return nil, fmt.Errorf("failed to get parent account: %w", err)
	}
	return parent, nil
}
