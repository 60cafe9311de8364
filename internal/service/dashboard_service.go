package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/success-api/internal/domain"
	"github.com/straye-as/success-api/internal/mapper"
	"github.com/straye-as/success-api/internal/repository"
	"github.com/straye-as/success-api/internal/scoring"
	"go.uber.org/zap"
)

const (
	defaultRevenueAtRiskLimit = 10
	defaultGrowthDays         = 90
	maxGrowthPoints           = 100
)

// DashboardService answers the read-only aggregate queries behind dashboards
type DashboardService struct {
	dashboardRepo *repository.DashboardRepository
	alertRepo     *repository.AlertRepository
	historyRepo   *repository.JourneyHistoryRepository
	sentimentRepo *repository.SentimentRepository
	logger        *zap.Logger
}

func NewDashboardService(
	dashboardRepo *repository.DashboardRepository,
	alertRepo *repository.AlertRepository,
	historyRepo *repository.JourneyHistoryRepository,
	sentimentRepo *repository.SentimentRepository,
	logger *zap.Logger,
) *DashboardService {
	return &DashboardService{
		dashboardRepo: dashboardRepo,
		alertRepo:     alertRepo,
		historyRepo:   historyRepo,
		sentimentRepo: sentimentRepo,
		logger:        logger,
	}
}

// HealthDistribution buckets the latest score of every root account matching filters
func (s *DashboardService) HealthDistribution(ctx context.Context, tc domain.TenantContext, filters domain.AccountFilters) (*domain.HealthDistributionDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	filters.RootOnly = true

	rows, err := s.dashboardRepo.LatestScores(ctx, tc.TenantID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest scores: %w", err)
	}

	dist := &domain.HealthDistributionDTO{Total: int64(len(rows))}
	for _, row := range rows {
		if row.Score == nil {
			dist.Unscored++
			continue
		}
		switch scoring.Category(*row.Score) {
		case domain.HealthCategoryHealthy:
			dist.Healthy++
		case domain.HealthCategoryAtRisk:
			dist.AtRisk++
		default:
			dist.Critical++
		}
	}
	return dist, nil
}

// RevenueAtRisk lists high-ARR accounts with a low latest score, largest ARR first
func (s *DashboardService) RevenueAtRisk(ctx context.Context, tc domain.TenantContext, limit int) ([]domain.RevenueAtRiskDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	if limit <= 0 {
		limit = defaultRevenueAtRiskLimit
	}

	rows, err := s.dashboardRepo.RevenueAtRisk(ctx, tc.TenantID, scoring.RevenueAtRiskMinARR, scoring.RevenueAtRiskMaxScore, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load revenue at risk: %w", err)
	}

	dtos := make([]domain.RevenueAtRiskDTO, 0, len(rows))
	for _, row := range rows {
		if row.Score == nil {
			continue
		}
		dtos = append(dtos, domain.RevenueAtRiskDTO{
			AccountID:    row.AccountID,
			Name:         row.Name,
			ARR:          row.ARR,
			Score:        *row.Score,
			CurrentStage: row.CurrentStage,
		})
	}
	return dtos, nil
}

// Summary aggregates tenant-level figures. Alerts are counted within dateRange.
func (s *DashboardService) Summary(ctx context.Context, tc domain.TenantContext, dateRange domain.DateRange) (*domain.DashboardSummaryDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}

	count, totalARR, err := s.dashboardRepo.AccountTotals(ctx, tc.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account totals: %w", err)
	}

	alerts, err := s.alertRepo.Count(ctx, tc.TenantID, domain.AlertFilters{Created: dateRange})
	if err != nil {
		return nil, fmt.Errorf("failed to count alerts: %w", err)
	}

	stages, err := s.historyRepo.CountOpenByStage(ctx, tc.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to count stages: %w", err)
	}

	durations, err := s.historyRepo.AverageTimeInStage(ctx, tc.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute time in stage: %w", err)
	}
	avgDays := make(map[string]float64, len(durations))
	for stage, d := range durations {
		avgDays[stage] = d.Hours() / 24
	}

	negative, err := s.sentimentRepo.CountByLabel(ctx, tc.TenantID, domain.SentimentNegative)
	if err != nil {
		return nil, fmt.Errorf("failed to count negative sentiment: %w", err)
	}

	rows, err := s.dashboardRepo.LatestScores(ctx, tc.TenantID, domain.AccountFilters{})
	if err != nil {
		return nil, fmt.Errorf("failed to load latest scores: %w", err)
	}

	var sum, atRisk float64
	var scored int
	for _, row := range rows {
		if row.Score == nil {
			continue
		}
		sum += *row.Score
		scored++
		if scoring.IsRevenueAtRisk(row.ARR, *row.Score) {
			atRisk += row.ARR
		}
	}

	summary := &domain.DashboardSummaryDTO{
		TotalAccounts:      count,
		AlertsInRange:      alerts,
		Stages:             stages,
		AverageDaysInStage: avgDays,
		TotalARR:           totalARR,
		RevenueAtRisk:      atRisk,
		NegativeSources:    negative,
	}
	if stages == nil {
		summary.Stages = []domain.StageCountDTO{}
	}
	if scored > 0 {
		avg := sum / float64(scored)
		summary.AverageScore = &avg
	}
	summary.RangeStart = mapper.FormatTimePtr(dateRange.From)
	summary.RangeEnd = mapper.FormatTimePtr(dateRange.To)
	return summary, nil
}

// PortfolioGrowth counts distinct accounts entering each stage per day, newest
// day first. Without a From bound the window covers the last days days.
// CumulativeCount runs over days in ascending order; rows of the same day
// share one total.
func (s *DashboardService) PortfolioGrowth(ctx context.Context, tc domain.TenantContext, days int, dateRange domain.DateRange) ([]domain.PortfolioGrowthPointDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	if days <= 0 {
		days = defaultGrowthDays
	}
	if dateRange.From == nil {
		from := time.Now().UTC().AddDate(0, 0, -days)
		dateRange.From = &from
	}

	entries, err := s.historyRepo.ListEnteredInRange(ctx, tc.TenantID, dateRange)
	if err != nil {
		return nil, fmt.Errorf("failed to load journey entries: %w", err)
	}

	type bucket struct {
		date, stage string
	}
	accounts := make(map[bucket]map[uuid.UUID]struct{})
	for _, e := range entries {
		b := bucket{date: e.EnteredAt.UTC().Format("2006-01-02"), stage: e.ToStage}
		if accounts[b] == nil {
			accounts[b] = make(map[uuid.UUID]struct{})
		}
		accounts[b][e.AccountID] = struct{}{}
	}

	points := make([]domain.PortfolioGrowthPointDTO, 0, len(accounts))
	perDay := make(map[string]int64)
	for b, ids := range accounts {
		points = append(points, domain.PortfolioGrowthPointDTO{
			Date:         b.date,
			Stage:        b.stage,
			AccountCount: int64(len(ids)),
		})
		perDay[b.date] += int64(len(ids))
	}

	dates := make([]string, 0, len(perDay))
	for d := range perDay {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	cumulative := make(map[string]int64, len(dates))
	var running int64
	for _, d := range dates {
		running += perDay[d]
		cumulative[d] = running
	}

	for i := range points {
		points[i].CumulativeCount = cumulative[points[i].Date]
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].Date != points[j].Date {
			return points[i].Date > points[j].Date
		}
		return points[i].Stage < points[j].Stage
	})
	if len(points) > maxGrowthPoints {
		points = points[:maxGrowthPoints]
	}
	return points, nil
}
