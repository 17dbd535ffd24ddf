// Package quota enforces per-company monthly token limits on AI usage.
// Reads go through a short-lived cache so the hot message path does not hit
// storage for every inbound message; writes invalidate the cache entry.
package quota

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/atendai/atendai/plugin/ai/cache"
	"github.com/atendai/atendai/store"
)

const (
	// TrialTokenLimit is the monthly allotment for companies still on trial.
	TrialTokenLimit int64 = 25000

	// usageCacheTTL bounds staleness of the cached month usage. Invalidation
	// on write is the primary mechanism; the TTL is the safety net.
	usageCacheTTL = 60 * time.Second
)

// limitReachedMessage is customer facing and must never leak quota numbers.
const limitReachedMessage = "No momento não consigo responder por aqui. Um de nossos atendentes vai continuar a conversa em breve. Obrigado pela paciência!"

// LimitStatus is the outcome of a quota check.
type LimitStatus struct {
	CompanyID       int32
	CurrentUsage    int64
	MonthlyLimit    int64
	PercentUsed     float64
	IsLimitReached  bool
	UpgradeRequired bool
}

// RegisterResult reports a usage registration.
type RegisterResult struct {
	Registered   bool
	LimitReached bool
}

// CompanyStore is the store surface the tracker needs.
type CompanyStore interface {
	GetCompany(ctx context.Context, find *store.FindCompany) (*store.Company, error)
	UpdateCompany(ctx context.Context, update *store.UpdateCompany) (*store.Company, error)
	GetTokenUsage(ctx context.Context, find *store.FindTokenUsage) (*store.TokenUsage, error)
	UpsertTokenUsage(ctx context.Context, upsert *store.UpsertTokenUsage) (*store.TokenUsage, error)
}

// Tracker tracks and enforces monthly token quotas.
type Tracker struct {
	store CompanyStore
	cache cache.CacheService
	group singleflight.Group

	// now is swappable for tests.
	now func() time.Time
}

// NewTracker creates a new quota tracker.
func NewTracker(s CompanyStore, c cache.CacheService) *Tracker {
	return &Tracker{
		store: s,
		cache: c,
		now:   time.Now,
	}
}

// MonthKey returns the UTC month bucket for t, formatted "YYYY-MM".
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// CheckTokenLimit resolves the company's effective monthly limit and current
// usage. A lapsed trial blocks without consulting usage at all.
func (t *Tracker) CheckTokenLimit(ctx context.Context, companyID int32) (*LimitStatus, error) {
	company, err := t.store.GetCompany(ctx, &store.FindCompany{ID: &companyID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get company")
	}
	if company == nil {
		return nil, errors.Errorf("company %d not found", companyID)
	}

	status := &LimitStatus{CompanyID: companyID}

	switch {
	case company.SubscriptionActive:
		status.MonthlyLimit = company.PlanTokenLimit
	case t.now().Unix() <= company.TrialEndsTs:
		status.MonthlyLimit = TrialTokenLimit
	default:
		// Trial lapsed: blocked regardless of consumption.
		status.IsLimitReached = true
		status.UpgradeRequired = true
		status.PercentUsed = 100
		return status, nil
	}

	if status.MonthlyLimit == store.UnlimitedTokens {
		// Unlimited never blocks; the usage figure is informational only,
		// so a read failure degrades to zero instead of failing the check.
		usage, err := t.currentUsage(ctx, companyID)
		if err != nil {
			slog.Warn("usage read failed for unlimited company",
				"company_id", companyID,
				"error", err)
			return status, nil
		}
		status.CurrentUsage = usage
		return status, nil
	}

	usage, err := t.currentUsage(ctx, companyID)
	if err != nil {
		return nil, err
	}
	status.CurrentUsage = usage
	if status.MonthlyLimit > 0 {
		status.PercentUsed = float64(usage) / float64(status.MonthlyLimit) * 100
	}
	status.IsLimitReached = usage >= status.MonthlyLimit
	return status, nil
}

// RegisterTokenUsage upserts the turn's token counts into the month row and
// re-checks the limit so the caller learns immediately whether the company
// just crossed its quota. Call exactly once per successful invocation.
func (t *Tracker) RegisterTokenUsage(ctx context.Context, companyID int32, inputTokens, outputTokens int64) (*RegisterResult, error) {
	now := t.now()
	_, err := t.store.UpsertTokenUsage(ctx, &store.UpsertTokenUsage{
		CompanyID:    companyID,
		Month:        MonthKey(now),
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		UpdatedTs:    now.Unix(),
	})
	if err != nil {
		return &RegisterResult{}, errors.Wrap(err, "failed to register token usage")
	}

	if err := t.cache.Invalidate(ctx, usageCacheKey(companyID)); err != nil {
		slog.Warn("failed to invalidate usage cache", "company_id", companyID, "error", err)
	}

	status, err := t.CheckTokenLimit(ctx, companyID)
	if err != nil {
		// The usage is recorded; only the re-check failed.
		return &RegisterResult{Registered: true}, err
	}
	return &RegisterResult{Registered: true, LimitReached: status.IsLimitReached}, nil
}

// UpdateCompanyTokenLimit is an administrative override. Returns false on
// storage failure instead of an error; limit updates are best-effort.
func (t *Tracker) UpdateCompanyTokenLimit(ctx context.Context, companyID int32, newLimit int64) bool {
	_, err := t.store.UpdateCompany(ctx, &store.UpdateCompany{
		ID:             companyID,
		PlanTokenLimit: &newLimit,
	})
	if err != nil {
		slog.Error("failed to update company token limit",
			"company_id", companyID,
			"new_limit", newLimit,
			"error", err)
		return false
	}
	if err := t.cache.Invalidate(ctx, usageCacheKey(companyID)); err != nil {
		slog.Warn("failed to invalidate usage cache", "company_id", companyID, "error", err)
	}
	return true
}

// LimitReachedMessage is the canned reply substitute when a quota is
// exhausted.
func (t *Tracker) LimitReachedMessage() string {
	return limitReachedMessage
}

type cachedUsage struct {
	Total int64 `json:"total"`
}

// currentUsage reads this month's input+output total through the cache.
// Concurrent misses for the same company collapse into one storage read.
func (t *Tracker) currentUsage(ctx context.Context, companyID int32) (int64, error) {
	key := usageCacheKey(companyID)

	if raw, ok := t.cache.Get(ctx, key); ok {
		var cu cachedUsage
		if err := json.Unmarshal(raw, &cu); err == nil {
			return cu.Total, nil
		}
		// Corrupt entry; drop it and fall through to storage.
		_ = t.cache.Invalidate(ctx, key)
	}

	value, err, _ := t.group.Do(key, func() (any, error) {
		month := MonthKey(t.now())
		usage, err := t.store.GetTokenUsage(ctx, &store.FindTokenUsage{
			CompanyID: &companyID,
			Month:     &month,
		})
		if err != nil {
			return int64(0), errors.Wrap(err, "failed to get token usage")
		}
		var total int64
		if usage != nil {
			total = usage.InputTokens + usage.OutputTokens
		}

		raw, err := json.Marshal(cachedUsage{Total: total})
		if err == nil {
			if err := t.cache.Set(ctx, key, raw, usageCacheTTL); err != nil {
				slog.Warn("failed to cache usage", "company_id", companyID, "error", err)
			}
		}
		return total, nil
	})
	if err != nil {
		return 0, err
	}
	return value.(int64), nil
}

func usageCacheKey(companyID int32) string {
	return fmt.Sprintf("quota:usage:%d", companyID)
}
