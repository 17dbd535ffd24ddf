package quota

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atendai/atendai/plugin/ai/cache"
	"github.com/atendai/atendai/store"
)

type fakeQuotaStore struct {
	company *store.Company
	usage   map[string]*store.TokenUsage // keyed by month

	getUsageCalls int
	upsertCalls   int
	updateErr     error
	getUsageErr   error
}

func newFakeQuotaStore(company *store.Company) *fakeQuotaStore {
	return &fakeQuotaStore{
		company: company,
		usage:   map[string]*store.TokenUsage{},
	}
}

func (f *fakeQuotaStore) GetCompany(_ context.Context, _ *store.FindCompany) (*store.Company, error) {
	return f.company, nil
}

func (f *fakeQuotaStore) UpdateCompany(_ context.Context, update *store.UpdateCompany) (*store.Company, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	if update.PlanTokenLimit != nil {
		f.company.PlanTokenLimit = *update.PlanTokenLimit
	}
	return f.company, nil
}

func (f *fakeQuotaStore) GetTokenUsage(_ context.Context, find *store.FindTokenUsage) (*store.TokenUsage, error) {
	f.getUsageCalls++
	if f.getUsageErr != nil {
		return nil, f.getUsageErr
	}
	return f.usage[*find.Month], nil
}

func (f *fakeQuotaStore) UpsertTokenUsage(_ context.Context, upsert *store.UpsertTokenUsage) (*store.TokenUsage, error) {
	f.upsertCalls++
	row, ok := f.usage[upsert.Month]
	if !ok {
		row = &store.TokenUsage{CompanyID: upsert.CompanyID, Month: upsert.Month}
		f.usage[upsert.Month] = row
	}
	row.InputTokens += upsert.InputTokens
	row.OutputTokens += upsert.OutputTokens
	return row, nil
}

func newTestTracker(t *testing.T, company *store.Company) (*Tracker, *fakeQuotaStore) {
	t.Helper()
	fs := newFakeQuotaStore(company)
	svc := cache.NewService(cache.DefaultServiceConfig())
	t.Cleanup(svc.Close)
	return NewTracker(fs, svc), fs
}

func subscribedCompany(limit int64) *store.Company {
	return &store.Company{ID: 1, SubscriptionActive: true, PlanTokenLimit: limit}
}

func TestCheckTokenLimitBoundary(t *testing.T) {
	tracker, fs := newTestTracker(t, subscribedCompany(75000))
	month := MonthKey(time.Now())

	fs.usage[month] = &store.TokenUsage{CompanyID: 1, Month: month, InputTokens: 70000, OutputTokens: 4999}
	status, err := tracker.CheckTokenLimit(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, status.IsLimitReached)
	assert.Equal(t, int64(74999), status.CurrentUsage)

	// Exactly at the limit counts as reached. Invalidate to bypass the cache.
	fs.usage[month].OutputTokens++
	require.NoError(t, tracker.cache.Invalidate(context.Background(), usageCacheKey(1)))
	status, err = tracker.CheckTokenLimit(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, status.IsLimitReached)
	assert.InDelta(t, 100.0, status.PercentUsed, 0.01)
}

func TestCheckTokenLimitUnlimited(t *testing.T) {
	tracker, fs := newTestTracker(t, subscribedCompany(store.UnlimitedTokens))
	month := MonthKey(time.Now())
	fs.usage[month] = &store.TokenUsage{CompanyID: 1, Month: month, InputTokens: 1 << 40}

	status, err := tracker.CheckTokenLimit(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, status.IsLimitReached)
	assert.False(t, status.UpgradeRequired)
}

func TestCheckTokenLimitUnlimitedSurvivesUsageReadFailure(t *testing.T) {
	tracker, fs := newTestTracker(t, subscribedCompany(store.UnlimitedTokens))
	fs.getUsageErr = assert.AnError

	status, err := tracker.CheckTokenLimit(context.Background(), 1)
	require.NoError(t, err, "unlimited plan must not block on a usage storage hiccup")
	assert.False(t, status.IsLimitReached)
	assert.Zero(t, status.CurrentUsage)
}

func TestCheckTokenLimitTrial(t *testing.T) {
	company := &store.Company{ID: 1, TrialEndsTs: time.Now().Add(24 * time.Hour).Unix()}
	tracker, _ := newTestTracker(t, company)

	status, err := tracker.CheckTokenLimit(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, TrialTokenLimit, status.MonthlyLimit)
	assert.False(t, status.IsLimitReached)
}

func TestCheckTokenLimitLapsedTrial(t *testing.T) {
	company := &store.Company{ID: 1, TrialEndsTs: time.Now().Add(-time.Hour).Unix()}
	tracker, fs := newTestTracker(t, company)

	status, err := tracker.CheckTokenLimit(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, status.IsLimitReached)
	assert.True(t, status.UpgradeRequired)
	// Usage was never consulted.
	assert.Zero(t, fs.getUsageCalls)
}

func TestRegisterTokenUsageNoDoubleCount(t *testing.T) {
	tracker, fs := newTestTracker(t, subscribedCompany(75000))

	result, err := tracker.RegisterTokenUsage(context.Background(), 1, 100, 50)
	require.NoError(t, err)
	assert.True(t, result.Registered)
	assert.False(t, result.LimitReached)

	month := MonthKey(time.Now())
	assert.Equal(t, 1, fs.upsertCalls)
	assert.Equal(t, int64(100), fs.usage[month].InputTokens)
	assert.Equal(t, int64(50), fs.usage[month].OutputTokens)
}

func TestRegisterTokenUsageInvalidatesCache(t *testing.T) {
	tracker, fs := newTestTracker(t, subscribedCompany(75000))

	// Prime the cache.
	_, err := tracker.CheckTokenLimit(context.Background(), 1)
	require.NoError(t, err)
	reads := fs.getUsageCalls

	// Cached: no extra storage read.
	_, err = tracker.CheckTokenLimit(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, reads, fs.getUsageCalls)

	// Registering invalidates, so the next check re-reads and sees the write.
	result, err := tracker.RegisterTokenUsage(context.Background(), 1, 80000, 0)
	require.NoError(t, err)
	assert.True(t, result.LimitReached)

	status, err := tracker.CheckTokenLimit(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(80000), status.CurrentUsage)
	assert.True(t, status.IsLimitReached)
}

func TestUpdateCompanyTokenLimit(t *testing.T) {
	tracker, fs := newTestTracker(t, subscribedCompany(1000))

	assert.True(t, tracker.UpdateCompanyTokenLimit(context.Background(), 1, 50000))
	assert.Equal(t, int64(50000), fs.company.PlanTokenLimit)

	fs.updateErr = assert.AnError
	assert.False(t, tracker.UpdateCompanyTokenLimit(context.Background(), 1, 60000))
}

func TestLimitReachedMessageIsCustomerSafe(t *testing.T) {
	tracker, _ := newTestTracker(t, subscribedCompany(1000))

	msg := tracker.LimitReachedMessage()
	assert.NotEmpty(t, msg)
	assert.NotContains(t, msg, "token")
	assert.NotContains(t, msg, "limite")
	assert.NotContains(t, msg, "1000")
}

func TestMonthKeyUTC(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	// 2026-02-28 23:30 BRT is already March in UTC.
	ts := time.Date(2026, 2, 28, 23, 30, 0, 0, loc)
	assert.Equal(t, "2026-03", MonthKey(ts))
}
