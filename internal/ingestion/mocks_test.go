package ingestion

import (
	"context"

	"github.com/ThiagoRGoveia/apt-trades/internal/fetcher"
	"github.com/ThiagoRGoveia/apt-trades/internal/models"
	"github.com/ThiagoRGoveia/apt-trades/internal/testutil"
	"github.com/stretchr/testify/mock"
)

// MockStore is a mock implementation of the Store interface.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Regions(ctx context.Context) ([]models.Region, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Region), args.Error(1)
}

func (m *MockStore) UnitCounts(ctx context.Context, period models.Period) ([]models.UnitCount, error) {
	args := m.Called(ctx, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.UnitCount), args.Error(1)
}

func (m *MockStore) UnitsWithRowCount(ctx context.Context, n int) ([]models.UnitCount, error) {
	args := m.Called(ctx, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.UnitCount), args.Error(1)
}

func (m *MockStore) Append(ctx context.Context, unit models.Unit, records []models.CanonicalRecord) error {
	args := m.Called(ctx, unit, records)
	return args.Error(0)
}

func (m *MockStore) Replace(ctx context.Context, unit models.Unit, records []models.CanonicalRecord) error {
	args := m.Called(ctx, unit, records)
	return args.Error(0)
}

// MockFetcher is a mock implementation of the fetcher.Fetcher interface.
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, unit models.Unit, pageCap int) (*fetcher.Page, error) {
	args := m.Called(ctx, unit, pageCap)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fetcher.Page), args.Error(1)
}

// MockArchiver is a mock implementation of the archive.Archiver interface.
type MockArchiver struct {
	mock.Mock
}

func (m *MockArchiver) Put(ctx context.Context, unit models.Unit, body []byte) error {
	args := m.Called(ctx, unit, body)
	return args.Error(0)
}

func pageOf(unit models.Unit, items []testutil.Item, pageCap int) *fetcher.Page {
	records := make([]models.RawRecord, len(items))
	for i, it := range items {
		records[i] = it.Map()
	}
	return &fetcher.Page{
		Unit:       unit,
		Records:    records,
		PageCap:    pageCap,
		Truncated:  len(records) == pageCap,
		TotalCount: len(records),
		Body:       []byte(testutil.PageXML(items, pageCap, len(items))),
	}
}

func withRecords(n int) any {
	return mock.MatchedBy(func(records []models.CanonicalRecord) bool {
		return len(records) == n
	})
}
