package products

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sakarghimire/product-service/internal/dynamotest"
)

// MockStore is a testify mock of Store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Put(ctx context.Context, product Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockStore) Scan(ctx context.Context) ([]Item, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Item), args.Error(1)
}

func (m *MockStore) Get(ctx context.Context, id string) (Item, bool, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(Item), args.Bool(1), args.Error(2)
}

func (m *MockStore) Update(ctx context.Context, id string, expr UpdateExpression) (map[string]interface{}, error) {
	args := m.Called(ctx, id, expr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]interface{}), args.Error(1)
}

func (m *MockStore) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStore) Health(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

var fixedNow = time.Date(2024, 3, 9, 16, 5, 7, 123456789, time.FixedZone("CET", 3600))

func newTestService(store Store, opts ...Option) (*Service, *Metrics) {
	metrics := NewMetrics(prometheus.NewRegistry())
	return NewService(store, zerolog.New(io.Discard), metrics, opts...), metrics
}

func newFakeService(t *testing.T, opts ...Option) (*Service, *dynamotest.Table, *Metrics) {
	t.Helper()
	table := dynamotest.NewTable(testTable, KeyAttribute)
	svc, metrics := newTestService(NewDynamoStore(table, testTable), opts...)
	return svc, table, metrics
}

func validInput() NewProduct {
	return NewProduct{
		Name:        "Lamp",
		ImageURL:    "https://img/lamp.png",
		Description: "Desk lamp",
		Price:       "10.00",
	}
}

func TestService_CreateProduct(t *testing.T) {
	store := new(MockStore)
	svc, metrics := newTestService(store,
		WithIDGenerator(func() string { return "p-1" }),
		WithClock(func() time.Time { return fixedNow }),
	)

	want := Product{
		ID:          "p-1",
		CreatedAt:   "2024-03-09T15:05:07.123Z",
		UserID:      "u-1",
		Name:        "Lamp",
		ImageURL:    "https://img/lamp.png",
		Description: "Desk lamp",
		Price:       "10.00",
	}
	store.On("Put", mock.Anything, want).Return(nil).Once()

	got, err := svc.CreateProduct(context.Background(), "u-1", validInput())
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Created))
	store.AssertExpectations(t)
}

func TestService_CreateProduct_InvalidInput(t *testing.T) {
	blanks := []func(p *NewProduct){
		func(p *NewProduct) { p.Name = "" },
		func(p *NewProduct) { p.ImageURL = "   " },
		func(p *NewProduct) { p.Description = "\t" },
		func(p *NewProduct) { p.Price = "" },
		func(p *NewProduct) { p.Name, p.Price = " ", "" },
		func(p *NewProduct) { *p = NewProduct{} },
	}

	for i, blank := range blanks {
		t.Run(fmt.Sprintf("case %d", i), func(t *testing.T) {
			svc, table, metrics := newFakeService(t)
			input := validInput()
			blank(&input)

			_, err := svc.CreateProduct(context.Background(), "u-1", input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.NotValid))
			assert.Empty(t, table.Calls())
			assert.Equal(t, float64(0), testutil.ToFloat64(metrics.Created))
		})
	}
}

func TestService_CreateProduct_StoreError(t *testing.T) {
	svc, table, metrics := newFakeService(t)
	table.Fail(dynamotest.OpPut, dynamotest.RequestFailure("AccessDeniedException", "denied", 403))

	_, err := svc.CreateProduct(context.Background(), "u-1", validInput())
	var storeErr *StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, 403, storeErr.StatusCode())
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.Created))
}

func TestService_CreateProduct_UniqueIDsAndTimestamps(t *testing.T) {
	svc, table, _ := newFakeService(t)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		before := time.Now().UTC().Truncate(time.Millisecond)
		p, err := svc.CreateProduct(ctx, "u-1", validInput())
		require.NoError(t, err)
		after := time.Now().UTC()

		assert.False(t, seen[p.ID], "duplicate id %s", p.ID)
		seen[p.ID] = true

		created, err := time.Parse(time.RFC3339Nano, p.CreatedAt)
		require.NoError(t, err)
		assert.False(t, created.Before(before))
		assert.False(t, created.After(after))
		assert.Equal(t, "Lamp", p.Name)
		assert.Equal(t, "https://img/lamp.png", p.ImageURL)
		assert.Equal(t, "Desk lamp", p.Description)
		assert.Equal(t, "10.00", p.Price)
	}
	assert.Equal(t, 20, table.Len())
}

func TestService_ListProductsByUser(t *testing.T) {
	store := new(MockStore)
	svc, _ := newTestService(store)

	store.On("Scan", mock.Anything).Return([]Item{
		itemOf(sampleProduct("a", "u-1", "2024-01-02T00:00:00.000Z")),
		itemOf(sampleProduct("b", "u-2", "2024-01-05T00:00:00.000Z")),
		itemOf(sampleProduct("c", "u-1", "2024-01-03T00:00:00.000Z")),
		itemOf(sampleProduct("d", "u-1", "2024-01-01T00:00:00.000Z")),
	}, nil).Once()

	got, err := svc.ListProductsByUser(context.Background(), "u-1")
	require.NoError(t, err)

	ids := make([]string, 0, len(got))
	for _, item := range got {
		ids = append(ids, item.Attr(KeyAttribute))
	}
	assert.Equal(t, []string{"c", "a", "d"}, ids)
	store.AssertExpectations(t)
}

func TestService_ListProductsByUser_StringOrdering(t *testing.T) {
	store := new(MockStore)
	svc, _ := newTestService(store)

	// Compared as text, "2024-10" sorts after "2024-09" and "9" after "10".
	store.On("Scan", mock.Anything).Return([]Item{
		itemOf(sampleProduct("x", "u-1", "10")),
		itemOf(sampleProduct("y", "u-1", "9")),
		itemOf(sampleProduct("z", "u-1", "2024-09-30T00:00:00.000Z")),
	}, nil).Once()

	got, err := svc.ListProductsByUser(context.Background(), "u-1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "y", got[0].Attr(KeyAttribute))
	assert.Equal(t, "z", got[1].Attr(KeyAttribute))
	assert.Equal(t, "x", got[2].Attr(KeyAttribute))
}

func TestService_ListProductsByUser_NoMatches(t *testing.T) {
	svc, _, _ := newFakeService(t)

	got, err := svc.ListProductsByUser(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestService_ListProductsByUser_StoreError(t *testing.T) {
	store := new(MockStore)
	svc, _ := newTestService(store)
	store.On("Scan", mock.Anything).Return(nil, &StoreError{Op: "scan products"}).Once()

	_, err := svc.ListProductsByUser(context.Background(), "u-1")
	var storeErr *StoreError
	assert.True(t, errors.As(err, &storeErr))
}

func TestService_ListProductsByUser_FullScan(t *testing.T) {
	tick := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc, table, _ := newFakeService(t, WithClock(func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	}))
	table.PageSize = 3
	ctx := context.Background()

	var mine []string
	for i := 0; i < 10; i++ {
		owner := "u-1"
		if i%3 == 0 {
			owner = "u-2"
		}
		p, err := svc.CreateProduct(ctx, owner, validInput())
		require.NoError(t, err)
		if owner == "u-1" {
			mine = append([]string{p.ID}, mine...)
		}
	}

	got, err := svc.ListProductsByUser(ctx, "u-1")
	require.NoError(t, err)

	ids := make([]string, 0, len(got))
	for _, item := range got {
		ids = append(ids, item.Attr(KeyAttribute))
		assert.Equal(t, "u-1", item.Attr("userId"))
	}
	assert.Equal(t, mine, ids)
}

func TestService_GetProduct(t *testing.T) {
	svc, _, _ := newFakeService(t)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, "u-1", validInput())
	require.NoError(t, err)

	got, err := svc.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, itemOf(created), got)

	_, err = svc.GetProduct(ctx, "never-created")
	assert.True(t, errors.Is(err, errors.NotFound))
}

func TestService_GetProduct_StoreError(t *testing.T) {
	store := new(MockStore)
	svc, _ := newTestService(store)
	store.On("Get", mock.Anything, "p-1").Return(nil, false, errors.New("timeout")).Once()

	_, err := svc.GetProduct(context.Background(), "p-1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, errors.NotFound))
	assert.Contains(t, err.Error(), "timeout")
}

func TestService_UpdateProduct(t *testing.T) {
	svc, _, metrics := newFakeService(t)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, "u-1", validInput())
	require.NoError(t, err)

	attrs, err := svc.UpdateProduct(ctx, created.ID, []Field{{Name: "price", Value: "19.99"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"price": "19.99"}, attrs)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Updated))

	got, err := svc.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	want := created
	want.Price = "19.99"
	assert.Equal(t, itemOf(want), got)
}

func TestService_UpdateProduct_NonStringValueKeepsReadsWorking(t *testing.T) {
	svc, _, _ := newFakeService(t)
	ctx := context.Background()

	mine, err := svc.CreateProduct(ctx, "u-1", validInput())
	require.NoError(t, err)
	theirs, err := svc.CreateProduct(ctx, "u-2", validInput())
	require.NoError(t, err)

	_, err = svc.UpdateProduct(ctx, mine.ID, []Field{{Name: "name", Value: map[string]interface{}{"en": "Lamp"}}})
	require.NoError(t, err)

	got, err := svc.GetProduct(ctx, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"en": "Lamp"}, got["name"])

	list, err := svc.ListProductsByUser(ctx, "u-2")
	require.NoError(t, err)
	assert.Equal(t, []Item{itemOf(theirs)}, list)

	list, err = svc.ListProductsByUser(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, map[string]interface{}{"en": "Lamp"}, list[0]["name"])
}

func TestService_UpdateProduct_ExtraAttributeRoundTrips(t *testing.T) {
	svc, _, _ := newFakeService(t)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, "u-1", validInput())
	require.NoError(t, err)

	_, err = svc.UpdateProduct(ctx, created.ID, []Field{{Name: "color", Value: "red"}})
	require.NoError(t, err)

	got, err := svc.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	want := itemOf(created)
	want["color"] = "red"
	assert.Equal(t, want, got)
}

func TestService_UpdateProduct_EmptyString(t *testing.T) {
	svc, _, _ := newFakeService(t)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, "u-1", validInput())
	require.NoError(t, err)

	attrs, err := svc.UpdateProduct(ctx, created.ID, []Field{{Name: "name", Value: ""}})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"name": ""}, attrs)

	got, err := svc.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "", got["name"])
}

func TestService_UpdateProduct_AnyField(t *testing.T) {
	svc, _, _ := newFakeService(t)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, "u-1", validInput())
	require.NoError(t, err)

	attrs, err := svc.UpdateProduct(ctx, created.ID, []Field{
		{Name: "userId", Value: "u-2"},
		{Name: "createdAt", Value: "2000-01-01T00:00:00.000Z"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"userId":    "u-2",
		"createdAt": "2000-01-01T00:00:00.000Z",
	}, attrs)
}

func TestService_UpdateProduct_Missing(t *testing.T) {
	svc, table, metrics := newFakeService(t)

	_, err := svc.UpdateProduct(context.Background(), "missing", []Field{{Name: "price", Value: "19.99"}})
	var storeErr *StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "ConditionalCheckFailedException", storeErr.Code())
	assert.Equal(t, 0, table.Len())
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.Updated))
}

func TestService_UpdateProduct_NoFields(t *testing.T) {
	store := new(MockStore)
	svc, _ := newTestService(store)

	store.On("Update", mock.Anything, "p-1", mock.MatchedBy(func(expr UpdateExpression) bool {
		return expr.Clause == "SET" && len(expr.Names) == 0 && len(expr.Values) == 0
	})).Return(nil, &StoreError{Op: "update product"}).Once()

	_, err := svc.UpdateProduct(context.Background(), "p-1", nil)
	require.Error(t, err)
	store.AssertExpectations(t)
}

func TestService_DeleteProduct(t *testing.T) {
	svc, table, metrics := newFakeService(t)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, "u-1", validInput())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProduct(ctx, created.ID))
	assert.Equal(t, 0, table.Len())

	_, err = svc.GetProduct(ctx, created.ID)
	assert.True(t, errors.Is(err, errors.NotFound))

	require.NoError(t, svc.DeleteProduct(ctx, created.ID))
	require.NoError(t, svc.DeleteProduct(ctx, "never-created"))
	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.DeleteRequests))
}

func TestService_DeleteProduct_StoreError(t *testing.T) {
	svc, table, metrics := newFakeService(t)
	table.Fail(dynamotest.OpDelete, dynamotest.RequestFailure("ThrottlingException", "slow down", 400))

	err := svc.DeleteProduct(context.Background(), "p-1")
	var storeErr *StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.DeleteRequests))
}
