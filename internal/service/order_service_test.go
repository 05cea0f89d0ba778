package service

import (
	"context"
	"testing"
	"time"

	"library-rental/internal/apperrors"
	"library-rental/internal/models"
	"library-rental/internal/penalty"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

// fakeStore is an in-memory OrderStore with the same guard semantics as the
// SQL store: conditional writes succeed only when the row still matches.
type fakeStore struct {
	orders map[int64]*models.Order
	nextID int64

	// beforeWrite runs between the service's read and its guarded write,
	// to simulate a concurrent transition on the same order
	beforeWrite func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{orders: make(map[int64]*models.Order), nextID: 1}
}

func (f *fakeStore) CreateOrder(ctx context.Context, order *models.Order) (bool, error) {
	if f.beforeWrite != nil {
		f.beforeWrite()
	}
	for _, existing := range f.orders {
		if existing.UserID == order.UserID && existing.BookID == order.BookID && existing.IsActive() {
			return false, nil
		}
	}
	order.ID = f.nextID
	f.nextID++
	cp := *order
	f.orders[order.ID] = &cp
	return true, nil
}

func (f *fakeStore) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *order
	return &cp, nil
}

func (f *fakeStore) GetActiveOrder(ctx context.Context, userID, bookID int64) (*models.Order, error) {
	for _, order := range f.orders {
		if order.UserID == userID && order.BookID == bookID && order.IsActive() {
			cp := *order
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) GetOrders(ctx context.Context) ([]models.Order, error) {
	var out []models.Order
	for _, order := range f.orders {
		out = append(out, *order)
	}
	return out, nil
}

func (f *fakeStore) GetOrdersByStatus(ctx context.Context, status string) ([]models.Order, error) {
	var out []models.Order
	for _, order := range f.orders {
		if order.Status == status {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (f *fakeStore) AcceptOrder(ctx context.Context, orderID int64, takenAt, dueDate time.Time) (bool, error) {
	if f.beforeWrite != nil {
		f.beforeWrite()
	}
	order, ok := f.orders[orderID]
	if !ok || order.Status != models.OrderStatusBooked {
		return false, nil
	}
	order.Status = models.OrderStatusTaken
	order.TakenAt = &takenAt
	order.DueDate = &dueDate
	return true, nil
}

func (f *fakeStore) ReturnOrder(ctx context.Context, orderID int64, fromStatus string, returnedAt time.Time, amount float64) (bool, error) {
	if f.beforeWrite != nil {
		f.beforeWrite()
	}
	order, ok := f.orders[orderID]
	if !ok || order.Status != fromStatus {
		return false, nil
	}
	order.Status = models.OrderStatusReturned
	order.ReturnedAt = &returnedAt
	order.Penalty = amount
	return true, nil
}

func (f *fakeStore) RateOrder(ctx context.Context, orderID int64, rating int) (bool, error) {
	if f.beforeWrite != nil {
		f.beforeWrite()
	}
	order, ok := f.orders[orderID]
	if !ok || order.Status != models.OrderStatusReturned || order.Rating != nil {
		return false, nil
	}
	order.Rating = &rating
	return true, nil
}

type fakeBooks struct {
	books map[int64]*models.Book
}

func (f *fakeBooks) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	return f.books[id], nil
}

func newTestService(t *testing.T) (*OrderService, *fakeStore, *fakeClock) {
	t.Helper()

	store := newFakeStore()
	books := &fakeBooks{books: map[int64]*models.Book{
		1: {ID: 1, Title: "The Go Programming Language", DailyPrice: 10},
	}}
	clock := &fakeClock{now: testStart}

	cfg := Config{
		ReservationTTL: 24 * time.Hour,
		LoanPeriod:     7 * 24 * time.Hour,
		Penalty:        penalty.Policy{DailyMultiplier: 1.5, GraceDays: 1},
	}

	return NewOrderService(store, books, clock, nil, cfg), store, clock
}

var (
	member  = models.Caller{ID: 10, Role: models.RoleUser}
	member2 = models.Caller{ID: 11, Role: models.RoleUser}
	admin   = models.Caller{ID: 1, Role: models.RoleAdmin}
)

func TestBookOrder(t *testing.T) {
	svc, _, _ := newTestService(t)

	order, err := svc.BookOrder(context.Background(), member, 1)
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusBooked, order.Status)
	assert.Equal(t, member.ID, order.UserID)
	assert.Equal(t, testStart, order.BookedAt)
	require.NotNil(t, order.DueDate)
	assert.Equal(t, testStart.Add(24*time.Hour), *order.DueDate)
	assert.Zero(t, order.Penalty)
}

func TestBookOrderUnknownBook(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.BookOrder(context.Background(), member, 99)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestBookOrderRequiresMemberRole(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.BookOrder(context.Background(), admin, 1)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestBookOrderNoDoubleBooking(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.BookOrder(ctx, member, 1)
	require.NoError(t, err)

	_, err = svc.BookOrder(ctx, member, 1)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	// still booked, not taken: the hold itself blocks a second booking
	_, err = svc.AcceptOrder(ctx, admin, 1)
	require.NoError(t, err)
	_, err = svc.BookOrder(ctx, member, 1)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	// a different member may still book the same title
	_, err = svc.BookOrder(ctx, member2, 1)
	assert.NoError(t, err)
}

func TestAcceptOrder(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()

	order, err := svc.BookOrder(ctx, member, 1)
	require.NoError(t, err)

	clock.now = clock.now.Add(time.Hour)
	accepted, err := svc.AcceptOrder(ctx, admin, order.ID)
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusTaken, accepted.Status)
	require.NotNil(t, accepted.TakenAt)
	assert.Equal(t, clock.now, *accepted.TakenAt)
	require.NotNil(t, accepted.DueDate)
	assert.Equal(t, clock.now.Add(7*24*time.Hour), *accepted.DueDate)
}

func TestAcceptOrderRequiresAdmin(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	order, err := svc.BookOrder(ctx, member, 1)
	require.NoError(t, err)

	_, err = svc.AcceptOrder(ctx, member, order.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	operator := models.Caller{ID: 2, Role: models.RoleOperator}
	_, err = svc.AcceptOrder(ctx, operator, order.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestAcceptOrderOnlyFromBooked(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	order, err := svc.BookOrder(ctx, member, 1)
	require.NoError(t, err)

	_, err = svc.AcceptOrder(ctx, admin, order.ID)
	require.NoError(t, err)

	_, err = svc.AcceptOrder(ctx, admin, order.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestBookOrderLostRace(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	// a concurrent booking for the same (user, book) lands between the
	// active-order check and the insert
	store.beforeWrite = func() {
		store.beforeWrite = nil
		due := testStart.Add(24 * time.Hour)
		store.orders[99] = &models.Order{
			ID:       99,
			UserID:   member.ID,
			BookID:   1,
			Status:   models.OrderStatusBooked,
			BookedAt: testStart,
			DueDate:  &due,
		}
	}

	_, err := svc.BookOrder(ctx, member, 1)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.True(t, apperrors.IsRetryable(err))

	// exactly one active order survives for the pair
	active := 0
	for _, order := range store.orders {
		if order.UserID == member.ID && order.BookID == 1 && order.IsActive() {
			active++
		}
	}
	assert.Equal(t, 1, active)
}

func TestAcceptOrderLostRace(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	order, err := svc.BookOrder(ctx, member, 1)
	require.NoError(t, err)

	// a concurrent accept lands between our read and our guarded write
	store.beforeWrite = func() {
		store.beforeWrite = nil
		now := testStart
		store.orders[order.ID].Status = models.OrderStatusTaken
		store.orders[order.ID].TakenAt = &now
	}

	_, err = svc.AcceptOrder(ctx, admin, order.ID)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.True(t, apperrors.IsRetryable(err))
}

func TestReturnOrderAssessesPenalty(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()

	order, err := svc.BookOrder(ctx, member, 1)
	require.NoError(t, err)

	clock.now = testStart.Add(time.Hour)
	_, err = svc.AcceptOrder(ctx, admin, order.ID)
	require.NoError(t, err)

	// returned three days after booking: two whole days past hand-off,
	// one of which is grace
	clock.now = testStart.Add(72 * time.Hour)
	returned, err := svc.ReturnOrder(ctx, member, order.ID)
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusReturned, returned.Status)
	assert.Equal(t, 30.0, returned.Penalty) // 2 * 10 * 1.5
	require.NotNil(t, returned.ReturnedAt)
	assert.Equal(t, clock.now, *returned.ReturnedAt)
}

func TestReturnOrderBeforeHandOff(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()

	order, err := svc.BookOrder(ctx, member, 1)
	require.NoError(t, err)

	// never taken: no penalty regardless of elapsed time
	clock.now = testStart.Add(10 * 24 * time.Hour)
	returned, err := svc.ReturnOrder(ctx, member, order.ID)
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusReturned, returned.Status)
	assert.Zero(t, returned.Penalty)
}

func TestReturnOrderOwnershipRequired(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	order, err := svc.BookOrder(ctx, member, 1)
	require.NoError(t, err)

	_, err = svc.ReturnOrder(ctx, member2, order.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestReturnOrderInvalidStates(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	order, err := svc.BookOrder(ctx, member, 1)
	require.NoError(t, err)

	_, err = svc.ReturnOrder(ctx, member, order.ID)
	require.NoError(t, err)

	_, err = svc.ReturnOrder(ctx, member, order.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	store.orders[order.ID].Status = models.OrderStatusCancelled
	_, err = svc.ReturnOrder(ctx, member, order.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestRateOrder(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	order, err := svc.BookOrder(ctx, member, 1)
	require.NoError(t, err)
	_, err = svc.ReturnOrder(ctx, member, order.ID)
	require.NoError(t, err)

	rated, err := svc.RateOrder(ctx, member, order.ID, 3)
	require.NoError(t, err)
	require.NotNil(t, rated.Rating)
	assert.Equal(t, 3, *rated.Rating)

	// a second rating is rejected, even with the same value
	_, err = svc.RateOrder(ctx, member, order.ID, 3)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	assert.Equal(t, 3, *store.orders[order.ID].Rating)
}

func TestRateOrderBounds(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	order, err := svc.BookOrder(ctx, member, 1)
	require.NoError(t, err)
	_, err = svc.ReturnOrder(ctx, member, order.ID)
	require.NoError(t, err)

	for _, rating := range []int{-1, 6, 7} {
		_, err = svc.RateOrder(ctx, member, order.ID, rating)
		assert.ErrorIs(t, err, apperrors.ErrValidation, "rating %d", rating)
	}
	assert.Nil(t, store.orders[order.ID].Rating)
}

func TestRateOrderOnlyWhenReturned(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	order, err := svc.BookOrder(ctx, member, 1)
	require.NoError(t, err)

	_, err = svc.RateOrder(ctx, member, order.ID, 4)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestGetOrderVisibility(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	order, err := svc.BookOrder(ctx, member, 1)
	require.NoError(t, err)

	_, err = svc.GetOrder(ctx, member, order.ID)
	assert.NoError(t, err)

	_, err = svc.GetOrder(ctx, admin, order.ID)
	assert.NoError(t, err)

	_, err = svc.GetOrder(ctx, member2, order.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = svc.GetOrder(ctx, member, 404)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestListOrdersStaffOnly(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.BookOrder(ctx, member, 1)
	require.NoError(t, err)

	orders, err := svc.ListOrders(ctx, admin, "")
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	orders, err = svc.ListOrders(ctx, admin, models.OrderStatusReturned)
	require.NoError(t, err)
	assert.Empty(t, orders)

	_, err = svc.ListOrders(ctx, member, "")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}
