package fleet

import (
	"context"
	"testing"
	"time"

	"github.com/liderplast/backoffice/internal/domain"
	"github.com/liderplast/backoffice/internal/testutil"
	"github.com/liderplast/backoffice/pkg/validate"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type recorder struct {
	paths []string
}

func (r *recorder) Invalidate(paths ...string) {
	r.paths = append(r.paths, paths...)
}

type fixture struct {
	db     *gorm.DB
	svc    *Service
	notify *recorder
	furgon domain.Vehicle
	camion domain.Vehicle
	driver domain.Driver
	orders []domain.Order
}

func setup(t *testing.T) *fixture {
	db := testutil.NewDB(t)
	f := &fixture{
		db:     db,
		notify: &recorder{},
		furgon: domain.Vehicle{ID: 1, Name: "Furgón", Capacity: 2, IsActive: true},
		camion: domain.Vehicle{ID: 2, Name: "Camión", Capacity: 0, IsActive: true},
		driver: domain.Driver{ID: 3, Name: "Carlos", IsActive: true},
	}
	f.svc = NewService(db, f.notify)
	require.NoError(t, db.Create(&domain.Province{ID: 1, Name: "Córdoba", IsSellable: true}).Error)
	require.NoError(t, db.Create(&[]domain.Vehicle{f.furgon, f.camion}).Error)
	require.NoError(t, db.Create(&f.driver).Error)
	for i := int64(1); i <= 4; i++ {
		f.orders = append(f.orders, domain.Order{
			ID: 100 + i, OrderNumber: "PED-" + string(rune('A'+i)), ClientName: "Cliente",
			ProvinceID: 1, Channel: domain.ChannelInternal, Status: domain.OrderStatusConfirmed,
		})
	}
	require.NoError(t, db.Create(&f.orders).Error)
	return f
}

func (f *fixture) trip(t *testing.T, vehicleID int64, orderIDs ...int64) *domain.Trip {
	trip, err := f.svc.CreateTrip(context.Background(), TripInput{
		ExactAddress: "Ruta 36 km 12",
		ProvinceID:   1,
		DriverID:     f.driver.ID,
		VehicleID:    vehicleID,
		TripDate:     "2026-03-10",
		Cost:         decimal.NewFromInt(85000),
	}, orderIDs)
	require.NoError(t, err)
	return trip
}

func TestAssignHonorsCapacity(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	trip := f.trip(t, f.furgon.ID)

	require.NoError(t, f.svc.Assign(ctx, f.orders[0].ID, trip.ID))
	require.NoError(t, f.svc.Assign(ctx, f.orders[1].ID, trip.ID))
	err := f.svc.Assign(ctx, f.orders[2].ID, trip.ID)
	assert.ErrorIs(t, err, ErrCapacityFull)
	assert.Equal(t, "capacity full", err.Error())

	d, err := f.svc.Detail(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), d.Occupancy)
	assert.True(t, d.IsFull)
	assert.Len(t, d.Orders, 2)

	require.NoError(t, f.svc.Unassign(ctx, f.orders[0].ID, trip.ID))
	require.NoError(t, f.svc.Assign(ctx, f.orders[2].ID, trip.ID))
	assert.Contains(t, f.notify.paths, "/fletes")
}

func TestConcurrentAssignsNeverOverfill(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.db.Create(&domain.Vehicle{ID: 9, Name: "Moto", Capacity: 1, IsActive: true}).Error)
	trip := f.trip(t, 9)

	results := make([]error, len(f.orders))
	var g errgroup.Group
	for i, o := range f.orders {
		i, orderID := i, o.ID
		g.Go(func() error {
			results[i] = f.svc.Assign(context.Background(), orderID, trip.ID)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assigned := 0
	for _, err := range results {
		if err == nil {
			assigned++
			continue
		}
		assert.ErrorIs(t, err, ErrCapacityFull)
	}
	assert.Equal(t, 1, assigned)
	n, err := occupancy(f.db, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMoveTxRollsBackWithCaller(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	first := f.trip(t, f.camion.ID, f.orders[0].ID)
	second := f.trip(t, f.camion.ID)

	err := f.db.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, f.svc.MoveTx(tx, f.orders[0].ID, 0))
		require.NoError(t, f.svc.MoveTx(tx, f.orders[0].ID, second.ID))
		return gorm.ErrInvalidData
	})
	require.ErrorIs(t, err, gorm.ErrInvalidData)
	cur, err := f.svc.CurrentTrip(ctx, f.orders[0].ID)
	require.NoError(t, err)
	require.NotNil(t, cur)
	assert.Equal(t, first.ID, cur.ID)

	// a second active trip goes through the guard
	err = f.db.Transaction(func(tx *gorm.DB) error {
		return f.svc.MoveTx(tx, f.orders[0].ID, second.ID)
	})
	var conflict *AssignmentConflict
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, first.TripCode, conflict.TripCode)
}

func TestAssignUnlimitedCapacity(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	trip := f.trip(t, f.camion.ID)
	for _, o := range f.orders {
		require.NoError(t, f.svc.Assign(ctx, o.ID, trip.ID))
	}
	d, err := f.svc.Detail(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), d.Occupancy)
	assert.False(t, d.IsFull)
}

func TestAssignRejectsSecondActiveTrip(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	first := f.trip(t, f.camion.ID)
	second := f.trip(t, f.camion.ID)

	require.NoError(t, f.svc.Assign(ctx, f.orders[0].ID, first.ID))
	require.NoError(t, f.svc.Assign(ctx, f.orders[0].ID, first.ID))

	err := f.svc.Assign(ctx, f.orders[0].ID, second.ID)
	var conflict *AssignmentConflict
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, first.TripCode, conflict.TripCode)
	assert.Equal(t, "already assigned to trip "+first.TripCode+" (status PLANNED)", err.Error())

	_, err = f.svc.UpdateStatus(ctx, first.ID, domain.TripStatusInRoute)
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, first.ID, domain.TripStatusDelivered)
	require.NoError(t, err)
	require.NoError(t, f.svc.Assign(ctx, f.orders[0].ID, second.ID))

	cur, err := f.svc.CurrentTrip(ctx, f.orders[0].ID)
	require.NoError(t, err)
	require.NotNil(t, cur)
	assert.Equal(t, second.ID, cur.ID)
}

func TestAssignToClosedTrip(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	trip := f.trip(t, f.camion.ID)
	_, err := f.svc.UpdateStatus(ctx, trip.ID, domain.TripStatusCancelled)
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.Assign(ctx, f.orders[0].ID, trip.ID), ErrTripNotActive)
}

func TestCreateTripAllOrNothing(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	busy := f.trip(t, f.camion.ID, f.orders[1].ID)

	var before int64
	f.db.Model(&domain.Trip{}).Count(&before)

	_, err := f.svc.CreateTrip(ctx, TripInput{
		ExactAddress: "Ruta 9", ProvinceID: 1, DriverID: f.driver.ID, VehicleID: f.camion.ID, TripDate: "2026-03-11",
	}, []int64{f.orders[0].ID, f.orders[1].ID})
	var conflict *AssignmentConflict
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, busy.TripCode, conflict.TripCode)

	var after, links int64
	f.db.Model(&domain.Trip{}).Count(&after)
	assert.Equal(t, before, after)
	f.db.Model(&domain.TripOrder{}).Where("order_id = ?", f.orders[0].ID).Count(&links)
	assert.Zero(t, links)
}

func TestCreateTripChecksVehicleCapacity(t *testing.T) {
	f := setup(t)
	_, err := f.svc.CreateTrip(context.Background(), TripInput{
		ExactAddress: "Ruta 9", ProvinceID: 1, DriverID: f.driver.ID, VehicleID: f.furgon.ID, TripDate: "2026-03-11",
	}, []int64{f.orders[0].ID, f.orders[1].ID, f.orders[2].ID})
	assert.ErrorIs(t, err, ErrCapacityFull)

	trip := f.trip(t, f.furgon.ID, f.orders[0].ID, f.orders[1].ID, f.orders[1].ID)
	d, err := f.svc.Detail(context.Background(), trip.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), d.Occupancy)
}

func TestCreateTripValidation(t *testing.T) {
	f := setup(t)
	_, err := f.svc.CreateTrip(context.Background(), TripInput{ProvinceID: 1}, nil)
	require.Error(t, err)
	assert.Equal(t, "exact_address is required", err.Error())

	_, err = f.svc.CreateTrip(context.Background(), TripInput{
		ExactAddress: "x", ProvinceID: 1, DriverID: f.driver.ID, VehicleID: f.furgon.ID, TripDate: "pronto",
	}, nil)
	require.Error(t, err)
	fe, ok := err.(*validate.FieldError)
	require.True(t, ok)
	assert.Equal(t, "trip_date", fe.Field)

	_, err = f.svc.CreateTrip(context.Background(), TripInput{
		ExactAddress: "x", ProvinceID: 1, DriverID: f.driver.ID, VehicleID: 999, TripDate: "2026-03-11",
	}, nil)
	require.Error(t, err)
	assert.Equal(t, "vehicle 999 does not exist", err.Error())
}

func TestStatusTransitions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	trip := f.trip(t, f.camion.ID)

	_, err := f.svc.UpdateStatus(ctx, trip.ID, domain.TripStatusDelivered)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	got, err := f.svc.UpdateStatus(ctx, trip.ID, domain.TripStatusInRoute)
	require.NoError(t, err)
	assert.Equal(t, domain.TripStatusInRoute, got.Status)

	_, err = f.svc.UpdateStatus(ctx, trip.ID, domain.TripStatusCancelled)
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, trip.ID, domain.TripStatusPlanned)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	assert.True(t, CanTransition(domain.TripStatusPlanned, domain.TripStatusCancelled))
	assert.False(t, CanTransition(domain.TripStatusDelivered, domain.TripStatusCancelled))
}

func TestUpdateTripRefusesSmallerVehicle(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	trip := f.trip(t, f.camion.ID, f.orders[0].ID, f.orders[1].ID, f.orders[2].ID)

	v := f.furgon.ID
	_, err := f.svc.UpdateTrip(ctx, trip.ID, TripPatch{VehicleID: &v})
	assert.ErrorIs(t, err, ErrCapacityFull)

	notes := "cargar temprano"
	date := "2026-04-01"
	got, err := f.svc.UpdateTrip(ctx, trip.ID, TripPatch{Notes: &notes, TripDate: &date})
	require.NoError(t, err)
	assert.Equal(t, notes, got.Notes)
	assert.Equal(t, time.April, got.TripDate.Month())
}

func TestUpdateTripChecksReferences(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	trip := f.trip(t, f.camion.ID)

	missing := int64(999)
	_, err := f.svc.UpdateTrip(ctx, trip.ID, TripPatch{DriverID: &missing})
	require.Error(t, err)
	assert.Equal(t, "driver 999 does not exist", err.Error())
	_, err = f.svc.UpdateTrip(ctx, trip.ID, TripPatch{ProvinceID: &missing})
	require.Error(t, err)
	assert.Equal(t, "province 999 does not exist", err.Error())
	_, err = f.svc.UpdateTrip(ctx, trip.ID, TripPatch{VehicleID: &missing})
	require.Error(t, err)
	assert.Equal(t, "vehicle 999 does not exist", err.Error())

	var stored domain.Trip
	require.NoError(t, f.db.First(&stored, trip.ID).Error)
	assert.Equal(t, f.driver.ID, stored.DriverID)
	assert.Equal(t, int64(1), stored.ProvinceID)

	require.NoError(t, f.db.Create(&domain.Driver{ID: 4, Name: "Marta", IsActive: true}).Error)
	driver := int64(4)
	got, err := f.svc.UpdateTrip(ctx, trip.ID, TripPatch{DriverID: &driver})
	require.NoError(t, err)
	assert.Equal(t, driver, got.DriverID)
}

func TestListAndOverdue(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.trip(t, f.furgon.ID, f.orders[0].ID)
	delivered := f.trip(t, f.camion.ID)
	_, err := f.svc.UpdateStatus(ctx, delivered.ID, domain.TripStatusInRoute)
	require.NoError(t, err)

	rows, total, err := f.svc.List(ctx, TripFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, rows, 2)

	rows, total, err = f.svc.List(ctx, TripFilter{Status: domain.TripStatusPlanned})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Furgón", rows[0].VehicleName)
	assert.Equal(t, "Carlos", rows[0].DriverName)
	assert.Equal(t, int64(1), rows[0].Occupancy)

	late, err := f.svc.Overdue(ctx, time.Date(2026, 3, 11, 0, 0, 0, 0, time.Local))
	require.NoError(t, err)
	assert.Len(t, late, 1)
}

func TestDeleteTripDropsLinks(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	trip := f.trip(t, f.furgon.ID, f.orders[0].ID)
	require.NoError(t, f.svc.DeleteTrip(ctx, trip.ID))

	var n int64
	f.db.Model(&domain.TripOrder{}).Count(&n)
	assert.Zero(t, n)
	assert.ErrorIs(t, f.svc.Unassign(ctx, f.orders[0].ID, 0), gorm.ErrRecordNotFound)
}
