package fleet

import (
	"context"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/liderplast/backoffice/internal/domain"
	"github.com/liderplast/backoffice/pkg/common"
	"github.com/liderplast/backoffice/pkg/validate"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TripInput fields of a new trip
type TripInput struct {
	ExactAddress string          `json:"exact_address" validate:"required"`
	ProvinceID   int64           `json:"province_id,string" validate:"required"`
	DriverID     int64           `json:"driver_id,string" validate:"required"`
	VehicleID    int64           `json:"vehicle_id,string" validate:"required"`
	TripDate     string          `json:"trip_date" validate:"required"`
	Cost         decimal.Decimal `json:"cost" validate:"gte=0"`
	ActualCost   decimal.Decimal `json:"actual_cost" validate:"gte=0"`
	Description  string          `json:"description"`
	Notes        string          `json:"notes"`
}

// TripPatch partial trip update; status changes go through UpdateStatus
type TripPatch struct {
	ExactAddress *string          `json:"exact_address" validate:"omitempty,min=1"`
	ProvinceID   *int64           `json:"province_id,string"`
	DriverID     *int64           `json:"driver_id,string"`
	VehicleID    *int64           `json:"vehicle_id,string"`
	TripDate     *string          `json:"trip_date"`
	Cost         *decimal.Decimal `json:"cost" validate:"omitempty,gte=0"`
	ActualCost   *decimal.Decimal `json:"actual_cost" validate:"omitempty,gte=0"`
	Description  *string          `json:"description"`
	Notes        *string          `json:"notes"`
}

// TripFilter list query
type TripFilter struct {
	Status     string
	ProvinceID int64
	From       time.Time
	To         time.Time
	Page       int
	PageSize   int
}

// TripSummary a trip with its derived occupancy
type TripSummary struct {
	domain.Trip
	VehicleName string `json:"vehicle_name"`
	DriverName  string `json:"driver_name"`
	Capacity    int    `json:"capacity"`
	Occupancy   int64  `json:"occupancy"`
	IsFull      bool   `json:"is_full"`
}

// TripDetail a trip with the orders it carries
type TripDetail struct {
	TripSummary
	Orders []domain.Order `json:"orders"`
}

var ErrInvalidTransition = errors.New("invalid trip status transition")

var transitions = map[string][]string{
	domain.TripStatusPlanned: {domain.TripStatusInRoute, domain.TripStatusCancelled},
	domain.TripStatusInRoute: {domain.TripStatusDelivered, domain.TripStatusCancelled},
}

// CanTransition reports whether a trip may move from one status to another
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (s *Service) parseDate(field, v string) (time.Time, error) {
	t, err := dateparse.ParseIn(v, s.loc)
	if err != nil {
		return time.Time{}, validate.Errorf(field, "date", "%s %q is not a valid date", field, v)
	}
	return t, nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// CreateTrip inserts a trip with its orders. Nothing is written when any
// order already rides on an active trip or the vehicle cannot carry them.
func (s *Service) CreateTrip(ctx context.Context, in TripInput, orderIDs []int64) (*domain.Trip, error) {
	if err := validate.Struct(&in); err != nil {
		return nil, err
	}
	date, err := s.parseDate("trip_date", in.TripDate)
	if err != nil {
		return nil, err
	}
	orderIDs = uniqueIDs(orderIDs)
	now := time.Now()
	trip := &domain.Trip{
		ID:           common.UUIDint64(),
		ProvinceID:   in.ProvinceID,
		ExactAddress: in.ExactAddress,
		TripDate:     date,
		DriverID:     in.DriverID,
		VehicleID:    in.VehicleID,
		Cost:         in.Cost.Round(2),
		ActualCost:   in.ActualCost.Round(2),
		Description:  in.Description,
		Status:       domain.TripStatusPlanned,
		Notes:        in.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	trip.TripCode = common.ShortCode("FL", now, trip.ID)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var vehicle domain.Vehicle
		if err := tx.First(&vehicle, in.VehicleID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return validate.Errorf("vehicle_id", "exists", "vehicle %d does not exist", in.VehicleID)
			}
			return err
		}
		if err := mustExist(tx, &domain.Driver{}, "driver_id", in.DriverID); err != nil {
			return err
		}
		if err := mustExist(tx, &domain.Province{}, "province_id", in.ProvinceID); err != nil {
			return err
		}
		if len(orderIDs) > 0 {
			links, err := activeLinks(tx, orderIDs, 0)
			if err != nil {
				return err
			}
			if len(links) > 0 {
				return conflictOf(links[0])
			}
			if vehicle.Capacity > 0 && len(orderIDs) > vehicle.Capacity {
				return errors.Wrapf(ErrCapacityFull, "%d orders for a vehicle of capacity %d", len(orderIDs), vehicle.Capacity)
			}
			var found int64
			if err := tx.Model(&domain.Order{}).Where("id IN ?", orderIDs).Count(&found).Error; err != nil {
				return err
			}
			if found != int64(len(orderIDs)) {
				return errors.Wrap(gorm.ErrRecordNotFound, "one or more orders do not exist")
			}
		}
		if err := tx.Create(trip).Error; err != nil {
			return err
		}
		if len(orderIDs) == 0 {
			return nil
		}
		links := make([]domain.TripOrder, 0, len(orderIDs))
		for _, id := range orderIDs {
			links = append(links, domain.TripOrder{ID: common.UUIDint64(), TripID: trip.ID, OrderID: id, CreatedAt: now})
		}
		return tx.Create(&links).Error
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("trip created",
		zap.Int64("trip_id", trip.ID),
		zap.String("trip_code", trip.TripCode),
		zap.Int("orders", len(orderIDs)),
		zap.String("namespace", "fleet"))
	s.invalidate(trip.ID, orderIDs...)
	return trip, nil
}

// mustExist reports a missing referenced row as a validation error on field
func mustExist(tx *gorm.DB, model interface{}, field string, id int64) error {
	var n int64
	if err := tx.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		name := strings.TrimSuffix(field, "_id")
		return validate.Errorf(field, "exists", "%s %d does not exist", name, id)
	}
	return nil
}

// UpdateTrip applies a partial update. A vehicle change is refused when the
// new vehicle cannot carry the orders already on the trip.
func (s *Service) UpdateTrip(ctx context.Context, id int64, patch TripPatch) (*domain.Trip, error) {
	if err := validate.Struct(&patch); err != nil {
		return nil, err
	}
	var date time.Time
	if patch.TripDate != nil {
		d, err := s.parseDate("trip_date", *patch.TripDate)
		if err != nil {
			return nil, err
		}
		date = d
	}
	var trip domain.Trip
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockTrip(tx, id, &trip); err != nil {
			return err
		}
		if patch.VehicleID != nil && *patch.VehicleID != trip.VehicleID {
			var vehicle domain.Vehicle
			if err := tx.First(&vehicle, *patch.VehicleID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return validate.Errorf("vehicle_id", "exists", "vehicle %d does not exist", *patch.VehicleID)
				}
				return err
			}
			n, err := occupancy(tx, id)
			if err != nil {
				return err
			}
			if vehicle.Capacity > 0 && n > int64(vehicle.Capacity) {
				return errors.Wrapf(ErrCapacityFull, "trip carries %d orders, vehicle capacity %d", n, vehicle.Capacity)
			}
			trip.VehicleID = vehicle.ID
		}
		if patch.ExactAddress != nil {
			trip.ExactAddress = *patch.ExactAddress
		}
		if patch.ProvinceID != nil && *patch.ProvinceID != trip.ProvinceID {
			if err := mustExist(tx, &domain.Province{}, "province_id", *patch.ProvinceID); err != nil {
				return err
			}
			trip.ProvinceID = *patch.ProvinceID
		}
		if patch.DriverID != nil && *patch.DriverID != trip.DriverID {
			if err := mustExist(tx, &domain.Driver{}, "driver_id", *patch.DriverID); err != nil {
				return err
			}
			trip.DriverID = *patch.DriverID
		}
		if patch.TripDate != nil {
			trip.TripDate = date
		}
		if patch.Cost != nil {
			trip.Cost = patch.Cost.Round(2)
		}
		if patch.ActualCost != nil {
			trip.ActualCost = patch.ActualCost.Round(2)
		}
		if patch.Description != nil {
			trip.Description = *patch.Description
		}
		if patch.Notes != nil {
			trip.Notes = *patch.Notes
		}
		trip.UpdatedAt = time.Now()
		return tx.Save(&trip).Error
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(id)
	return &trip, nil
}

// UpdateStatus moves a trip along PLANNED -> IN_ROUTE -> DELIVERED, or to
// CANCELLED from a non terminal state
func (s *Service) UpdateStatus(ctx context.Context, id int64, status string) (*domain.Trip, error) {
	var trip domain.Trip
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockTrip(tx, id, &trip); err != nil {
			return err
		}
		if trip.Status == status {
			return nil
		}
		if !CanTransition(trip.Status, status) {
			return errors.Wrapf(ErrInvalidTransition, "%s to %s", trip.Status, status)
		}
		trip.Status = status
		trip.UpdatedAt = time.Now()
		return tx.Model(&trip).Updates(map[string]interface{}{"status": status, "updated_at": trip.UpdatedAt}).Error
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("trip status changed",
		zap.Int64("trip_id", id),
		zap.String("status", status),
		zap.String("namespace", "fleet"))
	s.invalidate(id)
	return &trip, nil
}

// DeleteTrip removes the trip and its order links
func (s *Service) DeleteTrip(ctx context.Context, id int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var trip domain.Trip
		if err := tx.First(&trip, id).Error; err != nil {
			return err
		}
		if err := tx.Where("trip_id = ?", id).Delete(&domain.TripOrder{}).Error; err != nil {
			return err
		}
		return tx.Delete(&trip).Error
	})
	if err != nil {
		return err
	}
	zap.L().Info("trip deleted", zap.Int64("trip_id", id), zap.String("namespace", "fleet"))
	s.invalidate(id)
	return nil
}

// summarize attaches vehicle, driver and occupancy to the trips
func summarize(db *gorm.DB, trips []domain.Trip) ([]TripSummary, error) {
	out := make([]TripSummary, 0, len(trips))
	if len(trips) == 0 {
		return out, nil
	}
	tripIDs := make([]int64, 0, len(trips))
	vehicleIDs := make([]int64, 0, len(trips))
	driverIDs := make([]int64, 0, len(trips))
	for _, t := range trips {
		tripIDs = append(tripIDs, t.ID)
		vehicleIDs = append(vehicleIDs, t.VehicleID)
		driverIDs = append(driverIDs, t.DriverID)
	}

	var counts []struct {
		TripID int64
		N      int64
	}
	if err := db.Model(&domain.TripOrder{}).Select("trip_id, COUNT(*) AS n").
		Where("trip_id IN ?", tripIDs).Group("trip_id").Scan(&counts).Error; err != nil {
		return nil, err
	}
	occ := make(map[int64]int64, len(counts))
	for _, c := range counts {
		occ[c.TripID] = c.N
	}

	var vehicles []domain.Vehicle
	if err := db.Where("id IN ?", vehicleIDs).Find(&vehicles).Error; err != nil {
		return nil, err
	}
	vmap := make(map[int64]domain.Vehicle, len(vehicles))
	for _, v := range vehicles {
		vmap[v.ID] = v
	}
	var drivers []domain.Driver
	if err := db.Where("id IN ?", driverIDs).Find(&drivers).Error; err != nil {
		return nil, err
	}
	dmap := make(map[int64]string, len(drivers))
	for _, d := range drivers {
		dmap[d.ID] = d.Name
	}

	for _, t := range trips {
		v := vmap[t.VehicleID]
		n := occ[t.ID]
		out = append(out, TripSummary{
			Trip:        t,
			VehicleName: v.Name,
			DriverName:  dmap[t.DriverID],
			Capacity:    v.Capacity,
			Occupancy:   n,
			IsFull:      v.Capacity > 0 && n >= int64(v.Capacity),
		})
	}
	return out, nil
}

// List returns one page of trips, newest trip date first
func (s *Service) List(ctx context.Context, f TripFilter) ([]TripSummary, int64, error) {
	db := s.db.WithContext(ctx).Model(&domain.Trip{})
	if f.Status != "" {
		db = db.Where("status = ?", f.Status)
	}
	if f.ProvinceID != 0 {
		db = db.Where("province_id = ?", f.ProvinceID)
	}
	if !f.From.IsZero() {
		db = db.Where("trip_date >= ?", f.From)
	}
	if !f.To.IsZero() {
		db = db.Where("trip_date < ?", f.To)
	}
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if f.PageSize <= 0 {
		f.PageSize = 20
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	var trips []domain.Trip
	if err := db.Order("trip_date DESC, created_at DESC").
		Offset((f.Page - 1) * f.PageSize).Limit(f.PageSize).Find(&trips).Error; err != nil {
		return nil, 0, err
	}
	rows, err := summarize(s.db.WithContext(ctx), trips)
	return rows, total, err
}

// Detail loads a trip, its occupancy and its orders
func (s *Service) Detail(ctx context.Context, id int64) (*TripDetail, error) {
	db := s.db.WithContext(ctx)
	var trip domain.Trip
	if err := db.First(&trip, id).Error; err != nil {
		return nil, err
	}
	rows, err := summarize(db, []domain.Trip{trip})
	if err != nil {
		return nil, err
	}
	d := &TripDetail{TripSummary: rows[0], Orders: []domain.Order{}}
	err = db.Joins("JOIN trip_orders ON trip_orders.order_id = orders.id").
		Where("trip_orders.trip_id = ?", id).
		Order("trip_orders.created_at ASC").
		Find(&d.Orders).Error
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Overdue lists planned trips whose date is before the given day
func (s *Service) Overdue(ctx context.Context, before time.Time) ([]TripSummary, error) {
	var trips []domain.Trip
	if err := s.db.WithContext(ctx).
		Where("status = ? AND trip_date < ?", domain.TripStatusPlanned, before).
		Order("trip_date ASC").Find(&trips).Error; err != nil {
		return nil, err
	}
	return summarize(s.db.WithContext(ctx), trips)
}
