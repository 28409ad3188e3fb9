package fleet

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/liderplast/backoffice/internal/domain"
	"github.com/liderplast/backoffice/pkg/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrCapacityFull  = errors.New("capacity full")
	ErrTripNotActive = errors.New("trip is not active")
)

// AssignmentConflict the order already rides on another active trip
type AssignmentConflict struct {
	OrderID  int64  `json:"order_id,string"`
	TripID   int64  `json:"trip_id,string"`
	TripCode string `json:"trip_code"`
	Status   string `json:"status"`
}

func (e *AssignmentConflict) Error() string {
	return fmt.Sprintf("already assigned to trip %s (status %s)", e.TripCode, e.Status)
}

// Notifier receives the view paths made stale by a write
type Notifier interface {
	Invalidate(paths ...string)
}

// Service trips and the order assignment guard
type Service struct {
	db     *gorm.DB
	notify Notifier
	loc    *time.Location
}

func NewService(db *gorm.DB, notify Notifier) *Service {
	return &Service{db: db, notify: notify, loc: time.Local}
}

// SetLocation sets the zone used to read trip dates without offset
func (s *Service) SetLocation(loc *time.Location) {
	if loc != nil {
		s.loc = loc
	}
}

func (s *Service) invalidate(tripID int64, orderIDs ...int64) {
	if s.notify == nil {
		return
	}
	paths := []string{"/fletes"}
	if tripID != 0 {
		paths = append(paths, "/fletes/"+strconv.FormatInt(tripID, 10))
	}
	for _, id := range orderIDs {
		paths = append(paths, "/orders/"+strconv.FormatInt(id, 10))
	}
	s.notify.Invalidate(paths...)
}

// lockTrip loads the trip; on postgres the row stays locked until the
// transaction ends so assignments to one trip run one after another
func lockTrip(tx *gorm.DB, id int64, trip *domain.Trip) error {
	q := tx
	if strings.EqualFold(tx.Name(), "postgres") {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q.First(trip, id).Error
}

func vehicleCapacity(tx *gorm.DB, vehicleID int64) (int, error) {
	if vehicleID == 0 {
		return 0, nil
	}
	var v domain.Vehicle
	err := tx.Select("id", "capacity").First(&v, vehicleID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return v.Capacity, nil
}

func occupancy(tx *gorm.DB, tripID int64) (int64, error) {
	var n int64
	err := tx.Model(&domain.TripOrder{}).Where("trip_id = ?", tripID).Count(&n).Error
	return n, err
}

type activeLink struct {
	OrderID  int64
	TripID   int64
	TripCode string
	Status   string
}

// activeLinks returns the links of the orders to active trips other than
// exceptTrip
func activeLinks(tx *gorm.DB, orderIDs []int64, exceptTrip int64) ([]activeLink, error) {
	var rows []activeLink
	if len(orderIDs) == 0 {
		return rows, nil
	}
	q := tx.Table("trip_orders").
		Select("trip_orders.order_id, trips.id AS trip_id, trips.trip_code, trips.status").
		Joins("JOIN trips ON trips.id = trip_orders.trip_id").
		Where("trip_orders.order_id IN ?", orderIDs).
		Where("trips.status IN ?", domain.ActiveTripStatuses)
	if exceptTrip != 0 {
		q = q.Where("trips.id <> ?", exceptTrip)
	}
	err := q.Order("trip_orders.created_at ASC").Scan(&rows).Error
	return rows, err
}

func conflictOf(l activeLink) *AssignmentConflict {
	return &AssignmentConflict{OrderID: l.OrderID, TripID: l.TripID, TripCode: l.TripCode, Status: l.Status}
}

// insertGuarded writes the link only if the trip has room and the order is
// not on another active trip, in one statement
const insertGuarded = `INSERT INTO trip_orders (id, trip_id, order_id, created_at)
SELECT CAST(? AS BIGINT), CAST(? AS BIGINT), CAST(? AS BIGINT), CURRENT_TIMESTAMP
WHERE (? = 0 OR (SELECT COUNT(*) FROM trip_orders WHERE trip_id = ?) < ?)
AND NOT EXISTS (
	SELECT 1 FROM trip_orders lk JOIN trips t ON t.id = lk.trip_id
	WHERE lk.order_id = ? AND t.id <> ? AND t.status IN ?
)`

// Assign links an order to a trip. Assigning an order already on the trip
// is a no-op.
func (s *Service) Assign(ctx context.Context, orderID, tripID int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return assignTx(tx, orderID, tripID)
	})
	if err != nil {
		return err
	}
	zap.L().Info("order assigned to trip",
		zap.Int64("order_id", orderID),
		zap.Int64("trip_id", tripID),
		zap.String("namespace", "fleet"))
	s.invalidate(tripID, orderID)
	return nil
}

func assignTx(tx *gorm.DB, orderID, tripID int64) error {
	var trip domain.Trip
	if err := lockTrip(tx, tripID, &trip); err != nil {
		return errors.Wrap(err, "load trip")
	}
	if !trip.IsActive() {
		return errors.Wrapf(ErrTripNotActive, "trip %s is %s", trip.TripCode, trip.Status)
	}
	var order domain.Order
	if err := tx.Select("id").First(&order, orderID).Error; err != nil {
		return errors.Wrap(err, "load order")
	}
	var linked int64
	if err := tx.Model(&domain.TripOrder{}).
		Where("trip_id = ? AND order_id = ?", tripID, orderID).Count(&linked).Error; err != nil {
		return err
	}
	if linked > 0 {
		return nil
	}
	capacity, err := vehicleCapacity(tx, trip.VehicleID)
	if err != nil {
		return err
	}

	res := tx.Exec(insertGuarded,
		common.UUIDint64(), tripID, orderID,
		capacity, tripID, capacity,
		orderID, tripID, domain.ActiveTripStatuses)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	links, err := activeLinks(tx, []int64{orderID}, tripID)
	if err != nil {
		return err
	}
	if len(links) > 0 {
		return conflictOf(links[0])
	}
	return ErrCapacityFull
}

// Unassign removes the order from tripID, or from every trip when tripID is 0
func (s *Service) Unassign(ctx context.Context, orderID, tripID int64) error {
	q := s.db.WithContext(ctx).Where("order_id = ?", orderID)
	if tripID != 0 {
		q = q.Where("trip_id = ?", tripID)
	}
	res := q.Delete(&domain.TripOrder{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	zap.L().Info("order removed from trip",
		zap.Int64("order_id", orderID),
		zap.Int64("trip_id", tripID),
		zap.String("namespace", "fleet"))
	s.invalidate(tripID, orderID)
	return nil
}

// CurrentTrip returns the active trip carrying the order, nil when none
func (s *Service) CurrentTrip(ctx context.Context, orderID int64) (*domain.Trip, error) {
	return currentTrip(s.db.WithContext(ctx), orderID)
}

// MoveTx applies an order form trip choice inside tx: tripID 0 takes the
// order off its current active trip, any other trip goes through the
// assignment guard. The caller owns the transaction and the view
// invalidation.
func (s *Service) MoveTx(tx *gorm.DB, orderID, tripID int64) error {
	current, err := currentTrip(tx, orderID)
	if err != nil {
		return err
	}
	switch {
	case tripID == 0:
		if current == nil {
			return nil
		}
		if err := tx.Where("order_id = ? AND trip_id = ?", orderID, current.ID).
			Delete(&domain.TripOrder{}).Error; err != nil {
			return err
		}
	case current != nil && current.ID == tripID:
		return nil
	default:
		if err := assignTx(tx, orderID, tripID); err != nil {
			return err
		}
	}
	zap.L().Info("order trip changed",
		zap.Int64("order_id", orderID),
		zap.Int64("trip_id", tripID),
		zap.String("namespace", "fleet"))
	return nil
}

func currentTrip(db *gorm.DB, orderID int64) (*domain.Trip, error) {
	var trips []domain.Trip
	err := db.
		Joins("JOIN trip_orders ON trip_orders.trip_id = trips.id").
		Where("trip_orders.order_id = ?", orderID).
		Where("trips.status IN ?", domain.ActiveTripStatuses).
		Order("trips.trip_date ASC").
		Limit(1).
		Find(&trips).Error
	if err != nil {
		return nil, err
	}
	if len(trips) == 0 {
		return nil, nil
	}
	return &trips[0], nil
}
