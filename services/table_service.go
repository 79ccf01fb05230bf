package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-ordering/models"
	"github.com/yeremiapane/restaurant-ordering/utils"
	"gorm.io/gorm"
)

// DefaultCustomerName is stored on sessions opened without a name.
const DefaultCustomerName = "Client"

// DefaultTableCapacity is used when a table is created without a capacity.
const DefaultTableCapacity = 4

type SessionInput struct {
	CustomerName  string
	CustomerPhone *string
	GuestCount    int
}

// EndSessionInput carries the optional settlement. A nil TotalAmount means
// the session total is computed from its orders.
type EndSessionInput struct {
	TotalAmount   *decimal.Decimal
	PaymentMethod string
	Reference     string
}

// TableService guards table occupancy and the session lifecycle.
type TableService struct {
	db        *gorm.DB
	publisher Publisher
	now       func() time.Time
}

func NewTableService(db *gorm.DB, publisher Publisher) *TableService {
	return &TableService{
		db:        db,
		publisher: publisherOrNop(publisher),
		now:       time.Now,
	}
}

// StartSession occupies a free table and opens a session on it. When several
// callers race for the same table exactly one succeeds.
func (s *TableService) StartSession(ctx context.Context, tableID string, in SessionInput) (*models.TableSession, error) {
	if in.GuestCount < 0 {
		return nil, utils.NewValidationError("guest_count must be positive")
	}
	if in.GuestCount == 0 {
		in.GuestCount = 1
	}

	var table models.Table
	if err := s.db.WithContext(ctx).First(&table, "id = ?", tableID).Error; err != nil {
		return nil, lookupError(utils.CodeTableNotFound, "table not found", err)
	}
	if table.Status != models.TableFree {
		return nil, errTableNotAvailable(table.Number)
	}

	if in.CustomerName == "" {
		in.CustomerName = DefaultCustomerName
	}

	now := s.now()
	session := &models.TableSession{
		TableID:       table.ID,
		CustomerName:  in.CustomerName,
		CustomerPhone: in.CustomerPhone,
		GuestCount:    in.GuestCount,
		StartedAt:     now,
		TotalAmount:   decimal.Zero,
		Status:        models.SessionActive,
	}

	err := s.db.WithContext(context.WithoutCancel(ctx)).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Table{}).
			Where("id = ? AND status = ?", table.ID, models.TableFree).
			Updates(map[string]interface{}{"status": models.TableOccupied, "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errTableNotAvailable(table.Number)
		}
		if err := tx.Create(session).Error; err != nil {
			return err
		}
		return tx.Model(&models.Table{}).Where("id = ?", table.ID).
			Update("current_session_id", session.ID).Error
	})
	if err != nil {
		return nil, wrapDBError("failed to start session", err)
	}

	table.Status = models.TableOccupied
	table.CurrentSessionID = &session.ID
	table.UpdatedAt = now
	session.Table = &table

	utils.InfoLogger.WithFields(logrus.Fields{
		"table":   table.Number,
		"session": session.ID,
	}).Info("session started")
	s.publisher.TableStatusChanged(&table)
	return session, nil
}

// ValidateOrderContext returns the session when it is active and, if tableID
// is given, belongs to that table.
func (s *TableService) ValidateOrderContext(ctx context.Context, tableID, sessionID string) (*models.TableSession, error) {
	if sessionID == "" {
		return nil, utils.NewConflictError(utils.CodeSessionInvalid, "session is required")
	}

	var session models.TableSession
	err := s.db.WithContext(ctx).First(&session, "id = ?", sessionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewConflictError(utils.CodeSessionInvalid, "invalid or inactive session")
		}
		return nil, utils.NewInternalError("failed to load session", err)
	}
	if session.Status != models.SessionActive {
		return nil, utils.NewConflictError(utils.CodeSessionInvalid, "invalid or inactive session")
	}
	if tableID != "" && session.TableID != tableID {
		return nil, utils.NewConflictError(utils.CodeSessionInvalid, "session does not belong to this table")
	}
	return &session, nil
}

// EndSession closes the session, records the settlement and sends the table
// to cleaning. Orders still in flight are left as they are.
func (s *TableService) EndSession(ctx context.Context, sessionID string, in EndSessionInput) (*models.TableSession, error) {
	if in.TotalAmount != nil && in.TotalAmount.IsNegative() {
		return nil, utils.NewValidationError("total_amount must not be negative")
	}
	if in.PaymentMethod != "" && !models.IsValidPaymentMethod(in.PaymentMethod) {
		return nil, utils.NewValidationError("unknown payment method: " + in.PaymentMethod)
	}

	var session models.TableSession
	if err := s.db.WithContext(ctx).First(&session, "id = ?", sessionID).Error; err != nil {
		return nil, lookupError(utils.CodeSessionNotFound, "session not found", err)
	}
	if session.IsClosed() {
		return nil, utils.NewConflictError(utils.CodeSessionInvalid, "session already ended")
	}

	now := s.now()
	var table models.Table
	err := s.db.WithContext(context.WithoutCancel(ctx)).Transaction(func(tx *gorm.DB) error {
		total := session.TotalAmount
		if in.TotalAmount != nil {
			total = *in.TotalAmount
		} else {
			var totals []decimal.Decimal
			if err := tx.Model(&models.Order{}).
				Where("session_id = ? AND status <> ?", session.ID, models.OrderCancelled).
				Pluck("total_amount", &totals).Error; err != nil {
				return err
			}
			if len(totals) > 0 {
				total = decimal.Sum(decimal.Zero, totals...)
			}
		}

		res := tx.Model(&models.TableSession{}).
			Where("id = ? AND status = ?", session.ID, session.Status).
			Updates(map[string]interface{}{
				"status":       models.SessionCompleted,
				"ended_at":     now,
				"total_amount": total,
				"updated_at":   now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return utils.NewConflictError(utils.CodeSessionInvalid, "session already ended")
		}

		if in.PaymentMethod != "" {
			payment := &models.Payment{
				SessionID: session.ID,
				Amount:    total,
				Method:    in.PaymentMethod,
				Status:    "completed",
				Reference: in.Reference,
				PaidAt:    now,
			}
			if err := tx.Create(payment).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(&models.Table{}).Where("id = ?", session.TableID).
			Updates(map[string]interface{}{
				"status":             models.TableCleaning,
				"last_cleaned":       now,
				"current_session_id": nil,
				"updated_at":         now,
			}).Error; err != nil {
			return err
		}
		return tx.First(&table, "id = ?", session.TableID).Error
	})
	if err != nil {
		return nil, wrapDBError("failed to end session", err)
	}

	var ended models.TableSession
	if err := s.db.WithContext(context.WithoutCancel(ctx)).Preload("Table").First(&ended, "id = ?", session.ID).Error; err != nil {
		return nil, utils.NewInternalError("failed to reload session", err)
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"table":   table.Number,
		"session": session.ID,
		"total":   ended.TotalAmount.StringFixed(2),
	}).Info("session ended")
	s.publisher.TableStatusChanged(&table)
	return &ended, nil
}

// UpdateTableStatus is the staff override for table status. Occupancy only
// changes through sessions, so occupied is refused here, as is any change
// while a session is active.
func (s *TableService) UpdateTableStatus(ctx context.Context, tableID string, status models.TableStatus, notes *string) (*models.Table, error) {
	if !status.IsValid() {
		return nil, utils.NewValidationError("unknown table status: " + string(status))
	}
	if status == models.TableOccupied {
		return nil, utils.NewValidationError("a table becomes occupied by starting a session")
	}

	var table models.Table
	if err := s.db.WithContext(ctx).First(&table, "id = ?", tableID).Error; err != nil {
		return nil, lookupError(utils.CodeTableNotFound, "table not found", err)
	}

	var active int64
	if err := s.db.WithContext(ctx).Model(&models.TableSession{}).
		Where("table_id = ? AND status = ?", table.ID, models.SessionActive).
		Count(&active).Error; err != nil {
		return nil, utils.NewInternalError("failed to check sessions", err)
	}
	if active > 0 {
		return nil, utils.NewConflictError(utils.CodeTableHasSession, fmt.Sprintf("table %d has an active session", table.Number))
	}

	now := s.now()
	previous := table.Status
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": now,
	}
	if status == models.TableCleaning {
		updates["last_cleaned"] = now
	}
	if notes != nil {
		updates["notes"] = *notes
	}

	// A session started after the check above moves the table off the
	// status we read and sets current_session_id, so the write misses.
	res := s.db.WithContext(context.WithoutCancel(ctx)).Model(&models.Table{}).
		Where("id = ? AND status = ? AND current_session_id IS NULL", table.ID, previous).
		Updates(updates)
	if res.Error != nil {
		return nil, utils.NewInternalError("failed to update table", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, utils.NewConflictError(utils.CodeTableHasSession, fmt.Sprintf("table %d changed while updating, it may have an active session", table.Number))
	}
	if err := s.db.WithContext(context.WithoutCancel(ctx)).First(&table, "id = ?", table.ID).Error; err != nil {
		return nil, utils.NewInternalError("failed to reload table", err)
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"table":    table.Number,
		"previous": previous,
		"status":   table.Status,
	}).Info("table status changed")
	s.publisher.TableStatusChanged(&table)
	return &table, nil
}

type TableInput struct {
	Number   int
	Capacity int
	Notes    string
}

// CreateTable adds a free table. Numbers are unique.
func (s *TableService) CreateTable(ctx context.Context, in TableInput) (*models.Table, error) {
	if in.Number < 1 {
		return nil, utils.NewValidationError("table number must be at least 1")
	}
	if in.Capacity < 0 || in.Capacity > 20 {
		return nil, utils.NewValidationError("capacity must be between 1 and 20")
	}
	if in.Capacity == 0 {
		in.Capacity = DefaultTableCapacity
	}

	taken := func() (bool, error) {
		var count int64
		err := s.db.WithContext(context.WithoutCancel(ctx)).Model(&models.Table{}).Where("number = ?", in.Number).Count(&count).Error
		return count > 0, err
	}
	if exists, err := taken(); err != nil {
		return nil, utils.NewInternalError("failed to check table number", err)
	} else if exists {
		return nil, errTableNumberTaken(in.Number)
	}

	table := &models.Table{
		Number:   in.Number,
		Capacity: in.Capacity,
		Status:   models.TableFree,
		Notes:    in.Notes,
	}
	if err := s.db.WithContext(context.WithoutCancel(ctx)).Create(table).Error; err != nil {
		// lost a race on the unique number index
		if exists, lookupErr := taken(); lookupErr == nil && exists {
			return nil, errTableNumberTaken(in.Number)
		}
		return nil, utils.NewInternalError("failed to create table", err)
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"table":    table.Number,
		"capacity": table.Capacity,
	}).Info("table created")
	s.publisher.TableStatusChanged(table)
	return table, nil
}

// GetTables lists tables by number, optionally filtered by status.
func (s *TableService) GetTables(ctx context.Context, status string) ([]models.Table, error) {
	query := s.db.WithContext(ctx).Order("number ASC")
	if status != "" {
		if !models.TableStatus(status).IsValid() {
			return nil, utils.NewValidationError("unknown table status: " + status)
		}
		query = query.Where("status = ?", status)
	}

	tables := []models.Table{}
	if err := query.Find(&tables).Error; err != nil {
		return nil, utils.NewInternalError("failed to list tables", err)
	}
	return tables, nil
}

// GetTable accepts either the table number or its id.
func (s *TableService) GetTable(ctx context.Context, identifier string) (*models.Table, error) {
	query := s.db.WithContext(ctx)
	if number, err := strconv.Atoi(identifier); err == nil {
		query = query.Where("number = ?", number)
	} else if _, err := uuid.Parse(identifier); err == nil {
		query = query.Where("id = ?", identifier)
	} else {
		return nil, utils.NewValidationError("table identifier must be a number or a uuid")
	}

	var table models.Table
	if err := query.First(&table).Error; err != nil {
		return nil, lookupError(utils.CodeTableNotFound, "table not found", err)
	}
	return &table, nil
}

func (s *TableService) GetActiveSession(ctx context.Context, tableID string) (*models.TableSession, error) {
	var session models.TableSession
	err := s.db.WithContext(ctx).
		Where("table_id = ? AND status = ?", tableID, models.SessionActive).
		First(&session).Error
	if err != nil {
		return nil, lookupError(utils.CodeSessionNotFound, "no active session for this table", err)
	}
	return &session, nil
}

func errTableNotAvailable(number int) error {
	return utils.NewConflictError(utils.CodeTableNotAvailable, fmt.Sprintf("table %d is not available", number))
}

func errTableNumberTaken(number int) error {
	return utils.NewConflictError(utils.CodeTableNumberTaken, fmt.Sprintf("table number %d is already used", number))
}
