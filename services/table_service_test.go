package services

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-ordering/models"
	"github.com/yeremiapane/restaurant-ordering/utils"
	"gorm.io/gorm"
)

func TestStartSession(t *testing.T) {
	db := setupTestDB(t)
	pub := &recordingPublisher{}
	svc := NewTableService(db, pub)
	table := createTable(t, db, 3)

	session, err := svc.StartSession(context.Background(), table.ID, SessionInput{CustomerName: "Awa", GuestCount: 2})
	require.NoError(t, err)
	assert.Equal(t, models.SessionActive, session.Status)
	assert.Equal(t, 2, session.GuestCount)

	var stored models.Table
	require.NoError(t, db.First(&stored, "id = ?", table.ID).Error)
	assert.Equal(t, models.TableOccupied, stored.Status)
	require.NotNil(t, stored.CurrentSessionID)
	assert.Equal(t, session.ID, *stored.CurrentSessionID)

	require.Len(t, pub.tables, 1)
	assert.Equal(t, models.TableOccupied, pub.tables[0].Status)

	_, err = svc.StartSession(context.Background(), table.ID, SessionInput{GuestCount: 1})
	assert.True(t, utils.HasCode(err, utils.CodeTableNotAvailable))
}

func TestStartSessionUnknownTable(t *testing.T) {
	svc := NewTableService(setupTestDB(t), nil)
	_, err := svc.StartSession(context.Background(), "00000000-0000-0000-0000-000000000000", SessionInput{})
	assert.True(t, utils.HasCode(err, utils.CodeTableNotFound))
}

func TestStartSessionConcurrentCallersOneWins(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTableService(db, nil)
	table := createTable(t, db, 7)

	const callers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		wins     int
		rejected int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.StartSession(context.Background(), table.ID, SessionInput{GuestCount: 2})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
			} else if utils.HasCode(err, utils.CodeTableNotAvailable) {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, callers-1, rejected)

	var count int64
	require.NoError(t, db.Model(&models.TableSession{}).Where("table_id = ?", table.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestValidateOrderContext(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTableService(db, nil)
	table := createTable(t, db, 1)
	other := createTable(t, db, 2)
	ctx := context.Background()

	session, err := svc.StartSession(ctx, table.ID, SessionInput{})
	require.NoError(t, err)

	got, err := svc.ValidateOrderContext(ctx, table.ID, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)

	_, err = svc.ValidateOrderContext(ctx, "", session.ID)
	assert.NoError(t, err)

	_, err = svc.ValidateOrderContext(ctx, other.ID, session.ID)
	assert.True(t, utils.HasCode(err, utils.CodeSessionInvalid))

	_, err = svc.ValidateOrderContext(ctx, table.ID, "missing")
	assert.True(t, utils.HasCode(err, utils.CodeSessionInvalid))

	_, err = svc.EndSession(ctx, session.ID, EndSessionInput{})
	require.NoError(t, err)
	_, err = svc.ValidateOrderContext(ctx, table.ID, session.ID)
	assert.True(t, utils.HasCode(err, utils.CodeSessionInvalid))
}

func TestEndSessionComputesTotalFromOrders(t *testing.T) {
	db := setupTestDB(t)
	pub := &recordingPublisher{}
	tables := NewTableService(db, pub)
	orders := NewOrderService(db, tables, DefaultPricingPolicy(), pub)
	table := createTable(t, db, 4)
	d := createDish(t, db, "Attieke", 1000, 10, true)
	ctx := context.Background()

	session, err := tables.StartSession(ctx, table.ID, SessionInput{GuestCount: 2})
	require.NoError(t, err)

	first, err := orders.CreateOrder(ctx, CreateOrderInput{TableID: table.ID, SessionID: session.ID, Items: []OrderItemInput{{DishID: d.ID, Quantity: 1}}})
	require.NoError(t, err)
	second, err := orders.CreateOrder(ctx, CreateOrderInput{TableID: table.ID, SessionID: session.ID, Items: []OrderItemInput{{DishID: d.ID, Quantity: 2}}})
	require.NoError(t, err)
	_, err = orders.UpdateOrderStatus(ctx, second.ID, models.OrderCancelled, "")
	require.NoError(t, err)

	ended, err := tables.EndSession(ctx, session.ID, EndSessionInput{PaymentMethod: models.PaymentCash})
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, ended.Status)
	assert.NotNil(t, ended.EndedAt)
	assert.True(t, ended.TotalAmount.Equal(first.TotalAmount), "got %s", ended.TotalAmount)

	var table2 models.Table
	require.NoError(t, db.First(&table2, "id = ?", table.ID).Error)
	assert.Equal(t, models.TableCleaning, table2.Status)
	assert.Nil(t, table2.CurrentSessionID)
	assert.NotNil(t, table2.LastCleaned)

	var payment models.Payment
	require.NoError(t, db.First(&payment, "session_id = ?", session.ID).Error)
	assert.Equal(t, models.PaymentCash, payment.Method)
	assert.True(t, payment.Amount.Equal(first.TotalAmount))

	last := pub.tables[len(pub.tables)-1]
	assert.Equal(t, models.TableCleaning, last.Status)

	_, err = tables.EndSession(ctx, session.ID, EndSessionInput{})
	assert.True(t, utils.HasCode(err, utils.CodeSessionInvalid))
}

func TestEndSessionPaymentOverride(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTableService(db, nil)
	table := createTable(t, db, 9)
	ctx := context.Background()

	session, err := svc.StartSession(ctx, table.ID, SessionInput{})
	require.NoError(t, err)

	amount := decimal.RequireFromString("4500.50")
	ended, err := svc.EndSession(ctx, session.ID, EndSessionInput{TotalAmount: &amount})
	require.NoError(t, err)
	assert.True(t, ended.TotalAmount.Equal(amount))

	var payments int64
	require.NoError(t, db.Model(&models.Payment{}).Count(&payments).Error)
	assert.Zero(t, payments)
}

func TestEndSessionValidation(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTableService(db, nil)
	ctx := context.Background()

	_, err := svc.EndSession(ctx, "missing", EndSessionInput{})
	assert.True(t, utils.HasCode(err, utils.CodeSessionNotFound))

	_, err = svc.EndSession(ctx, "missing", EndSessionInput{PaymentMethod: "bitcoin"})
	assert.True(t, utils.IsKind(err, utils.KindValidation))

	negative := decimal.NewFromInt(-1)
	_, err = svc.EndSession(ctx, "missing", EndSessionInput{TotalAmount: &negative})
	assert.True(t, utils.IsKind(err, utils.KindValidation))
}

func TestUpdateTableStatus(t *testing.T) {
	db := setupTestDB(t)
	pub := &recordingPublisher{}
	svc := NewTableService(db, pub)
	table := createTable(t, db, 5)
	ctx := context.Background()

	notes := "wobbly leg"
	updated, err := svc.UpdateTableStatus(ctx, table.ID, models.TableOutOfService, &notes)
	require.NoError(t, err)
	assert.Equal(t, models.TableOutOfService, updated.Status)
	assert.Equal(t, "wobbly leg", updated.Notes)

	updated, err = svc.UpdateTableStatus(ctx, table.ID, models.TableCleaning, nil)
	require.NoError(t, err)
	assert.NotNil(t, updated.LastCleaned)

	_, err = svc.UpdateTableStatus(ctx, table.ID, models.TableOccupied, nil)
	assert.True(t, utils.IsKind(err, utils.KindValidation))

	_, err = svc.UpdateTableStatus(ctx, table.ID, "broken", nil)
	assert.True(t, utils.IsKind(err, utils.KindValidation))

	_, err = svc.UpdateTableStatus(ctx, table.ID, models.TableFree, nil)
	require.NoError(t, err)
	_, err = svc.StartSession(ctx, table.ID, SessionInput{})
	require.NoError(t, err)

	_, err = svc.UpdateTableStatus(ctx, table.ID, models.TableFree, nil)
	assert.True(t, utils.HasCode(err, utils.CodeTableHasSession))

	assert.Len(t, pub.tables, 4)
}

func TestGetTables(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTableService(db, nil)
	ctx := context.Background()
	for _, n := range []int{3, 1, 2} {
		createTable(t, db, n)
	}

	tables, err := svc.GetTables(ctx, "")
	require.NoError(t, err)
	require.Len(t, tables, 3)
	assert.Equal(t, 1, tables[0].Number)
	assert.Equal(t, 3, tables[2].Number)

	_, err = svc.StartSession(ctx, tables[1].ID, SessionInput{})
	require.NoError(t, err)
	occupied, err := svc.GetTables(ctx, string(models.TableOccupied))
	require.NoError(t, err)
	require.Len(t, occupied, 1)
	assert.Equal(t, 2, occupied[0].Number)

	_, err = svc.GetTables(ctx, "gone")
	assert.True(t, utils.IsKind(err, utils.KindValidation))

	byNumber, err := svc.GetTable(ctx, strconv.Itoa(3))
	require.NoError(t, err)
	byID, err := svc.GetTable(ctx, byNumber.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, byID.Number)

	_, err = svc.GetTable(ctx, "42")
	assert.True(t, utils.HasCode(err, utils.CodeTableNotFound))
	_, err = svc.GetTable(ctx, "table-three")
	assert.True(t, utils.IsKind(err, utils.KindValidation))

	session, err := svc.GetActiveSession(ctx, tables[1].ID)
	require.NoError(t, err)
	assert.Equal(t, tables[1].ID, session.TableID)
	_, err = svc.GetActiveSession(ctx, tables[0].ID)
	assert.True(t, utils.HasCode(err, utils.CodeSessionNotFound))
}

func TestStartSessionDefaultsCustomerName(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTableService(db, nil)
	table := createTable(t, db, 12)

	session, err := svc.StartSession(context.Background(), table.ID, SessionInput{})
	require.NoError(t, err)
	assert.Equal(t, DefaultCustomerName, session.CustomerName)
	assert.Equal(t, 1, session.GuestCount)

	var stored models.TableSession
	require.NoError(t, db.First(&stored, "id = ?", session.ID).Error)
	assert.Equal(t, "Client", stored.CustomerName)
}

func TestUpdateTableStatusLosesToSessionStart(t *testing.T) {
	db := setupTestDB(t)
	pub := &recordingPublisher{}
	svc := NewTableService(db, pub)
	table := createTable(t, db, 13)

	// a guest is seated right after the active session check
	var seated bool
	var startErr error
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:seat_guest", func(tx *gorm.DB) {
		if seated || tx.Statement.Table != "table_sessions" {
			return
		}
		seated = true
		_, startErr = svc.StartSession(context.Background(), table.ID, SessionInput{GuestCount: 2})
	}))

	_, err := svc.UpdateTableStatus(context.Background(), table.ID, models.TableOutOfService, nil)
	require.True(t, seated)
	require.NoError(t, startErr)
	assert.True(t, utils.HasCode(err, utils.CodeTableHasSession), "got %v", err)

	var stored models.Table
	require.NoError(t, db.First(&stored, "id = ?", table.ID).Error)
	assert.Equal(t, models.TableOccupied, stored.Status)
	assert.NotNil(t, stored.CurrentSessionID)

	// only the session start was announced
	require.Len(t, pub.tables, 1)
	assert.Equal(t, models.TableOccupied, pub.tables[0].Status)
}

func TestCreateTable(t *testing.T) {
	db := setupTestDB(t)
	pub := &recordingPublisher{}
	svc := NewTableService(db, pub)
	ctx := context.Background()

	table, err := svc.CreateTable(ctx, TableInput{Number: 14})
	require.NoError(t, err)
	assert.Equal(t, DefaultTableCapacity, table.Capacity)
	assert.Equal(t, models.TableFree, table.Status)
	assert.NotEmpty(t, table.ID)
	require.Len(t, pub.tables, 1)

	terrace, err := svc.CreateTable(ctx, TableInput{Number: 15, Capacity: 8, Notes: "terrace"})
	require.NoError(t, err)
	assert.Equal(t, 8, terrace.Capacity)

	_, err = svc.CreateTable(ctx, TableInput{Number: 14, Capacity: 2})
	assert.True(t, utils.HasCode(err, utils.CodeTableNumberTaken))

	for _, in := range []TableInput{{Number: 0}, {Number: -3}, {Number: 16, Capacity: 21}, {Number: 16, Capacity: -1}} {
		_, err := svc.CreateTable(ctx, in)
		assert.True(t, utils.IsKind(err, utils.KindValidation), "%+v", in)
	}

	var count int64
	require.NoError(t, db.Model(&models.Table{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}
