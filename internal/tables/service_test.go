package tables

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dvillamizar/restopos-backend/internal/integrity"
	"github.com/dvillamizar/restopos-backend/internal/testdb"
	"github.com/dvillamizar/restopos-backend/pkg/db/models"
	"github.com/dvillamizar/restopos-backend/pkg/enums"
	"github.com/dvillamizar/restopos-backend/pkg/errors"
	"github.com/dvillamizar/restopos-backend/pkg/logger"
)

func newService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	conn := testdb.Open(t)
	guard, err := integrity.NewGuard(conn, nil)
	require.NoError(t, err)
	svc, err := NewService(Params{
		Tx:     testdb.Runner{DB: conn},
		Conn:   conn,
		Guard:  guard,
		Logger: logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}}),
	})
	require.NoError(t, err)
	return svc, conn
}

func seedLocation(t *testing.T, conn *gorm.DB) uuid.UUID {
	t.Helper()
	loc := models.Location{ID: uuid.New(), Name: "terraza"}
	require.NoError(t, conn.Create(&loc).Error)
	return loc.ID
}

func seedWaiter(t *testing.T, conn *gorm.DB) uuid.UUID {
	t.Helper()
	user := models.User{
		ID: uuid.New(), Name: "Ana", Username: uuid.NewString(),
		PasswordHash: "x", Email: uuid.NewString() + "@resto.co", Active: true,
		Status: enums.RecordStatusActive,
	}
	require.NoError(t, conn.Create(&user).Error)
	return user.ID
}

func seedTable(t *testing.T, conn *gorm.DB, locID uuid.UUID, status enums.TableStatus) *models.Table {
	t.Helper()
	table := models.Table{ID: uuid.New(), Name: "M1", Capacity: 4, LocationID: locID, Status: status}
	require.NoError(t, conn.Create(&table).Error)
	return &table
}

func TestCreate_RequiresLiveLocation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.Create(ctx, CreateInput{Name: "M1", Capacity: 4, LocationID: uuid.New()})
	assert.True(t, errors.HasCode(err, errors.CodeDanglingReference))
}

func TestCreate_StartsAvailable(t *testing.T) {
	ctx := context.Background()
	svc, conn := newService(t)

	table, err := svc.Create(ctx, CreateInput{Name: "M1", Capacity: 4, LocationID: seedLocation(t, conn)})
	require.NoError(t, err)
	assert.Equal(t, enums.TableStatusAvailable, table.Status)
	assert.Nil(t, table.AssignedUserID)
}

func TestAssign_OccupiesAndRecordsWaiter(t *testing.T) {
	ctx := context.Background()
	svc, conn := newService(t)
	table := seedTable(t, conn, seedLocation(t, conn), enums.TableStatusAvailable)
	waiter := seedWaiter(t, conn)

	assigned, err := svc.Assign(ctx, table.ID, waiter)
	require.NoError(t, err)
	assert.Equal(t, enums.TableStatusOccupied, assigned.Status)
	require.NotNil(t, assigned.AssignedUserID)
	assert.Equal(t, waiter, *assigned.AssignedUserID)
	assert.Equal(t, 2, assigned.Version)
}

func TestAssign_OccupiedTableRejected(t *testing.T) {
	ctx := context.Background()
	svc, conn := newService(t)
	table := seedTable(t, conn, seedLocation(t, conn), enums.TableStatusOccupied)

	_, err := svc.Assign(ctx, table.ID, seedWaiter(t, conn))
	assert.True(t, errors.HasCode(err, errors.CodeTableNotAvailable))
}

func TestAssign_UnknownWaiterRejected(t *testing.T) {
	ctx := context.Background()
	svc, conn := newService(t)
	table := seedTable(t, conn, seedLocation(t, conn), enums.TableStatusAvailable)

	_, err := svc.Assign(ctx, table.ID, uuid.New())
	assert.True(t, errors.HasCode(err, errors.CodeDanglingReference))
}

func TestAssign_PreAssignedWaiterOverwritten(t *testing.T) {
	ctx := context.Background()
	svc, conn := newService(t)
	stale := seedWaiter(t, conn)
	table := seedTable(t, conn, seedLocation(t, conn), enums.TableStatusAvailable)
	require.NoError(t, conn.Model(&models.Table{}).Where("id = ?", table.ID).Update("id_assigned_user", stale).Error)

	fresh := seedWaiter(t, conn)
	assigned, err := svc.Assign(ctx, table.ID, fresh)
	require.NoError(t, err)
	assert.Equal(t, fresh, *assigned.AssignedUserID)
}

func TestAssign_ConcurrentCallersSingleWinner(t *testing.T) {
	ctx := context.Background()
	svc, conn := newService(t)
	table := seedTable(t, conn, seedLocation(t, conn), enums.TableStatusAvailable)

	const callers = 8
	waiters := make([]uuid.UUID, callers)
	for i := range waiters {
		waiters[i] = seedWaiter(t, conn)
	}

	var start sync.WaitGroup
	start.Add(1)
	results := make(chan error, callers)
	for _, waiter := range waiters {
		go func(waiter uuid.UUID) {
			start.Wait()
			_, err := svc.Assign(ctx, table.ID, waiter)
			results <- err
		}(waiter)
	}
	start.Done()

	var winners, losers int
	for i := 0; i < callers; i++ {
		err := <-results
		if err == nil {
			winners++
			continue
		}
		losers++
		assert.True(t,
			errors.HasCode(err, errors.CodeTableNotAvailable) || errors.HasCode(err, errors.CodeConflict),
			"loser got %v", err)
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, callers-1, losers)

	final, err := svc.Get(ctx, table.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.TableStatusOccupied, final.Status)
}

func TestRelease_FreesTableAndClearsAssignment(t *testing.T) {
	ctx := context.Background()
	svc, conn := newService(t)
	table := seedTable(t, conn, seedLocation(t, conn), enums.TableStatusAvailable)
	waiter := seedWaiter(t, conn)
	_, err := svc.Assign(ctx, table.ID, waiter)
	require.NoError(t, err)

	released, err := svc.Release(ctx, table.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.TableStatusAvailable, released.Status)
	assert.Nil(t, released.AssignedUserID)
}

func TestRelease_AvailableTableRejected(t *testing.T) {
	ctx := context.Background()
	svc, conn := newService(t)
	table := seedTable(t, conn, seedLocation(t, conn), enums.TableStatusAvailable)

	_, err := svc.Release(ctx, table.ID)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidTransition))
}

func TestDelete_BlockedByLiveOrders(t *testing.T) {
	ctx := context.Background()
	svc, conn := newService(t)
	table := seedTable(t, conn, seedLocation(t, conn), enums.TableStatusOccupied)
	order := models.Order{ID: uuid.New(), TableID: table.ID, Status: enums.OrderStatusCreated, CreatedByUserID: uuid.New()}
	require.NoError(t, conn.Create(&order).Error)

	err := svc.Delete(ctx, table.ID)
	assert.True(t, errors.HasCode(err, errors.CodeReferencedInUse))
}

func TestDelete_TombstonesWhenUnreferenced(t *testing.T) {
	ctx := context.Background()
	svc, conn := newService(t)
	table := seedTable(t, conn, seedLocation(t, conn), enums.TableStatusAvailable)

	require.NoError(t, svc.Delete(ctx, table.ID))

	_, err := svc.Get(ctx, table.ID)
	assert.True(t, errors.HasCode(err, errors.CodeNotFound))
}
