package catalog

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
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

func TestDeleteCategory_BlockedByLiveMenuItems(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	cat, err := svc.CreateCategory(ctx, CategoryInput{Name: "bebidas"})
	require.NoError(t, err)
	_, err = svc.CreateMenuItem(ctx, MenuItemInput{
		Name: "limonada", Ingredients: "limon, agua", EstimatedTime: 5,
		Price: decimal.RequireFromString("5.00"), CategoryID: cat.ID,
	})
	require.NoError(t, err)

	err = svc.DeleteCategory(ctx, cat.ID)
	assert.True(t, errors.HasCode(err, errors.CodeReferencedInUse))
}

func TestDeleteCategory_SucceedsOnceItemsGone(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	cat, err := svc.CreateCategory(ctx, CategoryInput{Name: "bebidas"})
	require.NoError(t, err)
	item, err := svc.CreateMenuItem(ctx, MenuItemInput{
		Name: "limonada", Ingredients: "limon, agua", EstimatedTime: 5,
		Price: decimal.RequireFromString("5.00"), CategoryID: cat.ID,
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteMenuItem(ctx, item.ID))
	require.NoError(t, svc.DeleteCategory(ctx, cat.ID))
}

func TestCreateMenuItem_RequiresLiveCategory(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.CreateMenuItem(context.Background(), MenuItemInput{
		Name: "limonada", Ingredients: "limon", EstimatedTime: 5,
		Price: decimal.RequireFromString("5.00"), CategoryID: uuid.New(),
	})
	assert.True(t, errors.HasCode(err, errors.CodeDanglingReference))
}

func TestRetireMenuItem_SetsInactive(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	cat, err := svc.CreateCategory(ctx, CategoryInput{Name: "bebidas"})
	require.NoError(t, err)
	item, err := svc.CreateMenuItem(ctx, MenuItemInput{
		Name: "limonada", Ingredients: "limon", EstimatedTime: 5,
		Price: decimal.RequireFromString("5.00"), CategoryID: cat.ID,
	})
	require.NoError(t, err)

	retired, err := svc.RetireMenuItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RecordStatusInactive, retired.Status)
}

func TestDeleteMenuItem_BlockedByLiveOrderLines(t *testing.T) {
	ctx := context.Background()
	svc, conn := newService(t)

	cat, err := svc.CreateCategory(ctx, CategoryInput{Name: "bebidas"})
	require.NoError(t, err)
	item, err := svc.CreateMenuItem(ctx, MenuItemInput{
		Name: "limonada", Ingredients: "limon", EstimatedTime: 5,
		Price: decimal.RequireFromString("5.00"), CategoryID: cat.ID,
	})
	require.NoError(t, err)
	line := models.OrderItem{ID: uuid.New(), OrderID: uuid.New(), MenuItemID: item.ID, Quantity: 1}
	require.NoError(t, conn.Create(&line).Error)

	err = svc.DeleteMenuItem(ctx, item.ID)
	assert.True(t, errors.HasCode(err, errors.CodeReferencedInUse))
}

func TestCreateClient_RequiresLiveDocumentType(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.CreateClient(context.Background(), ClientInput{
		FullName: "Carlos Ruiz", PhoneNumber: "3001234567",
		IdentificationNumber: "1020304050", Email: "carlos@mail.co",
		TypeIdentificationID: uuid.New(),
	})
	assert.True(t, errors.HasCode(err, errors.CodeDanglingReference))
}

func TestDeleteTypeIdentification_BlockedByLiveClients(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	ti, err := svc.CreateTypeIdentification(ctx, "cedula")
	require.NoError(t, err)
	_, err = svc.CreateClient(ctx, ClientInput{
		FullName: "Carlos Ruiz", PhoneNumber: "3001234567",
		IdentificationNumber: "1020304050", Email: "carlos@mail.co",
		TypeIdentificationID: ti.ID,
	})
	require.NoError(t, err)

	err = svc.DeleteTypeIdentification(ctx, ti.ID)
	assert.True(t, errors.HasCode(err, errors.CodeReferencedInUse))
}

func TestDeletePaymentMethod_BlockedByLiveInvoices(t *testing.T) {
	ctx := context.Background()
	svc, conn := newService(t)

	pm, err := svc.CreatePaymentMethod(ctx, PaymentMethodInput{Name: "efectivo"})
	require.NoError(t, err)
	invoice := models.Invoice{
		ID: uuid.New(), OrderID: uuid.New(), PaymentMethodID: pm.ID,
		Status: enums.InvoiceStatusPagada,
	}
	require.NoError(t, conn.Create(&invoice).Error)

	err = svc.DeletePaymentMethod(ctx, pm.ID)
	assert.True(t, errors.HasCode(err, errors.CodeReferencedInUse))
}

func TestDeleteLocation_BlockedByLiveTables(t *testing.T) {
	ctx := context.Background()
	svc, conn := newService(t)

	loc, err := svc.CreateLocation(ctx, LocationInput{Name: "terraza"})
	require.NoError(t, err)
	table := models.Table{ID: uuid.New(), Name: "M1", Capacity: 4, LocationID: loc.ID, Status: enums.TableStatusAvailable}
	require.NoError(t, conn.Create(&table).Error)

	err = svc.DeleteLocation(ctx, loc.ID)
	assert.True(t, errors.HasCode(err, errors.CodeReferencedInUse))
}

func TestDeleteClient_AllowedDespiteInvoices(t *testing.T) {
	ctx := context.Background()
	svc, conn := newService(t)

	ti, err := svc.CreateTypeIdentification(ctx, "cedula")
	require.NoError(t, err)
	client, err := svc.CreateClient(ctx, ClientInput{
		FullName: "Carlos Ruiz", PhoneNumber: "3001234567",
		IdentificationNumber: "1020304050", Email: "carlos@mail.co",
		TypeIdentificationID: ti.ID,
	})
	require.NoError(t, err)
	invoice := models.Invoice{
		ID: uuid.New(), OrderID: uuid.New(), PaymentMethodID: uuid.New(),
		ClientID: &client.ID, Status: enums.InvoiceStatusPagada,
	}
	require.NoError(t, conn.Create(&invoice).Error)

	require.NoError(t, svc.DeleteClient(ctx, client.ID))

	var reloaded models.Invoice
	require.NoError(t, conn.First(&reloaded, "id = ?", invoice.ID).Error)
	require.NotNil(t, reloaded.ClientID)
	assert.Equal(t, client.ID, *reloaded.ClientID)
}

func TestUpsertCompany_SingletonCreateThenEdit(t *testing.T) {
	ctx := context.Background()
	svc, conn := newService(t)

	_, err := svc.Company(ctx)
	assert.True(t, errors.HasCode(err, errors.CodeNotFound))

	created, err := svc.UpsertCompany(ctx, CompanyInput{
		Name: "RestoPOS SAS", TaxID: "900123456-7", Address: "Calle 10 #5-51",
		Phone: "6015551234", Email: "facturacion@restopos.co",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, created.Version)

	edited, err := svc.UpsertCompany(ctx, CompanyInput{
		Name: "RestoPOS S.A.S.", TaxID: "900123456-7", Address: "Calle 10 #5-51",
		Phone: "6015551234", Email: "facturacion@restopos.co",
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, edited.ID)
	assert.Equal(t, 2, edited.Version)

	var count int64
	require.NoError(t, conn.Model(&models.InformationCompany{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
