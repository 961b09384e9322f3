package catalog

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dvillamizar/restopos-backend/internal/integrity"
	"github.com/dvillamizar/restopos-backend/internal/store"
	"github.com/dvillamizar/restopos-backend/pkg/db"
	"github.com/dvillamizar/restopos-backend/pkg/db/models"
	"github.com/dvillamizar/restopos-backend/pkg/enums"
	"github.com/dvillamizar/restopos-backend/pkg/errors"
	"github.com/dvillamizar/restopos-backend/pkg/logger"
)

// Service manages the reference catalogs behind the dining workflow: menu
// categories and items, billable clients with their document types, payment
// methods, seating locations and the company identity printed on invoices.
// Catalog rows referenced by live operational rows cannot be deleted.
type Service struct {
	tx       db.TxRunner
	conn     *gorm.DB
	guard    *integrity.Guard
	validate *validator.Validate
	logg     *logger.Logger
}

type Params struct {
	Tx     db.TxRunner
	Conn   *gorm.DB
	Guard  *integrity.Guard
	Logger *logger.Logger
}

func NewService(params Params) (*Service, error) {
	if params.Tx == nil {
		return nil, errors.New(errors.CodeInternal, "transaction runner is required")
	}
	if params.Conn == nil {
		return nil, errors.New(errors.CodeInternal, "db handle is required")
	}
	if params.Guard == nil {
		return nil, errors.New(errors.CodeInternal, "integrity guard is required")
	}
	if params.Logger == nil {
		return nil, errors.New(errors.CodeInternal, "logger is required")
	}
	return &Service{
		tx:       params.Tx,
		conn:     params.Conn,
		guard:    params.Guard,
		validate: validator.New(),
		logg:     params.Logger,
	}, nil
}

type CategoryInput struct {
	Name        string `validate:"required"`
	Description *string
}

func (s *Service) CreateCategory(ctx context.Context, input CategoryInput) (*models.Category, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, errors.Wrap(errors.CodeValidation, err, "invalid category input")
	}
	cat := &models.Category{ID: uuid.New(), Name: input.Name, Description: input.Description}
	if err := store.New[models.Category](s.conn).Create(ctx, cat); err != nil {
		return nil, err
	}
	return cat, nil
}

func (s *Service) ListCategories(ctx context.Context) ([]models.Category, error) {
	return store.New[models.Category](s.conn).List(ctx)
}

// DeleteCategory refuses while live menu items still reference the category.
func (s *Service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cats := store.New[models.Category](tx)
		cat, err := cats.Get(ctx, id)
		if err != nil {
			return err
		}
		err = s.guard.WithTx(tx).EnsureNotReferenced(ctx, id,
			integrity.Dependent{Table: "menu_items", Column: "id_category"})
		if err != nil {
			return err
		}
		return cats.SoftDelete(ctx, id, cat.Version)
	})
}

type MenuItemInput struct {
	Name          string `validate:"required"`
	Ingredients   string `validate:"required"`
	EstimatedTime int    `validate:"gt=0"`
	Price         decimal.Decimal
	Image         *string
	CategoryID    uuid.UUID
}

func (s *Service) CreateMenuItem(ctx context.Context, input MenuItemInput) (*models.MenuItem, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, errors.Wrap(errors.CodeValidation, err, "invalid menu item input")
	}
	if input.Price.IsNegative() {
		return nil, errors.New(errors.CodeValidation, "price cannot be negative")
	}
	if err := s.guard.CheckRefs(ctx, integrity.Required("categories", input.CategoryID)); err != nil {
		return nil, err
	}
	item := &models.MenuItem{
		ID:            uuid.New(),
		Name:          input.Name,
		Ingredients:   input.Ingredients,
		EstimatedTime: input.EstimatedTime,
		Price:         input.Price,
		Image:         input.Image,
		CategoryID:    input.CategoryID,
		Status:        enums.RecordStatusActive,
	}
	if err := store.New[models.MenuItem](s.conn).Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateMenuItemPrice changes the menu price going forward. Lines already on
// orders keep their captured price.
func (s *Service) UpdateMenuItemPrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) (*models.MenuItem, error) {
	if price.IsNegative() {
		return nil, errors.New(errors.CodeValidation, "price cannot be negative")
	}
	var updated *models.MenuItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		items := store.New[models.MenuItem](tx)
		item, err := items.Get(ctx, id)
		if err != nil {
			return err
		}
		updated, err = items.Update(ctx, id, item.Version, map[string]any{"price": price})
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RetireMenuItem stops further sales without touching order history.
func (s *Service) RetireMenuItem(ctx context.Context, id uuid.UUID) (*models.MenuItem, error) {
	var retired *models.MenuItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		items := store.New[models.MenuItem](tx)
		item, err := items.Get(ctx, id)
		if err != nil {
			return err
		}
		retired, err = items.Update(ctx, id, item.Version, map[string]any{"status": enums.RecordStatusInactive})
		return err
	})
	if err != nil {
		return nil, err
	}
	return retired, nil
}

// DeleteMenuItem refuses while live order lines still reference the item.
func (s *Service) DeleteMenuItem(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		items := store.New[models.MenuItem](tx)
		item, err := items.Get(ctx, id)
		if err != nil {
			return err
		}
		err = s.guard.WithTx(tx).EnsureNotReferenced(ctx, id,
			integrity.Dependent{Table: "order_items", Column: "id_menu_item"})
		if err != nil {
			return err
		}
		return items.SoftDelete(ctx, id, item.Version)
	})
}

type ClientInput struct {
	FullName             string `validate:"required"`
	Address              *string
	PhoneNumber          string `validate:"required"`
	IdentificationNumber string `validate:"required"`
	Email                string `validate:"required,email"`
	TypeIdentificationID uuid.UUID
}

func (s *Service) CreateClient(ctx context.Context, input ClientInput) (*models.Client, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, errors.Wrap(errors.CodeValidation, err, "invalid client input")
	}
	err := s.guard.CheckRefs(ctx, integrity.Required("type_identification", input.TypeIdentificationID))
	if err != nil {
		return nil, err
	}
	client := &models.Client{
		ID:                   uuid.New(),
		FullName:             input.FullName,
		Address:              input.Address,
		PhoneNumber:          input.PhoneNumber,
		IdentificationNumber: input.IdentificationNumber,
		Email:                input.Email,
		TypeIdentificationID: input.TypeIdentificationID,
	}
	if err := store.New[models.Client](s.conn).Create(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

// DeleteClient is allowed even when invoices reference the client; invoices
// keep the tombstoned row for history.
func (s *Service) DeleteClient(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		clients := store.New[models.Client](tx)
		client, err := clients.Get(ctx, id)
		if err != nil {
			return err
		}
		return clients.SoftDelete(ctx, id, client.Version)
	})
}

func (s *Service) CreateTypeIdentification(ctx context.Context, name string) (*models.TypeIdentification, error) {
	if name == "" {
		return nil, errors.New(errors.CodeValidation, "name is required")
	}
	ti := &models.TypeIdentification{ID: uuid.New(), Name: name}
	if err := store.New[models.TypeIdentification](s.conn).Create(ctx, ti); err != nil {
		return nil, err
	}
	return ti, nil
}

// DeleteTypeIdentification refuses while live clients use the document type.
func (s *Service) DeleteTypeIdentification(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		types := store.New[models.TypeIdentification](tx)
		ti, err := types.Get(ctx, id)
		if err != nil {
			return err
		}
		err = s.guard.WithTx(tx).EnsureNotReferenced(ctx, id,
			integrity.Dependent{Table: "clients", Column: "id_type_identification"})
		if err != nil {
			return err
		}
		return types.SoftDelete(ctx, id, ti.Version)
	})
}

type PaymentMethodInput struct {
	Name               string `validate:"required"`
	DeferredSettlement bool
}

func (s *Service) CreatePaymentMethod(ctx context.Context, input PaymentMethodInput) (*models.PaymentMethod, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, errors.Wrap(errors.CodeValidation, err, "invalid payment method input")
	}
	pm := &models.PaymentMethod{ID: uuid.New(), Name: input.Name, DeferredSettlement: input.DeferredSettlement}
	if err := store.New[models.PaymentMethod](s.conn).Create(ctx, pm); err != nil {
		return nil, err
	}
	return pm, nil
}

// DeletePaymentMethod refuses while live invoices reference the method.
func (s *Service) DeletePaymentMethod(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		methods := store.New[models.PaymentMethod](tx)
		pm, err := methods.Get(ctx, id)
		if err != nil {
			return err
		}
		err = s.guard.WithTx(tx).EnsureNotReferenced(ctx, id,
			integrity.Dependent{Table: "invoices", Column: "id_payment_method"})
		if err != nil {
			return err
		}
		return methods.SoftDelete(ctx, id, pm.Version)
	})
}

type LocationInput struct {
	Name        string `validate:"required"`
	Description *string
}

func (s *Service) CreateLocation(ctx context.Context, input LocationInput) (*models.Location, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, errors.Wrap(errors.CodeValidation, err, "invalid location input")
	}
	loc := &models.Location{ID: uuid.New(), Name: input.Name, Description: input.Description}
	if err := store.New[models.Location](s.conn).Create(ctx, loc); err != nil {
		return nil, err
	}
	return loc, nil
}

// DeleteLocation refuses while live tables sit in the location.
func (s *Service) DeleteLocation(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		locations := store.New[models.Location](tx)
		loc, err := locations.Get(ctx, id)
		if err != nil {
			return err
		}
		err = s.guard.WithTx(tx).EnsureNotReferenced(ctx, id,
			integrity.Dependent{Table: "tables", Column: "id_location"})
		if err != nil {
			return err
		}
		return locations.SoftDelete(ctx, id, loc.Version)
	})
}

type CompanyInput struct {
	Name    string `validate:"required"`
	TaxID   string `validate:"required"`
	Address string `validate:"required"`
	Phone   string `validate:"required"`
	Email   string `validate:"required,email"`
}

// Company returns the business identity singleton.
func (s *Service) Company(ctx context.Context) (*models.InformationCompany, error) {
	var company models.InformationCompany
	err := s.conn.WithContext(ctx).First(&company).Error
	if err != nil {
		return nil, db.Translate(err, "company identity not configured")
	}
	return &company, nil
}

// UpsertCompany creates the singleton on first call and edits it afterwards.
// There is never more than one row.
func (s *Service) UpsertCompany(ctx context.Context, input CompanyInput) (*models.InformationCompany, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, errors.Wrap(errors.CodeValidation, err, "invalid company input")
	}
	var company *models.InformationCompany
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var existing models.InformationCompany
		err := tx.WithContext(ctx).First(&existing).Error
		if err != nil {
			if !db.IsNotFound(err) {
				return errors.Wrap(errors.CodeDependency, err, "failed to load company identity")
			}
			company = &models.InformationCompany{
				ID:      uuid.New(),
				Version: 1,
				Name:    input.Name,
				TaxID:   input.TaxID,
				Address: input.Address,
				Phone:   input.Phone,
				Email:   input.Email,
			}
			if err := tx.WithContext(ctx).Create(company).Error; err != nil {
				return errors.Wrap(errors.CodeDependency, err, "failed to create company identity")
			}
			return nil
		}

		res := tx.WithContext(ctx).
			Model(&models.InformationCompany{}).
			Where("id = ? AND version = ?", existing.ID, existing.Version).
			Updates(map[string]any{
				"name":    input.Name,
				"tax_id":  input.TaxID,
				"address": input.Address,
				"phone":   input.Phone,
				"email":   input.Email,
				"version": gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return errors.Wrap(errors.CodeDependency, res.Error, "failed to update company identity")
		}
		if res.RowsAffected == 0 {
			return errors.New(errors.CodeConflict, "company identity was modified concurrently")
		}
		err = tx.WithContext(ctx).First(&existing, "id = ?", existing.ID).Error
		if err != nil {
			return errors.Wrap(errors.CodeDependency, err, "failed to reload company identity")
		}
		company = &existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(ctx, "company identity saved")
	return company, nil
}
