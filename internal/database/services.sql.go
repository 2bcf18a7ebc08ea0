package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const serviceColumns = `id, name, description, icon, active, created_at, updated_at`

func scanService(row rowScanner) (Service, error) {
	var i Service
	err := row.Scan(&i.ID, &i.Name, &i.Description, &i.Icon, &i.Active, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const listServices = `SELECT ` + serviceColumns + ` FROM services WHERE ($1 = false OR active) ORDER BY name`

func (q *Queries) ListServices(ctx context.Context, activeOnly bool) ([]Service, error) {
	rows, err := q.db.Query(ctx, listServices, activeOnly)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanService)
}

const getService = `SELECT ` + serviceColumns + ` FROM services WHERE id = $1`

func (q *Queries) GetService(ctx context.Context, id uuid.UUID) (Service, error) {
	return scanService(q.db.QueryRow(ctx, getService, id))
}

type ServiceParams struct {
	ID          uuid.UUID
	Name        string
	Description *string
	Icon        *string
	Active      bool
}

const createService = `INSERT INTO services (name, description, icon, active) VALUES ($1, $2, $3, $4)
RETURNING ` + serviceColumns

func (q *Queries) CreateService(ctx context.Context, arg ServiceParams) (Service, error) {
	return scanService(q.db.QueryRow(ctx, createService, arg.Name, arg.Description, arg.Icon, arg.Active))
}

const updateService = `UPDATE services SET name = $2, description = $3, icon = $4, active = $5, updated_at = now()
WHERE id = $1
RETURNING ` + serviceColumns

func (q *Queries) UpdateService(ctx context.Context, arg ServiceParams) (Service, error) {
	return scanService(q.db.QueryRow(ctx, updateService, arg.ID, arg.Name, arg.Description, arg.Icon, arg.Active))
}

const deactivateService = `UPDATE services SET active = false, updated_at = now() WHERE id = $1 RETURNING ` + serviceColumns

// DeactivateService hides a service from the catalog; rows referenced by
// past orders are never removed.
func (q *Queries) DeactivateService(ctx context.Context, id uuid.UUID) (Service, error) {
	return scanService(q.db.QueryRow(ctx, deactivateService, id))
}

// --- Categories ---

const serviceCategoryColumns = `id, service_id, name, unit_price, active, created_at, updated_at`

func scanServiceCategory(row rowScanner) (ServiceCategory, error) {
	var i ServiceCategory
	err := row.Scan(&i.ID, &i.ServiceID, &i.Name, &i.UnitPrice, &i.Active, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const listServiceCategories = `SELECT ` + serviceCategoryColumns + ` FROM service_categories
WHERE service_id = $1 AND ($2 = false OR active)
ORDER BY name`

func (q *Queries) ListServiceCategories(ctx context.Context, serviceID uuid.UUID, activeOnly bool) ([]ServiceCategory, error) {
	rows, err := q.db.Query(ctx, listServiceCategories, serviceID, activeOnly)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanServiceCategory)
}

const getServiceCategory = `SELECT ` + serviceCategoryColumns + ` FROM service_categories WHERE id = $1`

func (q *Queries) GetServiceCategory(ctx context.Context, id uuid.UUID) (ServiceCategory, error) {
	return scanServiceCategory(q.db.QueryRow(ctx, getServiceCategory, id))
}

type ServiceCategoryParams struct {
	ID        uuid.UUID
	ServiceID uuid.UUID
	Name      string
	UnitPrice decimal.Decimal
	Active    bool
}

const createServiceCategory = `INSERT INTO service_categories (service_id, name, unit_price, active)
VALUES ($1, $2, $3, $4)
RETURNING ` + serviceCategoryColumns

func (q *Queries) CreateServiceCategory(ctx context.Context, arg ServiceCategoryParams) (ServiceCategory, error) {
	row := q.db.QueryRow(ctx, createServiceCategory, arg.ServiceID, arg.Name, arg.UnitPrice, arg.Active)
	return scanServiceCategory(row)
}

const updateServiceCategory = `UPDATE service_categories SET name = $3, unit_price = $4, active = $5, updated_at = now()
WHERE id = $1 AND service_id = $2
RETURNING ` + serviceCategoryColumns

func (q *Queries) UpdateServiceCategory(ctx context.Context, arg ServiceCategoryParams) (ServiceCategory, error) {
	row := q.db.QueryRow(ctx, updateServiceCategory, arg.ID, arg.ServiceID, arg.Name, arg.UnitPrice, arg.Active)
	return scanServiceCategory(row)
}

const deactivateServiceCategory = `UPDATE service_categories SET active = false, updated_at = now()
WHERE id = $1 AND service_id = $2
RETURNING ` + serviceCategoryColumns

func (q *Queries) DeactivateServiceCategory(ctx context.Context, serviceID, id uuid.UUID) (ServiceCategory, error) {
	return scanServiceCategory(q.db.QueryRow(ctx, deactivateServiceCategory, id, serviceID))
}
