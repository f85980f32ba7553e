package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fleetward/fleetward/pkg/models"
)

// --- Vehicles ---

const vehicleColumns = `id, tenant_id, owner_id, registration, make, model, year, status, mileage, insurance_expires_at, next_inspection_at, metadata, created_at, updated_at`

func scanVehicle(row pgx.Row) (*models.Vehicle, error) {
	var v models.Vehicle
	err := row.Scan(&v.ID, &v.TenantID, &v.OwnerID, &v.Registration, &v.Make, &v.Model,
		&v.Year, &v.Status, &v.Mileage, &v.InsuranceExpiresAt, &v.NextInspectionAt,
		&v.Metadata, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// CreateVehicle inserts a vehicle. The INSERT only fires if the owner exists
// within the same tenant, so a cross-tenant owner surfaces as ErrNotFound.
func (s *PostgresStore) CreateVehicle(ctx context.Context, v *models.Vehicle) error {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO vehicles (id, tenant_id, owner_id, registration, make, model, year, status, mileage, insurance_expires_at, next_inspection_at, metadata, created_at, updated_at)
		 SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		 WHERE EXISTS (SELECT 1 FROM users WHERE id = $3 AND tenant_id = $2)`,
		v.ID, v.TenantID, v.OwnerID, v.Registration, v.Make, v.Model, v.Year, v.Status,
		v.Mileage, v.InsuranceExpiresAt, v.NextInspectionAt, v.Metadata, v.CreatedAt, v.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create vehicle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetVehicle(ctx context.Context, tenantID int64, id uuid.UUID) (*models.Vehicle, error) {
	v, err := scanVehicle(s.pool.QueryRow(ctx,
		`SELECT `+vehicleColumns+` FROM vehicles WHERE id = $1 AND tenant_id = $2`, id, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get vehicle: %w", err)
	}
	return v, nil
}

func (s *PostgresStore) ListVehicles(ctx context.Context, filter VehicleFilter) ([]*models.Vehicle, int, error) {
	conditions := []string{"tenant_id = $1"}
	args := []any{filter.TenantID}
	return s.listVehicles(ctx, filter, conditions, args)
}

// ListVehiclesAllTenants lists vehicles without a tenant constraint. Staff
// bypass only.
func (s *PostgresStore) ListVehiclesAllTenants(ctx context.Context, filter VehicleFilter) ([]*models.Vehicle, int, error) {
	conditions := []string{"TRUE"}
	args := []any{}
	return s.listVehicles(ctx, filter, conditions, args)
}

func (s *PostgresStore) listVehicles(ctx context.Context, filter VehicleFilter, conditions []string, args []any) ([]*models.Vehicle, int, error) {
	argIdx := len(args) + 1

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	}
	if filter.OwnerID != uuid.Nil {
		conditions = append(conditions, fmt.Sprintf("owner_id = $%d", argIdx))
		args = append(args, filter.OwnerID)
		argIdx++
	}
	if filter.Registration != "" {
		conditions = append(conditions, fmt.Sprintf("registration = $%d", argIdx))
		args = append(args, filter.Registration)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM vehicles WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count vehicles: %w", err)
	}

	limit, offset := normalizePage(filter.Page, filter.Limit)
	query := fmt.Sprintf(`SELECT %s FROM vehicles WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		vehicleColumns, where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list vehicles: %w", err)
	}
	defer rows.Close()

	var vehicles []*models.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan vehicle: %w", err)
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, total, rows.Err()
}

// UpdateVehicle rewrites the mutable vehicle fields. The owner check mirrors
// CreateVehicle: moving a vehicle to an owner outside the tenant is a
// not-found, never a partial write.
func (s *PostgresStore) UpdateVehicle(ctx context.Context, v *models.Vehicle) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE vehicles SET owner_id = $3, registration = $4, make = $5, model = $6, year = $7,
		        status = $8, mileage = $9, insurance_expires_at = $10, next_inspection_at = $11,
		        metadata = $12, updated_at = NOW()
		 WHERE id = $1 AND tenant_id = $2
		   AND EXISTS (SELECT 1 FROM users WHERE id = $3 AND tenant_id = $2)`,
		v.ID, v.TenantID, v.OwnerID, v.Registration, v.Make, v.Model, v.Year,
		v.Status, v.Mileage, v.InsuranceExpiresAt, v.NextInspectionAt, v.Metadata)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update vehicle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteVehicle(ctx context.Context, tenantID int64, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM vehicles WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("delete vehicle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetVehicleStats(ctx context.Context, tenantID int64) (*models.VehicleStats, error) {
	var st models.VehicleStats
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE status = 'active'),
		        COUNT(*) FILTER (WHERE status = 'in_maintenance'),
		        COUNT(*) FILTER (WHERE status = 'decommissioned'),
		        COUNT(*) FILTER (WHERE insurance_expires_at IS NOT NULL AND insurance_expires_at < NOW())
		 FROM vehicles WHERE tenant_id = $1`, tenantID,
	).Scan(&st.Total, &st.Active, &st.InMaintenance, &st.Decommissioned, &st.InsuranceExpired)
	if err != nil {
		return nil, fmt.Errorf("get vehicle stats: %w", err)
	}
	return &st, nil
}

// --- Maintenances ---

const maintenanceColumns = `id, tenant_id, vehicle_id, kind, status, garage, notes, cost_cents, scheduled_at, completed_at, metadata, created_at, updated_at`

func scanMaintenance(row pgx.Row) (*models.Maintenance, error) {
	var m models.Maintenance
	err := row.Scan(&m.ID, &m.TenantID, &m.VehicleID, &m.Kind, &m.Status, &m.Garage,
		&m.Notes, &m.CostCents, &m.ScheduledAt, &m.CompletedAt, &m.Metadata,
		&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CreateMaintenance inserts a maintenance record. Inserting against a vehicle
// of another tenant is ErrNotFound.
func (s *PostgresStore) CreateMaintenance(ctx context.Context, m *models.Maintenance) error {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO maintenances (id, tenant_id, vehicle_id, kind, status, garage, notes, cost_cents, scheduled_at, completed_at, metadata, created_at, updated_at)
		 SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		 WHERE EXISTS (SELECT 1 FROM vehicles WHERE id = $3 AND tenant_id = $2)`,
		m.ID, m.TenantID, m.VehicleID, m.Kind, m.Status, m.Garage, m.Notes,
		m.CostCents, m.ScheduledAt, m.CompletedAt, m.Metadata, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create maintenance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetMaintenance(ctx context.Context, tenantID int64, id uuid.UUID) (*models.Maintenance, error) {
	m, err := scanMaintenance(s.pool.QueryRow(ctx,
		`SELECT `+maintenanceColumns+` FROM maintenances WHERE id = $1 AND tenant_id = $2`, id, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get maintenance: %w", err)
	}
	return m, nil
}

func (s *PostgresStore) ListMaintenances(ctx context.Context, filter MaintenanceFilter) ([]*models.Maintenance, int, error) {
	conditions := []string{"tenant_id = $1"}
	args := []any{filter.TenantID}
	argIdx := 2

	if filter.VehicleID != uuid.Nil {
		conditions = append(conditions, fmt.Sprintf("vehicle_id = $%d", argIdx))
		args = append(args, filter.VehicleID)
		argIdx++
	}
	if filter.Kind != "" {
		conditions = append(conditions, fmt.Sprintf("kind = $%d", argIdx))
		args = append(args, filter.Kind)
		argIdx++
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, fmt.Sprintf("scheduled_at >= $%d", argIdx))
		args = append(args, filter.Since)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM maintenances WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count maintenances: %w", err)
	}

	limit, offset := normalizePage(filter.Page, filter.Limit)
	query := fmt.Sprintf(`SELECT %s FROM maintenances WHERE %s ORDER BY scheduled_at DESC LIMIT $%d OFFSET $%d`,
		maintenanceColumns, where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list maintenances: %w", err)
	}
	defer rows.Close()

	var maintenances []*models.Maintenance
	for rows.Next() {
		m, err := scanMaintenance(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan maintenance: %w", err)
		}
		maintenances = append(maintenances, m)
	}
	return maintenances, total, rows.Err()
}

var validMaintenanceTransitions = map[models.MaintenanceStatus][]models.MaintenanceStatus{
	models.MaintenanceScheduled:  {models.MaintenanceInProgress, models.MaintenanceCanceled},
	models.MaintenanceInProgress: {models.MaintenanceCompleted, models.MaintenanceCanceled},
}

func (s *PostgresStore) UpdateMaintenanceStatus(ctx context.Context, tenantID int64, id uuid.UUID, status models.MaintenanceStatus) error {
	var currentStatus models.MaintenanceStatus
	err := s.pool.QueryRow(ctx,
		`SELECT status FROM maintenances WHERE id = $1 AND tenant_id = $2`, id, tenantID,
	).Scan(&currentStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get maintenance status: %w", err)
	}

	valid := false
	for _, allowed := range validMaintenanceTransitions[currentStatus] {
		if allowed == status {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("maintenance %s -> %s: %w", currentStatus, status, ErrInvalidTransition)
	}

	query := `UPDATE maintenances SET status = $3, updated_at = NOW()`
	if status == models.MaintenanceCompleted {
		query += `, completed_at = NOW()`
	}
	query += ` WHERE id = $1 AND tenant_id = $2`

	if _, err := s.pool.Exec(ctx, query, id, tenantID, status); err != nil {
		return fmt.Errorf("update maintenance status: %w", err)
	}
	return nil
}

// --- Invoices ---

const invoiceColumns = `id, tenant_id, maintenance_id, number, amount_cents, currency, status, issued_at, due_at, paid_at, metadata, created_at, updated_at`

func scanInvoice(row pgx.Row) (*models.Invoice, error) {
	var inv models.Invoice
	err := row.Scan(&inv.ID, &inv.TenantID, &inv.MaintenanceID, &inv.Number, &inv.AmountCents,
		&inv.Currency, &inv.Status, &inv.IssuedAt, &inv.DueAt, &inv.PaidAt, &inv.Metadata,
		&inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *PostgresStore) CreateInvoice(ctx context.Context, inv *models.Invoice) error {
	// without a maintenance reference the EXISTS guard degenerates to true
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO invoices (id, tenant_id, maintenance_id, number, amount_cents, currency, status, issued_at, due_at, paid_at, metadata, created_at, updated_at)
		 SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		 WHERE $3::uuid IS NULL
		    OR EXISTS (SELECT 1 FROM maintenances WHERE id = $3 AND tenant_id = $2)`,
		inv.ID, inv.TenantID, inv.MaintenanceID, inv.Number, inv.AmountCents, inv.Currency,
		inv.Status, inv.IssuedAt, inv.DueAt, inv.PaidAt, inv.Metadata, inv.CreatedAt, inv.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetInvoice(ctx context.Context, tenantID int64, id uuid.UUID) (*models.Invoice, error) {
	inv, err := scanInvoice(s.pool.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 AND tenant_id = $2`, id, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return inv, nil
}

func (s *PostgresStore) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]*models.Invoice, int, error) {
	conditions := []string{"tenant_id = $1"}
	args := []any{filter.TenantID}
	argIdx := 2

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	}
	if !filter.DueSince.IsZero() {
		conditions = append(conditions, fmt.Sprintf("due_at >= $%d", argIdx))
		args = append(args, filter.DueSince)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM invoices WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count invoices: %w", err)
	}

	limit, offset := normalizePage(filter.Page, filter.Limit)
	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		invoiceColumns, where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*models.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, total, rows.Err()
}

func (s *PostgresStore) MarkInvoicePaid(ctx context.Context, tenantID int64, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE invoices SET status = 'paid', paid_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND tenant_id = $2 AND status = 'issued'`, id, tenantID)
	if err != nil {
		return fmt.Errorf("mark invoice paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// either not ours or not in a payable state; check which
		var status models.InvoiceStatus
		err := s.pool.QueryRow(ctx,
			`SELECT status FROM invoices WHERE id = $1 AND tenant_id = $2`, id, tenantID,
		).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("check invoice status: %w", err)
		}
		return fmt.Errorf("invoice %s -> paid: %w", status, ErrInvalidTransition)
	}
	return nil
}

// --- Subscriptions ---

func (s *PostgresStore) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO subscriptions (id, tenant_id, plan, status, starts_at, ends_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		sub.ID, sub.TenantID, sub.Plan, sub.Status, sub.StartsAt, sub.EndsAt, sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCurrentSubscription(ctx context.Context, tenantID int64) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.pool.QueryRow(ctx,
		`SELECT id, tenant_id, plan, status, starts_at, ends_at, created_at, updated_at
		 FROM subscriptions WHERE tenant_id = $1 ORDER BY starts_at DESC LIMIT 1`, tenantID,
	).Scan(&sub.ID, &sub.TenantID, &sub.Plan, &sub.Status, &sub.StartsAt, &sub.EndsAt,
		&sub.CreatedAt, &sub.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get current subscription: %w", err)
	}
	return &sub, nil
}

// --- Notifications ---

func (s *PostgresStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO notifications (id, tenant_id, user_id, kind, title, body, read_at, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		n.ID, n.TenantID, n.UserID, n.Kind, n.Title, n.Body, n.ReadAt, n.Metadata, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListNotifications(ctx context.Context, filter NotificationFilter) ([]*models.Notification, int, error) {
	conditions := []string{"tenant_id = $1"}
	args := []any{filter.TenantID}
	argIdx := 2

	if filter.UserID != uuid.Nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argIdx))
		args = append(args, filter.UserID)
		argIdx++
	}
	if filter.UnreadOnly {
		conditions = append(conditions, "read_at IS NULL")
	}

	where := strings.Join(conditions, " AND ")

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM notifications WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	limit, offset := normalizePage(filter.Page, filter.Limit)
	query := fmt.Sprintf(
		`SELECT id, tenant_id, user_id, kind, title, body, read_at, metadata, created_at
		 FROM notifications WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.TenantID, &n.UserID, &n.Kind, &n.Title, &n.Body,
			&n.ReadAt, &n.Metadata, &n.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, &n)
	}
	return notifications, total, rows.Err()
}

func (s *PostgresStore) MarkNotificationRead(ctx context.Context, tenantID int64, id uuid.UUID) error {
	// idempotent: re-marking keeps the original read timestamp
	tag, err := s.pool.Exec(ctx,
		`UPDATE notifications SET read_at = COALESCE(read_at, NOW())
		 WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
