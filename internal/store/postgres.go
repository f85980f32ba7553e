package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetward/fleetward/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// normalizePage clamps pagination inputs and returns (limit, offset).
func normalizePage(page, limit int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if page <= 0 {
		page = 1
	}
	return limit, (page - 1) * limit
}

// --- Tenants ---

const tenantColumns = `id, name, contact_email, contact_phone, address, status, created_at, updated_at`

func scanTenant(row pgx.Row) (*models.Tenant, error) {
	var t models.Tenant
	err := row.Scan(&t.ID, &t.Name, &t.ContactEmail, &t.ContactPhone,
		&t.Address, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *PostgresStore) GetTenant(ctx context.Context, id int64) (*models.Tenant, error) {
	t, err := scanTenant(s.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) ListTenants(ctx context.Context, filter TenantFilter) ([]*models.Tenant, int, error) {
	conditions := []string{"TRUE"}
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM tenants WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tenants: %w", err)
	}

	limit, offset := normalizePage(filter.Page, filter.Limit)
	query := fmt.Sprintf(`SELECT %s FROM tenants WHERE %s ORDER BY id LIMIT $%d OFFSET $%d`,
		tenantColumns, where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*models.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	return tenants, total, rows.Err()
}

func (s *PostgresStore) CreateTenant(ctx context.Context, t *models.Tenant) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO tenants (name, contact_email, contact_phone, address, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		t.Name, t.ContactEmail, t.ContactPhone, t.Address, t.Status, t.CreatedAt, t.UpdatedAt,
	).Scan(&t.ID)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create tenant: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateTenantStatus(ctx context.Context, id int64, status models.TenantStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tenants SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update tenant status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteTenant(ctx context.Context, id int64) error {
	// dependent rows go with the tenant via ON DELETE CASCADE
	tag, err := s.pool.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete tenant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Users ---

func (s *PostgresStore) CreateUser(ctx context.Context, u *models.User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, tenant_id, email, name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.TenantID, u.Email, u.Name, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUser(ctx context.Context, tenantID int64, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, tenant_id, email, name, created_at, updated_at
		 FROM users WHERE id = $1 AND tenant_id = $2`, id, tenantID,
	).Scan(&u.ID, &u.TenantID, &u.Email, &u.Name, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// --- Internal employees ---

const employeeColumns = `id, email, name, role, can_access_all_tenants, key_hash, key_prefix, last_used_at, deleted_at, created_at, updated_at`

func scanEmployee(row pgx.Row) (*models.InternalEmployee, error) {
	var e models.InternalEmployee
	err := row.Scan(&e.ID, &e.Email, &e.Name, &e.Role, &e.CanAccessAllTenants,
		&e.KeyHash, &e.KeyPrefix, &e.LastUsedAt, &e.DeletedAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *PostgresStore) GetEmployeesByKeyPrefix(ctx context.Context, prefix string) ([]*models.InternalEmployee, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+employeeColumns+` FROM internal_employees
		 WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get employees by prefix: %w", err)
	}
	defer rows.Close()

	var employees []*models.InternalEmployee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

func (s *PostgresStore) UpdateEmployeeLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE internal_employees SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update employee last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateEmployee(ctx context.Context, e *models.InternalEmployee) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO internal_employees (id, email, name, role, can_access_all_tenants, key_hash, key_prefix, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.Email, e.Name, e.Role, e.CanAccessAllTenants, e.KeyHash, e.KeyPrefix, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create employee: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListEmployees(ctx context.Context) ([]*models.InternalEmployee, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+employeeColumns+` FROM internal_employees
		 WHERE deleted_at IS NULL ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	defer rows.Close()

	var employees []*models.InternalEmployee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

func (s *PostgresStore) RevokeEmployee(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE internal_employees SET deleted_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("revoke employee: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Events ---

func (s *PostgresStore) RecordEvent(ctx context.Context, e *models.Event) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO events (id, tenant_id, actor, name, payload, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.TenantID, e.Actor, e.Name, e.Payload, e.OccurredAt)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListEvents(ctx context.Context, filter EventFilter) ([]*models.Event, int, error) {
	conditions := []string{"TRUE"}
	args := []any{}
	argIdx := 1

	if filter.TenantID != 0 {
		conditions = append(conditions, fmt.Sprintf("tenant_id = $%d", argIdx))
		args = append(args, filter.TenantID)
		argIdx++
	}
	if filter.Name != "" {
		conditions = append(conditions, fmt.Sprintf("name = $%d", argIdx))
		args = append(args, filter.Name)
		argIdx++
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, fmt.Sprintf("occurred_at >= $%d", argIdx))
		args = append(args, filter.Since)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM events WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}

	limit, offset := normalizePage(filter.Page, filter.Limit)
	query := fmt.Sprintf(
		`SELECT id, tenant_id, actor, name, payload, occurred_at
		 FROM events WHERE %s ORDER BY occurred_at DESC LIMIT $%d OFFSET $%d`,
		where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		var e models.Event
		if err := rows.Scan(&e.ID, &e.TenantID, &e.Actor, &e.Name, &e.Payload, &e.OccurredAt); err != nil {
			return nil, 0, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, &e)
	}
	return events, total, rows.Err()
}
