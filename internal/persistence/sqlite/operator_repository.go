package sqlite

import (
	"context"

	"github.com/example/attendance-engine/internal/persistence"
)

// OperatorRepository implements persistence.OperatorRepository using SQLite.
type OperatorRepository struct {
	pool *ConnectionPool
}

// NewOperatorRepository creates a new SQLite operator repository.
func NewOperatorRepository(pool *ConnectionPool) *OperatorRepository {
	return &OperatorRepository{pool: pool}
}

// CreateOperator inserts a new operator account.
func (r *OperatorRepository) CreateOperator(ctx context.Context, operator persistence.Operator) error {
	if operator.ID == "" || operator.Email == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO operators (id, email, display_name, password_hash, is_admin, disabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.pool.db.ExecContext(ctx, query,
		operator.ID,
		operator.Email,
		operator.DisplayName,
		operator.PasswordHash,
		boolToInt(operator.IsAdmin),
		boolToInt(operator.Disabled),
		formatTime(operator.CreatedAt),
		formatTime(operator.UpdatedAt),
	)
	if err != nil {
		return mapError(err)
	}
	return nil
}

// GetOperator fetches an operator by ID.
func (r *OperatorRepository) GetOperator(ctx context.Context, id string) (persistence.Operator, error) {
	query := `
		SELECT id, email, display_name, password_hash, is_admin, disabled, created_at, updated_at
		FROM operators
		WHERE id = ?
	`
	row := r.pool.db.QueryRowContext(ctx, query, id)
	return scanOperator(row)
}

// GetOperatorByEmail fetches an operator by email, case-insensitively.
func (r *OperatorRepository) GetOperatorByEmail(ctx context.Context, email string) (persistence.Operator, error) {
	query := `
		SELECT id, email, display_name, password_hash, is_admin, disabled, created_at, updated_at
		FROM operators
		WHERE email = ? COLLATE NOCASE
	`
	row := r.pool.db.QueryRowContext(ctx, query, email)
	return scanOperator(row)
}

func scanOperator(row rowScanner) (persistence.Operator, error) {
	var (
		operator             persistence.Operator
		isAdmin, disabled    int
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&operator.ID,
		&operator.Email,
		&operator.DisplayName,
		&operator.PasswordHash,
		&isAdmin,
		&disabled,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Operator{}, mapError(err)
	}

	operator.IsAdmin = isAdmin != 0
	operator.Disabled = disabled != 0

	var err error
	if operator.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Operator{}, err
	}
	if operator.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Operator{}, err
	}
	return operator, nil
}
