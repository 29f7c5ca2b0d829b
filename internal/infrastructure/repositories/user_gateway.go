package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/avatarctic/credential-management/internal/core/domain/account"
	"github.com/avatarctic/credential-management/internal/core/ports"
	"github.com/avatarctic/credential-management/internal/infrastructure/db"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// queryColumns maps the external query field names onto users table columns.
// Anything not in this map is rejected before it reaches SQL.
var queryColumns = map[string]string{
	account.FieldEmail:            "email",
	account.FieldDialablePhone:    "dialable_phone",
	account.FieldUsername:         "username",
	account.FieldVerifyToken:      "verify_token",
	account.FieldVerifyShortToken: "verify_short_token",
	account.FieldResetToken:       "reset_token",
	account.FieldResetShortToken:  "reset_short_token",
}

const userColumns = `id, email, dialable_phone, username, password_hash, is_verified, is_invitation,
	   verify_token, verify_short_token, verify_expires, verify_changes,
	   reset_token, reset_short_token, reset_expires, created_at, updated_at`

// UserGatewayRepository implements the user gateway over PostgreSQL.
type UserGatewayRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

// NewUserGatewayRepository creates a new user gateway repository.
func NewUserGatewayRepository(database *db.Database, logger *logrus.Logger) ports.UserGateway {
	return &UserGatewayRepository{
		db:     database,
		logger: logger,
	}
}

// FindOne retrieves the single user matching every query field. Zero matches
// and multiple matches are distinct typed errors so callers can tell an
// unknown user from an under-specified query.
func (r *UserGatewayRepository) FindOne(ctx context.Context, query map[string]string) (*account.User, error) {
	if len(query) == 0 {
		return nil, account.NewError(account.CodeInvalidParams, "user query must not be empty")
	}

	names := make([]string, 0, len(query))
	for name := range query {
		names = append(names, name)
	}
	sort.Strings(names)

	conds := make([]string, 0, len(names))
	args := make([]interface{}, 0, len(names))
	for i, name := range names {
		col, ok := queryColumns[name]
		if !ok {
			return nil, account.NewError(account.CodeInvalidParams,
				fmt.Sprintf("field '%s' cannot be queried", name))
		}
		conds = append(conds, fmt.Sprintf("%s = $%d", col, i+1))
		args = append(args, query[name])
	}

	// LIMIT 2 is enough to detect an ambiguous match without scanning more.
	stmt := fmt.Sprintf(`SELECT %s FROM users WHERE %s LIMIT 2`,
		userColumns, strings.Join(conds, " AND "))

	var users []account.User
	if err := r.db.DB.SelectContext(ctx, &users, stmt, args...); err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"fields": names}).WithError(err).Error("db: failed to find user")
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	switch len(users) {
	case 0:
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"fields": names}).Debug("db: no user matched query")
		}
		return nil, account.NewError(account.CodeNotFound, "no user matched the given fields")
	case 1:
		return &users[0], nil
	default:
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"fields": names}).Debug("db: query matched multiple users")
		}
		return nil, account.NewError(account.CodeAmbiguousMatch, "more than one user matched the given fields")
	}
}

// GetByID retrieves a user by ID.
func (r *UserGatewayRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.User, error) {
	var u account.User
	stmt := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)

	err := r.db.DB.GetContext(ctx, &u, stmt, id)
	if err != nil {
		if err == sql.ErrNoRows {
			if r.logger != nil {
				r.logger.WithFields(logrus.Fields{"user_id": id}).Debug("db: user not found by ID")
			}
			return nil, account.NewError(account.CodeNotFound, fmt.Sprintf("user with ID %s not found", id))
		}
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"user_id": id}).WithError(err).Error("db: failed to get user by ID")
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}

	return &u, nil
}

// Patch applies a typed partial update in a single UPDATE and returns the
// updated record. A non-nil token triple always writes all three of its
// columns so a triple can never be half set.
func (r *UserGatewayRepository) Patch(ctx context.Context, id uuid.UUID, p *account.Patch) (*account.User, error) {
	if p == nil || p.IsEmpty() {
		return r.GetByID(ctx, id)
	}

	sets := []string{"updated_at = NOW()"}
	args := []interface{}{id}
	next := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if p.IsVerified != nil {
		sets = append(sets, "is_verified = "+next(*p.IsVerified))
	}
	if p.PasswordHash != nil {
		sets = append(sets, "password_hash = "+next(*p.PasswordHash))
	}
	if p.Verify != nil {
		sets = append(sets,
			"verify_token = "+next(p.Verify.Token),
			"verify_short_token = "+next(p.Verify.ShortToken),
			"verify_expires = "+next(p.Verify.Expires),
		)
	}
	if p.Reset != nil {
		sets = append(sets,
			"reset_token = "+next(p.Reset.Token),
			"reset_short_token = "+next(p.Reset.ShortToken),
			"reset_expires = "+next(p.Reset.Expires),
		)
	}
	if p.VerifyChanges != nil {
		sets = append(sets, "verify_changes = "+next(*p.VerifyChanges))
	}
	for _, name := range sortedKeys(p.Identity) {
		col, ok := queryColumns[name]
		if !ok {
			return nil, account.NewError(account.CodeInvalidParams,
				fmt.Sprintf("field '%s' cannot be patched", name))
		}
		sets = append(sets, col+" = "+next(p.Identity[name]))
	}

	stmt := fmt.Sprintf(`UPDATE users SET %s WHERE id = $1 RETURNING %s`,
		strings.Join(sets, ", "), userColumns)

	var u account.User
	if err := r.db.DB.GetContext(ctx, &u, stmt, args...); err != nil {
		if err == sql.ErrNoRows {
			if r.logger != nil {
				r.logger.WithFields(logrus.Fields{"user_id": id}).Debug("db: patch matched no user")
			}
			return nil, account.NewError(account.CodeNotFound, fmt.Sprintf("user with ID %s not found", id))
		}
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"user_id": id}).WithError(err).Error("db: failed to patch user")
		}
		return nil, fmt.Errorf("failed to patch user: %w", err)
	}

	return &u, nil
}

// Count returns how many users hold the given value in an identity column,
// optionally excluding one record.
func (r *UserGatewayRepository) Count(ctx context.Context, field, value string, excludeID *uuid.UUID) (int, error) {
	col, ok := queryColumns[field]
	if !ok {
		return 0, account.NewError(account.CodeInvalidParams,
			fmt.Sprintf("field '%s' cannot be queried", field))
	}

	stmt := fmt.Sprintf(`SELECT COUNT(*) FROM users WHERE %s = $1`, col)
	args := []interface{}{value}
	if excludeID != nil {
		stmt += " AND id != $2"
		args = append(args, *excludeID)
	}

	var count int
	if err := r.db.DB.GetContext(ctx, &count, stmt, args...); err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"field": field}).WithError(err).Error("db: failed to count users")
		}
		return 0, fmt.Errorf("failed to count users: %w", err)
	}

	return count, nil
}

func sortedKeys(m account.ChangeSet) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
