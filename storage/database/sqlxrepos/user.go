package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/user"
)

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

type dbUser struct {
	ID                  string         `db:"id"`
	Name                string         `db:"name"`
	Username            string         `db:"username"`
	Email               string         `db:"email"`
	IsActive            bool           `db:"is_active"`
	Roles               pq.StringArray `db:"roles"`
	PasswordHash        []byte         `db:"password_hash"`
	IsProMember         bool           `db:"is_pro_member"`
	ProMembershipExpiry sql.NullTime   `db:"pro_membership_expiry"`
	StripeCustomerID    string         `db:"stripe_customer_id"`
	SubscriptionID      string         `db:"subscription_id"`
	SubscriptionStatus  string         `db:"subscription_status"`
	CreatedAt           time.Time      `db:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at"`
	LastLogin           sql.NullTime   `db:"last_login"`
}

func (repo userRepository) record(usr user.User) dbUser {
	rec := dbUser{
		ID:                  usr.ID,
		Name:                usr.Name,
		Username:            usr.Username,
		Email:               usr.Email,
		Roles:               usr.Roles,
		PasswordHash:        usr.PasswordHash,
		IsProMember:         usr.IsProMember,
		ProMembershipExpiry: nullTime(usr.ProMembershipExpiry),
		StripeCustomerID:    usr.StripeCustomerID,
		SubscriptionID:      usr.SubscriptionID,
		SubscriptionStatus:  usr.SubscriptionStatus,
		CreatedAt:           usr.CreatedAt.UTC(),
		UpdatedAt:           usr.UpdatedAt.UTC(),
		LastLogin:           nullTime(usr.LastLogin),
	}
	rec.IsActive = usr.Active()
	if rec.Roles == nil {
		rec.Roles = pq.StringArray{}
	}
	return rec
}

func (repo userRepository) model(rec dbUser) user.User {
	usr := user.User{
		ID:                  rec.ID,
		Name:                rec.Name,
		Username:            rec.Username,
		Email:               rec.Email,
		Roles:               rec.Roles,
		PasswordHash:        rec.PasswordHash,
		IsProMember:         rec.IsProMember,
		ProMembershipExpiry: timeVal(rec.ProMembershipExpiry),
		StripeCustomerID:    rec.StripeCustomerID,
		SubscriptionID:      rec.SubscriptionID,
		SubscriptionStatus:  rec.SubscriptionStatus,
		CreatedAt:           rec.CreatedAt,
		UpdatedAt:           rec.UpdatedAt,
		LastLogin:           timeVal(rec.LastLogin),
	}
	usr.SetActive(rec.IsActive)
	return usr
}

func (repo userRepository) models(recs []dbUser) []user.User {
	users := make([]user.User, 0, len(recs))
	for _, rec := range recs {
		users = append(users, repo.model(rec))
	}
	return users
}

func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	query := `SELECT COUNT(*) FROM "user" WHERE (username = $1 AND username <> '') OR (email = $2 AND email <> '')`
	args := []interface{}{username, email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, usr := range excludedUsers {
			ids = append(ids, usr.ID)
		}
		query += " AND NOT (id = ANY($3))"
		args = append(args, pq.StringArray(ids))
	}

	var count int
	if err := repo.db.GetContext(ctx, &count, query, args...); err != nil {
		return errors.Wrap(err, "checking username uniqueness")
	}
	if count > 0 {
		return user.ErrUserExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	rec := repo.record(usr)

	query := `
		INSERT INTO "user" (
			id, name, username, email, is_active, roles, password_hash,
			is_pro_member, pro_membership_expiry, stripe_customer_id, subscription_id, subscription_status,
			created_at, updated_at, last_login
		) VALUES (
			:id, :name, :username, :email, :is_active, :roles, :password_hash,
			:is_pro_member, :pro_membership_expiry, :stripe_customer_id, :subscription_id, :subscription_status,
			:created_at, :updated_at, :last_login
		)`
	if _, err := repo.db.NamedExecContext(ctx, query, rec); err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrUserExists
		}
		return user.User{}, errors.Wrap(err, "creating user")
	}
	return usr, nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering ...core.DBOrdering) ([]user.User, error) {
	query := `SELECT * FROM "user"`
	var conds []string
	var args []interface{}

	arg := func(val interface{}) string {
		args = append(args, val)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil && !filter.IsEmpty() {
		if filter.Search != "" {
			p := arg("%" + filter.Search + "%")
			conds = append(conds, fmt.Sprintf("(name ILIKE %s OR username ILIKE %s OR email ILIKE %s)", p, p, p))
		}
		if filter.Roles != nil {
			conds = append(conds, fmt.Sprintf("roles && %s", arg(pq.StringArray(filter.Roles))))
		}
		if filter.IsActive != nil {
			conds = append(conds, fmt.Sprintf("is_active = %s", arg(*filter.IsActive)))
		}
		if !filter.CreatedFrom.IsZero() {
			conds = append(conds, fmt.Sprintf("created_at >= %s", arg(filter.CreatedFrom.UTC())))
		}
		if !filter.CreatedTo.IsZero() {
			conds = append(conds, fmt.Sprintf("created_at < %s", arg(filter.CreatedTo.UTC())))
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += orderBy(ordering, core.DBOrdering{Field: "created_at"})

	var recs []dbUser
	if err := repo.db.SelectContext(ctx, &recs, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return repo.models(recs), nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var cond string
	var args []interface{}
	switch {
	case filter.ID != "":
		cond, args = "id = $1", []interface{}{filter.ID}
	case filter.Username != "":
		cond, args = "username = $1 AND username <> ''", []interface{}{filter.Username}
	case filter.Email != "":
		cond, args = "email = $1 AND email <> ''", []interface{}{filter.Email}
	case filter.StripeCustomerID != "":
		cond, args = "stripe_customer_id = $1 AND stripe_customer_id <> ''", []interface{}{filter.StripeCustomerID}
	case len(filter.UsernameOrEmail) == 2:
		cond = "(username = $1 AND username <> '') OR (email = $2 AND email <> '')"
		args = []interface{}{filter.UsernameOrEmail[0], filter.UsernameOrEmail[1]}
	default:
		return user.User{}, user.ErrNotFound
	}

	var rec dbUser
	if err := repo.db.GetContext(ctx, &rec, `SELECT * FROM "user" WHERE `+cond, args...); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user")
	}
	return repo.model(rec), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	rec := repo.record(usr)
	query := `
		UPDATE "user" SET
			name = :name, username = :username, email = :email, is_active = :is_active,
			roles = :roles, password_hash = :password_hash,
			is_pro_member = :is_pro_member, pro_membership_expiry = :pro_membership_expiry,
			stripe_customer_id = :stripe_customer_id, subscription_id = :subscription_id,
			subscription_status = :subscription_status,
			updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, query, rec)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrUserExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		return repo.CreateUser(ctx, usr)
	}
	updated, err := repo.UpdateUser(ctx, usr)
	if errors.Cause(err) == user.ErrNotFound {
		return repo.CreateUser(ctx, usr)
	}
	return updated, err
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids ...string) (int, error) {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM "user" WHERE id = ANY($1)`, pq.StringArray(ids))
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (repo userRepository) CountUsers(ctx context.Context, createdFrom, createdTo time.Time) (int, error) {
	return countRows(ctx, repo.db, `"user"`, createdFrom, createdTo)
}
