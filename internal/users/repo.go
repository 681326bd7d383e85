package users

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/user-management/pkg/db"
	"github.com/angelmondragon/user-management/pkg/db/models"
	pkgerrors "github.com/angelmondragon/user-management/pkg/errors"
	"gorm.io/gorm"
)

// NoExclusion makes the existence predicates check every row.
const NoExclusion int64 = 0

const defaultQueryTimeout = 5 * time.Second

var uniqueColumns = []string{models.ColumnUserName, models.ColumnEmail}

// Repository exposes user persistence operations. Every method bounds its
// store call by the configured query timeout.
type Repository struct {
	db      *gorm.DB
	timeout time.Duration
	now     func() time.Time
}

// NewRepository constructs a users repo bound to the provided GORM DB. A
// non-positive timeout falls back to five seconds.
func NewRepository(conn *gorm.DB, timeout time.Duration) *Repository {
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	return &Repository{
		db:      conn,
		timeout: timeout,
		now:     storeNow,
	}
}

// storeNow matches the microsecond precision of Postgres timestamps so the
// value handed back equals the value read later.
func storeNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func (r *Repository) query(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	return r.db.WithContext(ctx), cancel
}

// List returns every user ordered by id.
func (r *Repository) List(ctx context.Context) ([]models.User, error) {
	q, cancel := r.query(ctx)
	defer cancel()

	rows := []models.User{}
	if err := q.Order("user_id ASC").Find(&rows).Error; err != nil {
		return nil, storeFailure(err, "list users")
	}
	return rows, nil
}

// GetByID loads a user by id.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	q, cancel := r.query(ctx)
	defer cancel()

	var user models.User
	if err := q.Where("user_id = ?", id).Take(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(id)
		}
		return nil, storeFailure(err, "get user")
	}
	return &user, nil
}

// Create inserts a new user with created_at = updated_at = now.
func (r *Repository) Create(ctx context.Context, fields Fields) (*models.User, error) {
	q, cancel := r.query(ctx)
	defer cancel()

	user := fields.toModel()
	now := r.now()
	user.CreatedAt = now
	user.UpdatedAt = now

	if err := q.Create(user).Error; err != nil {
		return nil, classifyWrite(err, "create user")
	}
	return user, nil
}

// Update replaces the mutable columns of user id and refreshes updated_at.
func (r *Repository) Update(ctx context.Context, id int64, fields Fields) (*models.User, error) {
	q, cancel := r.query(ctx)
	defer cancel()

	values := fields.columns()
	values["updated_at"] = r.now()

	res := q.Model(&models.User{}).Where("user_id = ?", id).Updates(values)
	if res.Error != nil {
		return nil, classifyWrite(res.Error, "update user")
	}
	if res.RowsAffected == 0 {
		return nil, notFound(id)
	}

	var user models.User
	if err := q.Where("user_id = ?", id).Take(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(id)
		}
		return nil, storeFailure(err, "reload user")
	}
	return &user, nil
}

// Delete hard-deletes user id.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	q, cancel := r.query(ctx)
	defer cancel()

	res := q.Where("user_id = ?", id).Delete(&models.User{})
	if res.Error != nil {
		return storeFailure(res.Error, "delete user")
	}
	if res.RowsAffected == 0 {
		return notFound(id)
	}
	return nil
}

// ExistsByUserName reports whether a user other than excludeID holds name.
func (r *Repository) ExistsByUserName(ctx context.Context, name string, excludeID int64) (bool, error) {
	return r.exists(ctx, models.ColumnUserName, name, excludeID)
}

// ExistsByEmail reports whether a user other than excludeID holds email.
func (r *Repository) ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error) {
	return r.exists(ctx, models.ColumnEmail, email, excludeID)
}

func (r *Repository) exists(ctx context.Context, column, value string, excludeID int64) (bool, error) {
	q, cancel := r.query(ctx)
	defer cancel()

	q = q.Model(&models.User{}).Where(column+" = ?", value)
	if excludeID != NoExclusion {
		q = q.Where("user_id <> ?", excludeID)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, storeFailure(err, "check "+column)
	}
	return count > 0, nil
}

func notFound(id int64) error {
	return pkgerrors.Newf(pkgerrors.CodeNotFound, "User with id %d not found", id)
}

func storeFailure(err error, op string) error {
	if db.IsTimeout(err) {
		op += ": query timed out"
	}
	return pkgerrors.Wrap(pkgerrors.CodeStore, db.Classify(err), op)
}

// classifyWrite separates unique violations from other store failures. The
// violated column, when the store reports one, travels in the details.
func classifyWrite(err error, op string) error {
	classified := db.Classify(err, uniqueColumns...)
	if db.IsUniqueViolation(classified, "") {
		return pkgerrors.Wrap(pkgerrors.CodeUniqueConstraint, classified, op).
			WithDetails(map[string]string{"column": db.ViolatedColumn(classified)})
	}
	return storeFailure(classified, op)
}
