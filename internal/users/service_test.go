package users

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/angelmondragon/user-management/pkg/db/models"
	"github.com/angelmondragon/user-management/pkg/enums"
	pkgerrors "github.com/angelmondragon/user-management/pkg/errors"
)

// memRepo behaves like the store: it enforces uniqueness on insert/update and
// stamps rows from a manual clock.
type memRepo struct {
	rows   map[int64]models.User
	nextID int64
	clock  time.Time

	// skipUniqueIndex makes Exists* lie so the store-level constraint is hit,
	// as it would be when a concurrent writer wins the race.
	skipUniqueIndex bool
	// uniqueColumn is reported with store-level violations.
	uniqueColumn string

	failWith error
	calls    []string
}

func newMemRepo() *memRepo {
	return &memRepo{
		rows:   map[int64]models.User{},
		nextID: 1,
		clock:  time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (m *memRepo) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memRepo) List(ctx context.Context) ([]models.User, error) {
	m.calls = append(m.calls, "List")
	if m.failWith != nil {
		return nil, m.failWith
	}
	out := make([]models.User, 0, len(m.rows))
	for _, row := range m.rows {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (m *memRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	m.calls = append(m.calls, "GetByID")
	if m.failWith != nil {
		return nil, m.failWith
	}
	row, ok := m.rows[id]
	if !ok {
		return nil, notFound(id)
	}
	return &row, nil
}

func (m *memRepo) violates(fields Fields, selfID int64) bool {
	for id, row := range m.rows {
		if id == selfID {
			continue
		}
		if row.UserName == fields.UserName || row.Email == fields.Email {
			return true
		}
	}
	return false
}

func (m *memRepo) uniqueViolation() error {
	return pkgerrors.Wrap(pkgerrors.CodeUniqueConstraint, errors.New("duplicate key value"), "write user").
		WithDetails(map[string]string{"column": m.uniqueColumn})
}

func (m *memRepo) Create(ctx context.Context, fields Fields) (*models.User, error) {
	m.calls = append(m.calls, "Create")
	if m.failWith != nil {
		return nil, m.failWith
	}
	if m.violates(fields, NoExclusion) {
		return nil, m.uniqueViolation()
	}
	now := m.tick()
	row := *fields.toModel()
	row.UserID = m.nextID
	row.CreatedAt = now
	row.UpdatedAt = now
	m.rows[row.UserID] = row
	m.nextID++
	return &row, nil
}

func (m *memRepo) Update(ctx context.Context, id int64, fields Fields) (*models.User, error) {
	m.calls = append(m.calls, "Update")
	if m.failWith != nil {
		return nil, m.failWith
	}
	existing, ok := m.rows[id]
	if !ok {
		return nil, notFound(id)
	}
	if m.violates(fields, id) {
		return nil, m.uniqueViolation()
	}
	row := *fields.toModel()
	row.UserID = id
	row.CreatedAt = existing.CreatedAt
	row.UpdatedAt = m.tick()
	m.rows[id] = row
	return &row, nil
}

func (m *memRepo) Delete(ctx context.Context, id int64) error {
	m.calls = append(m.calls, "Delete")
	if m.failWith != nil {
		return m.failWith
	}
	if _, ok := m.rows[id]; !ok {
		return notFound(id)
	}
	delete(m.rows, id)
	return nil
}

func (m *memRepo) ExistsByUserName(ctx context.Context, name string, excludeID int64) (bool, error) {
	m.calls = append(m.calls, "ExistsByUserName")
	if m.failWith != nil {
		return false, m.failWith
	}
	if m.skipUniqueIndex {
		return false, nil
	}
	for id, row := range m.rows {
		if row.UserName == name && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error) {
	m.calls = append(m.calls, "ExistsByEmail")
	if m.failWith != nil {
		return false, m.failWith
	}
	if m.skipUniqueIndex {
		return false, nil
	}
	for id, row := range m.rows {
		if row.Email == email && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

type recorderStub struct {
	outcomes []string
}

func (r *recorderStub) ObserveUserOperation(operation, outcome string) {
	r.outcomes = append(r.outcomes, operation+":"+outcome)
}

func newTestService(t *testing.T, repo *memRepo) Service {
	t.Helper()
	svc, err := NewService(repo, nil, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func createReq(userName, email string) CreateUserRequest {
	return CreateUserRequest{
		UserName:   userName,
		FirstName:  "Test",
		LastName:   "User",
		Email:      email,
		UserStatus: "A",
	}
}

func updateReq(userName, email string) UpdateUserRequest {
	return UpdateUserRequest(createReq(userName, email))
}

func mustCreate(t *testing.T, svc Service, userName, email string) *UserDTO {
	t.Helper()
	user, err := svc.Create(context.Background(), createReq(userName, email))
	if err != nil {
		t.Fatalf("create %s: %v", userName, err)
	}
	return user
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) *pkgerrors.Error {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected %s, got %v", code, err)
	}
	if typed.Code() != code {
		t.Fatalf("expected %s, got %s (%v)", code, typed.Code(), err)
	}
	return typed
}

func conflictField(t *testing.T, err error) string {
	t.Helper()
	typed := requireCode(t, err, pkgerrors.CodeConflict)
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %T", typed.Details())
	}
	return details["field"]
}

func TestNewServiceRequiresRepo(t *testing.T) {
	if _, err := NewService(nil, nil, nil); err == nil {
		t.Fatal("expected error for nil repository")
	}
}

func TestCreateStampsMatchingTimestamps(t *testing.T) {
	svc := newTestService(t, newMemRepo())

	user := mustCreate(t, svc, "alice", "alice@x.com")
	if user.ID != 1 {
		t.Fatalf("expected id 1, got %d", user.ID)
	}
	if !user.UpdatedAt.Equal(user.CreatedAt) {
		t.Fatalf("expected updatedAt == createdAt, got %v vs %v", user.UpdatedAt, user.CreatedAt)
	}
	if user.UserStatus != enums.UserStatusActive {
		t.Fatalf("unexpected status %q", user.UserStatus)
	}
}

func TestCreateDuplicateUserNameConflicts(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(t, repo)
	mustCreate(t, svc, "alice", "alice@x.com")

	repo.calls = nil
	_, err := svc.Create(context.Background(), createReq("alice", "bob@x.com"))
	if field := conflictField(t, err); field != "userName" {
		t.Fatalf("expected userName conflict, got %q", field)
	}
	if typed := pkgerrors.As(err); typed.Message() != "Username 'alice' already exists" {
		t.Fatalf("unexpected message %q", typed.Message())
	}
	for _, call := range repo.calls {
		if call == "Create" {
			t.Fatal("store insert must not run after a failed pre-check")
		}
	}
}

func TestCreateDuplicateEmailConflicts(t *testing.T) {
	svc := newTestService(t, newMemRepo())
	mustCreate(t, svc, "alice", "alice@x.com")

	_, err := svc.Create(context.Background(), createReq("bobby", "alice@x.com"))
	if field := conflictField(t, err); field != "email" {
		t.Fatalf("expected email conflict, got %q", field)
	}
}

func TestCreateRaceSurfacesConflict(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(t, repo)
	mustCreate(t, svc, "alice", "alice@x.com")

	repo.skipUniqueIndex = true
	repo.uniqueColumn = models.ColumnUserName
	_, err := svc.Create(context.Background(), createReq("alice", "other@x.com"))
	if field := conflictField(t, err); field != "userName" {
		t.Fatalf("expected userName conflict, got %q", field)
	}

	repo.uniqueColumn = ""
	_, err = svc.Create(context.Background(), createReq("alice", "other@x.com"))
	typed := requireCode(t, err, pkgerrors.CodeConflict)
	if typed.Message() != "Username 'alice' or email 'other@x.com' already exists" {
		t.Fatalf("unexpected generic conflict message %q", typed.Message())
	}
}

func TestCreateValidationFailsBeforeStore(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(t, repo)

	_, err := svc.Create(context.Background(), CreateUserRequest{UserName: "al"})
	typed := requireCode(t, err, pkgerrors.CodeValidation)
	details := typed.Details().(map[string]string)
	for _, field := range []string{"userName", "firstName", "lastName", "email", "userStatus"} {
		if _, ok := details[field]; !ok {
			t.Fatalf("expected %s in validation details: %v", field, details)
		}
	}
	if len(repo.calls) != 0 {
		t.Fatalf("expected no repository calls, got %v", repo.calls)
	}
}

func TestCreateStoreFailurePropagates(t *testing.T) {
	repo := newMemRepo()
	repo.failWith = pkgerrors.Wrap(pkgerrors.CodeStore, errors.New("connection reset"), "check user_name")
	svc := newTestService(t, repo)

	_, err := svc.Create(context.Background(), createReq("alice", "alice@x.com"))
	requireCode(t, err, pkgerrors.CodeStore)
}

func TestGetAfterDeleteIsNotFound(t *testing.T) {
	svc := newTestService(t, newMemRepo())
	user := mustCreate(t, svc, "alice", "alice@x.com")

	if err := svc.Delete(context.Background(), user.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err := svc.Get(context.Background(), user.ID)
	typed := requireCode(t, err, pkgerrors.CodeNotFound)
	if typed.Message() != "User with id 1 not found" {
		t.Fatalf("unexpected message %q", typed.Message())
	}
}

func TestUpdateRefreshesUpdatedAt(t *testing.T) {
	svc := newTestService(t, newMemRepo())
	created := mustCreate(t, svc, "alice", "alice@x.com")

	req := updateReq("alice", "alice@x.com")
	req.UserStatus = "T"
	updated, err := svc.Update(context.Background(), created.ID, req)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) {
		t.Fatalf("expected updatedAt to increase: %v -> %v", created.UpdatedAt, updated.UpdatedAt)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("createdAt must not change: %v -> %v", created.CreatedAt, updated.CreatedAt)
	}
	if updated.UserStatus != enums.UserStatusTerminated {
		t.Fatalf("expected any status transition to be allowed, got %q", updated.UserStatus)
	}

	again, err := svc.Update(context.Background(), created.ID, req)
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if !again.UpdatedAt.After(updated.UpdatedAt) {
		t.Fatalf("expected updatedAt to keep increasing: %v -> %v", updated.UpdatedAt, again.UpdatedAt)
	}
}

func TestUpdateKeepsOwnUserNameAndEmail(t *testing.T) {
	svc := newTestService(t, newMemRepo())
	created := mustCreate(t, svc, "alice", "alice@x.com")

	req := updateReq("alice", "alice@x.com")
	req.FirstName = "Alicia"
	updated, err := svc.Update(context.Background(), created.ID, req)
	if err != nil {
		t.Fatalf("expected self-update to succeed, got %v", err)
	}
	if updated.FirstName != "Alicia" {
		t.Fatalf("unexpected first name %q", updated.FirstName)
	}
}

func TestUpdateKeepsOwnEmailWithNewUserName(t *testing.T) {
	svc := newTestService(t, newMemRepo())
	created := mustCreate(t, svc, "alice", "a@x.com")

	updated, err := svc.Update(context.Background(), created.ID, updateReq("alice2", "a@x.com"))
	if err != nil {
		t.Fatalf("expected self-email exemption, got %v", err)
	}
	if updated.UserName != "alice2" {
		t.Fatalf("unexpected user name %q", updated.UserName)
	}
}

func TestUpdateEmailOwnedByAnotherUserConflicts(t *testing.T) {
	svc := newTestService(t, newMemRepo())
	mustCreate(t, svc, "alice", "a@x.com")
	bob := mustCreate(t, svc, "bobby", "b@x.com")

	_, err := svc.Update(context.Background(), bob.ID, updateReq("bobby", "a@x.com"))
	if field := conflictField(t, err); field != "email" {
		t.Fatalf("expected email conflict, got %q", field)
	}
}

func TestUpdateUserNameOwnedByAnotherUserConflicts(t *testing.T) {
	svc := newTestService(t, newMemRepo())
	mustCreate(t, svc, "alice", "a@x.com")
	bob := mustCreate(t, svc, "bobby", "b@x.com")

	_, err := svc.Update(context.Background(), bob.ID, updateReq("alice", "b@x.com"))
	if field := conflictField(t, err); field != "userName" {
		t.Fatalf("expected userName conflict, got %q", field)
	}
}

func TestUpdateMissingUserIsNotFoundEvenWhenValuesCollide(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(t, repo)
	mustCreate(t, svc, "alice", "a@x.com")
	before := len(repo.rows)

	_, err := svc.Update(context.Background(), 99, updateReq("alice", "a@x.com"))
	requireCode(t, err, pkgerrors.CodeNotFound)
	if len(repo.rows) != before {
		t.Fatal("update of a missing id must not create rows")
	}
}

func TestUpdateRaceSurfacesConflict(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(t, repo)
	mustCreate(t, svc, "alice", "a@x.com")
	bob := mustCreate(t, svc, "bobby", "b@x.com")

	repo.skipUniqueIndex = true
	repo.uniqueColumn = models.ColumnEmail
	_, err := svc.Update(context.Background(), bob.ID, updateReq("bobby", "a@x.com"))
	if field := conflictField(t, err); field != "email" {
		t.Fatalf("expected email conflict, got %q", field)
	}
	if repo.rows[bob.ID].Email != "b@x.com" {
		t.Fatal("row must be unchanged after a rejected update")
	}
}

func TestDeleteMissingUserIsNotFound(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(t, repo)
	mustCreate(t, svc, "alice", "a@x.com")

	for i := 0; i < 2; i++ {
		err := svc.Delete(context.Background(), 42)
		requireCode(t, err, pkgerrors.CodeNotFound)
	}
	if len(repo.rows) != 1 {
		t.Fatal("delete of a missing id must not touch other rows")
	}
}

func TestListEmptyStore(t *testing.T) {
	svc := newTestService(t, newMemRepo())
	users, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if users == nil || len(users) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", users)
	}
}

func TestListOrdersByID(t *testing.T) {
	svc := newTestService(t, newMemRepo())
	mustCreate(t, svc, "alice", "a@x.com")
	mustCreate(t, svc, "bobby", "b@x.com")
	mustCreate(t, svc, "carol", "c@x.com")

	users, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for i, user := range users {
		if user.ID != int64(i+1) {
			t.Fatalf("expected ascending ids, got %d at %d", user.ID, i)
		}
	}
}

func TestServiceRecordsOutcomes(t *testing.T) {
	recorder := &recorderStub{}
	svc, err := NewService(newMemRepo(), nil, recorder)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	ctx := context.Background()

	_, _ = svc.Create(ctx, createReq("alice", "a@x.com"))
	_, _ = svc.Create(ctx, createReq("alice", "b@x.com"))
	_, _ = svc.Get(ctx, 5)
	_, _ = svc.List(ctx)

	want := []string{"create:OK", "create:CONFLICT", "get:NOT_FOUND", "list:OK"}
	if len(recorder.outcomes) != len(want) {
		t.Fatalf("expected %v, got %v", want, recorder.outcomes)
	}
	for i := range want {
		if recorder.outcomes[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, recorder.outcomes)
		}
	}
}
