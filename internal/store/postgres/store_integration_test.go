package postgres

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"shifter/shift-service/internal/models"
	"shifter/shift-service/internal/schedule"
	"shifter/shift-service/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExclusionConstraintRejectsOverlap(t *testing.T) {
	ctx := context.Background()
	st, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	branch, employee := seedBaseData(t, ctx, st)
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := st.InsertShift(ctx, models.Shift{
		EmployeeID: employee.ID,
		BranchID:   branch.ID,
		StartTime:  day.Add(9 * time.Hour),
		EndTime:    day.Add(13 * time.Hour),
		Position:   "Cashier",
	})
	require.NoError(t, err)

	_, err = st.InsertShift(ctx, models.Shift{
		EmployeeID: employee.ID,
		BranchID:   branch.ID,
		StartTime:  day.Add(12 * time.Hour),
		EndTime:    day.Add(14 * time.Hour),
	})
	require.ErrorIs(t, err, store.ErrOverlapViolation)

	// Touching intervals are not overlapping.
	_, err = st.InsertShift(ctx, models.Shift{
		EmployeeID: employee.ID,
		BranchID:   branch.ID,
		StartTime:  day.Add(13 * time.Hour),
		EndTime:    day.Add(15 * time.Hour),
	})
	require.NoError(t, err)
}

func TestBranchShiftsBetweenInclusiveOrdered(t *testing.T) {
	ctx := context.Background()
	st, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	branch, employee := seedBaseData(t, ctx, st)
	other := createEmployee(t, ctx, st, "other@example.com", "Dana", "Levi")
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	from, to := schedule.DayBounds(day)

	insert := func(employeeID string, start, end time.Time) models.Shift {
		shift, err := st.InsertShift(ctx, models.Shift{EmployeeID: employeeID, BranchID: branch.ID, StartTime: start, EndTime: end})
		require.NoError(t, err)
		return shift
	}
	late := insert(employee.ID, day.Add(18*time.Hour), day.Add(22*time.Hour))
	early := insert(other.ID, day, day.Add(4*time.Hour))
	insert(employee.ID, day.Add(24*time.Hour), day.Add(26*time.Hour))

	shifts, err := st.ListBranchShiftsBetween(ctx, branch.ID, from, to)
	require.NoError(t, err)
	require.Len(t, shifts, 2)
	assert.Equal(t, early.ID, shifts[0].ID)
	assert.Equal(t, late.ID, shifts[1].ID)
	assert.Equal(t, day, shifts[0].StartTime)

	none, err := st.ListBranchShiftsBetween(ctx, branch.ID+1000, from, to)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSchedulerConcurrentCreatesAgainstPostgres(t *testing.T) {
	ctx := context.Background()
	st, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	branch, employee := seedBaseData(t, ctx, st)
	// Separate schedulers do not share a lock table, so only the exclusion
	// constraint stands between the two writers.
	first := schedule.New(st, schedule.Options{})
	second := schedule.New(st, schedule.Options{})
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i, sched := range []*schedule.Scheduler{first, second} {
		wg.Add(1)
		go func(offset int, sched *schedule.Scheduler) {
			defer wg.Done()
			_, err := sched.CreateShift(ctx, schedule.ShiftInput{
				EmployeeID: employee.ID,
				BranchID:   branch.ID,
				Start:      day.Add(time.Duration(9+offset) * time.Hour),
				End:        day.Add(time.Duration(13+offset) * time.Hour),
			})
			errs <- err
		}(i, sched)
	}
	wg.Wait()
	close(errs)

	var successes, conflicts int
	for err := range errs {
		var conflict *schedule.ConflictError
		switch {
		case err == nil:
			successes++
		case errors.As(err, &conflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, conflicts)
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	st, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	_, employee := seedBaseData(t, ctx, st)

	session, err := st.CreateSession(ctx, employee.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)

	loaded, err := st.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, employee.ID, loaded.EmployeeID)
	assert.Equal(t, "store leader", loaded.Role)

	expired, err := st.CreateSession(ctx, employee.ID, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	_, err = st.GetSession(ctx, expired.ID)
	require.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestDuplicateBranchName(t *testing.T) {
	ctx := context.Background()
	st, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	_, err := st.CreateBranch(ctx, models.Branch{Name: "Haifa"})
	require.NoError(t, err)
	_, err = st.CreateBranch(ctx, models.Branch{Name: "Haifa"})
	require.ErrorIs(t, err, store.ErrDuplicate)
}

func setupTestStore(t *testing.T, ctx context.Context) (*Store, func()) {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		dsn = os.Getenv("DB_DSN")
	}
	if dsn == "" {
		t.Skip("TEST_DB_DSN or DB_DSN is required for integration tests")
	}

	schema := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := createSchema(ctx, dsn, schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	pool, err := newPoolWithSchema(ctx, dsn, schema)
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}

	st := NewStore(pool)
	if err := st.Migrate(ctx); err != nil {
		pool.Close()
		t.Fatalf("apply migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		_ = dropSchema(context.Background(), dsn, schema)
	}
	return st, cleanup
}

func createSchema(ctx context.Context, dsn, schema string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	_, err = conn.Exec(ctx, "CREATE SCHEMA "+schema)
	return err
}

func dropSchema(ctx context.Context, dsn, schema string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	_, err = conn.Exec(ctx, "DROP SCHEMA "+schema+" CASCADE")
	return err
}

// public stays on the path so an already installed btree_gist is visible.
func newPoolWithSchema(ctx context.Context, dsn, schema string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.ConnConfig.RuntimeParams["search_path"] = schema + ",public"
	return pgxpool.NewWithConfig(ctx, cfg)
}

func seedBaseData(t *testing.T, ctx context.Context, st *Store) (models.Branch, models.Employee) {
	t.Helper()
	branch, err := st.CreateBranch(ctx, models.Branch{Name: "Tel-Aviv", Location: "Dizengoff"})
	if err != nil {
		t.Fatalf("insert branch: %v", err)
	}
	employee, err := st.CreateEmployee(ctx, store.CreateEmployeeInput{
		Email:        "leader@example.com",
		FirstName:    "Noa",
		LastName:     "Cohen",
		Role:         "store leader",
		BranchID:     &branch.ID,
		PasswordHash: "hash",
	})
	if err != nil {
		t.Fatalf("insert employee: %v", err)
	}
	return branch, employee
}

func createEmployee(t *testing.T, ctx context.Context, st *Store, email, first, last string) models.Employee {
	t.Helper()
	employee, err := st.CreateEmployee(ctx, store.CreateEmployeeInput{
		Email:        email,
		FirstName:    first,
		LastName:     last,
		Role:         "employee",
		PasswordHash: "hash",
	})
	if err != nil {
		t.Fatalf("insert employee: %v", err)
	}
	return employee
}
