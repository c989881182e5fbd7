package postgres

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"klinik/antrian/internal/models"
	"klinik/antrian/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

func TestTakeTicketSequencesPerDay(t *testing.T) {
	ctx := context.Background()
	st, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)
	seedSetting(t, ctx, st, 3)

	for i, want := range []string{"A-001", "A-002", "A-003"} {
		entry := takeTicket(t, ctx, st, "2026-10-15")
		if entry.QueueCode != want {
			t.Fatalf("ticket %d: got %s, want %s", i, entry.QueueCode, want)
		}
		if entry.QueueDate != "2026-10-15" {
			t.Fatalf("unexpected queue date %s", entry.QueueDate)
		}
	}

	_, err := st.TakeTicket(ctx, store.TakeTicketInput{
		EntryID: uuid.NewString(), DepartmentID: "umum", QueueDate: "2026-10-15", TakenAt: time.Now().UTC(),
	}, allocate)
	if !errors.Is(err, store.ErrQuotaExceeded) {
		t.Fatalf("expected quota exceeded, got %v", err)
	}

	next := takeTicket(t, ctx, st, "2026-10-16")
	if next.QueueCode != "A-001" {
		t.Fatalf("expected numbering reset, got %s", next.QueueCode)
	}
}

func TestTakeTicketConcurrency(t *testing.T) {
	ctx := context.Background()
	st, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)
	seedSetting(t, ctx, st, 50)

	var wg sync.WaitGroup
	results := make(chan string, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			entry, err := st.TakeTicket(ctx, store.TakeTicketInput{
				EntryID: uuid.NewString(), DepartmentID: "umum", QueueDate: "2026-10-15", TakenAt: time.Now().UTC(),
			}, allocate)
			if err != nil {
				t.Errorf("take ticket: %v", err)
				return
			}
			results <- entry.QueueCode
		}()
	}
	wg.Wait()
	close(results)

	var codes []string
	for code := range results {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	if len(codes) != 10 || codes[0] != "A-001" || codes[9] != "A-010" {
		t.Fatalf("unexpected codes %v", codes)
	}
}

func TestUpdateEntryRejectsStaleStatus(t *testing.T) {
	ctx := context.Background()
	st, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)
	seedSetting(t, ctx, st, 10)
	entry := takeTicket(t, ctx, st, "2026-10-15")

	counter := 1
	calledAt := entry.TakenAt.Add(time.Minute)
	next := entry
	next.Status = models.StatusCalled
	next.CounterNumber = &counter
	next.CalledAt = &calledAt

	input := store.UpdateEntryInput{Entry: next, Expected: models.StatusWaiting, Action: store.ActionCall, EventType: models.EventTicketCalled}
	updated, err := st.UpdateEntry(ctx, input)
	if err != nil {
		t.Fatalf("update entry: %v", err)
	}
	if updated.Status != models.StatusCalled || updated.CounterNumber == nil || *updated.CounterNumber != 1 {
		t.Fatalf("unexpected entry %+v", updated)
	}

	_, err = st.UpdateEntry(ctx, input)
	var transitionErr *store.InvalidTransitionError
	if !errors.As(err, &transitionErr) || transitionErr.From != models.StatusCalled {
		t.Fatalf("expected invalid transition from called, got %v", err)
	}

	events, err := st.ListEvents(ctx, entry.ID)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if err := store.VerifyChain(events); err != nil {
		t.Fatalf("verify chain: %v", err)
	}

	if _, err := st.GetEntry(ctx, uuid.NewString()); !errors.Is(err, store.ErrEntryNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListEntriesFilters(t *testing.T) {
	ctx := context.Background()
	st, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)
	seedSetting(t, ctx, st, 10)
	takeTicket(t, ctx, st, "2026-10-15")
	takeTicket(t, ctx, st, "2026-10-15")
	takeTicket(t, ctx, st, "2026-10-16")

	entries, err := st.ListEntries(ctx, store.EntryFilter{
		DepartmentID: "umum",
		Date:         "2026-10-15",
		Statuses:     []models.Status{models.StatusWaiting},
	})
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(entries) != 2 || entries[0].Sequence != 1 || entries[1].Sequence != 2 {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

func allocate(setting models.QueueSetting, last int) (int, string, error) {
	seq := last + 1
	if seq < setting.StartNumber {
		seq = setting.StartNumber
	}
	if seq > setting.DailyQuota {
		return 0, "", store.ErrQuotaExceeded
	}
	return seq, fmt.Sprintf("%s-%03d", setting.Prefix, seq), nil
}

func takeTicket(t *testing.T, ctx context.Context, st *Store, date string) models.QueueEntry {
	t.Helper()
	entry, err := st.TakeTicket(ctx, store.TakeTicketInput{
		EntryID:      uuid.NewString(),
		DepartmentID: "umum",
		QueueDate:    date,
		TakenAt:      time.Now().UTC().Truncate(time.Microsecond),
	}, allocate)
	if err != nil {
		t.Fatalf("take ticket: %v", err)
	}
	return entry
}

func seedSetting(t *testing.T, ctx context.Context, st *Store, quota int) {
	t.Helper()
	if _, err := st.UpsertSetting(ctx, models.QueueSetting{
		DepartmentID:   "umum",
		DepartmentName: "Poli Umum",
		Prefix:         "A",
		DailyQuota:     quota,
		StartNumber:    1,
		IsActive:       true,
	}); err != nil {
		t.Fatalf("seed setting: %v", err)
	}
}

func setupTestStore(t *testing.T, ctx context.Context) (*Store, func()) {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN is required for integration tests")
	}

	schema := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := execOnce(ctx, dsn, "CREATE SCHEMA "+schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		t.Fatalf("parse dsn: %v", err)
	}
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}

	if err := applyUpMigrations(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("apply migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		_ = execOnce(context.Background(), dsn, "DROP SCHEMA "+schema+" CASCADE")
	}
	return NewStore(pool), cleanup
}

// applyUpMigrations runs the embedded up files directly so each test can live
// in its own schema.
func applyUpMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	files, err := fs.Glob(migrationFS, "migrations/*.up.sql")
	if err != nil {
		return err
	}
	sort.Strings(files)
	for _, name := range files {
		content, err := migrationFS.ReadFile(name)
		if err != nil {
			return err
		}
		if _, err := pool.Exec(ctx, string(content)); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func execOnce(ctx context.Context, dsn, statement string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	_, err = conn.Exec(ctx, statement)
	return err
}
