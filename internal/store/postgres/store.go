package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"klinik/antrian/internal/models"
	"klinik/antrian/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dateLayout = "2006-01-02"

const entryColumns = `id, queue_code, sequence, queue_date, department_id, department_name, patient_id,
	status, counter_number, taken_at, called_at, started_at, finished_at, notes`

type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, now: time.Now}
}

func (s *Store) GetSetting(ctx context.Context, departmentID string) (models.QueueSetting, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT department_id, department_name, prefix, daily_quota, start_number, is_active, updated_at
		FROM queue_settings
		WHERE department_id = $1
	`, departmentID)
	setting, err := scanSetting(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.QueueSetting{}, store.ErrSettingNotFound
		}
		return models.QueueSetting{}, err
	}
	return setting, nil
}

func (s *Store) ListSettings(ctx context.Context) ([]models.QueueSetting, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT department_id, department_name, prefix, daily_quota, start_number, is_active, updated_at
		FROM queue_settings
		ORDER BY department_id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := []models.QueueSetting{}
	for rows.Next() {
		setting, err := scanSetting(rows)
		if err != nil {
			return nil, err
		}
		settings = append(settings, setting)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *Store) UpsertSetting(ctx context.Context, setting models.QueueSetting) (models.QueueSetting, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO queue_settings (department_id, department_name, prefix, daily_quota, start_number, is_active, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (department_id) DO UPDATE SET
			department_name = EXCLUDED.department_name,
			prefix = EXCLUDED.prefix,
			daily_quota = EXCLUDED.daily_quota,
			start_number = EXCLUDED.start_number,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
		RETURNING department_id, department_name, prefix, daily_quota, start_number, is_active, updated_at
	`, setting.DepartmentID, setting.DepartmentName, setting.Prefix, setting.DailyQuota, setting.StartNumber, setting.IsActive, s.now().UTC())
	return scanSetting(row)
}

func (s *Store) TakeTicket(ctx context.Context, input store.TakeTicketInput, allocate store.AllocateFunc) (models.QueueEntry, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.QueueEntry{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	// the row lock serialises allocation per department
	setting, err := scanSetting(tx.QueryRow(ctx, `
		SELECT department_id, department_name, prefix, daily_quota, start_number, is_active, updated_at
		FROM queue_settings
		WHERE department_id = $1
		FOR UPDATE
	`, input.DepartmentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.QueueEntry{}, store.ErrSettingNotFound
		}
		return models.QueueEntry{}, err
	}

	var last int
	if err := tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(sequence), 0)
		FROM queue_entries
		WHERE department_id = $1 AND queue_date = $2
	`, input.DepartmentID, input.QueueDate).Scan(&last); err != nil {
		return models.QueueEntry{}, err
	}

	seq, code, err := allocate(setting, last)
	if err != nil {
		return models.QueueEntry{}, err
	}

	entry, err := scanEntry(tx.QueryRow(ctx, `
		INSERT INTO queue_entries (id, queue_code, sequence, queue_date, department_id, department_name, status, taken_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+entryColumns,
		input.EntryID, code, seq, input.QueueDate, input.DepartmentID, setting.DepartmentName, string(models.StatusWaiting), input.TakenAt))
	if err != nil {
		if isUniqueViolation(err) {
			return models.QueueEntry{}, fmt.Errorf("%w: %s on %s", store.ErrCodeCollision, code, input.QueueDate)
		}
		return models.QueueEntry{}, err
	}

	if err := s.appendEvent(ctx, tx, entry, models.EventTicketTaken); err != nil {
		return models.QueueEntry{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return models.QueueEntry{}, err
	}
	return entry, nil
}

func (s *Store) GetEntry(ctx context.Context, id string) (models.QueueEntry, error) {
	if !isUUID(id) {
		return models.QueueEntry{}, store.ErrEntryNotFound
	}
	entry, err := scanEntry(s.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM queue_entries WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.QueueEntry{}, store.ErrEntryNotFound
		}
		return models.QueueEntry{}, err
	}
	return entry, nil
}

func (s *Store) UpdateEntry(ctx context.Context, input store.UpdateEntryInput) (models.QueueEntry, error) {
	if !isUUID(input.Entry.ID) {
		return models.QueueEntry{}, store.ErrEntryNotFound
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.QueueEntry{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var current string
	if err := tx.QueryRow(ctx, `SELECT status FROM queue_entries WHERE id = $1 FOR UPDATE`, input.Entry.ID).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.QueueEntry{}, store.ErrEntryNotFound
		}
		return models.QueueEntry{}, err
	}
	if models.Status(current) != input.Expected {
		return models.QueueEntry{}, &store.InvalidTransitionError{From: models.Status(current), Action: input.Action}
	}

	next := input.Entry
	entry, err := scanEntry(tx.QueryRow(ctx, `
		UPDATE queue_entries
		SET patient_id = $2,
			status = $3,
			counter_number = $4,
			called_at = $5,
			started_at = $6,
			finished_at = $7,
			notes = $8
		WHERE id = $1
		RETURNING `+entryColumns,
		next.ID, next.PatientID, string(next.Status), next.CounterNumber, next.CalledAt, next.StartedAt, next.FinishedAt, next.Notes))
	if err != nil {
		return models.QueueEntry{}, err
	}

	if err := s.appendEvent(ctx, tx, entry, input.EventType); err != nil {
		return models.QueueEntry{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return models.QueueEntry{}, err
	}
	return entry, nil
}

func (s *Store) ListEntries(ctx context.Context, filter store.EntryFilter) ([]models.QueueEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM queue_entries`
	var clauses []string
	var args []interface{}
	if filter.DepartmentID != "" {
		args = append(args, filter.DepartmentID)
		clauses = append(clauses, fmt.Sprintf("department_id = $%d", len(args)))
	}
	if filter.Date != "" {
		args = append(args, filter.Date)
		clauses = append(clauses, fmt.Sprintf("queue_date = $%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, status := range filter.Statuses {
			statuses = append(statuses, string(status))
		}
		args = append(args, statuses)
		clauses = append(clauses, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY taken_at ASC, sequence ASC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.QueueEntry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) ListEvents(ctx context.Context, entryID string) ([]models.QueueEvent, error) {
	if _, err := s.GetEntry(ctx, entryID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT entry_id, seq, type, payload::text, created_at, prev_hash, hash
		FROM queue_events
		WHERE entry_id = $1
		ORDER BY seq ASC
	`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.QueueEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *Store) appendEvent(ctx context.Context, tx pgx.Tx, entry models.QueueEntry, eventType string) error {
	var prev *models.QueueEvent
	last, err := scanEvent(tx.QueryRow(ctx, `
		SELECT entry_id, seq, type, payload::text, created_at, prev_hash, hash
		FROM queue_events
		WHERE entry_id = $1
		ORDER BY seq DESC
		LIMIT 1
	`, entry.ID))
	switch {
	case err == nil:
		prev = &last
	case !errors.Is(err, pgx.ErrNoRows):
		return err
	}

	event, err := store.NextEvent(prev, entry, eventType, s.now())
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO queue_events (entry_id, seq, type, payload, created_at, prev_hash, hash)
		VALUES ($1, $2, $3, $4::json, $5, $6, $7)
	`, event.EntryID, event.Seq, event.Type, string(event.Payload), event.CreatedAt, event.PrevHash, event.Hash)
	return err
}

func scanSetting(row pgx.Row) (models.QueueSetting, error) {
	var setting models.QueueSetting
	err := row.Scan(&setting.DepartmentID, &setting.DepartmentName, &setting.Prefix, &setting.DailyQuota, &setting.StartNumber, &setting.IsActive, &setting.UpdatedAt)
	return setting, err
}

func scanEntry(row pgx.Row) (models.QueueEntry, error) {
	var entry models.QueueEntry
	var queueDate time.Time
	var status string
	if err := row.Scan(&entry.ID, &entry.QueueCode, &entry.Sequence, &queueDate, &entry.DepartmentID, &entry.DepartmentName, &entry.PatientID,
		&status, &entry.CounterNumber, &entry.TakenAt, &entry.CalledAt, &entry.StartedAt, &entry.FinishedAt, &entry.Notes); err != nil {
		return models.QueueEntry{}, err
	}
	entry.QueueDate = queueDate.Format(dateLayout)
	entry.Status = models.Status(status)
	return entry, nil
}

func scanEvent(row pgx.Row) (models.QueueEvent, error) {
	var event models.QueueEvent
	var payload string
	if err := row.Scan(&event.EntryID, &event.Seq, &event.Type, &payload, &event.CreatedAt, &event.PrevHash, &event.Hash); err != nil {
		return models.QueueEvent{}, err
	}
	event.Payload = []byte(payload)
	return event, nil
}

// ids are uuid columns; anything else cannot exist and would only produce a
// cast error from postgres.
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
