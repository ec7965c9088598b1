/*
Package sqlite provides a SQLite-backed implementation of the repository
contracts.

PURPOSE:
  Implements engine.Repository and engine.TxRepository using SQLite. In
  production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

STATUS VOCABULARY:
  The engine works with named statuses; this store owns the name→id
  mapping. The statuses table is seeded with fixed ids on migration and
  every query translates through it. Nothing above this package ever
  sees a status id.

KEY TABLES:
  users:           User records (type, active flag)
  events:          Event lifecycle + recurrence config + gift payload
  event_missions:  Ordered event → mission type membership
  mission_types:   Mission type lifecycle + recurrence config
  missions:        Per-user instances (created_at is the period anchor)
  reward_grants:   Append-only gift grants

INDEXES:
  - idx_missions_user_type_status: The sweep/confirm hot path
  - idx_missions_one_pending: Partial unique index enforcing at most one
    pending_confirmation per (user, mission_type) - defense in depth,
    the reconciler's collapse logic is the primary enforcement

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) so the background
  reconciler and request handlers do not block each other's reads.

USAGE:
  store, err := sqlite.New("./data/missions.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - engine/repository.go: Interface definitions
  - engine/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/mission-engine/engine"
	"github.com/warp/mission-engine/rewards"
)

// timeLayout stores naive local datetimes as text.
const timeLayout = "2006-01-02 15:04:05"

// Fixed status ids seeded on migration. The partial unique index on
// pending missions depends on these staying stable.
var statusIDs = map[engine.Status]int{
	engine.StatusPending:             1,
	engine.StatusActive:              2,
	engine.StatusCompleted:           3,
	engine.StatusPendingConfirmation: 4,
	engine.StatusExpired:             5,
}

var statusNames = map[int]engine.Status{
	1: engine.StatusPending,
	2: engine.StatusActive,
	3: engine.StatusCompleted,
	4: engine.StatusPendingConfirmation,
	5: engine.StatusExpired,
}

// querier is satisfied by both *sql.DB and *sql.Tx, so the same
// repository code serves direct calls and WithTx blocks.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements the repository contracts using SQLite.
type Store struct {
	db *sql.DB
	q  querier
}

// New opens (or creates) the database at path and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between the reconciler and
	// request handlers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, q: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS statuses (
		id   INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		user_type     TEXT NOT NULL DEFAULT '',
		active        INTEGER NOT NULL DEFAULT 1,
		registered_at TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS events (
		id              TEXT PRIMARY KEY,
		name            TEXT NOT NULL,
		status_id       INTEGER NOT NULL REFERENCES statuses(id),
		start_date      TEXT NOT NULL,
		expired_date    TEXT,
		gift_name       TEXT NOT NULL DEFAULT '',
		gift_points     TEXT NOT NULL DEFAULT '0',
		user_types      TEXT NOT NULL DEFAULT '[]',
		recurrence_type TEXT NOT NULL,
		recurrence_mode TEXT NOT NULL,
		auto_renew      INTEGER NOT NULL DEFAULT 0,
		reset_hour      INTEGER NOT NULL DEFAULT 0,
		reset_minute    INTEGER NOT NULL DEFAULT 0,
		reset_second    INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS event_missions (
		event_id        TEXT NOT NULL REFERENCES events(id),
		mission_type_id TEXT NOT NULL,
		position        INTEGER NOT NULL,
		PRIMARY KEY (event_id, mission_type_id)
	);

	CREATE TABLE IF NOT EXISTS mission_types (
		id              TEXT PRIMARY KEY,
		name            TEXT NOT NULL,
		status_id       INTEGER NOT NULL REFERENCES statuses(id),
		recurrence_type TEXT NOT NULL,
		recurrence_mode TEXT NOT NULL,
		reset_hour      INTEGER NOT NULL DEFAULT 0,
		reset_minute    INTEGER NOT NULL DEFAULT 0,
		reset_second    INTEGER NOT NULL DEFAULT 0,
		start_date      TEXT NOT NULL,
		expiration_date TEXT,
		relative_days   INTEGER,
		auto_renew      INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS missions (
		id              TEXT PRIMARY KEY,
		mission_type_id TEXT NOT NULL REFERENCES mission_types(id),
		user_id         TEXT NOT NULL REFERENCES users(id),
		status_id       INTEGER NOT NULL REFERENCES statuses(id),
		created_at      TEXT NOT NULL,
		used_at         TEXT
	);

	CREATE TABLE IF NOT EXISTS reward_grants (
		id          TEXT PRIMARY KEY,
		event_id    TEXT NOT NULL,
		user_id     TEXT NOT NULL,
		gift_name   TEXT NOT NULL,
		points      TEXT NOT NULL,
		granted_at  TEXT NOT NULL,
		UNIQUE (event_id, user_id)
	);

	CREATE INDEX IF NOT EXISTS idx_missions_user_type_status
		ON missions(user_id, mission_type_id, status_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_missions_type_status
		ON missions(mission_type_id, status_id);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_missions_one_pending
		ON missions(user_id, mission_type_id) WHERE status_id = 4;
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}

	for status, id := range statusIDs {
		if _, err := s.db.Exec(
			`INSERT OR IGNORE INTO statuses (id, name) VALUES (?, ?)`, id, string(status)); err != nil {
			return fmt.Errorf("seed statuses: %w", err)
		}
	}
	return nil
}

// =============================================================================
// REPOSITORY BUNDLE
// =============================================================================

func (s *Store) Events() engine.EventRepository             { return eventRepo{s} }
func (s *Store) MissionTypes() engine.MissionTypeRepository { return typeRepo{s} }
func (s *Store) Missions() engine.MissionRepository         { return missionRepo{s} }
func (s *Store) Users() engine.UserRepository               { return userRepo{s} }

// WithTx runs fn inside a database transaction. The Repository passed to
// fn routes every query through the transaction; an error rolls back.
func (s *Store) WithTx(ctx context.Context, fn func(engine.Repository) error) error {
	if _, ok := s.q.(*sql.Tx); ok {
		// Already inside a transaction; SQLite has no nesting.
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	txStore := &Store{db: s.db, q: tx}
	if err := fn(txStore); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

var (
	_ engine.Repository   = (*Store)(nil)
	_ engine.TxRepository = (*Store)(nil)
	_ rewards.GrantLog    = (*Store)(nil)
)

// =============================================================================
// EVENTS
// =============================================================================

type eventRepo struct{ s *Store }

const eventColumns = `id, name, status_id, start_date, expired_date, gift_name, gift_points,
	user_types, recurrence_type, recurrence_mode, auto_renew, reset_hour, reset_minute, reset_second`

func (r eventRepo) ListByStatus(ctx context.Context, statuses ...engine.Status) ([]engine.Event, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM events WHERE status_id IN (%s) ORDER BY rowid`,
		eventColumns, placeholders(len(statuses)))

	rows, err := r.s.q.QueryContext(ctx, query, statusArgs(statuses)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	// Scan fully before the membership queries; the single-connection pool
	// cannot serve a nested query while rows are open.
	var out []engine.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i := range out {
		missions, err := r.MissionsOf(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Missions = missions
	}
	return out, nil
}

func (r eventRepo) Get(ctx context.Context, id engine.EventID) (engine.Event, error) {
	row := r.s.q.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM events WHERE id = ?`, eventColumns), string(id))
	ev, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return engine.Event{}, engine.ErrEventNotFound
	}
	if err != nil {
		return engine.Event{}, err
	}
	missions, err := r.MissionsOf(ctx, ev.ID)
	if err != nil {
		return engine.Event{}, err
	}
	ev.Missions = missions
	return ev, nil
}

func (r eventRepo) Save(ctx context.Context, ev engine.Event) error {
	userTypes, err := json.Marshal(ev.UserTypes)
	if err != nil {
		return err
	}
	_, err = r.s.q.ExecContext(ctx, `
		INSERT OR REPLACE INTO events
			(id, name, status_id, start_date, expired_date, gift_name, gift_points,
			 user_types, recurrence_type, recurrence_mode, auto_renew,
			 reset_hour, reset_minute, reset_second)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(ev.ID), ev.Name, statusIDs[ev.Status], formatTime(ev.StartDate),
		formatTimePtr(ev.ExpiredDate), ev.Gift.Name, ev.Gift.Points.String(),
		string(userTypes), string(ev.RecurrenceType), string(ev.RecurrenceMode),
		boolInt(ev.AutoRenew), ev.ResetTime.Hour, ev.ResetTime.Minute, ev.ResetTime.Second)
	if err != nil {
		return err
	}

	if _, err := r.s.q.ExecContext(ctx,
		`DELETE FROM event_missions WHERE event_id = ?`, string(ev.ID)); err != nil {
		return err
	}
	for i, mt := range ev.Missions {
		if _, err := r.s.q.ExecContext(ctx,
			`INSERT INTO event_missions (event_id, mission_type_id, position) VALUES (?, ?, ?)`,
			string(ev.ID), string(mt), i); err != nil {
			return err
		}
	}
	return nil
}

func (r eventRepo) SetStatus(ctx context.Context, id engine.EventID, status engine.Status) error {
	res, err := r.s.q.ExecContext(ctx,
		`UPDATE events SET status_id = ? WHERE id = ?`, statusIDs[status], string(id))
	if err != nil {
		return err
	}
	return checkFound(res, engine.ErrEventNotFound)
}

func (r eventRepo) SetExpiredDate(ctx context.Context, id engine.EventID, expiredAt time.Time) error {
	res, err := r.s.q.ExecContext(ctx,
		`UPDATE events SET expired_date = ? WHERE id = ?`, formatTime(expiredAt), string(id))
	if err != nil {
		return err
	}
	return checkFound(res, engine.ErrEventNotFound)
}

func (r eventRepo) MissionsOf(ctx context.Context, id engine.EventID) ([]engine.MissionTypeID, error) {
	rows, err := r.s.q.QueryContext(ctx,
		`SELECT mission_type_id FROM event_missions WHERE event_id = ? ORDER BY position`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.MissionTypeID
	for rows.Next() {
		var mt string
		if err := rows.Scan(&mt); err != nil {
			return nil, err
		}
		out = append(out, engine.MissionTypeID(mt))
	}
	return out, rows.Err()
}

// =============================================================================
// MISSION TYPES
// =============================================================================

type typeRepo struct{ s *Store }

const typeColumns = `id, name, status_id, recurrence_type, recurrence_mode,
	reset_hour, reset_minute, reset_second, start_date, expiration_date, relative_days, auto_renew`

func (r typeRepo) ListByStatusAndMode(ctx context.Context, statuses []engine.Status, modes []engine.RecurrenceMode) ([]engine.MissionType, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM mission_types WHERE status_id IN (%s)`,
		typeColumns, placeholders(len(statuses)))
	args := statusArgs(statuses)

	if len(modes) > 0 {
		query += fmt.Sprintf(` AND recurrence_mode IN (%s)`, placeholders(len(modes)))
		for _, m := range modes {
			args = append(args, string(m))
		}
	}
	query += ` ORDER BY rowid`

	rows, err := r.s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.MissionType
	for rows.Next() {
		mt, err := scanMissionType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, mt)
	}
	return out, rows.Err()
}

func (r typeRepo) Get(ctx context.Context, id engine.MissionTypeID) (engine.MissionType, error) {
	row := r.s.q.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM mission_types WHERE id = ?`, typeColumns), string(id))
	mt, err := scanMissionType(row)
	if err == sql.ErrNoRows {
		return engine.MissionType{}, engine.ErrMissionTypeNotFound
	}
	return mt, err
}

func (r typeRepo) Save(ctx context.Context, mt engine.MissionType) error {
	_, err := r.s.q.ExecContext(ctx, `
		INSERT OR REPLACE INTO mission_types
			(id, name, status_id, recurrence_type, recurrence_mode,
			 reset_hour, reset_minute, reset_second, start_date,
			 expiration_date, relative_days, auto_renew)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(mt.ID), mt.Name, statusIDs[mt.Status], string(mt.RecurrenceType),
		string(mt.RecurrenceMode), mt.ResetTime.Hour, mt.ResetTime.Minute,
		mt.ResetTime.Second, formatTime(mt.StartDate),
		formatTimePtr(mt.ExpirationDate), mt.RelativeDays, boolInt(mt.AutoRenew))
	return err
}

func (r typeRepo) SetStatus(ctx context.Context, id engine.MissionTypeID, status engine.Status) error {
	res, err := r.s.q.ExecContext(ctx,
		`UPDATE mission_types SET status_id = ? WHERE id = ?`, statusIDs[status], string(id))
	if err != nil {
		return err
	}
	return checkFound(res, engine.ErrMissionTypeNotFound)
}

// =============================================================================
// MISSIONS
// =============================================================================

type missionRepo struct{ s *Store }

func (r missionRepo) Find(ctx context.Context, q engine.MissionQuery) ([]engine.Mission, error) {
	query := `SELECT id, mission_type_id, user_id, status_id, created_at, used_at FROM missions`
	var where []string
	var args []any

	if q.User != "" {
		where = append(where, `user_id = ?`)
		args = append(args, string(q.User))
	}
	if q.MissionType != "" {
		where = append(where, `mission_type_id = ?`)
		args = append(args, string(q.MissionType))
	}
	if len(q.Statuses) > 0 {
		where = append(where, fmt.Sprintf(`status_id IN (%s)`, placeholders(len(q.Statuses))))
		args = append(args, statusArgs(q.Statuses)...)
	}
	if q.CreatedBefore != nil {
		where = append(where, `created_at < ?`)
		args = append(args, formatTime(*q.CreatedBefore))
	}
	if q.Window != nil {
		where = append(where, `created_at >= ? AND created_at < ?`)
		args = append(args, formatTime(q.Window.Start), formatTime(q.Window.End))
	}
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY created_at, rowid`

	rows, err := r.s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.Mission
	for rows.Next() {
		m, err := scanMission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r missionRepo) Create(ctx context.Context, mt engine.MissionTypeID, user engine.UserID, createdAt time.Time) (engine.Mission, error) {
	m := engine.Mission{
		ID:            engine.MissionID(uuid.NewString()),
		MissionTypeID: mt,
		UserID:        user,
		Status:        engine.StatusPendingConfirmation,
		CreatedAt:     createdAt,
	}
	_, err := r.s.q.ExecContext(ctx, `
		INSERT INTO missions (id, mission_type_id, user_id, status_id, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		string(m.ID), string(mt), string(user),
		statusIDs[engine.StatusPendingConfirmation], formatTime(createdAt))
	if err != nil {
		return engine.Mission{}, err
	}
	return m, nil
}

func (r missionRepo) SetStatus(ctx context.Context, id engine.MissionID, status engine.Status) error {
	res, err := r.s.q.ExecContext(ctx,
		`UPDATE missions SET status_id = ? WHERE id = ?`, statusIDs[status], string(id))
	if err != nil {
		return err
	}
	return checkFound(res, engine.ErrMissionNotFound)
}

func (r missionRepo) Complete(ctx context.Context, id engine.MissionID, usedAt time.Time) error {
	res, err := r.s.q.ExecContext(ctx, `
		UPDATE missions SET status_id = ?, used_at = ?
		WHERE id = ? AND status_id = ?`,
		statusIDs[engine.StatusCompleted], formatTime(usedAt),
		string(id), statusIDs[engine.StatusPendingConfirmation])
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish "gone" from "raced to a terminal state".
		var exists int
		row := r.s.q.QueryRowContext(ctx, `SELECT COUNT(1) FROM missions WHERE id = ?`, string(id))
		if err := row.Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return engine.ErrMissionNotFound
		}
		return engine.ErrConflict
	}
	return nil
}

func (r missionRepo) TouchCreatedAt(ctx context.Context, id engine.MissionID, createdAt time.Time) error {
	res, err := r.s.q.ExecContext(ctx,
		`UPDATE missions SET created_at = ? WHERE id = ?`, formatTime(createdAt), string(id))
	if err != nil {
		return err
	}
	return checkFound(res, engine.ErrMissionNotFound)
}

// =============================================================================
// USERS
// =============================================================================

type userRepo struct{ s *Store }

func (r userRepo) ListActiveIDs(ctx context.Context, userTypes []string) ([]engine.UserID, error) {
	query := `SELECT id FROM users WHERE active = 1`
	var args []any
	if len(userTypes) > 0 {
		query += fmt.Sprintf(` AND user_type IN (%s)`, placeholders(len(userTypes)))
		for _, t := range userTypes {
			args = append(args, t)
		}
	}
	query += ` ORDER BY rowid`

	rows, err := r.s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.UserID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, engine.UserID(id))
	}
	return out, rows.Err()
}

func (r userRepo) Save(ctx context.Context, u engine.User) error {
	_, err := r.s.q.ExecContext(ctx, `
		INSERT OR REPLACE INTO users (id, name, user_type, active, registered_at)
		VALUES (?, ?, ?, ?, ?)`,
		string(u.ID), u.Name, u.Type, boolInt(u.Active), formatTime(u.RegisteredAt))
	return err
}

// =============================================================================
// REWARD GRANTS - rewards.GrantLog implementation
// =============================================================================

// Append inserts a grant; an existing (event, user) pair is a no-op.
func (s *Store) Append(ctx context.Context, g rewards.Grant) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT OR IGNORE INTO reward_grants (id, event_id, user_id, gift_name, points, granted_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		g.ID, string(g.EventID), string(g.UserID), g.GiftName, g.Points.String(), formatTime(g.GrantedAt))
	return err
}

// ListByUser returns a user's grants, oldest first.
func (s *Store) ListByUser(ctx context.Context, user engine.UserID) ([]rewards.Grant, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, event_id, user_id, gift_name, points, granted_at
		FROM reward_grants WHERE user_id = ? ORDER BY granted_at, rowid`, string(user))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []rewards.Grant
	for rows.Next() {
		var g rewards.Grant
		var eventID, userID, points, grantedAt string
		if err := rows.Scan(&g.ID, &eventID, &userID, &g.GiftName, &points, &grantedAt); err != nil {
			return nil, err
		}
		g.EventID = engine.EventID(eventID)
		g.UserID = engine.UserID(userID)
		if g.Points, err = parseDecimal(points); err != nil {
			return nil, err
		}
		if g.GrantedAt, err = parseTime(grantedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// =============================================================================
// SCANNERS AND HELPERS
// =============================================================================

type rowScanner interface{ Scan(dest ...any) error }

func scanEvent(row rowScanner) (engine.Event, error) {
	var ev engine.Event
	var id, start, rt, mode, giftName, giftPoints, userTypes string
	var statusID, autoRenew int
	var expired sql.NullString

	err := row.Scan(&id, &ev.Name, &statusID, &start, &expired, &giftName, &giftPoints,
		&userTypes, &rt, &mode, &autoRenew,
		&ev.ResetTime.Hour, &ev.ResetTime.Minute, &ev.ResetTime.Second)
	if err != nil {
		return engine.Event{}, err
	}

	ev.ID = engine.EventID(id)
	ev.Status = statusNames[statusID]
	ev.RecurrenceType = engine.RecurrenceType(rt)
	ev.RecurrenceMode = engine.RecurrenceMode(mode)
	ev.AutoRenew = autoRenew != 0
	ev.Gift.Name = giftName
	if ev.Gift.Points, err = parseDecimal(giftPoints); err != nil {
		return engine.Event{}, err
	}
	if ev.StartDate, err = parseTime(start); err != nil {
		return engine.Event{}, err
	}
	if ev.ExpiredDate, err = parseTimePtr(expired); err != nil {
		return engine.Event{}, err
	}
	if err := json.Unmarshal([]byte(userTypes), &ev.UserTypes); err != nil {
		return engine.Event{}, err
	}
	return ev, nil
}

func scanMissionType(row rowScanner) (engine.MissionType, error) {
	var mt engine.MissionType
	var id, rt, mode, start string
	var statusID, autoRenew int
	var expiration sql.NullString
	var relativeDays sql.NullInt64

	err := row.Scan(&id, &mt.Name, &statusID, &rt, &mode,
		&mt.ResetTime.Hour, &mt.ResetTime.Minute, &mt.ResetTime.Second,
		&start, &expiration, &relativeDays, &autoRenew)
	if err != nil {
		return engine.MissionType{}, err
	}

	mt.ID = engine.MissionTypeID(id)
	mt.Status = statusNames[statusID]
	mt.RecurrenceType = engine.RecurrenceType(rt)
	mt.RecurrenceMode = engine.RecurrenceMode(mode)
	mt.AutoRenew = autoRenew != 0
	if mt.StartDate, err = parseTime(start); err != nil {
		return engine.MissionType{}, err
	}
	if mt.ExpirationDate, err = parseTimePtr(expiration); err != nil {
		return engine.MissionType{}, err
	}
	if relativeDays.Valid {
		d := int(relativeDays.Int64)
		mt.RelativeDays = &d
	}
	return mt, nil
}

func scanMission(row rowScanner) (engine.Mission, error) {
	var m engine.Mission
	var id, mtID, userID, created string
	var statusID int
	var used sql.NullString

	err := row.Scan(&id, &mtID, &userID, &statusID, &created, &used)
	if err != nil {
		return engine.Mission{}, err
	}

	m.ID = engine.MissionID(id)
	m.MissionTypeID = engine.MissionTypeID(mtID)
	m.UserID = engine.UserID(userID)
	m.Status = statusNames[statusID]
	if m.CreatedAt, err = parseTime(created); err != nil {
		return engine.Mission{}, err
	}
	if m.UsedAt, err = parseTimePtr(used); err != nil {
		return engine.Mission{}, err
	}
	return m, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func statusArgs(statuses []engine.Status) []any {
	args := make([]any, len(statuses))
	for i, s := range statuses {
		args[i] = statusIDs[s]
	}
	return args
}

func checkFound(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string { return t.Format(timeLayout) }

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func parseDecimal(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

func parseTimePtr(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
