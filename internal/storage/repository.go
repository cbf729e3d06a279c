package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"oddsguard/internal/rules"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
	// ErrAlertNotFound indicates no alert exists with the requested id.
	ErrAlertNotFound = errors.New("storage: alert not found")
)

const (
	// The conflict target matches the alerts_open_key partial unique index,
	// making "create if no open alert exists for the key" a single atomic
	// statement regardless of concurrent callers.
	createAlertSQL = `INSERT INTO alerts (
        ticker,
        rule_type,
        severity,
        title,
        description,
        away_name,
        away_price,
        home_name,
        home_price,
        status
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,'open'
    )
    ON CONFLICT (ticker, rule_type) WHERE status IN ('open', 'acknowledged') DO NOTHING
    RETURNING id;`

	alertColumns = `id,
        ticker,
        rule_type,
        severity,
        title,
        description,
        away_name,
        away_price,
        home_name,
        home_price,
        status,
        created_at,
        acknowledged_by,
        acknowledged_at,
        resolution_notes,
        updated_at`

	getAlertSQL = `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1;`

	listAlertsSQL = `SELECT ` + alertColumns + `
    FROM alerts
    WHERE status = ANY($1)
      AND ($2 = '' OR severity = $2)
    ORDER BY created_at DESC
    LIMIT $3;`

	updateAlertSQL = `UPDATE alerts
    SET status           = $2,
        acknowledged_by  = $3,
        acknowledged_at  = $4,
        resolution_notes = $5,
        updated_at       = now()
    WHERE id = $1;`

	appendOutcomeSQL = `INSERT INTO validation_audit (
        ticker,
        rule_type,
        severity,
        passed,
        message,
        details,
        created_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7
    );`

	summariseOutcomesSQL = `SELECT
        date_trunc('day', created_at) AS day,
        COUNT(*),
        COUNT(*) FILTER (WHERE NOT passed),
        COUNT(*) FILTER (WHERE NOT passed AND severity = 'critical')
    FROM validation_audit
    WHERE created_at >= $1
      AND created_at < $2
    GROUP BY day
    ORDER BY day;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// AlertStore defines operations for alert persistence and lifecycle updates.
type AlertStore interface {
	CreateAlertIfAbsent(ctx context.Context, alert Alert) (int64, bool, error)
	GetAlert(ctx context.Context, id int64) (Alert, error)
	UpdateAlert(ctx context.Context, alert Alert) error
	ListAlerts(ctx context.Context, filter AlertFilter) ([]Alert, error)
}

// AuditStore defines the append-only validation outcome log.
type AuditStore interface {
	AppendOutcomes(ctx context.Context, ticker string, outcomes []rules.Outcome) error
	SummariseOutcomesByDay(ctx context.Context, from, to time.Time) ([]DailyOutcomeCount, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to alerts and the validation audit log.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// CreateAlertIfAbsent inserts an open alert unless one already covers the
// (ticker, rule_type) key. Returns created=false when deduplicated.
func (s *Store) CreateAlertIfAbsent(ctx context.Context, alert Alert) (int64, bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, false, err
	}

	var id int64
	scanErr := pool.QueryRow(ctx, createAlertSQL,
		alert.Ticker,
		string(alert.Rule),
		string(alert.Severity),
		alert.Title,
		alert.Description,
		alert.AwayName,
		alert.AwayPrice.String(),
		alert.HomeName,
		alert.HomePrice.String(),
	).Scan(&id)
	if errors.Is(scanErr, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if scanErr != nil {
		return 0, false, fmt.Errorf("create alert: %w", scanErr)
	}
	return id, true, nil
}

// GetAlert loads one alert by id.
func (s *Store) GetAlert(ctx context.Context, id int64) (Alert, error) {
	pool, err := s.getPool()
	if err != nil {
		return Alert{}, err
	}

	rows, queryErr := pool.Query(ctx, getAlertSQL, id)
	if queryErr != nil {
		return Alert{}, fmt.Errorf("get alert: %w", queryErr)
	}
	defer rows.Close()

	if !rows.Next() {
		if rows.Err() != nil {
			return Alert{}, rows.Err()
		}
		return Alert{}, ErrAlertNotFound
	}
	return scanAlert(rows)
}

// UpdateAlert persists lifecycle mutations for one alert.
func (s *Store) UpdateAlert(ctx context.Context, alert Alert) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	cmdTag, execErr := pool.Exec(ctx, updateAlertSQL,
		alert.ID,
		string(alert.Status),
		alert.AcknowledgedBy,
		alert.AcknowledgedAt,
		alert.ResolutionNotes,
	)
	if execErr != nil {
		return fmt.Errorf("update alert: %w", execErr)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrAlertNotFound
	}
	return nil
}

// ListAlerts lists alerts matching the filter, most recent first.
func (s *Store) ListAlerts(ctx context.Context, filter AlertFilter) ([]Alert, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	statuses := make([]string, 0, len(filter.Statuses))
	for _, status := range filter.Statuses {
		statuses = append(statuses, string(status))
	}
	if len(statuses) == 0 {
		statuses = []string{string(StatusOpen), string(StatusAcknowledged)}
	}

	severity := ""
	if filter.Severity != nil {
		severity = string(*filter.Severity)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, queryErr := pool.Query(ctx, listAlertsSQL, statuses, severity, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]Alert, 0, limit)
	for rows.Next() {
		alert, scanErr := scanAlert(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		alerts = append(alerts, alert)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

// AppendOutcomes writes one audit row per outcome in a single batch.
func (s *Store) AppendOutcomes(ctx context.Context, ticker string, outcomes []rules.Outcome) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if len(outcomes) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, out := range outcomes {
		var details []byte
		if out.Details != nil {
			encoded, marshalErr := json.Marshal(out.Details)
			if marshalErr != nil {
				return fmt.Errorf("marshal outcome details: %w", marshalErr)
			}
			details = encoded
		}
		batch.Queue(appendOutcomeSQL,
			ticker,
			string(out.Rule),
			string(out.Severity),
			out.Passed,
			out.Message,
			details,
			out.At,
		)
	}

	results := pool.SendBatch(ctx, batch)
	defer results.Close()
	for range outcomes {
		if _, execErr := results.Exec(); execErr != nil {
			return fmt.Errorf("append outcome: %w", execErr)
		}
	}
	return nil
}

// SummariseOutcomesByDay aggregates the audit log for trend reporting.
func (s *Store) SummariseOutcomesByDay(ctx context.Context, from, to time.Time) ([]DailyOutcomeCount, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, summariseOutcomesSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("summarise outcomes: %w", queryErr)
	}
	defer rows.Close()

	counts := make([]DailyOutcomeCount, 0)
	for rows.Next() {
		var count DailyOutcomeCount
		if scanErr := rows.Scan(&count.Day, &count.Total, &count.Failed, &count.Critical); scanErr != nil {
			return nil, scanErr
		}
		counts = append(counts, count)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return counts, nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := conn.Exec(ctxUnlock, advisoryUnlockSQL, key); err != nil {
			// unlock best effort; log omitted in storage package
		}
		conn.Release()
	}
	return unlock, true, nil
}

func scanAlert(rows pgx.Rows) (Alert, error) {
	var (
		alert     Alert
		ruleType  string
		severity  string
		status    string
		awayPrice string
		homePrice string
	)

	if err := rows.Scan(
		&alert.ID,
		&alert.Ticker,
		&ruleType,
		&severity,
		&alert.Title,
		&alert.Description,
		&alert.AwayName,
		&awayPrice,
		&alert.HomeName,
		&homePrice,
		&status,
		&alert.CreatedAt,
		&alert.AcknowledgedBy,
		&alert.AcknowledgedAt,
		&alert.ResolutionNotes,
		&alert.UpdatedAt,
	); err != nil {
		return Alert{}, err
	}

	alert.Rule = rules.RuleType(ruleType)
	alert.Severity = rules.Severity(severity)
	alert.Status = AlertStatus(status)

	var convErr error
	alert.AwayPrice, convErr = decimal.NewFromString(awayPrice)
	if convErr != nil {
		return Alert{}, fmt.Errorf("parse away price: %w", convErr)
	}
	alert.HomePrice, convErr = decimal.NewFromString(homePrice)
	if convErr != nil {
		return Alert{}, fmt.Errorf("parse home price: %w", convErr)
	}

	return alert, nil
}

var (
	_ AlertStore     = (*Store)(nil)
	_ AuditStore     = (*Store)(nil)
	_ AdvisoryLocker = (*Store)(nil)
)
