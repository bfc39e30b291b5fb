package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/pkg/metrics"
)

// Default store configuration constants.
const (
	defaultMaxOpenConns = 1
	defaultBusyTimeout  = 5 * time.Second
)

const schema = `
CREATE TABLE IF NOT EXISTS sites (
	site_key        TEXT PRIMARY KEY,
	name            TEXT NOT NULL DEFAULT '',
	organization_id TEXT NOT NULL DEFAULT '',
	allowed_domains TEXT NOT NULL DEFAULT '[]',
	is_temp         INTEGER NOT NULL DEFAULT 0,
	expires_at      INTEGER,
	created_at      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
	id              TEXT PRIMARY KEY,
	site_key        TEXT NOT NULL,
	event           TEXT NOT NULL,
	ts              INTEGER NOT NULL,
	created_at      INTEGER NOT NULL,
	url             TEXT NOT NULL DEFAULT '',
	referrer        TEXT NOT NULL DEFAULT '',
	referrer_domain TEXT NOT NULL DEFAULT '',
	device_type     TEXT NOT NULL DEFAULT '',
	os              TEXT NOT NULL DEFAULT '',
	os_version      TEXT NOT NULL DEFAULT '',
	browser         TEXT NOT NULL DEFAULT '',
	browser_version TEXT NOT NULL DEFAULT '',
	country         TEXT NOT NULL DEFAULT '',
	region          TEXT NOT NULL DEFAULT '',
	is_temp         INTEGER NOT NULL DEFAULT 0,
	props           TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_events_site_created ON events(site_key, created_at);
CREATE INDEX IF NOT EXISTS idx_sites_temp_expiry ON sites(is_temp, expires_at);
`

// SQLiteStore implements Store on an embedded sqlite database.
type SQLiteStore struct {
	db *sql.DB

	maxOpenConns int
	busyTimeout  time.Duration
}

// NewSQLiteStore opens (creating if needed) the database at dsn and runs
// the schema migration. Use ":memory:" for an ephemeral store in tests.
func NewSQLiteStore(dsn string, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{
		maxOpenConns: defaultMaxOpenConns,
		busyTimeout:  defaultBusyTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(s.maxOpenConns)

	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", s.busyTimeout.Milliseconds())); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	s.db = db
	return s, nil
}

// SaveEvent implements Store.
func (s *SQLiteStore) SaveEvent(ctx context.Context, e model.EnrichedEvent, site model.SiteConfig) (model.StoredEvent, error) {
	start := time.Now()

	stored := model.StoredEvent{
		ID:             uuid.NewString(),
		Site:           e.Site,
		Event:          e.Event,
		Timestamp:      e.Timestamp,
		CreatedAt:      time.Now().UTC(),
		URL:            e.URL,
		Referrer:       e.Referrer,
		ReferrerDomain: e.ReferrerDomain,
		DeviceType:     e.DeviceType,
		OS:             e.OS,
		OSVersion:      e.OSVersion,
		Browser:        e.Browser,
		BrowserVersion: e.BrowserVersion,
		Country:        e.Country,
		Region:         e.Region,
		IsTemp:         site.IsTemp,
		Props:          e.Props,
	}

	props, err := json.Marshal(stored.Props)
	if err != nil {
		metrics.RecordStoreError()
		return model.StoredEvent{}, fmt.Errorf("encode props: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (
			id, site_key, event, ts, created_at, url, referrer, referrer_domain,
			device_type, os, os_version, browser, browser_version,
			country, region, is_temp, props
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stored.ID, stored.Site, stored.Event,
		stored.Timestamp.UnixMilli(), stored.CreatedAt.UnixMilli(),
		stored.URL, stored.Referrer, stored.ReferrerDomain,
		stored.DeviceType, stored.OS, stored.OSVersion,
		stored.Browser, stored.BrowserVersion,
		stored.Country, stored.Region, boolInt(stored.IsTemp), string(props),
	)
	if err != nil {
		metrics.RecordStoreError()
		return model.StoredEvent{}, fmt.Errorf("insert event: %w", err)
	}

	metrics.RecordStoreWriteLatency(float64(time.Since(start).Milliseconds()))
	return stored, nil
}

// ListRecent implements Store. Events are returned newest first; rowid
// breaks ties so sequential inserts within the same millisecond keep
// their insertion order.
func (s *SQLiteStore) ListRecent(ctx context.Context, siteKey string, limit int) ([]model.StoredEvent, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, site_key, event, ts, created_at, url, referrer, referrer_domain,
		       device_type, os, os_version, browser, browser_version,
		       country, region, is_temp, props
		FROM events
		WHERE site_key = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, siteKey, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []model.StoredEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

// PruneTempEvents implements Store.
func (s *SQLiteStore) PruneTempEvents(ctx context.Context, siteKey string, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM events
		WHERE site_key = ? AND is_temp = 1 AND rowid NOT IN (
			SELECT rowid FROM events
			WHERE site_key = ? AND is_temp = 1
			ORDER BY created_at DESC, rowid DESC
			LIMIT ?
		)`, siteKey, siteKey, keep)
	if err != nil {
		metrics.RecordStoreError()
		return 0, fmt.Errorf("prune temp events: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune temp events: %w", err)
	}
	if n > 0 {
		metrics.AddTempEventsPruned(int(n))
	}
	return int(n), nil
}

// ExpireTempSites implements Store. Events are removed in the same
// transaction as their site so a crash cannot leave orphaned temp events.
func (s *SQLiteStore) ExpireTempSites(ctx context.Context, now time.Time) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin expiry: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cutoff := now.UnixMilli()
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM events WHERE site_key IN (
			SELECT site_key FROM sites
			WHERE is_temp = 1 AND expires_at IS NOT NULL AND expires_at < ?
		)`, cutoff); err != nil {
		return 0, fmt.Errorf("delete expired events: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		DELETE FROM sites
		WHERE is_temp = 1 AND expires_at IS NOT NULL AND expires_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired sites: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired sites: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit expiry: %w", err)
	}
	if n > 0 {
		metrics.AddTempSitesExpired(int(n))
	}
	return int(n), nil
}

// GetSite implements SiteGetter.
func (s *SQLiteStore) GetSite(ctx context.Context, siteKey string) (model.SiteConfig, error) {
	var (
		site      model.SiteConfig
		domains   string
		isTemp    int
		expiresAt sql.NullInt64
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT site_key, name, organization_id, allowed_domains, is_temp, expires_at, created_at
		FROM sites WHERE site_key = ?`, siteKey).Scan(
		&site.SiteKey, &site.Name, &site.OrganizationID, &domains, &isTemp, &expiresAt, &createdAt,
	)
	if err == sql.ErrNoRows {
		return model.SiteConfig{}, ErrSiteNotFound
	}
	if err != nil {
		return model.SiteConfig{}, fmt.Errorf("query site: %w", err)
	}

	if err := json.Unmarshal([]byte(domains), &site.AllowedDomains); err != nil {
		return model.SiteConfig{}, fmt.Errorf("decode allowed domains: %w", err)
	}
	site.IsTemp = isTemp != 0
	if expiresAt.Valid {
		site.ExpiresAt = time.UnixMilli(expiresAt.Int64).UTC()
	}
	site.CreatedAt = time.UnixMilli(createdAt).UTC()
	return site, nil
}

// CreateSite implements Store.
func (s *SQLiteStore) CreateSite(ctx context.Context, site model.SiteConfig) error {
	if strings.TrimSpace(site.SiteKey) == "" {
		return ErrInvalidConfig
	}

	domains, err := json.Marshal(emptyAsList(site.AllowedDomains))
	if err != nil {
		return fmt.Errorf("encode allowed domains: %w", err)
	}

	createdAt := site.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	var expiresAt any
	if !site.ExpiresAt.IsZero() {
		expiresAt = site.ExpiresAt.UnixMilli()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sites (site_key, name, organization_id, allowed_domains, is_temp, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		site.SiteKey, site.Name, site.OrganizationID, string(domains),
		boolInt(site.IsTemp), expiresAt, createdAt.UnixMilli(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return ErrSiteExists
		}
		return fmt.Errorf("insert site: %w", err)
	}
	return nil
}

// UpdateSiteDomains implements Store.
func (s *SQLiteStore) UpdateSiteDomains(ctx context.Context, siteKey string, domains []string) error {
	encoded, err := json.Marshal(emptyAsList(domains))
	if err != nil {
		return fmt.Errorf("encode allowed domains: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE sites SET allowed_domains = ? WHERE site_key = ?`,
		string(encoded), siteKey)
	if err != nil {
		return fmt.Errorf("update site domains: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update site domains: %w", err)
	}
	if n == 0 {
		return ErrSiteNotFound
	}
	return nil
}

// DeleteSite implements Store. Temp-site events go with the site; events
// of permanent sites stay as history.
func (s *SQLiteStore) DeleteSite(ctx context.Context, siteKey string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM events WHERE site_key = ? AND is_temp = 1`, siteKey); err != nil {
		return fmt.Errorf("delete temp events: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM sites WHERE site_key = ?`, siteKey)
	if err != nil {
		return fmt.Errorf("delete site: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete site: %w", err)
	}
	if n == 0 {
		return ErrSiteNotFound
	}
	return tx.Commit()
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanEvent(rows *sql.Rows) (model.StoredEvent, error) {
	var (
		e      model.StoredEvent
		ts     int64
		cr     int64
		isTemp int
		props  string
	)
	if err := rows.Scan(
		&e.ID, &e.Site, &e.Event, &ts, &cr, &e.URL, &e.Referrer, &e.ReferrerDomain,
		&e.DeviceType, &e.OS, &e.OSVersion, &e.Browser, &e.BrowserVersion,
		&e.Country, &e.Region, &isTemp, &props,
	); err != nil {
		return model.StoredEvent{}, fmt.Errorf("scan event: %w", err)
	}
	e.Timestamp = time.UnixMilli(ts).UTC()
	e.CreatedAt = time.UnixMilli(cr).UTC()
	e.IsTemp = isTemp != 0
	if err := json.Unmarshal([]byte(props), &e.Props); err != nil {
		return model.StoredEvent{}, fmt.Errorf("decode props: %w", err)
	}
	return e, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// emptyAsList keeps allowed_domains as a JSON array even when nil so the
// column round-trips without null checks.
func emptyAsList(domains []string) []string {
	if domains == nil {
		return []string{}
	}
	return domains
}
