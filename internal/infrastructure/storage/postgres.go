// Package storage holds the Postgres-backed persistence layer: the
// time-series catalog/raw/rollup tables and downsample queue, the
// alert rule/alert tables, and the scenario table, all via bun.
package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/rijnland-waterbeheer/peilbeheer/internal/alerts"
	"github.com/rijnland-waterbeheer/peilbeheer/internal/domain"
	"github.com/rijnland-waterbeheer/peilbeheer/internal/scenario"
	"github.com/rijnland-waterbeheer/peilbeheer/internal/timeseries"
	"github.com/tmthrgd/go-hex"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/vmihailenco/msgpack/v5"
)

// PostgresStore is the durable counterpart to timeseries.MemoryStore,
// and additionally owns the alert rule/alert and scenario tables.
type PostgresStore struct {
	db *bun.DB
}

// NewPostgresStore opens a connection pool against dsn without
// validating connectivity; call Ping to verify.
func NewPostgresStore(dsn string) *PostgresStore {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	return &PostgresStore{db: db}
}

// rollupLevelNames is the persisted subset of the aggregation ladder.
// The coarser levels (6h, 1w, 1mo) have no table in this store, so a
// Query at one of them fails.
var rollupLevelNames = []string{"1m", "5m", "15m", "1h", "1d"}

// InitSchema creates every table this store owns, if not already
// present.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	models := []interface{}{
		(*catalogModel)(nil),
		(*rawPointModel)(nil),
		(*downsampleQueueModel)(nil),
		(*alertRuleModel)(nil),
		(*alertModel)(nil),
		(*scenarioModel)(nil),
	}
	for _, model := range models {
		if _, err := s.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}
	for _, level := range rollupLevelNames {
		if _, err := s.db.NewCreateTable().
			Model((*rollupModel)(nil)).
			ModelTableExpr(rollupTableName(level)).
			IfNotExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("create rollup table %s: %w", level, err)
		}
	}
	return nil
}

func rollupTableName(level string) string {
	return "timeseries_data_" + level
}

// Ping checks connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close closes the underlying connection pool.
func (s *PostgresStore) Close() error { return s.db.Close() }

// --- timeseries catalog / raw ---

type catalogModel struct {
	bun.BaseModel `bun:"table:timeseries_catalog,alias:tc"`

	LocationID    string  `bun:"location_id,pk"`
	Parameter     string  `bun:"parameter,pk"`
	Qualifier     string  `bun:"qualifier,pk"`
	DisplayName   string  `bun:"display_name"`
	Units         string  `bun:"units"`
	DataType      string  `bun:"data_type"`
	SourceType    string  `bun:"source_type"`
	MinBound      *float64 `bun:"min_bound"`
	MaxBound      *float64 `bun:"max_bound"`
	RetentionDays int     `bun:"retention_days"`
	FirstTS       string  `bun:"first_ts"`
	LastTS        string  `bun:"last_ts"`
	Count         int64   `bun:"count"`
	CreatedAt     string  `bun:"created_at"`
	UpdatedAt     string  `bun:"updated_at"`
}

func (m *catalogModel) toDomain() (timeseries.CatalogEntry, error) {
	entry := timeseries.CatalogEntry{
		Key:           timeseries.SeriesKey{LocationID: m.LocationID, Parameter: m.Parameter, Qualifier: m.Qualifier},
		DisplayName:   m.DisplayName,
		Units:         m.Units,
		DataType:      timeseries.DataType(m.DataType),
		SourceType:    m.SourceType,
		MinBound:      m.MinBound,
		MaxBound:      m.MaxBound,
		RetentionDays: m.RetentionDays,
		Count:         m.Count,
	}
	var err error
	if entry.FirstTS, err = timeseries.ParseTimestamp(m.FirstTS); err != nil {
		return timeseries.CatalogEntry{}, err
	}
	if entry.LastTS, err = timeseries.ParseTimestamp(m.LastTS); err != nil {
		return timeseries.CatalogEntry{}, err
	}
	if entry.CreatedAt, err = timeseries.ParseTimestamp(m.CreatedAt); err != nil {
		return timeseries.CatalogEntry{}, err
	}
	if entry.UpdatedAt, err = timeseries.ParseTimestamp(m.UpdatedAt); err != nil {
		return timeseries.CatalogEntry{}, err
	}
	return entry, nil
}

func newCatalogModel(e timeseries.CatalogEntry) *catalogModel {
	return &catalogModel{
		LocationID:    e.Key.LocationID,
		Parameter:     e.Key.Parameter,
		Qualifier:     e.Key.Qualifier,
		DisplayName:   e.DisplayName,
		Units:         e.Units,
		DataType:      string(e.DataType),
		SourceType:    e.SourceType,
		MinBound:      e.MinBound,
		MaxBound:      e.MaxBound,
		RetentionDays: e.RetentionDays,
		FirstTS:       timeseries.FormatTimestamp(e.FirstTS),
		LastTS:        timeseries.FormatTimestamp(e.LastTS),
		Count:         e.Count,
		CreatedAt:     timeseries.FormatTimestamp(e.CreatedAt),
		UpdatedAt:     timeseries.FormatTimestamp(e.UpdatedAt),
	}
}

type rawPointModel struct {
	bun.BaseModel `bun:"table:timeseries_data_raw,alias:r"`

	SeriesKey string  `bun:"series_key,pk"`
	Timestamp string  `bun:"timestamp,pk"`
	Value     float64 `bun:"value"`
	Quality   string  `bun:"quality"`
}

// Register upserts a catalog row, creating one at the zero timestamp
// if none exists yet.
func (s *PostgresStore) Register(ctx context.Context, in timeseries.RegisterInput) error {
	now := time.Now()
	existing := new(catalogModel)
	err := s.db.NewSelect().Model(existing).
		Where("location_id = ? AND parameter = ? AND qualifier = ?", in.Key.LocationID, in.Key.Parameter, in.Key.Qualifier).
		Scan(ctx)

	entry := timeseries.CatalogEntry{
		Key:           in.Key,
		DisplayName:   in.DisplayName,
		Units:         in.Units,
		DataType:      in.DataType,
		SourceType:    in.SourceType,
		MinBound:      in.MinBound,
		MaxBound:      in.MaxBound,
		RetentionDays: in.RetentionDays,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err == nil {
		prior, convErr := existing.toDomain()
		if convErr == nil {
			entry.FirstTS = prior.FirstTS
			entry.LastTS = prior.LastTS
			entry.Count = prior.Count
			entry.CreatedAt = prior.CreatedAt
		}
	}
	if entry.DataType == "" {
		entry.DataType = timeseries.DataTypeInstantaneous
	}

	model := newCatalogModel(entry)
	_, err = s.db.NewInsert().Model(model).
		On("CONFLICT (location_id, parameter, qualifier) DO UPDATE").
		Exec(ctx)
	if err != nil {
		return domain.TemporaryFailuref(err, "register series %s", in.Key)
	}
	return nil
}

// Write upserts a batch of raw points and rolls the catalog counters
// forward. Per-point validation failures are counted as Rejected, not
// propagated.
func (s *PostgresStore) Write(ctx context.Context, batch timeseries.WriteBatch) (timeseries.WriteResult, error) {
	var result timeseries.WriteResult
	key := batch.Key.String()

	rows := make([]*rawPointModel, 0, len(batch.Points))
	for _, p := range batch.Points {
		if !p.IsValid() && p.Quality != timeseries.QualityMissing {
			result.Rejected++
			continue
		}
		rows = append(rows, &rawPointModel{
			SeriesKey: key,
			Timestamp: timeseries.FormatTimestamp(p.Timestamp),
			Value:     p.Value,
			Quality:   string(p.Quality),
		})
		if result.FirstTS.IsZero() || p.Timestamp.Before(result.FirstTS) {
			result.FirstTS = p.Timestamp
		}
		if p.Timestamp.After(result.LastTS) {
			result.LastTS = p.Timestamp
		}
	}
	if len(rows) == 0 {
		return result, nil
	}

	res, err := s.db.NewInsert().Model(&rows).
		On("CONFLICT (series_key, timestamp) DO UPDATE").
		Exec(ctx)
	if err != nil {
		return timeseries.WriteResult{}, domain.TemporaryFailuref(err, "write batch for series %s", key)
	}
	affected, _ := res.RowsAffected()
	result.Written = int(affected)

	_, err = s.db.NewUpdate().Model((*catalogModel)(nil)).
		Set("count = count + ?", result.Written).
		Set("updated_at = ?", timeseries.FormatTimestamp(time.Now())).
		Set("first_ts = CASE WHEN count = 0 THEN ? ELSE LEAST(first_ts, ?) END",
			timeseries.FormatTimestamp(result.FirstTS), timeseries.FormatTimestamp(result.FirstTS)).
		Set("last_ts = GREATEST(last_ts, ?)", timeseries.FormatTimestamp(result.LastTS)).
		Where("location_id = ? AND parameter = ? AND qualifier = ?", batch.Key.LocationID, batch.Key.Parameter, batch.Key.Qualifier).
		Exec(ctx)
	if err != nil {
		return timeseries.WriteResult{}, domain.TemporaryFailuref(err, "update catalog counters for series %s", key)
	}

	for _, level := range rollupLevelNames {
		if err := s.enqueueDownsample(ctx, batch.Key, level, result.FirstTS, result.LastTS); err != nil {
			return timeseries.WriteResult{}, err
		}
	}

	return result, nil
}

// Query reads either raw rows or a persisted rollup table. It does not
// gap-fill: FillGaps and Interval are ignored and points are returned as
// stored.
func (s *PostgresStore) Query(ctx context.Context, q timeseries.Query) (timeseries.QueryResult, error) {
	if !q.Start.Before(q.End) {
		return timeseries.QueryResult{}, domain.Invalidf("query start (%v) must be before end (%v)", q.Start, q.End)
	}
	if q.Aggregation != nil && q.Function == "" {
		return timeseries.QueryResult{}, domain.Invalidf("aggregation level set without a function")
	}

	var points []timeseries.Point
	var err error
	if q.Aggregation != nil && q.Aggregation.Duration > 0 {
		points, err = s.queryRollup(ctx, q)
	} else {
		points, err = s.queryRaw(ctx, q)
	}
	if err != nil {
		return timeseries.QueryResult{}, err
	}

	return timeseries.QueryResult{Points: points}, nil
}

func (s *PostgresStore) queryRaw(ctx context.Context, q timeseries.Query) ([]timeseries.Point, error) {
	var rows []rawPointModel
	err := s.db.NewSelect().Model(&rows).
		Where("series_key = ?", q.Key.String()).
		Where("timestamp >= ?", timeseries.FormatTimestamp(q.Start)).
		Where("timestamp < ?", timeseries.FormatTimestamp(q.End)).
		OrderExpr("timestamp ASC").
		Scan(ctx)
	if err != nil {
		return nil, domain.TemporaryFailuref(err, "query raw points for series %s", q.Key)
	}
	out := make([]timeseries.Point, 0, len(rows))
	for _, r := range rows {
		ts, parseErr := timeseries.ParseTimestamp(r.Timestamp)
		if parseErr != nil {
			continue
		}
		out = append(out, timeseries.Point{Timestamp: ts, Value: r.Value, Quality: timeseries.Quality(r.Quality)})
	}
	return out, nil
}

func (s *PostgresStore) queryRollup(ctx context.Context, q timeseries.Query) ([]timeseries.Point, error) {
	var rows []rollupModel
	err := s.db.NewSelect().Model(&rows).
		ModelTableExpr(rollupTableName(q.Aggregation.Name)).
		Where("series_key = ?", q.Key.String()).
		Where("bucket_ts >= ?", timeseries.FormatTimestamp(q.Start)).
		Where("bucket_ts < ?", timeseries.FormatTimestamp(q.End)).
		OrderExpr("bucket_ts ASC").
		Scan(ctx)
	if err != nil {
		return nil, domain.TemporaryFailuref(err, "query rollup %s for series %s", q.Aggregation.Name, q.Key)
	}
	out := make([]timeseries.Point, 0, len(rows))
	for _, r := range rows {
		ts, parseErr := timeseries.ParseTimestamp(r.BucketTS)
		if parseErr != nil {
			continue
		}
		out = append(out, timeseries.Point{Timestamp: ts, Value: r.valueFor(q.Function), Quality: timeseries.QualityGood})
	}
	return out, nil
}

// GetMetadata looks up one catalog entry.
func (s *PostgresStore) GetMetadata(ctx context.Context, key timeseries.SeriesKey) (timeseries.CatalogEntry, error) {
	model := new(catalogModel)
	err := s.db.NewSelect().Model(model).
		Where("location_id = ? AND parameter = ? AND qualifier = ?", key.LocationID, key.Parameter, key.Qualifier).
		Scan(ctx)
	if err != nil {
		return timeseries.CatalogEntry{}, domain.NotFoundf("series %s not found", key)
	}
	return model.toDomain()
}

// ListSeries lists catalog entries, optionally filtered by source type.
// Rows that fail to deserialize are skipped rather than failing the
// whole listing.
func (s *PostgresStore) ListSeries(ctx context.Context, sourceType string, limit int) ([]timeseries.CatalogEntry, error) {
	var models []catalogModel
	query := s.db.NewSelect().Model(&models)
	if sourceType != "" {
		query = query.Where("source_type = ?", sourceType)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Scan(ctx); err != nil {
		return nil, domain.TemporaryFailuref(err, "list series")
	}

	out := make([]timeseries.CatalogEntry, 0, len(models))
	for _, m := range models {
		entry, err := m.toDomain()
		if err != nil {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

// Sweep deletes raw rows older than each series' retention cutoff,
// re-bases the catalog first_ts to the oldest remaining raw row, and
// deletes rollup rows whose bucket end falls before the cutoff.
func (s *PostgresStore) Sweep(ctx context.Context, now time.Time) error {
	var models []catalogModel
	if err := s.db.NewSelect().Model(&models).Where("retention_days > 0").Scan(ctx); err != nil {
		return domain.TemporaryFailuref(err, "sweep: list retained series")
	}

	for _, m := range models {
		cutoff := now.AddDate(0, 0, -m.RetentionDays)
		key := timeseries.SeriesKey{LocationID: m.LocationID, Parameter: m.Parameter, Qualifier: m.Qualifier}.String()

		if _, err := s.db.NewDelete().Model((*rawPointModel)(nil)).
			Where("series_key = ? AND timestamp < ?", key, timeseries.FormatTimestamp(cutoff)).
			Exec(ctx); err != nil {
			return domain.TemporaryFailuref(err, "sweep raw rows for %s", key)
		}
		if _, err := s.db.NewUpdate().Model((*catalogModel)(nil)).
			Set("first_ts = COALESCE((SELECT MIN(timestamp) FROM timeseries_data_raw WHERE series_key = ?), first_ts)", key).
			Where("location_id = ? AND parameter = ? AND qualifier = ?", m.LocationID, m.Parameter, m.Qualifier).
			Exec(ctx); err != nil {
			return domain.TemporaryFailuref(err, "sweep: re-base first_ts for %s", key)
		}
		for _, level := range rollupLevelNames {
			var width time.Duration
			for _, l := range timeseries.Levels {
				if l.Name == level {
					width = l.Duration
				}
			}
			if _, err := s.db.NewDelete().Model((*rollupModel)(nil)).
				ModelTableExpr(rollupTableName(level)).
				Where("series_key = ? AND bucket_ts < ?", key, timeseries.FormatTimestamp(cutoff.Add(-width))).
				Exec(ctx); err != nil {
				return domain.TemporaryFailuref(err, "sweep %s rollup rows for %s", level, key)
			}
		}
	}
	return nil
}

var _ timeseries.Store = (*PostgresStore)(nil)

// --- rollups ---

type rollupModel struct {
	bun.BaseModel `bun:"table:timeseries_data_1h,alias:ru"`

	SeriesKey string  `bun:"series_key,pk"`
	BucketTS  string  `bun:"bucket_ts,pk"`
	Avg       float64 `bun:"avg"`
	Min       float64 `bun:"min"`
	Max       float64 `bun:"max"`
	Sum       float64 `bun:"sum"`
	Count     int64   `bun:"count"`
	First     float64 `bun:"first"`
	Last      float64 `bun:"last"`
	FirstTS   string  `bun:"first_ts"`
	LastTS    string  `bun:"last_ts"`
}

func (r rollupModel) valueFor(fn timeseries.AggFunc) float64 {
	switch fn {
	case timeseries.AggMin:
		return r.Min
	case timeseries.AggMax:
		return r.Max
	case timeseries.AggSum:
		return r.Sum
	case timeseries.AggCount:
		return float64(r.Count)
	case timeseries.AggFirst:
		return r.First
	case timeseries.AggLast:
		return r.Last
	default:
		return r.Avg
	}
}

// --- downsample queue ---

type downsampleQueueModel struct {
	bun.BaseModel `bun:"table:timeseries_downsample_queue,alias:dq"`

	ID        string `bun:"id,pk"`
	SeriesKey string `bun:"series_key"`
	Level     string `bun:"level"`
	StartTS   string `bun:"start_ts"`
	EndTS     string `bun:"end_ts"`
	Status    string `bun:"status"`
	Priority  int    `bun:"priority"`
}

// downsampleTaskID hashes (series key, level, span) so repeated enqueues
// of the same span are idempotent, mirroring timeseries.taskID.
func downsampleTaskID(key timeseries.SeriesKey, level string, start, end time.Time) string {
	h := fnv.New64a()
	h.Write([]byte(key.String()))
	h.Write([]byte(level))
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[0:8], uint64(start.UnixNano()))
	binary.BigEndian.PutUint64(buf[8:16], uint64(end.UnixNano()))
	h.Write(buf[:])
	return hex.EncodeToString(h.Sum(nil))
}

func (s *PostgresStore) enqueueDownsample(ctx context.Context, key timeseries.SeriesKey, level string, start, end time.Time) error {
	id := downsampleTaskID(key, level, start, end)
	model := &downsampleQueueModel{
		ID:        id,
		SeriesKey: key.String(),
		Level:     level,
		StartTS:   timeseries.FormatTimestamp(start),
		EndTS:     timeseries.FormatTimestamp(end),
		Status:    "queued",
		Priority:  0,
	}
	_, err := s.db.NewInsert().Model(model).On("CONFLICT (id) DO NOTHING").Exec(ctx)
	if err != nil {
		return domain.TemporaryFailuref(err, "enqueue downsample task for series %s", key)
	}
	return nil
}

// NextQueuedDownsampleTask pops a queued task of the highest priority, if
// any, marking it running. Among tasks of equal priority the order is not
// defined.
func (s *PostgresStore) NextQueuedDownsampleTask(ctx context.Context) (*downsampleQueueModel, error) {
	model := new(downsampleQueueModel)
	err := s.db.NewSelect().Model(model).
		Where("status = ?", "queued").
		OrderExpr("priority DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, nil
	}
	_, err = s.db.NewUpdate().Model(model).
		Set("status = ?", "running").
		Where("id = ?", model.ID).
		Exec(ctx)
	if err != nil {
		return nil, domain.TemporaryFailuref(err, "mark downsample task %s running", model.ID)
	}
	return model, nil
}

// CompleteDownsampleTask marks a task done or failed.
func (s *PostgresStore) CompleteDownsampleTask(ctx context.Context, id string, succeeded bool) error {
	status := "done"
	if !succeeded {
		status = "failed"
	}
	_, err := s.db.NewUpdate().Model((*downsampleQueueModel)(nil)).
		Set("status = ?", status).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return domain.TemporaryFailuref(err, "complete downsample task %s", id)
	}
	return nil
}

// --- alert rules / alerts ---

type alertRuleModel struct {
	bun.BaseModel `bun:"table:alert_rules,alias:ar"`

	ID                string            `bun:"id,pk"`
	Name              string            `bun:"name"`
	Category          string            `bun:"category"`
	Severity          string            `bun:"severity"`
	Conditions        []alerts.Condition `bun:"conditions,type:jsonb"`
	Combinator        string            `bun:"combinator"`
	CooldownSeconds   int               `bun:"cooldown_seconds"`
	Enabled           bool              `bun:"enabled"`
	NotificationChans []string          `bun:"notification_chans,type:jsonb"`
	TitleTemplate     string            `bun:"title_template"`
	MessageTemplate   string            `bun:"message_template"`
	Metadata          map[string]string `bun:"metadata,type:jsonb"`
	CreatedAt         time.Time         `bun:"created_at"`
	UpdatedAt         time.Time         `bun:"updated_at"`
}

func newAlertRuleModel(r alerts.AlertRule) *alertRuleModel {
	return &alertRuleModel{
		ID:                r.ID,
		Name:              r.Name,
		Category:          r.Category,
		Severity:          string(r.Severity),
		Conditions:        r.Conditions,
		Combinator:        string(r.Combinator),
		CooldownSeconds:   r.CooldownSeconds,
		Enabled:           r.Enabled,
		NotificationChans: r.NotificationChans,
		TitleTemplate:     r.TitleTemplate,
		MessageTemplate:   r.MessageTemplate,
		Metadata:          r.Metadata,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

func (m *alertRuleModel) toDomain() alerts.AlertRule {
	return alerts.AlertRule{
		ID:                m.ID,
		Name:              m.Name,
		Category:          m.Category,
		Severity:          alerts.Severity(m.Severity),
		Conditions:        m.Conditions,
		Combinator:        alerts.Combinator(m.Combinator),
		CooldownSeconds:   m.CooldownSeconds,
		Enabled:           m.Enabled,
		NotificationChans: m.NotificationChans,
		TitleTemplate:     m.TitleTemplate,
		MessageTemplate:   m.MessageTemplate,
		Metadata:          m.Metadata,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

// SaveAlertRule upserts a rule row.
func (s *PostgresStore) SaveAlertRule(ctx context.Context, r alerts.AlertRule) error {
	model := newAlertRuleModel(r)
	_, err := s.db.NewInsert().Model(model).On("CONFLICT (id) DO UPDATE").Exec(ctx)
	if err != nil {
		return domain.TemporaryFailuref(err, "save alert rule %s", r.ID)
	}
	return nil
}

// GetAlertRule looks up a rule by id.
func (s *PostgresStore) GetAlertRule(ctx context.Context, id string) (alerts.AlertRule, error) {
	model := new(alertRuleModel)
	if err := s.db.NewSelect().Model(model).Where("id = ?", id).Scan(ctx); err != nil {
		return alerts.AlertRule{}, domain.NotFoundf("alert rule %s not found", id)
	}
	return model.toDomain(), nil
}

// ListAlertRules lists every rule.
func (s *PostgresStore) ListAlertRules(ctx context.Context) ([]alerts.AlertRule, error) {
	var models []alertRuleModel
	if err := s.db.NewSelect().Model(&models).Scan(ctx); err != nil {
		return nil, domain.TemporaryFailuref(err, "list alert rules")
	}
	out := make([]alerts.AlertRule, len(models))
	for i, m := range models {
		out[i] = m.toDomain()
	}
	return out, nil
}

// DeleteAlertRule removes a rule by id.
func (s *PostgresStore) DeleteAlertRule(ctx context.Context, id string) error {
	_, err := s.db.NewDelete().Model((*alertRuleModel)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return domain.TemporaryFailuref(err, "delete alert rule %s", id)
	}
	return nil
}

type alertModel struct {
	bun.BaseModel `bun:"table:alerts,alias:al"`

	ID                string    `bun:"id,pk"`
	RuleID            string    `bun:"rule_id"`
	RuleName          string    `bun:"rule_name"`
	Category          string    `bun:"category"`
	Severity          string    `bun:"severity"`
	Title             string    `bun:"title"`
	Message           string    `bun:"message"`
	AffectedResources []string  `bun:"affected_resources,type:jsonb"`
	Status            string    `bun:"status"`
	TriggeredAt       time.Time `bun:"triggered_at"`
	AcknowledgedAt    *time.Time `bun:"acknowledged_at"`
	AcknowledgedBy    string    `bun:"acknowledged_by"`
	ResolvedAt        *time.Time `bun:"resolved_at"`
	Context           []byte    `bun:"context,type:bytea"` // msgpack-encoded map[string]any
}

func newAlertModel(a alerts.Alert) (*alertModel, error) {
	packed, err := msgpack.Marshal(a.Context)
	if err != nil {
		return nil, fmt.Errorf("encode alert context: %w", err)
	}
	return &alertModel{
		ID:                a.ID,
		RuleID:            a.RuleID,
		RuleName:          a.RuleName,
		Category:          a.Category,
		Severity:          string(a.Severity),
		Title:             a.Title,
		Message:           a.Message,
		AffectedResources: a.AffectedResources,
		Status:            string(a.Status),
		TriggeredAt:       a.TriggeredAt,
		AcknowledgedAt:    a.AcknowledgedAt,
		AcknowledgedBy:    a.AcknowledgedBy,
		ResolvedAt:        a.ResolvedAt,
		Context:           packed,
	}, nil
}

func (m *alertModel) toDomain() (alerts.Alert, error) {
	var ctxVal map[string]any
	if len(m.Context) > 0 {
		if err := msgpack.Unmarshal(m.Context, &ctxVal); err != nil {
			return alerts.Alert{}, fmt.Errorf("decode alert context: %w", err)
		}
	}
	return alerts.Alert{
		ID:                m.ID,
		RuleID:            m.RuleID,
		RuleName:          m.RuleName,
		Category:          m.Category,
		Severity:          alerts.Severity(m.Severity),
		Title:             m.Title,
		Message:           m.Message,
		AffectedResources: m.AffectedResources,
		Status:            alerts.Status(m.Status),
		TriggeredAt:       m.TriggeredAt,
		AcknowledgedAt:    m.AcknowledgedAt,
		AcknowledgedBy:    m.AcknowledgedBy,
		ResolvedAt:        m.ResolvedAt,
		Context:           ctxVal,
	}, nil
}

// SaveAlert upserts an alert row, msgpack-encoding its context map.
func (s *PostgresStore) SaveAlert(ctx context.Context, a alerts.Alert) error {
	model, err := newAlertModel(a)
	if err != nil {
		return domain.Invalidf("alert %s: %v", a.ID, err)
	}
	_, err = s.db.NewInsert().Model(model).On("CONFLICT (id) DO UPDATE").Exec(ctx)
	if err != nil {
		return domain.TemporaryFailuref(err, "save alert %s", a.ID)
	}
	return nil
}

// GetAlert looks up an alert by id.
func (s *PostgresStore) GetAlert(ctx context.Context, id string) (alerts.Alert, error) {
	model := new(alertModel)
	if err := s.db.NewSelect().Model(model).Where("id = ?", id).Scan(ctx); err != nil {
		return alerts.Alert{}, domain.NotFoundf("alert %s not found", id)
	}
	return model.toDomain()
}

// ListAlerts lists alerts, optionally filtered by status.
func (s *PostgresStore) ListAlerts(ctx context.Context, status alerts.Status, limit int) ([]alerts.Alert, error) {
	var models []alertModel
	query := s.db.NewSelect().Model(&models)
	if status != "" {
		query = query.Where("status = ?", string(status))
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Scan(ctx); err != nil {
		return nil, domain.TemporaryFailuref(err, "list alerts")
	}
	out := make([]alerts.Alert, 0, len(models))
	for _, m := range models {
		a, err := m.toDomain()
		if err != nil {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// --- scenarios ---

type scenarioModel struct {
	bun.BaseModel `bun:"table:scenarios,alias:sc"`

	ID        string    `bun:"id,pk"`
	Name      string    `bun:"name"`
	CreatedAt time.Time `bun:"created_at"`
	Payload   []byte    `bun:"payload,type:jsonb"` // JSON-encoded scenario.Scenario
}

// SaveScenario upserts a scenario document by JSON-encoding its full
// payload into a single column, matching the persisted-state layout's
// "one row per scenario with JSON payload" shape.
func (s *PostgresStore) SaveScenario(ctx context.Context, sc scenario.Scenario) error {
	payload, err := json.Marshal(sc)
	if err != nil {
		return domain.Invalidf("scenario %s: %v", sc.ID, err)
	}
	model := &scenarioModel{ID: sc.ID, Name: sc.Name, CreatedAt: sc.CreatedAt, Payload: payload}
	_, err = s.db.NewInsert().Model(model).On("CONFLICT (id) DO UPDATE").Exec(ctx)
	if err != nil {
		return domain.TemporaryFailuref(err, "save scenario %s", sc.ID)
	}
	return nil
}

// GetScenario looks up a scenario by id.
func (s *PostgresStore) GetScenario(ctx context.Context, id string) (scenario.Scenario, error) {
	model := new(scenarioModel)
	if err := s.db.NewSelect().Model(model).Where("id = ?", id).Scan(ctx); err != nil {
		return scenario.Scenario{}, domain.NotFoundf("scenario %s not found", id)
	}
	var sc scenario.Scenario
	if err := json.Unmarshal(model.Payload, &sc); err != nil {
		return scenario.Scenario{}, fmt.Errorf("decode scenario %s: %w", id, err)
	}
	return sc, nil
}

// ListScenarios lists scenario summaries without decoding the payload.
func (s *PostgresStore) ListScenarios(ctx context.Context, limit int) ([]string, error) {
	var models []scenarioModel
	query := s.db.NewSelect().Model(&models).Column("id")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Scan(ctx); err != nil {
		return nil, domain.TemporaryFailuref(err, "list scenarios")
	}
	ids := make([]string, len(models))
	for i, m := range models {
		ids[i] = m.ID
	}
	return ids, nil
}
