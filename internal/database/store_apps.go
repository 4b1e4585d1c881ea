// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tianxiu2b2t/dashboard/internal/models"
)

const appInfoColumns = `app_id, alliance_app_id, name, pkg_name, dev_id,
	developer_name, dev_en_name, supplier, kind_id, kind_name, tag_name,
	kind_type_id, kind_type_name, icon_url, brief_desc, description,
	privacy_url, ctype, detail_id, app_level, jocat_id, iap, hms,
	tariff_type, packing_type, order_app, depend_gms, depend_hms,
	force_update, img_tag, is_pay, is_disciplined, is_shelves, submit_type,
	delete_archive, charging, button_grey, app_gift, free_days,
	pay_install_type, created_at, listed_at, comment, release_countries,
	main_device_codes`

// ResolveAppID maps a query to the stored app id, or "" when unknown.
func (db *DB) ResolveAppID(ctx context.Context, q models.AppQuery) (string, error) {
	start := time.Now()
	query := fmt.Sprintf(`SELECT app_id FROM app_info WHERE %s = ?`, q.DBField())

	var appID string
	err := db.conn.QueryRowContext(ctx, query, q.Value()).Scan(&appID)
	if errors.Is(err, sql.ErrNoRows) {
		observe("resolve", "app_info", start, nil)
		return "", nil
	}
	observe("resolve", "app_info", start, err)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", q, err)
	}
	return appID, nil
}

// AppExists reports whether the app identified by the query has been persisted.
func (db *DB) AppExists(ctx context.Context, q models.AppQuery) (bool, error) {
	appID, err := db.ResolveAppID(ctx, q)
	return appID != "", err
}

// LastRawPayload returns the most recent history payload for the app, or nil.
func (db *DB) LastRawPayload(ctx context.Context, q models.AppQuery) (json.RawMessage, error) {
	appID, err := db.ResolveAppID(ctx, q)
	if err != nil || appID == "" {
		return nil, err
	}

	start := time.Now()
	var raw string
	err = db.conn.QueryRowContext(ctx,
		`SELECT raw_json_data FROM app_data_history WHERE app_id = ? ORDER BY id DESC LIMIT 1`,
		appID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		observe("select", "app_data_history", start, nil)
		return nil, nil
	}
	observe("select", "app_data_history", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to read last history payload: %w", err)
	}
	return json.RawMessage(raw), nil
}

// LastAppInfo returns the current identity row, or nil when unknown.
func (db *DB) LastAppInfo(ctx context.Context, q models.AppQuery) (*models.AppInfo, error) {
	start := time.Now()
	query := fmt.Sprintf(`SELECT %s FROM app_info WHERE %s = ?`, appInfoColumns, q.DBField())

	info, err := scanAppInfo(db.conn.QueryRowContext(ctx, query, q.Value()))
	observe("select", "app_info", start, err)
	return info, err
}

// UpsertAppInfo writes the identity row, replacing any existing row for
// the same app id.
func (db *DB) UpsertAppInfo(ctx context.Context, info *models.AppInfo) error {
	start := time.Now()

	countries, err := json.Marshal(info.ReleaseCountries)
	if err != nil {
		return fmt.Errorf("failed to encode release countries: %w", err)
	}
	devices, err := json.Marshal(info.MainDeviceCodes)
	if err != nil {
		return fmt.Errorf("failed to encode device codes: %w", err)
	}

	query := fmt.Sprintf(`INSERT INTO app_info (%s)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
		        ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
		        ?, ?, ?, ?, ?)
		ON CONFLICT (app_id) DO UPDATE SET
			alliance_app_id = excluded.alliance_app_id,
			name = excluded.name,
			pkg_name = excluded.pkg_name,
			dev_id = excluded.dev_id,
			developer_name = excluded.developer_name,
			dev_en_name = excluded.dev_en_name,
			supplier = excluded.supplier,
			kind_id = excluded.kind_id,
			kind_name = excluded.kind_name,
			tag_name = excluded.tag_name,
			kind_type_id = excluded.kind_type_id,
			kind_type_name = excluded.kind_type_name,
			icon_url = excluded.icon_url,
			brief_desc = excluded.brief_desc,
			description = excluded.description,
			privacy_url = excluded.privacy_url,
			ctype = excluded.ctype,
			detail_id = excluded.detail_id,
			app_level = excluded.app_level,
			jocat_id = excluded.jocat_id,
			iap = excluded.iap,
			hms = excluded.hms,
			tariff_type = excluded.tariff_type,
			packing_type = excluded.packing_type,
			order_app = excluded.order_app,
			depend_gms = excluded.depend_gms,
			depend_hms = excluded.depend_hms,
			force_update = excluded.force_update,
			img_tag = excluded.img_tag,
			is_pay = excluded.is_pay,
			is_disciplined = excluded.is_disciplined,
			is_shelves = excluded.is_shelves,
			submit_type = excluded.submit_type,
			delete_archive = excluded.delete_archive,
			charging = excluded.charging,
			button_grey = excluded.button_grey,
			app_gift = excluded.app_gift,
			free_days = excluded.free_days,
			pay_install_type = excluded.pay_install_type,
			created_at = excluded.created_at,
			listed_at = excluded.listed_at,
			comment = excluded.comment,
			release_countries = excluded.release_countries,
			main_device_codes = excluded.main_device_codes`, appInfoColumns)

	_, err = db.conn.ExecContext(ctx, query,
		info.AppID, info.AllianceAppID, info.Name, info.PkgName, info.DevID,
		info.DeveloperName, info.DevEnName, info.Supplier, info.KindID, info.KindName, info.TagName,
		info.KindTypeID, info.KindTypeName, info.IconURL, info.BriefDesc, info.Description,
		info.PrivacyURL, info.Ctype, info.DetailID, info.AppLevel, info.JocatID, info.IAP, info.HMS,
		info.TariffType, info.PackingType, info.OrderApp, info.DependGMS, info.DependHMS,
		info.ForceUpdate, info.ImgTag, info.IsPay, info.IsDisciplined, info.IsShelves, info.SubmitType,
		info.DeleteArchive, info.Charging, info.ButtonGrey, info.AppGift, info.FreeDays,
		info.PayInstallType, info.CreatedAt, info.ListedAt, rawToNullString(info.Comment),
		string(countries), string(devices),
	)
	observe("upsert", "app_info", start, err)
	if err != nil {
		return fmt.Errorf("failed to upsert app info: %w", err)
	}
	return nil
}

// LastMetrics returns the most recent metrics row, or nil.
func (db *DB) LastMetrics(ctx context.Context, q models.AppQuery) (*models.AppMetrics, error) {
	appID, err := db.ResolveAppID(ctx, q)
	if err != nil || appID == "" {
		return nil, err
	}

	start := time.Now()
	m := &models.AppMetrics{}
	err = db.conn.QueryRowContext(ctx,
		`SELECT id, app_id, version, version_code, size_bytes, sha256,
			info_score, info_rate_count, download_count, price, release_date,
			new_features, upgrade_msg, target_sdk, minsdk, compile_sdk_version,
			min_hmos_api_level, api_release_type, created_at
		FROM app_metrics WHERE app_id = ? ORDER BY id DESC LIMIT 1`, appID).
		Scan(&m.ID, &m.AppID, &m.Version, &m.VersionCode, &m.SizeBytes, &m.SHA256,
			&m.InfoScore, &m.InfoRateCount, &m.DownloadCount, &m.Price, &m.ReleaseDate,
			&m.NewFeatures, &m.UpgradeMsg, &m.TargetSDK, &m.MinSDK, &m.CompileSDKVersion,
			&m.MinHmosAPILevel, &m.APIReleaseType, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		observe("select", "app_metrics", start, nil)
		return nil, nil
	}
	observe("select", "app_metrics", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to read last metrics: %w", err)
	}
	return m, nil
}

// InsertMetrics appends one measurement row.
func (db *DB) InsertMetrics(ctx context.Context, m *models.AppMetrics) error {
	start := time.Now()
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO app_metrics (app_id, version, version_code, size_bytes,
			sha256, info_score, info_rate_count, download_count, price,
			release_date, new_features, upgrade_msg, target_sdk, minsdk,
			compile_sdk_version, min_hmos_api_level, api_release_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.AppID, m.Version, m.VersionCode, m.SizeBytes,
		m.SHA256, m.InfoScore, m.InfoRateCount, m.DownloadCount, m.Price,
		m.ReleaseDate, m.NewFeatures, m.UpgradeMsg, m.TargetSDK, m.MinSDK,
		m.CompileSDKVersion, m.MinHmosAPILevel, m.APIReleaseType, m.CreatedAt,
	)
	observe("insert", "app_metrics", start, err)
	if err != nil {
		return fmt.Errorf("failed to insert metrics: %w", err)
	}
	return nil
}

// LastRating returns the most recent rating row, or nil.
func (db *DB) LastRating(ctx context.Context, q models.AppQuery) (*models.AppRating, error) {
	appID, err := db.ResolveAppID(ctx, q)
	if err != nil || appID == "" {
		return nil, err
	}

	start := time.Now()
	r := &models.AppRating{}
	err = db.conn.QueryRowContext(ctx,
		`SELECT id, app_id, pkg_name, average_rating, star_1_rating_count,
			star_2_rating_count, star_3_rating_count, star_4_rating_count,
			star_5_rating_count, my_star_rating, total_star_rating_count,
			only_star_count, full_average_rating, source_type, created_at
		FROM app_rating WHERE app_id = ? ORDER BY id DESC LIMIT 1`, appID).
		Scan(&r.ID, &r.AppID, &r.PkgName, &r.AverageRating, &r.Star1RatingCount,
			&r.Star2RatingCount, &r.Star3RatingCount, &r.Star4RatingCount,
			&r.Star5RatingCount, &r.MyStarRating, &r.TotalStarRatingCount,
			&r.OnlyStarCount, &r.FullAverageRating, &r.SourceType, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		observe("select", "app_rating", start, nil)
		return nil, nil
	}
	observe("select", "app_rating", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to read last rating: %w", err)
	}
	return r, nil
}

// InsertRating appends one star-distribution row.
func (db *DB) InsertRating(ctx context.Context, r *models.AppRating) error {
	start := time.Now()
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO app_rating (app_id, pkg_name, average_rating,
			star_1_rating_count, star_2_rating_count, star_3_rating_count,
			star_4_rating_count, star_5_rating_count, my_star_rating,
			total_star_rating_count, only_star_count, full_average_rating,
			source_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.AppID, r.PkgName, r.AverageRating,
		r.Star1RatingCount, r.Star2RatingCount, r.Star3RatingCount,
		r.Star4RatingCount, r.Star5RatingCount, r.MyStarRating,
		r.TotalStarRatingCount, r.OnlyStarCount, r.FullAverageRating,
		r.SourceType, r.CreatedAt,
	)
	observe("insert", "app_rating", start, err)
	if err != nil {
		return fmt.Errorf("failed to insert rating: %w", err)
	}
	return nil
}

// UpsertRecord writes the filing information row for an app.
func (db *DB) UpsertRecord(ctx context.Context, r *models.AppRecord) error {
	start := time.Now()
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO app_record (app_id, title, app_recordal_info,
			recordal_entity_title, recordal_entity_name)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (app_id) DO UPDATE SET
			title = excluded.title,
			app_recordal_info = excluded.app_recordal_info,
			recordal_entity_title = excluded.recordal_entity_title,
			recordal_entity_name = excluded.recordal_entity_name`,
		r.AppID, r.Title, r.AppRecordalInfo, r.RecordalEntityTitle, r.RecordalEntityName,
	)
	observe("upsert", "app_record", start, err)
	if err != nil {
		return fmt.Errorf("failed to upsert record: %w", err)
	}
	return nil
}

// AppendHistory appends one raw-payload history entry.
func (db *DB) AppendHistory(ctx context.Context, h *models.AppHistory) error {
	start := time.Now()
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO app_data_history (app_id, pkg_name, raw_json_data, created_at)
		VALUES (?, ?, ?, ?)`,
		h.AppID, h.PkgName, string(h.RawJSON), h.CreatedAt,
	)
	observe("insert", "app_data_history", start, err)
	if err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

// FullAppInfo joins the current identity row with its latest metrics,
// rating and filing rows. Returns nil when the app is unknown.
func (db *DB) FullAppInfo(ctx context.Context, q models.AppQuery) (*models.FullAppInfo, error) {
	info, err := db.LastAppInfo(ctx, q)
	if err != nil || info == nil {
		return nil, err
	}

	byID := models.ByAppID(info.AppID)
	full := &models.FullAppInfo{AppInfo: *info, UpdatedAt: info.CreatedAt}

	m, err := db.LastMetrics(ctx, byID)
	if err != nil {
		return nil, err
	}
	if m != nil {
		full.Version = m.Version
		full.VersionCode = m.VersionCode
		full.SizeBytes = m.SizeBytes
		full.SHA256 = m.SHA256
		full.InfoScore = m.InfoScore
		full.InfoRateCount = m.InfoRateCount
		full.DownloadCount = m.DownloadCount
		full.Price = m.Price
		full.ReleaseDate = m.ReleaseDate
		full.NewFeatures = m.NewFeatures
		full.UpgradeMsg = m.UpgradeMsg
		full.TargetSDK = m.TargetSDK
		full.MinSDK = m.MinSDK
		full.CompileSDKVersion = m.CompileSDKVersion
		full.MinHmosAPILevel = m.MinHmosAPILevel
		full.APIReleaseType = m.APIReleaseType
		full.MetricsCreatedAt = m.CreatedAt
		full.UpdatedAt = m.CreatedAt
	}

	r, err := db.LastRating(ctx, byID)
	if err != nil {
		return nil, err
	}
	if r != nil {
		full.AverageRating = &r.AverageRating
		full.Star1RatingCount = &r.Star1RatingCount
		full.Star2RatingCount = &r.Star2RatingCount
		full.Star3RatingCount = &r.Star3RatingCount
		full.Star4RatingCount = &r.Star4RatingCount
		full.Star5RatingCount = &r.Star5RatingCount
		full.MyStarRating = &r.MyStarRating
		full.TotalStarRatingCount = &r.TotalStarRatingCount
		full.OnlyStarCount = &r.OnlyStarCount
		full.FullAverageRating = &r.FullAverageRating
		full.SourceType = &r.SourceType
		full.RatingCreatedAt = &r.CreatedAt
	}

	rec, err := db.appRecord(ctx, info.AppID)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		full.Title = &rec.Title
		full.AppRecordalInfo = &rec.AppRecordalInfo
		full.RecordalEntityTitle = &rec.RecordalEntityTitle
		full.RecordalEntityName = &rec.RecordalEntityName
	}

	return full, nil
}

func (db *DB) appRecord(ctx context.Context, appID string) (*models.AppRecord, error) {
	start := time.Now()
	r := &models.AppRecord{}
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, app_id, title, app_recordal_info, recordal_entity_title,
			recordal_entity_name
		FROM app_record WHERE app_id = ?`, appID).
		Scan(&r.ID, &r.AppID, &r.Title, &r.AppRecordalInfo,
			&r.RecordalEntityTitle, &r.RecordalEntityName)
	if errors.Is(err, sql.ErrNoRows) {
		observe("select", "app_record", start, nil)
		return nil, nil
	}
	observe("select", "app_record", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to read record: %w", err)
	}
	return r, nil
}

// AllPackageNames lists every package name ever persisted.
func (db *DB) AllPackageNames(ctx context.Context) ([]string, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `SELECT pkg_name FROM app_info ORDER BY pkg_name`)
	observe("select", "app_info", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list package names: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan package name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating package names: %w", err)
	}
	return names, nil
}

// ListApps returns one page of the list-view projection, filtered by a
// case-insensitive search over name and package name, plus the total
// match count for pagination.
func (db *DB) ListApps(ctx context.Context, search string, limit, offset int) ([]models.ShortAppInfo, int, error) {
	start := time.Now()

	where := ""
	args := []any{}
	if search != "" {
		where = ` WHERE name ILIKE ? OR pkg_name ILIKE ?`
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern)
	}

	var total int
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM app_info`+where, args...).Scan(&total)
	if err != nil {
		observe("select", "app_info", start, err)
		return nil, 0, fmt.Errorf("failed to count apps: %w", err)
	}

	query := `SELECT app_id, name, pkg_name, icon_url, created_at FROM app_info` +
		where + ` ORDER BY created_at DESC, app_id LIMIT ? OFFSET ?`
	rows, err := db.conn.QueryContext(ctx, query, append(args, limit, offset)...)
	observe("select", "app_info", start, err)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list apps: %w", err)
	}
	defer rows.Close()

	apps := make([]models.ShortAppInfo, 0, limit)
	for rows.Next() {
		var a models.ShortAppInfo
		if err := rows.Scan(&a.AppID, &a.Name, &a.PkgName, &a.IconURL, &a.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan app: %w", err)
		}
		apps = append(apps, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating apps: %w", err)
	}
	return apps, total, nil
}

// AppHistoryPayloads returns the newest raw payloads for an app, most
// recent first.
func (db *DB) AppHistoryPayloads(ctx context.Context, q models.AppQuery, limit int) ([]models.AppHistory, error) {
	appID, err := db.ResolveAppID(ctx, q)
	if err != nil || appID == "" {
		return nil, err
	}

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, app_id, pkg_name, raw_json_data, created_at
		FROM app_data_history WHERE app_id = ? ORDER BY id DESC LIMIT ?`,
		appID, limit)
	observe("select", "app_data_history", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	entries := make([]models.AppHistory, 0, limit)
	for rows.Next() {
		var h models.AppHistory
		var raw string
		if err := rows.Scan(&h.ID, &h.AppID, &h.PkgName, &raw, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		h.RawJSON = json.RawMessage(raw)
		entries = append(entries, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}
	return entries, nil
}

// scanAppInfo scans one identity row. A missing row maps to (nil, nil).
func scanAppInfo(row *sql.Row) (*models.AppInfo, error) {
	info := &models.AppInfo{}
	var tagName, comment sql.NullString
	var countries, devices string

	err := row.Scan(
		&info.AppID, &info.AllianceAppID, &info.Name, &info.PkgName, &info.DevID,
		&info.DeveloperName, &info.DevEnName, &info.Supplier, &info.KindID, &info.KindName, &tagName,
		&info.KindTypeID, &info.KindTypeName, &info.IconURL, &info.BriefDesc, &info.Description,
		&info.PrivacyURL, &info.Ctype, &info.DetailID, &info.AppLevel, &info.JocatID, &info.IAP, &info.HMS,
		&info.TariffType, &info.PackingType, &info.OrderApp, &info.DependGMS, &info.DependHMS,
		&info.ForceUpdate, &info.ImgTag, &info.IsPay, &info.IsDisciplined, &info.IsShelves, &info.SubmitType,
		&info.DeleteArchive, &info.Charging, &info.ButtonGrey, &info.AppGift, &info.FreeDays,
		&info.PayInstallType, &info.CreatedAt, &info.ListedAt, &comment, &countries, &devices,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan app info: %w", err)
	}

	if tagName.Valid {
		info.TagName = &tagName.String
	}
	if comment.Valid {
		info.Comment = json.RawMessage(comment.String)
	}
	if err := json.Unmarshal([]byte(countries), &info.ReleaseCountries); err != nil {
		return nil, fmt.Errorf("failed to decode release countries: %w", err)
	}
	if err := json.Unmarshal([]byte(devices), &info.MainDeviceCodes); err != nil {
		return nil, fmt.Errorf("failed to decode device codes: %w", err)
	}
	return info, nil
}

// rawToNullString maps empty JSON to NULL so comment-less rows round-trip
// as nil instead of "".
func rawToNullString(raw json.RawMessage) sql.NullString {
	if len(raw) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(raw), Valid: true}
}
