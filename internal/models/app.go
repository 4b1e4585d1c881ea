// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

package models

import (
	"strconv"
	"time"

	json "github.com/goccy/go-json"
)

// AppInfo is the slowly-changing identity row for one app. Audit fields
// (CreatedAt, ListedAt, Comment) are owned by the store and carried forward
// on update rather than derived from upstream.
type AppInfo struct {
	AppID            string          `json:"app_id"`
	AllianceAppID    string          `json:"alliance_app_id"`
	Name             string          `json:"name"`
	PkgName          string          `json:"pkg_name"`
	DevID            string          `json:"dev_id"`
	DeveloperName    string          `json:"developer_name"`
	DevEnName        string          `json:"dev_en_name"`
	Supplier         string          `json:"supplier"`
	KindID           int             `json:"kind_id"`
	KindName         string          `json:"kind_name"`
	TagName          *string         `json:"tag_name"`
	KindTypeID       int             `json:"kind_type_id"`
	KindTypeName     string          `json:"kind_type_name"`
	IconURL          string          `json:"icon_url"`
	BriefDesc        string          `json:"brief_desc"`
	Description      string          `json:"description"`
	PrivacyURL       string          `json:"privacy_url"`
	Ctype            int             `json:"ctype"`
	DetailID         string          `json:"detail_id"`
	AppLevel         int             `json:"app_level"`
	JocatID          int             `json:"jocat_id"`
	IAP              bool            `json:"iap"`
	HMS              bool            `json:"hms"`
	TariffType       string          `json:"tariff_type"`
	PackingType      int             `json:"packing_type"`
	OrderApp         bool            `json:"order_app"`
	DependGMS        bool            `json:"denpend_gms"`
	DependHMS        bool            `json:"denpend_hms"`
	ForceUpdate      bool            `json:"force_update"`
	ImgTag           string          `json:"img_tag"`
	IsPay            bool            `json:"is_pay"`
	IsDisciplined    bool            `json:"is_disciplined"`
	IsShelves        bool            `json:"is_shelves"`
	SubmitType       int             `json:"submit_type"`
	DeleteArchive    bool            `json:"delete_archive"`
	Charging         bool            `json:"charging"`
	ButtonGrey       bool            `json:"button_grey"`
	AppGift          bool            `json:"app_gift"`
	FreeDays         int             `json:"free_days"`
	PayInstallType   int             `json:"pay_install_type"`
	CreatedAt        time.Time       `json:"created_at"`
	ListedAt         time.Time       `json:"listed_at"`
	Comment          json.RawMessage `json:"comment"`
	ReleaseCountries []string        `json:"release_countries"`
	MainDeviceCodes  []string        `json:"main_device_codes"`
}

// AppInfoFromRaw builds the identity row from a raw payload. All string
// fields pass the sanitizer; audit fields start at now().
func AppInfoFromRaw(raw *RawApp) AppInfo {
	now := time.Now()
	return AppInfo{
		AppID:            Sanitize(raw.AppID),
		AllianceAppID:    Sanitize(raw.AllianceAppID),
		Name:             Sanitize(raw.Name),
		PkgName:          Sanitize(raw.PkgName),
		DevID:            Sanitize(raw.DevID),
		DeveloperName:    Sanitize(raw.DeveloperName),
		DevEnName:        Sanitize(raw.DevEnName),
		Supplier:         Sanitize(raw.Supplier),
		KindID:           atoiDefault(raw.KindID, 0),
		KindName:         Sanitize(raw.KindName),
		TagName:          sanitizePtr(raw.TagName),
		KindTypeID:       atoiDefault(raw.KindTypeID, 0),
		KindTypeName:     Sanitize(raw.KindTypeName),
		IconURL:          Sanitize(raw.IconURL),
		BriefDesc:        Sanitize(raw.BriefDesc),
		Description:      Sanitize(raw.Description),
		PrivacyURL:       Sanitize(raw.PrivacyURL),
		Ctype:            raw.Ctype,
		DetailID:         Sanitize(raw.DetailID),
		AppLevel:         raw.AppLevel,
		JocatID:          raw.JocatID,
		IAP:              raw.IAP != 0,
		HMS:              raw.HMS != 0,
		TariffType:       Sanitize(raw.TariffType),
		PackingType:      raw.PackingType,
		OrderApp:         raw.OrderApp,
		DependGMS:        raw.DependGMS != 0,
		DependHMS:        raw.DependHMS != 0,
		ForceUpdate:      raw.ForceUpdate != 0,
		ImgTag:           Sanitize(raw.ImgTag),
		IsPay:            raw.IsPay == "1",
		IsDisciplined:    raw.IsDisciplined != 0,
		IsShelves:        raw.IsShelves != 0,
		SubmitType:       raw.SubmitType,
		DeleteArchive:    raw.DeleteArchive != 0,
		Charging:         raw.Charging != 0,
		ButtonGrey:       raw.ButtonGrey != 0,
		AppGift:          raw.AppGift != 0,
		FreeDays:         raw.FreeDays,
		PayInstallType:   raw.PayInstallType,
		CreatedAt:        now,
		ListedAt:         now,
		Comment:          nil,
		ReleaseCountries: append([]string(nil), raw.ReleaseCountries...),
		MainDeviceCodes:  append([]string(nil), raw.MainDeviceCodes...),
	}
}

// CarryForward copies the store-owned audit fields from the previously
// persisted row so a field-wise comparison sees only upstream changes.
func (a *AppInfo) CarryForward(prev *AppInfo) {
	a.CreatedAt = prev.CreatedAt
	a.ListedAt = prev.ListedAt
	a.Comment = prev.Comment
}

// Equal compares two identity rows field by field. Audit fields participate,
// which is why CarryForward must run first.
func (a *AppInfo) Equal(other *AppInfo) bool {
	if a.AppID != other.AppID ||
		a.AllianceAppID != other.AllianceAppID ||
		a.Name != other.Name ||
		a.PkgName != other.PkgName ||
		a.DevID != other.DevID ||
		a.DeveloperName != other.DeveloperName ||
		a.DevEnName != other.DevEnName ||
		a.Supplier != other.Supplier ||
		a.KindID != other.KindID ||
		a.KindName != other.KindName ||
		!strPtrEqual(a.TagName, other.TagName) ||
		a.KindTypeID != other.KindTypeID ||
		a.KindTypeName != other.KindTypeName ||
		a.IconURL != other.IconURL ||
		a.BriefDesc != other.BriefDesc ||
		a.Description != other.Description ||
		a.PrivacyURL != other.PrivacyURL ||
		a.Ctype != other.Ctype ||
		a.DetailID != other.DetailID ||
		a.AppLevel != other.AppLevel ||
		a.JocatID != other.JocatID {
		return false
	}
	if a.IAP != other.IAP ||
		a.HMS != other.HMS ||
		a.TariffType != other.TariffType ||
		a.PackingType != other.PackingType ||
		a.OrderApp != other.OrderApp ||
		a.DependGMS != other.DependGMS ||
		a.DependHMS != other.DependHMS ||
		a.ForceUpdate != other.ForceUpdate ||
		a.ImgTag != other.ImgTag ||
		a.IsPay != other.IsPay ||
		a.IsDisciplined != other.IsDisciplined ||
		a.IsShelves != other.IsShelves ||
		a.SubmitType != other.SubmitType ||
		a.DeleteArchive != other.DeleteArchive ||
		a.Charging != other.Charging ||
		a.ButtonGrey != other.ButtonGrey ||
		a.AppGift != other.AppGift ||
		a.FreeDays != other.FreeDays ||
		a.PayInstallType != other.PayInstallType {
		return false
	}
	return a.CreatedAt.Equal(other.CreatedAt) &&
		a.ListedAt.Equal(other.ListedAt) &&
		string(a.Comment) == string(other.Comment) &&
		strSliceEqual(a.ReleaseCountries, other.ReleaseCountries) &&
		strSliceEqual(a.MainDeviceCodes, other.MainDeviceCodes)
}

// AppMetrics is the fast-moving measurement row for one app version.
type AppMetrics struct {
	ID                int64     `json:"id"`
	AppID             string    `json:"app_id"`
	Version           string    `json:"version"`
	VersionCode       int64     `json:"version_code"`
	SizeBytes         int64     `json:"size_bytes"`
	SHA256            string    `json:"sha256"`
	InfoScore         float64   `json:"info_score"`
	InfoRateCount     int64     `json:"info_rate_count"`
	DownloadCount     int64     `json:"download_count"`
	Price             float64   `json:"price"`
	ReleaseDate       int64     `json:"release_date"`
	NewFeatures       string    `json:"new_features"`
	UpgradeMsg        string    `json:"upgrade_msg"`
	TargetSDK         int       `json:"target_sdk"`
	MinSDK            int       `json:"minsdk"`
	CompileSDKVersion int       `json:"compile_sdk_version"`
	MinHmosAPILevel   int       `json:"min_hmos_api_level"`
	APIReleaseType    string    `json:"api_release_type"`
	CreatedAt         time.Time `json:"created_at"`
}

// AppMetricsFromRaw builds the metrics row from a raw payload.
func AppMetricsFromRaw(raw *RawApp) AppMetrics {
	return AppMetrics{
		AppID:             raw.AppID,
		Version:           Sanitize(raw.Version),
		VersionCode:       raw.VersionCode,
		SizeBytes:         raw.SizeBytes,
		SHA256:            Sanitize(raw.SHA256),
		InfoScore:         atofDefault(raw.HotScore, 0),
		InfoRateCount:     atoi64Default(raw.RateNum, 0),
		DownloadCount:     atoi64Default(raw.DownloadCount, 0),
		Price:             atofDefault(raw.Price, 0),
		ReleaseDate:       raw.ReleaseDate,
		NewFeatures:       Sanitize(raw.NewFeatures),
		UpgradeMsg:        Sanitize(raw.UpgradeMsg),
		TargetSDK:         atoiDefault(raw.TargetSDK, 0),
		MinSDK:            atoiDefault(raw.MinSDK, 0),
		CompileSDKVersion: raw.CompileSDKVersion,
		MinHmosAPILevel:   raw.MinHmosAPILevel,
		APIReleaseType:    Sanitize(raw.APIReleaseType),
		CreatedAt:         time.Now(),
	}
}

// CarryForward copies the row identity from the previously persisted row.
func (m *AppMetrics) CarryForward(prev *AppMetrics) {
	m.ID = prev.ID
	m.CreatedAt = prev.CreatedAt
}

// Equal compares two metrics rows field by field.
func (m *AppMetrics) Equal(other *AppMetrics) bool {
	return m.ID == other.ID &&
		m.AppID == other.AppID &&
		m.Version == other.Version &&
		m.VersionCode == other.VersionCode &&
		m.SizeBytes == other.SizeBytes &&
		m.SHA256 == other.SHA256 &&
		m.InfoScore == other.InfoScore &&
		m.InfoRateCount == other.InfoRateCount &&
		m.DownloadCount == other.DownloadCount &&
		m.Price == other.Price &&
		m.ReleaseDate == other.ReleaseDate &&
		m.NewFeatures == other.NewFeatures &&
		m.UpgradeMsg == other.UpgradeMsg &&
		m.TargetSDK == other.TargetSDK &&
		m.MinSDK == other.MinSDK &&
		m.CompileSDKVersion == other.CompileSDKVersion &&
		m.MinHmosAPILevel == other.MinHmosAPILevel &&
		m.APIReleaseType == other.APIReleaseType &&
		m.CreatedAt.Equal(other.CreatedAt)
}

// AppRating is the star-distribution row from the detail page.
type AppRating struct {
	ID                   int64     `json:"id"`
	AppID                string    `json:"app_id"`
	PkgName              string    `json:"pkg_name"`
	AverageRating        float64   `json:"average_rating"`
	Star1RatingCount     int       `json:"star_1_rating_count"`
	Star2RatingCount     int       `json:"star_2_rating_count"`
	Star3RatingCount     int       `json:"star_3_rating_count"`
	Star4RatingCount     int       `json:"star_4_rating_count"`
	Star5RatingCount     int       `json:"star_5_rating_count"`
	MyStarRating         int       `json:"my_star_rating"`
	TotalStarRatingCount int       `json:"total_star_rating_count"`
	OnlyStarCount        int       `json:"only_star_count"`
	FullAverageRating    float64   `json:"full_average_rating"`
	SourceType           string    `json:"source_type"`
	CreatedAt            time.Time `json:"created_at"`
}

// AppRatingFromRaw builds the rating row from the detail-page star block.
func AppRatingFromRaw(raw *RawApp, star *RawRating) AppRating {
	return AppRating{
		AppID:                raw.AppID,
		PkgName:              raw.PkgName,
		AverageRating:        atofDefault(star.AverageRating, 0),
		Star1RatingCount:     star.Star1RatingCount,
		Star2RatingCount:     star.Star2RatingCount,
		Star3RatingCount:     star.Star3RatingCount,
		Star4RatingCount:     star.Star4RatingCount,
		Star5RatingCount:     star.Star5RatingCount,
		MyStarRating:         star.MyStarRating,
		TotalStarRatingCount: star.TotalStarRatingCount,
		OnlyStarCount:        star.OnlyStarCount,
		FullAverageRating:    atofDefault(star.FullAverageRating, 0),
		SourceType:           Sanitize(star.SourceType),
		CreatedAt:            time.Now(),
	}
}

// CarryForward copies the row identity from the previously persisted row.
func (r *AppRating) CarryForward(prev *AppRating) {
	r.ID = prev.ID
	r.CreatedAt = prev.CreatedAt
}

// Equal compares two rating rows field by field.
func (r *AppRating) Equal(other *AppRating) bool {
	return r.ID == other.ID &&
		r.AppID == other.AppID &&
		r.PkgName == other.PkgName &&
		r.AverageRating == other.AverageRating &&
		r.Star1RatingCount == other.Star1RatingCount &&
		r.Star2RatingCount == other.Star2RatingCount &&
		r.Star3RatingCount == other.Star3RatingCount &&
		r.Star4RatingCount == other.Star4RatingCount &&
		r.Star5RatingCount == other.Star5RatingCount &&
		r.MyStarRating == other.MyStarRating &&
		r.TotalStarRatingCount == other.TotalStarRatingCount &&
		r.OnlyStarCount == other.OnlyStarCount &&
		r.FullAverageRating == other.FullAverageRating &&
		r.SourceType == other.SourceType &&
		r.CreatedAt.Equal(other.CreatedAt)
}

// AppRecord is the filing information row, upserted on every sync.
type AppRecord struct {
	ID                  int64  `json:"id"`
	AppID               string `json:"app_id"`
	Title               string `json:"title"`
	AppRecordalInfo     string `json:"app_recordal_info"`
	RecordalEntityTitle string `json:"recordal_entity_title"`
	RecordalEntityName  string `json:"recordal_entity_name"`
}

// AppRecordFromRaw builds the filing row from the detail about card.
func AppRecordFromRaw(appID string, rec *RawRecordal) AppRecord {
	return AppRecord{
		AppID:               appID,
		Title:               Sanitize(rec.Title),
		AppRecordalInfo:     Sanitize(rec.AppRecordalInfo),
		RecordalEntityTitle: Sanitize(rec.RecordalEntityTitle),
		RecordalEntityName:  Sanitize(rec.RecordalEntityName),
	}
}

// CarryForward copies the row identity from the previously persisted row.
func (r *AppRecord) CarryForward(prev *AppRecord) {
	r.ID = prev.ID
}

// AppHistory is one raw-payload history entry, appended whenever identity
// or metrics changed.
type AppHistory struct {
	ID        int64           `json:"id"`
	AppID     string          `json:"app_id"`
	PkgName   string          `json:"pkg_name"`
	RawJSON   json.RawMessage `json:"raw_json_data"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewAppHistory builds a history entry for the given payload document.
func NewAppHistory(appID, pkgName string, payload map[string]interface{}) (AppHistory, error) {
	doc, err := json.Marshal(payload)
	if err != nil {
		return AppHistory{}, err
	}
	return AppHistory{
		AppID:     appID,
		PkgName:   pkgName,
		RawJSON:   doc,
		CreatedAt: time.Now(),
	}, nil
}

// FullAppInfo joins the latest identity, metrics, rating and filing rows
// for one app, the shape the HTTP API serves.
type FullAppInfo struct {
	AppInfo
	Version           string    `json:"version"`
	VersionCode       int64     `json:"version_code"`
	SizeBytes         int64     `json:"size_bytes"`
	SHA256            string    `json:"sha256"`
	InfoScore         float64   `json:"info_score"`
	InfoRateCount     int64     `json:"info_rate_count"`
	DownloadCount     int64     `json:"download_count"`
	Price             float64   `json:"price"`
	ReleaseDate       int64     `json:"release_date"`
	NewFeatures       string    `json:"new_features"`
	UpgradeMsg        string    `json:"upgrade_msg"`
	TargetSDK         int       `json:"target_sdk"`
	MinSDK            int       `json:"minsdk"`
	CompileSDKVersion int       `json:"compile_sdk_version"`
	MinHmosAPILevel   int       `json:"min_hmos_api_level"`
	APIReleaseType    string    `json:"api_release_type"`
	MetricsCreatedAt  time.Time `json:"metrics_created_at"`

	AverageRating        *float64   `json:"average_rating"`
	Star1RatingCount     *int       `json:"star_1_rating_count"`
	Star2RatingCount     *int       `json:"star_2_rating_count"`
	Star3RatingCount     *int       `json:"star_3_rating_count"`
	Star4RatingCount     *int       `json:"star_4_rating_count"`
	Star5RatingCount     *int       `json:"star_5_rating_count"`
	MyStarRating         *int       `json:"my_star_rating"`
	TotalStarRatingCount *int       `json:"total_star_rating_count"`
	OnlyStarCount        *int       `json:"only_star_count"`
	FullAverageRating    *float64   `json:"full_average_rating"`
	SourceType           *string    `json:"source_type"`
	RatingCreatedAt      *time.Time `json:"rating_created_at"`

	Title               *string `json:"title"`
	AppRecordalInfo     *string `json:"app_recordal_info"`
	RecordalEntityTitle *string `json:"recordal_entity_title"`
	RecordalEntityName  *string `json:"recordal_entity_name"`

	UpdatedAt time.Time `json:"updated_at"`
}

// ShortAppInfo is the list-view projection of an app.
type ShortAppInfo struct {
	AppID     string    `json:"app_id"`
	Name      string    `json:"name"`
	PkgName   string    `json:"pkg_name"`
	IconURL   string    `json:"icon_url"`
	CreatedAt time.Time `json:"create_at"`
}

// Short projects the identity row into its list-view form.
func (a *AppInfo) Short() ShortAppInfo {
	return ShortAppInfo{
		AppID:     a.AppID,
		Name:      a.Name,
		PkgName:   a.PkgName,
		IconURL:   a.IconURL,
		CreatedAt: a.CreatedAt,
	}
}

func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func atoi64Default(s string, def int64) int64 {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	return def
}

func atofDefault(s string, def float64) float64 {
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	return def
}

func sanitizePtr(s *string) *string {
	if s == nil {
		return nil
	}
	clean := Sanitize(*s)
	return &clean
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func strSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
