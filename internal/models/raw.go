// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

package models

// RawApp is the upstream appinfo payload mapped one to one. Numeric-looking
// fields arrive as strings and are converted only when the derived rows are
// built. Fields the store sometimes omits carry defaults applied by
// ApplyDefaults after decoding.
type RawApp struct {
	AppID             string   `json:"appId"`
	AllianceAppID     string   `json:"allianceAppId"`
	Name              string   `json:"name"`
	PkgName           string   `json:"pkgName"`
	DevID             string   `json:"devId"`
	DeveloperName     string   `json:"developerName"`
	DevEnName         string   `json:"devEnName"`
	Supplier          string   `json:"supplier"`
	KindID            string   `json:"kindId"`
	KindName          string   `json:"kindName"`
	TagName           *string  `json:"tagName"`
	KindTypeID        string   `json:"kindTypeId"`
	KindTypeName      string   `json:"kindTypeName"`
	IconURL           string   `json:"icon"`
	BriefDesc         string   `json:"briefDes"`
	Description       string   `json:"description"`
	PrivacyURL        string   `json:"privacyUrl"`
	Ctype             int      `json:"ctype"`
	DetailID          string   `json:"detailId"`
	AppLevel          int      `json:"appLevel"`
	JocatID           int      `json:"jocatId"`
	IAP               int      `json:"iap"`
	HMS               int      `json:"hms"`
	TariffType        string   `json:"tariffType"`
	PackingType       int      `json:"packingType"`
	OrderApp          bool     `json:"orderApp"`
	DependGMS         int      `json:"denpendGms"`
	DependHMS         int      `json:"denpendHms"`
	ForceUpdate       int      `json:"forceUpdate"`
	ImgTag            string   `json:"imgTag"`
	IsPay             string   `json:"isPay"`
	IsDisciplined     int      `json:"isDisciplined"`
	IsShelves         int      `json:"isShelves"`
	SubmitType        int      `json:"submitType"`
	DeleteArchive     int      `json:"deleteArchive"`
	Charging          int      `json:"charging"`
	ButtonGrey        int      `json:"buttonGrey"`
	AppGift           int      `json:"appGift"`
	FreeDays          int      `json:"freeDays"`
	PayInstallType    int      `json:"payInstallType"`
	Version           string   `json:"version"`
	VersionCode       int64    `json:"versionCode"`
	SizeBytes         int64    `json:"size"`
	SHA256            string   `json:"sha256"`
	HotScore          string   `json:"hot"`
	RateNum           string   `json:"rateNum"`
	DownloadCount     string   `json:"downCount"`
	Price             string   `json:"price"`
	ReleaseDate       int64    `json:"releaseDate"`
	NewFeatures       string   `json:"newFeatures"`
	UpgradeMsg        string   `json:"upgradeMsg"`
	TargetSDK         string   `json:"targetSdk"`
	MinSDK            string   `json:"minsdk"`
	CompileSDKVersion int      `json:"compileSdkVersion"`
	MinHmosAPILevel   int      `json:"minHmosApiLevel"`
	APIReleaseType    string   `json:"apiReleaseType"`
	MainDeviceCodes   []string `json:"mainDeviceCodes"`
	ReleaseCountries  []string `json:"releaseCountries"`
}

// ApplyDefaults fills the fields the store occasionally leaves out.
// Some lightweight services ship without hot or rateNum at all.
func (r *RawApp) ApplyDefaults() {
	if r.HotScore == "" {
		r.HotScore = "0.0"
	}
	if r.RateNum == "" {
		r.RateNum = "0"
	}
	if r.APIReleaseType == "" {
		r.APIReleaseType = "Release"
	}
	if len(r.MainDeviceCodes) == 0 {
		r.MainDeviceCodes = []string{"0"}
	}
}

// RawRating is the starInfo block from the app detail page.
type RawRating struct {
	AverageRating        string `json:"averageRating"`
	Star1RatingCount     int    `json:"oneStarRatingCount"`
	Star2RatingCount     int    `json:"twoStarRatingCount"`
	Star3RatingCount     int    `json:"threeStarRatingCount"`
	Star4RatingCount     int    `json:"fourStarRatingCount"`
	Star5RatingCount     int    `json:"fiveStarRatingCount"`
	MyStarRating         int    `json:"myStarRating"`
	TotalStarRatingCount int    `json:"totalStarRatingCount"`
	OnlyStarCount        int    `json:"onlyStarCount"`
	FullAverageRating    string `json:"fullAverageRating"`
	SourceType           string `json:"sourceType"`
}

// RawRecordal is the filing block from the detail about card. Always four
// display strings.
type RawRecordal struct {
	Title               string `json:"title"`
	AppRecordalInfo     string `json:"appRecordalInfo"`
	RecordalEntityTitle string `json:"recordalEntityTitle"`
	RecordalEntityName  string `json:"recordalEntityName"`
}

// RawRecord aggregates everything one fetch of a single app produced:
// the decoded base payload, the untouched payload document it was decoded
// from, and the optional detail-page blocks.
type RawRecord struct {
	App      RawApp
	Payload  map[string]interface{}
	Rating   *RawRating
	Recordal *RawRecordal
}

// PkgQuery returns this record's package-name query.
func (r *RawRecord) PkgQuery() AppQuery { return ByPkgName(r.App.PkgName) }

// IDQuery returns this record's app-id query.
func (r *RawRecord) IDQuery() AppQuery { return ByAppID(r.App.AppID) }

// HasRating reports whether the detail fetch produced a rating block.
func (r *RawRecord) HasRating() bool { return r.Rating != nil }

// HasRecordal reports whether the detail fetch produced a filing block.
func (r *RawRecord) HasRecordal() bool { return r.Recordal != nil }
