// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

package sync

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tianxiu2b2t/dashboard/internal/config"
	"github.com/tianxiu2b2t/dashboard/internal/logging"
	"github.com/tianxiu2b2t/dashboard/internal/models"
)

// Detail-page card types the fetcher knows how to read.
const (
	cardTypeComment     = "fl.card.comment"
	cardTypeDetailAbout = "com.huawei.hmos.appgallery.appdetailaboutcard"
)

// Fetcher turns an app query into a complete RawRecord: the base appinfo
// payload plus, when the app has a real detail page, the rating and filing
// blocks from it.
type Fetcher struct {
	client *Client
	cfg    config.UpstreamConfig
}

// NewFetcher creates a fetcher over the given edge client.
func NewFetcher(client *Client, cfg config.UpstreamConfig) *Fetcher {
	return &Fetcher{client: client, cfg: cfg}
}

// Fetch retrieves one app. The detail page is skipped for lightweight
// services, whose detail route returns an empty shell. A detail fetch
// failure downgrades to a warning: the base payload alone is still worth
// persisting.
func (f *Fetcher) Fetch(ctx context.Context, query models.AppQuery) (*models.RawRecord, error) {
	payload, err := f.client.AppInfo(ctx, query.Value(), query.LookupField())
	if err != nil {
		return nil, err
	}

	doc, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("re-encode payload: %w", err)
	}
	var app models.RawApp
	if err := json.Unmarshal(doc, &app); err != nil {
		return nil, &ValidationError{Query: query.String(), Reason: fmt.Sprintf("payload does not decode: %v", err)}
	}
	app.ApplyDefaults()

	rec := &models.RawRecord{App: app, Payload: payload}

	if f.cfg.LightweightPrefix != "" && strings.HasPrefix(app.PkgName, f.cfg.LightweightPrefix) {
		return rec, nil
	}

	rating, recordal, err := f.fetchDetail(ctx, app.AppID)
	if err != nil {
		logging.Warn().Err(err).Str("app_id", app.AppID).Str("pkg_name", app.PkgName).Msg("Detail page fetch failed, keeping base payload")
		return rec, nil
	}
	rec.Rating = rating
	rec.Recordal = recordal
	return rec, nil
}

// fetchDetail reads the app detail page and extracts the star-distribution
// and filing cards, either of which may be absent.
func (f *Fetcher) fetchDetail(ctx context.Context, appID string) (*models.RawRating, *models.RawRecordal, error) {
	page, err := f.client.PageDetail(ctx, "webAgAppDetail|"+appID, false)
	if err != nil {
		return nil, nil, err
	}

	layouts := layoutData(pageCardlist(page))

	var rating *models.RawRating
	var recordal *models.RawRecordal
	for _, layout := range layouts {
		card, ok := layout.(map[string]interface{})
		if !ok {
			continue
		}
		cardType, _ := card["type"].(string)
		data := firstEntry(card["data"])
		if data == nil {
			continue
		}

		switch cardType {
		case cardTypeComment:
			// starInfo is a JSON document nested inside a JSON string.
			if infoStr, ok := data["starInfo"].(string); ok {
				var r models.RawRating
				if err := json.Unmarshal([]byte(infoStr), &r); err == nil {
					rating = &r
				}
			}
		case cardTypeDetailAbout:
			entry := firstEntry(data["list"])
			if entry == nil {
				continue
			}
			if info, ok := entry["appRecordalInfo"]; ok {
				if rec := decodeRecordal(info); rec != nil {
					recordal = rec
				}
			}
		}
	}

	return rating, recordal, nil
}

func decodeRecordal(v interface{}) *models.RawRecordal {
	doc, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var rec models.RawRecordal
	if err := json.Unmarshal(doc, &rec); err != nil {
		return nil
	}
	return &rec
}

// pageCardlist navigates pages[0].data.cardlist of a harmony page document.
// Returns nil when any hop is missing or mistyped.
func pageCardlist(page map[string]interface{}) map[string]interface{} {
	first := firstEntry(page["pages"])
	if first == nil {
		return nil
	}
	data, ok := first["data"].(map[string]interface{})
	if !ok {
		return nil
	}
	cardlist, ok := data["cardlist"].(map[string]interface{})
	if !ok {
		return nil
	}
	return cardlist
}

// layoutData returns the layoutData array of a cardlist, or nil.
func layoutData(cardlist map[string]interface{}) []interface{} {
	if cardlist == nil {
		return nil
	}
	layouts, _ := cardlist["layoutData"].([]interface{})
	return layouts
}

// firstEntry returns the first element of a JSON array when it is an
// object, or nil.
func firstEntry(v interface{}) map[string]interface{} {
	arr, ok := v.([]interface{})
	if !ok || len(arr) == 0 {
		return nil
	}
	entry, _ := arr[0].(map[string]interface{})
	return entry
}
