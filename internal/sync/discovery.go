// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tianxiu2b2t/dashboard/internal/logging"
	"github.com/tianxiu2b2t/dashboard/internal/metrics"
	"github.com/tianxiu2b2t/dashboard/internal/models"
)

// Collection landing card types. The landing variants carry the display
// metadata; only some of them also carry member refs.
const (
	cardTypeVerticalList    = "com.huawei.hmsapp.appgallery.verticallistcard"
	cardTypeScenarioLanding = "com.huawei.hmos.appgallery.scenariolistcard.landing"
	cardTypeSliderLanding   = "com.huawei.hmos.appgallery.whiteverticalslidercard.landing"
	cardTypeIconRollLanding = "com.huawei.hmsapp.appgallery.appiconrollingcard.landing"
	cardTypeSubjectBigCard  = "com.huawei.hmsapp.appgallery.subjectappbigcard.landing"
)

// maxMemberPages bounds card-list pagination. The store has never served
// collections anywhere near this size, so hitting the cap means the
// hasMore flag is lying.
const maxMemberPages = 500

// DiscoverCollection walks one curated collection page and returns its
// display metadata, the deduplicated member list and the raw landing page
// for history comparison.
func (f *Fetcher) DiscoverCollection(ctx context.Context, id string) (*models.CollectionSnapshot, error) {
	start := time.Now()

	page, err := f.client.PageDetail(ctx, "webAgSubstanceDetail|"+id, true)
	if err != nil {
		return nil, err
	}

	landing := firstEntry(page["pages"])
	if landing == nil {
		return nil, &ValidationError{Query: id, Reason: "landing page has no pages"}
	}
	cardlist := pageCardlist(page)
	if cardlist == nil {
		return nil, &ValidationError{Query: id, Reason: "landing page has no cardlist"}
	}

	raw, err := json.Marshal(landing)
	if err != nil {
		return nil, fmt.Errorf("re-encode landing page: %w", err)
	}

	snap := &models.CollectionSnapshot{ID: id, Raw: raw}
	var members []models.AppQuery

	// A landing page that overflows one cardlist signals it with hasMore
	// and hands out a dataId to page the remainder through card-list.
	if jsonInt(cardlist["hasMore"]) != 0 {
		more, err := f.fetchMoreMembers(ctx, cardlist["dataId"])
		if err != nil {
			return nil, err
		}
		members = append(members, more...)
	}

	for _, layout := range layoutData(cardlist) {
		card, ok := layout.(map[string]interface{})
		if !ok {
			continue
		}
		cardType, _ := card["type"].(string)
		entries, _ := card["data"].([]interface{})
		if len(entries) == 0 {
			continue
		}

		switch cardType {
		case cardTypeVerticalList:
			members = append(members, memberIDs(entries, "appId")...)

		case cardTypeScenarioLanding, cardTypeSliderLanding, cardTypeIconRollLanding:
			first, _ := entries[0].(map[string]interface{})
			if first == nil {
				continue
			}
			takeDisplayMeta(first, snap)
			// A landing card without refs means the members already came
			// through a vertical list card.
			if refs, ok := first["refsList_app"].([]interface{}); ok {
				members = append(members, memberIDs(refs, "appId")...)
			}

		case cardTypeSubjectBigCard:
			for _, e := range entries {
				entry, _ := e.(map[string]interface{})
				if entry == nil {
					continue
				}
				takeDisplayMeta(entry, snap)
				if refs, ok := entry["refsList_app_short"].([]interface{}); ok {
					members = append(members, memberIDs(refs, "appId")...)
				}
			}
		}
	}

	snap.Members = models.DedupQueries(members)

	metrics.CollectionWalkDuration.Observe(time.Since(start).Seconds())
	metrics.CollectionMembersFound.Observe(float64(len(snap.Members)))

	return snap, nil
}

// fetchMoreMembers pages the card-list continuation endpoint, starting at
// page 2, until the upstream says hasMore == 0.
func (f *Fetcher) fetchMoreMembers(ctx context.Context, dataID interface{}) ([]models.AppQuery, error) {
	var members []models.AppQuery
	for pageNum := 2; pageNum < 2+maxMemberPages; pageNum++ {
		resp, err := f.client.CardList(ctx, dataID, pageNum)
		if err != nil {
			return nil, err
		}

		layouts, _ := resp["layoutData"].([]interface{})
		for _, layout := range layouts {
			card, ok := layout.(map[string]interface{})
			if !ok {
				continue
			}
			cardType, _ := card["type"].(string)
			if cardType != cardTypeVerticalList {
				continue
			}
			entries, _ := card["data"].([]interface{})
			members = append(members, memberIDs(entries, "appId")...)
		}

		if jsonInt(resp["hasMore"]) == 0 {
			return members, nil
		}
	}
	return members, fmt.Errorf("card-list pagination exceeded %d pages", maxMemberPages)
}

// SaveCollection applies one walked collection to the store. The comment
// is only honored when the collection is new; a history entry is appended
// when the trace-masked landing payload differs from the last one.
// Returns whether the collection was seen for the first time.
func SaveCollection(ctx context.Context, store Store, snap *models.CollectionSnapshot, comment json.RawMessage) (bool, error) {
	exists, err := store.CollectionExists(ctx, snap.ID)
	if err != nil {
		return false, &PersistenceError{Op: "collection lookup", Err: err}
	}
	isNew := !exists

	if err := store.UpsertCollection(ctx, snap, comment, isNew); err != nil {
		return isNew, &PersistenceError{Op: "collection upsert", Err: err}
	}

	last, err := store.LastCollectionRaw(ctx, snap.ID)
	if err != nil {
		return isNew, &PersistenceError{Op: "collection history lookup", Err: err}
	}
	// Landing payloads embed per-request trace ids at arbitrary depth, so
	// the comparison masks every trace-carrying string first.
	if last == nil || !models.MaskedJSONEqual(last, snap.Raw) {
		if err := store.AppendCollectionHistory(ctx, snap.ID, snap.Raw); err != nil {
			return isNew, &PersistenceError{Op: "collection history append", Err: err}
		}
	}

	for _, member := range snap.Members {
		appID, err := store.ResolveAppID(ctx, member)
		if err != nil {
			return isNew, &PersistenceError{Op: "member resolve", Err: err}
		}
		if appID == "" {
			logging.Warn().Str("collection_id", snap.ID).Str("member", member.String()).Msg("Collection member not in store, skipping mapping")
			continue
		}
		if err := store.MapCollectionMember(ctx, snap.ID, appID); err != nil {
			return isNew, &PersistenceError{Op: "member mapping", Err: err}
		}
	}

	return isNew, nil
}

// memberIDs extracts string ids under key from a card entry list.
func memberIDs(entries []interface{}, key string) []models.AppQuery {
	var out []models.AppQuery
	for _, e := range entries {
		entry, ok := e.(map[string]interface{})
		if !ok {
			continue
		}
		if id, ok := entry[key].(string); ok && id != "" {
			out = append(out, models.ByAppID(id))
		}
	}
	return out
}

// takeDisplayMeta lifts title, subTitle and name strings off a landing
// card entry. Later cards overwrite earlier ones, matching upstream order.
func takeDisplayMeta(entry map[string]interface{}, snap *models.CollectionSnapshot) {
	if title, ok := entry["title"].(string); ok {
		snap.Title = title
	}
	if subTitle, ok := entry["subTitle"].(string); ok {
		snap.Subtitle = stringToPtr(subTitle)
	}
	if name, ok := entry["name"].(string); ok {
		snap.Name = stringToPtr(name)
	}
}

// jsonInt reads a decoded JSON number as int64, tolerating the float64
// shape the decoder produces.
func jsonInt(v interface{}) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	case json.Number:
		i, _ := n.Int64()
		return i
	default:
		return 0
	}
}
