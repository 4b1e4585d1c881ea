// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

package sync

import (
	"context"
	"sort"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tianxiu2b2t/dashboard/internal/models"
)

// memStore is an in-memory Store for tests. Rows are keyed by app id with
// a package-name index, mirroring how the real schema resolves queries.
type memStore struct {
	mu          sync.Mutex
	infos       map[string]*models.AppInfo
	metrics     map[string][]*models.AppMetrics
	ratings     map[string][]*models.AppRating
	records     map[string]*models.AppRecord
	history     map[string][]json.RawMessage
	pkgIndex    map[string]string // pkg_name -> app_id
	collections map[string]*models.CollectionSnapshot
	collHistory map[string][]json.RawMessage
	collMembers map[string]map[string]struct{}
	nextID      int64

	failOn map[string]error // op name -> injected error
}

func newMemStore() *memStore {
	return &memStore{
		infos:       make(map[string]*models.AppInfo),
		metrics:     make(map[string][]*models.AppMetrics),
		ratings:     make(map[string][]*models.AppRating),
		records:     make(map[string]*models.AppRecord),
		history:     make(map[string][]json.RawMessage),
		pkgIndex:    make(map[string]string),
		collections: make(map[string]*models.CollectionSnapshot),
		collHistory: make(map[string][]json.RawMessage),
		collMembers: make(map[string]map[string]struct{}),
		failOn:      make(map[string]error),
	}
}

func (s *memStore) fail(op string) error {
	if err, ok := s.failOn[op]; ok {
		return err
	}
	return nil
}

func (s *memStore) resolveLocked(q models.AppQuery) string {
	if q.Kind() == models.QueryAppID {
		if _, ok := s.infos[q.Value()]; ok {
			return q.Value()
		}
		return ""
	}
	return s.pkgIndex[q.Value()]
}

func (s *memStore) AppExists(_ context.Context, q models.AppQuery) (bool, error) {
	if err := s.fail("AppExists"); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveLocked(q) != "", nil
}

func (s *memStore) ResolveAppID(_ context.Context, q models.AppQuery) (string, error) {
	if err := s.fail("ResolveAppID"); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveLocked(q), nil
}

func (s *memStore) LastRawPayload(_ context.Context, q models.AppQuery) (json.RawMessage, error) {
	if err := s.fail("LastRawPayload"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	hist := s.history[s.resolveLocked(q)]
	if len(hist) == 0 {
		return nil, nil
	}
	return hist[len(hist)-1], nil
}

func (s *memStore) LastAppInfo(_ context.Context, q models.AppQuery) (*models.AppInfo, error) {
	if err := s.fail("LastAppInfo"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.infos[s.resolveLocked(q)]
	if !ok {
		return nil, nil
	}
	cp := *info
	return &cp, nil
}

func (s *memStore) LastMetrics(_ context.Context, q models.AppQuery) (*models.AppMetrics, error) {
	if err := s.fail("LastMetrics"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.metrics[s.resolveLocked(q)]
	if len(rows) == 0 {
		return nil, nil
	}
	cp := *rows[len(rows)-1]
	return &cp, nil
}

func (s *memStore) LastRating(_ context.Context, q models.AppQuery) (*models.AppRating, error) {
	if err := s.fail("LastRating"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.ratings[s.resolveLocked(q)]
	if len(rows) == 0 {
		return nil, nil
	}
	cp := *rows[len(rows)-1]
	return &cp, nil
}

func (s *memStore) UpsertAppInfo(_ context.Context, info *models.AppInfo) error {
	if err := s.fail("UpsertAppInfo"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *info
	s.infos[info.AppID] = &cp
	s.pkgIndex[info.PkgName] = info.AppID
	return nil
}

func (s *memStore) InsertMetrics(_ context.Context, m *models.AppMetrics) error {
	if err := s.fail("InsertMetrics"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	cp := *m
	cp.ID = s.nextID
	s.metrics[m.AppID] = append(s.metrics[m.AppID], &cp)
	return nil
}

func (s *memStore) InsertRating(_ context.Context, r *models.AppRating) error {
	if err := s.fail("InsertRating"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	cp := *r
	cp.ID = s.nextID
	s.ratings[r.AppID] = append(s.ratings[r.AppID], &cp)
	return nil
}

func (s *memStore) UpsertRecord(_ context.Context, r *models.AppRecord) error {
	if err := s.fail("UpsertRecord"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.records[r.AppID] = &cp
	return nil
}

func (s *memStore) AppendHistory(_ context.Context, h *models.AppHistory) error {
	if err := s.fail("AppendHistory"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[h.AppID] = append(s.history[h.AppID], h.RawJSON)
	return nil
}

func (s *memStore) FullAppInfo(_ context.Context, q models.AppQuery) (*models.FullAppInfo, error) {
	if err := s.fail("FullAppInfo"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.infos[s.resolveLocked(q)]
	if !ok {
		return nil, nil
	}
	full := &models.FullAppInfo{AppInfo: *info}
	if rows := s.metrics[info.AppID]; len(rows) > 0 {
		last := rows[len(rows)-1]
		full.Version = last.Version
		full.VersionCode = last.VersionCode
		full.DownloadCount = last.DownloadCount
		full.Price = last.Price
	}
	return full, nil
}

func (s *memStore) AllPackageNames(_ context.Context) ([]string, error) {
	if err := s.fail("AllPackageNames"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.pkgIndex))
	for name := range s.pkgIndex {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *memStore) CollectionExists(_ context.Context, id string) (bool, error) {
	if err := s.fail("CollectionExists"); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.collections[id]
	return ok, nil
}

func (s *memStore) LastCollectionRaw(_ context.Context, id string) (json.RawMessage, error) {
	if err := s.fail("LastCollectionRaw"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	hist := s.collHistory[id]
	if len(hist) == 0 {
		return nil, nil
	}
	return hist[len(hist)-1], nil
}

func (s *memStore) UpsertCollection(_ context.Context, snap *models.CollectionSnapshot, comment json.RawMessage, isNew bool) error {
	if err := s.fail("UpsertCollection"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *snap
	if isNew {
		cp.Raw = append(json.RawMessage(nil), snap.Raw...)
		_ = comment // memStore has no comment column; presence is asserted by callers
	}
	s.collections[snap.ID] = &cp
	return nil
}

func (s *memStore) AppendCollectionHistory(_ context.Context, id string, raw json.RawMessage) error {
	if err := s.fail("AppendCollectionHistory"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collHistory[id] = append(s.collHistory[id], raw)
	return nil
}

func (s *memStore) MapCollectionMember(_ context.Context, collectionID, appID string) error {
	if err := s.fail("MapCollectionMember"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collMembers[collectionID] == nil {
		s.collMembers[collectionID] = make(map[string]struct{})
	}
	s.collMembers[collectionID][appID] = struct{}{}
	return nil
}

func (s *memStore) AllCollectionIDs(_ context.Context) ([]string, error) {
	if err := s.fail("AllCollectionIDs"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.collections))
	for id := range s.collections {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
