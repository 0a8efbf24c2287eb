// internal/redirect/store.go
//
// Redirect store: validated writes plus cache invalidation.
//
// Context
// -------
// Persistence is behind Repository so any backend (MySQL via sqlstore, the
// in-memory map used by tests) can hold entries without the
// matcher or cache knowing.  Store wraps a Repository and owns the write
// contract:
//
//  1. validate the entry in isolation (Validate),
//  2. reject a second active entry for the same (site, source, is_regex),
//  3. commit through the Repository,
//  4. invalidate the owning site before returning.
//
// Writers are serialised by one mutex so the uniqueness check and the write
// it guards cannot interleave with another writer in this process.
// Last-writer-wins is acceptable across processes.

package redirect

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Repository is the persistence contract.  Implementations guarantee
// per-entry atomicity and return ErrNotFound for unknown ids.
type Repository interface {
	Get(ctx context.Context, id uint64) (Entry, error)
	List(ctx context.Context, f Filter) ([]Entry, error)
	Insert(ctx context.Context, e *Entry) error
	Update(ctx context.Context, e *Entry) error
	SetActive(ctx context.Context, id uint64, active bool, at time.Time) error
	Delete(ctx context.Context, id uint64) error
}

type nopInvalidator struct{}

func (nopInvalidator) Invalidate(uint64) {}
func (nopInvalidator) InvalidateAll()    {}

// Store is safe for concurrent use.
type Store struct {
	repo Repository
	inv  Invalidator
	now  func() time.Time

	mu sync.Mutex
}

// NewStore wires repo to inv.  inv may be nil when nothing is cached, e.g.
// in a one-off CLI run without a broadcast channel.
func NewStore(repo Repository, inv Invalidator) *Store {
	if inv == nil {
		inv = nopInvalidator{}
	}
	return &Store{repo: repo, inv: inv, now: time.Now}
}

// Get returns one entry by id.
func (s *Store) Get(ctx context.Context, id uint64) (Entry, error) {
	return s.repo.Get(ctx, id)
}

// List returns entries matching f, ordered by id.
func (s *Store) List(ctx context.Context, f Filter) ([]Entry, error) {
	return s.repo.List(ctx, f)
}

// Create validates and inserts e.  A zero Status defaults to 302.
func (s *Store) Create(ctx context.Context, e Entry) (Entry, error) {
	e.Source = strings.TrimSpace(e.Source)
	if e.Status == 0 {
		e.Status = StatusTemporary
	}
	if err := Validate(e); err != nil {
		return Entry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if e.Active {
		if err := s.checkUnique(ctx, e); err != nil {
			return Entry{}, err
		}
	}
	now := s.now()
	e.ID = 0
	e.CreatedAt, e.UpdatedAt = now, now
	if err := s.repo.Insert(ctx, &e); err != nil {
		return Entry{}, err
	}
	s.inv.Invalidate(e.SiteID)
	return e, nil
}

// Update replaces every mutable field of the entry with id e.ID.  Entries
// never move between sites.
func (s *Store) Update(ctx context.Context, e Entry) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.repo.Get(ctx, e.ID)
	if err != nil {
		return Entry{}, err
	}
	if err := fillFrom(&e, cur); err != nil {
		return Entry{}, err
	}
	if err := Validate(e); err != nil {
		return Entry{}, err
	}
	if e.Active {
		if err := s.checkUnique(ctx, e); err != nil {
			return Entry{}, err
		}
	}

	e.CreatedAt = cur.CreatedAt
	e.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, &e); err != nil {
		return Entry{}, err
	}
	s.inv.Invalidate(e.SiteID)
	return e, nil
}

// fillFrom normalises an update against the stored row: the site and a zero
// status carry over and the source is trimmed.
func fillFrom(e *Entry, cur Entry) error {
	if e.SiteID == 0 {
		e.SiteID = cur.SiteID
	}
	if e.SiteID != cur.SiteID {
		return &ValidationError{Field: "site_id", Reason: "cannot move an entry to another site"}
	}
	e.Source = strings.TrimSpace(e.Source)
	if e.Status == 0 {
		e.Status = cur.Status
	}
	return nil
}

// Delete hard-deletes one entry.
func (s *Store) Delete(ctx context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.inv.Invalidate(cur.SiteID)
	return nil
}

// Toggle flips is_active and nothing else, returning the new state.
// Activation is held to the same rules as Create.
func (s *Store) Toggle(ctx context.Context, id uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.repo.Get(ctx, id)
	if err != nil {
		return false, err
	}
	next := !cur.Active
	if next {
		cur.Active = true
		if err := Validate(cur); err != nil {
			return false, err
		}
		if err := s.checkUnique(ctx, cur); err != nil {
			return false, err
		}
	}
	if err := s.repo.SetActive(ctx, id, next, s.now()); err != nil {
		return false, err
	}
	s.inv.Invalidate(cur.SiteID)
	return next, nil
}

// TogglePermanent swaps the status between 301 and 302, returning the new
// status.
func (s *Store) TogglePermanent(ctx context.Context, id uint64) (StatusCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.repo.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	if cur.Status == StatusPermanent {
		cur.Status = StatusTemporary
	} else {
		cur.Status = StatusPermanent
	}
	cur.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, &cur); err != nil {
		return 0, err
	}
	s.inv.Invalidate(cur.SiteID)
	return cur.Status, nil
}

// ToggleFallback flips is_fallback, returning the new state.  Fallback only
// moves the entry in regex order, so uniqueness is not rechecked.
func (s *Store) ToggleFallback(ctx context.Context, id uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.repo.Get(ctx, id)
	if err != nil {
		return false, err
	}
	cur.Fallback = !cur.Fallback
	cur.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, &cur); err != nil {
		return false, err
	}
	s.inv.Invalidate(cur.SiteID)
	return cur.Fallback, nil
}

// UpdateMany applies Update rules to each entry and invalidates each
// affected site once.  It stops at the first failure; entries written before
// it stay written.
func (s *Store) UpdateMany(ctx context.Context, entries []Entry) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sites := make(map[uint64]struct{})
	defer func() {
		for site := range sites {
			s.inv.Invalidate(site)
		}
	}()

	done := 0
	for _, e := range entries {
		cur, err := s.repo.Get(ctx, e.ID)
		if err != nil {
			return done, err
		}
		if err := fillFrom(&e, cur); err != nil {
			return done, fmt.Errorf("entry %d: %w", e.ID, err)
		}
		if err := Validate(e); err != nil {
			return done, fmt.Errorf("entry %d: %w", e.ID, err)
		}
		if e.Active {
			if err := s.checkUnique(ctx, e); err != nil {
				return done, fmt.Errorf("entry %d: %w", e.ID, err)
			}
		}
		e.CreatedAt = cur.CreatedAt
		e.UpdatedAt = s.now()
		if err := s.repo.Update(ctx, &e); err != nil {
			return done, err
		}
		sites[e.SiteID] = struct{}{}
		done++
	}
	return done, nil
}

// Purge hard-deletes ids and invalidates each affected site once.  Ids that
// vanished in the meantime are skipped.
func (s *Store) Purge(ctx context.Context, ids []uint64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sites := make(map[uint64]struct{})
	defer func() {
		for site := range sites {
			s.inv.Invalidate(site)
		}
	}()

	deleted := 0
	for _, id := range ids {
		cur, err := s.repo.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return deleted, err
		}
		if err := s.repo.Delete(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
			return deleted, err
		}
		sites[cur.SiteID] = struct{}{}
		deleted++
	}
	return deleted, nil
}

// RecordMiss stores path as an inactive, destination-less literal entry
// unless the site already has an entry for it.  Inactive entries never
// enter a snapshot, so no invalidation is needed.
func (s *Store) RecordMiss(ctx context.Context, siteID uint64, path string) (bool, error) {
	e := Entry{SiteID: siteID, Source: NormalizePath(path), Status: StatusTemporary}
	if err := Validate(e); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.repo.List(ctx, Filter{
		SiteID:  siteID,
		IsRegex: Bool(false),
		Sources: SourceVariants(e.Source, false),
	})
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		return false, nil
	}
	now := s.now()
	e.CreatedAt, e.UpdatedAt = now, now
	if err := s.repo.Insert(ctx, &e); err != nil {
		return false, err
	}
	return true, nil
}

// checkUnique rejects e when another active entry on the same site claims
// the same literal path or the same pattern string.
func (s *Store) checkUnique(ctx context.Context, e Entry) error {
	others, err := s.repo.List(ctx, Filter{
		SiteID:  e.SiteID,
		Active:  Bool(true),
		IsRegex: Bool(e.IsRegex),
		Sources: SourceVariants(e.Source, e.IsRegex),
	})
	if err != nil {
		return err
	}
	key := sourceKey(e)
	for _, o := range others {
		if o.ID != e.ID && sourceKey(o) == key {
			return &ValidationError{
				Field:  "source",
				Reason: "an active redirect for this path already exists on this site",
			}
		}
	}
	return nil
}
