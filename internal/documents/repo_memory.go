package documents

import (
	"context"
	"sort"
	"sync"
	"time"

	"docmanager-backend/internal/users"
)

// OwnerLookup resolves owners for joined listings.
type OwnerLookup interface {
	GetByID(ctx context.Context, userID string) (users.User, error)
}

// MemoryRepo is an in-memory registry used in dev and tests.
type MemoryRepo struct {
	mu     sync.RWMutex
	docs   map[string]Document
	owners OwnerLookup
}

func NewMemoryRepo(owners OwnerLookup) *MemoryRepo {
	return &MemoryRepo{
		docs:   make(map[string]Document),
		owners: owners,
	}
}

func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.docs {
		if existing.UserID == doc.UserID && existing.Filename == doc.Filename {
			return ErrConflict
		}
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	r.docs[doc.ID] = doc
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

func (r *MemoryRepo) GetByOwnerAndFilename(ctx context.Context, userID, filename string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, doc := range r.docs {
		if doc.UserID == userID && doc.Filename == filename {
			return doc, nil
		}
	}
	return Document{}, ErrNotFound
}

func (r *MemoryRepo) ListByOwner(ctx context.Context, userID string, limit, offset int) ([]Listed, int, error) {
	return r.list(ctx, func(d Document) bool { return d.UserID == userID }, limit, offset)
}

func (r *MemoryRepo) ListAll(ctx context.Context, limit, offset int) ([]Listed, int, error) {
	return r.list(ctx, func(Document) bool { return true }, limit, offset)
}

func (r *MemoryRepo) Recent(ctx context.Context, limit int) ([]Listed, error) {
	out, _, err := r.list(ctx, func(Document) bool { return true }, limit, 0)
	return out, err
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[id]; !ok {
		return ErrNotFound
	}
	delete(r.docs, id)
	return nil
}

func (r *MemoryRepo) list(ctx context.Context, keep func(Document) bool, limit, offset int) ([]Listed, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.mu.RLock()
	matched := make([]Document, 0, len(r.docs))
	for _, doc := range r.docs {
		if keep(doc) {
			matched = append(matched, doc)
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := len(matched)
	if offset >= total {
		return []Listed{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	out := make([]Listed, 0, end-offset)
	for _, doc := range matched[offset:end] {
		item := Listed{Document: doc}
		if r.owners != nil {
			if u, err := r.owners.GetByID(ctx, doc.UserID); err == nil {
				item.Owner = Owner{ID: u.ID, Email: u.Email, FullName: u.FullName}
			}
		}
		out = append(out, item)
	}
	return out, total, nil
}
