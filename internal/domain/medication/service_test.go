package medication

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rdv/rdv/internal/platform/apperr"
)

// =========== Mock Repository ===========

type mockCatalogRepo struct {
	store     map[uuid.UUID]*Entry
	lastLimit int
}

func newMockCatalogRepo() *mockCatalogRepo {
	m := &mockCatalogRepo{store: make(map[uuid.UUID]*Entry)}
	for _, e := range []Entry{
		{Name: "Cefalexina", ActiveIngredient: "cefalexina", Category: "antibiotico"},
		{Name: "Meloxicam", ActiveIngredient: "meloxicam", Category: "anti-inflamatorio"},
		{Name: "Dipirona", ActiveIngredient: "dipirona sódica", Category: "analgesico"},
	} {
		e := e
		e.ID = uuid.New()
		e.Shared = true
		m.store[e.ID] = &e
	}
	return m
}

func (m *mockCatalogRepo) Create(_ context.Context, e *Entry) error {
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	cp := *e
	m.store[e.ID] = &cp
	return nil
}

func (m *mockCatalogRepo) Search(_ context.Context, practitionerID, q, category string, limit int) ([]*Entry, error) {
	m.lastLimit = limit
	q = strings.ToLower(q)
	var items []*Entry
	for _, e := range m.store {
		if e.PractitionerID != nil && *e.PractitionerID != practitionerID {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(e.Name), q) &&
			!strings.Contains(strings.ToLower(e.ActiveIngredient), q) {
			continue
		}
		if category != "" && !strings.EqualFold(e.Category, category) {
			continue
		}
		items = append(items, e)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

const vet = "auth0|vet"

func newTestService() (*Service, *mockCatalogRepo) {
	repo := newMockCatalogRepo()
	return NewService(repo), repo
}

func TestSearch_DefaultLimit(t *testing.T) {
	svc, repo := newTestService()
	items, err := svc.Search(context.Background(), vet, "", "", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.lastLimit != defaultSearchLimit {
		t.Errorf("expected limit %d, got %d", defaultSearchLimit, repo.lastLimit)
	}
	if len(items) != 3 {
		t.Errorf("expected all shared entries, got %d", len(items))
	}

	svc.Search(context.Background(), vet, "", "", 5000)
	if repo.lastLimit != maxSearchLimit {
		t.Errorf("expected limit capped at %d, got %d", maxSearchLimit, repo.lastLimit)
	}
}

func TestSearch_ByIngredientAndCategory(t *testing.T) {
	svc, _ := newTestService()
	items, _ := svc.Search(context.Background(), vet, "SÓDICA", "", 0)
	if len(items) != 1 || items[0].Name != "Dipirona" {
		t.Errorf("expected Dipirona, got %+v", items)
	}
	items, _ = svc.Search(context.Background(), vet, "", "Antibiotico", 0)
	if len(items) != 1 || items[0].Name != "Cefalexina" {
		t.Errorf("expected Cefalexina, got %+v", items)
	}
}

func TestAdd_PrivateToOwner(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	e, err := svc.Add(ctx, vet, EntryInput{Name: "  Gabapentina ", Category: "Analgesico"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Name != "Gabapentina" || e.Category != "analgesico" || e.Shared {
		t.Errorf("unexpected entry %+v", e)
	}

	mine, _ := svc.Search(ctx, vet, "gaba", "", 0)
	if len(mine) != 1 {
		t.Errorf("expected own entry to be listed, got %d", len(mine))
	}
	theirs, _ := svc.Search(ctx, "auth0|other", "gaba", "", 0)
	if len(theirs) != 0 {
		t.Errorf("expected entry hidden from other practitioners, got %d", len(theirs))
	}
}

func TestAdd_RequiresName(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Add(context.Background(), vet, EntryInput{Name: "   "})
	ve, ok := apperr.AsValidation(err)
	if !ok || !ve.Has("name") {
		t.Errorf("expected name validation error, got %v", err)
	}
}

func TestUnauthenticated(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.Search(context.Background(), "", "", "", 0); err != apperr.ErrUnauthenticated {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
}
