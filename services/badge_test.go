package services

import (
	"context"
	"testing"

	"mission-rewards-system/models"
)

func TestSeedCatalogIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	s := NewBadgeService(db, nil)
	for i := 0; i < 2; i++ {
		if err := s.SeedCatalog(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	badges, err := s.ListCatalog(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(badges) != len(models.BadgeCatalog) {
		t.Fatalf("catalog = %d, want %d", len(badges), len(models.BadgeCatalog))
	}
}

func TestCreateBadgeTypeDerivesCode(t *testing.T) {
	s := NewBadgeService(newTestDB(t), nil)
	bt, err := s.CreateBadgeType(context.Background(), "Caçador de Ofertas", "", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if bt.Code != "cacador-de-ofertas" || bt.Rarity != "common" {
		t.Fatalf("badge = %+v", bt)
	}
	if _, err := s.CreateBadgeType(context.Background(), "x", "", "mythic", nil); err == nil {
		t.Fatal("expected unknown rarity error")
	}
}

func TestListUserBadges(t *testing.T) {
	db := newTestDB(t)
	s := NewBadgeService(db, nil)
	bt := seedBadge(t, db, "content-creator")
	granted, _, err := grantBadgeInTx(db, consumer, bt.ID, nil, nil)
	if err != nil || !granted {
		t.Fatalf("grant: %t %v", granted, err)
	}
	if again, _, _ := grantBadgeInTx(db, consumer, bt.ID, nil, nil); again {
		t.Fatal("badge granted twice")
	}

	views, err := s.ListUserBadges(context.Background(), consumer)
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 1 || views[0].Code != "content-creator" {
		t.Fatalf("views = %+v", views)
	}
}
