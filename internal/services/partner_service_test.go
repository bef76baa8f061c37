package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/goout-id/goout/internal/models"
)

func TestPartnerServiceLifecycle(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewPartnerService(db)
	require.NoError(t, err)
	ctx := context.Background()

	partner, err := svc.Create(ctx, PartnerInput{
		Email:       "Hello@Bali-Tours.test",
		Name:        " Bali Tours ",
		Description: "Tours around the island",
	})
	require.NoError(t, err)
	require.Equal(t, "hello@bali-tours.test", partner.Email)
	require.Equal(t, "Bali Tours", partner.Name)

	_, err = svc.Create(ctx, PartnerInput{Email: "x@test", Name: "Bali Tours"})
	require.ErrorIs(t, err, ErrPartnerExists)

	updated, err := svc.Update(ctx, partner.ID, PartnerInput{
		Email:       "team@bali-tours.test",
		Name:        "Bali Tours Co",
		Description: "Updated",
	})
	require.NoError(t, err)
	require.Equal(t, "Bali Tours Co", updated.Name)
	require.Equal(t, "Updated", updated.Description)

	_, err = svc.Update(ctx, "missing", PartnerInput{Name: "Nope"})
	require.ErrorIs(t, err, ErrPartnerNotFound)

	seedTodo(t, db, partner.ID, "Sunrise trekking", 150000)

	loaded, err := svc.Get(ctx, partner.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Todos, 1)

	_, err = svc.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrPartnerNotFound)
}

func TestPartnerServiceListSortsAndSearches(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewPartnerService(db)
	require.NoError(t, err)
	ctx := context.Background()

	for _, name := range []string{"Charlie", "alpha", "Bravo"} {
		_, err := svc.Create(ctx, PartnerInput{Email: "p@test", Name: name})
		require.NoError(t, err)
	}

	partners, total, err := svc.List(ctx, ListOptions{})
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Equal(t, "Bravo", partners[0].Name)

	partners, _, err = svc.List(ctx, ListOptions{OrderBy: "desc"})
	require.NoError(t, err)
	require.Equal(t, "alpha", partners[0].Name)

	partners, total, err = svc.List(ctx, ListOptions{Query: "ALP"})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "alpha", partners[0].Name)

	partners, total, err = svc.List(ctx, ListOptions{Page: 2})
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Empty(t, partners)
}

func TestPartnerServiceDeleteRemovesOwnedTodos(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewPartnerService(db)
	require.NoError(t, err)
	ctx := context.Background()

	partner := seedPartner(t, db, "kuta")
	other := seedPartner(t, db, "ubud")
	user := seedUser(t, db, "ivan@example.com")
	owned := seedTodo(t, db, partner.ID, "Surf lessons", 90000)
	kept := seedTodo(t, db, other.ID, "Rice terrace walk", 50000)
	require.NoError(t, db.Create(&models.Bookmark{TodoID: owned.ID, UserID: user.ID}).Error)

	deleted, err := svc.Delete(ctx, partner.ID)
	require.NoError(t, err)
	require.Equal(t, partner.ID, deleted.ID)

	var count int64
	require.NoError(t, db.Model(&models.Todo{}).Where("id = ?", owned.ID).Count(&count).Error)
	require.Zero(t, count)
	require.NoError(t, db.Model(&models.Bookmark{}).Count(&count).Error)
	require.Zero(t, count)
	require.NoError(t, db.Model(&models.Todo{}).Where("id = ?", kept.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)

	_, err = svc.Delete(ctx, partner.ID)
	require.ErrorIs(t, err, ErrPartnerNotFound)
}
