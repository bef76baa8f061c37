package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBookmarkServiceAddRemove(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewBookmarkService(db)
	require.NoError(t, err)
	ctx := context.Background()

	partner := seedPartner(t, db, "amed")
	user := seedUser(t, db, "kim@example.com")
	todo := seedTodo(t, db, partner.ID, "Freediving intro", 400000)

	bookmark, err := svc.Add(ctx, user.ID, todo.ID)
	require.NoError(t, err)
	require.Equal(t, todo.ID, bookmark.TodoID)

	_, err = svc.Add(ctx, user.ID, todo.ID)
	require.ErrorIs(t, err, ErrAlreadyBookmarked)

	_, err = svc.Add(ctx, user.ID, "missing")
	require.ErrorIs(t, err, ErrTodoNotFound)

	bookmarks, total, err := svc.List(ctx, user.ID, ListOptions{})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.NotNil(t, bookmarks[0].Todo)
	require.Equal(t, "Freediving intro", bookmarks[0].Todo.Title)

	removed, err := svc.Remove(ctx, user.ID, todo.ID)
	require.NoError(t, err)
	require.Equal(t, bookmark.ID, removed.ID)

	_, err = svc.Remove(ctx, user.ID, todo.ID)
	require.ErrorIs(t, err, ErrBookmarkNotFound)
}
