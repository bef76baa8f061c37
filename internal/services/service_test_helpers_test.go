package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/goout-id/goout/internal/database/testutil"
	"github.com/goout-id/goout/internal/models"
	"github.com/goout-id/goout/internal/verification"
)

type stubTicketIssuer struct {
	userIDs []string
	err     error
}

func (s *stubTicketIssuer) IssueTicket(_ context.Context, userID string) (verification.Ticket, error) {
	if s.err != nil {
		return verification.Ticket{}, s.err
	}
	s.userIDs = append(s.userIDs, userID)
	return verification.Ticket{Token: "ticket-" + userID, Expires: time.Now().Add(30 * time.Minute)}, nil
}

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
}

func seedUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	now := time.Now().UTC()
	user := &models.User{Email: email, FullName: "User " + email, EmailVerified: &now}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedPartner(t *testing.T, db *gorm.DB, name string) *models.Partner {
	t.Helper()
	partner := &models.Partner{Email: "hello@" + name + ".test", Name: name}
	require.NoError(t, db.Create(partner).Error)
	return partner
}

func todoInput(partnerID, title string, prices ...int64) TodoInput {
	input := TodoInput{
		Title:       title,
		Description: "A day out in Bali",
		PartnerID:   partnerID,
		Category:    "Adventure",
		Images:      []string{"https://cdn.test/a.jpg", "https://cdn.test/b.jpg"},
		Includes:    []string{"Lunch", "Guide"},
		Location:    models.Location{Area: "Ubud", City: "Gianyar", Region: "Bali", Country: "Indonesia"},
	}
	for i, price := range prices {
		input.Packages = append(input.Packages, models.TodoPackage{Pax: i + 1, Price: price})
	}
	return input
}

func seedTodo(t *testing.T, db *gorm.DB, partnerID, title string, price int64) *models.Todo {
	t.Helper()
	svc, err := NewTodoService(db)
	require.NoError(t, err)
	todo, err := svc.Create(context.Background(), todoInput(partnerID, title, price))
	require.NoError(t, err)
	return todo
}
