package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/genzugar/backend/core/user"
)

// CreateUser stores an account straight through the repository, bypassing signup validation.
func CreateUser(
	t *testing.T,
	repo user.Repository,
	fullName, email, pwd string,
	isAdmin, isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		FullName:  fullName,
		Email:     email,
		IsAdmin:   isAdmin,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}
