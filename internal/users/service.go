package users

import (
	"context"

	"github.com/ariefcatur/go-suitcase-market.git/internal/authz"
	"github.com/ariefcatur/go-suitcase-market.git/internal/ledger"
	"github.com/ariefcatur/go-suitcase-market.git/internal/market"
)

// Service covers the admin account operations. Signup and verification
// delivery live in the auth service, not here.
type Service struct {
	Store ledger.Store
}

func (s *Service) List(ctx context.Context, caller authz.Caller, role market.Role) ([]market.User, error) {
	if err := authz.Check(caller, authz.OpListUsers, ""); err != nil {
		return nil, err
	}
	return s.Store.ListUsers(ctx, ledger.UserFilter{Role: role})
}

func (s *Service) SetVerified(ctx context.Context, caller authz.Caller, id string, verified bool) (market.User, error) {
	if err := authz.Check(caller, authz.OpUpdateUserStatus, ""); err != nil {
		return market.User{}, err
	}
	u, err := s.Store.GetUser(ctx, id)
	if err != nil {
		return market.User{}, err
	}
	u.IsVerified = verified
	return s.Store.PutUser(ctx, u, u.Version)
}

func (s *Service) Delete(ctx context.Context, caller authz.Caller, id string) error {
	if err := authz.Check(caller, authz.OpDeleteUser, ""); err != nil {
		return err
	}
	return s.Store.DeleteUser(ctx, id)
}
