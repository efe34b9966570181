package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Muestras-api/internal/application/auth"
	"github.com/jhoicas/Muestras-api/internal/domain"
	"github.com/jhoicas/Muestras-api/internal/domain/entity"
	"github.com/jhoicas/Muestras-api/internal/infrastructure/memory"
)

func TestScopeFor(t *testing.T) {
	food := int64(4)
	tests := []struct {
		name        string
		user        entity.User
		country     int64
		category    int64
		wantCountry bool
		wantCat     bool
		wantEmpty   bool
	}{
		{name: "admin ve todo", user: entity.User{Role: entity.RoleAdmin}, country: 9, category: 9, wantCountry: true, wantCat: true},
		{name: "user limitado a sus países", user: entity.User{Role: entity.RoleUser, CountryIDs: []int64{1, 2}}, country: 3, category: 9, wantCountry: false, wantCat: true},
		{name: "user sin países no ve nada", user: entity.User{Role: entity.RoleUser}, country: 1, category: 1, wantEmpty: true},
		{name: "comercial por país y categoría", user: entity.User{Role: entity.RoleCommercial, CountryIDs: []int64{1}, CategoryID: &food}, country: 1, category: 5, wantCountry: true, wantCat: false},
		{name: "comercial sin categoría no ve nada", user: entity.User{Role: entity.RoleCommercial, CountryIDs: []int64{1}}, country: 1, category: 4, wantCountry: true, wantEmpty: true},
		{name: "rol desconocido no ve nada", user: entity.User{Role: entity.Role("otro"), CountryIDs: []int64{1}}, country: 1, category: 1, wantCountry: true, wantEmpty: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scope := auth.ScopeFor(&tt.user)
			assert.Equal(t, tt.wantEmpty, scope.Empty())
			if !tt.wantEmpty {
				assert.Equal(t, tt.wantCountry, scope.AllowsCountry(tt.country))
				assert.Equal(t, tt.wantCat, scope.AllowsCategory(tt.category))
			}
		})
	}
}

func TestScopeResolver_Resolve(t *testing.T) {
	store := memory.NewStore()
	active := store.AddUser(entity.User{Email: "u@x.com", Role: entity.RoleUser, CountryIDs: []int64{2}, Active: true})
	inactive := store.AddUser(entity.User{Email: "i@x.com", Role: entity.RoleUser, Active: false})
	resolver := auth.NewScopeResolver(store.Users())
	ctx := context.Background()

	scope, err := resolver.Resolve(ctx, auth.Principal{UserID: active.ID, Role: entity.RoleUser})
	require.NoError(t, err)
	assert.True(t, scope.AllowsCountry(2))
	assert.False(t, scope.AllowsCountry(1))

	_, err = resolver.Resolve(ctx, auth.Principal{UserID: active.ID, Role: entity.RoleAdmin})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = resolver.Resolve(ctx, auth.Principal{UserID: inactive.ID, Role: entity.RoleUser})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = resolver.Resolve(ctx, auth.Principal{UserID: 404, Role: entity.RoleUser})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
