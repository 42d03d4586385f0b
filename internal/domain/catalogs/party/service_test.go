package party_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesledger/internal/core/apperror"
	"salesledger/internal/core/id"
	"salesledger/internal/domain/catalogs/party"
	"salesledger/internal/infrastructure/storage/memory"
)

func setup(t *testing.T) (*party.Services, *party.Directory) {
	t.Helper()
	store := memory.NewStore()
	clients := memory.NewClientRepo(store)
	vendors := memory.NewVendorRepo(store)
	zones := memory.NewZoneRepo(store)
	return party.NewServices(clients, vendors, zones, store), party.NewDirectory(clients, vendors, zones)
}

func TestClient_EmailValidation(t *testing.T) {
	svcs, _ := setup(t)
	ctx := context.Background()

	c := party.NewClient("Ana")
	email := "  ANA@example.com "
	c.Email = &email
	require.NoError(t, svcs.Clients.Create(ctx, c))
	assert.Equal(t, "ANA@example.com", *c.Email)

	bad := party.NewClient("Bob")
	invalid := "not-an-email"
	bad.Email = &invalid
	err := svcs.Clients.Create(ctx, bad)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	dup := party.NewClient("Ana Clone")
	again := "ana@example.com"
	dup.Email = &again
	err = svcs.Clients.Create(ctx, dup)
	assert.True(t, apperror.IsCode(err, apperror.CodeDuplicate))
}

func TestZone_NameIsRequired(t *testing.T) {
	svcs, _ := setup(t)

	err := svcs.Zones.Create(context.Background(), party.NewZone("   "))
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestDirectory_Exists(t *testing.T) {
	svcs, dir := setup(t)
	ctx := context.Background()

	v := party.NewVendor("Luis")
	require.NoError(t, svcs.Vendors.Create(ctx, v))

	ok, err := dir.Exists(ctx, party.KindVendor, v.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// inactive vendors still exist
	_, err = svcs.Vendors.Toggle(ctx, v.ID)
	require.NoError(t, err)
	ok, err = dir.Exists(ctx, party.KindVendor, v.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, svcs.Vendors.Archive(ctx, v.ID))
	ok, err = dir.Exists(ctx, party.KindVendor, v.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = dir.Exists(ctx, party.KindClient, v.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = dir.Exists(ctx, party.Kind("supplier"), id.New())
	assert.Error(t, err)
}

func TestKind_Valid(t *testing.T) {
	assert.True(t, party.KindZone.Valid())
	assert.False(t, party.Kind("warehouse").Valid())
}
