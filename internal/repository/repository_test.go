package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tribeboard/internal/database"
	"tribeboard/internal/models"
)

func setupDB(t *testing.T) *database.DB {
	t.Helper()
	ctx := context.Background()

	db, err := database.OpenMemory(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.RunMigrations(ctx)
	require.NoError(t, err)
	return db
}

func seedFamily(t *testing.T, db *database.DB) (*models.UserProfile, *models.Family, *models.Membership) {
	t.Helper()
	ctx := context.Background()

	profile := models.NewUserProfile("user-1", "Alex Mawson", "hash-1")
	require.NoError(t, NewProfileRepository(db).Create(ctx, profile))

	family := models.NewFamily("fam-1", "The Mawsons", "MAW2024", profile.ID)
	require.NoError(t, NewFamilyRepository(db).Create(ctx, family))

	membership := models.NewMembership("mem-1", family.ID, profile.ID, models.RoleParentAdmin)
	require.NoError(t, NewMembershipRepository(db).Create(ctx, membership))

	return profile, family, membership
}

func TestProfileRepository(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := NewProfileRepository(db)

	avatar := "https://example.com/a.png"
	profile := models.NewUserProfile("user-1", "Alex Mawson", "hash-1")
	profile.AvatarURL = &avatar
	require.NoError(t, repo.Create(ctx, profile))

	got, err := repo.GetByAppleUserIDHash(ctx, "hash-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Alex Mawson", got.DisplayName)
	require.NotNil(t, got.AvatarURL)
	assert.Equal(t, avatar, *got.AvatarURL)
	assert.True(t, got.CreatedAt.Equal(profile.CreatedAt))
	assert.True(t, got.NeedsSync)
	assert.Nil(t, got.LastSyncDate)

	missing, err := repo.GetByID(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	got.DisplayName = "Alex M"
	got.AvatarURL = nil
	require.NoError(t, repo.Update(ctx, got))

	again, err := repo.GetByID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Alex M", again.DisplayName)
	assert.Nil(t, again.AvatarURL)
}

func TestFamilyRepository(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	profile, family, _ := seedFamily(t, db)
	repo := NewFamilyRepository(db)

	byCode, err := repo.GetByCode(ctx, "MAW2024")
	require.NoError(t, err)
	require.NotNil(t, byCode)
	assert.Equal(t, family.ID, byCode.ID)

	taken, err := repo.CodeExists(ctx, "MAW2024")
	require.NoError(t, err)
	assert.True(t, taken)

	free, err := repo.CodeExists(ctx, "ZZZ999")
	require.NoError(t, err)
	assert.False(t, free)

	families, err := repo.ListForUser(ctx, profile.ID)
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "The Mawsons", families[0].Name)

	dup := models.NewFamily("fam-2", "Other", "MAW2024", profile.ID)
	assert.Error(t, repo.Create(ctx, dup), "family codes are unique")
}

func TestListForUserSkipsInactiveMemberships(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	profile, _, membership := seedFamily(t, db)

	membership.SetStatus(models.StatusRemoved)
	require.NoError(t, NewMembershipRepository(db).Update(ctx, membership))

	families, err := NewFamilyRepository(db).ListForUser(ctx, profile.ID)
	require.NoError(t, err)
	assert.Empty(t, families)
}

func TestMembershipRepository(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	_, family, admin := seedFamily(t, db)
	repo := NewMembershipRepository(db)

	kidProfile := models.NewUserProfile("user-2", "Sam Mawson", "hash-2")
	require.NoError(t, NewProfileRepository(db).Create(ctx, kidProfile))
	kid := models.NewMembership("mem-2", family.ID, kidProfile.ID, models.RoleKid)
	require.NoError(t, repo.Create(ctx, kid))

	members, err := repo.ListByFamily(ctx, family.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	got, err := repo.ActiveParentAdmin(ctx, family.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, admin.ID, got.ID)

	kid.ChangeRole(models.RoleAdult)
	require.NoError(t, repo.Update(ctx, kid))

	reloaded, err := repo.GetByFamilyAndUser(ctx, family.ID, kidProfile.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded)
	assert.Equal(t, models.RoleAdult, reloaded.Role)
	require.NotNil(t, reloaded.LastRoleChangeAt)
	assert.True(t, reloaded.LastRoleChangeAt.Equal(*kid.LastRoleChangeAt))

	assert.Error(t, repo.Create(ctx, models.NewMembership("mem-3", family.ID, kidProfile.ID, models.RoleKid)),
		"a user has one membership per family")
}

func TestSingleActiveParentAdminIndex(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	_, family, admin := seedFamily(t, db)

	other := models.NewUserProfile("user-2", "Sam Mawson", "hash-2")
	require.NoError(t, NewProfileRepository(db).Create(ctx, other))

	repo := NewMembershipRepository(db)
	second := models.NewMembership("mem-2", family.ID, other.ID, models.RoleParentAdmin)
	err := repo.Create(ctx, second)
	require.Error(t, err)
	assert.True(t, db.Dialect.IsUniqueViolation(err), "unexpected error: %v", err)

	// Inactive or non-admin rows are outside the index
	second.Status = models.StatusInvited
	require.NoError(t, repo.Create(ctx, second))

	// A handover works when the old admin is demoted first
	admin.ChangeRole(models.RoleAdult)
	require.NoError(t, repo.Update(ctx, admin))
	second.Status = models.StatusActive
	require.NoError(t, repo.Update(ctx, second))

	got, err := repo.ActiveParentAdmin(ctx, family.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "mem-2", got.ID)
}

func TestMarkSyncedAndListNeedsSync(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	_, family, membership := seedFamily(t, db)

	families := NewFamilyRepository(db)
	dirty, err := families.ListNeedsSync(ctx)
	require.NoError(t, err)
	require.Len(t, dirty, 1)

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clean, err := families.MarkSynced(ctx, family.ID, "fam-1", at, family.UpdatedAt)
	require.NoError(t, err)
	assert.True(t, clean)

	dirty, err = families.ListNeedsSync(ctx)
	require.NoError(t, err)
	assert.Empty(t, dirty)

	got, err := families.GetByID(ctx, family.ID)
	require.NoError(t, err)
	assert.False(t, got.NeedsSync)
	require.NotNil(t, got.RecordID)
	assert.Equal(t, "fam-1", *got.RecordID)
	require.NotNil(t, got.LastSyncDate)
	assert.True(t, got.LastSyncDate.Equal(at))
	assert.True(t, got.IsSynced())

	memberships := NewMembershipRepository(db)
	pending, err := memberships.ListNeedsSync(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, membership.ID, pending[0].ID)
}

func TestMarkSyncedKeepsNewerEdit(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	profile, _, _ := seedFamily(t, db)
	repo := NewProfileRepository(db)

	pushed := profile.UpdatedAt
	edited, err := repo.GetByID(ctx, profile.ID)
	require.NoError(t, err)
	edited.DisplayName = "Alex M"
	edited.UpdatedAt = pushed.Add(time.Millisecond)
	edited.MarkNeedsSync()
	require.NoError(t, repo.Update(ctx, edited))

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clean, err := repo.MarkSynced(ctx, profile.ID, profile.ID, at, pushed)
	require.NoError(t, err)
	assert.False(t, clean)

	got, err := repo.GetByID(ctx, profile.ID)
	require.NoError(t, err)
	assert.True(t, got.NeedsSync, "an edit made after the pushed version must stay dirty")
	assert.Equal(t, "Alex M", got.DisplayName)
	require.NotNil(t, got.LastSyncDate)
	assert.True(t, got.LastSyncDate.Equal(at))
}

func TestUpsert(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := NewProfileRepository(db)

	profile := models.NewUserProfile("user-1", "Alex", "hash-1")
	require.NoError(t, repo.Upsert(ctx, profile))

	profile.DisplayName = "Alex Mawson"
	require.NoError(t, repo.Upsert(ctx, profile))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Alex Mawson", all[0].DisplayName)
}

func TestSessionRepository(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	profile, _, _ := seedFamily(t, db)
	repo := NewSessionRepository(db)

	_, err := repo.Create(ctx, "live", profile.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)
	_, err = repo.Create(ctx, "stale", profile.ID, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	removed, err := repo.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	live, err := repo.Get(ctx, "live")
	require.NoError(t, err)
	require.NotNil(t, live)
	assert.Equal(t, profile.ID, live.UserID)
	assert.False(t, live.IsExpired())

	stale, err := repo.Get(ctx, "stale")
	require.NoError(t, err)
	assert.Nil(t, stale)

	require.NoError(t, repo.Delete(ctx, "live"))
	gone, err := repo.Get(ctx, "live")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestInvitationRepository(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	profile, family, _ := seedFamily(t, db)
	repo := NewInvitationRepository(db)

	inv := &models.Invitation{
		ID:        "inv-1",
		Token:     "token-1",
		FamilyID:  family.ID,
		Email:     "grandma@example.com",
		Role:      models.RoleVisitor,
		InvitedBy: profile.ID,
		CreatedAt: models.Timestamp(),
		ExpiresAt: models.Timestamp().Add(7 * 24 * time.Hour),
	}
	require.NoError(t, repo.Create(ctx, inv))

	got, err := repo.GetByToken(ctx, "token-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.RoleVisitor, got.Role)
	assert.True(t, got.IsValid())

	claimed, err := repo.MarkUsed(ctx, "token-1", "user-9", time.Now())
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = repo.MarkUsed(ctx, "token-1", "user-10", time.Now())
	require.NoError(t, err)
	assert.False(t, claimed, "an invitation can only be used once")

	used, err := repo.GetByToken(ctx, "token-1")
	require.NoError(t, err)
	assert.True(t, used.IsUsed())
	require.NotNil(t, used.UsedBy)
	assert.Equal(t, "user-9", *used.UsedBy)

	list, err := repo.ListByFamily(ctx, family.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSyncStateRepository(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := NewSyncStateRepository(db)

	first, err := repo.Checkpoint(ctx, "CKFamily")
	require.NoError(t, err)
	assert.Zero(t, first)

	require.NoError(t, repo.SetCheckpoint(ctx, "CKFamily", 41))
	require.NoError(t, repo.SetCheckpoint(ctx, "CKFamily", 42))

	got, err := repo.Checkpoint(ctx, "CKFamily")
	require.NoError(t, err)
	assert.Equal(t, int64(42), got)

	other, err := repo.Checkpoint(ctx, "CKMembership")
	require.NoError(t, err)
	assert.Zero(t, other)

	require.NoError(t, repo.Reset(ctx))
	reset, err := repo.Checkpoint(ctx, "CKFamily")
	require.NoError(t, err)
	assert.Zero(t, reset)
}

func TestRepositoriesInTransaction(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	err := db.WithTx(ctx, func(tx *database.Tx) error {
		profile := models.NewUserProfile("user-1", "Alex", "hash-1")
		if err := NewProfileRepository(tx).Create(ctx, profile); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	got, err := NewProfileRepository(db).GetByID(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, got, "rolled back insert should not be visible")
}
