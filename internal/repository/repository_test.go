package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Trandsoulz/student-connect-client/internal/model"
	"github.com/Trandsoulz/student-connect-client/internal/utils"
)

func TestUserRepo_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	r := NewUserRepo()

	u, err := r.Create(ctx, " Ada ", "Student@University.edu ", "validpass", model.RoleStudent, bcrypt.MinCost)
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.Fullname)
	assert.Equal(t, "student@university.edu", u.Email)
	assert.True(t, u.IsActive)
	assert.True(t, utils.VerifyPassword(u.PasswordHash, "validpass"))

	got, err := r.GetByEmail(ctx, "STUDENT@university.edu")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = r.Create(ctx, "Other", "student@university.edu", "x", model.RoleStudent, bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrEmailExists)

	_, err = r.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, u.Email, u.Public().Email)
}

func TestFeedbackRepo_Lifecycle(t *testing.T) {
	ctx := context.Background()
	users := NewUserRepo()
	student, err := users.Create(ctx, "Ada", "a@u.edu", "validpass", model.RoleStudent, bcrypt.MinCost)
	require.NoError(t, err)
	other, err := users.Create(ctx, "Bob", "b@u.edu", "validpass", model.RoleStudent, bcrypt.MinCost)
	require.NoError(t, err)
	admin, err := users.Create(ctx, "Root", "r@u.edu", "validpass", model.RoleAdmin, bcrypt.MinCost)
	require.NoError(t, err)

	repo := NewFeedbackRepo(users)
	clock := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { clock = clock.Add(time.Minute); return clock }

	first, err := repo.Create(ctx, student.ID, "Wifi", model.CategoryTechnology, "Slow in the library")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, first.Status)
	assert.Equal(t, "Ada", first.Student.Fullname)
	second, err := repo.Create(ctx, student.ID, "Lights", model.CategoryFacility, "Broken")
	require.NoError(t, err)
	_, err = repo.Create(ctx, other.ID, "Food", model.CategoryWelfare, "Cold")
	require.NoError(t, err)

	mine, err := repo.ListByStudent(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = repo.GetOwned(ctx, first.ID, other.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	status := model.StatusResolved
	resp := "Fixed the access point"
	upd, err := repo.Update(ctx, first.ID, admin.ID, FeedbackUpdate{Status: &status, AdminResponse: &resp})
	require.NoError(t, err)
	assert.Equal(t, model.StatusResolved, upd.Status)
	assert.Equal(t, resp, upd.AdminResponse)
	require.NotNil(t, upd.RespondedBy)
	assert.Equal(t, "Root", upd.RespondedBy.Fullname)
	require.NotNil(t, upd.RespondedAt)
	assert.True(t, upd.UpdatedAt.After(upd.CreatedAt))

	onlyStatus := model.StatusInProgress
	upd, err = repo.Update(ctx, second.ID, admin.ID, FeedbackUpdate{Status: &onlyStatus})
	require.NoError(t, err)
	assert.Nil(t, upd.RespondedBy)

	require.NoError(t, repo.Delete(ctx, first.ID))
	assert.ErrorIs(t, repo.Delete(ctx, first.ID), ErrNotFound)
	_, err = repo.Get(ctx, first.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFeedbackRepo_UnchangedResponseKeepsStamp(t *testing.T) {
	ctx := context.Background()
	users := NewUserRepo()
	student, err := users.Create(ctx, "Ada", "a@u.edu", "validpass", model.RoleStudent, bcrypt.MinCost)
	require.NoError(t, err)
	first, err := users.Create(ctx, "Root", "r@u.edu", "validpass", model.RoleAdmin, bcrypt.MinCost)
	require.NoError(t, err)
	second, err := users.Create(ctx, "Ops", "o@u.edu", "validpass", model.RoleAdmin, bcrypt.MinCost)
	require.NoError(t, err)

	repo := NewFeedbackRepo(users)
	clock := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { clock = clock.Add(time.Minute); return clock }

	f, err := repo.Create(ctx, student.ID, "Wifi", model.CategoryTechnology, "Slow")
	require.NoError(t, err)

	resp := "On it"
	stamped, err := repo.Update(ctx, f.ID, first.ID, FeedbackUpdate{AdminResponse: &resp})
	require.NoError(t, err)
	require.NotNil(t, stamped.RespondedAt)

	// same text (modulo whitespace) with a new status keeps the first stamp
	status := model.StatusResolved
	same := "  On it "
	upd, err := repo.Update(ctx, f.ID, second.ID, FeedbackUpdate{Status: &status, AdminResponse: &same})
	require.NoError(t, err)
	assert.Equal(t, model.StatusResolved, upd.Status)
	require.NotNil(t, upd.RespondedBy)
	assert.Equal(t, "Root", upd.RespondedBy.Fullname)
	assert.Equal(t, *stamped.RespondedAt, *upd.RespondedAt)
	assert.True(t, upd.UpdatedAt.After(*upd.RespondedAt))

	changed := "Fixed"
	upd, err = repo.Update(ctx, f.ID, second.ID, FeedbackUpdate{AdminResponse: &changed})
	require.NoError(t, err)
	assert.Equal(t, "Ops", upd.RespondedBy.Fullname)
	assert.True(t, upd.RespondedAt.After(*stamped.RespondedAt))
}

func TestRepos_HonourCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	users := NewUserRepo()
	_, err := users.GetByEmail(ctx, "a@u.edu")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = NewFeedbackRepo(users).ListAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
