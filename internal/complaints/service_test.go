package complaints

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sudhaar/complaint-server/internal/apperror"
	"github.com/sudhaar/complaint-server/internal/kvstore"
	"github.com/sudhaar/complaint-server/internal/models"
)

func newTestService(t *testing.T) (*Service, kvstore.Store) {
	t.Helper()
	store := kvstore.NewMemory()
	return NewService(store, zap.NewNop().Sugar()), store
}

func validInput() CreateInput {
	return CreateInput{
		Title:       "Pothole on Main Street",
		Category:    models.CategoryRoads,
		Location:    "Main Street, near City Center",
		Description: "Large pothole causing traffic issues and vehicle damage.",
		Photos:      []string{"p1", "p2", "p3"},
	}
}

func TestCreateStartsPendingWithEmptyThread(t *testing.T) {
	svc, _ := newTestService(t)

	c, err := svc.Create(context.Background(), "user-1", validInput())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(c.ID, "C"))
	assert.Equal(t, "user-1", c.UserID)
	assert.Equal(t, models.StatusPending, c.Status)
	assert.Empty(t, c.Messages)
	assert.Len(t, c.Photos, 3)
	assert.Equal(t, c.CreatedAt, c.UpdatedAt)
}

func TestCreatePhotoBounds(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, n := range []int{0, 1, 2, 6} {
		in := validInput()
		in.Photos = make([]string, n)
		_, err := svc.Create(ctx, "user-1", in)
		assert.ErrorIs(t, err, apperror.ErrValidation, "photos=%d", n)
	}

	for _, n := range []int{3, 4, 5} {
		in := validInput()
		in.Photos = make([]string, n)
		c, err := svc.Create(ctx, "user-1", in)
		require.NoError(t, err, "photos=%d", n)
		assert.Len(t, c.Photos, n)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*CreateInput)
	}{
		{"missing title", func(in *CreateInput) { in.Title = " " }},
		{"unknown category", func(in *CreateInput) { in.Category = "astrology" }},
		{"missing location", func(in *CreateInput) { in.Location = "" }},
		{"short description", func(in *CreateInput) { in.Description = "too short" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			_, err := svc.Create(ctx, "user-1", in)
			assert.ErrorIs(t, err, apperror.ErrValidation)
		})
	}
}

func TestListByOwnerScopesToOwner(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, "user-1", validInput())
	require.NoError(t, err)
	_, err = svc.Create(ctx, "user-2", validInput())
	require.NoError(t, err)
	second, err := svc.Create(ctx, "user-1", validInput())
	require.NoError(t, err)

	mine, err := svc.ListByOwner(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	for _, c := range mine {
		assert.Equal(t, "user-1", c.UserID)
	}
	// Creation order is preserved.
	assert.Equal(t, first.ID, mine[0].ID)
	assert.Equal(t, second.ID, mine[1].ID)

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestFilterByCategory(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	roads := validInput()
	_, err := svc.Create(ctx, "user-1", roads)
	require.NoError(t, err)

	water := validInput()
	water.Category = models.CategoryWater
	_, err = svc.Create(ctx, "user-1", water)
	require.NoError(t, err)

	filtered, err := svc.FilterByCategory(ctx, models.CategoryWater)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, models.CategoryWater, filtered[0].Category)

	everything, err := svc.FilterByCategory(ctx, "all")
	require.NoError(t, err)
	assert.Len(t, everything, 2)
}

func TestSearchFiltersComposeConjunctively(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	pothole, err := svc.Create(ctx, "user-1", validInput())
	require.NoError(t, err)

	water := validInput()
	water.Title = "Water Supply Disruption"
	water.Category = models.CategoryWater
	_, err = svc.Create(ctx, "user-1", water)
	require.NoError(t, err)

	// Case-insensitive title substring.
	got, err := svc.Search(ctx, SearchFilter{Query: "pothole"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, pothole.ID, got[0].ID)

	// Id substring matches too.
	got, err = svc.Search(ctx, SearchFilter{Query: strings.ToLower(pothole.ID)})
	require.NoError(t, err)
	require.Len(t, got, 1)

	// Matching query narrowed by a non-matching category: empty.
	got, err = svc.Search(ctx, SearchFilter{Query: "pothole", Category: models.CategoryWater})
	require.NoError(t, err)
	assert.Empty(t, got)

	// Status filter narrows; "all" does not.
	got, err = svc.Search(ctx, SearchFilter{Status: string(models.StatusResolved)})
	require.NoError(t, err)
	assert.Empty(t, got)
	got, err = svc.Search(ctx, SearchFilter{Status: "all", Category: "all"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	// Owner scoping applies before everything else.
	got, err = svc.Search(ctx, SearchFilter{OwnerID: "user-2", Query: "pothole"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAppendAdminResponse(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, "user-1", validInput())
	require.NoError(t, err)

	updated, err := svc.AppendAdminResponse(ctx, c.ID, "admin-1", models.StatusResolved, "fixed")
	require.NoError(t, err)

	assert.Equal(t, models.StatusResolved, updated.Status)
	require.Len(t, updated.Messages, 1)
	assert.Equal(t, models.MessageAdmin, updated.Messages[0].Type)
	assert.Equal(t, "admin-1", updated.Messages[0].AdminID)
	assert.Equal(t, "fixed", updated.Messages[0].Message)
	assert.True(t, updated.UpdatedAt.After(c.UpdatedAt) || updated.UpdatedAt.Equal(c.UpdatedAt))

	// Re-read through the repository shows the persisted change.
	reread, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, reread.Status)
	assert.Len(t, reread.Messages, 1)
}

func TestAppendAdminResponseEmptyMessageLeavesStoreUntouched(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, "user-1", validInput())
	require.NoError(t, err)

	before, err := store.Get(ctx, complaintKey(c.ID))
	require.NoError(t, err)

	_, err = svc.AppendAdminResponse(ctx, c.ID, "admin-1", models.StatusResolved, "   ")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	after, err := store.Get(ctx, complaintKey(c.ID))
	require.NoError(t, err)
	assert.Equal(t, before.Value, after.Value)
	assert.Equal(t, before.Version, after.Version)
}

func TestAppendAdminResponseUnknownComplaint(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.AppendAdminResponse(context.Background(), "C404", "admin-1", models.StatusResolved, "done")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestAppendAdminResponseInvalidStatus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, "user-1", validInput())
	require.NoError(t, err)

	_, err = svc.AppendAdminResponse(ctx, c.ID, "admin-1", models.Status("archived"), "done")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestStatusWorkflow(t *testing.T) {
	cases := []struct {
		from, to models.Status
		legal    bool
	}{
		{models.StatusPending, models.StatusInProgress, true},
		{models.StatusPending, models.StatusResolved, true},
		{models.StatusPending, models.StatusRejected, true},
		{models.StatusPending, models.StatusPending, true},
		{models.StatusInProgress, models.StatusResolved, true},
		{models.StatusInProgress, models.StatusRejected, true},
		{models.StatusInProgress, models.StatusPending, false},
		{models.StatusResolved, models.StatusInProgress, true},
		{models.StatusResolved, models.StatusPending, false},
		{models.StatusResolved, models.StatusRejected, false},
		{models.StatusRejected, models.StatusInProgress, true},
		{models.StatusRejected, models.StatusResolved, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.legal, legalTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestIllegalTransitionRejected(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, "user-1", validInput())
	require.NoError(t, err)

	_, err = svc.AppendAdminResponse(ctx, c.ID, "admin-1", models.StatusRejected, "not ours")
	require.NoError(t, err)

	// rejected -> resolved is not in the workflow.
	_, err = svc.AppendAdminResponse(ctx, c.ID, "admin-1", models.StatusResolved, "actually fixed")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	// Reopening into in_progress is.
	reopened, err := svc.AppendAdminResponse(ctx, c.ID, "admin-1", models.StatusInProgress, "reopening")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, reopened.Status)
}

func TestStats(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c1, err := svc.Create(ctx, "user-1", validInput())
	require.NoError(t, err)

	water := validInput()
	water.Category = models.CategoryWater
	_, err = svc.Create(ctx, "user-1", water)
	require.NoError(t, err)

	_, err = svc.AppendAdminResponse(ctx, c1.ID, "admin-1", models.StatusResolved, "fixed")
	require.NoError(t, err)

	stats, categories, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 1, stats.Resolved)

	byName := map[string]int{}
	for _, cc := range categories {
		byName[cc.Category] = cc.Count
	}
	assert.Equal(t, 1, byName[models.CategoryRoads])
	assert.Equal(t, 1, byName[models.CategoryWater])
}

func TestSeedIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Seed(ctx, "user-1", "admin-1"))

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "C001", all[0].ID)
	assert.Equal(t, models.StatusPending, all[0].Status)
	assert.Equal(t, "C002", all[1].ID)
	assert.Equal(t, models.StatusInProgress, all[1].Status)
	require.Len(t, all[1].Messages, 1)

	require.NoError(t, svc.Seed(ctx, "user-1", "admin-1"))
	again, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, again, 2)
}

// The end-to-end tracking scenario: a citizen files a pothole complaint,
// an admin forwards it to the roads department.
func TestPotholeScenario(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, "user-1", CreateInput{
		Title:       "Pothole on Main Street",
		Category:    models.CategoryRoads,
		Location:    "Main Street",
		Description: "Large pothole near the crossing, two feet wide.",
		Photos:      []string{"a", "b", "c"},
	})
	require.NoError(t, err)

	mine, err := svc.ListByOwner(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, models.StatusPending, mine[0].Status)

	_, err = svc.AppendAdminResponse(ctx, c.ID, "admin-1", models.StatusInProgress, "Forwarded to Roads Dept")
	require.NoError(t, err)

	mine, err = svc.ListByOwner(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, models.StatusInProgress, mine[0].Status)
	require.Len(t, mine[0].Messages, 1)
	assert.Equal(t, "Forwarded to Roads Dept", mine[0].Messages[0].Message)
}
