package integrity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sudhaar/complaint-server/internal/models"
)

func sampleComplaints(n int) []models.Complaint {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	out := make([]models.Complaint, n)
	for i := range out {
		out[i] = models.Complaint{
			ID:        string(rune('A' + i)),
			UserID:    "user-1",
			Title:     "sample",
			Status:    models.StatusPending,
			CreatedAt: base,
			UpdatedAt: base,
		}
	}
	return out
}

func TestEmptyTreeHasNoRoot(t *testing.T) {
	svc := NewService(zap.NewNop().Sugar())
	require.NoError(t, svc.Rebuild(nil))
	assert.Empty(t, svc.Root())
	assert.Zero(t, svc.LeafCount())
}

func TestRootIsDeterministic(t *testing.T) {
	a := NewService(zap.NewNop().Sugar())
	b := NewService(zap.NewNop().Sugar())

	require.NoError(t, a.Rebuild(sampleComplaints(4)))
	require.NoError(t, b.Rebuild(sampleComplaints(4)))

	assert.NotEmpty(t, a.Root())
	assert.Equal(t, a.Root(), b.Root())
}

func TestRootChangesWhenRecordChanges(t *testing.T) {
	svc := NewService(zap.NewNop().Sugar())

	complaints := sampleComplaints(4)
	require.NoError(t, svc.Rebuild(complaints))
	before := svc.Root()

	complaints[2].Status = models.StatusResolved
	require.NoError(t, svc.Rebuild(complaints))

	assert.NotEqual(t, before, svc.Root())
}

func TestProofVerifiesForEveryLeaf(t *testing.T) {
	for _, n := range []int{1, 2, 3, 4, 5, 8, 13} {
		svc := NewService(zap.NewNop().Sugar())
		require.NoError(t, svc.Rebuild(sampleComplaints(n)))

		for i := 0; i < n; i++ {
			proof, err := svc.Proof(i)
			require.NoError(t, err, "n=%d i=%d", n, i)
			assert.True(t, Verify(proof), "n=%d i=%d", n, i)
		}
	}
}

func TestProofOutOfRange(t *testing.T) {
	svc := NewService(zap.NewNop().Sugar())
	require.NoError(t, svc.Rebuild(sampleComplaints(3)))

	_, err := svc.Proof(-1)
	assert.Error(t, err)
	_, err = svc.Proof(3)
	assert.Error(t, err)
}

func TestVerifyRejectsTamperedProof(t *testing.T) {
	svc := NewService(zap.NewNop().Sugar())
	require.NoError(t, svc.Rebuild(sampleComplaints(4)))

	proof, err := svc.Proof(1)
	require.NoError(t, err)
	require.True(t, Verify(proof))

	tampered := *proof
	tampered.LeafHash = "0000000000000000000000000000000000000000000000000000000000000000"
	assert.False(t, Verify(&tampered))

	assert.False(t, Verify(nil))
	assert.False(t, Verify(&models.MerkleProof{}))
}
