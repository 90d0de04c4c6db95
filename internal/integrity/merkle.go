// Package integrity maintains a Merkle tree over the complaint
// collection for tamper evidence. Leaves are SHA-256 hashes of each
// complaint's canonical JSON, in index order; the published root lets an
// auditor detect any silent rewrite of history.
package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sudhaar/complaint-server/internal/models"
)

// Service manages the Merkle tree for complaint integrity.
type Service struct {
	mu            sync.RWMutex
	leaves        []string
	layers        [][]string
	root          string
	lastBuildTime time.Time
	logger        *zap.SugaredLogger
}

// NewService creates an empty integrity service.
func NewService(logger *zap.SugaredLogger) *Service {
	return &Service{
		leaves: make([]string, 0),
		layers: make([][]string, 0),
		logger: logger,
	}
}

// LeafHash returns the canonical hash of a complaint record.
func LeafHash(c *models.Complaint) (string, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("integrity: encoding %s: %w", c.ID, err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// Rebuild replaces the tree with one built over the given complaints,
// in the order provided.
func (s *Service) Rebuild(complaints []models.Complaint) error {
	hashes := make([]string, 0, len(complaints))
	for i := range complaints {
		h, err := LeafHash(&complaints[i])
		if err != nil {
			return err
		}
		hashes = append(hashes, h)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.leaves = hashes
	s.buildTree()
	s.lastBuildTime = time.Now()

	s.logger.Infow("Merkle tree rebuilt",
		"leaves", len(s.leaves),
		"root", s.root,
	)
	return nil
}

// Root returns the current Merkle root.
func (s *Service) Root() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root
}

// LeafCount returns the number of leaves.
func (s *Service) LeafCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.leaves)
}

// LastBuildTime returns when the tree was last rebuilt.
func (s *Service) LastBuildTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastBuildTime
}

// Proof generates a Merkle inclusion proof for the given leaf index.
func (s *Service) Proof(index int) (*models.MerkleProof, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if index < 0 || index >= len(s.leaves) {
		return nil, fmt.Errorf("index %d out of range (0-%d)", index, len(s.leaves)-1)
	}

	proof := &models.MerkleProof{
		LeafHash: s.leaves[index],
		Root:     s.root,
		Index:    index,
		Proof:    make([]models.ProofStep, 0),
	}

	currentIndex := index
	for i := 0; i < len(s.layers)-1; i++ {
		layer := s.layers[i]
		isRight := currentIndex%2 == 1
		siblingIndex := currentIndex + 1
		if isRight {
			siblingIndex = currentIndex - 1
		}

		if siblingIndex < len(layer) {
			position := "right"
			if isRight {
				position = "left"
			}
			proof.Proof = append(proof.Proof, models.ProofStep{
				Hash:     layer[siblingIndex],
				Position: position,
			})
		} else {
			// Odd node at the end of a layer is paired with itself.
			proof.Proof = append(proof.Proof, models.ProofStep{
				Hash:     layer[currentIndex],
				Position: "right",
			})
		}

		currentIndex /= 2
	}

	proof.Verified = true
	return proof, nil
}

// Verify walks a proof path from the leaf up and checks the computed
// root against the claimed one.
func Verify(proof *models.MerkleProof) bool {
	if proof == nil || proof.LeafHash == "" || proof.Root == "" {
		return false
	}

	current := proof.LeafHash
	for _, step := range proof.Proof {
		switch step.Position {
		case "left":
			current = hashPair(step.Hash, current)
		case "right":
			current = hashPair(current, step.Hash)
		default:
			return false
		}
	}
	return current == proof.Root
}

// buildTree constructs the Merkle tree from leaves (must hold write lock).
// Odd nodes are paired with themselves.
func (s *Service) buildTree() {
	if len(s.leaves) == 0 {
		s.root = ""
		s.layers = nil
		return
	}

	currentLayer := make([]string, len(s.leaves))
	copy(currentLayer, s.leaves)
	s.layers = [][]string{currentLayer}

	for len(currentLayer) > 1 {
		nextLayer := make([]string, 0, (len(currentLayer)+1)/2)
		for i := 0; i < len(currentLayer); i += 2 {
			left := currentLayer[i]
			right := left
			if i+1 < len(currentLayer) {
				right = currentLayer[i+1]
			}
			nextLayer = append(nextLayer, hashPair(left, right))
		}
		s.layers = append(s.layers, nextLayer)
		currentLayer = nextLayer
	}

	s.root = currentLayer[0]
}

// hashPair combines and hashes two nodes.
func hashPair(left, right string) string {
	h := sha256.New()
	h.Write([]byte(left + right))
	return hex.EncodeToString(h.Sum(nil))
}
