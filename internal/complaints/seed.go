package complaints

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sudhaar/complaint-server/internal/kvstore"
	"github.com/sudhaar/complaint-server/internal/models"
)

// Seed inserts two sample complaints for the bootstrap sample user so a
// fresh install has data to look at. Idempotent: nothing is written when
// the complaint index already exists.
func (s *Service) Seed(ctx context.Context, ownerID, adminID string) error {
	if _, err := s.store.Get(ctx, indexKey); err == nil {
		return nil
	} else if !errors.Is(err, kvstore.ErrNotFound) {
		return fmt.Errorf("complaints: checking seed index: %w", err)
	}

	now := time.Now().UTC()
	placeholder := []string{"/placeholder.svg", "/placeholder.svg", "/placeholder.svg"}

	samples := []*models.Complaint{
		{
			ID:       "C001",
			UserID:   ownerID,
			Title:    "Pothole on Main Street",
			Category: models.CategoryRoads,
			Location: "Main Street, near City Center",
			Description: "Large pothole causing traffic issues and vehicle damage. " +
				"Approximately 2 feet wide and 6 inches deep.",
			Photos:    placeholder,
			Status:    models.StatusPending,
			CreatedAt: now.Add(-2 * 24 * time.Hour),
			UpdatedAt: now.Add(-2 * 24 * time.Hour),
			Messages:  []models.Message{},
		},
		{
			ID:       "C002",
			UserID:   ownerID,
			Title:    "Water Supply Disruption",
			Category: models.CategoryWater,
			Location: "Residential Block A, Sector 5",
			Description: "No water supply for the past 3 days. " +
				"Multiple families affected in the building.",
			Photos:    placeholder,
			Status:    models.StatusInProgress,
			CreatedAt: now.Add(-5 * 24 * time.Hour),
			UpdatedAt: now.Add(-24 * time.Hour),
			Messages: []models.Message{
				{
					ID:   "msg-1",
					Type: models.MessageAdmin,
					Message: "Your complaint has been forwarded to the Water Department. " +
						"Expected resolution time: 2-3 days.",
					Timestamp: now.Add(-24 * time.Hour),
					AdminID:   adminID,
				},
			},
		},
	}

	for _, c := range samples {
		if err := s.insert(ctx, c); err != nil {
			if errors.Is(err, kvstore.ErrVersionMismatch) {
				continue // another instance seeded concurrently
			}
			return err
		}
	}

	s.logger.Infow("Seeded sample complaints", "count", len(samples))
	return nil
}
