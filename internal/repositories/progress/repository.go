// Package progress stores the durable progression documents of a player:
// the experience record, the learning progress snapshot and CTF lab progress.
package progress

import (
	"context"

	"github.com/KirkDiggler/cyber-arena/internal/entities"
)

//go:generate mockgen -destination=mock/mock_repository.go -package=progressrepomock github.com/KirkDiggler/cyber-arena/internal/repositories/progress Repository

// GetInput identifies a player
type GetInput struct {
	PlayerID string
}

// GetExperienceOutput contains the stored experience record
type GetExperienceOutput struct {
	Record *entities.ExperienceRecord
}

// SaveExperienceInput contains the record to store
type SaveExperienceInput struct {
	Record *entities.ExperienceRecord
}

// SaveExperienceOutput contains the stored record
type SaveExperienceOutput struct {
	Record *entities.ExperienceRecord
}

// GetProgressOutput contains the learning progress snapshot
type GetProgressOutput struct {
	Snapshot *entities.ProgressSnapshot
}

// SaveProgressInput contains the snapshot to store
type SaveProgressInput struct {
	Snapshot *entities.ProgressSnapshot
}

// GetLabProgressOutput contains the CTF lab progress
type GetLabProgressOutput struct {
	Progress *entities.LabProgress
}

// SaveLabProgressInput contains the lab progress to store
type SaveLabProgressInput struct {
	Progress *entities.LabProgress
}

// Repository defines durable storage for progression documents.
// Every Get returns a NotFound error when nothing was stored yet.
type Repository interface {
	GetExperience(ctx context.Context, input GetInput) (*GetExperienceOutput, error)
	SaveExperience(ctx context.Context, input SaveExperienceInput) (*SaveExperienceOutput, error)

	GetProgress(ctx context.Context, input GetInput) (*GetProgressOutput, error)
	SaveProgress(ctx context.Context, input SaveProgressInput) error

	GetLabProgress(ctx context.Context, input GetInput) (*GetLabProgressOutput, error)
	SaveLabProgress(ctx context.Context, input SaveLabProgressInput) error
}
