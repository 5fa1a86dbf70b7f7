package usecase

import (
	"context"
	"fmt"

	"github.com/V4T54L/string-analyzer/internal/domain"
)

// AdminStreamUseCase provides read-only inspection of the record event stream.
type AdminStreamUseCase struct {
	repo   domain.StreamAdminRepository
	stream string
}

// NewAdminStreamUseCase creates a new AdminStreamUseCase for stream.
func NewAdminStreamUseCase(repo domain.StreamAdminRepository, stream string) *AdminStreamUseCase {
	return &AdminStreamUseCase{repo: repo, stream: stream}
}

// Status returns the stream length and its consumer groups.
func (uc *AdminStreamUseCase) Status(ctx context.Context) (domain.StreamStatus, error) {
	length, err := uc.repo.StreamLength(ctx, uc.stream)
	if err != nil {
		return domain.StreamStatus{}, fmt.Errorf("failed to read stream length: %w", err)
	}
	groups, err := uc.repo.GetGroupInfo(ctx, uc.stream)
	if err != nil {
		return domain.StreamStatus{}, fmt.Errorf("failed to read consumer groups: %w", err)
	}
	if groups == nil {
		groups = []domain.ConsumerGroupInfo{}
	}
	return domain.StreamStatus{Stream: uc.stream, Length: length, Groups: groups}, nil
}

func (uc *AdminStreamUseCase) GetPendingSummary(ctx context.Context, group string) (*domain.PendingMessageSummary, error) {
	return uc.repo.GetPendingSummary(ctx, uc.stream, group)
}
