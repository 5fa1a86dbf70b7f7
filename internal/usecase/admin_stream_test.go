package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/V4T54L/string-analyzer/internal/domain"
	"github.com/V4T54L/string-analyzer/internal/domain/mocks"
)

func TestAdminStreamUseCase_Status(t *testing.T) {
	t.Run("reports length and groups", func(t *testing.T) {
		repo := &mocks.MockStreamAdminRepository{
			Length: 7,
			Groups: []domain.ConsumerGroupInfo{{Name: "string-mirrors", Consumers: 1, Pending: 2}},
		}
		uc := NewAdminStreamUseCase(repo, "string_events")

		status, err := uc.Status(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "string_events", status.Stream)
		assert.Equal(t, int64(7), status.Length)
		require.Len(t, status.Groups, 1)
		assert.Equal(t, int64(2), status.Groups[0].Pending)
	})

	t.Run("missing stream has no groups", func(t *testing.T) {
		uc := NewAdminStreamUseCase(&mocks.MockStreamAdminRepository{}, "string_events")
		status, err := uc.Status(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, status.Groups)
		assert.Empty(t, status.Groups)
	})

	t.Run("length error", func(t *testing.T) {
		uc := NewAdminStreamUseCase(&mocks.MockStreamAdminRepository{LengthErr: errors.New("boom")}, "string_events")
		_, err := uc.Status(context.Background())
		assert.Error(t, err)
	})
}
