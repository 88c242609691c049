package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkpoint/internal/checkin/models"
	"checkpoint/internal/checkin/store/memory"
	dErrors "checkpoint/pkg/domain-errors"
)

type brokenDirectory struct{}

func (brokenDirectory) FindMember(context.Context, string) (*models.Member, error) {
	return nil, errors.New("timeout")
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	store.PutMember(models.Member{ID: 7, ShortID: "100007", Name: "Grace"})
	r, err := New(store)
	require.NoError(t, err)

	t.Run("known member", func(t *testing.T) {
		m, err := r.Resolve(ctx, "100007", true)
		require.NoError(t, err)
		assert.Equal(t, int64(7), m.ID)
		assert.Equal(t, "Grace", m.Name)
	})

	t.Run("unknown in strict mode", func(t *testing.T) {
		_, err := r.Resolve(ctx, "999999", true)
		assert.True(t, dErrors.HasCode(err, models.CodeUnknownUser))
	})

	t.Run("unknown in open mode is a nil member", func(t *testing.T) {
		m, err := r.Resolve(ctx, "999999", false)
		require.NoError(t, err)
		assert.Nil(t, m)
	})

	t.Run("directory failure is internal in either mode", func(t *testing.T) {
		broken, err := New(brokenDirectory{})
		require.NoError(t, err)
		for _, strict := range []bool{true, false} {
			_, err := broken.Resolve(ctx, "100007", strict)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
		}
	})
}
