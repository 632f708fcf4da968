//go:build integration

package archive

import (
	"context"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"

	"github.com/okian/parakeet/pkg/logger"
)

func TestUploader_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	require.NoError(t, logger.Init())
	ctx := context.Background()

	container, err := tcminio.Run(ctx,
		"minio/minio:RELEASE.2024-10-29T16-01-48Z",
		tcminio.WithUsername("minioadmin"),
		tcminio.WithPassword("minioadmin"),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate minio: %v", err)
		}
	})

	endpoint, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	u, err := Dial(endpoint, "minioadmin", "minioadmin", false, "parakeet-test", WithPrefix("flight-1"))
	require.NoError(t, err)

	file := tempFile(t, "event_log.txt")
	key, err := u.Upload(ctx, file)
	require.NoError(t, err)
	assert.Equal(t, "flight-1/event_log.txt", key)

	info, err := u.store.(*minio.Client).StatObject(ctx, "parakeet-test", key, minio.StatObjectOptions{})
	require.NoError(t, err)
	assert.EqualValues(t, len("timestamp\n"), info.Size)
}
