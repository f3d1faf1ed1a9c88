package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/receiptcheck/internal/config"
	"github.com/roach88/receiptcheck/internal/payload"
)

func TestWireWithoutPayloadSecret(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "receiptcheck.db")
	cfg, err := config.Load(func(k string) string {
		if k == config.DatastoreURI {
			return path
		}
		return ""
	}, "")
	require.NoError(t, err)
	require.Empty(t, cfg.AESSecretKey)

	env, err := Wire(ctx, cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { env.Close() })

	res, err := env.Datastore.CreateReceiptError(ctx, "evt-nokey", "TO_REVIEW")
	require.NoError(t, err)
	defer env.Datastore.DeleteReceiptError(ctx, "evt-nokey")

	c, err := payload.New("", "")
	require.NoError(t, err)
	plain, err := c.Decrypt(res.Doc.MessagePayload)
	require.NoError(t, err)

	var event map[string]any
	require.NoError(t, json.Unmarshal([]byte(plain), &event))
	assert.Equal(t, "evt-nokey", event["id"])
}
