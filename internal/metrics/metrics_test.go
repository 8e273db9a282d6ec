package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSyncRunsTotal_Labels(t *testing.T) {
	c := SyncRunsTotal.WithLabelValues("delta", "success")
	before := testutil.ToFloat64(c)
	c.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(c))
}

func TestCollectorsLint(t *testing.T) {
	problems, err := testutil.CollectAndLint(SyncItemsTotal)
	assert.NoError(t, err)
	assert.Empty(t, problems)
}
