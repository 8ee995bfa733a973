package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opencensus.io/stats/view"
)

func TestOpenCensusCollector(t *testing.T) {
	c, err := NewOpenCensusCollector()
	require.NoError(t, err)
	defer view.Unregister(Views...)

	c.RecordTierAttempt(context.Background(), "youtube", "captions", OUTCOME_SUCCESS, 20*time.Millisecond)
	c.RecordTierAttempt(context.Background(), "youtube", "captions", OUTCOME_FAILURE, 30*time.Millisecond)

	rows, err := view.RetrieveData("canvasflow/tier_attempts")
	require.NoError(t, err)
	total := int64(0)
	for _, row := range rows {
		total += row.Data.(*view.CountData).Value
	}
	require.Equal(t, int64(2), total)
}
