package changedetect_test

import (
	"testing"
	"time"

	"github.com/gigcatalog/ingestor/changedetect"
	"github.com/gigcatalog/ingestor/eventmodel"
	"github.com/stretchr/testify/require"
)

func TestClassifyFirstRun(t *testing.T) {
	current := []eventmodel.Event{{ID: "a", Hash: "H1"}}
	res := changedetect.Classify(current, nil)
	require.Len(t, res.New, 1)
	require.Empty(t, res.Updated)
	require.Empty(t, res.Unchanged)
}

func TestClassifyHashBasedUpdate(t *testing.T) {
	previous := []eventmodel.Event{{ID: "a", Hash: "H1"}}
	current := []eventmodel.Event{{ID: "a", Hash: "H2"}}
	res := changedetect.Classify(current, previous)
	require.Len(t, res.Updated, 1)

	firstSeen := time.Now().Add(-72 * time.Hour)
	previous[0].FirstSeenAt = &firstSeen
	merged := changedetect.Merge(res, previous, time.Now())
	require.Len(t, merged, 1)
	require.Equal(t, firstSeen, *merged[0].FirstSeenAt)
}

func TestClassifyUnchanged(t *testing.T) {
	previous := []eventmodel.Event{{ID: "a", Hash: "H1"}}
	current := []eventmodel.Event{{ID: "a", Hash: "H1"}}
	res := changedetect.Classify(current, previous)
	require.Len(t, res.Unchanged, 1)
}

func TestAbsenceIsNotSurfacedAsDeletion(t *testing.T) {
	previous := []eventmodel.Event{{ID: "a", Hash: "H1"}, {ID: "b", Hash: "H2"}}
	current := []eventmodel.Event{{ID: "a", Hash: "H1"}}
	res := changedetect.Classify(current, previous)
	require.Len(t, res.Unchanged, 1)
	require.Empty(t, res.New)
	require.Empty(t, res.Updated)
}
