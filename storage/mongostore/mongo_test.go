package mongostore

import (
	"testing"
	"time"

	"github.com/gigcatalog/ingestor/storage"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestBuildFilterCityIsCaseInsensitiveExactMatch(t *testing.T) {
	filter := buildFilter(storage.Predicate{City: "New York"})
	cityFilter, ok := filter["venue.city"].(bson.M)
	require.True(t, ok)
	require.Equal(t, "^New York$", cityFilter["$regex"])
	require.Equal(t, "i", cityFilter["$options"])
}

func TestBuildFilterFutureOnlyDefaultsToNow(t *testing.T) {
	filter := buildFilter(storage.Predicate{FutureOnly: true})
	dateFilter, ok := filter["dateStart"].(bson.M)
	require.True(t, ok)
	require.Contains(t, dateFilter, "$gte")
}

func TestBuildFilterExplicitDateRangeOverridesFutureOnly(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	filter := buildFilter(storage.Predicate{FutureOnly: true, DateFrom: from, DateTo: to})
	dateFilter := filter["dateStart"].(bson.M)
	require.Equal(t, from, dateFilter["$gte"])
	require.Equal(t, to, dateFilter["$lte"])
}

func TestRegexEscapeNeutralizesSpecialChars(t *testing.T) {
	require.Equal(t, `rock\.n\.roll`, regexEscape("rock.n.roll"))
}

func TestSortDocDefaultsToDateStart(t *testing.T) {
	d := sortDoc("")
	require.Equal(t, "dateStart", d[0].Key)
}
