package dashboard

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VocDashboard/src/processor"
)

func TestParseSelection(t *testing.T) {
	rs := fixture()

	tests := []struct {
		name       string
		query      string
		brands     []string
		categories []string
		start, end string
	}{
		{"defaults", "", []string{"A", "B"}, []string{"상의", "하의"}, "2024-01-02", "2024-03-09"},
		{"empty brand", "brand=", []string{}, []string{"상의", "하의"}, "2024-01-02", "2024-03-09"},
		{"duplicates", "brand=B&brand=B&brand=A", []string{"B", "A"}, []string{"상의", "하의"}, "2024-01-02", "2024-03-09"},
		{"start only", "start=2024-02-01", []string{"A", "B"}, []string{"상의", "하의"}, "2024-02-01", "2024-03-09"},
		{"datetime truncated", "end=2024-02-01T18:30:00", []string{"A", "B"}, []string{"상의", "하의"}, "2024-01-02", "2024-02-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			sel, err := ParseSelection(q, rs)
			require.NoError(t, err)
			assert.Equal(t, tt.brands, sel.Brands)
			assert.Equal(t, tt.categories, sel.Categories)
			require.NotNil(t, sel.Dates)
			assert.Equal(t, tt.start, sel.Dates.Start.Format("2006-01-02"))
			assert.Equal(t, tt.end, sel.Dates.End.Format("2006-01-02"))
		})
	}
}

func TestParseSelectionInvalidDate(t *testing.T) {
	_, err := ParseSelection(url.Values{"end": {"2024-99-01"}}, fixture())
	require.Error(t, err)

	var qe *QueryError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, ParamEnd, qe.Param)
}

func TestParseSelectionWithoutDates(t *testing.T) {
	rs := processor.NewRecordSet([]processor.Record{{Brand: "A", Category: "상의"}})

	sel, err := ParseSelection(url.Values{}, rs)
	require.NoError(t, err)
	assert.Nil(t, sel.Dates, "没有有效日期时不限制日期")

	sel, err = ParseSelection(url.Values{"start": {"2024-01-01"}}, rs)
	require.NoError(t, err)
	require.NotNil(t, sel.Dates)
	assert.Equal(t, sel.Dates.Start, sel.Dates.End)
}

func TestEncodeSelectionRoundTrip(t *testing.T) {
	rs := fixture()
	sel := processor.Selection{
		Brands:     []string{},
		Categories: []string{"하의"},
		Dates:      &processor.DateRange{Start: day(2024, 2, 1), End: day(2024, 2, 28)},
	}

	parsed, err := ParseSelection(EncodeSelection(sel), rs)
	require.NoError(t, err)
	assert.Equal(t, []string{}, parsed.Brands)
	assert.Equal(t, sel.Categories, parsed.Categories)
	assert.Equal(t, *sel.Dates, *parsed.Dates)
}
