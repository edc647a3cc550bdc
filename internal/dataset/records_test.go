package dataset

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ImamSharif/Healthcare-analytics/internal/shared/testutil"
	"github.com/ImamSharif/Healthcare-analytics/pkg/contracts/domain"
)

func mustFrame(t *testing.T, content string) *Frame {
	t.Helper()
	frame, err := ReadCSV("fixture.csv", strings.NewReader(content))
	require.NoError(t, err)
	return frame
}

func TestParseRecordsScenario(t *testing.T) {
	ds, err := ParseRecords(mustFrame(t, testutil.ScenarioCSV))
	require.NoError(t, err)

	require.Equal(t, 3, ds.Len())
	assert.Equal(t, testutil.ScenarioRecords()[0].Month, ds.Records[0].Month)
	assert.Equal(t, "ICB_B", ds.Records[1].ICBName)
	assert.True(t, testutil.Dec("840").Equal(ds.Records[2].NIC))
	assert.True(t, ds.HasColumn(domain.ColumnBNFName))
	assert.Zero(t, ds.UnknownMonths)
}

func TestParseRecordsOrdersByMonthWithUnknownLast(t *testing.T) {
	content := testutil.LongFormatCSV(
		"garbage,ICB_A,Primary,25mg,Generic,1,1,1",
		"2024-03-01,ICB_A,Primary,25mg,Generic,3,3,3",
		"2024-01-01,ICB_A,Primary,25mg,Generic,1,1,1",
	)

	ds, err := ParseRecords(mustFrame(t, content))
	require.NoError(t, err)

	assert.Equal(t, 1, ds.UnknownMonths)
	assert.Equal(t, testutil.Month(2024, time.January), ds.Records[0].Month)
	assert.Equal(t, testutil.Month(2024, time.March), ds.Records[1].Month)
	assert.Equal(t, domain.UnknownMonth, ds.Records[2].Month)
}

func TestParseRecordsMissingMeasures(t *testing.T) {
	content := testutil.LongFormatCSV(
		"2024-01-01,ICB_A,Primary,25mg,Generic,,NaN,1",
		"2024-01-01,ICB_B,Primary,25mg,,4,N/A,2",
	)

	ds, err := ParseRecords(mustFrame(t, content))
	require.NoError(t, err)

	first := ds.Records[0]
	assert.True(t, first.Missing.Has(domain.MeasureQTY))
	assert.True(t, first.Missing.Has(domain.MeasureNIC))
	assert.False(t, first.Missing.Has(domain.MeasureITEMS))
	assert.True(t, first.QTY.IsZero())

	second := ds.Records[1]
	assert.Equal(t, "", second.BNFName, "empty categorical is null")
	assert.True(t, second.Missing.Has(domain.MeasureNIC))
}

func TestParseRecordsCorrupt(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		wantColumn string
		wantLine   int
	}{
		{
			name:       "missing required column",
			content:    "Month,ICB_Name,QTY,NIC\n2024-01-01,ICB_A,1,1\n",
			wantColumn: "ITEMS",
			wantLine:   1,
		},
		{
			name:       "non numeric measure",
			content:    testutil.LongFormatCSV("2024-01-01,ICB_A,Primary,25mg,Generic,ten,1,1"),
			wantColumn: "QTY",
			wantLine:   2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRecords(mustFrame(t, tt.content))
			var le *LoadError
			require.ErrorAs(t, err, &le)
			assert.Equal(t, tt.wantColumn, le.Column)
			assert.Equal(t, tt.wantLine, le.Line)
		})
	}
}

func TestParseRecordsOptionalCategoricalColumns(t *testing.T) {
	content := "Month,ICB_Name,QTY,NIC,ITEMS\n2024-01-01,ICB_A,1,42,1\n"

	ds, err := ParseRecords(mustFrame(t, content))
	require.NoError(t, err)
	assert.False(t, ds.HasColumn(domain.ColumnBNFName))
	assert.Equal(t, "", ds.Records[0].BNFName)
	assert.Equal(t, "", ds.Records[0].SettingType)
}

func TestParseRecordsKeepsUnmodelledColumns(t *testing.T) {
	ds, err := ParseRecords(mustFrame(t, testutil.PostcodeCSV))
	require.NoError(t, err)
	require.Equal(t, 3, ds.Len())

	assert.Equal(t, "LS1 4AP", ds.Records[0].PostCode)
	assert.Equal(t, map[string]string{"Practice_Code": "B86016"}, ds.Records[0].Extra)

	plain, err := ParseRecords(mustFrame(t, testutil.ScenarioCSV))
	require.NoError(t, err)
	assert.Nil(t, plain.Records[0].Extra)
}

func TestParseRecordsFlagsNegativeMeasures(t *testing.T) {
	content := testutil.LongFormatHeader + `
2024-01-01,ICB_A,Primary,25mg,Generic,-4,420,1
2024-01-01,ICB_B,Hospital,50mg,Brand,5,-210.5,-1
2024-02-01,ICB_A,Primary,25mg,Generic,20,840,2
`
	ds, err := ParseRecords(mustFrame(t, content))
	require.NoError(t, err)
	require.Equal(t, 3, ds.Len())
	assert.Equal(t, 2, ds.NegativeRows)

	assert.True(t, ds.Records[0].Negative.Has(domain.MeasureQTY))
	assert.True(t, ds.Records[0].QTY.Equal(decimal.NewFromInt(-4)), "negative values are kept as given")
	assert.True(t, ds.Records[1].Negative.Has(domain.MeasureNIC))
	assert.True(t, ds.Records[1].Negative.Has(domain.MeasureITEMS))
	assert.False(t, ds.Records[1].Negative.Has(domain.MeasureQTY))
	assert.Zero(t, ds.Records[2].Negative)
}

func TestParsersReuseLoadedMonths(t *testing.T) {
	dec := testutil.Month(2023, time.December)

	frame := mustFrame(t, testutil.ScenarioCSV).withDates([]string{domain.ColumnMonth})
	frame.Dates[domain.ColumnMonth][2] = dec
	ds, err := ParseRecords(frame)
	require.NoError(t, err)
	assert.Equal(t, dec, ds.Records[0].Month, "months parsed at load are used as-is")

	forecast := mustFrame(t, testutil.ForecastCSV).withDates([]string{domain.ColumnMonth})
	forecast.Dates[domain.ColumnMonth][1] = dec
	points, _, err := ParseForecast(forecast)
	require.NoError(t, err)
	assert.Equal(t, dec, points[0].Month)

	assert.Equal(t, testutil.Month(2024, time.January), mustFrame(t, testutil.ScenarioCSV).Month(0, domain.ColumnMonth))
}

func TestParseGeo(t *testing.T) {
	ds, err := ParseGeo(mustFrame(t, testutil.GeoCSV))
	require.NoError(t, err)
	require.Equal(t, 3, ds.Len())
	require.NotNil(t, ds.Records[0].Location)
	assert.InDelta(t, 53.796, ds.Records[0].Location.Latitude, 1e-9)
	assert.Equal(t, "LS1 4AP", ds.Records[0].PostCode)

	_, err = ParseGeo(mustFrame(t, testutil.ScenarioCSV))
	assert.True(t, IsLoadError(err), "geo file without coordinates is corrupt")

	bad := strings.Replace(testutil.GeoCSV, "53.7960,-1.5479", "north,-1.5479", 1)
	_, err = ParseGeo(mustFrame(t, bad))
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, domain.ColumnLatitude, le.Column)
}

func TestParseForecast(t *testing.T) {
	points, measures, err := ParseForecast(mustFrame(t, testutil.ForecastCSV))
	require.NoError(t, err)

	assert.Equal(t, []domain.Measure{domain.MeasureQTY, domain.MeasureNIC}, measures)
	require.Len(t, points, 2)
	require.NotNil(t, points[1].QTY)
	assert.True(t, testutil.Dec("27.5").Equal(*points[1].QTY))
	assert.Nil(t, points[0].ITEMS, "absent forecast column stays nil")

	_, _, err = ParseForecast(mustFrame(t, "Month,Forecast_QTY\nsoon,1\n"))
	assert.True(t, IsLoadError(err))
}
