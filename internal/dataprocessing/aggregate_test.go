package dataprocessing

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ImamSharif/Healthcare-analytics/internal/shared/testutil"
	"github.com/ImamSharif/Healthcare-analytics/pkg/contracts/domain"
)

func TestScenarioPrimarySetting(t *testing.T) {
	spec := domain.NewFilterSpec(domain.AllTime()).With(domain.DimensionSetting, "Primary")
	selected := Filter(testutil.ScenarioRecords(), BuildMask(spec))

	trend := AggregateByMonth(selected)
	require.Len(t, trend, 2)
	assert.Equal(t, testutil.Month(2024, time.January), trend[0].Month)
	assert.True(t, testutil.Dec("10").Equal(trend[0].QTY))
	assert.Equal(t, testutil.Month(2024, time.February), trend[1].Month)
	assert.True(t, testutil.Dec("20").Equal(trend[1].QTY))

	kpi := Total(selected)
	assert.True(t, testutil.Dec("30").Equal(kpi.QTY))
	assert.True(t, testutil.Dec("1260").Equal(kpi.NIC))
	assert.True(t, testutil.Dec("3").Equal(kpi.ITEMS))
	assert.Equal(t, 2, kpi.Rows)
}

func TestAggregateByMonthCompleteness(t *testing.T) {
	records := append(syntheticRecords(2000),
		testutil.Rec(domain.UnknownMonth, "ICB_X", "Primary", "25mg", "Generic", 7, 294, 1))

	var summed domain.Totals
	trend := AggregateByMonth(records)
	for _, m := range trend {
		summed.Merge(m.Totals)
	}
	raw := Total(records)

	assert.True(t, raw.QTY.Equal(summed.QTY))
	assert.True(t, raw.NIC.Equal(summed.NIC))
	assert.True(t, raw.ITEMS.Equal(summed.ITEMS))
	assert.Equal(t, raw.Rows, summed.Rows)
	assert.Equal(t, domain.UnknownMonth, trend[len(trend)-1].Month, "unknown bucket sorts last")

	for i := 1; i < len(trend)-1; i++ {
		assert.Less(t, int(trend[i-1].Month), int(trend[i].Month))
	}
}

func TestAggregateByMonthAndDimensionPartitionsTotal(t *testing.T) {
	records := syntheticRecords(1500)

	for _, d := range domain.Dimensions() {
		rows := AggregateByMonthAndDimension(records, d)
		var summed domain.Totals
		for _, row := range rows {
			assert.Equal(t, d, row.Dimension)
			summed.Merge(row.Totals)
		}
		assert.True(t, Total(records).QTY.Equal(summed.QTY), string(d))
		assert.Equal(t, len(records), summed.Rows, string(d))

		for i := 1; i < len(rows); i++ {
			prev, cur := rows[i-1], rows[i]
			ordered := prev.Month < cur.Month || (prev.Month == cur.Month && prev.Value < cur.Value)
			assert.True(t, ordered, "rows ordered by month then value")
		}
	}
}

func TestAggregateByMonthAndDimensionKeepsNulls(t *testing.T) {
	jan := testutil.Month(2024, time.January)
	records := []domain.Record{
		testutil.Rec(jan, "ICB_A", "Primary", "25mg", "Generic", 1, 1, 1),
		testutil.Rec(jan, "ICB_A", "Primary", "25mg", "", 2, 2, 2),
	}

	rows := AggregateByMonthAndDimension(records, domain.DimensionBrand)
	require.Len(t, rows, 2)
	assert.Equal(t, "", rows[0].Value)
	assert.True(t, testutil.Dec("2").Equal(rows[0].QTY))

	pivot := Pivot(rows)
	assert.True(t, testutil.Dec("1").Equal(pivot[jan]["Generic"].QTY))
}

func TestFilterMonotonicity(t *testing.T) {
	records := syntheticRecords(3000)
	rng := rand.New(rand.NewSource(7))
	opts := Options(&domain.Dataset{
		Columns: []string{"ICB_Name", "Quviviq_Type", "Product_Group", "BNF_Name"},
		Records: records,
	})

	for trial := 0; trial < 50; trial++ {
		wide := domain.NewFilterSpec(domain.AllTime())
		narrow := domain.NewFilterSpec(domain.AllTime())
		for _, d := range domain.Dimensions() {
			if rng.Intn(3) == 0 {
				continue
			}
			values := opts.Values[d]
			var wider, narrower []string
			for _, v := range values {
				if rng.Intn(2) == 0 {
					wider = append(wider, v)
					if rng.Intn(2) == 0 {
						narrower = append(narrower, v)
					}
				}
			}
			wide = wide.With(d, wider...)
			narrow = narrow.With(d, narrower...)
		}
		require.True(t, narrow.Narrows(wide))

		small := Total(Filter(records, BuildMask(narrow)))
		large := Total(Filter(records, BuildMask(wide)))
		for _, m := range domain.Measures() {
			assert.True(t, small.Measure(m).LessThanOrEqual(large.Measure(m)),
				"trial %d measure %s", trial, m)
		}
	}
}

func TestEmptySelectionSumsToZero(t *testing.T) {
	spec := domain.NewFilterSpec(domain.AllTime()).With(domain.DimensionDose)
	selected := Filter(syntheticRecords(200), BuildMask(spec))

	assert.Empty(t, selected)
	assert.Empty(t, AggregateByMonth(selected))
	total := Total(selected)
	assert.True(t, total.QTY.IsZero())
	assert.True(t, total.NIC.IsZero())
	assert.True(t, total.ITEMS.IsZero())
	assert.Equal(t, domain.StatusEmpty, domain.StatusFor(total.Rows))
}

func TestSumsAreExact(t *testing.T) {
	jan := testutil.Month(2024, time.January)
	records := make([]domain.Record, 0, 1000)
	for i := 0; i < 1000; i++ {
		r := testutil.Rec(jan, "ICB_A", "Primary", "25mg", "Generic", 0, 0, 0)
		r.NIC = testutil.Dec("0.1")
		records = append(records, r)
	}
	big := testutil.Rec(jan, "ICB_B", "Primary", "25mg", "Generic", 0, 0, 0)
	big.NIC = testutil.Dec("12345678901234.56")
	records = append(records, big)

	total := Total(records)
	assert.Equal(t, "12345678901334.56", total.NIC.String())
	assert.True(t, decimal.NewFromInt(0).Equal(total.QTY))
}

func TestMissingMeasuresAreCounted(t *testing.T) {
	jan := testutil.Month(2024, time.January)
	missing := testutil.Rec(jan, "ICB_A", "Primary", "25mg", "Generic", 0, 0, 3)
	missing.Missing = missing.Missing.With(domain.MeasureQTY).With(domain.MeasureNIC)
	records := []domain.Record{
		testutil.Rec(jan, "ICB_A", "Primary", "25mg", "Generic", 4, 168, 1),
		missing,
	}

	trend := AggregateByMonth(records)
	require.Len(t, trend, 1)
	assert.True(t, testutil.Dec("4").Equal(trend[0].QTY))
	assert.Equal(t, 1, trend[0].Quality.MissingQTY)
	assert.Equal(t, 1, trend[0].Quality.MissingNIC)
	assert.Equal(t, 0, trend[0].Quality.MissingITEMS)
}

func TestGroupBy(t *testing.T) {
	groups := GroupBy(testutil.ScenarioRecords(), domain.DimensionICB)
	require.Len(t, groups, 2)
	assert.Equal(t, "ICB_A", groups[0].Key)
	assert.True(t, testutil.Dec("30").Equal(groups[0].QTY))
	assert.Equal(t, "ICB_B", groups[1].Key)
}
