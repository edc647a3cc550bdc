package dataprocessing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ImamSharif/Healthcare-analytics/internal/shared/testutil"
	"github.com/ImamSharif/Healthcare-analytics/pkg/contracts/domain"
)

func TestOptions(t *testing.T) {
	jan := testutil.Month(2024, time.January)
	feb := testutil.Month(2024, time.February)

	tests := []struct {
		name       string
		dataset    *domain.Dataset
		wantValues map[domain.Dimension][]string
		wantStatus map[domain.Dimension]domain.ColumnStatus
		wantRange  domain.DateRange
		hasRange   bool
	}{
		{
			name:    "full scenario",
			dataset: testutil.ScenarioDataset(),
			wantValues: map[domain.Dimension][]string{
				domain.DimensionICB:     {"ICB_A", "ICB_B"},
				domain.DimensionSetting: {"Hospital", "Primary"},
				domain.DimensionDose:    {"25mg", "50mg"},
				domain.DimensionBrand:   {"Brand", "Generic"},
			},
			wantStatus: map[domain.Dimension]domain.ColumnStatus{
				domain.DimensionICB:     domain.ColumnPresent,
				domain.DimensionSetting: domain.ColumnPresent,
				domain.DimensionDose:    domain.ColumnPresent,
				domain.DimensionBrand:   domain.ColumnPresent,
			},
			wantRange: domain.DateRange{From: jan, To: feb},
			hasRange:  true,
		},
		{
			name: "brand column absent",
			dataset: &domain.Dataset{
				Columns: []string{"Month", "ICB_Name", "Quviviq_Type", "Product_Group", "QTY", "NIC", "ITEMS"},
				Records: []domain.Record{testutil.Rec(jan, "ICB_A", "Primary", "25mg", "", 1, 1, 1)},
			},
			wantValues: map[domain.Dimension][]string{
				domain.DimensionICB:     {"ICB_A"},
				domain.DimensionSetting: {"Primary"},
				domain.DimensionDose:    {"25mg"},
				domain.DimensionBrand:   {},
			},
			wantStatus: map[domain.Dimension]domain.ColumnStatus{
				domain.DimensionICB:     domain.ColumnPresent,
				domain.DimensionSetting: domain.ColumnPresent,
				domain.DimensionDose:    domain.ColumnPresent,
				domain.DimensionBrand:   domain.ColumnAbsent,
			},
			wantRange: domain.DateRange{From: jan, To: jan},
			hasRange:  true,
		},
		{
			name: "sparse brand and unknown months only",
			dataset: &domain.Dataset{
				Columns: []string{"Month", "ICB_Name", "Quviviq_Type", "Product_Group", "BNF_Name", "QTY", "NIC", "ITEMS"},
				Records: []domain.Record{
					testutil.Rec(domain.UnknownMonth, "ICB_A", "Primary", "25mg", "", 1, 1, 1),
					testutil.Rec(domain.UnknownMonth, "ICB_A", "Primary", "25mg", "Generic", 1, 1, 1),
				},
			},
			wantValues: map[domain.Dimension][]string{
				domain.DimensionICB:     {"ICB_A"},
				domain.DimensionSetting: {"Primary"},
				domain.DimensionDose:    {"25mg"},
				domain.DimensionBrand:   {"Generic"},
			},
			wantStatus: map[domain.Dimension]domain.ColumnStatus{
				domain.DimensionICB:     domain.ColumnPresent,
				domain.DimensionSetting: domain.ColumnPresent,
				domain.DimensionDose:    domain.ColumnPresent,
				domain.DimensionBrand:   domain.ColumnSparse,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := Options(tt.dataset)
			assert.Equal(t, tt.wantValues, opts.Values)
			assert.Equal(t, tt.wantStatus, opts.Columns)
			assert.Equal(t, tt.wantStatus[domain.DimensionBrand], opts.BrandColumn)
			assert.Equal(t, tt.hasRange, opts.HasRange)
			if tt.hasRange {
				assert.Equal(t, tt.wantRange, opts.Range)
			}
		})
	}
}

func TestOptionsNilDataset(t *testing.T) {
	opts := Options(nil)
	assert.False(t, opts.HasRange)
	for _, d := range domain.Dimensions() {
		assert.Empty(t, opts.Values[d])
		assert.Equal(t, domain.ColumnAbsent, opts.Columns[d])
	}
}

func TestOptionsNullCounts(t *testing.T) {
	ds := &domain.Dataset{
		Columns: []string{"ICB_Name", "Quviviq_Type", "Product_Group", "BNF_Name"},
		Records: syntheticRecords(210),
	}
	opts := Options(ds)

	// Every third block of seven rows has a null brand.
	assert.Equal(t, 70, opts.NullCounts[domain.DimensionBrand])
	assert.Equal(t, domain.ColumnSparse, opts.BrandColumn)
	assert.Len(t, opts.Values[domain.DimensionICB], 42)
}

func TestDefaultSelection(t *testing.T) {
	t.Run("selects everything listed", func(t *testing.T) {
		ds := testutil.ScenarioDataset()
		spec := DefaultSelection(Options(ds))

		assert.Len(t, Filter(ds.Records, BuildMask(spec)), ds.Len())
		assert.Equal(t, testutil.Month(2024, time.January), spec.Range.From)
		assert.Equal(t, testutil.Month(2024, time.February), spec.Range.To)
	})

	t.Run("absent column stays unconstrained", func(t *testing.T) {
		ds := &domain.Dataset{
			Columns: []string{"Month", "ICB_Name", "Quviviq_Type", "Product_Group", "QTY", "NIC", "ITEMS"},
			Records: []domain.Record{testutil.Rec(testutil.Month(2024, time.May), "ICB_A", "Primary", "25mg", "", 1, 1, 1)},
		}
		spec := DefaultSelection(Options(ds))

		_, constrained := spec.Constraint(domain.DimensionBrand)
		assert.False(t, constrained)
		assert.Len(t, Filter(ds.Records, BuildMask(spec)), 1)
	})

	t.Run("null values are dropped", func(t *testing.T) {
		ds := &domain.Dataset{
			Columns: []string{"ICB_Name", "Quviviq_Type", "Product_Group", "BNF_Name"},
			Records: syntheticRecords(210),
		}
		spec := DefaultSelection(Options(ds))
		assert.Len(t, Filter(ds.Records, BuildMask(spec)), 140)
	})
}
