package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ImamSharif/Healthcare-analytics/pkg/contracts/domain"
)

// LongFormatHeader is the header of the long-format fixture files.
const LongFormatHeader = "Month,ICB_Name,Quviviq_Type,Product_Group,BNF_Name,QTY,NIC,ITEMS"

// ScenarioCSV holds the three-record dataset used across package tests.
const ScenarioCSV = LongFormatHeader + `
2024-01-01,ICB_A,Primary,25mg,Generic,10,420,1
2024-01-01,ICB_B,Hospital,50mg,Brand,5,210,1
2024-02-01,ICB_A,Primary,25mg,Generic,20,840,2
`

// PostcodeCSV is the scenario in the postcode-enriched primary layout,
// with a practice column the record model has no field for.
const PostcodeCSV = LongFormatHeader + `,Post_Code,Practice_Code
2024-01-01,ICB_A,Primary,25mg,Generic,10,420,1,LS1 4AP,B86016
2024-01-01,ICB_B,Hospital,50mg,Brand,5,210,1,M1 1AE,P84001
2024-02-01,ICB_A,Primary,25mg,Generic,20,840,2,LS1 4AP,B86016
`

// ForecastCSV is a forecast file carrying only the QTY and NIC columns.
const ForecastCSV = `Month,Forecast_QTY,Forecast_NIC
2024-03-01,25,1050
2024-04-01,27.5,1155
`

// GeoCSV is a geo-enrichment file for the scenario regions.
const GeoCSV = LongFormatHeader + `,Post_Code,Latitude,Longitude
2024-01-01,ICB_A,Primary,25mg,Generic,10,420,1,LS1 4AP,53.7960,-1.5479
2024-01-01,ICB_B,Hospital,50mg,Brand,0,0,0,M1 1AE,53.4794,-2.2453
2024-02-01,ICB_A,Primary,25mg,Generic,20,840,2,LS1 4AP,53.7960,-1.5479
`

// WriteDataFile writes content to dir/name and returns the path.
func WriteDataFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create fixture dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", name, err)
	}
	return path
}

// LongFormatCSV joins rows under LongFormatHeader.
func LongFormatCSV(rows ...string) string {
	return LongFormatHeader + "\n" + strings.Join(rows, "\n") + "\n"
}

// Month is shorthand for domain.NewMonth.
func Month(year int, month time.Month) domain.Month {
	return domain.NewMonth(year, month)
}

// Rec builds a record with integer measures.
func Rec(month domain.Month, icb, setting, dose, brand string, qty, nic, items int64) domain.Record {
	return domain.Record{
		Month:        month,
		ICBName:      icb,
		SettingType:  setting,
		ProductGroup: dose,
		BNFName:      brand,
		QTY:          decimal.NewFromInt(qty),
		NIC:          decimal.NewFromInt(nic),
		ITEMS:        decimal.NewFromInt(items),
	}
}

// ScenarioRecords returns the records of ScenarioCSV in month order.
func ScenarioRecords() []domain.Record {
	jan := Month(2024, time.January)
	feb := Month(2024, time.February)
	return []domain.Record{
		Rec(jan, "ICB_A", "Primary", "25mg", "Generic", 10, 420, 1),
		Rec(jan, "ICB_B", "Hospital", "50mg", "Brand", 5, 210, 1),
		Rec(feb, "ICB_A", "Primary", "25mg", "Generic", 20, 840, 2),
	}
}

// ScenarioDataset wraps ScenarioRecords in a dataset with the full header.
func ScenarioDataset() *domain.Dataset {
	return &domain.Dataset{
		Source:   "scenario.csv",
		Columns:  strings.Split(LongFormatHeader, ","),
		Records:  ScenarioRecords(),
		LoadedAt: time.Now(),
	}
}

// Dec parses a decimal literal and panics on bad input.
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
