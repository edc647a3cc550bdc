// Package shared holds helpers used across the dashboard's packages.
//
// The testutil subpackage provides:
//
//	- BufferedSlogHandler and NewTestLogger for asserting on structured logs
//	- Prescription dataset fixtures (the three-record scenario, forecast and
//	  geo files) and a writer that drops them into a t.TempDir
//
// Example usage:
//
//	func TestLoad(t *testing.T) {
//	    dir := t.TempDir()
//	    testutil.WriteDataFile(t, dir, "data.csv", testutil.ScenarioCSV)
//	    logger, handler := testutil.NewTestLogger(t)
//	    ...
//	    testutil.AssertNoErrors(t, handler)
//	}
package shared
