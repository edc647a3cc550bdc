// Package files resolves and writes the data files the dashboard works with.
//
// Discovery turns configured file names into absolute paths under the data
// directory and walks ordered candidate lists:
//
//	discovery := files.NewDiscovery("/srv/data")
//	info, err := discovery.FirstExisting([]string{
//	    "Input_File_Long_Format_Data_With_Postcode.csv",
//	    "Input_File_Long_Format_Data.csv",
//	})
//
// Manager writes export artifacts, creating directories as needed.
package files
