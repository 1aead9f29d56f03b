// Package export writes query results and cleanup reports as aligned
// tables, JSON or CSV, and reads historic entities back from JSON for bulk
// import.
//
//	exp, err := export.New(export.FormatCSV)
//	if err != nil {
//	    return err
//	}
//	return exp.ExportRows(ctx, rows, os.Stdout)
//
// Large results can be written without materializing them:
//
//	seq := q.Stream(ctx, history.Page{MaxResults: history.MaxResults})
//	return exp.ExportStream(ctx, seq, w)
package export
