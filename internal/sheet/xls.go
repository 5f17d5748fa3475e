package sheet

import (
	"fmt"
	"io"

	"github.com/extrame/xls"
)

const maxXLSRows = 100000

// ReadXLS returns the rows of the first worksheet of a legacy BIFF workbook.
func ReadXLS(r io.ReadSeeker) ([][]string, error) {
	workbook, err := xls.OpenReader(r, "utf-8")
	if err != nil {
		return nil, err
	}
	if workbook.NumSheets() == 0 {
		return nil, fmt.Errorf("no worksheet found")
	}
	return workbook.ReadAllCells(maxXLSRows), nil
}
