package query

import "minirel/internal/catalog"

// ResultSet is what Executor.Exec returns for any statement: a DDL/DML
// statement carries just a status Message, a SELECT carries Cols/Rows too.
type ResultSet struct {
	Cols    []catalog.ColMeta
	Rows    [][]interface{}
	Message string
}
