package pattern

// TestTable represents graded tests, or coverage per function.
type TestTable struct {
	Label   string
	Results []TestTableItem
}

// TestTableItem is a single row.
type TestTableItem struct {
	Name    string // test or function name
	Status  string // one of the Status constants
	Score   string // formatted score, e.g. "2/5"; empty when hidden
	Details string // output shown beneath the row
}

func (t *TestTable) Type() PatternType { return PatternTypeTestTable }
