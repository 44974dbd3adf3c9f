package export

// Field is a labelled value printed above the table.
type Field struct {
	Label string
	Value string
}

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// Document is a titled report made of summary fields and one table.
type Document struct {
	Title  string
	Fields []Field
	Table  Dataset
}
