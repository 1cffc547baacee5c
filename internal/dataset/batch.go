package dataset

// Batch is one input file loaded into typed columns.
type Batch struct {
	// Name is the source file name, without directory.
	Name string
	// Number is the position of the batch within the run, starting at 0.
	Number int
	// Path is where the batch was read from.
	Path    string
	Columns []*Column
	Rows    int
}

// Column returns the column with the given name.
func (b *Batch) Column(name string) (*Column, bool) {
	for _, c := range b.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}
