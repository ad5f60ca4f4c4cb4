// Package types holds the value types shared across the store's internal
// packages: the record representation, and the small set of enums used to
// describe mutations.
package types

// Record is a JSON-compatible mapping from field name to value. Values may
// be nil, bool, float64/int, string, []interface{}, or map[string]interface{}
// (or, before encoding, any Go value the codec can round-trip through JSON).
type Record map[string]interface{}

// OperationType names the kind of mutation a lifecycle hook observed.
type OperationType byte

const (
	OpSet OperationType = iota + 1
	OpDelete
	OpClear
	OpBatch
)

// DumpKind selects which half of the store a Dump/Override call targets.
type DumpKind string

const (
	DumpRecords DumpKind = "records"
	DumpIndexes DumpKind = "indexes"
)

// RecordEntry is one row of a records dump: [id, record].
type RecordEntry struct {
	ID     string
	Record Record
}

// IndexKeyEntry is one row of an index's dump: [indexKey, idList].
type IndexKeyEntry struct {
	Key string
	IDs []string
}

// IndexEntry is one row of an indexes dump: [descriptor, indexEntries].
type IndexEntry struct {
	Descriptor string
	Keys       []IndexKeyEntry
}

// BatchOp names the operation a BatchItem applies.
type BatchOp string

const (
	BatchSet    BatchOp = "set"
	BatchDelete BatchOp = "del"
)

// BatchItem is one entry of a Batch call.
type BatchItem struct {
	Op       BatchOp
	ID       string // required for BatchDelete; optional for BatchSet
	Record   Record // used by BatchSet
	Override bool   // used by BatchSet
}

// BatchResult is the outcome of one BatchItem.
type BatchResult struct {
	ID     string
	Record Record // post-write view, for BatchSet
	Err    error
}

// Hooks are the lifecycle callbacks the host may set to observe mutations.
// They are observers only: the store's correctness never depends on them,
// and they must not mutate store state from within a callback.
type Hooks struct {
	BeforeSet    func(id string, newRecord Record) error
	OnSet        func(id string, record Record)
	BeforeDelete func(id string) error
	OnDelete     func(id string, record Record)
	BeforeClear  func() error
	OnClear      func()
	BeforeBatch  func(items []BatchItem) error
	OnBatch      func(results []BatchResult)
	OnError      func(op string, err error)
}
