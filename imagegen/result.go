package imagegen

// RunResult is the aggregate every orchestrator returns.
// FailureCount is always TotalCount - SuccessCount.
type RunResult struct {
	TotalCount    int      `json:"totalCount"`
	SuccessCount  int      `json:"successCount"`
	FailureCount  int      `json:"failureCount"`
	ErrorMessages []string `json:"errorMessages"`
}

// BatchTaskGroupResult is the outcome of one batch task.
type BatchTaskGroupResult struct {
	TaskID        int64    `json:"taskId"`
	DocID         int      `json:"docId"`
	DocName       string   `json:"docName"`
	TotalCount    int      `json:"totalCount"`
	SuccessCount  int      `json:"successCount"`
	FailureCount  int      `json:"failureCount"`
	ErrorMessages []string `json:"errorMessages"`
}

// BatchRunResult is returned by RunBatchTasks.
type BatchRunResult struct {
	RunResult
	TaskGroupCount int                    `json:"taskGroupCount"`
	TaskResults    []BatchTaskGroupResult `json:"taskResults"`
}

// GlobalPartitionDocResult is the outcome of one document in global-partition mode.
type GlobalPartitionDocResult struct {
	DocID          int      `json:"docId"`
	DocName        string   `json:"docName"`
	PartitionCount int      `json:"partitionCount"`
	SuccessCount   int      `json:"successCount"`
	FailureCount   int      `json:"failureCount"`
	ErrorMessages  []string `json:"errorMessages"`
}

// GlobalPartitionResult is returned by RunGlobalPartition.
type GlobalPartitionResult struct {
	RunResult
	DocumentCount int                        `json:"documentCount"`
	TaskCount     int                        `json:"taskCount"`
	DocResults    []GlobalPartitionDocResult `json:"docResults"`
}

// resultBuilder accumulates counters and error messages in append order.
// An optional scope prefixes every message, e.g. "[photo.psd] ".
type resultBuilder struct {
	total   int
	success int
	errors  []string
	prefix  string
	parent  *resultBuilder
}

func newResultBuilder() *resultBuilder {
	return &resultBuilder{errors: []string{}}
}

// child returns a builder whose counters and messages also flow into b,
// with messages prefixed by "[scope] " on the way up.
func (b *resultBuilder) child(scope string) *resultBuilder {
	c := newResultBuilder()
	c.parent = b
	if scope != "" {
		c.prefix = "[" + scope + "] "
	}
	return c
}

// expect adds planned requests to the total.
func (b *resultBuilder) expect(n int) {
	for r := b; r != nil; r = r.parent {
		r.total += n
	}
}

// succeed records created layers.
func (b *resultBuilder) succeed(n int) {
	for r := b; r != nil; r = r.parent {
		r.success += n
	}
}

// fail records one human-readable error.
func (b *resultBuilder) fail(msg string) {
	b.errors = append(b.errors, msg)
	if b.parent != nil {
		b.parent.fail(b.prefix + msg)
	}
}

func (b *resultBuilder) failureCount() int {
	return b.total - b.success
}

func (b *resultBuilder) result() RunResult {
	msgs := make([]string, len(b.errors))
	copy(msgs, b.errors)
	return RunResult{
		TotalCount:    b.total,
		SuccessCount:  b.success,
		FailureCount:  b.failureCount(),
		ErrorMessages: msgs,
	}
}
