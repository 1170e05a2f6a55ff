// Package errors provides structured error handling for ragstore.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: input errors
//   - 2XX: persistence errors (status records on disk)
//   - 3XX: index/engine errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryInput indicates caller-input errors.
	CategoryInput Category = "INPUT"
	// CategoryPersistence indicates status-record persistence errors.
	CategoryPersistence Category = "PERSISTENCE"
	// CategoryIndex indicates search index and engine errors.
	CategoryIndex Category = "INDEX"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Error codes organized by category.
const (
	// Input errors (100-199)

	// ErrCodeEmptyInput marks an ingestion call with no chunks.
	// Treated as a logged no-op, never fatal.
	ErrCodeEmptyInput = "ERR_101_EMPTY_INPUT"

	// Persistence errors (200-299)

	// ErrCodeMissingRecord marks a status update against a job or
	// document record that does not exist on disk. The tracker never
	// creates records; absence is an upstream bug surfaced via logs.
	ErrCodeMissingRecord = "ERR_201_MISSING_RECORD"

	// ErrCodePersistenceWrite marks a failed read-modify-write of a
	// status record. Swallowed at the tracker boundary.
	ErrCodePersistenceWrite = "ERR_202_PERSISTENCE_WRITE"

	// Index errors (300-399)

	// ErrCodeIndexNotReady marks a read against an absent index.
	// The only condition in the taxonomy that callers catch and act on.
	ErrCodeIndexNotReady = "ERR_301_INDEX_NOT_READY"

	// ErrCodePartialBulk marks a bulk upsert where some documents
	// failed. Logged with counts; ingestion continues.
	ErrCodePartialBulk = "ERR_302_PARTIAL_BULK"

	// Internal errors (500-599)
	ErrCodeInternal = "ERR_500_INTERNAL"
)

// categoryFromCode derives the category from the numeric range of a code.
func categoryFromCode(code string) Category {
	if len(code) < 5 {
		return CategoryInternal
	}
	switch code[4] {
	case '1':
		return CategoryInput
	case '2':
		return CategoryPersistence
	case '3':
		return CategoryIndex
	default:
		return CategoryInternal
	}
}
