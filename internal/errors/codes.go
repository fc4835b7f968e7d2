// Package errors provides coded errors for travelrag.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (file, disk, snapshot)
//   - 3XX: Network errors (embedding and scoring services)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category classifies an error by the subsystem it came from.
type Category string

const (
	CategoryConfig     Category = "CONFIG"
	CategoryIO         Category = "IO"
	CategoryNetwork    Category = "NETWORK"
	CategoryValidation Category = "VALIDATION"
	CategoryInternal   Category = "INTERNAL"
)

// Severity tells the caller whether to abort, skip, or degrade.
type Severity string

const (
	// SeverityFatal aborts the current operation.
	SeverityFatal Severity = "FATAL"
	// SeverityError fails the operation; the caller may continue with the next item.
	SeverityError Severity = "ERROR"
	// SeverityWarning means the operation continues in a degraded mode.
	SeverityWarning Severity = "WARNING"
)

const (
	// Config errors (100-199)
	ErrCodeConfigNotFound  = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid   = "ERR_102_CONFIG_INVALID"
	ErrCodeMissingAPIKey   = "ERR_103_MISSING_API_KEY"
	ErrCodeUnknownProvider = "ERR_104_UNKNOWN_PROVIDER"

	// IO errors (200-299)
	ErrCodeFileNotFound    = "ERR_201_FILE_NOT_FOUND"
	ErrCodeFilePermission  = "ERR_202_FILE_PERMISSION"
	ErrCodeSnapshotMissing = "ERR_203_SNAPSHOT_MISSING"
	ErrCodeCorruptIndex    = "ERR_205_CORRUPT_INDEX"
	ErrCodeLockHeld        = "ERR_206_LOCK_HELD"
	ErrCodeFileEncoding    = "ERR_207_FILE_ENCODING"

	// Network errors (300-399)
	ErrCodeNetworkTimeout     = "ERR_301_NETWORK_TIMEOUT"
	ErrCodeNetworkUnavailable = "ERR_302_NETWORK_UNAVAILABLE"
	ErrCodeMalformedResponse  = "ERR_303_MALFORMED_RESPONSE"

	// Validation errors (400-499)
	ErrCodeInvalidInput      = "ERR_401_INVALID_INPUT"
	ErrCodeDimensionMismatch = "ERR_402_DIMENSION_MISMATCH"
	ErrCodeQueryEmpty        = "ERR_404_QUERY_EMPTY"
	ErrCodeInvalidPath       = "ERR_406_INVALID_PATH"
	ErrCodeInvalidChunking   = "ERR_407_INVALID_CHUNKING"
	ErrCodeEmptyCorpus       = "ERR_408_EMPTY_CORPUS"

	// Internal errors (500-599)
	ErrCodeInternal        = "ERR_501_INTERNAL"
	ErrCodeEmbeddingFailed = "ERR_502_EMBEDDING_FAILED"
	ErrCodeSearchFailed    = "ERR_503_SEARCH_FAILED"
	ErrCodeChunkingFailed  = "ERR_504_CHUNKING_FAILED"
	ErrCodeIndexFailed     = "ERR_505_INDEX_FAILED"
	ErrCodeScoringFailed   = "ERR_506_SCORING_FAILED"
)

func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryNetwork
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode maps a code to how callers treat it. Service outages and
// malformed responses degrade; validation failures at construction abort.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeCorruptIndex, ErrCodeInvalidChunking, ErrCodeEmptyCorpus:
		return SeverityFatal
	case ErrCodeMissingAPIKey, ErrCodeEmbeddingFailed, ErrCodeScoringFailed, ErrCodeMalformedResponse:
		return SeverityWarning
	}
	if isTransientCode(code) {
		return SeverityWarning
	}
	return SeverityError
}

// isTransientCode reports codes caused by a remote service being slow or
// down. travelrag never retries them, it only degrades.
func isTransientCode(code string) bool {
	switch code {
	case ErrCodeNetworkTimeout, ErrCodeNetworkUnavailable:
		return true
	default:
		return false
	}
}
