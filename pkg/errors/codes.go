package errors

// ErrorCodeInfo contains metadata about an error code.
type ErrorCodeInfo struct {
	Code            ErrorCode
	Retryable       bool
	Description     string
	SuggestedAction string
}

// ErrorCodeRegistry maps error codes to their metadata.
var ErrorCodeRegistry = map[ErrorCode]ErrorCodeInfo{
	ErrCodeInvalidConfig: {
		Code:            ErrCodeInvalidConfig,
		Retryable:       false,
		Description:     "Configuration value is unknown or out of range",
		SuggestedAction: "Inspect effective settings: tlr config validate",
	},
	ErrCodeInvalidInput: {
		Code:            ErrCodeInvalidInput,
		Retryable:       false,
		Description:     "Project file is malformed or references unknown elements",
		SuggestedAction: "Check endpoint ids in the project file",
	},
	ErrCodeNotFound: {
		Code:            ErrCodeNotFound,
		Retryable:       false,
		Description:     "Referenced file or element does not exist",
		SuggestedAction: "Verify the path or id",
	},
	ErrCodeContextCancelled: {
		Code:            ErrCodeContextCancelled,
		Retryable:       false,
		Description:     "Operation cancelled by user or deadline",
		SuggestedAction: "Re-run the command",
	},
	ErrCodeExportFailed: {
		Code:            ErrCodeExportFailed,
		Retryable:       true,
		Description:     "Writing links to the database failed",
		SuggestedAction: "Check the export database URL and schema",
	},
	ErrCodeUnavailable: {
		Code:            ErrCodeUnavailable,
		Retryable:       true,
		Description:     "Database or Redis endpoint is unreachable",
		SuggestedAction: "Verify the service is running and the address is correct",
	},
	ErrCodeProcessing: {
		Code:            ErrCodeProcessing,
		Retryable:       false,
		Description:     "Unclassified processing error",
		SuggestedAction: "Re-run with --debug and inspect the log",
	},
}
