package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidPeriod        ErrorCode = 102
	ErrCodeInvalidMultiplier    ErrorCode = 103
	ErrCodeInvalidCondition     ErrorCode = 104
	ErrCodeInvalidTimeframe     ErrorCode = 105
	ErrCodeInvalidExchange      ErrorCode = 106
	ErrCodeMissingParameter     ErrorCode = 107

	// Data errors (200-299)
	ErrCodeInsufficientData ErrorCode = 200
	ErrCodeDataNotFound     ErrorCode = 201
	ErrCodeNonMonotonicData ErrorCode = 202

	// Indicator errors (300-399)
	ErrCodeIndicatorNotFound    ErrorCode = 300
	ErrCodeIndicatorCalculation ErrorCode = 301

	// Model/rule errors (400-499)
	ErrCodeModelNotFound ErrorCode = 400
	ErrCodeModelConfig   ErrorCode = 401
	ErrCodeInputNotFound ErrorCode = 402
	ErrCodeRuleConfig    ErrorCode = 403

	// Simulation errors (600-699)
	ErrCodeSimulationEmptyRange ErrorCode = 600
	ErrCodeSimulationAborted    ErrorCode = 601
	ErrCodeSimulationState      ErrorCode = 602

	// Storage errors (700-799)
	ErrCodeStorageMigration ErrorCode = 700
	ErrCodeStorageInsert    ErrorCode = 701
	ErrCodeStorageQuery     ErrorCode = 702

	// Exchange errors (800-899)
	ErrCodeExchangeRequest   ErrorCode = 800
	ErrCodeExchangeParse     ErrorCode = 801
	ErrCodeExchangeStream    ErrorCode = 802
	ErrCodeExchangeRateLimit ErrorCode = 803
)
