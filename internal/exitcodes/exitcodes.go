package exitcodes

// Exit codes for disk-janitor
// These codes form the operational contract with scripts and schedulers
const (
	Success         = 0 // Every target was processed
	InvalidConfig   = 2 // Configuration invalid or nothing to clean
	SafetyViolation = 3 // Safety validator refused at least one target
	RuntimeError    = 4 // Runtime error during execution
)
