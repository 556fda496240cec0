package errors

type ExitCode int

// Process exit codes of the scheduler binaries.
const (
	// Config could not be read, parsed or validated.
	ConfigFailureExitCode ExitCode = 70

	// Listening, dialing or sending on the transport failed.
	TransportFailureExitCode ExitCode = 80

	// The scheduler loop returned an error.
	SchedulerFailureExitCode ExitCode = 90
)
