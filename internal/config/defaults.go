package config

const (
	defaultFallbackRuntimeDir  = "~/.local/state/singleapp/run"
	defaultLogDir              = "~/.local/state/singleapp/logs"
	defaultLogFormat           = "auto"
	defaultLogLevel            = "info"
	defaultUIClosePolicy       = UIClosePolicyExit
	defaultLockTimeoutMS       = 10000
	defaultPollIntervalMS      = 100
	defaultUIPollIntervalMS    = 50
	defaultHandoffWaitMS       = 5000
	defaultHandoffGraceMS      = 1000
	defaultExitWaitMS          = 1000
	defaultDialTimeoutMS       = 2000
	defaultRemoteCallTimeoutMS = 5000
	serviceEnvVar              = "SINGLEAPP_SERVICE"
)

// UI close policies.
const (
	UIClosePolicyExit           = "exit"
	UIClosePolicyReturnToServer = "return_to_server"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			RuntimeDir: defaultRuntimeDir(),
			LogDir:     defaultLogDir,
		},
		Service: Service{
			UIClosePolicy: defaultUIClosePolicy,
		},
		Timing: TimingSettings{
			LockTimeoutMS:       defaultLockTimeoutMS,
			PollIntervalMS:      defaultPollIntervalMS,
			UIPollIntervalMS:    defaultUIPollIntervalMS,
			HandoffWaitMS:       defaultHandoffWaitMS,
			HandoffGraceMS:      defaultHandoffGraceMS,
			ExitWaitMS:          defaultExitWaitMS,
			DialTimeoutMS:       defaultDialTimeoutMS,
			RemoteCallTimeoutMS: defaultRemoteCallTimeoutMS,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
