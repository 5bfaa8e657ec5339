package flow

// AttemptState tracks how far an authentication attempt progressed. The
// states advance strictly forward; a failed attempt ends in the state it
// failed in, a successful one in StateDone.
type AttemptState string

const (
	StateIdle          AttemptState = "idle"
	StateDerivingKey   AttemptState = "deriving_key"
	StateLoadingSecret AttemptState = "loading_secret"
	StateComputingOTP  AttemptState = "computing_otp"
	StateSubmitting    AttemptState = "submitting"
	StateDone          AttemptState = "done"
)
