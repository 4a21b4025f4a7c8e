package models

// ResultKind classifies a single exchange with the remote processor.
type ResultKind int

const (
	// KindDefinitive means the remote answered with a trustworthy COMPLETED or FAILED payload.
	KindDefinitive ResultKind = iota
	// KindTimeout means a gateway timeout; the call may or may not have executed.
	KindTimeout
	// KindTransport means no response arrived at all.
	KindTransport
	// KindRejected covers any other error status or a malformed body.
	KindRejected
)

func (k ResultKind) String() string {
	switch k {
	case KindDefinitive:
		return "definitive"
	case KindTimeout:
		return "timeout"
	case KindTransport:
		return "transport"
	case KindRejected:
		return "rejected"
	}
	return "unknown"
}

// Ambiguous reports whether the effect of the call is unknown to the client.
func (k ResultKind) Ambiguous() bool {
	return k == KindTimeout || k == KindTransport
}

// CallPayload is a definitive answer from the remote processor.
type CallPayload struct {
	State         TransactionState
	Message       string
	TransactionID string
	Duplicate     bool
}

// CallFailure describes a call that produced no definitive payload. Status is 0
// when no HTTP response was received.
type CallFailure struct {
	Message string
	Status  int
}

// CallResult is the normalized outcome of one remote call. Exactly one of
// Payload and Failure is set.
type CallResult struct {
	Kind    ResultKind
	Payload *CallPayload
	Failure *CallFailure
}
