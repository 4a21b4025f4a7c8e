package models

// SimulatedOutcome asks the remote processor to behave a certain way for one call.
type SimulatedOutcome string

const (
	OutcomeSuccess      SimulatedOutcome = "SUCCESS"
	OutcomeBankFailure  SimulatedOutcome = "BANK_FAILURE"
	OutcomeNetworkError SimulatedOutcome = "NETWORK_ERROR"
)

func (o SimulatedOutcome) Valid() bool {
	switch o {
	case OutcomeSuccess, OutcomeBankFailure, OutcomeNetworkError:
		return true
	}
	return false
}
