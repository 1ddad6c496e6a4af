package intake

// RejectionKind is the coarse category surfaced to the caller.
type RejectionKind string

const (
	// RejectionMalformed covers missing headers and unparseable bodies.
	RejectionMalformed RejectionKind = "malformed"
	// RejectionAuthentication covers every authentication-state failure:
	// IP not allowed, instance mismatch, timestamp out of window, replay,
	// bad signature. The caller never learns which.
	RejectionAuthentication RejectionKind = "authentication"
)

// Rejection is a delivery turned away before any ledger write. Detail is for
// the log only; Public() is all the caller sees.
type Rejection struct {
	Kind   RejectionKind
	Detail string
}

// Public returns the caller-facing message for the rejection.
func (r *Rejection) Public() string {
	if r.Kind == RejectionAuthentication {
		return "authentication failed"
	}
	return r.Detail
}

func rejectMalformed(detail string) *Rejection {
	return &Rejection{Kind: RejectionMalformed, Detail: detail}
}

func rejectAuth(detail string) *Rejection {
	return &Rejection{Kind: RejectionAuthentication, Detail: detail}
}
