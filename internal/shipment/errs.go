package shipment

import "fmt"

// Error reasons reused across the client. Transport maps these to
// messages; tests match on them.
const (
	ReasonInvalidCredentials = "invalid_credentials"
	ReasonSessionExpired     = "session_expired"
	ReasonPaymentRequired    = "payment_required"
	ReasonForbiddenField     = "forbidden_field"
	ReasonBadTransition      = "bad_transition"
	ReasonAdminOnly          = "admin_only"
	ReasonEditInProgress     = "edit_in_progress"
)

// AuthError: the user must (re-)authenticate.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string { return "auth: " + e.Reason }

// ValidationError: malformed create/edit input, surfaced inline.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Msg)
}

// PolicyError: authorization or transition-guard violation. Resolved
// locally, never sent over the network.
type PolicyError struct {
	Reason string
	Field  string
}

func (e *PolicyError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("policy: %s (%s)", e.Reason, e.Field)
	}
	return "policy: " + e.Reason
}

// SyncError: the optimistic mutation failed on the wire and was rolled back.
type SyncError struct {
	Op  string
	Err error
}

func (e *SyncError) Error() string { return fmt.Sprintf("sync: %s: %v", e.Op, e.Err) }
func (e *SyncError) Unwrap() error { return e.Err }

// NotFoundError: stale shipment id; callers should force a reload.
type NotFoundError struct {
	ID int
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("shipment %d not found", e.ID) }
