package command

// ApplyMessage is a single coded warning or error attached to an ApplyResult.
type ApplyMessage struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ApplyResult is the structured outcome every command handler returns.
// The intake pipeline consumes this uniformly and never inspects handler
// internals.
type ApplyResult struct {
	Status     Status         `json:"status"`
	ERPDoctype string         `json:"erp_doctype,omitempty"`
	ERPDoc     string         `json:"erp_doc,omitempty"`
	Message    string         `json:"message,omitempty"`
	Warnings   []ApplyMessage `json:"warnings,omitempty"`
	Errors     []ApplyMessage `json:"errors,omitempty"`
}

// NewApplyResult creates an ApplyResult with the given status
func NewApplyResult(status Status) *ApplyResult {
	return &ApplyResult{Status: status}
}

// Applied creates an applied result for a record in the given doctype
func Applied(doctype string) *ApplyResult {
	return &ApplyResult{Status: StatusApplied, ERPDoctype: doctype}
}

// Failed creates a failed result carrying a single coded error
func Failed(code, message string) *ApplyResult {
	r := &ApplyResult{Status: StatusFailed}
	r.AddError(code, message, nil)
	return r
}

// AddWarning appends a coded warning
func (r *ApplyResult) AddWarning(code, message string, details map[string]any) {
	r.Warnings = append(r.Warnings, ApplyMessage{Code: code, Message: message, Details: details})
}

// AddError appends a coded error
func (r *ApplyResult) AddError(code, message string, details map[string]any) {
	r.Errors = append(r.Errors, ApplyMessage{Code: code, Message: message, Details: details})
}

// HasWarningCode reports whether a warning with the given code is present
func (r *ApplyResult) HasWarningCode(code string) bool {
	for _, w := range r.Warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}

// ErrorMessages returns the message of every error, for the ack envelope
func (r *ApplyResult) ErrorMessages() []string {
	if len(r.Errors) == 0 {
		return nil
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return msgs
}
