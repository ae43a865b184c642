package models

// Request types

// Secrets travel in POST bodies only, never in URLs.

type AuthRequest struct {
	IdentitySecret string `json:"identity_secret"`
	Option         *int   `json:"option"`
}

type SubmitAnswerRequest struct {
	IdentitySecret string `json:"identity_secret"`
	Option         *int   `json:"option"`
	PersonalCode   string `json:"personal_code,omitempty"`
	OrderRef       string `json:"order_ref,omitempty"`
}

type LookupRequest struct {
	IdentitySecret string `json:"identity_secret"`
	PersonalCode   string `json:"personal_code,omitempty"`
	OrderRef       string `json:"order_ref,omitempty"`
}

// Response types

type AuthResponse struct {
	OrderRef             string `json:"order_ref,omitempty"`
	VerificationRequired bool   `json:"verification_required"`
	Option               int    `json:"option"`
	OptionText           string `json:"option_text"`
}

// AnswerResponse describes one entry of the answer log as seen by its voter.
// Option and OptionText are omitted when a protected answer could not be
// resolved with the given personal code.
type AnswerResponse struct {
	Poll            string `json:"poll"`
	AnonymousKey    string `json:"anonymous_key"`
	AnsweredAt      string `json:"answered_at"`
	Option          *int   `json:"option,omitempty"`
	OptionText      string `json:"option_text,omitempty"`
	Protected       bool   `json:"protected"`
	AlreadyAnswered bool   `json:"already_answered"`
	Seal            string `json:"seal"`
	ReceiptID       string `json:"receipt_id,omitempty"`
}

type PollSummary struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	Total int    `json:"total"`
}

type ListPollsResponse struct {
	Polls []PollSummary `json:"polls"`
}

type OptionResult struct {
	Index   int     `json:"index"`
	Label   string  `json:"label"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// PollView is the public state of a poll: question, tally and seal.
type PollView struct {
	Name           string         `json:"name"`
	Title          string         `json:"title"`
	Body           string         `json:"body"`
	Options        []OptionResult `json:"options"`
	Total          int            `json:"total"`
	LastUpdated    string         `json:"last_updated,omitempty"`
	LastUpdatedAgo string         `json:"last_updated_ago,omitempty"`
	Seal           string         `json:"seal"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
