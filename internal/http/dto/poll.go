package dto

type PollResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
