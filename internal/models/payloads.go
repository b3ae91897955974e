package models

// These structs define the JSON payloads for the HTTP entry point of the
// pipeline function and for the workflow hand-off after a publish.

// RunResponse is the output of a RunPipeline call.
type RunResponse struct {
	RunID       string `json:"runId,omitempty"`
	Status      string `json:"status"`
	Stage       string `json:"stage,omitempty"`
	ItemID      string `json:"itemId,omitempty"`
	PublishedID string `json:"publishedId,omitempty"`
	URL         string `json:"url,omitempty"`
	Error       string `json:"error,omitempty"`
}

// PublishedNotification is the argument of the workflow execution started
// after an item is published and committed.
type PublishedNotification struct {
	RunID       string `json:"runId"`
	ItemID      string `json:"itemId"`
	PublishedID string `json:"publishedId"`
	URL         string `json:"url"`
	Title       string `json:"title"`
}
