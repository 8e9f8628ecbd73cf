package models

// Job type handled by the worker loop.
const JobProcessTransaction = "process_transaction"

// Job is a unit of asynchronous work handed from the API layer to the
// worker via the job queue. It carries no business data beyond transit.
type Job struct {
	ID      string            `json:"job_id"`
	Type    string            `json:"job_type"`
	Payload map[string]string `json:"payload"`
}
