package dto

// Ack is the body of a successful signal submission.
type Ack struct {
	Status string `json:"status"`
}

// EchoAnswer is the response body of a successful echo test run.
type EchoAnswer struct {
	Sdp string `json:"sdp"`
}
