package models

// MutationResponse is returned by create, update and delete endpoints
type MutationResponse struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

// TrajectoryCreatedResponse reports the server-derived distance alongside the id
type TrajectoryCreatedResponse struct {
	ID       int64   `json:"id"`
	Distance float64 `json:"distance"`
	Message  string  `json:"message"`
}

// BulkDeleteResponse reports how many rows a bulk delete removed
type BulkDeleteResponse struct {
	Deleted int64  `json:"deleted"`
	Message string `json:"message"`
}
