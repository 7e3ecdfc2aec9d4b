package dto

type SubmitJobRequest struct {
	ChatID    int64  `json:"chat_id" binding:"required"`
	MessageID int    `json:"message_id"`
	Action    string `json:"action" binding:"required"`
	Keyword   string `json:"keyword"`
}

type ListJobsRequest struct {
	Status   string `form:"status"`
	Action   string `form:"action"`
	ChatID   int64  `form:"chat_id"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type ListJobsResponse struct {
	Jobs       []JobDTO `json:"jobs"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

type JobDTO struct {
	JobID     string `json:"job_id"`
	ChatID    int64  `json:"chat_id"`
	MessageID int    `json:"message_id,omitempty"`
	Action    string `json:"action"`
	Keyword   string `json:"keyword"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type StatsResponse struct {
	QueueBackend string `json:"queue_backend"`
	QueueLength  *int   `json:"queue_length,omitempty"`
	Queued       int64  `json:"queued"`
	Processing   int64  `json:"processing"`
	Delivered    int64  `json:"delivered"`
	Failed       int64  `json:"failed"`
	Tracked      int    `json:"tracked"`
}
