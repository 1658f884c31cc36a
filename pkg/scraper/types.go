package scraper

import "price-tracker-go/pkg/models"

// StartOptions configures a scraping request
type StartOptions struct {
	// ForceRefresh bypasses any backend-side freshness cache.
	ForceRefresh bool
	// TimeoutSeconds is advisory and only forwarded to the backend.
	TimeoutSeconds int
}

func (o StartOptions) request() models.ScrapeStartRequest {
	req := models.ScrapeStartRequest{}
	if o.ForceRefresh {
		force := true
		req.ForceRefresh = &force
	}
	if o.TimeoutSeconds > 0 {
		timeout := o.TimeoutSeconds
		req.TimeoutSeconds = &timeout
	}
	return req
}

// TaskState is the last known state of the scraping task
type TaskState struct {
	ProductID       int
	Status          models.TaskStatus
	ProgressPercent int
	FoundPrice      *float64
	Message         string
	ElapsedSeconds  float64
}

// Terminal reports whether the task reached COMPLETADO or ERROR
func (t TaskState) Terminal() bool {
	return t.Status.Terminal()
}

// Snapshot is a consistent copy of the poller state
type Snapshot struct {
	TaskID   string
	Task     *TaskState
	Polling  bool
	Attempts int
	// Err is the start, transient or exhausted error, if any
	Err *ScraperError
}

// Message returns the text the UI should show for this snapshot
func (s Snapshot) Message() string {
	if s.Err != nil {
		return s.Err.UserMessage()
	}
	if s.Task != nil {
		return s.Task.Message
	}
	return ""
}

func (s Snapshot) clone() Snapshot {
	if s.Task != nil {
		task := *s.Task
		if task.FoundPrice != nil {
			price := *task.FoundPrice
			task.FoundPrice = &price
		}
		s.Task = &task
	}
	return s
}
