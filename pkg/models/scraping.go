package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TaskStatus is the lifecycle state of a server-side scraping task.
type TaskStatus string

const (
	TaskStarted    TaskStatus = "INICIADO"
	TaskInProgress TaskStatus = "EN_PROGRESO"
	TaskCompleted  TaskStatus = "COMPLETADO"
	TaskError      TaskStatus = "ERROR"
)

// Terminal reports whether no further transitions can happen.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskError
}

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStarted, TaskInProgress, TaskCompleted, TaskError:
		return true
	}
	return false
}

func (s *TaskStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("task status must be a string: %w", err)
	}
	status := TaskStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !status.Valid() {
		return fmt.Errorf("unknown task status %q", raw)
	}
	*s = status
	return nil
}

// ScrapeStartRequest is the body of POST /productos/{id}/scraping-precio.
// TimeoutSeconds is advisory and only enforced by the backend.
type ScrapeStartRequest struct {
	ForceRefresh   *bool `json:"forzar_actualizacion,omitempty"`
	TimeoutSeconds *int  `json:"timeout_segundos,omitempty"`
}

// ScrapeStartResponse is returned when a scraping task is created.
type ScrapeStartResponse struct {
	TaskID           string     `json:"tarea_id"`
	Status           TaskStatus `json:"estado"`
	Message          string     `json:"mensaje"`
	EstimatedSeconds *int       `json:"tiempo_estimado_segundos,omitempty"`
}

func (r *ScrapeStartResponse) Validate() error {
	if strings.TrimSpace(r.TaskID) == "" {
		return fmt.Errorf("missing tarea_id")
	}
	if !r.Status.Valid() {
		return fmt.Errorf("missing or unknown estado %q", r.Status)
	}
	return nil
}

// ScrapeStatusResponse is returned by GET /scraping/estado/{tarea_id}.
type ScrapeStatusResponse struct {
	Status          TaskStatus `json:"estado"`
	ProgressPercent *int       `json:"progreso_porcentaje,omitempty"`
	FoundPrice      *float64   `json:"precio_encontrado,omitempty"`
	Message         string     `json:"mensaje"`
	ElapsedSeconds  float64    `json:"tiempo_transcurrido_segundos"`
}

func (r *ScrapeStatusResponse) Validate() error {
	if !r.Status.Valid() {
		return fmt.Errorf("missing or unknown estado %q", r.Status)
	}
	if r.ProgressPercent != nil && (*r.ProgressPercent < 0 || *r.ProgressPercent > 100) {
		return fmt.Errorf("progreso_porcentaje out of range: %d", *r.ProgressPercent)
	}
	return nil
}
