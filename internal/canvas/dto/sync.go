package dto

import domain "canvas-mirror-backend/internal/canvas/domain"

type CourseDTO struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Term *string `json:"term"`
}

func CourseFromDomain(c *domain.Course) CourseDTO {
	return CourseDTO{ID: c.ID, Name: c.Name, Term: c.Term}
}

type CoursesResponse struct {
	OK      bool        `json:"ok"`
	Courses []CourseDTO `json:"courses"`
}

type DocumentsResponse struct {
	OK        bool                       `json:"ok"`
	Documents []*domain.IngestedDocument `json:"documents"`
}

type SyncStartResponse struct {
	OK       bool   `json:"ok"`
	JobID    string `json:"job_id"`
	Existing bool   `json:"existing,omitempty"`
}

type JobStatusResponse struct {
	OK  bool            `json:"ok"`
	Job *domain.SyncJob `json:"job"`
}

type CredentialsRequest struct {
	Token   string `json:"token" binding:"required"`
	BaseURL string `json:"base_url" binding:"required"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}
