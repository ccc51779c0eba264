package delivery

import (
	"net/http"
	"strconv"

	canvasdto "canvas-mirror-backend/internal/canvas/dto"
	"canvas-mirror-backend/internal/canvas/usecase"
	"canvas-mirror-backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

type SyncHandler struct {
	syncUsecase usecase.SyncUsecase
}

func NewSyncHandler(syncUsecase usecase.SyncUsecase) *SyncHandler {
	return &SyncHandler{
		syncUsecase: syncUsecase,
	}
}

func respondError(c *gin.Context, err error) {
	appErr := apperrors.AsError(err)
	c.JSON(apperrors.HTTPStatus(appErr), canvasdto.ErrorResponse{
		Error: canvasdto.ErrorBody{Code: appErr.Code, Message: appErr.Message},
	})
}

func (h *SyncHandler) GetCourses(c *gin.Context) {
	userID := c.GetString("userID")

	courses, err := h.syncUsecase.ListCourses(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]canvasdto.CourseDTO, 0, len(courses))
	for _, course := range courses {
		out = append(out, canvasdto.CourseFromDomain(course))
	}

	c.JSON(http.StatusOK, canvasdto.CoursesResponse{OK: true, Courses: out})
}

func (h *SyncHandler) GetDocuments(c *gin.Context) {
	courseID := c.Query("course_id")

	limit := 50
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	docs, err := h.syncUsecase.ListDocuments(courseID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, canvasdto.DocumentsResponse{OK: true, Documents: docs})
}

func (h *SyncHandler) StartSync(c *gin.Context) {
	h.startSync(c, "")
}

func (h *SyncHandler) StartCourseSync(c *gin.Context) {
	courseID := c.Param("course_id")
	if courseID == "" {
		respondError(c, apperrors.New(apperrors.CodeInvalidArgument, "course_id is required"))
		return
	}
	h.startSync(c, courseID)
}

func (h *SyncHandler) startSync(c *gin.Context, courseID string) {
	userID := c.GetString("userID")

	jobID, existing, err := h.syncUsecase.StartSync(c.Request.Context(), userID, courseID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, canvasdto.SyncStartResponse{
		OK:       true,
		JobID:    jobID,
		Existing: existing,
	})
}

func (h *SyncHandler) GetSyncStatus(c *gin.Context) {
	jobID := c.Param("job_id")
	if jobID == "" {
		respondError(c, apperrors.New(apperrors.CodeInvalidArgument, "job_id is required"))
		return
	}

	job, err := h.syncUsecase.GetJobStatus(c.Request.Context(), jobID)
	if err != nil {
		respondError(c, err)
		return
	}
	if job == nil {
		respondError(c, apperrors.ErrJobNotFound)
		return
	}

	c.JSON(http.StatusOK, canvasdto.JobStatusResponse{OK: true, Job: job})
}

func (h *SyncHandler) PutCredentials(c *gin.Context) {
	userID := c.GetString("userID")

	var req canvasdto.CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.New(apperrors.CodeInvalidArgument, "token and base_url are required"))
		return
	}

	if err := h.syncUsecase.StoreCredentials(userID, req.Token, req.BaseURL); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
