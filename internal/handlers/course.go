package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/thereayou/coursechat/internal/database"
	"github.com/thereayou/coursechat/internal/handlers/dto"
	"github.com/thereayou/coursechat/internal/middleware"
	"github.com/thereayou/coursechat/internal/models"
)

type CourseHandler struct {
	db          *database.Database
	transcriber Transcriber
}

func NewCourseHandler(db *database.Database, transcriber Transcriber) *CourseHandler {
	return &CourseHandler{db: db, transcriber: transcriber}
}

func (h *CourseHandler) ListCourses(c *gin.Context) {
	courses, err := h.db.ListCourses(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load courses"})
		return
	}
	c.JSON(http.StatusOK, formatCourses(courses))
}

func (h *CourseHandler) ListTutorCourses(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	courses, err := h.db.ListTutorCourses(c.Request.Context(), userID.String())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load courses"})
		return
	}
	c.JSON(http.StatusOK, formatCourses(courses))
}

func (h *CourseHandler) CreateCourse(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	var req dto.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payment := req.Payment
	if payment == "" {
		payment = models.PaymentFree
	}
	if payment == models.PaymentPaid && req.Price <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "paid course needs a price"})
		return
	}

	course := &models.Course{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Payment:     payment,
		Price:       req.Price,
		TutorID:     userID,
	}
	if payment == models.PaymentFree {
		course.Price = 0
	}

	if err := h.db.CreateCourse(c.Request.Context(), course); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create course"})
		return
	}

	created, err := h.db.GetCourse(c.Request.Context(), course.ID.String())
	if err != nil {
		dbError(c, err, "course")
		return
	}
	c.JSON(http.StatusCreated, formatCourseResponse(*created))
}

// GetCourse отдаёт курс с видео автору и записанным студентам
func (h *CourseHandler) GetCourse(c *gin.Context) {
	course, ok := h.loadAccessibleCourse(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, formatCourseResponse(*course))
}

func (h *CourseHandler) AddVideo(c *gin.Context) {
	course, ok := h.loadOwnedCourse(c)
	if !ok {
		return
	}

	var req dto.AddVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	video := &models.Video{CourseID: course.ID, Title: strings.TrimSpace(req.Title), URL: req.URL}
	if err := h.db.AddVideo(c.Request.Context(), video); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add video"})
		return
	}
	c.JSON(http.StatusCreated, formatVideoResponse(*video))
}

func (h *CourseHandler) DeleteVideo(c *gin.Context) {
	course, ok := h.loadOwnedCourse(c)
	if !ok {
		return
	}

	if err := h.db.DeleteVideo(c.Request.Context(), course.ID.String(), c.Param("videoId")); err != nil {
		dbError(c, err, "video")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "video deleted"})
}

func (h *CourseHandler) GetTranscript(c *gin.Context) {
	course, ok := h.loadAccessibleCourse(c)
	if !ok {
		return
	}

	video, err := h.db.GetVideo(c.Request.Context(), course.ID.String(), c.Param("videoId"))
	if err != nil {
		dbError(c, err, "video")
		return
	}
	c.JSON(http.StatusOK, dto.TranscriptResponse{VideoID: video.ID.String(), Transcript: video.Transcript})
}

// GenerateTranscript запрашивает расшифровку у внешнего сервиса и сохраняет её
func (h *CourseHandler) GenerateTranscript(c *gin.Context) {
	course, ok := h.loadOwnedCourse(c)
	if !ok {
		return
	}

	video, err := h.db.GetVideo(c.Request.Context(), course.ID.String(), c.Param("videoId"))
	if err != nil {
		dbError(c, err, "video")
		return
	}

	if h.transcriber == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": ErrTranscriberDisabled.Error()})
		return
	}

	text, err := h.transcriber.Transcribe(c.Request.Context(), video.URL)
	if err != nil {
		if errors.Is(err, ErrTranscriberDisabled) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		log.Printf("Transcription failed for video %s: %v", video.ID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "transcription failed"})
		return
	}

	if err := h.db.SetTranscript(c.Request.Context(), course.ID.String(), video.ID.String(), text); err != nil {
		dbError(c, err, "video")
		return
	}
	c.JSON(http.StatusOK, dto.TranscriptResponse{VideoID: video.ID.String(), Transcript: text})
}

func (h *CourseHandler) DeleteTranscript(c *gin.Context) {
	course, ok := h.loadOwnedCourse(c)
	if !ok {
		return
	}

	if err := h.db.SetTranscript(c.Request.Context(), course.ID.String(), c.Param("videoId"), ""); err != nil {
		dbError(c, err, "video")
		return
	}
	c.JSON(http.StatusOK, dto.TranscriptResponse{VideoID: c.Param("videoId")})
}

// Enroll записывает на бесплатный курс; платные идут через оплату
func (h *CourseHandler) Enroll(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	var req dto.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	course, err := h.db.GetCourse(c.Request.Context(), req.CourseID)
	if err != nil {
		dbError(c, err, "course")
		return
	}
	if course.TutorID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tutor cannot enroll in own course"})
		return
	}
	if course.Payment == models.PaymentPaid {
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "course requires payment"})
		return
	}

	if err := h.db.Enroll(c.Request.Context(), userID, course.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enroll"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "enrolled", "courseId": course.ID.String()})
}

func (h *CourseHandler) loadCourse(c *gin.Context) (*models.Course, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "course not found"})
		return nil, false
	}

	course, err := h.db.GetCourse(c.Request.Context(), id)
	if err != nil {
		dbError(c, err, "course")
		return nil, false
	}
	return course, true
}

func (h *CourseHandler) loadAccessibleCourse(c *gin.Context) (*models.Course, bool) {
	course, ok := h.loadCourse(c)
	if !ok {
		return nil, false
	}

	userID, _ := middleware.CurrentUserID(c)
	if course.TutorID == userID {
		return course, true
	}

	enrolled, err := h.db.IsEnrolled(c.Request.Context(), userID.String(), course.ID.String())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check enrollment"})
		return nil, false
	}
	if !enrolled {
		c.JSON(http.StatusForbidden, gin.H{"error": "not enrolled in this course"})
		return nil, false
	}
	return course, true
}

func (h *CourseHandler) loadOwnedCourse(c *gin.Context) (*models.Course, bool) {
	course, ok := h.loadCourse(c)
	if !ok {
		return nil, false
	}

	userID, _ := middleware.CurrentUserID(c)
	if course.TutorID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the course tutor can do this"})
		return nil, false
	}
	return course, true
}

func formatCourses(courses []models.Course) []dto.CourseResponse {
	out := make([]dto.CourseResponse, 0, len(courses))
	for _, c := range courses {
		out = append(out, formatCourseResponse(c))
	}
	return out
}
