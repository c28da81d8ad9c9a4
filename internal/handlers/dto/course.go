package dto

import "time"

type CreateCourseRequest struct {
	Title       string  `json:"title" binding:"required,max=200"`
	Description string  `json:"description"`
	Payment     string  `json:"payment" binding:"omitempty,oneof=free paid"`
	Price       float64 `json:"price" binding:"gte=0"`
}

type AddVideoRequest struct {
	Title string `json:"title" binding:"required,max=200"`
	URL   string `json:"url" binding:"required,url"`
}

type EnrollRequest struct {
	CourseID string `json:"courseId" binding:"required,uuid"`
}

type CourseResponse struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Payment     string          `json:"payment"`
	Price       float64         `json:"price"`
	Tutor       UserInfo        `json:"tutor"`
	Videos      []VideoResponse `json:"videos"`
	CreatedAt   time.Time       `json:"created_at"`
}

type VideoResponse struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	Position   int    `json:"position"`
	Transcript string `json:"transcript,omitempty"`
}

type TranscriptResponse struct {
	VideoID    string `json:"video_id"`
	Transcript string `json:"transcript"`
}
