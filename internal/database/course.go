package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/thereayou/coursechat/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (d *Database) CreateCourse(ctx context.Context, course *models.Course) error {
	return d.db.WithContext(ctx).Omit(clause.Associations).Create(course).Error
}

// GetCourse возвращает курс с автором и видео в порядке position
func (d *Database) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	var course models.Course
	err := d.db.WithContext(ctx).
		Preload("Tutor").
		Preload("Videos", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&course, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &course, nil
}

func (d *Database) ListCourses(ctx context.Context) ([]models.Course, error) {
	var courses []models.Course
	err := d.db.WithContext(ctx).
		Preload("Tutor").
		Order("created_at DESC").
		Find(&courses).Error
	return courses, err
}

func (d *Database) ListTutorCourses(ctx context.Context, tutorID string) ([]models.Course, error) {
	var courses []models.Course
	err := d.db.WithContext(ctx).
		Preload("Tutor").
		Where("tutor_id = ?", tutorID).
		Order("created_at DESC").
		Find(&courses).Error
	return courses, err
}

// AddVideo добавляет видео в конец списка курса
func (d *Database) AddVideo(ctx context.Context, video *models.Video) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxPos int
		if err := tx.Model(&models.Video{}).
			Where("course_id = ?", video.CourseID).
			Select("COALESCE(MAX(position), -1)").
			Scan(&maxPos).Error; err != nil {
			return err
		}

		video.Position = maxPos + 1
		return tx.Create(video).Error
	})
}

func (d *Database) GetVideo(ctx context.Context, courseID, videoID string) (*models.Video, error) {
	var video models.Video
	err := d.db.WithContext(ctx).
		First(&video, "id = ? AND course_id = ?", videoID, courseID).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &video, nil
}

// DeleteVideo удаляет видео и сдвигает position у следующих
func (d *Database) DeleteVideo(ctx context.Context, courseID, videoID string) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var video models.Video
		if err := tx.First(&video, "id = ? AND course_id = ?", videoID, courseID).Error; err != nil {
			return notFound(err)
		}

		if err := tx.Delete(&models.Video{}, "id = ?", video.ID).Error; err != nil {
			return err
		}

		return tx.Model(&models.Video{}).
			Where("course_id = ? AND position > ?", courseID, video.Position).
			Update("position", gorm.Expr("position - 1")).Error
	})
}

func (d *Database) SetTranscript(ctx context.Context, courseID, videoID, transcript string) error {
	res := d.db.WithContext(ctx).Model(&models.Video{}).
		Where("id = ? AND course_id = ?", videoID, courseID).
		Update("transcript", transcript)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Enroll идемпотентен: повторная запись не считается ошибкой
func (d *Database) Enroll(ctx context.Context, userID, courseID uuid.UUID) error {
	return d.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Enrollment{UserID: userID, CourseID: courseID}).Error
}

func (d *Database) IsEnrolled(ctx context.Context, userID, courseID string) (bool, error) {
	var count int64
	err := d.db.WithContext(ctx).Model(&models.Enrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Count(&count).Error
	return count > 0, err
}

// CanAccessCourse - автор курса или записанный студент
func (d *Database) CanAccessCourse(ctx context.Context, userID, courseID string) (bool, error) {
	var course models.Course
	if err := d.db.WithContext(ctx).Select("id", "tutor_id").First(&course, "id = ?", courseID).Error; err != nil {
		return false, notFound(err)
	}
	if course.TutorID.String() == userID {
		return true, nil
	}
	return d.IsEnrolled(ctx, userID, courseID)
}

// CourseMemberIDs возвращает автора и всех записанных на курс
func (d *Database) CourseMemberIDs(ctx context.Context, courseID string) ([]uuid.UUID, error) {
	var course models.Course
	if err := d.db.WithContext(ctx).Select("id", "tutor_id").First(&course, "id = ?", courseID).Error; err != nil {
		return nil, notFound(err)
	}

	var raw []string
	if err := d.db.WithContext(ctx).Model(&models.Enrollment{}).
		Where("course_id = ?", courseID).
		Pluck("user_id", &raw).Error; err != nil {
		return nil, err
	}

	members := make([]uuid.UUID, 0, len(raw)+1)
	members = append(members, course.TutorID)
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		if id != course.TutorID {
			members = append(members, id)
		}
	}
	return members, nil
}
