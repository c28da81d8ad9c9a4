package courseview

import (
	"context"
	"strings"

	"github.com/thereayou/coursechat/internal/handlers/dto"
	"github.com/thereayou/coursechat/internal/notice"
)

func findVideo(c *dto.CourseResponse, id string) (dto.VideoResponse, bool) {
	if c == nil || id == "" {
		return dto.VideoResponse{}, false
	}
	for _, v := range c.Videos {
		if v.ID == id {
			return v, true
		}
	}
	return dto.VideoResponse{}, false
}

func firstVideo(c *dto.CourseResponse) string {
	if c == nil || len(c.Videos) == 0 {
		return ""
	}
	return c.Videos[0].ID
}

func (b *Binder) SelectVideo(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := findVideo(b.course, id); !ok {
		return ErrVideoNotFound
	}
	b.selected = id
	return nil
}

func (b *Binder) SelectedVideo() (dto.VideoResponse, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return findVideo(b.course, b.selected)
}

// SearchVideos ищет без учёта регистра по названию и расшифровке. Пустой запрос - все видео.
func (b *Binder) SearchVideos(query string) []dto.VideoResponse {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.course == nil {
		return nil
	}
	q := strings.ToLower(strings.TrimSpace(query))

	out := make([]dto.VideoResponse, 0, len(b.course.Videos))
	for _, v := range b.course.Videos {
		if q == "" ||
			strings.Contains(strings.ToLower(v.Title), q) ||
			strings.Contains(strings.ToLower(v.Transcript), q) {
			out = append(out, v)
		}
	}
	return out
}

// ownedVideo проверяет, что курс открыт, пользователь - его автор и видео существует
func (b *Binder) ownedVideo(videoID string) (*mount, error) {
	m, err := b.ready()
	if err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.course == nil || b.course.Tutor.ID != b.cfg.Identity.Credentials().UserID {
		return nil, ErrNotOwner
	}
	if _, ok := findVideo(b.course, videoID); !ok {
		return nil, ErrVideoNotFound
	}
	return m, nil
}

// GenerateTranscript запрашивает расшифровку и обновляет локальную копию курса
func (b *Binder) GenerateTranscript(ctx context.Context, videoID string) (string, error) {
	m, err := b.ownedVideo(videoID)
	if err != nil {
		return "", err
	}

	ctx, done := m.bind(ctx)
	defer done()
	text, err := b.cfg.Backend.GenerateTranscript(ctx, m.courseID, videoID)

	b.mu.Lock()
	if b.current != m {
		b.mu.Unlock()
		b.discard(m)
		return "", ErrSuperseded
	}
	if err != nil {
		b.mu.Unlock()
		b.cfg.Notifier.Notify(notice.Error("Failed to generate transcript", err.Error()))
		return "", err
	}
	for i := range b.course.Videos {
		if b.course.Videos[i].ID == videoID {
			b.course.Videos[i].Transcript = text
		}
	}
	b.mu.Unlock()
	return text, nil
}

func (b *Binder) DeleteVideo(ctx context.Context, videoID string) error {
	m, err := b.ownedVideo(videoID)
	if err != nil {
		return err
	}

	ctx, done := m.bind(ctx)
	defer done()
	err = b.cfg.Backend.DeleteVideo(ctx, m.courseID, videoID)

	b.mu.Lock()
	if b.current != m {
		b.mu.Unlock()
		b.discard(m)
		return ErrSuperseded
	}
	if err != nil {
		b.mu.Unlock()
		b.cfg.Notifier.Notify(notice.Error("Failed to delete video", err.Error()))
		return err
	}

	videos := make([]dto.VideoResponse, 0, len(b.course.Videos))
	for _, v := range b.course.Videos {
		if v.ID != videoID {
			videos = append(videos, v)
		}
	}
	b.course.Videos = videos
	if b.selected == videoID {
		b.selected = firstVideo(b.course)
	}
	b.mu.Unlock()
	return nil
}
