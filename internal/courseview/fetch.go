package courseview

import (
	"golang.org/x/sync/errgroup"

	"github.com/thereayou/coursechat/internal/handlers/dto"
)

// fetch грузит курс и историю чата параллельно; первая ошибка отменяет второй запрос
func (b *Binder) fetch(m *mount) (*dto.CourseResponse, []dto.MessageResponse, error) {
	var (
		course  *dto.CourseResponse
		history []dto.MessageResponse
	)

	g, ctx := errgroup.WithContext(m.ctx)
	g.Go(func() error {
		c, err := b.cfg.Backend.GetCourse(ctx, m.courseID)
		if err != nil {
			return err
		}
		course = c
		return nil
	})
	g.Go(func() error {
		h, err := b.cfg.Backend.ChatHistory(ctx, m.courseID)
		if err != nil {
			return err
		}
		history = h
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return course, history, nil
}
