package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/thereayou/coursechat/internal/models"
	"gorm.io/gorm"
)

func (d *Database) CreateNotifications(ctx context.Context, notifications []models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	return d.db.WithContext(ctx).Create(&notifications).Error
}

// ListNotifications - новые первыми
func (d *Database) ListNotifications(ctx context.Context, userID string) ([]models.Notification, error) {
	var notifications []models.Notification
	err := d.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&notifications).Error
	return notifications, err
}

func (d *Database) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := d.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// MarkNotificationRead помечает одно уведомление владельца; чужое или несуществующее - ErrNotFound
func (d *Database) MarkNotificationRead(ctx context.Context, userID, id string) (*models.Notification, error) {
	var n models.Notification
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&n, "id = ? AND user_id = ?", id, userID).Error; err != nil {
			return notFound(err)
		}
		if n.Read {
			return nil
		}
		n.Read = true
		return tx.Model(&n).Update("read", true).Error
	})
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// MarkAllNotificationsRead помечает прочитанными уведомления, которые были у пользователя
// на момент вызова, и возвращает ровно этот набор. Созданные параллельно остаются непрочитанными.
func (d *Database) MarkAllNotificationsRead(ctx context.Context, userID string) ([]models.Notification, error) {
	var notifications []models.Notification
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).
			Order("created_at DESC").
			Find(&notifications).Error; err != nil {
			return err
		}

		var ids []uuid.UUID
		for i := range notifications {
			if !notifications[i].Read {
				ids = append(ids, notifications[i].ID)
				notifications[i].Read = true
			}
		}
		if len(ids) == 0 {
			return nil
		}
		return tx.Model(&models.Notification{}).
			Where("id IN ?", ids).
			Update("read", true).Error
	})
	if err != nil {
		return nil, err
	}
	return notifications, nil
}
