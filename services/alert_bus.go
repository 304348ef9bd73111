package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/MENO-App/BE-MENO/utils"
)

const menuPublishedKind = "menu.published"

// MenuEvents fans a first publication out to every configured sink.
// Any sink may be nil. Sink failures are logged and never returned.
type MenuEvents struct {
	Hub       *RealtimeHub
	Topic     TopicPublisher
	Snapshots utils.SnapshotStore
	Log       logrus.FieldLogger
}

func (e *MenuEvents) MenuPublished(ctx context.Context, week *MenuWeekView) {
	log := e.Log.WithFields(logrus.Fields{
		"menu_week_id": week.MenuWeekID,
		"school_id":    week.SchoolID,
	})

	if e.Hub != nil {
		e.Hub.Broadcast(week.SchoolID, map[string]any{
			"kind":       menuPublishedKind,
			"menuWeekId": week.MenuWeekID,
			"year":       week.Year,
			"weekNumber": week.WeekNumber,
		})
	}

	if e.Topic != nil {
		subject := fmt.Sprintf("Menu for week %d published", week.WeekNumber)
		attrs := map[string]string{
			"kind":     menuPublishedKind,
			"schoolId": week.SchoolID.String(),
		}
		if err := e.Topic.Publish(ctx, subject, week, attrs); err != nil {
			log.WithError(err).Warn("menu publication not sent to topic")
		}
	}

	if e.Snapshots != nil {
		body, err := json.Marshal(week)
		if err != nil {
			log.WithError(err).Error("encoding menu snapshot")
			return
		}
		key := utils.MenuSnapshotKey(week.SchoolID, week.Year, week.WeekNumber)
		if err := e.Snapshots.Put(ctx, key, body); err != nil {
			log.WithError(err).Warn("menu snapshot not archived")
			return
		}
		log.WithField("key", key).Debug("menu snapshot archived")
	}
}
