package audit

import (
	"github.com/sirupsen/logrus"

	"github.com/namhsc/tvtl-sub000/domain"
)

// LogrusSink implements domain.EventSink by writing session events to the
// structured log.
type LogrusSink struct {
	log *logrus.Entry
}

// NewLogrusSink creates a new logrus-backed event sink
func NewLogrusSink(logger *logrus.Logger) *LogrusSink {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogrusSink{log: logger.WithField("component", "audit")}
}

// Publish implements domain.EventSink
func (s *LogrusSink) Publish(event *domain.SessionEvent) {
	if event == nil {
		return
	}

	entry := s.log.WithFields(logrus.Fields{
		"event":   event.EventType,
		"success": event.Success,
	})
	if event.UserID != 0 {
		entry = entry.WithField("user_id", event.UserID)
	}
	if event.Phone != "" {
		entry = entry.WithField("phone", event.Phone)
	}
	for k, v := range event.Metadata {
		entry = entry.WithField(k, v)
	}

	if event.Success {
		entry.Info("session event")
		return
	}
	entry.WithField("error", event.ErrorMsg).Warn("session event")
}

var _ domain.EventSink = (*LogrusSink)(nil)
