package worker

import (
	"github.com/relaydesk/live-chat/internal/service"
)

// StartNotificationWorker registers notification handlers and returns their cancel func.
func StartNotificationWorker(notificationService *service.NotificationService) func() {
	if notificationService == nil {
		return func() {}
	}
	return notificationService.RegisterHandlers()
}
