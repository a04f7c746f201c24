package worker

import (
	"github.com/spec-kit/sla-engine/internal/service"
)

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notifier *service.NotifierService) {
	if notifier == nil {
		return
	}
	notifier.RegisterHandlers()
}
