package worker

import (
	"github.com/spec-kit/request-tracker/internal/service"
)

// StartActivityWorker registers the activity subscribers.
func StartActivityWorker(activityService *service.ActivityService) {
	if activityService == nil {
		return
	}
	activityService.RegisterHandlers()
}
