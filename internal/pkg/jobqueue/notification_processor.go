package jobqueue

import (
	"fmt"

	"github.com/fanlink/fanlink/app/models"
	"github.com/fanlink/fanlink/app/repository"
)

// processNotificationJob inserts the notification row described by the
// payload. Fan-out runs here rather than in the request path so a slow or
// failing insert never delays the triggering request.
func (q *Queue) processNotificationJob(job *Job) error {
	payload, err := NotificationJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid notification payload: %w", err)
	}
	if payload.RecipientID == 0 || payload.Type == "" {
		return fmt.Errorf("notification payload missing recipient or type")
	}
	// Users do not get notified about their own actions. Payment events are
	// system-originated, there the actor legitimately is the recipient.
	if payload.RecipientID == payload.ActorID && payload.Type != models.NotificationTypePayment {
		return nil
	}

	notification := &models.Notification{
		RecipientID: payload.RecipientID,
		ActorID:     payload.ActorID,
		Type:        payload.Type,
		Message:     payload.Message,
	}
	if payload.ReferenceID != 0 {
		ref := payload.ReferenceID
		notification.ReferenceID = &ref
	}

	return repository.GetGlobalRepositories().Notification.Create(notification)
}
