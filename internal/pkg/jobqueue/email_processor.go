package jobqueue

import (
	"fmt"

	"github.com/fanlink/fanlink/app/repository"
	"github.com/fanlink/fanlink/internal/pkg/mail"
)

// processEmailJob renders the payload's template from the database and
// sends the result over SMTP. Template data values are strings; the
// renderer escapes them into the HTML body.
func (q *Queue) processEmailJob(job *Job) error {
	payload, err := EmailJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid email payload: %w", err)
	}
	if payload.To == "" || payload.Template == "" {
		return fmt.Errorf("email payload missing recipient or template")
	}

	data := make(map[string]any, len(payload.Data))
	for k, v := range payload.Data {
		data[k] = v
	}

	renderer := mail.NewRenderer(repository.GetGlobalRepositories().EmailTemplate)
	return renderer.SendTemplate(payload.To, payload.Template, data)
}
