package platform

import (
	platformsvc "github.com/conveyor-cloud/conveyor/api/rest/service/platform"
)

// Controller exposes platform piece-filter configuration over REST.
type Controller struct {
	svc platformsvc.Platform
}

func New(svc platformsvc.Platform) *Controller {
	return &Controller{svc: svc}
}
