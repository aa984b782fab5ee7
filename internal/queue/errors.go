package queue

import (
	"fmt"

	"postforge/internal/services"
)

func markFailed(item WorkItem, err error) error {
	return services.Wrap(services.ErrQueueUpdate, "", "mark processed", fmt.Sprintf("item %s at position %d", item.ID, item.Position), err)
}

func invalidItem(message string) error {
	return services.Wrap(services.ErrValidation, "", "add item", message, nil)
}
