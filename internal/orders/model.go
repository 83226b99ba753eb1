// Package orders is a small order service built from request objects,
// interactor steps and organizers.
package orders

import (
	"fmt"

	"github.com/Ramsey-B/sprig/pkg/database"
	"github.com/Ramsey-B/sprig/pkg/store"
)

const ModelName = "order"

const (
	StatusOpen      = "open"
	StatusCancelled = "cancelled"
)

var statuses = []string{StatusOpen, StatusCancelled}

// CancelReasons are the accepted values of a cancellation reason.
var CancelReasons = []any{"requested", "duplicate", "fraud"}

// Model describes the orders table.
func Model() store.Model {
	return store.Model{
		Name:    ModelName,
		Columns: []string{"buyer_id", "status", "note"},
		Scopes: map[string]store.Scope{
			StatusOpen: func(sb *database.SelectBuilder) {
				sb.Where(sb.Equal("status", StatusOpen))
			},
		},
		Validate: validate,
	}
}

func validate(r *store.Record) []string {
	var messages []string
	if r.Get("buyer_id") == nil {
		messages = append(messages, "Buyer can't be blank")
	}
	status, _ := r.Get("status").(string)
	valid := false
	for _, s := range statuses {
		if status == s {
			valid = true
		}
	}
	if !valid {
		messages = append(messages, fmt.Sprintf("Status %q is not a valid status", status))
	}
	return messages
}
