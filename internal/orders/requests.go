package orders

import (
	"github.com/Ramsey-B/sprig/config"
	"github.com/Ramsey-B/sprig/pkg/request"
	"github.com/Ramsey-B/sprig/pkg/validation"
)

// Schemas are the request objects of the order routes.
type Schemas struct {
	Place    *request.Schema
	List     *request.Schema
	Annotate *request.Schema
	Cancel   *request.Schema
	Reorder  *request.Schema
}

func NewSchemas(settings *config.Settings) (*Schemas, error) {
	place, err := request.NewSchema("PlaceOrderRequest",
		request.WithSettings(settings),
		request.Field("buyer_id", request.TypeName("integer"), request.Rules(validation.Presence())),
		request.Field("note", request.Transform("squish"), request.Optional(), request.Rules(validation.Length(0, 500))),
	)
	if err != nil {
		return nil, err
	}

	list, err := request.NewSchema("ListOrdersRequest",
		request.WithSettings(settings),
		request.Field("buyer_id", request.TypeName("integer"), request.Rules(validation.Presence())),
	)
	if err != nil {
		return nil, err
	}

	annotate, err := request.NewSchema("AnnotateOrderRequest",
		request.WithSettings(settings),
		request.Field("id", request.Rewrite("order_id"), request.TypeName("integer")),
		request.Field("note", request.Transform("squish"), request.Rules(validation.Presence(), validation.Length(0, 500))),
	)
	if err != nil {
		return nil, err
	}

	cancel, err := request.NewSchema("CancelOrderRequest",
		request.WithSettings(settings),
		request.Field("id", request.Rewrite("order_id"), request.TypeName("integer")),
		request.Field("reason", request.Transform("strip", "downcase"), request.Default("requested")),
		request.Field("dry_run", request.TypeName("boolean"), request.Default(false)),
	)
	if err != nil {
		return nil, err
	}

	reorder, err := request.NewSchema("ReorderRequest",
		request.WithSettings(settings),
		request.Field("id", request.Rewrite("order_id"), request.TypeName("integer")),
		request.Field("reason", request.Transform("strip", "downcase"), request.Default("duplicate")),
	)
	if err != nil {
		return nil, err
	}

	return &Schemas{Place: place, List: list, Annotate: annotate, Cancel: cancel, Reorder: reorder}, nil
}
