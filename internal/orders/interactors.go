package orders

import (
	"context"

	"github.com/Ramsey-B/sprig/pkg/errors"
	"github.com/Ramsey-B/sprig/pkg/interactor"
	"github.com/Ramsey-B/sprig/pkg/steps"
	"github.com/Ramsey-B/sprig/pkg/store"
	"github.com/Ramsey-B/sprig/pkg/values"
)

// PlacedKey holds the order created by PlaceOrder.
const PlacedKey = "placed_order"

// Interactors are the order use cases.
type Interactors struct {
	Place    *interactor.Interactor
	List     *interactor.Interactor
	Annotate *interactor.Interactor
	Cancel   *interactor.Interactor
	// Reorder places a copy of an open order and cancels the original. The
	// copy is deleted again when the cancellation fails.
	Reorder *interactor.Organizer
}

func NewInteractors(repo store.Repository) (*Interactors, error) {
	place, err := interactor.New("PlaceOrder", placeOrder(repo),
		steps.Transaction(repo),
		steps.Required("buyer_id"),
		steps.Optional("note"),
		steps.ContextVariables(steps.Var("status", values.Literal(StatusOpen))),
		interactor.WithRollback(func(ctx context.Context, ic *interactor.Context) error {
			order, ok := ic.Get(PlacedKey).(*store.Record)
			if !ok || !order.Persisted() {
				return nil
			}
			return repo.Delete(ctx, order)
		}),
	)
	if err != nil {
		return nil, err
	}

	list, err := interactor.New("ListOpenOrders", nil,
		steps.Required("buyer_id"),
		steps.FindWhere(repo, ModelName, steps.Where(map[string]any{"buyer_id": "buyer_id"}), steps.Scope(StatusOpen)),
	)
	if err != nil {
		return nil, err
	}

	annotate, err := interactor.New("AnnotateOrder", nil,
		steps.Transaction(repo),
		steps.FindBy(repo, ModelName, steps.MustFind()),
		steps.Update(repo, ModelName, steps.Attributes(steps.Assign("note", "note"))),
		steps.ValidatesAfter([]string{ModelName}, steps.Persisted()),
	)
	if err != nil {
		return nil, err
	}

	cancel, err := interactor.New("CancelOrder", nil,
		steps.Skip(steps.If(values.Ref("dry_run"))),
		steps.Transaction(repo),
		steps.ValidatesBefore([]string{"reason"}, steps.Presence(), steps.Inclusion(CancelReasons...)),
		steps.FindBy(repo, ModelName, steps.MustFind(), steps.Query(map[string]any{
			"id":     "order_id",
			"status": values.Literal(StatusOpen),
		})),
		steps.Update(repo, ModelName, steps.Attributes(
			steps.Assign("status", values.Literal(StatusCancelled)),
			steps.Assign("note", "reason"),
		)),
	)
	if err != nil {
		return nil, err
	}

	previous, err := interactor.New("LoadPreviousOrder", nil,
		steps.FindBy(repo, ModelName, steps.MustFind(), steps.As("previous_order")),
		steps.ValidatesBefore([]string{"previous_order"}, steps.OfType[*store.Record]()),
		steps.ContextVariables(
			steps.Var("buyer_id", previousField("buyer_id")),
			steps.Var("note", previousField("note")),
		),
	)
	if err != nil {
		return nil, err
	}

	return &Interactors{
		Place:    place,
		List:     list,
		Annotate: annotate,
		Cancel:   cancel,
		Reorder:  interactor.NewOrganizer("Reorder", previous, place, cancel),
	}, nil
}

func previousField(field string) values.Value {
	return values.Func(func(src values.Source) (any, error) {
		value, _ := src.Lookup("previous_order")
		order, ok := value.(*store.Record)
		if !ok {
			return nil, nil
		}
		return order.Get(field), nil
	})
}

func placeOrder(repo store.Repository) interactor.PerformFunc {
	return func(ctx context.Context, ic *interactor.Context) error {
		order, err := repo.Create(ctx, ModelName, map[string]any{
			"buyer_id": ic.Get("buyer_id"),
			"note":     ic.Get("note"),
			"status":   ic.Get("status"),
		})
		if errors.IsRecordInvalidError(err) {
			ic.Fail(errors.Messages(err)...)
			return nil
		}
		if err != nil {
			return err
		}
		ic.Set(PlacedKey, order)
		return nil
	}
}
