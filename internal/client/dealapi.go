package client

import (
	"context"
	"fmt"
)

// Deal and Stage are the minimal shapes the move protocol needs; the full
// CRUD models live with the REST layer that owns them.
type Deal struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	StageID string  `json:"stage_id"`
	Value   float64 `json:"value,omitempty"`
}

type Stage struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DealAPI is the deal-mutation REST collaborator this layer consumes but
// does not implement. Its success or failure decides whether the caller
// must revert an optimistic board update (by re-fetching); the
// collaboration channel only fans out notifications and never guarantees
// the move was persisted.
type DealAPI interface {
	CreateDeal(ctx context.Context, d Deal) (Deal, error)
	UpdateDeal(ctx context.Context, d Deal) (Deal, error)
	MoveDeal(ctx context.Context, dealID, toStageID string) error
	DeleteDeal(ctx context.Context, dealID string) error
	GetDeals(ctx context.Context) ([]Deal, error)
	GetStages(ctx context.Context) ([]Stage, error)
}

// MoveDealAndNotify runs the two-phase drag-and-drop move. The peer
// notification and the REST write are deliberately not linked: peers learn
// about the move either way, and a REST failure comes back to the caller,
// whose job is to re-fetch and revert its optimistic state.
func MoveDealAndNotify(ctx context.Context, api DealAPI, sess *Session, dealID, fromStageID, toStageID string) error {
	sess.MoveDeal(dealID, fromStageID, toStageID)
	if err := api.MoveDeal(ctx, dealID, toStageID); err != nil {
		return fmt.Errorf("move deal %s: %w", dealID, err)
	}
	return nil
}
