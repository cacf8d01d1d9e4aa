package coordinator_test

import (
	"context"
	"fmt"

	"github.com/tlowry/notectx/internal/config"
	"github.com/tlowry/notectx/internal/coordinator"
	"github.com/tlowry/notectx/pkg/types"
)

// An editor integration wires the coordinator between its change events and
// the retrieval service, taking the debounce delay from configuration.
func Example() {
	cfg := config.NewDefault()

	fetch := func(ctx context.Context, q coordinator.Query) ([]types.ScoredResult, error) {
		// In a real integration this calls retrieval.Service.Context
		return nil, nil
	}
	listener := func(u coordinator.Update) {
		// Render u.Results, or u.Message when the query failed
	}

	c := coordinator.New(fetch, listener, cfg.Query.Debounce(), nil)
	defer c.Close()

	c.SetNote("worlds/kestrel")
	c.Edit(coordinator.Query{NoteID: "worlds/kestrel", Text: "The harbor", CursorOffset: 10})

	fmt.Println(cfg.Query.Debounce())
	// Output: 75ms
}
