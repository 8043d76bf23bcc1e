package analytics

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	events []Event
	err    error
}

func (s *recordingSink) Record(_ context.Context, e Event) error {
	s.events = append(s.events, e)
	return s.err
}

func TestTee_Record(t *testing.T) {
	ok := &recordingSink{}
	failing := &recordingSink{err: errors.New("broker down")}
	tee := Tee{failing, ok, Discard{}}

	err := tee.Record(context.Background(), Event{Type: EventCatalogVisit, StoreID: "s1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")

	require.Len(t, ok.events, 1)
	assert.Equal(t, EventCatalogVisit, ok.events[0].Type)
	require.Len(t, failing.events, 1)
}

func TestTee_Empty(t *testing.T) {
	require.NoError(t, Tee(nil).Record(context.Background(), Event{Type: EventOrderPlaced}))
}
