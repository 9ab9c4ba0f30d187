package dialogue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cicerone/internal/schema"
	"cicerone/pkg/types"
)

func newTestTracker(t *testing.T, cfg TrackerConfig) *Tracker {
	t.Helper()
	return NewTracker(schema.Default(), cfg)
}

func TestMergeStartsNewRequest(t *testing.T) {
	tr := newTestTracker(t, TrackerConfig{})

	intent, slots, err := tr.Merge(types.Extraction{
		Intent: "restaurant_search",
		Slots:  types.SlotSet{"location": "Lyon", "food_type": "Italian", "budget": ""},
	})
	require.NoError(t, err)

	assert.Equal(t, "restaurant_search", intent)
	assert.Equal(t, 2, slots.Len())
	assert.True(t, slots.Filled("location"))
	assert.False(t, slots.Filled("budget"), "empty extraction must not create a slot")
}

func TestMergeUnknownIntentRetainsUnfinishedRequest(t *testing.T) {
	tr := newTestTracker(t, TrackerConfig{})

	_, _, err := tr.Merge(types.Extraction{
		Intent: "restaurant_search",
		Slots:  types.SlotSet{"location": "Lyon"},
	})
	require.NoError(t, err)

	intent, slots, err := tr.Merge(types.Extraction{
		Intent: types.IntentUnknown,
		Slots:  types.SlotSet{"budget": "20€"},
	})
	require.NoError(t, err)

	assert.Equal(t, "restaurant_search", intent, "continuity wins over noise")
	assert.True(t, slots.Filled("location"))
	assert.True(t, slots.Filled("budget"))
}

func TestMergeNoSilentErasure(t *testing.T) {
	tr := newTestTracker(t, TrackerConfig{})

	_, _, err := tr.Merge(types.Extraction{
		Intent: "restaurant_search",
		Slots:  types.SlotSet{"location": "Lyon", "food_type": "Italian"},
	})
	require.NoError(t, err)

	// A later turn whose extraction came back empty for known slots.
	_, slots, err := tr.Merge(types.Extraction{
		Intent: "restaurant_search",
		Slots:  types.SlotSet{"location": "", "food_type": "", "budget": "20€"},
	})
	require.NoError(t, err)

	v, _ := slots.Get("location")
	assert.Equal(t, "Lyon", v)
	v, _ = slots.Get("food_type")
	assert.Equal(t, "Italian", v)
	v, _ = slots.Get("budget")
	assert.Equal(t, "20€", v)
}

func TestMergeFillOnlyPolicyKeepsFirstValue(t *testing.T) {
	tr := newTestTracker(t, TrackerConfig{OverwriteOnRepeat: false})

	_, _, err := tr.Merge(types.Extraction{
		Intent: "restaurant_search",
		Slots:  types.SlotSet{"location": "Lyon"},
	})
	require.NoError(t, err)

	_, slots, err := tr.Merge(types.Extraction{
		Intent: "restaurant_search",
		Slots:  types.SlotSet{"location": "Dijon", "budget": "cheap"},
	})
	require.NoError(t, err)

	v, _ := slots.Get("location")
	assert.Equal(t, "Lyon", v, "fill-only: existing value wins")
	v, _ = slots.Get("budget")
	assert.Equal(t, "cheap", v, "missing slot still fills")
}

func TestMergeOverwritePolicyTakesNewValue(t *testing.T) {
	tr := newTestTracker(t, TrackerConfig{OverwriteOnRepeat: true})

	_, _, err := tr.Merge(types.Extraction{
		Intent: "restaurant_search",
		Slots:  types.SlotSet{"location": "Lyon"},
	})
	require.NoError(t, err)

	_, slots, err := tr.Merge(types.Extraction{
		Intent: "restaurant_search",
		Slots:  types.SlotSet{"location": "Dijon"},
	})
	require.NoError(t, err)

	v, _ := slots.Get("location")
	assert.Equal(t, "Dijon", v, "overwrite: newer non-empty value wins")
}

func TestMergeRecognizedIntentSwitchResetsAggregate(t *testing.T) {
	tr := newTestTracker(t, TrackerConfig{})

	_, _, err := tr.Merge(types.Extraction{
		Intent: "restaurant_search",
		Slots:  types.SlotSet{"location": "Lyon", "food_type": "Italian"},
	})
	require.NoError(t, err)

	intent, slots, err := tr.Merge(types.Extraction{
		Intent: "hotel_booking",
		Slots:  types.SlotSet{"date": "Friday"},
	})
	require.NoError(t, err)

	assert.Equal(t, "hotel_booking", intent)
	assert.False(t, slots.Filled("food_type"), "no carry-over across unrelated intents")
	assert.True(t, slots.Filled("date"))
}

func TestMergeSocialIntentDoesNotResetUnfinishedRequest(t *testing.T) {
	tr := newTestTracker(t, TrackerConfig{})

	_, _, err := tr.Merge(types.Extraction{
		Intent: "restaurant_search",
		Slots:  types.SlotSet{"location": "Lyon"},
	})
	require.NoError(t, err)

	// "thanks" is not declared in the schema; it must not wipe the request.
	intent, slots, err := tr.Merge(types.Extraction{
		Intent: "thanks",
		Slots:  types.NewSlotSet(),
	})
	require.NoError(t, err)

	assert.Equal(t, "restaurant_search", intent)
	assert.True(t, slots.Filled("location"))
}

func TestMergeCompletedRequestAllowsNewIntent(t *testing.T) {
	tr := newTestTracker(t, TrackerConfig{})

	_, _, err := tr.Merge(types.Extraction{
		Intent: "restaurant_search",
		Slots: types.SlotSet{
			"location": "Lyon", "food_type": "Italian",
			"budget": "20€", "time": "tonight",
		},
	})
	require.NoError(t, err)

	intent, slots, err := tr.Merge(types.Extraction{
		Intent: "restaurant_search",
		Slots:  types.SlotSet{"location": "Paris"},
	})
	require.NoError(t, err)

	assert.Equal(t, "restaurant_search", intent)
	assert.Equal(t, 1, slots.Len(), "a completed request starts over on the next one")
	v, _ := slots.Get("location")
	assert.Equal(t, "Paris", v)
}

func TestMergeSelectionTurnNeverMutates(t *testing.T) {
	tr := newTestTracker(t, TrackerConfig{OverwriteOnRepeat: true})

	_, _, err := tr.Merge(types.Extraction{
		Intent: "restaurant_search",
		Slots:  types.SlotSet{"location": "Lyon", "budget": "medium"},
	})
	require.NoError(t, err)

	// Even with stray slot values in the raw extraction, a selection turn is
	// a pure continuity signal.
	intent, slots, err := tr.Merge(types.Extraction{
		Intent:    "restaurant_search",
		Selection: true,
		Slots:     types.SlotSet{"location": "Marseille", "budget": "luxury"},
	})
	require.NoError(t, err)

	assert.Equal(t, "restaurant_search", intent)
	v, _ := slots.Get("location")
	assert.Equal(t, "Lyon", v)
	v, _ = slots.Get("budget")
	assert.Equal(t, "medium", v)
}

func TestMergeSelectionWithoutActiveRequestIsNoOp(t *testing.T) {
	tr := newTestTracker(t, TrackerConfig{})

	// Nothing was offered yet, so there is nothing the selection could pick.
	intent, slots, err := tr.Merge(types.Extraction{
		Intent:    "restaurant_search",
		Selection: true,
		Slots:     types.SlotSet{"location": "Lyon"},
	})
	require.NoError(t, err)
	assert.Empty(t, intent)
	assert.Zero(t, slots.Len())
	assert.Empty(t, tr.Intent(), "reported and stored intent agree")

	// The next real turn starts a fresh request normally.
	intent, slots, err = tr.Merge(types.Extraction{
		Intent: "restaurant_search",
		Slots:  types.SlotSet{"location": "Lyon"},
	})
	require.NoError(t, err)
	assert.Equal(t, "restaurant_search", intent)
	assert.Equal(t, 1, slots.Len())
}

func TestMergeMalformedExtractionLeavesAggregateUntouched(t *testing.T) {
	tr := newTestTracker(t, TrackerConfig{})

	_, _, err := tr.Merge(types.Extraction{
		Intent: "restaurant_search",
		Slots:  types.SlotSet{"location": "Lyon"},
	})
	require.NoError(t, err)

	_, _, err = tr.Merge(types.Extraction{Intent: "restaurant_search", Slots: nil})
	assert.ErrorIs(t, err, ErrMalformedExtraction)

	_, _, err = tr.Merge(types.Extraction{
		Intent: "restaurant_search",
		Slots:  types.SlotSet{"": "oops"},
	})
	assert.ErrorIs(t, err, ErrMalformedExtraction)

	assert.Equal(t, "restaurant_search", tr.Intent())
	assert.True(t, tr.Snapshot().Filled("location"))
	assert.Equal(t, 1, tr.Snapshot().Len())
}

func TestHydrateAndReset(t *testing.T) {
	tr := newTestTracker(t, TrackerConfig{})
	tr.Hydrate("restaurant_search", types.SlotSet{"location": "Lyon", "budget": ""})

	assert.Equal(t, "restaurant_search", tr.Intent())
	assert.Equal(t, 1, tr.Snapshot().Len())

	tr.Reset()
	assert.Empty(t, tr.Intent())
	assert.Equal(t, 0, tr.Snapshot().Len())
}

func TestSnapshotIsACopy(t *testing.T) {
	tr := newTestTracker(t, TrackerConfig{})
	_, _, err := tr.Merge(types.Extraction{
		Intent: "restaurant_search",
		Slots:  types.SlotSet{"location": "Lyon"},
	})
	require.NoError(t, err)

	snap := tr.Snapshot()
	snap.Set("location", "Paris")

	v, _ := tr.Snapshot().Get("location")
	assert.Equal(t, "Lyon", v)
}
