package party_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/party-engine/party"
)

func TestEndInstant(t *testing.T) {
	eventDate := time.Date(2026, time.June, 10, 0, 0, 0, 0, time.Local)

	t.Run("start time set", func(t *testing.T) {
		p := party.Party{ID: "p1", Date: eventDate, StartTime: &party.TimeOfDay{Hour: 18, Minute: 30}}
		end, err := p.EndInstant()
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, time.June, 10, 18, 30, 0, 0, time.Local), end)
	})

	t.Run("no start time falls back to end of day", func(t *testing.T) {
		p := party.Party{ID: "p1", Date: eventDate}
		end, err := p.EndInstant()
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, time.June, 10, 23, 59, 59, 0, time.Local), end)
	})

	t.Run("zero date is malformed", func(t *testing.T) {
		p := party.Party{ID: "p1"}
		_, err := p.EndInstant()
		var malformed *party.MalformedPartyError
		require.ErrorAs(t, err, &malformed)
		assert.Equal(t, "date", malformed.Field)
	})

	t.Run("out-of-range start time is malformed", func(t *testing.T) {
		p := party.Party{ID: "p1", Date: eventDate, StartTime: &party.TimeOfDay{Hour: 25}}
		_, err := p.EndInstant()
		var malformed *party.MalformedPartyError
		require.ErrorAs(t, err, &malformed)
		assert.Equal(t, "start_time", malformed.Field)
	})
}
