package connection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestContactLog(t *testing.T) {
	t.Run("empty before first contact", func(t *testing.T) {
		log := NewContactLog()
		_, ok := log.Last()
		assert.False(t, ok)
	})

	t.Run("records the latest contact", func(t *testing.T) {
		log := NewContactLog()
		first := time.Unix(1700000000, 0).UTC()
		second := first.Add(time.Minute)

		log.Record(first)
		log.Record(second)

		got, ok := log.Last()
		assert.True(t, ok)
		assert.Equal(t, second, got)
	})

	t.Run("ignores times older than the latest", func(t *testing.T) {
		log := NewContactLog()
		newer := time.Unix(1700000060, 0).UTC()
		older := newer.Add(-time.Minute)

		log.Record(newer)
		log.Record(older)

		got, _ := log.Last()
		assert.Equal(t, newer, got)
	})
}
