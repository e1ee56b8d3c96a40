// Package assoctest provides a behavioural test suite for assoc.Store
// implementations.
package assoctest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codegangsta/triphelper/internal/assoc"
)

// Test runs the store suite. open must return a fresh, empty store each time
// it is called.
func Test(t *testing.T, open func(ctx context.Context) assoc.Store) {
	t.Run("read-absent", func(t *testing.T) {
		ctx := context.Background()
		s := open(ctx)
		b, err := s.Read(ctx, assoc.NewKey(assoc.ModelRoom, "nothing/here"))
		require.NoError(t, err)
		assert.Nil(t, b)
	})
	t.Run("write-read", func(t *testing.T) {
		ctx := context.Background()
		s := open(ctx)
		k := assoc.NewKey(assoc.ModelRoom, "r1/general")
		require.NoError(t, s.Write(ctx, k, []byte(`{"userLocation":"Paris"}`)))
		b, err := s.Read(ctx, k)
		require.NoError(t, err)
		assert.JSONEq(t, `{"userLocation":"Paris"}`, string(b))
	})
	t.Run("overwrite", func(t *testing.T) {
		ctx := context.Background()
		s := open(ctx)
		k := assoc.NewKey(assoc.ModelUser, "u1#RoomId")
		require.NoError(t, s.Write(ctx, k, []byte(`{"roomId":"a"}`)))
		require.NoError(t, s.Write(ctx, k, []byte(`{"roomId":"b"}`)))
		b, err := s.Read(ctx, k)
		require.NoError(t, err)
		assert.JSONEq(t, `{"roomId":"b"}`, string(b))
	})
	t.Run("models-distinct", func(t *testing.T) {
		ctx := context.Background()
		s := open(ctx)
		require.NoError(t, s.Write(ctx, assoc.NewKey(assoc.ModelRoom, "x"), []byte(`{"m":"room"}`)))
		require.NoError(t, s.Write(ctx, assoc.NewKey(assoc.ModelUser, "x"), []byte(`{"m":"user"}`)))
		b, err := s.Read(ctx, assoc.NewKey(assoc.ModelRoom, "x"))
		require.NoError(t, err)
		assert.JSONEq(t, `{"m":"room"}`, string(b))
		b, err = s.Read(ctx, assoc.NewKey(assoc.ModelMisc, "x"))
		require.NoError(t, err)
		assert.Nil(t, b)
	})
	t.Run("insert", func(t *testing.T) {
		ctx := context.Background()
		s := open(ctx)
		k := assoc.NewKey(assoc.ModelMisc, "roomName/paris")
		ok, err := s.Insert(ctx, k, []byte(`{"owner":"a"}`))
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = s.Insert(ctx, k, []byte(`{"owner":"b"}`))
		require.NoError(t, err)
		assert.False(t, ok)
		b, err := s.Read(ctx, k)
		require.NoError(t, err)
		assert.JSONEq(t, `{"owner":"a"}`, string(b))
	})
	t.Run("insert-concurrent", func(t *testing.T) {
		ctx := context.Background()
		s := open(ctx)
		k := assoc.NewKey(assoc.ModelMisc, "roomName/tokyo")
		const n = 8
		var wg sync.WaitGroup
		wins := make(chan bool, n)
		for i := range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := s.Insert(ctx, k, []byte(fmt.Sprintf(`{"owner":"%d"}`, i)))
				if err != nil {
					t.Errorf("insert %d: %v", i, err)
				}
				wins <- ok
			}()
		}
		wg.Wait()
		close(wins)
		var c int
		for ok := range wins {
			if ok {
				c++
			}
		}
		assert.Equal(t, 1, c, "exactly one insert should win")
	})
	t.Run("remove", func(t *testing.T) {
		ctx := context.Background()
		s := open(ctx)
		k := assoc.NewKey(assoc.ModelUser, "u2#Reminder")
		require.NoError(t, s.Remove(ctx, k), "removing an absent record")
		require.NoError(t, s.Write(ctx, k, []byte(`{"enabled":true}`)))
		require.NoError(t, s.Remove(ctx, k))
		b, err := s.Read(ctx, k)
		require.NoError(t, err)
		assert.Nil(t, b)
		ok, err := s.Insert(ctx, k, []byte(`{"enabled":false}`))
		require.NoError(t, err)
		assert.True(t, ok, "insert after remove")
	})
	t.Run("typed", func(t *testing.T) {
		ctx := context.Background()
		s := open(ctx)
		type rec struct {
			UserLocation string `json:"userLocation,omitempty"`
		}
		k := assoc.NewKey(assoc.ModelRoom, "r2/trip")
		got, err := assoc.Get[rec](ctx, s, k)
		require.NoError(t, err)
		assert.Nil(t, got)
		require.NoError(t, assoc.Put(ctx, s, k, rec{UserLocation: "Lisbon"}))
		got, err = assoc.Get[rec](ctx, s, k)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Lisbon", got.UserLocation)
	})
}
