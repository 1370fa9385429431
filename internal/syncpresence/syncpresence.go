package syncpresence

import (
	"context"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	presenceKey = "relay:presence"
	pipeTimeout = 1500 * time.Millisecond
)

// Source yields live member counts per room.
type Source interface {
	RoomSizes() map[string]int
}

// Run mirrors live room sizes into a Redis hash every interval until ctx
// is cancelled.
func Run(ctx context.Context, rdc *redis.Client, src Source, interval time.Duration) {
	tk := time.NewTicker(interval)
	go func() {
		defer tk.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tk.C:
				if err := syncOnce(ctx, rdc, src); err != nil {
					zap.L().Warn("syncpresence.pipeline", zap.Error(err))
				}
			}
		}
	}()
}

// syncOnce replaces the presence hash in one MULTI/EXEC so readers never
// see a half-written snapshot.
func syncOnce(ctx context.Context, rdc *redis.Client, src Source) error {
	sizes := src.RoomSizes()

	rooms := make([]string, 0, len(sizes))
	for room := range sizes {
		rooms = append(rooms, room)
	}
	slices.Sort(rooms)

	fields := make([]any, 0, 2*len(rooms))
	for _, room := range rooms {
		fields = append(fields, room, sizes[room])
	}

	ctx, cancel := context.WithTimeout(ctx, pipeTimeout)
	defer cancel()

	_, err := rdc.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, presenceKey)
		if len(fields) > 0 {
			pipe.HSet(ctx, presenceKey, fields...)
		}
		return nil
	})
	return err
}
