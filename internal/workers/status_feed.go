package workers

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// StatusFeed subscribes to the status channel of one conversation.
type StatusFeed struct {
	Redis *redis.Client
}

// Subscribe returns the payloads published on StatusChannel(id) and a func
// that ends the subscription. The payload channel closes after that func runs
// or when ctx ends.
func (f *StatusFeed) Subscribe(ctx context.Context, id string) (<-chan string, func() error, error) {
	ps := f.Redis.Subscribe(ctx, StatusChannel(id))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, err
	}

	in := ps.Channel()
	out := make(chan string)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- m.Payload:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, ps.Close, nil
}
