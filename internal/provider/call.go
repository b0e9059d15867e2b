package provider

import (
	"context"
	"errors"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ErrNoMessage is returned by Generate when a backend answers with neither a
// message nor an error.
var ErrNoMessage = errors.New("provider: model returned no message")

// Generate runs one chat call and returns as soon as it completes or ctx is
// done. A backend that ignores ctx keeps running in the background but no
// longer holds the caller; its late result is discarded.
func Generate(ctx context.Context, chat model.BaseChatModel, msgs []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	type result struct {
		msg *schema.Message
		err error
	}
	done := make(chan result, 1)
	go func() {
		msg, err := chat.Generate(ctx, msgs, opts...)
		done <- result{msg: msg, err: err}
	}()

	select {
	case r := <-done:
		if r.err == nil && r.msg == nil {
			return nil, ErrNoMessage
		}
		return r.msg, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
