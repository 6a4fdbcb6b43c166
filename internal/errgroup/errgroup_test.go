// Copyright 2023 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package errgroup

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestGroupReturnsFunctionError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eg, _ := WithContext(ctx)

	what := fmt.Errorf("func generated error")
	ch := make(chan error)
	eg.Go(func(context.Context) error { return <-ch })

	ch <- what
	if err := eg.Wait(); err != what {
		t.Errorf("invalid error. got=%+v, want=%+v", err, what)
	}
}

func TestGroupCancelsSiblings(t *testing.T) {
	eg, ctx := WithContext(context.Background())

	what := fmt.Errorf("func generated error")
	eg.Go(func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
	eg.Go(func(context.Context) error { return what })

	if err := eg.Wait(); err != what {
		t.Errorf("invalid error. got=%+v, want=%+v", err, what)
	}
	if ctx.Err() == nil {
		t.Errorf("group context should be cancelled")
	}
}

func TestGroupRespectsParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	eg, _ := WithContext(ctx)

	started := make(chan struct{})
	stuck := make(chan struct{})
	defer close(stuck)

	eg.Go(func(context.Context) error {
		close(started)
		<-stuck // ignores the group context on purpose
		return fmt.Errorf("func generated error")
	})

	<-started
	cancel()

	eg.Go(func(context.Context) error {
		t.Errorf("the parent context was cancelled, this function shall not be called")
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- eg.Wait() }()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("expected a context.Canceled error, got=%+v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Wait did not return after parent cancellation")
	}
}

func TestZeroGroup(t *testing.T) {
	var eg Group

	what := fmt.Errorf("func generated error")
	ch1 := make(chan error)
	eg.Go(func(ctx context.Context) error {
		if ctx == nil {
			return fmt.Errorf("nil context")
		}
		return <-ch1
	})
	ch2 := make(chan error)
	eg.Go(func(context.Context) error { return <-ch2 })

	ch1 <- what
	ch2 <- nil
	if err := eg.Wait(); err != what {
		t.Errorf("invalid error. got=%+v, want=%+v", err, what)
	}
}
