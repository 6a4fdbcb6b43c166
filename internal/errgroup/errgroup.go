// Copyright 2023 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package errgroup runs groups of goroutines bound to a parent context.
//
// Unlike golang.org/x/sync/errgroup, a Group created with WithContext stops
// waiting as soon as the parent context is cancelled: Wait returns the
// parent context error even if some functions are still blocked.
package errgroup

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Group is a collection of goroutines working on subtasks of the same
// overall task, aborted as a whole when its parent context is cancelled.
//
// A zero Group is valid, has no parent context and does not cancel on error.
type Group struct {
	grp    *errgroup.Group
	parent context.Context // cancellation of parent aborts the group
	ctx    context.Context // passed to the functions run by the group
}

// WithContext returns a new Group bound to parent and the derived context
// handed to the functions. The derived context is canceled the first time
// a function returns a non-nil error or when Wait returns.
func WithContext(parent context.Context) (*Group, context.Context) {
	grp, ctx := errgroup.WithContext(parent)
	return &Group{grp: grp, parent: parent, ctx: ctx}, ctx
}

// Go runs f in a dedicated goroutine with the group context.
// The call counts as completed when f returns or the parent context is
// cancelled, whichever comes first.
func (g *Group) Go(f func(ctx context.Context) error) {
	g.group().Go(g.bind(f))
}

// Wait blocks until all function calls from Go have completed and returns
// the first non-nil error, if any.
func (g *Group) Wait() error {
	return g.group().Wait()
}

func (g *Group) bind(f func(ctx context.Context) error) func() error {
	ctx := g.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if g.parent == nil {
		return func() error { return f(ctx) }
	}

	return func() error {
		if err := g.parent.Err(); err != nil {
			return err
		}

		// buffered so that f can complete after we stopped waiting for it.
		ch := make(chan error, 1)
		go func() {
			ch <- f(ctx)
		}()

		select {
		case err := <-ch:
			return err
		case <-g.parent.Done():
			return g.parent.Err()
		}
	}
}

func (g *Group) group() *errgroup.Group {
	if g.grp == nil {
		g.grp = &errgroup.Group{}
	}
	return g.grp
}
