// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

package supervisor

import (
	"context"
	"fmt"
	"sync/atomic"
)

// fakeService stands in for the router, hub and HTTP services. It fails its
// first failures runs, then blocks until canceled.
type fakeService struct {
	name     string
	failures int32

	starts atomic.Int32
	stops  atomic.Int32
}

func newFakeService(name string, failures int) *fakeService {
	return &fakeService{name: name, failures: int32(failures)}
}

func (f *fakeService) Serve(ctx context.Context) error {
	run := f.starts.Add(1)
	defer f.stops.Add(1)

	if run <= f.failures {
		return fmt.Errorf("%s: run %d failed", f.name, run)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeService) String() string { return f.name }

func (f *fakeService) startCount() int32 { return f.starts.Load() }

func (f *fakeService) stopCount() int32 { return f.stops.Load() }
