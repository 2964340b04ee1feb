// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestRecordPublish(t *testing.T) {
	before := testutil.ToFloat64(EventsPublished.WithLabelValues("chatroom"))
	RecordPublish("chatroom", 2*time.Millisecond)
	after := testutil.ToFloat64(EventsPublished.WithLabelValues("chatroom"))

	if after-before != 1 {
		t.Errorf("expected counter to increase by 1, got %v", after-before)
	}
}

func TestRecordDispatch_Outcome(t *testing.T) {
	okBefore := testutil.ToFloat64(EnvelopesDispatched.WithLabelValues("dm:", "ok"))
	errBefore := testutil.ToFloat64(EnvelopesDispatched.WithLabelValues("dm:", "error"))

	RecordDispatch("dm:", time.Millisecond, nil)
	RecordDispatch("dm:", time.Millisecond, errors.New("decode"))
	RecordDispatch("dm:", time.Millisecond, errors.New("decode"))

	if got := testutil.ToFloat64(EnvelopesDispatched.WithLabelValues("dm:", "ok")) - okBefore; got != 1 {
		t.Errorf("ok outcome delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(EnvelopesDispatched.WithLabelValues("dm:", "error")) - errBefore; got != 2 {
		t.Errorf("error outcome delta = %v, want 2", got)
	}
}

func TestRecordSinkMessage(t *testing.T) {
	dropped := testutil.ToFloat64(SinkMessages.WithLabelValues("dropped"))
	RecordSinkMessage(false)
	if got := testutil.ToFloat64(SinkMessages.WithLabelValues("dropped")) - dropped; got != 1 {
		t.Errorf("dropped delta = %v, want 1", got)
	}
}

func TestRecordDeadConnection(t *testing.T) {
	before := testutil.ToFloat64(DeadConnectionsPruned)
	RecordDeadConnection()
	RecordDeadConnection()
	if got := testutil.ToFloat64(DeadConnectionsPruned) - before; got != 2 {
		t.Errorf("dead connection delta = %v, want 2", got)
	}
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("POST", "/internal/v1/notifications", "202"))
	RecordAPIRequest("POST", "/internal/v1/notifications", "202", 3*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("POST", "/internal/v1/notifications", "202"))
	if after-before != 1 {
		t.Errorf("APIRequestsTotal delta = %v, want 1", after-before)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests) - before; got != 1 {
		t.Errorf("gauge delta after inc = %v", got)
	}
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests) - before; got != 0 {
		t.Errorf("gauge delta after dec = %v", got)
	}
}

func TestRecordPublish_ObservesDuration(t *testing.T) {
	sampleCount := func() uint64 {
		var m dto.Metric
		if err := PublishDuration.Write(&m); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		return m.GetHistogram().GetSampleCount()
	}

	before := sampleCount()
	RecordPublish("notification", 2*time.Millisecond)
	RecordPublish("notification", 4*time.Millisecond)
	if got := sampleCount() - before; got != 2 {
		t.Errorf("sample count delta = %d, want 2", got)
	}
}
