package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliver_SignsBody(t *testing.T) {
	var gotSig string
	var gotEvent Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotSig = r.Header.Get(SignatureHeader)
		assert.Equal(t, "sha256="+Sign("s3cret", body), gotSig)
		require.NoError(t, json.Unmarshal(body, &gotEvent))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewNotifier()
	ev := NewEvent(EventRetrievalCompleted, "job-1", map[string]int{"cards": 3})
	require.NoError(t, n.Deliver(context.Background(), srv.URL, "s3cret", ev))

	assert.NotEmpty(t, gotSig)
	assert.Equal(t, EventRetrievalCompleted, gotEvent.Type)
	assert.Equal(t, "job-1", gotEvent.JobID)
}

func TestDeliver_NoSecretNoSignature(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get(SignatureHeader))
	}))
	defer srv.Close()

	require.NoError(t, NewNotifier().Deliver(context.Background(), srv.URL, "", NewEvent(EventRetrievalFailed, "j", nil)))
}

func TestSend_RetriesUntilSuccess(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := &Notifier{Client: srv.Client(), Backoff: []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}}
	require.NoError(t, n.Send(context.Background(), srv.URL, "", NewEvent(EventRetrievalCompleted, "j", nil)))
	assert.Equal(t, int32(3), hits.Load())
}

func TestSend_GivesUp(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := &Notifier{Client: srv.Client(), Backoff: []time.Duration{time.Millisecond}}
	err := n.Send(context.Background(), srv.URL, "", NewEvent(EventRetrievalFailed, "j", nil))
	require.Error(t, err)
	assert.Equal(t, int32(2), hits.Load())
}
