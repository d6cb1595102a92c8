package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	size := 3
	m, err := New(reg, func() int { return size })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m.ConnectionsAccepted.Inc()
	m.Requests.WithLabelValues("store", "success").Inc()
	m.Requests.WithLabelValues("store", "success").Inc()
	m.ConnectionErrors.WithLabelValues("bad reading").Inc()

	if got := testutil.ToFloat64(m.ConnectionsAccepted); got != 1 {
		t.Errorf("expected 1 accepted connection, got %v", got)
	}
	if got := testutil.ToFloat64(m.Requests.WithLabelValues("store", "success")); got != 2 {
		t.Errorf("expected 2 store requests, got %v", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "hashdelivery_store_keys" {
			found = true
			if v := f.GetMetric()[0].GetGauge().GetValue(); v != 3 {
				t.Errorf("expected store_keys 3, got %v", v)
			}
		}
	}
	if !found {
		t.Error("store_keys gauge was not registered")
	}
}

func TestNew_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := New(reg, func() int { return 0 }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := New(reg, func() int { return 0 }); err == nil {
		t.Fatal("expected an error registering the collectors twice")
	}
}
