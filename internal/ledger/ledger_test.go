package ledger

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/veracitylab/veracity/internal/model"
)

func TestDefaultPrior(t *testing.T) {
	l := New(model.LedgerConfig{})

	cred := l.Get("unknown.example")
	if cred.Score != 0.5 {
		t.Errorf("unknown source should start at 0.5, got %f", cred.Score)
	}
	if cred.Samples != 0 {
		t.Errorf("reading must not record a sample, got %d", cred.Samples)
	}
	// Reads must not materialize entries.
	if got := len(l.Snapshot()); got != 0 {
		t.Errorf("Get materialized an entry: snapshot has %d", got)
	}
}

func TestTierPriors(t *testing.T) {
	l := New(model.LedgerConfig{
		PrimarySources:   []string{"reuters.com"},
		SecondarySources: []string{"tribune.example"},
		PrimaryPrior:     0.65,
		SecondaryPrior:   0.55,
	})

	if s := l.Get("reuters.com").Score; s != 0.65 {
		t.Errorf("primary source prior: expected 0.65, got %f", s)
	}
	if s := l.Get("wire.reuters.com").Score; s != 0.65 {
		t.Errorf("subdomain should inherit the primary prior, got %f", s)
	}
	if s := l.Get("reuters.com:8080").Score; s != 0.65 {
		t.Errorf("port suffix should not defeat the prior, got %f", s)
	}
	if s := l.Get("tribune.example").Score; s != 0.55 {
		t.Errorf("secondary source prior: expected 0.55, got %f", s)
	}
	if s := l.Get("notreuters.com").Score; s != 0.5 {
		t.Errorf("partial domain match must not apply the prior, got %f", s)
	}
}

func TestRecordAgreementEWMA(t *testing.T) {
	l := New(model.LedgerConfig{Decay: 0.95})

	cred := l.RecordAgreement("one.example", true)
	if math.Abs(cred.Score-0.525) > 1e-9 {
		t.Errorf("expected 0.95*0.5 + 0.05*1 = 0.525, got %f", cred.Score)
	}
	if cred.Samples != 1 {
		t.Errorf("expected 1 sample, got %d", cred.Samples)
	}
	if cred.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set")
	}

	cred = l.RecordAgreement("one.example", false)
	if math.Abs(cred.Score-0.49875) > 1e-9 {
		t.Errorf("expected 0.95*0.525, got %f", cred.Score)
	}
}

func TestConvergence(t *testing.T) {
	l := New(model.LedgerConfig{Decay: 0.95})

	for i := 0; i < 500; i++ {
		l.RecordAgreement("faithful.example", true)
		l.RecordAgreement("contrarian.example", false)
	}

	if s := l.Get("faithful.example").Score; s < 0.99 {
		t.Errorf("persistent agreement should converge toward 1, got %f", s)
	}
	if s := l.Get("contrarian.example").Score; s > 0.01 {
		t.Errorf("persistent disagreement should converge toward 0, got %f", s)
	}
}

func TestScoreStaysBounded(t *testing.T) {
	l := New(model.LedgerConfig{Decay: 0.5})

	for i := 0; i < 50; i++ {
		if s := l.RecordAgreement("one.example", true).Score; s > 1 {
			t.Fatalf("score exceeded 1: %f", s)
		}
	}
	for i := 0; i < 50; i++ {
		if s := l.RecordAgreement("one.example", false).Score; s < 0 {
			t.Fatalf("score fell below 0: %f", s)
		}
	}
}

func TestUpdateAtomic(t *testing.T) {
	l := New(model.LedgerConfig{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				l.Update("busy.example", func(c *model.SourceCredibility) {
					c.Samples++
				})
			}
		}()
	}
	wg.Wait()

	if got := l.Get("busy.example").Samples; got != 800 {
		t.Errorf("lost updates: expected 800 samples, got %d", got)
	}
}

func TestSnapshotRestore(t *testing.T) {
	l := New(model.LedgerConfig{})
	l.RecordAgreement("b.example", true)
	l.RecordAgreement("a.example", false)

	snap := l.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(snap))
	}
	if snap[0].Source != "a.example" || snap[1].Source != "b.example" {
		t.Errorf("snapshot not sorted by source: %+v", snap)
	}

	restored := New(model.LedgerConfig{})
	restored.Restore(snap)

	for _, want := range snap {
		got := restored.Get(want.Source)
		if got.Score != want.Score || got.Samples != want.Samples {
			t.Errorf("restore mismatch for %s: %+v vs %+v", want.Source, got, want)
		}
	}
}

func TestRestoreOverwrites(t *testing.T) {
	l := New(model.LedgerConfig{})
	l.RecordAgreement("one.example", false)

	l.Restore([]model.SourceCredibility{{
		Source:    "one.example",
		Score:     0.9,
		Samples:   42,
		UpdatedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}})

	got := l.Get("one.example")
	if got.Score != 0.9 || got.Samples != 42 {
		t.Errorf("restore should replace live state, got %+v", got)
	}
}

func TestSetConfigChangesDecay(t *testing.T) {
	l := New(model.LedgerConfig{Decay: 0.95})

	cred := l.RecordAgreement("wire.example", true)
	if math.Abs(cred.Score-0.525) > 1e-9 {
		t.Fatalf("expected 0.525 after one agreement, got %f", cred.Score)
	}

	l.SetConfig(model.LedgerConfig{Decay: 0.5})
	cred = l.RecordAgreement("wire.example", true)
	if want := 0.5*0.525 + 0.5; math.Abs(cred.Score-want) > 1e-9 {
		t.Errorf("new decay must govern the next update: got %f, want %f", cred.Score, want)
	}
	if cred.Samples != 2 {
		t.Errorf("accumulated samples must survive a reconfigure, got %d", cred.Samples)
	}

	// New priors apply to sources seen afterwards.
	l.SetConfig(model.LedgerConfig{
		Decay:          0.5,
		PrimarySources: []string{"agency.example"},
		PrimaryPrior:   0.7,
	})
	if s := l.Get("agency.example").Score; s != 0.7 {
		t.Errorf("reconfigured prior not applied, got %f", s)
	}
}
