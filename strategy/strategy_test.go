package strategy_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/datasophos/NexusLIMS-sub001/destination"
	"github.com/datasophos/NexusLIMS-sub001/strategy"
	"github.com/datasophos/NexusLIMS-sub001/types"
)

func testContext() *types.ExportContext {
	return types.NewExportContext("/data/records/sess-001.xml", types.SessionMeta{
		SessionID:     "sess-001",
		InstrumentPID: "instr-642c",
		Start:         time.Date(2026, 2, 7, 9, 0, 0, 0, time.UTC),
		End:           time.Date(2026, 2, 7, 11, 30, 0, 0, time.UTC),
	})
}

func asTargets(stubs ...*destination.StubDestination) []strategy.Destination {
	out := make([]strategy.Destination, len(stubs))
	for i, s := range stubs {
		out[i] = s
	}
	return out
}

func names(results []*types.ExportResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Destination
	}
	return out
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		want    strategy.Strategy
		wantErr bool
	}{
		{"all", strategy.All, false},
		{"firstSuccess", strategy.FirstSuccess, false},
		{"bestEffort", strategy.BestEffort, false},
		{"", "", true},
		{"first_success", "", true},
		{"ALL", "", true},
	}
	for _, tt := range tests {
		got, err := strategy.Parse(tt.name)
		if tt.wantErr {
			if !errors.Is(err, strategy.ErrUnknownStrategy) {
				t.Errorf("Parse(%q): expected ErrUnknownStrategy, got %v", tt.name, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%q): unexpected error %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestExecute_All_VisitsEveryDestinationInOrder(t *testing.T) {
	d1 := destination.NewStubDestination("cdcs", 100)
	d2 := destination.NewStubDestination("labarchives", 90)
	d2.Fail = true
	d2.FailMessage = "auth rejected"
	d3 := destination.NewStubDestination("elabftw", 80)

	results, err := strategy.Execute(context.Background(), strategy.All, asTargets(d1, d2, d3), testContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("all must return one result per destination, got %d", len(results))
	}
	want := []string{"cdcs", "labarchives", "elabftw"}
	for i, name := range want {
		if results[i].Destination != name {
			t.Errorf("position %d: expected %s, got %s", i, name, results[i].Destination)
		}
	}
	if d2.ExportCalls != 1 || d3.ExportCalls != 1 {
		t.Error("a failure must not stop the all strategy")
	}
}

func TestExecute_FirstSuccess_StopsAtFirstSuccess(t *testing.T) {
	d1 := destination.NewStubDestination("cdcs", 100)
	d1.Fail = true
	d2 := destination.NewStubDestination("labarchives", 90)
	d3 := destination.NewStubDestination("elabftw", 80)

	results, err := strategy.Execute(context.Background(), strategy.FirstSuccess, asTargets(d1, d2, d3), testContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected results up to and including first success, got %d", len(results))
	}
	if !results[1].Success || results[1].Destination != "labarchives" {
		t.Errorf("expected final result to be the labarchives success, got %+v", results[1])
	}
	if d3.ExportCalls != 0 {
		t.Error("destinations after the first success must not run")
	}
}

func TestExecute_FirstSuccess_AllFailReturnsEverything(t *testing.T) {
	d1 := destination.NewStubDestination("cdcs", 100)
	d1.Fail = true
	d2 := destination.NewStubDestination("elabftw", 80)
	d2.Fail = true

	results, err := strategy.Execute(context.Background(), strategy.FirstSuccess, asTargets(d1, d2), testContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("with no success, firstSuccess must return all results, got %d", len(results))
	}
}

func TestExecute_FirstSuccess_IsPrefixOfAll(t *testing.T) {
	// Identical destination behavior dispatched under both strategies:
	// firstSuccess must produce a prefix of all's results.
	build := func() []strategy.Destination {
		d1 := destination.NewStubDestination("cdcs", 100)
		d1.Fail = true
		d2 := destination.NewStubDestination("labarchives", 90)
		d3 := destination.NewStubDestination("elabftw", 80)
		d3.Fail = true
		return asTargets(d1, d2, d3)
	}

	allResults, err := strategy.Execute(context.Background(), strategy.All, build(), testContext())
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	firstResults, err := strategy.Execute(context.Background(), strategy.FirstSuccess, build(), testContext())
	if err != nil {
		t.Fatalf("firstSuccess: %v", err)
	}

	if len(firstResults) > len(allResults) {
		t.Fatalf("prefix longer than full list: %d > %d", len(firstResults), len(allResults))
	}
	for i := range firstResults {
		if firstResults[i].Destination != allResults[i].Destination ||
			firstResults[i].Success != allResults[i].Success {
			t.Errorf("position %d diverges: %+v vs %+v", i, firstResults[i], allResults[i])
		}
	}
	last := firstResults[len(firstResults)-1]
	if !last.Success {
		t.Error("prefix must end at the first success when one exists")
	}
}

func TestExecute_BestEffort_SameDispatchAsAll(t *testing.T) {
	build := func() []strategy.Destination {
		d1 := destination.NewStubDestination("cdcs", 100)
		d2 := destination.NewStubDestination("labarchives", 90)
		d2.Fail = true
		return asTargets(d1, d2)
	}

	allResults, err := strategy.Execute(context.Background(), strategy.All, build(), testContext())
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	beResults, err := strategy.Execute(context.Background(), strategy.BestEffort, build(), testContext())
	if err != nil {
		t.Fatalf("bestEffort: %v", err)
	}

	if len(beResults) != len(allResults) {
		t.Fatalf("bestEffort must dispatch like all: %d vs %d results", len(beResults), len(allResults))
	}
	for i := range beResults {
		if beResults[i].Destination != allResults[i].Destination ||
			beResults[i].Success != allResults[i].Success {
			t.Errorf("position %d diverges: %+v vs %+v", i, beResults[i], allResults[i])
		}
	}
}

func TestExecute_UnknownStrategy_AbortsBeforeDispatch(t *testing.T) {
	d1 := destination.NewStubDestination("cdcs", 100)

	_, err := strategy.Execute(context.Background(), strategy.Strategy("everything"), asTargets(d1), testContext())
	if !errors.Is(err, strategy.ErrUnknownStrategy) {
		t.Fatalf("expected ErrUnknownStrategy, got %v", err)
	}
	if d1.ExportCalls != 0 {
		t.Error("no destination may run for an unknown strategy")
	}
}

func TestExecute_ResultsVisibleToLaterDestinations(t *testing.T) {
	d1 := destination.NewStubDestination("cdcs", 100)
	d2 := destination.NewStubDestination("labarchives", 90)
	d3 := destination.NewStubDestination("elabftw", 80)

	ectx := testContext()
	_, err := strategy.Execute(context.Background(), strategy.All, asTargets(d1, d2, d3), ectx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(d1.VisibleAtCall[0]) != 0 {
		t.Errorf("first destination must see an empty context, saw %v", d1.VisibleAtCall[0])
	}
	if got := d2.VisibleAtCall[0]; len(got) != 1 || got[0] != "cdcs" {
		t.Errorf("second destination must see [cdcs], saw %v", got)
	}
	if got := d3.VisibleAtCall[0]; len(got) != 2 || got[0] != "cdcs" || got[1] != "labarchives" {
		t.Errorf("third destination must see [cdcs labarchives], saw %v", got)
	}

	// Context ends up holding exactly the produced results, in order.
	if got := names(ectx.PreviousResults()); len(got) != 3 {
		t.Errorf("context must hold all produced results, got %v", got)
	}
}

func TestExecute_CrossLinkScenario(t *testing.T) {
	// Three destinations: cdcs succeeds with a record URL, labarchives reads
	// it from the context and embeds it, elabftw times out.
	cdcs := destination.NewStubDestination("cdcs", 100)
	cdcs.RecordURL = "http://x/1"

	labarchives := &destination.StubDestination{
		DestName:     "labarchives",
		DestPriority: 90,
		ExportFunc: func(_ context.Context, ectx *types.ExportContext) *types.ExportResult {
			r := types.NewSuccess("labarchives", "la-1", "http://la/1")
			if prev, ok := ectx.PreviousResult("cdcs"); ok && prev.Success && prev.RecordURL != nil {
				r = r.WithMetadata(map[string]any{
					"cdcs_link_embedded": true,
					"cdcs_record_url":    *prev.RecordURL,
				})
			}
			return r
		},
	}

	elabftw := destination.NewStubDestination("elabftw", 80)
	elabftw.Fail = true
	elabftw.FailMessage = "timeout"

	targets := asTargets(cdcs, labarchives, elabftw)

	results, err := strategy.Execute(context.Background(), strategy.All, targets, testContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := names(results); len(got) != 3 || got[0] != "cdcs" || got[1] != "labarchives" || got[2] != "elabftw" {
		t.Fatalf("expected priority-descending results, got %v", got)
	}
	if url, ok := results[1].Metadata["cdcs_record_url"]; !ok || url != "http://x/1" {
		t.Errorf("labarchives metadata must carry the cdcs URL, got %v", results[1].Metadata)
	}
	if results[2].Error() != "timeout" {
		t.Errorf("expected elabftw timeout failure, got %q", results[2].Error())
	}

	// bestEffort interpretation: 2 of 3 succeeded is overall success.
	if !strategy.Succeeded(strategy.BestEffort, results) {
		t.Error("bestEffort must report success with 2 of 3 succeeded")
	}
	// all interpretation: one failure sinks the batch.
	if strategy.Succeeded(strategy.All, results) {
		t.Error("all must report failure with 1 of 3 failed")
	}

	// firstSuccess would stop after cdcs.
	cdcs2 := destination.NewStubDestination("cdcs", 100)
	cdcs2.RecordURL = "http://x/1"
	firstResults, err := strategy.Execute(context.Background(), strategy.FirstSuccess,
		asTargets(cdcs2, destination.NewStubDestination("labarchives", 90), destination.NewStubDestination("elabftw", 80)),
		testContext())
	if err != nil {
		t.Fatalf("firstSuccess: %v", err)
	}
	if len(firstResults) != 1 || firstResults[0].Destination != "cdcs" {
		t.Errorf("firstSuccess must stop after cdcs, got %v", names(firstResults))
	}
}

func TestSucceeded(t *testing.T) {
	ok := types.NewSuccess("a", "", "")
	bad := types.NewFailure("b", "boom")

	tests := []struct {
		name    string
		strat   strategy.Strategy
		results []*types.ExportResult
		want    bool
	}{
		{"all, every success", strategy.All, []*types.ExportResult{ok, ok}, true},
		{"all, one failure", strategy.All, []*types.ExportResult{ok, bad}, false},
		{"bestEffort, one success", strategy.BestEffort, []*types.ExportResult{bad, ok}, true},
		{"bestEffort, all failed", strategy.BestEffort, []*types.ExportResult{bad, bad}, false},
		{"firstSuccess, one success", strategy.FirstSuccess, []*types.ExportResult{bad, ok}, true},
		{"empty batch", strategy.All, nil, false},
	}
	for _, tt := range tests {
		if got := strategy.Succeeded(tt.strat, tt.results); got != tt.want {
			t.Errorf("%s: Succeeded = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestExecute_NilResultBecomesFailure(t *testing.T) {
	broken := &destination.StubDestination{
		DestName:     "broken",
		DestPriority: 50,
		ExportFunc: func(context.Context, *types.ExportContext) *types.ExportResult {
			return nil
		},
	}

	results, err := strategy.Execute(context.Background(), strategy.All, asTargets(broken), testContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].Success {
		t.Fatalf("nil result must surface as a failure, got %+v", results)
	}
}
