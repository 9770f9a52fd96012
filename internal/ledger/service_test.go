package ledger

import (
	"context"
	"errors"
	"testing"

	"ledger/internal/core"
	"ledger/internal/log"

	"github.com/shopspring/decimal"
)

// fakeSnapshots is an in-memory Snapshotter with an injectable save error.
type fakeSnapshots struct {
	loaded  []core.Transaction
	loadErr error
	saved   [][]core.Transaction
	saveErr error
}

func (f *fakeSnapshots) Load(context.Context) ([]core.Transaction, error) {
	return f.loaded, f.loadErr
}

func (f *fakeSnapshots) Save(_ context.Context, list []core.Transaction) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, list)
	return nil
}

func (f *fakeSnapshots) last() []core.Transaction {
	if len(f.saved) == 0 {
		return nil
	}
	return f.saved[len(f.saved)-1]
}

type recordingObserver struct {
	changes []Change
	err     error
}

func (r *recordingObserver) LedgerChanged(_ context.Context, c Change) error {
	r.changes = append(r.changes, c)
	return r.err
}

func openTest(t *testing.T, snaps *fakeSnapshots, opts ...Option) *Service {
	t.Helper()
	opts = append([]Option{WithLogger(log.Discard())}, opts...)
	svc, err := Open(context.Background(), snaps, opts...)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return svc
}

func mustEqualDec(t *testing.T, field string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Fatalf("%s = %s, want %s", field, got, want)
	}
}

func TestServiceSalaryRentScenario(t *testing.T) {
	ctx := context.Background()
	snaps := &fakeSnapshots{}
	svc := openTest(t, snaps)

	snap, err := svc.Add(ctx, tx("Salary", core.Income, "2024-01-01", "1000"))
	if err != nil {
		t.Fatalf("add salary: %v", err)
	}
	sum := Summarize(snap.Transactions)
	mustEqualDec(t, "income", sum.Income, "1000")
	mustEqualDec(t, "expense", sum.Expense, "0")
	mustEqualDec(t, "balance", sum.Balance, "1000")

	snap, err = svc.Add(ctx, tx("Rent", core.Expense, "2024-01-02", "400"))
	if err != nil {
		t.Fatalf("add rent: %v", err)
	}
	sum = Summarize(snap.Transactions)
	mustEqualDec(t, "income", sum.Income, "1000")
	mustEqualDec(t, "expense", sum.Expense, "400")
	mustEqualDec(t, "balance", sum.Balance, "600")

	snap, ok, err := svc.Delete(ctx, Ref{Index: 0, Version: snap.Version})
	if err != nil || !ok {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
	sum = Summarize(snap.Transactions)
	mustEqualDec(t, "income", sum.Income, "0")
	mustEqualDec(t, "expense", sum.Expense, "400")
	mustEqualDec(t, "balance", sum.Balance, "-400")

	equalNames(t, snaps.last(), "Rent")
}

func TestServiceOpenLoadsSnapshot(t *testing.T) {
	snaps := &fakeSnapshots{loaded: []core.Transaction{tx("a", core.Income, "", "1")}}
	svc := openTest(t, snaps)
	snap := svc.Snapshot()
	if snap.Version != 1 {
		t.Fatalf("version = %d, want 1", snap.Version)
	}
	equalNames(t, snap.Transactions, "a")
}

func TestServiceVersionAdvancesOnMutation(t *testing.T) {
	ctx := context.Background()
	svc := openTest(t, &fakeSnapshots{})
	v0 := svc.Snapshot().Version
	snap, _ := svc.Add(ctx, tx("a", core.Income, "", "1"))
	if snap.Version != v0+1 {
		t.Fatalf("version = %d, want %d", snap.Version, v0+1)
	}
}

func TestServiceStaleVersionRejected(t *testing.T) {
	ctx := context.Background()
	svc := openTest(t, &fakeSnapshots{loaded: []core.Transaction{
		tx("a", core.Income, "", "1"),
		tx("b", core.Expense, "", "2"),
	}})
	stale := svc.Snapshot().Version
	if _, err := svc.Add(ctx, tx("c", core.Income, "", "3")); err != nil {
		t.Fatalf("add: %v", err)
	}

	if _, _, err := svc.Delete(ctx, Ref{Index: 0, Version: stale}); !errors.Is(err, ErrStaleVersion) {
		t.Fatalf("delete err = %v, want ErrStaleVersion", err)
	}
	if _, _, _, err := svc.Edit(ctx, Ref{Index: 0, Version: stale}); !errors.Is(err, ErrStaleVersion) {
		t.Fatalf("edit err = %v, want ErrStaleVersion", err)
	}
	equalNames(t, svc.Snapshot().Transactions, "a", "b", "c")

	// A zero version skips the check.
	if _, ok, err := svc.Delete(ctx, Ref{Index: 0}); err != nil || !ok {
		t.Fatalf("unversioned delete: ok=%v err=%v", ok, err)
	}
}

func TestServiceOutOfRangeIsNoOp(t *testing.T) {
	ctx := context.Background()
	snaps := &fakeSnapshots{loaded: []core.Transaction{tx("a", core.Income, "", "1")}}
	obs := &recordingObserver{}
	svc := openTest(t, snaps, WithObserver(obs))

	for _, idx := range []int{-1, 1, 42} {
		snap, ok, err := svc.Delete(ctx, Ref{Index: idx})
		if err != nil || ok {
			t.Fatalf("delete %d: ok=%v err=%v", idx, ok, err)
		}
		if snap.Version != 1 {
			t.Fatalf("version bumped on no-op: %d", snap.Version)
		}
		if _, _, ok, err := svc.Edit(ctx, Ref{Index: idx}); err != nil || ok {
			t.Fatalf("edit %d: ok=%v err=%v", idx, ok, err)
		}
	}
	if len(snaps.saved) != 0 {
		t.Fatalf("no-op persisted %d times", len(snaps.saved))
	}
	if len(obs.changes) != 0 {
		t.Fatalf("no-op notified %d times", len(obs.changes))
	}
}

func TestServiceEditReturnsDraftAndRemoves(t *testing.T) {
	ctx := context.Background()
	svc := openTest(t, &fakeSnapshots{loaded: []core.Transaction{
		tx("Salary", core.Income, "2024-01-01", "1000"),
		tx("Rent", core.Expense, "2024-01-02", "400.5"),
	}})
	d, snap, ok, err := svc.Edit(ctx, Ref{Index: 1, Version: 1})
	if err != nil || !ok {
		t.Fatalf("edit: ok=%v err=%v", ok, err)
	}
	if d.Name != "Rent" || d.Category != "expense" || d.Date != "2024-01-02" || d.Amount != "400.5" {
		t.Fatalf("draft = %+v", d)
	}
	equalNames(t, snap.Transactions, "Salary")

	again, err := d.Transaction()
	if err != nil {
		t.Fatalf("draft: %v", err)
	}
	snap, _ = svc.Add(ctx, again)
	equalNames(t, snap.Transactions, "Salary", "Rent")
}

func TestServiceRollsBackOnSaveFailure(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk full")
	snaps := &fakeSnapshots{loaded: []core.Transaction{
		tx("a", core.Income, "", "1"),
		tx("b", core.Expense, "", "2"),
		tx("c", core.Income, "", "3"),
	}}
	obs := &recordingObserver{}
	svc := openTest(t, snaps, WithObserver(obs))
	snaps.saveErr = boom

	if _, err := svc.Add(ctx, tx("d", core.Income, "", "4")); !errors.Is(err, boom) {
		t.Fatalf("add err = %v", err)
	}
	equalNames(t, svc.Snapshot().Transactions, "a", "b", "c")

	if _, _, err := svc.Delete(ctx, Ref{Index: 1}); !errors.Is(err, boom) {
		t.Fatalf("delete err = %v", err)
	}
	equalNames(t, svc.Snapshot().Transactions, "a", "b", "c")

	if _, _, _, err := svc.Edit(ctx, Ref{Index: 0}); !errors.Is(err, boom) {
		t.Fatalf("edit err = %v", err)
	}
	equalNames(t, svc.Snapshot().Transactions, "a", "b", "c")

	if v := svc.Snapshot().Version; v != 1 {
		t.Fatalf("version = %d after failed saves", v)
	}
	if len(obs.changes) != 0 {
		t.Fatalf("observers notified on failed save: %d", len(obs.changes))
	}
}

func TestServiceNotifiesObservers(t *testing.T) {
	ctx := context.Background()
	failing := &recordingObserver{err: errors.New("broker down")}
	ok := &recordingObserver{}
	svc := openTest(t, &fakeSnapshots{}, WithObserver(failing), WithObserver(ok))

	if _, err := svc.Add(ctx, tx("Salary", core.Income, "", "1000")); err != nil {
		t.Fatalf("observer error must not fail the mutation: %v", err)
	}
	if _, _, err := svc.Delete(ctx, Ref{Index: 0}); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if len(ok.changes) != 2 || len(failing.changes) != 2 {
		t.Fatalf("changes = %d / %d", len(ok.changes), len(failing.changes))
	}
	first := ok.changes[0]
	if first.Op != OpAdd || first.Count != 1 || first.Version != 2 {
		t.Fatalf("first change = %+v", first)
	}
	mustEqualDec(t, "income", first.Summary.Income, "1000")
	if ok.changes[1].Op != OpDelete || ok.changes[1].Count != 0 {
		t.Fatalf("second change = %+v", ok.changes[1])
	}
}

func TestServiceCloseFlushes(t *testing.T) {
	ctx := context.Background()
	snaps := &fakeSnapshots{loaded: []core.Transaction{tx("a", core.Income, "", "1")}}
	svc := openTest(t, snaps)
	if _, err := svc.Add(ctx, tx("b", core.Expense, "", "2")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	equalNames(t, snaps.last(), "a", "b")
	if err := svc.Close(ctx); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if len(snaps.saved) != 2 {
		t.Fatalf("saved %d times, want add + one flush", len(snaps.saved))
	}
}

func TestServiceCloseWithoutChangesDoesNotWrite(t *testing.T) {
	snaps := &fakeSnapshots{loaded: []core.Transaction{tx("a", core.Income, "", "1")}}
	svc := openTest(t, snaps)
	if err := svc.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if len(snaps.saved) != 0 {
		t.Fatalf("untouched ledger was written %d times", len(snaps.saved))
	}
}

func TestServiceOpenFailsOnLoadError(t *testing.T) {
	boom := errors.New("connection refused")
	snaps := &fakeSnapshots{loadErr: boom}
	svc, err := Open(context.Background(), snaps, WithLogger(log.Discard()))
	if !errors.Is(err, boom) {
		t.Fatalf("expected load error, got %v", err)
	}
	if svc != nil {
		t.Fatal("no service on a failed open")
	}
	if len(snaps.saved) != 0 {
		t.Fatalf("failed open wrote %d snapshots", len(snaps.saved))
	}
}

// lockCheckingObserver records whether the service lock was free while it
// was being notified.
type lockCheckingObserver struct {
	svc        *Service
	heldByCall int
	calls      int
}

func (o *lockCheckingObserver) LedgerChanged(context.Context, Change) error {
	o.calls++
	if !o.svc.mu.TryLock() {
		o.heldByCall++
		return nil
	}
	o.svc.mu.Unlock()
	return nil
}

func TestServiceNotifiesWithoutHoldingLock(t *testing.T) {
	ctx := context.Background()
	obs := &lockCheckingObserver{}
	svc := openTest(t, &fakeSnapshots{}, WithObserver(obs))
	obs.svc = svc

	if _, err := svc.Add(ctx, tx("a", core.Income, "", "1")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, _, _, err := svc.Edit(ctx, Ref{Index: 0}); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if _, err := svc.Add(ctx, tx("b", core.Income, "", "1")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, _, err := svc.Delete(ctx, Ref{Index: 0}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if obs.calls != 4 {
		t.Fatalf("calls = %d, want 4", obs.calls)
	}
	if obs.heldByCall != 0 {
		t.Fatalf("observer ran under the ledger lock %d times", obs.heldByCall)
	}
}
